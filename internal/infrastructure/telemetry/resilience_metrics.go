package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ResilienceMetrics tracks the health of the upstream provider layer:
// cache effectiveness, request deduplication and circuit breaker activity.
type ResilienceMetrics struct {
	logger *zap.Logger

	cacheHitTotal      *Counter
	cacheMissTotal     *Counter
	dedupJoinTotal     *Counter
	circuitTransitions *Counter
}

// NewResilienceMetrics creates a ResilienceMetrics instance on the given meter.
func NewResilienceMetrics(meter metric.Meter, logger *zap.Logger) (*ResilienceMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rm := &ResilienceMetrics{logger: logger}

	var err error
	rm.cacheHitTotal, err = NewCounter(
		meter,
		"retailcheck_cache_hit_total",
		"Total upstream results served from cache",
		"{results}",
	)
	if err != nil {
		return nil, err
	}

	rm.cacheMissTotal, err = NewCounter(
		meter,
		"retailcheck_cache_miss_total",
		"Total upstream requests not served from cache",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	rm.dedupJoinTotal, err = NewCounter(
		meter,
		"retailcheck_dedup_join_total",
		"Total requests that joined an in-flight upstream call",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	rm.circuitTransitions, err = NewCounter(
		meter,
		"retailcheck_circuit_transition_total",
		"Total circuit breaker state transitions",
		"{transitions}",
	)
	if err != nil {
		return nil, err
	}

	return rm, nil
}

// CacheHit records a result served from cache
func (rm *ResilienceMetrics) CacheHit(ctx context.Context, endpoint string) {
	rm.cacheHitTotal.Inc(ctx, AttrEndpoint.String(endpoint))
}

// CacheMiss records a request that had to go upstream
func (rm *ResilienceMetrics) CacheMiss(ctx context.Context, endpoint string) {
	rm.cacheMissTotal.Inc(ctx, AttrEndpoint.String(endpoint))
}

// DedupJoin records a request that piggybacked on an in-flight call
func (rm *ResilienceMetrics) DedupJoin(ctx context.Context, endpoint string) {
	rm.dedupJoinTotal.Inc(ctx, AttrEndpoint.String(endpoint))
}

// CircuitTransition records a circuit breaker state change
func (rm *ResilienceMetrics) CircuitTransition(endpoint string, state string) {
	rm.circuitTransitions.Inc(context.Background(),
		AttrEndpoint.String(endpoint),
		AttrCircuitState.String(state),
	)
}
