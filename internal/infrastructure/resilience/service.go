package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dealerdesk/backend/internal/domain/shared"
)

// Call produces a fresh upstream result. The returned value is JSON
// serialized before caching and fan-out to waiters.
type Call func(ctx context.Context) (any, error)

// MetricsRecorder receives resilience events. Implementations must be
// cheap and non-blocking.
type MetricsRecorder interface {
	CacheHit(ctx context.Context, endpoint string)
	CacheMiss(ctx context.Context, endpoint string)
	DedupJoin(ctx context.Context, endpoint string)
	CircuitTransition(endpoint string, state string)
}

// inflightCall is a shared future for one upstream request. The owner
// populates payload and err, then closes done; waiters block on done and
// read the shared outcome.
type inflightCall struct {
	done    chan struct{}
	payload []byte
	err     error
}

// Service wraps upstream calls with result caching, in-flight
// deduplication and per-endpoint circuit breaking.
type Service struct {
	cache     ResultCache
	logger    *zap.Logger
	metrics   MetricsRecorder
	threshold int
	cooldown  time.Duration
	clock     func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflightCall
	breakers map[string]*breaker

	hits   atomic.Int64
	misses atomic.Int64
	joins  atomic.Int64
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics attaches a metrics recorder
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source, used in tests
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService creates a resilience service over the given cache.
// failureThreshold consecutive failures open an endpoint's circuit for
// cooldown before a single probe is allowed through.
func NewService(cache ResultCache, failureThreshold int, cooldown time.Duration, opts ...ServiceOption) *Service {
	s := &Service{
		cache:     cache,
		logger:    zap.NewNop(),
		threshold: failureThreshold,
		cooldown:  cooldown,
		clock:     time.Now,
		inflight:  make(map[string]*inflightCall),
		breakers:  make(map[string]*breaker),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute returns the cached payload for key, or invokes fn to produce it.
// Concurrent calls for the same key share a single invocation. Only
// successful results are cached; failures propagate to every waiter and
// count against the endpoint's circuit.
//
// A fresh cache hit is served even when the endpoint's circuit is open,
// since it requires no upstream call.
func (s *Service) Execute(ctx context.Context, key Key, ttl time.Duration, fn Call) ([]byte, error) {
	if payload, ok, err := s.cache.Get(ctx, key.String()); err == nil && ok {
		s.hits.Add(1)
		s.recordHit(ctx, key.Endpoint())
		return payload, nil
	} else if err != nil {
		s.logger.Warn("result cache read failed", zap.String("key", key.String()), zap.Error(err))
	}

	br := s.breakerFor(key.Endpoint())
	if err := br.check(); err != nil {
		return nil, err
	}
	s.misses.Add(1)
	s.recordMiss(ctx, key.Endpoint())

	s.mu.Lock()
	if call, ok := s.inflight[key.String()]; ok {
		s.mu.Unlock()
		s.joins.Add(1)
		s.recordJoin(ctx, key.Endpoint())
		return s.await(ctx, call)
	}

	call := &inflightCall{done: make(chan struct{})}
	s.inflight[key.String()] = call
	s.mu.Unlock()

	// The first cache read and the table lookup are not atomic: a slow
	// read can report a miss after the owning call has already stored its
	// result and left the table. The owner writes the cache before it
	// removes its entry, so anything cached now is current: re-check
	// before going upstream.
	if payload, ok, err := s.cache.Get(ctx, key.String()); err == nil && ok {
		s.hits.Add(1)
		s.misses.Add(-1)
		s.finish(key, call, payload, nil)
		s.recordHit(ctx, key.Endpoint())
		return payload, nil
	} else if err != nil {
		s.logger.Warn("result cache read failed", zap.String("key", key.String()), zap.Error(err))
	}

	probe, err := br.begin()
	if err != nil {
		s.finish(key, call, nil, err)
		return nil, err
	}

	s.run(ctx, key, ttl, fn, call, br, probe)
	return s.await(ctx, call)
}

// finish publishes an outcome for a registered call that never went
// upstream and removes it from the table
func (s *Service) finish(key Key, call *inflightCall, payload []byte, err error) {
	call.payload = payload
	call.err = err
	close(call.done)

	s.mu.Lock()
	if s.inflight[key.String()] == call {
		delete(s.inflight, key.String())
	}
	s.mu.Unlock()
}

// run performs the owning invocation and publishes the outcome
func (s *Service) run(ctx context.Context, key Key, ttl time.Duration, fn Call, call *inflightCall, br *breaker, probe bool) {
	defer func() {
		close(call.done)
		s.mu.Lock()
		if s.inflight[key.String()] == call {
			delete(s.inflight, key.String())
		}
		s.mu.Unlock()
	}()

	result, err := fn(ctx)
	if err != nil {
		call.err = err
		// A canceled caller says nothing about upstream health. Probes
		// still report so the breaker releases its half-open claim.
		if probe || !errors.Is(err, context.Canceled) {
			br.onFailure(probe)
		}
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		call.err = fmt.Errorf("%w: encoding result: %v", shared.ErrInternal, err)
		br.onFailure(probe)
		return
	}

	call.payload = payload
	br.onSuccess(probe)

	if err := s.cache.Set(ctx, key.String(), payload, ttl); err != nil {
		s.logger.Warn("result cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// await blocks until the shared call completes or ctx is done. A waiter
// giving up does not cancel the underlying call.
func (s *Service) await(ctx context.Context, call *inflightCall) ([]byte, error) {
	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		return call.payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) breakerFor(endpoint string) *breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	br, ok := s.breakers[endpoint]
	if !ok {
		br = newBreaker(s.threshold, s.cooldown, s.clock, func(state CircuitState) {
			s.logger.Info("circuit state changed",
				zap.String("endpoint", endpoint),
				zap.String("state", string(state)),
			)
			if s.metrics != nil {
				s.metrics.CircuitTransition(endpoint, string(state))
			}
		})
		s.breakers[endpoint] = br
	}
	return br
}

// Stats is a point-in-time snapshot of the resilience layer
type Stats struct {
	Hits         int64                   `json:"hits"`
	Misses       int64                   `json:"misses"`
	Deduplicated int64                   `json:"deduplicated"`
	InFlight     int                     `json:"in_flight"`
	Circuits     map[string]CircuitState `json:"circuits"`
}

// Stats reports cache counters, in-flight calls and per-endpoint circuit
// states
func (s *Service) Stats() Stats {
	s.mu.Lock()
	circuits := make(map[string]CircuitState, len(s.breakers))
	for endpoint, br := range s.breakers {
		circuits[endpoint] = br.currentState()
	}
	inFlight := len(s.inflight)
	s.mu.Unlock()

	return Stats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		Deduplicated: s.joins.Load(),
		InFlight:     inFlight,
		Circuits:     circuits,
	}
}

// Clear drops all cached results, resets counters and closes every
// circuit. Calls already in flight keep running; their waiters still
// receive the outcome, but the results are no longer tracked.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.inflight = make(map[string]*inflightCall)
	s.breakers = make(map[string]*breaker)
	s.mu.Unlock()

	s.hits.Store(0)
	s.misses.Store(0)
	s.joins.Store(0)
	return nil
}

// Close releases the underlying cache
func (s *Service) Close() error {
	return s.cache.Close()
}

func (s *Service) recordHit(ctx context.Context, endpoint string) {
	if s.metrics != nil {
		s.metrics.CacheHit(ctx, endpoint)
	}
}

func (s *Service) recordMiss(ctx context.Context, endpoint string) {
	if s.metrics != nil {
		s.metrics.CacheMiss(ctx, endpoint)
	}
}

func (s *Service) recordJoin(ctx context.Context, endpoint string) {
	if s.metrics != nil {
		s.metrics.DedupJoin(ctx, endpoint)
	}
}
