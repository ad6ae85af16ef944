package resilience

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
)

// CachedGateway decorates a market.Gateway with caching, in-flight
// deduplication and circuit breaking. TTLs come from configuration and
// differ per operation: taxonomy barely changes, competitor listings churn
// constantly.
type CachedGateway struct {
	next market.Gateway
	svc  *Service
	ttl  config.TTLPolicy
}

// NewCachedGateway wraps next with the resilience service
func NewCachedGateway(next market.Gateway, svc *Service, ttl config.TTLPolicy) *CachedGateway {
	return &CachedGateway{next: next, svc: svc, ttl: ttl}
}

// Service exposes the underlying resilience service for stats and admin
// operations
func (g *CachedGateway) Service() *Service {
	return g.svc
}

// fetch runs fn through the resilience service and decodes the shared
// payload into a fresh T
func fetch[T any](ctx context.Context, svc *Service, key Key, ttl time.Duration, fn Call) (*T, error) {
	payload, err := svc.Execute(ctx, key, ttl, fn)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decoding cached result for %s: %w", key.String(), err)
	}
	return &out, nil
}

// VehicleByRegistration implements market.Gateway
func (g *CachedGateway) VehicleByRegistration(ctx context.Context, registration string, mileage int, advertiserID string) (*market.VehicleRecord, error) {
	key := NewKey(EndpointVehicles, map[string]string{
		"registration": registration,
		"mileage":      strconv.Itoa(RoundMileage(mileage)),
		"advertiser":   advertiserID,
	})
	return fetch[market.VehicleRecord](ctx, g.svc, key, g.ttl.VehicleLookup, func(ctx context.Context) (any, error) {
		return g.next.VehicleByRegistration(ctx, registration, mileage, advertiserID)
	})
}

// Derivative implements market.Gateway
func (g *CachedGateway) Derivative(ctx context.Context, derivativeID, advertiserID string) (*market.Derivative, error) {
	key := NewKey(EndpointTaxonomy, map[string]string{
		"derivative": derivativeID,
		"advertiser": advertiserID,
	})
	return fetch[market.Derivative](ctx, g.svc, key, g.ttl.Taxonomy, func(ctx context.Context) (any, error) {
		return g.next.Derivative(ctx, derivativeID, advertiserID)
	})
}

// Valuation implements market.Gateway
func (g *CachedGateway) Valuation(ctx context.Context, req market.ValuationRequest) (*market.Valuations, error) {
	key := valuationKey(EndpointValuations, req)
	return fetch[market.Valuations](ctx, g.svc, key, g.ttl.Valuations, func(ctx context.Context) (any, error) {
		return g.next.Valuation(ctx, req)
	})
}

// VehicleMetrics implements market.Gateway
func (g *CachedGateway) VehicleMetrics(ctx context.Context, req market.ValuationRequest) (*market.Metrics, error) {
	key := valuationKey(EndpointMetrics, req)
	return fetch[market.Metrics](ctx, g.svc, key, g.ttl.VehicleMetrics, func(ctx context.Context) (any, error) {
		return g.next.VehicleMetrics(ctx, req)
	})
}

// VehicleCheck implements market.Gateway
func (g *CachedGateway) VehicleCheck(ctx context.Context, registration, advertiserID string) (*market.CheckReport, error) {
	key := NewKey(EndpointCheck, map[string]string{
		"registration": registration,
		"advertiser":   advertiserID,
	})
	return fetch[market.CheckReport](ctx, g.svc, key, g.ttl.VehicleCheck, func(ctx context.Context) (any, error) {
		return g.next.VehicleCheck(ctx, registration, advertiserID)
	})
}

// Competitors implements market.Gateway
func (g *CachedGateway) Competitors(ctx context.Context, url string) ([]market.Listing, error) {
	key := NewKey(EndpointListings, map[string]string{
		"url": url,
	})
	listings, err := fetch[[]market.Listing](ctx, g.svc, key, g.ttl.Competitors, func(ctx context.Context) (any, error) {
		return g.next.Competitors(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return *listings, nil
}

// TrendedValuations implements market.Gateway
func (g *CachedGateway) TrendedValuations(ctx context.Context, req market.ValuationRequest) ([]market.TrendedValuation, error) {
	key := valuationKey(EndpointTrends, req)
	points, err := fetch[[]market.TrendedValuation](ctx, g.svc, key, g.ttl.TrendedValuations, func(ctx context.Context) (any, error) {
		return g.next.TrendedValuations(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return *points, nil
}

func valuationKey(endpoint string, req market.ValuationRequest) Key {
	return NewKey(endpoint, map[string]string{
		"derivative": req.DerivativeID,
		"first_reg":  req.FirstRegistration.Format("2006-01-02"),
		"mileage":    strconv.Itoa(RoundMileage(req.Mileage)),
		"advertiser": req.AdvertiserID,
	})
}

var _ market.Gateway = (*CachedGateway)(nil)
