package market

import "context"

// Gateway is the client contract for the vehicle-data provider. Each
// operation maps to exactly one upstream HTTP call with no retry or
// caching of its own; resilience concerns sit in a wrapping layer.
// All operations are safe for concurrent use and safe for the caller to
// retry.
type Gateway interface {
	// VehicleByRegistration looks a vehicle up by its registration plate.
	// Returns shared.ErrUpstreamMissing when the provider has no record.
	VehicleByRegistration(ctx context.Context, registration string, mileage int, advertiserID string) (*VehicleRecord, error)

	// Derivative fetches a taxonomy derivative by ID
	Derivative(ctx context.Context, derivativeID, advertiserID string) (*Derivative, error)

	// Valuation fetches the provider's current price estimates
	Valuation(ctx context.Context, req ValuationRequest) (*Valuations, error)

	// VehicleMetrics fetches the provider's market snapshot
	VehicleMetrics(ctx context.Context, req ValuationRequest) (*Metrics, error)

	// VehicleCheck fetches the history check for a registration
	VehicleCheck(ctx context.Context, registration, advertiserID string) (*CheckReport, error)

	// Competitors fetches the listings behind a Metrics.ListingsURL
	Competitors(ctx context.Context, url string) ([]Listing, error)

	// TrendedValuations fetches the valuation time series
	TrendedValuations(ctx context.Context, req ValuationRequest) ([]TrendedValuation, error)
}
