package retailcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/vehicle"
)

// Resolver normalizes the three request flows into a vehicle.Descriptor.
// Network-backed lookups go through whichever gateway the caller passes,
// so the resolver itself is agnostic to the optimized/legacy split.
type Resolver struct {
	stock  vehicle.StockRepository
	logger *zap.Logger
	clock  func() time.Time
}

// ResolverOption customizes a Resolver
type ResolverOption func(*Resolver)

// WithResolverLogger sets the resolver logger
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithResolverClock overrides the time source, used in tests
func WithResolverClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.clock = clock
	}
}

// NewResolver creates a resolver over the stock store
func NewResolver(stock vehicle.StockRepository, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stock:  stock,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve dispatches on the request flow and produces a normalized
// descriptor. Missing required fields yield shared.ErrValidation; a lookup
// with no match yields shared.ErrResolution.
func (r *Resolver) Resolve(ctx context.Context, req Request, gw market.Gateway, advertiserID string) (vehicle.Descriptor, error) {
	if err := req.Validate(); err != nil {
		return vehicle.Descriptor{}, err
	}

	switch req.Flow {
	case vehicle.FlowStock:
		return r.resolveStock(ctx, req, gw, advertiserID)
	case vehicle.FlowVehicleFinder:
		return r.resolveVehicleFinder(ctx, req, gw, advertiserID)
	default:
		return r.resolveTaxonomy(ctx, req, gw, advertiserID)
	}
}

// resolveStock reads the stock record and, when it carries a registration,
// enriches it upstream. Stock fields always win on conflict: the local
// system of record beats the external provider for identity fields.
func (r *Resolver) resolveStock(ctx context.Context, req Request, gw market.Gateway, advertiserID string) (vehicle.Descriptor, error) {
	record, err := r.stock.FindByID(ctx, req.StockID)
	if err != nil {
		return vehicle.Descriptor{}, err
	}

	desc := record.Descriptor()
	if desc.Registration == "" {
		return r.finalize(desc)
	}

	found, err := gw.VehicleByRegistration(ctx, desc.Registration, desc.Mileage, advertiserID)
	if err != nil {
		// enrichment only; the stock record alone is a valid answer
		r.logger.Warn("stock enrichment lookup failed",
			zap.String("registration", desc.Registration),
			zap.Error(err),
		)
		return r.finalize(desc)
	}

	if desc.Make == "" {
		desc.Make = found.Make
	}
	if desc.Model == "" {
		desc.Model = found.Model
	}
	if desc.Derivative == "" {
		desc.Derivative = found.Derivative
	}
	if desc.DerivativeID == "" {
		desc.DerivativeID = found.DerivativeID
	}
	if desc.FuelType == "" {
		desc.FuelType = found.FuelType
	}
	if desc.BodyType == "" {
		desc.BodyType = found.BodyType
	}
	if desc.Year == 0 {
		desc.Year = r.resolveYear(found)
	}
	if desc.FirstRegistration == nil {
		desc.FirstRegistration = found.FirstRegistered
	}
	return r.finalize(desc)
}

func (r *Resolver) resolveVehicleFinder(ctx context.Context, req Request, gw market.Gateway, advertiserID string) (vehicle.Descriptor, error) {
	found, err := gw.VehicleByRegistration(ctx, req.Registration, req.Mileage, advertiserID)
	if err != nil {
		if errors.Is(err, shared.ErrUpstreamMissing) {
			return vehicle.Descriptor{}, fmt.Errorf("%w: registration %s", shared.ErrResolution, req.Registration)
		}
		return vehicle.Descriptor{}, err
	}

	return r.finalize(vehicle.Descriptor{
		Registration:      found.Registration,
		Make:              found.Make,
		Model:             found.Model,
		Derivative:        found.Derivative,
		DerivativeID:      found.DerivativeID,
		Year:              r.resolveYear(found),
		Mileage:           req.Mileage,
		FuelType:          found.FuelType,
		BodyType:          found.BodyType,
		FirstRegistration: found.FirstRegistered,
	})
}

func (r *Resolver) resolveTaxonomy(ctx context.Context, req Request, gw market.Gateway, advertiserID string) (vehicle.Descriptor, error) {
	derivative, err := gw.Derivative(ctx, req.DerivativeID, advertiserID)
	if err != nil {
		if errors.Is(err, shared.ErrUpstreamMissing) {
			return vehicle.Descriptor{}, fmt.Errorf("%w: derivative %s", shared.ErrResolution, req.DerivativeID)
		}
		return vehicle.Descriptor{}, err
	}

	firstReg := derivative.Introduced
	if firstReg == nil {
		// no introduced date; assume a two-year-old vehicle so the
		// valuation has a plausible age baseline
		fallback := time.Date(r.clock().Year()-2, time.January, 1, 0, 0, 0, 0, time.UTC)
		firstReg = &fallback
	}

	return r.finalize(vehicle.Descriptor{
		Make:              derivative.Make,
		Model:             derivative.Model,
		Derivative:        derivative.Name,
		DerivativeID:      derivative.ID,
		Year:              firstReg.Year(),
		Mileage:           req.Mileage,
		FuelType:          derivative.FuelType,
		BodyType:          derivative.BodyType,
		FirstRegistration: firstReg,
	})
}

// resolveYear picks the vehicle year from the strongest available signal:
// year of manufacture, then first-registration date, then the current
// year. The order matters because upstream records omit the stronger
// fields unevenly.
func (r *Resolver) resolveYear(found *market.VehicleRecord) int {
	if found.YearOfManufacture > 0 {
		return found.YearOfManufacture
	}
	if found.FirstRegistered != nil {
		return found.FirstRegistered.Year()
	}
	return r.clock().Year()
}

func (r *Resolver) finalize(desc vehicle.Descriptor) (vehicle.Descriptor, error) {
	if desc.DerivativeID == "" {
		return vehicle.Descriptor{}, fmt.Errorf("%w: vehicle has no derivative identifier", shared.ErrResolution)
	}
	return desc, nil
}
