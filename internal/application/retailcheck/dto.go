// Package retailcheck orchestrates vehicle resolution, market data fetches
// and pricing analytics into a single retail check result.
package retailcheck

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/domain/pricing"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/vehicle"
)

// Request describes one retail check. The flow decides which identity
// fields are required: StockID for the stock flow, Registration+Mileage
// for vehicle-finder, DerivativeID+Mileage for taxonomy.
type Request struct {
	Flow vehicle.Flow

	StockID      uuid.UUID
	Registration string
	Mileage      int
	DerivativeID string

	// Margin and additional costs feed the pricing breakdown. Zero margin
	// means "use the house default".
	MarginPercent   decimal.Decimal
	AdditionalCosts decimal.Decimal

	IncludeCheck   bool
	IncludeTrended bool
	Optimized      bool
}

// Validate checks the flow-specific required fields
func (r *Request) Validate() error {
	if !r.Flow.Valid() {
		return shared.ErrValidation
	}
	switch r.Flow {
	case vehicle.FlowStock:
		if r.StockID == uuid.Nil {
			return shared.ErrValidation
		}
	case vehicle.FlowVehicleFinder:
		if r.Registration == "" || r.Mileage <= 0 {
			return shared.ErrValidation
		}
	case vehicle.FlowTaxonomy:
		if r.DerivativeID == "" || r.Mileage <= 0 {
			return shared.ErrValidation
		}
	}
	if r.MarginPercent.IsNegative() || r.MarginPercent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.ErrValidation
	}
	return nil
}

// Analytics is the computed pricing block of a retail check
type Analytics struct {
	Breakdown      pricing.Breakdown        `json:"breakdown"`
	Position       pricing.MarketPosition   `json:"market_position"`
	Recommendation pricing.Recommendation   `json:"recommendation"`
	Financials     pricing.FinancialMetrics `json:"financials"`
}

// Result is the aggregate retail check output. Optional enrichments are
// nil when unavailable so consumers can tell "no data" from zero values.
type Result struct {
	Vehicle     vehicle.Descriptor        `json:"vehicle"`
	Valuations  market.Valuations         `json:"valuations"`
	Check       *market.CheckReport       `json:"check,omitempty"`
	Competitors []market.Listing          `json:"competitors,omitempty"`
	Trended     []market.TrendedValuation `json:"trended_valuations,omitempty"`
	Analytics   Analytics                 `json:"analytics"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Optimized   bool                      `json:"optimized"`
}
