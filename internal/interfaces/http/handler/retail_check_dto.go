package handler

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerdesk/backend/internal/application/retailcheck"
	"github.com/dealerdesk/backend/internal/domain/vehicle"
	"github.com/dealerdesk/backend/internal/infrastructure/resilience"
)

// RetailCheckRequest is the API request body for a retail check. The flow
// decides which identity fields must be present; the application layer
// enforces that.
type RetailCheckRequest struct {
	Flow         string `json:"flow" binding:"required,checkflow"`
	StockID      string `json:"stock_id"`
	Registration string `json:"registration"`
	Mileage      int    `json:"mileage"`
	DerivativeID string `json:"derivative_id"`

	MarginPercentage decimal.Decimal `json:"margin_percentage"`
	AdditionalCosts  decimal.Decimal `json:"additional_costs"`

	Check                    bool `json:"check"`
	IncludeTrendedValuations bool `json:"include_trended_valuations"`
	UseOptimizedFlow         bool `json:"use_optimized_flow"`
}

// toApplication converts the API request into the application request
func (r *RetailCheckRequest) toApplication() (retailcheck.Request, error) {
	req := retailcheck.Request{
		Flow:            vehicle.Flow(r.Flow),
		Registration:    r.Registration,
		Mileage:         r.Mileage,
		DerivativeID:    r.DerivativeID,
		MarginPercent:   r.MarginPercentage,
		AdditionalCosts: r.AdditionalCosts,
		IncludeCheck:    r.Check,
		IncludeTrended:  r.IncludeTrendedValuations,
		Optimized:       r.UseOptimizedFlow,
	}

	if r.StockID != "" {
		id, err := uuid.Parse(r.StockID)
		if err != nil {
			return retailcheck.Request{}, fmt.Errorf("invalid stock_id: %w", err)
		}
		req.StockID = id
	}

	return req, nil
}

// RetailCheckResponse is the API response body for a retail check.
// CacheStats is populated only when the optimized flow served the request.
type RetailCheckResponse struct {
	retailcheck.Result
	CacheStats *resilience.Stats `json:"cache_stats,omitempty"`
}
