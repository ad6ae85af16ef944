package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/dealerdesk/backend/internal/domain/shared"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Breakdown is the cost/selling/profit split derived from a retail price
// and a target margin. All amounts are whole pounds.
type Breakdown struct {
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// ComputeBreakdown derives cost and selling prices from a retail price.
// marginPercent is a percentage in [0,100]; retailPrice must be positive.
// Rounding is half-away-from-zero to whole pounds, so
// SellingPrice - CostPrice == ProfitMargin holds exactly.
func ComputeBreakdown(retailPrice, marginPercent, additionalCosts decimal.Decimal) (Breakdown, error) {
	if !retailPrice.IsPositive() {
		return Breakdown{}, shared.ErrValidation
	}
	if marginPercent.IsNegative() || marginPercent.GreaterThan(hundred) {
		return Breakdown{}, shared.ErrValidation
	}

	marginFraction := marginPercent.Div(hundred)
	costPrice := retailPrice.Div(one.Add(marginFraction)).Add(additionalCosts).Round(0)
	sellingPrice := costPrice.Mul(one.Add(marginFraction)).Round(0)

	return Breakdown{
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		ProfitMargin: sellingPrice.Sub(costPrice),
	}, nil
}

// FinancialMetrics are the derived profitability figures shown alongside a
// retail check result.
type FinancialMetrics struct {
	ROIPercent    decimal.Decimal  `json:"roi_percent"`
	MarginPercent decimal.Decimal  `json:"margin_percent"`
	PricePerMile  *decimal.Decimal `json:"price_per_mile,omitempty"`
}

// ComputeFinancialMetrics derives ROI, actual margin and price-per-mile.
// PricePerMile is absent when mileage is zero rather than reported as zero.
func ComputeFinancialMetrics(price, cost, profit decimal.Decimal, mileage int) FinancialMetrics {
	m := FinancialMetrics{}
	if cost.IsPositive() {
		m.ROIPercent = profit.Div(cost).Mul(hundred).Round(0)
	}
	if price.IsPositive() {
		m.MarginPercent = profit.Div(price).Mul(hundred).Round(0)
	}
	if mileage > 0 {
		ppm := price.Div(decimal.NewFromInt(int64(mileage))).Round(2)
		m.PricePerMile = &ppm
	}
	return m
}
