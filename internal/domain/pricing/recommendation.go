package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	maxIncrease      = decimal.NewFromInt(2000)
	reductionCap     = decimal.NewFromFloat(0.15)
	increaseCap      = decimal.NewFromFloat(0.08)
	costFloorFactor  = decimal.NewFromFloat(1.10)
	quickSaleCost    = decimal.NewFromFloat(1.05)
	quickSalePrice   = decimal.NewFromFloat(0.90)
	premiumCompCap   = decimal.NewFromFloat(1.10)
	premiumPriceCap  = decimal.NewFromFloat(1.15)
	premiumNoMarket  = decimal.NewFromFloat(1.10)
)

// Recommendation is the suggested price action for a vehicle given its
// market position. All amounts are whole pounds.
type Recommendation struct {
	RecommendedPrice decimal.Decimal `json:"recommended_price"`
	QuickSalePrice   decimal.Decimal `json:"quick_sale_price"`
	PremiumPrice     decimal.Decimal `json:"premium_price"`
}

// Recommend derives price adjustments from the current price, the cost
// price, and the market rating.
//
// A HIGH-rated price is reduced by up to 15%, but never below 110% of
// cost. An EXCELLENT-rated price with a percentile under 15 has headroom
// and is increased by up to 8%, capped at 2000. avgCompetitorPrice is nil
// when no competitor data was available.
func Recommend(price, costPrice decimal.Decimal, rating Rating, percentile int, avgCompetitorPrice *decimal.Decimal) Recommendation {
	recommended := price

	switch {
	case rating == RatingHigh:
		headroom := price.Sub(costPrice.Mul(costFloorFactor))
		reduction := decimal.Min(price.Mul(reductionCap), headroom)
		if reduction.IsPositive() {
			recommended = price.Sub(reduction)
		}
	case rating == RatingExcellent && percentile < 15:
		increase := decimal.Min(price.Mul(increaseCap), maxIncrease)
		recommended = price.Add(increase)
	}

	premium := price.Mul(premiumNoMarket)
	if avgCompetitorPrice != nil {
		premium = decimal.Min(avgCompetitorPrice.Mul(premiumCompCap), price.Mul(premiumPriceCap))
	}

	return Recommendation{
		RecommendedPrice: recommended.Round(0),
		QuickSalePrice:   decimal.Max(costPrice.Mul(quickSaleCost), price.Mul(quickSalePrice)).Round(0),
		PremiumPrice:     premium.Round(0),
	}
}
