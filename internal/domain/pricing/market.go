package pricing

import (
	"github.com/shopspring/decimal"
)

// Rating bands a market-position percentile. A low percentile means the
// vehicle is priced below most of the competing market.
type Rating string

const (
	RatingExcellent Rating = "EXCELLENT"
	RatingGood      Rating = "GOOD"
	RatingFair      Rating = "FAIR"
	RatingHigh      Rating = "HIGH"
)

// String returns the string representation of the rating
func (r Rating) String() string {
	return string(r)
}

// DemandLevel is a coarse indicator of how contested the local market is
type DemandLevel string

const (
	DemandHigh   DemandLevel = "High"
	DemandMedium DemandLevel = "Medium"
	DemandLow    DemandLevel = "Low"
)

// MarketPosition describes where a retail price sits in the competing market
type MarketPosition struct {
	Percentile      int         `json:"percentile"`
	Rating          Rating      `json:"rating"`
	Demand          DemandLevel `json:"demand"`
	CompetitorCount int         `json:"competitor_count"`
	DaysToSell      int         `json:"days_to_sell"`
}

// ComputePercentile returns the percentage of competitors priced below the
// retail price, rounded half away from zero. When no competitor prices are
// supplied the caller-provided fallback position is used verbatim.
// The result is clamped to [0,100].
func ComputePercentile(retailPrice decimal.Decimal, competitorPrices []decimal.Decimal, fallback int) int {
	if len(competitorPrices) == 0 {
		return clampPercentile(fallback)
	}
	below := 0
	for _, p := range competitorPrices {
		if p.LessThan(retailPrice) {
			below++
		}
	}
	pct := decimal.NewFromInt(int64(below)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(len(competitorPrices)))).
		Round(0)
	return clampPercentile(int(pct.IntPart()))
}

func clampPercentile(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// RateForPercentile maps a clamped percentile onto a rating band.
// Upper bounds are inclusive at each tier.
func RateForPercentile(percentile int) Rating {
	p := clampPercentile(percentile)
	switch {
	case p <= 25:
		return RatingExcellent
	case p <= 50:
		return RatingGood
	case p <= 75:
		return RatingFair
	default:
		return RatingHigh
	}
}

// daysToSellBase is the market-average estimate an adjustment starts from
const daysToSellBase = 45

// EstimateDaysToSell estimates days on the forecourt from the percentile
// band, floored for the two competitive bands, plus a surcharge of three
// days per year of age beyond three years.
func EstimateDaysToSell(percentile, vehicleAge int) int {
	days := daysToSellBase
	switch RateForPercentile(percentile) {
	case RatingExcellent:
		days -= 25
		if days < 15 {
			days = 15
		}
	case RatingGood:
		days -= 10
		if days < 20 {
			days = 20
		}
	case RatingFair:
		days += 15
	case RatingHigh:
		days += 35
	}
	if vehicleAge > 3 {
		days += (vehicleAge - 3) * 3
	}
	return days
}

// ComputeDemand grades market demand from competitor volume and price position
func ComputeDemand(competitorCount, percentile int) DemandLevel {
	if competitorCount > 15 && percentile <= 40 {
		return DemandHigh
	}
	if competitorCount < 5 || percentile > 80 {
		return DemandLow
	}
	return DemandMedium
}

// ComputeMarketPosition assembles the full market-position block for a
// retail price against an optional competitor price list.
func ComputeMarketPosition(retailPrice decimal.Decimal, competitorPrices []decimal.Decimal, fallbackPosition, vehicleAge int) MarketPosition {
	percentile := ComputePercentile(retailPrice, competitorPrices, fallbackPosition)
	return MarketPosition{
		Percentile:      percentile,
		Rating:          RateForPercentile(percentile),
		Demand:          ComputeDemand(len(competitorPrices), percentile),
		CompetitorCount: len(competitorPrices),
		DaysToSell:      EstimateDaysToSell(percentile, vehicleAge),
	}
}
