package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecommend(t *testing.T) {
	t.Run("reduces a high-rated price", func(t *testing.T) {
		// 15% of 12000 = 1800; headroom above 110% cost = 12000 - 8800 = 3200
		r := Recommend(decimal.NewFromInt(12000), decimal.NewFromInt(8000), RatingHigh, 90, nil)
		assert.True(t, decimal.NewFromInt(10200).Equal(r.RecommendedPrice), "recommended: %s", r.RecommendedPrice)
	})

	t.Run("never reduces below 110 percent of cost", func(t *testing.T) {
		// headroom = 9000 - 8800 = 200, smaller than the 15% cap
		r := Recommend(decimal.NewFromInt(9000), decimal.NewFromInt(8000), RatingHigh, 90, nil)
		assert.True(t, decimal.NewFromInt(8800).Equal(r.RecommendedPrice), "recommended: %s", r.RecommendedPrice)
	})

	t.Run("leaves price alone when already below the cost floor", func(t *testing.T) {
		r := Recommend(decimal.NewFromInt(8500), decimal.NewFromInt(8000), RatingHigh, 90, nil)
		assert.True(t, decimal.NewFromInt(8500).Equal(r.RecommendedPrice))
	})

	t.Run("increases an excellent price with headroom", func(t *testing.T) {
		// 8% of 10000 = 800, under the 2000 cap
		r := Recommend(decimal.NewFromInt(10000), decimal.NewFromInt(8000), RatingExcellent, 10, nil)
		assert.True(t, decimal.NewFromInt(10800).Equal(r.RecommendedPrice), "recommended: %s", r.RecommendedPrice)
	})

	t.Run("caps the increase at 2000", func(t *testing.T) {
		// 8% of 40000 = 3200, capped
		r := Recommend(decimal.NewFromInt(40000), decimal.NewFromInt(30000), RatingExcellent, 5, nil)
		assert.True(t, decimal.NewFromInt(42000).Equal(r.RecommendedPrice), "recommended: %s", r.RecommendedPrice)
	})

	t.Run("excellent rating without low percentile keeps the price", func(t *testing.T) {
		r := Recommend(decimal.NewFromInt(10000), decimal.NewFromInt(8000), RatingExcellent, 20, nil)
		assert.True(t, decimal.NewFromInt(10000).Equal(r.RecommendedPrice))
	})

	t.Run("quick sale never dips below 105 percent of cost", func(t *testing.T) {
		// price*0.9 = 8100 < cost*1.05 = 8400
		r := Recommend(decimal.NewFromInt(9000), decimal.NewFromInt(8000), RatingGood, 40, nil)
		assert.True(t, decimal.NewFromInt(8400).Equal(r.QuickSalePrice), "quick sale: %s", r.QuickSalePrice)

		// price*0.9 = 13500 > cost*1.05 = 8400
		r = Recommend(decimal.NewFromInt(15000), decimal.NewFromInt(8000), RatingGood, 40, nil)
		assert.True(t, decimal.NewFromInt(13500).Equal(r.QuickSalePrice), "quick sale: %s", r.QuickSalePrice)
	})

	t.Run("premium price follows the competitor average when present", func(t *testing.T) {
		avg := decimal.NewFromInt(10500)
		// min(10500*1.10, 10000*1.15) = min(11550, 11500) = 11500
		r := Recommend(decimal.NewFromInt(10000), decimal.NewFromInt(8000), RatingGood, 40, &avg)
		assert.True(t, decimal.NewFromInt(11500).Equal(r.PremiumPrice), "premium: %s", r.PremiumPrice)
	})

	t.Run("premium price defaults to ten percent uplift", func(t *testing.T) {
		r := Recommend(decimal.NewFromInt(10000), decimal.NewFromInt(8000), RatingGood, 40, nil)
		assert.True(t, decimal.NewFromInt(11000).Equal(r.PremiumPrice), "premium: %s", r.PremiumPrice)
	})
}
