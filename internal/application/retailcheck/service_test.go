package retailcheck

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/domain/pricing"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/vehicle"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/resilience"
)

func baseFinderRequest() Request {
	return Request{
		Flow:            vehicle.FlowVehicleFinder,
		Registration:    "AB12CDE",
		Mileage:         24000,
		MarginPercent:   decimal.NewFromInt(20),
		AdditionalCosts: decimal.NewFromInt(300),
	}
}

func happyGateway() *fakeGateway {
	firstReg := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
	return &fakeGateway{
		vehicle: &market.VehicleRecord{
			Registration:      "AB12CDE",
			Make:              "Volkswagen",
			Model:             "Golf",
			Derivative:        "1.5 TSI Life",
			DerivativeID:      "deriv-1",
			YearOfManufacture: 2021,
			FirstRegistered:   &firstReg,
		},
		valuations: &market.Valuations{
			Retail:       decimal.NewFromInt(10000),
			Trade:        decimal.NewFromInt(8600),
			PartExchange: decimal.NewFromInt(8200),
			Forecourt:    decimal.NewFromInt(10400),
		},
		metrics: &market.Metrics{PricePosition: 50},
		checkReport: &market.CheckReport{
			Registration:   "AB12CDE",
			PreviousOwners: 2,
		},
	}
}

func newTestService(gw market.Gateway) *Service {
	resolver := NewResolver(&fakeStockRepo{}, WithResolverClock(fixedClock(testNow)))
	return NewService(resolver, gw, gw, "adv-1", WithServiceClock(fixedClock(testNow)))
}

func TestServiceRun(t *testing.T) {
	t.Run("computes the full analytics block", func(t *testing.T) {
		gw := happyGateway()
		svc := newTestService(gw)

		result, err := svc.Run(context.Background(), baseFinderRequest())
		require.NoError(t, err)

		// cost = round(10000/1.2 + 300) = 8633, selling = round(8633*1.2) = 10360
		assert.True(t, result.Analytics.Breakdown.CostPrice.Equal(decimal.NewFromInt(8633)))
		assert.True(t, result.Analytics.Breakdown.SellingPrice.Equal(decimal.NewFromInt(10360)))
		assert.True(t, result.Analytics.Breakdown.ProfitMargin.Equal(decimal.NewFromInt(1727)))

		// no competitor data: provider position used verbatim
		assert.Equal(t, 50, result.Analytics.Position.Percentile)
		assert.Equal(t, pricing.RatingGood, result.Analytics.Position.Rating)
		assert.Equal(t, pricing.DemandLow, result.Analytics.Position.Demand)
		// GOOD band 45-10=35, plus one year over three at 3 days
		assert.Equal(t, 38, result.Analytics.Position.DaysToSell)

		assert.Equal(t, "Volkswagen", result.Vehicle.Make)
		assert.True(t, result.Valuations.Retail.Equal(decimal.NewFromInt(10000)))
		assert.Nil(t, result.Check)
		assert.Nil(t, result.Competitors)
		assert.False(t, result.Optimized)
		assert.Equal(t, testNow.UTC(), result.GeneratedAt)
	})

	t.Run("computes percentile from competitor listings", func(t *testing.T) {
		gw := happyGateway()
		gw.metrics = &market.Metrics{PricePosition: 99, ListingsURL: "https://provider/listings/1"}
		gw.listings = []market.Listing{
			{Price: decimal.NewFromInt(9500)},
			{Price: decimal.NewFromInt(9800)},
			{Price: decimal.NewFromInt(10500)},
		}
		svc := newTestService(gw)

		result, err := svc.Run(context.Background(), baseFinderRequest())
		require.NoError(t, err)

		// 2 of 3 below 10000, provider position ignored
		assert.Equal(t, 67, result.Analytics.Position.Percentile)
		assert.Equal(t, 3, result.Analytics.Position.CompetitorCount)
		assert.Len(t, result.Competitors, 3)
	})

	t.Run("includes the vehicle check when asked", func(t *testing.T) {
		gw := happyGateway()
		svc := newTestService(gw)

		req := baseFinderRequest()
		req.IncludeCheck = true

		result, err := svc.Run(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, result.Check)
		assert.Equal(t, 2, result.Check.PreviousOwners)
		assert.True(t, result.Check.Clean())
	})

	t.Run("check failure degrades instead of failing", func(t *testing.T) {
		gw := happyGateway()
		gw.checkErr = shared.ErrUpstreamTimeout
		svc := newTestService(gw)

		req := baseFinderRequest()
		req.IncludeCheck = true

		result, err := svc.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, result.Check)
	})

	t.Run("trended failure degrades instead of failing", func(t *testing.T) {
		gw := happyGateway()
		gw.trendedErr = shared.ErrUpstreamTimeout
		svc := newTestService(gw)

		req := baseFinderRequest()
		req.IncludeTrended = true

		result, err := svc.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, result.Trended)
	})

	t.Run("competitor failure degrades instead of failing", func(t *testing.T) {
		gw := happyGateway()
		gw.metrics = &market.Metrics{PricePosition: 50, ListingsURL: "https://provider/listings/1"}
		gw.listingsErr = shared.ErrUpstreamTimeout
		svc := newTestService(gw)

		result, err := svc.Run(context.Background(), baseFinderRequest())
		require.NoError(t, err)
		assert.Nil(t, result.Competitors)
		assert.Equal(t, 50, result.Analytics.Position.Percentile)
	})

	t.Run("valuation failure fails the request", func(t *testing.T) {
		gw := happyGateway()
		gw.valuationErr = shared.ErrUpstreamTimeout
		svc := newTestService(gw)

		_, err := svc.Run(context.Background(), baseFinderRequest())
		assert.ErrorIs(t, err, shared.ErrUpstreamTimeout)
	})

	t.Run("metrics failure fails the request", func(t *testing.T) {
		gw := happyGateway()
		gw.metricsErr = shared.ErrUpstreamAuth
		svc := newTestService(gw)

		_, err := svc.Run(context.Background(), baseFinderRequest())
		assert.ErrorIs(t, err, shared.ErrUpstreamAuth)
	})

	t.Run("applies the default margin when none given", func(t *testing.T) {
		gw := happyGateway()
		svc := newTestService(gw)

		req := baseFinderRequest()
		req.MarginPercent = decimal.Zero
		req.AdditionalCosts = decimal.Zero

		result, err := svc.Run(context.Background(), req)
		require.NoError(t, err)
		// round(10000/1.2) = 8333 at the 20% house margin
		assert.True(t, result.Analytics.Breakdown.CostPrice.Equal(decimal.NewFromInt(8333)))
	})
}

func TestServiceOptimizedFlow(t *testing.T) {
	gw := happyGateway()

	cache := resilience.NewMemoryCache(0)
	resSvc := resilience.NewService(cache, 5, 30*time.Second)
	defer resSvc.Close()
	cached := resilience.NewCachedGateway(gw, resSvc, config.TTLPolicy{
		VehicleLookup:     time.Hour,
		Taxonomy:          24 * time.Hour,
		Valuations:        15 * time.Minute,
		VehicleMetrics:    15 * time.Minute,
		VehicleCheck:      6 * time.Hour,
		Competitors:       10 * time.Minute,
		TrendedValuations: time.Hour,
	})

	resolver := NewResolver(&fakeStockRepo{}, WithResolverClock(fixedClock(testNow)))
	svc := NewService(resolver, cached, gw, "adv-1", WithServiceClock(fixedClock(testNow)))

	legacyReq := baseFinderRequest()
	optimizedReq := baseFinderRequest()
	optimizedReq.Optimized = true

	legacy, err := svc.Run(context.Background(), legacyReq)
	require.NoError(t, err)
	optimized, err := svc.Run(context.Background(), optimizedReq)
	require.NoError(t, err)

	// identical business output on both paths
	assert.Equal(t, legacy.Vehicle, optimized.Vehicle)
	assert.True(t, legacy.Valuations.Retail.Equal(optimized.Valuations.Retail))
	assert.True(t, legacy.Analytics.Breakdown.CostPrice.Equal(optimized.Analytics.Breakdown.CostPrice))
	assert.True(t, legacy.Analytics.Recommendation.RecommendedPrice.Equal(optimized.Analytics.Recommendation.RecommendedPrice))
	assert.Equal(t, legacy.Analytics.Position, optimized.Analytics.Position)
	assert.False(t, legacy.Optimized)
	assert.True(t, optimized.Optimized)

	// a repeat optimized run is served from cache
	callsBefore := gw.valCalls.Load()
	_, err = svc.Run(context.Background(), optimizedReq)
	require.NoError(t, err)
	assert.Equal(t, callsBefore, gw.valCalls.Load())
}
