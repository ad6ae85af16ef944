package resilience

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
)

type stubGateway struct {
	market.Gateway

	valuationCalls atomic.Int32
	valuation      *market.Valuations
	valuationErr   error

	vehicleCalls atomic.Int32
	vehicle      *market.VehicleRecord
}

func (s *stubGateway) Valuation(ctx context.Context, req market.ValuationRequest) (*market.Valuations, error) {
	s.valuationCalls.Add(1)
	if s.valuationErr != nil {
		return nil, s.valuationErr
	}
	return s.valuation, nil
}

func (s *stubGateway) VehicleByRegistration(ctx context.Context, registration string, mileage int, advertiserID string) (*market.VehicleRecord, error) {
	s.vehicleCalls.Add(1)
	return s.vehicle, nil
}

func testTTLPolicy() config.TTLPolicy {
	return config.TTLPolicy{
		VehicleLookup:     time.Hour,
		Taxonomy:          24 * time.Hour,
		Valuations:        15 * time.Minute,
		VehicleMetrics:    15 * time.Minute,
		VehicleCheck:      6 * time.Hour,
		Competitors:       10 * time.Minute,
		TrendedValuations: time.Hour,
	}
}

func newTestCachedGateway(t *testing.T, next market.Gateway) *CachedGateway {
	t.Helper()
	clock := newFakeClock()
	cache := NewMemoryCache(0, WithMemoryCacheClock(clock.Now))
	svc := NewService(cache, 5, 30*time.Second, WithClock(clock.Now))
	t.Cleanup(func() { _ = svc.Close() })
	return NewCachedGateway(next, svc, testTTLPolicy())
}

func TestCachedGateway(t *testing.T) {
	firstReg := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("valuation round-trips through the cache", func(t *testing.T) {
		stub := &stubGateway{
			valuation: &market.Valuations{
				Retail:       decimal.NewFromInt(12500),
				Trade:        decimal.NewFromInt(10800),
				PartExchange: decimal.NewFromInt(10200),
				Forecourt:    decimal.NewFromInt(12900),
			},
		}
		gw := newTestCachedGateway(t, stub)

		req := market.ValuationRequest{
			DerivativeID:      "deriv-1",
			FirstRegistration: firstReg,
			Mileage:           33500,
			AdvertiserID:      "adv-1",
		}

		first, err := gw.Valuation(context.Background(), req)
		require.NoError(t, err)
		second, err := gw.Valuation(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, int32(1), stub.valuationCalls.Load())
		assert.True(t, first.Retail.Equal(second.Retail))
		assert.True(t, second.Forecourt.Equal(decimal.NewFromInt(12900)))
	})

	t.Run("nearby mileages share a cache entry", func(t *testing.T) {
		stub := &stubGateway{
			valuation: &market.Valuations{Retail: decimal.NewFromInt(9000)},
		}
		gw := newTestCachedGateway(t, stub)

		base := market.ValuationRequest{
			DerivativeID:      "deriv-1",
			FirstRegistration: firstReg,
			AdvertiserID:      "adv-1",
		}

		a := base
		a.Mileage = 33400
		b := base
		b.Mileage = 33600

		_, err := gw.Valuation(context.Background(), a)
		require.NoError(t, err)
		_, err = gw.Valuation(context.Background(), b)
		require.NoError(t, err)

		assert.Equal(t, int32(1), stub.valuationCalls.Load())
	})

	t.Run("errors pass through unwrapped", func(t *testing.T) {
		stub := &stubGateway{valuationErr: shared.ErrUpstreamMissing}
		gw := newTestCachedGateway(t, stub)

		_, err := gw.Valuation(context.Background(), market.ValuationRequest{
			DerivativeID:      "deriv-1",
			FirstRegistration: firstReg,
			AdvertiserID:      "adv-1",
		})
		assert.ErrorIs(t, err, shared.ErrUpstreamMissing)
	})

	t.Run("vehicle lookup is cached per registration", func(t *testing.T) {
		stub := &stubGateway{
			vehicle: &market.VehicleRecord{
				Registration: "AB12CDE",
				Make:         "Volkswagen",
				Model:        "Golf",
				DerivativeID: "deriv-1",
			},
		}
		gw := newTestCachedGateway(t, stub)

		first, err := gw.VehicleByRegistration(context.Background(), "AB12CDE", 30000, "adv-1")
		require.NoError(t, err)
		second, err := gw.VehicleByRegistration(context.Background(), "AB12CDE", 30000, "adv-1")
		require.NoError(t, err)

		assert.Equal(t, int32(1), stub.vehicleCalls.Load())
		assert.Equal(t, first.DerivativeID, second.DerivativeID)

		_, err = gw.VehicleByRegistration(context.Background(), "XY99ZZZ", 30000, "adv-1")
		require.NoError(t, err)
		assert.Equal(t, int32(2), stub.vehicleCalls.Load())
	})
}
