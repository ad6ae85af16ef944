package autotrader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/domain/shared"
)

type staticTokens struct{ token string }

func (s staticTokens) BearerToken(ctx context.Context) (string, error) {
	return s.token, nil
}

func (s staticTokens) Invalidate() {}

type recordingTokens struct {
	token       string
	invalidated atomic.Int32
}

func (r *recordingTokens) BearerToken(ctx context.Context) (string, error) {
	return r.token, nil
}

func (r *recordingTokens) Invalidate() {
	r.invalidated.Add(1)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:        server.URL,
		Key:            "test-key",
		Secret:         "test-secret",
		TimeoutSeconds: 2,
	})
	require.NoError(t, err)
	client.SetTokenProvider(staticTokens{token: "test-bearer"})
	return client, server
}

func TestClientAuthenticate(t *testing.T) {
	t.Run("exchanges credentials for a token", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/authenticate", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			_, _ = w.Write([]byte(`{"access_token":"abc123","expires_in":900}`))
		}))

		token, err := client.Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc123", token.Bearer)
		assert.True(t, token.Valid(time.Now(), time.Minute))
	})

	t.Run("empty token is an auth error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))

		_, err := client.Authenticate(context.Background())
		assert.ErrorIs(t, err, shared.ErrUpstreamAuth)
	})
}

func TestClientErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"401 maps to auth error", http.StatusUnauthorized, shared.ErrUpstreamAuth},
		{"404 maps to not found", http.StatusNotFound, shared.ErrUpstreamMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))

			_, err := client.Derivative(context.Background(), "deriv-1", "adv-1")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("a 401 drops the cached token", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		tokens := &recordingTokens{token: "stale-bearer"}
		client.SetTokenProvider(tokens)

		_, err := client.Derivative(context.Background(), "deriv-1", "adv-1")
		require.ErrorIs(t, err, shared.ErrUpstreamAuth)
		assert.Equal(t, int32(1), tokens.invalidated.Load())
	})

	t.Run("other status codes leave the token alone", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		tokens := &recordingTokens{token: "still-good"}
		client.SetTokenProvider(tokens)

		_, err := client.Derivative(context.Background(), "deriv-1", "adv-1")
		require.ErrorIs(t, err, shared.ErrUpstreamMissing)
		assert.Zero(t, tokens.invalidated.Load())
	})

	t.Run("other non-2xx carries status and body", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("backend unavailable"))
		}))

		_, err := client.Derivative(context.Background(), "deriv-1", "adv-1")
		var upstream *shared.UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusBadGateway, upstream.Status)
		assert.Equal(t, "backend unavailable", upstream.Body)
	})

	t.Run("deadline exceeded maps to timeout", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := client.Derivative(ctx, "deriv-1", "adv-1")
		assert.ErrorIs(t, err, shared.ErrUpstreamTimeout)
	})
}

func TestClientVehicleByRegistration(t *testing.T) {
	t.Run("parses a vehicle record", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/vehicles", r.URL.Path)
			require.Equal(t, "AB12CDE", r.URL.Query().Get("registration"))
			require.Equal(t, "Bearer test-bearer", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"vehicle":{
				"registration":"AB12CDE","make":"Ford","model":"Focus",
				"derivative":"1.0 EcoBoost Titanium","derivativeId":"deriv-9",
				"yearOfManufacture":2019,"firstRegistrationDate":"2019-03-15",
				"fuelType":"Petrol","bodyType":"Hatchback"}}`))
		}))

		record, err := client.VehicleByRegistration(context.Background(), "AB12CDE", 42000, "adv-1")
		require.NoError(t, err)
		assert.Equal(t, "Ford", record.Make)
		assert.Equal(t, "deriv-9", record.DerivativeID)
		assert.Equal(t, 2019, record.YearOfManufacture)
		require.NotNil(t, record.FirstRegistered)
		assert.Equal(t, 2019, record.FirstRegistered.Year())
	})

	t.Run("empty payload is a missing vehicle", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))

		_, err := client.VehicleByRegistration(context.Background(), "AB12CDE", 0, "adv-1")
		assert.ErrorIs(t, err, shared.ErrUpstreamMissing)
	})

	t.Run("registration is required", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		_, err := client.VehicleByRegistration(context.Background(), "", 0, "adv-1")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestClientValuation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/valuations", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"valuations":{
			"retail":{"amountGBP":15250},"trade":{"amountGBP":13100},
			"partExchange":{"amountGBP":12800},"private":{"amountGBP":14400}}}`))
	}))

	vals, err := client.Valuation(context.Background(), market.ValuationRequest{
		DerivativeID:      "deriv-9",
		FirstRegistration: time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC),
		Mileage:           42000,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15250).Equal(vals.Retail))
	assert.True(t, decimal.NewFromInt(13100).Equal(vals.Trade))
	assert.True(t, decimal.NewFromInt(12800).Equal(vals.PartExchange))
	assert.True(t, decimal.NewFromInt(14400).Equal(vals.Forecourt))
}

func TestClientCompetitors(t *testing.T) {
	var server *httptest.Server
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/listings/deriv-9", r.URL.Path)
		_, _ = w.Write([]byte(`{"results":[
			{"price":14800,"mileage":39000,"year":2019,"sellerName":"Car Co"},
			{"price":15900,"mileage":31000,"year":2020,"sellerName":"Motors Ltd"}]}`))
	}))

	listings, err := client.Competitors(context.Background(), server.URL+"/listings/deriv-9")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.True(t, decimal.NewFromInt(14800).Equal(listings[0].Price))
	assert.Equal(t, "Motors Ltd", listings[1].Seller)
}
