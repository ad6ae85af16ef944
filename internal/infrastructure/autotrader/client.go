package autotrader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/domain/shared"
)

// maxResponseSize is the maximum allowed response size from the provider (10MB)
const maxResponseSize = 10 * 1024 * 1024

// wireDateLayout is the provider's date-only format
const wireDateLayout = "2006-01-02"

// TokenProvider supplies a current bearer token for authenticated calls.
// The identity layer implements this over Authenticate with expiry caching.
// Invalidate drops the cached token after the provider rejects it, so the
// next call re-authenticates instead of replaying a dead credential.
type TokenProvider interface {
	BearerToken(ctx context.Context) (string, error)
	Invalidate()
}

// Client is the HTTP client for the vehicle-data provider. It performs
// exactly one upstream call per operation and maps provider failures onto
// the shared error taxonomy. It holds no cache and never retries.
type Client struct {
	config     *Config
	httpClient *http.Client

	mu     sync.RWMutex
	tokens TokenProvider
}

// NewClient creates a provider client with the given configuration
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout(),
		},
	}, nil
}

// SetTokenProvider wires the auth collaborator. Must be called before any
// operation other than Authenticate.
func (c *Client) SetTokenProvider(tokens TokenProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}

func (c *Client) invalidateTokens() {
	c.mu.RLock()
	tokens := c.tokens
	c.mu.RUnlock()
	if tokens != nil {
		tokens.Invalidate()
	}
}

func (c *Client) tokenProvider() (TokenProvider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return nil, fmt.Errorf("autotrader: no token provider configured: %w", shared.ErrUpstreamAuth)
	}
	return c.tokens, nil
}

// Authenticate exchanges the configured key/secret for a bearer token.
// It is the one unauthenticated operation.
func (c *Client) Authenticate(ctx context.Context) (Token, error) {
	form := url.Values{}
	form.Set("key", c.config.Key)
	form.Set("secret", c.config.Secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/authenticate", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("autotrader: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.send(req)
	if err != nil {
		return Token{}, err
	}

	var resp authenticateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Token{}, fmt.Errorf("autotrader: failed to parse authenticate response: %w", err)
	}
	if resp.AccessToken == "" {
		return Token{}, shared.ErrUpstreamAuth
	}

	return Token{
		Bearer:  resp.AccessToken,
		Expires: time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// doGet performs an authenticated GET against a provider path
func (c *Client) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.doGetAbsolute(ctx, u)
}

// doGetAbsolute performs an authenticated GET against a full URL. Used for
// provider-issued links such as competitor listing pages.
func (c *Client) doGetAbsolute(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("autotrader: failed to create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}
	return c.send(req)
}

// doPost performs an authenticated JSON POST against a provider path
func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("autotrader: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("autotrader: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}
	return c.send(req)
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	tokens, err := c.tokenProvider()
	if err != nil {
		return err
	}
	bearer, err := tokens.BearerToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return nil
}

// send executes the request and maps failures onto the shared taxonomy:
// deadline exceeded -> ErrUpstreamTimeout, 401 -> ErrUpstreamAuth,
// 404 -> ErrUpstreamMissing, other non-2xx -> UpstreamError.
func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("autotrader: %v: %w", err, shared.ErrUpstreamTimeout)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, fmt.Errorf("autotrader: %v: %w", err, shared.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("autotrader: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("autotrader: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateTokens()
		return nil, fmt.Errorf("autotrader: %w", shared.ErrUpstreamAuth)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("autotrader: %w", shared.ErrUpstreamMissing)
	default:
		return nil, shared.NewUpstreamError(resp.StatusCode, string(body))
	}
}

// VehicleByRegistration looks a vehicle up by registration plate
func (c *Client) VehicleByRegistration(ctx context.Context, registration string, mileage int, advertiserID string) (*market.VehicleRecord, error) {
	if registration == "" {
		return nil, shared.ErrValidation
	}

	query := url.Values{}
	query.Set("registration", registration)
	query.Set("advertiserId", advertiserID)
	if mileage > 0 {
		query.Set("odometerReadingMiles", strconv.Itoa(mileage))
	}

	body, err := c.doGet(ctx, "/vehicles", query)
	if err != nil {
		return nil, err
	}

	var resp vehicleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("autotrader: failed to parse vehicle response: %w", err)
	}
	if resp.Vehicle == nil || resp.Vehicle.DerivativeID == "" {
		return nil, fmt.Errorf("autotrader: %w", shared.ErrUpstreamMissing)
	}

	v := resp.Vehicle
	return &market.VehicleRecord{
		Registration:      v.Registration,
		Make:              v.Make,
		Model:             v.Model,
		Derivative:        v.Derivative,
		DerivativeID:      v.DerivativeID,
		YearOfManufacture: v.YearOfManufacture,
		FirstRegistered:   parseWireDate(v.FirstRegistrationDate),
		FuelType:          v.FuelType,
		BodyType:          v.BodyType,
	}, nil
}

// Derivative fetches a taxonomy derivative by ID
func (c *Client) Derivative(ctx context.Context, derivativeID, advertiserID string) (*market.Derivative, error) {
	if derivativeID == "" {
		return nil, shared.ErrValidation
	}

	query := url.Values{}
	query.Set("advertiserId", advertiserID)

	body, err := c.doGet(ctx, "/taxonomy/derivatives/"+url.PathEscape(derivativeID), query)
	if err != nil {
		return nil, err
	}

	var resp derivativeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("autotrader: failed to parse derivative response: %w", err)
	}
	if resp.DerivativeID == "" {
		return nil, fmt.Errorf("autotrader: %w", shared.ErrUpstreamMissing)
	}

	return &market.Derivative{
		ID:           resp.DerivativeID,
		Name:         resp.Name,
		Make:         resp.Make,
		Model:        resp.Model,
		FuelType:     resp.FuelType,
		BodyType:     resp.BodyType,
		Introduced:   parseWireDate(resp.Introduced),
		Discontinued: parseWireDate(resp.Discontinued),
	}, nil
}

// Valuation fetches the provider's current price estimates
func (c *Client) Valuation(ctx context.Context, req market.ValuationRequest) (*market.Valuations, error) {
	body, err := c.doPost(ctx, "/valuations", valuationRequest{
		Vehicle: valuationVehicle{
			DerivativeID:          req.DerivativeID,
			FirstRegistrationDate: req.FirstRegistration.Format(wireDateLayout),
			OdometerReadingMiles:  req.Mileage,
		},
	})
	if err != nil {
		return nil, err
	}

	var resp valuationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("autotrader: failed to parse valuation response: %w", err)
	}
	if resp.Valuations == nil {
		return nil, fmt.Errorf("autotrader: %w", shared.ErrUpstreamMissing)
	}

	return &market.Valuations{
		Retail:       resp.Valuations.Retail.AmountGBP,
		Trade:        resp.Valuations.Trade.AmountGBP,
		PartExchange: resp.Valuations.PartExchange.AmountGBP,
		Forecourt:    resp.Valuations.Forecourt.AmountGBP,
	}, nil
}

// VehicleMetrics fetches the provider's market snapshot
func (c *Client) VehicleMetrics(ctx context.Context, req market.ValuationRequest) (*market.Metrics, error) {
	body, err := c.doPost(ctx, "/vehicle-metrics", valuationRequest{
		Vehicle: valuationVehicle{
			DerivativeID:          req.DerivativeID,
			FirstRegistrationDate: req.FirstRegistration.Format(wireDateLayout),
			OdometerReadingMiles:  req.Mileage,
		},
	})
	if err != nil {
		return nil, err
	}

	var resp metricsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("autotrader: failed to parse metrics response: %w", err)
	}
	if resp.Retail == nil {
		return nil, fmt.Errorf("autotrader: %w", shared.ErrUpstreamMissing)
	}

	return &market.Metrics{
		PricePosition: resp.Retail.PricePosition,
		ListingsURL:   resp.Retail.LocationsURL,
		Supply:        int(resp.Retail.Supply.IntPart()),
		Demand:        int(resp.Retail.Demand.IntPart()),
	}, nil
}

// VehicleCheck fetches the history check for a registration
func (c *Client) VehicleCheck(ctx context.Context, registration, advertiserID string) (*market.CheckReport, error) {
	if registration == "" {
		return nil, shared.ErrValidation
	}

	query := url.Values{}
	query.Set("registration", registration)
	query.Set("advertiserId", advertiserID)

	body, err := c.doGet(ctx, "/vehicle-check", query)
	if err != nil {
		return nil, err
	}

	var resp checkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("autotrader: failed to parse check response: %w", err)
	}
	if resp.Check == nil {
		return nil, fmt.Errorf("autotrader: %w", shared.ErrUpstreamMissing)
	}

	return &market.CheckReport{
		Registration:       resp.Registration,
		Stolen:             resp.Check.Stolen,
		Scrapped:           resp.Check.Scrapped,
		WriteOff:           resp.Check.WriteOff,
		Imported:           resp.Check.Imported,
		Exported:           resp.Check.Exported,
		FinanceOutstanding: resp.Check.FinanceOutstanding,
		PreviousOwners:     resp.Check.PreviousOwners,
		MileageAnomaly:     resp.Check.MileageDiscrepancy,
	}, nil
}

// Competitors fetches the listings behind a provider-issued URL
func (c *Client) Competitors(ctx context.Context, listingsURL string) ([]market.Listing, error) {
	if listingsURL == "" {
		return nil, shared.ErrValidation
	}

	body, err := c.doGetAbsolute(ctx, listingsURL)
	if err != nil {
		return nil, err
	}

	var resp listingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("autotrader: failed to parse listings response: %w", err)
	}

	listings := make([]market.Listing, 0, len(resp.Results))
	for _, l := range resp.Results {
		listings = append(listings, market.Listing{
			Price:   l.Price,
			Mileage: l.Mileage,
			Year:    l.Year,
			Seller:  l.Seller,
		})
	}
	return listings, nil
}

// TrendedValuations fetches the valuation time series
func (c *Client) TrendedValuations(ctx context.Context, req market.ValuationRequest) ([]market.TrendedValuation, error) {
	body, err := c.doPost(ctx, "/valuations/trends", valuationRequest{
		Vehicle: valuationVehicle{
			DerivativeID:          req.DerivativeID,
			FirstRegistrationDate: req.FirstRegistration.Format(wireDateLayout),
			OdometerReadingMiles:  req.Mileage,
		},
	})
	if err != nil {
		return nil, err
	}

	var resp trendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("autotrader: failed to parse trends response: %w", err)
	}

	points := make([]market.TrendedValuation, 0, len(resp.Trends))
	for _, p := range resp.Trends {
		date := parseWireDate(p.Date)
		if date == nil {
			continue
		}
		points = append(points, market.TrendedValuation{
			Date:         *date,
			Retail:       p.Retail.AmountGBP,
			Trade:        p.Trade.AmountGBP,
			PartExchange: p.PartExchange.AmountGBP,
		})
	}
	return points, nil
}

// Ensure Client implements the gateway contract
var _ market.Gateway = (*Client)(nil)
