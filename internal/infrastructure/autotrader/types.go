package autotrader

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is a provider bearer token with its expiry
type Token struct {
	Bearer  string
	Expires time.Time
}

// Valid reports whether the token is usable at the given time with the
// given refresh margin.
func (t Token) Valid(now time.Time, margin time.Duration) bool {
	return t.Bearer != "" && now.Add(margin).Before(t.Expires)
}

// authenticateResponse is the wire shape of POST /authenticate
type authenticateResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// vehicleResponse is the wire shape of GET /vehicles
type vehicleResponse struct {
	Vehicle *wireVehicle `json:"vehicle"`
}

type wireVehicle struct {
	Registration          string `json:"registration"`
	Make                  string `json:"make"`
	Model                 string `json:"model"`
	Derivative            string `json:"derivative"`
	DerivativeID          string `json:"derivativeId"`
	YearOfManufacture     int    `json:"yearOfManufacture"`
	FirstRegistrationDate string `json:"firstRegistrationDate"` // 2006-01-02
	FuelType              string `json:"fuelType"`
	BodyType              string `json:"bodyType"`
}

// derivativeResponse is the wire shape of GET /taxonomy/derivatives/{id}
type derivativeResponse struct {
	DerivativeID string `json:"derivativeId"`
	Name         string `json:"name"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	FuelType     string `json:"fuelType"`
	BodyType     string `json:"bodyType"`
	Introduced   string `json:"introduced"`   // 2006-01-02, may be empty
	Discontinued string `json:"discontinued"` // 2006-01-02, may be empty
}

// valuationRequest is the wire shape of valuation-keyed POST bodies
type valuationRequest struct {
	Vehicle valuationVehicle `json:"vehicle"`
}

type valuationVehicle struct {
	DerivativeID          string `json:"derivativeId"`
	FirstRegistrationDate string `json:"firstRegistrationDate"`
	OdometerReadingMiles  int    `json:"odometerReadingMiles"`
}

// valuationResponse is the wire shape of POST /valuations
type valuationResponse struct {
	Valuations *wireValuations `json:"valuations"`
}

type wireValuations struct {
	Retail       wireAmount `json:"retail"`
	Trade        wireAmount `json:"trade"`
	PartExchange wireAmount `json:"partExchange"`
	Forecourt    wireAmount `json:"private"`
}

type wireAmount struct {
	AmountGBP decimal.Decimal `json:"amountGBP"`
}

// metricsResponse is the wire shape of POST /vehicle-metrics
type metricsResponse struct {
	Retail *wireRetailMetrics `json:"retail"`
}

type wireRetailMetrics struct {
	PricePosition int             `json:"ratingScore"`
	Supply        decimal.Decimal `json:"supply"`
	Demand        decimal.Decimal `json:"demand"`
	LocationsURL  string          `json:"locations"`
}

// checkResponse is the wire shape of GET /vehicle-check
type checkResponse struct {
	Registration string         `json:"registration"`
	Check        *wireCheckData `json:"check"`
}

type wireCheckData struct {
	Stolen             bool `json:"stolen"`
	Scrapped           bool `json:"scrapped"`
	WriteOff           bool `json:"writeOff"`
	Imported           bool `json:"imported"`
	Exported           bool `json:"exported"`
	FinanceOutstanding bool `json:"privateFinance"`
	PreviousOwners     int  `json:"previousOwners"`
	MileageDiscrepancy bool `json:"mileageDiscrepancy"`
}

// listingsResponse is the wire shape of competitor listing pages
type listingsResponse struct {
	Results []wireListing `json:"results"`
}

type wireListing struct {
	Price   decimal.Decimal `json:"price"`
	Mileage int             `json:"mileage"`
	Year    int             `json:"year"`
	Seller  string          `json:"sellerName"`
}

// trendsResponse is the wire shape of POST /valuations/trends
type trendsResponse struct {
	Trends []wireTrendPoint `json:"trends"`
}

type wireTrendPoint struct {
	Date         string     `json:"date"` // 2006-01-02
	Retail       wireAmount `json:"retail"`
	Trade        wireAmount `json:"trade"`
	PartExchange wireAmount `json:"partExchange"`
}

// parseWireDate parses the provider's date-only format, returning nil for
// empty or malformed values rather than failing the whole response.
func parseWireDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
