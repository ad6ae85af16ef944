package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// VehicleRecord is the provider's view of a vehicle found by registration
type VehicleRecord struct {
	Registration      string     `json:"registration"`
	Make              string     `json:"make"`
	Model             string     `json:"model"`
	Derivative        string     `json:"derivative"`
	DerivativeID      string     `json:"derivative_id"`
	YearOfManufacture int        `json:"year_of_manufacture,omitempty"`
	FirstRegistered   *time.Time `json:"first_registered,omitempty"`
	FuelType          string     `json:"fuel_type,omitempty"`
	BodyType          string     `json:"body_type,omitempty"`
}

// Derivative is a taxonomy entry: one trim/configuration of a model
type Derivative struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Make         string     `json:"make"`
	Model        string     `json:"model"`
	FuelType     string     `json:"fuel_type,omitempty"`
	BodyType     string     `json:"body_type,omitempty"`
	Introduced   *time.Time `json:"introduced,omitempty"`
	Discontinued *time.Time `json:"discontinued,omitempty"`
}

// Valuations are the provider's price estimates for one vehicle
type Valuations struct {
	Retail       decimal.Decimal `json:"retail"`
	Trade        decimal.Decimal `json:"trade"`
	PartExchange decimal.Decimal `json:"part_exchange"`
	Forecourt    decimal.Decimal `json:"forecourt"`
}

// Metrics is the provider's market snapshot for one vehicle
type Metrics struct {
	// PricePosition is the provider-rated market percentile, used when no
	// competitor listing data is available.
	PricePosition int `json:"price_position"`
	// ListingsURL points at the competitor listings for this derivative;
	// empty when the provider has none.
	ListingsURL string `json:"listings_url,omitempty"`
	Supply      int    `json:"supply,omitempty"`
	Demand      int    `json:"demand,omitempty"`
}

// CheckReport is the provider's history check summary
type CheckReport struct {
	Registration       string `json:"registration"`
	Stolen             bool   `json:"stolen"`
	Scrapped           bool   `json:"scrapped"`
	WriteOff           bool   `json:"write_off"`
	Imported           bool   `json:"imported"`
	Exported           bool   `json:"exported"`
	FinanceOutstanding bool   `json:"finance_outstanding"`
	PreviousOwners     int    `json:"previous_owners"`
	MileageAnomaly     bool   `json:"mileage_anomaly"`
}

// Clean reports whether the check raised no flags
func (c *CheckReport) Clean() bool {
	return !c.Stolen && !c.Scrapped && !c.WriteOff && !c.Imported &&
		!c.Exported && !c.FinanceOutstanding && !c.MileageAnomaly
}

// Listing is one competitor advert
type Listing struct {
	Price   decimal.Decimal `json:"price"`
	Mileage int             `json:"mileage"`
	Year    int             `json:"year"`
	Seller  string          `json:"seller,omitempty"`
}

// TrendedValuation is one point of a valuation time series
type TrendedValuation struct {
	Date         time.Time       `json:"date"`
	Retail       decimal.Decimal `json:"retail"`
	Trade        decimal.Decimal `json:"trade"`
	PartExchange decimal.Decimal `json:"part_exchange"`
}

// ValuationRequest is the minimal key for valuation-shaped lookups
type ValuationRequest struct {
	DerivativeID      string
	FirstRegistration time.Time
	Mileage           int
	AdvertiserID      string
}
