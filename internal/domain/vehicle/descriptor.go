package vehicle

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
)

// Flow identifies which input shape a retail check request arrived with
type Flow string

const (
	FlowStock         Flow = "stock"
	FlowVehicleFinder Flow = "vehicle-finder"
	FlowTaxonomy      Flow = "taxonomy"
)

// String returns the string representation of the flow
func (f Flow) String() string {
	return string(f)
}

// Valid reports whether the flow is one of the three supported shapes
func (f Flow) Valid() bool {
	switch f {
	case FlowStock, FlowVehicleFinder, FlowTaxonomy:
		return true
	}
	return false
}

// Descriptor is the normalized vehicle identity produced by the resolver.
// It is immutable once resolved and never persisted by this subsystem.
type Descriptor struct {
	Registration      string     `json:"registration,omitempty"`
	Make              string     `json:"make"`
	Model             string     `json:"model"`
	Derivative        string     `json:"derivative"`
	DerivativeID      string     `json:"derivative_id"`
	Year              int        `json:"year"`
	Mileage           int        `json:"mileage"`
	FuelType          string     `json:"fuel_type,omitempty"`
	BodyType          string     `json:"body_type,omitempty"`
	FirstRegistration *time.Time `json:"first_registration,omitempty"`
}

// ValuationKey is the minimal set of identifiers a valuation lookup needs
type ValuationKey struct {
	DerivativeID      string
	FirstRegistration time.Time
	Mileage           int
}

// ValuationKey returns the valuation identifiers, or a validation error if
// the descriptor is missing any of them.
func (d *Descriptor) ValuationKey() (ValuationKey, error) {
	if d.DerivativeID == "" || d.FirstRegistration == nil {
		return ValuationKey{}, shared.ErrValidation
	}
	return ValuationKey{
		DerivativeID:      d.DerivativeID,
		FirstRegistration: *d.FirstRegistration,
		Mileage:           d.Mileage,
	}, nil
}

// Age returns the vehicle age in whole years at the given time
func (d *Descriptor) Age(now time.Time) int {
	if d.Year <= 0 {
		return 0
	}
	age := now.Year() - d.Year
	if age < 0 {
		return 0
	}
	return age
}
