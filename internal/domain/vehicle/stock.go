package vehicle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockRecord is a vehicle held in dealer stock. The wider back office owns
// the full record; this subsystem only reads the identity and pricing
// fields it needs to run a retail check.
type StockRecord struct {
	ID              uuid.UUID
	AdvertiserID    string
	Registration    string
	Make            string
	Model           string
	Derivative      string
	DerivativeID    string
	Year            int
	Mileage         int
	FuelType        string
	BodyType        string
	PurchasePrice   float64
	ForecourtPrice  float64
	FirstRegistered *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Descriptor builds a vehicle descriptor from the stock record's own fields
func (s *StockRecord) Descriptor() Descriptor {
	return Descriptor{
		Registration:      s.Registration,
		Make:              s.Make,
		Model:             s.Model,
		Derivative:        s.Derivative,
		DerivativeID:      s.DerivativeID,
		Year:              s.Year,
		Mileage:           s.Mileage,
		FuelType:          s.FuelType,
		BodyType:          s.BodyType,
		FirstRegistration: s.FirstRegistered,
	}
}

// StockRepository is the read-only stock store collaborator
type StockRepository interface {
	// FindByID returns the stock record, or shared.ErrResolution if absent
	FindByID(ctx context.Context, id uuid.UUID) (*StockRecord, error)
}
