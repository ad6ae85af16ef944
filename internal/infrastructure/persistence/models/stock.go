// Package models contains GORM persistence models and their domain mappings.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealerdesk/backend/internal/domain/vehicle"
)

// StockVehicleModel is the persistence model for a vehicle in dealer stock.
// The wider back office writes these rows; this subsystem only reads them.
type StockVehicleModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key"`
	AdvertiserID    string     `gorm:"type:varchar(50);not null;index"`
	Registration    string     `gorm:"type:varchar(20);not null;index"`
	Make            string     `gorm:"type:varchar(100)"`
	Model           string     `gorm:"type:varchar(100)"`
	Derivative      string     `gorm:"type:varchar(200)"`
	DerivativeID    string     `gorm:"type:varchar(50)"`
	Year            int        `gorm:"not null;default:0"`
	Mileage         int        `gorm:"not null;default:0"`
	FuelType        string     `gorm:"type:varchar(50)"`
	BodyType        string     `gorm:"type:varchar(50)"`
	PurchasePrice   float64    `gorm:"type:decimal(12,2);not null;default:0"`
	ForecourtPrice  float64    `gorm:"type:decimal(12,2);not null;default:0"`
	FirstRegistered *time.Time `gorm:""`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockVehicleModel) TableName() string {
	return "stock_vehicles"
}

// ToDomain converts the persistence model to a domain StockRecord
func (m *StockVehicleModel) ToDomain() *vehicle.StockRecord {
	return &vehicle.StockRecord{
		ID:              m.ID,
		AdvertiserID:    m.AdvertiserID,
		Registration:    m.Registration,
		Make:            m.Make,
		Model:           m.Model,
		Derivative:      m.Derivative,
		DerivativeID:    m.DerivativeID,
		Year:            m.Year,
		Mileage:         m.Mileage,
		FuelType:        m.FuelType,
		BodyType:        m.BodyType,
		PurchasePrice:   m.PurchasePrice,
		ForecourtPrice:  m.ForecourtPrice,
		FirstRegistered: m.FirstRegistered,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain StockRecord
func (m *StockVehicleModel) FromDomain(s *vehicle.StockRecord) {
	m.ID = s.ID
	m.AdvertiserID = s.AdvertiserID
	m.Registration = s.Registration
	m.Make = s.Make
	m.Model = s.Model
	m.Derivative = s.Derivative
	m.DerivativeID = s.DerivativeID
	m.Year = s.Year
	m.Mileage = s.Mileage
	m.FuelType = s.FuelType
	m.BodyType = s.BodyType
	m.PurchasePrice = s.PurchasePrice
	m.ForecourtPrice = s.ForecourtPrice
	m.FirstRegistered = s.FirstRegistered
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}
