package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/vehicle"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
)

// GormStockRepository implements vehicle.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByID finds a stock vehicle by its ID
func (r *GormStockRepository) FindByID(ctx context.Context, id uuid.UUID) (*vehicle.StockRecord, error) {
	var model models.StockVehicleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrResolution
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRegistration finds a stock vehicle by registration within an advertiser
func (r *GormStockRepository) FindByRegistration(ctx context.Context, advertiserID, registration string) (*vehicle.StockRecord, error) {
	var model models.StockVehicleModel
	if err := r.db.WithContext(ctx).
		Where("advertiser_id = ? AND registration = ?", advertiserID, normalizeRegistration(registration)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrResolution
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts or updates a stock vehicle, used by imports and tests
func (r *GormStockRepository) Save(ctx context.Context, record *vehicle.StockRecord) error {
	var model models.StockVehicleModel
	model.FromDomain(record)
	model.Registration = normalizeRegistration(model.Registration)
	return r.db.WithContext(ctx).Save(&model).Error
}

// normalizeRegistration strips spaces and uppercases a plate so lookups are
// insensitive to how it was typed
func normalizeRegistration(registration string) string {
	return strings.ToUpper(strings.ReplaceAll(registration, " ", ""))
}

var _ vehicle.StockRepository = (*GormStockRepository)(nil)
