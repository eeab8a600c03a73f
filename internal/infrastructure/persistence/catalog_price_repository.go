package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/persistence/models"
)

// GormCatalogPriceRepository implements ledger.CatalogPriceLookup over the
// catalog_prices table
type GormCatalogPriceRepository struct {
	db *gorm.DB
}

var _ ledger.CatalogPriceLookup = (*GormCatalogPriceRepository)(nil)

// NewGormCatalogPriceRepository creates a new catalog price repository
func NewGormCatalogPriceRepository(db *gorm.DB) *GormCatalogPriceRepository {
	return &GormCatalogPriceRepository{db: db}
}

// FindPrice returns ok=false when no price is on record
func (r *GormCatalogPriceRepository) FindPrice(ctx context.Context, accountID, productID string) (decimal.Decimal, bool, error) {
	if productID == "" {
		return decimal.Zero, false, nil
	}
	var model models.CatalogPriceModel
	err := r.db.WithContext(ctx).
		First(&model, "account_id = ? AND product_id = ?", accountID, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return model.Price, true, nil
}

// SetPrice records a reference price
func (r *GormCatalogPriceRepository) SetPrice(ctx context.Context, accountID, productID string, price decimal.Decimal) error {
	model := &models.CatalogPriceModel{
		AccountID: accountID,
		ProductID: productID,
		Price:     price,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
	}).Create(model).Error
}
