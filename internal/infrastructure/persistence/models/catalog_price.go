package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogPriceModel is a product reference price. Product ids are SKUs or
// ASINs as known to the marketplace.
type CatalogPriceModel struct {
	AccountID string          `gorm:"type:varchar(64);primaryKey"`
	ProductID string          `gorm:"type:varchar(128);primaryKey"`
	Price     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogPriceModel) TableName() string {
	return "catalog_prices"
}
