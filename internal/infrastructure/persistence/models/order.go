package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/ledger"
)

// OrderModel is the persistence model for an order
type OrderModel struct {
	AccountID     string          `gorm:"type:varchar(64);primaryKey;index:idx_orders_account_purchase,priority:1"`
	OrderID       string          `gorm:"type:varchar(64);primaryKey"`
	PurchaseDate  time.Time       `gorm:"not null;index:idx_orders_account_purchase,priority:2"`
	LastUpdated   time.Time       `gorm:"not null"`
	Status        string          `gorm:"type:varchar(32)"`
	MarketplaceID string          `gorm:"type:varchar(32)"`
	Currency      string          `gorm:"type:varchar(3)"`
	OrderTotal    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	ItemsSyncedAt *time.Time
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain order record
func (m *OrderModel) ToDomain() *ledger.OrderRecord {
	return &ledger.OrderRecord{
		AccountID:     m.AccountID,
		OrderID:       m.OrderID,
		PurchaseDate:  m.PurchaseDate,
		LastUpdated:   m.LastUpdated,
		Status:        m.Status,
		MarketplaceID: m.MarketplaceID,
		Currency:      m.Currency,
		OrderTotal:    m.OrderTotal,
		ItemsSyncedAt: m.ItemsSyncedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// OrderModelFromDomain creates a model from a domain order record
func OrderModelFromDomain(o *ledger.OrderRecord) *OrderModel {
	return &OrderModel{
		AccountID:     o.AccountID,
		OrderID:       o.OrderID,
		PurchaseDate:  o.PurchaseDate.UTC(),
		LastUpdated:   o.LastUpdated.UTC(),
		Status:        o.Status,
		MarketplaceID: o.MarketplaceID,
		Currency:      o.Currency,
		OrderTotal:    o.OrderTotal,
		ItemsSyncedAt: o.ItemsSyncedAt,
		UpdatedAt:     o.UpdatedAt.UTC(),
	}
}
