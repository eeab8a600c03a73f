package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/ledger"
)

// OrderLineFeeModel is the persistence model for the fees of one order line
type OrderLineFeeModel struct {
	AccountID    string          `gorm:"type:varchar(64);primaryKey;index:idx_order_line_fees_order,priority:1;index:idx_order_line_fees_purchase,priority:1"`
	OrderItemID  string          `gorm:"type:varchar(64);primaryKey"`
	OrderID      string          `gorm:"type:varchar(64);not null;index:idx_order_line_fees_order,priority:2"`
	SKU          string          `gorm:"column:sku;type:varchar(128)"`
	ASIN         string          `gorm:"column:asin;type:varchar(32)"`
	Quantity     int             `gorm:"not null"`
	ItemPrice    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency     string          `gorm:"type:varchar(3)"`
	PurchaseDate *time.Time      `gorm:"index:idx_order_line_fees_purchase,priority:2"`

	FeeColumns      `gorm:"embedded"`
	FeeSource       ledger.FeeSource `gorm:"type:varchar(20);not null"`
	TotalAmazonFees decimal.Decimal  `gorm:"type:numeric(18,2);not null"`

	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLineFeeModel) TableName() string {
	return "order_line_fees"
}

// ToDomain converts the model to a domain line fee record
func (m *OrderLineFeeModel) ToDomain() *ledger.OrderLineFeeRecord {
	rec := &ledger.OrderLineFeeRecord{
		AccountID:       m.AccountID,
		OrderItemID:     m.OrderItemID,
		OrderID:         m.OrderID,
		SKU:             m.SKU,
		ASIN:            m.ASIN,
		Quantity:        m.Quantity,
		ItemPrice:       m.ItemPrice,
		Currency:        m.Currency,
		Fees:            m.FeeColumns.Values(),
		FeeSource:       m.FeeSource,
		TotalAmazonFees: m.TotalAmazonFees,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.PurchaseDate != nil {
		rec.PurchaseDate = *m.PurchaseDate
	}
	return rec
}

// OrderLineFeeModelFromDomain creates a model from a domain line fee record
func OrderLineFeeModelFromDomain(r *ledger.OrderLineFeeRecord) *OrderLineFeeModel {
	m := &OrderLineFeeModel{
		AccountID:       r.AccountID,
		OrderItemID:     r.OrderItemID,
		OrderID:         r.OrderID,
		SKU:             r.SKU,
		ASIN:            r.ASIN,
		Quantity:        r.Quantity,
		ItemPrice:       r.ItemPrice,
		Currency:        r.Currency,
		FeeColumns:      FeeColumnsFromValues(r.Fees),
		FeeSource:       r.FeeSource,
		TotalAmazonFees: r.TotalAmazonFees,
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if m.FeeSource == "" {
		m.FeeSource = ledger.FeeSourceNone
	}
	if !r.PurchaseDate.IsZero() {
		pd := r.PurchaseDate.UTC()
		m.PurchaseDate = &pd
	}
	return m
}
