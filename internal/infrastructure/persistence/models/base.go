package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/fees"
)

// FeeColumns holds one column per fee category. It is embedded by every
// model that stores category values.
type FeeColumns struct {
	FBAFulfillment          decimal.Decimal `gorm:"column:fee_fba_fulfillment;type:numeric(18,2);not null"`
	MultiChannelFulfillment decimal.Decimal `gorm:"column:fee_multi_channel_fulfillment;type:numeric(18,2);not null"`
	Referral                decimal.Decimal `gorm:"column:fee_referral;type:numeric(18,2);not null"`
	Storage                 decimal.Decimal `gorm:"column:fee_storage;type:numeric(18,2);not null"`
	LongTermStorage         decimal.Decimal `gorm:"column:fee_long_term_storage;type:numeric(18,2);not null"`
	Inbound                 decimal.Decimal `gorm:"column:fee_inbound;type:numeric(18,2);not null"`
	Disposal                decimal.Decimal `gorm:"column:fee_disposal;type:numeric(18,2);not null"`
	DigitalServices         decimal.Decimal `gorm:"column:fee_digital_services;type:numeric(18,2);not null"`
	WarehouseDamage         decimal.Decimal `gorm:"column:fee_warehouse_damage;type:numeric(18,2);not null"`
	WarehouseLost           decimal.Decimal `gorm:"column:fee_warehouse_lost;type:numeric(18,2);not null"`
	Reversal                decimal.Decimal `gorm:"column:fee_reversal;type:numeric(18,2);not null"`
	RefundedReferral        decimal.Decimal `gorm:"column:fee_refunded_referral;type:numeric(18,2);not null"`
	Promotion               decimal.Decimal `gorm:"column:fee_promotion;type:numeric(18,2);not null"`
	RefundCommission        decimal.Decimal `gorm:"column:fee_refund_commission;type:numeric(18,2);not null"`
	Subscription            decimal.Decimal `gorm:"column:fee_subscription;type:numeric(18,2);not null"`
	Other                   decimal.Decimal `gorm:"column:fee_other;type:numeric(18,2);not null"`
}

func (f *FeeColumns) field(c fees.Category) *decimal.Decimal {
	switch c {
	case fees.CategoryFBAFulfillment:
		return &f.FBAFulfillment
	case fees.CategoryMultiChannelFulfillment:
		return &f.MultiChannelFulfillment
	case fees.CategoryReferral:
		return &f.Referral
	case fees.CategoryStorage:
		return &f.Storage
	case fees.CategoryLongTermStorage:
		return &f.LongTermStorage
	case fees.CategoryInbound:
		return &f.Inbound
	case fees.CategoryDisposal:
		return &f.Disposal
	case fees.CategoryDigitalServices:
		return &f.DigitalServices
	case fees.CategoryWarehouseDamage:
		return &f.WarehouseDamage
	case fees.CategoryWarehouseLost:
		return &f.WarehouseLost
	case fees.CategoryReversal:
		return &f.Reversal
	case fees.CategoryRefundedReferral:
		return &f.RefundedReferral
	case fees.CategoryPromotion:
		return &f.Promotion
	case fees.CategoryRefundCommission:
		return &f.RefundCommission
	case fees.CategorySubscription:
		return &f.Subscription
	case fees.CategoryOther:
		return &f.Other
	}
	return nil
}

// FeeColumnsFromValues fills the columns from category values; missing
// categories are zero
func FeeColumnsFromValues(values map[fees.Category]decimal.Decimal) FeeColumns {
	var f FeeColumns
	for _, c := range fees.Categories() {
		*f.field(c) = values[c]
	}
	return f
}

// Values returns the columns keyed by category
func (f *FeeColumns) Values() map[fees.Category]decimal.Decimal {
	out := make(map[fees.Category]decimal.Decimal, len(fees.Categories()))
	for _, c := range fees.Categories() {
		out[c] = *f.field(c)
	}
	return out
}

// FeeColumnName returns the column storing a category
func FeeColumnName(c fees.Category) string {
	return "fee_" + strings.ReplaceAll(string(c), "-", "_")
}

// FeeColumnNames returns every fee column in taxonomy order
func FeeColumnNames() []string {
	cats := fees.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = FeeColumnName(c)
	}
	return names
}
