package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/ledger"
)

// DailySummaryModel is the persistence model for a daily financial summary
type DailySummaryModel struct {
	AccountID   string    `gorm:"type:varchar(64);primaryKey"`
	SummaryDate time.Time `gorm:"type:date;primaryKey"`

	Sales               decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Refunds             decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	FeeColumns          `gorm:"embedded"`
	TotalFees           decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	UncategorizedAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Units               int             `gorm:"not null"`
	Orders              int             `gorm:"not null"`
	GrossProfit         decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Margin              decimal.Decimal `gorm:"type:numeric(9,2);not null"`

	ComputedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DailySummaryModel) TableName() string {
	return "daily_financial_summaries"
}

// ToDomain converts the model to a domain summary
func (m *DailySummaryModel) ToDomain() *ledger.DailyFinancialSummary {
	d := m.SummaryDate.UTC()
	return &ledger.DailyFinancialSummary{
		AccountID:           m.AccountID,
		Date:                time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Sales:               m.Sales,
		Refunds:             m.Refunds,
		Fees:                m.FeeColumns.Values(),
		TotalFees:           m.TotalFees,
		UncategorizedAmount: m.UncategorizedAmount,
		Units:               m.Units,
		Orders:              m.Orders,
		GrossProfit:         m.GrossProfit,
		Margin:              m.Margin,
		ComputedAt:          m.ComputedAt,
	}
}

// DailySummaryModelFromDomain creates a model from a domain summary
func DailySummaryModelFromDomain(s *ledger.DailyFinancialSummary) *DailySummaryModel {
	return &DailySummaryModel{
		AccountID:           s.AccountID,
		SummaryDate:         s.Date.UTC(),
		Sales:               s.Sales,
		Refunds:             s.Refunds,
		FeeColumns:          FeeColumnsFromValues(s.Fees),
		TotalFees:           s.TotalFees,
		UncategorizedAmount: s.UncategorizedAmount,
		Units:               s.Units,
		Orders:              s.Orders,
		GrossProfit:         s.GrossProfit,
		Margin:              s.Margin,
		ComputedAt:          s.ComputedAt.UTC(),
	}
}
