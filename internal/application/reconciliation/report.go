package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/fees"
)

// Period is the half-open comparison window [From, To)
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate checks the window bounds and length
func (p Period) Validate() error {
	if p.From.IsZero() || p.To.IsZero() || !p.From.Before(p.To) {
		return ErrInvalidPeriod
	}
	if p.To.Sub(p.From) > maxPeriod {
		return ErrPeriodTooLong
	}
	return nil
}

// CategoryDiff compares one fee category across sources
type CategoryDiff struct {
	Category        fees.Category    `json:"category"`
	SettlementValue decimal.Decimal  `json:"settlement_value"`
	StoredValue     decimal.Decimal  `json:"stored_value"`
	EventsValue     *decimal.Decimal `json:"events_value,omitempty"`
	// Diff is SettlementValue - StoredValue
	Diff    decimal.Decimal `json:"diff"`
	Matched bool            `json:"matched"`
	// SettlementRows is the number of settlement rows behind SettlementValue
	SettlementRows int `json:"settlement_rows"`
}

// FlagReason explains why a row was flagged
type FlagReason string

const (
	FlagUncategorized     FlagReason = "uncategorized"
	FlagUnmatchedCategory FlagReason = "unmatched_category"
)

// FlaggedRow is a settlement row worth an operator's attention
type FlaggedRow struct {
	DocumentID string              `json:"document_id"`
	Reason     FlagReason          `json:"reason"`
	Category   fees.Category       `json:"category,omitempty"`
	Row        fees.TransactionRow `json:"row"`
}

// DocumentStatus reports how one settlement document contributed
type DocumentStatus struct {
	DocumentID   string    `json:"document_id"`
	SettlementID string    `json:"settlement_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Rows         int       `json:"rows"`
	// Skipped is set for superseded or unreadable documents
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SourceTotals is the fee total of one source
type SourceTotals struct {
	TotalAmazonFees     decimal.Decimal `json:"total_amazon_fees"`
	UncategorizedAmount decimal.Decimal `json:"uncategorized_amount"`
	UncategorizedRows   int             `json:"uncategorized_rows"`
}

// Report is the structured diff of one comparison
type Report struct {
	AccountID string          `json:"account_id"`
	Period    Period          `json:"period"`
	Epsilon   decimal.Decimal `json:"epsilon"`

	Categories  []CategoryDiff `json:"categories"`
	FlaggedRows []FlaggedRow   `json:"flagged_rows"`
	// Matched is true when every category matched
	Matched bool `json:"matched"`

	Settlement SourceTotals  `json:"settlement"`
	Stored     SourceTotals  `json:"stored"`
	Events     *SourceTotals `json:"events,omitempty"`
	// StoredLines is the number of fee-populated order lines behind Stored
	StoredLines int              `json:"stored_lines"`
	Documents   []DocumentStatus `json:"documents"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Category returns the diff of one category, nil when unknown
func (r *Report) Category(c fees.Category) *CategoryDiff {
	for i := range r.Categories {
		if r.Categories[i].Category == c {
			return &r.Categories[i]
		}
	}
	return nil
}

// TraceSource selects what a trace classifies
type TraceSource string

const (
	TraceSourceSettlement TraceSource = "settlement"
	TraceSourceEvents     TraceSource = "events"
)

// TraceRequest selects a settlement document, or the events of a period
type TraceRequest struct {
	DocumentID string
	Period     Period
}

// Trace is the per-row classification of one source
type Trace struct {
	AccountID   string            `json:"account_id"`
	Source      TraceSource       `json:"source"`
	DocumentID  string            `json:"document_id,omitempty"`
	Period      *Period           `json:"period,omitempty"`
	Totals      *fees.Totals      `json:"totals"`
	Assignments []fees.Assignment `json:"assignments"`
	// Gaps is the number of rows no rule matched
	Gaps int `json:"gaps"`
}
