package ledger

import (
	"context"
	"time"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/shopspring/decimal"
)

// FeeSource records where the fee fields of a line came from
type FeeSource string

const (
	FeeSourceNone             FeeSource = "none"
	FeeSourceAPI              FeeSource = "api"
	FeeSourceSettlementReport FeeSource = "settlement_report"
)

// IsValid returns true if the fee source is valid
func (s FeeSource) IsValid() bool {
	switch s {
	case FeeSourceNone, FeeSourceAPI, FeeSourceSettlementReport:
		return true
	default:
		return false
	}
}

// rank orders sources by trust
func (s FeeSource) rank() int {
	switch s {
	case FeeSourceSettlementReport:
		return 2
	case FeeSourceAPI:
		return 1
	default:
		return 0
	}
}

// CanReplace reports whether fees from s may overwrite fees from current.
// A source never gives way to a less trusted one.
func (s FeeSource) CanReplace(current FeeSource) bool {
	return s.rank() >= current.rank()
}

// String returns the string representation
func (s FeeSource) String() string {
	return string(s)
}

// OrderLineFeeRecord holds the fees of one order line.
// Identity: (AccountID, OrderItemID).
type OrderLineFeeRecord struct {
	AccountID    string
	OrderItemID  string
	OrderID      string
	SKU          string
	ASIN         string
	Quantity     int
	ItemPrice    decimal.Decimal
	Currency     string
	PurchaseDate time.Time

	Fees            map[fees.Category]decimal.Decimal
	FeeSource       FeeSource
	TotalAmazonFees decimal.Decimal

	UpdatedAt time.Time
}

// Validate checks the natural key
func (r *OrderLineFeeRecord) Validate() error {
	if r.AccountID == "" || r.OrderItemID == "" {
		return ErrInvalidRecord
	}
	if r.FeeSource != "" && !r.FeeSource.IsValid() {
		return ErrInvalidRecord
	}
	return nil
}

// SetFees copies the category values from totals and derives TotalAmazonFees
func (r *OrderLineFeeRecord) SetFees(t *fees.Totals, source FeeSource) {
	r.Fees = t.Values()
	r.FeeSource = source
	r.TotalAmazonFees = t.TotalAmazonFees()
}

// Fee returns the stored value of one category
func (r *OrderLineFeeRecord) Fee(c fees.Category) decimal.Decimal {
	if v, ok := r.Fees[c]; ok {
		return v
	}
	return decimal.Zero
}

// FeeAggregate is the sum of stored line fees over a set of lines
type FeeAggregate struct {
	Totals *fees.Totals
	Lines  int
}

// OrderLineFeeRepository persists order line fee records
type OrderLineFeeRepository interface {
	// UpsertLineItem writes the item fields (price, quantity, identifiers) and
	// leaves existing fee fields untouched
	UpsertLineItem(ctx context.Context, rec *OrderLineFeeRecord) error
	// UpsertFees writes the fee fields unless the stored source outranks rec.FeeSource
	UpsertFees(ctx context.Context, rec *OrderLineFeeRecord) error
	// FindByOrder returns the lines of one order
	FindByOrder(ctx context.Context, accountID, orderID string) ([]OrderLineFeeRecord, error)
	// SumFeesByPurchaseDate aggregates stored fees of lines whose order was
	// purchased in [from, to)
	SumFeesByPurchaseDate(ctx context.Context, accountID string, from, to time.Time) (*FeeAggregate, error)
}

// CatalogPriceLookup is the read-only product reference price mapping,
// consulted only when a line reports a zero price
type CatalogPriceLookup interface {
	// FindPrice returns ok=false when no price is on record
	FindPrice(ctx context.Context, accountID, productID string) (price decimal.Decimal, ok bool, err error)
}

// ResolveItemPrice returns the line price, falling back to the catalog price
// times quantity when the reported price is exactly zero and a catalog price
// is on record. The boolean reports whether the fallback was used.
func ResolveItemPrice(reported decimal.Decimal, quantity int, catalogPrice decimal.Decimal, haveCatalog bool) (decimal.Decimal, bool) {
	if !reported.IsZero() || !haveCatalog {
		return reported, false
	}
	qty := quantity
	if qty < 1 {
		qty = 1
	}
	return catalogPrice.Mul(decimal.NewFromInt(int64(qty))), true
}
