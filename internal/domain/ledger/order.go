package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("ledger: order not found")
	ErrInvalidRecord = errors.New("ledger: invalid record")
)

// OrderRecord is an order known to the store
type OrderRecord struct {
	AccountID     string
	OrderID       string
	PurchaseDate  time.Time
	LastUpdated   time.Time
	Status        string
	MarketplaceID string
	Currency      string
	OrderTotal    decimal.Decimal
	// ItemsSyncedAt is when line items were last fetched, nil if never
	ItemsSyncedAt *time.Time
	UpdatedAt     time.Time
}

// Validate checks the natural key
func (o *OrderRecord) Validate() error {
	if o.AccountID == "" || o.OrderID == "" {
		return ErrInvalidRecord
	}
	return nil
}

// ItemSyncCandidateQuery selects orders whose line items should be fetched
type ItemSyncCandidateQuery struct {
	AccountID string
	// PurchasedAfter bounds the lookback window
	PurchasedAfter time.Time
	// RecheckBefore lets orders whose lines carry no fees yet be fetched again
	// once their last item sync is older than this instant
	RecheckBefore time.Time
	// Force selects every order in the window regardless of line state
	Force bool
	// Limit caps the batch
	Limit int
}

// OrderRepository persists orders
type OrderRepository interface {
	// Upsert creates or updates an order keyed by (account, order id)
	Upsert(ctx context.Context, order *OrderRecord) error
	// FindByID returns ErrOrderNotFound when missing
	FindByID(ctx context.Context, accountID, orderID string) (*OrderRecord, error)
	// FindItemSyncCandidates returns orders in the lookback window that do not
	// carry a fee-populated line record yet, newest first, capped at Limit
	FindItemSyncCandidates(ctx context.Context, q ItemSyncCandidateQuery) ([]OrderRecord, error)
	// MarkItemsSynced stamps ItemsSyncedAt
	MarkItemsSynced(ctx context.Context, accountID, orderID string, at time.Time) error
}
