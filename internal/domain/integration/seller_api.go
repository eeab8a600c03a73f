package integration

import (
	"context"
	"time"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderListRequest asks for one page of orders created in a window
type OrderListRequest struct {
	Account       SellerAccount
	CreatedAfter  time.Time
	CreatedBefore time.Time
	// NextToken continues a previous page; empty for the first page
	NextToken string
	// PageSize is clamped to 1..100, default 50
	PageSize int
}

// Validate validates the request and applies paging defaults
func (r *OrderListRequest) Validate() error {
	if err := r.Account.Validate(); err != nil {
		return err
	}
	if !r.CreatedBefore.IsZero() && r.CreatedAfter.After(r.CreatedBefore) {
		return ErrInvalidWindow
	}
	if r.PageSize < 1 || r.PageSize > 100 {
		r.PageSize = 50
	}
	return nil
}

// RemoteOrder is an order as listed by the remote API
type RemoteOrder struct {
	OrderID       string
	PurchaseDate  time.Time
	LastUpdated   time.Time
	Status        string
	MarketplaceID string
	Currency      string
	OrderTotal    decimal.Decimal
}

// OrderListPage is one page of the order listing
type OrderListPage struct {
	Orders    []RemoteOrder
	NextToken string
}

// HasMore reports whether another page is available
func (p *OrderListPage) HasMore() bool {
	return p.NextToken != ""
}

// OrderLineItem is one line returned by the per-order line-items endpoint
type OrderLineItem struct {
	OrderItemID string
	ASIN        string
	SKU         string
	Title       string
	Quantity    int
	// ItemPrice is the line total as reported remotely; zero when the API omits it
	ItemPrice decimal.Decimal
	Currency  string
}

// ---------------------------------------------------------------------------
// Financial events
// ---------------------------------------------------------------------------

// FinancialEventsRequest asks for one page of events posted in a window
type FinancialEventsRequest struct {
	Account      SellerAccount
	PostedAfter  time.Time
	PostedBefore time.Time
	NextToken    string
}

// Validate validates the request
func (r *FinancialEventsRequest) Validate() error {
	if err := r.Account.Validate(); err != nil {
		return err
	}
	if r.PostedAfter.IsZero() || r.PostedBefore.IsZero() || r.PostedAfter.After(r.PostedBefore) {
		return ErrInvalidWindow
	}
	return nil
}

// FinancialEventsPage is one page of financial events
type FinancialEventsPage struct {
	Events    []fees.FinancialEvent
	NextToken string
}

// HasMore reports whether another page is available
func (p *FinancialEventsPage) HasMore() bool {
	return p.NextToken != ""
}

// SellerDataAPI is the port to the remote seller-data API. All calls are
// rate limited remotely; callers self-throttle.
type SellerDataAPI interface {
	// ListOrders returns one page of orders created in the request window
	ListOrders(ctx context.Context, req OrderListRequest) (*OrderListPage, error)
	// GetOrderItems returns the line items of one order
	GetOrderItems(ctx context.Context, account SellerAccount, orderID string) ([]OrderLineItem, error)
	// ListFinancialEvents returns one page of events posted in the request window
	ListFinancialEvents(ctx context.Context, req FinancialEventsRequest) (*FinancialEventsPage, error)
}

// ---------------------------------------------------------------------------
// Settlement documents
// ---------------------------------------------------------------------------

// SettlementListRequest filters available settlement documents
type SettlementListRequest struct {
	Account       SellerAccount
	CreatedAfter  time.Time
	CreatedBefore time.Time
	// MarketplaceID restricts the listing; empty lists every marketplace
	MarketplaceID string
}

// SettlementDocumentRef describes one available settlement document
type SettlementDocumentRef struct {
	DocumentID    string
	MarketplaceID string
	CreatedAt     time.Time
	// PeriodStart and PeriodEnd bound the settlement period the document covers
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Covers reports whether the document period overlaps [from, to)
func (d SettlementDocumentRef) Covers(from, to time.Time) bool {
	if d.PeriodStart.IsZero() && d.PeriodEnd.IsZero() {
		return !d.CreatedAt.Before(from)
	}
	return d.PeriodStart.Before(to) && !d.PeriodEnd.Before(from)
}

// SettlementDocumentSource is the port to the settlement document listing and
// download endpoints. Downloaded content may be compressed.
type SettlementDocumentSource interface {
	ListSettlementDocuments(ctx context.Context, req SettlementListRequest) ([]SettlementDocumentRef, error)
	DownloadSettlementDocument(ctx context.Context, account SellerAccount, documentID string) ([]byte, error)
}

// SettlementArchive keeps raw settlement documents so they can be re-read
// without calling the remote API.
type SettlementArchive interface {
	Put(ctx context.Context, accountID, documentID string, content []byte) error
	// Get returns ok=false when the document was never archived
	Get(ctx context.Context, accountID, documentID string) (content []byte, ok bool, err error)
}
