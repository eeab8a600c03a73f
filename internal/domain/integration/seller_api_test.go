package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderListRequest_Validate(t *testing.T) {
	now := time.Now()

	req := OrderListRequest{Account: SellerAccount{ID: "acct-1"}, CreatedAfter: now.Add(-time.Hour)}
	assert.NoError(t, req.Validate())
	assert.Equal(t, 50, req.PageSize)

	req = OrderListRequest{Account: SellerAccount{ID: "acct-1"}, CreatedAfter: now, CreatedBefore: now.Add(-time.Hour)}
	assert.ErrorIs(t, req.Validate(), ErrInvalidWindow)

	req = OrderListRequest{}
	assert.ErrorIs(t, req.Validate(), ErrAccountNotFound)
}

func TestFinancialEventsRequest_Validate(t *testing.T) {
	now := time.Now()
	req := FinancialEventsRequest{Account: SellerAccount{ID: "acct-1"}, PostedAfter: now.AddDate(0, 0, -7), PostedBefore: now}
	assert.NoError(t, req.Validate())

	req.PostedBefore = time.Time{}
	assert.ErrorIs(t, req.Validate(), ErrInvalidWindow)
}

func TestSettlementDocumentRef_Covers(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ref      SettlementDocumentRef
		expected bool
	}{
		{"inside", SettlementDocumentRef{PeriodStart: from.AddDate(0, 0, 3), PeriodEnd: from.AddDate(0, 0, 17)}, true},
		{"straddles start", SettlementDocumentRef{PeriodStart: from.AddDate(0, 0, -7), PeriodEnd: from.AddDate(0, 0, 7)}, true},
		{"before", SettlementDocumentRef{PeriodStart: from.AddDate(0, 0, -30), PeriodEnd: from.AddDate(0, 0, -16)}, false},
		{"after", SettlementDocumentRef{PeriodStart: to, PeriodEnd: to.AddDate(0, 0, 14)}, false},
		{"no period uses creation date", SettlementDocumentRef{CreatedAt: from.AddDate(0, 0, 2)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ref.Covers(from, to))
		})
	}
}

func TestSellerAccount_Location(t *testing.T) {
	assert.Equal(t, time.UTC, (&SellerAccount{}).Location())
	assert.Equal(t, time.UTC, (&SellerAccount{Timezone: "Not/AZone"}).Location())
	assert.Equal(t, "Europe/Berlin", (&SellerAccount{Timezone: "Europe/Berlin"}).Location().String())
}
