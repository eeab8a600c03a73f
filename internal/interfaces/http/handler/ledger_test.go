package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/application/ledgerview"
	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

const (
	dailySummariesRoute = "/accounts/:account_id/daily-summaries"
	lineFeesRoute       = "/accounts/:account_id/orders/:order_id/line-fees"
)

func TestLedgerHandler_ListDailySummaries(t *testing.T) {
	reader := new(MockLedgerReader)
	computed := time.Date(2024, 4, 2, 6, 0, 0, 0, time.UTC)
	reader.On("DailySummaries", mock.Anything, "acc-1", mock.MatchedBy(march.From.Equal), mock.MatchedBy(march.To.Equal)).Return([]ledger.DailyFinancialSummary{
		{
			AccountID:   "acc-1",
			Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Sales:       decimal.RequireFromString("39.98"),
			Refunds:     decimal.Zero,
			Fees:        map[fees.Category]decimal.Decimal{fees.CategoryReferral: decimal.RequireFromString("4.50")},
			TotalFees:   decimal.RequireFromString("4.50"),
			Units:       2,
			Orders:      1,
			GrossProfit: decimal.RequireFromString("35.48"),
			Margin:      decimal.RequireFromString("88.74"),
			ComputedAt:  computed,
		},
	}, nil)
	h := NewLedgerHandler(reader, nil)

	w := serve(t, http.MethodGet, dailySummariesRoute, "/accounts/acc-1/daily-summaries?from=2024-03-01&to=2024-04-01", nil, h.ListDailySummaries)
	assertStatus(t, w, http.StatusOK)

	resp, data := decode(t, w)
	assert.True(t, resp.Success)
	var got []struct {
		Date        string            `json:"date"`
		Sales       string            `json:"sales"`
		Fees        map[string]string `json:"fees"`
		GrossProfit string            `json:"gross_profit"`
		Units       int               `json:"units"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2024-03-05", got[0].Date)
	assert.Equal(t, "39.98", got[0].Sales)
	assert.Equal(t, "35.48", got[0].GrossProfit)
	assert.Equal(t, 2, got[0].Units)
	assert.Equal(t, "4.5", got[0].Fees[string(fees.CategoryReferral)])
	assert.Equal(t, "0", got[0].Fees[string(fees.CategoryStorage)], "every category is listed")
	assert.Len(t, got[0].Fees, len(fees.Categories()))
	reader.AssertExpectations(t)
}

func TestLedgerHandler_ListDailySummariesEmpty(t *testing.T) {
	reader := new(MockLedgerReader)
	reader.On("DailySummaries", mock.Anything, "acc-1", mock.Anything, mock.Anything).Return([]ledger.DailyFinancialSummary{}, nil)
	h := NewLedgerHandler(reader, nil)

	w := serve(t, http.MethodGet, dailySummariesRoute, "/accounts/acc-1/daily-summaries?from=2024-03-01&to=2024-04-01", nil, h.ListDailySummaries)
	assertStatus(t, w, http.StatusOK)

	_, data := decode(t, w)
	assert.JSONEq(t, "[]", string(data))
}

func TestLedgerHandler_ListDailySummariesRejections(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		code   string
	}{
		{"missing from", "?to=2024-04-01", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"inverted", "?from=2024-04-01&to=2024-03-01", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"range too long", "?from=2023-01-01&to=2024-04-01", ledgerview.ErrRangeTooLong, http.StatusBadRequest, dto.ErrCodeInvalidPeriod},
		{"unknown account", "?from=2024-03-01&to=2024-04-01", integration.ErrAccountNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockLedgerReader)
			if tt.err != nil {
				reader.On("DailySummaries", mock.Anything, "acc-1", mock.Anything, mock.Anything).Return(nil, tt.err)
			}
			h := NewLedgerHandler(reader, nil)

			w := serve(t, http.MethodGet, dailySummariesRoute, "/accounts/acc-1/daily-summaries"+tt.query, nil, h.ListDailySummaries)
			assertStatus(t, w, tt.status)

			resp, _ := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.err == nil {
				reader.AssertNotCalled(t, "DailySummaries", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestLedgerHandler_GetOrderLineFees(t *testing.T) {
	reader := new(MockLedgerReader)
	purchased := time.Date(2024, 3, 4, 18, 30, 0, 0, time.UTC)
	reader.On("OrderLines", mock.Anything, "acc-1", "111-1").Return([]ledger.OrderLineFeeRecord{
		{
			AccountID:       "acc-1",
			OrderItemID:     "111-1-1",
			OrderID:         "111-1",
			SKU:             "SKU-1",
			Quantity:        2,
			ItemPrice:       decimal.RequireFromString("39.98"),
			PurchaseDate:    purchased,
			Fees:            map[fees.Category]decimal.Decimal{fees.CategoryReferral: decimal.RequireFromString("4.50")},
			FeeSource:       ledger.FeeSourceSettlementReport,
			TotalAmazonFees: decimal.RequireFromString("4.50"),
		},
		{
			AccountID:       "acc-1",
			OrderItemID:     "111-1-2",
			OrderID:         "111-1",
			FeeSource:       ledger.FeeSourceAPI,
			TotalAmazonFees: decimal.RequireFromString("1.25"),
		},
	}, nil)
	h := NewLedgerHandler(reader, nil)

	w := serve(t, http.MethodGet, lineFeesRoute, "/accounts/acc-1/orders/111-1/line-fees", nil, h.GetOrderLineFees)
	assertStatus(t, w, http.StatusOK)

	_, data := decode(t, w)
	var got struct {
		OrderID         string `json:"order_id"`
		TotalAmazonFees string `json:"total_amazon_fees"`
		Lines           []struct {
			OrderItemID  string     `json:"order_item_id"`
			FeeSource    string     `json:"fee_source"`
			PurchaseDate *time.Time `json:"purchase_date"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "111-1", got.OrderID)
	assert.Equal(t, "5.75", got.TotalAmazonFees)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "settlement_report", got.Lines[0].FeeSource)
	require.NotNil(t, got.Lines[0].PurchaseDate)
	assert.True(t, purchased.Equal(*got.Lines[0].PurchaseDate))
	assert.Nil(t, got.Lines[1].PurchaseDate)
}

func TestLedgerHandler_GetOrderLineFeesErrors(t *testing.T) {
	tests := []struct {
		name    string
		orderID string
		err     error
		status  int
		code    string
	}{
		{"order without lines", "999-9", ledgerview.ErrOrderNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unknown account", "111-1", integration.ErrAccountNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"order id too long", strings.Repeat("9", 65), nil, http.StatusBadRequest, dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockLedgerReader)
			if tt.err != nil {
				reader.On("OrderLines", mock.Anything, "acc-1", tt.orderID).Return(nil, tt.err)
			}
			h := NewLedgerHandler(reader, nil)

			w := serve(t, http.MethodGet, lineFeesRoute, "/accounts/acc-1/orders/"+tt.orderID+"/line-fees", nil, h.GetOrderLineFees)
			assertStatus(t, w, tt.status)

			resp, _ := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
