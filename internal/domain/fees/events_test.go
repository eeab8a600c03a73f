package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shipmentEvent(orderID string, posted time.Time) FinancialEvent {
	return FinancialEvent{
		Kind:       EventKindShipment,
		OrderID:    orderID,
		PostedDate: posted,
		Items: []EventItem{{
			OrderItemID: orderID + "-1",
			SKU:         "SKU-1",
			Quantity:    2,
			Charges: []Component{
				{Type: "Principal", Amount: dec("39.98")},
				{Type: "Tax", Amount: dec("3.20")},
			},
			Fees: []Component{
				{Type: "Commission", Amount: dec("-6.00")},
				{Type: "FBAPerUnitFulfillmentFee", Amount: dec("-3.22"), PerUnit: true},
			},
			Promotions: []Component{
				{Type: "PromotionMetaDataDefinitionValue", Amount: dec("-1.00")},
			},
		}},
	}
}

func TestFlattenEvents_Shipment(t *testing.T) {
	posted := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	rows := FlattenEvents([]FinancialEvent{shipmentEvent("111-1", posted)})

	require.Len(t, rows, 5)
	for _, r := range rows {
		assert.Equal(t, "111-1", r.OrderID)
		assert.Equal(t, "111-1-1", r.OrderItemCode)
		assert.Equal(t, "Order", r.TransactionType)
		assert.Equal(t, posted, r.PostedDate)
	}

	totals := Classify(rows)
	assertDecimal(t, "6.00", totals.Value(CategoryReferral))
	// per-unit fee multiplied across quantity 2
	assertDecimal(t, "6.44", totals.Value(CategoryFBAFulfillment))
	assertDecimal(t, "1.00", totals.Value(CategoryPromotion))
	assertDecimal(t, "43.18", totals.Revenue.Total)
}

func TestFlattenEvents_RefundAndAdjustment(t *testing.T) {
	posted := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	events := []FinancialEvent{
		{
			Kind:       EventKindRefund,
			OrderID:    "111-2",
			PostedDate: posted,
			Items: []EventItem{{
				OrderItemID: "111-2-1",
				Quantity:    1,
				Charges:     []Component{{Type: "Principal", Amount: dec("-19.99")}},
				Fees: []Component{
					{Type: "Commission", Amount: dec("3.00")},
					{Type: "RefundCommission", Amount: dec("-0.60")},
				},
			}},
		},
		{
			Kind:           EventKindAdjustment,
			OrderID:        "111-3",
			PostedDate:     posted,
			AdjustmentType: "WAREHOUSE_DAMAGE",
			Items: []EventItem{{
				OrderItemID: "111-3-1",
				Quantity:    3,
				Charges:     []Component{{Amount: dec("4.00"), PerUnit: true}},
			}},
		},
		{
			Kind:           EventKindAdjustment,
			PostedDate:     posted,
			AdjustmentType: "REVERSAL_REIMBURSEMENT",
			Amount:         dec("-5.00"),
		},
		{
			Kind:       EventKindServiceFee,
			PostedDate: posted,
			Fees:       []Component{{Type: "Subscription", Amount: dec("-39.99")}},
		},
	}

	rows := FlattenEvents(events)
	require.Len(t, rows, 6)
	assert.Equal(t, TransactionTypeRefund, rows[0].TransactionType)
	assert.Equal(t, "WAREHOUSE_DAMAGE", rows[3].AmountDescription)

	totals := Classify(rows)
	assertDecimal(t, "12.00", totals.Value(CategoryWarehouseDamage))
	assertDecimal(t, "0.60", totals.Value(CategoryRefundCommission))
	// a positive commission on a refund reduces referral
	assertDecimal(t, "-3.00", totals.Value(CategoryReferral))
	// rows without an order are excluded
	assert.Equal(t, 2, totals.Excluded)
	assert.Equal(t, 0, totals.Get(CategorySubscription).Count)
}

func TestFlattenEvents_DropsZeroAmounts(t *testing.T) {
	rows := FlattenEvents([]FinancialEvent{{
		Kind:    EventKindShipment,
		OrderID: "111-4",
		Items: []EventItem{{
			OrderItemID: "111-4-1",
			Quantity:    1,
			Fees:        []Component{{Type: "FixedClosingFee", Amount: dec("0.00")}},
		}},
	}})
	assert.Empty(t, rows)
}

func TestGroupByDate(t *testing.T) {
	day1 := time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 6, 0, 30, 0, 0, time.UTC)

	rows := FlattenEvents([]FinancialEvent{
		shipmentEvent("111-1", day1),
		shipmentEvent("111-2", day2),
		{
			Kind:       EventKindRefund,
			OrderID:    "111-1",
			PostedDate: day2,
			Items: []EventItem{{
				OrderItemID: "111-1-1",
				Quantity:    1,
				Charges:     []Component{{Type: "Principal", Amount: dec("-19.99")}},
			}},
		},
	})
	_, trace := ClassifyWithTrace(rows)

	days := GroupByDate(trace, time.UTC)
	require.Len(t, days, 2)

	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), days[0].Date)
	assertDecimal(t, "39.98", days[0].Sales)
	assertDecimal(t, "0", days[0].Refunds)
	assert.Equal(t, 2, days[0].Units)
	assert.Equal(t, 1, days[0].Orders)
	assertDecimal(t, "13.44", days[0].Totals.TotalAmazonFees())

	assertDecimal(t, "39.98", days[1].Sales)
	assertDecimal(t, "19.99", days[1].Refunds)
}

func TestGroupByDate_SkipsExcludedRows(t *testing.T) {
	rows := []TransactionRow{
		feeRow("ItemFees", "Referral Fee", "-4.50"),
		{TransactionType: "Transfer", AmountType: "other-transaction", AmountDescription: "Current Reserve Amount", Amount: dec("-250.00")},
	}
	_, trace := ClassifyWithTrace(rows)

	days := GroupByDate(trace, time.UTC)
	require.Len(t, days, 1)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), days[0].Date)
	assertDecimal(t, "4.50", days[0].Totals.TotalAmazonFees())
	assert.Equal(t, 0, days[0].Totals.Excluded)
}

func TestGroupByLine(t *testing.T) {
	posted := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	rows := FlattenEvents([]FinancialEvent{shipmentEvent("111-2", posted), shipmentEvent("111-1", posted)})
	rows = append(rows, TransactionRow{
		OrderID:           "111-9",
		OrderItemCode:     "111-9-1",
		TransactionType:   "Order",
		AmountType:        AmountTypeItemPrice,
		AmountDescription: "Principal",
		Amount:            dec("10.00"),
	})
	_, trace := ClassifyWithTrace(rows)

	lines := GroupByLine(trace)
	require.Len(t, lines, 2, "lines without fee rows are skipped")
	assert.Equal(t, "111-1", lines[0].OrderID)
	assert.Equal(t, "111-1-1", lines[0].OrderItemCode)
	assert.Equal(t, "SKU-1", lines[0].SKU)
	assertDecimal(t, "13.44", lines[0].Totals.TotalAmazonFees())
}
