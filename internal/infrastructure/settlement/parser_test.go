package settlement

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

var settlementHeader = []string{
	"settlement-id", "settlement-start-date", "settlement-end-date", "deposit-date", "total-amount", "currency",
	"transaction-type", "order-id", "marketplace-name", "amount-type", "amount-description", "amount",
	"posted-date", "order-item-code", "sku", "quantity-purchased",
}

// tsvLine builds a line from column=value pairs, leaving other columns empty
func tsvLine(values map[string]string) string {
	fields := make([]string, len(settlementHeader))
	for i, h := range settlementHeader {
		fields[i] = values[h]
	}
	return strings.Join(fields, "\t")
}

func buildDocument(lines ...map[string]string) []byte {
	out := []string{strings.Join(settlementHeader, "\t")}
	for _, l := range lines {
		out = append(out, tsvLine(l))
	}
	return []byte(strings.Join(out, "\n") + "\n")
}

func orderLine(orderID, amountType, description, amount string) map[string]string {
	return map[string]string{
		"settlement-id":      "1234567",
		"transaction-type":   "Order",
		"order-id":           orderID,
		"marketplace-name":   "Amazon.com",
		"amount-type":        amountType,
		"amount-description": description,
		"amount":             amount,
		"posted-date":        "2024-03-05",
		"order-item-code":    orderID + "-1",
		"sku":                "SKU-1",
		"quantity-purchased": "2",
	}
}

func TestParse_Rows(t *testing.T) {
	raw := buildDocument(
		map[string]string{
			"settlement-id":         "1234567",
			"settlement-start-date": "2024-03-01",
			"settlement-end-date":   "2024-03-15",
			"total-amount":          "1024.50",
			"currency":              "USD",
		},
		orderLine("111-1", "ItemPrice", "Principal", "39.98"),
		orderLine("111-1", "ItemFees", "Referral Fee", "-4.50"),
		orderLine("111-1", "ItemFees", "FBA Long-term storage fee", "-1,234.56"),
	)

	doc, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "1234567", doc.SettlementID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), doc.PeriodStart)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), doc.PeriodEnd)
	assert.Equal(t, "USD", doc.Currency)

	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "111-1", rows[0].OrderID)
	assert.Equal(t, "Order", rows[0].TransactionType)
	assert.Equal(t, "ItemPrice", rows[0].AmountType)
	assert.True(t, decimal.RequireFromString("39.98").Equal(rows[0].Amount))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), rows[0].PostedDate)
	assert.Equal(t, "111-1-1", rows[0].OrderItemCode)
	assert.Equal(t, 2, rows[0].Quantity)
	assert.Equal(t, 3, rows[0].Line)

	assert.True(t, decimal.RequireFromString("-4.50").Equal(rows[1].Amount))
	assert.True(t, decimal.RequireFromString("-1234.56").Equal(rows[2].Amount))

	totals := fees.Classify(rows)
	assert.True(t, decimal.RequireFromString("4.50").Equal(totals.Value(fees.CategoryReferral)))
	assert.True(t, decimal.RequireFromString("1234.56").Equal(totals.Value(fees.CategoryLongTermStorage)))
}

func TestParse_RowsAreRestartable(t *testing.T) {
	doc, err := Parse(buildDocument(
		orderLine("111-1", "ItemFees", "Referral Fee", "-4.50"),
		orderLine("111-2", "ItemFees", "Referral Fee", "-1.50"),
	))
	require.NoError(t, err)

	first, err := doc.Collect()
	require.NoError(t, err)
	second, err := doc.Collect()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// stopping early leaves later iterations unaffected
	for range doc.Rows() {
		break
	}
	third, err := doc.Collect()
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestParse_CommaDecimalSeparator(t *testing.T) {
	raw := buildDocument(
		orderLine("302-1", "ItemFees", "Referral Fee", "-4,50"),
		orderLine("302-1", "ItemPrice", "Principal", "1.234,56"),
		orderLine("302-1", "ItemFees", "Commission", "-12,00"),
	)

	doc, err := Parse(raw)
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, decimal.RequireFromString("-4.50").Equal(rows[0].Amount))
	assert.True(t, decimal.RequireFromString("1234.56").Equal(rows[1].Amount))
	assert.True(t, decimal.RequireFromString("-12.00").Equal(rows[2].Amount))
}

func TestParse_FixedSeparator(t *testing.T) {
	doc, err := Parse(buildDocument(orderLine("302-1", "ItemFees", "Referral Fee", "-1.234")), WithDecimalSeparator(SeparatorComma))
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("-1234").Equal(rows[0].Amount))
}

func TestParse_MissingAmountYieldsZero(t *testing.T) {
	raw := buildDocument(
		orderLine("111-1", "ItemFees", "Referral Fee", ""),
		orderLine("111-1", "ItemFees", "Referral Fee", "n/a"),
		orderLine("111-1", "ItemFees", "Referral Fee", "-2.00"),
	)

	doc, err := Parse(raw)
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Amount.IsZero())
	assert.True(t, rows[1].Amount.IsZero())
	assert.True(t, decimal.RequireFromString("-2.00").Equal(rows[2].Amount))
}

func TestParse_HeaderOnlyIsEmptySequence(t *testing.T) {
	doc, err := Parse(buildDocument())
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"no header", []byte("111-1\tOrder\t-4.50\n")},
		{"binary", []byte{0x00, 0x01, 0x02, 'a', '\t', 'b'}},
		{"broken gzip", []byte{0x1f, 0x8b, 0x08, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, integration.ErrMalformedDocument)
		})
	}
}

func TestParse_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(buildDocument(orderLine("111-1", "ItemFees", "Referral Fee", "-4.50")))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	doc, err := Parse(buf.Bytes())
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Referral Fee", rows[0].AmountDescription)
}

func TestParse_Windows1252(t *testing.T) {
	utf := buildDocument(orderLine("028-1", "ItemFees", "Gebühr für Rücksendung", "-4,50"))
	legacy, err := charmap.Windows1252.NewEncoder().Bytes(utf)
	require.NoError(t, err)

	doc, err := Parse(legacy)
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Gebühr für Rücksendung", rows[0].AmountDescription)
}

func TestParse_HeaderVariants(t *testing.T) {
	raw := []byte("Order ID\tTransaction_Type\tAmount Type\tAmount Description\tAmount\tPosted Date Time\n" +
		"111-1\tOrder\tItemFees\tReferral Fee\t-4.50\t2024-03-05T10:15:00+00:00\n")

	doc, err := Parse(raw)
	require.NoError(t, err)
	assert.True(t, doc.HasColumn("order_id"))

	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "111-1", rows[0].OrderID)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC), rows[0].PostedDate.UTC())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		sep      rune
		input    string
		expected string
	}{
		{"dot", SeparatorDot, "-4.50", "-4.50"},
		{"dot thousands", SeparatorDot, "1,234.56", "1234.56"},
		{"integer", SeparatorDot, "7", "7"},
		{"comma", SeparatorComma, "-4,50", "-4.50"},
		{"comma thousands", SeparatorComma, "1.234,56", "1234.56"},
		{"comma reads lone dot as thousands", SeparatorComma, "1.234", "1234"},
		{"non-breaking space", SeparatorComma, "1\u00a0234,56", "1234.56"},
		{"parentheses are negative", SeparatorDot, "(4.50)", "-4.50"},
		{"trailing minus", SeparatorDot, "4.50-", "-4.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAmount(tt.input, tt.sep)
			require.True(t, ok, tt.input)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "%s: got %s", tt.input, got)
		})
	}
}

func TestParse_SeparatorFromWholeDocument(t *testing.T) {
	tests := []struct {
		name     string
		amounts  []string
		expected []string
	}{
		{"ambiguous amount before comma amount", []string{"1.234", "-4,50"}, []string{"1234", "-4.50"}},
		{"ambiguous amount before dot amount", []string{"1,234", "-4.50"}, []string{"1234", "-4.50"}},
		{"only ambiguous amounts read dot", []string{"1.234", "2.500"}, []string{"1.234", "2.5"}},
		{"first unambiguous amount wins", []string{"-4,50", "1.5"}, []string{"-4.50", "15"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []map[string]string
			for _, a := range tt.amounts {
				lines = append(lines, orderLine("302-1", "ItemFees", "Referral Fee", a))
			}
			doc, err := Parse(buildDocument(lines...))
			require.NoError(t, err)

			rows, err := doc.Collect()
			require.NoError(t, err)
			require.Len(t, rows, len(tt.expected))
			for i, want := range tt.expected {
				assert.True(t, decimal.RequireFromString(want).Equal(rows[i].Amount), "row %d: got %s", i, rows[i].Amount)
			}
		})
	}
}

func TestParse_QuotesAreLiteral(t *testing.T) {
	raw := buildDocument(
		orderLine("111-1", "ItemFees", `"Gift wrap chargeback`, "-1.00"),
		orderLine("111-2", "ItemFees", "Referral Fee", "-4.50"),
		orderLine("111-3", "ItemFees", `"Commission"`, "-2.00"),
		orderLine("111-4", "ItemFees", `Size 12" tote`, "-3.00"),
	)

	doc, err := Parse(raw)
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 4, "a stray quote does not swallow the following lines")

	assert.Equal(t, `"Gift wrap chargeback`, rows[0].AmountDescription)
	assert.Equal(t, "111-2", rows[1].OrderID)
	assert.True(t, decimal.RequireFromString("-4.50").Equal(rows[1].Amount))
	assert.Equal(t, "Commission", rows[2].AmountDescription)
	assert.Equal(t, `Size 12" tote`, rows[3].AmountDescription)
	assert.Equal(t, []int{2, 3, 4, 5}, []int{rows[0].Line, rows[1].Line, rows[2].Line, rows[3].Line})
}

func TestParse_EveryDataLineYieldsRow(t *testing.T) {
	header := strings.Join(settlementHeader, "\t")
	raw := []byte(header + "\r\n" +
		tsvLine(orderLine("111-1", "ItemFees", "Referral Fee", "-4.50")) + "\r\n" +
		"\r\n" +
		"1234567\t\t\t\t\t\tOrder\r\n" +
		tsvLine(orderLine("111-3", "ItemFees", "Referral Fee", "-1.50")) + "\textra\textra\r\n")

	doc, err := Parse(raw)
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "SKU-1", rows[0].SKU, "carriage returns are trimmed")
	assert.Equal(t, 4, rows[1].Line, "blank lines keep their line numbers")
	assert.Equal(t, "Order", rows[1].TransactionType, "short lines are kept")
	assert.Empty(t, rows[1].OrderID)
	assert.True(t, rows[1].Amount.IsZero())
	assert.Equal(t, "111-3", rows[2].OrderID)
	assert.True(t, decimal.RequireFromString("-1.50").Equal(rows[2].Amount))
}

func TestParse_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	doc, err := Parse(buildDocument(orderLine("111-1", "ItemFees", long, "-4.50")))
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].AmountDescription, len(long))
}
