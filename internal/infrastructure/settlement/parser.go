// Package settlement parses seller settlement documents (tab-delimited flat
// files with one header row) into fee transaction rows.
package settlement

import (
	"bufio"
	"bytes"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
)

// Normalized column names
const (
	colSettlementID    = "settlement-id"
	colStartDate       = "settlement-start-date"
	colEndDate         = "settlement-end-date"
	colCurrency        = "currency"
	colTransactionType = "transaction-type"
	colOrderID         = "order-id"
	colMarketplace     = "marketplace-name"
	colAmountType      = "amount-type"
	colDescription     = "amount-description"
	colAmount          = "amount"
	colPostedDate      = "posted-date"
	colPostedDateTime  = "posted-date-time"
	colOrderItemCode   = "order-item-code"
	colSKU             = "sku"
	colQuantity        = "quantity-purchased"
)

// dateLayouts are the posted-date formats seen across marketplaces
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 UTC",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05 MST",
	"02.01.2006",
	"2006/01/02",
}

// Document is a decoded settlement document. Rows can be iterated any number
// of times; each iteration re-reads the content.
type Document struct {
	content   []byte
	columns   map[string]int
	separator rune
	location  *time.Location

	// SettlementID, PeriodStart, PeriodEnd and Currency come from the summary
	// row when the document carries one
	SettlementID string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Currency     string
}

// Option is a functional option for Parse
type Option func(*Document)

// WithDecimalSeparator fixes the decimal separator; SeparatorAuto (default)
// takes it from the first amount in the document that is unambiguous
func WithDecimalSeparator(sep rune) Option {
	return func(d *Document) {
		d.separator = sep
	}
}

// WithLocation sets the zone for posted dates that carry no offset
func WithLocation(loc *time.Location) Option {
	return func(d *Document) {
		if loc != nil {
			d.location = loc
		}
	}
}

// Parse decodes raw document bytes, reads the header and settles the decimal
// separator. It fails with ErrMalformedDocument only when the content cannot
// be decoded or has no header row.
func Parse(raw []byte, opts ...Option) (*Document, error) {
	content, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	d := &Document{
		content:  content,
		columns:  make(map[string]int),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(d)
	}

	var (
		header    bool
		firstData = true
	)
	for rec, err := range d.records() {
		if err != nil {
			return nil, err
		}
		switch {
		case !header:
			d.readHeader(rec.fields)
			if _, ok := d.columns[colAmount]; !ok {
				return nil, fmt.Errorf("%w: missing header row", integration.ErrMalformedDocument)
			}
			header = true
			continue
		case firstData:
			firstData = false
			if d.isSummaryRow(rec.fields) {
				d.readSummary(rec.fields)
				continue
			}
		}
		if d.separator != SeparatorAuto {
			break
		}
		if sep, ok := detectSeparator(cleanAmount(d.field(rec.fields, colAmount))); ok {
			d.separator = sep
		}
	}
	if !header {
		return nil, fmt.Errorf("%w: missing header row", integration.ErrMalformedDocument)
	}
	if d.separator == SeparatorAuto {
		d.separator = SeparatorDot
	}
	return d, nil
}

// normalizeHeader maps "Order ID", "order_id" and "order-id" to one name
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer("_", "-", " ", "-").Replace(h)
	return h
}

func (d *Document) readHeader(fields []string) {
	for i, h := range fields {
		name := normalizeHeader(h)
		if _, dup := d.columns[name]; !dup {
			d.columns[name] = i
		}
	}
}

// record is one non-blank line split on tabs
type record struct {
	fields []string
	line   int
}

// records yields the non-blank lines of the content with their 1-based line
// numbers. Quotes have no special meaning in the flat file format, so a stray
// quote never joins lines; a field wrapped in one pair of quotes is unwrapped.
func (d *Document) records() iter.Seq2[record, error] {
	return func(yield func(record, error) bool) {
		sc := bufio.NewScanner(bytes.NewReader(d.content))
		sc.Buffer(make([]byte, 0, 64*1024), len(d.content)+1)

		line := 0
		for sc.Scan() {
			line++
			fields := splitFields(strings.TrimSuffix(sc.Text(), "\r"))
			if isBlank(fields) {
				continue
			}
			if !yield(record{fields: fields, line: line}, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(record{}, fmt.Errorf("%w: line %d: %v", integration.ErrMalformedDocument, line+1, err))
		}
	}
}

func splitFields(text string) []string {
	fields := strings.Split(text, "\t")
	for i, f := range fields {
		if len(f) >= 2 && f[0] == '"' && f[len(f)-1] == '"' {
			fields[i] = strings.ReplaceAll(f[1:len(f)-1], `""`, `"`)
		}
	}
	return fields
}

// HasColumn reports whether the header carries a column
func (d *Document) HasColumn(name string) bool {
	_, ok := d.columns[normalizeHeader(name)]
	return ok
}

func (d *Document) field(rec []string, name string) string {
	i, ok := d.columns[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// readSummary captures settlement metadata from the summary row
func (d *Document) readSummary(rec []string) {
	d.SettlementID = d.field(rec, colSettlementID)
	d.PeriodStart = d.parseDate(d.field(rec, colStartDate))
	d.PeriodEnd = d.parseDate(d.field(rec, colEndDate))
	d.Currency = d.field(rec, colCurrency)
}

// isSummaryRow reports whether rec is the per-document summary line, which
// carries settlement dates but no transaction
func (d *Document) isSummaryRow(rec []string) bool {
	return d.field(rec, colTransactionType) == "" &&
		d.field(rec, colAmountType) == "" &&
		d.field(rec, colStartDate) != ""
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Rows returns the lazy row sequence. Every non-blank line after the header
// other than a summary row yields a row; rows with a missing or unparseable
// amount carry a zero amount.
func (d *Document) Rows() iter.Seq2[fees.TransactionRow, error] {
	return func(yield func(fees.TransactionRow, error) bool) {
		header := true
		for rec, err := range d.records() {
			if err != nil {
				yield(fees.TransactionRow{}, err)
				return
			}
			if header {
				header = false
				continue
			}
			if d.isSummaryRow(rec.fields) {
				continue
			}
			if !yield(d.toRow(rec.fields, rec.line), nil) {
				return
			}
		}
	}
}

// Collect reads every row into a slice
func (d *Document) Collect() ([]fees.TransactionRow, error) {
	var rows []fees.TransactionRow
	for row, err := range d.Rows() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (d *Document) toRow(rec []string, line int) fees.TransactionRow {
	amount, _ := parseAmount(d.field(rec, colAmount), d.separator)

	posted := d.field(rec, colPostedDateTime)
	if posted == "" {
		posted = d.field(rec, colPostedDate)
	}

	qty, _ := strconv.Atoi(d.field(rec, colQuantity))

	return fees.TransactionRow{
		OrderID:           d.field(rec, colOrderID),
		TransactionType:   d.field(rec, colTransactionType),
		PostedDate:        d.parseDate(posted),
		AmountType:        d.field(rec, colAmountType),
		AmountDescription: d.field(rec, colDescription),
		Amount:            amount,
		OrderItemCode:     d.field(rec, colOrderItemCode),
		SKU:               d.field(rec, colSKU),
		Quantity:          qty,
		MarketplaceName:   d.field(rec, colMarketplace),
		Line:              line,
	}
}

// parseDate returns the zero time when no layout matches
func (d *Document) parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, d.location); err == nil {
			return t
		}
	}
	return time.Time{}
}
