package fees

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Bucket is an accumulated signed total and the number of rows behind it
type Bucket struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func (b Bucket) plus(amount decimal.Decimal) Bucket {
	return Bucket{Total: b.Total.Add(amount), Count: b.Count + 1}
}

// Totals holds FeeCategoryTotals plus the buckets kept outside fee totals.
// Category totals are stored with the sign policy applied; Uncategorized and
// Revenue keep raw row amounts.
type Totals struct {
	buckets map[Category]Bucket

	// Uncategorized holds rows no rule matched (classification gaps).
	Uncategorized Bucket
	// Revenue holds price components (principal, shipping, tax) that are not fees.
	Revenue Bucket
	// Excluded counts transfer rows and rows without an order.
	Excluded int
}

// NewTotals returns empty totals with every category present
func NewTotals() *Totals {
	t := &Totals{buckets: make(map[Category]Bucket, len(allCategories))}
	for _, c := range allCategories {
		t.buckets[c] = Bucket{Total: decimal.Zero}
	}
	t.Uncategorized.Total = decimal.Zero
	t.Revenue.Total = decimal.Zero
	return t
}

// TotalsFromValues builds totals from already sign-adjusted category values,
// as held by stored per-line records. Row counts are left at zero.
func TotalsFromValues(values map[Category]decimal.Decimal) *Totals {
	t := NewTotals()
	for c, v := range values {
		if c.IsValid() {
			t.buckets[c] = Bucket{Total: v}
		}
	}
	return t
}

// SignedContribution converts a raw row amount into the value stored for the
// category. The conversion is its own inverse.
func SignedContribution(c Category, amount decimal.Decimal) decimal.Decimal {
	if c.IsReimbursement() {
		return amount
	}
	return amount.Neg()
}

// Apply accumulates one assignment
func (t *Totals) Apply(a Assignment) {
	switch a.Outcome {
	case OutcomeClassified:
		t.buckets[a.Category] = t.buckets[a.Category].plus(a.Contribution)
	case OutcomeUncategorized:
		t.Uncategorized = t.Uncategorized.plus(a.Row.Amount)
	case OutcomeRevenue:
		t.Revenue = t.Revenue.plus(a.Row.Amount)
	case OutcomeExcluded:
		t.Excluded++
	}
}

// Get returns the bucket for a category
func (t *Totals) Get(c Category) Bucket {
	return t.buckets[c]
}

// Value returns the stored total for a category
func (t *Totals) Value(c Category) decimal.Decimal {
	return t.buckets[c].Total
}

// Values returns a copy of the per-category totals
func (t *Totals) Values() map[Category]decimal.Decimal {
	out := make(map[Category]decimal.Decimal, len(t.buckets))
	for c, b := range t.buckets {
		out[c] = b.Total
	}
	return out
}

// ClassifiedCount returns the number of rows that landed in a category
func (t *Totals) ClassifiedCount() int {
	n := 0
	for _, b := range t.buckets {
		n += b.Count
	}
	return n
}

// TotalAmazonFees returns sum(charge categories) - sum(reimbursement categories)
func (t *Totals) TotalAmazonFees() decimal.Decimal {
	total := decimal.Zero
	for c, b := range t.buckets {
		if c.IsReimbursement() {
			total = total.Sub(b.Total)
		} else {
			total = total.Add(b.Total)
		}
	}
	return total
}

// SignedSum undoes the sign policy and adds the uncategorized and revenue
// buckets. For classified input it equals the sum of the raw row amounts.
func (t *Totals) SignedSum() decimal.Decimal {
	sum := t.Uncategorized.Total.Add(t.Revenue.Total)
	for c, b := range t.buckets {
		sum = sum.Add(SignedContribution(c, b.Total))
	}
	return sum
}

// Merge adds other into t
func (t *Totals) Merge(other *Totals) {
	if other == nil {
		return
	}
	for c, b := range other.buckets {
		cur := t.buckets[c]
		t.buckets[c] = Bucket{Total: cur.Total.Add(b.Total), Count: cur.Count + b.Count}
	}
	t.Uncategorized = Bucket{
		Total: t.Uncategorized.Total.Add(other.Uncategorized.Total),
		Count: t.Uncategorized.Count + other.Uncategorized.Count,
	}
	t.Revenue = Bucket{
		Total: t.Revenue.Total.Add(other.Revenue.Total),
		Count: t.Revenue.Count + other.Revenue.Count,
	}
	t.Excluded += other.Excluded
}

type totalsJSON struct {
	Categories      map[Category]Bucket `json:"categories"`
	Uncategorized   Bucket              `json:"uncategorized"`
	Revenue         Bucket              `json:"revenue"`
	Excluded        int                 `json:"excluded"`
	TotalAmazonFees decimal.Decimal     `json:"total_amazon_fees"`
}

// MarshalJSON implements json.Marshaler
func (t *Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(totalsJSON{
		Categories:      t.buckets,
		Uncategorized:   t.Uncategorized,
		Revenue:         t.Revenue,
		Excluded:        t.Excluded,
		TotalAmazonFees: t.TotalAmazonFees(),
	})
}
