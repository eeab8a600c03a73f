package fees

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DayTotals aggregates the assignments posted on one calendar date
type DayTotals struct {
	Date    time.Time
	Totals  *Totals
	Sales   decimal.Decimal
	Refunds decimal.Decimal
	Units   int
	Orders  int
}

// GroupByDate buckets assignments by the calendar date of the row's posted
// date in loc. Excluded rows are skipped. The result is sorted by date.
func GroupByDate(assignments []Assignment, loc *time.Location) []DayTotals {
	if loc == nil {
		loc = time.UTC
	}

	type acc struct {
		day    DayTotals
		orders map[string]struct{}
	}
	days := make(map[time.Time]*acc)

	for _, a := range assignments {
		if a.Outcome == OutcomeExcluded {
			continue
		}
		posted := a.Row.PostedDate.In(loc)
		date := time.Date(posted.Year(), posted.Month(), posted.Day(), 0, 0, 0, 0, loc)
		d, ok := days[date]
		if !ok {
			d = &acc{
				day: DayTotals{
					Date:    date,
					Totals:  NewTotals(),
					Sales:   decimal.Zero,
					Refunds: decimal.Zero,
				},
				orders: make(map[string]struct{}),
			}
			days[date] = d
		}
		d.day.Totals.Apply(a)

		if a.Outcome != OutcomeRevenue {
			continue
		}
		desc := strings.ToLower(a.Row.AmountDescription)
		if strings.Contains(desc, "tax") {
			continue
		}
		if a.Row.IsRefund() {
			d.day.Refunds = d.day.Refunds.Add(a.Row.Amount.Neg())
			continue
		}
		d.day.Sales = d.day.Sales.Add(a.Row.Amount)
		if desc == "principal" {
			d.day.Units += a.Row.Quantity
			d.orders[a.Row.OrderID] = struct{}{}
		}
	}

	out := make([]DayTotals, 0, len(days))
	for _, d := range days {
		d.day.Orders = len(d.orders)
		out = append(out, d.day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// LineTotals aggregates the assignments attributed to one order line
type LineTotals struct {
	OrderID       string
	OrderItemCode string
	SKU           string
	Totals        *Totals
}

// GroupByLine buckets assignments by order line. Rows without a line key are
// skipped, as are lines where no row landed in a fee category. The result is
// sorted by order id then line key.
func GroupByLine(assignments []Assignment) []LineTotals {
	lines := make(map[string]*LineTotals)
	for _, a := range assignments {
		if a.Outcome == OutcomeExcluded {
			continue
		}
		key := a.Row.LineKey()
		if key == "" {
			continue
		}
		lt, ok := lines[key]
		if !ok {
			lt = &LineTotals{
				OrderID:       a.Row.OrderID,
				OrderItemCode: key,
				SKU:           a.Row.SKU,
				Totals:        NewTotals(),
			}
			lines[key] = lt
		}
		if lt.SKU == "" {
			lt.SKU = a.Row.SKU
		}
		lt.Totals.Apply(a)
	}

	out := make([]LineTotals, 0, len(lines))
	for _, lt := range lines {
		if lt.Totals.ClassifiedCount() == 0 {
			continue
		}
		out = append(out, *lt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].OrderItemCode < out[j].OrderItemCode
	})
	return out
}
