package marketplace

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// record is a decoded JSON object whose fields may arrive in either
// PascalCase or camelCase. Lookups try the given name first, then its
// camelCase form (ASIN -> asin, SellerSKU -> sellerSKU).
type record map[string]json.RawMessage

func decodeRecord(data []byte) (record, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// camelCase lowercases the leading uppercase run of a PascalCase name. When
// the run is followed by a lowercase letter its last rune starts the next
// word and stays uppercase.
func camelCase(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n == 0 {
		return name
	}
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

func (r record) raw(name string) (json.RawMessage, bool) {
	if v, ok := r[name]; ok && !isNull(v) {
		return v, true
	}
	if v, ok := r[camelCase(name)]; ok && !isNull(v) {
		return v, true
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

// String returns a string field; numbers are returned in their literal form
func (r record) String(name string) string {
	v, ok := r.raw(name)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

// Int returns an integer field given as number or string
func (r record) Int(name string) int {
	s := r.String(name)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

// Decimal returns a decimal field given as number or string
func (r record) Decimal(name string) decimal.Decimal {
	return parseDecimal(r.String(name))
}

// Time returns an RFC 3339 timestamp field, zero when missing or invalid
func (r record) Time(name string) time.Time {
	s := r.String(name)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// Object returns a nested object field, nil when missing
func (r record) Object(name string) record {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	obj, err := decodeRecord(v)
	if err != nil {
		return nil
	}
	return obj
}

// List returns an array-of-objects field; malformed entries are skipped
func (r record) List(name string) []record {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil
	}
	out := make([]record, 0, len(items))
	for _, item := range items {
		obj, err := decodeRecord(item)
		if err != nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

// Strings returns an array-of-strings field
func (r record) Strings(name string) []string {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(v, &out); err != nil {
		return nil
	}
	return out
}

// Money returns the amount and currency of a money object. Both the
// Amount and CurrencyAmount spellings are accepted.
func (r record) Money(name string) (decimal.Decimal, string) {
	m := r.Object(name)
	if m == nil {
		return decimal.Zero, ""
	}
	amount, ok := m.raw("CurrencyAmount")
	if !ok {
		amount, ok = m.raw("Amount")
	}
	if !ok {
		return decimal.Zero, m.String("CurrencyCode")
	}
	return parseDecimal(rawString(amount)), m.String("CurrencyCode")
}

func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// parseDecimal parses a decimal string, zero on error
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
