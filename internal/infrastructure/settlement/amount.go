package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal separators accepted by WithDecimalSeparator
const (
	SeparatorAuto  rune = 0
	SeparatorDot   rune = '.'
	SeparatorComma rune = ','
)

// parseAmount returns the amount and whether the field held a number. Empty
// or unparseable fields yield zero. sep must be SeparatorDot or
// SeparatorComma.
func parseAmount(raw string, sep rune) (decimal.Decimal, bool) {
	s := cleanAmount(raw)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}

	thousands := ","
	if sep == SeparatorComma {
		thousands = "."
	}
	s = strings.ReplaceAll(s, thousands, "")
	s = strings.ReplaceAll(s, " ", "")
	if sep == SeparatorComma {
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

func cleanAmount(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", ""))
}

// detectSeparator finds the decimal separator of a number when the text makes
// it unambiguous: both separators present (the last one is decimal), or a
// single separator not followed by exactly three digits.
func detectSeparator(s string) (rune, bool) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return SeparatorDot, true
		}
		return SeparatorComma, true
	case lastDot >= 0:
		if strings.Count(s, ".") == 1 && len(s)-lastDot-1 != 3 {
			return SeparatorDot, true
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			return SeparatorComma, true
		}
	}
	return 0, false
}
