package fees

import (
	"errors"
	"fmt"
	"iter"

	"github.com/shopspring/decimal"
)

// ErrClassificationGap marks a row that matched no category rule. It is never
// fatal; such rows are accumulated into the uncategorized bucket.
var ErrClassificationGap = errors.New("fees: no classification rule matched")

// Outcome is what happened to one row during classification
type Outcome string

const (
	OutcomeClassified    Outcome = "classified"
	OutcomeUncategorized Outcome = "uncategorized"
	OutcomeRevenue       Outcome = "revenue"
	OutcomeExcluded      Outcome = "excluded"
)

// Assignment is the per-row classification result
type Assignment struct {
	Row      TransactionRow `json:"row"`
	Outcome  Outcome        `json:"outcome"`
	Category Category       `json:"category,omitempty"`
	Rule     string         `json:"rule,omitempty"`
	// Contribution is the value added to the category total after the sign policy.
	Contribution decimal.Decimal `json:"contribution"`
}

// Err returns ErrClassificationGap for uncategorized rows, nil otherwise
func (a Assignment) Err() error {
	if a.Outcome != OutcomeUncategorized {
		return nil
	}
	return fmt.Errorf("%w: type=%q description=%q amount=%s",
		ErrClassificationGap, a.Row.AmountType, a.Row.AmountDescription, a.Row.Amount.String())
}

// Classifier assigns rows to categories using an ordered rule list
type Classifier struct {
	rules []Rule
}

// ClassifierOption configures a Classifier
type ClassifierOption func(*Classifier)

// WithRules replaces the built-in rule list
func WithRules(rules []Rule) ClassifierOption {
	return func(c *Classifier) {
		c.rules = rules
	}
}

// NewClassifier creates a classifier using DefaultRules unless overridden
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{rules: DefaultRules()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns the rules in evaluation order
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Assign classifies a single row
func (c *Classifier) Assign(row TransactionRow) Assignment {
	a := Assignment{Row: row, Contribution: decimal.Zero}
	if row.Excluded() {
		a.Outcome = OutcomeExcluded
		return a
	}

	text := newRowText(row)
	if isRevenue(text) {
		a.Outcome = OutcomeRevenue
		return a
	}

	for _, rule := range c.rules {
		if rule.Match(text) {
			a.Outcome = OutcomeClassified
			a.Category = rule.Category
			a.Rule = rule.Name
			a.Contribution = SignedContribution(rule.Category, row.Amount)
			return a
		}
	}

	a.Outcome = OutcomeUncategorized
	return a
}

// Classify accumulates rows into category totals
func (c *Classifier) Classify(rows []TransactionRow) *Totals {
	totals := NewTotals()
	for _, row := range rows {
		totals.Apply(c.Assign(row))
	}
	return totals
}

// ClassifyWithTrace accumulates rows and also returns each row's assignment
func (c *Classifier) ClassifyWithTrace(rows []TransactionRow) (*Totals, []Assignment) {
	totals := NewTotals()
	trace := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		a := c.Assign(row)
		totals.Apply(a)
		trace = append(trace, a)
	}
	return totals, trace
}

// ClassifySeq classifies a lazy row sequence, stopping at the first error the
// sequence yields.
func (c *Classifier) ClassifySeq(rows iter.Seq2[TransactionRow, error]) (*Totals, []Assignment, error) {
	totals := NewTotals()
	var trace []Assignment
	for row, err := range rows {
		if err != nil {
			return nil, nil, err
		}
		a := c.Assign(row)
		totals.Apply(a)
		trace = append(trace, a)
	}
	return totals, trace, nil
}

var defaultClassifier = NewClassifier()

// Classify classifies rows with the built-in rules
func Classify(rows []TransactionRow) *Totals {
	return defaultClassifier.Classify(rows)
}

// ClassifyWithTrace classifies rows with the built-in rules and returns the trace
func ClassifyWithTrace(rows []TransactionRow) (*Totals, []Assignment) {
	return defaultClassifier.ClassifyWithTrace(rows)
}
