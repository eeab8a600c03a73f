package fees

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RowText is the lower-cased view of a row that rules match against
type RowText struct {
	Type        string
	Description string
	Amount      decimal.Decimal
}

func newRowText(r TransactionRow) RowText {
	return RowText{
		Type:        strings.ToLower(strings.TrimSpace(r.AmountType)),
		Description: strings.ToLower(strings.TrimSpace(r.AmountDescription)),
		Amount:      r.Amount,
	}
}

// Has reports whether the type or the description contains any of the substrings
func (t RowText) Has(subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t.Type, s) || strings.Contains(t.Description, s) {
			return true
		}
	}
	return false
}

// DescriptionHas reports whether the description contains any of the substrings
func (t RowText) DescriptionHas(subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t.Description, s) {
			return true
		}
	}
	return false
}

// Rule is one (predicate, category) pair. Rules are evaluated in order and
// the first match wins.
type Rule struct {
	Name     string
	Category Category
	Match    func(RowText) bool
}

// genericFeeMarkers route an otherwise unmatched negative row into "other".
var genericFeeMarkers = []string{"fee", "charge", "commission"}

// defaultRules encodes precedence through order: long-term storage before
// storage, multi-channel before fba, reimbursements before the charges whose
// wording they reuse.
var defaultRules = []Rule{
	{
		Name:     "long-term-storage",
		Category: CategoryLongTermStorage,
		Match: func(t RowText) bool {
			return t.Has("long-term storage", "long term storage", "longtermstorage", "long-term-storage")
		},
	},
	{
		Name:     "multi-channel-fulfillment",
		Category: CategoryMultiChannelFulfillment,
		Match: func(t RowText) bool {
			return t.Has("multi-channel", "multichannel", "multi channel", "mcf")
		},
	},
	{
		Name:     "warehouse-damage",
		Category: CategoryWarehouseDamage,
		Match: func(t RowText) bool {
			return t.Has("warehouse damage", "warehouse_damage", "warehousedamage")
		},
	},
	{
		Name:     "warehouse-lost",
		Category: CategoryWarehouseLost,
		Match: func(t RowText) bool {
			return t.Has("warehouse lost", "warehouse_lost", "warehouselost")
		},
	},
	{
		Name:     "reversal",
		Category: CategoryReversal,
		Match: func(t RowText) bool {
			return t.Has("reversal")
		},
	},
	{
		Name:     "refund-commission",
		Category: CategoryRefundCommission,
		Match: func(t RowText) bool {
			return t.Has("refundcommission", "refund commission", "refund_commission")
		},
	},
	{
		Name:     "refunded-referral",
		Category: CategoryRefundedReferral,
		Match: func(t RowText) bool {
			return t.Has("referral") && t.DescriptionHas("refund")
		},
	},
	{
		Name:     "referral",
		Category: CategoryReferral,
		Match: func(t RowText) bool {
			if t.DescriptionHas("refund") {
				return false
			}
			return t.Has("referral") || t.Description == "commission"
		},
	},
	{
		Name:     "digital-services",
		Category: CategoryDigitalServices,
		Match: func(t RowText) bool {
			return t.Has("digital services", "digitalservices", "digital-services")
		},
	},
	{
		Name:     "storage",
		Category: CategoryStorage,
		Match: func(t RowText) bool {
			return t.Has("storage")
		},
	},
	{
		Name:     "inbound",
		Category: CategoryInbound,
		Match: func(t RowText) bool {
			return t.Has("inbound", "placement")
		},
	},
	{
		Name:     "disposal",
		Category: CategoryDisposal,
		Match: func(t RowText) bool {
			return t.Has("disposal", "removal")
		},
	},
	{
		Name:     "fba-fulfillment",
		Category: CategoryFBAFulfillment,
		Match: func(t RowText) bool {
			return t.Has("fba", "fulfillment", "fulfilment") && !t.Has("reimbursement")
		},
	},
	{
		Name:     "promotion",
		Category: CategoryPromotion,
		Match: func(t RowText) bool {
			return t.Has("promotion", "promo", "coupon")
		},
	},
	{
		Name:     "subscription",
		Category: CategorySubscription,
		Match: func(t RowText) bool {
			return t.Has("subscription")
		},
	},
	{
		Name:     "other",
		Category: CategoryOther,
		Match: func(t RowText) bool {
			return t.Amount.IsNegative() && t.Has(genericFeeMarkers...)
		},
	},
}

// DefaultRules returns a copy of the built-in ordered rule list
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// revenueAmountTypes are settlement amount types that carry price components
// rather than fees.
var revenueAmountTypes = map[string]bool{
	"itemprice":       true,
	"itemwithheldtax": true,
}

// isRevenue reports whether the row is a price component, not a fee
func isRevenue(t RowText) bool {
	return revenueAmountTypes[t.Type]
}
