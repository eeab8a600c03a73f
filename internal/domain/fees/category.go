package fees

// Category is a key in the fixed fee taxonomy
type Category string

const (
	CategoryFBAFulfillment          Category = "fba-fulfillment"
	CategoryMultiChannelFulfillment Category = "multi-channel-fulfillment"
	CategoryReferral                Category = "referral"
	CategoryStorage                 Category = "storage"
	CategoryLongTermStorage         Category = "long-term-storage"
	CategoryInbound                 Category = "inbound"
	CategoryDisposal                Category = "disposal"
	CategoryDigitalServices         Category = "digital-services"
	CategoryWarehouseDamage         Category = "warehouse-damage"
	CategoryWarehouseLost           Category = "warehouse-lost"
	CategoryReversal                Category = "reversal"
	CategoryRefundedReferral        Category = "refunded-referral"
	CategoryPromotion               Category = "promotion"
	CategoryRefundCommission        Category = "refund-commission"
	CategorySubscription            Category = "subscription"
	CategoryOther                   Category = "other"
)

// allCategories is the taxonomy in reporting order.
var allCategories = []Category{
	CategoryFBAFulfillment,
	CategoryMultiChannelFulfillment,
	CategoryReferral,
	CategoryStorage,
	CategoryLongTermStorage,
	CategoryInbound,
	CategoryDisposal,
	CategoryDigitalServices,
	CategoryWarehouseDamage,
	CategoryWarehouseLost,
	CategoryReversal,
	CategoryRefundedReferral,
	CategoryPromotion,
	CategoryRefundCommission,
	CategorySubscription,
	CategoryOther,
}

// Categories returns every taxonomy key in reporting order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// IsValid returns true if the category is part of the taxonomy
func (c Category) IsValid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IsReimbursement reports whether the category keeps the original sign of its
// rows. These are credits back to the seller that net against charges.
func (c Category) IsReimbursement() bool {
	switch c {
	case CategoryWarehouseDamage, CategoryWarehouseLost, CategoryReversal, CategoryRefundedReferral:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (c Category) String() string {
	return string(c)
}
