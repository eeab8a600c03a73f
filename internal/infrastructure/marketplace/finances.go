package marketplace

import (
	"context"
	"net/url"
	"strings"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/integration"
)

// ListFinancialEvents returns one page of events posted in the request window
func (c *Client) ListFinancialEvents(ctx context.Context, req integration.FinancialEventsRequest) (*integration.FinancialEventsPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	if req.NextToken != "" {
		query.Set("NextToken", req.NextToken)
	} else {
		query.Set("PostedAfter", formatTime(req.PostedAfter))
		query.Set("PostedBefore", formatTime(req.PostedBefore))
	}
	query.Set("MaxResultsPerPage", "100")

	body, err := c.doGet(ctx, req.Account, "/finances/v0/financialEvents", query, c.config.MaxResponseSize)
	if err != nil {
		return nil, err
	}
	payload, err := decodePayload(body)
	if err != nil {
		return nil, err
	}

	page := &integration.FinancialEventsPage{NextToken: payload.String("NextToken")}
	groups := payload.Object("FinancialEvents")
	if groups == nil {
		return page, nil
	}

	for _, e := range groups.List("ShipmentEventList") {
		page.Events = append(page.Events, convertOrderEvent(fees.EventKindShipment, e, "ShipmentItemList",
			"ItemChargeList", "ItemFeeList", "PromotionList"))
	}
	for _, e := range groups.List("RefundEventList") {
		page.Events = append(page.Events, convertOrderEvent(fees.EventKindRefund, e, "ShipmentItemAdjustmentList",
			"ItemChargeAdjustmentList", "ItemFeeAdjustmentList", "PromotionAdjustmentList"))
	}
	for _, e := range groups.List("AdjustmentEventList") {
		page.Events = append(page.Events, convertAdjustmentEvent(e))
	}
	for _, e := range groups.List("ServiceFeeEventList") {
		page.Events = append(page.Events, convertServiceFeeEvent(e))
	}

	// Service fee events carry no posted date; they are attributed to the window end.
	for i := range page.Events {
		if page.Events[i].PostedDate.IsZero() {
			page.Events[i].PostedDate = req.PostedBefore.UTC()
		}
	}
	return page, nil
}

func convertOrderEvent(kind fees.EventKind, e record, itemList, chargeList, feeList, promoList string) fees.FinancialEvent {
	event := fees.FinancialEvent{
		Kind:            kind,
		OrderID:         e.String("AmazonOrderId"),
		PostedDate:      e.Time("PostedDate"),
		MarketplaceName: e.String("MarketplaceName"),
	}
	for _, it := range e.List(itemList) {
		qty := it.Int("QuantityShipped")
		if qty == 0 {
			qty = it.Int("Quantity")
		}
		event.Items = append(event.Items, fees.EventItem{
			OrderItemID: firstNonEmpty(it.String("OrderItemId"), it.String("OrderAdjustmentItemId")),
			SKU:         it.String("SellerSKU"),
			Quantity:    qty,
			Charges:     components(it.List(chargeList), "ChargeType", "ChargeAmount"),
			Fees:        components(it.List(feeList), "FeeType", "FeeAmount"),
			Promotions:  components(it.List(promoList), "PromotionType", "PromotionAmount"),
		})
	}
	return event
}

// convertAdjustmentEvent maps an adjustment. Items that report a per-unit
// amount become per-unit components so the quantity multiplication happens
// once, in flattening.
func convertAdjustmentEvent(e record) fees.FinancialEvent {
	amount, _ := e.Money("AdjustmentAmount")
	event := fees.FinancialEvent{
		Kind:           fees.EventKindAdjustment,
		OrderID:        e.String("AmazonOrderId"),
		PostedDate:     e.Time("PostedDate"),
		AdjustmentType: e.String("AdjustmentType"),
		Amount:         amount,
	}
	for _, it := range e.List("AdjustmentItemList") {
		qty := it.Int("Quantity")
		item := fees.EventItem{
			OrderItemID: it.String("OrderItemId"),
			SKU:         it.String("SellerSKU"),
			Quantity:    qty,
		}
		total, _ := it.Money("TotalAmount")
		perUnit, _ := it.Money("PerUnitAmount")
		switch {
		case !total.IsZero():
			item.Charges = []fees.Component{{Type: event.AdjustmentType, Amount: total}}
		case !perUnit.IsZero():
			item.Charges = []fees.Component{{Type: event.AdjustmentType, Amount: perUnit, PerUnit: true}}
		}
		event.Items = append(event.Items, item)
	}
	return event
}

func convertServiceFeeEvent(e record) fees.FinancialEvent {
	event := fees.FinancialEvent{
		Kind:       fees.EventKindServiceFee,
		OrderID:    e.String("AmazonOrderId"),
		PostedDate: e.Time("PostedDate"),
		Fees:       components(e.List("FeeList"), "FeeType", "FeeAmount"),
	}
	if reason := e.String("FeeReason"); reason != "" {
		for i := range event.Fees {
			if event.Fees[i].Type == "" {
				event.Fees[i].Type = reason
			}
		}
	}
	return event
}

func components(list []record, typeField, amountField string) []fees.Component {
	if len(list) == 0 {
		return nil
	}
	out := make([]fees.Component, 0, len(list))
	for _, r := range list {
		amount, _ := r.Money(amountField)
		out = append(out, fees.Component{Type: r.String(typeField), Amount: amount})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
