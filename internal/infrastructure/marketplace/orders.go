package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// ListOrders returns one page of orders created in the request window
func (c *Client) ListOrders(ctx context.Context, req integration.OrderListRequest) (*integration.OrderListPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	if req.NextToken != "" {
		query.Set("NextToken", req.NextToken)
	} else {
		query.Set("MarketplaceIds", req.Account.MarketplaceID)
		query.Set("CreatedAfter", formatTime(req.CreatedAfter))
		if !req.CreatedBefore.IsZero() {
			query.Set("CreatedBefore", formatTime(req.CreatedBefore))
		}
	}
	query.Set("MaxResultsPerPage", strconv.Itoa(req.PageSize))

	body, err := c.doGet(ctx, req.Account, "/orders/v0/orders", query, c.config.MaxResponseSize)
	if err != nil {
		return nil, err
	}
	payload, err := decodePayload(body)
	if err != nil {
		return nil, err
	}

	page := &integration.OrderListPage{NextToken: payload.String("NextToken")}
	for _, o := range payload.List("Orders") {
		order := convertOrder(o)
		if order.OrderID == "" {
			continue
		}
		page.Orders = append(page.Orders, order)
	}
	return page, nil
}

// GetOrderItems returns the line items of one order, following pagination
func (c *Client) GetOrderItems(ctx context.Context, account integration.SellerAccount, orderID string) ([]integration.OrderLineItem, error) {
	if orderID == "" {
		return nil, fmt.Errorf("marketplace: order id is required")
	}
	path := "/orders/v0/orders/" + url.PathEscape(orderID) + "/orderItems"

	var items []integration.OrderLineItem
	next := ""
	for {
		var query url.Values
		if next != "" {
			query = url.Values{"NextToken": {next}}
		}
		body, err := c.doGet(ctx, account, path, query, c.config.MaxResponseSize)
		if err != nil {
			return nil, err
		}
		payload, err := decodePayload(body)
		if err != nil {
			return nil, err
		}
		for _, it := range payload.List("OrderItems") {
			item := convertOrderItem(it)
			if item.OrderItemID == "" {
				continue
			}
			items = append(items, item)
		}
		next = payload.String("NextToken")
		if next == "" {
			return items, nil
		}
	}
}

func convertOrder(o record) integration.RemoteOrder {
	total, currency := o.Money("OrderTotal")
	return integration.RemoteOrder{
		OrderID:       o.String("AmazonOrderId"),
		PurchaseDate:  o.Time("PurchaseDate"),
		LastUpdated:   o.Time("LastUpdateDate"),
		Status:        o.String("OrderStatus"),
		MarketplaceID: o.String("MarketplaceId"),
		Currency:      currency,
		OrderTotal:    total,
	}
}

func convertOrderItem(it record) integration.OrderLineItem {
	price, currency := it.Money("ItemPrice")
	return integration.OrderLineItem{
		OrderItemID: it.String("OrderItemId"),
		ASIN:        it.String("ASIN"),
		SKU:         it.String("SellerSKU"),
		Title:       it.String("Title"),
		Quantity:    it.Int("QuantityOrdered"),
		ItemPrice:   price,
		Currency:    currency,
	}
}
