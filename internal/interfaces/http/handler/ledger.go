package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/application/ledgerview"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

// LedgerReader reads the stored ledger of one account
type LedgerReader interface {
	DailySummaries(ctx context.Context, accountID string, from, to time.Time) ([]ledger.DailyFinancialSummary, error)
	OrderLines(ctx context.Context, accountID, orderID string) ([]ledger.OrderLineFeeRecord, error)
}

var _ LedgerReader = (*ledgerview.Service)(nil)

// LedgerHandler serves the stored daily summaries and order line fees
type LedgerHandler struct {
	BaseHandler
	reader LedgerReader
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(reader LedgerReader, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: newBaseHandler(logger),
		reader:      reader,
	}
}

// ListDailySummaries godoc
// @ID           listDailySummaries
// @Summary      List daily financial summaries
// @Description  Returns the stored summaries of the dates in [from, to), oldest first. Dates without activity are absent.
// @Tags         ledger
// @Produce      json
// @Param        account_id  path      string  true  "Seller account ID"
// @Param        from        query     string  true  "First date, inclusive"  format(date)
// @Param        to          query     string  true  "End date, exclusive"    format(date)
// @Success      200         {object}  dto.Response{data=[]dto.DailySummaryResponse}
// @Failure      400         {object}  dto.Response
// @Failure      404         {object}  dto.Response
// @Router       /accounts/{account_id}/daily-summaries [get]
func (h *LedgerHandler) ListDailySummaries(c *gin.Context) {
	var query dto.PeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	summaries, err := h.reader.DailySummaries(c.Request.Context(), c.Param("account_id"), query.From, query.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToDailySummaryResponses(summaries))
}

// GetOrderLineFees godoc
// @ID           getOrderLineFees
// @Summary      Get the stored fees of an order
// @Description  Returns every stored line of one order with its fee categories and fee source
// @Tags         ledger
// @Produce      json
// @Param        account_id  path      string  true  "Seller account ID"
// @Param        order_id    path      string  true  "Marketplace order ID"
// @Success      200         {object}  dto.Response{data=dto.OrderLineFeesResponse}
// @Failure      400         {object}  dto.Response
// @Failure      404         {object}  dto.Response
// @Router       /accounts/{account_id}/orders/{order_id}/line-fees [get]
func (h *LedgerHandler) GetOrderLineFees(c *gin.Context) {
	var path dto.OrderPath
	if err := c.ShouldBindUri(&path); err != nil {
		h.ValidationError(c, err)
		return
	}
	accountID := c.Param("account_id")

	lines, err := h.reader.OrderLines(c.Request.Context(), accountID, path.OrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOrderLineFeesResponse(accountID, path.OrderID, lines))
}
