package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/application/reconciliation"
	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

// Reconciler compares and traces the fee sources of one account
type Reconciler interface {
	Compare(ctx context.Context, accountID string, period reconciliation.Period) (*reconciliation.Report, error)
	Trace(ctx context.Context, accountID string, req reconciliation.TraceRequest) (*reconciliation.Trace, error)
}

var _ Reconciler = (*reconciliation.Comparator)(nil)

// ReconciliationHandler serves the diagnostic reconciliation endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconciler Reconciler
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconciler Reconciler, logger *zap.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		BaseHandler: newBaseHandler(logger),
		reconciler:  reconciler,
	}
}

// Compare godoc
// @ID           compareFees
// @Summary      Compare settlement and stored fees
// @Description  Returns the per-category diff between settlement documents and stored line fees for [from, to)
// @Tags         diagnostics
// @Produce      json
// @Param        account_id  path      string  true  "Seller account ID"
// @Param        from        query     string  true  "First date, inclusive"  format(date)
// @Param        to          query     string  true  "End date, exclusive"    format(date)
// @Success      200         {object}  dto.Response{data=reconciliation.Report}
// @Failure      400         {object}  dto.Response
// @Failure      404         {object}  dto.Response
// @Failure      422         {object}  dto.Response
// @Failure      502         {object}  dto.Response
// @Router       /diagnostics/accounts/{account_id}/reconciliation [get]
func (h *ReconciliationHandler) Compare(c *gin.Context) {
	var query dto.PeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	report, err := h.reconciler.Compare(c.Request.Context(), c.Param("account_id"), reconciliation.Period{
		From: query.From,
		To:   query.To,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Trace godoc
// @ID           traceFees
// @Summary      Trace fee classification
// @Description  Returns the per-row classification of a settlement document, or of the financial events of a period when document_id is empty
// @Tags         diagnostics
// @Produce      json
// @Param        account_id   path      string  true   "Seller account ID"
// @Param        document_id  query     string  false  "Settlement document ID"
// @Param        from         query     string  false  "First date, inclusive"  format(date)
// @Param        to           query     string  false  "End date, exclusive"    format(date)
// @Success      200          {object}  dto.Response{data=reconciliation.Trace}
// @Failure      400          {object}  dto.Response
// @Failure      404          {object}  dto.Response
// @Failure      422          {object}  dto.Response
// @Failure      502          {object}  dto.Response
// @Router       /diagnostics/accounts/{account_id}/trace [get]
func (h *ReconciliationHandler) Trace(c *gin.Context) {
	var query dto.TraceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	trace, err := h.reconciler.Trace(c.Request.Context(), c.Param("account_id"), reconciliation.TraceRequest{
		DocumentID: query.DocumentID,
		Period:     reconciliation.Period{From: query.From, To: query.To},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trace)
}
