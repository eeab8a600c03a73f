package handler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/application/feesync"
	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/infrastructure/scheduler"
	"github.com/sellerledger/backend/internal/interfaces/http/dto"
)

const defaultSyncRunsLimit = 20

// SyncService is the part of the sync orchestrator the API drives
type SyncService interface {
	RunIncrementalSync(ctx context.Context, accountID string, opts feesync.SyncOptions) (*feesync.SyncReport, error)
	RunOrdersSync(ctx context.Context, accountID string, trigger integration.RunTrigger) (*integration.SyncRunRecord, error)
	RunOrderItemsSync(ctx context.Context, accountID string, opts feesync.ItemsOptions) (*feesync.SyncReport, error)
	RunFinancialEventsSync(ctx context.Context, accountID string, opts feesync.EventsOptions) (*integration.SyncRunRecord, error)
	RunSettlementSync(ctx context.Context, accountID string, trigger integration.RunTrigger) (*integration.SyncRunRecord, error)
	History(ctx context.Context, accountID string, limit int) ([]integration.SyncRunRecord, error)
}

// FanOut syncs every enabled account
type FanOut interface {
	RunAll(ctx context.Context, trigger integration.RunTrigger) (*scheduler.FanOutResult, error)
}

var (
	_ SyncService = (*feesync.Service)(nil)
	_ FanOut      = (*scheduler.AccountSyncScheduler)(nil)
)

// SyncHandler handles sync trigger and history endpoints
type SyncHandler struct {
	BaseHandler
	service SyncService
	fanOut  FanOut
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService, fanOut FanOut, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		BaseHandler: newBaseHandler(logger),
		service:     service,
		fanOut:      fanOut,
	}
}

// TriggerAccountSync godoc
// @ID           triggerAccountSync
// @Summary      Sync one seller account
// @Description  Runs the incremental sync, or a single pass when sync_type is set, and returns the runs it recorded
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        account_id  path      string                  true   "Seller account ID"
// @Param        request     body      dto.TriggerSyncRequest  false  "Sync options"
// @Success      200         {object}  dto.Response{data=dto.SyncResultResponse}
// @Failure      400         {object}  dto.Response
// @Failure      404         {object}  dto.Response
// @Failure      409         {object}  dto.Response
// @Failure      502         {object}  dto.Response
// @Router       /accounts/{account_id}/sync [post]
func (h *SyncHandler) TriggerAccountSync(c *gin.Context) {
	accountID := c.Param("account_id")

	var req dto.TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.ValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	trigger := integration.RunTriggerUser

	var (
		report *feesync.SyncReport
		run    *integration.SyncRunRecord
		err    error
	)
	switch req.SyncType {
	case "", dto.SyncTypeIncremental:
		report, err = h.service.RunIncrementalSync(ctx, accountID, feesync.SyncOptions{Trigger: trigger, Force: req.Force})
	case integration.SyncTypeOrders.String():
		run, err = h.service.RunOrdersSync(ctx, accountID, trigger)
	case integration.SyncTypeOrderItems.String():
		report, err = h.service.RunOrderItemsSync(ctx, accountID, feesync.ItemsOptions{Trigger: trigger, Force: req.Force, Limit: req.Limit})
	case integration.SyncTypeFinancialEvents.String():
		opts := feesync.EventsOptions{Trigger: trigger}
		if req.From != nil {
			opts.From = req.From.UTC()
		}
		if req.To != nil {
			opts.To = req.To.UTC()
		}
		run, err = h.service.RunFinancialEventsSync(ctx, accountID, opts)
	case integration.SyncTypeSettlements.String():
		run, err = h.service.RunSettlementSync(ctx, accountID, trigger)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if report != nil {
		h.Success(c, toSyncResult(report))
		return
	}
	resp := dto.SyncResultResponse{AccountID: accountID, Runs: []dto.SyncRunResponse{}}
	if run != nil {
		resp.Status = run.Status.String()
		resp.Runs = append(resp.Runs, dto.ToSyncRunResponse(run))
	}
	h.Success(c, resp)
}

// ListSyncRuns godoc
// @ID           listSyncRuns
// @Summary      List sync runs
// @Description  Returns the most recent runs of one account, newest first
// @Tags         sync
// @Produce      json
// @Param        account_id  path      string  true   "Seller account ID"
// @Param        limit       query     int     false  "Maximum number of runs"  minimum(1)  maximum(200)  default(20)
// @Success      200         {object}  dto.Response{data=[]dto.SyncRunResponse}
// @Failure      400         {object}  dto.Response
// @Router       /accounts/{account_id}/sync-runs [get]
func (h *SyncHandler) ListSyncRuns(c *gin.Context) {
	var query dto.SyncRunsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultSyncRunsLimit
	}

	runs, err := h.service.History(c.Request.Context(), c.Param("account_id"), query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSyncRunResponses(runs))
}

// CronSync godoc
// @ID           cronSync
// @Summary      Sync every enabled account
// @Description  Entry point of the external scheduler, guarded by the shared trigger secret
// @Tags         sync
// @Produce      json
// @Param        X-Cron-Secret  header    string  true  "Shared trigger secret"
// @Success      200            {object}  dto.Response{data=scheduler.FanOutResult}
// @Failure      401            {object}  dto.Response
// @Failure      409            {object}  dto.Response
// @Failure      422            {object}  dto.Response
// @Router       /internal/cron/sync [post]
func (h *SyncHandler) CronSync(c *gin.Context) {
	if h.fanOut == nil {
		h.ErrorWithCode(c, dto.ErrCodeSourceUnavailable, "Scheduled sync is not configured")
		return
	}

	// The fan-out outlives a dropped client connection.
	ctx := context.WithoutCancel(c.Request.Context())
	start := time.Now()
	result, err := h.fanOut.RunAll(ctx, integration.RunTriggerSchedule)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Cron sync finished",
		zap.Int("accounts", len(result.Jobs)),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	h.Success(c, result)
}

func toSyncResult(report *feesync.SyncReport) dto.SyncResultResponse {
	resp := dto.SyncResultResponse{
		AccountID: report.AccountID,
		Status:    report.Status().String(),
		Runs:      make([]dto.SyncRunResponse, 0, len(report.Runs)),
	}
	for _, run := range report.Runs {
		resp.Runs = append(resp.Runs, dto.ToSyncRunResponse(run))
	}
	for _, t := range report.Skipped {
		resp.Skipped = append(resp.Skipped, t.String())
	}
	return resp
}
