package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/infrastructure/logger"
	"github.com/sellerledger/backend/internal/infrastructure/telemetry"
	"github.com/sellerledger/backend/internal/interfaces/http/handler"
	"github.com/sellerledger/backend/internal/interfaces/http/middleware"
)

// Handlers groups the HTTP handlers served by the engine
type Handlers struct {
	System         *handler.SystemHandler
	Sync           *handler.SyncHandler
	Reconciliation *handler.ReconciliationHandler
	Ledger         *handler.LedgerHandler
}

// EngineConfig holds the cross-cutting settings of the HTTP engine
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	MeterProvider  *telemetry.MeterProvider
	MaxBodySize    int64
	TrustedProxies []string
	Cron           middleware.CronAuthConfig
}

// NewEngine builds the gin engine with middleware and every API route:
//
//	GET  /health
//	GET  /api/v1/system/info
//	POST /api/v1/internal/cron/sync
//	POST /api/v1/accounts/:account_id/sync
//	GET  /api/v1/accounts/:account_id/sync-runs
//	GET  /api/v1/accounts/:account_id/daily-summaries
//	GET  /api/v1/accounts/:account_id/orders/:order_id/line-fees
//	GET  /api/v1/diagnostics/accounts/:account_id/reconciliation
//	GET  /api/v1/diagnostics/accounts/:account_id/trace
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		Enabled:       cfg.MeterProvider != nil,
	}))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.GET("/health", h.System.Health)
	engine.NoRoute(h.System.NotFound)

	if cfg.Cron.Logger == nil {
		cfg.Cron.Logger = log
	}

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	cron := NewDomainGroup("cron", "/internal/cron")
	cron.Use(middleware.CronAuth(cfg.Cron))
	cron.POST("/sync", h.Sync.CronSync)

	accounts := NewDomainGroup("accounts", "/accounts/:account_id")
	accounts.POST("/sync", h.Sync.TriggerAccountSync)
	accounts.GET("/sync-runs", h.Sync.ListSyncRuns)
	accounts.GET("/daily-summaries", h.Ledger.ListDailySummaries)
	accounts.GET("/orders/:order_id/line-fees", h.Ledger.GetOrderLineFees)

	diagnostics := NewDomainGroup("diagnostics", "/diagnostics")
	diagnosticAccounts := diagnostics.Group("accounts", "/accounts/:account_id")
	diagnosticAccounts.GET("/reconciliation", h.Reconciliation.Compare)
	diagnosticAccounts.GET("/trace", h.Reconciliation.Trace)

	NewRouter(engine, WithAPIVersion("v1")).
		Register(system).
		Register(cron).
		Register(accounts).
		Register(diagnostics).
		Setup()

	return engine, nil
}
