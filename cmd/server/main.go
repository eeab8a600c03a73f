package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/application/feesync"
	"github.com/sellerledger/backend/internal/application/ledgerview"
	"github.com/sellerledger/backend/internal/application/reconciliation"
	"github.com/sellerledger/backend/internal/infrastructure/cache"
	"github.com/sellerledger/backend/internal/infrastructure/config"
	"github.com/sellerledger/backend/internal/infrastructure/logger"
	"github.com/sellerledger/backend/internal/infrastructure/marketplace"
	"github.com/sellerledger/backend/internal/infrastructure/persistence"
	"github.com/sellerledger/backend/internal/infrastructure/scheduler"
	"github.com/sellerledger/backend/internal/infrastructure/settlement"
	"github.com/sellerledger/backend/internal/infrastructure/storage"
	"github.com/sellerledger/backend/internal/infrastructure/telemetry"
	"github.com/sellerledger/backend/internal/interfaces/http/handler"
	"github.com/sellerledger/backend/internal/interfaces/http/middleware"
	"github.com/sellerledger/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

//	@title			Seller Ledger API
//	@version		1.0
//	@description	Marketplace seller fee ledger: account sync, stored ledger views and reconciliation diagnostics

//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers come first so the service logger can bridge to OTLP.
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogExportEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	log := telemetry.NewBridgedLogger(logCfg, lp, cfg.Telemetry.ServiceName, cfg.Telemetry.LogExportLevel)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting seller ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		if _, err := telemetry.RegisterPoolMetrics(mp.Meter("db.pool"), sqlDB); err != nil {
			log.Warn("Failed to register pool metrics", zap.Error(err))
		}
	}

	// Repositories
	accountRepo := persistence.NewGormSellerAccountRepository(db.DB)
	runRepo := persistence.NewGormSyncRunRepository(db.DB)
	cursorRepo := persistence.NewGormSyncCursorRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	lineRepo := persistence.NewGormOrderLineFeeRepository(db.DB)
	summaryRepo := persistence.NewGormDailySummaryRepository(db.DB)
	catalogRepo := persistence.NewGormCatalogPriceRepository(db.DB)

	// Run guard: Redis when reachable, in-process otherwise
	guard, err := cache.NewRunGuardFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
		cache.WithGuardOptions(cache.WithLockTTL(cfg.Sync.RunLockTTL)),
	).CreateGuard()
	if err != nil {
		log.Fatal("Failed to create sync run guard", zap.Error(err))
	}

	// Remote seller-data API
	apiConfig := marketplace.DefaultConfig()
	if cfg.SellerAPI.BaseURL != "" {
		apiConfig.BaseURL = cfg.SellerAPI.BaseURL
	}
	if cfg.SellerAPI.TimeoutSeconds > 0 {
		apiConfig.TimeoutSeconds = cfg.SellerAPI.TimeoutSeconds
	}
	if cfg.SellerAPI.MaxResponseSize > 0 {
		apiConfig.MaxResponseSize = cfg.SellerAPI.MaxResponseSize
	}
	if cfg.SellerAPI.UserAgent != "" {
		apiConfig.UserAgent = cfg.SellerAPI.UserAgent
	}
	apiClient, err := marketplace.NewClient(apiConfig, marketplace.WithLogger(log.Named("marketplace")))
	if err != nil {
		log.Fatal("Failed to create seller data API client", zap.Error(err))
	}

	// Settlement documents, with the raw archive when object storage is enabled
	loaderOpts := []settlement.LoaderOption{settlement.WithLoaderLogger(log.Named("settlement"))}
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3SettlementArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create settlement archive", zap.Error(err))
		}
		loaderOpts = append(loaderOpts, settlement.WithArchive(archive, cfg.Sync.ArchiveSettlements))
		log.Info("Settlement archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}
	loader := settlement.NewLoader(apiClient, loaderOpts...)

	// Sync orchestrator
	syncMetrics, err := telemetry.NewSyncMetrics(mp.Meter("sellerledger.sync"))
	if err != nil {
		log.Warn("Failed to create sync metrics", zap.Error(err))
	}
	feeSyncConfig := syncConfig(cfg.Sync)
	// one throttle for every caller of the seller-data API
	throttle := marketplace.NewThrottle(feeSyncConfig.InterCallDelay, feeSyncConfig.CallTimeout)
	syncService, err := feesync.NewService(feesync.Dependencies{
		Accounts:    accountRepo,
		Runs:        runRepo,
		Cursors:     cursorRepo,
		Guard:       guard,
		API:         apiClient,
		Settlements: loader,
		Orders:      orderRepo,
		Lines:       lineRepo,
		Summaries:   summaryRepo,
		Catalog:     catalogRepo,
	}, feeSyncConfig,
		feesync.WithLogger(log.Named("feesync")),
		feesync.WithMetrics(syncMetrics),
		feesync.WithThrottle(throttle),
	)
	if err != nil {
		log.Fatal("Failed to create sync service", zap.Error(err))
	}

	// Reconciliation comparator
	reconConfig := reconciliation.DefaultConfig()
	reconConfig.Epsilon = cfg.Reconciliation.EpsilonDecimal()
	reconConfig.IncludeEvents = cfg.Reconciliation.IncludeEvents
	if cfg.Reconciliation.MaxFlaggedRows > 0 {
		reconConfig.MaxFlaggedRows = cfg.Reconciliation.MaxFlaggedRows
	}
	comparator, err := reconciliation.NewComparator(reconciliation.Dependencies{
		Accounts:    accountRepo,
		Lines:       lineRepo,
		Settlements: loader.ReadOnly(),
		API:         apiClient,
		Throttle:    throttle,
	}, reconConfig, reconciliation.WithLogger(log.Named("reconciliation")))
	if err != nil {
		log.Fatal("Failed to create reconciliation comparator", zap.Error(err))
	}

	// Stored ledger views
	ledgerService, err := ledgerview.NewService(ledgerview.Dependencies{
		Accounts:  accountRepo,
		Summaries: summaryRepo,
		Lines:     lineRepo,
	}, ledgerview.WithLogger(log.Named("ledgerview")))
	if err != nil {
		log.Fatal("Failed to create ledger view service", zap.Error(err))
	}

	// Scheduled fan-out across enabled accounts
	fanOutConfig := scheduler.DefaultAccountSyncConfig()
	if cfg.Sync.MaxConcurrentAccounts > 0 {
		fanOutConfig.MaxConcurrentAccounts = cfg.Sync.MaxConcurrentAccounts
	}
	if cfg.Sync.AccountTimeout > 0 {
		fanOutConfig.AccountTimeout = cfg.Sync.AccountTimeout
	}
	fanOut, err := scheduler.NewAccountSyncScheduler(fanOutConfig, accountRepo, syncService, log.Named("scheduler"))
	if err != nil {
		log.Fatal("Failed to create account sync scheduler", zap.Error(err))
	}

	var ticker *scheduler.SyncTicker
	if cfg.Cron.Enabled {
		ticker, err = scheduler.NewSyncTicker(scheduler.SyncTickerConfig{Interval: cfg.Cron.Interval}, fanOut, log.Named("scheduler"))
		if err != nil {
			log.Fatal("Failed to create sync ticker", zap.Error(err))
		}
		if err := ticker.Start(ctx); err != nil {
			log.Fatal("Failed to start sync ticker", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MeterProvider:  mp,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Cron: middleware.CronAuthConfig{
			Secret:     cfg.Cron.Secret,
			HeaderName: cfg.Cron.HeaderName,
		},
	}, router.Handlers{
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
		}, log),
		Sync:           handler.NewSyncHandler(syncService, fanOut, log),
		Reconciliation: handler.NewReconciliationHandler(comparator, log),
		Ledger:         handler.NewLedgerHandler(ledgerService, log),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if ticker != nil {
		if err := ticker.Stop(shutdownCtx); err != nil {
			log.Warn("Sync ticker did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if closer, ok := guard.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("Error closing run guard", zap.Error(err))
		}
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tp.Shutdown,
		"meter":  mp.Shutdown,
		"logger": lp.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// syncConfig overlays configured values on the orchestrator defaults
func syncConfig(c config.SyncConfig) feesync.Config {
	out := feesync.DefaultConfig()
	if c.OrderItemsBatchSize > 0 {
		out.OrderItemsBatchSize = c.OrderItemsBatchSize
	}
	if c.LookbackDays > 0 {
		out.LookbackDays = c.LookbackDays
	}
	if c.RecheckAfter > 0 {
		out.RecheckAfter = c.RecheckAfter
	}
	if c.InterCallDelay > 0 {
		out.InterCallDelay = c.InterCallDelay
	}
	if c.CallTimeout > 0 {
		out.CallTimeout = c.CallTimeout
	}
	if c.EventsWindowDays > 0 {
		out.EventsWindowDays = c.EventsWindowDays
	}
	if c.OrdersOverlap > 0 {
		out.OrdersOverlap = c.OrdersOverlap
	}
	if c.InitialLookbackDays > 0 {
		out.InitialLookbackDays = c.InitialLookbackDays
	}
	if c.SettlementLookbackDays > 0 {
		out.SettlementLookbackDays = c.SettlementLookbackDays
	}
	return out
}
