package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	HTTP           HTTPConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Storage        StorageConfig
	SellerAPI      SellerAPIConfig
	Sync           SyncConfig
	Reconciliation ReconciliationConfig
	Cron           CronConfig
	Log            LogConfig
	Telemetry      TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	MigrationsPath  string
}

// RedisConfig holds Redis connection settings. An empty host selects the
// in-process run lock.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig holds S3-compatible object storage settings for the raw
// settlement document archive
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string
}

// SellerAPIConfig holds the remote seller-data API settings
type SellerAPIConfig struct {
	BaseURL         string
	TimeoutSeconds  int
	MaxResponseSize int64
	UserAgent       string
}

// SyncConfig holds sync orchestrator settings
type SyncConfig struct {
	// OrderItemsBatchSize caps the orders fetched per order-items run
	OrderItemsBatchSize int
	// LookbackDays bounds the order-items candidate window
	LookbackDays int
	// RecheckAfter lets orders without fee-populated lines be fetched again
	RecheckAfter time.Duration
	// InterCallDelay is the minimum spacing between remote calls
	InterCallDelay time.Duration
	// CallTimeout bounds one remote call
	CallTimeout time.Duration
	// EventsWindowDays is the trailing window of the financial-events pass
	EventsWindowDays int
	// OrdersOverlap is subtracted from the orders cursor on every run
	OrdersOverlap time.Duration
	// InitialLookbackDays is the first-run window when no cursor exists
	InitialLookbackDays int
	// SettlementLookbackDays is the first-run window of the settlement pass
	SettlementLookbackDays int
	// ArchiveSettlements stores raw settlement documents before parsing
	ArchiveSettlements bool
	// RunLockTTL bounds how long a crashed run keeps its lock
	RunLockTTL time.Duration
	// MaxConcurrentAccounts bounds the scheduled fan-out
	MaxConcurrentAccounts int
	// AccountTimeout bounds one account's incremental sync
	AccountTimeout time.Duration
}

// ReconciliationConfig holds comparator settings
type ReconciliationConfig struct {
	// Epsilon is the per-category tolerance, as a decimal string
	Epsilon string
	// MaxFlaggedRows caps the flagged rows in a comparison
	MaxFlaggedRows int
	// IncludeEvents adds the events-derived column
	IncludeEvents bool
}

// EpsilonDecimal parses Epsilon
func (r *ReconciliationConfig) EpsilonDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(r.Epsilon)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return d
}

// CronConfig holds the scheduled trigger settings
type CronConfig struct {
	// Secret authenticates the external trigger endpoint
	Secret string
	// HeaderName carries the shared secret
	HeaderName string
	// Enabled starts the in-process ticker
	Enabled bool
	// Interval is the in-process ticker interval
	Interval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// LogExportEnabled bridges zap records to the OTLP log exporter
	LogExportEnabled bool
	LogExportLevel   string
	MetricsInterval  time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FEES_ prefix (e.g., FEES_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FEES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			MigrationsPath:  v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),
		},
		SellerAPI: SellerAPIConfig{
			BaseURL:         v.GetString("seller_api.base_url"),
			TimeoutSeconds:  v.GetInt("seller_api.timeout_seconds"),
			MaxResponseSize: v.GetInt64("seller_api.max_response_size"),
			UserAgent:       v.GetString("seller_api.user_agent"),
		},
		Sync: SyncConfig{
			OrderItemsBatchSize:    v.GetInt("sync.order_items_batch_size"),
			LookbackDays:           v.GetInt("sync.lookback_days"),
			RecheckAfter:           v.GetDuration("sync.recheck_after"),
			InterCallDelay:         v.GetDuration("sync.inter_call_delay"),
			CallTimeout:            v.GetDuration("sync.call_timeout"),
			EventsWindowDays:       v.GetInt("sync.events_window_days"),
			OrdersOverlap:          v.GetDuration("sync.orders_overlap"),
			InitialLookbackDays:    v.GetInt("sync.initial_lookback_days"),
			SettlementLookbackDays: v.GetInt("sync.settlement_lookback_days"),
			ArchiveSettlements:     v.GetBool("sync.archive_settlements"),
			RunLockTTL:             v.GetDuration("sync.run_lock_ttl"),
			MaxConcurrentAccounts:  v.GetInt("sync.max_concurrent_accounts"),
			AccountTimeout:         v.GetDuration("sync.account_timeout"),
		},
		Reconciliation: ReconciliationConfig{
			Epsilon:        v.GetString("reconciliation.epsilon"),
			MaxFlaggedRows: v.GetInt("reconciliation.max_flagged_rows"),
			IncludeEvents:  v.GetBool("reconciliation.include_events"),
		},
		Cron: CronConfig{
			Secret:     v.GetString("cron.secret"),
			HeaderName: v.GetString("cron.header_name"),
			Enabled:    v.GetBool("cron.enabled"),
			Interval:   v.GetDuration("cron.interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),
			LogExportLevel:    v.GetString("telemetry.log_export_level"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "seller-fees"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Trigger and compare endpoints run synchronously
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "seller_fees"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "settlements"
	}
	if cfg.SellerAPI.BaseURL == "" {
		cfg.SellerAPI.BaseURL = "https://sellingpartnerapi-na.amazon.com"
	}
	if cfg.SellerAPI.TimeoutSeconds == 0 {
		cfg.SellerAPI.TimeoutSeconds = 30
	}
	if cfg.Sync.OrderItemsBatchSize == 0 {
		cfg.Sync.OrderItemsBatchSize = 50
	}
	if cfg.Sync.LookbackDays == 0 {
		cfg.Sync.LookbackDays = 30
	}
	if cfg.Sync.RecheckAfter == 0 {
		cfg.Sync.RecheckAfter = 24 * time.Hour
	}
	if cfg.Sync.InterCallDelay == 0 {
		cfg.Sync.InterCallDelay = 2 * time.Second
	}
	if cfg.Sync.CallTimeout == 0 {
		cfg.Sync.CallTimeout = 30 * time.Second
	}
	if cfg.Sync.EventsWindowDays == 0 {
		cfg.Sync.EventsWindowDays = 7
	}
	if cfg.Sync.OrdersOverlap == 0 {
		cfg.Sync.OrdersOverlap = time.Hour
	}
	if cfg.Sync.InitialLookbackDays == 0 {
		cfg.Sync.InitialLookbackDays = 30
	}
	if cfg.Sync.SettlementLookbackDays == 0 {
		cfg.Sync.SettlementLookbackDays = 60
	}
	if cfg.Sync.RunLockTTL == 0 {
		cfg.Sync.RunLockTTL = 30 * time.Minute
	}
	if cfg.Sync.MaxConcurrentAccounts == 0 {
		cfg.Sync.MaxConcurrentAccounts = 4
	}
	if cfg.Sync.AccountTimeout == 0 {
		cfg.Sync.AccountTimeout = 20 * time.Minute
	}
	if cfg.Reconciliation.Epsilon == "" {
		cfg.Reconciliation.Epsilon = "1.00"
	}
	if cfg.Reconciliation.MaxFlaggedRows == 0 {
		cfg.Reconciliation.MaxFlaggedRows = 25
	}
	if cfg.Cron.HeaderName == "" {
		cfg.Cron.HeaderName = "X-Cron-Secret"
	}
	if cfg.Cron.Interval == 0 {
		cfg.Cron.Interval = time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.LogExportLevel == "" {
		cfg.Telemetry.LogExportLevel = "info"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.OrderItemsBatchSize < 0 || c.Sync.LookbackDays < 0 || c.Sync.EventsWindowDays < 0 {
		return fmt.Errorf("sync batch size and windows cannot be negative")
	}
	if c.Sync.InterCallDelay < 0 {
		return fmt.Errorf("sync.inter_call_delay cannot be negative")
	}
	if _, err := decimal.NewFromString(c.Reconciliation.Epsilon); err != nil {
		return fmt.Errorf("reconciliation.epsilon must be a decimal, got %q", c.Reconciliation.Epsilon)
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if len(c.Cron.Secret) < 32 {
			return fmt.Errorf("cron.secret must be at least 32 characters in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
