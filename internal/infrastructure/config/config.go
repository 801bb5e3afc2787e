package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Event       EventConfig
	HTTP        HTTPConfig
	Storage     StorageConfig
	Fulfillment FulfillmentConfig
	Providers   ProvidersConfig
	Rendering   RenderingConfig
	Pipeline    PipelineConfig
	Poller      PollerConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
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
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// EventConfig holds event processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// StorageConfig holds object storage settings for rendered artifacts
type StorageConfig struct {
	Endpoint  string // S3-compatible endpoint; empty for AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is the URL prefix stored objects are served from
	PublicBaseURL string
	UsePathStyle  bool
}

// RenderingConfig points at the external rendering collaborators. Both are
// optional; when a URL is empty the in-process stub serves development and
// tests.
type RenderingConfig struct {
	// RendererURL is the base URL of the content rendering service
	RendererURL string
	// InspectorURL is the base URL of the file inspection service
	InspectorURL string
	// AuthToken authenticates against both services
	AuthToken string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// FulfillmentConfig holds orchestrator settings
type FulfillmentConfig struct {
	// QuoteTimeout bounds each provider's quote call during fan-out
	QuoteTimeout time.Duration
	// SubmitTimeout bounds a vendor order submission
	SubmitTimeout time.Duration
	// FallbackEnabled allows one retry against another provider after a
	// failed submission
	FallbackEnabled bool
	// PreferredProvider biases quote selection when within cost tolerance
	PreferredProvider string
	// SubmissionGuardTTL is how long the at-most-one-submission hold lasts
	SubmissionGuardTTL time.Duration
	// StatusTimeout bounds a live vendor status lookup
	StatusTimeout time.Duration
}

// ProviderConfig holds one vendor's connection settings
type ProviderConfig struct {
	Enabled bool
	// Environment selects the vendor environment: "sandbox" or "live"
	Environment   string
	BaseURL       string
	APIKey        string
	APISecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// ProvidersConfig holds per-vendor settings
type ProvidersConfig struct {
	Lulu   ProviderConfig
	Peecho ProviderConfig
}

// PipelineConfig holds rendition pipeline settings
type PipelineConfig struct {
	Enabled bool
	// Workers is the size of the job worker pool
	Workers int
	// JobsPerSecond caps job starts across the pool
	JobsPerSecond float64
	// MaxAttempts is the per-job retry ceiling
	MaxAttempts int
	// JobTimeout bounds one render or preflight execution
	JobTimeout time.Duration
	// QueuePollInterval is how often waiting jobs are swept from storage
	QueuePollInterval time.Duration
}

// PollerConfig holds status reconciliation poller settings
type PollerConfig struct {
	Enabled bool
	// Interval between reconciliation sweeps
	Interval time.Duration
	// StaleAfter selects orders with no vendor confirmation for this long
	StaleAfter time.Duration
	// MaxAge stops polling orders older than this; they need manual review
	MaxAge time.Duration
	// BatchSize bounds how many orders one sweep touches
	BatchSize int
	// StatusTimeout bounds each vendor status call
	StatusTimeout time.Duration
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
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PRINTCORE_ prefix (e.g., PRINTCORE_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("PRINTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("storage.endpoint"),
			Region:        v.GetString("storage.region"),
			Bucket:        v.GetString("storage.bucket"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
		},
		Fulfillment: FulfillmentConfig{
			QuoteTimeout:       v.GetDuration("fulfillment.quote_timeout"),
			SubmitTimeout:      v.GetDuration("fulfillment.submit_timeout"),
			FallbackEnabled:    v.GetBool("fulfillment.fallback_enabled"),
			PreferredProvider:  v.GetString("fulfillment.preferred_provider"),
			SubmissionGuardTTL: v.GetDuration("fulfillment.submission_guard_ttl"),
			StatusTimeout:      v.GetDuration("fulfillment.status_timeout"),
		},
		Providers: ProvidersConfig{
			Lulu:   loadProvider(v, "providers.lulu"),
			Peecho: loadProvider(v, "providers.peecho"),
		},
		Rendering: RenderingConfig{
			RendererURL:    v.GetString("rendering.renderer_url"),
			InspectorURL:   v.GetString("rendering.inspector_url"),
			AuthToken:      v.GetString("rendering.auth_token"),
			TimeoutSeconds: v.GetInt("rendering.timeout_seconds"),
		},
		Pipeline: PipelineConfig{
			Enabled:           v.GetBool("pipeline.enabled"),
			Workers:           v.GetInt("pipeline.workers"),
			JobsPerSecond:     v.GetFloat64("pipeline.jobs_per_second"),
			MaxAttempts:       v.GetInt("pipeline.max_attempts"),
			JobTimeout:        v.GetDuration("pipeline.job_timeout"),
			QueuePollInterval: v.GetDuration("pipeline.queue_poll_interval"),
		},
		Poller: PollerConfig{
			Enabled:       v.GetBool("poller.enabled"),
			Interval:      v.GetDuration("poller.interval"),
			StaleAfter:    v.GetDuration("poller.stale_after"),
			MaxAge:        v.GetDuration("poller.max_age"),
			BatchSize:     v.GetInt("poller.batch_size"),
			StatusTimeout: v.GetDuration("poller.status_timeout"),
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
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadProvider reads one vendor's section
func loadProvider(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Enabled:       v.GetBool(prefix + ".enabled"),
		Environment:   v.GetString(prefix + ".environment"),
		BaseURL:       v.GetString(prefix + ".base_url"),
		APIKey:        v.GetString(prefix + ".api_key"),
		APISecret:     v.GetString(prefix + ".api_secret"),
		WebhookSecret: v.GetString(prefix + ".webhook_secret"),
		Timeout:       v.GetDuration(prefix + ".timeout"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "printcore-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "printcore"
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
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
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
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly
	// configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "printcore-renditions"
	}
	if cfg.Fulfillment.QuoteTimeout == 0 {
		cfg.Fulfillment.QuoteTimeout = 10 * time.Second
	}
	if cfg.Fulfillment.SubmitTimeout == 0 {
		cfg.Fulfillment.SubmitTimeout = 30 * time.Second
	}
	if cfg.Fulfillment.SubmissionGuardTTL == 0 {
		cfg.Fulfillment.SubmissionGuardTTL = 10 * time.Minute
	}
	if cfg.Fulfillment.StatusTimeout == 0 {
		cfg.Fulfillment.StatusTimeout = 10 * time.Second
	}
	applyProviderDefaults(&cfg.Providers.Lulu)
	applyProviderDefaults(&cfg.Providers.Peecho)
	if cfg.Rendering.TimeoutSeconds == 0 {
		cfg.Rendering.TimeoutSeconds = 60
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.JobsPerSecond == 0 {
		cfg.Pipeline.JobsPerSecond = 5
	}
	if cfg.Pipeline.MaxAttempts == 0 {
		cfg.Pipeline.MaxAttempts = 5
	}
	if cfg.Pipeline.JobTimeout == 0 {
		cfg.Pipeline.JobTimeout = 2 * time.Minute
	}
	if cfg.Pipeline.QueuePollInterval == 0 {
		cfg.Pipeline.QueuePollInterval = 5 * time.Second
	}
	if cfg.Poller.Interval == 0 {
		cfg.Poller.Interval = 5 * time.Minute
	}
	if cfg.Poller.StaleAfter == 0 {
		cfg.Poller.StaleAfter = 30 * time.Minute
	}
	if cfg.Poller.MaxAge == 0 {
		cfg.Poller.MaxAge = 72 * time.Hour
	}
	if cfg.Poller.BatchSize == 0 {
		cfg.Poller.BatchSize = 50
	}
	if cfg.Poller.StatusTimeout == 0 {
		cfg.Poller.StatusTimeout = 10 * time.Second
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "printcore-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// applyProviderDefaults fills one vendor section
func applyProviderDefaults(p *ProviderConfig) {
	if p.Environment == "" {
		p.Environment = "sandbox"
	}
	if p.Timeout == 0 {
		p.Timeout = 15 * time.Second
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

	for name, p := range map[string]ProviderConfig{"lulu": c.Providers.Lulu, "peecho": c.Providers.Peecho} {
		if !p.Enabled {
			continue
		}
		if p.Environment != "sandbox" && p.Environment != "live" {
			return fmt.Errorf("providers.%s.environment must be 'sandbox' or 'live', got %q", name, p.Environment)
		}
		if p.APIKey == "" {
			return fmt.Errorf("providers.%s.api_key is required when the provider is enabled", name)
		}
	}

	if c.Fulfillment.PreferredProvider != "" {
		switch c.Fulfillment.PreferredProvider {
		case "LULU", "PEECHO":
		default:
			return fmt.Errorf("fulfillment.preferred_provider must be LULU or PEECHO, got %q", c.Fulfillment.PreferredProvider)
		}
	}

	if c.Poller.StaleAfter >= c.Poller.MaxAge {
		return fmt.Errorf("poller.stale_after (%s) must be shorter than poller.max_age (%s)",
			c.Poller.StaleAfter, c.Poller.MaxAge)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		for name, p := range map[string]ProviderConfig{"lulu": c.Providers.Lulu, "peecho": c.Providers.Peecho} {
			if p.Enabled && p.Environment != "live" {
				return fmt.Errorf("providers.%s.environment must be 'live' in production", name)
			}
			if p.Enabled && p.WebhookSecret == "" {
				return fmt.Errorf("providers.%s.webhook_secret is required in production", name)
			}
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
