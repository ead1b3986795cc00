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
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Vault     VaultConfig
	Webhook   WebhookConfig
	Storage   StorageConfig
	OAuth     OAuthConfig
	Providers ProvidersConfig
	Telemetry TelemetryConfig
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

// JWTConfig holds JWT settings for API authentication
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
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

// SchedulerConfig holds sync scheduler and worker pool configuration
type SchedulerConfig struct {
	Enabled bool
	// TickInterval is how often due integrations are scanned
	TickInterval time.Duration
	// Lookback is the metrics window length for scheduled pulls
	Lookback time.Duration
	// StaleJobTimeout is the age after which a running job is released
	StaleJobTimeout time.Duration
	// MaxConcurrentJobs is the worker pool size
	MaxConcurrentJobs int
	// QueueSize is the worker pool queue capacity
	QueueSize int
	// JobTimeout bounds one sync job end to end
	JobTimeout time.Duration
	// RetryAttempts is the in-job retry budget for transient provider failures
	RetryAttempts uint64
	// RetryInitialInterval is the first backoff delay between retries
	RetryInitialInterval time.Duration
}

// VaultConfig holds credential vault settings
type VaultConfig struct {
	// MasterKey encrypts OAuth tokens at rest. At least 32 bytes.
	MasterKey string
	// AuthStateCleanupInterval is how often expired authorization attempts
	// are purged
	AuthStateCleanupInterval time.Duration
}

// WebhookConfig holds webhook ingestion settings
type WebhookConfig struct {
	// MaxPayloadSize caps an inbound webhook body in bytes
	MaxPayloadSize int64
	// RetentionDays is how long processed webhook events stay queryable
	RetentionDays int
}

// StorageConfig holds S3-compatible object storage settings for the webhook
// payload archive. Any S3-compatible backend works (AWS S3, MinIO, RustFS).
type StorageConfig struct {
	// Enabled toggles payload archiving; when off, payloads live only in
	// the database
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// OAuthConfig holds settings shared by all provider OAuth flows
type OAuthConfig struct {
	// RedirectBaseURL is the public base URL callbacks are built from,
	// e.g. "https://app.example.com"
	RedirectBaseURL string
}

// ProvidersConfig holds per-provider application credentials
type ProvidersConfig struct {
	GoogleAds GoogleAdsProviderConfig
	MetaAds   MetaAdsProviderConfig
	ZaloOA    ZaloOAProviderConfig
	TikTokAds TikTokAdsProviderConfig
	Shopee    ShopeeProviderConfig
}

// GoogleAdsProviderConfig holds Google Ads app credentials
type GoogleAdsProviderConfig struct {
	Enabled       bool
	ClientID      string
	ClientSecret  string
	WebhookSecret string
}

// MetaAdsProviderConfig holds Meta Marketing API app credentials
type MetaAdsProviderConfig struct {
	Enabled   bool
	AppID     string
	AppSecret string
}

// ZaloOAProviderConfig holds Zalo OA app credentials
type ZaloOAProviderConfig struct {
	Enabled   bool
	AppID     string
	AppSecret string
}

// TikTokAdsProviderConfig holds TikTok Business API app credentials
type TikTokAdsProviderConfig struct {
	Enabled   bool
	AppID     string
	AppSecret string
}

// ShopeeProviderConfig holds Shopee Open Platform partner credentials
type ShopeeProviderConfig struct {
	Enabled    bool
	PartnerID  int64
	PartnerKey string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ADHUB_ prefix (e.g., ADHUB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("ADHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
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
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			ExpirationHours: v.GetInt("jwt.expiration_hours"),
			Issuer:          v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
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
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("scheduler.enabled"),
			TickInterval:         v.GetDuration("scheduler.tick_interval"),
			Lookback:             v.GetDuration("scheduler.lookback"),
			StaleJobTimeout:      v.GetDuration("scheduler.stale_job_timeout"),
			MaxConcurrentJobs:    v.GetInt("scheduler.max_concurrent_jobs"),
			QueueSize:            v.GetInt("scheduler.queue_size"),
			JobTimeout:           v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:        v.GetUint64("scheduler.retry_attempts"),
			RetryInitialInterval: v.GetDuration("scheduler.retry_initial_interval"),
		},
		Vault: VaultConfig{
			MasterKey:                v.GetString("vault.master_key"),
			AuthStateCleanupInterval: v.GetDuration("vault.auth_state_cleanup_interval"),
		},
		Webhook: WebhookConfig{
			MaxPayloadSize: v.GetInt64("webhook.max_payload_size"),
			RetentionDays:  v.GetInt("webhook.retention_days"),
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
		},
		OAuth: OAuthConfig{
			RedirectBaseURL: v.GetString("oauth.redirect_base_url"),
		},
		Providers: ProvidersConfig{
			GoogleAds: GoogleAdsProviderConfig{
				Enabled:       v.GetBool("providers.googleads.enabled"),
				ClientID:      v.GetString("providers.googleads.client_id"),
				ClientSecret:  v.GetString("providers.googleads.client_secret"),
				WebhookSecret: v.GetString("providers.googleads.webhook_secret"),
			},
			MetaAds: MetaAdsProviderConfig{
				Enabled:   v.GetBool("providers.metaads.enabled"),
				AppID:     v.GetString("providers.metaads.app_id"),
				AppSecret: v.GetString("providers.metaads.app_secret"),
			},
			ZaloOA: ZaloOAProviderConfig{
				Enabled:   v.GetBool("providers.zalooa.enabled"),
				AppID:     v.GetString("providers.zalooa.app_id"),
				AppSecret: v.GetString("providers.zalooa.app_secret"),
			},
			TikTokAds: TikTokAdsProviderConfig{
				Enabled:   v.GetBool("providers.tiktokads.enabled"),
				AppID:     v.GetString("providers.tiktokads.app_id"),
				AppSecret: v.GetString("providers.tiktokads.app_secret"),
			},
			Shopee: ShopeeProviderConfig{
				Enabled:    v.GetBool("providers.shopee.enabled"),
				PartnerID:  v.GetInt64("providers.shopee.partner_id"),
				PartnerKey: v.GetString("providers.shopee.partner_key"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "adhub-backend"
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
		cfg.Database.DBName = "adhub"
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
	if cfg.JWT.ExpirationHours == 0 {
		cfg.JWT.ExpirationHours = 24
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "adhub-backend"
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
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = time.Minute
	}
	if cfg.Scheduler.Lookback == 0 {
		cfg.Scheduler.Lookback = 24 * time.Hour
	}
	if cfg.Scheduler.StaleJobTimeout == 0 {
		cfg.Scheduler.StaleJobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 5
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 100
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryInitialInterval == 0 {
		cfg.Scheduler.RetryInitialInterval = 2 * time.Second
	}
	if cfg.Vault.AuthStateCleanupInterval == 0 {
		cfg.Vault.AuthStateCleanupInterval = 15 * time.Minute
	}
	if cfg.Webhook.MaxPayloadSize == 0 {
		cfg.Webhook.MaxPayloadSize = 1 << 20 // 1MB
	}
	if cfg.Webhook.RetentionDays == 0 {
		cfg.Webhook.RetentionDays = 30
	}
	if cfg.OAuth.RedirectBaseURL == "" {
		cfg.OAuth.RedirectBaseURL = "http://localhost:8080"
	}
	// Storage defaults
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = "localhost:9000"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "adhub-webhook-archive"
	}

	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "adhub-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
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

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if len(c.Vault.MasterKey) < 32 {
			return fmt.Errorf("vault.master_key must be at least 32 bytes in production")
		}
		if c.Storage.Enabled && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
			return fmt.Errorf("storage credentials are required when storage is enabled in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// OAuth callbacks must come back over HTTPS
		if !strings.HasPrefix(c.OAuth.RedirectBaseURL, "https://") {
			return fmt.Errorf("oauth.redirect_base_url must use https in production")
		}
	}

	// Validate telemetry configuration (all environments)
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
