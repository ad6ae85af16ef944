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
	App        AppConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Provider   ProviderConfig
	Resilience ResilienceConfig
	Metrics    MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// DatabaseConfig holds the stock store connection settings
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
}

// RedisConfig holds Redis connection settings for the shared result cache.
// Enabled=false keeps the cache purely in-process.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ProviderConfig holds the vehicle data provider settings
type ProviderConfig struct {
	BaseURL        string
	Key            string
	Secret         string
	AdvertiserID   string
	TimeoutSeconds int
	// TokenRefreshMargin is how long before expiry a bearer token is
	// refreshed rather than reused.
	TokenRefreshMargin time.Duration
}

// ResilienceConfig holds circuit breaker and cache TTL policy settings.
// TTLs are per operation; none of them are baked into call sites.
type ResilienceConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	CleanupInterval  time.Duration
	TTL              TTLPolicy
}

// MetricsConfig holds OpenTelemetry metrics export settings
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration
	Insecure          bool
}

// TTLPolicy maps each upstream operation to its cache lifetime
type TTLPolicy struct {
	VehicleLookup     time.Duration
	Taxonomy          time.Duration
	Valuations        time.Duration
	VehicleMetrics    time.Duration
	VehicleCheck      time.Duration
	Competitors       time.Duration
	TrendedValuations time.Duration
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with DEALERDESK_ prefix (e.g., DEALERDESK_PROVIDER_SECRET)
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

	v.SetEnvPrefix("DEALERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
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
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Provider: ProviderConfig{
			BaseURL:            v.GetString("provider.base_url"),
			Key:                v.GetString("provider.key"),
			Secret:             v.GetString("provider.secret"),
			AdvertiserID:       v.GetString("provider.advertiser_id"),
			TimeoutSeconds:     v.GetInt("provider.timeout_seconds"),
			TokenRefreshMargin: v.GetDuration("provider.token_refresh_margin"),
		},
		Resilience: ResilienceConfig{
			FailureThreshold: v.GetInt("resilience.failure_threshold"),
			Cooldown:         v.GetDuration("resilience.cooldown"),
			CleanupInterval:  v.GetDuration("resilience.cleanup_interval"),
			TTL: TTLPolicy{
				VehicleLookup:     v.GetDuration("resilience.ttl.vehicle_lookup"),
				Taxonomy:          v.GetDuration("resilience.ttl.taxonomy"),
				Valuations:        v.GetDuration("resilience.ttl.valuations"),
				VehicleMetrics:    v.GetDuration("resilience.ttl.vehicle_metrics"),
				VehicleCheck:      v.GetDuration("resilience.ttl.vehicle_check"),
				Competitors:       v.GetDuration("resilience.ttl.competitors"),
				TrendedValuations: v.GetDuration("resilience.ttl.trended_valuations"),
			},
		},
		Metrics: MetricsConfig{
			Enabled:           v.GetBool("metrics.enabled"),
			CollectorEndpoint: v.GetString("metrics.collector_endpoint"),
			ExportInterval:    v.GetDuration("metrics.export_interval"),
			Insecure:          v.GetBool("metrics.insecure"),
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
		cfg.App.Name = "dealerdesk-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.HTTP.WriteTimeout = 30 * time.Second
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
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
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
		cfg.Database.DBName = "dealerdesk"
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
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 10
	}
	if cfg.Provider.TokenRefreshMargin == 0 {
		cfg.Provider.TokenRefreshMargin = 5 * time.Minute
	}
	if cfg.Resilience.FailureThreshold == 0 {
		cfg.Resilience.FailureThreshold = 5
	}
	if cfg.Resilience.Cooldown == 0 {
		cfg.Resilience.Cooldown = 30 * time.Second
	}
	if cfg.Resilience.CleanupInterval == 0 {
		cfg.Resilience.CleanupInterval = 5 * time.Minute
	}
	if cfg.Metrics.CollectorEndpoint == "" {
		cfg.Metrics.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Metrics.ExportInterval == 0 {
		cfg.Metrics.ExportInterval = 60 * time.Second
	}
	applyTTLDefaults(&cfg.Resilience.TTL)
}

// applyTTLDefaults fills in the per-operation cache lifetimes. Valuation
// and competitor data move with the market and expire quickly; taxonomy
// data is near-static.
func applyTTLDefaults(ttl *TTLPolicy) {
	if ttl.VehicleLookup == 0 {
		ttl.VehicleLookup = time.Hour
	}
	if ttl.Taxonomy == 0 {
		ttl.Taxonomy = 24 * time.Hour
	}
	if ttl.Valuations == 0 {
		ttl.Valuations = 15 * time.Minute
	}
	if ttl.VehicleMetrics == 0 {
		ttl.VehicleMetrics = 15 * time.Minute
	}
	if ttl.VehicleCheck == 0 {
		ttl.VehicleCheck = 6 * time.Hour
	}
	if ttl.Competitors == 0 {
		ttl.Competitors = 10 * time.Minute
	}
	if ttl.TrendedValuations == 0 {
		ttl.TrendedValuations = time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("resilience.failure_threshold must be at least 1")
	}
	if c.Resilience.Cooldown < time.Second {
		return fmt.Errorf("resilience.cooldown must be at least 1s")
	}

	if c.App.Env == "production" {
		if c.Provider.Key == "" || c.Provider.Secret == "" {
			return fmt.Errorf("provider.key and provider.secret are required in production")
		}
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

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
