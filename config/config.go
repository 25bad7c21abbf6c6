package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every automatically bound environment variable
const EnvPrefix = "RECEIPT_SERVICE"

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Validation ValidationConfig `mapstructure:"validation"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	Host              string        `mapstructure:"host"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	APIKey            string        `mapstructure:"api_key"` // empty disables API key auth
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// ValidationConfig holds price validation settings
type ValidationConfig struct {
	Tolerance       float64       `mapstructure:"tolerance"`
	RequestDelay    time.Duration `mapstructure:"request_delay"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxWait         time.Duration `mapstructure:"max_wait"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"` // 0 disables the lookup cache
}

// ProvidersConfig holds credentials and switches for the price providers
type ProvidersConfig struct {
	UPC     UPCProviderConfig     `mapstructure:"upc"`
	Catalog CatalogProviderConfig `mapstructure:"catalog"`
	Scraper ScraperProviderConfig `mapstructure:"scraper"`
}

// UPCProviderConfig configures the UPC database lookup
type UPCProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// CatalogProviderConfig configures the asynchronous catalog search
type CatalogProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	ActorID string `mapstructure:"actor_id"`
}

// ScraperProviderConfig configures product page fetching
type ScraperProviderConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	UserAgent string `mapstructure:"user_agent"`
}

// RateLimitConfig holds outbound retry configuration
type RateLimitConfig struct {
	MaxRetries       int `mapstructure:"max_retries"`
	InitialBackoffMs int `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `mapstructure:"max_backoff_ms"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// Load loads the configuration from defaults, an optional config file,
// .env and environment variables (in increasing priority)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	_ = loadEnvFile()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath == "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that would make validation meaningless
func (c *Config) Validate() error {
	if c.Validation.Tolerance <= 0 || c.Validation.Tolerance >= 1 {
		return fmt.Errorf("validation.tolerance must be between 0 and 1, got %v", c.Validation.Tolerance)
	}
	if c.Validation.RequestDelay < 0 {
		return fmt.Errorf("validation.request_delay must not be negative")
	}
	if c.Validation.ProviderTimeout <= 0 {
		return fmt.Errorf("validation.provider_timeout must be positive")
	}
	if c.Validation.MaxWait >= c.Validation.ProviderTimeout {
		return fmt.Errorf("validation.max_wait (%s) must be shorter than validation.provider_timeout (%s)",
			c.Validation.MaxWait, c.Validation.ProviderTimeout)
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Validation.ProviderTimeout {
		return fmt.Errorf("server.write_timeout (%s) must be longer than validation.provider_timeout (%s)",
			c.Server.WriteTimeout, c.Validation.ProviderTimeout)
	}
	if c.Validation.CacheTTL < 0 {
		return fmt.Errorf("validation.cache_ttl must not be negative")
	}
	if c.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("rate_limit.max_retries must not be negative")
	}
	return nil
}

// CatalogConfigured reports whether catalog search is enabled and has credentials
func (c *Config) CatalogConfigured() bool {
	p := c.Providers.Catalog
	return p.Enabled && p.Token != "" && p.ActorID != ""
}

// ParseLogLevel converts the configured level to a zerolog level, defaulting to info
func (l LoggingConfig) ParseLogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// loadEnvFile loads the first .env file found into the process environment
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables.
// Variables already present in the environment win.
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		os.Setenv(key, value)
	}
	return scanner.Err()
}

// bindEnvVars binds conventional unprefixed environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.host", EnvPrefix+"_SERVER_HOST", "HOST")
	_ = v.BindEnv("server.api_key", EnvPrefix+"_SERVER_API_KEY", "API_KEY")

	_ = v.BindEnv("providers.upc.api_key", EnvPrefix+"_PROVIDERS_UPC_API_KEY", "UPC_API_KEY")
	_ = v.BindEnv("providers.catalog.token", EnvPrefix+"_PROVIDERS_CATALOG_TOKEN", "APIFY_TOKEN")
	_ = v.BindEnv("providers.catalog.actor_id", EnvPrefix+"_PROVIDERS_CATALOG_ACTOR_ID", "APIFY_ACTOR_ID")

	_ = v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.requests_per_second", 10.0)
	v.SetDefault("server.burst", 20)

	// Validation defaults
	v.SetDefault("validation.tolerance", 0.10)
	v.SetDefault("validation.request_delay", time.Second)
	// must outlast max_wait so a catalog run can be aborted and its dataset read
	v.SetDefault("validation.provider_timeout", 90*time.Second)
	v.SetDefault("validation.poll_interval", 2*time.Second)
	v.SetDefault("validation.max_wait", 60*time.Second)
	v.SetDefault("validation.cache_ttl", 15*time.Minute)

	// Provider defaults
	v.SetDefault("providers.upc.enabled", true)
	v.SetDefault("providers.upc.base_url", "https://api.upcitemdb.com")
	v.SetDefault("providers.upc.api_key", "")
	v.SetDefault("providers.catalog.enabled", true)
	v.SetDefault("providers.catalog.base_url", "https://api.apify.com")
	v.SetDefault("providers.catalog.token", "")
	v.SetDefault("providers.catalog.actor_id", "")
	v.SetDefault("providers.scraper.enabled", true)
	v.SetDefault("providers.scraper.user_agent", "Mozilla/5.0 (compatible; ReceiptService/1.0)")

	// Rate limit defaults
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.initial_backoff_ms", 100)
	v.SetDefault("rate_limit.max_backoff_ms", 30000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "receipt-service")
}
