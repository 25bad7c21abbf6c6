package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 0.10, cfg.Validation.Tolerance)
	assert.Equal(t, time.Second, cfg.Validation.RequestDelay)
	assert.Equal(t, 90*time.Second, cfg.Validation.ProviderTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Validation.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Validation.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.Validation.MaxWait)
	assert.Equal(t, 3, cfg.RateLimit.MaxRetries)
	assert.True(t, cfg.Providers.UPC.Enabled)
	assert.False(t, cfg.CatalogConfigured())
	assert.Less(t, cfg.Validation.MaxWait, cfg.Validation.ProviderTimeout)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8081
validation:
  tolerance: 0.05
  request_delay: 250ms
providers:
  upc:
    enabled: false
  catalog:
    token: tok
    actor_id: user~walmart-search
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 0.05, cfg.Validation.Tolerance)
	assert.Equal(t, 250*time.Millisecond, cfg.Validation.RequestDelay)
	assert.False(t, cfg.Providers.UPC.Enabled)
	assert.True(t, cfg.CatalogConfigured())
	assert.Equal(t, zerolog.DebugLevel, cfg.Logging.ParseLogLevel())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RECEIPT_SERVICE_VALIDATION_TOLERANCE", "0.2")
	t.Setenv("PORT", "9090")
	t.Setenv("APIFY_TOKEN", "env-token")
	t.Setenv("APIFY_ACTOR_ID", "actor")
	t.Setenv("UPC_API_KEY", "upc-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.Validation.Tolerance)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "env-token", cfg.Providers.Catalog.Token)
	assert.Equal(t, "upc-key", cfg.Providers.UPC.APIKey)
	assert.True(t, cfg.CatalogConfigured())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Validation: ValidationConfig{Tolerance: 0.1, RequestDelay: time.Second, ProviderTimeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero tolerance", func(c *Config) { c.Validation.Tolerance = 0 }, true},
		{"tolerance of one", func(c *Config) { c.Validation.Tolerance = 1 }, true},
		{"negative delay", func(c *Config) { c.Validation.RequestDelay = -time.Second }, true},
		{"no provider timeout", func(c *Config) { c.Validation.ProviderTimeout = 0 }, true},
		{"max wait equal to provider timeout", func(c *Config) { c.Validation.MaxWait = time.Second }, true},
		{"max wait beyond provider timeout", func(c *Config) { c.Validation.MaxWait = time.Minute }, true},
		{"max wait within provider timeout", func(c *Config) { c.Validation.MaxWait = 500 * time.Millisecond }, false},
		{"write timeout within provider timeout", func(c *Config) { c.Server.WriteTimeout = time.Second }, true},
		{"write timeout beyond provider timeout", func(c *Config) { c.Server.WriteTimeout = time.Minute }, false},
		{"negative cache ttl", func(c *Config) { c.Validation.CacheTTL = -time.Second }, true},
		{"negative retries", func(c *Config) { c.RateLimit.MaxRetries = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCatalogConfigured(t *testing.T) {
	cfg := Config{}
	assert.False(t, cfg.CatalogConfigured())

	cfg.Providers.Catalog = CatalogProviderConfig{Enabled: true, Token: "t"}
	assert.False(t, cfg.CatalogConfigured(), "catalog needs an actor id")

	cfg.Providers.Catalog.ActorID = "a"
	assert.True(t, cfg.CatalogConfigured())

	cfg.Providers.Catalog.Enabled = false
	assert.False(t, cfg.CatalogConfigured())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, LoggingConfig{Level: "WARN"}.ParseLogLevel())
	assert.Equal(t, zerolog.InfoLevel, LoggingConfig{Level: "nonsense"}.ParseLogLevel())
	assert.Equal(t, zerolog.InfoLevel, LoggingConfig{}.ParseLogLevel())
}
