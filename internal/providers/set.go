package providers

import (
	"github.com/rs/zerolog"

	"github.com/kosarica/receipt-service/config"
	httpclient "github.com/kosarica/receipt-service/internal/http"
	"github.com/kosarica/receipt-service/internal/http/ratelimit"
)

// Set groups the providers used by one validator. Nil members are disabled.
type Set struct {
	Code  Provider    // lookup by product code
	Name  Provider    // lookup by free-text name
	Pages PageFetcher // price of a specific product page
}

// Available reports whether any price source is configured
func (s Set) Available() bool {
	return s.Code != nil || s.Name != nil
}

// Names lists the configured provider names
func (s Set) Names() []string {
	var names []string
	if s.Code != nil {
		names = append(names, s.Code.Name())
	}
	if s.Name != nil {
		names = append(names, s.Name.Name())
	}
	if s.Pages != nil {
		names = append(names, s.Pages.Name())
	}
	return names
}

// NewSetFromConfig builds the enabled providers. Each provider gets its own
// HTTP client so request spacing is enforced per provider.
func NewSetFromConfig(cfg *config.Config, logger *zerolog.Logger) Set {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	rl := ratelimit.Config{
		MinInterval:      cfg.Validation.RequestDelay,
		MaxRetries:       cfg.RateLimit.MaxRetries,
		InitialBackoffMs: cfg.RateLimit.InitialBackoffMs,
		MaxBackoffMs:     cfg.RateLimit.MaxBackoffMs,
	}
	newClient := func(name string, opts ...httpclient.Option) *httpclient.Client {
		l := logger.With().Str("provider", name).Logger()
		opts = append(opts, httpclient.WithTimeout(cfg.Validation.ProviderTimeout), httpclient.WithLogger(&l))
		return httpclient.NewClient(name, rl, opts...)
	}

	var set Set
	if p := cfg.Providers.UPC; p.Enabled {
		upc := NewUPCLookup(UPCConfig{BaseURL: p.BaseURL, APIKey: p.APIKey}, newClient("upc"), logger)
		set.Code = NewCachedProvider(upc, cfg.Validation.CacheTTL, cfg.Validation.ProviderTimeout)
	}
	if cfg.CatalogConfigured() {
		p := cfg.Providers.Catalog
		catalog := NewCatalogSearch(CatalogConfig{
			BaseURL:      p.BaseURL,
			Token:        p.Token,
			ActorID:      p.ActorID,
			PollInterval: cfg.Validation.PollInterval,
			MaxWait:      cfg.Validation.MaxWait,
		}, newClient("catalog"), logger)
		set.Name = NewCachedProvider(catalog, cfg.Validation.CacheTTL, cfg.Validation.ProviderTimeout)
	}
	if p := cfg.Providers.Scraper; p.Enabled {
		set.Pages = NewPageScraper(newClient("scraper", httpclient.WithUserAgent(p.UserAgent)), logger)
	}

	logger.Info().Strs("providers", set.Names()).Msg("Price providers configured")
	return set
}
