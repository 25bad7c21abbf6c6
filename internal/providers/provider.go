// Package providers implements the external product-data sources used to
// look up online prices: a UPC database, an asynchronous catalog search
// job API and a product page scraper.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/kosarica/receipt-service/internal/receipt"
)

var (
	// ErrNotFound is returned when a provider answered cleanly but had no match
	ErrNotFound = errors.New("product not found")
	// ErrNotConfigured is returned when a provider lacks the credentials it needs
	ErrNotConfigured = errors.New("provider not configured")
)

// Query describes the product being looked up
type Query struct {
	Retailer    receipt.RetailerType
	ProductCode string
	Name        string
}

// Match is a provider's answer. Price is nil when the provider only knows
// where the product page is.
type Match struct {
	Price       *int64 `json:"price,omitempty"` // cents
	ProductURL  string `json:"productUrl,omitempty"`
	MatchedCode string `json:"matchedCode,omitempty"`
	Title       string `json:"title,omitempty"`
}

// HasPrice reports whether the match carries a usable (positive) price
func (m *Match) HasPrice() bool {
	return m != nil && m.Price != nil && *m.Price > 0
}

// Provider looks up a product. It returns ErrNotFound for a clean miss;
// any other error is a provider failure.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, q Query) (*Match, error)
}

// PageFetcher extracts the current price from a specific product page
type PageFetcher interface {
	Name() string
	FetchPrice(ctx context.Context, url string) (int64, error)
}

// ProviderError wraps a failure from a named provider operation
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func wrapError(provider, op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}
