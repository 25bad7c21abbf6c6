package providers

import (
	"context"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	httpclient "github.com/kosarica/receipt-service/internal/http"
)

// pagePricePatterns are tried in order; the first pattern with a positive
// capture wins
var pagePricePatterns = []*regexp.Regexp{
	// JSON-LD offer: "price": "3.98" or "price": 3.98
	regexp.MustCompile(`"price"\s*:\s*"?\$?(\d{1,6}(?:,\d{3})*(?:\.\d{1,2})?)"?`),
	// microdata: itemprop="price" content="3.98"
	regexp.MustCompile(`itemprop=["']price["'][^>]*?content=["']\$?(\d[\d,]*(?:\.\d{1,2})?)["']`),
	regexp.MustCompile(`content=["']\$?(\d[\d,]*(?:\.\d{1,2})?)["'][^>]*?itemprop=["']price["']`),
	// Open Graph product price
	regexp.MustCompile(`property=["'](?:product|og):price:amount["'][^>]*?content=["'](\d[\d,]*(?:\.\d{1,2})?)["']`),
	regexp.MustCompile(`content=["'](\d[\d,]*(?:\.\d{1,2})?)["'][^>]*?property=["'](?:product|og):price:amount["']`),
	// visible text, last resort
	regexp.MustCompile(`\$\s?(\d{1,6}(?:,\d{3})*\.\d{2})`),
}

// PageScraper fetches product pages and extracts the listed price
type PageScraper struct {
	client *httpclient.Client
	logger *zerolog.Logger
}

// NewPageScraper creates a product page price fetcher
func NewPageScraper(client *httpclient.Client, logger *zerolog.Logger) *PageScraper {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PageScraper{client: client, logger: logger}
}

// Name returns the provider name
func (s *PageScraper) Name() string { return "scraper" }

// FetchPrice downloads the page at url and returns its price in cents
func (s *PageScraper) FetchPrice(ctx context.Context, url string) (int64, error) {
	if url == "" {
		return 0, ErrNotFound
	}

	header := http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"en-US,en;q=0.9"},
	}
	body, err := s.client.GetBytes(ctx, url, header)
	if err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return 0, ErrNotFound
		}
		return 0, wrapError(s.Name(), "fetch page", err)
	}

	cents, ok := ExtractPagePrice(string(body))
	if !ok {
		s.logger.Debug().Str("url", url).Int("bytes", len(body)).Msg("No price found on product page")
		return 0, ErrNotFound
	}
	return cents, nil
}

// ExtractPagePrice finds the product price in an HTML document
func ExtractPagePrice(html string) (int64, bool) {
	for _, re := range pagePricePatterns {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			if len(m) < 2 {
				continue
			}
			if cents, ok := parseDecimalCents(m[1]); ok && cents > 0 {
				return cents, true
			}
		}
	}
	return 0, false
}
