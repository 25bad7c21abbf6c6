package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	httpclient "github.com/kosarica/receipt-service/internal/http"
	"github.com/kosarica/receipt-service/internal/matching"
	"github.com/kosarica/receipt-service/internal/receipt"
)

const defaultUPCBaseURL = "https://api.upcitemdb.com"

// UPCConfig configures the UPC database provider
type UPCConfig struct {
	BaseURL string
	APIKey  string // empty uses the keyless trial endpoint
}

// UPCLookup resolves product codes through a UPC database that lists
// retailer offers for each code
type UPCLookup struct {
	client *httpclient.Client
	config UPCConfig
	logger *zerolog.Logger
}

// NewUPCLookup creates a UPC lookup provider
func NewUPCLookup(config UPCConfig, client *httpclient.Client, logger *zerolog.Logger) *UPCLookup {
	if config.BaseURL == "" {
		config.BaseURL = defaultUPCBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &UPCLookup{client: client, config: config, logger: logger}
}

// Name returns the provider name
func (u *UPCLookup) Name() string { return "upc" }

type upcResponse struct {
	Code    string    `json:"code"`
	Total   int       `json:"total"`
	Message string    `json:"message"`
	Items   []upcItem `json:"items"`
}

type upcItem struct {
	EAN    string     `json:"ean"`
	UPC    string     `json:"upc"`
	Title  string     `json:"title"`
	Offers []upcOffer `json:"offers"`
}

type upcOffer struct {
	Merchant string  `json:"merchant"`
	Domain   string  `json:"domain"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Link     string  `json:"link"`
}

// Lookup finds the retailer's offer for the query's product code.
// The match carries a price when the offer lists one, otherwise only the
// offer's product link.
func (u *UPCLookup) Lookup(ctx context.Context, q Query) (*Match, error) {
	code := matching.NormalizeCode(q.ProductCode)
	if code == "" {
		return nil, ErrNotFound
	}
	// the database expects the 12 digit UPC-A form when one exists
	if len(code) == 13 && code[0] == '0' {
		code = code[1:]
	}

	endpoint := u.config.BaseURL + "/prod/trial/lookup"
	header := http.Header{}
	if u.config.APIKey != "" {
		endpoint = u.config.BaseURL + "/prod/v1/lookup"
		header.Set("user_key", u.config.APIKey)
		header.Set("key_type", "3scale")
	}
	endpoint += "?upc=" + url.QueryEscape(code)

	var resp upcResponse
	if err := u.client.GetJSON(ctx, endpoint, header, &resp); err != nil {
		switch httpclient.StatusCode(err) {
		case http.StatusBadRequest, http.StatusNotFound:
			return nil, ErrNotFound
		}
		return nil, wrapError(u.Name(), "lookup", err)
	}

	if !strings.EqualFold(resp.Code, "OK") || len(resp.Items) == 0 {
		return nil, ErrNotFound
	}

	item := resp.Items[0]
	offer, ok := pickOffer(item.Offers, q.Retailer)
	if !ok {
		u.logger.Debug().
			Str("code", code).
			Str("retailer", string(q.Retailer)).
			Int("offers", len(item.Offers)).
			Msg("No retailer offer for product code")
		return nil, ErrNotFound
	}

	match := &Match{
		ProductURL:  offer.Link,
		MatchedCode: firstNonEmpty(item.UPC, item.EAN),
		Title:       firstNonEmpty(offer.Title, item.Title),
	}
	if cents, ok := floatCents(offer.Price); ok {
		match.Price = &cents
	}
	if match.Price == nil && match.ProductURL == "" {
		return nil, ErrNotFound
	}
	return match, nil
}

// pickOffer returns the offer sold by the retailer. For unknown retailers
// the first offer with a price is used.
func pickOffer(offers []upcOffer, retailer receipt.RetailerType) (upcOffer, bool) {
	if !retailer.IsKnown() {
		for _, o := range offers {
			if o.Price > 0 {
				return o, true
			}
		}
		return upcOffer{}, false
	}

	domain := retailer.Domain()
	name := merchantKey(retailer.DisplayName())
	for _, o := range offers {
		if domain != "" && strings.Contains(strings.ToLower(o.Domain), domain) {
			return o, true
		}
		if name != "" && strings.Contains(merchantKey(o.Merchant), name) {
			return o, true
		}
	}
	return upcOffer{}, false
}

func merchantKey(s string) string {
	return strings.NewReplacer(" ", "", "'", "", "-", "").Replace(strings.ToLower(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
