package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	httpclient "github.com/kosarica/receipt-service/internal/http"
	"github.com/kosarica/receipt-service/internal/http/ratelimit"
	"github.com/kosarica/receipt-service/internal/matching"
)

const (
	defaultCatalogBaseURL  = "https://api.apify.com"
	defaultPollInterval    = 2 * time.Second
	defaultMaxWait         = 60 * time.Second
	abortTimeout           = 5 * time.Second
	catalogStatusSucceeded = "SUCCEEDED"
)

// ErrRunTimeout is returned when a catalog search run does not finish within MaxWait
var ErrRunTimeout = errors.New("catalog search run did not finish in time")

// CatalogConfig configures the catalog search provider
type CatalogConfig struct {
	BaseURL      string
	Token        string
	ActorID      string
	PollInterval time.Duration
	MaxWait      time.Duration
}

// CatalogSearch searches a retailer's online catalog by product name through
// an asynchronous scraping job API: start a run, poll it until it finishes,
// then read the first result of its dataset.
type CatalogSearch struct {
	client *httpclient.Client
	config CatalogConfig
	logger *zerolog.Logger
}

// NewCatalogSearch creates a catalog search provider
func NewCatalogSearch(config CatalogConfig, client *httpclient.Client, logger *zerolog.Logger) *CatalogSearch {
	if config.BaseURL == "" {
		config.BaseURL = defaultCatalogBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.MaxWait <= 0 {
		config.MaxWait = defaultMaxWait
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CatalogSearch{client: client, config: config, logger: logger}
}

// Name returns the provider name
func (c *CatalogSearch) Name() string { return "catalog" }

type catalogRunInput struct {
	Query    string `json:"query"`
	Retailer string `json:"retailer,omitempty"`
	Domain   string `json:"domain,omitempty"`
	MaxItems int    `json:"maxItems"`
}

type catalogRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type catalogRunEnvelope struct {
	Data catalogRun `json:"data"`
}

type catalogItem struct {
	Title string          `json:"title"`
	Price json.RawMessage `json:"price"`
	URL   string          `json:"url"`
	UPC   string          `json:"upc"`
}

// Lookup searches the catalog for the query's product name
func (c *CatalogSearch) Lookup(ctx context.Context, q Query) (*Match, error) {
	if c.config.Token == "" || c.config.ActorID == "" {
		return nil, ErrNotConfigured
	}
	query := matching.NormalizeSearchQuery(q.Name)
	if query == "" {
		return nil, ErrNotFound
	}

	run, err := c.startRun(ctx, catalogRunInput{
		Query:    query,
		Retailer: string(q.Retailer),
		Domain:   q.Retailer.Domain(),
		MaxItems: 1,
	})
	if err != nil {
		return nil, wrapError(c.Name(), "start run", err)
	}

	run, err = c.waitForRun(ctx, run)
	if err != nil {
		return nil, wrapError(c.Name(), "wait for run", err)
	}

	items, err := c.datasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, wrapError(c.Name(), "read dataset", err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	item := items[0]
	match := &Match{
		ProductURL:  item.URL,
		MatchedCode: item.UPC,
		Title:       item.Title,
	}
	if cents, ok := decodeItemPrice(item.Price); ok {
		match.Price = &cents
	}
	if match.Price == nil {
		return nil, ErrNotFound
	}

	c.logger.Debug().
		Str("query", query).
		Str("title", item.Title).
		Int64("price", *match.Price).
		Msg("Catalog search matched")

	return match, nil
}

func (c *CatalogSearch) header() http.Header {
	return http.Header{"Authorization": {"Bearer " + c.config.Token}}
}

func (c *CatalogSearch) startRun(ctx context.Context, input catalogRunInput) (catalogRun, error) {
	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs", c.config.BaseURL, url.PathEscape(c.config.ActorID))

	var env catalogRunEnvelope
	if err := c.client.PostJSON(ctx, endpoint, c.header(), input, &env); err != nil {
		return catalogRun{}, err
	}
	if env.Data.ID == "" {
		return catalogRun{}, errors.New("run id missing from response")
	}
	return env.Data, nil
}

// waitForRun polls the run every PollInterval until it reaches a terminal
// status or MaxWait elapses
func (c *CatalogSearch) waitForRun(ctx context.Context, run catalogRun) (catalogRun, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.config.MaxWait)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s", c.config.BaseURL, url.PathEscape(run.ID))

	for {
		switch run.Status {
		case catalogStatusSucceeded:
			return run, nil
		case "FAILED", "ABORTED", "TIMED-OUT", "TIMED_OUT":
			return run, fmt.Errorf("run %s finished with status %s", run.ID, run.Status)
		}

		if err := ratelimit.Sleep(waitCtx, c.config.PollInterval); err != nil {
			return run, c.runTimeout(ctx, run, err)
		}

		var env catalogRunEnvelope
		if err := c.client.GetJSON(waitCtx, endpoint, c.header(), &env); err != nil {
			if waitCtx.Err() != nil {
				return run, c.runTimeout(ctx, run, waitCtx.Err())
			}
			return run, err
		}
		if env.Data.DefaultDatasetID == "" {
			env.Data.DefaultDatasetID = run.DefaultDatasetID
		}
		if env.Data.ID == "" {
			env.Data.ID = run.ID
		}
		run = env.Data
	}
}

// runTimeout aborts a run that is still live when waiting stops, whether
// MaxWait elapsed or the caller's context ended first. A cancelled parent
// context is reported as is.
func (c *CatalogSearch) runTimeout(ctx context.Context, run catalogRun, err error) error {
	c.abortRun(ctx, run)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w after %s: %v", ErrRunTimeout, c.config.MaxWait, err)
}

func (c *CatalogSearch) abortRun(ctx context.Context, run catalogRun) {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s/abort", c.config.BaseURL, url.PathEscape(run.ID))
	if err := c.client.PostJSON(abortCtx, endpoint, c.header(), struct{}{}, nil); err != nil {
		c.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to abort catalog run")
		return
	}
	c.logger.Debug().Str("run_id", run.ID).Str("status", run.Status).Msg("Aborted catalog run")
}

func (c *CatalogSearch) datasetItems(ctx context.Context, datasetID string) ([]catalogItem, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id missing from run")
	}
	endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?limit=1&clean=true", c.config.BaseURL, url.PathEscape(datasetID))

	var items []catalogItem
	if err := c.client.GetJSON(ctx, endpoint, c.header(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// decodeItemPrice accepts a JSON number (3.98) or string ("$3.98")
func decodeItemPrice(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return floatCents(num)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		cents, ok := parseDecimalCents(text)
		if !ok || cents <= 0 {
			return 0, false
		}
		return cents, true
	}
	return 0, false
}
