// Package validation compares receipt prices with online prices and
// classifies each item as a match, normal variance or possible overcharge.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kosarica/receipt-service/internal/matching"
	"github.com/kosarica/receipt-service/internal/pkg/cuid2"
	"github.com/kosarica/receipt-service/internal/providers"
	"github.com/kosarica/receipt-service/internal/receipt"
)

const (
	tracerName = "github.com/kosarica/receipt-service/internal/validation"

	// DefaultProviderTimeout bounds a single provider call
	DefaultProviderTimeout = 90 * time.Second

	runIDPrefix = "val"
)

// ErrValidationUnavailable is returned when no price provider is configured
var ErrValidationUnavailable = errors.New("validation not available: no price provider configured")

// Options configures a Validator
type Options struct {
	Tolerance       float64
	ProviderTimeout time.Duration
	CircuitBreaker  *CircuitBreakerConfig
}

// DefaultOptions returns the default validator options
func DefaultOptions() Options {
	return Options{
		Tolerance:       DefaultTolerance,
		ProviderTimeout: DefaultProviderTimeout,
		CircuitBreaker:  DefaultCircuitBreakerConfig(),
	}
}

// Progress reports how far a receipt validation has come
type Progress struct {
	Completed int                   `json:"completed"`
	Total     int                   `json:"total"`
	Fraction  float64               `json:"fraction"`
	Last      PriceValidationResult `json:"last"`
}

// ProgressFunc is called after each item completes
type ProgressFunc func(Progress)

// Validator looks up online prices for receipt items, trying product-code
// lookup, product page fetch and name search in that order.
type Validator struct {
	providers providers.Set
	opts      Options
	breakers  map[string]*CircuitBreaker
	metrics   *MetricsRecorder
	tracer    trace.Tracer
	logger    *zerolog.Logger
}

// NewValidator creates a validator over the given providers
func NewValidator(set providers.Set, opts Options, logger *zerolog.Logger) *Validator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.CircuitBreaker == nil {
		opts.CircuitBreaker = DefaultCircuitBreakerConfig()
	}

	metrics := NewMetricsRecorder()
	breakers := make(map[string]*CircuitBreaker)
	for _, name := range set.Names() {
		l := logger.With().Str("provider", name).Logger()
		breakers[name] = NewCircuitBreaker(name, opts.CircuitBreaker, metrics, &l)
	}

	return &Validator{
		providers: set,
		opts:      opts,
		breakers:  breakers,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// Available reports whether any price provider is configured
func (v *Validator) Available() bool {
	return v.providers.Available()
}

// Tolerance returns the configured tolerance fraction
func (v *Validator) Tolerance() float64 {
	return v.opts.Tolerance
}

// WithTolerance returns a validator sharing providers and circuit breakers
// but classifying with a different tolerance
func (v *Validator) WithTolerance(tolerance float64) *Validator {
	if tolerance <= 0 || tolerance == v.opts.Tolerance {
		return v
	}
	clone := *v
	clone.opts.Tolerance = tolerance
	return &clone
}

// ValidateReceipt validates items one at a time, in order. Cancellation is
// checked before each item; a cancelled run returns the context error and no
// summary. When no provider is configured every item resolves to an Error
// result and ErrValidationUnavailable is returned alongside the summary.
func (v *Validator) ValidateReceipt(ctx context.Context, items []Item, retailer receipt.RetailerType, progress ProgressFunc) (*ValidationSummary, error) {
	ctx, span := v.tracer.Start(ctx, "validation.ValidateReceipt", trace.WithAttributes(
		attribute.String("retailer", string(retailer)),
		attribute.Int("items", len(items)),
	))
	defer span.End()

	startedAt := time.Now()
	runID := cuid2.Generate(runIDPrefix)
	logger := v.logger.With().Str("run_id", runID).Str("retailer", string(retailer)).Logger()

	if !v.Available() {
		results := make([]PriceValidationResult, 0, len(items))
		for _, item := range items {
			results = append(results, unavailableResult(item))
		}
		summary := v.finish(runID, retailer, results, startedAt)
		span.SetStatus(codes.Error, ErrValidationUnavailable.Error())
		logger.Warn().Int("items", len(items)).Msg("Validation requested without a configured price provider")
		return summary, ErrValidationUnavailable
	}

	logger.Info().Int("items", len(items)).Float64("tolerance", v.opts.Tolerance).Msg("Starting receipt validation")

	results := make([]PriceValidationResult, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			logger.Info().Int("completed", i).Int("total", len(items)).Msg("Receipt validation cancelled")
			return nil, err
		}

		result := v.ValidateItem(ctx, item, retailer)
		results = append(results, result)

		if progress != nil {
			progress(Progress{
				Completed: i + 1,
				Total:     len(items),
				Fraction:  float64(i+1) / float64(len(items)),
				Last:      result,
			})
		}
	}

	summary := v.finish(runID, retailer, results, startedAt)
	v.metrics.RecordReceipt(summary, summary.CompletedAt.Sub(startedAt))

	span.SetAttributes(
		attribute.String("overall_status", string(summary.OverallStatus)),
		attribute.Int("flagged", len(summary.FlaggedItems)),
	)
	logger.Info().
		Str("overall_status", string(summary.OverallStatus)).
		Int("flagged", len(summary.FlaggedItems)).
		Int64("potential_overcharge", summary.TotalPotentialOvercharge).
		Dur("duration", summary.CompletedAt.Sub(startedAt)).
		Msg("Receipt validation complete")

	return summary, nil
}

func (v *Validator) finish(runID string, retailer receipt.RetailerType, results []PriceValidationResult, startedAt time.Time) *ValidationSummary {
	summary := Summarize(results)
	summary.RunID = runID
	summary.Retailer = retailer
	summary.Tolerance = v.opts.Tolerance
	summary.StartedAt = startedAt
	summary.CompletedAt = time.Now()
	return &summary
}

// ValidateItem looks up the online price of one item and classifies it.
// Provider failures never escape: they fall through to the next strategy
// and surface as an Error result only when every attempted strategy failed.
func (v *Validator) ValidateItem(ctx context.Context, item Item, retailer receipt.RetailerType) PriceValidationResult {
	ctx, span := v.tracer.Start(ctx, "validation.ValidateItem", trace.WithAttributes(
		attribute.String("item", item.Name),
		attribute.Bool("has_code", item.HasCode()),
	))
	defer span.End()

	result := v.validateItem(ctx, item, retailer)

	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("method", string(result.Method)),
	)
	if result.Status == StatusError {
		span.SetStatus(codes.Error, result.Notes)
	}
	v.metrics.RecordItem(result)

	v.logger.Debug().
		Str("item", item.Name).
		Str("status", string(result.Status)).
		Str("method", string(result.Method)).
		Str("confidence", string(result.Confidence)).
		Msg("Validated item")

	return result
}

func (v *Validator) validateItem(ctx context.Context, item Item, retailer receipt.RetailerType) PriceValidationResult {
	if !v.Available() {
		return unavailableResult(item)
	}

	var notes []string
	attempted, failed := 0, 0
	fail := func(strategy string, err error) {
		failed++
		notes = append(notes, fmt.Sprintf("%s failed: %v", strategy, err))
	}

	// 1-2. product code lookup, then the exact product page when only a link came back
	if item.HasCode() && v.providers.Code != nil {
		attempted++
		code := v.providers.Code
		match, err := v.lookup(ctx, code, providers.Query{Retailer: retailer, ProductCode: item.Code, Name: item.Name})
		switch {
		case err == nil && match.HasPrice():
			return v.priced(item, *match.Price, MethodUPCDirect, code.Name(), match, "")
		case err == nil && match.ProductURL != "" && v.providers.Pages != nil:
			price, perr := v.fetchPage(ctx, match.ProductURL)
			if perr == nil && price <= 0 {
				perr = providers.ErrNotFound
			}
			switch {
			case perr == nil:
				return v.priced(item, price, MethodUPCScrape, v.providers.Pages.Name(), match, "")
			case errors.Is(perr, providers.ErrNotFound):
				notes = append(notes, "product page listed no price")
			default:
				fail("product page", perr)
			}
		case err == nil:
			notes = append(notes, "product code lookup returned no price")
		case errors.Is(err, providers.ErrNotFound):
			notes = append(notes, "product code not found")
		default:
			fail("product code lookup", err)
		}
	}

	// 3. name search
	if v.providers.Name != nil && strings.TrimSpace(item.Name) != "" {
		attempted++
		search := v.providers.Name
		match, err := v.lookup(ctx, search, providers.Query{Retailer: retailer, ProductCode: item.Code, Name: item.Name})
		switch {
		case err == nil && match.HasPrice():
			note := ""
			if item.HasCode() && match.MatchedCode != "" && !matching.CodesMatch(item.Code, match.MatchedCode) {
				note = fmt.Sprintf("product code mismatch: receipt %s, online %s", item.Code, match.MatchedCode)
				v.logger.Warn().
					Str("item", item.Name).
					Str("receipt_code", item.Code).
					Str("online_code", match.MatchedCode).
					Msg("Name search matched a product with a different code")
			}
			return v.priced(item, *match.Price, MethodNameSearch, search.Name(), match, note)
		case err == nil, errors.Is(err, providers.ErrNotFound):
			notes = append(notes, "name search found no match")
		default:
			fail("name search", err)
		}
	}

	if attempted > 0 && failed == attempted {
		return PriceValidationResult{
			Item:       item,
			Status:     StatusError,
			Confidence: ConfidenceNone,
			Method:     MethodNone,
			Notes:      "could not validate: " + strings.Join(notes, "; "),
		}
	}

	if attempted == 0 {
		notes = append(notes, "no product code and name search is not configured")
	}
	return PriceValidationResult{
		Item:       item,
		Status:     StatusNotFound,
		Confidence: ConfidenceNone,
		Method:     MethodNone,
		Notes:      "no online price found: " + strings.Join(notes, "; "),
	}
}

// priced builds a classified result from an online price
func (v *Validator) priced(item Item, online int64, method Method, source string, match *providers.Match, note string) PriceValidationResult {
	status, diff, percent := Classify(item.Price, online, v.opts.Tolerance)

	result := PriceValidationResult{
		Item:              item,
		OnlinePrice:       &online,
		PriceDifference:   diff,
		PercentDifference: percent,
		Status:            status,
		Confidence:        confidenceFor(item, match, method),
		Method:            method,
		Source:            source,
	}
	if match != nil && match.ProductURL != "" {
		u := match.ProductURL
		result.ProductURL = &u
	}

	notes := []string{describe(status, item.Price, online, percent), "via " + method.DisplayName()}
	if note != "" {
		notes = append(notes, note)
	}
	result.Notes = strings.Join(notes, "; ")
	return result
}

// confidenceFor rates how certain the online product is the receipt's product
func confidenceFor(item Item, match *providers.Match, method Method) Confidence {
	if !item.HasCode() {
		return ConfidenceLow
	}
	matched := ""
	if match != nil {
		matched = match.MatchedCode
	}

	switch method {
	case MethodUPCDirect, MethodUPCScrape:
		// looked up by the receipt's own code
		if matched == "" || matching.CodesMatch(item.Code, matched) {
			return ConfidenceHigh
		}
		return ConfidenceMedium
	case MethodNameSearch:
		if matched != "" && matching.CodesMatch(item.Code, matched) {
			return ConfidenceHigh
		}
		return ConfidenceMedium
	default:
		return ConfidenceNone
	}
}

func describe(status Status, receiptPrice, online int64, percent float64) string {
	r, o := receipt.FormatCents(receiptPrice), receipt.FormatCents(online)
	switch status {
	case StatusExactMatch:
		return fmt.Sprintf("receipt price %s matches online price %s", r, o)
	case StatusWithinTolerance:
		return fmt.Sprintf("receipt price %s is within tolerance of online price %s (%+.1f%%)", r, o, percent)
	case StatusReceiptLower:
		return fmt.Sprintf("receipt price %s is %.1f%% below online price %s", r, -percent, o)
	default:
		return fmt.Sprintf("receipt price %s is %.1f%% above online price %s", r, percent, o)
	}
}

func unavailableResult(item Item) PriceValidationResult {
	return PriceValidationResult{
		Item:       item,
		Status:     StatusError,
		Confidence: ConfidenceNone,
		Method:     MethodNone,
		Notes:      ErrValidationUnavailable.Error(),
	}
}

// lookup calls a provider through its circuit breaker with a bounded wait
func (v *Validator) lookup(ctx context.Context, p providers.Provider, q providers.Query) (*providers.Match, error) {
	var match *providers.Match
	err := v.call(ctx, p.Name(), func(ctx context.Context) error {
		var err error
		match, err = p.Lookup(ctx, q)
		if err == nil && match == nil {
			err = providers.ErrNotFound
		}
		return err
	})
	return match, err
}

func (v *Validator) fetchPage(ctx context.Context, url string) (int64, error) {
	var price int64
	err := v.call(ctx, v.providers.Pages.Name(), func(ctx context.Context) error {
		var err error
		price, err = v.providers.Pages.FetchPrice(ctx, url)
		return err
	})
	return price, err
}

func (v *Validator) call(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := v.tracer.Start(ctx, "provider."+name)
	defer span.End()

	breaker := v.breakers[name]
	if breaker != nil && !breaker.Allow() {
		v.metrics.RecordProviderCall(name, "circuit_open", 0)
		span.SetStatus(codes.Error, ErrCircuitOpen.Error())
		return fmt.Errorf("%s: %w", name, ErrCircuitOpen)
	}

	callCtx, cancel := context.WithTimeout(ctx, v.opts.ProviderTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		v.metrics.RecordProviderCall(name, "found", elapsed)
		if breaker != nil {
			breaker.RecordSuccess()
		}
	case errors.Is(err, providers.ErrNotFound):
		v.metrics.RecordProviderCall(name, "not_found", elapsed)
		span.SetAttributes(attribute.Bool("not_found", true))
		if breaker != nil {
			breaker.RecordSuccess()
		}
	default:
		v.metrics.RecordProviderCall(name, "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// cancellation by the caller is not a provider failure
		if breaker != nil && ctx.Err() == nil {
			breaker.RecordFailure(err)
		}
	}
	return err
}
