package validation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/receipt-service/internal/providers"
	"github.com/kosarica/receipt-service/internal/receipt"
)

type mockProvider struct {
	name   string
	lookup func(ctx context.Context, q providers.Query) (*providers.Match, error)
	calls  atomic.Int32
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Lookup(ctx context.Context, q providers.Query) (*providers.Match, error) {
	m.calls.Add(1)
	return m.lookup(ctx, q)
}

type mockPages struct {
	price int64
	err   error
	calls atomic.Int32
}

func (m *mockPages) Name() string { return "pages" }

func (m *mockPages) FetchPrice(ctx context.Context, url string) (int64, error) {
	m.calls.Add(1)
	return m.price, m.err
}

func priced(cents int64) *providers.Match {
	return &providers.Match{Price: &cents}
}

func returns(m *providers.Match, err error) func(context.Context, providers.Query) (*providers.Match, error) {
	return func(context.Context, providers.Query) (*providers.Match, error) { return m, err }
}

func newTestValidator(set providers.Set) *Validator {
	opts := DefaultOptions()
	opts.ProviderTimeout = 5 * time.Second
	return NewValidator(set, opts, nil)
}

var (
	codedItem   = Item{Name: "GV MILK 1GAL", Price: 1000, Code: "078742351865"}
	uncodedItem = Item{Name: "BANANAS", Price: 1000}
)

func TestValidateItem_ProductCodeDirect(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(priced(1000), nil)}
	name := &mockProvider{name: "catalog", lookup: returns(priced(1), nil)}
	v := newTestValidator(providers.Set{Code: code, Name: name})

	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusExactMatch, r.Status)
	assert.Equal(t, MethodUPCDirect, r.Method)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
	assert.Equal(t, "upc", r.Source)
	require.NotNil(t, r.OnlinePrice)
	assert.Equal(t, int64(1000), *r.OnlinePrice)
	assert.Equal(t, int32(0), name.calls.Load())
}

func TestValidateItem_ProductPageWhenOnlyLinkReturned(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(&providers.Match{ProductURL: "https://www.walmart.com/ip/123"}, nil)}
	pages := &mockPages{price: 1150}
	v := newTestValidator(providers.Set{Code: code, Pages: pages})

	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusReceiptLower, r.Status)
	assert.Equal(t, MethodUPCScrape, r.Method)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
	assert.Equal(t, "pages", r.Source)
	require.NotNil(t, r.ProductURL)
	assert.Equal(t, "https://www.walmart.com/ip/123", *r.ProductURL)
	assert.Equal(t, int32(1), pages.calls.Load())
}

func TestValidateItem_FallsBackToNameSearch(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(nil, errors.New("connection refused"))}
	name := &mockProvider{name: "catalog", lookup: returns(&providers.Match{Price: priced(750).Price, MatchedCode: "78742351865"}, nil)}
	v := newTestValidator(providers.Set{Code: code, Name: name})

	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusSignificantOvercharge, r.Status)
	assert.Equal(t, MethodNameSearch, r.Method)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
	assert.Equal(t, int64(250), r.PriceDifference)
	assert.True(t, r.ShouldFlag())
}

func TestValidateItem_NameSearchCodeMismatch(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(nil, providers.ErrNotFound)}
	name := &mockProvider{name: "catalog", lookup: returns(&providers.Match{Price: priced(1000).Price, MatchedCode: "0000000099999"}, nil)}
	v := newTestValidator(providers.Set{Code: code, Name: name})

	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusExactMatch, r.Status)
	assert.Equal(t, ConfidenceMedium, r.Confidence)
	assert.Contains(t, r.Notes, "product code mismatch")
}

func TestValidateItem_NoCodeIsLowConfidence(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(priced(1), nil)}
	name := &mockProvider{name: "catalog", lookup: returns(priced(1050), nil)}
	v := newTestValidator(providers.Set{Code: code, Name: name})

	r := v.ValidateItem(context.Background(), uncodedItem, receipt.RetailerUnknown)

	assert.Equal(t, StatusWithinTolerance, r.Status)
	assert.Equal(t, ConfidenceLow, r.Confidence)
	assert.Equal(t, int32(0), code.calls.Load())
}

func TestValidateItem_NonPositivePriceIsAMiss(t *testing.T) {
	t.Run("falls through to name search", func(t *testing.T) {
		code := &mockProvider{name: "upc", lookup: returns(priced(0), nil)}
		name := &mockProvider{name: "catalog", lookup: returns(priced(1000), nil)}
		v := newTestValidator(providers.Set{Code: code, Name: name})

		r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

		assert.Equal(t, StatusExactMatch, r.Status)
		assert.Equal(t, MethodNameSearch, r.Method)
		assert.Equal(t, int32(1), name.calls.Load())
	})

	t.Run("zero page price", func(t *testing.T) {
		code := &mockProvider{name: "upc", lookup: returns(&providers.Match{ProductURL: "https://www.walmart.com/ip/123"}, nil)}
		pages := &mockPages{price: 0}
		v := newTestValidator(providers.Set{Code: code, Pages: pages})

		r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

		assert.Equal(t, StatusNotFound, r.Status)
		assert.Equal(t, ConfidenceNone, r.Confidence)
		assert.Nil(t, r.OnlinePrice)
	})

	t.Run("every source priced at zero", func(t *testing.T) {
		code := &mockProvider{name: "upc", lookup: returns(priced(0), nil)}
		name := &mockProvider{name: "catalog", lookup: returns(priced(-5), nil)}
		v := newTestValidator(providers.Set{Code: code, Name: name})

		r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

		assert.Equal(t, StatusNotFound, r.Status)
		assert.Equal(t, ConfidenceNone, r.Confidence)
		assert.Equal(t, MethodNone, r.Method)
		assert.Nil(t, r.OnlinePrice)
		assert.NotContains(t, r.Notes, "0.00")
	})
}

func TestValidateItem_NotFound(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(nil, providers.ErrNotFound)}
	name := &mockProvider{name: "catalog", lookup: returns(nil, nil)}
	v := newTestValidator(providers.Set{Code: code, Name: name})

	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusNotFound, r.Status)
	assert.Equal(t, ConfidenceNone, r.Confidence)
	assert.Equal(t, MethodNone, r.Method)
	assert.Nil(t, r.OnlinePrice)
}

func TestValidateItem_AllStrategiesFailed(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(nil, errors.New("503"))}
	name := &mockProvider{name: "catalog", lookup: returns(nil, errors.New("timeout"))}
	v := newTestValidator(providers.Set{Code: code, Name: name})

	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, ConfidenceNone, r.Confidence)
	assert.Contains(t, r.Notes, "product code lookup failed")
	assert.Contains(t, r.Notes, "name search failed")
}

func TestValidateItem_PartialFailureIsNotFound(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(nil, errors.New("503"))}
	name := &mockProvider{name: "catalog", lookup: returns(nil, providers.ErrNotFound)}
	v := newTestValidator(providers.Set{Code: code, Name: name})

	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusNotFound, r.Status)
}

func TestValidateItem_CircuitOpenSkipsProvider(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(nil, errors.New("503"))}
	opts := DefaultOptions()
	opts.CircuitBreaker = &CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour, HalfOpenMaxCalls: 1}
	v := NewValidator(providers.Set{Code: code}, opts, nil)

	v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)
	r := v.ValidateItem(context.Background(), codedItem, receipt.RetailerWalmart)

	assert.Equal(t, StatusError, r.Status)
	assert.Contains(t, r.Notes, ErrCircuitOpen.Error())
	assert.Equal(t, int32(1), code.calls.Load())
}

func TestValidateReceipt(t *testing.T) {
	prices := map[string]int64{"A": 1000, "B": 1000, "C": 1000}
	code := &mockProvider{name: "upc", lookup: func(_ context.Context, q providers.Query) (*providers.Match, error) {
		return priced(prices[q.Name]), nil
	}}
	v := newTestValidator(providers.Set{Code: code})

	items := []Item{
		{Name: "A", Price: 1000, Code: "11111111"},
		{Name: "B", Price: 1150, Code: "22222222"},
		{Name: "C", Price: 1300, Code: "33333333"},
	}

	var progress []Progress
	summary, err := v.ValidateReceipt(context.Background(), items, receipt.RetailerTarget, func(p Progress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Regexp(t, `^val_`, summary.RunID)
	assert.Equal(t, receipt.RetailerTarget, summary.Retailer)
	assert.Equal(t, DefaultTolerance, summary.Tolerance)
	require.Len(t, summary.Results, 3)
	for i, r := range summary.Results {
		assert.Equal(t, items[i].Name, r.Item.Name)
	}
	assert.Equal(t, OverallSignificantIssues, summary.OverallStatus)
	assert.Equal(t, int64(450), summary.TotalPotentialOvercharge)
	assert.False(t, summary.CompletedAt.Before(summary.StartedAt))

	require.Len(t, progress, 3)
	assert.InDelta(t, 1.0/3, progress[0].Fraction, 1e-9)
	assert.InDelta(t, 2.0/3, progress[1].Fraction, 1e-9)
	assert.Equal(t, 1.0, progress[2].Fraction)
	assert.Equal(t, 3, progress[2].Total)
	assert.Equal(t, "C", progress[2].Last.Item.Name)
}

func TestValidateReceipt_Unavailable(t *testing.T) {
	pages := &mockPages{price: 100}
	v := newTestValidator(providers.Set{Pages: pages})
	assert.False(t, v.Available())

	summary, err := v.ValidateReceipt(context.Background(), []Item{codedItem, uncodedItem}, receipt.RetailerWalmart, nil)

	require.ErrorIs(t, err, ErrValidationUnavailable)
	require.NotNil(t, summary)
	require.Len(t, summary.Results, 2)
	for _, r := range summary.Results {
		assert.Equal(t, StatusError, r.Status)
	}
	assert.Equal(t, OverallNeedsReview, summary.OverallStatus)
	assert.Equal(t, int32(0), pages.calls.Load())
}

func TestValidateReceipt_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	code := &mockProvider{name: "upc"}
	code.lookup = func(context.Context, providers.Query) (*providers.Match, error) {
		cancel()
		return priced(1000), nil
	}
	v := newTestValidator(providers.Set{Code: code})

	summary, err := v.ValidateReceipt(ctx, []Item{codedItem, codedItem, codedItem}, receipt.RetailerWalmart, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, summary)
	assert.Equal(t, int32(1), code.calls.Load())
}

func TestValidateReceipt_Empty(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(priced(1000), nil)}
	v := newTestValidator(providers.Set{Code: code})

	summary, err := v.ValidateReceipt(context.Background(), nil, receipt.RetailerUnknown, nil)

	require.NoError(t, err)
	assert.Empty(t, summary.Results)
	assert.Equal(t, OverallNeedsReview, summary.OverallStatus)
}

func TestWithTolerance(t *testing.T) {
	code := &mockProvider{name: "upc", lookup: returns(priced(1000), nil)}
	v := newTestValidator(providers.Set{Code: code})

	strict := v.WithTolerance(0.05)
	assert.Equal(t, 0.05, strict.Tolerance())
	assert.Equal(t, DefaultTolerance, v.Tolerance())
	assert.Same(t, v, v.WithTolerance(0))

	r := strict.ValidateItem(context.Background(), Item{Name: "A", Price: 1090, Code: "11111111"}, receipt.RetailerWalmart)
	assert.Equal(t, StatusPossibleOvercharge, r.Status)
}

func TestItemsFromReceipt(t *testing.T) {
	sku := "078742351865"
	data := &receipt.ScannedReceiptData{Items: []receipt.ScannedItem{
		{Name: "MILK", Price: 349, SKU: &sku},
		{Name: "BREAD", Price: 199},
	}}

	items := ItemsFromReceipt(data)

	require.Len(t, items, 2)
	assert.Equal(t, Item{Name: "MILK", Price: 349, Code: sku}, items[0])
	assert.False(t, items[1].HasCode())
}
