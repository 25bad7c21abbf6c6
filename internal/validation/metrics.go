package validation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// itemResults tracks validated items by outcome.
	itemResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_validation_items_total",
		Help: "Total number of validated receipt items by status and method",
	}, []string{"status", "method"})

	// receiptDuration tracks the time taken to validate a whole receipt.
	receiptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "receipt_validation_duration_seconds",
		Help:    "Time taken to validate a receipt by overall status",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"overall_status"})

	// flaggedItems tracks items flagged as overcharges.
	flaggedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_validation_flagged_items_total",
		Help: "Total number of items flagged as possible or significant overcharges",
	}, []string{"retailer"})

	// overchargeCents tracks the potential overcharge amounts found.
	overchargeCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_validation_potential_overcharge_cents_total",
		Help: "Sum of potential overcharges found, in cents",
	}, []string{"retailer"})

	// providerCalls tracks outbound provider calls by outcome.
	providerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_provider_calls_total",
		Help: "Total number of price provider calls by provider and outcome",
	}, []string{"provider", "outcome"}) // outcome: found, not_found, error, circuit_open

	// providerLatency tracks provider call latency.
	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "receipt_provider_call_duration_seconds",
		Help:    "Price provider call latency by provider",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider"})

	// circuitState tracks the circuit breaker state per provider (0 closed, 1 open, 2 half-open).
	circuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "receipt_provider_circuit_state",
		Help: "Circuit breaker state by provider (0=closed, 1=open, 2=half-open)",
	}, []string{"provider"})

	// receiptsParsed tracks parsed receipts by detected retailer.
	receiptsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_parsed_total",
		Help: "Total number of parsed receipts by retailer",
	}, []string{"retailer"})

	// parsedItemCount tracks the number of items found per receipt.
	parsedItemCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "receipt_parsed_items_count",
		Help:    "Number of items extracted per parsed receipt",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})
)

// MetricsRecorder provides methods to record validation metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordItem records one item result.
func (m *MetricsRecorder) RecordItem(r PriceValidationResult) {
	itemResults.WithLabelValues(string(r.Status), string(r.Method)).Inc()
}

// RecordReceipt records a completed receipt validation.
func (m *MetricsRecorder) RecordReceipt(s *ValidationSummary, duration time.Duration) {
	receiptDuration.WithLabelValues(string(s.OverallStatus)).Observe(duration.Seconds())
	retailer := string(s.Retailer)
	if n := len(s.FlaggedItems); n > 0 {
		flaggedItems.WithLabelValues(retailer).Add(float64(n))
	}
	if s.TotalPotentialOvercharge > 0 {
		overchargeCents.WithLabelValues(retailer).Add(float64(s.TotalPotentialOvercharge))
	}
}

// RecordProviderCall records the outcome and latency of a provider call.
func (m *MetricsRecorder) RecordProviderCall(provider, outcome string, duration time.Duration) {
	providerCalls.WithLabelValues(provider, outcome).Inc()
	providerLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCircuitState records a circuit breaker state change.
func (m *MetricsRecorder) RecordCircuitState(provider string, state CircuitBreakerState) {
	circuitState.WithLabelValues(provider).Set(float64(state))
}

// RecordReceiptParsed records a parsed receipt.
func (m *MetricsRecorder) RecordReceiptParsed(retailer string, items int) {
	receiptsParsed.WithLabelValues(retailer).Inc()
	parsedItemCount.Observe(float64(items))
}
