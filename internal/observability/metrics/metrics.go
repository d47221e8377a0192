package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                         sync.Once
	metricsRouter                *chi.Mux
	httpRequestDurationHistogram *prometheus.HistogramVec
	invokeDurationHistogram      *prometheus.HistogramVec
	stepFinalizationHistogram    *prometheus.HistogramVec
	refreshOutcomeCounter        *prometheus.CounterVec
	schemaCacheCounter           *prometheus.CounterVec
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	go func() {
		metricsAddr := fmt.Sprintf(":%d", metricsPort)
		err := http.ListenAndServe(metricsAddr, metricsRouter)
		if err != nil {
			log.Fatal().Err(err).Msgf("error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and registers the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of http request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"endpoint", "status"},
	)

	invokeDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contract_invoke_duration_seconds",
			Help:    "Histogram of read-only contract invocation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"entrypoint", "outcome"},
	)

	stepFinalizationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transaction_step_finalization_seconds",
			Help:    "Histogram of submit-to-terminal durations of transaction steps in seconds.",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind", "status"},
	)

	refreshOutcomeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_refresh_total",
			Help: "Count of state cache refresh attempts by slot and outcome.",
		},
		[]string{"slot", "outcome"},
	)

	schemaCacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_cache_lookups_total",
			Help: "Count of schema cache lookups by result.",
		},
		[]string{"result"},
	)

	prometheus.MustRegister(
		httpRequestDurationHistogram,
		invokeDurationHistogram,
		stepFinalizationHistogram,
		refreshOutcomeCounter,
		schemaCacheCounter,
	)
}

// StartHttpRequestDurationTimer starts a timer to measure http request handling duration.
func StartHttpRequestDurationTimer(endpoint string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		httpRequestDurationHistogram.WithLabelValues(endpoint, fmt.Sprintf("%d", statusCode)).Observe(duration)
	}
}

// StartInvokeDurationTimer starts a timer to measure one read-only
// contract invocation.
func StartInvokeDurationTimer(entrypoint string) func(outcome Outcome) {
	startTime := time.Now()
	return func(outcome Outcome) {
		if invokeDurationHistogram == nil {
			return
		}
		duration := time.Since(startTime).Seconds()
		invokeDurationHistogram.WithLabelValues(entrypoint, outcome.String()).Observe(duration)
	}
}

// ObserveStepFinalization records the submit-to-terminal duration of a
// transaction step.
func ObserveStepFinalization(kind, status string, duration time.Duration) {
	if stepFinalizationHistogram == nil {
		return
	}
	stepFinalizationHistogram.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// RecordRefreshOutcome counts one refresh attempt of a cache slot.
func RecordRefreshOutcome(slot string, outcome Outcome) {
	if refreshOutcomeCounter == nil {
		return
	}
	refreshOutcomeCounter.WithLabelValues(slot, outcome.String()).Inc()
}

// RecordSchemaCacheOutcome counts one schema cache lookup.
func RecordSchemaCacheOutcome(hit bool) {
	if schemaCacheCounter == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	schemaCacheCounter.WithLabelValues(result).Inc()
}
