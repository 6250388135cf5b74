package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects PriceWatch metrics on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	fetchErrors   *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	evaluations   *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastDeltaOC   *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_fetch_errors_total",
				Help: "Total number of failed price source calls",
			},
			[]string{"source"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricewatch_fetch_duration_seconds",
				Help:    "Duration of price source calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_evaluations_total",
				Help: "Total number of alert evaluations by verdict reason",
			},
			[]string{"reason"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_alerts_total",
				Help: "Total number of triggered alerts",
			},
			[]string{"ticker"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_errors_total",
				Help: "Total number of collaborator errors",
			},
			[]string{"component"},
		),
		lastDeltaOC: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricewatch_last_delta_oc_percent",
				Help: "Open-to-close delta of the latest evaluated bar",
			},
			[]string{"ticker"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDurations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricewatch_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
	}
}

// Handler exposes the registry for scraping
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordFetchError records a failed call to a price source
func (r *Recorder) RecordFetchError(source string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(source).Inc()
}

// RecordFetchLatency records a price source call duration
func (r *Recorder) RecordFetchLatency(source string, seconds float64) {
	if r == nil {
		return
	}
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
}

// RecordEvaluation records a verdict and, for alerts, the ticker
func (r *Recorder) RecordEvaluation(ticker, reason string, alert bool) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(reason).Inc()
	if alert {
		r.alerts.WithLabelValues(ticker).Inc()
	}
}

// RecordLastDelta records the latest open-to-close delta
func (r *Recorder) RecordLastDelta(ticker string, deltaOC float64) {
	if r == nil {
		return
	}
	r.lastDeltaOC.WithLabelValues(ticker).Set(deltaOC)
}

// RecordError records a collaborator failure
func (r *Recorder) RecordError(component string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(component).Inc()
}

// RecordHTTP records a served request. Use the route template, not the raw path.
func (r *Recorder) RecordHTTP(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDurations.WithLabelValues(route, method).Observe(seconds)
}
