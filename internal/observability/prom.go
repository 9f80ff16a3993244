package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "p3"

// PromMetrics holds the Prometheus collectors for one registry.
type PromMetrics struct {
	registry *prometheus.Registry

	SamplesCollected  *prometheus.CounterVec
	ModelsTrained     prometheus.Counter
	AnomalyChecks     *prometheus.CounterVec
	LastAnomalyScore  prometheus.Gauge
	HistorySize       prometheus.Gauge
	QueriesClassified *prometheus.CounterVec
	QueryIssues       *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewPromMetrics registers p3's collectors on a fresh registry.
func NewPromMetrics() *PromMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PromMetrics{
		registry: reg,
		SamplesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_collected_total",
			Help:      "Metric samples collected by source.",
		}, []string{"source"}),
		ModelsTrained: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "models_trained_total",
			Help:      "Successful anomaly model training runs.",
		}),
		AnomalyChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_checks_total",
			Help:      "Scored samples by verdict.",
		}, []string{"verdict"}),
		LastAnomalyScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_anomaly_score",
			Help:      "Score of the most recently analysed sample; negative is anomalous.",
		}),
		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_samples",
			Help:      "Samples currently held in the metrics history.",
		}),
		QueriesClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_classified_total",
			Help:      "Classified queries by severity.",
		}, []string{"severity"}),
		QueryIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_issues_total",
			Help:      "Detected query issues by category.",
		}, []string{"category"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status class.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (p *PromMetrics) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request. route should be the route
// template, not the raw path.
func (p *PromMetrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	p.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	p.HTTPRequestsTotal.WithLabelValues(method, route, statusBucket(status)).Inc()
}

// statusBucket groups HTTP status codes into classes (2xx, 3xx, ...).
func statusBucket(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
