package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and the collectors the server updates.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	recommendations *prometheus.CounterVec
	setsIngested    *prometheus.CounterVec
}

// NewMetrics creates a registry with build, Go runtime and process collectors
// plus the liftlog request and domain metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftlog",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "liftlog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftlog",
			Name:      "recommendations_total",
			Help:      "Overload recommendations served, by branch.",
		}, []string{"branch"}),
		setsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liftlog",
			Name:      "sets_ingested_total",
			Help:      "Workout sets stored, by source.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.recommendations, m.setsIngested)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests and observes their latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(begin time.Time) {
			m.requestDuration.Observe(time.Since(begin).Seconds())
		}(time.Now())

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		m.requests.With(prometheus.Labels{
			"method": r.Method,
			"status": strconv.Itoa(sw.status),
		}).Inc()
	})
}

func (m *Metrics) observeRecommendation(branch string) {
	if m != nil {
		m.recommendations.WithLabelValues(branch).Inc()
	}
}

func (m *Metrics) observeIngest(source string, inserted int64) {
	if m != nil && inserted > 0 {
		m.setsIngested.WithLabelValues(source).Add(float64(inserted))
	}
}
