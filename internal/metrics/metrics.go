// Package metrics collects and exposes Prometheus metrics for the API and
// the store.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bughive"

// Recorder is what the HTTP layer and the store wrapper report to.
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	RecordAuthFailure(reason string)
	RecordTransaction(mode, outcome string, duration time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	authFailures    *prometheus.CounterVec
	transactions    *prometheus.CounterVec
	transactionTime *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected logins and bearer tokens by reason.",
		}, []string{"reason"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_transactions_total",
			Help:      "Store transactions by mode (view, update) and outcome.",
		}, []string{"mode", "outcome"}),
		transactionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_transaction_duration_seconds",
			Help:      "Store transaction latency by mode.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"mode"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.authFailures,
		c.transactions,
		c.transactionTime,
	)

	return c
}

// RecordRequest records one served HTTP request.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAuthFailure records a rejected credential.
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// RecordTransaction records a finished store transaction.
func (c *Collector) RecordTransaction(mode, outcome string, duration time.Duration) {
	c.transactions.WithLabelValues(mode, outcome).Inc()
	c.transactionTime.WithLabelValues(mode).Observe(duration.Seconds())
}

// Nop discards everything. Used when metrics are disabled.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordAuthFailure(string)                         {}
func (Nop) RecordTransaction(string, string, time.Duration)  {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
