// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector. Build it once per process with New.
type Metrics struct {
	OrdersCreated     *prometheus.CounterVec
	ItemCancellations *prometheus.CounterVec
	EffectFailures    *prometheus.CounterVec
	DBOperation       *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors under namespace on reg. A nil reg means a
// fresh private registry.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		OrdersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_orders_created_total",
			Help:      "Draft purchase orders created, by source.",
		}, []string{"source"}),
		ItemCancellations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_cancellations_total",
			Help:      "Line cancellation requests, by outcome.",
		}, []string{"outcome"}),
		EffectFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effect_failures_total",
			Help:      "Post-commit side effects that failed, by effect.",
		}, []string{"effect"}),
		DBOperation: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database transactions in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
}

// TrackDB records one database transaction.
func (m *Metrics) TrackDB(operation string, d time.Duration, err error) {
	if err != nil {
		operation += "_error"
	}
	m.DBOperation.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
