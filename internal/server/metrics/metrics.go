// Package metrics holds the Prometheus collectors of the API and the aging
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophtodo"

// Aging outcomes.
const (
	AgingOK       = "ok"
	AgingFailed   = "failed"
	AgingBadInput = "bad_input"
)

type Metrics struct {
	requests        *prometheus.CounterVec   // By route, method and status
	requestDuration *prometheus.HistogramVec // By route
	scheduleErrors  prometheus.Counter
	aging           *prometheus.CounterVec // By outcome
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "method", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		scheduleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aging",
			Name:      "schedule_failures_total",
			Help:      "Aging tasks that could not be registered with the scheduler",
		}),

		aging: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aging",
			Name:      "messages_total",
			Help:      "Aging messages handled by the consumer",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.requestDuration, m.scheduleErrors, m.aging} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) SchedulingFailed() {
	if m == nil {
		return
	}
	m.scheduleErrors.Inc()
}

func (m *Metrics) AgingHandled(outcome string) {
	if m == nil {
		return
	}
	m.aging.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
