// Package metrics exposes Prometheus instrumentation for browsing sessions.
//
// A nil *Collector is valid and records nothing, so components can be used
// without metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records session, action, planner and rendezvous metrics.
type Collector struct {
	sessionsTotal   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	sessionsActive  prometheus.Gauge
	iterationsTotal prometheus.Counter

	actionsTotal *prometheus.CounterVec

	plannerRequestsTotal   *prometheus.CounterVec
	plannerRequestDuration *prometheus.HistogramVec
	planFallbacksTotal     prometheus.Counter

	rendezvousTotal *prometheus.CounterVec
}

// NewCollector registers the collector's metrics on reg under namespace.
// A nil reg uses the default Prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		sessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Browsing sessions by terminal outcome",
		}, []string{"outcome"}),
		sessionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of browsing sessions",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}, []string{"outcome"}),
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently running",
		}),
		iterationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Plan-act iterations across all sessions",
		}),
		actionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed actions by kind and status",
		}, []string{"kind", "status"}),
		plannerRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_requests_total",
			Help:      "Language model requests by operation and status",
		}, []string{"operation", "status"}),
		plannerRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "planner_request_duration_seconds",
			Help:      "Language model request latency",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"operation"}),
		planFallbacksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_fallbacks_total",
			Help:      "Planner replies that could not be parsed and fell back to extract",
		}),
		rendezvousTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendezvous_total",
			Help:      "Feedback and vision waits by outcome",
		}, []string{"kind", "outcome"}),
	}
}

// SessionStarted marks a session as running.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsActive.Inc()
}

// SessionFinished records a session's outcome and duration.
func (c *Collector) SessionFinished(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
	c.sessionsTotal.WithLabelValues(outcome).Inc()
	c.sessionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Iteration counts one plan-act iteration.
func (c *Collector) Iteration() {
	if c == nil {
		return
	}
	c.iterationsTotal.Inc()
}

// Action records an executed action. status is "ok" or "error".
func (c *Collector) Action(kind, status string) {
	if c == nil {
		return
	}
	c.actionsTotal.WithLabelValues(kind, status).Inc()
}

// PlannerRequest records one model request.
func (c *Collector) PlannerRequest(operation string, d time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.plannerRequestsTotal.WithLabelValues(operation, status).Inc()
	c.plannerRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// PlanFallback counts an unparseable plan.
func (c *Collector) PlanFallback() {
	if c == nil {
		return
	}
	c.planFallbacksTotal.Inc()
}

// Rendezvous records how a feedback or vision wait ended.
func (c *Collector) Rendezvous(kind, outcome string) {
	if c == nil {
		return
	}
	c.rendezvousTotal.WithLabelValues(kind, outcome).Inc()
}
