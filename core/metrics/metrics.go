// Package metrics owns the bot's Prometheus collectors and the HTTP endpoint
// that exposes them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome labels shared by the dialog and checkout counters.
const (
	OutcomeOK        = "ok"
	OutcomeFail      = "fail"
	OutcomeCancelled = "cancelled"
)

// Recorder groups the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	dialogEvents    *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	sessionErrors   *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		dialogEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopbot_dialog_events_total",
				Help: "Dialog events handled, by state and outcome",
			},
			[]string{"state", "outcome"},
		),
		checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopbot_checkout_total",
				Help: "Checkout attempts by outcome",
			},
			[]string{"outcome"},
		),
		sessionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopbot_session_errors_total",
				Help: "Session store failures by operation",
			},
			[]string{"op"},
		),
		handlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shopbot_dialog_handler_seconds",
				Help:    "State handler latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		),
	}
	r.registry.MustRegister(
		r.dialogEvents,
		r.checkouts,
		r.sessionErrors,
		r.handlerDuration,
		collectors.NewGoCollector(),
	)
	return r
}

// Registry exposes the underlying registry for the HTTP handler and tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// DialogEvent counts one handled event and observes its handler latency.
func (r *Recorder) DialogEvent(state, outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.dialogEvents.WithLabelValues(state, outcome).Inc()
	r.handlerDuration.WithLabelValues(state).Observe(took.Seconds())
}

// Checkout counts a checkout attempt.
func (r *Recorder) Checkout(outcome string) {
	if r == nil {
		return
	}
	r.checkouts.WithLabelValues(outcome).Inc()
}

// SessionError counts a failed session store call ("get" or "set").
func (r *Recorder) SessionError(op string) {
	if r == nil {
		return
	}
	r.sessionErrors.WithLabelValues(op).Inc()
}
