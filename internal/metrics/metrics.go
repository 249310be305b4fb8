// Package metrics exposes Prometheus collectors for authorization and
// password reset outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records service outcomes. It satisfies services.AuthzRecorder
// and services.ResetRecorder.
type Collector struct {
	authzDecisions *prometheus.CounterVec
	resetEvents    *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yelpcamp_authz_decisions_total",
			Help: "Authorization decisions by resource kind and outcome.",
		}, []string{"kind", "outcome"}),
		resetEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yelpcamp_password_reset_events_total",
			Help: "Password reset workflow transitions by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}

	reg.MustRegister(c.authzDecisions, c.resetEvents)
	return c
}

func (c *Collector) RecordAuthzDecision(kind, outcome string) {
	c.authzDecisions.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordReset(stage, outcome string) {
	c.resetEvents.WithLabelValues(stage, outcome).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
