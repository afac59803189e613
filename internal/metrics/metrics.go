// Package metrics provides Prometheus instrumentation for the service.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DecisionOutcomes counts login-trust decisions by outcome kind.
	DecisionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextguard",
			Name:      "decision_outcomes_total",
			Help:      "Total login-trust decisions by outcome kind.",
		},
		[]string{"kind"},
	)

	// VerificationCallbacks counts approve/block callback results.
	VerificationCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextguard",
			Name:      "verification_callbacks_total",
			Help:      "Total verification callbacks by action and result.",
		},
		[]string{"action", "result"},
	)

	// NotificationsDispatched counts verification emails handed to the
	// email collaborator.
	NotificationsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "contextguard",
			Name:      "notifications_dispatched_total",
			Help:      "Total login-verification notifications dispatched.",
		},
	)
)

var registered = false

// Register registers all collectors with the default registry. Safe to call
// once from main; tests use the counters unregistered.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(DecisionOutcomes, VerificationCallbacks, NotificationsDispatched)
	registered = true
}

// Handler returns a gin handler serving the Prometheus exposition endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
