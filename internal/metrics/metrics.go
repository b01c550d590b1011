// Package metrics holds the prometheus collectors exported by the verifier service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docverifier"

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Verifications     *prometheus.CounterVec
	ProviderFallbacks *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),

		// result: valid/invalid/error
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of document verifications",
		}, []string{"network", "result"}),

		ProviderFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Number of times a provider failed its liveness probe and the next provider was used",
		}, []string{"network"}),
	}
}

// ObserveVerification counts a verification outcome.
func (m *Metrics) ObserveVerification(network, result string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(network, result).Inc()
}

// ObserveProviderFallback counts a failed provider probe.
func (m *Metrics) ObserveProviderFallback(network string) {
	if m == nil {
		return
	}
	m.ProviderFallbacks.WithLabelValues(network).Inc()
}
