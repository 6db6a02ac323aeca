// Package metrics holds the Prometheus metrics exported by the verifier.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Verifications    *prometheus.CounterVec
	KeyFetches       *prometheus.CounterVec
	KeyLastRefreshed prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "panda_verifications_total",
			Help: "Total number of cookie verifications by outcome",
		}, []string{"outcome"}),
		KeyFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "panda_public_key_fetches_total",
			Help: "Total number of public key fetches by result",
		}, []string{"result"}),
		KeyLastRefreshed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "panda_public_key_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful public key fetch",
		}),
	}
}

// ObserveVerification counts one verification with the given outcome label.
func (m *Metrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// ObserveKeyFetch counts one key fetch; unix is the fetch time in seconds.
func (m *Metrics) ObserveKeyFetch(err error, unix float64) {
	if m == nil {
		return
	}
	if err != nil {
		m.KeyFetches.WithLabelValues("error").Inc()
		return
	}
	m.KeyFetches.WithLabelValues("ok").Inc()
	m.KeyLastRefreshed.Set(unix)
}
