// Package metrics exposes Prometheus instrumentation for the range watcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/myskoda/pkg/models"
)

const namespace = "myskoda"

// Result labels.
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultUnchanged = "unchanged"
	ResultSkipped   = "skipped"
)

// Metrics groups the watcher collectors. The zero value is not usable; use New.
type Metrics struct {
	registry       *prometheus.Registry
	fetchTotal     *prometheus.CounterVec
	publishTotal   *prometheus.CounterVec
	remainingRange *prometheus.GaugeVec
}

// New registers the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_fetch_total",
			Help:      "Driving range fetches by result.",
		}, []string{"result"}),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_publish_total",
			Help:      "Driving range publications by result.",
		}, []string{"result"}),
		remainingRange: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "range_remaining_km",
			Help:      "Last observed remaining range per vehicle and engine.",
		}, []string{"vin", "engine"}),
	}
	m.registry.MustRegister(m.fetchTotal, m.publishTotal, m.remainingRange)
	return m
}

// ObserveFetch counts one fetch outcome.
func (m *Metrics) ObserveFetch(result string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(result).Inc()
}

// ObservePublish counts one publish outcome.
func (m *Metrics) ObservePublish(result string) {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues(result).Inc()
}

// ObserveRange records the remaining range of every engine in status.
func (m *Metrics) ObserveRange(vin string, status models.DrivingRangeStatus) {
	if m == nil {
		return
	}
	for _, r := range status.Ranges() {
		m.remainingRange.WithLabelValues(vin, r.EngineType.String()).Set(float64(r.RemainingRangeInKm))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
