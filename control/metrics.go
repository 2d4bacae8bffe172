// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus-backed runtime metrics for the engine: posts, dispatches,
// workshop contention, wakeups, and active coroutines.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRegistry wraps a dedicated prometheus.Registry with the counters
// and gauges the engine updates on its hot paths.
type MetricsRegistry struct {
	reg *prometheus.Registry

	postsTotal        *prometheus.CounterVec
	dispatchesTotal   *prometheus.CounterVec
	workshopContended *prometheus.CounterVec
	wakeupsTotal      *prometheus.CounterVec
	coroutinesActive  *prometheus.GaugeVec
}

// NewMetricsRegistry creates a registry with all engine metrics
// pre-registered, labeled by engine id.
func NewMetricsRegistry() *MetricsRegistry {
	mr := &MetricsRegistry{
		reg: prometheus.NewRegistry(),
		postsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evservice_posts_total",
			Help: "Total events submitted via post/spawn/async.",
		}, []string{"engine"}),
		dispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evservice_dispatches_total",
			Help: "Total events handled by a worker drain loop.",
		}, []string{"engine"}),
		workshopContended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evservice_workshop_contended_total",
			Help: "Total failed workshop TryAcquire calls (worker already held).",
		}, []string{"engine"}),
		wakeupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evservice_wakeups_total",
			Help: "Total thread wake edges observed across spin/poll/block phases.",
		}, []string{"engine"}),
		coroutinesActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evservice_coroutines_active",
			Help: "Coroutines currently spawned and not yet completed.",
		}, []string{"engine"}),
	}
	mr.reg.MustRegister(
		mr.postsTotal,
		mr.dispatchesTotal,
		mr.workshopContended,
		mr.wakeupsTotal,
		mr.coroutinesActive,
	)
	return mr
}

// Registry exposes the underlying prometheus.Registry, e.g. for wiring
// into an HTTP handler in a consuming application.
func (mr *MetricsRegistry) Registry() *prometheus.Registry {
	return mr.reg
}

func (mr *MetricsRegistry) IncPosts(engine string)      { mr.postsTotal.WithLabelValues(engine).Inc() }
func (mr *MetricsRegistry) IncDispatches(engine string) { mr.dispatchesTotal.WithLabelValues(engine).Inc() }
func (mr *MetricsRegistry) AddDispatches(engine string, n float64) {
	mr.dispatchesTotal.WithLabelValues(engine).Add(n)
}
func (mr *MetricsRegistry) IncContention(engine string) { mr.workshopContended.WithLabelValues(engine).Inc() }
func (mr *MetricsRegistry) IncWakeups(engine string)    { mr.wakeupsTotal.WithLabelValues(engine).Inc() }

func (mr *MetricsRegistry) SetCoroutinesActive(engine string, n float64) {
	mr.coroutinesActive.WithLabelValues(engine).Set(n)
}
func (mr *MetricsRegistry) IncCoroutinesActive(engine string) {
	mr.coroutinesActive.WithLabelValues(engine).Inc()
}
func (mr *MetricsRegistry) DecCoroutinesActive(engine string) {
	mr.coroutinesActive.WithLabelValues(engine).Dec()
}

// GetSnapshot gathers the current metric families, for the debug probe
// layer or ad hoc inspection without standing up an HTTP endpoint.
func (mr *MetricsRegistry) GetSnapshot() (map[string]float64, error) {
	families, err := mr.reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, fam := range families {
		var total float64
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		out[fam.GetName()] = total
	}
	return out, nil
}
