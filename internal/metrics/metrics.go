package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for regionguard.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	FailoverDuration prometheus.Histogram
	CheckResults     *prometheus.CounterVec
	RegionUp         *prometheus.GaugeVec
	registry         *prometheus.Registry
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// NewMetrics creates and registers all metrics (singleton pattern for tests).
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		registry := prometheus.NewRegistry()

		m := &Metrics{
			RunsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "regionguard_validation_runs_total",
					Help: "Total validation runs by outcome",
				},
				[]string{"outcome"},
			),
			FailoverDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "regionguard_failover_duration_seconds",
					Help:    "Measured failover time per validation run",
					Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120},
				},
			),
			CheckResults: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "regionguard_check_results_total",
					Help: "Check suite results by check name and status",
				},
				[]string{"check", "status"},
			),
			RegionUp: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "regionguard_region_up",
					Help: "1 if the region is UP, 0 if DOWN",
				},
				[]string{"region"},
			),
			registry: registry,
		}

		registry.MustRegister(m.RunsTotal)
		registry.MustRegister(m.FailoverDuration)
		registry.MustRegister(m.CheckResults)
		registry.MustRegister(m.RegionUp)

		metricsInstance = m
	})

	return metricsInstance
}

// ObserveRun records a completed validation run.
func (m *Metrics) ObserveRun(outcome string, seconds float64) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.FailoverDuration.Observe(seconds)
}

// ObserveCheck records a single check result.
func (m *Metrics) ObserveCheck(name string, passed bool) {
	status := "pass"
	if !passed {
		status = "fail"
	}
	m.CheckResults.WithLabelValues(name, status).Inc()
}

// SetRegionUp records a region's availability.
func (m *Metrics) SetRegionUp(region string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	m.RegionUp.WithLabelValues(region).Set(v)
}

// Handler returns the Prometheus metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ResetForTesting resets the singleton for testing.
func ResetForTesting() {
	metricsInstance = nil
	metricsOnce = sync.Once{}
}
