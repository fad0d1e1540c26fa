package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoSim-25-26J-441/loadcurve/internal/arrival"
	"github.com/GoSim-25-26J-441/loadcurve/internal/curve"
)

// Metric names
const (
	MetricRebuilds       = "loadcurve_workload_rebuilds_total"
	MetricEmissions      = "loadcurve_workload_emissions_total"
	MetricRemovals       = "loadcurve_workload_removals_total"
	MetricRebuildErrors  = "loadcurve_workload_rebuild_errors_total"
	MetricTicksPerConfig = "loadcurve_workload_ticks"
	MetricSubmissions    = "loadcurve_experiment_submissions_total"
)

// Collector records designer activity in a private Prometheus registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry  *prometheus.Registry
	rebuilds  prometheus.Counter
	emissions prometheus.Counter
	removals  prometheus.Counter
	errors    *prometheus.CounterVec
	ticks     prometheus.Histogram
	submits   *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRebuilds,
			Help: "Workload configuration rebuild attempts.",
		}),
		emissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricEmissions,
			Help: "Workload configurations emitted to the experiment.",
		}),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRemovals,
			Help: "Workload entries removed.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRebuildErrors,
			Help: "Rebuilds that did not emit, by error kind.",
		}, []string{"kind"}),
		ticks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricTicksPerConfig,
			Help:    "Number of ticks per emitted configuration.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSubmissions,
			Help: "Experiment submissions to the execution engine, by result.",
		}, []string{"result"}),
	}
	c.registry.MustRegister(c.rebuilds, c.emissions, c.removals, c.errors, c.ticks, c.submits)
	return c
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Rebuilt counts a rebuild attempt
func (c *Collector) Rebuilt() {
	if c == nil {
		return
	}
	c.rebuilds.Inc()
}

// Emitted counts an emitted configuration with n ticks
func (c *Collector) Emitted(n int) {
	if c == nil {
		return
	}
	c.emissions.Inc()
	c.ticks.Observe(float64(n))
}

// Removed counts a removed workload entry
func (c *Collector) Removed() {
	if c == nil {
		return
	}
	c.removals.Inc()
}

// Failed counts a rebuild that ended with err
func (c *Collector) Failed(err error) {
	if c == nil || err == nil {
		return
	}
	c.errors.WithLabelValues(ErrorKind(err)).Inc()
}

// Submitted counts an engine submission
func (c *Collector) Submitted(ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.submits.WithLabelValues(result).Inc()
}

// ErrorKind maps an error to its metric label
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, arrival.ErrUnknownArrivalPattern):
		return "unknown_arrival_pattern"
	case errors.Is(err, curve.ErrUninitializedCurve):
		return "uninitialized_curve"
	case errors.Is(err, curve.ErrInvalidParameter):
		return "invalid_parameter"
	default:
		return "other"
	}
}
