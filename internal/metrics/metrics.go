package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facetkit/internal/core"
)

// Collector owns a private registry so several collectors can coexist in
// one process (tests, embedded use).
type Collector struct {
	registry *prometheus.Registry

	validationsTotal *prometheus.CounterVec
	violationsTotal  *prometheus.CounterVec
	commitsTotal     *prometheus.CounterVec
	schedulesTotal   *prometheus.CounterVec
	scheduleDuration prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facetkit_validations_total",
				Help: "Number of configuration validations by outcome.",
			},
			[]string{"result"},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facetkit_violations_total",
				Help: "Number of constraint violations reported by kind.",
			},
			[]string{"kind"},
		),
		commitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facetkit_working_copy_commits_total",
				Help: "Number of working copy commits by outcome.",
			},
			[]string{"result"},
		),
		schedulesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facetkit_schedules_total",
				Help: "Number of build order computations by outcome.",
			},
			[]string{"result"},
		),
		scheduleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "facetkit_schedule_duration_seconds",
				Help:    "Time taken to compute a build order.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	c.registry.MustRegister(
		c.validationsTotal,
		c.violationsTotal,
		c.commitsTotal,
		c.schedulesTotal,
		c.scheduleDuration,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveValidation records one validation and its violations. A nil
// collector ignores the call.
func (c *Collector) ObserveValidation(violations []core.Violation) {
	if c == nil {
		return
	}
	result := "valid"
	if len(violations) > 0 {
		result = "invalid"
	}
	c.validationsTotal.WithLabelValues(result).Inc()
	for _, v := range violations {
		c.violationsTotal.WithLabelValues(string(v.Kind)).Inc()
	}
}

func (c *Collector) ObserveCommit(err error) {
	if c == nil {
		return
	}
	result := "committed"
	if err != nil {
		result = "rejected"
	}
	c.commitsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveSchedule(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.scheduleDuration.Observe(elapsed.Seconds())
	c.schedulesTotal.WithLabelValues(scheduleResult(err)).Inc()
}

func scheduleResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case core.IsCyclicDependency(err):
		return "cycle"
	default:
		return "error"
	}
}
