package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the costing metrics and the registry they are exposed from.
type Collector struct {
	registry *prometheus.Registry

	calculations        *prometheus.CounterVec
	propagations        prometheus.Counter
	propagatedRecipes   *prometheus.CounterVec
	propagationDuration prometheus.Histogram
	recalculations      *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
}

// NewCollector creates a collector on a fresh registry, so several collectors
// can live side by side in tests.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipecost_calculations_total",
				Help: "Recipe calculations run, by trigger",
			},
			[]string{"trigger"},
		),
		propagations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recipecost_price_propagations_total",
				Help: "Ingredient price changes propagated",
			},
		),
		propagatedRecipes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipecost_propagated_recipes_total",
				Help: "Recipes touched by price propagation, by outcome",
			},
			[]string{"outcome"},
		),
		propagationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipecost_propagation_duration_seconds",
				Help:    "Time taken to propagate one price change",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		recalculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipecost_recalculated_recipes_total",
				Help: "Recipes processed by bulk recalculation, by outcome",
			},
			[]string{"outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipecost_cache_lookups_total",
				Help: "Cache lookups, by cache and result",
			},
			[]string{"cache", "result"},
		),
	}

	registry.MustRegister(
		c.calculations,
		c.propagations,
		c.propagatedRecipes,
		c.propagationDuration,
		c.recalculations,
		c.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordCalculation(trigger string) {
	if c == nil {
		return
	}
	c.calculations.WithLabelValues(trigger).Inc()
}

func (c *Collector) RecordPropagation(updated, failed int, took time.Duration) {
	if c == nil {
		return
	}
	c.propagations.Inc()
	c.propagatedRecipes.WithLabelValues("updated").Add(float64(updated))
	c.propagatedRecipes.WithLabelValues("failed").Add(float64(failed))
	c.propagationDuration.Observe(took.Seconds())
}

func (c *Collector) RecordRecalculation(updated, failed int) {
	if c == nil {
		return
	}
	c.recalculations.WithLabelValues("updated").Add(float64(updated))
	c.recalculations.WithLabelValues("failed").Add(float64(failed))
}

func (c *Collector) RecordCacheLookup(cache string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(cache, result).Inc()
}
