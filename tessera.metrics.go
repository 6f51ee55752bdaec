package tessera

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of an engine.
//
// Metrics:
//   - <ns>_cache_hits_total: template cache hits by parser
//   - <ns>_cache_misses_total: template cache misses by parser
//   - <ns>_cache_stores_total: templates stored by parser
//   - <ns>_cache_invalidations_total: entries dropped by source changes
//   - <ns>_cache_entries: current number of cached templates
//   - <ns>_renders_total: finished renders by parser and status
//   - <ns>_render_duration_seconds: render latency by parser
type Metrics struct {
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheStores        *prometheus.CounterVec
	cacheInvalidations prometheus.Counter
	cacheEntries       prometheus.Gauge
	renders            *prometheus.CounterVec
	renderDuration     *prometheus.HistogramVec
}

// Metric label values
const (
	MetricStatusOK    = "ok"
	MetricStatusError = "error"
)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultMetricsNS
	}
	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of template cache hits",
			},
			[]string{"parser"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of template cache misses",
			},
			[]string{"parser"},
		),
		cacheStores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_stores_total",
				Help:      "Total number of templates stored in the cache",
			},
			[]string{"parser"},
		),
		cacheInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Total number of cache entries dropped by source changes",
			},
		),
		cacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_entries",
				Help:      "Current number of cached templates",
			},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Total number of finished renders",
			},
			[]string{"parser", "status"},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Render latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"parser"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.cacheHits, m.cacheMisses, m.cacheStores, m.cacheInvalidations,
		m.cacheEntries, m.renders, m.renderDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRender records a finished render.
func (m *Metrics) ObserveRender(parser string, elapsed time.Duration, err error) {
	status := MetricStatusOK
	if err != nil {
		status = MetricStatusError
	}
	m.renders.WithLabelValues(parser, status).Inc()
	m.renderDuration.WithLabelValues(parser).Observe(elapsed.Seconds())
}

// MetricsCache decorates a TemplateCache with prometheus instrumentation.
type MetricsCache struct {
	inner   TemplateCache
	metrics *Metrics
}

// NewMetricsCache wraps inner.
func NewMetricsCache(inner TemplateCache, metrics *Metrics) *MetricsCache {
	return &MetricsCache{inner: inner, metrics: metrics}
}

// FindTemplate records a hit or a miss.
func (c *MetricsCache) FindTemplate(key CacheKey) (*Template, bool) {
	t, ok := c.inner.FindTemplate(key)
	if ok {
		c.metrics.cacheHits.WithLabelValues(key.Parser).Inc()
	} else {
		c.metrics.cacheMisses.WithLabelValues(key.Parser).Inc()
	}
	return t, ok
}

// StoreTemplate records a store and the new cache size.
func (c *MetricsCache) StoreTemplate(key CacheKey, tmpl *Template) error {
	if err := c.inner.StoreTemplate(key, tmpl); err != nil {
		return err
	}
	c.metrics.cacheStores.WithLabelValues(key.Parser).Inc()
	c.metrics.cacheEntries.Set(float64(c.inner.Len()))
	return nil
}

// InvalidateTemplate records dropped entries.
func (c *MetricsCache) InvalidateTemplate(name string) int {
	n := c.inner.InvalidateTemplate(name)
	c.metrics.cacheInvalidations.Add(float64(n))
	c.metrics.cacheEntries.Set(float64(c.inner.Len()))
	return n
}

// Len returns the number of cached templates.
func (c *MetricsCache) Len() int {
	return c.inner.Len()
}

// Close closes the wrapped cache.
func (c *MetricsCache) Close() error {
	err := c.inner.Close()
	c.metrics.cacheEntries.Set(0)
	return err
}
