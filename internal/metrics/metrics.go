// Package metrics exposes Prometheus counters for the HTTP surface and the
// recipe pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	generationsTotal    *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	imageFallbacksTotal prometheus.Counter
	assetUploadsTotal   *prometheus.CounterVec
	assetDeletionsTotal *prometheus.CounterVec
}

// New registers all collectors on a private registry so that several
// instances can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	register := func(c prometheus.Collector) { reg.MustRegister(c) }

	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_generations_total",
				Help: "Recipe generation attempts by outcome",
			},
			[]string{"outcome"},
		),
		generationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_generation_duration_seconds",
				Help:    "End to end duration of the generation pipeline",
				Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
			},
		),
		imageFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recipe_image_fallbacks_total",
				Help: "Generated recipes returned without an image",
			},
		),
		assetUploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_asset_uploads_total",
				Help: "Image uploads to blob storage by outcome",
			},
			[]string{"outcome"},
		),
		assetDeletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_asset_deletions_total",
				Help: "Background image deletions by outcome",
			},
			[]string{"outcome"},
		),
	}

	register(collectors.NewGoCollector())
	register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	register(m.httpRequestsTotal)
	register(m.httpRequestDuration)
	register(m.generationsTotal)
	register(m.generationDuration)
	register(m.imageFallbacksTotal)
	register(m.assetUploadsTotal)
	register(m.assetDeletionsTotal)

	return m
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request counts and latencies per route template.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObserveGeneration(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ImageFallback() {
	if m == nil {
		return
	}
	m.imageFallbacksTotal.Inc()
}

func (m *Metrics) ObserveAssetUpload(outcome string) {
	if m == nil {
		return
	}
	m.assetUploadsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAssetDeletion(outcome string) {
	if m == nil {
		return
	}
	m.assetDeletionsTotal.WithLabelValues(outcome).Inc()
}
