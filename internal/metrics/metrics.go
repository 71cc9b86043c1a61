package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "evodex"

// Collector holds the Prometheus metrics for evodex. Each collector owns its
// registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	GatewayRequests *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec

	TreeBuilds    *prometheus.CounterVec
	BuildDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Resolution cache hits by namespace",
		}, []string{"namespace"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Resolution cache misses by namespace",
		}, []string{"namespace"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Requests sent to the species gateway",
		}, []string{"endpoint", "outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Species gateway request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TreeBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_builds_total",
			Help:      "Evolution tree builds by outcome",
		}, []string{"outcome"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tree_build_duration_seconds",
			Help:      "Evolution tree build latency",
			Buckets:   prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served by the local gateway",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		c.CacheHits,
		c.CacheMisses,
		c.GatewayRequests,
		c.GatewayDuration,
		c.TreeBuilds,
		c.BuildDuration,
		c.HTTPRequests,
	)
	return c
}

// CacheHit implements cache.Recorder.
func (c *Collector) CacheHit(ns string) { c.CacheHits.WithLabelValues(ns).Inc() }

// CacheMiss implements cache.Recorder.
func (c *Collector) CacheMiss(ns string) { c.CacheMisses.WithLabelValues(ns).Inc() }

// ObserveGateway records one gateway request.
func (c *Collector) ObserveGateway(endpoint string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.GatewayRequests.WithLabelValues(endpoint, outcome).Inc()
	c.GatewayDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveBuild records one tree build.
func (c *Collector) ObserveBuild(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.TreeBuilds.WithLabelValues(outcome).Inc()
	c.BuildDuration.Observe(d.Seconds())
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
