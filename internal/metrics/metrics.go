// Package metrics collects and exposes Prometheus metrics for the
// feed aggregation path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FeedMetrics is the recording interface used by the feed service.
// A nil-safe noop keeps unit tests free of a registry.
type FeedMetrics interface {
	RecordFeedSuccess(duration time.Duration, itemCount int)
	RecordFeedFailure()
	RecordStoreLookup()
}

// Collector implements FeedMetrics backed by Prometheus.
type Collector struct {
	registry     *prometheus.Registry
	feedSuccess  prometheus.Counter
	feedFail     prometheus.Counter
	feedLatency  prometheus.Histogram
	feedItems    prometheus.Counter
	storeLookups prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on a
// fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		feedSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pictogram_feed_requests_total",
			Help: "Total number of successful feed aggregations",
		}),
		feedFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pictogram_feed_failures_total",
			Help: "Total number of failed feed aggregations",
		}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pictogram_feed_latency_seconds",
			Help:    "End-to-end feed aggregation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		feedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pictogram_feed_items_total",
			Help: "Total number of feed items returned",
		}),
		storeLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pictogram_feed_store_lookups_total",
			Help: "Total number of store lookups issued during aggregation",
		}),
	}

	reg.MustRegister(c.feedSuccess, c.feedFail, c.feedLatency, c.feedItems, c.storeLookups)

	return c
}

// RecordFeedSuccess records a completed aggregation.
func (c *Collector) RecordFeedSuccess(duration time.Duration, itemCount int) {
	c.feedSuccess.Inc()
	c.feedLatency.Observe(duration.Seconds())
	c.feedItems.Add(float64(itemCount))
}

// RecordFeedFailure records an aggregation that returned an error.
func (c *Collector) RecordFeedFailure() {
	c.feedFail.Inc()
}

// RecordStoreLookup records a single store access during fan-out.
func (c *Collector) RecordStoreLookup() {
	c.storeLookups.Inc()
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Noop is a FeedMetrics that records nothing.
type Noop struct{}

func (Noop) RecordFeedSuccess(time.Duration, int) {}
func (Noop) RecordFeedFailure()                   {}
func (Noop) RecordStoreLookup()                   {}
