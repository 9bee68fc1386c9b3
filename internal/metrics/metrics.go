// Package metrics exposes Prometheus collectors for backend requests, job
// tracking, generation submissions, and quota usage.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the backend client, the tracking
// registry, and the generation orchestrator.
type Recorder interface {
	ObserveRequest(operation string, statusCode int, duration time.Duration)
	RecordSubmission(result string)
	RecordPoll(result string)
	RecordResolved(status string)
	SetInFlight(count int)
	SetQuota(used, remaining int)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	submissions *prometheus.CounterVec
	polls       *prometheus.CounterVec
	resolved    *prometheus.CounterVec
	inFlight    prometheus.Gauge
	quotaUsed   prometheus.Gauge
	quotaLeft   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soulcast_backend_requests_total",
			Help: "Backend requests by operation and HTTP status code.",
		}, []string{"operation", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soulcast_backend_request_seconds",
			Help:    "Backend request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soulcast_generation_submissions_total",
			Help: "Generation requests by result.",
		}, []string{"result"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soulcast_tracking_polls_total",
			Help: "Tracking poll cycles by result.",
		}, []string{"result"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soulcast_tracking_resolved_total",
			Help: "Tracked jobs resolved by terminal status.",
		}, []string{"status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soulcast_tracking_in_flight",
			Help: "Jobs currently tracked as generating.",
		}),
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soulcast_quota_used_characters",
			Help: "Characters used in the current quota period.",
		}),
		quotaLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soulcast_quota_remaining_characters",
			Help: "Characters remaining in the current quota period.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.submissions,
		c.polls,
		c.resolved,
		c.inFlight,
		c.quotaUsed,
		c.quotaLeft,
	)
	return c
}

func (c *Collector) ObserveRequest(operation string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	c.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordSubmission(result string) {
	c.submissions.WithLabelValues(result).Inc()
}

func (c *Collector) RecordPoll(result string) {
	c.polls.WithLabelValues(result).Inc()
}

func (c *Collector) RecordResolved(status string) {
	c.resolved.WithLabelValues(status).Inc()
}

func (c *Collector) SetInFlight(count int) {
	c.inFlight.Set(float64(count))
}

func (c *Collector) SetQuota(used, remaining int) {
	c.quotaUsed.Set(float64(used))
	c.quotaLeft.Set(float64(remaining))
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) ObserveRequest(string, int, time.Duration) {}
func (Nop) RecordSubmission(string)                   {}
func (Nop) RecordPoll(string)                         {}
func (Nop) RecordResolved(string)                     {}
func (Nop) SetInFlight(int)                           {}
func (Nop) SetQuota(int, int)                         {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
