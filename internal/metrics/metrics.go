package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the tour assembly pipeline.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	Splices            *prometheus.CounterVec
	CandidateSegments  prometheus.Histogram
	SearchExpansions   prometheus.Histogram
	SubTourSolves      *prometheus.CounterVec
	SubTourDuration    prometheus.Histogram
	AssemblyDuration   prometheus.Histogram
	AssembledPoints    prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Splices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "splices_total",
				Help:      "Sub-tour merges by mode (adopt, scored, fallback, noop)",
			},
			[]string{"mode"},
		),
		CandidateSegments: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "candidate_segments",
				Help:      "Solution segments considered per scored splice",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		SearchExpansions: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "candidate_search_expansions",
				Help:      "Rectangle expansions needed before candidates were found",
				Buckets:   prometheus.LinearBuckets(0, 2, 10),
			},
		),
		SubTourSolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subtour_solves_total",
				Help:      "Sub-tour solves by outcome",
			},
			[]string{"outcome"},
		),
		SubTourDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "subtour_solve_duration_seconds",
				Help:      "Time spent producing one sub-tour",
				Buckets:   prometheus.DefBuckets,
			},
		),
		AssemblyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assembly_duration_seconds",
				Help:      "Time spent assembling a full tour",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		AssembledPoints: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assembled_points_total",
				Help:      "Points placed into assembled tours",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.Splices,
		c.CandidateSegments,
		c.SearchExpansions,
		c.SubTourSolves,
		c.SubTourDuration,
		c.AssemblyDuration,
		c.AssembledPoints,
		c.HTTPRequests,
		c.HTTPRequestSeconds,
	)

	return c
}

// Registry returns the registry the collector's metrics live in
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveSplice records one merge step
func (c *Collector) ObserveSplice(mode string, candidates, expansions int) {
	if c == nil {
		return
	}
	c.Splices.WithLabelValues(mode).Inc()
	if mode == "scored" {
		c.CandidateSegments.Observe(float64(candidates))
		c.SearchExpansions.Observe(float64(expansions))
	}
}

// ObserveSubTour records one sub-tour solve
func (c *Collector) ObserveSubTour(d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.SubTourSolves.WithLabelValues(outcome).Inc()
	c.SubTourDuration.Observe(d.Seconds())
}

// ObserveAssembly records one finished tour assembly
func (c *Collector) ObserveAssembly(d time.Duration, points int) {
	if c == nil {
		return
	}
	c.AssemblyDuration.Observe(d.Seconds())
	c.AssembledPoints.Add(float64(points))
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPRequestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
