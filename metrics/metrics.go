// Package metrics exposes pool and surface activity as Prometheus
// collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hyperviz"

// Collectors holds every metric of one pool and its surfaces. A Collectors
// value implements pool.Observer and the surface observer of the root
// package.
type Collectors struct {
	PoolEvents    *prometheus.CounterVec
	PoolContexts  *prometheus.GaugeVec
	Frames        *prometheus.CounterVec
	Fallbacks     *prometheus.CounterVec
	Restores      *prometheus.CounterVec
	FrameDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Collectors{
		PoolEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pool_events_total",
				Help:      "Context pool events by type",
			},
			[]string{"event"},
		),
		PoolContexts: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_contexts",
				Help:      "Pooled hardware contexts by state",
			},
			[]string{"state"},
		),
		Frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Rendered frames by role and mode",
			},
			[]string{"role", "mode"},
		),
		Fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Hardware to software transitions by role and reason",
			},
			[]string{"role", "reason"},
		),
		Restores: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restores_total",
				Help:      "Hardware restoration attempts by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		FrameDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "frame_duration_seconds",
				Help:      "Time spent rendering one frame",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"mode"},
		),
	}
}

// Pool events.

func (c *Collectors) Created()      { c.PoolEvents.WithLabelValues("created").Inc() }
func (c *Collectors) CreateFailed() { c.PoolEvents.WithLabelValues("create_failed").Inc() }
func (c *Collectors) Evicted()      { c.PoolEvents.WithLabelValues("evicted").Inc() }
func (c *Collectors) Lost()         { c.PoolEvents.WithLabelValues("lost").Inc() }
func (c *Collectors) Restored()     { c.PoolEvents.WithLabelValues("restored").Inc() }

func (c *Collectors) Swept(n int) {
	c.PoolEvents.WithLabelValues("swept").Add(float64(n))
}

func (c *Collectors) Occupancy(inUse, total int) {
	c.PoolContexts.WithLabelValues("in_use").Set(float64(inUse))
	c.PoolContexts.WithLabelValues("total").Set(float64(total))
}

// Surface events.

// FrameRendered records one frame.
func (c *Collectors) FrameRendered(role, mode string, d time.Duration) {
	c.Frames.WithLabelValues(role, mode).Inc()
	c.FrameDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// FellBack records a hardware to software transition.
func (c *Collectors) FellBack(role, reason string) {
	c.Fallbacks.WithLabelValues(role, reason).Inc()
}

// RestoreAttempted records the outcome of a restoration attempt.
func (c *Collectors) RestoreAttempted(role string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	c.Restores.WithLabelValues(role, outcome).Inc()
}

// NewServer serves g on /metrics.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
