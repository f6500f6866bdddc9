package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "liveplot"

type metrics struct {
	plotsRendered  prometheus.Counter
	renderFailures prometheus.Counter
	poolExhausted  prometheus.Counter
	renderDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, s *Server) *metrics {
	m := &metrics{
		plotsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "plots_rendered_total",
			Help:      "Number of plots rendered successfully.",
		}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "render_failures_total",
			Help:      "Number of plots that failed to render.",
		}),
		poolExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pool_exhausted_total",
			Help:      "Number of requests that found no render context within the timeout.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering a plot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	reg.MustRegister(m.plotsRendered, m.renderFailures, m.poolExhausted, m.renderDuration)

	if s.buffer != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "buffer_resets_total",
			Help:      "Number of sample buffer resets.",
		}, func() float64 {
			return float64(s.buffer.Resets())
		}))
	}
	if s.pool != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pool_live_contexts",
			Help:      "Number of live render contexts.",
		}, func() float64 {
			return float64(s.pool.Live())
		}), prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pool_idle_contexts",
			Help:      "Number of idle render contexts.",
		}, func() float64 {
			return float64(s.pool.Idle())
		}))
	}

	return m
}
