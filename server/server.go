// Package server exposes the incremental plot over HTTP.
//
// Every GET on the plot path advances the sample buffer by one element, checks
// out a render context, renders the window seen so far and returns it wrapped
// into a self-refreshing HTML page. All request-level failures (no data, missing
// samples, render failures, pool exhaustion) result in a successful response
// carrying a visible message.
package server

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/fako1024/liveplot"
	"github.com/fako1024/liveplot/buffer"
	"github.com/fako1024/liveplot/page"
	"github.com/fako1024/liveplot/pool"
	"github.com/fako1024/liveplot/render"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const (

	// PlotPath denotes the path serving the plot page
	PlotPath = "/plot"

	// StatusPath denotes the path serving the JSON status
	StatusPath = "/status"

	// MetricsPath denotes the path serving Prometheus metrics
	MetricsPath = "/metrics"

	defaultTitle = "Real-time Data Visualization"
)

// Renderer denotes a plot renderer, always returning a displayable fragment
type Renderer interface {
	Render(values []float64, positions []int, c pool.Context) (template.HTML, error)
}

// ContextPool denotes a bounded pool of render contexts
type ContextPool interface {
	Acquire(ctx context.Context) (pool.Context, error)
	Release(c pool.Context)
	Live() int
	Idle() int
}

// Status denotes the current state of the server
type Status struct {
	Samples      int    `json:"samples"`
	Cursor       int    `json:"cursor"`
	Window       int    `json:"window"`
	Capacity     int    `json:"capacity"`
	Resets       uint64 `json:"resets"`
	PoolLive     int    `json:"pool_live"`
	PoolIdle     int    `json:"pool_idle"`
	PlotsServed  int64  `json:"plots_served"`
	StartupError string `json:"startup_error,omitempty"`
}

// Server denotes the plot endpoint
type Server struct {
	buffer   *buffer.SampleBuffer // Sample buffer (nil if no samples could be loaded)
	pool     ContextPool          // Render context pool (nil on startup failure)
	renderer Renderer

	title      string
	startupErr error // Set if initialization failed, every request reports it

	registry    *prometheus.Registry
	metrics     *metrics
	plotsServed *atomic.Int64
}

// New instantiates a new server
func New(buf *buffer.SampleBuffer, p ContextPool, r Renderer, options ...func(*Server)) *Server {
	s := &Server{
		buffer:      buf,
		pool:        p,
		renderer:    r,
		title:       defaultTitle,
		registry:    prometheus.NewRegistry(),
		plotsServed: atomic.NewInt64(0),
	}

	// Execute functional options, if any
	for _, opt := range options {
		opt(s)
	}

	s.metrics = newMetrics(s.registry, s)

	return s
}

// WithTitle sets a custom page title
func WithTitle(title string) func(*Server) {
	return func(s *Server) {
		s.title = title
	}
}

// WithStartupError puts the server into a permanent error state, reporting err
// on every request
func WithStartupError(err error) func(*Server) {
	return func(s *Server) {
		s.startupErr = err
	}
}

// Handler returns the HTTP handler serving all endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PlotPath, s.ServePlot)
	mux.HandleFunc(StatusPath, s.ServeStatus)
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

// ServePlot advances the buffer and serves the plot page
func (s *Server) ServePlot(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r) {
		return
	}

	if s.startupErr != nil {
		s.writePage(w, page.Page{
			Kind:    page.Error,
			Title:   s.title,
			Message: "initialization failed: " + s.startupErr.Error(),
		})
		return
	}

	if s.buffer == nil || s.buffer.Empty() {
		s.writePage(w, page.Page{
			Kind:  page.NoData,
			Title: s.title,
		})
		return
	}

	snapshot, err := s.buffer.Advance()
	if err != nil {
		if errors.Cause(err) == liveplot.ErrNoData {
			s.writePage(w, page.Page{
				Kind:  page.NoData,
				Title: s.title,
			})
			return
		}

		logrus.StandardLogger().Warnf("Failed to advance sample buffer: %s", err)
		s.writePage(w, page.Page{
			Kind:        page.Error,
			Title:       s.title,
			Message:     err.Error(),
			AutoRefresh: true,
		})
		return
	}

	artifact := s.render(r.Context(), snapshot)
	s.plotsServed.Inc()

	s.writePage(w, page.Page{
		Kind:        page.Plot,
		Title:       s.title,
		Plot:        artifact,
		Count:       snapshot.Count,
		Capacity:    s.buffer.Window(),
		AutoRefresh: true,
	})
}

// ServeStatus serves the current state as JSON
func (s *Server) ServeStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := jsoniter.NewEncoder(w).Encode(s.Status()); err != nil {
		logrus.StandardLogger().Errorf("Failed to encode status: %s", err)
	}
}

// Status returns the current state of the server
func (s *Server) Status() Status {
	status := Status{
		PlotsServed: s.plotsServed.Load(),
	}
	if s.startupErr != nil {
		status.StartupError = s.startupErr.Error()
	}
	if s.buffer != nil {
		status.Samples = s.buffer.Samples()
		status.Cursor = s.buffer.Len()
		status.Window = s.buffer.Window()
		status.Capacity = s.buffer.Cap()
		status.Resets = s.buffer.Resets()
	}
	if s.pool != nil {
		status.PoolLive = s.pool.Live()
		status.PoolIdle = s.pool.Idle()
	}

	return status
}

func (s *Server) render(ctx context.Context, snapshot buffer.Snapshot) template.HTML {
	if s.pool == nil || s.renderer == nil {
		return render.ErrorFragment(errors.New("no renderer available"))
	}

	c, err := s.pool.Acquire(ctx)
	if err != nil {
		if errors.Cause(err) == pool.ErrExhausted {
			s.metrics.poolExhausted.Inc()
			logrus.StandardLogger().Warnf("No render context available for %d points", len(snapshot.Values))
			return render.ErrorFragment(errors.New("no context available"))
		}
		return render.ErrorFragment(err)
	}
	defer s.pool.Release(c)

	start := time.Now()
	artifact, err := s.renderer.Render(snapshot.Values, snapshot.Positions, c)
	elapsed := time.Since(start)
	s.metrics.renderDuration.Observe(elapsed.Seconds())

	if err != nil {
		s.metrics.renderFailures.Inc()
		logrus.StandardLogger().Errorf("Failed to render plot with %d points: %s", len(snapshot.Values), err)
		return artifact
	}

	s.metrics.plotsRendered.Inc()
	logrus.StandardLogger().Debugf("Generated plot with %d points in %v", len(snapshot.Values), elapsed)

	return artifact
}

func (s *Server) writePage(w http.ResponseWriter, p page.Page) {

	// Build into a buffer first so a template failure can still be reported
	var buf bytes.Buffer
	if err := page.Build(&buf, p); err != nil {
		logrus.StandardLogger().Errorf("Failed to build page: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if p.AutoRefresh {
		w.Header().Set("Refresh", strconv.Itoa(page.RefreshInterval))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func allowMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}

	w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	return false
}
