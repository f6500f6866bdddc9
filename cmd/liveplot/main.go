package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fako1024/liveplot"
	"github.com/fako1024/liveplot/buffer"
	"github.com/fako1024/liveplot/db"
	"github.com/fako1024/liveplot/db/csvfile"
	"github.com/fako1024/liveplot/db/influx"
	"github.com/fako1024/liveplot/pool"
	"github.com/fako1024/liveplot/render"
	"github.com/fako1024/liveplot/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	fetchTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

type config struct {
	listenAddr    string
	stylePath     string
	title         string
	missingPolicy string
	debug         bool

	capacity       int
	poolSize       int
	acquireTimeout time.Duration
	releaseTimeout time.Duration

	csvFile string
	column  string

	influxEndpoint    string
	influxUser        string
	influxPassword    string
	influxDB          string
	influxMeasurement string
}

func main() {

	var (
		cfg config
	)

	// Basic flags for the HTTP endpoint and rendering
	flag.StringVar(&cfg.listenAddr, "listen", ":8080", "Address to serve the plot endpoint on")
	flag.StringVar(&cfg.stylePath, "style", "plot.yaml", "Path to the YAML plot template")
	flag.StringVar(&cfg.title, "title", "Real-time Data Visualization", "Title of the plot page")
	flag.StringVar(&cfg.missingPolicy, "missing", "zero", "Policy for absent sample values (zero / reject)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	// Flags for the sample buffer and the render context pool
	flag.IntVar(&cfg.capacity, "capacity", buffer.DefaultCapacity, "Number of points shown before the plot starts over")
	flag.IntVar(&cfg.poolSize, "poolSize", pool.DefaultSize, "Number of pooled render contexts")
	flag.DurationVar(&cfg.acquireTimeout, "acquireTimeout", pool.DefaultAcquireTimeout, "Maximum time to wait for a render context")
	flag.DurationVar(&cfg.releaseTimeout, "releaseTimeout", pool.DefaultReleaseTimeout, "Maximum time to wait when returning a render context")

	// Flags for the sample store (CSV file or InfluxDB)
	flag.StringVar(&cfg.csvFile, "csv", "", "Path to CSV file to read samples from")
	flag.StringVar(&cfg.column, "column", csvfile.DefaultColumn, "Name of the column / field holding the samples")
	flag.StringVar(&cfg.influxEndpoint, "influxEndpoint", "", "Endpoint of InfluxDB to read samples from")
	flag.StringVar(&cfg.influxUser, "influxUser", "root", "User for InfluxDB queries")
	flag.StringVar(&cfg.influxPassword, "influxPassword", "root", "Password for InfluxDB queries")
	flag.StringVar(&cfg.influxDB, "influxDB", "samples", "InfluxDB database holding the samples")
	flag.StringVar(&cfg.influxMeasurement, "influxMeasurement", "datapoints", "InfluxDB measurement holding the samples")

	flag.Parse()
	if cfg.debug {
		logrus.StandardLogger().SetLevel(logrus.DebugLevel)
	}

	store, err := newStore(cfg)
	if err != nil {
		logrus.StandardLogger().Fatalf("Invalid sample store configuration: %s", err)
	}
	policy, err := liveplot.MissingPolicyFromString(cfg.missingPolicy)
	if err != nil {
		logrus.StandardLogger().Fatalf("Invalid configuration: %s", err)
	}
	if cfg.capacity <= 0 {
		logrus.StandardLogger().Fatalf("Invalid buffer capacity: %d", cfg.capacity)
	}

	srv, ctxPool := setup(cfg, store, policy)

	httpServer := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		logrus.StandardLogger().Infof("Got signal, shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logrus.StandardLogger().Errorf("Failed to shut down HTTP server: %s", err)
		}
	}()

	logrus.StandardLogger().Infof("Serving plot on %s%s", cfg.listenAddr, server.PlotPath)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.StandardLogger().Fatalf("Failed to serve: %s", err)
	}

	if ctxPool != nil {
		if err := ctxPool.Close(); err != nil {
			logrus.StandardLogger().Errorf("Failed to clean up context pool: %s", err)
		}
		logrus.StandardLogger().Infof("Context pool cleaned up")
	}
}

func newStore(cfg config) (db.Store, error) {
	switch {
	case cfg.csvFile != "" && cfg.influxEndpoint != "":
		return nil, errors.New("both CSV file and InfluxDB endpoint specified")
	case cfg.csvFile != "":
		return csvfile.New(cfg.csvFile, csvfile.WithColumn(cfg.column)), nil
	case cfg.influxEndpoint != "":
		return influx.New(cfg.influxEndpoint, cfg.influxUser, cfg.influxPassword).Series(cfg.influxDB, cfg.influxMeasurement, cfg.column), nil
	default:
		return nil, errors.New("no CSV file or InfluxDB endpoint specified")
	}
}

// setup loads the plot template and the samples once and builds the server. Any
// failure is logged and contained: a store failure leaves the server without
// data, a template or pool failure puts it into a permanent error state.
func setup(cfg config, store db.Store, policy liveplot.MissingPolicy) (*server.Server, *pool.Pool) {

	// Cache all samples
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	samples, err := store.FetchSamples(ctx)
	if err != nil {
		logrus.StandardLogger().Errorf("Failed to load samples: %s", err)
	}
	buf := buffer.New(samples, buffer.WithCapacity(cfg.capacity), buffer.WithMissingPolicy(policy))

	style, err := render.LoadStyle(cfg.stylePath)
	if err != nil {
		logrus.StandardLogger().Errorf("Initialization failed: %s", err)
		return server.New(buf, nil, nil, server.WithTitle(cfg.title), server.WithStartupError(err)), nil
	}

	ctxPool, err := pool.New(cfg.poolSize, render.NewFactory(style),
		pool.WithAcquireTimeout(cfg.acquireTimeout),
		pool.WithReleaseTimeout(cfg.releaseTimeout),
	)
	if err != nil {
		logrus.StandardLogger().Errorf("Initialization failed: %s", err)
		return server.New(buf, nil, nil, server.WithTitle(cfg.title), server.WithStartupError(err)), nil
	}

	logrus.StandardLogger().Infof("Plot server initialized: %d samples cached, %d render contexts pooled, missing values policy: %s",
		len(samples), ctxPool.Size(), policy)

	return server.New(buf, ctxPool, render.New(), server.WithTitle(cfg.title)), ctxPool
}
