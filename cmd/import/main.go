package main

import (
	"context"
	"flag"
	"time"

	"github.com/fako1024/liveplot/db"
	"github.com/fako1024/liveplot/db/csvfile"
	"github.com/fako1024/liveplot/db/influx"
	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02T15:04:05"

type config struct {
	csvFile string
	column  string
	start   time.Time

	influxEndpoint    string
	influxUser        string
	influxPassword    string
	influxDB          string
	influxMeasurement string
}

func main() {

	var (
		cfg          config
		timestampStr string
	)

	// Basic flags for InfluxDB communication
	flag.StringVar(&cfg.csvFile, "csv", "", "Path to CSV file")
	flag.StringVar(&cfg.column, "column", csvfile.DefaultColumn, "Name of the CSV column holding the samples")
	flag.StringVar(&timestampStr, "start", time.Now().Format(timestampLayout), "Time stamp of the first sample")
	flag.StringVar(&cfg.influxEndpoint, "influxEndpoint", "", "Endpoint for InfluxDB emissions")
	flag.StringVar(&cfg.influxUser, "influxUser", "root", "User for InfluxDB emissions")
	flag.StringVar(&cfg.influxPassword, "influxPassword", "root", "Password for InfluxDB emissions")
	flag.StringVar(&cfg.influxDB, "influxDB", "samples", "InfluxDB database to store the samples in")
	flag.StringVar(&cfg.influxMeasurement, "influxMeasurement", "datapoints", "InfluxDB measurement to store the samples in")

	flag.Parse()
	if cfg.influxEndpoint == "" {
		logrus.StandardLogger().Fatalf("No InfluxDB endpoint specified")
	}
	if cfg.csvFile == "" {
		logrus.StandardLogger().Fatalf("No CSV file specified")
	}

	// Attempt to parse the start timestamp
	var err error
	if cfg.start, err = time.Parse(timestampLayout, timestampStr); err != nil {
		logrus.StandardLogger().Fatalf("Failed to parse start time stamp: %s", err)
	}

	// Parse the file
	samples, err := csvfile.New(cfg.csvFile, csvfile.WithColumn(cfg.column)).FetchSamples(context.Background())
	if err != nil {
		logrus.StandardLogger().Fatalf("Failed to read samples from CSV file: %s", err)
	}

	var emitter db.DB = influx.New(
		cfg.influxEndpoint,
		cfg.influxUser,
		cfg.influxPassword,
	)

	// Emit the samples to the influxDB
	if err := db.EmitSamples(emitter, cfg.influxDB, cfg.influxMeasurement, cfg.column, cfg.start, samples); err != nil {
		logrus.StandardLogger().Fatalf("Failed to emit samples to influxDB: %s", err)
	}

	logrus.StandardLogger().Infof("Imported %d samples into %s/%s", len(samples), cfg.influxDB, cfg.influxMeasurement)
}
