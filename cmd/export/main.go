package main

import (
	"encoding/csv"
	"flag"
	"os"

	"github.com/fako1024/liveplot/db"
	"github.com/fako1024/liveplot/db/csvfile"
	"github.com/fako1024/liveplot/db/influx"
	"github.com/sirupsen/logrus"
)

type config struct {
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

	// Basic flags for InfluxDB communication
	flag.StringVar(&cfg.csvFile, "csv", "", "Path to CSV file")
	flag.StringVar(&cfg.column, "column", csvfile.DefaultColumn, "Name of the field holding the samples")
	flag.StringVar(&cfg.influxEndpoint, "influxEndpoint", "", "Endpoint for InfluxDB queries")
	flag.StringVar(&cfg.influxUser, "influxUser", "root", "User for InfluxDB queries")
	flag.StringVar(&cfg.influxPassword, "influxPassword", "root", "Password for InfluxDB queries")
	flag.StringVar(&cfg.influxDB, "influxDB", "samples", "InfluxDB database holding the samples")
	flag.StringVar(&cfg.influxMeasurement, "influxMeasurement", "datapoints", "InfluxDB measurement holding the samples")

	flag.Parse()
	if cfg.influxEndpoint == "" {
		logrus.StandardLogger().Fatalf("No InfluxDB endpoint specified")
	}
	influxDB := influx.New(
		cfg.influxEndpoint,
		cfg.influxUser,
		cfg.influxPassword,
	)

	// Open the file
	csvData, err := os.OpenFile(cfg.csvFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0660)
	if err != nil {
		logrus.StandardLogger().Fatalf("Failed to open CSV file: %s", err)
	}
	defer csvData.Close()

	// Retrieve the measurements
	rows, err := influxDB.FetchMeasurementsTable(cfg.influxDB, cfg.influxMeasurement, db.PositionField, cfg.column)
	if err != nil {
		logrus.StandardLogger().Fatalf("Failed to perform query: %s", err)
	}

	w := csv.NewWriter(csvData)
	if err := w.Write([]string{"time", db.PositionField, cfg.column}); err != nil {
		logrus.StandardLogger().Fatalf("Failed to write header: %s", err)
	}

	// Iterate through the records
	for _, row := range rows {
		if len(row) != 3 {
			logrus.StandardLogger().Fatalf("Unexpected number of columns in measurement list")
		}

		if err := w.Write(row); err != nil {
			logrus.StandardLogger().Fatalf("Failed to write record %v: %s", row, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		logrus.StandardLogger().Fatalf("Failed to flush CSV file: %s", err)
	}

	logrus.StandardLogger().Infof("Exported %d samples to %s", len(rows), cfg.csvFile)
}
