package influx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fako1024/liveplot"
	"github.com/fako1024/liveplot/db"
	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"
)

var _ db.DB = (*DB)(nil)

// DB is an InfluxDB interface, providing functionality to interact with the database
type DB struct {
	config *client.HTTPConfig
}

// New creates a new InfluxDB instance
func New(addr, username, password string) *DB {
	return &DB{
		config: &client.HTTPConfig{
			Addr:     addr,
			Username: username,
			Password: password,
		},
	}
}

// EmitDataPoints creates data points and stores it in the underlying Influx database
func (d *DB) EmitDataPoints(dbName, measurement string, data db.DataPoints) error {

	// Create a new InfluxDB client
	c, err := client.NewHTTPClient(*d.config)
	if err != nil {
		return errors.Wrapf(err, "failed to create InfluxDB client for measurement %s on DB %s", measurement, dbName)
	}
	defer c.Close()

	// Create a new point batch
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  dbName,
		Precision: "ms",
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create InfluxDB batch for measurement %s on DB %s", measurement, dbName)
	}

	for _, v := range data {
		pt, err := client.NewPoint(measurement, v.Tags, v.Data, v.TimeStamp)
		if err != nil {
			return errors.Wrapf(err, "failed to create InfluxDB point for measurement %s on DB %s", measurement, dbName)
		}
		bp.AddPoint(pt)
	}

	// Write the batch
	if err = c.Write(bp); err != nil {
		return errors.Wrapf(err, "failed to write InfluxDB batch for measurement %s on DB %s", measurement, dbName)
	}

	return nil
}

// FetchMeasurementsTable retrieves a measurement (with the time stamp as first column)
func (d *DB) FetchMeasurementsTable(dbName, measurement string, field ...string) ([][]string, error) {

	// Create a new InfluxDB client
	c, err := client.NewHTTPClient(*d.config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create InfluxDB client for measurement %s on DB %s", measurement, dbName)
	}
	defer c.Close()

	// Get the requested measuremet values
	q := client.NewQueryWithParameters(fmt.Sprintf("SELECT %s FROM $m", quoteFields(field)), dbName, "ns", client.Params{
		"m": client.Identifier(measurement),
	})
	response, err := c.Query(q)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query measurement %s", measurement)
	}
	if response.Error() != nil {
		return nil, errors.Wrapf(response.Error(), "failed to query measurement %s", measurement)
	}

	var entries [][]string

	for _, result := range response.Results {
		for _, ser := range result.Series {
			for _, row := range ser.Values {
				var rowFields []string
				for _, column := range row {
					if column == nil {
						rowFields = append(rowFields, "")
					} else if colStr, ok := column.(string); ok {
						rowFields = append(rowFields, colStr)
					} else if colStringer, ok := column.(fmt.Stringer); ok {
						rowFields = append(rowFields, colStringer.String())
					} else {
						return nil, errors.Errorf("failed to parse column value: %v", column)
					}
				}
				entries = append(entries, rowFields)
			}
		}
	}

	return entries, nil
}

// Series denotes a single field of a measurement, used as a sample store
type Series struct {
	db          *DB
	dbName      string
	measurement string
	field       string
}

// Series returns a sample store reading the given field of a measurement
func (d *DB) Series(dbName, measurement, field string) *Series {
	return &Series{
		db:          d,
		dbName:      dbName,
		measurement: measurement,
		field:       field,
	}
}

// FetchSamples retrieves all samples of the series in time order
func (s *Series) FetchSamples(ctx context.Context) (liveplot.Samples, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Create a new InfluxDB client, bounding the request by the context deadline
	config := *s.db.config
	if deadline, ok := ctx.Deadline(); ok {
		config.Timeout = time.Until(deadline)
	}
	c, err := client.NewHTTPClient(config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create InfluxDB client for measurement %s on DB %s", s.measurement, s.dbName)
	}
	defer c.Close()

	q := client.NewQueryWithParameters(fmt.Sprintf("SELECT %s FROM $m", quoteFields([]string{db.PositionField, s.field})), s.dbName, "ns", client.Params{
		"m": client.Identifier(s.measurement),
	})
	response, err := c.Query(q)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query measurement %s", s.measurement)
	}
	if response.Error() != nil {
		return nil, errors.Wrapf(response.Error(), "failed to query measurement %s", s.measurement)
	}

	var samples liveplot.Samples
	for _, result := range response.Results {
		for _, ser := range result.Series {

			// Determine the column holding the sample values
			valueCol := -1
			for i, col := range ser.Columns {
				if col == s.field {
					valueCol = i
				}
			}
			if valueCol < 0 {
				return nil, errors.Errorf("field %s not present in measurement %s", s.field, s.measurement)
			}

			for _, row := range ser.Values {
				sample := liveplot.Sample{
					Position: len(samples),
				}
				if valueCol < len(row) && row[valueCol] != nil {
					value, err := parseFloat(row[valueCol])
					if err != nil {
						return nil, errors.Wrapf(err, "invalid value at position %d", sample.Position)
					}
					sample.Value = &value
				}
				samples = append(samples, sample)
			}
		}
	}

	return samples, nil
}

func parseFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case json.Number:
		return val.Float64()
	case float64:
		return val, nil
	default:
		return 0, errors.Errorf("unexpected value type %T", v)
	}
}

func quoteFields(fields []string) string {
	quoted := make([]string, len(fields))
	for i := 0; i < len(fields); i++ {
		quoted[i] = "\"" + strings.ReplaceAll(fields[i], "\"", "\\\"") + "\""
	}
	return strings.Join(quoted, ",")
}
