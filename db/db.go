package db

import (
	"context"
	"time"

	"github.com/fako1024/liveplot"
)

// PositionField denotes the field holding the position of a sample, present on
// every stored point (samples without a value only carry this field)
const PositionField = "position"

// DataPoint denotes a data point with specific timings
type DataPoint struct {
	TimeStamp time.Time
	Data      map[string]interface{}
	Tags      map[string]string
}

// DataPoints denotes a list of data points
type DataPoints []DataPoint

// DB is an generic DB interface, providing functionality to interact with a database
type DB interface {

	// EmitDataPoints creates data points and stores it in the underlying database
	EmitDataPoints(db, measurement string, data DataPoints) error
}

// Store denotes a source of samples, read in full and cached by the caller
type Store interface {

	// FetchSamples retrieves all samples in their stored order
	FetchSamples(ctx context.Context) (liveplot.Samples, error)
}

// EmitSamples stores samples as consecutive points of a measurement, starting at
// the given time stamp with millisecond spacing to preserve their order
func EmitSamples(d DB, dbName, measurement, field string, start time.Time, samples liveplot.Samples) error {
	dataPoints := make(DataPoints, 0, len(samples))
	for _, s := range samples {
		data := map[string]interface{}{
			PositionField: s.Position,
		}
		if s.Present() {
			data[field] = *s.Value
		}

		dataPoints = append(dataPoints, DataPoint{
			TimeStamp: start.Add(time.Duration(s.Position) * time.Millisecond),
			Data:      data,
		})
	}

	return d.EmitDataPoints(dbName, measurement, dataPoints)
}
