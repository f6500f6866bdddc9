package csvfile

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fako1024/liveplot"
	"github.com/pkg/errors"
)

// DefaultColumn denotes the default name of the CSV column holding the samples
const DefaultColumn = "Col-1"

// absentValues denotes cell contents treated as absent sample values (matched
// case-insensitively)
var absentValues = map[string]struct{}{
	"":     {},
	"na":   {},
	"nan":  {},
	"null": {},
}

// File denotes a CSV file used as a sample store
type File struct {
	path   string
	column string
}

// New instantiates a new CSV file store
func New(path string, options ...func(*File)) *File {
	f := &File{
		path:   path,
		column: DefaultColumn,
	}

	// Execute functional options, if any
	for _, opt := range options {
		opt(f)
	}

	return f
}

// WithColumn sets the name of the column holding the samples
func WithColumn(column string) func(*File) {
	return func(f *File) {
		f.column = column
	}
}

// FetchSamples reads all samples from the file
func (f *File) FetchSamples(ctx context.Context) (liveplot.Samples, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	csvData, err := os.Open(f.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer csvData.Close()

	return Parse(csvData, f.column)
}

// Parse reads samples from the given column of CSV data, expecting a header row
func Parse(r io.Reader, column string) (liveplot.Samples, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV header")
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.Errorf("column %s not found in CSV header %v", column, header)
	}

	var samples liveplot.Samples
	for {

		// Read each record from csv
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read record from CSV file")
		}

		sample := liveplot.Sample{
			Position: len(samples),
		}
		if col < len(record) {
			cell := strings.TrimSpace(record[col])
			if _, absent := absentValues[strings.ToLower(cell)]; !absent {
				value, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to parse column %s in row %d", column, len(samples)+1)
				}
				if math.IsInf(value, 0) {
					return nil, errors.Errorf("infinite value %s in column %s in row %d", cell, column, len(samples)+1)
				}
				sample.Value = &value
			}
		}
		samples = append(samples, sample)
	}

	return samples, nil
}
