package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fako1024/liveplot"
	"github.com/fako1024/liveplot/db"
)

const samplesResponse = `{"results":[{"statement_id":0,"series":[{"name":"datapoints","columns":["time","position","Col-1"],"values":[[1000000,0,5],[2000000,1,null],[3000000,2,7.5]]}]}]}`

type mockInflux struct {
	sync.Mutex

	queries []string
	writes  []string
}

func (m *mockInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.Lock()
	defer m.Unlock()

	w.Header().Set("X-Influxdb-Version", "1.8.10")
	switch r.URL.Path {
	case "/query":
		m.queries = append(m.queries, r.FormValue("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, samplesResponse)
	case "/write":
		body, _ := io.ReadAll(r.Body)
		m.writes = append(m.writes, string(body))
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestFetchSamples(t *testing.T) {
	mock := &mockInflux{}
	srv := httptest.NewServer(mock)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	samples, err := New(srv.URL, "root", "root").Series("samples", "datapoints", "Col-1").FetchSamples(ctx)
	if err != nil {
		t.Fatalf("Failed to fetch samples: %s", err)
	}
	if len(samples) != 3 {
		t.Fatalf("Unexpected number of samples, want 3, have %d", len(samples))
	}
	if !samples[0].Present() || *samples[0].Value != 5. {
		t.Fatalf("Unexpected first sample: %v", samples[0])
	}
	if samples[1].Present() {
		t.Fatalf("Unexpected value for absent sample: %v", *samples[1].Value)
	}
	if !samples[2].Present() || *samples[2].Value != 7.5 || samples[2].Position != 2 {
		t.Fatalf("Unexpected last sample: %v", samples[2])
	}

	if len(mock.queries) != 1 || !strings.Contains(mock.queries[0], `SELECT "position","Col-1" FROM`) {
		t.Fatalf("Unexpected queries: %v", mock.queries)
	}
}

func TestFetchSamplesMissingField(t *testing.T) {
	srv := httptest.NewServer(&mockInflux{})
	defer srv.Close()

	if _, err := New(srv.URL, "root", "root").Series("samples", "datapoints", "Col-5").FetchSamples(context.Background()); err == nil {
		t.Fatalf("Unexpected success fetching samples for non-existing field")
	}
}

func TestFetchSamplesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New("http://localhost:1", "root", "root").Series("samples", "datapoints", "Col-1").FetchSamples(ctx); err != context.Canceled {
		t.Fatalf("Unexpected error, want %s, have %v", context.Canceled, err)
	}
}

func TestFetchMeasurementsTable(t *testing.T) {
	srv := httptest.NewServer(&mockInflux{})
	defer srv.Close()

	rows, err := New(srv.URL, "root", "root").FetchMeasurementsTable("samples", "datapoints", db.PositionField, "Col-1")
	if err != nil {
		t.Fatalf("Failed to fetch measurements: %s", err)
	}

	expected := [][]string{
		{"1000000", "0", "5"},
		{"2000000", "1", ""},
		{"3000000", "2", "7.5"},
	}
	if len(rows) != len(expected) {
		t.Fatalf("Unexpected number of rows, want %d, have %d", len(expected), len(rows))
	}
	for i := range expected {
		if strings.Join(rows[i], ",") != strings.Join(expected[i], ",") {
			t.Fatalf("Unexpected row %d, want %v, have %v", i, expected[i], rows[i])
		}
	}
}

func TestEmitSamples(t *testing.T) {
	mock := &mockInflux{}
	srv := httptest.NewServer(mock)
	defer srv.Close()

	samples := liveplot.FromValues(liveplot.Float(5.), nil, liveplot.Float(7.))
	if err := db.EmitSamples(New(srv.URL, "root", "root"), "samples", "datapoints", "Col-1", time.Unix(1000, 0), samples); err != nil {
		t.Fatalf("Failed to emit samples: %s", err)
	}

	if len(mock.writes) != 1 {
		t.Fatalf("Unexpected number of writes, want 1, have %d", len(mock.writes))
	}
	lines := strings.Split(strings.TrimSpace(mock.writes[0]), "\n")
	if len(lines) != 3 {
		t.Fatalf("Unexpected number of points, want 3, have %d:\n%s", len(lines), mock.writes[0])
	}
	if !strings.Contains(lines[0], "Col-1=5") || !strings.Contains(lines[0], "position=0i") {
		t.Fatalf("Unexpected first point: %s", lines[0])
	}
	if strings.Contains(lines[1], "Col-1") || !strings.Contains(lines[1], "position=1i") {
		t.Fatalf("Unexpected point for absent sample: %s", lines[1])
	}
	if !strings.HasSuffix(lines[2], " 1000002") {
		t.Fatalf("Unexpected time stamp of last point: %s", lines[2])
	}
}

func TestEmitDataPointsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Influxdb-Version", "1.8.10")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"database not found: \"samples\""}`)
	}))
	defer srv.Close()

	err := New(srv.URL, "root", "root").EmitDataPoints("samples", "datapoints", db.DataPoints{
		{TimeStamp: time.Unix(1000, 0), Data: map[string]interface{}{db.PositionField: 0}},
	})
	if err == nil {
		t.Fatalf("Unexpected success writing to non-existing database")
	}
	if !strings.HasPrefix(err.Error(), "failed to write InfluxDB batch for measurement datapoints on DB samples") {
		t.Fatalf("Unexpected error message: %s", err)
	}
}
