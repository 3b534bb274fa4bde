package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"justapengu.in/pedal/internal/calculator"
	"justapengu.in/pedal/internal/shm"
	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

type fakeQuery struct {
	store   *snapshot.Store
	results map[string]calculator.Result
}

func (q *fakeQuery) Current() *snapshot.Snapshot {
	return q.store.Current()
}

func (q *fakeQuery) Metric(name string) (calculator.Result, bool) {
	result, ok := q.results[name]

	return result, ok
}

func (q *fakeQuery) Metrics() []calculator.Result {
	var out []calculator.Result

	for _, result := range q.results {
		out = append(out, result)
	}

	return out
}

func (q *fakeQuery) SourceState() shm.SourceState {
	return q.store.Current().State
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := snapshot.NewStore(4)
	store.SetSourceState(shm.Live)

	rec := &telemetry.Record{
		Version:     2,
		Sequence:    7,
		CapturedAt:  time.Unix(1600000000, 0),
		VehicleName: "Oreca 07",
		TrackLength: 1000,
		LapDistance: 250,
		LastLapTime: telemetry.Unknown,
		Fuel:        42.5,
		PaceNotes:   []telemetry.PaceNote{{Distance: 300, Callout: 2}},
	}

	if err := store.Commit(rec); err != nil {
		t.Fatal(err)
	}

	query := &fakeQuery{
		store: store,
		results: map[string]calculator.Result{
			"fuel_rate": {Name: "fuel_rate", Value: calculator.Number(0.2), Sequence: 7, Valid: true},
		},
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pedal_test_total", Help: "test"})
	counter.Inc()

	registry := prometheus.NewRegistry()
	registry.MustRegister(counter)

	server := httptest.NewServer(NewHTTP("", query, registry, logger).Router())
	t.Cleanup(server.Close)

	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)

	if err != nil {
		t.Fatal(err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		t.Fatal(err)
	}

	return resp.StatusCode, string(body)
}

func TestSnapshotEndpoint(t *testing.T) {
	server := newTestServer(t)

	status, body := get(t, server.URL+"/api/snapshot")

	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	var view struct {
		State  string `json:"state"`
		Latest struct {
			Sequence    uint32   `json:"sequence"`
			Vehicle     string   `json:"vehicle"`
			LapFraction float64  `json:"lap_fraction"`
			LastLapTime *float64 `json:"last_lap_time"`
			PaceNotes   []struct {
				Callout string `json:"callout"`
			} `json:"pace_notes"`
		} `json:"latest"`
	}

	if err := json.Unmarshal([]byte(body), &view); err != nil {
		t.Fatalf("Could not decode %s: %s", body, err)
	}

	if view.State != "Live" || view.Latest.Sequence != 7 || view.Latest.Vehicle != "Oreca 07" {
		t.Errorf("Unexpected snapshot: %s", body)
	}

	if view.Latest.LapFraction != 0.25 {
		t.Errorf("Expected lap fraction 0.25, got %v", view.Latest.LapFraction)
	}

	if view.Latest.LastLapTime != nil {
		t.Errorf("Expected an unknown lap time to be null")
	}

	if len(view.Latest.PaceNotes) != 1 || view.Latest.PaceNotes[0].Callout != "Left 2" {
		t.Errorf("Unexpected pace notes: %s", body)
	}
}

func TestMetricEndpoints(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/api/state", http.StatusOK, `"state":"Live"`},
		{"/api/metrics", http.StatusOK, `"name":"fuel_rate"`},
		{"/api/metrics/fuel_rate", http.StatusOK, `"valid":true`},
		{"/api/metrics/nope", http.StatusNotFound, ""},
		{"/metrics", http.StatusOK, "pedal_test_total 1"},
		{"/api/unknown", http.StatusNotFound, ""},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			status, body := get(t, server.URL+test.path)

			if status != test.status {
				t.Errorf("Expected %d, got %d", test.status, status)
			}

			if !strings.Contains(body, test.contains) {
				t.Errorf("Expected %q in %s", test.contains, body)
			}
		})
	}
}

func TestNumberMarshalsUnknownAsNull(t *testing.T) {
	b, err := json.Marshal([]Number{1.5, Number(telemetry.Unknown)})

	if err != nil {
		t.Fatal(err)
	}

	if string(b) != "[1.5,null]" {
		t.Errorf("Expected [1.5,null], got %s", b)
	}
}
