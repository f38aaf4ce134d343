package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/latest"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/plantdb"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/port_reader"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetReadingsSince(ctx context.Context, since time.Time) ([]types.PlantReading, error) {
	args := m.Called(ctx, since)
	readings, _ := args.Get(0).([]types.PlantReading)
	return readings, args.Error(1)
}

func (m *mockStore) GetAggregateSince(ctx context.Context, since time.Time) (plantdb.AggregateReadings, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(plantdb.AggregateReadings), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixedState port_reader.State

func (s fixedState) State() port_reader.State { return port_reader.State(s) }

var now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	ts    *httptest.Server
	cache *latest.Store
	store *mockStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{cache: latest.NewStore(), store: &mockStore{}}
	srv := NewServer(":0", Deps{
		Latest:   env.cache,
		Store:    env.store,
		Ingestor: fixedState(port_reader.StateStreaming),
		Logger:   slog.New(slog.DiscardHandler),
		Now:      func() time.Time { return now },
	})
	env.ts = httptest.NewServer(srv.Handler)
	t.Cleanup(env.ts.Close)
	return env
}

func (env *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := env.ts.Client().Get(env.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Talking Plant Monitor API","status":"running"}`, string(body))

	resp, _ = env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLatest(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/latest")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Not Found","message":"No readings available yet"}`, string(body))

	env.cache.Set(types.PlantReading{Temperature: 24.5, Humidity: 65, Moisture: 55, Timestamp: now})

	resp, body = env.get(t, "/api/latest")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"temperature":24.5,"humidity":65,"moisture":55,"timestamp":"2025-06-02T12:00:00Z"}`, string(body))
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	readings := []types.PlantReading{
		{Temperature: 22, Humidity: 50, Moisture: 40, Timestamp: now.Add(-time.Minute)},
		{Temperature: 21, Humidity: 51, Moisture: 41, Timestamp: now.Add(-time.Hour)},
	}
	env.store.On("GetReadingsSince", mock.Anything, now.Add(-2*time.Hour)).Return(readings, nil)

	resp, body := env.get(t, "/api/history/2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []types.PlantReading
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(readings[0].Timestamp))
	assert.Equal(t, 41, got[1].Moisture)
	env.store.AssertExpectations(t)
}

func TestHistory_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	env.store.On("GetReadingsSince", mock.Anything, mock.Anything).Return([]types.PlantReading{}, nil)

	resp, body := env.get(t, "/api/history/24")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestHistory_InvalidHours(t *testing.T) {
	env := newTestEnv(t)

	for _, hours := range []string{"0", "-3", "8761", "abc", "1.5"} {
		resp, body := env.get(t, "/api/history/"+hours)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, hours)

		var e map[string]string
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Equal(t, "Bad Request", e["error"])
		assert.NotEmpty(t, e["message"])
	}
	env.store.AssertNotCalled(t, "GetReadingsSince", mock.Anything, mock.Anything)
}

func TestHistory_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.On("GetReadingsSince", mock.Anything, mock.Anything).Return(nil, errors.New("locked"))

	resp, body := env.get(t, "/api/history/1")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "locked")
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.get(t, "/api/status")
	assert.JSONEq(t, `{
		"status": "Unknown",
		"message": "Waiting for data from sensor...",
		"issues": [],
		"temperature": null,
		"humidity": null,
		"moisture": null
	}`, string(body))

	env.cache.Set(types.PlantReading{Temperature: 30, Humidity: 95, Moisture: 55, Timestamp: now})
	resp, body := env.get(t, "/api/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"status": "Needs Care",
		"issues": ["Temperature out of range: 30.0°C", "Humidity out of range: 95.0%"],
		"temperature": 30,
		"humidity": 95,
		"moisture": 55
	}`, string(body))
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.store.On("GetAggregateSince", mock.Anything, now.Add(-24*time.Hour)).Return(plantdb.AggregateReadings{
		Count:       2,
		Temperature: plantdb.MeasurementAggregate{Avg: 22.25, Min: 20.04, Max: 24.46},
		Humidity:    plantdb.MeasurementAggregate{Avg: 50, Min: 45, Max: 55},
		Moisture:    plantdb.MeasurementAggregate{Avg: 42.5, Min: 40, Max: 45},
	}, nil).Once()

	resp, body := env.get(t, "/api/stats")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"temperature": {"avg": 22.3, "min": 20.0, "max": 24.5},
		"humidity": {"avg": 50, "min": 45, "max": 55},
		"moisture": {"avg": 42.5, "min": 40, "max": 45}
	}`, string(body))
}

func TestStats_NoData(t *testing.T) {
	env := newTestEnv(t)
	env.store.On("GetAggregateSince", mock.Anything, mock.Anything).Return(plantdb.AggregateReadings{}, nil)

	resp, body := env.get(t, "/api/stats")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"No data available yet"}`, string(body))
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	env.store.On("Ping", mock.Anything).Return(nil).Once()

	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","database":"ok","ingestor":"streaming"}`, string(body))

	env.store.On("Ping", mock.Anything).Return(errors.New("closed")).Once()
	resp, body = env.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"unavailable","database":"unreachable","ingestor":"streaming"}`, string(body))
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	resp, body := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), `plant_monitor_http_requests_total{code="200"}`)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Post(env.ts.URL+"/api/latest", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWriteJSON_EncodeFailureUsesComponentLogger(t *testing.T) {
	var logs strings.Builder
	h := &handlers{logger: slog.New(slog.NewTextHandler(&logs, nil)).With("component", "api")}

	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "failed to write JSON")
	assert.Contains(t, logs.String(), "component=api")
}

func TestWriteError_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusBadRequest, "hours must be an integer"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "Bad Request", "message": "hours must be an integer"}, body)
}
