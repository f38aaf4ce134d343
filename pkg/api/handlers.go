package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/aggregator"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/health"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/latest"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/port_reader"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
	"github.com/VictoriaMetrics/metrics"
)

const (
	minHistoryHours = 1
	maxHistoryHours = 24 * 365
)

// ReadingStore is the read side of plantdb.Store.
type ReadingStore interface {
	aggregator.Source
	GetReadingsSince(ctx context.Context, since time.Time) ([]types.PlantReading, error)
	Ping(ctx context.Context) error
}

// IngestorState reports the serial reader state. Implemented by port_reader.SensorReader.
type IngestorState interface {
	State() port_reader.State
}

type handlers struct {
	latest   *latest.Store
	store    ReadingStore
	ingestor IngestorState
	logger   *slog.Logger
	now      func() time.Time
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Talking Plant Monitor API",
		"status":  "running",
	})
}

func (h *handlers) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.latest.Get()
	if !ok {
		h.writeError(w, http.StatusNotFound, "No readings available yet")
		return
	}
	h.writeJSON(w, http.StatusOK, reading)
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours, err := strconv.Atoi(r.PathValue("hours"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "hours must be an integer")
		return
	}
	if hours < minHistoryHours || hours > maxHistoryHours {
		h.writeError(w, http.StatusBadRequest, "hours must be between 1 and 8760")
		return
	}

	since := h.now().Add(-time.Duration(hours) * time.Hour)
	readings, err := h.store.GetReadingsSince(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to load history", "error", err, "hours", hours)
		h.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	h.writeJSON(w, http.StatusOK, readings)
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, health.EvaluateLatest(h.latest.Get()))
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := aggregator.Summarize(r.Context(), h.store, h.now(), aggregator.DefaultWindow)
	if err != nil {
		h.logger.Error("failed to summarize readings", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to summarize readings")
		return
	}
	if summary == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "No data available yet"})
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{
		"status":   "ok",
		"database": "ok",
	}
	if h.ingestor != nil {
		body["ingestor"] = h.ingestor.State().String()
	}

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("failed to check database connectivity", "error", err)
		body["status"] = "unavailable"
		body["database"] = "unreachable"
		h.writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}
