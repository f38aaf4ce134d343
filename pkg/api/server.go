// Package api serves the latest reading, history, health status and
// summaries over HTTP. Clients poll. There is no push channel.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/latest"
)

type Deps struct {
	Latest *latest.Store
	Store  ReadingStore
	// Optional. Adds the reader state to /healthz.
	Ingestor IngestorState
	Logger   *slog.Logger
	// Defaults to time.Now.
	Now func() time.Time
}

func NewMux(deps Deps) *http.ServeMux {
	h := &handlers{
		latest:   deps.Latest,
		store:    deps.Store,
		ingestor: deps.Ingestor,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /api/latest", h.handleLatest)
	mux.HandleFunc("GET /api/history/{hours}", h.handleHistory)
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
	return mux
}

func NewServer(addr string, deps Deps) *http.Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	deps.Logger = logger

	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(logger, NewMux(deps)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
