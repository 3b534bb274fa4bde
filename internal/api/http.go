package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"justapengu.in/pedal/internal/scheduler"
)

type Logger = logrus.FieldLogger

const shutdownTimeout = 5 * time.Second

// HTTP serves a read-only debug view of the pipeline.
type HTTP struct {
	server *http.Server
	logger Logger

	address  string
	query    scheduler.Query
	gatherer prometheus.Gatherer
}

func NewHTTP(address string, query scheduler.Query, gatherer prometheus.Gatherer, logger Logger) *HTTP {
	return &HTTP{
		address:  address,
		query:    query,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Listen serves until ctx is done, then shuts the server down.
func (h *HTTP) Listen(ctx context.Context) error {
	h.logger.Infof("Debug HTTP server listening on: %s", h.address)

	h.server = &http.Server{
		Handler:           h.Router(),
		Addr:              h.address,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- h.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return h.server.Shutdown(shutdownCtx)
	}
}

func (h *HTTP) Router() http.Handler {
	router := chi.NewRouter()

	router.Get("/api/state", h.State)
	router.Get("/api/snapshot", h.Snapshot)
	router.Get("/api/metrics", h.Metrics)
	router.Get("/api/metrics/{name}", h.Metric)

	if h.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

func (h *HTTP) State(w http.ResponseWriter, r *http.Request) {
	state := newStateView(h.query.Current())
	state.State = h.query.SourceState()

	h.writeJSON(w, state)
}

func (h *HTTP) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.query.Current()

	h.writeJSON(w, SnapshotView{
		StateView: newStateView(snap),
		Latest:    newRecordView(snap.Latest),
	})
}

func (h *HTTP) Metrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.query.Metrics())
}

func (h *HTTP) Metric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, ok := h.query.Metric(name)

	if !ok {
		http.NotFound(w, r)
		return
	}

	h.writeJSON(w, result)
}

func (h *HTTP) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Add("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("Could not encode response")
	}
}
