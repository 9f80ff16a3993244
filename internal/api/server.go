// Package api serves p3's classifier, metrics history and anomaly detector
// over HTTP, together with a Prometheus scrape endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/divyansh-cyber/AceE6data/internal/core"
	"github.com/divyansh-cyber/AceE6data/internal/observability"
	"github.com/divyansh-cyber/AceE6data/internal/queryanalysis"
	"github.com/divyansh-cyber/AceE6data/internal/storage"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Deps are the services behind the API. Alerts and Prom may be nil.
type Deps struct {
	Monitor core.MetricsMonitor
	Queries core.QueryAnalyzer
	Alerts  observability.AlertEngine
	Prom    *observability.PromMetrics
	Logger  *slog.Logger
	Version string
}

// Server routes API requests.
type Server struct {
	router  *mux.Router
	deps    Deps
	logger  *slog.Logger
	started time.Time
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		router:  mux.NewRouter(),
		deps:    deps,
		logger:  deps.Logger,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware, s.loggingMiddleware, s.metricsMiddleware)

	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/queries/classify", s.classifyHandler).Methods(http.MethodPost)
	v1.HandleFunc("/queries/summary", s.summaryHandler).Methods(http.MethodPost)
	v1.HandleFunc("/queries/recent", s.recentHandler).Methods(http.MethodGet)
	v1.HandleFunc("/history", s.historyHandler).Methods(http.MethodGet)
	v1.HandleFunc("/anomaly", s.latestAnomalyHandler).Methods(http.MethodGet)
	v1.HandleFunc("/anomaly", s.sampleAnomalyHandler).Methods(http.MethodPost)
	v1.HandleFunc("/alerts", s.alertsHandler).Methods(http.MethodGet)

	if s.deps.Prom != nil {
		s.router.Handle("/metrics", s.deps.Prom.Handler()).Methods(http.MethodGet)
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening on %s: %w", addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("api shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.SetKeepAlivesEnabled(false)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down api: %w", err)
	}
	return <-errCh
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().UTC(),
		"version":        s.deps.Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	var rec models.QueryRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rec.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Queries.Classify(rec))
}

// summaryHandler accepts either a JSON array of records or an object with a
// "queries" array, runs a batch analysis and returns the report.
func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	records, err := queryanalysis.ParseRecords(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.deps.Queries.Analyze(records)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) recentHandler(w http.ResponseWriter, r *http.Request) {
	recent, err := s.deps.Queries.Recent()
	if errors.Is(err, storage.ErrNoAnalysis) {
		writeError(w, http.StatusNotFound, "no analysis has been run yet")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	samples := s.deps.Monitor.History()
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "last must be a non-negative integer")
			return
		}
		if n < len(samples) {
			samples = samples[len(samples)-n:]
		}
	}
	if samples == nil {
		samples = []models.MetricSample{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schema_version": models.SnapshotSchemaVersion,
		"count":          len(samples),
		"samples":        samples,
	})
}

func (s *Server) latestAnomalyHandler(w http.ResponseWriter, r *http.Request) {
	latest, ok := s.deps.Monitor.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "metrics history is empty")
		return
	}
	report, err := s.deps.Monitor.Score(r.Context(), latest)
	s.writeAnomaly(w, r, report, err)
}

func (s *Server) sampleAnomalyHandler(w http.ResponseWriter, r *http.Request) {
	var sample models.MetricSample
	if err := decodeJSON(w, r, &sample); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}
	report, err := s.deps.Monitor.Check(r.Context(), sample)
	s.writeAnomaly(w, r, report, err)
}

func (s *Server) writeAnomaly(w http.ResponseWriter, r *http.Request, report *core.AnomalyReport, err error) {
	if err != nil {
		if isFeatureMismatch(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, anomalyResponse(report))
}

func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Alerts == nil {
		writeJSON(w, http.StatusOK, map[string]any{"alerts": []observability.Alert{}})
		return
	}
	alerts, err := s.deps.Alerts.Evaluate()
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []observability.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
