// internal/ingest/server.go

// Package ingest is the companion collection API: the endpoint the relay
// uploads to. It accepts capture payloads, stores them as JSON files and
// answers the reachability probe the client sends before uploading.
package ingest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/config"
)

// Server is the HTTP ingestion service.
type Server struct {
	cfg    config.IngestConfig
	store  *Store
	logger *zap.Logger
	http   *http.Server
}

// NewServer builds the service and its router.
func NewServer(cfg config.IngestConfig, store *Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger.Named("ingest"),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(allowCrossOrigin)

	r.Get("/", s.handleRoot)
	r.Get("/api/health", s.handleHealth)
	r.Route("/api/ingest", func(r chi.Router) {
		r.Options("/extension", s.handlePreflight)
		r.Post("/extension", s.handleIngest)
	})
	return r
}

// allowCrossOrigin answers the headers a browser-based uploader needs; the
// payloads carry no credentials so a wildcard origin is fine.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":  "pagesnap ingestion api",
		"status":   "running",
		"endpoint": "/api/ingest/extension",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePreflight is what the client's reachability probe hits.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payload schemas.IngestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if payload.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id missing from payload")
		return
	}
	if payload.HTMLSnapshot == "" {
		s.writeError(w, http.StatusBadRequest, "html_snapshot missing from payload")
		return
	}

	path, err := s.store.Save(payload)
	if err != nil {
		s.logger.Error("Failed to store payload.", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store payload")
		return
	}

	stats := payload.Stats()
	s.logger.Info("Bundle stored.",
		zap.String("file", path),
		zap.String("user_id", payload.UserID),
		zap.String("domain", payload.Domain),
		zap.Int("assets", stats.TotalAssets))

	s.writeJSON(w, http.StatusOK, schemas.IngestReceipt{
		Success:  true,
		Message:  "Data captured successfully",
		Filepath: path,
		Stats:    stats,
		Metadata: schemas.IngestMetadata{
			UserID:     payload.UserID,
			Domain:     payload.Domain,
			Title:      payload.Title,
			SourceURL:  payload.SourceURL,
			CapturedAt: payload.CapturedAt,
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response body.", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// ListenAndServe blocks until the context is canceled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Ingestion API listening.",
			zap.String("addr", s.cfg.Addr),
			zap.String("data_dir", s.store.Dir()))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
