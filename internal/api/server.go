package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/analyzer"
	"github.com/rankwatch/seo-checker/internal/database"
	"github.com/rankwatch/seo-checker/internal/metrics"
	"github.com/rankwatch/seo-checker/internal/seo"
)

// healthPayload is the exact body the container healthcheck expects.
const healthPayload = `{"status":"healthy"}`

const (
	readyTimeout     = 2 * time.Second
	requestTimeout   = 60 * time.Second
	defaultListLimit = 20
	maxListLimit     = 100
)

// AnalysisService runs aggregations on behalf of the HTTP handlers.
type AnalysisService interface {
	AnalyzeTarget(ctx context.Context, target string) (database.AnalysisRecord, error)
	CategorizeBatch(ctx context.Context, targetID string, domains []string) (int, error)
}

// Server wires HTTP handlers to the analyzer and store.
type Server struct {
	router  chi.Router
	service AnalysisService
	store   database.Store
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(service AnalysisService, store database.Store, logger *zap.Logger) *Server {
	s := &Server{
		service: service,
		store:   store,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.createAnalysis)
			r.Get("/", s.listAnalyses)
			r.Route("/{analysis_id}", func(r chi.Router) {
				r.Get("/", s.getAnalysis)
				r.Get("/backlinks", s.listBacklinks)
			})
		})
		r.Route("/batch", func(r chi.Router) {
			r.Post("/", s.runBatch)
			r.Get("/{target_id}", s.getBatch)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(healthPayload)); err != nil {
		s.logger.Error("health write failed", zap.Error(err))
	}
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type analysisRequest struct {
	Target string `json:"target"`
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}
	rec, err := s.service.AnalyzeTarget(r.Context(), req.Target)
	if err != nil {
		s.writeAnalyzeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysis_id")
	rec, err := s.store.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		s.logger.Error("get analysis failed", zap.String("analysis_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	limit := parseLimit(r.URL.Query().Get("limit"))
	recs, err := s.store.ListAnalyses(r.Context(), target, limit)
	if err != nil {
		s.logger.Error("list analyses failed", zap.String("target", target), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if recs == nil {
		recs = []database.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": recs})
}

func (s *Server) listBacklinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysis_id")
	direction, err := seo.ParseLinkDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.store.GetAnalysis(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		s.logger.Error("get analysis failed", zap.String("analysis_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	links, err := s.store.ListBacklinks(r.Context(), id, direction)
	if err != nil {
		s.logger.Error("list backlinks failed", zap.String("analysis_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if links == nil {
		links = []database.BacklinkRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": links})
}

type batchRequest struct {
	TargetID string   `json:"target_id"`
	Domains  []string `json:"domains"`
}

func (s *Server) runBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "target_id is required")
		return
	}
	if len(req.Domains) == 0 {
		writeError(w, http.StatusBadRequest, "at least one domain is required")
		return
	}
	n, err := s.service.CategorizeBatch(r.Context(), req.TargetID, req.Domains)
	if err != nil {
		s.writeAnalyzeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target_id": req.TargetID, "categorized": n})
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "target_id")
	entries, err := s.store.ListBatch(r.Context(), targetID)
	if err != nil {
		s.logger.Error("list batch failed", zap.String("target_id", targetID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target_id": targetID, "domains": entries})
}

// writeAnalyzeError maps analyzer failures to HTTP statuses: provider errors
// surface as 502, validation as 400, cancellation as 504.
func (s *Server) writeAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *seo.APIError
	switch {
	case errors.As(err, &apiErr):
		s.logger.Warn("upstream provider error",
			zap.String("provider", apiErr.Provider),
			zap.Int("status", apiErr.StatusCode),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "upstream provider error")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, analyzer.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultListLimit
	}
	limit := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return defaultListLimit
		}
		limit = limit*10 + int(c-'0')
		if limit > maxListLimit {
			return maxListLimit
		}
	}
	if limit == 0 {
		return defaultListLimit
	}
	return limit
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
