// Package api exposes the prediction capabilities over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskmindhq/taskmind/internal/analytics"
	"github.com/taskmindhq/taskmind/internal/artifact"
	"github.com/taskmindhq/taskmind/internal/etc"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/recommend"
	"github.com/taskmindhq/taskmind/internal/reminder"
	"github.com/taskmindhq/taskmind/internal/score"
	"github.com/taskmindhq/taskmind/internal/taskstore"
	"github.com/taskmindhq/taskmind/internal/training"
)

// Server is an HTTP API server that exposes the prediction capabilities.
type Server struct {
	etc       *etc.Service
	score     *score.Service
	recommend *recommend.Service
	reminder  *reminder.Service
	analytics *analytics.Service
	artifacts artifact.Store
	logger    *slog.Logger
	authToken string // empty = no auth required
	clock     func() time.Time
}

// NewServer creates a new Server with the given dependencies.
func NewServer(etcSvc *etc.Service, scoreSvc *score.Service, recSvc *recommend.Service,
	remSvc *reminder.Service, anaSvc *analytics.Service, artifacts artifact.Store,
	logger *slog.Logger, authToken string) *Server {
	return &Server{
		etc:       etcSvc,
		score:     scoreSvc,
		recommend: recSvc,
		reminder:  remSvc,
		analytics: anaSvc,
		artifacts: artifacts,
		logger:    logger,
		authToken: authToken,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the server's notion of now. Test hook.
func (s *Server) SetClock(clock func() time.Time) { s.clock = clock }

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check — no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Prediction endpoints — wrapped with auth middleware.
	mux.HandleFunc("POST /v1/etc/predict", s.auth(s.handlePredict))
	mux.HandleFunc("POST /v1/score", s.auth(s.handleScore))
	mux.HandleFunc("POST /v1/recommend", s.auth(s.handleRecommend))
	mux.HandleFunc("POST /v1/reminders", s.auth(s.handleReminders))
	mux.HandleFunc("POST /v1/analytics", s.auth(s.handleAnalytics))
	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req etc.Request
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Type != "" && !req.Type.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid task type")
		return
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid priority")
		return
	}

	pred, err := s.etc.Predict(r.Context(), req, s.clock())
	if err != nil {
		s.serviceError(w, "predict time to completion", err)
		return
	}
	s.writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req score.Request
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.TaskID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id and task_id are required")
		return
	}

	res, err := s.score.Score(r.Context(), req, s.clock())
	if err != nil {
		s.serviceError(w, "score task", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	res, err := s.recommend.Recommend(r.Context(), req, s.clock())
	if err != nil {
		s.serviceError(w, "recommend task", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	var req reminder.Request
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	res, err := s.reminder.Schedule(r.Context(), req, s.clock())
	if err != nil {
		s.serviceError(w, "schedule reminders", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var req analytics.Request
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	res, err := s.analytics.Insights(r.Context(), req, s.clock())
	if err != nil {
		s.serviceError(w, "compute insights", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.artifacts.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// --- helpers ---

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// serviceError maps capability errors onto HTTP statuses.
func (s *Server) serviceError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("failed to "+op, "error", err)
	} else {
		s.logger.Warn("failed to "+op, "error", err, "status", status)
	}
	s.writeError(w, status, err.Error())
}

// statusFor classifies a capability error. Unknown user or task is the
// caller's problem; too little data is unprocessable rather than broken;
// a full queue asks the caller to retry later.
func statusFor(err error) int {
	switch {
	case errors.Is(err, taskstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, training.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
