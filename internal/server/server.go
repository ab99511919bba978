// Package server exposes the quiz, catalog, tracker and chat services over
// HTTP and a WebSocket chat stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/careercompass/internal/assistant"
	"github.com/p-n-ai/careercompass/internal/catalog"
	"github.com/p-n-ai/careercompass/internal/platform/metrics"
	"github.com/p-n-ai/careercompass/internal/quiz"
	"github.com/p-n-ai/careercompass/internal/tracker"
)

const (
	maxBodyBytes = 1 << 20
	checkTimeout = 2 * time.Second
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Deps holds the services the server routes to. Nil services leave their
// routes unregistered.
type Deps struct {
	Quiz      *quiz.Manager
	Catalog   *catalog.Service
	Tracker   *tracker.Tracker
	Assistant *assistant.Assistant
	Metrics   *metrics.Metrics

	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]Check

	MapsConfigured bool
}

// Server is the HTTP surface.
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a server and registers its routes.
func New(deps Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.deps.Metrics != nil {
		handler = s.deps.Metrics.Middleware(pattern, handler)
	}
	s.mux.Handle(pattern, handler)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
	s.handle("GET /api/config/maps", s.handleMapsConfig)

	if s.deps.Quiz != nil {
		s.quizRoutes()
	}
	if s.deps.Catalog != nil {
		s.handle("GET /api/catalog/{kind}", s.handleCatalog)
	}
	if s.deps.Tracker != nil {
		s.trackerRoutes()
	}
	if s.deps.Assistant != nil {
		s.chatRoutes()
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range s.deps.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMapsConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"configured": s.deps.MapsConfigured})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// badRequest wraps err so statusFor maps it to 400.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrSessionNotFound),
		errors.Is(err, tracker.ErrNotTracked),
		errors.Is(err, assistant.ErrConversationNotFound),
		errors.Is(err, assistant.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrWrongPhase),
		errors.Is(err, catalog.ErrSuperseded),
		errors.Is(err, assistant.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, assistant.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, quiz.ErrUnknownQuestion),
		errors.Is(err, quiz.ErrInvalidOption),
		errors.Is(err, quiz.ErrUnanswered),
		errors.Is(err, quiz.ErrOutOfRange),
		errors.Is(err, tracker.ErrInvalidStatus),
		errors.Is(err, tracker.ErrMissingID),
		errors.Is(err, tracker.ErrMissingDoc),
		errors.Is(err, assistant.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest{err: errors.New("invalid JSON body: " + err.Error())}
	}
	return nil
}
