// Package server exposes the study features as a JSON HTTP API with a
// websocket endpoint for streamed instructor chat.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/p-n-ai/ntsa-buddy/internal/curriculum"
	"github.com/p-n-ai/ntsa-buddy/internal/quiz"
	"github.com/p-n-ai/ntsa-buddy/internal/study"
)

const readyTimeout = 3 * time.Second

// HealthChecker is a dependency that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the server's dependencies.
type Config struct {
	Study          *study.Service
	Curriculum     *curriculum.Loader
	Sessions       *quiz.Registry
	Attempts       quiz.AttemptStore        // default in-memory
	Events         quiz.EventLogger         // default no-op
	AllowedOrigins []string                 // CORS and websocket origins
	BodyLimit      int64                    // max request body bytes
	RateLimit      int                      // AI requests per client per minute, 0 = unlimited
	Readiness      map[string]HealthChecker // checked by the readiness probe
}

// Server handles API requests.
type Server struct {
	study      *study.Service
	curriculum *curriculum.Loader
	sessions   *quiz.Registry
	attempts   quiz.AttemptStore
	events     quiz.EventLogger
	origins    []string
	bodyLimit  int64
	limiter    *rateLimiter
	readiness  map[string]HealthChecker
	now        func() time.Time
}

// New creates a server.
func New(cfg Config) *Server {
	attempts := cfg.Attempts
	if attempts == nil {
		attempts = quiz.NewMemoryAttemptStore()
	}
	events := cfg.Events
	if events == nil {
		events = quiz.NopEventLogger{}
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = quiz.NewRegistry(0)
	}
	return &Server{
		study:      cfg.Study,
		curriculum: cfg.Curriculum,
		sessions:   sessions,
		attempts:   attempts,
		events:     events,
		origins:    cfg.AllowedOrigins,
		bodyLimit:  cfg.BodyLimit,
		limiter:    newRateLimiter(cfg.RateLimit),
		readiness:  cfg.Readiness,
		now:        time.Now,
	}
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.newMux()
	h = bodyLimitMiddleware(h, s.bodyLimit)
	h = corsMiddleware(h, s.origins)
	return logMiddleware(h)
}

func (s *Server) newMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.HandleFunc("GET /api/topics", s.handleTopics)

	route(mux, http.MethodPost, "/api/generateTopic", s.limited(s.handleGenerateTopic))
	route(mux, http.MethodPost, "/api/search", s.limited(s.handleSearch))
	route(mux, http.MethodPost, "/api/generateQuiz", s.limited(s.handleGenerateQuiz))
	route(mux, http.MethodPost, "/api/chatInstructor", s.limited(s.handleChatInstructor))
	route(mux, http.MethodPost, "/api/render", s.handleRender)

	route(mux, http.MethodPost, "/api/quiz/sessions", s.limited(s.handleCreateSession))
	mux.HandleFunc("GET /api/quiz/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/quiz/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("/api/quiz/sessions/{id}", methodNotAllowed)
	route(mux, http.MethodPost, "/api/quiz/sessions/{id}/answer", s.handleAnswer)
	route(mux, http.MethodPost, "/api/quiz/sessions/{id}/advance", s.handleAdvance)
	route(mux, http.MethodGet, "/api/quiz/attempts", s.handleAttempts)
	route(mux, http.MethodGet, "/api/quiz/attempts.xlsx", s.handleAttemptsExport)

	mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, msgRouteNotFound)
	})
	return mux
}

// route registers h for method on path and answers every other method with
// a JSON 405.
func route(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path, h)
	mux.HandleFunc(path, methodNotAllowed)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Backend running 🚀"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.readiness))
	ready := true
	for name, c := range s.readiness {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Error: "not ready", Data: checks})
		return
	}
	writeData(w, http.StatusOK, checks)
}
