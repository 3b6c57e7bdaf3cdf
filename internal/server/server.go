// Package server is the authoritative REST side of a sync pair: the same
// store schema exposed over HTTP for clients running the sync engine.
// Every response is wrapped in a {success, data, error} envelope.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bigtime/bigtime/internal/store"
)

// Server serves the sync API over one store.
type Server struct {
	db     *store.DB
	log    *slog.Logger
	apiKey string
}

// New builds a server. An empty apiKey disables authentication, which is
// only sensible on a loopback listener.
func New(db *store.DB, apiKey string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{db: db, log: log.With("component", "server"), apiKey: apiKey}
}

// Router assembles the chi routing tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/time", s.handleTime)

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", s.handleListEmployees)
			r.Post("/", s.handleCreateEmployee)
			r.Put("/{badge}", s.handleUpdateEmployee)
			r.Delete("/{badge}", s.handleDeleteEmployee)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", s.handleListLogs)
			r.Post("/", s.handleCreateLog)
			r.Put("/{id}", s.handleUpdateLog)
			r.Delete("/{id}", s.handleDeleteLog)
		})
	})
	return r
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("server listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.apiKey)) != 1 {
			s.respondError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// envelope is the fixed response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.log.Warn("failed to write response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: msg}); err != nil {
		s.log.Warn("failed to write error response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTime(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]time.Time{
		"server_time": time.Now().UTC(),
	})
}
