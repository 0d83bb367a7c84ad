// Package httpapi exposes a small read-only HTTP surface: a health probe and
// the current due set. Writes happen through the Telegram action, not HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nagbot/internal/model"
	"nagbot/pkg/logx"
)

// DueLister yields the evaluated due set.
type DueLister interface {
	GetDueChores(ctx context.Context, includeUpcoming bool) ([]model.DueInfo, error)
}

type Server struct {
	due DueLister
	log logx.Logger
}

func NewServer(due DueLister, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{due: due, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/chores/due", s.handleDueChores)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDueChores(w http.ResponseWriter, r *http.Request) {
	includeUpcoming := r.URL.Query().Get("include_upcoming") == "true"

	due, err := s.due.GetDueChores(r.Context(), includeUpcoming)
	if err != nil {
		s.log.Error("failed to evaluate due chores", logx.Err(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to evaluate due chores"})
		return
	}
	if due == nil {
		due = []model.DueInfo{}
	}
	s.respondJSON(w, http.StatusOK, due)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", logx.Err(err))
	}
}
