package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nagbot/internal/model"
	"nagbot/pkg/logx"
)

type stubDueLister struct {
	due             []model.DueInfo
	err             error
	includeUpcoming bool
}

func (s *stubDueLister) GetDueChores(_ context.Context, includeUpcoming bool) ([]model.DueInfo, error) {
	s.includeUpcoming = includeUpcoming
	return s.due, s.err
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubDueLister{}, logx.Nop())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v, want status ok", body)
	}
}

func TestDueChores(t *testing.T) {
	t.Parallel()

	next := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lister := &stubDueLister{due: []model.DueInfo{{
		Chore:     model.ChoreWithLastCompletion{Chore: model.Chore{ID: "c1", Name: "Water plants"}},
		NextDue:   &next,
		IsOverdue: true,
	}}}
	srv := NewServer(lister, logx.Nop())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chores/due?include_upcoming=true", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !lister.includeUpcoming {
		t.Fatal("include_upcoming=true was not passed through")
	}
	var due []model.DueInfo
	if err := json.NewDecoder(rec.Body).Decode(&due); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(due) != 1 || due[0].Chore.ID != "c1" || !due[0].IsOverdue {
		t.Fatalf("due = %+v", due)
	}
}

func TestDueChoresEmptyIsArray(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubDueLister{}, logx.Nop())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chores/due", nil))

	if got := rec.Body.String(); got != "[]\n" {
		t.Fatalf("body = %q, want empty JSON array", got)
	}
}

func TestDueChoresError(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubDueLister{err: errors.New("db is closed")}, logx.Nop())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chores/due", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
