// Package chores computes the due set: every chore evaluated against its
// schedule and completion history.
package chores

import (
	"context"
	"time"

	"nagbot/internal/model"
	"nagbot/internal/schedule"
	"nagbot/pkg/logx"
)

// Store is the slice of the persistence layer this service reads.
type Store interface {
	ListChoresWithLastCompletion(ctx context.Context) ([]model.ChoreWithLastCompletion, error)
}

type Service struct {
	store Store
	eval  *schedule.Evaluator
	log   logx.Logger
}

func NewService(store Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store: store,
		eval:  schedule.NewEvaluator(log),
		log:   log,
	}
}

// GetDueChores returns the chores that are overdue, soonest due first.
// With includeUpcoming it also returns not-yet-due chores, and
// once-in-a-while chores (no due time) sort last.
func (s *Service) GetDueChores(ctx context.Context, includeUpcoming bool) ([]model.DueInfo, error) {
	candidates, err := s.store.ListChoresWithLastCompletion(ctx)
	if err != nil {
		return nil, err
	}
	return s.eval.CollectDue(candidates, time.Now().UTC(), includeUpcoming), nil
}
