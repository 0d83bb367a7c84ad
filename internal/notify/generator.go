package notify

import (
	"context"
	"fmt"
	"time"

	"nagbot/pkg/logx"
)

// RunGenerator polls the due set on a fixed interval and creates events for
// overdue chores. It blocks until ctx is cancelled. A slow tick never queues
// a backlog: the ticker drops missed ticks and the loop runs one tick at a
// time.
func (s *Service) RunGenerator(ctx context.Context) {
	s.log.Info("event generator started",
		logx.Duration("poll_interval", s.cfg.PollInterval),
		logx.Int("channels", len(s.cfg.Channels)))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("event generator stopped")
			return
		case <-ticker.C:
			s.GenerateDueEventsOnce(ctx)
		}
	}
}

// GenerateDueEventsOnce runs a single generator tick. Safe to re-run against
// the same due occurrences: the store dedups on (chore, event type, due at).
func (s *Service) GenerateDueEventsOnce(ctx context.Context) {
	due, err := s.due.GetDueChores(ctx, false)
	if err != nil {
		// Store trouble abandons this tick; the next tick retries.
		s.log.Error("failed to collect due chores", logx.Err(err))
		return
	}

	for _, item := range due {
		// Overdue entries always carry a due time; guard anyway.
		if item.NextDue == nil {
			continue
		}
		dueAt := item.NextDue.UTC()
		title := fmt.Sprintf("Chore due: %s", item.Chore.Name)
		body := fmt.Sprintf("%s is due at %s UTC.", item.Chore.Name, dueAt.Format("2006-01-02 15:04"))

		if _, err := s.store.UpsertDueEventWithDeliveries(ctx, item.Chore.ID, dueAt, title, body, s.cfg.Channels); err != nil {
			// One chore's failure never aborts the batch.
			s.log.Error("failed to upsert notification event",
				logx.String("chore_id", item.Chore.ID),
				logx.Err(err))
		}
	}
}
