package notify

import (
	"context"
	"fmt"
	"time"

	"nagbot/internal/model"
	"nagbot/pkg/logx"
)

// RunDispatcher polls for pending/retryable deliveries on its own interval
// and attempts them. It blocks until ctx is cancelled.
func (s *Service) RunDispatcher(ctx context.Context) {
	s.log.Info("delivery dispatcher started",
		logx.Duration("dispatch_interval", s.cfg.DispatchInterval),
		logx.Int("batch_size", s.cfg.BatchSize),
		logx.Int("max_attempts", s.cfg.MaxAttempts))

	ticker := time.NewTicker(s.cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("delivery dispatcher stopped")
			return
		case <-ticker.C:
			s.DispatchPendingOnce(ctx)
		}
	}
}

// DispatchPendingOnce runs a single dispatcher tick: fetch a batch of
// outstanding deliveries, route each to its sender, record the outcome.
// Individual failures never abort the batch.
func (s *Service) DispatchPendingOnce(ctx context.Context) {
	pending, err := s.store.ListPendingDeliveries(ctx, s.cfg.BatchSize, s.cfg.MaxAttempts)
	if err != nil {
		s.log.Error("failed to fetch pending deliveries", logx.Err(err))
		return
	}

	for _, d := range pending {
		sender, ok := s.senders[d.Channel]
		if !ok {
			// A misconfigured channel burns through the same attempt budget
			// as a transient failure, then stops being polled.
			s.markFailed(ctx, d, fmt.Sprintf("No sender configured for channel: %s", d.Channel))
			continue
		}

		if err := sender.Send(ctx, d); err != nil {
			s.markFailed(ctx, d, err.Error())
			continue
		}

		if err := s.store.MarkDelivered(ctx, d.DeliveryID); err != nil {
			s.log.Error("failed to mark delivery as delivered",
				logx.String("delivery_id", d.DeliveryID),
				logx.Err(err))
			continue
		}
		s.log.Debug("notification delivered",
			logx.String("delivery_id", d.DeliveryID),
			logx.String("channel", string(d.Channel)),
			logx.String("chore_id", d.ChoreID))
	}
}

func (s *Service) markFailed(ctx context.Context, d model.PendingDelivery, errText string) {
	s.log.Warn("notification delivery failed",
		logx.String("delivery_id", d.DeliveryID),
		logx.String("channel", string(d.Channel)),
		logx.Int("attempt", d.AttemptCount+1),
		logx.String("send_error", errText))

	if err := s.store.MarkFailed(ctx, d.DeliveryID, errText); err != nil {
		s.log.Error("failed to mark delivery as failed",
			logx.String("delivery_id", d.DeliveryID),
			logx.Err(err))
	}
}
