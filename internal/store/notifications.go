package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nagbot/internal/model"
)

// UpsertDueEventWithDeliveries creates the due event for (choreID, dueAt) if
// it is new, otherwise reuses the existing one, and seeds one pending
// delivery per channel where missing. Existing deliveries are left untouched.
//
// Safe under concurrent callers: both inserts ride on the table uniqueness
// constraints (ON CONFLICT DO NOTHING), so overlapping generator ticks from
// any number of processes converge on the same rows.
func (s *Store) UpsertDueEventWithDeliveries(ctx context.Context, choreID string, dueAt time.Time, title, body string, channels []model.NotificationChannel) (string, error) {
	now := time.Now().UTC()
	eventID := uuid.NewString()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_events (id, chore_id, event_type, due_at, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chore_id, event_type, due_at) DO NOTHING`,
		eventID, choreID, model.EventTypeDue, toMillis(dueAt), title, body, toMillis(now),
	)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// Lost the race or a previous tick got here first; fetch the winner.
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM notification_events
			WHERE chore_id = ? AND event_type = ? AND due_at = ?`,
			choreID, model.EventTypeDue, toMillis(dueAt),
		).Scan(&eventID)
		if err != nil {
			return "", fmt.Errorf("fetch existing event: %w", err)
		}
	}

	for _, ch := range channels {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO notification_deliveries (
				id, event_id, channel, status, attempt_count,
				last_error, last_attempted_at, delivered_at, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, 0, NULL, NULL, NULL, ?, ?)
			ON CONFLICT(event_id, channel) DO NOTHING`,
			uuid.NewString(), eventID, string(ch), string(model.DeliveryPending),
			toMillis(now), toMillis(now),
		)
		if err != nil {
			return "", fmt.Errorf("insert delivery for %s: %w", ch, err)
		}
	}

	return eventID, nil
}

// ListPendingDeliveries fetches up to limit deliveries still worth
// attempting: status pending or failed, attempts under the cap. Oldest due
// work first; ties broken by delivery creation order.
func (s *Store) ListPendingDeliveries(ctx context.Context, limit, maxAttempts int) ([]model.PendingDelivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			d.id, d.event_id, d.channel, d.attempt_count,
			e.chore_id, e.event_type, e.due_at, e.title, e.body
		FROM notification_deliveries d
		INNER JOIN notification_events e ON e.id = d.event_id
		WHERE (d.status = ? OR d.status = ?) AND d.attempt_count < ?
		ORDER BY e.due_at ASC, d.created_at ASC
		LIMIT ?`,
		string(model.DeliveryPending), string(model.DeliveryFailed), maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending deliveries: %w", err)
	}
	defer rows.Close()

	var out []model.PendingDelivery
	for rows.Next() {
		var (
			p     model.PendingDelivery
			ch    string
			dueAt int64
		)
		if err := rows.Scan(&p.DeliveryID, &p.EventID, &ch, &p.AttemptCount,
			&p.ChoreID, &p.EventType, &dueAt, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("scan pending delivery: %w", err)
		}
		p.Channel = model.NotificationChannel(ch)
		p.DueAt = fromMillis(dueAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkDelivered transitions a delivery to its terminal delivered state.
func (s *Store) MarkDelivered(ctx context.Context, deliveryID string) error {
	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_deliveries
		SET status = ?, delivered_at = ?, last_attempted_at = ?, last_error = NULL, updated_at = ?
		WHERE id = ?`,
		string(model.DeliveryDelivered), now, now, now, deliveryID,
	)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a failed attempt: status failed, attempt count +1.
// Once the count reaches the dispatcher's attempt cap the row simply stops
// matching ListPendingDeliveries; there is no separate exhausted status.
func (s *Store) MarkFailed(ctx context.Context, deliveryID, errText string) error {
	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_deliveries
		SET status = ?, attempt_count = attempt_count + 1, last_error = ?, last_attempted_at = ?, updated_at = ?
		WHERE id = ?`,
		string(model.DeliveryFailed), errText, now, now, deliveryID,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDelivery returns one delivery row. Mostly useful for tests and debugging.
func (s *Store) GetDelivery(ctx context.Context, deliveryID string) (*model.NotificationDelivery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, channel, status, attempt_count, last_error,
		       last_attempted_at, delivered_at, created_at, updated_at
		FROM notification_deliveries WHERE id = ?`, deliveryID)

	var (
		d                   model.NotificationDelivery
		ch, st              string
		lastErr             sql.NullString
		lastAt, deliveredAt sql.NullInt64
		created, updated    int64
	)
	err := row.Scan(&d.ID, &d.EventID, &ch, &st, &d.AttemptCount, &lastErr,
		&lastAt, &deliveredAt, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	d.Channel = model.NotificationChannel(ch)
	d.Status = model.DeliveryStatus(st)
	d.LastError = lastErr.String
	if lastAt.Valid {
		t := fromMillis(lastAt.Int64)
		d.LastAttemptedAt = &t
	}
	if deliveredAt.Valid {
		t := fromMillis(deliveredAt.Int64)
		d.DeliveredAt = &t
	}
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(updated)
	return &d, nil
}

// ListDeliveriesForEvent returns an event's deliveries ordered by channel.
func (s *Store) ListDeliveriesForEvent(ctx context.Context, eventID string) ([]model.NotificationDelivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM notification_deliveries WHERE event_id = ? ORDER BY channel`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan delivery id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.NotificationDelivery, 0, len(ids))
	for _, id := range ids {
		d, err := s.GetDelivery(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}
