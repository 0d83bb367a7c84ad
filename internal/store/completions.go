package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nagbot/internal/model"
)

const defaultCompletionPageSize = 20

// CreateCompletion records that a chore was done. A nil completedAt means now.
func (s *Store) CreateCompletion(ctx context.Context, choreID string, completedAt *time.Time, notes string) (*model.Completion, error) {
	now := time.Now().UTC()
	done := now
	if completedAt != nil {
		done = completedAt.UTC()
	}

	c := model.Completion{
		ID:          uuid.NewString(),
		ChoreID:     choreID,
		CompletedAt: done,
		Notes:       notes,
		CreatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completions (id, chore_id, completed_at, notes, created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.ChoreID, toMillis(c.CompletedAt), nullStr(c.Notes), toMillis(c.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	return &c, nil
}

// ListCompletions returns a chore's completions, most recent first.
func (s *Store) ListCompletions(ctx context.Context, choreID string, limit int) ([]model.Completion, error) {
	if limit <= 0 {
		limit = defaultCompletionPageSize
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chore_id, completed_at, notes, created_at
		FROM completions
		WHERE chore_id = ?
		ORDER BY completed_at DESC, id
		LIMIT ?`, choreID, limit)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []model.Completion
	for rows.Next() {
		var (
			c       model.Completion
			done    int64
			notes   sql.NullString
			created int64
		)
		if err := rows.Scan(&c.ID, &c.ChoreID, &done, &notes, &created); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.CompletedAt = fromMillis(done)
		c.Notes = notes.String
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChoreExists reports whether a chore row is present. The Telegram callback
// handler uses it to reject stale "mark done" actions.
func (s *Store) ChoreExists(ctx context.Context, choreID string) (bool, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chores WHERE id = ?`, choreID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("chore exists: %w", err)
	}
	return n > 0, nil
}
