package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nagbot/internal/model"
	"nagbot/internal/schedule"
)

// CreateChoreParams carries the fields for a new chore. Exactly the fields
// of the selected schedule variant are consulted; the rest are ignored.
type CreateChoreParams struct {
	Name        string
	Description string
	Schedule    model.ScheduleType

	CronSchedule string

	IntervalDays       int
	IntervalTimeHour   *int
	IntervalTimeMinute *int
}

func (p CreateChoreParams) validate() error {
	if p.Name == "" {
		return errors.New("chore name is required")
	}
	switch p.Schedule {
	case model.ScheduleCron:
		return schedule.ValidateCron(p.CronSchedule)
	case model.ScheduleInterval:
		return schedule.ValidateInterval(p.IntervalDays, p.IntervalTimeHour, p.IntervalTimeMinute)
	case model.ScheduleOnceInAWhile:
		return nil
	default:
		return fmt.Errorf("unknown schedule type %q", p.Schedule)
	}
}

const choreCols = `id, name, description, schedule_type, cron_schedule, interval_days, interval_time_hour, interval_time_minute, created_at, updated_at`

// CreateChore validates the schedule definition and inserts the chore.
func (s *Store) CreateChore(ctx context.Context, p CreateChoreParams) (*model.Chore, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := model.Chore{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Description: p.Description,
		Schedule:    p.Schedule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// Only the selected variant's fields are persisted.
	switch p.Schedule {
	case model.ScheduleCron:
		c.CronSchedule = p.CronSchedule
	case model.ScheduleInterval:
		c.IntervalDays = p.IntervalDays
		c.IntervalTimeHour = p.IntervalTimeHour
		c.IntervalTimeMinute = p.IntervalTimeMinute
	}

	var intervalDays any
	if c.IntervalDays > 0 {
		intervalDays = c.IntervalDays
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (`+choreCols+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Description, string(c.Schedule), nullStr(c.CronSchedule),
		intervalDays, nullInt(c.IntervalTimeHour), nullInt(c.IntervalTimeMinute),
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	return &c, nil
}

// GetChore returns a chore by id or ErrNotFound.
func (s *Store) GetChore(ctx context.Context, id string) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// DeleteChore removes a chore and (via cascade) its completions and events.
func (s *Store) DeleteChore(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChoresWithLastCompletion returns every chore together with its most
// recent completion time. This is the due-set collector's candidate list.
func (s *Store) ListChoresWithLastCompletion(ctx context.Context) ([]model.ChoreWithLastCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.schedule_type, c.cron_schedule,
		       c.interval_days, c.interval_time_hour, c.interval_time_minute,
		       c.created_at, c.updated_at,
		       (SELECT MAX(completed_at) FROM completions WHERE chore_id = c.id) AS last_completed_at
		FROM chores c
		ORDER BY c.created_at ASC, c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var out []model.ChoreWithLastCompletion
	for rows.Next() {
		var (
			c                    model.Chore
			sch                  string
			cron                 sql.NullString
			days, hour, minute   sql.NullInt64
			createdAt, updatedAt int64
			lastCompleted        sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &sch, &cron,
			&days, &hour, &minute, &createdAt, &updatedAt, &lastCompleted); err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		c.Schedule = model.ScheduleType(sch)
		c.CronSchedule = cron.String
		if days.Valid {
			c.IntervalDays = int(days.Int64)
		}
		if hour.Valid {
			v := int(hour.Int64)
			c.IntervalTimeHour = &v
		}
		if minute.Valid {
			v := int(minute.Int64)
			c.IntervalTimeMinute = &v
		}
		c.CreatedAt = fromMillis(createdAt)
		c.UpdatedAt = fromMillis(updatedAt)

		item := model.ChoreWithLastCompletion{Chore: c}
		if lastCompleted.Valid {
			t := fromMillis(lastCompleted.Int64)
			item.LastCompletedAt = &t
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var (
		c                    model.Chore
		sch                  string
		cron                 sql.NullString
		days, hour, minute   sql.NullInt64
		createdAt, updatedAt int64
	)
	err := scanner.Scan(&c.ID, &c.Name, &c.Description, &sch, &cron,
		&days, &hour, &minute, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Schedule = model.ScheduleType(sch)
	c.CronSchedule = cron.String
	if days.Valid {
		c.IntervalDays = int(days.Int64)
	}
	if hour.Valid {
		v := int(hour.Int64)
		c.IntervalTimeHour = &v
	}
	if minute.Valid {
		v := int(minute.Int64)
		c.IntervalTimeMinute = &v
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}
