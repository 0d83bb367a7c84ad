package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"nagbot/internal/model"
	"nagbot/pkg/logx"
)

// MinIntervalDays is the minimum interval for interval-based schedules (1 day).
const MinIntervalDays = 1

// MaxIntervalDays is the maximum interval for interval-based schedules (1 year).
const MaxIntervalDays = 365

// Chore schedules use the standard 5-field cron syntax plus descriptors
// (@daily, @weekly, ...). No seconds field: the frequency floor is an hour.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Evaluator computes due information for chores.
// It performs no I/O; the logger is only used for malformed-schedule warnings.
type Evaluator struct {
	log logx.Logger
}

func NewEvaluator(log logx.Logger) *Evaluator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Evaluator{log: log}
}

// ComputeDueInfo computes the next due instant for a single chore.
//
// The base time is the last completion, or the creation time if the chore was
// never completed. It returns an error only when the schedule is malformed
// (unparseable cron, missing interval); callers log and skip such chores
// rather than fail the batch.
func (e *Evaluator) ComputeDueInfo(c model.ChoreWithLastCompletion, now time.Time) (*model.DueInfo, error) {
	switch c.Schedule {
	case model.ScheduleCron:
		return e.computeCronDue(c, now)
	case model.ScheduleInterval:
		return computeIntervalDue(c, now)
	case model.ScheduleOnceInAWhile:
		// Never automatically due; tracked manually.
		return &model.DueInfo{Chore: c}, nil
	default:
		return nil, fmt.Errorf("unknown schedule type %q", c.Schedule)
	}
}

func (e *Evaluator) computeCronDue(c model.ChoreWithLastCompletion, now time.Time) (*model.DueInfo, error) {
	if c.CronSchedule == "" {
		return nil, errors.New("cron chore has no cron expression")
	}
	sched, err := cronParser.Parse(c.CronSchedule)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", c.CronSchedule, err)
	}

	base := baseTime(c)
	// Next is strictly after base; a chore completed exactly on an occurrence
	// is not due again until the following one.
	next := sched.Next(base)
	if next.IsZero() {
		return nil, fmt.Errorf("cron %q has no next occurrence after %s", c.CronSchedule, base.Format(time.RFC3339))
	}

	return &model.DueInfo{
		Chore:     c,
		NextDue:   &next,
		IsOverdue: !next.After(now),
	}, nil
}

func computeIntervalDue(c model.ChoreWithLastCompletion, now time.Time) (*model.DueInfo, error) {
	if c.IntervalDays <= 0 {
		return nil, errors.New("interval chore has no interval days")
	}

	base := baseTime(c).UTC()

	// Due date is base date + interval calendar days, at the configured
	// HH:MM UTC (midnight when unset). time.Date normalizes the day overflow.
	hour, minute := 0, 0
	if c.IntervalTimeHour != nil {
		hour = *c.IntervalTimeHour
	}
	if c.IntervalTimeMinute != nil {
		minute = *c.IntervalTimeMinute
	}
	next := time.Date(base.Year(), base.Month(), base.Day()+c.IntervalDays, hour, minute, 0, 0, time.UTC)

	return &model.DueInfo{
		Chore:     c,
		NextDue:   &next,
		IsOverdue: !next.After(now),
	}, nil
}

func baseTime(c model.ChoreWithLastCompletion) time.Time {
	if c.LastCompletedAt != nil {
		return *c.LastCompletedAt
	}
	return c.CreatedAt
}

// CollectDue evaluates every chore at now and returns the due set.
//
// Chores with malformed schedules are logged and skipped. An entry is kept
// iff it is overdue, or includeUpcoming is set. The result is sorted
// ascending by next due time with nil-due entries last; the sort is stable so
// ties keep their input order.
func (e *Evaluator) CollectDue(chores []model.ChoreWithLastCompletion, now time.Time, includeUpcoming bool) []model.DueInfo {
	result := make([]model.DueInfo, 0, len(chores))
	for _, c := range chores {
		info, err := e.ComputeDueInfo(c, now)
		if err != nil {
			e.log.Warn("skipping chore with bad schedule",
				logx.String("chore_id", c.ID),
				logx.String("chore", c.Name),
				logx.Err(err))
			continue
		}
		if info.IsOverdue || includeUpcoming {
			result = append(result, *info)
		}
	}

	sortDueInfos(result)
	return result
}
