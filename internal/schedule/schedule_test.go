package schedule

import (
	"testing"
	"time"

	"nagbot/internal/model"
	"nagbot/pkg/logx"
)

func intp(v int) *int { return &v }

func timep(t time.Time) *time.Time { return &t }

func cronChore(id, expr string, createdAt time.Time, last *time.Time) model.ChoreWithLastCompletion {
	return model.ChoreWithLastCompletion{
		Chore: model.Chore{
			ID:           id,
			Name:         "chore " + id,
			Schedule:     model.ScheduleCron,
			CronSchedule: expr,
			CreatedAt:    createdAt,
		},
		LastCompletedAt: last,
	}
}

func intervalChore(id string, days int, hour, minute *int, createdAt time.Time, last *time.Time) model.ChoreWithLastCompletion {
	return model.ChoreWithLastCompletion{
		Chore: model.Chore{
			ID:                 id,
			Name:               "chore " + id,
			Schedule:           model.ScheduleInterval,
			IntervalDays:       days,
			IntervalTimeHour:   hour,
			IntervalTimeMinute: minute,
			CreatedAt:          createdAt,
		},
		LastCompletedAt: last,
	}
}

func TestComputeDueInfoCronOverdue(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())

	last := time.Date(2020, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	info, err := e.ComputeDueInfo(cronChore("c1", "0 9 * * *", last.AddDate(-1, 0, 0), timep(last)), now)
	if err != nil {
		t.Fatalf("ComputeDueInfo error: %v", err)
	}
	if info.NextDue == nil {
		t.Fatal("NextDue = nil, want non-nil")
	}
	if !info.IsOverdue {
		t.Fatal("IsOverdue = false, want true for a completion years in the past")
	}
	want := time.Date(2020, 3, 2, 9, 0, 0, 0, time.UTC)
	if !info.NextDue.Equal(want) {
		t.Fatalf("NextDue = %v, want %v", info.NextDue, want)
	}
}

func TestComputeDueInfoCronNotYetDue(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())

	last := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	info, err := e.ComputeDueInfo(cronChore("c1", "0 9 * * *", last, timep(last)), now)
	if err != nil {
		t.Fatalf("ComputeDueInfo error: %v", err)
	}
	if info.IsOverdue {
		t.Fatal("IsOverdue = true, want false")
	}
	want := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if !info.NextDue.Equal(want) {
		t.Fatalf("NextDue = %v, want %v", info.NextDue, want)
	}
}

func TestComputeDueInfoCronUsesCreatedAtWhenNeverCompleted(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)

	info, err := e.ComputeDueInfo(cronChore("c1", "0 13 * * *", created, nil), now)
	if err != nil {
		t.Fatalf("ComputeDueInfo error: %v", err)
	}
	want := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)
	if !info.NextDue.Equal(want) {
		t.Fatalf("NextDue = %v, want %v", info.NextDue, want)
	}
	if info.IsOverdue {
		t.Fatal("IsOverdue = true, want false")
	}
}

func TestComputeDueInfoMalformedCron(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())
	now := time.Now().UTC()

	for _, expr := range []string{"", "not a cron", "61 * * * *"} {
		if _, err := e.ComputeDueInfo(cronChore("c1", expr, now, nil), now); err == nil {
			t.Fatalf("ComputeDueInfo(%q) = nil error, want malformed-schedule error", expr)
		}
	}
}

func TestComputeDueInfoIntervalScenario(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())

	// Interval{days:1, hour:9}, never completed, evaluated two days after
	// creation: due at created.date + 1 day @ 09:00 UTC and overdue.
	created := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)

	info, err := e.ComputeDueInfo(intervalChore("c1", 1, intp(9), nil, created, nil), now)
	if err != nil {
		t.Fatalf("ComputeDueInfo error: %v", err)
	}
	want := time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)
	if !info.NextDue.Equal(want) {
		t.Fatalf("NextDue = %v, want %v", info.NextDue, want)
	}
	if !info.IsOverdue {
		t.Fatal("IsOverdue = false, want true")
	}
}

func TestComputeDueInfoIntervalJustCompleted(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	info, err := e.ComputeDueInfo(intervalChore("c1", 7, nil, nil, now.AddDate(0, -1, 0), timep(now)), now)
	if err != nil {
		t.Fatalf("ComputeDueInfo error: %v", err)
	}
	if info.IsOverdue {
		t.Fatal("IsOverdue = true, want false right after completion")
	}
	want := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	if !info.NextDue.Equal(want) {
		t.Fatalf("NextDue = %v, want %v (midnight UTC default)", info.NextDue, want)
	}
}

func TestComputeDueInfoIntervalMonthRollover(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())

	last := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
	info, err := e.ComputeDueInfo(intervalChore("c1", 3, intp(8), intp(15), last, timep(last)), last)
	if err != nil {
		t.Fatalf("ComputeDueInfo error: %v", err)
	}
	want := time.Date(2026, 2, 3, 8, 15, 0, 0, time.UTC)
	if !info.NextDue.Equal(want) {
		t.Fatalf("NextDue = %v, want %v", info.NextDue, want)
	}
}

func TestComputeDueInfoIntervalMissingDays(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())
	now := time.Now().UTC()

	if _, err := e.ComputeDueInfo(intervalChore("c1", 0, nil, nil, now, nil), now); err == nil {
		t.Fatal("expected error for interval chore without interval days")
	}
}

func TestComputeDueInfoOnceInAWhile(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())
	now := time.Now().UTC()

	c := model.ChoreWithLastCompletion{Chore: model.Chore{
		ID:        "c1",
		Name:      "descale the kettle",
		Schedule:  model.ScheduleOnceInAWhile,
		CreatedAt: now.AddDate(-2, 0, 0),
	}}
	info, err := e.ComputeDueInfo(c, now)
	if err != nil {
		t.Fatalf("ComputeDueInfo error: %v", err)
	}
	if info.NextDue != nil {
		t.Fatalf("NextDue = %v, want nil", info.NextDue)
	}
	if info.IsOverdue {
		t.Fatal("IsOverdue = true, want false")
	}
}

func TestCollectDueFiltersAndSorts(t *testing.T) {
	t.Parallel()
	e := NewEvaluator(logx.Nop())

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -10)
	older := now.AddDate(0, 0, -20)

	chores := []model.ChoreWithLastCompletion{
		// Due 10 days ago + 1d.
		intervalChore("late", 1, nil, nil, older, timep(old)),
		// Due 20 days ago + 1d; sorts first.
		intervalChore("later", 1, nil, nil, older, timep(older)),
		// Not due for a year.
		intervalChore("fresh", 365, nil, nil, older, timep(now)),
		// Never automatically due.
		{Chore: model.Chore{ID: "manual", Name: "manual", Schedule: model.ScheduleOnceInAWhile, CreatedAt: older}},
		// Malformed; must be skipped, not abort the batch.
		cronChore("broken", "nope", older, nil),
	}

	due := e.CollectDue(chores, now, false)
	if len(due) != 2 {
		t.Fatalf("overdue set = %d entries, want 2", len(due))
	}
	if due[0].Chore.ID != "later" || due[1].Chore.ID != "late" {
		t.Fatalf("order = [%s %s], want [later late]", due[0].Chore.ID, due[1].Chore.ID)
	}

	all := e.CollectDue(chores, now, true)
	if len(all) != 4 {
		t.Fatalf("upcoming set = %d entries, want 4", len(all))
	}
	// Nil next-due sorts last.
	if all[len(all)-1].Chore.ID != "manual" {
		t.Fatalf("last entry = %s, want manual", all[len(all)-1].Chore.ID)
	}
	for _, info := range all {
		if info.Chore.ID == "broken" {
			t.Fatal("malformed chore leaked into the due set")
		}
	}
}

func TestValidateCron(t *testing.T) {
	t.Parallel()
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"* * * * *", true},    // every minute: under the 1h floor
		{"*/30 * * * *", true}, // every 30 minutes
		{"0 * * * *", false},   // hourly: exactly at the floor
		{"0 9 * * 1", false},   // weekly
		{"@daily", false},      // descriptor form
		{"bogus", true},        // unparseable
		{"0 0 * * * *", true},  // six fields
	}

	for _, tt := range tests {
		err := ValidateCron(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestValidateInterval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		days    int
		hour    *int
		minute  *int
		wantErr bool
	}{
		{name: "one day", days: 1},
		{name: "one year", days: 365},
		{name: "zero days", days: 0, wantErr: true},
		{name: "too long", days: 500, wantErr: true},
		{name: "with time", days: 7, hour: intp(9), minute: intp(30)},
		{name: "hour out of range", days: 7, hour: intp(24), wantErr: true},
		{name: "minute out of range", days: 7, minute: intp(60), wantErr: true},
		{name: "negative hour", days: 7, hour: intp(-1), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterval(tt.days, tt.hour, tt.minute)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateInterval(%d) error = %v, wantErr %v", tt.days, err, tt.wantErr)
			}
		})
	}
}
