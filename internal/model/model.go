package model

import "time"

// ScheduleType selects which schedule fields of a Chore are meaningful.
// Exactly one variant is populated per chore.
type ScheduleType string

const (
	// ScheduleCron fires on a fixed cron expression (e.g. "every Monday 9 AM").
	ScheduleCron ScheduleType = "cron"
	// ScheduleInterval fires a number of calendar days after the last completion.
	ScheduleInterval ScheduleType = "interval"
	// ScheduleOnceInAWhile has no automatic due date; the chore is tracked manually.
	ScheduleOnceInAWhile ScheduleType = "once_in_a_while"
)

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleCron, ScheduleInterval, ScheduleOnceInAWhile:
		return true
	}
	return false
}

// Chore is a recurring task.
type Chore struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Schedule    ScheduleType `json:"schedule_type"`

	// Cron variant.
	CronSchedule string `json:"cron_schedule,omitempty"`

	// Interval variant. Hour/Minute default to midnight UTC when nil.
	IntervalDays       int  `json:"interval_days,omitempty"`
	IntervalTimeHour   *int `json:"interval_time_hour,omitempty"`
	IntervalTimeMinute *int `json:"interval_time_minute,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChoreWithLastCompletion is the evaluator's sole input: a chore plus the
// most recent completion time, or nil if it was never completed.
type ChoreWithLastCompletion struct {
	Chore
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// Completion records that a chore was done at some point in time.
type Completion struct {
	ID          string    `json:"id"`
	ChoreID     string    `json:"chore_id"`
	CompletedAt time.Time `json:"completed_at"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DueInfo is derived, never persisted. NextDue is nil for once-in-a-while
// chores, which are never automatically due.
type DueInfo struct {
	Chore     ChoreWithLastCompletion `json:"chore"`
	NextDue   *time.Time              `json:"next_due,omitempty"`
	IsOverdue bool                    `json:"is_overdue"`
}

// NotificationChannel identifies a delivery mechanism.
type NotificationChannel string

const ChannelTelegram NotificationChannel = "telegram"

// EventTypeDue is the only notification event type.
const EventTypeDue = "due"

// NotificationEvent is one due occurrence of one chore. At most one event
// exists per (chore, event type, due time); rows are immutable once created.
type NotificationEvent struct {
	ID        string
	ChoreID   string
	EventType string
	DueAt     time.Time
	Title     string
	Body      string
	CreatedAt time.Time
}

// DeliveryStatus is the per-channel delivery state.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// NotificationDelivery tracks one channel's attempts at one event.
// At most one delivery exists per (event, channel).
type NotificationDelivery struct {
	ID              string
	EventID         string
	Channel         NotificationChannel
	Status          DeliveryStatus
	AttemptCount    int
	LastError       string
	LastAttemptedAt *time.Time
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PendingDelivery is a delivery joined with its event, as handed to senders.
type PendingDelivery struct {
	DeliveryID   string
	EventID      string
	Channel      NotificationChannel
	AttemptCount int
	ChoreID      string
	EventType    string
	DueAt        time.Time
	Title        string
	Body         string
}
