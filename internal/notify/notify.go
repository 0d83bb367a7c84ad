// Package notify turns overdue chores into durable notification events and
// drives their delivery through registered channel senders.
//
// Two independent loops share nothing but the store: the generator converts
// the due set into deduplicated event + delivery rows, the dispatcher
// attempts pending deliveries and records outcomes. Idempotency comes from
// the store's uniqueness constraints, so any number of generator processes
// may overlap safely.
package notify

import (
	"context"
	"time"

	"nagbot/internal/model"
	"nagbot/pkg/logx"
)

// Sender delivers one notification on one channel. Implementations own their
// transport details, including timeouts; any returned error counts as a
// failed attempt.
type Sender interface {
	Channel() model.NotificationChannel
	Send(ctx context.Context, n model.PendingDelivery) error
}

// Store is the slice of the persistence layer the two loops need.
type Store interface {
	UpsertDueEventWithDeliveries(ctx context.Context, choreID string, dueAt time.Time, title, body string, channels []model.NotificationChannel) (string, error)
	ListPendingDeliveries(ctx context.Context, limit, maxAttempts int) ([]model.PendingDelivery, error)
	MarkDelivered(ctx context.Context, deliveryID string) error
	MarkFailed(ctx context.Context, deliveryID, errText string) error
}

// DueLister yields the current due set; implemented by the chores service.
type DueLister interface {
	GetDueChores(ctx context.Context, includeUpcoming bool) ([]model.DueInfo, error)
}

type Config struct {
	// PollInterval is the generator's tick period.
	PollInterval time.Duration
	// DispatchInterval is the dispatcher's tick period.
	DispatchInterval time.Duration
	// MaxAttempts caps delivery attempts; an exhausted delivery keeps its
	// last state and simply stops being polled.
	MaxAttempts int
	// BatchSize bounds how many deliveries one dispatcher tick processes.
	BatchSize int
	// Channels to seed a delivery for on every new event.
	Channels []model.NotificationChannel
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

type Service struct {
	cfg     Config
	store   Store
	due     DueLister
	senders map[model.NotificationChannel]Sender
	log     logx.Logger
}

func New(cfg Config, store Store, due DueLister, senders []Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	reg := make(map[model.NotificationChannel]Sender, len(senders))
	for _, snd := range senders {
		reg[snd.Channel()] = snd
	}
	return &Service{
		cfg:     cfg.withDefaults(),
		store:   store,
		due:     due,
		senders: reg,
		log:     log,
	}
}
