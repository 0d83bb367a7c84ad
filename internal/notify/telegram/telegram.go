// Package telegram delivers chore notifications to a Telegram chat and
// listens for the inline "Mark done" action, which records a completion.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"nagbot/internal/model"
	"nagbot/pkg/logx"
)

type Config struct {
	Token  string
	ChatID string // numeric chat id
	// RatePerSec caps outgoing messages; 0 means 1/s (Telegram is strict
	// about per-chat send rates).
	RatePerSec  int
	PollTimeout time.Duration
}

// CompletionStore is the write path the inline action needs.
type CompletionStore interface {
	ChoreExists(ctx context.Context, choreID string) (bool, error)
	CreateCompletion(ctx context.Context, choreID string, completedAt *time.Time, notes string) (*model.Completion, error)
}

// Channel sends due notifications to one chat. It implements notify.Sender.
type Channel struct {
	bot     *tele.Bot
	chatID  int64
	limiter *rate.Limiter
	store   CompletionStore
	log     logx.Logger
}

func New(cfg Config, store CompletionStore, log logx.Logger) (*Channel, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(cfg.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: expected numeric chat id", cfg.ChatID)
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}

	return &Channel{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		store:   store,
		log:     log,
	}, nil
}

func (c *Channel) Channel() model.NotificationChannel { return model.ChannelTelegram }

// Send posts the notification with an inline "Mark done" button carrying the
// chore id. Transport timeouts are telebot's; any error counts as a failed
// attempt for the dispatcher.
func (c *Channel) Send(ctx context.Context, n model.PendingDelivery) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	markup := &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{{
			{Text: "Mark done", Data: doneCallbackData(n.ChoreID)},
		}},
	}
	_, err := c.bot.Send(
		&tele.Chat{ID: c.chatID},
		n.Title+"\n"+n.Body,
		&tele.SendOptions{ReplyMarkup: markup},
	)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// RunCallbackListener long-polls for inline actions and blocks until ctx is
// cancelled. Duplicate or stale actions answer with a failure toast; they
// never take the listener down.
func (c *Channel) RunCallbackListener(ctx context.Context) {
	c.bot.Handle(tele.OnCallback, func(tc tele.Context) error {
		return c.handleCallback(ctx, tc)
	})

	go func() {
		<-ctx.Done()
		c.bot.Stop()
	}()

	c.log.Info("telegram callback listener started", logx.Int64("chat_id", c.chatID))
	c.bot.Start() // blocks until Stop
	c.log.Info("telegram callback listener stopped")
}

func (c *Channel) handleCallback(ctx context.Context, tc tele.Context) error {
	cb := tc.Callback()
	if cb == nil {
		return nil
	}

	data := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
	if data == "" {
		return tc.Respond(&tele.CallbackResponse{Text: "No action attached"})
	}
	choreID, ok := strings.CutPrefix(data, donePrefix)
	if !ok {
		return tc.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
	}
	choreID = strings.TrimSpace(choreID)
	if _, err := uuid.Parse(choreID); err != nil {
		return tc.Respond(&tele.CallbackResponse{Text: "Invalid chore id"})
	}

	if err := c.completeChore(ctx, choreID); err != nil {
		c.log.Error("failed to complete chore from telegram callback",
			logx.String("chore_id", choreID),
			logx.Err(err))
		return tc.Respond(&tele.CallbackResponse{Text: "Failed to mark done"})
	}

	if err := tc.Respond(&tele.CallbackResponse{Text: "Marked done"}); err != nil {
		return err
	}
	// Best-effort: remove the button so the chat doesn't invite re-taps.
	if msg := tc.Message(); msg != nil {
		_, _ = c.bot.EditReplyMarkup(msg, &tele.ReplyMarkup{})
	}
	return nil
}

func (c *Channel) completeChore(ctx context.Context, choreID string) error {
	exists, err := c.store.ChoreExists(ctx, choreID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("chore %s not found", choreID)
	}
	_, err = c.store.CreateCompletion(ctx, choreID, nil, "Completed via Telegram")
	return err
}

const donePrefix = "done:"

func doneCallbackData(choreID string) string {
	return donePrefix + choreID
}
