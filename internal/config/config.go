// Package config loads the daemon configuration from a JSON or YAML file and
// re-applies safe-to-change sections when the file is edited.
package config

import (
	"fmt"
	"strings"
	"time"

	"nagbot/pkg/logx"
)

type Config struct {
	Database      DatabaseConfig      `json:"database"`
	HTTP          HTTPConfig          `json:"http"`
	Logging       LoggingConfig       `json:"logging"`
	Notifications NotificationsConfig `json:"notifications"`
	Telegram      TelegramConfig      `json:"telegram"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:3000"
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// NotificationsConfig controls the due-event generator and the delivery
// dispatcher. All durations are Go duration strings (e.g. "30s", "1m").
type NotificationsConfig struct {
	Enabled          bool   `json:"enabled"`
	PollInterval     string `json:"poll_interval,omitempty"`     // default "60s"
	DispatchInterval string `json:"dispatch_interval,omitempty"` // default "15s"
	MaxAttempts      int    `json:"max_attempts,omitempty"`      // default 5
	BatchSize        int    `json:"batch_size,omitempty"`        // default 50
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
	// RatePerSec caps outgoing sends; 0 keeps the sender default.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// Validate rejects configs that would make the daemon start in a broken
// state. Called on initial load and before every hot reload commits.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := ParseDurationField("database.busy_timeout", c.Database.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("notifications.poll_interval", c.Notifications.PollInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("notifications.dispatch_interval", c.Notifications.DispatchInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if c.Notifications.MaxAttempts < 0 {
		return fmt.Errorf("notifications.max_attempts must be >= 1 (or omitted)")
	}
	if c.Notifications.BatchSize < 0 {
		return fmt.Errorf("notifications.batch_size must be >= 1 (or omitted)")
	}
	// The only delivery channel is Telegram, so enabling notifications
	// without credentials could never deliver anything: every due chore
	// would burn its attempt budget on a missing sender. Fail at boot.
	if c.Notifications.Enabled {
		if strings.TrimSpace(c.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token is required when notifications.enabled")
		}
		if strings.TrimSpace(c.Telegram.ChatID) == "" {
			return fmt.Errorf("telegram.chat_id is required when notifications.enabled")
		}
	}
	return nil
}

// HTTPAddr returns the listen address, defaulting to "127.0.0.1:3000".
func (c *Config) HTTPAddr() string {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return "127.0.0.1:3000"
	}
	return c.HTTP.Addr
}

// LogxConfig maps the logging section onto the logger's own config type.
func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
