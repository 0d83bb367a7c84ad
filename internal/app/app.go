// Package app wires the daemon together: config, logging, store, the
// notification loops, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"nagbot/internal/chores"
	"nagbot/internal/config"
	"nagbot/internal/httpapi"
	"nagbot/internal/model"
	"nagbot/internal/notify"
	"nagbot/internal/notify/telegram"
	"nagbot/internal/store"
	"nagbot/pkg/logx"
)

type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store *store.Store
	notif *notify.Service
	tg    *telegram.Channel // nil when telegram is disabled
	http  *http.Server

	notificationsEnabled bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(cfg.LogxConfig())
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationOrDefault("database.busy_timeout", cfg.Database.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{
		Path:        cfg.Database.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	choreSvc := chores.NewService(st, log.With(logx.String("comp", "chores")))

	var tg *telegram.Channel
	var senders []notify.Sender
	if cfg.Notifications.Enabled {
		pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		tg, err = telegram.New(telegram.Config{
			Token:       cfg.Telegram.Token,
			ChatID:      cfg.Telegram.ChatID,
			RatePerSec:  cfg.Telegram.RatePerSec,
			PollTimeout: pollTimeout,
		}, st, log.With(logx.String("comp", "telegram")))
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		senders = append(senders, tg)
	}

	pollInterval, err := config.ParseDurationField("notifications.poll_interval", cfg.Notifications.PollInterval)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	dispatchInterval, err := config.ParseDurationField("notifications.dispatch_interval", cfg.Notifications.DispatchInterval)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	notif := notify.New(notify.Config{
		PollInterval:     pollInterval,
		DispatchInterval: dispatchInterval,
		MaxAttempts:      cfg.Notifications.MaxAttempts,
		BatchSize:        cfg.Notifications.BatchSize,
		Channels:         []model.NotificationChannel{model.ChannelTelegram},
	}, st, choreSvc, senders, log.With(logx.String("comp", "notify")))

	var srv *http.Server
	if cfg.HTTP.Enabled {
		api := httpapi.NewServer(choreSvc, log.With(logx.String("comp", "http")))
		srv = &http.Server{
			Addr:              cfg.HTTPAddr(),
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return &App{
		cfgm:                 cfgm,
		logSvc:               logSvc,
		log:                  log,
		store:                st,
		notif:                notif,
		tg:                   tg,
		http:                 srv,
		notificationsEnabled: cfg.Notifications.Enabled,
	}, nil
}

// Run starts all loops and blocks until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.cfgm.Watch(ctx); err != nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	// Hot reloads only re-apply logging; everything else needs a restart.
	sub := a.cfgm.Subscribe(1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logSvc.Apply(cfg.LogxConfig())
				a.log.Info("logging config re-applied")
			}
		}
	}()

	if a.notificationsEnabled {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.notif.RunGenerator(ctx)
		}()
		go func() {
			defer wg.Done()
			a.notif.RunDispatcher(ctx)
		}()
	} else {
		a.log.Info("notifications disabled; generator and dispatcher not started")
	}

	if a.tg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.tg.RunCallbackListener(ctx)
		}()
	}

	httpErr := make(chan error, 1)
	if a.http != nil {
		go func() {
			a.log.Info("http server listening", logx.String("addr", a.http.Addr))
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr <- err
			}
		}()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		runErr = fmt.Errorf("http server: %w", err)
		a.log.Error("http server failed", logx.Err(err))
		cancel()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("shutting down")

	if a.http != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("http shutdown", logx.Err(err))
		}
	}

	wg.Wait()
	a.cfgm.Unsubscribe(sub)

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	_ = a.logSvc.Close()
	return runErr
}
