// Package app wires Hisho's components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdobrica/Hisho/common/retry"
	"github.com/bdobrica/Hisho/common/version"
	"github.com/bdobrica/Hisho/internal/hisho/assistant"
	"github.com/bdobrica/Hisho/internal/hisho/bot"
	"github.com/bdobrica/Hisho/internal/hisho/config"
	"github.com/bdobrica/Hisho/internal/hisho/encyclopedia"
	"github.com/bdobrica/Hisho/internal/hisho/matrix"
	"github.com/bdobrica/Hisho/internal/hisho/notes"
	"github.com/bdobrica/Hisho/internal/hisho/observability"
	"github.com/bdobrica/Hisho/internal/hisho/rates"
	"github.com/bdobrica/Hisho/internal/hisho/reminder"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/store"
	"github.com/bdobrica/Hisho/internal/hisho/weather"
)

// App is the main Hisho application.
type App struct {
	config       *config.Config
	store        *store.Store
	notes        notes.Store
	closeNotes   func() error
	sessions     *session.Store
	limiter      *assistant.RateLimiter
	scheduler    *reminder.Scheduler
	router       *bot.Router
	dispatcher   *bot.Dispatcher
	matrix       *matrix.Client
	healthServer *HealthServer
}

// New builds every component from cfg. Nothing talks to the network until
// Run is called.
func New(cfg *config.Config) (*App, error) {
	a := &App{config: cfg}

	slog.Info("opening database", "path", cfg.Database.Path)
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.store = st

	if err := a.openNotes(); err != nil {
		st.Close()
		return nil, err
	}

	mx, err := matrix.New(matrix.Config{
		Homeserver:     cfg.Matrix.Homeserver,
		UserID:         cfg.Matrix.UserID,
		AccessToken:    cfg.Matrix.AccessToken,
		Rooms:          cfg.Matrix.Rooms,
		AllowedSenders: cfg.Matrix.AllowedSenders,
		AutoJoin:       cfg.Matrix.AutoJoin,
		DB:             st.DB(),
		JoinRetry:      retry.DefaultConfig,
	})
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.matrix = mx

	deps := bot.Deps{
		Notes:        a.notes,
		Rates:        rates.New(rates.Config{URL: cfg.Rates.URL, Timeout: cfg.Rates.Timeout}),
		SystemPrompt: cfg.Assistant.SystemPrompt,
		Messenger:    mx,
		Encyclopedia: encyclopedia.New(encyclopedia.Config{
			BaseURL:       cfg.Encyclopedia.BaseURL,
			MaxCandidates: cfg.Encyclopedia.MaxCandidates,
			Timeout:       cfg.Encyclopedia.Timeout,
		}),
	}

	// Optional services are only assigned when configured so the router sees
	// a nil interface and answers "unavailable".
	if cfg.Weather.APIKey != "" {
		deps.Weather = weather.New(weather.Config{
			APIKey:  cfg.Weather.APIKey,
			BaseURL: cfg.Weather.BaseURL,
			Timeout: cfg.Weather.Timeout,
		})
	} else {
		slog.Warn("weather disabled: no API key configured")
	}

	if cfg.Assistant.APIKey != "" {
		relay := assistant.New(assistant.Config{
			APIKey:    cfg.Assistant.APIKey,
			BaseURL:   cfg.Assistant.BaseURL,
			Model:     cfg.Assistant.Model,
			MaxTokens: cfg.Assistant.MaxTokens,
			Timeout:   cfg.Assistant.Timeout,
		})
		a.limiter = assistant.NewRateLimiter(cfg.Assistant.RateLimit)
		deps.Assistant = relay
		deps.AILimiter = a.limiter
		slog.Info("AI assistant enabled", "model", relay.Model(), "rate_limit", cfg.Assistant.RateLimit)
	} else {
		slog.Warn("AI assistant disabled: no API key configured")
	}

	sessCfg := session.Config{
		MaxHistory: cfg.Bot.MaxHistory,
		IdleTTL:    cfg.Bot.SessionTTL,
	}
	if a.limiter != nil {
		sessCfg.OnEvict = a.limiter.Forget
	}
	if cfg.Bot.PersistSessions {
		sessCfg.Backing = session.NewSQLBacking(st.DB())
	}
	a.sessions = session.NewStore(sessCfg)
	if n, err := a.sessions.Load(context.Background()); err != nil {
		slog.Warn("could not restore sessions; starting empty", "err", err)
	} else if n > 0 {
		slog.Info("restored sessions", "count", n)
	}
	deps.Sessions = a.sessions

	a.scheduler = reminder.NewScheduler(bot.ReminderNotifier{Messenger: mx}, reminder.Config{
		DeliveryTimeout: cfg.Bot.DeliveryTimeout,
	})
	deps.Reminders = a.scheduler

	a.router = bot.NewRouter(deps)
	a.dispatcher = bot.NewDispatcher(a.handle, bot.DispatcherConfig{
		MaxConcurrency: cfg.Bot.MaxConcurrency,
		QueueSize:      cfg.Bot.QueueSize,
	})

	if cfg.HTTP.Addr != "" {
		a.healthServer = NewHealthServer(cfg.HTTP.Addr, st, a.Stats)
	}

	return a, nil
}

// openNotes selects the note backend.
func (a *App) openNotes() error {
	cfg := a.config.Notes
	backend, err := notes.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}

	switch backend {
	case notes.BackendSQLite:
		a.notes = notes.NewSQLiteStore(a.store.DB())
	case notes.BackendJSON:
		a.notes = notes.NewJSONFileStore(cfg.JSONPath)
	case notes.BackendPostgres:
		gs, err := notes.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to open notes database: %w", err)
		}
		a.notes = gs
		a.closeNotes = gs.Close
	}
	slog.Info("notes backend ready", "backend", backend)
	return nil
}

// Run starts the Matrix sync and background loops and blocks until ctx is
// cancelled or the process receives SIGINT/SIGTERM. Call Stop afterwards.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.healthServer != nil {
		if err := a.healthServer.Start(); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	slog.Info("starting Matrix sync", "user_id", a.matrix.UserID())
	if err := a.matrix.Start(ctx, a.enqueue); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}

	go a.sweepSessions(ctx)

	slog.Info("Hisho is running; press Ctrl+C to stop", "version", version.Version)
	<-ctx.Done()

	slog.Info("shutting down")
	return nil
}

// Stop releases everything in dependency order: no new messages, drain the
// in-flight ones, drop pending reminders, close storage.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Bot.ShutdownTimeout)
	defer cancel()
	if err := a.dispatcher.Shutdown(ctx); err != nil {
		slog.Warn("message handlers did not finish in time", "err", err)
	}

	if n := a.scheduler.Pending(); n > 0 {
		slog.Warn("dropping pending reminders", "count", n)
	}
	a.scheduler.Stop()

	if a.healthServer != nil {
		slog.Info("stopping health server")
		a.healthServer.Stop()
	}

	slog.Info("closing database")
	a.closeStores()
}

// Stats returns the runtime snapshot served on /status.
func (a *App) Stats() Stats {
	return Stats{
		PendingReminders: a.scheduler.Pending(),
		ActiveSessions:   a.sessions.Len(),
		ActiveUsers:      a.dispatcher.Active(),
		NotesBackend:     a.config.Notes.Backend,
	}
}

func (a *App) closeStores() {
	if a.closeNotes != nil {
		if err := a.closeNotes(); err != nil {
			slog.Warn("close notes database", "err", err)
		}
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("close database", "err", err)
	}
}

// enqueue hands an inbound message to the per-user dispatcher.
func (a *App) enqueue(ctx context.Context, msg bot.IncomingMessage) {
	err := a.dispatcher.Enqueue(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, bot.ErrQueueFull):
		observability.WithTrace(ctx).Warn("user backlog full; dropping message", "user", msg.UserID)
		if err := a.matrix.SendMessage(ctx, msg.ChatID, bot.TextBusy, bot.KeyboardNone); err != nil {
			observability.WithTrace(ctx).Warn("failed to send busy notice", "err", err)
		}
	default:
		observability.WithTrace(ctx).Debug("message not dispatched", "err", err)
	}
}

// handle runs one message through the router and sends the replies.
func (a *App) handle(ctx context.Context, msg bot.IncomingMessage) {
	start := time.Now()
	res := a.router.Handle(ctx, a.matrix, msg)
	observability.WithTrace(ctx).Info("message handled",
		"user", msg.UserID,
		"handler", res.Handler,
		"mode", res.Mode.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// sweepSessions periodically forgets idle users.
func (a *App) sweepSessions(ctx context.Context) {
	interval := a.config.Bot.SweepInterval
	if interval <= 0 || a.config.Bot.SessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.sessions.SweepIdle(now); n > 0 {
				slog.Debug("swept idle sessions", "count", n, "remaining", a.sessions.Len())
			}
		}
	}
}
