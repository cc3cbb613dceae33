// Package reminder delivers one-shot delayed reminders.
//
// Every reminder is an independent in-memory timer: it fires once, makes a
// single delivery attempt through the Notifier and is forgotten. Failed
// deliveries are logged and dropped, never retried. There is no cancellation
// API for users, and reminders still pending when the process stops are lost.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStopped is returned by Schedule after Stop has been called.
var ErrStopped = errors.New("reminder: scheduler stopped")

// DefaultDeliveryTimeout bounds a single delivery attempt.
const DefaultDeliveryTimeout = 30 * time.Second

// Notifier delivers a reminder message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID, text string) error
}

// Reminder is a pending, not yet delivered reminder.
type Reminder struct {
	ID        string
	OwnerID   string
	ChatID    string
	Text      string
	Delay     time.Duration
	CreatedAt time.Time
}

// FireAt is the earliest time the reminder is delivered.
func (r Reminder) FireAt() time.Time {
	return r.CreatedAt.Add(r.Delay)
}

// Message is the text delivered when the reminder fires.
func (r Reminder) Message() string {
	return "⏰ Напоминание!\n" + r.Text
}

// Timer is the handle of an armed one-shot timer.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so tests can fire timers without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config holds scheduler settings.
type Config struct {
	// DeliveryTimeout bounds each delivery attempt. Defaults to 30s.
	DeliveryTimeout time.Duration
}

type entry struct {
	reminder Reminder
	timer    Timer
}

// Scheduler arms and tracks pending reminders. It is safe for concurrent use.
type Scheduler struct {
	mu       sync.Mutex
	notifier Notifier
	clk      Clock
	cfg      Config
	pending  map[string]*entry
	stopped  bool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewScheduler returns a Scheduler that delivers through notifier using the
// wall clock.
func NewScheduler(notifier Notifier, cfg Config) *Scheduler {
	return NewSchedulerWithClock(notifier, cfg, realClock{})
}

// NewSchedulerWithClock is like NewScheduler but injects a custom clock.
func NewSchedulerWithClock(notifier Notifier, cfg Config, clk Clock) *Scheduler {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}
	return &Scheduler{
		notifier: notifier,
		clk:      clk,
		cfg:      cfg,
		pending:  make(map[string]*entry),
		logger:   slog.Default(),
	}
}

// Schedule arms a reminder that delivers text to chatID once delay has
// elapsed, measured from now. A non-positive delay fires immediately.
func (s *Scheduler) Schedule(ownerID, chatID, text string, delay time.Duration) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Reminder{}, ErrStopped
	}

	r := Reminder{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ChatID:    chatID,
		Text:      text,
		Delay:     delay,
		CreatedAt: s.clk.Now(),
	}
	e := &entry{reminder: r}
	s.pending[r.ID] = e
	// The timer may fire before AfterFunc returns; fire takes mu, so it
	// cannot observe e before e.timer is assigned below.
	e.timer = s.clk.AfterFunc(delay, func() { s.fire(r.ID) })

	s.logger.Info("reminder scheduled",
		"reminder_id", r.ID, "owner", ownerID, "delay", delay, "fire_at", r.FireAt())
	return r, nil
}

// Pending returns the number of armed reminders.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop disarms every pending reminder and waits for in-flight deliveries to
// finish. Disarmed reminders are lost.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	dropped := 0
	for id, e := range s.pending {
		if e.timer != nil && e.timer.Stop() {
			dropped++
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	if dropped > 0 {
		s.logger.Warn("reminder scheduler stopped; pending reminders dropped", "count", dropped)
	}
}

// fire is the timer callback: it removes the reminder and makes exactly one
// delivery attempt.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	e, ok := s.pending[id]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	r := e.reminder
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DeliveryTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, r.ChatID, r.Message()); err != nil {
		s.logger.Debug("reminder delivery failed; dropping",
			"reminder_id", r.ID, "owner", r.OwnerID, "err", err)
		return
	}
	s.logger.Info("reminder delivered", "reminder_id", r.ID, "owner", r.OwnerID)
}
