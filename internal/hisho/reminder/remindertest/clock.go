// Package remindertest provides a manually advanced reminder.Clock for tests.
package remindertest

import (
	"sort"
	"sync"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/reminder"
)

// Clock fires AfterFunc callbacks only when Advance moves time past their
// deadline. Callbacks run synchronously inside Advance, outside the clock's
// lock.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*timer
}

var _ reminder.Clock = (*Clock)(nil)

type timer struct {
	clk     *Clock
	fireAt  time.Time
	f       func()
	stopped bool
	fired   bool
}

// NewClock returns a Clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Clock) AfterFunc(d time.Duration, f func()) reminder.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clk: c, fireAt: c.current.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *timer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d and runs every due callback in
// deadline order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current
	var due []*timer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !now.Before(t.fireAt) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })
	for _, t := range due {
		t.f()
	}
}
