package reminder_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/reminder"
	"github.com/bdobrica/Hisho/internal/hisho/reminder/remindertest"
)

type delivery struct {
	chatID string
	text   string
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (n *fakeNotifier) Notify(ctx context.Context, chatID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{chatID: chatID, text: text})
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deliveries)
}

var testStart = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func TestScheduler_FiresOnceAfterDelay(t *testing.T) {
	clk := remindertest.NewClock(testStart)
	n := &fakeNotifier{}
	s := reminder.NewSchedulerWithClock(n, reminder.Config{}, clk)

	r, err := s.Schedule("@alice:test", "!dm:test", "выпить воду", 45*time.Minute)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if r.ID == "" {
		t.Error("reminder has no ID")
	}
	if want := testStart.Add(45 * time.Minute); !r.FireAt().Equal(want) {
		t.Errorf("FireAt: got %v, want %v", r.FireAt(), want)
	}
	if got := s.Pending(); got != 1 {
		t.Errorf("Pending: got %d, want 1", got)
	}

	clk.Advance(44*time.Minute + 59*time.Second)
	if got := n.count(); got != 0 {
		t.Fatalf("delivered %d reminders before the delay elapsed", got)
	}

	clk.Advance(time.Second)
	if got := n.count(); got != 1 {
		t.Fatalf("expected 1 delivery, got %d", got)
	}
	if n.deliveries[0].chatID != "!dm:test" {
		t.Errorf("chat: got %q", n.deliveries[0].chatID)
	}
	if !strings.Contains(n.deliveries[0].text, "выпить воду") {
		t.Errorf("text %q does not carry the reminder", n.deliveries[0].text)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending after firing: got %d", got)
	}

	clk.Advance(24 * time.Hour)
	if got := n.count(); got != 1 {
		t.Errorf("a reminder is delivered exactly once, got %d deliveries", got)
	}
}

func TestScheduler_IndependentReminders(t *testing.T) {
	clk := remindertest.NewClock(testStart)
	n := &fakeNotifier{}
	s := reminder.NewSchedulerWithClock(n, reminder.Config{}, clk)

	for _, r := range []struct {
		owner, chat, text string
		delay             time.Duration
	}{
		{"@alice:test", "!a:test", "second", 2 * time.Hour},
		{"@alice:test", "!a:test", "first", time.Hour},
		{"@bob:test", "!b:test", "third", 3 * time.Hour},
	} {
		if _, err := s.Schedule(r.owner, r.chat, r.text, r.delay); err != nil {
			t.Fatalf("Schedule %q: %v", r.text, err)
		}
	}
	if got := s.Pending(); got != 3 {
		t.Errorf("Pending: got %d, want 3", got)
	}

	clk.Advance(time.Hour)
	if got := n.count(); got != 1 {
		t.Fatalf("after 1h: got %d deliveries, want 1", got)
	}
	if !strings.Contains(n.deliveries[0].text, "first") {
		t.Errorf("first delivery: %q", n.deliveries[0].text)
	}

	clk.Advance(2 * time.Hour)
	if got := n.count(); got != 3 {
		t.Fatalf("after 3h: got %d deliveries, want 3", got)
	}
	if !strings.Contains(n.deliveries[1].text, "second") {
		t.Errorf("second delivery: %q", n.deliveries[1].text)
	}
	if n.deliveries[2].chatID != "!b:test" {
		t.Errorf("third delivery went to %q", n.deliveries[2].chatID)
	}
}

func TestScheduler_DeliveryFailureIsSwallowed(t *testing.T) {
	clk := remindertest.NewClock(testStart)
	n := &fakeNotifier{err: errors.New("room gone")}
	s := reminder.NewSchedulerWithClock(n, reminder.Config{}, clk)

	if _, err := s.Schedule("@alice:test", "!gone:test", "x", time.Minute); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	clk.Advance(time.Minute)
	if got := n.count(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending: got %d", got)
	}

	clk.Advance(time.Hour)
	if got := n.count(); got != 1 {
		t.Errorf("failed delivery must not be retried, got %d attempts", got)
	}
}

func TestScheduler_StopDropsPending(t *testing.T) {
	clk := remindertest.NewClock(testStart)
	n := &fakeNotifier{}
	s := reminder.NewSchedulerWithClock(n, reminder.Config{}, clk)

	if _, err := s.Schedule("@alice:test", "!a:test", "lost", time.Minute); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	s.Stop()
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending after Stop: got %d", got)
	}

	clk.Advance(time.Hour)
	if got := n.count(); got != 0 {
		t.Errorf("stopped scheduler delivered %d reminders", got)
	}

	if _, err := s.Schedule("@alice:test", "!a:test", "late", time.Minute); !errors.Is(err, reminder.ErrStopped) {
		t.Errorf("Schedule after Stop: got %v, want %v", err, reminder.ErrStopped)
	}

	s.Stop()
}

func TestScheduler_RealClock(t *testing.T) {
	n := &fakeNotifier{}
	s := reminder.NewScheduler(n, reminder.Config{DeliveryTimeout: time.Second})
	defer s.Stop()

	if _, err := s.Schedule("@alice:test", "!a:test", "soon", 10*time.Millisecond); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for n.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reminder was not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending: got %d", got)
	}
}

func TestReminder_Message(t *testing.T) {
	r := reminder.Reminder{Text: "Позвонить маме через 2 часа"}
	if got, want := r.Message(), "⏰ Напоминание!\nПозвонить маме через 2 часа"; got != want {
		t.Errorf("Message: got %q, want %q", got, want)
	}
}
