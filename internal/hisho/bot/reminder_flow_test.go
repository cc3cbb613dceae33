package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/reminder"
	"github.com/bdobrica/Hisho/internal/hisho/reminder/remindertest"
)

func TestReminderFlow_EndToEnd(t *testing.T) {
	h := newHarness(t)
	clk := remindertest.NewClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	sched := reminder.NewSchedulerWithClock(ReminderNotifier{Messenger: h.messenger}, reminder.Config{}, clk)
	defer sched.Stop()
	h.router.deps.Reminders = sched

	h.send(LabelRemind)
	res := h.send("выпить воды через 45 минут")
	if res.Handler != "remind.scheduled" {
		t.Fatalf("handler: got %q", res.Handler)
	}
	if !strings.Contains(lastText(res), "45 мин.") {
		t.Errorf("confirmation %q does not name the delay", lastText(res))
	}

	clk.Advance(44 * time.Minute)
	if len(h.messenger.sent) != 0 {
		t.Fatalf("delivered before the delay: %+v", h.messenger.sent)
	}

	clk.Advance(time.Minute)
	if len(h.messenger.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(h.messenger.sent))
	}
	if got := h.messenger.sent[0]; got.chatID != testChat || !strings.Contains(got.text, "выпить воды") {
		t.Errorf("delivery: got %+v", got)
	}

	clk.Advance(24 * time.Hour)
	if len(h.messenger.sent) != 1 {
		t.Errorf("a reminder fires exactly once, got %d deliveries", len(h.messenger.sent))
	}
	if got := sched.Pending(); got != 0 {
		t.Errorf("Pending: got %d", got)
	}
}
