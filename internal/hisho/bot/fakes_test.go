package bot

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/assistant"
	"github.com/bdobrica/Hisho/internal/hisho/encyclopedia"
	"github.com/bdobrica/Hisho/internal/hisho/notes"
	"github.com/bdobrica/Hisho/internal/hisho/rates"
	"github.com/bdobrica/Hisho/internal/hisho/reminder"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/weather"
)

type scheduled struct {
	ownerID, chatID, text string
	delay                 time.Duration
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduled
	err   error
}

func (f *fakeScheduler) Schedule(ownerID, chatID, text string, delay time.Duration) (reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return reminder.Reminder{}, f.err
	}
	f.calls = append(f.calls, scheduled{ownerID, chatID, text, delay})
	return reminder.Reminder{ID: "r-1", OwnerID: ownerID, ChatID: chatID, Text: text, Delay: delay}, nil
}

type fakeWeather struct {
	cond weather.Conditions
	err  error
	city string
}

func (f *fakeWeather) Current(_ context.Context, city string) (weather.Conditions, error) {
	f.city = city
	return f.cond, f.err
}

type fakeRates struct {
	rates rates.Rates
	err   error
}

func (f *fakeRates) Latest(context.Context) (rates.Rates, error) { return f.rates, f.err }

type fakeEncyclopedia struct {
	article encyclopedia.Article
	err     error
}

func (f *fakeEncyclopedia) Search(context.Context, string) (encyclopedia.Article, error) {
	return f.article, f.err
}

type fakeAssistant struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]assistant.Message
}

func (f *fakeAssistant) Converse(_ context.Context, history []assistant.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]assistant.Message, len(history))
	copy(cp, history)
	f.calls = append(f.calls, cp)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

type fakeLimiter struct{ allow bool }

func (f *fakeLimiter) Allow(string) bool { return f.allow }

type sent struct {
	chatID   string
	text     string
	keyboard Keyboard
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sent
	typing int
	err    error
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID, text string, kb Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID, text, kb})
	return f.err
}

func (f *fakeMessenger) SendTyping(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

// harness wires a Router to fakes and a real JSON note store.
type harness struct {
	router    *Router
	sessions  *session.Store
	notes     notes.Store
	scheduler *fakeScheduler
	weather   *fakeWeather
	rates     *fakeRates
	wiki      *fakeEncyclopedia
	ai        *fakeAssistant
	limiter   *fakeLimiter
	messenger *fakeMessenger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sessions:  session.NewStore(session.DefaultConfig()),
		notes:     notes.NewJSONFileStore(filepath.Join(t.TempDir(), "notes.json")),
		scheduler: &fakeScheduler{},
		weather:   &fakeWeather{},
		rates:     &fakeRates{},
		wiki:      &fakeEncyclopedia{},
		ai:        &fakeAssistant{},
		limiter:   &fakeLimiter{allow: true},
		messenger: &fakeMessenger{},
	}
	h.router = NewRouter(Deps{
		Sessions:     h.sessions,
		Notes:        h.notes,
		Reminders:    h.scheduler,
		Weather:      h.weather,
		Rates:        h.rates,
		Encyclopedia: h.wiki,
		Assistant:    h.ai,
		AILimiter:    h.limiter,
		SystemPrompt: "system prompt",
		Messenger:    h.messenger,
		Intn:         func(int) int { return 1 },
	})
	return h
}

const (
	testUser = "@alice:test"
	testChat = "!dm-alice:test"
)

func (h *harness) send(text string) Result {
	return h.router.Route(context.Background(), IncomingMessage{UserID: testUser, ChatID: testChat, Text: text})
}
