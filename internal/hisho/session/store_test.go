package session

import (
	"sync"
	"testing"
	"time"
)

func newTestStore(cfg Config, now *time.Time) *Store {
	s := NewStore(cfg)
	s.now = func() time.Time { return *now }
	return s
}

func TestStore_LazyDefault(t *testing.T) {
	s := NewStore(DefaultConfig())

	st := s.Get("@alice:test")
	if st.Mode != Idle {
		t.Errorf("expected Idle, got %v", st.Mode)
	}
	if st.UserID != "@alice:test" {
		t.Errorf("UserID: got %q", st.UserID)
	}
	if len(st.AIHistory) != 0 {
		t.Errorf("expected empty history, got %d entries", len(st.AIHistory))
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 tracked user, got %d", s.Len())
	}
}

func TestStore_SetModeIsPerUser(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.SetMode("@alice:test", AwaitingCity)
	s.SetMode("@bob:test", AwaitingNoteText)

	if got := s.Get("@alice:test").Mode; got != AwaitingCity {
		t.Errorf("alice: got %v, want %v", got, AwaitingCity)
	}
	if got := s.Get("@bob:test").Mode; got != AwaitingNoteText {
		t.Errorf("bob: got %v, want %v", got, AwaitingNoteText)
	}
}

func TestStore_AIHistoryLifecycle(t *testing.T) {
	s := NewStore(DefaultConfig())
	user := "@alice:test"

	s.AppendAITurn(user, RoleUser, "stale")
	s.SetMode(user, AwaitingAITurn)
	s.ResetAIHistory(user, "you are a helpful assistant")

	h := s.AIHistory(user)
	if len(h) != 1 || h[0].Role != RoleSystem {
		t.Fatalf("expected single system entry after reset, got %+v", h)
	}

	for i := 0; i < 3; i++ {
		s.AppendAITurn(user, RoleUser, "question")
		s.AppendAITurn(user, RoleAssistant, "answer")
	}

	h = s.AIHistory(user)
	if len(h) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(h))
	}
	for i, turn := range h[1:] {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if turn.Role != want {
			t.Errorf("entry %d: got role %q, want %q", i+1, turn.Role, want)
		}
	}

	s.SetMode(user, Idle)
	if got := len(s.AIHistory(user)); got != 0 {
		t.Errorf("expected history cleared after leaving AI mode, got %d entries", got)
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.ResetAIHistory("@alice:test", "system")

	st := s.Get("@alice:test")
	st.AIHistory[0].Content = "mutated"
	st.Mode = AwaitingCity

	got := s.Get("@alice:test")
	if got.AIHistory[0].Content != "system" {
		t.Error("mutating snapshot history affected the store")
	}
	if got.Mode != Idle {
		t.Error("mutating snapshot mode affected the store")
	}
}

func TestStore_MaxHistoryKeepsSystemEntry(t *testing.T) {
	s := NewStore(Config{MaxHistory: 5})
	user := "@alice:test"
	s.ResetAIHistory(user, "system")

	for i := 0; i < 10; i++ {
		s.AppendAITurn(user, RoleUser, "q")
		s.AppendAITurn(user, RoleAssistant, "a")
	}

	h := s.AIHistory(user)
	if len(h) > 5 {
		t.Fatalf("expected at most 5 entries, got %d", len(h))
	}
	if h[0].Role != RoleSystem {
		t.Fatalf("system entry was evicted: %+v", h[0])
	}
	if h[1].Role != RoleUser {
		t.Errorf("expected user entry after system, got %q", h[1].Role)
	}
}

func TestStore_SweepIdle(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	s := newTestStore(Config{IdleTTL: time.Hour}, &now)

	s.SetMode("@old:test", AwaitingCity)
	now = now.Add(50 * time.Minute)
	s.SetMode("@fresh:test", AwaitingNoteText)
	now = now.Add(20 * time.Minute)

	if dropped := s.SweepIdle(now); dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 remaining user, got %d", s.Len())
	}
	if got := s.Get("@fresh:test").Mode; got != AwaitingNoteText {
		t.Errorf("fresh user lost state: %v", got)
	}
	if got := s.Get("@old:test").Mode; got != Idle {
		t.Errorf("evicted user should come back Idle, got %v", got)
	}
}

func TestStore_SweepIdleCallsOnEvict(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	var evicted []string
	s := newTestStore(Config{
		IdleTTL: time.Hour,
		OnEvict: func(id string) { evicted = append(evicted, id) },
	}, &now)

	s.SetMode("@old:test", AwaitingCity)
	now = now.Add(2 * time.Hour)
	s.SweepIdle(now)

	if len(evicted) != 1 || evicted[0] != "@old:test" {
		t.Errorf("unexpected evictions: %v", evicted)
	}
}

func TestStore_SweepIdleDisabled(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	s := newTestStore(Config{IdleTTL: 0}, &now)
	s.SetMode("@alice:test", AwaitingCity)

	if dropped := s.SweepIdle(now.Add(365 * 24 * time.Hour)); dropped != 0 {
		t.Errorf("expected no eviction when disabled, got %d", dropped)
	}
}

func TestStore_ConcurrentUsers(t *testing.T) {
	s := NewStore(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "@user" + string(rune('a'+i%26)) + ":test"
			s.SetMode(user, AwaitingAITurn)
			s.AppendAITurn(user, RoleUser, "hi")
			_ = s.Get(user)
		}(i)
	}
	wg.Wait()

	if s.Len() != 26 {
		t.Errorf("expected 26 users, got %d", s.Len())
	}
}

func TestMode_String(t *testing.T) {
	if got := AwaitingAITurn.String(); got != "awaiting_ai_turn" {
		t.Errorf("got %q", got)
	}
	if got := Mode(99).String(); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
