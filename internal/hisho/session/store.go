package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Backing persists states outside the process.
type Backing interface {
	LoadAll(ctx context.Context) ([]State, error)
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, userID string) error
}

// Config holds the bounds applied by the Store.
type Config struct {
	// MaxHistory caps the AI history length including the system entry.
	// When exceeded, the oldest user/assistant entries are dropped while the
	// leading system entry is kept. Default: 50.
	MaxHistory int

	// IdleTTL is the inactivity period after which SweepIdle forgets a user.
	// Zero disables eviction, matching an unbounded in-memory map.
	// Default: 24 hours.
	IdleTTL time.Duration

	// OnEvict, when set, is called for every user SweepIdle forgets, after
	// the store lock is released.
	OnEvict func(userID string)

	// Backing, when set, receives every mutation. Write failures are logged
	// and the in-memory state stays authoritative.
	Backing Backing
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxHistory: 50,
		IdleTTL:    24 * time.Hour,
	}
}

// Store owns the state of every user who has talked to the bot.
// It is safe for concurrent use; callers still have to serialise the
// messages of a single user to keep read-then-write sequences consistent.
type Store struct {
	mu     sync.Mutex
	config Config
	states map[string]*State
	now    func() time.Time
}

// NewStore creates an empty Store. A non-positive MaxHistory falls back to
// the default; IdleTTL is used as given.
func NewStore(cfg Config) *Store {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultConfig().MaxHistory
	}
	return &Store{
		config: cfg,
		states: make(map[string]*State),
		now:    time.Now,
	}
}

// Get returns a snapshot of the user's state, creating an Idle state on
// first contact.
func (s *Store) Get(userID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.touch(userID))
}

// SetMode switches the user to mode. Leaving AwaitingAITurn clears the AI
// history since it is only meaningful inside that mode.
func (s *Store) SetMode(userID string, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.touch(userID)
	if st.Mode == AwaitingAITurn && mode != AwaitingAITurn {
		st.AIHistory = nil
	}
	st.Mode = mode
	s.persist(st)
}

// ResetAIHistory replaces the AI history with a single system entry.
func (s *Store) ResetAIHistory(userID, systemPrompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.touch(userID)
	st.AIHistory = []Turn{{Role: RoleSystem, Content: systemPrompt}}
	s.persist(st)
}

// AppendAITurn appends one entry to the AI history and enforces MaxHistory.
func (s *Store) AppendAITurn(userID string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.touch(userID)
	st.AIHistory = append(st.AIHistory, Turn{Role: role, Content: content})
	s.enforceHistoryLimit(st)
	s.persist(st)
}

// AIHistory returns a copy of the user's AI history.
func (s *Store) AIHistory(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.touch(userID)
	out := make([]Turn, len(st.AIHistory))
	copy(out, st.AIHistory)
	return out
}

// Len returns the number of users currently tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// SweepIdle forgets every user whose last activity is older than IdleTTL
// relative to now and returns how many were dropped. A forgotten user comes
// back as a fresh Idle state on the next message.
func (s *Store) SweepIdle(now time.Time) int {
	if s.config.IdleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	var evicted []string
	for id, st := range s.states {
		if now.Sub(st.LastSeen) > s.config.IdleTTL {
			delete(s.states, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	for _, id := range evicted {
		if s.config.Backing != nil {
			if err := s.config.Backing.Delete(context.Background(), id); err != nil {
				slog.Warn("session: failed to delete persisted state", "user", id, "err", err)
			}
		}
		if s.config.OnEvict != nil {
			s.config.OnEvict(id)
		}
	}
	return len(evicted)
}

// Load replaces the in-memory states with the ones held by the Backing and
// returns how many were restored. Without a Backing it does nothing.
func (s *Store) Load(ctx context.Context) (int, error) {
	if s.config.Backing == nil {
		return 0, nil
	}
	states, err := s.config.Backing.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]*State, len(states))
	for i := range states {
		st := states[i]
		s.enforceHistoryLimit(&st)
		s.states[st.UserID] = &st
	}
	return len(states), nil
}

// touch returns the live state for userID, creating it when absent, and
// refreshes LastSeen. Must be called with mu held.
func (s *Store) touch(userID string) *State {
	st, ok := s.states[userID]
	if !ok {
		st = &State{UserID: userID, Mode: Idle}
		s.states[userID] = st
	}
	st.LastSeen = s.now()
	return st
}

// enforceHistoryLimit drops the oldest non-system entries two at a time so
// the history keeps alternating user/assistant after the system entry.
// Must be called with mu held.
func (s *Store) enforceHistoryLimit(st *State) {
	for len(st.AIHistory) > s.config.MaxHistory {
		start := 0
		if len(st.AIHistory) > 0 && st.AIHistory[0].Role == RoleSystem {
			start = 1
		}
		drop := 2
		if len(st.AIHistory)-start < drop {
			drop = len(st.AIHistory) - start
		}
		if drop <= 0 {
			return
		}
		st.AIHistory = append(st.AIHistory[:start], st.AIHistory[start+drop:]...)
	}
}

// persist writes st to the Backing. Must be called with mu held so writes
// for one user reach the Backing in mutation order.
func (s *Store) persist(st *State) {
	if s.config.Backing == nil {
		return
	}
	if err := s.config.Backing.Save(context.Background(), s.snapshot(st)); err != nil {
		slog.Warn("session: failed to persist state", "user", st.UserID, "err", err)
	}
}

func (s *Store) snapshot(st *State) State {
	cp := *st
	cp.AIHistory = make([]Turn, len(st.AIHistory))
	copy(cp.AIHistory, st.AIHistory)
	return cp
}
