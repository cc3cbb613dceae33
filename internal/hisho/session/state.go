// Package session keeps the per-user conversational state of the bot: which
// mode the user is in and, while chatting with the AI assistant, the running
// message history. State lives in memory; an optional Backing persists it so
// it survives a restart.
package session

import "time"

// Mode governs how the next free-text message from a user is interpreted.
type Mode int

const (
	Idle Mode = iota
	AwaitingReminderText
	AwaitingNoteText
	AwaitingNoteDeleteIndex
	AwaitingCity
	AwaitingAITurn
	AwaitingSearchTerm
)

// String implements fmt.Stringer for log output.
func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case AwaitingReminderText:
		return "awaiting_reminder_text"
	case AwaitingNoteText:
		return "awaiting_note_text"
	case AwaitingNoteDeleteIndex:
		return "awaiting_note_delete_index"
	case AwaitingCity:
		return "awaiting_city"
	case AwaitingAITurn:
		return "awaiting_ai_turn"
	case AwaitingSearchTerm:
		return "awaiting_search_term"
	default:
		return "unknown"
	}
}

// Role is the author of one AI history entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry of the AI conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is a snapshot of one user's conversational state. Values returned by
// the Store are copies; mutating them has no effect on the store.
type State struct {
	UserID    string
	Mode      Mode
	AIHistory []Turn
	LastSeen  time.Time
}
