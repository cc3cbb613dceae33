package bot

import (
	"context"

	"github.com/bdobrica/Hisho/internal/hisho/reminder"
)

// IncomingMessage is one text message received from a user.
type IncomingMessage struct {
	// UserID identifies the sender; conversation state and notes are keyed
	// by it.
	UserID string
	// ChatID is where replies go.
	ChatID string
	Text   string
	// EventID is the transport's message identifier, used for logging only.
	EventID string
}

// Reply is one outgoing message.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	SendMessage(ctx context.Context, chatID, text string, keyboard Keyboard) error
	// SendTyping shows a typing indicator. Failures are ignored by callers.
	SendTyping(ctx context.Context, chatID string) error
}

// ReminderNotifier delivers reminders through a Messenger with the main menu
// attached.
type ReminderNotifier struct {
	Messenger Messenger
}

var _ reminder.Notifier = ReminderNotifier{}

func (n ReminderNotifier) Notify(ctx context.Context, chatID, text string) error {
	return n.Messenger.SendMessage(ctx, chatID, text, KeyboardMainMenu)
}
