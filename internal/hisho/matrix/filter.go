package matrix

import (
	"strings"
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Hisho/internal/hisho/bot"
)

// eventFilter decides which timeline events reach the bot.
type eventFilter struct {
	self    id.UserID
	rooms   map[id.RoomID]bool
	senders map[id.UserID]bool
	// since drops events sent before the client started; on a first run
	// without a sync token the homeserver replays recent history.
	since time.Time
}

func newEventFilter(self string, rooms, senders []string, since time.Time) *eventFilter {
	f := &eventFilter{self: id.UserID(self), since: since}
	if len(rooms) > 0 {
		f.rooms = make(map[id.RoomID]bool, len(rooms))
		for _, r := range rooms {
			f.rooms[id.RoomID(r)] = true
		}
	}
	if len(senders) > 0 {
		f.senders = make(map[id.UserID]bool, len(senders))
		for _, s := range senders {
			f.senders[id.UserID(s)] = true
		}
	}
	return f
}

func (f *eventFilter) senderAllowed(sender id.UserID) bool {
	return f.senders == nil || f.senders[sender]
}

func (f *eventFilter) roomAllowed(room id.RoomID) bool {
	return f.rooms == nil || f.rooms[room]
}

// message converts a text message event into an IncomingMessage. Own
// messages, non-text messages, old events and events outside the allowlists
// are rejected.
func (f *eventFilter) message(evt *event.Event) (bot.IncomingMessage, bool) {
	if evt.Sender == f.self {
		return bot.IncomingMessage{}, false
	}
	if !f.since.IsZero() && evt.Timestamp > 0 && time.UnixMilli(evt.Timestamp).Before(f.since) {
		return bot.IncomingMessage{}, false
	}
	if !f.roomAllowed(evt.RoomID) || !f.senderAllowed(evt.Sender) {
		return bot.IncomingMessage{}, false
	}

	content := evt.Content.AsMessage()
	if content == nil || content.MsgType != event.MsgText {
		return bot.IncomingMessage{}, false
	}
	text := strings.TrimSpace(content.Body)
	if text == "" {
		return bot.IncomingMessage{}, false
	}

	return bot.IncomingMessage{
		UserID:  evt.Sender.String(),
		ChatID:  evt.RoomID.String(),
		Text:    text,
		EventID: evt.ID.String(),
	}, true
}

// invite reports whether evt invites the bot into an allowed room from an
// allowed sender.
func (f *eventFilter) invite(evt *event.Event) bool {
	if evt.GetStateKey() != f.self.String() {
		return false
	}
	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite {
		return false
	}
	return f.roomAllowed(evt.RoomID) && f.senderAllowed(evt.Sender)
}
