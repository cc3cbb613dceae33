// Package bot turns incoming chat messages into replies.
//
// The Router keeps one conversational mode per user (see package session) and
// dispatches each message either to the menu command it names or to the
// continuation of the user's current mode. The Dispatcher feeds the Router
// from the transport, serialising each user's messages.
package bot

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/assistant"
	"github.com/bdobrica/Hisho/internal/hisho/encyclopedia"
	"github.com/bdobrica/Hisho/internal/hisho/notes"
	"github.com/bdobrica/Hisho/internal/hisho/observability"
	"github.com/bdobrica/Hisho/internal/hisho/rates"
	"github.com/bdobrica/Hisho/internal/hisho/reminder"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/weather"
)

// Scheduler arms one-shot reminders.
type Scheduler interface {
	Schedule(ownerID, chatID, text string, delay time.Duration) (reminder.Reminder, error)
}

// WeatherService resolves a city to its current conditions.
type WeatherService interface {
	Current(ctx context.Context, city string) (weather.Conditions, error)
}

// RatesService returns today's exchange rates.
type RatesService interface {
	Latest(ctx context.Context) (rates.Rates, error)
}

// EncyclopediaService looks up an article summary.
type EncyclopediaService interface {
	Search(ctx context.Context, term string) (encyclopedia.Article, error)
}

// AssistantService answers a chat history.
type AssistantService interface {
	Converse(ctx context.Context, history []assistant.Message) (string, error)
}

// Limiter decides whether a user may start another AI turn.
type Limiter interface {
	Allow(userID string) bool
}

// Deps are the Router's collaborators. Sessions, Notes and Reminders are
// required. A nil Weather, Rates, Encyclopedia or Assistant disables that
// feature; a nil AILimiter means no limit.
type Deps struct {
	Sessions     *session.Store
	Notes        notes.Store
	Reminders    Scheduler
	Weather      WeatherService
	Rates        RatesService
	Encyclopedia EncyclopediaService
	Assistant    AssistantService
	AILimiter    Limiter
	// SystemPrompt seeds each AI conversation. Defaults to
	// assistant.DefaultSystemPrompt.
	SystemPrompt string
	// Messenger receives typing indicators before slow lookups. Optional.
	Messenger Messenger
	// Intn picks a random idea. Defaults to math/rand/v2.
	Intn func(n int) int
}

// Result describes what Route did with one message.
type Result struct {
	// Handler names the handler that ran, for logs and tests.
	Handler string
	Replies []Reply
	// Mode is the user's mode after the message.
	Mode session.Mode
}

func reply(handler string, mode session.Mode, text string, kb Keyboard) Result {
	return Result{Handler: handler, Replies: []Reply{{Text: text, Keyboard: kb}}, Mode: mode}
}

// Router maps messages to handlers. It is safe for concurrent use as long as
// messages of one user are routed one at a time.
type Router struct {
	deps Deps
}

// NewRouter returns a Router over deps.
func NewRouter(deps Deps) *Router {
	if deps.SystemPrompt == "" {
		deps.SystemPrompt = assistant.DefaultSystemPrompt
	}
	if deps.Intn == nil {
		deps.Intn = rand.IntN
	}
	return &Router{deps: deps}
}

// Route handles msg and records the user's new mode.
//
// Precedence: in AI mode only the back label is a command and every other
// text is a chat turn. Otherwise a menu label always wins, even while another
// awaiting-mode is active. Anything else continues the current mode; in Idle
// that is the fallback reply.
func (r *Router) Route(ctx context.Context, msg IncomingMessage) Result {
	st := r.deps.Sessions.Get(msg.UserID)
	cmd := ParseCommand(msg.Text)

	var res Result
	switch {
	case st.Mode == session.AwaitingAITurn && cmd != CmdBack:
		res = r.continueMode(ctx, msg, st.Mode)
	case cmd != CmdNone:
		res = r.runCommand(ctx, msg, cmd)
	default:
		res = r.continueMode(ctx, msg, st.Mode)
	}

	r.deps.Sessions.SetMode(msg.UserID, res.Mode)

	observability.WithTrace(ctx).Debug("message routed",
		"user", msg.UserID, "from_mode", st.Mode, "handler", res.Handler, "to_mode", res.Mode)
	return res
}

// Handle routes msg and sends the replies through m. Send failures are
// logged; the mode change stands.
func (r *Router) Handle(ctx context.Context, m Messenger, msg IncomingMessage) Result {
	res := r.Route(ctx, msg)
	for _, rep := range res.Replies {
		if err := m.SendMessage(ctx, msg.ChatID, rep.Text, rep.Keyboard); err != nil {
			observability.WithTrace(ctx).Warn("failed to send reply",
				"chat", msg.ChatID, "handler", res.Handler, "err", err)
		}
	}
	return res
}

func (r *Router) runCommand(ctx context.Context, msg IncomingMessage, cmd Command) Result {
	switch cmd {
	case CmdStart:
		return reply("start", session.Idle, textGreeting, KeyboardMainMenu)
	case CmdHelp:
		return reply("help", session.Idle, textHelp, KeyboardMainMenu)
	case CmdBack:
		return reply("back", session.Idle, textMainMenu, KeyboardMainMenu)
	case CmdRemind:
		return reply("remind.prompt", session.AwaitingReminderText, textRemindPrompt, KeyboardRemove)
	case CmdNotes:
		return reply("notes.menu", session.Idle, textNotesMenu, KeyboardNotesMenu)
	case CmdAddNote:
		return reply("notes.add.prompt", session.AwaitingNoteText, textNotePrompt, KeyboardBack)
	case CmdListNotes:
		return r.listNotes(ctx, msg)
	case CmdDeleteNote:
		return r.promptDeleteNote(ctx, msg)
	case CmdWeather:
		if r.deps.Weather == nil {
			return reply("weather.unavailable", session.Idle, textWeatherUnavailable, KeyboardMainMenu)
		}
		return reply("weather.prompt", session.AwaitingCity, textCityPrompt, KeyboardBack)
	case CmdRates:
		return r.showRates(ctx, msg)
	case CmdAssistant:
		return r.enterAssistant(msg)
	case CmdEncyclopedia:
		if r.deps.Encyclopedia == nil {
			return reply("search.unavailable", session.Idle, textSearchUnavailable, KeyboardMainMenu)
		}
		return reply("search.prompt", session.AwaitingSearchTerm, textSearchPrompt, KeyboardBack)
	case CmdIdea:
		idea := ideas[r.deps.Intn(len(ideas))]
		return reply("idea", session.Idle, "Идея на сейчас:\n"+idea, KeyboardMainMenu)
	case CmdNone:
		return r.internalError(ctx, "no command to run", cmd)
	default:
		return r.internalError(ctx, "unhandled command", cmd)
	}
}

func (r *Router) continueMode(ctx context.Context, msg IncomingMessage, mode session.Mode) Result {
	switch mode {
	case session.Idle:
		return reply("fallback", session.Idle, textFallback, KeyboardMainMenu)
	case session.AwaitingReminderText:
		return r.scheduleReminder(ctx, msg)
	case session.AwaitingNoteText:
		return r.saveNote(ctx, msg)
	case session.AwaitingNoteDeleteIndex:
		return r.deleteNote(ctx, msg)
	case session.AwaitingCity:
		return r.lookupWeather(ctx, msg)
	case session.AwaitingAITurn:
		return r.chatTurn(ctx, msg)
	case session.AwaitingSearchTerm:
		return r.lookupArticle(ctx, msg)
	default:
		return r.internalError(ctx, "unhandled mode", mode)
	}
}

func (r *Router) internalError(ctx context.Context, what string, v any) Result {
	observability.WithTrace(ctx).Error("router: "+what, "value", v)
	return reply("internal", session.Idle, textInternal, KeyboardMainMenu)
}

// typing sends a best-effort typing indicator.
func (r *Router) typing(ctx context.Context, chatID string) {
	if r.deps.Messenger == nil {
		return
	}
	if err := r.deps.Messenger.SendTyping(ctx, chatID); err != nil {
		observability.WithTrace(ctx).Debug("typing indicator failed", "chat", chatID, "err", err)
	}
}
