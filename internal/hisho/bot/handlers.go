package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/assistant"
	"github.com/bdobrica/Hisho/internal/hisho/duration"
	"github.com/bdobrica/Hisho/internal/hisho/encyclopedia"
	"github.com/bdobrica/Hisho/internal/hisho/observability"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/weather"
)

// --- reminders ---

func (r *Router) scheduleReminder(ctx context.Context, msg IncomingMessage) Result {
	text := strings.TrimSpace(msg.Text)
	minutes := duration.Parse(text)

	switch {
	case minutes == 0:
		return reply("remind.bad_time", session.Idle, textRemindBadTime, KeyboardMainMenu)
	case minutes > duration.MaxMinutes:
		return reply("remind.too_far", session.Idle, textRemindTooFar, KeyboardMainMenu)
	}

	rem, err := r.deps.Reminders.Schedule(msg.UserID, msg.ChatID, text, time.Duration(minutes)*time.Minute)
	if err != nil {
		observability.WithTrace(ctx).Error("failed to schedule reminder", "user", msg.UserID, "err", err)
		return reply("remind.failed", session.Idle, textRemindFailed, KeyboardMainMenu)
	}

	observability.WithTrace(ctx).Info("reminder accepted",
		"user", msg.UserID, "reminder_id", rem.ID, "minutes", minutes)
	return reply("remind.scheduled", session.Idle,
		fmt.Sprintf(textRemindAccepted, duration.Format(minutes)), KeyboardMainMenu)
}

// --- notes ---

func (r *Router) saveNote(ctx context.Context, msg IncomingMessage) Result {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return reply("notes.add.empty", session.Idle, textNoteEmpty, KeyboardNotesMenu)
	}
	if err := r.deps.Notes.Add(ctx, msg.UserID, text); err != nil {
		observability.WithTrace(ctx).Error("failed to add note", "user", msg.UserID, "err", err)
		return reply("notes.failed", session.Idle, textNotesFailed, KeyboardMainMenu)
	}
	return reply("notes.add", session.Idle, fmt.Sprintf(textNoteSaved, text), KeyboardNotesMenu)
}

func (r *Router) listNotes(ctx context.Context, msg IncomingMessage) Result {
	list, err := r.deps.Notes.List(ctx, msg.UserID)
	if err != nil {
		observability.WithTrace(ctx).Error("failed to list notes", "user", msg.UserID, "err", err)
		return reply("notes.failed", session.Idle, textNotesFailed, KeyboardMainMenu)
	}
	if len(list) == 0 {
		return reply("notes.list", session.Idle, textNotesNone, KeyboardNotesMenu)
	}
	return reply("notes.list", session.Idle, formatNotes(list), KeyboardNotesMenu)
}

func (r *Router) promptDeleteNote(ctx context.Context, msg IncomingMessage) Result {
	list, err := r.deps.Notes.List(ctx, msg.UserID)
	if err != nil {
		observability.WithTrace(ctx).Error("failed to list notes", "user", msg.UserID, "err", err)
		return reply("notes.failed", session.Idle, textNotesFailed, KeyboardMainMenu)
	}
	if len(list) == 0 {
		return reply("notes.delete.none", session.Idle, textNotesNone, KeyboardNotesMenu)
	}
	return Result{
		Handler: "notes.delete.prompt",
		Replies: []Reply{
			{Text: formatNotes(list), Keyboard: KeyboardNone},
			{Text: textNoteDeletePrompt, Keyboard: KeyboardBack},
		},
		Mode: session.AwaitingNoteDeleteIndex,
	}
}

// deleteNote removes the note at the given position. A position that does
// not exist is still reported as deleted.
func (r *Router) deleteNote(ctx context.Context, msg IncomingMessage) Result {
	pos, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		return reply("notes.delete.bad_index", session.Idle, textNoteBadIndex, KeyboardNotesMenu)
	}
	if err := r.deps.Notes.DeleteAt(ctx, msg.UserID, pos); err != nil {
		observability.WithTrace(ctx).Error("failed to delete note", "user", msg.UserID, "pos", pos, "err", err)
		return reply("notes.failed", session.Idle, textNotesFailed, KeyboardMainMenu)
	}
	return reply("notes.delete", session.Idle, textNoteDeleted, KeyboardNotesMenu)
}

// --- weather & rates ---

func (r *Router) lookupWeather(ctx context.Context, msg IncomingMessage) Result {
	if r.deps.Weather == nil {
		return reply("weather.unavailable", session.Idle, textWeatherUnavailable, KeyboardMainMenu)
	}
	city := strings.TrimSpace(msg.Text)

	r.typing(ctx, msg.ChatID)
	cond, err := r.deps.Weather.Current(ctx, city)
	switch {
	case errors.Is(err, weather.ErrNotFound):
		return reply("weather.not_found", session.Idle, textCityNotFound, KeyboardMainMenu)
	case err != nil:
		observability.WithTrace(ctx).Warn("weather lookup failed", "city", city, "err", err)
		return reply("weather.unavailable", session.Idle, textWeatherUnavailable, KeyboardMainMenu)
	}
	return reply("weather", session.Idle, formatWeather(city, cond), KeyboardMainMenu)
}

func (r *Router) showRates(ctx context.Context, msg IncomingMessage) Result {
	if r.deps.Rates == nil {
		return reply("rates.unavailable", session.Idle, textRatesUnavailable, KeyboardMainMenu)
	}

	r.typing(ctx, msg.ChatID)
	rt, err := r.deps.Rates.Latest(ctx)
	if err != nil {
		observability.WithTrace(ctx).Warn("rates lookup failed", "err", err)
		return reply("rates.unavailable", session.Idle, textRatesUnavailable, KeyboardMainMenu)
	}
	return reply("rates", session.Idle, formatRates(rt), KeyboardMainMenu)
}

// --- AI assistant ---

func (r *Router) enterAssistant(msg IncomingMessage) Result {
	if r.deps.Assistant == nil {
		return reply("assistant.unavailable", session.Idle, textAssistantUnavailable, KeyboardMainMenu)
	}
	r.deps.Sessions.ResetAIHistory(msg.UserID, r.deps.SystemPrompt)
	return reply("assistant.enter", session.AwaitingAITurn, textAssistantWelcome, KeyboardBack)
}

// chatTurn relays one user turn. The history only grows when the relay
// answers; on any failure it is left exactly as it was and the user stays in
// AI mode to retry.
func (r *Router) chatTurn(ctx context.Context, msg IncomingMessage) Result {
	if r.deps.Assistant == nil {
		return reply("assistant.unavailable", session.Idle, textAssistantUnavailable, KeyboardMainMenu)
	}
	if r.deps.AILimiter != nil && !r.deps.AILimiter.Allow(msg.UserID) {
		return reply("assistant.rate_limited", session.AwaitingAITurn, textAssistantSlowDown, KeyboardBack)
	}

	history := r.deps.Sessions.AIHistory(msg.UserID)
	req := make([]assistant.Message, 0, len(history)+1)
	for _, t := range history {
		req = append(req, assistant.Message{Role: assistant.Role(t.Role), Content: t.Content})
	}
	req = append(req, assistant.Message{Role: assistant.RoleUser, Content: msg.Text})

	r.typing(ctx, msg.ChatID)
	answer, err := r.deps.Assistant.Converse(ctx, req)
	if err != nil {
		var remote *assistant.RemoteError
		if errors.As(err, &remote) {
			observability.WithTrace(ctx).Warn("assistant remote error",
				"user", msg.UserID, "status", remote.StatusCode, "err", err)
		} else {
			observability.WithTrace(ctx).Warn("assistant call failed", "user", msg.UserID, "err", err)
		}
		return reply("assistant.failed", session.AwaitingAITurn, textAssistantFailed, KeyboardBack)
	}

	r.deps.Sessions.AppendAITurn(msg.UserID, session.RoleUser, msg.Text)
	r.deps.Sessions.AppendAITurn(msg.UserID, session.RoleAssistant, answer)
	return reply("assistant.turn", session.AwaitingAITurn, answer, KeyboardBack)
}

// --- encyclopedia ---

func (r *Router) lookupArticle(ctx context.Context, msg IncomingMessage) Result {
	if r.deps.Encyclopedia == nil {
		return reply("search.unavailable", session.Idle, textSearchUnavailable, KeyboardMainMenu)
	}
	term := strings.TrimSpace(msg.Text)

	r.typing(ctx, msg.ChatID)
	article, err := r.deps.Encyclopedia.Search(ctx, term)
	var dis *encyclopedia.Disambiguation
	switch {
	case err == nil:
		return reply("search", session.Idle, formatArticle(article), KeyboardMainMenu)
	case errors.As(err, &dis):
		return reply("search.ambiguous", session.Idle, formatCandidates(dis), KeyboardMainMenu)
	case errors.Is(err, encyclopedia.ErrNotFound):
		return reply("search.not_found", session.Idle, textSearchNotFound, KeyboardMainMenu)
	default:
		observability.WithTrace(ctx).Warn("encyclopedia lookup failed", "term", term, "err", err)
		return reply("search.unavailable", session.Idle, textSearchUnavailable, KeyboardMainMenu)
	}
}
