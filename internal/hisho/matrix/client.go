// Package matrix connects Hisho to a Matrix homeserver.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Hisho/common/retry"
	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/bot"
)

const typingTimeout = 10 * time.Second

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms the bot joins at startup. When non-empty it is also an allowlist:
	// messages and invites from other rooms are ignored.
	Rooms []string
	// AllowedSenders restricts who may talk to the bot. Empty allows everyone.
	AllowedSenders []string
	// AutoJoin accepts invites to the bot.
	AutoJoin bool
	// DB persists the sync token across restarts. When nil, an in-memory
	// store is used and recent history replays on every restart.
	DB *sql.DB
	// JoinRetry governs joining rooms at startup and on invite.
	JoinRetry retry.Config
}

// MessageHandler receives every accepted text message. It is called from the
// sync goroutine and must not block.
type MessageHandler func(ctx context.Context, msg bot.IncomingMessage)

// Client wraps the mautrix client and implements bot.Messenger.
type Client struct {
	client *mautrix.Client
	config Config
	filter *eventFilter

	handler MessageHandler
	started bool
	stopCh  chan struct{}
	stopped sync.Once
	done    chan struct{}
}

var _ bot.Messenger = (*Client)(nil)

// New creates a Client. It does not contact the homeserver.
func New(config Config) (*Client, error) {
	if config.JoinRetry.MaxAttempts == 0 {
		config.JoinRetry = retry.DefaultConfig
	}

	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	if config.DB != nil {
		client.Store = NewDBSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start joins the configured rooms and begins syncing in the background.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.handler = handler
	c.filter = newEventFilter(c.config.UserID, c.config.Rooms, c.config.AllowedSenders, time.Now())

	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("unexpected Matrix syncer type")
	}
	syncer.OnEventType(event.EventMessage, c.handleMessage)
	if c.config.AutoJoin {
		syncer.OnEventType(event.StateMember, c.handleMembership)
	}

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(ctx, id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	c.started = true
	go c.syncLoop(ctx)
	return nil
}

// syncLoop keeps the sync running, reconnecting with exponential back-off
// until Stop is called or ctx ends.
func (c *Client) syncLoop(ctx context.Context) {
	defer close(c.done)

	const (
		backoffMin = 2 * time.Second
		backoffMax = 5 * time.Minute
	)
	backoff := backoffMin
	for {
		start := time.Now()
		err := c.client.SyncWithContext(ctx)
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		if err == nil {
			return
		}

		if time.Since(start) > backoffMax {
			backoff = backoffMin
		}
		slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffMax)
	}
}

// Stop stops syncing and waits for the sync goroutine to exit.
func (c *Client) Stop() {
	c.stopped.Do(func() {
		close(c.stopCh)
		c.client.StopSync()
	})
	if c.started {
		<-c.done
	}
}

// SendMessage sends text to roomID with the keyboard rendered below it.
func (c *Client) SendMessage(ctx context.Context, roomID, text string, kb bot.Keyboard) error {
	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    Render(text, kb),
	}
	_, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendTyping shows the typing indicator in roomID. Sending a message clears
// it in most clients; otherwise it expires after a few seconds.
func (c *Client) SendTyping(ctx context.Context, roomID string) error {
	if _, err := c.client.UserTyping(ctx, id.RoomID(roomID), true, typingTimeout); err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// UserID returns the bot's Matrix ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	msg, ok := c.filter.message(evt)
	if !ok || c.handler == nil {
		return
	}
	c.handler(trace.WithTraceID(ctx, trace.GenerateID()), msg)
}

func (c *Client) handleMembership(ctx context.Context, evt *event.Event) {
	if !c.filter.invite(evt) {
		return
	}
	slog.Info("accepting room invite", "room", evt.RoomID, "inviter", evt.Sender)
	// Joining blocks the sync loop while retrying, so it runs on its own.
	go func() {
		if err := c.joinRoom(context.Background(), evt.RoomID); err != nil {
			slog.Warn("failed to accept invite", "room", evt.RoomID, "err", err)
		}
	}()
}

func (c *Client) joinRoom(ctx context.Context, roomID id.RoomID) error {
	return retry.Do(ctx, c.config.JoinRetry, func() error {
		_, err := c.client.JoinRoomByID(ctx, roomID)
		if err == nil {
			return nil
		}
		// M_FORBIDDEN: already a member or not allowed; retrying won't help.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		if errors.Is(err, mautrix.MNotFound) || errors.Is(err, mautrix.MUnknownToken) {
			return retry.Permanent(err)
		}
		return err
	})
}
