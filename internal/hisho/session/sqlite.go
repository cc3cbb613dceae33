package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLBacking stores states in the sessions table of the bot database.
type SQLBacking struct {
	db *sql.DB
}

var _ Backing = (*SQLBacking)(nil)

// NewSQLBacking returns a Backing over db. The sessions table must exist.
func NewSQLBacking(db *sql.DB) *SQLBacking {
	return &SQLBacking{db: db}
}

func (b *SQLBacking) LoadAll(ctx context.Context) ([]State, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT user_id, mode, ai_history, last_seen FROM sessions")
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []State
	for rows.Next() {
		var (
			st       State
			mode     int
			history  string
			lastSeen int64
		)
		if err := rows.Scan(&st.UserID, &mode, &history, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal([]byte(history), &st.AIHistory); err != nil {
			return nil, fmt.Errorf("decode history of %s: %w", st.UserID, err)
		}
		st.Mode = Mode(mode)
		st.LastSeen = time.UnixMilli(lastSeen)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (b *SQLBacking) Save(ctx context.Context, st State) error {
	history := st.AIHistory
	if history == nil {
		history = []Turn{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, mode, ai_history, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			mode = excluded.mode,
			ai_history = excluded.ai_history,
			last_seen = excluded.last_seen`,
		st.UserID, int(st.Mode), string(raw), st.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (b *SQLBacking) Delete(ctx context.Context, userID string) error {
	if _, err := b.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
