package notes

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore keeps notes as rows of the notes table in the bot database.
// The table is created by the store package migrations.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore returns a Store backed by db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Add(ctx context.Context, ownerID, text string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (owner_id, text) VALUES (?, ?)", ownerID, text)
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT text FROM notes WHERE owner_id = ? ORDER BY id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

// DeleteAt resolves the position and deletes the row in one statement, so a
// concurrent Add cannot shift the target in between.
func (s *SQLiteStore) DeleteAt(ctx context.Context, ownerID string, pos int) error {
	if pos < 1 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notes WHERE id = (
			SELECT id FROM notes WHERE owner_id = ? ORDER BY id LIMIT 1 OFFSET ?
		)
	`, ownerID, pos-1)
	if err != nil {
		return fmt.Errorf("delete note %d: %w", pos, err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notes WHERE owner_id = ?", ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}
