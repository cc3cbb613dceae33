// Package notes persists each user's ordered list of personal notes.
//
// Notes have no stable identifiers: a note's position is its 1-based index in
// the owner's insertion order, recomputed on every read. Deleting note 2
// renumbers the old note 3 to 2.
package notes

import (
	"context"
	"fmt"
)

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendJSON     Backend = "json"
	BackendPostgres Backend = "postgres"
)

// ParseBackend validates a configured backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendSQLite, BackendJSON, BackendPostgres:
		return b, nil
	case "":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown notes backend %q (want sqlite, json or postgres)", s)
	}
}

// Store is the per-owner note list.
//
// Implementations guarantee that concurrent Add and DeleteAt calls for the
// same owner never interleave into a corrupted list.
type Store interface {
	// Add appends text to the owner's list.
	Add(ctx context.Context, ownerID, text string) error
	// List returns the owner's notes in insertion order.
	List(ctx context.Context, ownerID string) ([]string, error)
	// DeleteAt removes the note at the 1-based position. A position that does
	// not exist is a no-op and returns nil.
	DeleteAt(ctx context.Context, ownerID string, pos int) error
	// Count returns how many notes the owner has.
	Count(ctx context.Context, ownerID string) (int, error)
}
