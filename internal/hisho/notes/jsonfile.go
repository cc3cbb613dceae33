package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// JSONFileStore keeps every owner's notes in one JSON object
// {"owner": ["text", ...]}. The file is reloaded on every read and fully
// rewritten on every write. A missing, unreadable or malformed file reads as
// an empty store; the next write replaces it.
type JSONFileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*JSONFileStore)(nil)

// NewJSONFileStore returns a Store persisted at path. The file is created on
// the first write.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

func (s *JSONFileStore) Add(_ context.Context, ownerID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	data[ownerID] = append(data[ownerID], text)
	return s.save(data)
}

func (s *JSONFileStore) List(_ context.Context, ownerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()[ownerID], nil
}

func (s *JSONFileStore) DeleteAt(_ context.Context, ownerID string, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	list := data[ownerID]
	if pos < 1 || pos > len(list) {
		return nil
	}
	list = append(list[:pos-1], list[pos:]...)
	if len(list) == 0 {
		delete(data, ownerID)
	} else {
		data[ownerID] = list
	}
	return s.save(data)
}

func (s *JSONFileStore) Count(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.load()[ownerID]), nil
}

// load must be called with mu held.
func (s *JSONFileStore) load() map[string][]string {
	data := make(map[string][]string)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("notes file unreadable; treating as empty", "path", s.path, "err", err)
		}
		return data
	}
	if len(raw) == 0 {
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("notes file malformed; treating as empty", "path", s.path, "err", err)
		return make(map[string][]string)
	}
	return data
}

// save writes to a temp file in the same directory and renames it over the
// target so readers never see a partial file. Must be called with mu held.
func (s *JSONFileStore) save(data map[string][]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".notes-*.json")
	if err != nil {
		return fmt.Errorf("create temp notes file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write notes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close notes: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace notes file: %w", err)
	}
	return nil
}
