package rotation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store persists a StateSnapshot to a JSON file, writing atomically via a
// temp-file-then-rename so a crash mid-write never leaves a truncated file
// behind, the same discipline the teacher's playlist Store uses.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store backed by path, creating the parent directory if
// needed.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create rotation store directory %q: %w", dir, err)
	}
	return &Store{path: path}, nil
}

// Exists reports whether the store file is already present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save atomically writes the snapshot to disk.
func (s *Store) Save(snap StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jsonBytes, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rotation state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "rotation-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(jsonBytes); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file to %q: %w", s.path, err)
	}

	slog.Debug("rotation: state saved to disk", "path", s.path)
	return nil
}

// Load reads and decodes the snapshot from disk.
func (s *Store) Load() (StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return StateSnapshot{}, fmt.Errorf("failed to read rotation state %q: %w", s.path, err)
	}

	var snap StateSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return StateSnapshot{}, fmt.Errorf("failed to parse rotation state %q: %w", s.path, err)
	}
	return snap, nil
}
