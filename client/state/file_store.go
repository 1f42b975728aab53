package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the snapshot in a single JSON file, written
// atomically via a temp file and rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		// Absent storage is the normal first-run case.
		return State{}, nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		// Corrupt storage degrades to an anonymous session.
		return State{}, nil
	}
	return st, nil
}

func (f *FileStore) Save(st State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// MemStore is the in-memory Store used in tests.
type MemStore struct {
	mu sync.Mutex
	st State
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st, nil
}

func (m *MemStore) Save(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = st
	return nil
}
