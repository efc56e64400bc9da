package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"glasswing/internal/backend"
)

// TokenStore persists a session across process restarts.
type TokenStore interface {
	// Load returns the persisted session, or (nil, nil) when none exists.
	Load() (*backend.Session, error)
	Save(s *backend.Session) error
	Clear() error
}

// FileStore persists the session as a JSON file readable only by the
// owning user.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (*backend.Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var s backend.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *FileStore) Save(s *backend.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore is a TokenStore for tests and ephemeral sessions.
type MemoryStore struct {
	s *backend.Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*backend.Session, error) { return m.s, nil }
func (m *MemoryStore) Save(s *backend.Session) error   { m.s = s; return nil }
func (m *MemoryStore) Clear() error                    { m.s = nil; return nil }
