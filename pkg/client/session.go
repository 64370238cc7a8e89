package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Session is what survives a restart: the bearer token and the profile that
// came with it.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SessionStore persists at most one session. Load returns nil, nil when none
// is stored.
type SessionStore interface {
	Load() (*Session, error)
	Save(Session) error
	Clear() error
}

// FileStore keeps the session as JSON in a file only the owner can read.
type FileStore struct {
	Path string
}

// Load treats an unreadable or corrupt file as no session.
func (s FileStore) Load() (*Session, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil || sess.Token == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s FileStore) Save(sess Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".session-*")
	if err != nil {
		return fmt.Errorf("session temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

func (s FileStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

type MemoryStore struct {
	mu   sync.Mutex
	sess *Session
}

func (m *MemoryStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	s := *m.sess
	return &s, nil
}

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	m.sess = &s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.sess = nil
	m.mu.Unlock()
	return nil
}
