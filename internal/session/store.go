// Package session holds the authenticated identity of the current user and
// persists it between runs.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aitteam/whm/internal/domain"
)

// StorageKey is the key the session is persisted under.
const StorageKey = "auth-storage"

// Store is the single source of truth for the current session. Every
// mutation is written through to storage before it returns.
type Store struct {
	storage Storage

	mu      sync.RWMutex
	current domain.Session
}

// persisted mirrors the stored document layout.
type persisted struct {
	State   domain.Session `json:"state"`
	Version int            `json:"version"`
}

// Open hydrates a Store from storage. A missing or unreadable entry yields
// an empty session.
func Open(storage Storage) (*Store, error) {
	s := &Store{storage: storage}
	raw, ok, err := storage.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if ok && raw != "" {
		var doc persisted
		if err := json.Unmarshal([]byte(raw), &doc); err == nil {
			s.current = doc.State
		}
	}
	return s, nil
}

// Set replaces every field at once.
func (s *Store) Set(sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(sess); err != nil {
		return err
	}
	s.current = sess
	return nil
}

// Clear resets the session to empty.
func (s *Store) Clear() error {
	return s.Set(domain.Session{})
}

func (s *Store) persist(sess domain.Session) error {
	data, err := json.Marshal(persisted{State: sess, Version: 0})
	if err != nil {
		return err
	}
	if err := s.storage.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Token() string { return s.Snapshot().Token }
func (s *Store) UserID() string { return s.Snapshot().UserID }
func (s *Store) UserName() string { return s.Snapshot().UserName }
func (s *Store) UserEmail() string { return s.Snapshot().UserEmail }
func (s *Store) LoginType() domain.LoginType { return s.Snapshot().LoginType }
func (s *Store) Authenticated() bool { return s.Snapshot().Authenticated() }
