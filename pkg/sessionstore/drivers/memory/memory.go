// Package memory is an in-process sessionstore.Backend. Sessions do not
// survive a restart and are not shared between processes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/persona/pkg/sessionstore"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Store keeps sessions in a map. Expired entries are dropped when read or by
// DeleteExpired.
type Store struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func New() *Store {
	return &Store{Now: time.Now, entries: make(map[string]entry)}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Store) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, sessionstore.ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return nil, sessionstore.ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (s *Store) Save(_ context.Context, id string, data []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.now().Before(expiresAt) {
		delete(s.entries, id)
		return nil
	}
	s.entries[id] = entry{data: append([]byte(nil), data...), expiresAt: expiresAt}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// DeleteExpired drops expired sessions and returns how many were removed.
func (s *Store) DeleteExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
