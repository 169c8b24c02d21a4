package tokencache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-process Cache. It honours TTLs against Now and counts
// calls, which tests use to assert that a code path did or did not touch the
// cache.
type Memory struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]memEntry

	gets    atomic.Int64
	sets    atomic.Int64
	expires atomic.Int64
}

// NewMemory returns an empty in-process cache using the wall clock.
func NewMemory() *Memory {
	return &Memory{Now: time.Now, entries: make(map[string]memEntry)}
}

func (m *Memory) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.gets.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.sets.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: value}
	return nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.expires.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(m.entries, key)
		return nil
	}
	e.expiresAt = m.now().Add(ttl)
	m.entries[key] = e
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// TTL reports the remaining lifetime of key, or zero when it has none.
func (m *Memory) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.expiresAt.IsZero() {
		return 0
	}
	return e.expiresAt.Sub(m.now())
}

// Calls returns the number of Get, Set and Expire calls made so far.
func (m *Memory) Calls() (gets, sets, expires int64) {
	return m.gets.Load(), m.sets.Load(), m.expires.Load()
}
