// Package redis stores sessions in Redis so several relying-party processes
// can share them. Each session is one string key with a TTL:
//
//	<prefix><session id>  ->  encoded session blob
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/persona/pkg/sessionstore"
)

const DefaultKeyPrefix = "persona:session:"

// Store is a sessionstore.Backend over a go-redis client.
type Store struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

type Option func(*Store)

// WithKeyPrefix namespaces the session keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithClock overrides the clock used to turn expiry times into TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps client. The caller owns the client and closes it.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string { return s.prefix + id }

func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, sessionstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		return s.Delete(ctx, id)
	}
	if err := s.client.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
