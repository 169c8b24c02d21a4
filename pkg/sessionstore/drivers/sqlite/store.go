// Package sqlite is a durable single-node sessionstore.Backend on
// modernc.org/sqlite. Expired rows are ignored on read and removed by
// DeleteExpired, which sessionstore.Housekeeper calls periodically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/persona/pkg/sessionstore"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	q   *queries
	dsn string
	now func() time.Time
}

// NewStore opens dsn (a file path or "file::memory:?cache=shared"). Call
// ApplyMigrations before use.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   newQueries(db),
		dsn: dsn,
		now: time.Now,
	}, nil
}

// SetClock overrides the clock used for expiry checks.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := s.q.GetSession(ctx, id, s.now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sessionstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error {
	now := s.now()
	if !now.Before(expiresAt) {
		return s.q.DeleteSession(ctx, id)
	}
	return s.q.UpsertSession(ctx, upsertSessionParams{
		ID:        id,
		Data:      data,
		ExpiresAt: expiresAt.UnixMilli(),
		Now:       now.UnixMilli(),
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.q.DeleteSession(ctx, id)
}

// DeleteExpired removes every expired row.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	return s.q.DeleteExpiredSessions(ctx, s.now().UnixMilli())
}

// Count returns the number of stored rows, expired ones included.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.q.CountSessions(ctx)
}
