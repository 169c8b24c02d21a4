package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db DBTX
}

func newQueries(db DBTX) *queries { return &queries{db: db} }

const getSession = `
SELECT data FROM sessions
WHERE id = ? AND expires_at > ?
`

func (q *queries) GetSession(ctx context.Context, id string, nowMs int64) ([]byte, error) {
	var data []byte
	err := q.db.QueryRowContext(ctx, getSession, id, nowMs).Scan(&data)
	return data, err
}

const upsertSession = `
INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    data       = excluded.data,
    expires_at = excluded.expires_at,
    updated_at = excluded.updated_at
`

type upsertSessionParams struct {
	ID        string
	Data      []byte
	ExpiresAt int64
	Now       int64
}

func (q *queries) UpsertSession(ctx context.Context, arg upsertSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSession, arg.ID, arg.Data, arg.ExpiresAt, arg.Now, arg.Now)
	return err
}

const deleteSession = `DELETE FROM sessions WHERE id = ?`

func (q *queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= ?`

func (q *queries) DeleteExpiredSessions(ctx context.Context, nowMs int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions, nowMs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countSessions = `SELECT COUNT(*) FROM sessions`

func (q *queries) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countSessions).Scan(&n)
	return n, err
}
