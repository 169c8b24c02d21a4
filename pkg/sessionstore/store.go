// Package sessionstore keeps per-browser key/value sessions behind an opaque
// cookie. It is the host-side collaborator of pkg/sso: a *Session satisfies
// sso.Session.
//
// Session data is serialised as JSON and, when the Manager is given a
// cryptox.Sealer, encrypted with the session id as additional data before it
// reaches a Backend. Backends therefore only ever see opaque blobs.
//
// Backends live under drivers/: memory for tests and single-process use,
// redis for shared deployments and sqlite for a durable single-node store.
package sessionstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Backend.Load for unknown or expired sessions.
var ErrNotFound = errors.New("sessionstore: not found")

// Backend persists encoded sessions.
type Backend interface {
	// Load returns the blob stored for id, or ErrNotFound.
	Load(ctx context.Context, id string) ([]byte, error)

	// Save stores data for id until expiresAt. An expiresAt that has already
	// passed removes the session.
	Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error

	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
