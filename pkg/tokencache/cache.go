// Package tokencache is the key-value gateway used to memoize token
// verifications and issued client-credential tokens.
//
// A missing key is reported as found=false with a nil error. Any error from a
// Cache means the store could not be consulted; callers must not treat it as
// a miss, otherwise an unreachable cache would look like an unverified token
// rather than an outage.
package tokencache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable reports that the backing store could not be reached.
var ErrUnavailable = errors.New("tokencache: store unavailable")

// Cache is the get/set/expire contract shared by all backends.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Pinger is implemented by caches that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
