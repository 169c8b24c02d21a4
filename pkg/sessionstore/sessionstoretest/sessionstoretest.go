// Package sessionstoretest is a conformance suite for sessionstore.Backend
// implementations.
package sessionstoretest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/persona/pkg/sessionstore"
)

// BackendFactory returns a fresh, empty backend.
type BackendFactory func(t *testing.T) sessionstore.Backend

// RunBackendTests runs the suite against backends built by factory.
func RunBackendTests(t *testing.T, factory BackendFactory) {
	t.Run("LoadUnknown", func(t *testing.T) { testLoadUnknown(t, factory) })
	t.Run("SaveAndLoad", func(t *testing.T) { testSaveAndLoad(t, factory) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory) })
	t.Run("PastExpiryRemoves", func(t *testing.T) { testPastExpiryRemoves(t, factory) })
	t.Run("Isolation", func(t *testing.T) { testIsolation(t, factory) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, factory(t).Ping(context.Background())) })
}

func later() time.Time { return time.Now().Add(time.Hour) }

func testLoadUnknown(t *testing.T, factory BackendFactory) {
	b := factory(t)
	_, err := b.Load(context.Background(), "nope")
	require.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func testSaveAndLoad(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()

	blob := []byte{0x00, 0xff, '{', '}', 0x10}
	require.NoError(t, b.Save(ctx, "sid-1", blob, later()))

	got, err := b.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, blob, got)
}

func testOverwrite(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "sid-1", []byte("one"), later()))
	require.NoError(t, b.Save(ctx, "sid-1", []byte("two"), later()))

	got, err := b.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, []byte("two"), got)
}

func testDelete(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "sid-1", []byte("x"), later()))
	require.NoError(t, b.Delete(ctx, "sid-1"))
	_, err := b.Load(ctx, "sid-1")
	require.ErrorIs(t, err, sessionstore.ErrNotFound)

	require.NoError(t, b.Delete(ctx, "never-existed"))
}

func testPastExpiryRemoves(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "sid-1", []byte("x"), later()))
	require.NoError(t, b.Save(ctx, "sid-1", []byte("y"), time.Now().Add(-time.Minute)))

	_, err := b.Load(ctx, "sid-1")
	require.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func testIsolation(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "a", []byte("alpha"), later()))
	require.NoError(t, b.Save(ctx, "b", []byte("beta"), later()))
	require.NoError(t, b.Delete(ctx, "a"))

	got, err := b.Load(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []byte("beta"), got)
}
