package tokencache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/persona/pkg/tokencache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniredisCache(t *testing.T) (*tokencache.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := tokencache.NewRedisWithClient(client)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedis_GetSetExpire(t *testing.T) {
	t.Parallel()

	cache, mr := newMiniredisCache(t)
	ctx := t.Context()

	_, found, err := cache.Get(ctx, "access_token:abc@su")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.Set(ctx, "access_token:abc@su", "OK"))
	require.NoError(t, cache.Expire(ctx, "access_token:abc@su", 60*time.Second))
	require.Equal(t, 60*time.Second, mr.TTL("access_token:abc@su"))

	val, found, err := cache.Get(ctx, "access_token:abc@su")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "OK", val)

	mr.FastForward(61 * time.Second)
	_, found, err = cache.Get(ctx, "access_token:abc@su")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedis_LazyConnect(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	host, port := mr.Host(), mustAtoi(t, mr.Port())

	cache := tokencache.NewRedis(tokencache.RedisConfig{Host: host, Port: port, DB: 2})
	t.Cleanup(func() { _ = cache.Close() })

	// Constructing the cache must not dial.
	require.Equal(t, 0, mr.TotalConnectionCount())

	require.NoError(t, cache.Set(t.Context(), "k", "v"))
	require.NoError(t, cache.Set(t.Context(), "k2", "v2"))
	require.Equal(t, 1, mr.TotalConnectionCount(), "connection should be reused")

	mr.Select(2)
	require.True(t, mr.Exists("k"), "configured database index should be used")
}

func TestRedis_UnreachableIsFatal(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	host, port := mr.Host(), mustAtoi(t, mr.Port())
	mr.Close()

	cache := tokencache.NewRedis(tokencache.RedisConfig{
		Host:        host,
		Port:        port,
		DialTimeout: 200 * time.Millisecond,
	})

	_, found, err := cache.Get(t.Context(), "access_token:abc")
	require.Error(t, err)
	require.True(t, errors.Is(err, tokencache.ErrUnavailable))
	require.False(t, found)

	require.ErrorIs(t, cache.Ping(t.Context()), tokencache.ErrUnavailable)
}
