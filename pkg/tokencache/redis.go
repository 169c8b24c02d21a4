package tokencache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// RedisConfig addresses the token cache database.
type RedisConfig struct {
	Host string
	Port int
	DB   int

	Username string
	Password string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Redis is a Cache backed by a Redis database. The connection is established
// on first use and then reused for the life of the value. A failed connection
// attempt is not remembered; the next call dials again.
type Redis struct {
	cfg RedisConfig

	mu     sync.Mutex
	client redis.UniversalClient
	dial   func(RedisConfig) redis.UniversalClient
}

// NewRedis returns a lazily connecting Redis cache. No network activity
// happens until the first operation.
func NewRedis(cfg RedisConfig) *Redis {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Redis{cfg: cfg, dial: dialRedis}
}

// NewRedisWithClient wraps an existing client. Useful with miniredis.
func NewRedisWithClient(client redis.UniversalClient) *Redis {
	return &Redis{
		client: client,
		dial:   func(RedisConfig) redis.UniversalClient { return client },
	}
}

func dialRedis(cfg RedisConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		DB:           cfg.DB,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// conn returns the shared client, connecting on first use.
func (r *Redis) conn(ctx context.Context) (redis.UniversalClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client := r.dial(r.cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", ErrUnavailable, r.cfg.Addr(), err)
	}

	r.client = client
	return client, nil
}

// Get returns the value stored at key. redis.Nil is reported as not found.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	client, err := r.conn(ctx)
	if err != nil {
		return "", false, err
	}

	val, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get key %s: %w", ErrUnavailable, key, err)
	}
	return val, true, nil
}

// Set stores value at key without an expiry; callers follow up with Expire.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	client, err := r.conn(ctx)
	if err != nil {
		return err
	}

	if err := client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set key %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Expire sets a TTL on key. The TTL is rounded to whole seconds.
func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	client, err := r.conn(ctx)
	if err != nil {
		return err
	}

	if err := client.Expire(ctx, key, ttl.Round(time.Second)).Err(); err != nil {
		return fmt.Errorf("%w: expire key %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Ping connects if needed and checks the server responds.
func (r *Redis) Ping(ctx context.Context) error {
	client, err := r.conn(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

// Client exposes the underlying connection, connecting if needed.
func (r *Redis) Client(ctx context.Context) (redis.UniversalClient, error) {
	return r.conn(ctx)
}

// Close releases the connection if one was made.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
