package personasdk

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/persona/pkg/tokencache"
)

// RemoteTimeout bounds every outbound call to Persona.
const RemoteTimeout = 30 * time.Second

// Client validates and obtains Persona tokens and looks up users. It is safe
// for concurrent use.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	cache      tokencache.Cache
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is forced to
// RemoteTimeout when unset.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache replaces the Redis token cache built from Config.
func WithCache(cache tokencache.Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRateLimit throttles outbound calls to Persona to r per second with the
// given burst. Callers block under their context until a slot is free.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// New validates cfg and returns a Client. Unless WithCache is given the
// client uses a lazily connected Redis cache, so New never touches the
// network.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.PersonaHost, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: RemoteTimeout}
	} else if c.httpClient.Timeout == 0 {
		hc := *c.httpClient
		hc.Timeout = RemoteTimeout
		c.httpClient = &hc
	}
	if c.cache == nil {
		c.cache = tokencache.NewRedis(tokencache.RedisConfig{
			Host: cfg.TokenCacheRedisHost,
			Port: cfg.TokenCacheRedisPort,
			DB:   *cfg.TokenCacheRedisDB,
		})
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

// Cache returns the token cache in use.
func (c *Client) Cache() tokencache.Cache { return c.cache }

// Host returns the Persona base URL without a trailing slash.
func (c *Client) Host() string { return c.baseURL }
