package app

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/presign"
)

// Backends accepted by TOKENCACHE_BACKEND and SESSION_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// minSessionSecret is the shortest SESSION_SECRET accepted.
const minSessionSecret = 32

type Config struct {
	Persona           personasdk.Config // PERSONA_HOST, PERSONA_OAUTH_ROUTE, TOKENCACHE_REDIS_*
	TokenCacheBackend string            // redis or memory (default: redis)

	Provider     string // Persona login provider, e.g. "google" (default: google)
	AppID        string // Required: Persona app id used for logins
	AppSecret    string // Required: shared secret Persona signs login payloads with
	ClientID     string // Optional: client credentials for /api/users
	ClientSecret string

	PublicBaseURL string // Scheme and host the demo is reached on (default: http://localhost:<port>)
	FilesDir      string // Directory served under /files/ (default: ./files)

	PresignSecret string        // Required: secret presigned links are signed with
	PresignExpiry time.Duration // Default link lifetime (default: 15m)

	SessionBackend       string        // memory, redis or sqlite (default: memory)
	SessionSecret        string        // Required: at least 32 bytes, seals session values
	SessionTTL           time.Duration // default: 24h
	SessionRedisAddr     string        // default: the token cache redis
	SessionRedisDB       int
	SessionDatabaseFile  string // default: ./sessions.db
	SessionCookieSecure  bool   // default: true
	HousekeepingInterval time.Duration

	Env                 string // dev, staging, prod (default: dev)
	LogLevel            string // default: info
	LogFormat           string // json or text (default: json)
	Port                int    // default: 8080
	ShutdownGracePeriod time.Duration
}

// LoadConfig reads the demo configuration from the environment and
// validates it.
func LoadConfig() (Config, error) {
	cfg := Config{
		TokenCacheBackend: getEnvOrDefault("TOKENCACHE_BACKEND", BackendRedis),

		Provider:     getEnvOrDefault("PERSONA_PROVIDER", "google"),
		AppID:        os.Getenv("PERSONA_APP_ID"),
		AppSecret:    os.Getenv("PERSONA_APP_SECRET"),
		ClientID:     os.Getenv("PERSONA_CLIENT_ID"),
		ClientSecret: os.Getenv("PERSONA_CLIENT_SECRET"),

		FilesDir: getEnvOrDefault("FILES_DIR", "files"),

		PresignSecret: os.Getenv("PRESIGN_SECRET"),
		PresignExpiry: getEnvDurationOrDefault("PRESIGN_EXPIRY", presign.DefaultExpiry),

		SessionBackend:       getEnvOrDefault("SESSION_BACKEND", BackendMemory),
		SessionSecret:        os.Getenv("SESSION_SECRET"),
		SessionTTL:           getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),
		SessionRedisAddr:     os.Getenv("SESSION_REDIS_ADDR"),
		SessionRedisDB:       getEnvIntOrDefault("SESSION_REDIS_DB", 0),
		SessionDatabaseFile:  getEnvOrDefault("SESSION_DATABASE_FILE", "sessions.db"),
		SessionCookieSecure:  getEnvBoolOrDefault("SESSION_COOKIE_SECURE", true),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 15*time.Minute),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
	cfg.PublicBaseURL = getEnvOrDefault("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))

	persona, err := personasdk.LoadConfigFromEnv()
	if err != nil {
		// The memory cache never dials redis, so its settings may be absent.
		var ce *personasdk.ConfigError
		if cfg.TokenCacheBackend != BackendMemory || !errors.As(err, &ce) || !onlyRedisKeys(ce.Missing) {
			return cfg, err
		}
		persona = withRedisPlaceholders(persona)
	}
	cfg.Persona = persona

	if cfg.SessionRedisAddr == "" && cfg.Persona.TokenCacheRedisHost != "" {
		cfg.SessionRedisAddr = fmt.Sprintf("%s:%d", cfg.Persona.TokenCacheRedisHost, cfg.Persona.TokenCacheRedisPort)
	}

	return cfg, cfg.Validate()
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if err := c.Persona.Validate(); err != nil {
		return err
	}

	switch {
	case c.AppID == "":
		return errors.New("PERSONA_APP_ID is required")
	case c.AppSecret == "":
		return errors.New("PERSONA_APP_SECRET is required")
	case c.PresignSecret == "":
		return errors.New("PRESIGN_SECRET is required")
	case len(c.SessionSecret) < minSessionSecret:
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecret)
	case !slices.Contains([]string{BackendMemory, BackendRedis}, c.TokenCacheBackend):
		return fmt.Errorf("unknown TOKENCACHE_BACKEND %q", c.TokenCacheBackend)
	case !slices.Contains([]string{BackendMemory, BackendRedis, BackendSQLite}, c.SessionBackend):
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	case c.SessionBackend == BackendRedis && c.SessionRedisAddr == "":
		return errors.New("SESSION_REDIS_ADDR is required for the redis session backend")
	}
	return nil
}

func onlyRedisKeys(missing []string) bool {
	for _, k := range missing {
		switch k {
		case personasdk.KeyTokenCacheRedisHost, personasdk.KeyTokenCacheRedisPort, personasdk.KeyTokenCacheRedisDB:
		default:
			return false
		}
	}
	return true
}

func withRedisPlaceholders(c personasdk.Config) personasdk.Config {
	if c.TokenCacheRedisHost == "" {
		c.TokenCacheRedisHost = "localhost"
	}
	if c.TokenCacheRedisPort == 0 {
		c.TokenCacheRedisPort = 6379
	}
	if c.TokenCacheRedisDB == nil {
		c.TokenCacheRedisDB = personasdk.Int(0)
	}
	return c
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return defaultValue
}
