package personasdk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Config identifies the Persona deployment and the token cache. Every field
// is required.
type Config struct {
	// PersonaHost is the scheme and host of the Persona service,
	// e.g. "https://users.example.com".
	PersonaHost string
	// PersonaOAuthRoute is the token route, e.g. "/oauth/tokens". Tokens are
	// introspected at <host><route>/<token> and issued at <host><route>.
	PersonaOAuthRoute string

	TokenCacheRedisHost string
	TokenCacheRedisPort int
	// TokenCacheRedisDB is a pointer because 0 is a valid database index.
	TokenCacheRedisDB *int
}

// Config keys in the order they are reported when missing.
const (
	KeyPersonaHost         = "persona_host"
	KeyPersonaOAuthRoute   = "persona_oauth_route"
	KeyTokenCacheRedisHost = "tokencache_redis_host"
	KeyTokenCacheRedisPort = "tokencache_redis_port"
	KeyTokenCacheRedisDB   = "tokencache_redis_db"
)

// ConfigError lists the required config keys that had no value.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "Config provided does not contain values for: " + strings.Join(e.Missing, ",")
}

// Validate checks that every required field is present.
func (c Config) Validate() error {
	var missing []string
	if c.PersonaHost == "" {
		missing = append(missing, KeyPersonaHost)
	}
	if c.PersonaOAuthRoute == "" {
		missing = append(missing, KeyPersonaOAuthRoute)
	}
	if c.TokenCacheRedisHost == "" {
		missing = append(missing, KeyTokenCacheRedisHost)
	}
	if c.TokenCacheRedisPort == 0 {
		missing = append(missing, KeyTokenCacheRedisPort)
	}
	if c.TokenCacheRedisDB == nil {
		missing = append(missing, KeyTokenCacheRedisDB)
	}

	switch len(missing) {
	case 0:
		return nil
	case 5:
		return ErrNoConfig
	default:
		return &ConfigError{Missing: missing}
	}
}

// Int returns a pointer to v, for TokenCacheRedisDB literals.
func Int(v int) *int { return &v }

type envConfig struct {
	PersonaHost         string `env:"PERSONA_HOST"`
	PersonaOAuthRoute   string `env:"PERSONA_OAUTH_ROUTE"`
	TokenCacheRedisHost string `env:"TOKENCACHE_REDIS_HOST"`
	TokenCacheRedisPort string `env:"TOKENCACHE_REDIS_PORT"`
	TokenCacheRedisDB   string `env:"TOKENCACHE_REDIS_DB"`
}

// LoadConfigFromEnv reads the client configuration from PERSONA_HOST,
// PERSONA_OAUTH_ROUTE, TOKENCACHE_REDIS_HOST, TOKENCACHE_REDIS_PORT and
// TOKENCACHE_REDIS_DB. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	var env envConfig
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode persona env config: %w", err)
	}

	cfg := Config{
		PersonaHost:         env.PersonaHost,
		PersonaOAuthRoute:   env.PersonaOAuthRoute,
		TokenCacheRedisHost: env.TokenCacheRedisHost,
	}

	if env.TokenCacheRedisPort != "" {
		port, err := strconv.Atoi(env.TokenCacheRedisPort)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOKENCACHE_REDIS_PORT %q: %w", env.TokenCacheRedisPort, err)
		}
		cfg.TokenCacheRedisPort = port
	}
	if env.TokenCacheRedisDB != "" {
		db, err := strconv.Atoi(env.TokenCacheRedisDB)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOKENCACHE_REDIS_DB %q: %w", env.TokenCacheRedisDB, err)
		}
		cfg.TokenCacheRedisDB = &db
	}

	return cfg, cfg.Validate()
}
