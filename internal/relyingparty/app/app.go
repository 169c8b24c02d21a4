package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/persona/internal/relyingparty/http"
	"github.com/aussiebroadwan/persona/pkg/cryptox"
	"github.com/aussiebroadwan/persona/pkg/httpx"
	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/presign"
	"github.com/aussiebroadwan/persona/pkg/sessionstore"
	"github.com/aussiebroadwan/persona/pkg/sessionstore/drivers/memory"
	redisstore "github.com/aussiebroadwan/persona/pkg/sessionstore/drivers/redis"
	"github.com/aussiebroadwan/persona/pkg/sessionstore/drivers/sqlite"
	"github.com/aussiebroadwan/persona/pkg/slogx"
	"github.com/aussiebroadwan/persona/pkg/sso"
	"github.com/aussiebroadwan/persona/pkg/tokencache"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	sessionSealPurpose = "persona-demo-session"
)

// Application is the demo relying party with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	cache       tokencache.Cache
	persona     *personasdk.Client
	backend     sessionstore.Backend
	sessions    *sessionstore.Manager
	housekeeper *sessionstore.Housekeeper // nil when the backend expires on its own

	closers []func() error

	server *http.Server
	router *httpapi.Router
}

// Option adjusts an Application before its dependencies are built.
type Option func(*Application)

// WithLogger replaces the logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(app *Application) { app.logger = l }
}

// WithTokenCache replaces the cache selected by TOKENCACHE_BACKEND.
func WithTokenCache(c tokencache.Cache) Option {
	return func(app *Application) { app.cache = c }
}

// New builds the application. Nothing listens until Run.
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "persona-demo",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	applyRateLimitOverrides()

	if err := app.initTokenCache(); err != nil {
		return nil, err
	}
	if err := app.initPersona(); err != nil {
		app.closeAll()
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		app.closeAll()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the root handler, for tests and embedding.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.housekeeper != nil {
		app.housekeeper.Start()
	}

	app.logger.Info("persona demo starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"session_backend", app.cfg.SessionBackend,
		"token_cache", app.cfg.TokenCacheBackend,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the server, stops housekeeping and closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down persona demo...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeeper != nil {
		app.housekeeper.Stop()
	}

	err := app.closeAll()
	app.logger.Info("persona demo stopped")
	return err
}

// applyRateLimitOverrides lets RATELIMIT_<PROFILE>_* adjust the httpx
// profiles before any route captures them.
func applyRateLimitOverrides() {
	httpx.LoginLimit = httpx.RateLimitFromEnv("LOGIN", httpx.LoginLimit)
	httpx.APILimit = httpx.RateLimitFromEnv("API", httpx.APILimit)
	httpx.SignedURLLimit = httpx.RateLimitFromEnv("SIGNEDURL", httpx.SignedURLLimit)
	httpx.ProbeLimit = httpx.RateLimitFromEnv("PROBE", httpx.ProbeLimit)
}

func (app *Application) closeAll() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *Application) initTokenCache() error {
	if app.cache != nil {
		return nil
	}

	switch app.cfg.TokenCacheBackend {
	case BackendMemory:
		app.cache = tokencache.NewMemory()
	default:
		r := tokencache.NewRedis(tokencache.RedisConfig{
			Host: app.cfg.Persona.TokenCacheRedisHost,
			Port: app.cfg.Persona.TokenCacheRedisPort,
			DB:   *app.cfg.Persona.TokenCacheRedisDB,
		})
		app.cache = r
		app.closers = append(app.closers, r.Close)
	}
	return nil
}

func (app *Application) initPersona() error {
	client, err := personasdk.New(app.cfg.Persona,
		personasdk.WithCache(app.cache),
		personasdk.WithLogger(app.logger),
	)
	if err != nil {
		return fmt.Errorf("persona client: %w", err)
	}
	app.persona = client
	return nil
}

func (app *Application) initSessions() error {
	switch app.cfg.SessionBackend {
	case BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr: app.cfg.SessionRedisAddr,
			DB:   app.cfg.SessionRedisDB,
		})
		app.closers = append(app.closers, client.Close)
		app.backend = redisstore.New(client)

	case BackendSQLite:
		store, err := sqlite.NewStore(app.cfg.SessionDatabaseFile)
		if err != nil {
			return fmt.Errorf("open session database: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		if err := store.ApplyMigrations(); err != nil {
			return fmt.Errorf("apply session migrations: %w", err)
		}
		app.logger.Info("session migrations applied", "file", app.cfg.SessionDatabaseFile)
		app.backend = store

	default:
		app.backend = memory.New()
	}

	if sweeper, ok := app.backend.(sessionstore.Sweeper); ok {
		app.housekeeper = sessionstore.NewHousekeeper(sweeper, app.logger, app.cfg.HousekeepingInterval)
	}

	sealer, err := cryptox.NewSealer([]byte(app.cfg.SessionSecret), sessionSealPurpose)
	if err != nil {
		return fmt.Errorf("session sealer: %w", err)
	}

	app.sessions = sessionstore.NewManager(app.backend,
		sessionstore.WithSealer(sealer),
		sessionstore.WithTTL(app.cfg.SessionTTL),
		sessionstore.WithLogger(app.logger),
		sessionstore.WithCookie(sessionstore.CookieOptions{Secure: app.cfg.SessionCookieSecure}),
	)
	return nil
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(httpapi.Deps{
		Persona:  app.persona,
		Cache:    app.cache,
		SSO:      sso.New(app.cfg.Persona.PersonaHost, app.logger),
		Sessions: app.sessions,
		Files:    os.DirFS(app.cfg.FilesDir),
		Signer:   presign.Signer{DefaultExpiry: app.cfg.PresignExpiry},

		Login: sso.LoginRequest{
			Provider:  app.cfg.Provider,
			AppID:     app.cfg.AppID,
			AppSecret: app.cfg.AppSecret,
		},
		ClientID:      app.cfg.ClientID,
		ClientSecret:  app.cfg.ClientSecret,
		PublicBaseURL: app.cfg.PublicBaseURL,
		PresignSecret: app.cfg.PresignSecret,

		BuildVersion: BuildVersion,
		Logger:       app.logger,
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
