package http

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/persona/pkg/httpx"
	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/presign"
	"github.com/aussiebroadwan/persona/pkg/sessionstore"
	"github.com/aussiebroadwan/persona/pkg/slogx"
	"github.com/aussiebroadwan/persona/pkg/sso"
	"github.com/aussiebroadwan/persona/pkg/tokencache"

	_ "github.com/aussiebroadwan/persona/api/relyingparty" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// PersonaClient is the subset of *personasdk.Client the handlers use.
type PersonaClient interface {
	httpx.TokenValidator
	ObtainNewToken(ctx context.Context, r *http.Request, clientID, clientSecret string, params personasdk.ObtainParams) (*personasdk.Token, error)
	GetUserByGupid(ctx context.Context, gupid, token string) (*personasdk.User, error)
}

// Deps are the collaborators the router is built from.
type Deps struct {
	Persona  PersonaClient
	Cache    tokencache.Cache
	SSO      *sso.Controller
	Sessions *sessionstore.Manager
	Files    fs.FS
	Signer   presign.Signer

	// Login is the handshake started by GET /login. RedirectURI defaults to
	// PublicBaseURL + CallbackPath.
	Login         sso.LoginRequest
	ClientID      string
	ClientSecret  string
	PublicBaseURL string
	PresignSecret string

	BuildVersion string
	Logger       *slog.Logger
}

const (
	LoginPath    = "/login"
	CallbackPath = "/auth/callback"
	MePath       = "/me"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	deps      Deps
	startTime time.Time
	logger    *slog.Logger
}

func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Login.RedirectURI == "" {
		deps.Login.RedirectURI = deps.PublicBaseURL + CallbackPath
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		deps:      deps,
		startTime: time.Now(),
		logger:    deps.Logger,
	}
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	r.registerSystem()
	r.registerSSO()
	r.registerAPI()
	r.registerFiles()
	r.Mux.Handle("/swagger/", httpSwagger.Handler())

	return r
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Persona Demo Relying Party
//	@version		0.1.0
//	@description	Example service using Persona for browser single sign-on, bearer token checks and presigned download links.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/persona
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Persona access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.deps.BuildVersion),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.deps.BuildVersion, r.deps.Cache, r.deps.Sessions.Backend()),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
}

func (r *Router) registerSSO() {
	h := &SSOHandler{
		SSO:   r.deps.SSO,
		Login: r.deps.Login,
	}
	sessions := r.deps.Sessions.LoadAndSave

	// Login and callback mint and burn nonces, so they share the strict limit.
	r.Mux.Handle("GET "+LoginPath,
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.LoginLimit),
			sessions,
		),
	)
	callback := httpx.Chain(http.HandlerFunc(h.HandleCallback),
		httpx.RateLimitByIP(httpx.LoginLimit),
		sessions,
	)
	r.Mux.Handle("POST "+CallbackPath, callback)
	r.Mux.Handle("GET "+CallbackPath, callback)

	r.Mux.Handle("GET "+MePath,
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			sessions,
			httpx.RequireLogin(r.deps.SSO, LoginPath),
		),
	)
	r.Mux.Handle("POST /logout",
		httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			h.HandleLogout(w, req, r.deps.PublicBaseURL+"/")
		}),
			sessions,
			httpx.RequireLogin(r.deps.SSO, LoginPath),
		),
	)
}

func (r *Router) registerAPI() {
	presignHandler := &PresignHandler{
		Signer:        r.deps.Signer,
		PublicBaseURL: r.deps.PublicBaseURL,
		Secret:        r.deps.PresignSecret,
	}
	r.Mux.Handle("POST /api/presign",
		httpx.Chain(presignHandler,
			httpx.RequireToken(r.deps.Persona, ""),
			httpx.RateLimitByToken(httpx.APILimit),
		),
	)

	usersHandler := &UsersHandler{
		Persona:      r.deps.Persona,
		ClientID:     r.deps.ClientID,
		ClientSecret: r.deps.ClientSecret,
	}
	r.Mux.Handle("GET /api/users/{gupid}",
		httpx.Chain(usersHandler,
			httpx.RequireToken(r.deps.Persona, ""),
			httpx.RateLimitByToken(httpx.APILimit),
		),
	)
}

func (r *Router) registerFiles() {
	r.Mux.Handle("GET /files/{name}",
		httpx.Chain(FilesHandler(r.deps.Files),
			httpx.RateLimitByIP(httpx.SignedURLLimit),
			httpx.RequireSignedURL(r.deps.Signer, r.deps.PublicBaseURL, r.deps.PresignSecret),
		),
	)
}
