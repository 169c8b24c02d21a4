package httpx

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/persona/pkg/sessionstore"
	"github.com/aussiebroadwan/persona/pkg/sso"
)

// SessionAuthorizer is the subset of *sso.Controller the session gates need.
type SessionAuthorizer interface {
	IsLoggedIn(sess sso.Session) bool
	GetScopes(sess sso.Session) []string
}

// RequireLogin admits requests whose session (see sessionstore.LoadAndSave)
// holds a Persona login. Browsers making GET or HEAD requests are redirected
// to loginPath with the original URI in "next"; anything else gets 401.
func RequireLogin(a SessionAuthorizer, loginPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess := sessionstore.FromContext(r.Context()); sess != nil && a.IsLoggedIn(sess) {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			WriteError(w, http.StatusUnauthorized, "login_required", "a Persona login is required")
		})
	}
}

// RequireSessionScopes admits logged in sessions whose login token carries
// every scope listed.
func RequireSessionScopes(a SessionAuthorizer, required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionstore.FromContext(r.Context())
			if sess == nil || !a.IsLoggedIn(sess) {
				WriteError(w, http.StatusUnauthorized, "login_required", "a Persona login is required")
				return
			}

			have := make(map[string]struct{})
			for _, s := range a.GetScopes(sess) {
				have[s] = struct{}{}
			}
			for _, s := range required {
				if _, ok := have[s]; !ok {
					writeScopeError(w, required...)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750 insufficient_scope.
func writeScopeError(w http.ResponseWriter, required ...string) {
	scope := strings.Join(required, " ")
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
	WriteError(w, http.StatusForbidden, "insufficient_scope", "requires scope: "+scope)
}
