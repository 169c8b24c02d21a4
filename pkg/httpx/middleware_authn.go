package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/slogx"
)

// TokenValidator is the subset of *personasdk.Client RequireToken needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, r *http.Request, params personasdk.ValidateParams) (personasdk.Verification, error)
}

// RequireToken lets a request through only when it carries a bearer token
// Persona vouches for, optionally with scope. The token may come from the
// Authorization header, the access_token query parameter or form field.
//
// A missing or malformed token is 400, an invalid one 401, both with an
// RFC 6750 WWW-Authenticate header. A token cache outage is 503.
func RequireToken(v TokenValidator, scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			token, err := personasdk.TokenFromRequest(r)
			if err != nil {
				writeBearerError(w, http.StatusBadRequest, "invalid_request", err.Error(), scope)
				return
			}

			verified, err := v.ValidateToken(ctx, r, personasdk.ValidateParams{AccessToken: token, Scope: scope})
			if err != nil {
				log.ErrorContext(ctx, "token validation unavailable", "err", err)
				WriteError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "token validation is unavailable")
				return
			}
			if !verified.Verified() {
				log.InfoContext(ctx, "bearer token rejected", "token_fp", cryptox.FingerprintToken(token), "scope", scope)
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "token is invalid, expired or lacks the required scope", scope)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithToken(ctx, token, verified)))
		})
	}
}

// writeBearerError writes an RFC 6750 error.
func writeBearerError(w http.ResponseWriter, code int, errCode, desc, scope string) {
	var b strings.Builder
	b.WriteString(`Bearer error="`)
	b.WriteString(errCode)
	b.WriteString(`", error_description="`)
	b.WriteString(strings.ReplaceAll(desc, `"`, `'`))
	b.WriteString(`"`)
	if scope != "" {
		b.WriteString(`, scope="`)
		b.WriteString(scope)
		b.WriteString(`"`)
	}
	w.Header().Set("WWW-Authenticate", b.String())
	WriteError(w, code, errCode, desc)
}
