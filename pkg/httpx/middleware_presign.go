package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/persona/pkg/presign"
	"github.com/aussiebroadwan/persona/pkg/slogx"
)

// SignedURLVerifier checks a presigned URL. presign.Signer satisfies it.
type SignedURLVerifier interface {
	IsValid(signedURL, secret string) bool
}

// RequireSignedURL admits requests whose URL was produced by presign with
// secret. publicBase is the scheme and host the URL was signed for, e.g.
// "https://files.example"; the request URI is appended to it before
// verification, so it must match what the client was handed exactly.
//
// A nil verifier uses presign.IsValid.
func RequireSignedURL(v SignedURLVerifier, publicBase, secret string) Middleware {
	base := strings.TrimSuffix(publicBase, "/")
	check := presign.IsValid
	if v != nil {
		check = v.IsValid
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !check(base+r.URL.RequestURI(), secret) {
				slogx.FromContext(r.Context()).InfoContext(r.Context(), "signed url rejected", "path", r.URL.Path)
				WriteError(w, http.StatusForbidden, "invalid_signature", "the link is invalid or has expired")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
