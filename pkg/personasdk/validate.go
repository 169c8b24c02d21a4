package personasdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
)

// Verification is the outcome of ValidateToken.
type Verification string

const (
	// NotVerified means the token is unknown, expired or out of scope. It is
	// a routine outcome, not an error.
	NotVerified       Verification = ""
	VerifiedByCache   Verification = "verified_by_cache"
	VerifiedByPersona Verification = "verified_by_persona"
)

// Verified reports whether v is a positive outcome.
func (v Verification) Verified() bool { return v != NotVerified }

const (
	// AccessTokenParam is the query/form/cookie name carrying a token.
	AccessTokenParam = "access_token"

	validatedPrefix = "access_token:"
	validatedValue  = "OK"
	validatedTTL    = 60 * time.Second
)

// ValidateParams selects the token and scope to validate.
type ValidateParams struct {
	// AccessToken is validated when set; otherwise the token is taken from
	// the request.
	AccessToken string
	// Scope, when set, requires the token to carry it.
	Scope string
}

// ValidateToken checks a bearer token, first against the cache and then
// against Persona. A successful Persona check is cached for 60 seconds.
//
// r may be nil when params.AccessToken is set. The returned error is non-nil
// only for fatal conditions: no token could be found, or the cache could not
// be reached.
func (c *Client) ValidateToken(ctx context.Context, r *http.Request, params ValidateParams) (Verification, error) {
	token := params.AccessToken
	if token == "" {
		var err error
		if token, err = TokenFromRequest(r); err != nil {
			return NotVerified, err
		}
	}

	log := c.logger.With("token_fp", cryptox.FingerprintToken(token), "scope", params.Scope)

	key := validatedKey(token, params.Scope)
	reply, found, err := c.cache.Get(ctx, key)
	if err != nil {
		return NotVerified, fmt.Errorf("token cache lookup: %w", err)
	}
	if found && reply == validatedValue {
		log.DebugContext(ctx, "token.validate.cache_hit")
		return VerifiedByCache, nil
	}

	if !c.checkTokenIsValid(ctx, token, params.Scope) {
		log.InfoContext(ctx, "token.validate.rejected")
		return NotVerified, nil
	}

	if err := c.cache.Set(ctx, key, validatedValue); err != nil {
		return NotVerified, fmt.Errorf("token cache store: %w", err)
	}
	if err := c.cache.Expire(ctx, key, validatedTTL); err != nil {
		return NotVerified, fmt.Errorf("token cache expire: %w", err)
	}

	log.DebugContext(ctx, "token.validate.persona_ok")
	return VerifiedByPersona, nil
}

func validatedKey(token, scope string) string {
	if scope == "" {
		return validatedPrefix + token
	}
	return validatedPrefix + token + "@" + scope
}

// TokenFromRequest extracts a token from, in order: the Authorization Bearer
// header, the access_token query parameter and the access_token form field.
func TokenFromRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrNoTokenSupplied
	}

	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, rest, _ := strings.Cut(authz, " ")
		if strings.EqualFold(scheme, "Bearer") {
			token := strings.TrimSpace(rest)
			if token == "" || strings.ContainsAny(token, " \t") {
				return "", ErrMalformedAuthHeader
			}
			return token, nil
		}
	}

	if token := r.URL.Query().Get(AccessTokenParam); token != "" {
		return token, nil
	}

	if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
		if err := r.ParseForm(); err == nil {
			if token := r.PostForm.Get(AccessTokenParam); token != "" {
				return token, nil
			}
		}
	}

	return "", ErrNoTokenSupplied
}
