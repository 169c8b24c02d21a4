package personasdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
)

const (
	obtainedPrefix = "obtain_token:"

	// obtainedTTLMargin is subtracted from a token's declared lifetime when
	// caching it, so a cached token is never handed out right before Persona
	// expires it.
	obtainedTTLMargin = 60 * time.Second
)

// ObtainParams tunes ObtainNewToken.
type ObtainParams struct {
	// Scope requests a scoped token. The cache is keyed by client credentials
	// only, so a cached token is returned whatever scope it was issued for.
	// Set SkipCache when one client needs tokens of different scopes.
	Scope string
	// SkipCache bypasses the token cache entirely: no lookup and no write.
	SkipCache bool
}

// ObtainNewToken returns a client-credentials token for clientID.
//
// If r carries a token cookie written earlier by this mechanism it is
// returned as-is (see trustedPreValidatedToken). Otherwise the token cache is
// consulted, and on a miss Persona issues a new token which is cached for its
// lifetime minus one minute.
func (c *Client) ObtainNewToken(
	ctx context.Context,
	r *http.Request,
	clientID, clientSecret string,
	params ObtainParams,
) (*Token, error) {
	if tok, ok := trustedPreValidatedToken(r); ok {
		return tok, nil
	}

	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	key := obtainedKey(clientID, clientSecret)
	log := c.logger.With("client_id", clientID, "scope", params.Scope)

	if !params.SkipCache {
		raw, found, err := c.cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("token cache lookup: %w", err)
		}
		if found {
			var tok Token
			if err := json.Unmarshal([]byte(raw), &tok); err == nil && tok.AccessToken != "" {
				log.DebugContext(ctx, "token.obtain.cache_hit")
				return &tok, nil
			}
			log.WarnContext(ctx, "token.obtain.cache_corrupt")
		}
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if params.Scope != "" {
		form.Set("scope", params.Scope)
	}

	tok, raw, err := c.requestToken(ctx, form)
	if err != nil {
		log.WarnContext(ctx, "token.obtain.failed", "err", err)
		return nil, err
	}
	log.InfoContext(ctx, "token.obtain.issued", "expires_in", int(tok.ExpiresIn))

	if !params.SkipCache {
		if err := c.cacheToken(ctx, key, raw, obtainedTTL(tok)); err != nil {
			return nil, err
		}
	}

	return tok, nil
}

// cacheToken stores the issued token body. A non-positive ttl means the token
// is too short lived to be worth caching.
func (c *Client) cacheToken(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.cache.Set(ctx, key, string(body)); err != nil {
		return fmt.Errorf("token cache store: %w", err)
	}
	if err := c.cache.Expire(ctx, key, ttl); err != nil {
		return fmt.Errorf("token cache expire: %w", err)
	}
	return nil
}

func obtainedTTL(tok *Token) time.Duration {
	return tok.ExpiresIn.Duration() - obtainedTTLMargin
}

func obtainedKey(clientID, clientSecret string) string {
	return obtainedPrefix + cryptox.SignString(clientID, clientSecret)
}

// trustedPreValidatedToken returns the token held in the request's
// access_token cookie. The cookie is trusted without verification: whoever
// wrote it (NewHeldTokenCookie) is assumed to have obtained the token from
// Persona. This is a convenience path and must not be used where the caller's
// identity matters; use ValidateToken for that.
func trustedPreValidatedToken(r *http.Request) (*Token, bool) {
	if r == nil {
		return nil, false
	}
	cookie, err := r.Cookie(AccessTokenParam)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil, false
	}

	var tok Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil || tok.AccessToken == "" {
		return nil, false
	}
	return &tok, true
}

// NewHeldTokenCookie encodes tok into the cookie read by ObtainNewToken.
func NewHeldTokenCookie(tok *Token) (*http.Cookie, error) {
	body, err := json.Marshal(tok)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     AccessTokenParam,
		Value:    url.QueryEscape(string(body)),
		Path:     "/",
		MaxAge:   int(tok.ExpiresIn),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
