package sso

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// LoginRequest names the provider and app a login is started for.
type LoginRequest struct {
	Provider  string
	AppID     string
	AppSecret string
	// RedirectURI is optional. Persona sends the browser there after login.
	RedirectURI string
}

var providerPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func (lr LoginRequest) validate() error {
	for i, v := range []string{lr.Provider, lr.AppID, lr.AppSecret} {
		if v == "" {
			return &MissingArgumentError{Position: i + 1}
		}
	}

	if !providerPattern.MatchString(lr.Provider) {
		return ErrInvalidProvider
	}
	if hasControl(lr.AppID) {
		return ErrInvalidAppID
	}
	if hasControl(lr.AppSecret) {
		return ErrInvalidAppSecret
	}

	if lr.RedirectURI != "" {
		u, err := url.Parse(lr.RedirectURI)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidRedirectURI
		}
	}
	return nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// RequireAuth makes sure the session is logged in. When it is not, a new
// handshake is stored in sess and the browser is redirected to Persona; the
// caller must save the session and stop handling the request.
//
// It reports whether a redirect was written.
func (c *Controller) RequireAuth(w http.ResponseWriter, r *http.Request, sess Session, lr LoginRequest) (bool, error) {
	if err := lr.validate(); err != nil {
		return false, err
	}

	if c.IsLoggedIn(sess) {
		return false, nil
	}

	host, err := c.host()
	if err != nil {
		return false, err
	}

	state, err := c.nonce()
	if err != nil {
		return false, fmt.Errorf("sso: generate state: %w", err)
	}

	sess.Set(KeyLoginProvider, lr.Provider)
	sess.Set(KeyLoginAppID, lr.AppID)
	sess.Set(KeyLoginAppSecret, lr.AppSecret)
	if lr.RedirectURI != "" {
		sess.Set(KeyLoginRedirectURI, lr.RedirectURI)
	} else {
		sess.Delete(KeyLoginRedirectURI)
	}
	sess.Set(KeyLoginState, state)

	c.logger().InfoContext(r.Context(), "sso.login.redirect",
		"provider", lr.Provider,
		"app_id", lr.AppID,
	)

	http.Redirect(w, r, loginURL(host, lr, state), http.StatusFound)
	return true, nil
}

func loginURL(host string, lr LoginRequest, state string) string {
	var b strings.Builder
	b.WriteString(host)
	b.WriteString("/auth/providers/")
	b.WriteString(lr.Provider)
	b.WriteString("/login?app=")
	b.WriteString(url.QueryEscape(lr.AppID))
	b.WriteString("&state=")
	b.WriteString(url.QueryEscape(state))
	if lr.RedirectURI != "" {
		b.WriteString("&redirectUri=")
		b.WriteString(url.QueryEscape(lr.RedirectURI))
	}
	return b.String()
}
