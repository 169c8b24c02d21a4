// Package sso runs the Persona federated-login handshake for a relying party.
//
// The flow is:
//
//  1. RequireAuth stores a fresh state nonce and the app credentials in the
//     caller's session, then redirects the browser to Persona's provider login.
//  2. Persona sends the browser back with a signed "persona:payload" form
//     value.
//  3. Authenticate checks the payload's state against the stored nonce and its
//     HMAC signature against the stored app secret. Only then is the login
//     recorded in the session.
//
// The session is supplied by the host application through the Session
// interface; see pkg/sessionstore for a cookie-bound implementation.
package sso

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
)

// Session keys. The values are compatible with sessions written by other
// Persona clients.
const (
	KeyLoginProvider    = "PERSONA:loginProvider"
	KeyLoginAppID       = "PERSONA:loginAppId"
	KeyLoginAppSecret   = "PERSONA:loginAppSecret"
	KeyLoginRedirectURI = "PERSONA:loginRedirectUri"
	KeyLoginState       = "PERSONA:loginState"
	KeyLoginSSO         = "PERSONA:loginSSO"
)

var allKeys = []string{
	KeyLoginProvider,
	KeyLoginAppID,
	KeyLoginAppSecret,
	KeyLoginRedirectURI,
	KeyLoginState,
	KeyLoginSSO,
}

// PayloadParam is the form field Persona posts the signed login payload in.
const PayloadParam = "persona:payload"

// Session is the per-browser key/value store the handshake lives in.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

var (
	ErrInvalidProvider    = errors.New("Invalid provider")
	ErrInvalidAppID       = errors.New("Invalid appId")
	ErrInvalidAppSecret   = errors.New("Invalid appSecret")
	ErrInvalidRedirectURI = errors.New("Invalid redirectUri")
	ErrNoPersonaHost      = errors.New("sso: Persona host not configured")
)

// MissingArgumentError reports a required RequireAuth argument that was left
// empty. Position is 1-based: provider, appId, appSecret.
type MissingArgumentError struct {
	Position int
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("Missing argument %d for RequireAuth()", e.Position)
}

// Controller drives the handshake against one Persona host.
type Controller struct {
	// PersonaHost is the base URL of Persona, e.g. "https://persona.example".
	PersonaHost string
	Logger      *slog.Logger
	// NewNonce generates handshake state values. Defaults to 128 random bits.
	NewNonce func() (string, error)
}

// New returns a Controller for host.
func New(host string, logger *slog.Logger) *Controller {
	return &Controller{PersonaHost: host, Logger: logger}
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Controller) nonce() (string, error) {
	if c.NewNonce != nil {
		return c.NewNonce()
	}
	return cryptox.GenerateToken(cryptox.TokenSize128)
}

func (c *Controller) host() (string, error) {
	h := strings.TrimSuffix(c.PersonaHost, "/")
	if h == "" {
		return "", ErrNoPersonaHost
	}
	return h, nil
}
