package sso_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
	"github.com/aussiebroadwan/persona/pkg/sso"
)

const (
	testHost   = "https://persona.example"
	testState  = "Tennessee"
	testSecret = "appsecret"
)

// mapSession is the simplest possible sso.Session.
type mapSession map[string]string

func (m mapSession) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}
func (m mapSession) Set(key, value string) { m[key] = value }
func (m mapSession) Delete(key string)     { delete(m, key) }

func newController(t *testing.T) *sso.Controller {
	t.Helper()
	c := sso.New(testHost, nil)
	c.NewNonce = func() (string, error) { return testState, nil }
	return c
}

// handshakeSession returns a session as RequireAuth would leave it.
func handshakeSession() mapSession {
	return mapSession{
		sso.KeyLoginProvider:  "trapdoor",
		sso.KeyLoginAppID:     "myapp",
		sso.KeyLoginAppSecret: testSecret,
		sso.KeyLoginState:     testState,
	}
}

// sign appends a signature member to body, which must be a compact JSON
// object, the way the Persona server builds its payloads.
func sign(body, secret string) string {
	sig := cryptox.SignString(body, secret)
	if body == "{}" {
		return `{"signature":"` + sig + `"}`
	}
	return strings.TrimSuffix(body, "}") + `,"signature":"` + sig + `"}`
}

func encode(body string) string {
	return base64.StdEncoding.EncodeToString([]byte(body))
}

func callback(t *testing.T, encoded string) *http.Request {
	t.Helper()
	form := url.Values{}
	if encoded != "" {
		form.Set(sso.PayloadParam, encoded)
	}
	r := httptest.NewRequest(http.MethodPost, "/auth/callback", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}
