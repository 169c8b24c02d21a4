package sso_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
	"github.com/aussiebroadwan/persona/pkg/sso"
	"github.com/stretchr/testify/require"
)

const fullPayload = `{"token":{"access_token":"987","expires_in":1800,"token_type":"bearer","scope":["919191","su"]},` +
	`"guid":"123","gupid":["trapdoor:123"],` +
	`"profile":{"name":"Alex Murphy","email":"alexmurphy@detroit.pd"},` +
	`"redirect":"http:\/\/example.com\/wherever","state":"Tennessee"}`

func TestAuthenticate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		encoded string
	}{
		{"no payload", ""},
		{"not base64", "%%%not-base64%%%"},
		{"not json", encode("not json")},
		{"json array", encode(`["state","Tennessee"]`)},
		{"json scalar", encode(`"Tennessee"`)},
		{"missing state", encode(`{"test":"YouShallNotPass"}`)},
		{"null state", encode(`{"state":null}`)},
		{"non string state", encode(`{"state":42}`)},
		{"mismatched state", encode(sign(`{"state":"Kentucky"}`, testSecret))},
		{"missing signature", encode(`{"state":"Tennessee"}`)},
		{"signature by other secret", encode(sign(`{"state":"Tennessee"}`, "notmyappsecret"))},
		{"signature not hex", encode(`{"state":"Tennessee","signature":"zz"}`)},
		{"tampered member", encode(`{"state":"Tennessee","guid":"666","signature":"` +
			cryptox.SignString(`{"state":"Tennessee","guid":"123"}`, testSecret) + `"}`)},
		{"gupid wrong type", encode(sign(`{"state":"Tennessee","gupid":{"a":1}}`, testSecret))},
		{"profile non-empty list", encode(sign(`{"state":"Tennessee","profile":["name"]}`, testSecret))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t)
			sess := handshakeSession()

			require.False(t, c.Authenticate(callback(t, tt.encoded), sess))
			require.NotContains(t, sess, sso.KeyLoginSSO)
			require.False(t, c.IsLoggedIn(sess))
		})
	}
}

func TestAuthenticate_NoHandshake(t *testing.T) {
	t.Parallel()

	c := newController(t)
	sess := mapSession{}
	require.False(t, c.Authenticate(callback(t, encode(sign(`{"state":""}`, ""))), sess))
	require.False(t, c.Authenticate(callback(t, encode(sign(`{"state":"Tennessee"}`, testSecret))), sess))
	require.Empty(t, sess)
}

func TestAuthenticate_MinimalPayload(t *testing.T) {
	t.Parallel()

	c := newController(t)
	sess := handshakeSession()

	require.True(t, c.Authenticate(callback(t, encode(sign(`{"state":"Tennessee"}`, testSecret))), sess))

	require.Equal(t, testSecret, sess[sso.KeyLoginAppSecret])
	require.NotContains(t, sess, sso.KeyLoginState, "nonce is consumed")
	require.JSONEq(t,
		`{"token":null,"guid":null,"gupid":null,"profile":null,"redirect":null}`,
		sess[sso.KeyLoginSSO])
	require.True(t, c.IsLoggedIn(sess))
	require.Empty(t, c.GetPersistentID(sess))
	require.Empty(t, c.GetToken(sess))
	require.False(t, c.IsSuperUser(sess))
}

func TestAuthenticate_FullPayloadWithEscapedSlashes(t *testing.T) {
	t.Parallel()

	c := newController(t)
	sess := handshakeSession()

	require.True(t, c.Authenticate(callback(t, encode(sign(fullPayload, testSecret))), sess))

	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(sess[sso.KeyLoginSSO]), &stored))
	token := stored["token"].(map[string]any)
	require.Equal(t, "987", token["access_token"])
	require.EqualValues(t, 1800, token["expires_in"])
	require.Equal(t, "bearer", token["token_type"])
	require.Equal(t, "919191", token["scope"].([]any)[0])
	require.Equal(t, "123", stored["guid"])
	require.Equal(t, "trapdoor:123", stored["gupid"].([]any)[0])
	require.Equal(t, "http://example.com/wherever", stored["redirect"])

	require.Equal(t, "trapdoor:123", c.GetPersistentID(sess))
	require.Equal(t, "http://example.com/wherever", c.GetRedirectURL(sess))
	require.Equal(t, "987", c.GetToken(sess))
	require.Equal(t, []string{"919191", "su"}, c.GetScopes(sess))
	require.True(t, c.IsSuperUser(sess))
	require.Equal(t, "Alex Murphy", c.GetProfile(sess)["name"])
}

func TestAuthenticate_EmptyProfileList(t *testing.T) {
	t.Parallel()

	// PHP's json_encode(array()) emits [] for a user with no attributes.
	body := `{"gupid":["trapdoor:123"],"profile":[],"state":"Tennessee"}`

	c := newController(t)
	sess := handshakeSession()
	require.True(t, c.Authenticate(callback(t, encode(sign(body, testSecret))), sess))

	require.True(t, c.IsLoggedIn(sess))
	require.Equal(t, "trapdoor:123", c.GetPersistentID(sess))
	require.Nil(t, c.GetProfile(sess))
	require.JSONEq(t,
		`{"token":null,"guid":null,"gupid":["trapdoor:123"],"profile":null,"redirect":null}`,
		sess[sso.KeyLoginSSO])
}

func TestAuthenticate_SignatureMemberAnywhere(t *testing.T) {
	t.Parallel()

	body := `{"state":"Tennessee","guid":"123"}`
	sig := cryptox.SignString(body, testSecret)
	leading := `{"signature":"` + sig + `", "state":"Tennessee","guid":"123"}`

	c := newController(t)
	sess := handshakeSession()
	require.True(t, c.Authenticate(callback(t, encode(leading)), sess))
}

func TestAuthenticate_URLSafeBase64(t *testing.T) {
	t.Parallel()

	// A run of '~' always yields '+' in the standard alphabet.
	body := sign(`{"state":"Tennessee","profile":{"bio":"~~~~~~~~"}}`, testSecret)
	encoded := base64.URLEncoding.EncodeToString([]byte(body))
	require.NotEqual(t, encode(body), encoded)

	c := newController(t)
	sess := handshakeSession()
	require.True(t, c.Authenticate(callback(t, encoded), sess))
}

func TestAuthenticate_NonceIsSingleUse(t *testing.T) {
	t.Parallel()

	c := newController(t)
	sess := handshakeSession()
	encoded := encode(sign(`{"state":"Tennessee"}`, testSecret))

	require.True(t, c.Authenticate(callback(t, encoded), sess))
	delete(sess, sso.KeyLoginSSO)
	require.False(t, c.Authenticate(callback(t, encoded), sess), "replayed payload must fail")
}

func TestAuthenticate_FailedSignatureBurnsNonce(t *testing.T) {
	t.Parallel()

	c := newController(t)
	sess := handshakeSession()

	require.False(t, c.Authenticate(callback(t, encode(sign(`{"state":"Tennessee"}`, "guess"))), sess))
	require.NotContains(t, sess, sso.KeyLoginState)

	require.False(t, c.Authenticate(callback(t, encode(sign(`{"state":"Tennessee"}`, testSecret))), sess))
}

func TestAuthenticate_MismatchedStateKeepsNonce(t *testing.T) {
	t.Parallel()

	c := newController(t)
	sess := handshakeSession()

	require.False(t, c.Authenticate(callback(t, encode(sign(`{"state":"Kentucky"}`, testSecret))), sess))
	require.Equal(t, testState, sess[sso.KeyLoginState])

	require.True(t, c.Authenticate(callback(t, encode(sign(`{"state":"Tennessee"}`, testSecret))), sess))
}
