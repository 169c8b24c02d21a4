package sso

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
	"github.com/aussiebroadwan/persona/pkg/personasdk"
)

// Login is the established SSO session stored under KeyLoginSSO. Members the
// payload did not carry are stored as JSON null.
type Login struct {
	Token    *personasdk.Token `json:"token"`
	GUID     *string           `json:"guid"`
	GUPID    []string          `json:"gupid"`
	Profile  Profile           `json:"profile"`
	Redirect *string           `json:"redirect"`
}

// Profile is the user's profile attributes. An empty JSON array decodes as no
// profile, since PHP encodes an empty attribute list as [].
type Profile map[string]any

func (p *Profile) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null", "[]":
		*p = nil
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*p = m
	return nil
}

// Authenticate verifies the Persona login callback carried by r and, when it
// checks out, records the login in sess. It never returns an error: any
// payload that is missing, malformed, replayed or forged yields false.
//
// The stored nonce is single use. It is removed as soon as a payload presents
// the matching state, whether or not the rest of the payload verifies.
func (c *Controller) Authenticate(r *http.Request, sess Session) bool {
	ctx := r.Context()
	log := c.logger()

	encoded := r.FormValue(PayloadParam)
	if encoded == "" {
		log.DebugContext(ctx, "sso.authenticate.no_payload")
		return false
	}

	p, err := decodePayload(encoded)
	if err != nil {
		log.InfoContext(ctx, "sso.authenticate.bad_payload", "err", err)
		return false
	}

	state, ok := p.State.str()
	if !ok {
		log.InfoContext(ctx, "sso.authenticate.missing_state")
		return false
	}
	expected, ok := sess.Get(KeyLoginState)
	if !ok || expected == "" || state != expected {
		log.WarnContext(ctx, "sso.authenticate.state_mismatch")
		return false
	}

	// From here on the nonce has been presented and is burned whatever the
	// outcome.
	sess.Delete(KeyLoginState)

	signature, ok := p.Signature.str()
	if !ok {
		log.WarnContext(ctx, "sso.authenticate.missing_signature")
		return false
	}

	secret, _ := sess.Get(KeyLoginAppSecret)
	content, err := p.signedContent()
	if err != nil || !cryptox.Verify(content, []byte(secret), signature) {
		log.WarnContext(ctx, "sso.authenticate.bad_signature")
		return false
	}

	login, err := p.login()
	if err != nil {
		log.WarnContext(ctx, "sso.authenticate.bad_members", "err", err)
		return false
	}

	encodedLogin, err := json.Marshal(login)
	if err != nil {
		log.ErrorContext(ctx, "sso.authenticate.encode", "err", err)
		return false
	}
	sess.Set(KeyLoginSSO, string(encodedLogin))

	log.InfoContext(ctx, "sso.authenticate.ok", "gupid", firstOr(login.GUPID, ""))
	return true
}

// login converts the optional members into a Login, rejecting members of the
// wrong JSON type.
func (p *payload) login() (*Login, error) {
	var l Login
	if p.Token.present {
		l.Token = new(personasdk.Token)
		if err := json.Unmarshal(p.Token.raw, l.Token); err != nil {
			return nil, err
		}
	}
	if p.GUID.present {
		if err := json.Unmarshal(p.GUID.raw, &l.GUID); err != nil {
			return nil, err
		}
	}
	if p.GUPID.present {
		if err := json.Unmarshal(p.GUPID.raw, &l.GUPID); err != nil {
			return nil, err
		}
	}
	if p.Profile.present {
		if err := json.Unmarshal(p.Profile.raw, &l.Profile); err != nil {
			return nil, err
		}
	}
	if p.Redirect.present {
		if err := json.Unmarshal(p.Redirect.raw, &l.Redirect); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

func firstOr(s []string, def string) string {
	if len(s) == 0 {
		return def
	}
	return s[0]
}
