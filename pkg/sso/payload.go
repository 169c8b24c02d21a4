package sso

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errPayloadEncoding = errors.New("payload is not base64")
	errPayloadShape    = errors.New("payload is not a JSON object")
)

// member is one optional payload field. A JSON null counts as absent.
type member struct {
	raw     json.RawMessage
	present bool
}

func (m member) str() (string, bool) {
	if !m.present {
		return "", false
	}
	var s string
	if err := json.Unmarshal(m.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// payload is the decoded login callback. raw holds the JSON exactly as the
// sender encoded it, which is what the signature covers.
type payload struct {
	raw []byte

	State     member
	Signature member
	Token     member
	GUID      member
	GUPID     member
	Profile   member
	Redirect  member
}

// decodePayload base64 decodes and parses the form value. Standard encoding
// is tried first, then URL-safe.
func decodePayload(encoded string) (*payload, error) {
	encoded = strings.TrimSpace(encoded)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if raw, err = base64.URLEncoding.DecodeString(encoded); err != nil {
			return nil, errPayloadEncoding
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, errPayloadShape
	}

	get := func(name string) member {
		v, ok := fields[name]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			return member{}
		}
		return member{raw: v, present: true}
	}

	return &payload{
		raw:       raw,
		State:     get("state"),
		Signature: get("signature"),
		Token:     get("token"),
		GUID:      get("guid"),
		GUPID:     get("gupid"),
		Profile:   get("profile"),
		Redirect:  get("redirect"),
	}, nil
}

// signedContent returns the payload with every "signature" member removed.
// The remaining members keep their order and their original bytes, escapes
// included, so a sender that writes "\/" for "/" still verifies.
func (p *payload) signedContent() ([]byte, error) {
	return stripMember(p.raw, "signature")
}

func stripMember(raw []byte, name string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errPayloadShape
	}

	out := bytes.NewBuffer(make([]byte, 0, len(raw)))
	out.WriteByte('{')
	first := true

	for dec.More() {
		start := dec.InputOffset()

		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if key == name {
			continue
		}

		// The segment may open with the separating comma and whitespace
		// from the previous member.
		seg := bytes.TrimLeft(raw[start:dec.InputOffset()], " \t\r\n,")
		if !first {
			out.WriteByte(',')
		}
		out.Write(seg)
		first = false
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}
