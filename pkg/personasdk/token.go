package personasdk

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Token is an OAuth access token as issued by Persona.
type Token struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   Seconds `json:"expires_in,omitempty"`
	TokenType   string  `json:"token_type,omitempty"`
	Scope       Scopes  `json:"scope,omitempty"`
}

// HasScope reports whether the token was granted scope.
func (t Token) HasScope(scope string) bool {
	return slices.Contains(t.Scope, scope)
}

// Scopes decodes from either a space delimited string or a JSON array of
// strings. Persona uses both shapes depending on the endpoint.
type Scopes []string

func (s *Scopes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = strings.Fields(str)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// String joins the scopes with spaces.
func (s Scopes) String() string {
	return strings.Join(s, " ")
}

// Seconds is a lifetime in seconds that decodes from a JSON number or a
// numeric string.
type Seconds int

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n == "" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return err
	}
	*s = Seconds(v)
	return nil
}

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s) * time.Second
}
