package personasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// User is a Persona user record. Profile and Created are passed through as
// returned by Persona.
type User struct {
	ID      string         `json:"_id"`
	GUID    string         `json:"guid"`
	GUPIDs  []string       `json:"gupids"`
	Created map[string]any `json:"created,omitempty"`
	Profile map[string]any `json:"profile,omitempty"`
}

// GetUserByGupid looks up the user owning gupid (e.g. "google:789") using
// token as the bearer credential.
func (c *Client) GetUserByGupid(ctx context.Context, gupid, token string) (*User, error) {
	if strings.TrimSpace(gupid) == "" {
		return nil, ErrInvalidGupid
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	body, err := c.getUsers(ctx, url.Values{"gupid": {gupid}}, token, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	users, err := decodeUsers(body)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

// GetUserByGuids looks up several users by guid in one call.
func (c *Client) GetUserByGuids(ctx context.Context, guids []string, token string) ([]User, error) {
	clean := make([]string, 0, len(guids))
	for _, g := range guids {
		if g = strings.TrimSpace(g); g != "" {
			clean = append(clean, g)
		}
	}
	if len(clean) == 0 {
		return nil, ErrInvalidGuids
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	body, err := c.getUsers(ctx, url.Values{"guids": {strings.Join(clean, ",")}}, token, ErrUsersNotFound)
	if err != nil {
		return nil, err
	}

	users, err := decodeUsers(body)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUsersNotFound
	}
	return users, nil
}

// decodeUsers accepts either a single user object or an array of users.
func decodeUsers(body []byte) ([]User, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var users []User
		if err := json.Unmarshal(trimmed, &users); err != nil {
			return nil, fmt.Errorf("failed to decode users: %w", err)
		}
		return users, nil
	}

	var u User
	if err := json.Unmarshal(trimmed, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return []User{u}, nil
}
