package sso

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
)

// IsLoggedIn reports whether sess holds an established login.
func (c *Controller) IsLoggedIn(sess Session) bool {
	_, ok := sess.Get(KeyLoginSSO)
	return ok
}

// Login returns the stored login, or nil when there is none or it cannot be
// decoded.
func (c *Controller) Login(sess Session) *Login {
	v, ok := sess.Get(KeyLoginSSO)
	if !ok {
		return nil
	}
	var l Login
	if err := json.Unmarshal([]byte(v), &l); err != nil {
		return nil
	}
	return &l
}

// GetPersistentID returns the user's first gupid.
func (c *Controller) GetPersistentID(sess Session) string {
	if l := c.Login(sess); l != nil {
		return firstOr(l.GUPID, "")
	}
	return ""
}

// GetRedirectURL returns where Persona asked the user to be sent after login.
func (c *Controller) GetRedirectURL(sess Session) string {
	if l := c.Login(sess); l != nil && l.Redirect != nil {
		return *l.Redirect
	}
	return ""
}

func (c *Controller) GetProfile(sess Session) map[string]any {
	if l := c.Login(sess); l != nil {
		return l.Profile
	}
	return nil
}

// GetToken returns the access token issued with the login, if any.
func (c *Controller) GetToken(sess Session) string {
	if l := c.Login(sess); l != nil && l.Token != nil {
		return l.Token.AccessToken
	}
	return ""
}

func (c *Controller) GetScopes(sess Session) []string {
	if l := c.Login(sess); l != nil && l.Token != nil {
		return l.Token.Scope
	}
	return nil
}

// IsSuperUser reports whether the login token carries the "su" scope.
func (c *Controller) IsSuperUser(sess Session) bool {
	return slices.Contains(c.GetScopes(sess), "su")
}

// Logout clears every Persona key from sess and redirects the browser to
// Persona's logout endpoint. redirectURI, when set, is passed on so Persona
// can send the user back.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request, sess Session, redirectURI string) error {
	host, err := c.host()
	if err != nil {
		return err
	}

	for _, k := range allKeys {
		sess.Delete(k)
	}

	target := host + "/auth/logout"
	if redirectURI != "" {
		target += "?redirectUri=" + url.QueryEscape(redirectURI)
	}

	c.logger().InfoContext(r.Context(), "sso.logout")
	http.Redirect(w, r, target, http.StatusFound)
	return nil
}
