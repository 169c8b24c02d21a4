package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/persona/pkg/httpx"
	"github.com/aussiebroadwan/persona/pkg/sessionstore"
	"github.com/aussiebroadwan/persona/pkg/slogx"
	"github.com/aussiebroadwan/persona/pkg/sso"
)

// keyNext remembers where to land after the callback. It is not a Persona
// key, so sso.Logout leaves it alone.
const keyNext = "demo:next"

// SSOHandler drives the browser login against Persona.
type SSOHandler struct {
	SSO   *sso.Controller
	Login sso.LoginRequest
}

type MeResponse struct {
	GUPID     string         `json:"gupid"`
	GUID      string         `json:"guid,omitempty"`
	Scopes    []string       `json:"scopes"`
	SuperUser bool           `json:"super_user"`
	Profile   map[string]any `json:"profile,omitempty"`
	Redirect  string         `json:"redirect,omitempty"`
}

// HandleLogin godoc
//
//	@Summary		Start a Persona login
//	@Description	Redirects to the Persona provider login unless the session is already logged in, in which case it redirects to next.
//	@Tags			SSO
//	@Param			next	query	string	false	"Local path to land on after login"
//	@Success		302
//	@Failure		500	{object}	httpx.ErrorResponse
//	@Router			/login [get].
func (h *SSOHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionstore.FromContext(ctx)
	next := safeNext(r.URL.Query().Get("next"))

	if !h.SSO.IsLoggedIn(sess) {
		sess.Set(keyNext, next)
	}

	redirected, err := h.SSO.RequireAuth(w, r, sess, h.Login)
	if err != nil {
		slogx.FromContext(ctx).ErrorContext(ctx, "login misconfigured", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "login is not available")
		return
	}
	if !redirected {
		http.Redirect(w, r, next, http.StatusFound)
	}
}

// HandleCallback godoc
//
//	@Summary		Persona login callback
//	@Description	Verifies the signed persona:payload against the pending handshake, then rotates the session id and redirects.
//	@Tags			SSO
//	@Accept			x-www-form-urlencoded
//	@Param			persona:payload	formData	string	true	"Base64 encoded signed login payload"
//	@Success		303
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/auth/callback [post].
func (h *SSOHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	sess := sessionstore.FromContext(r.Context())

	if !h.SSO.Authenticate(r, sess) {
		httpx.WriteError(w, http.StatusUnauthorized, "login_failed", "the Persona login could not be verified")
		return
	}
	sess.Renew()

	next := MePath
	if v, ok := sess.Get(keyNext); ok {
		next = safeNext(v)
		sess.Delete(keyNext)
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleMe godoc
//
//	@Summary	Current login
//	@Tags		SSO
//	@Produce	json
//	@Success	200	{object}	MeResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Router		/me [get].
func (h *SSOHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionstore.FromContext(r.Context())
	login := h.SSO.Login(sess)
	if login == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "login_required", "a Persona login is required")
		return
	}

	resp := MeResponse{
		GUPID:     h.SSO.GetPersistentID(sess),
		Scopes:    h.SSO.GetScopes(sess),
		SuperUser: h.SSO.IsSuperUser(sess),
		Profile:   login.Profile,
		Redirect:  h.SSO.GetRedirectURL(sess),
	}
	if login.GUID != nil {
		resp.GUID = *login.GUID
	}
	if resp.Scopes == nil {
		resp.Scopes = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Clears the Persona login from the session and redirects to Persona's logout endpoint.
//	@Tags			SSO
//	@Success		302
//	@Router			/logout [post].
func (h *SSOHandler) HandleLogout(w http.ResponseWriter, r *http.Request, returnTo string) {
	sess := sessionstore.FromContext(r.Context())
	if err := h.SSO.Logout(w, r, sess, returnTo); err != nil {
		slogx.FromContext(r.Context()).ErrorContext(r.Context(), "logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "logout is not available")
	}
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return MePath
	}
	return next
}
