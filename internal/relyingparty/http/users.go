package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/persona/pkg/httpx"
	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/slogx"
)

// UsersHandler looks users up in Persona with the demo's own client
// credentials.
type UsersHandler struct {
	Persona      PersonaClient
	ClientID     string
	ClientSecret string
}

// ServeHTTP godoc
//
//	@Summary		Look up a Persona user
//	@Tags			Users
//	@Produce		json
//	@Param			gupid	path		string	true	"Provider scoped id, e.g. google:123"
//	@Success		200		{object}	personasdk.User
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Failure		502		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/users/{gupid} [get].
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// The caller's cookies are not ours to trust, so no request is passed.
	tok, err := h.Persona.ObtainNewToken(ctx, nil, h.ClientID, h.ClientSecret, personasdk.ObtainParams{})
	if err != nil {
		log.ErrorContext(ctx, "obtain client token", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "upstream_error", "could not obtain a Persona token")
		return
	}

	user, err := h.Persona.GetUserByGupid(ctx, r.PathValue("gupid"), tok.AccessToken)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, user)
	case errors.Is(err, personasdk.ErrInvalidGupid):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, personasdk.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.ErrorContext(ctx, "user lookup", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "upstream_error", "Persona user lookup failed")
	}
}
