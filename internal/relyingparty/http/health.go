package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/persona/pkg/httpx"
	"github.com/aussiebroadwan/persona/pkg/sessionstore"
	"github.com/aussiebroadwan/persona/pkg/tokencache"
)

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	TokenCache string `json:"token_cache"`
	Sessions   string `json:"sessions"`
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the token cache and the session backend.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, cache tokencache.Cache, sessions sessionstore.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{TokenCache: "ok", Sessions: "ok"}
		status, code := "ok", http.StatusOK

		if p, ok := cache.(tokencache.Pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				checks.TokenCache = "error: " + err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		if err := sessions.Ping(r.Context()); err != nil {
			checks.Sessions = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
