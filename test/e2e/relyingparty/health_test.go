package relyingparty_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  *struct {
		TokenCache string `json:"token_cache"`
		Sessions   string `json:"sessions"`
	} `json:"checks"`
}

func TestHealthEndpoints(t *testing.T) {
	baseURL := setupDemoContainer(t, relaxedLimits(baseEnv()))

	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(baseURL + path)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

			var health healthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
			require.Equal(t, "ok", health.Status)
			require.NotEmpty(t, health.Version)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	baseURL := setupDemoContainer(t, relaxedLimits(baseEnv()))

	req, err := http.NewRequest(http.MethodGet, baseURL+"/livez", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "e2e-trace-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "e2e-trace-1", resp.Header.Get("X-Request-ID"))
}
