package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/persona/internal/relyingparty/http"
	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/presign"
)

func bearer(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+goodToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestPresignAndDownload(t *testing.T) {
	f := newFixture(t)

	rec := f.do(bearer(http.MethodPost, "/api/presign", `{"file":"report.pdf","expires":"+10 minutes"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp httpapi.PresignResponse
	decodeJSON(t, rec, &resp)
	require.True(t, strings.HasPrefix(resp.URL, publicBase+"/files/report.pdf?expires="))
	require.True(t, f.signer.IsValid(resp.URL, presignSecret))

	target := strings.TrimPrefix(resp.URL, publicBase)

	t.Run("download", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "%PDF-1.4 quarterly", rec.Body.String())
	})

	t.Run("tampered", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, strings.Replace(target, "report", "secret", 1), nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("signed but missing", func(t *testing.T) {
		missing, err := f.signer.Presign(publicBase+"/files/missing.pdf", presignSecret, presign.In(time.Minute))
		require.NoError(t, err)
		rec := f.do(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(missing, publicBase), nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPresignRejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"no token", httptest.NewRequest(http.MethodPost, "/api/presign", strings.NewReader(`{"file":"a"}`)), http.StatusBadRequest},
		{"bad token", func() *http.Request {
			r := bearer(http.MethodPost, "/api/presign", `{"file":"a"}`)
			r.Header.Set("Authorization", "Bearer bad")
			return r
		}(), http.StatusUnauthorized},
		{"not json", bearer(http.MethodPost, "/api/presign", `file=a`), http.StatusBadRequest},
		{"path traversal", bearer(http.MethodPost, "/api/presign", `{"file":"../etc/passwd"}`), http.StatusBadRequest},
		{"bad expiry", bearer(http.MethodPost, "/api/presign", `{"file":"a","expires":"soonish"}`), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.code, f.do(tt.req).Code)
		})
	}
}

func TestBearerValidationIsCached(t *testing.T) {
	f := newFixture(t)

	f.do(bearer(http.MethodPost, "/api/presign", `{"file":"report.pdf"}`))
	val, found, err := f.cache.Get(t.Context(), "access_token:"+goodToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "OK", val)
}

func TestUserLookup(t *testing.T) {
	f := newFixture(t)

	t.Run("found", func(t *testing.T) {
		rec := f.do(bearer(http.MethodGet, "/api/users/google:1", ""))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var user personasdk.User
		decodeJSON(t, rec, &user)
		require.Equal(t, "g1", user.GUID)
		require.Equal(t, []string{"google:1"}, user.GUPIDs)
	})

	t.Run("not found", func(t *testing.T) {
		rec := f.do(bearer(http.MethodGet, "/api/users/google:2", ""))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "User profile not found")
	})

	t.Run("upstream failure", func(t *testing.T) {
		rec := f.do(bearer(http.MethodGet, "/api/users/google:boom", ""))
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("requires a bearer token", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/users/google:1", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health httpapi.HealthResponse
	decodeJSON(t, rec, &health)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "test", health.Version)
	require.Equal(t, "ok", health.Checks.Sessions)
	require.Equal(t, "ok", health.Checks.TokenCache)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSwagger(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/api/presign")
}
