package httpx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/persona/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remote, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"peer address", nil, "192.168.1.1"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1"}, "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.2 "}, "203.0.113.2"},
		{"blank forwarded hop falls through", map[string]string{"X-Forwarded-For": " ,10.0.0.1", "X-Real-IP": "203.0.113.3"}, "203.0.113.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestFormFieldKeyExtractor(t *testing.T) {
	extract := httpx.FormFieldKeyExtractor("provider")

	t.Run("query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/login?provider=discord", nil)
		require.Equal(t, "discord", extract(req))
	})

	t.Run("form body", func(t *testing.T) {
		form := url.Values{"provider": {"github"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "github", extract(req))
	})

	t.Run("missing", func(t *testing.T) {
		require.Empty(t, extract(httptest.NewRequest(http.MethodGet, "/login", nil)))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("provider"))

	req := httptest.NewRequest(http.MethodGet, "/?provider=discord", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:discord", extract(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", extract(req))
}

func TestTokenKeyExtractor(t *testing.T) {
	t.Run("empty outside RequireToken", func(t *testing.T) {
		require.Empty(t, httpx.TokenKeyExtractor(httptest.NewRequest(http.MethodGet, "/", nil)))
	})

	t.Run("fingerprint of accepted token", func(t *testing.T) {
		var key string
		h := httpx.RequireToken(fakeValidator{ok: true}, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key = httpx.TokenKeyExtractor(r)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, strings.HasPrefix(key, "tok:"))
		require.NotContains(t, key, "secret-token")
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("allows up to burst then blocks", func(t *testing.T) {
		h := httpx.RateLimit(httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}, httpx.IPKeyExtractor)(okHandler())

		for i := range 3 {
			require.Equal(t, http.StatusOK, hit(h, "192.168.1.1:1", "/").Code, "request %d", i+1)
		}
		rec := hit(h, "192.168.1.1:1", "/")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler())

		require.Equal(t, http.StatusOK, hit(h, "192.168.1.1:1", "/").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(h, "192.168.1.1:1", "/").Code)
		require.Equal(t, http.StatusOK, hit(h, "192.168.1.2:1", "/").Code)
	})

	t.Run("empty key is exempt", func(t *testing.T) {
		h := httpx.RateLimit(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			func(*http.Request) string { return "" })(okHandler())

		for range 3 {
			require.Equal(t, http.StatusOK, hit(h, "192.168.1.1:1", "/").Code)
		}
	})

	t.Run("headers and body", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler())
		hit(h, "192.168.1.1:1", "/")
		rec := hit(h, "192.168.1.1:1", "/")

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Contains(t, rec.Body.String(), `"error":"rate_limit_exceeded"`)
	})
}

func TestRateLimitByToken(t *testing.T) {
	limited := httpx.RateLimitByToken(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler())
	h := httpx.RequireToken(fakeValidator{ok: true}, "")(limited)

	call := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:1"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call("alpha"))
	require.Equal(t, http.StatusTooManyRequests, call("alpha"))
	require.Equal(t, http.StatusOK, call("bravo"), "same address, different token")
}

func TestRateLimitProfiles(t *testing.T) {
	profiles := map[string]httpx.RateLimitConfig{
		"login":     httpx.LoginLimit,
		"api":       httpx.APILimit,
		"signedurl": httpx.SignedURLLimit,
		"probe":     httpx.ProbeLimit,
	}
	for name, cfg := range profiles {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, cfg.RequestsPerWindow)
			require.Positive(t, cfg.Window)
			require.Positive(t, cfg.Burst)
		})
	}

	require.Less(t, httpx.LoginLimit.RequestsPerWindow, httpx.APILimit.RequestsPerWindow)
	require.Less(t, httpx.APILimit.RequestsPerWindow, httpx.ProbeLimit.RequestsPerWindow)
}

func TestRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	t.Run("defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.RateLimitFromEnv("UNSET", def))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_LOGIN_REQUESTS", "50")
		t.Setenv("RATELIMIT_LOGIN_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_LOGIN_BURST", "5")

		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 50, Window: 30 * time.Second, Burst: 5},
			httpx.RateLimitFromEnv("LOGIN", def))
	})

	t.Run("ignores bad values", func(t *testing.T) {
		t.Setenv("RATELIMIT_BAD_REQUESTS", "lots")
		t.Setenv("RATELIMIT_BAD_WINDOW_SEC", "-1")
		t.Setenv("RATELIMIT_BAD_BURST", "0")

		require.Equal(t, def, httpx.RateLimitFromEnv("BAD", def))
	})
}

func BenchmarkRateLimit(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000})(okHandler())

	for i := 0; b.Loop(); i++ {
		hit(h, fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255), "/")
	}
}
