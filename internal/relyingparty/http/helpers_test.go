package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/persona/internal/relyingparty/http"
	"github.com/aussiebroadwan/persona/pkg/cryptox"
	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/presign"
	"github.com/aussiebroadwan/persona/pkg/sessionstore"
	"github.com/aussiebroadwan/persona/pkg/sessionstore/drivers/memory"
	"github.com/aussiebroadwan/persona/pkg/sso"
	"github.com/aussiebroadwan/persona/pkg/tokencache"
)

const (
	appID         = "demo-app"
	appSecret     = "demo-app-secret"
	publicBase    = "https://demo.example"
	presignSecret = "presign-secret"
	goodToken     = "good-token"
	clientToken   = "client-token"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakePersona answers token introspection, client credential grants and
// user lookups.
func fakePersona(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("HEAD /oauth/tokens/{token}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("token") == goodToken {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("POST /oauth/tokens", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + clientToken + `","expires_in":3600,"token_type":"bearer"}`))
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+clientToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("gupid") {
		case "google:1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"_id":"u1","guid":"g1","gupids":["google:1"],"profile":{"name":"Ada"}}]`))
		case "google:boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	router   *httpapi.Router
	persona  *httptest.Server
	sessions *memory.Store
	cache    *tokencache.Memory
	signer   presign.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	persona := fakePersona(t)
	cache := tokencache.NewMemory()
	cache.Now = func() time.Time { return testNow }

	client, err := personasdk.New(personasdk.Config{
		PersonaHost:         persona.URL,
		PersonaOAuthRoute:   "/oauth/tokens",
		TokenCacheRedisHost: "localhost",
		TokenCacheRedisPort: 6379,
		TokenCacheRedisDB:   personasdk.Int(0),
	}, personasdk.WithCache(cache))
	require.NoError(t, err)

	sealer, err := cryptox.NewSealer([]byte(strings.Repeat("k", 32)), "test")
	require.NoError(t, err)

	store := memory.New()
	signer := presign.Signer{Now: func() time.Time { return testNow }}

	router := httpapi.NewRouter(httpapi.Deps{
		Persona: client,
		Cache:   cache,
		SSO:     sso.New(persona.URL, nil),
		Sessions: sessionstore.NewManager(store,
			sessionstore.WithSealer(sealer),
			sessionstore.WithCookie(sessionstore.CookieOptions{Secure: false}),
		),
		Files: fstest.MapFS{
			"report.pdf": {Data: []byte("%PDF-1.4 quarterly"), ModTime: testNow},
		},
		Signer: signer,
		Login: sso.LoginRequest{
			Provider:  "google",
			AppID:     appID,
			AppSecret: appSecret,
		},
		ClientID:      "client",
		ClientSecret:  "client-secret",
		PublicBaseURL: publicBase,
		PresignSecret: presignSecret,
		BuildVersion:  "test",
	})

	return &fixture{router: router, persona: persona, sessions: store, cache: cache, signer: signer}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionstore.DefaultCookieName {
			return c
		}
	}
	return nil
}

// signedPayload builds the base64 login payload Persona would post back.
func signedPayload(t *testing.T, state string) string {
	t.Helper()
	body := `{"token":{"access_token":"user-token","scope":["files","su"]},` +
		`"guid":"g1","gupid":["google:1"],"profile":{"name":"Ada"},` +
		`"state":"` + state + `"}`
	body = strings.TrimSuffix(body, "}") + `,"signature":"` + cryptox.SignString(body, appSecret) + `"}`
	return encodeB64(body)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}
