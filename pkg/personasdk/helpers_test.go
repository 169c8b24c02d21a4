package personasdk_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/persona/pkg/personasdk"
	"github.com/aussiebroadwan/persona/pkg/tokencache"
	"github.com/stretchr/testify/require"
)

// fakePersona is an httptest server standing in for Persona. handler decides
// the response; every request is recorded.
type fakePersona struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	forms    []map[string][]string
}

func newFakePersona(t *testing.T, handler http.HandlerFunc) *fakePersona {
	t.Helper()

	fp := &fakePersona{}
	fp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fp.mu.Lock()
		fp.requests = append(fp.requests, r.Clone(r.Context()))
		fp.forms = append(fp.forms, r.PostForm)
		fp.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakePersona) calls() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return len(fp.requests)
}

func (fp *fakePersona) last() (*http.Request, map[string][]string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.requests) == 0 {
		return nil, nil
	}
	return fp.requests[len(fp.requests)-1], fp.forms[len(fp.forms)-1]
}

// testNow pins the cache clock so TTL assertions are exact.
var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig(host string) personasdk.Config {
	return personasdk.Config{
		PersonaHost:         host,
		PersonaOAuthRoute:   "/oauth/tokens",
		TokenCacheRedisHost: "localhost",
		TokenCacheRedisPort: 6379,
		TokenCacheRedisDB:   personasdk.Int(2),
	}
}

func newTestClient(t *testing.T, fp *fakePersona) (*personasdk.Client, *tokencache.Memory) {
	t.Helper()

	cache := tokencache.NewMemory()
	cache.Now = func() time.Time { return testNow }
	client, err := personasdk.New(testConfig(fp.URL), personasdk.WithCache(cache))
	require.NoError(t, err)
	return client, cache
}
