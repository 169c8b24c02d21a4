package httpx_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/persona/pkg/personasdk"
)

// fakeValidator accepts every token when ok is set, and fails outright
// when err is set.
type fakeValidator struct {
	ok    bool
	err   error
	calls *[]personasdk.ValidateParams
}

func (f fakeValidator) ValidateToken(_ context.Context, _ *http.Request, p personasdk.ValidateParams) (personasdk.Verification, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, p)
	}
	if f.err != nil {
		return personasdk.NotVerified, f.err
	}
	if f.ok {
		return personasdk.VerifiedByPersona, nil
	}
	return personasdk.NotVerified, nil
}

var errCacheDown = errors.New("cache down")
