package cryptox_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSign_KnownVector(t *testing.T) {
	t.Parallel()

	// Message is the presigned form of http://someurl/someroute with expiry 1234567890.
	got := cryptox.SignString("http://someurl/someroute?expires=1234567890", "mysecretkey")
	require.Equal(t, "5be20a17931f220ca03d446a25748a9ef707cd508c753760db11f1f95485f1f6", got)
}

func TestSign_Deterministic(t *testing.T) {
	t.Parallel()

	a := cryptox.Sign([]byte("client-id"), []byte("client-secret"))
	b := cryptox.Sign([]byte("client-id"), []byte("client-secret"))
	require.Equal(t, a, b)
	require.Len(t, a, cryptox.SignatureHexLen)
	require.Equal(t, strings.ToLower(a), a)

	require.NotEqual(t, a, cryptox.Sign([]byte("client-id"), []byte("other-secret")))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	sig := cryptox.SignString("payload", "secret")

	tests := []struct {
		name      string
		message   string
		secret    string
		candidate string
		want      bool
	}{
		{"matching", "payload", "secret", sig, true},
		{"uppercase hex", "payload", "secret", strings.ToUpper(sig), false},
		{"wrong secret", "payload", "other", sig, false},
		{"wrong message", "payload!", "secret", sig, false},
		{"truncated", "payload", "secret", sig[:63], false},
		{"not hex", "payload", "secret", strings.Repeat("z", 64), false},
		{"empty", "payload", "secret", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, cryptox.VerifyString(tt.message, tt.secret, tt.candidate))
		})
	}
}
