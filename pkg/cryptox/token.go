package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 is used for handshake nonces (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 is used for session identifiers (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken returns size bytes from crypto/rand encoded as unpadded
// base64url. The result is safe to place in URLs and cookies unescaped.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a short, stable SHA-256 fingerprint of a bearer
// token so it can be logged or correlated without exposing the credential.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:9])
}
