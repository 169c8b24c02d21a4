package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHexLen is the length of a hex encoded HMAC-SHA256 digest.
const SignatureHexLen = sha256.Size * 2

// Sign computes HMAC-SHA256 of message keyed by secret and returns the
// lowercase hex digest. Identical inputs always produce identical output, so
// the same function serves both signing and verification.
func Sign(message, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature of message and compares it against
// candidate in constant time. Only the lowercase hex form produced by Sign is
// accepted; any other spelling of the same digest fails.
func Verify(message, secret []byte, candidate string) bool {
	if len(candidate) != SignatureHexLen {
		return false
	}
	return hmac.Equal([]byte(Sign(message, secret)), []byte(candidate))
}

// SignString is Sign for string inputs.
func SignString(message, secret string) string {
	return Sign([]byte(message), []byte(secret))
}

// VerifyString is Verify for string inputs.
func VerifyString(message, secret, candidate string) bool {
	return Verify([]byte(message), []byte(secret), candidate)
}
