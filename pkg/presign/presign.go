// Package presign issues and checks expiring, HMAC signed URLs.
//
// A signed URL has the layout
//
//	<base>[?existing&]expires=<unix>&signature=<hex hmac-sha256>[#fragment]
//
// The signature covers the literal URL text up to and including the expires
// parameter, and signature must be the last query parameter. The fragment is
// never signed. Query parameters are never re-encoded or reordered.
package presign

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
)

var (
	ErrNoURL    = errors.New("No url provided to sign")
	ErrNoSecret = errors.New("No secret provided to sign with")
)

const (
	expiresParam   = "expires"
	signatureParam = "signature"
)

// Signer holds the clock and default window used when signing and checking.
type Signer struct {
	Now           func() time.Time
	DefaultExpiry time.Duration
}

var std = Signer{}

// Presign signs rawURL with secret using the wall clock.
func Presign(rawURL, secret string, exp Expiry) (string, error) {
	return std.Presign(rawURL, secret, exp)
}

// IsValid checks a URL produced by Presign using the wall clock.
func IsValid(signedURL, secret string) bool {
	return std.IsValid(signedURL, secret)
}

func (s Signer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s Signer) defaultExpiry() time.Duration {
	if s.DefaultExpiry <= 0 {
		return DefaultExpiry
	}
	return s.DefaultExpiry
}

// Presign appends expires and signature parameters to rawURL.
func (s Signer) Presign(rawURL, secret string, exp Expiry) (string, error) {
	if rawURL == "" {
		return "", ErrNoURL
	}
	if secret == "" {
		return "", ErrNoSecret
	}

	expires, err := exp.Resolve(s.now(), s.defaultExpiry())
	if err != nil {
		return "", err
	}

	base, fragment, hasFragment := strings.Cut(rawURL, "#")

	var b strings.Builder
	b.WriteString(base)
	if strings.Contains(base, "?") {
		b.WriteString("&")
	} else {
		b.WriteString("?")
	}
	b.WriteString(expiresParam + "=")
	b.WriteString(strconv.FormatInt(expires, 10))

	signature := cryptox.SignString(b.String(), secret)
	b.WriteString("&" + signatureParam + "=")
	b.WriteString(signature)

	if hasFragment {
		b.WriteString("#")
		b.WriteString(fragment)
	}

	return b.String(), nil
}

// IsValid reports whether signedURL carries an intact signature made with
// secret and an expiry that has not passed. It never returns an error; any
// malformed input is simply invalid.
func (s Signer) IsValid(signedURL, secret string) bool {
	if signedURL == "" || secret == "" {
		return false
	}

	base, _, _ := strings.Cut(signedURL, "#")

	idx := strings.LastIndex(base, "&"+signatureParam+"=")
	if idx < 0 {
		return false
	}
	message := base[:idx]
	// signature must close the query; anything after it would be unsigned.
	signature := base[idx+len(signatureParam)+2:]
	if strings.Contains(signature, "&") {
		return false
	}

	expires, ok := trailingExpires(message)
	if !ok {
		return false
	}

	if !cryptox.VerifyString(message, secret, signature) {
		return false
	}

	return expires >= s.now().Unix()
}

// trailingExpires extracts the expires value, which must be the last query
// parameter of the signed message.
func trailingExpires(message string) (int64, bool) {
	_, query, ok := strings.Cut(message, "?")
	if !ok {
		return 0, false
	}

	params := strings.Split(query, "&")
	last := params[len(params)-1]

	name, value, ok := strings.Cut(last, "=")
	if !ok || name != expiresParam {
		return 0, false
	}

	value, err := url.QueryUnescape(value)
	if err != nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
