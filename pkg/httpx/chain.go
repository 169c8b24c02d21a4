// Package httpx holds the HTTP plumbing shared by Persona relying parties:
// middleware for bearer tokens, SSO sessions, signed URLs and rate limits,
// plus JSON response helpers.
package httpx

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws to h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
