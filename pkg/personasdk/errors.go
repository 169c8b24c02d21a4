package personasdk

import (
	"errors"
	"fmt"
	"net/http"
)

// Fatal errors. Routine "not authenticated" outcomes are never errors; see
// Verification.
var (
	ErrNoConfig            = errors.New("No config provided to Persona Client")
	ErrNoTokenSupplied     = errors.New("No OAuth token supplied")
	ErrMalformedAuthHeader = errors.New("Malformed auth header")
	ErrMissingCredentials  = errors.New("You must specify clientId, and clientSecret to obtain a new token")
	ErrTokenRequestFailed  = errors.New("Could not retrieve OAuth response code")

	ErrInvalidGupid  = errors.New("Invalid gupid")
	ErrInvalidGuids  = errors.New("Invalid guids")
	ErrInvalidToken  = errors.New("Invalid token")
	ErrUserNotFound  = errors.New("User profile not found")
	ErrUsersNotFound = errors.New("User profiles not found")
)

// RemoteError describes a non-success response from Persona. It unwraps to
// the sentinel that names the failed operation, so callers can match with
// errors.Is(err, ErrTokenRequestFailed) and still read the status.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s (%s)", e.Err, e.Op)
	}
	return fmt.Sprintf("%s (%s: HTTP %d %s)", e.Err, e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *RemoteError) Unwrap() error { return e.Err }

func newRemoteError(op string, resp *http.Response, body []byte, sentinel error) *RemoteError {
	re := &RemoteError{Op: op, Err: sentinel}
	if resp != nil {
		re.StatusCode = resp.StatusCode
	}
	if len(body) > 512 {
		body = body[:512]
	}
	re.Body = string(body)
	return re
}
