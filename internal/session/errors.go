package session

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token
var ErrNoRefreshToken = errors.New("no refresh token available")

// ErrSessionCleared is returned by Refresh when the session was cleared or
// replaced while the refresh was in flight. It wraps ErrNoRefreshToken.
var ErrSessionCleared = fmt.Errorf("%w: session cleared during refresh", ErrNoRefreshToken)

// AuthError reports that the task service rejected credentials during login,
// sign-up or refresh.
type AuthError struct {
	Op      string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s rejected (%d): %s", e.Op, e.Status, msg)
}

// TransportError reports a failed call that has nothing to do with credentials:
// the network failed, or the service answered with an error status.
type TransportError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// SessionLost reports whether err means the session can no longer be recovered
// and the user has to log in again.
func SessionLost(err error) bool {
	if errors.Is(err, ErrNoRefreshToken) {
		return true
	}
	var ae *AuthError
	return errors.As(err, &ae)
}
