package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned when the homeserver rejects the credentials
	// or access token
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a room, user or endpoint does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidSession is returned when the gateway refuses the session.
	// The sync loop does not reconnect after it.
	ErrInvalidSession = errors.New("invalid session")
)

// HTTPError is a non-2xx response from the homeserver
type HTTPError struct {
	Status  int
	ErrCode string
	Message string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.ErrCode != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.ErrCode, msg)
	}
	return fmt.Sprintf("%d: %s", e.Status, msg)
}

// Unwrap maps well-known statuses onto the package sentinels
func (e *HTTPError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}
