package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers an unreachable backend, timeouts and server-side
	// failures that say nothing about the presented credential.
	ErrNetwork = errors.New("backend unavailable")

	// ErrRejected means the backend refused the presented credential.
	ErrRejected = errors.New("rejected by backend")

	// ErrMalformedResponse means a success status arrived with an unusable body.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// StatusError is a non-success HTTP response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
	kind     error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Endpoint, e.Code, e.Body)
}

// Unwrap exposes ErrRejected or ErrNetwork depending on how the endpoint
// interprets the status.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// StatusCode extracts the HTTP status from err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
