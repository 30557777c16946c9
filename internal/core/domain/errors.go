package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity (list, item, file,
	// cursor) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuthFailed indicates the repository rejected the configured
	// credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrMalformedResponse indicates a remote service returned a body
	// that could not be decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoRegions indicates an OCR result with zero regions, so no
	// text can be flattened from it.
	ErrNoRegions = errors.New("ocr result has no regions")

	// ErrClientStateMismatch indicates a notification whose clientState
	// does not match the one issued at subscription time.
	ErrClientStateMismatch = errors.New("client state mismatch")

	// ErrInvalidToken indicates a change token string that does not
	// follow the versioned delimited format.
	ErrInvalidToken = errors.New("invalid change token")
)

// RemoteError represents a non-2xx application response from a remote
// service (content repository or OCR endpoint).
type RemoteError struct {
	Service    string
	StatusCode int
	Message    string
	URL        string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error %d: %s (URL: %s)", e.Service, e.StatusCode, e.Message, e.URL)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode == 404
	}
	return errors.Is(err, ErrNotFound)
}

// IsAuthFailed checks if the error indicates an authentication failure.
func IsAuthFailed(err error) bool {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode == 401 || remoteErr.StatusCode == 403
	}
	return errors.Is(err, ErrAuthFailed)
}

// IsTransient checks if the error is a host-level network failure
// (unreachable, timeout, DNS) rather than an application response.
func IsTransient(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
