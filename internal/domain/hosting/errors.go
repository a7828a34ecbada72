package hosting

import (
	"errors"
	"fmt"
)

// Domain errors for hosting operations.
var (
	// ErrNoToken indicates no API token could be resolved.
	ErrNoToken = errors.New("no hosting token available")

	// ErrDuplicateTag indicates a release for the tag already exists.
	ErrDuplicateTag = errors.New("release for tag already exists")

	// ErrReleaseNotFound indicates the release was not found.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrAssetTooLarge indicates the asset exceeds the platform limit.
	ErrAssetTooLarge = errors.New("asset exceeds size limit")

	// ErrCITimeout indicates the pipeline did not settle in time.
	ErrCITimeout = errors.New("timed out waiting for pipeline")
)

// AuthError indicates the token was rejected or lacks scopes.
type AuthError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// RateLimitedError indicates the API rate limit was exhausted.
type RateLimitedError struct {
	// RetryAfter is the server-suggested wait, zero when unknown.
	RetryAfter int
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfter)
	}
	return "rate limited"
}

// NetworkError wraps a transport-level failure so callers can
// distinguish it from API rejections.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
