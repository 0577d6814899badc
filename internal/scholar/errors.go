package scholar

import (
	"errors"
	"fmt"
)

// Sentinel errors for upstream API failure modes.
var (
	ErrNotFound        = errors.New("scholar: paper not found")
	ErrAuthError       = errors.New("scholar: authentication failed")
	ErrRateLimited     = errors.New("scholar: rate limited by upstream")
	ErrNetworkError    = errors.New("scholar: network error")
	ErrInvalidResponse = errors.New("scholar: invalid response")
)

// APIError is a non-sentinel upstream HTTP error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scholar: api error %d: %s", e.StatusCode, e.Message)
}
