package gh

import (
	"fmt"
	"time"
)

// AuthError indicates the token was rejected (HTTP 401). It is fatal to
// the run and never retried.
type AuthError struct {
	Endpoint string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("github authentication failed for %s (check GITHUB_TOKEN)", e.Endpoint)
}

// RateLimitError indicates the API refused the request because the quota
// is exhausted or access is forbidden (HTTP 403/429). ResetAt is zero
// when the server did not report a reset time.
type RateLimitError struct {
	Endpoint string
	ResetAt  time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("github request forbidden or rate limited for %s", e.Endpoint)
	}
	return fmt.Sprintf("github rate limit exceeded for %s, resets at %s", e.Endpoint, e.ResetAt.Format(time.RFC3339))
}

// APIError covers any other non-2xx response.
type APIError struct {
	Endpoint   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github request to %s failed with status %d", e.Endpoint, e.StatusCode)
}
