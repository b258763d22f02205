package fetcher

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/circuitbreaker"
)

var (
	// ErrUnsupportedScheme is returned for non-http(s) source URLs.
	// Permanent: retrying cannot help.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrTimeout is returned when the upstream did not answer within the
	// configured fetch timeout. Eligible for a single retry.
	ErrTimeout = errors.New("fetch timed out")
)

// FetchError carries the upstream HTTP status of a failed fetch.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: upstream returned status %d", e.URL, e.StatusCode)
}

// Permanent reports whether the failure indicates the resource is gone
// and automatic retries should not be attempted.
func (e *FetchError) Permanent() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// IsRetryable classifies an error from Fetch: true means the caller may
// attempt exactly one retry. Permanent failures (bad scheme, 404/410) and
// an open circuit breaker are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrUnsupportedScheme) {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) ||
		errors.Is(err, circuitbreaker.ErrHalfOpenLimitReached) {
		return false
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return !fe.Permanent()
	}

	// Timeouts and transport-level failures are transient.
	return true
}
