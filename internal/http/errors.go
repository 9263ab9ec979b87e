package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// StatusError is returned for any response outside the 2xx range.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %s", e.URL, e.Status)
}

// IsStatusError reports whether err carries a StatusError.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}

// IsTimeout reports whether err is a client or network timeout.
// Cancellation by the caller is not a timeout.
func IsTimeout(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsRetryable reports whether a request that failed with err is worth
// another try: HTTP status errors and timeouts are, anything else is not.
func IsRetryable(err error) bool {
	return IsStatusError(err) || IsTimeout(err)
}
