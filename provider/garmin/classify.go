package garmin

import (
	"fmt"
	"net/http"

	"github.com/swimforge/garminbridge/provider"
)

// transportError classifies a failure to reach the backend at all.
func transportError(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, provider.ErrUnavailable)
}

// statusError classifies an unexpected HTTP status. Server-side failures and
// throttling map to ErrUnavailable; anything else surfaces unclassified with
// the status attached so the caller can log it in full.
func statusError(op string, status int) error {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: status %d: %w", op, status, provider.ErrUnavailable)
	}
	return fmt.Errorf("%s: unexpected status %d", op, status)
}
