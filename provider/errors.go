package provider

import "errors"

var (
	// ErrInvalidCredentials indicates the backend rejected the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnavailable indicates the backend could not be reached or answered
	// with a server-side failure.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrInvalidCode indicates the backend rejected a one-time challenge code.
	ErrInvalidCode = errors.New("invalid one-time code")
	// ErrRateLimited indicates the backend locked the flow out after too many
	// code attempts.
	ErrRateLimited = errors.New("challenge rate limited")
	// ErrSessionExpired indicates a previously accepted credential is no
	// longer valid.
	ErrSessionExpired = errors.New("session expired")
)

// ChallengeRequiredError reports that login cannot complete without a second
// factor. It is a flow outcome, not a failure: the caller is expected to
// stash State and resume with the user's code.
type ChallengeRequiredError struct {
	State ChallengeState
}

func (e *ChallengeRequiredError) Error() string {
	return "multi-factor challenge required"
}
