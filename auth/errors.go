package auth

import "errors"

var (
	// ErrChallengeNotFound indicates no challenge is pending for the user.
	ErrChallengeNotFound = errors.New("no pending challenge")
	// ErrChallengeExpired indicates the pending challenge outlived its TTL.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrNotAuthenticated indicates the user has no active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoToken indicates no credential blob is stored for the user.
	ErrNoToken = errors.New("no stored credential")
)
