// Package provider defines the capability boundary to the remote fitness
// backend. The rest of the service sees only these interfaces and the
// classified errors in errors.go; everything wire-level lives in concrete
// implementations such as provider/garmin.
package provider

import "context"

// ChallengeState is the opaque resume state handed back when the backend
// demands a second factor. Callers store it verbatim and pass it to Resume;
// only the implementation that produced it can interpret it.
type ChallengeState []byte

// Authenticator starts and completes login flows against the remote backend.
type Authenticator interface {
	// Login authenticates with email and password. On success it returns a
	// live Client. If the backend requires a second factor, the error is a
	// *ChallengeRequiredError carrying the resume state.
	Login(ctx context.Context, email, password string) (Client, error)

	// Resume completes a login previously interrupted by a challenge,
	// using the one-time code supplied by the user.
	Resume(ctx context.Context, state ChallengeState, code string) (Client, error)

	// Restore rebuilds a Client from a credential blob produced by
	// Client.Serialize. The result is not validated; callers must probe it
	// (Client.ProbeIdentity) before trusting it.
	Restore(ctx context.Context, blob []byte) (Client, error)
}

// Client is an authenticated handle to one account. A Session owns exactly
// one Client and nothing else may share it.
type Client interface {
	// Activities fetches up to limit recent activity records, newest first.
	Activities(ctx context.Context, limit int) ([]Activity, error)

	// ProbeIdentity verifies the credential is still accepted by the
	// backend and returns the account's display name when available.
	ProbeIdentity(ctx context.Context) (string, error)

	// Serialize exports the credential as an opaque blob suitable for
	// persistence and later Restore.
	Serialize() ([]byte, error)
}

// Activity is a raw activity record as reported by the backend. Swimming
// interpretation happens in the activity package.
type Activity struct {
	ID              int64    `json:"activityId"`
	Name            string   `json:"activityName"`
	TypeKey         string   `json:"typeKey"`
	StartTimeLocal  string   `json:"startTimeLocal"`
	StartTimeGMT    string   `json:"startTimeGMT"`
	DistanceMeters  float64  `json:"distance"`
	DurationSeconds float64  `json:"duration"`
	PoolLength      *int     `json:"poolLength,omitempty"`
	Calories        *int     `json:"calories,omitempty"`
	AverageHR       *int     `json:"averageHR,omitempty"`
	MaxHR           *int     `json:"maxHR,omitempty"`
	AverageSwolf    *int     `json:"avgSwolf,omitempty"`
	LapCount        *int     `json:"lapCount,omitempty"`
}
