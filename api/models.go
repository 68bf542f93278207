package api

import "github.com/swimforge/garminbridge/activity"

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFARequest is the JSON body for POST /auth/mfa.
type MFARequest struct {
	UserID  string `json:"user_id"`
	MFACode string `json:"mfa_code"`
}

// LoginResponse is returned from POST /auth/login and POST /auth/mfa.
type LoginResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	UserID      string `json:"user_id,omitempty"`
	MFARequired bool   `json:"mfa_required"`
}

// MFAStatusResponse is returned from GET /auth/mfa-status/{userID}.
type MFAStatusResponse struct {
	Pending          bool `json:"pending"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

// LogoutRequest is the optional JSON body for POST /auth/logout; the
// user id may come from the query string instead.
type LogoutRequest struct {
	UserID string `json:"user_id"`
}

// LogoutResponse is returned from POST /auth/logout.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusResponse is returned from GET /auth/status/{userID}.
type StatusResponse struct {
	Connected        bool   `json:"connected"`
	Email            string `json:"email,omitempty"`
	LastSync         string `json:"last_sync,omitempty"`
	DisplayName      string `json:"display_name,omitempty"`
	CredentialOnFile bool   `json:"credential_on_file,omitempty"`
}

// ActivitiesResponse is returned from GET /activities/swimming/{userID}.
type ActivitiesResponse struct {
	Success    bool            `json:"success"`
	Count      int             `json:"count"`
	Activities []activity.Swim `json:"activities"`
}

// SyncRequest is the JSON body for POST /sync.
type SyncRequest struct {
	UserID   string `json:"user_id"`
	DaysBack int    `json:"days_back"`
}

// SyncResponse is returned from POST /sync.
type SyncResponse struct {
	Success     bool            `json:"success"`
	SyncedCount int             `json:"synced_count"`
	Activities  []activity.Swim `json:"activities"`
	Message     string          `json:"message,omitempty"`
}

// ServiceResponse is returned from GET /.
type ServiceResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	ActiveSessions    int    `json:"active_sessions"`
	PendingChallenges int    `json:"pending_challenges"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error string `json:"error"`
}
