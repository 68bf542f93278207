package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/swimforge/garminbridge/auth"
	"github.com/swimforge/garminbridge/provider"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError translates classified flow and provider errors to HTTP. Anything
// unclassified becomes a 500 with a generic message; the full detail is
// logged here because the client never sees it.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, provider.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized,
			"Invalid Garmin credentials. Please check your email and password.")
	case errors.Is(err, provider.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, "Invalid MFA code. Please try again.")
	case errors.Is(err, provider.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
	case errors.Is(err, auth.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated. Please login first.")
	case errors.Is(err, auth.ErrChallengeNotFound):
		writeError(w, http.StatusBadRequest, "No MFA challenge in progress. Please login first.")
	case errors.Is(err, auth.ErrChallengeExpired):
		writeError(w, http.StatusBadRequest, "MFA challenge expired. Please login again.")
	case errors.Is(err, provider.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests,
			"Too many MFA attempts. Please login again later.")
	case errors.Is(err, provider.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable,
			"Unable to connect to Garmin. Please try again later.")
	default:
		a.log.Error("unclassified provider failure",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "An internal error occurred.")
	}
}
