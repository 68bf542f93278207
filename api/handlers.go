package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/swimforge/garminbridge/activity"
)

const (
	// activityFetchLimit caps how many records one provider call pulls.
	activityFetchLimit = 100
	// defaultDaysBack is the activity window when the caller gives none.
	defaultDaysBack = 30
)

// Root handles GET /.
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServiceResponse{
		Service: "SwimForge Garmin Service",
		Status:  "running",
	})
}

// Health handles GET /health. Each probe opportunistically sweeps expired
// challenges so abandoned handshakes cannot accumulate.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if removed := a.mgr.SweepChallenges(); removed > 0 {
		a.log.Info("swept expired challenges", "removed", removed)
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            "healthy",
		ActiveSessions:    a.mgr.ActiveSessions(),
		PendingChallenges: a.mgr.PendingChallenges(),
	})
}

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r)
	if !ok {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	a.log.Info("login attempt", "user_id", req.UserID)
	outcome, err := a.mgr.Login(r.Context(), req.UserID, req.Email, req.Password)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	if outcome.MFARequired {
		writeJSON(w, http.StatusOK, LoginResponse{
			Success:     true,
			Message:     "MFA code required. Submit the code sent to your device.",
			UserID:      req.UserID,
			MFARequired: true,
		})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Successfully connected to Garmin Connect",
		UserID:  req.UserID,
	})
}

// SubmitMFA handles POST /auth/mfa.
func (a *API) SubmitMFA(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[MFARequest](w, r)
	if !ok {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.MFACode == "" {
		writeError(w, http.StatusBadRequest, "mfa_code is required")
		return
	}

	if _, err := a.mgr.SubmitChallenge(r.Context(), req.UserID, req.MFACode); err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Successfully connected to Garmin Connect",
		UserID:  req.UserID,
	})
}

// MFAStatus handles GET /auth/mfa-status/{userID}. Read-only apart from
// lazy purge of an already-expired entry.
func (a *API) MFAStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	remaining, pending := a.mgr.ChallengeRemaining(userID)
	writeJSON(w, http.StatusOK, MFAStatusResponse{
		Pending:          pending,
		RemainingSeconds: int(remaining.Seconds()),
	})
}

// Logout handles POST /auth/logout. Idempotent: succeeds whether or not any
// state existed.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		if req, ok := decodeJSON[LogoutRequest](w, r); ok {
			userID = req.UserID
		} else {
			return
		}
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if a.mgr.Logout(userID) {
		a.log.Info("logged out", "user_id", userID)
		writeJSON(w, http.StatusOK, LogoutResponse{
			Success: true,
			Message: "Successfully disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, LogoutResponse{
		Success: true,
		Message: "No active session found",
	})
}

// Status handles GET /auth/status/{userID}. Never mutates state.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	info := a.mgr.Status(userID)

	resp := StatusResponse{
		Connected:        info.Connected,
		Email:            info.Email,
		DisplayName:      info.DisplayName,
		CredentialOnFile: info.CredentialOnFile,
	}
	if !info.LastSync.IsZero() {
		resp.LastSync = info.LastSync.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SwimmingActivities handles GET /activities/swimming/{userID}.
func (a *API) SwimmingActivities(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	daysBack := queryDaysBack(r)

	swims, err := a.fetchSwims(r, userID, daysBack)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.log.Info("fetched swimming activities", "user_id", userID, "count", len(swims))
	writeJSON(w, http.StatusOK, ActivitiesResponse{
		Success:    true,
		Count:      len(swims),
		Activities: swims,
	})
}

// Sync handles POST /sync. Unlike the plain activities fetch it records the
// sync time on the session.
func (a *API) Sync(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[SyncRequest](w, r)
	if !ok {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	daysBack := req.DaysBack
	if daysBack <= 0 {
		daysBack = defaultDaysBack
	}

	swims, err := a.fetchSwims(r, req.UserID, daysBack)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.mgr.MarkSynced(req.UserID)

	a.log.Info("synced activities", "user_id", req.UserID, "count", len(swims))
	writeJSON(w, http.StatusOK, SyncResponse{
		Success:     true,
		SyncedCount: len(swims),
		Activities:  swims,
		Message:     fmt.Sprintf("Successfully synced %d swimming activities", len(swims)),
	})
}

func (a *API) fetchSwims(r *http.Request, userID string, daysBack int) ([]activity.Swim, error) {
	records, err := a.mgr.Activities(r.Context(), userID, activityFetchLimit)
	if err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -daysBack)
	return activity.FilterSince(records, since), nil
}

func queryDaysBack(r *http.Request) int {
	if v := r.URL.Query().Get("days_back"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultDaysBack
}
