package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/swimforge/garminbridge/provider"
)

// Client is an authenticated Garmin Connect handle for one account. Safe for
// concurrent use: the token source serializes refreshes and the cached token
// is mutex-guarded.
type Client struct {
	httpClient *http.Client
	apiBase    string
	source     oauth2.TokenSource

	mu    sync.Mutex
	token *oauth2.Token
}

var _ provider.Client = (*Client)(nil)

// credentialBlob is the serialized credential format. Version guards future
// layout changes; unknown versions fail Restore.
type credentialBlob struct {
	Version int           `json:"version"`
	Token   *oauth2.Token `json:"token"`
}

const credentialBlobVersion = 1

// activityRecord is the wire shape of a Garmin activity search result.
type activityRecord struct {
	ActivityID   int64  `json:"activityId"`
	ActivityName string `json:"activityName"`
	ActivityType struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
	StartTimeLocal string  `json:"startTimeLocal"`
	StartTimeGMT   string  `json:"startTimeGMT"`
	Distance       float64 `json:"distance"`
	Duration       float64 `json:"duration"`
	PoolLength     *int    `json:"poolLength"`
	Calories       *int    `json:"calories"`
	AverageHR      *int    `json:"averageHR"`
	MaxHR          *int    `json:"maxHR"`
	AvgSwolf       *int    `json:"avgSwolf"`
	LapCount       *int    `json:"lapCount"`
	TotalLaps      *int    `json:"totalLaps"`
}

// laps prefers lapCount; older records carry totalLaps instead.
func (r activityRecord) laps() *int {
	if r.LapCount != nil {
		return r.LapCount
	}
	return r.TotalLaps
}

// socialProfile is the wire shape of the profile probe response.
type socialProfile struct {
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
}

// Activities implements provider.Client.
func (c *Client) Activities(ctx context.Context, limit int) ([]provider.Activity, error) {
	url := fmt.Sprintf("%s/activity-service/activities/search/activities?start=0&limit=%d", c.apiBase, limit)
	var records []activityRecord
	if err := c.getJSON(ctx, "fetch activities", url, &records); err != nil {
		return nil, err
	}

	activities := make([]provider.Activity, len(records))
	for i, r := range records {
		activities[i] = provider.Activity{
			ID:              r.ActivityID,
			Name:            r.ActivityName,
			TypeKey:         r.ActivityType.TypeKey,
			StartTimeLocal:  r.StartTimeLocal,
			StartTimeGMT:    r.StartTimeGMT,
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
			PoolLength:      r.PoolLength,
			Calories:        r.Calories,
			AverageHR:       r.AverageHR,
			MaxHR:           r.MaxHR,
			AverageSwolf:    r.AvgSwolf,
			LapCount:        r.laps(),
		}
	}
	return activities, nil
}

// ProbeIdentity implements provider.Client.
func (c *Client) ProbeIdentity(ctx context.Context) (string, error) {
	var profile socialProfile
	if err := c.getJSON(ctx, "probe identity", c.apiBase+"/userprofile-service/socialProfile", &profile); err != nil {
		return "", err
	}
	if profile.FullName != "" {
		return profile.FullName, nil
	}
	return profile.DisplayName, nil
}

// Serialize implements provider.Client. The exported blob carries the most
// recent token from the token source so that refreshes survive persistence.
func (c *Client) Serialize() ([]byte, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if fresh, err := c.source.Token(); err == nil {
		token = fresh
	}
	return json.Marshal(credentialBlob{
		Version: credentialBlobVersion,
		Token:   token,
	})
}

func (c *Client) getJSON(ctx context.Context, op, url string, out any) error {
	token, err := c.source.Token()
	if err != nil {
		// A refresh failure means the stored credential chain is dead.
		return fmt.Errorf("%s: %w", op, provider.ErrSessionExpired)
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, provider.ErrSessionExpired)
	default:
		return statusError(op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}
