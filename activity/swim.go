// Package activity interprets raw provider records as swimming activities.
// Everything here is pure field mapping; no state, no I/O.
package activity

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/swimforge/garminbridge/provider"
)

// Swim is the downstream-facing shape of one swimming activity.
type Swim struct {
	ActivityID      string `json:"activity_id"`
	ActivityName    string `json:"activity_name"`
	StartTime       string `json:"start_time"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	PoolLength      *int   `json:"pool_length,omitempty"`
	StrokeType      string `json:"stroke_type"`
	AvgPacePer100M  *int   `json:"avg_pace_per_100m,omitempty"`
	Calories        *int   `json:"calories,omitempty"`
	AvgHeartRate    *int   `json:"avg_heart_rate,omitempty"`
	MaxHeartRate    *int   `json:"max_heart_rate,omitempty"`
	SwolfScore      *int   `json:"swolf_score,omitempty"`
	LapsCount       *int   `json:"laps_count,omitempty"`
	IsOpenWater     bool   `json:"is_open_water"`
}

// foldName lowercases and strips diacritics so that keyword matching works
// on accented names ("delfìno" matches "delfino").
var foldName = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeName(name string) string {
	folded, _, err := transform.String(foldName, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(folded)
}

// IsSwim reports whether the record's activity type is a swimming type.
func IsSwim(a provider.Activity) bool {
	typeKey := strings.ToLower(a.TypeKey)
	return strings.Contains(typeKey, "swim") || strings.Contains(typeKey, "pool")
}

// StrokeType infers the stroke from the activity name. Names from European
// accounts commonly carry Italian stroke words, so both vocabularies are
// recognized. Unrecognized names report "mixed".
func StrokeType(name string) string {
	n := normalizeName(name)
	switch {
	case strings.Contains(n, "stile"), strings.Contains(n, "crawl"), strings.Contains(n, "freestyle"):
		return "freestyle"
	case strings.Contains(n, "dorso"), strings.Contains(n, "back"):
		return "backstroke"
	case strings.Contains(n, "rana"), strings.Contains(n, "breast"):
		return "breaststroke"
	case strings.Contains(n, "delfino"), strings.Contains(n, "farfalla"), strings.Contains(n, "butterfly"):
		return "butterfly"
	default:
		return "mixed"
	}
}

// FromRecord maps one raw record to its Swim shape.
func FromRecord(a provider.Activity) Swim {
	typeKey := strings.ToLower(a.TypeKey)
	openWater := strings.Contains(typeKey, "open_water") || strings.Contains(typeKey, "openwater")

	distance := int(a.DistanceMeters)
	duration := int(a.DurationSeconds)

	var pace *int
	if distance > 0 && duration > 0 {
		p := int(a.DurationSeconds / a.DistanceMeters * 100)
		pace = &p
	}

	name := a.Name
	if name == "" {
		name = "Swimming"
	}
	startTime := a.StartTimeLocal
	if startTime == "" {
		startTime = a.StartTimeGMT
	}

	return Swim{
		ActivityID:      strconv.FormatInt(a.ID, 10),
		ActivityName:    name,
		StartTime:       startTime,
		DistanceMeters:  distance,
		DurationSeconds: duration,
		PoolLength:      a.PoolLength,
		StrokeType:      StrokeType(a.Name),
		AvgPacePer100M:  pace,
		Calories:        a.Calories,
		AvgHeartRate:    a.AverageHR,
		MaxHeartRate:    a.MaxHR,
		SwolfScore:      a.AverageSwolf,
		LapsCount:       a.LapCount,
		IsOpenWater:     openWater,
	}
}

// startTimeLayouts are the timestamp shapes the backend has been seen to
// emit for local start times.
var startTimeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseStartTime(s string) (time.Time, bool) {
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterSince keeps the swimming records that started at or after since.
// Records whose start time is missing or cannot be parsed are kept rather
// than dropped: losing real workouts is worse than occasionally including
// an old one.
func FilterSince(records []provider.Activity, since time.Time) []Swim {
	swims := make([]Swim, 0, len(records))
	for _, r := range records {
		if !IsSwim(r) {
			continue
		}
		start := r.StartTimeLocal
		if start == "" {
			start = r.StartTimeGMT
		}
		if start != "" {
			if t, ok := parseStartTime(start); ok && t.Before(since) {
				continue
			}
		}
		swims = append(swims, FromRecord(r))
	}
	return swims
}
