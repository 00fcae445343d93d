package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/stridelab/activity-tracker/internal/domain/types"
)

// Pace is seconds per kilometre. A session with zero distance has no pace;
// that is represented as +Inf in memory and null on the wire, never as zero.
type Pace float64

// Defined reports whether the pace carries a meaningful value.
func (p Pace) Defined() bool {
	return !math.IsInf(float64(p), 0) && !math.IsNaN(float64(p))
}

// MarshalJSON emits null for an undefined pace.
func (p Pace) MarshalJSON() ([]byte, error) {
	if !p.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(p))
}

// UnmarshalJSON reads null back as the undefined sentinel.
func (p *Pace) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Pace(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Pace(v)
	return nil
}

// SessionSummary is the immutable artifact produced when a session ends.
type SessionSummary struct {
	SessionID uuid.UUID          `json:"session_id"`
	DeviceID  string             `json:"device_id"`
	Activity  types.ActivityType `json:"activity"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at"`

	TotalDistanceMeters     float64 `json:"total_distance_meters"`
	ActiveDurationSeconds   float64 `json:"active_duration_seconds"`
	AveragePaceSecondsPerKm Pace    `json:"average_pace_seconds_per_km"`
	SampleCount             int     `json:"sample_count"`
}

// LiveMetrics is the on-demand view of an in-progress session.
type LiveMetrics struct {
	SessionID             uuid.UUID           `json:"session_id"`
	Status                types.SessionStatus `json:"status"`
	TotalDistanceMeters   float64             `json:"total_distance_meters"`
	ActiveDurationSeconds float64             `json:"active_duration_seconds"`
	SampleCount           int                 `json:"sample_count"`
}
