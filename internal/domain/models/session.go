package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stridelab/activity-tracker/internal/domain/types"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are inside the WGS84 envelope.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// LocationSample is a single GPS fix delivered by the device while a session is running.
type LocationSample struct {
	Location
	Timestamp time.Time `json:"timestamp"`
}

// PauseInterval is one pause window on the session timeline.
// ResumedAt is nil only for the last interval and only while the session is paused.
type PauseInterval struct {
	PausedAt  time.Time  `json:"paused_at"`
	ResumedAt *time.Time `json:"resumed_at,omitempty"`
}

// Session is the single in-progress activity owned by the tracker.
// The whole struct is JSON-serializable so an in-progress session can be
// snapshotted to storage and reconstructed after a process restart.
type Session struct {
	ID        uuid.UUID           `json:"id"`
	DeviceID  string              `json:"device_id"`
	Activity  types.ActivityType  `json:"activity"`
	Status    types.SessionStatus `json:"status"`
	StartedAt time.Time           `json:"started_at"`

	// Samples is append-only, insertion order equals chronological order.
	Samples []LocationSample `json:"samples"`

	// PauseIntervals are strictly ordered by PausedAt and never overlap.
	PauseIntervals []PauseInterval `json:"pause_intervals"`

	// DistanceMeters is the memoized running total maintained incrementally
	// as samples are accepted, so live reads never rescan the track.
	DistanceMeters float64 `json:"distance_meters"`
}

// LastSampleAt returns the timestamp ordering floor for the next sample:
// the last accepted sample's timestamp, or the session start when no sample
// has been accepted yet.
func (s *Session) LastSampleAt() time.Time {
	if len(s.Samples) == 0 {
		return s.StartedAt
	}
	return s.Samples[len(s.Samples)-1].Timestamp
}

// OpenPause returns the currently open pause interval, if any.
func (s *Session) OpenPause() *PauseInterval {
	if len(s.PauseIntervals) == 0 {
		return nil
	}
	last := &s.PauseIntervals[len(s.PauseIntervals)-1]
	if last.ResumedAt == nil {
		return last
	}
	return nil
}

// PausedTotal sums all closed pause intervals.
func (s *Session) PausedTotal() time.Duration {
	var total time.Duration
	for _, p := range s.PauseIntervals {
		if p.ResumedAt != nil {
			total += p.ResumedAt.Sub(p.PausedAt)
		}
	}
	return total
}
