package session

import (
	"math"
	"time"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
)

// Accumulator derives live and final metrics from a session's sample history
// and pause timeline. It holds no state of its own: the running distance memo
// lives on the session so it survives snapshot/restore, and every method is a
// pure function of the session plus the supplied instant.
type Accumulator struct{}

// AddSample validates and appends one GPS fix.
//
// The sample must arrive while the session is running and must carry a
// timestamp strictly after the last accepted sample (or the session start when
// no sample has been accepted yet). A rejected sample leaves the session
// completely untouched. The first accepted sample contributes zero distance;
// every later one adds the great-circle distance to its predecessor.
func (Accumulator) AddSample(s *models.Session, sample models.LocationSample) error {
	if s.Status != types.StatusRunning {
		return types.ErrSessionNotActive
	}
	if !sample.Valid() {
		return types.ErrInvalidSampleCoordinate
	}
	if !sample.Timestamp.After(s.LastSampleAt()) {
		return types.ErrOutOfOrderSample
	}

	if len(s.Samples) > 0 {
		prev := s.Samples[len(s.Samples)-1]
		s.DistanceMeters += distanceBetween(prev.Location, sample.Location)
	}
	s.Samples = append(s.Samples, sample)

	return nil
}

// Live computes the current best-known metrics at the given instant.
// Safe to call in any status, including paused.
func (Accumulator) Live(s *models.Session, now time.Time) models.LiveMetrics {
	return models.LiveMetrics{
		SessionID:             s.ID,
		Status:                s.Status,
		TotalDistanceMeters:   s.DistanceMeters,
		ActiveDurationSeconds: activeDuration(s, now).Seconds(),
		SampleCount:           len(s.Samples),
	}
}

// Finalize produces the immutable summary for a session whose pause intervals
// are all closed. It depends only on the session content and the end instant,
// so calling it twice yields bit-identical results.
func (Accumulator) Finalize(s *models.Session, endedAt time.Time) models.SessionSummary {
	active := endedAt.Sub(s.StartedAt) - s.PausedTotal()

	// Pace is derived, never sampled, so it always agrees with distance and
	// duration. Zero distance means there is no pace, not a zero pace.
	pace := models.Pace(math.Inf(1))
	if s.DistanceMeters > 0 {
		pace = models.Pace(active.Seconds() / (s.DistanceMeters / 1000))
	}

	return models.SessionSummary{
		SessionID: s.ID,
		DeviceID:  s.DeviceID,
		Activity:  s.Activity,
		StartedAt: s.StartedAt,
		EndedAt:   endedAt,

		TotalDistanceMeters:     s.DistanceMeters,
		ActiveDurationSeconds:   active.Seconds(),
		AveragePaceSecondsPerKm: pace,
		SampleCount:             len(s.Samples),
	}
}

// activeDuration is wall-clock time since start minus every closed pause
// interval, minus the still-open pause when the session is paused right now.
func activeDuration(s *models.Session, now time.Time) time.Duration {
	active := now.Sub(s.StartedAt) - s.PausedTotal()
	if open := s.OpenPause(); open != nil {
		active -= now.Sub(open.PausedAt)
	}
	return active
}
