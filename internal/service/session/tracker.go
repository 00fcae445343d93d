package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
)

// Tracker is the session state machine for a single device. It owns the
// active session exclusively and gates every mutation of its status; nothing
// else is allowed to touch Samples or PauseIntervals.
//
// The tracker takes no locks: callers serialize access. Service is the
// designated serialization point for the concurrent transport adapters.
type Tracker struct {
	deviceID string
	active   *models.Session

	// pending holds the summary computed by End until the hand-off succeeds,
	// so a retried End never re-derives metrics.
	pending *models.SessionSummary

	acc Accumulator
	now func() time.Time
}

func NewTracker(deviceID string) *Tracker {
	return &Tracker{
		deviceID: deviceID,
		now:      time.Now,
	}
}

// Active returns the current session, or nil when none is in progress.
func (t *Tracker) Active() *models.Session {
	return t.active
}

// Restore reattaches a previously snapshotted session, e.g. after a process
// restart. Only a running or paused session can be restored.
func (t *Tracker) Restore(s *models.Session) error {
	if t.active != nil {
		return types.ErrInvalidTransition
	}
	if s == nil || (s.Status != types.StatusRunning && s.Status != types.StatusPaused) {
		return types.ErrInvalidTransition
	}
	t.active = s
	return nil
}

// Start creates a new running session. Starting while any session exists,
// including one whose summary is still awaiting hand-off, is an invalid
// transition: the caller must end or discard the prior session explicitly.
func (t *Tracker) Start(activity types.ActivityType) (*models.Session, error) {
	if t.active != nil {
		return nil, types.ErrInvalidTransition
	}

	t.active = &models.Session{
		ID:        uuid.New(),
		DeviceID:  t.deviceID,
		Activity:  activity,
		Status:    types.StatusRunning,
		StartedAt: t.now(),
	}

	return t.active, nil
}

// Pause opens a pause interval. Legal only while running.
func (t *Tracker) Pause() (*models.Session, error) {
	if t.active == nil || t.active.Status != types.StatusRunning {
		return nil, types.ErrInvalidTransition
	}

	t.active.PauseIntervals = append(t.active.PauseIntervals, models.PauseInterval{
		PausedAt: t.now(),
	})
	t.active.Status = types.StatusPaused

	return t.active, nil
}

// Resume closes the open pause interval. Legal only while paused.
func (t *Tracker) Resume() (*models.Session, error) {
	if t.active == nil || t.active.Status != types.StatusPaused {
		return nil, types.ErrInvalidTransition
	}

	resumedAt := t.now()
	t.active.PauseIntervals[len(t.active.PauseIntervals)-1].ResumedAt = &resumedAt
	t.active.Status = types.StatusRunning

	return t.active, nil
}

// AddSample feeds one GPS fix into the accumulator. Legal only while running;
// a paused session must not accumulate distance from GPS drift.
func (t *Tracker) AddSample(sample models.LocationSample) (*models.Session, error) {
	if t.active == nil {
		return nil, types.ErrSessionNotActive
	}
	if err := t.acc.AddSample(t.active, sample); err != nil {
		return nil, err
	}
	return t.active, nil
}

// End moves the session to Ended and computes its summary exactly once.
// Ending while paused first closes the open interval at the end instant, so
// paused time up to that instant is excluded from the active duration.
//
// The summary is cached: if the caller's hand-off to persistence fails, a
// repeated End returns the identical summary without recomputation. The
// session stays attached until Discard confirms the hand-off.
func (t *Tracker) End() (models.SessionSummary, error) {
	if t.pending != nil {
		return *t.pending, nil
	}

	if t.active == nil ||
		(t.active.Status != types.StatusRunning && t.active.Status != types.StatusPaused) {
		return models.SessionSummary{}, types.ErrInvalidTransition
	}

	endedAt := t.now()
	if open := t.active.OpenPause(); open != nil {
		open.ResumedAt = &endedAt
	}
	t.active.Status = types.StatusEnded

	summary := t.acc.Finalize(t.active, endedAt)
	t.pending = &summary

	return summary, nil
}

// Discard drops the ended session after a successful hand-off, returning the
// tracker to the no-session state. The tracker keeps no history.
func (t *Tracker) Discard() {
	t.active = nil
	t.pending = nil
}

// LiveMetrics reports the current totals. Valid in any status.
func (t *Tracker) LiveMetrics() (models.LiveMetrics, error) {
	if t.active == nil {
		return models.LiveMetrics{}, types.ErrNoActiveSession
	}
	return t.acc.Live(t.active, t.now()), nil
}
