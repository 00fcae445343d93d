package session

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
)

var testStart = time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)

// newTestTracker returns a tracker whose clock reads from the returned
// pointer, so tests control time deterministically.
func newTestTracker(deviceID string) (*Tracker, *time.Time) {
	clock := testStart
	tr := NewTracker(deviceID)
	tr.now = func() time.Time { return clock }
	return tr, &clock
}

func sampleAt(lat, lon float64, at time.Time) models.LocationSample {
	return models.LocationSample{
		Location:  models.Location{Latitude: lat, Longitude: lon},
		Timestamp: at,
	}
}

func TestTracker_StartCreatesRunningSession(t *testing.T) {
	tr, _ := newTestTracker("device-1")

	sess, err := tr.Start(types.ActivityRun)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Status != types.StatusRunning {
		t.Fatalf("expected status %s, got %s", types.StatusRunning, sess.Status)
	}
	if sess.DeviceID != "device-1" {
		t.Fatalf("expected device-1, got %s", sess.DeviceID)
	}
	if !sess.StartedAt.Equal(testStart) {
		t.Fatalf("expected started_at %v, got %v", testStart, sess.StartedAt)
	}
}

func TestTracker_StartWhileActiveIsInvalid(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	before := *tr.Active()
	if _, err := tr.Start(types.ActivityWalk); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got := tr.Active(); got.Activity != before.Activity || got.Status != before.Status {
		t.Fatalf("rejected start must not modify the session")
	}
}

func TestTracker_PauseResumeCycle(t *testing.T) {
	tr, clock := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	*clock = testStart.Add(10 * time.Second)
	sess, err := tr.Pause()
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if sess.Status != types.StatusPaused {
		t.Fatalf("expected paused, got %s", sess.Status)
	}
	if sess.OpenPause() == nil {
		t.Fatalf("pause must open an interval")
	}

	*clock = testStart.Add(25 * time.Second)
	sess, err = tr.Resume()
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if sess.Status != types.StatusRunning {
		t.Fatalf("expected running, got %s", sess.Status)
	}
	if sess.OpenPause() != nil {
		t.Fatalf("resume must close the interval")
	}
	if got := sess.PausedTotal(); got != 15*time.Second {
		t.Fatalf("expected 15s paused, got %v", got)
	}
}

func TestTracker_IllegalTransitionsLeaveStatusUnchanged(t *testing.T) {
	tr, _ := newTestTracker("device-1")

	// No session yet.
	if _, err := tr.Pause(); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("pause without session: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := tr.Resume(); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("resume without session: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := tr.End(); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("end without session: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Running: resume is illegal.
	if _, err := tr.Resume(); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("resume while running: expected ErrInvalidTransition, got %v", err)
	}
	if tr.Active().Status != types.StatusRunning {
		t.Fatalf("rejected resume must not change status")
	}

	// Paused: pause again is illegal.
	if _, err := tr.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if _, err := tr.Pause(); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("pause while paused: expected ErrInvalidTransition, got %v", err)
	}
	if tr.Active().Status != types.StatusPaused {
		t.Fatalf("rejected pause must not change status")
	}
}

func TestTracker_AddSampleWithoutSession(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	_, err := tr.AddSample(sampleAt(0, 0, testStart.Add(time.Second)))
	if !errors.Is(err, types.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestTracker_AddSampleWhilePausedRejected(t *testing.T) {
	tr, clock := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := tr.AddSample(sampleAt(0, 0, testStart.Add(time.Second))); err != nil {
		t.Fatalf("first sample rejected: %v", err)
	}

	*clock = testStart.Add(2 * time.Second)
	if _, err := tr.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	before := tr.Active().DistanceMeters
	_, err := tr.AddSample(sampleAt(0, 0.001, testStart.Add(3*time.Second)))
	if !errors.Is(err, types.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
	if tr.Active().DistanceMeters != before || len(tr.Active().Samples) != 1 {
		t.Fatalf("rejected sample must leave totals untouched")
	}
}

func TestTracker_OutOfOrderSampleRejected(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := tr.AddSample(sampleAt(0, 0, testStart.Add(1*time.Second))); err != nil {
		t.Fatalf("sample t+1 rejected: %v", err)
	}
	if _, err := tr.AddSample(sampleAt(0, 0.001, testStart.Add(3*time.Second))); err != nil {
		t.Fatalf("sample t+3 rejected: %v", err)
	}

	before := tr.Active().DistanceMeters
	_, err := tr.AddSample(sampleAt(0, 0.002, testStart.Add(2*time.Second)))
	if !errors.Is(err, types.ErrOutOfOrderSample) {
		t.Fatalf("expected ErrOutOfOrderSample, got %v", err)
	}
	if tr.Active().DistanceMeters != before || len(tr.Active().Samples) != 2 {
		t.Fatalf("rejected sample must leave totals untouched")
	}

	// Equal timestamp counts as out of order too.
	if _, err := tr.AddSample(sampleAt(0, 0.002, testStart.Add(3*time.Second))); !errors.Is(err, types.ErrOutOfOrderSample) {
		t.Fatalf("expected ErrOutOfOrderSample for equal timestamp, got %v", err)
	}
}

func TestTracker_InvalidCoordinateRejected(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := tr.AddSample(sampleAt(91, 0, testStart.Add(time.Second)))
	if !errors.Is(err, types.ErrInvalidSampleCoordinate) {
		t.Fatalf("expected ErrInvalidSampleCoordinate, got %v", err)
	}
}

func TestTracker_DistanceMonotonic(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var prev float64
	for i := 1; i <= 5; i++ {
		sess, err := tr.AddSample(sampleAt(0, float64(i)*0.0005, testStart.Add(time.Duration(i)*time.Second)))
		if err != nil {
			t.Fatalf("sample %d rejected: %v", i, err)
		}
		if sess.DistanceMeters < prev {
			t.Fatalf("distance decreased: %f -> %f", prev, sess.DistanceMeters)
		}
		prev = sess.DistanceMeters
	}
}

func TestTracker_FirstSampleContributesZeroDistance(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	sess, err := tr.AddSample(sampleAt(43.238949, 76.889709, testStart.Add(time.Second)))
	if err != nil {
		t.Fatalf("sample rejected: %v", err)
	}
	if sess.DistanceMeters != 0 {
		t.Fatalf("first sample must add zero distance, got %f", sess.DistanceMeters)
	}
}

func TestTracker_EndIsIdempotent(t *testing.T) {
	tr, clock := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := tr.AddSample(sampleAt(0, 0, testStart.Add(time.Second))); err != nil {
		t.Fatalf("sample rejected: %v", err)
	}
	if _, err := tr.AddSample(sampleAt(0, 0.001, testStart.Add(5*time.Second))); err != nil {
		t.Fatalf("sample rejected: %v", err)
	}

	*clock = testStart.Add(10 * time.Second)
	first, err := tr.End()
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}

	// The clock keeps moving between retries; the summary must not.
	*clock = testStart.Add(42 * time.Second)
	second, err := tr.End()
	if err != nil {
		t.Fatalf("repeated end failed: %v", err)
	}
	if first != second {
		t.Fatalf("repeated end must return the identical summary:\n%+v\n%+v", first, second)
	}
}

func TestTracker_EndWhilePausedClosesOpenInterval(t *testing.T) {
	tr, clock := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	*clock = testStart.Add(30 * time.Second)
	if _, err := tr.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	*clock = testStart.Add(50 * time.Second)
	summary, err := tr.End()
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}

	// 50s wall clock minus the 20s pause that End closed.
	if summary.ActiveDurationSeconds != 30 {
		t.Fatalf("expected 30s active, got %f", summary.ActiveDurationSeconds)
	}
}

func TestTracker_EndEquatorScenario(t *testing.T) {
	tr, clock := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := tr.AddSample(sampleAt(0, 0, testStart.Add(1*time.Second))); err != nil {
		t.Fatalf("sample rejected: %v", err)
	}
	if _, err := tr.AddSample(sampleAt(0, 0.001, testStart.Add(11*time.Second))); err != nil {
		t.Fatalf("sample rejected: %v", err)
	}

	*clock = testStart.Add(11 * time.Second)
	summary, err := tr.End()
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}

	if math.Abs(summary.TotalDistanceMeters-111.19) > 0.1 {
		t.Fatalf("expected ~111.19m, got %f", summary.TotalDistanceMeters)
	}
	if summary.ActiveDurationSeconds != 11 {
		t.Fatalf("expected 11s active, got %f", summary.ActiveDurationSeconds)
	}
	wantPace := 11 / (summary.TotalDistanceMeters / 1000)
	if math.Abs(float64(summary.AveragePaceSecondsPerKm)-wantPace) > 1e-9 {
		t.Fatalf("expected pace %f, got %f", wantPace, float64(summary.AveragePaceSecondsPerKm))
	}
	if summary.SampleCount != 2 {
		t.Fatalf("expected 2 samples, got %d", summary.SampleCount)
	}
}

func TestTracker_EndWithZeroDistanceHasUndefinedPace(t *testing.T) {
	tr, clock := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	*clock = testStart.Add(60 * time.Second)
	summary, err := tr.End()
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if summary.TotalDistanceMeters != 0 {
		t.Fatalf("expected zero distance, got %f", summary.TotalDistanceMeters)
	}
	if summary.AveragePaceSecondsPerKm.Defined() {
		t.Fatalf("pace must be undefined at zero distance, got %f", float64(summary.AveragePaceSecondsPerKm))
	}
}

func TestTracker_DiscardReturnsToNoSession(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := tr.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	tr.Discard()
	if tr.Active() != nil {
		t.Fatalf("discard must drop the session")
	}
	if _, err := tr.Start(types.ActivityWalk); err != nil {
		t.Fatalf("start after discard failed: %v", err)
	}
}

func TestTracker_RestoreRunningSession(t *testing.T) {
	tr, clock := newTestTracker("device-1")
	if _, err := tr.Start(types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := tr.AddSample(sampleAt(0, 0, testStart.Add(time.Second))); err != nil {
		t.Fatalf("sample rejected: %v", err)
	}
	if _, err := tr.AddSample(sampleAt(0, 0.001, testStart.Add(2*time.Second))); err != nil {
		t.Fatalf("sample rejected: %v", err)
	}

	snapshot := *tr.Active()

	restored, clock2 := newTestTracker("device-1")
	*clock2 = *clock
	if err := restored.Restore(&snapshot); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// The restored tracker continues where the old one stopped.
	sess, err := restored.AddSample(sampleAt(0, 0.002, testStart.Add(3*time.Second)))
	if err != nil {
		t.Fatalf("sample after restore rejected: %v", err)
	}
	if len(sess.Samples) != 3 {
		t.Fatalf("expected 3 samples after restore, got %d", len(sess.Samples))
	}
	if sess.DistanceMeters <= snapshot.DistanceMeters {
		t.Fatalf("distance must keep growing after restore")
	}
}

func TestTracker_RestoreRejectsEndedSession(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	err := tr.Restore(&models.Session{Status: types.StatusEnded})
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTracker_LiveMetricsWithoutSession(t *testing.T) {
	tr, _ := newTestTracker("device-1")
	_, err := tr.LiveMetrics()
	if !errors.Is(err, types.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}
