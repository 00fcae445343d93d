package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
	"github.com/stridelab/activity-tracker/pkg/logger"
)

// fakeSnapshotRepo round-trips sessions through JSON, the same way the
// postgres adapter does, so restore sees exactly what a restart would see.
type fakeSnapshotRepo struct {
	data    map[string][]byte
	deletes int
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{data: make(map[string][]byte)}
}

func (r *fakeSnapshotRepo) Get(_ context.Context, deviceID string) (*models.Session, error) {
	raw, ok := r.data[deviceID]
	if !ok {
		return nil, types.ErrSnapshotNotFound
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *fakeSnapshotRepo) Upsert(_ context.Context, session *models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.data[session.DeviceID] = raw
	return nil
}

func (r *fakeSnapshotRepo) Delete(_ context.Context, deviceID string) error {
	delete(r.data, deviceID)
	r.deletes++
	return nil
}

type fakeSummaryRepo struct {
	saved    []models.SessionSummary
	failNext bool
}

func (r *fakeSummaryRepo) Save(_ context.Context, summary models.SessionSummary) error {
	if r.failNext {
		r.failNext = false
		return errors.New("connection reset")
	}
	r.saved = append(r.saved, summary)
	return nil
}

type fakePublisher struct {
	published []models.SummaryCompletedMessage
}

func (p *fakePublisher) PublishSummaryCompleted(_ context.Context, msg models.SummaryCompletedMessage) error {
	p.published = append(p.published, msg)
	return nil
}

// fakeTxManager runs the function directly. Rollback semantics are covered
// by failNext on the summary repo: a failed Save means Delete never ran.
type fakeTxManager struct{}

func (fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type serviceFixture struct {
	service   *Service
	snapshots *fakeSnapshotRepo
	summaries *fakeSummaryRepo
	publisher *fakePublisher
}

func newServiceFixture() *serviceFixture {
	snapshots := newFakeSnapshotRepo()
	summaries := &fakeSummaryRepo{}
	publisher := &fakePublisher{}

	svc := NewService(
		snapshots,
		summaries,
		publisher,
		fakeTxManager{},
		logger.InitLogger("tracker-service-test", logger.LevelError),
	)

	return &serviceFixture{
		service:   svc,
		snapshots: snapshots,
		summaries: summaries,
		publisher: publisher,
	}
}

func TestService_StartSnapshotsSession(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	sess, err := f.service.Start(ctx, "device-1", types.ActivityRun)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	stored, err := f.snapshots.Get(ctx, "device-1")
	if err != nil {
		t.Fatalf("expected snapshot after start: %v", err)
	}
	if stored.ID != sess.ID {
		t.Fatalf("snapshot holds wrong session: %s vs %s", stored.ID, sess.ID)
	}
}

func TestService_StartWhileActiveIsInvalid(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	if _, err := f.service.Start(ctx, "device-1", types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.service.Start(ctx, "device-1", types.ActivityWalk); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestService_AddSampleReturnsLiveMetrics(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	sess, err := f.service.Start(ctx, "device-1", types.ActivityRun)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	live, err := f.service.AddSample(ctx, "device-1", models.LocationSample{
		Location:  models.Location{Latitude: 0, Longitude: 0},
		Timestamp: sess.StartedAt.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("add sample failed: %v", err)
	}
	if live.SessionID != sess.ID || live.SampleCount != 1 {
		t.Fatalf("unexpected live metrics: %+v", live)
	}
}

func TestService_EndPersistsPublishesAndClears(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	sess, err := f.service.Start(ctx, "device-1", types.ActivityRun)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	summary, err := f.service.End(ctx, "device-1")
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if summary.SessionID != sess.ID {
		t.Fatalf("summary for wrong session: %s vs %s", summary.SessionID, sess.ID)
	}

	if len(f.summaries.saved) != 1 {
		t.Fatalf("expected 1 saved summary, got %d", len(f.summaries.saved))
	}
	if _, err := f.snapshots.Get(ctx, "device-1"); !errors.Is(err, types.ErrSnapshotNotFound) {
		t.Fatalf("snapshot must be deleted after end, got %v", err)
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(f.publisher.published))
	}
	if got := f.publisher.published[0]; got.SessionID != sess.ID || got.CorrelationID != sess.ID.String() {
		t.Fatalf("unexpected published message: %+v", got)
	}

	// A fresh session may start now.
	if _, err := f.service.Start(ctx, "device-1", types.ActivityWalk); err != nil {
		t.Fatalf("start after end failed: %v", err)
	}
}

func TestService_EndRetriesAfterFailedHandoff(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	if _, err := f.service.Start(ctx, "device-1", types.ActivityRun); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	f.summaries.failNext = true
	_, err := f.service.End(ctx, "device-1")
	if !errors.Is(err, types.ErrDatabaseFailed) {
		t.Fatalf("expected ErrDatabaseFailed, got %v", err)
	}
	if len(f.publisher.published) != 0 {
		t.Fatalf("nothing must be published before the summary is durable")
	}

	// Starting a new session during a pending hand-off stays illegal.
	if _, err := f.service.Start(ctx, "device-1", types.ActivityWalk); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition during pending hand-off, got %v", err)
	}

	summary, err := f.service.End(ctx, "device-1")
	if err != nil {
		t.Fatalf("retried end failed: %v", err)
	}
	if len(f.summaries.saved) != 1 || f.summaries.saved[0] != summary {
		t.Fatalf("retry must deliver the identical summary")
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("expected 1 published message after retry, got %d", len(f.publisher.published))
	}
}

func TestService_RestoresSnapshotOnFirstTouch(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	// A previous process left a running session behind.
	sessionID := uuid.New()
	startedAt := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	err := f.snapshots.Upsert(ctx, &models.Session{
		ID:        sessionID,
		DeviceID:  "device-1",
		Activity:  types.ActivityRun,
		Status:    types.StatusRunning,
		StartedAt: startedAt,
		Samples: []models.LocationSample{
			{Location: models.Location{Latitude: 0, Longitude: 0}, Timestamp: startedAt.Add(time.Second)},
			{Location: models.Location{Latitude: 0, Longitude: 0.001}, Timestamp: startedAt.Add(2 * time.Second)},
		},
		DistanceMeters: 111.19,
	})
	if err != nil {
		t.Fatalf("seeding snapshot failed: %v", err)
	}

	live, err := f.service.Live(ctx, "device-1")
	if err != nil {
		t.Fatalf("live after restore failed: %v", err)
	}
	if live.SessionID != sessionID {
		t.Fatalf("restored wrong session: %s vs %s", live.SessionID, sessionID)
	}
	if live.SampleCount != 2 || live.TotalDistanceMeters != 111.19 {
		t.Fatalf("restored metrics mismatch: %+v", live)
	}

	// The restored session still enforces sample ordering.
	_, err = f.service.AddSample(ctx, "device-1", models.LocationSample{
		Location:  models.Location{Latitude: 0, Longitude: 0.002},
		Timestamp: startedAt.Add(time.Second),
	})
	if !errors.Is(err, types.ErrOutOfOrderSample) {
		t.Fatalf("expected ErrOutOfOrderSample, got %v", err)
	}
}

func TestService_LiveWithoutSession(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Live(context.Background(), "device-1")
	if !errors.Is(err, types.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}
