package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
	"github.com/stridelab/activity-tracker/pkg/logger"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
	"github.com/stridelab/activity-tracker/pkg/metrics"
	"github.com/stridelab/activity-tracker/pkg/trm"
)

const serviceName = "tracker-service"

// Service exposes the tracker core to the transport adapters. The state
// machine itself is lock-free and expects serialized calls; the HTTP and
// websocket handlers are concurrent, so this service is the caller that
// serializes them, behind one mutex.
//
// Each device owns an independent tracker; a device's in-progress session is
// snapshotted to the repo after every accepted mutation and lazily restored
// on first touch after a restart.
type Service struct {
	mu       sync.Mutex
	trackers map[string]*Tracker

	snapshots SnapshotRepo
	summaries SummaryRepo
	publisher SummaryPublisher
	trm       trm.TxManager

	log logger.Logger
}

func NewService(
	snapshots SnapshotRepo,
	summaries SummaryRepo,
	publisher SummaryPublisher,
	txManager trm.TxManager,
	log logger.Logger,
) *Service {
	return &Service{
		trackers:  make(map[string]*Tracker),
		snapshots: snapshots,
		summaries: summaries,
		publisher: publisher,
		trm:       txManager,
		log:       log,
	}
}

// Start begins a new session for the device.
func (s *Service) Start(ctx context.Context, deviceID string, activity types.ActivityType) (*models.Session, error) {
	ctx = wrap.WithAction(wrap.WithDeviceID(ctx, deviceID), "session_start")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracker(ctx, deviceID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	sess, err := t.Start(activity)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	ctx = wrap.WithSessionID(ctx, sess.ID.String())
	s.snapshot(ctx, sess)

	metrics.ActiveSessionsGauge.WithLabelValues(serviceName).Inc()
	s.log.Info(ctx, "session started", "activity", sess.Activity)

	return sess, nil
}

// Pause suspends the running session.
func (s *Service) Pause(ctx context.Context, deviceID string) (*models.Session, error) {
	ctx = wrap.WithAction(wrap.WithDeviceID(ctx, deviceID), "session_pause")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracker(ctx, deviceID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	sess, err := t.Pause()
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.snapshot(wrap.WithSessionID(ctx, sess.ID.String()), sess)

	return sess, nil
}

// Resume continues a paused session.
func (s *Service) Resume(ctx context.Context, deviceID string) (*models.Session, error) {
	ctx = wrap.WithAction(wrap.WithDeviceID(ctx, deviceID), "session_resume")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracker(ctx, deviceID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	sess, err := t.Resume()
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.snapshot(wrap.WithSessionID(ctx, sess.ID.String()), sess)

	return sess, nil
}

// AddSample ingests one GPS fix into the running session.
func (s *Service) AddSample(ctx context.Context, deviceID string, sample models.LocationSample) (models.LiveMetrics, error) {
	ctx = wrap.WithAction(wrap.WithDeviceID(ctx, deviceID), "session_add_sample")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracker(ctx, deviceID)
	if err != nil {
		return models.LiveMetrics{}, wrap.Error(ctx, err)
	}

	sess, err := t.AddSample(sample)
	if err != nil {
		metrics.SamplesTotal.WithLabelValues(serviceName, "rejected").Inc()
		return models.LiveMetrics{}, wrap.Error(ctx, err)
	}
	metrics.SamplesTotal.WithLabelValues(serviceName, "accepted").Inc()

	s.snapshot(wrap.WithSessionID(ctx, sess.ID.String()), sess)

	live, err := t.LiveMetrics()
	if err != nil {
		return models.LiveMetrics{}, wrap.Error(ctx, err)
	}
	return live, nil
}

// Live reports the current metrics of the device's session.
func (s *Service) Live(ctx context.Context, deviceID string) (models.LiveMetrics, error) {
	ctx = wrap.WithAction(wrap.WithDeviceID(ctx, deviceID), "session_live_metrics")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracker(ctx, deviceID)
	if err != nil {
		return models.LiveMetrics{}, wrap.Error(ctx, err)
	}

	live, err := t.LiveMetrics()
	if err != nil {
		return models.LiveMetrics{}, wrap.Error(ctx, err)
	}
	return live, nil
}

// End finalizes the session and hands the summary off for persistence.
//
// The summary is computed exactly once by the tracker; the durable write
// (summary insert + snapshot delete) runs in one transaction. When the write
// fails the session stays attached with its cached summary, so the caller can
// call End again and retry the delivery without metrics being re-derived.
// Publishing to the broker happens after the commit and is best-effort: the
// summary is already durable, a consumer can always catch up from storage.
func (s *Service) End(ctx context.Context, deviceID string) (models.SessionSummary, error) {
	ctx = wrap.WithAction(wrap.WithDeviceID(ctx, deviceID), "session_end")

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracker(ctx, deviceID)
	if err != nil {
		return models.SessionSummary{}, wrap.Error(ctx, err)
	}

	summary, err := t.End()
	if err != nil {
		return models.SessionSummary{}, wrap.Error(ctx, err)
	}

	ctx = wrap.WithSessionID(ctx, summary.SessionID.String())

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.summaries.Save(ctx, summary); err != nil {
			return fmt.Errorf("could not save summary: %w", err)
		}
		if err := s.snapshots.Delete(ctx, deviceID); err != nil {
			return fmt.Errorf("could not delete session snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionSummaryHandoffFailed)
		s.log.Error(ctx, "summary hand-off failed, session kept for retry", err)
		return models.SessionSummary{}, wrap.Error(ctx, errors.Join(types.ErrDatabaseFailed, err))
	}

	t.Discard()

	metrics.ActiveSessionsGauge.WithLabelValues(serviceName).Dec()
	metrics.SessionsCompletedTotal.WithLabelValues(serviceName, string(summary.Activity)).Inc()

	s.publish(ctx, summary)

	s.log.Info(ctx, "session completed",
		"distance_meters", summary.TotalDistanceMeters,
		"active_duration_seconds", summary.ActiveDurationSeconds,
		"samples", summary.SampleCount,
	)

	return summary, nil
}

// tracker returns the device's tracker, restoring a snapshotted session on
// first touch. Callers hold s.mu.
func (s *Service) tracker(ctx context.Context, deviceID string) (*Tracker, error) {
	if t, ok := s.trackers[deviceID]; ok {
		return t, nil
	}

	t := NewTracker(deviceID)

	sess, err := s.snapshots.Get(ctx, deviceID)
	switch {
	case err == nil:
		if err := t.Restore(sess); err != nil {
			return nil, fmt.Errorf("could not restore session snapshot: %w", err)
		}
		metrics.ActiveSessionsGauge.WithLabelValues(serviceName).Inc()
		s.log.Info(wrap.WithSessionID(ctx, sess.ID.String()), "restored in-progress session", "status", sess.Status)
	case errors.Is(err, types.ErrSnapshotNotFound):
		// nothing persisted, fresh tracker
	default:
		return nil, fmt.Errorf("could not load session snapshot: %w", err)
	}

	s.trackers[deviceID] = t
	return t, nil
}

// snapshot persists the serialized session. Failure does not reject the
// mutation: memory stays the source of truth and the next accepted mutation
// rewrites the whole snapshot anyway.
func (s *Service) snapshot(ctx context.Context, sess *models.Session) {
	if err := s.snapshots.Upsert(ctx, sess); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionSessionSnapshotFailed)
		s.log.Error(ctx, "failed to snapshot session", err)
		metrics.SnapshotFailuresTotal.WithLabelValues(serviceName).Inc()
	}
}

func (s *Service) publish(ctx context.Context, summary models.SessionSummary) {
	if s.publisher == nil {
		return
	}

	msg := models.SummaryCompletedMessage{
		SessionID:               summary.SessionID,
		DeviceID:                summary.DeviceID,
		Activity:                string(summary.Activity),
		StartedAt:               summary.StartedAt,
		EndedAt:                 summary.EndedAt,
		TotalDistanceMeters:     summary.TotalDistanceMeters,
		ActiveDurationSeconds:   summary.ActiveDurationSeconds,
		AveragePaceSecondsPerKm: summary.AveragePaceSecondsPerKm,
		SampleCount:             summary.SampleCount,
		CorrelationID:           summary.SessionID.String(),
	}

	if err := s.publisher.PublishSummaryCompleted(ctx, msg); err != nil {
		s.log.Error(ctx, "failed to publish completed summary", errors.Join(types.ErrFailedToPublishSummary, err))
		metrics.SummaryPublishFailuresTotal.WithLabelValues(serviceName).Inc()
	}
}
