package session

import (
	"context"

	"github.com/stridelab/activity-tracker/internal/domain/models"
)

type (
	// SnapshotRepo stores the serialized in-progress session so it can be
	// reconstructed verbatim after a process restart.
	SnapshotRepo interface {
		Get(ctx context.Context, deviceID string) (*models.Session, error)
		Upsert(ctx context.Context, session *models.Session) error
		Delete(ctx context.Context, deviceID string) error
	}

	// SummaryRepo persists finalized session summaries.
	SummaryRepo interface {
		Save(ctx context.Context, summary models.SessionSummary) error
	}

	// SummaryPublisher announces completed sessions to downstream consumers.
	SummaryPublisher interface {
		PublishSummaryCompleted(ctx context.Context, msg models.SummaryCompletedMessage) error
	}
)
