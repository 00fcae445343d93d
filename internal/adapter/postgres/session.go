package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
)

// SnapshotRepo stores the serialized in-progress session, one row per device.
// The whole session is written as a jsonb payload so it can be reconstructed
// verbatim after a restart; the tracker state, not the database, is the
// authoritative shape.
type SnapshotRepo struct {
	db *pgxpool.Pool
}

func NewSnapshotRepo(db *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{
		db: db,
	}
}

func (r *SnapshotRepo) Get(ctx context.Context, deviceID string) (*models.Session, error) {
	const op = "SnapshotRepo.Get"
	query := `
		SELECT payload
		FROM active_sessions
		WHERE device_id = $1;`

	var payload []byte
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, deviceID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrSnapshotNotFound
		}

		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: corrupt snapshot payload: %w", op, err))
	}

	return &session, nil
}

func (r *SnapshotRepo) Upsert(ctx context.Context, session *models.Session) error {
	const op = "SnapshotRepo.Upsert"
	query := `
		INSERT INTO active_sessions(device_id, payload, updated_at)
		VALUES($1, $2, now())
		ON CONFLICT (device_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now();`

	payload, err := json.Marshal(session)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: could not marshal session: %w", op, err))
	}

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, session.DeviceID, payload); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, deviceID string) error {
	const op = "SnapshotRepo.Delete"
	query := `
		DELETE FROM active_sessions
		WHERE device_id = $1;`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, deviceID); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}
