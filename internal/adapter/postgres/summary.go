package repo

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
	"github.com/stridelab/activity-tracker/pkg/postgres"
)

// SummaryRepo persists finalized session summaries. Rows are immutable.
type SummaryRepo struct {
	db *pgxpool.Pool
}

func NewSummaryRepo(db *pgxpool.Pool) *SummaryRepo {
	return &SummaryRepo{
		db: db,
	}
}

func (r *SummaryRepo) Save(ctx context.Context, summary models.SessionSummary) error {
	const op = "SummaryRepo.Save"
	query := `
		INSERT INTO session_summaries(
			id, device_id, activity, started_at, ended_at,
			total_distance_meters, active_duration_seconds,
			average_pace_sec_per_km, sample_count)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	// Undefined pace is stored as NULL, not as a magic number.
	var pace *float64
	if summary.AveragePaceSecondsPerKm.Defined() {
		v := float64(summary.AveragePaceSecondsPerKm)
		pace = &v
	}

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		summary.SessionID,
		summary.DeviceID,
		string(summary.Activity),
		summary.StartedAt,
		summary.EndedAt,
		summary.TotalDistanceMeters,
		summary.ActiveDurationSeconds,
		pace,
		summary.SampleCount,
	); err != nil {
		// A duplicate id means this summary was already delivered by an
		// earlier attempt; the retry succeeds.
		if postgres.IsUniqueViolation(err) {
			return nil
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// FindByDevice returns the stored summaries for a device, newest first.
func (r *SummaryRepo) FindByDevice(ctx context.Context, deviceID string, limit int) ([]models.SessionSummary, error) {
	const op = "SummaryRepo.FindByDevice"
	query := `
		SELECT id, device_id, activity, started_at, ended_at,
		       total_distance_meters, active_duration_seconds,
		       average_pace_sec_per_km, sample_count
		FROM session_summaries
		WHERE device_id = $1
		ORDER BY ended_at DESC
		LIMIT $2;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, deviceID, limit)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var summaries []models.SessionSummary
	for rows.Next() {
		var (
			s        models.SessionSummary
			activity string
			pace     *float64
		)
		if err := rows.Scan(
			&s.SessionID,
			&s.DeviceID,
			&activity,
			&s.StartedAt,
			&s.EndedAt,
			&s.TotalDistanceMeters,
			&s.ActiveDurationSeconds,
			&pace,
			&s.SampleCount,
		); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
		}

		s.Activity = types.ActivityType(activity)
		if pace != nil {
			s.AveragePaceSecondsPerKm = models.Pace(*pace)
		} else {
			s.AveragePaceSecondsPerKm = models.Pace(math.Inf(1))
		}

		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return summaries, nil
}
