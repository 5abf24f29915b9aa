package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/paradox-backend/internal/model"
)

// ActivityRepository appends round submission records to round_activity.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

var activityColumns = []string{"participant_id", "round_type", "door", "score", "hints_used", "trigger", "recorded_at"}

// BulkInsert copies a batch of records in one round trip.
func (r *ActivityRepository) BulkInsert(ctx context.Context, batch []model.RoundActivity) error {
	rows := make([][]any, 0, len(batch))
	for _, a := range batch {
		rows = append(rows, []any{a.ParticipantID, a.RoundType, a.Door, a.Score, a.HintsUsed, a.Trigger, a.RecordedAt})
	}
	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"round_activity"}, activityColumns, pgx.CopyFromRows(rows))
	return err
}

// Insert writes a single record.
func (r *ActivityRepository) Insert(ctx context.Context, a model.RoundActivity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO round_activity (participant_id, round_type, door, score, hints_used, trigger, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ParticipantID, a.RoundType, a.Door, a.Score, a.HintsUsed, a.Trigger, a.RecordedAt)
	return err
}

// ListByParticipant returns a participant's submissions, newest first.
func (r *ActivityRepository) ListByParticipant(ctx context.Context, participantID string) ([]model.RoundActivity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT participant_id, round_type, door, score, hints_used, trigger, recorded_at
		 FROM round_activity WHERE participant_id = $1 ORDER BY recorded_at DESC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RoundActivity{}
	for rows.Next() {
		var a model.RoundActivity
		if err := rows.Scan(&a.ParticipantID, &a.RoundType, &a.Door, &a.Score, &a.HintsUsed, &a.Trigger, &a.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
