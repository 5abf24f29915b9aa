package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
)

// ActivityStore appends round activity records.
type ActivityStore interface {
	BulkInsert(ctx context.Context, batch []model.RoundActivity) error
	Insert(ctx context.Context, a model.RoundActivity) error
}

// ActivityWorker drains the activity queue into the round_activity log.
type ActivityWorker struct {
	store ActivityStore
	rdb   *redis.Client
	log   zerolog.Logger

	BatchSize    int
	BatchTimeout time.Duration
}

func NewActivityWorker(store ActivityStore, rdb *redis.Client, log zerolog.Logger) *ActivityWorker {
	return &ActivityWorker{
		store:        store,
		rdb:          rdb,
		log:          log.With().Str("component", "activity_worker").Logger(),
		BatchSize:    BatchSize,
		BatchTimeout: BatchTimeout,
	}
}

// Start runs until ctx is cancelled.
func (w *ActivityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ActivityWorker started")

	loop := &batchLoop[model.RoundResult]{
		rdb:     w.rdb,
		queue:   config.WorkerKey.PersistActivityQueue,
		size:    w.BatchSize,
		timeout: w.BatchTimeout,
		log:     w.log,
	}
	loop.flush = func(ctx context.Context, batch []model.RoundResult) {
		w.flushSafe(ctx, loop, batch)
	}
	loop.run(ctx)
}

func toActivity(r model.RoundResult) model.RoundActivity {
	return model.RoundActivity{
		ParticipantID: r.ParticipantID,
		RoundType:     r.RoundType,
		Door:          r.Door,
		Score:         r.Score,
		HintsUsed:     r.HintsUsed,
		Trigger:       r.Trigger,
		RecordedAt:    r.SubmittedAt,
	}
}

// flushSafe attempts a COPY, then row-by-row inserts, then requeues.
func (w *ActivityWorker) flushSafe(ctx context.Context, loop *batchLoop[model.RoundResult], batch []model.RoundResult) {
	rows := make([]model.RoundActivity, 0, len(batch))
	for _, r := range batch {
		rows = append(rows, toActivity(r))
	}

	err := w.store.BulkInsert(ctx, rows)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.RoundResult
	for i, r := range batch {
		if err := w.store.Insert(ctx, rows[i]); err != nil {
			if isForeignKeyViolation(err) {
				w.log.Warn().Str("participant_id", r.ParticipantID).Msg("Dropping activity for deleted participant")
				continue
			}
			w.log.Error().Err(err).Str("participant_id", r.ParticipantID).Msg("Insert failed, requeueing")
			failed = append(failed, r)
		}
	}
	loop.requeue(ctx, failed)
}

// isForeignKeyViolation reports a row whose participant no longer exists;
// retrying it can never succeed.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
