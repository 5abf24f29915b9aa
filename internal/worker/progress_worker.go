package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/repository"
)

// ProgressStore applies round results to participant accounts.
type ProgressStore interface {
	BulkAdvance(ctx context.Context, batch []repository.ProgressUpdate) error
	Advance(ctx context.Context, u repository.ProgressUpdate) error
}

// ProgressWorker drains the progress queue into participant accounts and
// announces each change on the leaderboard channel.
type ProgressWorker struct {
	store ProgressStore
	rdb   *redis.Client
	log   zerolog.Logger

	// BatchSize and BatchTimeout override the package defaults when set.
	BatchSize    int
	BatchTimeout time.Duration
}

func NewProgressWorker(store ProgressStore, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	return &ProgressWorker{
		store:        store,
		rdb:          rdb,
		log:          log.With().Str("component", "progress_worker").Logger(),
		BatchSize:    BatchSize,
		BatchTimeout: BatchTimeout,
	}
}

// Start runs until ctx is cancelled.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProgressWorker started")

	loop := &batchLoop[model.RoundResult]{
		rdb:     w.rdb,
		queue:   config.WorkerKey.PersistProgressQueue,
		size:    w.BatchSize,
		timeout: w.BatchTimeout,
		log:     w.log,
	}
	loop.flush = func(ctx context.Context, batch []model.RoundResult) {
		w.flushSafe(ctx, loop, batch)
	}
	loop.run(ctx)
}

func toUpdate(r model.RoundResult) repository.ProgressUpdate {
	return repository.ProgressUpdate{
		ParticipantID: r.ParticipantID,
		Round:         r.Round,
		Score:         r.Score,
		At:            r.SubmittedAt,
	}
}

// flushSafe tries the bulk update, then row by row, then requeues. Failed
// rounds never advance a participant and are dropped here.
func (w *ProgressWorker) flushSafe(ctx context.Context, loop *batchLoop[model.RoundResult], batch []model.RoundResult) {
	passed := make([]model.RoundResult, 0, len(batch))
	for _, r := range batch {
		if r.Passed {
			passed = append(passed, r)
		}
	}
	if batch = passed; len(batch) == 0 {
		return
	}

	updates := make([]repository.ProgressUpdate, 0, len(batch))
	for _, r := range batch {
		updates = append(updates, toUpdate(r))
	}

	err := w.store.BulkAdvance(ctx, updates)
	if err == nil {
		w.announce(ctx, batch)
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("bulk progress update failed, using fallback")

	var failed, done []model.RoundResult
	for _, r := range batch {
		if err := w.store.Advance(ctx, toUpdate(r)); err != nil {
			w.log.Error().Err(err).Str("participant_id", r.ParticipantID).Msg("progress update failed, requeueing")
			failed = append(failed, r)
			continue
		}
		done = append(done, r)
	}
	w.announce(ctx, done)
	loop.requeue(ctx, failed)
}

// announce publishes one event per result for live leaderboard viewers.
func (w *ProgressWorker) announce(ctx context.Context, results []model.RoundResult) {
	if len(results) == 0 {
		return
	}
	pipe := w.rdb.Pipeline()
	for _, r := range results {
		payload, _ := json.Marshal(model.ProgressEvent{
			Type:            "round_submitted",
			ParticipantID:   r.ParticipantID,
			Score:           r.Score,
			RoundsCompleted: r.Round,
		})
		pipe.Publish(ctx, config.CacheKey.LeaderboardChannel(), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn().Err(err).Msg("failed to publish leaderboard events")
	}
}
