package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize      = 50
	BatchTimeout   = 2 * time.Second
	PollTimeout    = 1 * time.Second // Must be >= 1s to satisfy Redis
	ShutdownFlush  = 5 * time.Second
	requeueBackoff = 2 * time.Second
)

// batchLoop pops JSON items off a Redis list and hands them to flush in
// batches, by size or age, whichever comes first. The remaining batch is
// flushed on shutdown.
type batchLoop[T any] struct {
	rdb     *redis.Client
	queue   string
	size    int
	timeout time.Duration
	log     zerolog.Logger
	flush   func(ctx context.Context, batch []T)
}

func (b *batchLoop[T]) run(ctx context.Context) {
	buffer := make([]T, 0, b.size)
	lastFlush := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 && (len(buffer) >= b.size || time.Since(lastFlush) >= b.timeout) {
			b.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			b.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis; returns immediately if data exists
		result, err := b.rdb.BLPop(ctx, PollTimeout, b.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			b.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleepCtx(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			// Malformed JSON can never succeed; log and discard.
			b.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		buffer = append(buffer, item)
	}
}

func (b *batchLoop[T]) shutdown(buffer []T) {
	if len(buffer) == 0 {
		return
	}
	b.log.Info().Int("count", len(buffer)).Msg("Worker stopping, flushing remaining buffer...")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownFlush)
	defer cancel()
	b.flush(ctx, buffer)
}

// requeue pushes failed items back onto the queue in one pipeline.
func (b *batchLoop[T]) requeue(ctx context.Context, items []T) {
	if len(items) == 0 {
		return
	}
	pipe := b.rdb.Pipeline()
	for _, it := range items {
		data, _ := json.Marshal(it)
		pipe.RPush(ctx, b.queue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		b.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	b.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	sleepCtx(ctx, requeueBackoff)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
