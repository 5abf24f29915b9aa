package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/questionbank"
	"golang.org/x/sync/errgroup"
)

const questionCacheTTL = 10 * time.Minute

// QuestionSlotStore persists question slots.
type QuestionSlotStore interface {
	Get(ctx context.Context, t model.RoundType, door int) (*model.QuestionSlot, error)
	Save(ctx context.Context, t model.RoundType, door int, questions []json.RawMessage) error
	InsertIfAbsent(ctx context.Context, t model.RoundType, door int, questions []json.RawMessage) (bool, error)
}

// QuestionService serves the question bank. Stored slots take precedence;
// the bundled defaults fill any slot that is empty or unreachable.
type QuestionService struct {
	store QuestionSlotStore
	rdb   *redis.Client
	bank  *questionbank.Bank
	log   zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(store QuestionSlotStore, rdb *redis.Client, bank *questionbank.Bank, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store: store,
		rdb:   rdb,
		bank:  bank,
		log:   log.With().Str("component", "question_service").Logger(),
	}
}

// Get returns the questions for a slot.
func (s *QuestionService) Get(ctx context.Context, t model.RoundType, door int) (*model.QuestionSlot, error) {
	if !t.Valid() || !model.ValidDoor(door) {
		return nil, questionbank.ErrInvalidSlot
	}

	cacheKey := config.CacheKey.QuestionSlotKey(string(t), door)
	if raw, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		var slot model.QuestionSlot
		if json.Unmarshal(raw, &slot) == nil {
			return &slot, nil
		}
	}

	slot, err := s.store.Get(ctx, t, door)
	switch {
	case err == nil && len(slot.Questions) > 0:
		if raw, mErr := json.Marshal(slot); mErr == nil {
			s.rdb.Set(ctx, cacheKey, raw, questionCacheTTL)
		}
		return slot, nil
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		s.log.Warn().Err(err).Str("slot", model.SlotKey(t, door)).Msg("question store unavailable, serving bundled questions")
	}

	return s.bundledSlot(t, door)
}

func (s *QuestionService) bundledSlot(t model.RoundType, door int) (*model.QuestionSlot, error) {
	qs, err := s.bank.Slot(t, door)
	if err != nil {
		return nil, err
	}
	return &model.QuestionSlot{Type: t, Door: door, Questions: qs, Bundled: true}, nil
}

// GetForParticipant returns a slot with quiz answer keys removed.
func (s *QuestionService) GetForParticipant(ctx context.Context, t model.RoundType, door int) (*model.QuestionSlot, error) {
	slot, err := s.Get(ctx, t, door)
	if err != nil {
		return nil, err
	}
	redacted, err := questionbank.Redact(t, slot.Questions)
	if err != nil {
		return nil, err
	}
	out := *slot
	out.Questions = redacted
	return &out, nil
}

// Save validates and replaces a slot.
func (s *QuestionService) Save(ctx context.Context, t model.RoundType, door int, questions []json.RawMessage) (*model.QuestionSlot, error) {
	if !t.Valid() || !model.ValidDoor(door) {
		return nil, questionbank.ErrInvalidSlot
	}
	if err := questionbank.Validate(t, questions); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, t, door, questions); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}
	s.rdb.Del(ctx, config.CacheKey.QuestionSlotKey(string(t), door))

	s.log.Info().Str("slot", model.SlotKey(t, door)).Int("count", len(questions)).Msg("question slot saved")
	return &model.QuestionSlot{Type: t, Door: door, Questions: questions, UpdatedAt: time.Now()}, nil
}

// SeedIfEmpty writes the bundled questions into every slot that has none and
// returns how many slots were seeded.
func (s *QuestionService) SeedIfEmpty(ctx context.Context) (int, error) {
	var seeded atomic.Int32
	g, gctx := errgroup.WithContext(ctx)

	for _, t := range model.RoundTypes {
		for door := 1; door <= model.Doors; door++ {
			g.Go(func() error {
				qs, err := s.bank.Slot(t, door)
				if err != nil {
					return err
				}
				inserted, err := s.store.InsertIfAbsent(gctx, t, door, qs)
				if err != nil {
					return fmt.Errorf("seed %s: %w", model.SlotKey(t, door), err)
				}
				if inserted {
					seeded.Add(1)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return int(seeded.Load()), err
	}
	s.log.Info().Int32("seeded", seeded.Load()).Msg("question bank seeded")
	return int(seeded.Load()), nil
}

// GetAllForAdmin returns all nine slots in play order.
func (s *QuestionService) GetAllForAdmin(ctx context.Context) ([]model.QuestionSlot, error) {
	slots := make([]model.QuestionSlot, len(model.RoundTypes)*model.Doors)
	g, gctx := errgroup.WithContext(ctx)

	for i, t := range model.RoundTypes {
		for door := 1; door <= model.Doors; door++ {
			idx := i*model.Doors + door - 1
			g.Go(func() error {
				slot, err := s.Get(gctx, t, door)
				if err != nil {
					return err
				}
				slots[idx] = *slot
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}
