package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
)

var ErrInvalidRound = errors.New("round must be between 1 and 3")

// GameSessionStore persists the singleton game session. Every mutation is a
// single atomic write that returns the committed row.
type GameSessionStore interface {
	Get(ctx context.Context) (*model.GameSession, error)
	Start(ctx context.Context) (*model.GameSession, error)
	Stop(ctx context.Context) (*model.GameSession, error)
	SetActiveRound(ctx context.Context, round int) (*model.GameSession, error)
	SetBroadcast(ctx context.Context, message string) (*model.GameSession, error)
}

// GameStateService owns the shared game session and fans changes out to
// local subscribers. Changes travel through Redis so every instance sees
// mutations made by any other.
type GameStateService struct {
	store        GameSessionStore
	rdb          *redis.Client
	pollInterval time.Duration
	log          zerolog.Logger

	mu      sync.Mutex
	current *model.GameSession
	subs    map[uint64]chan model.GameSession
	nextID  uint64
}

// NewGameStateService creates a new GameStateService. Call Run to start
// receiving remote changes.
func NewGameStateService(store GameSessionStore, rdb *redis.Client, pollInterval time.Duration, log zerolog.Logger) *GameStateService {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &GameStateService{
		store:        store,
		rdb:          rdb,
		pollInterval: pollInterval,
		log:          log.With().Str("component", "game_state").Logger(),
		subs:         make(map[uint64]chan model.GameSession),
	}
}

// ─── Reads ───────────────────────────────────────────────────────────────

// Snapshot returns the latest game session from the Redis cache, falling
// back to the database.
func (s *GameStateService) Snapshot(ctx context.Context) (*model.GameSession, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.GameStateKey()).Bytes()
	if err == nil {
		var g model.GameSession
		if jsonErr := json.Unmarshal(raw, &g); jsonErr == nil {
			return &g, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Debug().Err(err).Msg("game state cache unavailable, reading database")
	}

	g, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load game session: %w", err)
	}
	s.cache(ctx, g)
	return g, nil
}

// Current returns the most recent snapshot this instance has seen, loading
// it on first use. A nil result means the state is unknown.
func (s *GameStateService) Current(ctx context.Context) *model.GameSession {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		c := *cur
		return &c
	}

	g, err := s.Snapshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("game state unknown")
		return nil
	}
	s.deliver(*g)
	return g
}

// ─── Mutations ───────────────────────────────────────────────────────────

// Start opens the game and resets the active round to 1.
func (s *GameStateService) Start(ctx context.Context) (*model.GameSession, error) {
	return s.mutate(ctx, "start", s.store.Start)
}

// Stop closes the game.
func (s *GameStateService) Stop(ctx context.Context) (*model.GameSession, error) {
	return s.mutate(ctx, "stop", s.store.Stop)
}

// SetActiveRound changes the round participants may enter.
func (s *GameStateService) SetActiveRound(ctx context.Context, round int) (*model.GameSession, error) {
	if round < 1 || round > model.MaxRounds {
		return nil, ErrInvalidRound
	}
	return s.mutate(ctx, "set_round", func(ctx context.Context) (*model.GameSession, error) {
		return s.store.SetActiveRound(ctx, round)
	})
}

// SendBroadcast replaces the banner message shown to participants.
func (s *GameStateService) SendBroadcast(ctx context.Context, message string) (*model.GameSession, error) {
	return s.mutate(ctx, "broadcast", func(ctx context.Context) (*model.GameSession, error) {
		return s.store.SetBroadcast(ctx, message)
	})
}

func (s *GameStateService) mutate(ctx context.Context, op string, write func(context.Context) (*model.GameSession, error)) (*model.GameSession, error) {
	g, err := write(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("game session mutation failed")
		return nil, fmt.Errorf("%s game session: %w", op, err)
	}

	s.cache(ctx, g)
	s.publish(ctx, g)
	s.deliver(*g)

	s.log.Info().Str("op", op).Bool("started", g.Started).Int("round", g.ActiveRound).Int64("version", g.Version).Msg("game session updated")
	return g, nil
}

func (s *GameStateService) cache(ctx context.Context, g *model.GameSession) {
	raw, _ := json.Marshal(g)
	if err := s.rdb.Set(ctx, config.CacheKey.GameStateKey(), raw, 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache game state")
	}
}

func (s *GameStateService) publish(ctx context.Context, g *model.GameSession) {
	raw, _ := json.Marshal(g)
	if err := s.rdb.Publish(ctx, config.CacheKey.GameStateChannel(), raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish game state")
	}
}

// ─── Subscriptions ───────────────────────────────────────────────────────

// Subscribe returns a channel that yields the current snapshot immediately
// and every later change. Delivery is last-value-wins: a slow reader only
// ever sees the newest snapshot. The subscription ends when ctx is done or
// the returned func is called; the channel is then closed.
func (s *GameStateService) Subscribe(ctx context.Context) (<-chan model.GameSession, func()) {
	ch := make(chan model.GameSession, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	if s.current != nil {
		ch <- *s.current
	}
	known := s.current != nil
	s.mu.Unlock()

	if !known {
		go func() {
			if g, err := s.Snapshot(ctx); err == nil {
				s.deliver(*g)
			}
		}()
	}

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()

	return ch, unsubscribe
}

// deliver records g as current and fans it out, dropping versions already seen.
func (s *GameStateService) deliver(g model.GameSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && g.Version <= s.current.Version {
		return
	}
	s.current = &g

	for _, ch := range s.subs {
		select {
		case ch <- g:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- g
		}
	}
}

// ─── Background loops ────────────────────────────────────────────────────

// Run listens for remote changes until ctx is cancelled. Every (re)subscribe
// confirmation reloads the snapshot so nothing published while disconnected
// is missed. A polling loop covers periods when push is unavailable.
func (s *GameStateService) Run(ctx context.Context) {
	s.log.Info().Dur("poll_interval", s.pollInterval).Msg("game state hub started")
	go s.poll(ctx)

	pubsub := s.rdb.Subscribe(ctx, config.CacheKey.GameStateChannel())
	defer pubsub.Close()

	for {
		msg, err := pubsub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info().Msg("game state hub stopped")
				return
			}
			s.log.Warn().Err(err).Msg("game state subscription error, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				s.refresh(ctx)
			}
		case *redis.Message:
			var g model.GameSession
			if err := json.Unmarshal([]byte(m.Payload), &g); err != nil {
				s.log.Warn().Err(err).Msg("discarding malformed game state event")
				continue
			}
			s.deliver(g)
		}
	}
}

func (s *GameStateService) poll(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *GameStateService) refresh(ctx context.Context) {
	g, err := s.Snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("game state refresh failed")
		}
		return
	}
	s.deliver(*g)
}
