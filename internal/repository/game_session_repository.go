package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/paradox-backend/internal/model"
)

// GameSessionRepository persists the singleton game_session row (id = 1).
// The row is created lazily by the first mutation.
type GameSessionRepository struct {
	pool *pgxpool.Pool
}

// NewGameSessionRepository creates a new GameSessionRepository.
func NewGameSessionRepository(pool *pgxpool.Pool) *GameSessionRepository {
	return &GameSessionRepository{pool: pool}
}

const gameSessionReturning = `RETURNING started, started_at, stopped_at, active_round, broadcast_message, version, updated_at`

func scanGameSession(row pgx.Row) (*model.GameSession, error) {
	g := &model.GameSession{}
	if err := row.Scan(&g.Started, &g.StartedAt, &g.StoppedAt, &g.ActiveRound,
		&g.BroadcastMessage, &g.Version, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return g, nil
}

// Get returns the current session. A missing row yields the zero session
// (not started, round 1, version 0).
func (r *GameSessionRepository) Get(ctx context.Context) (*model.GameSession, error) {
	g, err := scanGameSession(r.pool.QueryRow(ctx,
		`SELECT started, started_at, stopped_at, active_round, broadcast_message, version, updated_at
		 FROM game_session WHERE id = 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.GameSession{ActiveRound: 1}, nil
	}
	return g, err
}

// Start marks the game started, resets the active round to 1 and clears stopped_at.
func (r *GameSessionRepository) Start(ctx context.Context) (*model.GameSession, error) {
	return scanGameSession(r.pool.QueryRow(ctx, `
		INSERT INTO game_session (id, started, started_at, stopped_at, active_round, version, updated_at)
		VALUES (1, TRUE, NOW(), NULL, 1, 1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET started = TRUE, started_at = NOW(), stopped_at = NULL, active_round = 1,
		    version = game_session.version + 1, updated_at = NOW()
		`+gameSessionReturning))
}

// Stop marks the game stopped.
func (r *GameSessionRepository) Stop(ctx context.Context) (*model.GameSession, error) {
	return scanGameSession(r.pool.QueryRow(ctx, `
		INSERT INTO game_session (id, started, stopped_at, active_round, version, updated_at)
		VALUES (1, FALSE, NOW(), 1, 1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET started = FALSE, stopped_at = NOW(),
		    version = game_session.version + 1, updated_at = NOW()
		`+gameSessionReturning))
}

// SetActiveRound changes the round participants may enter.
func (r *GameSessionRepository) SetActiveRound(ctx context.Context, round int) (*model.GameSession, error) {
	return scanGameSession(r.pool.QueryRow(ctx, `
		INSERT INTO game_session (id, active_round, version, updated_at)
		VALUES (1, $1, 1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET active_round = EXCLUDED.active_round,
		    version = game_session.version + 1, updated_at = NOW()
		`+gameSessionReturning, round))
}

// SetBroadcast replaces the banner message.
func (r *GameSessionRepository) SetBroadcast(ctx context.Context, message string) (*model.GameSession, error) {
	return scanGameSession(r.pool.QueryRow(ctx, `
		INSERT INTO game_session (id, active_round, broadcast_message, version, updated_at)
		VALUES (1, 1, $1, 1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET broadcast_message = EXCLUDED.broadcast_message,
		    version = game_session.version + 1, updated_at = NOW()
		`+gameSessionReturning, message))
}
