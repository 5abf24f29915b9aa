package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/paradox-backend/internal/model"
)

var ErrDuplicateParticipant = errors.New("participant with this email already exists")

const participantColumns = `id, name, email, password_hash, score, rounds_completed, status, last_active, created_at, updated_at`

// ParticipantRepository handles participant data access.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

func scanParticipant(row pgx.Row) (*model.Participant, error) {
	p := &model.Participant{}
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.Score, &p.RoundsCompleted,
		&p.Status, &p.LastActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByKey retrieves a participant by its derived key.
func (r *ParticipantRepository) GetByKey(ctx context.Context, key string) (*model.Participant, error) {
	return scanParticipant(r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`, key))
}

// GetByEmail retrieves a participant by the normalized email column. Used for
// accounts whose key predates the current derivation.
func (r *ParticipantRepository) GetByEmail(ctx context.Context, email string) (*model.Participant, error) {
	return scanParticipant(r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE email = $1 LIMIT 1`, email))
}

// Create inserts a new participant with zero progress.
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO participants (id, name, email, password_hash, status, last_active)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING score, rounds_completed, last_active, created_at, updated_at`,
		p.ID, p.Name, p.Email, p.PasswordHash, p.Status,
	).Scan(&p.Score, &p.RoundsCompleted, &p.LastActive, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateParticipant
		}
		return err
	}
	return nil
}

// SetStatus updates status and last_active.
func (r *ParticipantRepository) SetStatus(ctx context.Context, key string, status model.ParticipantStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participants SET status = $1, last_active = NOW(), updated_at = NOW() WHERE id = $2`,
		status, key)
	return err
}

// Update applies an admin moderation edit. Rounds may move in either direction here.
func (r *ParticipantRepository) Update(ctx context.Context, p *model.Participant) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants
		 SET name = $1, score = $2, rounds_completed = $3, status = $4, updated_at = NOW()
		 WHERE id = $5`,
		p.Name, p.Score, p.RoundsCompleted, p.Status, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdatePassword replaces a participant's password hash.
func (r *ParticipantRepository) UpdatePassword(ctx context.Context, key, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participants SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, key)
	return err
}

// Delete removes a participant.
func (r *ParticipantRepository) Delete(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM participants WHERE id = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ProgressUpdate is one round result to persist.
type ProgressUpdate struct {
	ParticipantID string
	Round         int
	Score         int
	At            time.Time
}

// Advance records a round result. rounds_completed never decreases; score is
// overwritten with the latest round's percentage.
func (r *ParticipantRepository) Advance(ctx context.Context, u ProgressUpdate) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participants
		 SET rounds_completed = LEAST(GREATEST(rounds_completed, $1), 3),
		     score = $2,
		     last_active = $3,
		     updated_at = NOW()
		 WHERE id = $4`,
		u.Round, u.Score, u.At, u.ParticipantID)
	return err
}

// BulkAdvance applies a batch of round results in one statement. Within a
// batch, later entries for the same participant win for score.
func (r *ParticipantRepository) BulkAdvance(ctx context.Context, batch []ProgressUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	latest := make(map[string]ProgressUpdate, len(batch))
	maxRound := make(map[string]int, len(batch))
	order := make([]string, 0, len(batch))
	for _, u := range batch {
		if _, seen := latest[u.ParticipantID]; !seen {
			order = append(order, u.ParticipantID)
		}
		latest[u.ParticipantID] = u
		if u.Round > maxRound[u.ParticipantID] {
			maxRound[u.ParticipantID] = u.Round
		}
	}

	ids := make([]string, 0, len(order))
	rounds := make([]int, 0, len(order))
	scores := make([]int, 0, len(order))
	ats := make([]time.Time, 0, len(order))
	for _, id := range order {
		ids = append(ids, id)
		rounds = append(rounds, maxRound[id])
		scores = append(scores, latest[id].Score)
		ats = append(ats, latest[id].At)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE participants AS p
		SET rounds_completed = LEAST(GREATEST(p.rounds_completed, t.round), 3),
		    score = t.score,
		    last_active = t.at,
		    updated_at = NOW()
		FROM UNNEST($1::text[], $2::int[], $3::int[], $4::timestamptz[])
		     AS t (id, round, score, at)
		WHERE p.id = t.id`,
		ids, rounds, scores, ats)
	return err
}

// Leaderboard returns participants ordered by score desc, rounds desc, name asc.
// A non-positive limit returns everyone.
func (r *ParticipantRepository) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	query := `SELECT id, name, score, rounds_completed, status, last_active
		 FROM participants
		 ORDER BY score DESC, rounds_completed DESC, name ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Score, &e.RoundsCompleted, &e.Status, &e.LastActive); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List returns every participant ordered by name for the admin console.
func (r *ParticipantRepository) List(ctx context.Context) ([]model.Participant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []model.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}
