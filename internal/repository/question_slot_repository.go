package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/paradox-backend/internal/model"
)

// QuestionSlotRepository stores question lists per (round type, door) as JSONB.
type QuestionSlotRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionSlotRepository creates a new QuestionSlotRepository.
func NewQuestionSlotRepository(pool *pgxpool.Pool) *QuestionSlotRepository {
	return &QuestionSlotRepository{pool: pool}
}

// Get retrieves one slot. pgx.ErrNoRows means the slot was never saved.
func (r *QuestionSlotRepository) Get(ctx context.Context, t model.RoundType, door int) (*model.QuestionSlot, error) {
	var raw []byte
	slot := &model.QuestionSlot{Type: t, Door: door}
	err := r.pool.QueryRow(ctx,
		`SELECT questions, updated_at FROM question_slots WHERE slot_key = $1`,
		model.SlotKey(t, door),
	).Scan(&raw, &slot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &slot.Questions); err != nil {
		return nil, err
	}
	return slot, nil
}

// Save replaces the slot's question list.
func (r *QuestionSlotRepository) Save(ctx context.Context, t model.RoundType, door int, questions []json.RawMessage) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO question_slots (slot_key, round_type, door, questions, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, NOW())
		 ON CONFLICT (slot_key) DO UPDATE SET questions = EXCLUDED.questions, updated_at = NOW()`,
		model.SlotKey(t, door), t, door, raw)
	return err
}

// InsertIfAbsent writes the slot only when it does not exist yet and reports
// whether a row was inserted.
func (r *QuestionSlotRepository) InsertIfAbsent(ctx context.Context, t model.RoundType, door int, questions []json.RawMessage) (bool, error) {
	raw, err := json.Marshal(questions)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO question_slots (slot_key, round_type, door, questions, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, NOW())
		 ON CONFLICT (slot_key) DO NOTHING`,
		model.SlotKey(t, door), t, door, raw)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
