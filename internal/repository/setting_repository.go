package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/paradox-backend/internal/model"
)

// SettingRepository stores key/value settings in app_settings.
type SettingRepository struct {
	pool *pgxpool.Pool
}

func NewSettingRepository(pool *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{pool: pool}
}

// GetGate loads the entry and quit passwords. Missing keys read as empty.
func (r *SettingRepository) GetGate(ctx context.Context) (*model.ExamGateSettings, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value FROM app_settings WHERE key IN ($1, $2)`,
		model.SettingEntryPassword, model.SettingQuitPassword)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := &model.ExamGateSettings{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		switch key {
		case model.SettingEntryPassword:
			s.EntryPassword = value
		case model.SettingQuitPassword:
			s.QuitPassword = value
		}
	}
	return s, rows.Err()
}

// SaveGate upserts both gate passwords in one transaction.
func (r *SettingRepository) SaveGate(ctx context.Context, s model.ExamGateSettings) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for key, value := range map[string]string{
			model.SettingEntryPassword: s.EntryPassword,
			model.SettingQuitPassword:  s.QuitPassword,
		} {
			if _, err := tx.Exec(ctx,
				`INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, NOW())
				 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
				key, value); err != nil {
				return err
			}
		}
		return nil
	})
}
