package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
)

var (
	ErrIncorrectGatePassword = errors.New("incorrect gate password")
	ErrIncorrectQuitPassword = errors.New("incorrect quit password")
)

// GateSettingStore persists the entry and quit secrets.
type GateSettingStore interface {
	GetGate(ctx context.Context) (*model.ExamGateSettings, error)
	SaveGate(ctx context.Context, s model.ExamGateSettings) error
}

// GateService guards entry into and exit from the exam. An unreachable
// settings store never locks anyone in or out.
type GateService struct {
	store   GateSettingStore
	rdb     *redis.Client
	passTTL time.Duration
	log     zerolog.Logger
}

// NewGateService creates a new GateService. passTTL should match the
// participant session lifetime.
func NewGateService(store GateSettingStore, rdb *redis.Client, passTTL time.Duration, log zerolog.Logger) *GateService {
	return &GateService{
		store:   store,
		rdb:     rdb,
		passTTL: passTTL,
		log:     log.With().Str("component", "gate_service").Logger(),
	}
}

// Settings returns the configured secrets, or empty settings if the store
// cannot be read.
func (s *GateService) Settings(ctx context.Context) model.ExamGateSettings {
	settings, err := s.store.GetGate(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("gate settings unavailable, treating as unset")
		return model.ExamGateSettings{}
	}
	return *settings
}

// EntryPasswordRequired reports whether an entry password is configured.
func (s *GateService) EntryPasswordRequired(ctx context.Context) bool {
	return s.Settings(ctx).EntryPassword != ""
}

// VerifyEntry checks the entry password and records a pass for the session.
// A pass that cannot be stored is logged; the password was still correct.
func (s *GateService) VerifyEntry(ctx context.Context, sessionID, password string) error {
	expected := s.Settings(ctx).EntryPassword
	if expected != "" && password != expected {
		return ErrIncorrectGatePassword
	}

	if err := s.rdb.Set(ctx, config.CacheKey.EntryPassKey(sessionID), "1", s.passTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("entry pass not stored")
	}
	return nil
}

// HasEntryPass reports whether the session has cleared the entry gate.
// When no password is configured, or the pass store is unreachable, every
// session counts as cleared.
func (s *GateService) HasEntryPass(ctx context.Context, sessionID string) bool {
	if !s.EntryPasswordRequired(ctx) {
		return true
	}
	n, err := s.rdb.Exists(ctx, config.CacheKey.EntryPassKey(sessionID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("entry pass lookup failed, letting session through")
		return true
	}
	return n == 1
}

// VerifyQuit checks the exit password. An empty or unreadable setting passes.
func (s *GateService) VerifyQuit(ctx context.Context, password string) error {
	expected := s.Settings(ctx).QuitPassword
	if expected != "" && password != expected {
		return ErrIncorrectQuitPassword
	}
	return nil
}

// UpdateSettings replaces both secrets.
func (s *GateService) UpdateSettings(ctx context.Context, req model.UpdateGateSettingsRequest) (*model.ExamGateSettings, error) {
	settings := model.ExamGateSettings{EntryPassword: req.EntryPassword, QuitPassword: req.QuitPassword}
	if err := s.store.SaveGate(ctx, settings); err != nil {
		return nil, fmt.Errorf("save gate settings: %w", err)
	}
	s.log.Info().Bool("entry_set", settings.EntryPassword != "").Bool("quit_set", settings.QuitPassword != "").Msg("gate settings updated")
	return &settings, nil
}
