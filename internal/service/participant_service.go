package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/repository"
)

// Participant account errors.
var (
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("no account found")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// ParticipantStore is the persistence contract of participant accounts.
type ParticipantStore interface {
	GetByKey(ctx context.Context, key string) (*model.Participant, error)
	GetByEmail(ctx context.Context, email string) (*model.Participant, error)
	Create(ctx context.Context, p *model.Participant) error
	SetStatus(ctx context.Context, key string, status model.ParticipantStatus) error
	Update(ctx context.Context, p *model.Participant) error
	UpdatePassword(ctx context.Context, key, passwordHash string) error
	Delete(ctx context.Context, key string) error
	Advance(ctx context.Context, u repository.ProgressUpdate) error
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	List(ctx context.Context) ([]model.Participant, error)
}

// ParticipantService owns participant credentials and account records.
type ParticipantService struct {
	store    ParticipantStore
	verifier CredentialVerifier
	log      zerolog.Logger
}

// NewParticipantService creates a new ParticipantService.
func NewParticipantService(store ParticipantStore, verifier CredentialVerifier, log zerolog.Logger) *ParticipantService {
	return &ParticipantService{
		store:    store,
		verifier: verifier,
		log:      log.With().Str("component", "participant_service").Logger(),
	}
}

// Register creates a new active account keyed by the derived email key.
func (s *ParticipantService) Register(ctx context.Context, req model.RegisterRequest) (*model.Participant, error) {
	key := model.ParticipantKey(req.Email)
	if key == "" {
		return nil, ErrAccountNotFound
	}

	if _, err := s.store.GetByKey(ctx, key); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}

	hash, err := s.verifier.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &model.Participant{
		ID:           key,
		Name:         req.Name,
		Email:        model.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Status:       model.ParticipantActive,
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateParticipant) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create participant: %w", err)
	}

	s.log.Info().Str("participant_id", key).Msg("participant registered")
	return p, nil
}

// Login verifies credentials. The account is looked up by derived key first
// and by the email column second. Distinct emails can share a derived key,
// so a key match only counts when the stored email is the one given.
func (s *ParticipantService) Login(ctx context.Context, email, password string) (*model.Participant, error) {
	p, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if !s.verifier.Verify(p.PasswordHash, password) {
		return nil, ErrIncorrectPassword
	}

	if err := s.store.SetStatus(ctx, p.ID, model.ParticipantActive); err != nil {
		s.log.Warn().Err(err).Str("participant_id", p.ID).Msg("failed to mark participant active")
	}
	p.Status = model.ParticipantActive
	p.LastActive = time.Now()
	return p, nil
}

func (s *ParticipantService) lookup(ctx context.Context, email string) (*model.Participant, error) {
	key := model.ParticipantKey(email)
	if key == "" {
		return nil, ErrAccountNotFound
	}
	email = model.NormalizeEmail(email)

	p, err := s.store.GetByKey(ctx, key)
	if err == nil && (p.Email == "" || p.Email == email) {
		return p, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}

	p, err = s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup participant by email: %w", err)
	}
	return p, nil
}

// MarkInactive flags a participant as signed out. Failures are logged only.
func (s *ParticipantService) MarkInactive(ctx context.Context, key string) {
	if err := s.store.SetStatus(ctx, key, model.ParticipantInactive); err != nil {
		s.log.Warn().Err(err).Str("participant_id", key).Msg("failed to mark participant inactive")
	}
}

// GetByKey returns a participant account.
func (s *ParticipantService) GetByKey(ctx context.Context, key string) (*model.Participant, error) {
	p, err := s.store.GetByKey(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	return p, err
}

// Leaderboard returns ranked participants.
func (s *ParticipantService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.store.Leaderboard(ctx, limit)
}

// List returns every participant for admins.
func (s *ParticipantService) List(ctx context.Context) ([]model.Participant, error) {
	return s.store.List(ctx)
}

// Create registers an account on behalf of an admin. The account starts inactive.
func (s *ParticipantService) Create(ctx context.Context, req model.CreateParticipantRequest) (*model.Participant, error) {
	key := model.ParticipantKey(req.Email)
	hash, err := s.verifier.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &model.Participant{
		ID:           key,
		Name:         req.Name,
		Email:        model.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Status:       model.ParticipantInactive,
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateParticipant) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return p, nil
}

// Update applies an admin moderation edit.
func (s *ParticipantService) Update(ctx context.Context, key string, req model.UpdateParticipantRequest) (*model.Participant, error) {
	p, err := s.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	p.Name = req.Name
	p.Score = req.Score
	p.RoundsCompleted = req.RoundsCompleted
	p.Status = req.Status
	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update participant: %w", err)
	}

	if req.Password != "" {
		hash, err := s.verifier.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.store.UpdatePassword(ctx, key, hash); err != nil {
			return nil, fmt.Errorf("update password: %w", err)
		}
	}

	s.log.Info().Str("participant_id", key).Int("score", p.Score).Int("rounds", p.RoundsCompleted).Msg("participant moderated")
	return p, nil
}

// Delete removes an account.
func (s *ParticipantService) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

// RecordProgress writes a round result straight to the store.
func (s *ParticipantService) RecordProgress(ctx context.Context, u repository.ProgressUpdate) error {
	return s.store.Advance(ctx, u)
}
