package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/repository"
)

// AdminService handles admin accounts.
type AdminService struct {
	adminRepo *repository.AdminRepository
	verifier  CredentialVerifier
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository, verifier CredentialVerifier) *AdminService {
	return &AdminService{adminRepo: adminRepo, verifier: verifier}
}

// Authenticate checks an admin's username and password.
func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup admin: %w", err)
	}
	if !s.verifier.Verify(admin.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// GetByUsername retrieves an admin by username.
func (s *AdminService) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	return s.adminRepo.GetByUsername(ctx, username)
}

// Provision creates an admin or resets its password and role.
func (s *AdminService) Provision(ctx context.Context, username, password string, role model.AdminRole) (*model.Admin, error) {
	hash, err := s.verifier.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.Admin{Username: username, PasswordHash: hash, Role: role}
	if err := s.adminRepo.Upsert(ctx, admin); err != nil {
		return nil, fmt.Errorf("upsert admin: %w", err)
	}
	return admin, nil
}

// Create adds a new admin; an existing username yields repository.ErrDuplicateAdmin.
func (s *AdminService) Create(ctx context.Context, username, password string, role model.AdminRole) (*model.Admin, error) {
	hash, err := s.verifier.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.Admin{Username: username, PasswordHash: hash, Role: role}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
