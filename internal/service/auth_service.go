package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// TokenType distinguishes participant vs admin tokens.
type TokenType string

const (
	TokenTypeParticipant TokenType = "participant"
	TokenTypeAdmin       TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields. The JWT ID
// doubles as the participant session ID.
type Claims struct {
	jwt.RegisteredClaims
	TokenType     TokenType       `json:"token_type"`
	ParticipantID string          `json:"participant_id,omitempty"` // Participant only
	Username      string          `json:"username,omitempty"`       // Admin only
	Role          model.AdminRole `json:"role,omitempty"`           // Admin only
}

// CredentialVerifier hashes and checks account secrets.
type CredentialVerifier interface {
	Hash(secret string) (string, error)
	Verify(hash, secret string) bool
}

// BcryptVerifier is the bcrypt CredentialVerifier.
type BcryptVerifier struct {
	Cost int
}

func (v BcryptVerifier) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), v.Cost)
	return string(hash), err
}

func (v BcryptVerifier) Verify(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// AuthService handles JWT issuance and participant session tracking.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	verifier CredentialVerifier
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, verifier: BcryptVerifier{Cost: cfg.BcryptCost}}
}

// Verifier returns the credential verifier shared by account services.
func (s *AuthService) Verifier() CredentialVerifier {
	return s.verifier
}

// IssueParticipantToken signs a participant JWT and registers its session in
// Redis. Each login is its own session, so several tabs may be signed in.
func (s *AuthService) IssueParticipantToken(ctx context.Context, participantID string) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ParticipantSessionTTL)),
		},
		TokenType:     TokenTypeParticipant,
		ParticipantID: participantID,
	}

	signed, err := s.sign(claims)
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, config.CacheKey.ParticipantSessionKey(jti), participantID, s.cfg.ParticipantSessionTTL).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// IssueAdminToken signs an admin JWT. Admin sessions expire after AdminSessionTTL.
func (s *AuthService) IssueAdminToken(username string, role model.AdminRole) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.cfg.AdminSessionTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		TokenType: TokenTypeAdmin,
		Username:  username,
		Role:      role,
	}

	signed, err := s.sign(claims)
	return signed, expires, err
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateParticipantSession checks that the session behind a token is still live.
func (s *AuthService) ValidateParticipantSession(ctx context.Context, claims *Claims) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.ParticipantSessionKey(claims.ID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != claims.ParticipantID {
		return ErrSessionInvalidated
	}
	return nil
}

// RevokeParticipantSession ends a session together with its entry pass.
func (s *AuthService) RevokeParticipantSession(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx,
		config.CacheKey.ParticipantSessionKey(sessionID),
		config.CacheKey.EntryPassKey(sessionID),
	).Err()
}
