package model

import (
	"strings"
	"time"
)

// ParticipantStatus reflects whether a participant currently has a live login.
type ParticipantStatus string

const (
	ParticipantActive   ParticipantStatus = "active"
	ParticipantInactive ParticipantStatus = "inactive"
)

// MaxRounds is the number of ordered rounds in an exam.
const MaxRounds = 3

// Participant is a registered exam participant.
type Participant struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	PasswordHash    string            `json:"-"`
	Score           int               `json:"score"`
	RoundsCompleted int               `json:"rounds_completed"`
	Status          ParticipantStatus `json:"status"`
	LastActive      time.Time         `json:"last_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ParticipantKey maps an email to its storage key: trimmed, lowercased, and
// every character outside [a-z0-9] replaced by an underscore.
func ParticipantKey(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(email))
	for _, r := range email {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NormalizeEmail is the canonical form stored in the email column.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the payload for participant self-registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// ParticipantLoginRequest is the payload for participant sign-in.
type ParticipantLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

// ParticipantLogoutRequest carries the exit gate password, if one is configured.
type ParticipantLogoutRequest struct {
	QuitPassword string `json:"quit_password" binding:"omitempty,max=128"`
}

// CreateParticipantRequest is the admin payload for creating an account.
type CreateParticipantRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// UpdateParticipantRequest is the admin moderation payload.
type UpdateParticipantRequest struct {
	Name            string            `json:"name" binding:"required,min=2,max=100"`
	Score           int               `json:"score" binding:"min=0,max=100"`
	RoundsCompleted int               `json:"rounds_completed" binding:"min=0,max=3"`
	Status          ParticipantStatus `json:"status" binding:"required,oneof=active inactive"`
	Password        string            `json:"password" binding:"omitempty,min=4,max=128"`
}
