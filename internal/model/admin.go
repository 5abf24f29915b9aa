package model

import "time"

// AdminRole separates full administrators from read-mostly moderators.
type AdminRole string

const (
	AdminRoleAdmin AdminRole = "admin"
	AdminRoleUser  AdminRole = "user"
)

// Admin represents an administrator account. Admins live in their own
// namespace, keyed by username.
type Admin struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         AdminRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}
