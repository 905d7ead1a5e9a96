// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a profile's permission level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleReader Role = "reader"
)

// Profile is a site account. Readers use it for premium content; editors
// and admins also use it for the admin API.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Role         Role      `json:"role"`
	TOTPSecret   *string   `json:"-"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the profile has the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsStaff returns true for roles allowed into the admin API.
func (p *Profile) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleEditor
}

// Needs2FASetup returns true if a staff profile has not enrolled in 2FA.
// Readers are never asked for a second factor.
func (p *Profile) Needs2FASetup() bool {
	return p.IsStaff() && !p.TOTPEnabled
}
