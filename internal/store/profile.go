// Package store provides database access methods for all entities. Each
// store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
)

// ProfileStore handles all profile-related database operations.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a new ProfileStore with the given database connection.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileColumns = `id, email, password_hash, display_name, avatar_url, role, totp_secret, totp_enabled, created_at, updated_at`

func scanProfile(row scanner) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.DisplayName, &p.AvatarURL, &p.Role,
		&p.TOTPSecret, &p.TOTPEnabled, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByEmail retrieves a profile by email address.
func (s *ProfileStore) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("find profile by email", err)
	}
	return p, nil
}

// FindByID retrieves a profile by its UUID.
func (s *ProfileStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("find profile by id", err)
	}
	return p, nil
}

// Create inserts a new profile with a bcrypt-hashed password.
func (s *ProfileStore) Create(ctx context.Context, email, password, displayName string, role models.Role) (*models.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p, err := scanProfile(s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+profileColumns,
		email, string(hash), displayName, role))
	if err != nil {
		return nil, backendErr("create profile", err)
	}
	return p, nil
}

// SetTOTPSecret saves the TOTP secret for a profile (during 2FA setup).
func (s *ProfileStore) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET totp_secret = $1, updated_at = NOW() WHERE id = $2`, secret, id)
	if err != nil {
		return backendErr("set totp secret", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active after successful code verification.
func (s *ProfileStore) EnableTOTP(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return backendErr("enable totp", err)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (s *ProfileStore) CheckPassword(p *models.Profile, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) == nil
}
