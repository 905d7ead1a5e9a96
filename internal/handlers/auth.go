package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/middleware"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/session"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/store"
)

const (
	// totpIssuer labels the account in authenticator apps.
	totpIssuer = "AppStoreBank Insights"

	minPasswordLen    = 8
	maxPasswordLen    = 72 // bcrypt ignores anything longer
	maxDisplayNameLen = 100
)

// Profiles is the account storage the auth handlers need.
// *store.ProfileStore satisfies it.
type Profiles interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Create(ctx context.Context, email, password, displayName string, role models.Role) (*models.Profile, error)
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
	CheckPassword(p *models.Profile, password string) bool
}

// Sessions issues and clears login sessions. *session.Store satisfies it.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions Sessions
	profiles Profiles
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions Sessions, profiles Profiles) *Auth {
	return &Auth{
		sessions: sessions,
		profiles: profiles,
	}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// authResponse describes the signed-in profile and any pending 2FA step.
type authResponse struct {
	Profile           *models.Profile `json:"profile"`
	TwoFactorRequired bool            `json:"two_factor_required"`
	TwoFactorSetup    bool            `json:"two_factor_setup"`
}

// startSession signs the profile in. Readers are fully authenticated at
// once; staff must still complete TOTP.
func (a *Auth) startSession(w http.ResponseWriter, r *http.Request, p *models.Profile) bool {
	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		ProfileID:   p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		TwoFADone:   !p.IsStaff(),
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	return true
}

// Register creates a reader account and signs it in.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.DisplayName)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		writeStoreError(w, invalid("email", "is not a valid address"), "")
		return
	}
	if n := len(in.Password); n < minPasswordLen || n > maxPasswordLen {
		writeStoreError(w, invalid("password", "must be 8 to 72 bytes"), "")
		return
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLen {
		writeStoreError(w, invalid("display_name", "is too long (max 100 characters)"), "")
		return
	}

	profile, err := a.profiles.Create(r.Context(), email, in.Password, name, models.RoleReader)
	if errors.Is(err, store.ErrDuplicateSlug) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		writeStoreError(w, err, "profile")
		return
	}

	if !a.startSession(w, r, profile) {
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Profile: profile})
}

// Login checks credentials and creates a session. Staff accounts come back
// with two_factor_required set until they verify a TOTP code.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.profiles.FindByEmail(r.Context(), strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeStoreError(w, err, "profile")
		return
	}
	if profile == nil || !a.profiles.CheckPassword(profile, in.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !a.startSession(w, r, profile) {
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Profile:           profile,
		TwoFactorRequired: profile.IsStaff(),
		TwoFactorSetup:    profile.Needs2FASetup(),
	})
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in profile.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := a.profiles.FindByID(r.Context(), sess.ProfileID)
	if err != nil {
		writeStoreError(w, err, "profile")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Profile:           profile,
		TwoFactorRequired: !sess.TwoFADone,
		TwoFactorSetup:    profile.Needs2FASetup(),
	})
}

// TwoFASetup generates a TOTP secret for a staff account that has not
// enabled 2FA yet and answers with the enrolment QR code as a PNG. The
// secret is also sent in X-TOTP-Secret for manual entry.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := a.profiles.FindByID(r.Context(), sess.ProfileID)
	if err != nil {
		writeStoreError(w, err, "profile")
		return
	}
	if profile.TOTPEnabled {
		writeError(w, http.StatusConflict, "two-factor authentication already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: profile.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := a.profiles.SetTOTPSecret(r.Context(), profile.ID, key.Secret()); err != nil {
		writeStoreError(w, err, "profile")
		return
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-TOTP-Secret", key.Secret())
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// TwoFAVerify validates a TOTP code and completes authentication. The
// first successful code after setup enables 2FA on the account.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var in struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.profiles.FindByID(r.Context(), sess.ProfileID)
	if err != nil {
		writeStoreError(w, err, "profile")
		return
	}
	if profile.TOTPSecret == nil {
		writeError(w, http.StatusConflict, "two-factor setup required")
		return
	}

	if !totp.Validate(strings.TrimSpace(in.Code), *profile.TOTPSecret) {
		writeError(w, http.StatusUnauthorized, "invalid code")
		return
	}

	if !profile.TOTPEnabled {
		if err := a.profiles.EnableTOTP(r.Context(), profile.ID); err != nil {
			writeStoreError(w, err, "profile")
			return
		}
	}

	sess.TwoFADone = true
	err = a.sessions.Update(r.Context(), r, sess)
	if errors.Is(err, session.ErrNoSession) {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	if err != nil {
		slog.Error("session update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"two_factor_done": true})
}
