package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/category"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/ranking"
)

// seedAppStores are the marketplaces tracked out of the box.
var seedAppStores = []models.AppStore{
	{Slug: "apple-app-store", Name: "App Store", Platform: "ios", CommissionRate: 30, Rating: 4.7, ReviewCount: 2_000_000, AppCount: 1_900_000},
	{Slug: "google-play", Name: "Google Play", Platform: "android", CommissionRate: 30, Rating: 4.5, ReviewCount: 3_000_000, AppCount: 2_600_000},
	{Slug: "galaxy-store", Name: "Galaxy Store", Platform: "android", CommissionRate: 30, Rating: 4.1, ReviewCount: 150_000, AppCount: 200_000},
}

// Seed populates the database with initial development data: the default
// categories, a handful of app stores and an admin profile. Each step is a
// no-op when its table already holds data.
func Seed(db *sql.DB) error {
	if err := seedCategories(db); err != nil {
		return err
	}
	if err := seedAppStoreRows(db); err != nil {
		return err
	}
	return seedAdmin(db)
}

func seedCategories(db *sql.DB) error {
	for i, d := range category.Defaults() {
		_, err := db.Exec(`
			INSERT INTO categories (slug, name, sort_order, is_active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (slug) DO NOTHING
		`, d.Slug, d.Name, (i+1)*10)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", d.Slug, err)
		}
	}
	return nil
}

func seedAppStoreRows(db *sql.DB) error {
	for _, s := range seedAppStores {
		_, err := db.Exec(`
			INSERT INTO app_stores (slug, name, platform, commission_rate, rating,
			                        review_count, app_count, ranking_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (slug) DO NOTHING
		`, s.Slug, s.Name, s.Platform, s.CommissionRate, s.Rating,
			s.ReviewCount, s.AppCount, ranking.Score(s))
		if err != nil {
			return fmt.Errorf("seed app store %s: %w", s.Slug, err)
		}
	}
	return nil
}

func seedAdmin(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM profiles WHERE role = 'admin'").Scan(&count); err != nil {
		return fmt.Errorf("seed check profiles: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	// 2FA is not enabled; the admin must set it up on first login.
	_, err = db.Exec(`
		INSERT INTO profiles (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
	`, "admin@insights.local", string(hash), "編集部", models.RoleAdmin, false)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with default admin profile",
		"email", "admin@insights.local",
		"password", "admin",
	)

	return nil
}
