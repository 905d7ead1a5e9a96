// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
)

// AppStoreStore manages the app marketplaces shown in the ranking table.
type AppStoreStore struct {
	db *sql.DB
}

// NewAppStoreStore returns a new AppStoreStore.
func NewAppStoreStore(db *sql.DB) *AppStoreStore {
	return &AppStoreStore{db: db}
}

const appStoreColumns = `id, slug, name, platform, commission_rate, rating, review_count,
	app_count, ranking_score, is_active, created_at, updated_at`

func scanAppStore(row scanner) (*models.AppStore, error) {
	var s models.AppStore
	err := row.Scan(
		&s.ID, &s.Slug, &s.Name, &s.Platform, &s.CommissionRate, &s.Rating, &s.ReviewCount,
		&s.AppCount, &s.RankingScore, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *AppStoreStore) query(ctx context.Context, op, query string) ([]models.AppStore, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, backendErr(op, err)
	}
	defer rows.Close()

	items := []models.AppStore{}
	for rows.Next() {
		a, err := scanAppStore(rows)
		if err != nil {
			return nil, backendErr("scan app store", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(op, err)
	}
	return items, nil
}

// ListRanked returns active stores ordered by ranking score.
func (s *AppStoreStore) ListRanked(ctx context.Context) ([]models.AppStore, error) {
	return s.query(ctx, "list ranked app stores",
		`SELECT `+appStoreColumns+` FROM app_stores WHERE is_active = TRUE ORDER BY ranking_score DESC, name`)
}

// List returns every store for the admin API and the ranking job.
func (s *AppStoreStore) List(ctx context.Context) ([]models.AppStore, error) {
	return s.query(ctx, "list app stores",
		`SELECT `+appStoreColumns+` FROM app_stores ORDER BY name`)
}

// FindByID retrieves a store.
func (s *AppStoreStore) FindByID(ctx context.Context, id uuid.UUID) (*models.AppStore, error) {
	a, err := scanAppStore(s.db.QueryRowContext(ctx,
		`SELECT `+appStoreColumns+` FROM app_stores WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("find app store", err)
	}
	return a, nil
}

// Create inserts a store. RankingScore must already be computed.
func (s *AppStoreStore) Create(ctx context.Context, a *models.AppStore) (*models.AppStore, error) {
	created, err := scanAppStore(s.db.QueryRowContext(ctx, `
		INSERT INTO app_stores (slug, name, platform, commission_rate, rating,
		                        review_count, app_count, ranking_score, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+appStoreColumns,
		a.Slug, a.Name, a.Platform, a.CommissionRate, a.Rating,
		a.ReviewCount, a.AppCount, a.RankingScore, a.IsActive))
	if err != nil {
		return nil, backendErr("create app store", err)
	}
	return created, nil
}

// Update modifies a store, including its ranking score.
func (s *AppStoreStore) Update(ctx context.Context, a *models.AppStore) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE app_stores SET
			slug = $1, name = $2, platform = $3, commission_rate = $4, rating = $5,
			review_count = $6, app_count = $7, ranking_score = $8, is_active = $9,
			updated_at = NOW()
		WHERE id = $10
	`, a.Slug, a.Name, a.Platform, a.CommissionRate, a.Rating,
		a.ReviewCount, a.AppCount, a.RankingScore, a.IsActive, a.ID)
	if err != nil {
		return backendErr("update app store", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a store.
func (s *AppStoreStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_stores WHERE id = $1`, id)
	if err != nil {
		return backendErr("delete app store", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScores writes ranking scores for several stores in one transaction.
func (s *AppStoreStore) UpdateScores(ctx context.Context, scores map[uuid.UUID]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return backendErr("begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE app_stores SET ranking_score = $1 WHERE id = $2`)
	if err != nil {
		return backendErr("prepare score update", err)
	}
	defer stmt.Close()

	for id, score := range scores {
		if _, err := stmt.ExecContext(ctx, score, id); err != nil {
			return backendErr(fmt.Sprintf("update score %s", id), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return backendErr("commit scores", err)
	}
	return nil
}
