// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
)

// TrendingStore manages the curated trending topics.
type TrendingStore struct {
	db *sql.DB
}

// NewTrendingStore returns a new TrendingStore.
func NewTrendingStore(db *sql.DB) *TrendingStore {
	return &TrendingStore{db: db}
}

const trendingColumns = `id, title, article_slug, url, sort_order, is_active, created_at, updated_at`

func scanTrending(row scanner) (*models.TrendingTopic, error) {
	var t models.TrendingTopic
	err := row.Scan(&t.ID, &t.Title, &t.ArticleSlug, &t.URL, &t.SortOrder, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TrendingStore) list(ctx context.Context, activeOnly bool) ([]models.TrendingTopic, error) {
	query := `SELECT ` + trendingColumns + ` FROM trending_topics`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, backendErr("list trending topics", err)
	}
	defer rows.Close()

	items := []models.TrendingTopic{}
	for rows.Next() {
		t, err := scanTrending(rows)
		if err != nil {
			return nil, backendErr("scan trending topic", err)
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list trending topics", err)
	}
	return items, nil
}

// ListActive returns the active topics in display order.
func (s *TrendingStore) ListActive(ctx context.Context) ([]models.TrendingTopic, error) {
	return s.list(ctx, true)
}

// List returns every topic for the admin API.
func (s *TrendingStore) List(ctx context.Context) ([]models.TrendingTopic, error) {
	return s.list(ctx, false)
}

// Create inserts a topic.
func (s *TrendingStore) Create(ctx context.Context, t *models.TrendingTopic) (*models.TrendingTopic, error) {
	created, err := scanTrending(s.db.QueryRowContext(ctx, `
		INSERT INTO trending_topics (title, article_slug, url, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+trendingColumns,
		t.Title, t.ArticleSlug, t.URL, t.SortOrder, t.IsActive))
	if err != nil {
		return nil, backendErr("create trending topic", err)
	}
	return created, nil
}

// Update modifies a topic.
func (s *TrendingStore) Update(ctx context.Context, t *models.TrendingTopic) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trending_topics SET
			title = $1, article_slug = $2, url = $3, sort_order = $4,
			is_active = $5, updated_at = NOW()
		WHERE id = $6
	`, t.Title, t.ArticleSlug, t.URL, t.SortOrder, t.IsActive, t.ID)
	if err != nil {
		return backendErr("update trending topic", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a topic.
func (s *TrendingStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trending_topics WHERE id = $1`, id)
	if err != nil {
		return backendErr("delete trending topic", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID retrieves a topic.
func (s *TrendingStore) FindByID(ctx context.Context, id uuid.UUID) (*models.TrendingTopic, error) {
	t, err := scanTrending(s.db.QueryRowContext(ctx,
		`SELECT `+trendingColumns+` FROM trending_topics WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("find trending topic", err)
	}
	return t, nil
}
