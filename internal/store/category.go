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

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, slug, name, description, sort_order, is_active, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &c.Description,
		&c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) query(ctx context.Context, op, query string, args ...any) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backendErr(op, err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, backendErr("scan category", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(op, err)
	}
	return items, nil
}

// List returns every category, active or not, in display order.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return s.query(ctx, "list categories",
		`SELECT `+categoryColumns+` FROM categories ORDER BY sort_order, name`)
}

// ListActive returns the active categories in display order.
func (s *CategoryStore) ListActive(ctx context.Context) ([]models.Category, error) {
	return s.query(ctx, "list active categories",
		`SELECT `+categoryColumns+` FROM categories WHERE is_active = TRUE ORDER BY sort_order, name`)
}

// FindByID retrieves a category by ID.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("find category by id", err)
	}
	return c, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (slug, name, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+categoryColumns,
		c.Slug, c.Name, c.Description, c.SortOrder, c.IsActive,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, backendErr("create category", err)
	}
	return result, nil
}

// Update modifies an existing category. Articles keep their slug reference
// even when the category slug changes.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET
			slug = $1, name = $2, description = $3, sort_order = $4,
			is_active = $5, updated_at = NOW()
		WHERE id = $6
	`, c.Slug, c.Name, c.Description, c.SortOrder, c.IsActive, c.ID)
	if err != nil {
		return backendErr("update category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a category by ID. Articles in it are left untouched.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return backendErr("delete category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextSortOrder returns the sort_order that places a new category last.
func (s *CategoryStore) NextSortOrder(ctx context.Context) (int, error) {
	var maxOrder sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories`).Scan(&maxOrder); err != nil {
		return 0, backendErr("next sort order", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 10, nil
	}
	return 10, nil
}
