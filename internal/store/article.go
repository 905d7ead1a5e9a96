// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
)

const (
	// DefaultPageSize is used when a listing request has no usable limit.
	DefaultPageSize = 12
	// MaxPageSize caps listing and search limits.
	MaxPageSize = 50
	// DefaultSearchLimit is used when a search request has no usable limit.
	DefaultSearchLimit = 20
	// MaxPage is the last page a listing will query. Later pages are
	// always empty.
	MaxPage = 100_000
)

// SortBy selects the ordering of published listings.
type SortBy string

const (
	SortLatest SortBy = "latest"
	SortViews  SortBy = "views"
)

// PublishedQuery filters and paginates published articles. Page is
// 1-indexed; an empty Category means every category.
type PublishedQuery struct {
	Category string
	Page     int
	Limit    int
	Featured bool
	SortBy   SortBy
}

// Normalize clamps Page and Limit into their valid ranges.
func (q PublishedQuery) Normalize() PublishedQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

// PastEnd reports whether the page lies beyond MaxPage.
func (q PublishedQuery) PastEnd() bool {
	return q.Page > MaxPage
}

// Offset returns the row offset of the query's page. Page and Limit are
// normalized first and pages past MaxPage saturate, so the result never
// overflows.
func (q PublishedQuery) Offset() int {
	q = q.Normalize()
	page := min(q.Page, MaxPage+1)
	return (page - 1) * q.Limit
}

// ArticlePage is one page of a listing.
type ArticlePage struct {
	Articles []models.Article
	HasMore  bool
}

// ArticleStore handles all article-related database operations.
type ArticleStore struct {
	db *sql.DB
}

// NewArticleStore creates a new ArticleStore with the given database connection.
func NewArticleStore(db *sql.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// articleSelect reads articles joined with their author's public fields.
const articleSelect = `
	SELECT a.id, a.slug, a.title, a.subtitle, a.content, a.excerpt, a.category,
	       a.tags, a.status, a.is_premium, a.is_featured, a.cover_image_url,
	       a.reading_time, a.view_count, a.author_id, p.display_name, p.avatar_url,
	       a.published_at, a.created_at, a.updated_at
	FROM articles a
	LEFT JOIN profiles p ON p.id = a.author_id`

func scanArticle(row scanner) (*models.Article, error) {
	var (
		a          models.Article
		authorName sql.NullString
		authorIcon *string
	)
	err := row.Scan(
		&a.ID, &a.Slug, &a.Title, &a.Subtitle, &a.Content, &a.Excerpt, &a.Category,
		&a.Tags, &a.Status, &a.IsPremium, &a.IsFeatured, &a.CoverImageURL,
		&a.ReadingTime, &a.ViewCount, &a.AuthorID, &authorName, &authorIcon,
		&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.AuthorID != nil && authorName.Valid {
		a.Author = &models.Author{ID: *a.AuthorID, DisplayName: authorName.String, AvatarURL: authorIcon}
	}
	if a.Tags == nil {
		a.Tags = models.Tags{}
	}
	return &a, nil
}

func (s *ArticleStore) queryArticles(ctx context.Context, op, query string, args ...any) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backendErr(op, err)
	}
	defer rows.Close()

	items := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, backendErr("scan article", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(op, err)
	}
	return items, nil
}

// GetPublished returns one page of published articles. It fetches one row
// past the page to decide HasMore, then trims it.
func (s *ArticleStore) GetPublished(ctx context.Context, q PublishedQuery) (ArticlePage, error) {
	q = q.Normalize()
	if q.PastEnd() {
		return ArticlePage{Articles: []models.Article{}}, nil
	}

	where := []string{"a.status = 'published'"}
	var args []any
	if q.Category != "" {
		args = append(args, q.Category)
		where = append(where, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if q.Featured {
		where = append(where, "a.is_featured = TRUE")
	}

	order := "a.published_at DESC NULLS LAST, a.id"
	if q.SortBy == SortViews {
		order = "a.view_count DESC, a.published_at DESC NULLS LAST, a.id"
	}

	args = append(args, q.Limit+1, q.Offset())
	query := articleSelect +
		" WHERE " + strings.Join(where, " AND ") +
		" ORDER BY " + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	items, err := s.queryArticles(ctx, "list published articles", query, args...)
	if err != nil {
		return ArticlePage{Articles: []models.Article{}}, err
	}

	page := ArticlePage{Articles: items}
	if len(items) > q.Limit {
		page.HasMore = true
		page.Articles = items[:q.Limit]
	}
	return page, nil
}

// GetDrafts returns every draft, most recently edited first.
func (s *ArticleStore) GetDrafts(ctx context.Context) ([]models.Article, error) {
	return s.queryArticles(ctx, "list drafts",
		articleSelect+` WHERE a.status = 'draft' ORDER BY a.updated_at DESC`)
}

// ListByStatus returns all articles with the given status for the admin list.
func (s *ArticleStore) ListByStatus(ctx context.Context, status models.ArticleStatus) ([]models.Article, error) {
	return s.queryArticles(ctx, "list articles by status",
		articleSelect+` WHERE a.status = $1 ORDER BY a.updated_at DESC`, status)
}

// GetBySlug fetches a single article by slug. Unless includeUnpublished is
// set, only published articles match.
func (s *ArticleStore) GetBySlug(ctx context.Context, slug string, includeUnpublished bool) (*models.Article, error) {
	query := articleSelect + ` WHERE a.slug = $1`
	if !includeUnpublished {
		query += ` AND a.status = 'published'`
	}
	a, err := scanArticle(s.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("find article by slug", err)
	}
	return a, nil
}

// GetByID fetches a single article of any status.
func (s *ArticleStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	a, err := scanArticle(s.db.QueryRowContext(ctx, articleSelect+` WHERE a.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("find article by id", err)
	}
	return a, nil
}

// Search matches published articles whose title, excerpt or content
// contains query, case-insensitively. A blank query returns no results
// without touching the database.
func (s *ArticleStore) Search(ctx context.Context, query string, limit int) ([]models.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Article{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	pattern := "%" + escapeLike(query) + "%"
	return s.queryArticles(ctx, "search articles", articleSelect+`
		WHERE a.status = 'published'
		  AND (a.title ILIKE $1 ESCAPE '\'
		       OR a.excerpt ILIKE $1 ESCAPE '\'
		       OR a.content ILIKE $1 ESCAPE '\')
		ORDER BY a.published_at DESC NULLS LAST
		LIMIT $2`, pattern, limit)
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IncrementViewCount bumps an article's view counter. Failures are logged
// and dropped; an unknown id is a no-op.
func (s *ArticleStore) IncrementViewCount(ctx context.Context, id uuid.UUID) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		slog.Warn("failed to increment view count", "article_id", id, "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Debug("view count increment matched no article", "article_id", id)
	}
}

// CountPublishedByCategory returns the number of published articles per
// category slug.
func (s *ArticleStore) CountPublishedByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM articles
		WHERE status = 'published'
		GROUP BY category
	`)
	if err != nil {
		return nil, backendErr("count articles by category", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			slug  string
			count int
		)
		if err := rows.Scan(&slug, &count); err != nil {
			return nil, backendErr("scan category count", err)
		}
		counts[slug] = count
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("count articles by category", err)
	}
	return counts, nil
}

// Create inserts a new article and returns it as stored. Publishing on
// creation stamps published_at.
func (s *ArticleStore) Create(ctx context.Context, a *models.Article) (*models.Article, error) {
	if a.Status == "" {
		a.Status = models.ArticleStatusDraft
	}
	if a.Status == models.ArticleStatusArchived {
		return nil, fmt.Errorf("create article: %w", ErrInvalidTransition)
	}
	if a.Status == models.ArticleStatusPublished && a.PublishedAt == nil {
		now := time.Now()
		a.PublishedAt = &now
	}

	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (slug, title, subtitle, content, excerpt, category, tags,
		                      status, is_premium, is_featured, cover_image_url,
		                      reading_time, author_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, a.Slug, a.Title, a.Subtitle, a.Content, a.Excerpt, a.Category, models.NewTags(a.Tags),
		a.Status, a.IsPremium, a.IsFeatured, a.CoverImageURL,
		a.ReadingTime, a.AuthorID, a.PublishedAt,
	).Scan(&id)
	if err != nil {
		return nil, backendErr("create article", err)
	}
	return s.GetByID(ctx, id)
}

// articleState is the part of a stored article that guards an update.
type articleState struct {
	slug        string
	status      models.ArticleStatus
	publishedAt *time.Time
}

func lockArticle(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*articleState, error) {
	var st articleState
	err := tx.QueryRowContext(ctx,
		`SELECT slug, status, published_at FROM articles WHERE id = $1 FOR UPDATE`, id,
	).Scan(&st.slug, &st.status, &st.publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("lock article", err)
	}
	return &st, nil
}

// checkUpdate applies the lifecycle rules to a proposed change and returns
// the published_at value to store.
func (st *articleState) checkUpdate(slug string, next models.ArticleStatus) (*time.Time, error) {
	if !st.status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%s -> %s: %w", st.status, next, ErrInvalidTransition)
	}
	if st.publishedAt != nil && slug != st.slug {
		return nil, ErrSlugImmutable
	}
	if st.publishedAt != nil {
		return st.publishedAt, nil
	}
	if next == models.ArticleStatusPublished {
		now := time.Now()
		return &now, nil
	}
	return nil, nil
}

// Update saves an edited article. The status change must follow the
// lifecycle, the slug is frozen after first publication and published_at
// is never cleared.
func (s *ArticleStore) Update(ctx context.Context, a *models.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return backendErr("begin tx", err)
	}
	defer tx.Rollback()

	st, err := lockArticle(ctx, tx, a.ID)
	if err != nil {
		return err
	}
	publishedAt, err := st.checkUpdate(a.Slug, a.Status)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE articles SET
			slug = $1, title = $2, subtitle = $3, content = $4, excerpt = $5,
			category = $6, tags = $7, status = $8, is_premium = $9, is_featured = $10,
			cover_image_url = $11, reading_time = $12, published_at = $13,
			updated_at = NOW()
		WHERE id = $14
	`, a.Slug, a.Title, a.Subtitle, a.Content, a.Excerpt,
		a.Category, models.NewTags(a.Tags), a.Status, a.IsPremium, a.IsFeatured,
		a.CoverImageURL, a.ReadingTime, publishedAt, a.ID,
	)
	if err != nil {
		return backendErr("update article", err)
	}
	if err := tx.Commit(); err != nil {
		return backendErr("commit article update", err)
	}
	a.PublishedAt = publishedAt
	return nil
}

// Transition moves an article to a new status without touching its content.
func (s *ArticleStore) Transition(ctx context.Context, id uuid.UUID, next models.ArticleStatus) error {
	if !next.Valid() {
		return fmt.Errorf("transition article: %w", ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return backendErr("begin tx", err)
	}
	defer tx.Rollback()

	st, err := lockArticle(ctx, tx, id)
	if err != nil {
		return err
	}
	publishedAt, err := st.checkUpdate(st.slug, next)
	if err != nil {
		return fmt.Errorf("transition article: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE articles SET status = $1, published_at = $2, updated_at = NOW()
		WHERE id = $3
	`, next, publishedAt, id)
	if err != nil {
		return backendErr("transition article", err)
	}
	if err := tx.Commit(); err != nil {
		return backendErr("commit article transition", err)
	}
	return nil
}

// SetCoverImage replaces an article's cover image URL.
func (s *ArticleStore) SetCoverImage(ctx context.Context, id uuid.UUID, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET cover_image_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	if err != nil {
		return backendErr("set cover image", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an article by ID.
func (s *ArticleStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return backendErr("delete article", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
