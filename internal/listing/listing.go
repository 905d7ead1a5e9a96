// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package listing composes the category registry and the article store into
// the paginated, filterable article listings served to readers. Public
// listings fail soft: a backend failure yields an empty page, never an error.
package listing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/category"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/metrics"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/store"
)

// viewTimeout bounds a detached view-count increment.
const viewTimeout = 5 * time.Second

// Articles is the subset of store.ArticleStore the service reads from.
type Articles interface {
	GetPublished(ctx context.Context, q store.PublishedQuery) (store.ArticlePage, error)
	GetBySlug(ctx context.Context, slug string, includeUnpublished bool) (*models.Article, error)
	Search(ctx context.Context, query string, limit int) ([]models.Article, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID)
	CountPublishedByCategory(ctx context.Context) (map[string]int, error)
}

// Categories resolves reader-facing category filters.
type Categories interface {
	Resolve(ctx context.Context, input string) category.Resolution
	DisplayNameForSlug(ctx context.Context, slug string) string
}

// CountsCache stores the aggregated badge counts. *cache.ListingCache
// satisfies it.
type CountsCache interface {
	Counts(ctx context.Context) (map[string]int, bool)
	SetCounts(ctx context.Context, counts map[string]int)
	Invalidate(ctx context.Context)
}

// Request describes one page of a listing. Category may be a display name,
// a slug, "すべて"/"all" or empty.
type Request struct {
	Category string
	Page     int
	Limit    int
	Featured bool
	SortBy   store.SortBy
}

// Result is one page of a listing.
type Result struct {
	Articles []models.Article
	HasMore  bool
	Page     int
	Limit    int
	Category category.Resolution
}

// Service serves article listings. It holds no per-request state.
type Service struct {
	articles   Articles
	categories Categories
	cache      CountsCache

	views sync.WaitGroup
}

// NewService creates a listing service. cache may be nil.
func NewService(articles Articles, categories Categories, cache CountsCache) *Service {
	return &Service{articles: articles, categories: categories, cache: cache}
}

// List returns one page of published articles for the requested filter.
// Any backend failure yields an empty page with HasMore false.
func (s *Service) List(ctx context.Context, req Request) Result {
	res := s.categories.Resolve(ctx, req.Category)
	q := store.PublishedQuery{
		Category: res.Filter(),
		Page:     req.Page,
		Limit:    req.Limit,
		Featured: req.Featured,
		SortBy:   req.SortBy,
	}.Normalize()

	result := Result{
		Articles: []models.Article{},
		Page:     q.Page,
		Limit:    q.Limit,
		Category: res,
	}
	if res.Kind == category.KindUnresolved {
		slog.Debug("listing unknown category", "category", req.Category)
	}

	if q.PastEnd() {
		return result
	}

	page, err := s.articles.GetPublished(ctx, q)
	if err != nil {
		slog.Error("listing articles failed", "category", q.Category, "page", q.Page, "error", err)
		metrics.ListingDegraded("list")
		return result
	}

	result.Articles = page.Articles
	result.HasMore = page.HasMore
	return result
}

// CategoryCounts returns the number of published articles per category
// display name, plus AllName holding the total. Slugs sharing a display
// name are merged. On failure the map holds only AllName: 0.
func (s *Service) CategoryCounts(ctx context.Context) map[string]int {
	if s.cache != nil {
		if counts, ok := s.cache.Counts(ctx); ok {
			metrics.CountsCacheResult(true)
			return counts
		}
		metrics.CountsCacheResult(false)
	}

	bySlug, err := s.articles.CountPublishedByCategory(ctx)
	if err != nil {
		slog.Error("counting articles by category failed", "error", err)
		metrics.ListingDegraded("counts")
		return map[string]int{category.AllName: 0}
	}

	counts := make(map[string]int, len(bySlug)+1)
	total := 0
	for slug, n := range bySlug {
		name := s.categories.DisplayNameForSlug(ctx, slug)
		if name == category.AllName {
			// A category named like the synthetic entry keeps its slug.
			name = slug
		}
		counts[name] += n
		total += n
	}
	counts[category.AllName] = total

	if s.cache != nil {
		s.cache.SetCounts(ctx, counts)
	}
	return counts
}

// InvalidateCounts drops cached badge counts after a write.
func (s *Service) InvalidateCounts(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// Search returns published articles matching query. A blank query or a
// backend failure yields an empty slice.
func (s *Service) Search(ctx context.Context, query string, limit int) []models.Article {
	items, err := s.articles.Search(ctx, query, limit)
	if err != nil {
		slog.Error("article search failed", "query", query, "error", err)
		metrics.ListingDegraded("search")
		return []models.Article{}
	}
	return items
}

// Article fetches a published article. store.ErrNotFound and
// store.ErrUnavailable are returned for the caller to map.
func (s *Service) Article(ctx context.Context, slug string) (*models.Article, error) {
	return s.articles.GetBySlug(ctx, slug, false)
}

// RecordView increments an article's view count in the background. The
// increment outlives the request context but is bounded by viewTimeout.
func (s *Service) RecordView(ctx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), viewTimeout)
	s.views.Add(1)
	go func() {
		defer s.views.Done()
		defer cancel()
		s.articles.IncrementViewCount(ctx, id)
	}()
}

// Wait blocks until pending view increments finish. Called on shutdown.
func (s *Service) Wait() {
	s.views.Wait()
}
