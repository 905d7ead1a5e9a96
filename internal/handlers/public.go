// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/listing"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/markdown"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/middleware"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/store"
)

// premiumPreviewRunes is how much of a premium article anonymous readers see.
const premiumPreviewRunes = 400

// Listing is the read side the public API serves. *listing.Service
// satisfies it.
type Listing interface {
	List(ctx context.Context, req listing.Request) listing.Result
	CategoryCounts(ctx context.Context) map[string]int
	Search(ctx context.Context, query string, limit int) []models.Article
	Article(ctx context.Context, slug string) (*models.Article, error)
	RecordView(ctx context.Context, id uuid.UUID)
}

// CategoryDirectory lists active categories and names them.
// *category.Registry satisfies it.
type CategoryDirectory interface {
	LoadActiveCategories(ctx context.Context) []models.Category
	DisplayNameForSlug(ctx context.Context, slug string) string
}

// TrendingLister lists the active trending topics.
type TrendingLister interface {
	ListActive(ctx context.Context) ([]models.TrendingTopic, error)
}

// AppStoreLister lists app stores in ranking order.
type AppStoreLister interface {
	ListRanked(ctx context.Context) ([]models.AppStore, error)
}

// Public groups handlers for the reader-facing JSON API.
type Public struct {
	listing    Listing
	categories CategoryDirectory
	trending   TrendingLister
	appStores  AppStoreLister
}

// NewPublic creates a new Public handler group.
func NewPublic(l Listing, categories CategoryDirectory, trending TrendingLister, appStores AppStoreLister) *Public {
	return &Public{
		listing:    l,
		categories: categories,
		trending:   trending,
		appStores:  appStores,
	}
}

// articleCard is the list representation of an article.
type articleCard struct {
	ID            uuid.UUID      `json:"id"`
	Slug          string         `json:"slug"`
	Title         string         `json:"title"`
	Excerpt       string         `json:"excerpt"`
	Category      string         `json:"category"`
	CategoryName  string         `json:"category_name"`
	Tags          models.Tags    `json:"tags"`
	IsPremium     bool           `json:"is_premium"`
	IsFeatured    bool           `json:"is_featured"`
	CoverImageURL *string        `json:"cover_image_url,omitempty"`
	ReadingTime   int            `json:"reading_time"`
	ViewCount     int64          `json:"view_count"`
	Author        *models.Author `json:"author,omitempty"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
}

func (p *Public) cards(ctx context.Context, articles []models.Article) []articleCard {
	out := make([]articleCard, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		out = append(out, articleCard{
			ID:            a.ID,
			Slug:          a.Slug,
			Title:         a.Title,
			Excerpt:       a.Summary(),
			Category:      a.Category,
			CategoryName:  p.categories.DisplayNameForSlug(ctx, a.Category),
			Tags:          a.Tags,
			IsPremium:     a.IsPremium,
			IsFeatured:    a.IsFeatured,
			CoverImageURL: a.CoverImageURL,
			ReadingTime:   a.Minutes(),
			ViewCount:     a.ViewCount,
			Author:        a.Author,
			PublishedAt:   a.PublishedAt,
		})
	}
	return out
}

// ListArticles serves one page of published articles:
// ?category=&page=&limit=&featured=&sort=.
func (p *Public) ListArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	res := p.listing.List(ctx, listing.Request{
		Category: q.Get("category"),
		Page:     intQuery(r, "page"),
		Limit:    intQuery(r, "limit"),
		Featured: boolQuery(r, "featured"),
		SortBy:   store.SortBy(q.Get("sort")),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"articles": p.cards(ctx, res.Articles),
		"has_more": res.HasMore,
		"page":     res.Page,
		"limit":    res.Limit,
		"category": res.Category.Filter(),
	})
}

// SearchArticles serves ?q=&limit=. A blank query yields no results.
func (p *Public) SearchArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	articles := p.listing.Search(ctx, r.URL.Query().Get("q"), intQuery(r, "limit"))
	writeJSON(w, http.StatusOK, map[string]any{"articles": p.cards(ctx, articles)})
}

// articleDetail is the single-article representation.
type articleDetail struct {
	*models.Article
	Excerpt      string `json:"excerpt"`
	CategoryName string `json:"category_name"`
	ReadingTime  int    `json:"reading_time"`
	ContentHTML  string `json:"content_html"`
	Gated        bool   `json:"gated"`
}

// GetArticle serves a published article by slug with rendered HTML.
// Premium articles are cut to a preview for anonymous readers.
func (p *Public) GetArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugParam := chi.URLParam(r, "slug")

	article, err := p.listing.Article(ctx, slugParam)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		slog.Error("get article failed", "error", err, "slug", slugParam)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}

	content := article.Content
	gated := article.IsPremium && middleware.SessionFromCtx(ctx) == nil
	if gated {
		content = preview(content, premiumPreviewRunes)
	}

	rendered, err := markdown.ToHTML(content)
	if err != nil {
		slog.Error("render article failed", "error", err, "slug", slugParam)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	detail := articleDetail{
		Article:      article,
		Excerpt:      article.Summary(),
		CategoryName: p.categories.DisplayNameForSlug(ctx, article.Category),
		ReadingTime:  article.Minutes(),
		ContentHTML:  rendered,
		Gated:        gated,
	}
	if gated {
		cp := *article
		cp.Content = content
		detail.Article = &cp
	}
	writeJSON(w, http.StatusOK, detail)
}

// preview cuts markdown to at most n runes. It ends at the last paragraph
// break when that still keeps at least half of the n runes.
func preview(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	cut := string([]rune(content)[:n])
	if i := strings.LastIndex(cut, "\n\n"); i > 0 && utf8.RuneCountInString(cut[:i]) >= n/2 {
		return cut[:i]
	}
	return cut
}

// RecordView counts a view of the article with the given id. It always
// answers 202; the increment happens in the background.
func (p *Public) RecordView(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p.listing.RecordView(r.Context(), id)
	w.WriteHeader(http.StatusAccepted)
}

// Categories lists the active categories in display order.
func (p *Public) Categories(w http.ResponseWriter, r *http.Request) {
	cats := p.categories.LoadActiveCategories(r.Context())
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// CategoryCounts serves the per-category badge counts keyed by display
// name, including the "すべて" total.
func (p *Public) CategoryCounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"counts": p.listing.CategoryCounts(r.Context())})
}

// Trending lists the active trending topics. Failures degrade to an
// empty list.
func (p *Public) Trending(w http.ResponseWriter, r *http.Request) {
	topics, err := p.trending.ListActive(r.Context())
	if err != nil {
		slog.Error("list trending topics failed", "error", err)
		topics = nil
	}
	if topics == nil {
		topics = []models.TrendingTopic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

// AppStores lists active app stores by ranking score. Failures degrade to
// an empty list.
func (p *Public) AppStores(w http.ResponseWriter, r *http.Request) {
	stores, err := p.appStores.ListRanked(r.Context())
	if err != nil {
		slog.Error("list app stores failed", "error", err)
		stores = nil
	}
	if stores == nil {
		stores = []models.AppStore{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"app_stores": stores})
}
