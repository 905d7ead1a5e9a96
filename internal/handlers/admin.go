// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/middleware"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/ranking"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/storage"
)

// maxCoverBytes caps cover image uploads.
const maxCoverBytes = 10 << 20

// coverTypes maps accepted cover content types to file extensions.
var coverTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ArticleAdmin is the article storage the admin API writes through.
// *store.ArticleStore satisfies it.
type ArticleAdmin interface {
	GetDrafts(ctx context.Context) ([]models.Article, error)
	ListByStatus(ctx context.Context, status models.ArticleStatus) ([]models.Article, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
	Create(ctx context.Context, a *models.Article) (*models.Article, error)
	Update(ctx context.Context, a *models.Article) error
	Transition(ctx context.Context, id uuid.UUID, next models.ArticleStatus) error
	SetCoverImage(ctx context.Context, id uuid.UUID, url string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryAdmin is the category storage. *store.CategoryStore satisfies it.
type CategoryAdmin interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	NextSortOrder(ctx context.Context) (int, error)
}

// TrendingAdmin is the trending topic storage. *store.TrendingStore
// satisfies it.
type TrendingAdmin interface {
	List(ctx context.Context) ([]models.TrendingTopic, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.TrendingTopic, error)
	Create(ctx context.Context, t *models.TrendingTopic) (*models.TrendingTopic, error)
	Update(ctx context.Context, t *models.TrendingTopic) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AppStoreAdmin is the app store storage. *store.AppStoreStore satisfies it.
type AppStoreAdmin interface {
	ranking.Store
	FindByID(ctx context.Context, id uuid.UUID) (*models.AppStore, error)
	Create(ctx context.Context, a *models.AppStore) (*models.AppStore, error)
	Update(ctx context.Context, a *models.AppStore) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CoverStorage stores uploaded cover images. *storage.Client satisfies it.
type CoverStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	FileURL(key string) string
	ExtractKey(rawURL string) (string, bool)
}

// ListingInvalidator drops cached listing aggregates after writes.
// *listing.Service satisfies it.
type ListingInvalidator interface {
	InvalidateCounts(ctx context.Context)
}

// RegistryResetter drops the cached category map after category writes.
// *category.Registry satisfies it.
type RegistryResetter interface {
	Reset()
}

// AdminDeps holds the dependencies of the Admin handler group. Covers
// may be nil when S3 is not configured.
type AdminDeps struct {
	Articles     ArticleAdmin
	Categories   CategoryAdmin
	Trending     TrendingAdmin
	AppStores    AppStoreAdmin
	Covers       CoverStorage
	Listing      ListingInvalidator
	Registry     RegistryResetter
	AllowedHosts []string
}

// Admin groups all admin JSON API handlers.
type Admin struct {
	AdminDeps
}

// NewAdmin creates a new Admin handler group.
func NewAdmin(deps AdminDeps) *Admin {
	return &Admin{AdminDeps: deps}
}

// articlesChanged drops listing aggregates that depend on article status
// or category.
func (a *Admin) articlesChanged(ctx context.Context) {
	a.Listing.InvalidateCounts(ctx)
}

// categoriesChanged reloads category names on next use.
func (a *Admin) categoriesChanged(ctx context.Context) {
	a.Registry.Reset()
	a.Listing.InvalidateCounts(ctx)
}

// --- Articles ---

// ListArticles lists articles by ?status= (drafts by default).
func (a *Admin) ListArticles(w http.ResponseWriter, r *http.Request) {
	status := models.ArticleStatus(r.URL.Query().Get("status"))

	var (
		articles []models.Article
		err      error
	)
	switch {
	case status == "" || status == models.ArticleStatusDraft:
		articles, err = a.Articles.GetDrafts(r.Context())
	case status.Valid():
		articles, err = a.Articles.ListByStatus(r.Context(), status)
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}
	if articles == nil {
		articles = []models.Article{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// GetArticle returns any article by id.
func (a *Admin) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	article, err := a.Articles.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// CreateArticle creates an article authored by the signed-in staff member.
func (a *Admin) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var in articleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.normalize()
	if err := in.validate(a.AllowedHosts); err != nil {
		writeStoreError(w, err, "article")
		return
	}

	var article models.Article
	in.apply(&article)
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		author := sess.ProfileID
		article.AuthorID = &author
	}

	created, err := a.Articles.Create(r.Context(), &article)
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}

	slog.Info("article created", "id", created.ID, "slug", created.Slug, "status", created.Status)
	a.articlesChanged(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

// UpdateArticle replaces an article's editable fields. The slug is frozen
// once the article has been published.
func (a *Admin) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var in articleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := a.Articles.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}
	if in.Slug == "" {
		in.Slug = existing.Slug
	}
	if in.Status == "" {
		in.Status = existing.Status
	}
	in.normalize()
	if err := in.validate(a.AllowedHosts); err != nil {
		writeStoreError(w, err, "article")
		return
	}

	in.apply(existing)
	if err := a.Articles.Update(r.Context(), existing); err != nil {
		writeStoreError(w, err, "article")
		return
	}

	updated, err := a.Articles.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}
	a.articlesChanged(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

// TransitionArticle moves an article along draft → published → archived.
func (a *Admin) TransitionArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var in struct {
		Status models.ArticleStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !in.Status.Valid() {
		writeStoreError(w, invalid("status", "must be draft, published or archived"), "article")
		return
	}

	if err := a.Articles.Transition(r.Context(), id, in.Status); err != nil {
		writeStoreError(w, err, "article")
		return
	}

	article, err := a.Articles.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}
	slog.Info("article status changed", "id", id, "status", in.Status)
	a.articlesChanged(r.Context())
	writeJSON(w, http.StatusOK, article)
}

// DeleteArticle removes an article and its uploaded cover, if any.
func (a *Admin) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	existing, err := a.Articles.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}
	if err := a.Articles.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err, "article")
		return
	}

	a.removeCover(r.Context(), existing.CoverImageURL)
	slog.Info("article deleted", "id", id, "slug", existing.Slug)
	a.articlesChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// UploadCover stores a multipart "file" image in S3 and sets it as the
// article's cover, deleting the previously uploaded cover.
func (a *Admin) UploadCover(w http.ResponseWriter, r *http.Request) {
	if a.Covers == nil {
		writeError(w, http.StatusServiceUnavailable, "file storage is not configured")
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	existing, err := a.Articles.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "article")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverBytes+1<<20)
	if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large (max 10 MB)")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxCoverBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) > maxCoverBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large (max 10 MB)")
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := coverTypes[contentType]
	if !ok {
		writeStoreError(w, invalid("file", "must be a JPEG, PNG, WebP or GIF image"), "article")
		return
	}

	key := storage.CoverKey(id, ext, time.Now())
	if err := a.Covers.Upload(r.Context(), key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		slog.Error("cover upload failed", "error", err, "article", id, "filename", header.Filename)
		writeError(w, http.StatusBadGateway, "failed to store file")
		return
	}

	url := a.Covers.FileURL(key)
	if err := a.Articles.SetCoverImage(r.Context(), id, url); err != nil {
		if delErr := a.Covers.Delete(r.Context(), key); delErr != nil {
			slog.Warn("orphaned cover cleanup failed", "error", delErr, "key", key)
		}
		writeStoreError(w, err, "article")
		return
	}

	a.removeCover(r.Context(), existing.CoverImageURL)
	writeJSON(w, http.StatusOK, map[string]string{"cover_image_url": url})
}

// removeCover deletes a previously uploaded cover. External URLs are left
// alone.
func (a *Admin) removeCover(ctx context.Context, url *string) {
	if a.Covers == nil || url == nil {
		return
	}
	key, ok := a.Covers.ExtractKey(*url)
	if !ok {
		return
	}
	if err := a.Covers.Delete(ctx, key); err != nil {
		slog.Warn("cover delete failed", "error", err, "key", key)
	}
}

// --- Categories ---

// ListCategories lists every category, active or not.
func (a *Admin) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.Categories.List(r.Context())
	if err != nil {
		writeStoreError(w, err, "category")
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// CreateCategory adds a category. New categories are active and go last
// unless told otherwise.
func (a *Admin) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.normalize()
	if err := in.validate(); err != nil {
		writeStoreError(w, err, "category")
		return
	}

	c := models.Category{IsActive: true}
	if in.SortOrder == nil {
		next, err := a.Categories.NextSortOrder(r.Context())
		if err != nil {
			writeStoreError(w, err, "category")
			return
		}
		c.SortOrder = next
	}
	in.apply(&c)

	created, err := a.Categories.Create(r.Context(), &c)
	if err != nil {
		writeStoreError(w, err, "category")
		return
	}
	a.categoriesChanged(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

// UpdateCategory edits a category. Articles keep their category slug.
func (a *Admin) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := a.Categories.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "category")
		return
	}
	if in.Slug == "" {
		in.Slug = existing.Slug
	}
	in.normalize()
	if err := in.validate(); err != nil {
		writeStoreError(w, err, "category")
		return
	}

	in.apply(existing)
	if err := a.Categories.Update(r.Context(), existing); err != nil {
		writeStoreError(w, err, "category")
		return
	}
	a.categoriesChanged(r.Context())
	writeJSON(w, http.StatusOK, existing)
}

// DeleteCategory removes a category. Its articles are not touched.
func (a *Admin) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := a.Categories.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err, "category")
		return
	}
	a.categoriesChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// --- Trending topics ---

// ListTrending lists every trending topic.
func (a *Admin) ListTrending(w http.ResponseWriter, r *http.Request) {
	topics, err := a.Trending.List(r.Context())
	if err != nil {
		writeStoreError(w, err, "trending topic")
		return
	}
	if topics == nil {
		topics = []models.TrendingTopic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

// CreateTrending adds a trending topic.
func (a *Admin) CreateTrending(w http.ResponseWriter, r *http.Request) {
	var in trendingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.normalize()
	if err := in.validate(); err != nil {
		writeStoreError(w, err, "trending topic")
		return
	}

	var t models.TrendingTopic
	in.apply(&t)
	created, err := a.Trending.Create(r.Context(), &t)
	if err != nil {
		writeStoreError(w, err, "trending topic")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTrending replaces a trending topic.
func (a *Admin) UpdateTrending(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in trendingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.normalize()
	if err := in.validate(); err != nil {
		writeStoreError(w, err, "trending topic")
		return
	}

	existing, err := a.Trending.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "trending topic")
		return
	}
	in.apply(existing)
	if err := a.Trending.Update(r.Context(), existing); err != nil {
		writeStoreError(w, err, "trending topic")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// DeleteTrending removes a trending topic.
func (a *Admin) DeleteTrending(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := a.Trending.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err, "trending topic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- App stores ---

// ListAppStores lists every app store, active or not.
func (a *Admin) ListAppStores(w http.ResponseWriter, r *http.Request) {
	stores, err := a.AppStores.List(r.Context())
	if err != nil {
		writeStoreError(w, err, "app store")
		return
	}
	if stores == nil {
		stores = []models.AppStore{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"app_stores": stores})
}

// CreateAppStore adds an app store with a freshly computed ranking score.
func (a *Admin) CreateAppStore(w http.ResponseWriter, r *http.Request) {
	var in appStoreInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.normalize()
	if err := in.validate(); err != nil {
		writeStoreError(w, err, "app store")
		return
	}

	var s models.AppStore
	in.apply(&s)
	s.RankingScore = ranking.Score(s)

	created, err := a.AppStores.Create(r.Context(), &s)
	if err != nil {
		writeStoreError(w, err, "app store")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateAppStore replaces an app store and rescores it.
func (a *Admin) UpdateAppStore(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in appStoreInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := a.AppStores.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "app store")
		return
	}
	if in.Slug == "" {
		in.Slug = existing.Slug
	}
	in.normalize()
	if err := in.validate(); err != nil {
		writeStoreError(w, err, "app store")
		return
	}

	in.apply(existing)
	existing.RankingScore = ranking.Score(*existing)
	if err := a.AppStores.Update(r.Context(), existing); err != nil {
		writeStoreError(w, err, "app store")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// DeleteAppStore removes an app store.
func (a *Admin) DeleteAppStore(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := a.AppStores.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err, "app store")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecomputeRankings rescores every app store now instead of waiting for
// the scheduler.
func (a *Admin) RecomputeRankings(w http.ResponseWriter, r *http.Request) {
	n, err := ranking.Recompute(r.Context(), a.AppStores)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeStoreError(w, err, "app store")
		return
	}
	slog.Info("ranking scores recomputed", "updated", n)
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
