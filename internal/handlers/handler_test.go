// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// in-memory fakes for every dependency and request helpers.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/listing"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/middleware"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/session"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/store"
)

// ---------- request helpers ----------

// jsonRequest builds a request with a JSON body (nil body for nil v). An
// io.Reader is sent as-is.
func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body io.Reader = http.NoBody
	if r, ok := v.(io.Reader); ok {
		body = r
	} else if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withSession attaches session data the way middleware.LoadSession does.
func withSession(req *http.Request, data *session.Data) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, data))
}

// withURLParams sets chi URL parameters on a request served without a router.
func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody decodes a JSON response body into v.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

// errorMessage returns the "error" field of a JSON error response.
func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rr, &body)
	return body["error"]
}

func strPtr(s string) *string { return &s }

// ---------- public fakes ----------

type fakeListing struct {
	mu         sync.Mutex
	result     listing.Result
	lastReq    listing.Request
	counts     map[string]int
	search     []models.Article
	lastQuery  string
	article    *models.Article
	articleErr error
	viewed     []uuid.UUID
}

func (f *fakeListing) List(_ context.Context, req listing.Request) listing.Result {
	f.lastReq = req
	return f.result
}

func (f *fakeListing) CategoryCounts(context.Context) map[string]int { return f.counts }

func (f *fakeListing) Search(_ context.Context, query string, _ int) []models.Article {
	f.lastQuery = query
	return f.search
}

func (f *fakeListing) Article(context.Context, string) (*models.Article, error) {
	return f.article, f.articleErr
}

func (f *fakeListing) RecordView(_ context.Context, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewed = append(f.viewed, id)
}

func (f *fakeListing) InvalidateCounts(context.Context) {}

type fakeDirectory struct {
	cats  []models.Category
	names map[string]string
}

func (f *fakeDirectory) LoadActiveCategories(context.Context) []models.Category { return f.cats }

func (f *fakeDirectory) DisplayNameForSlug(_ context.Context, slug string) string {
	if n, ok := f.names[slug]; ok {
		return n
	}
	return slug
}

type fakeTrendingLister struct {
	topics []models.TrendingTopic
	err    error
}

func (f *fakeTrendingLister) ListActive(context.Context) ([]models.TrendingTopic, error) {
	return f.topics, f.err
}

type fakeRankedLister struct {
	stores []models.AppStore
	err    error
}

func (f *fakeRankedLister) ListRanked(context.Context) ([]models.AppStore, error) {
	return f.stores, f.err
}

// ---------- auth fakes ----------

// fakeProfiles keeps profiles in memory. Passwords are stored in clear so
// CheckPassword is a string compare.
type fakeProfiles struct {
	byID map[uuid.UUID]*models.Profile
	err  error
}

func newFakeProfiles(profiles ...*models.Profile) *fakeProfiles {
	f := &fakeProfiles{byID: make(map[uuid.UUID]*models.Profile)}
	for _, p := range profiles {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) FindByEmail(_ context.Context, email string) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeProfiles) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Create(ctx context.Context, email, password, displayName string, role models.Role) (*models.Profile, error) {
	if p, _ := f.FindByEmail(ctx, email); p != nil {
		return nil, fmt.Errorf("create profile: %w", store.ErrDuplicateSlug)
	}
	p := &models.Profile{ID: uuid.New(), Email: email, PasswordHash: password, DisplayName: displayName, Role: role}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	f.byID[id].TOTPSecret = &secret
	return nil
}

func (f *fakeProfiles) EnableTOTP(_ context.Context, id uuid.UUID) error {
	f.byID[id].TOTPEnabled = true
	return nil
}

func (f *fakeProfiles) CheckPassword(p *models.Profile, password string) bool {
	return p.PasswordHash == password
}

type fakeSessions struct {
	created   *session.Data
	updated   *session.Data
	destroyed bool
	err       error
}

func (f *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = data
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "test-session"})
	return "test-session", nil
}

func (f *fakeSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	f.updated = data
	return f.err
}

func (f *fakeSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	f.destroyed = true
	return f.err
}

// ---------- admin fakes ----------

// fakeArticles mirrors the store's lifecycle rules in memory.
type fakeArticles struct {
	byID map[uuid.UUID]*models.Article
	err  error
}

func newFakeArticles(articles ...*models.Article) *fakeArticles {
	f := &fakeArticles{byID: make(map[uuid.UUID]*models.Article)}
	for _, a := range articles {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeArticles) GetDrafts(ctx context.Context) ([]models.Article, error) {
	return f.ListByStatus(ctx, models.ArticleStatusDraft)
}

func (f *fakeArticles) ListByStatus(_ context.Context, status models.ArticleStatus) ([]models.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Article
	for _, a := range f.byID {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeArticles) GetByID(_ context.Context, id uuid.UUID) (*models.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArticles) Create(_ context.Context, a *models.Article) (*models.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.byID {
		if existing.Slug == a.Slug {
			return nil, fmt.Errorf("create article: %w", store.ErrDuplicateSlug)
		}
	}
	if a.Status == models.ArticleStatusArchived {
		return nil, fmt.Errorf("create article: %w", store.ErrInvalidTransition)
	}
	cp := *a
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	if cp.Status == models.ArticleStatusPublished {
		now := time.Now()
		cp.PublishedAt = &now
	}
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeArticles) Update(_ context.Context, a *models.Article) error {
	if f.err != nil {
		return f.err
	}
	cur, ok := f.byID[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.PublishedAt != nil && a.Slug != cur.Slug {
		return fmt.Errorf("update article: %w", store.ErrSlugImmutable)
	}
	if !cur.Status.CanTransitionTo(a.Status) {
		return fmt.Errorf("update article: %w", store.ErrInvalidTransition)
	}
	cp := *a
	cp.PublishedAt = cur.PublishedAt
	if cp.Status == models.ArticleStatusPublished && cp.PublishedAt == nil {
		now := time.Now()
		cp.PublishedAt = &now
	}
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeArticles) Transition(_ context.Context, id uuid.UUID, next models.ArticleStatus) error {
	cur, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	if !cur.Status.CanTransitionTo(next) {
		return fmt.Errorf("transition article: %w", store.ErrInvalidTransition)
	}
	cur.Status = next
	if next == models.ArticleStatusPublished && cur.PublishedAt == nil {
		now := time.Now()
		cur.PublishedAt = &now
	}
	return nil
}

func (f *fakeArticles) SetCoverImage(_ context.Context, id uuid.UUID, url string) error {
	cur, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	cur.CoverImageURL = &url
	return nil
}

func (f *fakeArticles) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeCategories struct {
	byID map[uuid.UUID]*models.Category
	next int
}

func newFakeCategories(cats ...*models.Category) *fakeCategories {
	f := &fakeCategories{byID: make(map[uuid.UUID]*models.Category), next: len(cats) + 1}
	for _, c := range cats {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCategories) List(context.Context) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	for _, existing := range f.byID {
		if existing.Slug == c.Slug {
			return nil, fmt.Errorf("create category: %w", store.ErrDuplicateSlug)
		}
	}
	cp := *c
	cp.ID = uuid.New()
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeCategories) Update(_ context.Context, c *models.Category) error {
	if _, ok := f.byID[c.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCategories) NextSortOrder(context.Context) (int, error) { return f.next, nil }

type fakeTrendingAdmin struct {
	byID map[uuid.UUID]*models.TrendingTopic
}

func (f *fakeTrendingAdmin) List(context.Context) ([]models.TrendingTopic, error) {
	var out []models.TrendingTopic
	for _, t := range f.byID {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTrendingAdmin) FindByID(_ context.Context, id uuid.UUID) (*models.TrendingTopic, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTrendingAdmin) Create(_ context.Context, t *models.TrendingTopic) (*models.TrendingTopic, error) {
	cp := *t
	cp.ID = uuid.New()
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeTrendingAdmin) Update(_ context.Context, t *models.TrendingTopic) error {
	if _, ok := f.byID[t.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

func (f *fakeTrendingAdmin) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeAppStores struct {
	byID    map[uuid.UUID]*models.AppStore
	updates map[uuid.UUID]float64
}

func (f *fakeAppStores) List(context.Context) ([]models.AppStore, error) {
	var out []models.AppStore
	for _, s := range f.byID {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeAppStores) UpdateScores(_ context.Context, scores map[uuid.UUID]float64) error {
	f.updates = scores
	for id, score := range scores {
		f.byID[id].RankingScore = score
	}
	return nil
}

func (f *fakeAppStores) FindByID(_ context.Context, id uuid.UUID) (*models.AppStore, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAppStores) Create(_ context.Context, s *models.AppStore) (*models.AppStore, error) {
	cp := *s
	cp.ID = uuid.New()
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeAppStores) Update(_ context.Context, s *models.AppStore) error {
	if _, ok := f.byID[s.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeAppStores) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeCovers records uploads under a fixed public URL prefix.
type fakeCovers struct {
	uploaded map[string][]byte
	deleted  []string
}

const fakeCoverBase = "https://cdn.example.com/insights-public/"

func (f *fakeCovers) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploaded[key] = b
	return nil
}

func (f *fakeCovers) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeCovers) FileURL(key string) string { return fakeCoverBase + key }

func (f *fakeCovers) ExtractKey(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, fakeCoverBase) {
		return "", false
	}
	return strings.TrimPrefix(rawURL, fakeCoverBase), true
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateCounts(context.Context) { c.calls++ }

type countingResetter struct{ calls int }

func (c *countingResetter) Reset() { c.calls++ }

// adminEnv bundles an Admin handler with its fakes.
type adminEnv struct {
	admin       *Admin
	articles    *fakeArticles
	categories  *fakeCategories
	trending    *fakeTrendingAdmin
	appStores   *fakeAppStores
	covers      *fakeCovers
	invalidator *countingInvalidator
	resetter    *countingResetter
}

func newAdminEnv(articles ...*models.Article) *adminEnv {
	env := &adminEnv{
		articles:    newFakeArticles(articles...),
		categories:  newFakeCategories(),
		trending:    &fakeTrendingAdmin{byID: make(map[uuid.UUID]*models.TrendingTopic)},
		appStores:   &fakeAppStores{byID: make(map[uuid.UUID]*models.AppStore)},
		covers:      &fakeCovers{uploaded: make(map[string][]byte)},
		invalidator: &countingInvalidator{},
		resetter:    &countingResetter{},
	}
	env.admin = NewAdmin(AdminDeps{
		Articles:     env.articles,
		Categories:   env.categories,
		Trending:     env.trending,
		AppStores:    env.appStores,
		Covers:       env.covers,
		Listing:      env.invalidator,
		Registry:     env.resetter,
		AllowedHosts: []string{"images.unsplash.com", "cdn.example.com"},
	})
	return env
}

// staffSession returns a fully authenticated editor session.
func staffSession() *session.Data {
	return &session.Data{
		ProfileID:   uuid.New(),
		Email:       "editor@insights.local",
		DisplayName: "Editor",
		Role:        models.RoleEditor,
		TwoFADone:   true,
	}
}
