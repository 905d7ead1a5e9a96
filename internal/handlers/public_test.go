package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/category"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/listing"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/store"
)

func newPublic(l *fakeListing) *Public {
	dir := &fakeDirectory{
		cats: []models.Category{
			{ID: uuid.New(), Slug: "market_analysis", Name: "市場分析", IsActive: true},
		},
		names: map[string]string{"market_analysis": "市場分析"},
	}
	return NewPublic(l, dir, &fakeTrendingLister{}, &fakeRankedLister{})
}

func publishedArticle(slug string) models.Article {
	now := time.Now()
	return models.Article{
		ID:          uuid.New(),
		Slug:        slug,
		Title:       "Title " + slug,
		Content:     "Body of " + slug,
		Category:    "market_analysis",
		Status:      models.ArticleStatusPublished,
		PublishedAt: &now,
	}
}

type listBody struct {
	Articles []articleCard `json:"articles"`
	HasMore  bool          `json:"has_more"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
	Category string        `json:"category"`
}

func TestListArticles_PassesQueryThrough(t *testing.T) {
	fl := &fakeListing{result: listing.Result{
		Articles: []models.Article{publishedArticle("a"), publishedArticle("b")},
		HasMore:  true,
		Page:     2,
		Limit:    6,
		Category: category.Resolution{Kind: category.KindResolved, Slug: "market_analysis"},
	}}
	p := newPublic(fl)

	req := httptest.NewRequest(http.MethodGet, "/api/articles?category=%E5%B8%82%E5%A0%B4%E5%88%86%E6%9E%90&page=2&limit=6&featured=true&sort=views", nil)
	rr := httptest.NewRecorder()
	p.ListArticles(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	want := listing.Request{Category: "市場分析", Page: 2, Limit: 6, Featured: true, SortBy: store.SortViews}
	if fl.lastReq != want {
		t.Errorf("request: got %+v, want %+v", fl.lastReq, want)
	}

	var body listBody
	decodeBody(t, rr, &body)
	if len(body.Articles) != 2 || !body.HasMore || body.Page != 2 || body.Limit != 6 {
		t.Errorf("unexpected body: %+v", body)
	}
	if body.Category != "market_analysis" {
		t.Errorf("category: got %q, want market_analysis", body.Category)
	}
	if body.Articles[0].CategoryName != "市場分析" {
		t.Errorf("category_name: got %q", body.Articles[0].CategoryName)
	}
	if body.Articles[0].Excerpt != "Title a" {
		t.Errorf("excerpt should fall back to the title, got %q", body.Articles[0].Excerpt)
	}
	if body.Articles[0].ReadingTime != models.DefaultReadingTime {
		t.Errorf("reading_time: got %d, want default", body.Articles[0].ReadingTime)
	}
}

func TestListArticles_EmptyPageIsArray(t *testing.T) {
	p := newPublic(&fakeListing{})

	rr := httptest.NewRecorder()
	p.ListArticles(rr, httptest.NewRequest(http.MethodGet, "/api/articles?page=abc", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"articles":[]`) {
		t.Errorf("expected an empty articles array, got %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"has_more":false`) {
		t.Errorf("expected has_more false, got %s", rr.Body.String())
	}
}

func TestSearchArticles(t *testing.T) {
	fl := &fakeListing{search: []models.Article{publishedArticle("fees")}}
	p := newPublic(fl)

	rr := httptest.NewRecorder()
	p.SearchArticles(rr, httptest.NewRequest(http.MethodGet, "/api/search/articles?q=fee", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if fl.lastQuery != "fee" {
		t.Errorf("query: got %q, want fee", fl.lastQuery)
	}
	var body listBody
	decodeBody(t, rr, &body)
	if len(body.Articles) != 1 || body.Articles[0].Slug != "fees" {
		t.Errorf("unexpected articles: %+v", body.Articles)
	}
}

func TestGetArticle(t *testing.T) {
	a := publishedArticle("fee-trends")
	a.Content = "## Fee trends\n\nCommission rates fell."

	p := newPublic(&fakeListing{article: &a})
	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/articles/fee-trends", nil), "slug", "fee-trends")
	rr := httptest.NewRecorder()
	p.GetArticle(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var body map[string]any
	decodeBody(t, rr, &body)
	html, _ := body["content_html"].(string)
	if !strings.Contains(html, "<h2") || !strings.Contains(html, "Commission rates fell.") {
		t.Errorf("content_html: got %q", html)
	}
	if body["gated"] != false {
		t.Errorf("gated: got %v, want false", body["gated"])
	}
	if body["category_name"] != "市場分析" {
		t.Errorf("category_name: got %v", body["category_name"])
	}
}

func TestGetArticle_PremiumGating(t *testing.T) {
	a := publishedArticle("deep-dive")
	a.IsPremium = true
	a.Content = strings.Repeat("Free paragraph text. ", 10) + "\n\n" + strings.Repeat("Paid insight. ", 100)

	t.Run("anonymous reader gets a preview", func(t *testing.T) {
		p := newPublic(&fakeListing{article: &a})
		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/articles/deep-dive", nil), "slug", "deep-dive")
		rr := httptest.NewRecorder()
		p.GetArticle(rr, req)

		var body map[string]any
		decodeBody(t, rr, &body)
		if body["gated"] != true {
			t.Fatalf("gated: got %v, want true", body["gated"])
		}
		if strings.Contains(body["content_html"].(string), "Paid insight") {
			t.Error("preview should stop at the paragraph break")
		}
		if strings.Contains(body["content"].(string), "Paid insight") {
			t.Error("raw content must be truncated too")
		}
	})

	t.Run("signed-in reader gets everything", func(t *testing.T) {
		p := newPublic(&fakeListing{article: &a})
		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/articles/deep-dive", nil), "slug", "deep-dive")
		req = withSession(req, staffSession())
		rr := httptest.NewRecorder()
		p.GetArticle(rr, req)

		var body map[string]any
		decodeBody(t, rr, &body)
		if body["gated"] != false {
			t.Fatalf("gated: got %v, want false", body["gated"])
		}
		if !strings.Contains(body["content_html"].(string), "Paid insight") {
			t.Error("full content expected for a signed-in reader")
		}
	})
}

func TestGetArticle_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"backend down", fmt.Errorf("get article: %w", store.ErrUnavailable), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPublic(&fakeListing{articleErr: tt.err})
			req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/articles/x", nil), "slug", "x")
			rr := httptest.NewRecorder()
			p.GetArticle(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
			if errorMessage(t, rr) == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short", 10); got != "short" {
		t.Errorf("short content: got %q", got)
	}
	if got := preview("one two\n\nthree four five", 10); got != "one two" {
		t.Errorf("paragraph cut: got %q, want %q", got, "one two")
	}
	if got := preview("Hi\n\nthe paid part of the article", 10); got != "Hi\n\nthe pa" {
		t.Errorf("short lead paragraph: got %q, want %q", got, "Hi\n\nthe pa")
	}
	long := "Lead.\n\n" + strings.Repeat("x", 600)
	if got := utf8.RuneCountInString(preview(long, premiumPreviewRunes)); got != premiumPreviewRunes {
		t.Errorf("short lead paragraph in a long article: got %d runes, want %d", got, premiumPreviewRunes)
	}
	if got := preview("あいうえおかきくけこさしす", 5); got != "あいうえお" {
		t.Errorf("rune cut: got %q", got)
	}
}

func TestRecordView(t *testing.T) {
	fl := &fakeListing{}
	p := newPublic(fl)
	id := uuid.New()

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/api/articles/"+id.String()+"/view", nil), "id", id.String())
	rr := httptest.NewRecorder()
	p.RecordView(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rr.Code)
	}
	if len(fl.viewed) != 1 || fl.viewed[0] != id {
		t.Errorf("viewed: got %v, want [%s]", fl.viewed, id)
	}

	t.Run("malformed id", func(t *testing.T) {
		req := withURLParams(httptest.NewRequest(http.MethodPost, "/api/articles/nope/view", nil), "id", "nope")
		rr := httptest.NewRecorder()
		p.RecordView(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
	})
}

func TestCategoriesAndCounts(t *testing.T) {
	fl := &fakeListing{counts: map[string]int{category.AllName: 3, "市場分析": 3}}
	p := newPublic(fl)

	rr := httptest.NewRecorder()
	p.Categories(rr, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	var cats struct {
		Categories []models.Category `json:"categories"`
	}
	decodeBody(t, rr, &cats)
	if len(cats.Categories) != 1 || cats.Categories[0].Slug != "market_analysis" {
		t.Errorf("categories: got %+v", cats.Categories)
	}

	rr = httptest.NewRecorder()
	p.CategoryCounts(rr, httptest.NewRequest(http.MethodGet, "/api/categories/counts", nil))
	var counts struct {
		Counts map[string]int `json:"counts"`
	}
	decodeBody(t, rr, &counts)
	if counts.Counts[category.AllName] != 3 {
		t.Errorf("total: got %d, want 3", counts.Counts[category.AllName])
	}
}

func TestTrendingAndAppStores_DegradeToEmpty(t *testing.T) {
	boom := errors.New("db down")
	p := NewPublic(&fakeListing{}, &fakeDirectory{}, &fakeTrendingLister{err: boom}, &fakeRankedLister{err: boom})

	rr := httptest.NewRecorder()
	p.Trending(rr, httptest.NewRequest(http.MethodGet, "/api/trending", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"topics":[]`) {
		t.Errorf("trending: got %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	p.AppStores(rr, httptest.NewRequest(http.MethodGet, "/api/app-stores", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"app_stores":[]`) {
		t.Errorf("app stores: got %d %s", rr.Code, rr.Body.String())
	}
}
