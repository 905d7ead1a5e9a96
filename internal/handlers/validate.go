package handlers

import (
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/category"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/slug"
)

// Validation limits for admin input.
const (
	maxTitleLen        = 300
	maxSubtitleLen     = 300
	maxBodyLen         = 100_000
	maxExcerptLen      = 1_000
	maxTags            = 20
	maxTagLen          = 50
	maxReadingTime     = 600
	maxCategoryNameLen = 100
	maxDescriptionLen  = 1_000
	maxTopicTitleLen   = 200
	maxPlatformLen     = 50
	maxURLLen          = 2_000
)

// ValidationError reports a rejected input field. Handlers answer it with
// 422 and the message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func tooLong(s string, n int) bool {
	return utf8.RuneCountInString(s) > n
}

// validateCoverURL accepts absolute https URLs whose host is allowed.
func validateCoverURL(raw string, allowedHosts []string) error {
	if tooLong(raw, maxURLLen) {
		return invalid("cover_image_url", "is too long")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return invalid("cover_image_url", "must be an absolute https URL")
	}
	if !slices.Contains(allowedHosts, strings.ToLower(u.Hostname())) {
		return invalid("cover_image_url", "host "+u.Hostname()+" is not allowed")
	}
	return nil
}

// validateLinkURL accepts absolute http(s) URLs.
func validateLinkURL(field, raw string) error {
	if tooLong(raw, maxURLLen) {
		return invalid(field, "is too long")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return invalid(field, "must be an absolute http(s) URL")
	}
	return nil
}

// articleInput is the admin create/update payload for an article.
type articleInput struct {
	Slug          string               `json:"slug"`
	Title         string               `json:"title"`
	Subtitle      *string              `json:"subtitle"`
	Content       string               `json:"content"`
	Excerpt       *string              `json:"excerpt"`
	Category      string               `json:"category"`
	Tags          []string             `json:"tags"`
	Status        models.ArticleStatus `json:"status"`
	IsPremium     bool                 `json:"is_premium"`
	IsFeatured    bool                 `json:"is_featured"`
	CoverImageURL *string              `json:"cover_image_url"`
	ReadingTime   *int                 `json:"reading_time"`
}

// normalize trims fields and fills defaults: a slug derived from the
// title and draft status.
func (in *articleInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Category = strings.TrimSpace(in.Category)
	if in.Slug == "" {
		in.Slug = slug.Generate(in.Title)
	}
	if in.Status == "" {
		in.Status = models.ArticleStatusDraft
	}
	in.Subtitle = trimOptional(in.Subtitle)
	in.Excerpt = trimOptional(in.Excerpt)
	in.CoverImageURL = trimOptional(in.CoverImageURL)
}

// validate returns the first problem found, or nil.
func (in *articleInput) validate(allowedHosts []string) error {
	switch {
	case in.Title == "":
		return invalid("title", "is required")
	case tooLong(in.Title, maxTitleLen):
		return invalid("title", "is too long (max 300 characters)")
	case in.Slug == "":
		return invalid("slug", "is required")
	case !slug.Valid(in.Slug):
		return invalid("slug", "must be lowercase letters, digits, hyphens or underscores")
	case in.Subtitle != nil && tooLong(*in.Subtitle, maxSubtitleLen):
		return invalid("subtitle", "is too long (max 300 characters)")
	case tooLong(in.Content, maxBodyLen):
		return invalid("content", "is too long (max 100,000 characters)")
	case in.Excerpt != nil && tooLong(*in.Excerpt, maxExcerptLen):
		return invalid("excerpt", "is too long (max 1,000 characters)")
	case in.Category == "":
		return invalid("category", "is required")
	case !slug.Valid(in.Category):
		return invalid("category", "must be a category slug")
	case !in.Status.Valid():
		return invalid("status", "must be draft, published or archived")
	case in.ReadingTime != nil && (*in.ReadingTime < 1 || *in.ReadingTime > maxReadingTime):
		return invalid("reading_time", "must be between 1 and 600 minutes")
	case len(in.Tags) > maxTags:
		return invalid("tags", "has too many entries (max 20)")
	}
	for _, t := range in.Tags {
		if tooLong(t, maxTagLen) {
			return invalid("tags", "entry is too long (max 50 characters)")
		}
	}
	if in.CoverImageURL != nil {
		return validateCoverURL(*in.CoverImageURL, allowedHosts)
	}
	return nil
}

// apply copies the input onto a.
func (in *articleInput) apply(a *models.Article) {
	a.Slug = in.Slug
	a.Title = in.Title
	a.Subtitle = in.Subtitle
	a.Content = in.Content
	a.Excerpt = in.Excerpt
	a.Category = in.Category
	a.Tags = models.NewTags(in.Tags)
	a.Status = in.Status
	a.IsPremium = in.IsPremium
	a.IsFeatured = in.IsFeatured
	a.CoverImageURL = in.CoverImageURL
	a.ReadingTime = in.ReadingTime
}

// categoryInput is the admin create/update payload for a category.
type categoryInput struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

func (in *categoryInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = slug.Generate(in.Name)
	}
	in.Description = trimOptional(in.Description)
}

func (in *categoryInput) validate() error {
	switch {
	case in.Name == "":
		return invalid("name", "is required")
	case tooLong(in.Name, maxCategoryNameLen):
		return invalid("name", "is too long (max 100 characters)")
	case in.Name == category.AllName:
		return invalid("name", "is reserved")
	case in.Slug == "":
		return invalid("slug", "is required")
	case !slug.Valid(in.Slug):
		return invalid("slug", "must be lowercase letters, digits, hyphens or underscores")
	case in.Slug == "all":
		return invalid("slug", "is reserved")
	case in.Description != nil && tooLong(*in.Description, maxDescriptionLen):
		return invalid("description", "is too long (max 1,000 characters)")
	}
	return nil
}

func (in *categoryInput) apply(c *models.Category) {
	c.Slug = in.Slug
	c.Name = in.Name
	c.Description = in.Description
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

// trendingInput is the admin create/update payload for a trending topic.
type trendingInput struct {
	Title       string  `json:"title"`
	ArticleSlug *string `json:"article_slug"`
	URL         *string `json:"url"`
	SortOrder   int     `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

func (in *trendingInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.ArticleSlug = trimOptional(in.ArticleSlug)
	in.URL = trimOptional(in.URL)
}

func (in *trendingInput) validate() error {
	switch {
	case in.Title == "":
		return invalid("title", "is required")
	case tooLong(in.Title, maxTopicTitleLen):
		return invalid("title", "is too long (max 200 characters)")
	case in.ArticleSlug != nil && !slug.Valid(*in.ArticleSlug):
		return invalid("article_slug", "must be an article slug")
	}
	if in.URL != nil {
		return validateLinkURL("url", *in.URL)
	}
	return nil
}

func (in *trendingInput) apply(t *models.TrendingTopic) {
	t.Title = in.Title
	t.ArticleSlug = in.ArticleSlug
	t.URL = in.URL
	t.SortOrder = in.SortOrder
	t.IsActive = in.IsActive == nil || *in.IsActive
}

// appStoreInput is the admin create/update payload for an app store.
type appStoreInput struct {
	Slug           string  `json:"slug"`
	Name           string  `json:"name"`
	Platform       string  `json:"platform"`
	CommissionRate float64 `json:"commission_rate"`
	Rating         float64 `json:"rating"`
	ReviewCount    int64   `json:"review_count"`
	AppCount       int64   `json:"app_count"`
	IsActive       *bool   `json:"is_active"`
}

func (in *appStoreInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Platform = strings.TrimSpace(in.Platform)
	if in.Slug == "" {
		in.Slug = slug.Generate(in.Name)
	}
}

func (in *appStoreInput) validate() error {
	switch {
	case in.Name == "":
		return invalid("name", "is required")
	case tooLong(in.Name, maxCategoryNameLen):
		return invalid("name", "is too long (max 100 characters)")
	case !slug.Valid(in.Slug):
		return invalid("slug", "must be lowercase letters, digits, hyphens or underscores")
	case in.Platform == "":
		return invalid("platform", "is required")
	case tooLong(in.Platform, maxPlatformLen):
		return invalid("platform", "is too long (max 50 characters)")
	case in.CommissionRate < 0 || in.CommissionRate > 100:
		return invalid("commission_rate", "must be between 0 and 100")
	case in.Rating < 0 || in.Rating > 5:
		return invalid("rating", "must be between 0 and 5")
	case in.ReviewCount < 0:
		return invalid("review_count", "must not be negative")
	case in.AppCount < 0:
		return invalid("app_count", "must not be negative")
	}
	return nil
}

func (in *appStoreInput) apply(a *models.AppStore) {
	a.Slug = in.Slug
	a.Name = in.Name
	a.Platform = in.Platform
	a.CommissionRate = in.CommissionRate
	a.Rating = in.Rating
	a.ReviewCount = in.ReviewCount
	a.AppCount = in.AppCount
	a.IsActive = in.IsActive == nil || *in.IsActive
}

// trimOptional trims s and maps blank strings to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
