// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ArticleStatus represents the publishing state of an article.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether an article in status s may move to next.
// Staying in the same status is always allowed. The lifecycle only moves
// forward: draft -> published -> archived.
func (s ArticleStatus) CanTransitionTo(next ArticleStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case ArticleStatusDraft:
		return next == ArticleStatusPublished
	case ArticleStatusPublished:
		return next == ArticleStatusArchived
	}
	return false
}

const (
	// DefaultReadingTime is used when an article has no explicit reading time.
	DefaultReadingTime = 5

	// excerptFallbackLen caps the title-derived excerpt.
	excerptFallbackLen = 120
)

// Author holds the profile fields joined onto an article.
type Author struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
}

// Article is a published or in-progress piece of editorial content.
type Article struct {
	ID            uuid.UUID     `json:"id"`
	Slug          string        `json:"slug"`
	Title         string        `json:"title"`
	Subtitle      *string       `json:"subtitle,omitempty"`
	Content       string        `json:"content"`
	Excerpt       *string       `json:"excerpt,omitempty"`
	Category      string        `json:"category"`
	Tags          Tags          `json:"tags"`
	Status        ArticleStatus `json:"status"`
	IsPremium     bool          `json:"is_premium"`
	IsFeatured    bool          `json:"is_featured"`
	CoverImageURL *string       `json:"cover_image_url,omitempty"`
	ReadingTime   *int          `json:"reading_time,omitempty"`
	ViewCount     int64         `json:"view_count"`
	AuthorID      *uuid.UUID    `json:"author_id,omitempty"`
	Author        *Author       `json:"author,omitempty"`
	PublishedAt   *time.Time    `json:"published_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsPublished returns true if the article is in published status.
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// Summary returns the excerpt, falling back to the subtitle and then to a
// truncated title.
func (a *Article) Summary() string {
	if a.Excerpt != nil && strings.TrimSpace(*a.Excerpt) != "" {
		return *a.Excerpt
	}
	if a.Subtitle != nil && strings.TrimSpace(*a.Subtitle) != "" {
		return *a.Subtitle
	}
	return truncateRunes(a.Title, excerptFallbackLen)
}

// Minutes returns the reading time in minutes, defaulting to DefaultReadingTime.
func (a *Article) Minutes() int {
	if a.ReadingTime == nil || *a.ReadingTime <= 0 {
		return DefaultReadingTime
	}
	return *a.ReadingTime
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// Tags is a set of article tags stored as a JSON array.
type Tags []string

// NewTags trims, de-duplicates and sorts the given tags. Tag order carries
// no meaning, so a stable sorted form keeps comparisons simple.
func NewTags(in []string) Tags {
	seen := make(map[string]struct{}, len(in))
	out := make(Tags, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tags: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	*t = NewTags(out)
	return nil
}
