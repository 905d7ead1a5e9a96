// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// TrendingTopic is an editor-curated entry in the trending strip. It links
// either to an article by slug or to an external URL.
type TrendingTopic struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	ArticleSlug *string   `json:"article_slug,omitempty"`
	URL         *string   `json:"url,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
