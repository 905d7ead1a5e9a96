// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// AppStore describes an app marketplace tracked by the ranking table.
// RankingScore is derived from the other metrics and stored for sorting.
type AppStore struct {
	ID             uuid.UUID `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	Platform       string    `json:"platform"`
	CommissionRate float64   `json:"commission_rate"`
	Rating         float64   `json:"rating"`
	ReviewCount    int64     `json:"review_count"`
	AppCount       int64     `json:"app_count"`
	RankingScore   float64   `json:"ranking_score"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
