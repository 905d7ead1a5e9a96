// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ranking computes the composite score used to order app stores.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
)

// Component weights. They sum to 1.
const (
	weightRating     = 0.35
	weightCommission = 0.25
	weightReviews    = 0.20
	weightApps       = 0.20

	// Review and app counts saturate at 10^6 and 10^7.
	reviewsLogCap = 6
	appsLogCap    = 7
)

// Score returns the store's ranking score in [0, 100], rounded to one decimal.
func Score(s models.AppStore) float64 {
	rating := clamp(s.Rating, 0, 5) / 5
	commission := (100 - clamp(s.CommissionRate, 0, 100)) / 100
	reviews := logShare(s.ReviewCount, reviewsLogCap)
	apps := logShare(s.AppCount, appsLogCap)

	total := 100 * (weightRating*rating +
		weightCommission*commission +
		weightReviews*reviews +
		weightApps*apps)
	return math.Round(total*10) / 10
}

func logShare(n int64, capExp float64) float64 {
	if n < 0 {
		n = 0
	}
	return math.Min(math.Log10(float64(n)+1)/capExp, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Rank scores each store and returns them sorted by score descending, then
// by name. The input slice is not modified.
func Rank(stores []models.AppStore) []models.AppStore {
	ranked := make([]models.AppStore, len(stores))
	copy(ranked, stores)
	for i := range ranked {
		ranked[i].RankingScore = Score(ranked[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RankingScore != ranked[j].RankingScore {
			return ranked[i].RankingScore > ranked[j].RankingScore
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// Store is the persistence the recompute job needs.
type Store interface {
	List(ctx context.Context) ([]models.AppStore, error)
	UpdateScores(ctx context.Context, scores map[uuid.UUID]float64) error
}

// Recompute rescores every store and persists the scores that changed.
// It returns the number of stores updated.
func Recompute(ctx context.Context, st Store) (int, error) {
	stores, err := st.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list app stores: %w", err)
	}

	changed := make(map[uuid.UUID]float64)
	for _, s := range stores {
		if score := Score(s); score != s.RankingScore {
			changed[s.ID] = score
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := st.UpdateScores(ctx, changed); err != nil {
		return 0, fmt.Errorf("update scores: %w", err)
	}
	return len(changed), nil
}
