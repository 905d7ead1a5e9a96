// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package category resolves between the category slugs stored on articles
// and the display names shown to readers. The built-in table is always
// available; categories created through the admin API are loaded lazily
// from the store on first lookup.
package category

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
)

// Loader is the subset of the category store the registry reads from.
type Loader interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

// Kind classifies the outcome of resolving a user-facing category filter.
type Kind int

const (
	// KindAll means no category filter should be applied.
	KindAll Kind = iota
	// KindResolved means the input matched a known category.
	KindResolved
	// KindUnresolved means the input is unknown and is passed through as-is.
	KindUnresolved
)

// Resolution is the result of Resolve. Slug holds the value to filter on:
// the known slug for KindResolved, the raw input for KindUnresolved and
// the empty string for KindAll.
type Resolution struct {
	Kind Kind
	Slug string
}

// Filter returns the slug to filter articles by, or "" for no filter.
func (r Resolution) Filter() string {
	if r.Kind == KindAll {
		return ""
	}
	return r.Slug
}

// Registry maps category slugs to display names and back. It is safe for
// concurrent use. Create one per process and share it.
type Registry struct {
	loader Loader

	mu         sync.Mutex
	loaded     bool
	nameBySlug map[string]string
	slugByName map[string]string
}

// NewRegistry returns a Registry reading custom categories from loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader}
}

// LoadActiveCategories returns the active categories ordered by sort order
// then name. Backend errors are logged and produce an empty slice.
func (r *Registry) LoadActiveCategories(ctx context.Context) []models.Category {
	cats, err := r.loader.ListActive(ctx)
	if err != nil {
		slog.Error("load active categories failed", "error", err)
		return []models.Category{}
	}
	if cats == nil {
		return []models.Category{}
	}
	return cats
}

// DisplayNameForSlug returns the display name for slug, or slug itself when
// the category is unknown.
func (r *Registry) DisplayNameForSlug(ctx context.Context, slug string) string {
	if name, ok := defaultNameBySlug[slug]; ok {
		return name
	}
	nameBySlug, _ := r.maps(ctx)
	if name, ok := nameBySlug[slug]; ok {
		return name
	}
	return slug
}

// SlugForDisplayName returns the slug whose display name is name. The
// built-in table is consulted before loaded categories.
func (r *Registry) SlugForDisplayName(ctx context.Context, name string) (string, bool) {
	if slug, ok := defaultSlugByName[name]; ok {
		return slug, true
	}
	_, slugByName := r.maps(ctx)
	slug, ok := slugByName[name]
	return slug, ok
}

// Resolve turns a user-supplied category filter into a Resolution. The
// input may be a display name, a slug, or one of the "all" sentinels.
func (r *Registry) Resolve(ctx context.Context, input string) Resolution {
	input = strings.TrimSpace(input)
	if isAll(input) {
		return Resolution{Kind: KindAll}
	}
	if slug, ok := r.SlugForDisplayName(ctx, input); ok {
		return Resolution{Kind: KindResolved, Slug: slug}
	}
	if r.knownSlug(ctx, input) {
		return Resolution{Kind: KindResolved, Slug: input}
	}
	return Resolution{Kind: KindUnresolved, Slug: input}
}

// Reset drops the loaded categories so the next lookup reloads them.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.nameBySlug = nil
	r.slugByName = nil
}

func (r *Registry) knownSlug(ctx context.Context, slug string) bool {
	if _, ok := defaultNameBySlug[slug]; ok {
		return true
	}
	nameBySlug, _ := r.maps(ctx)
	_, ok := nameBySlug[slug]
	return ok
}

// maps returns the loaded lookup tables, loading them on first use. A
// failed load leaves the registry unloaded so a later call can retry.
func (r *Registry) maps(ctx context.Context) (map[string]string, map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return r.nameBySlug, r.slugByName
	}

	cats, err := r.loader.List(ctx)
	if err != nil {
		slog.Warn("category registry load failed, using defaults only", "error", err)
		return nil, nil
	}

	r.nameBySlug = make(map[string]string, len(cats))
	r.slugByName = make(map[string]string, len(cats))
	for _, c := range cats {
		r.nameBySlug[c.Slug] = c.Name
		if _, taken := r.slugByName[c.Name]; !taken {
			r.slugByName[c.Name] = c.Slug
		}
	}
	r.loaded = true

	slog.Debug("category registry loaded", "categories", len(cats))
	return r.nameBySlug, r.slugByName
}

func isAll(input string) bool {
	return input == "" || input == AllName || strings.EqualFold(input, "all")
}
