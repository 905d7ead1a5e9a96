// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
package slug

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// MaxLength is the longest slug Valid accepts.
const MaxLength = 200

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, hyphen or whitespace.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// validSlug allows hyphen- or underscore-separated lowercase words.
	validSlug = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
)

// Generate creates a URL-friendly slug from the given string. Non-ASCII
// text is transliterated first, so Japanese titles yield romanised slugs.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(s)))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.Join(strings.Fields(result), "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Valid reports whether s is an acceptable article or category slug.
func Valid(s string) bool {
	return len(s) <= MaxLength && validSlug.MatchString(s)
}
