// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps failures talking to the database.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrInvalidTransition is returned for a status change the article
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSlugImmutable is returned when a published article's slug is edited.
	ErrSlugImmutable = errors.New("slug cannot change once published")

	// ErrDuplicateSlug is returned when a slug is already taken.
	ErrDuplicateSlug = errors.New("slug already in use")
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// backendErr wraps a database error so callers can test it with
// errors.Is(err, ErrUnavailable) while keeping the driver error.
func backendErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicateSlug)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
