// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the Insights JSON API.
// Handlers are grouped by concern (public, auth, admin) and receive their
// dependencies through the handler struct.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON sends v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// writeError sends {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON object from the request body into v, rejecting
// unknown fields. A literal null is not an object and is refused.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return errors.New("request body must be a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeStoreError maps store and validation errors onto HTTP statuses.
// what names the resource for the 404 message.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrDuplicateSlug):
		writeError(w, http.StatusConflict, store.ErrDuplicateSlug.Error())
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrSlugImmutable):
		writeError(w, http.StatusUnprocessableEntity, unwrapSentinel(err).Error())
	case errors.Is(err, store.ErrUnavailable):
		slog.Error("backend unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// unwrapSentinel returns the store sentinel inside err so clients see the
// stable message rather than the wrapped operation prefix.
func unwrapSentinel(err error) error {
	for _, s := range []error{store.ErrInvalidTransition, store.ErrSlugImmutable} {
		if errors.Is(err, s) {
			return s
		}
	}
	return err
}

// idParam parses the {id} URL parameter, writing a 400 when malformed.
func idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// intQuery reads a positive integer query parameter, returning 0 when it
// is missing or malformed so the caller's defaults apply.
func intQuery(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// boolQuery reads a boolean query parameter ("1", "true").
func boolQuery(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}
