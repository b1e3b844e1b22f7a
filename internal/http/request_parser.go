// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data:
// owner identification, JSON bodies and query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wedplan/internal/budget"
	"wedplan/internal/core"
)

// HeaderUserID names the ledger owner of a request.
const HeaderUserID = "X-User-ID"

const maxUserIDLength = 128

var (
	ErrMissingUserID = errors.New("missing " + HeaderUserID + " header")
	ErrInvalidUserID = errors.New("invalid " + HeaderUserID + " header")
	ErrEmptyBody     = errors.New("empty request body")
)

// ParseUserID extracts the ledger owner from the request headers.
func ParseUserID(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(HeaderUserID))
	if id == "" {
		return "", ErrMissingUserID
	}
	if len(id) > maxUserIDLength || strings.ContainsAny(id, "\t\n\r") {
		return "", ErrInvalidUserID
	}
	return id, nil
}

// DecodeJSON reads a single JSON value from the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// ParseWindowParam reads the optional "window" query parameter in days.
// Missing or empty means no window (0).
func ParseWindowParam(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("window"))
	if v == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("invalid window %q: must be a non-negative number of days", v)
	}
	return days, nil
}

// SplitRequest is the body of POST /api/split.
type SplitRequest struct {
	// Ratio is party A's share of shared categories in percent; nil means 50.
	Ratio *int              `json:"ratio"`
	Modes map[string]string `json:"modes"`
}

const defaultSplitRatio = 50

// Resolve validates the modes and applies the default ratio.
func (s SplitRequest) Resolve() (map[core.Category]budget.SplitMode, int, error) {
	ratio := defaultSplitRatio
	if s.Ratio != nil {
		ratio = *s.Ratio
	}
	modes := make(map[core.Category]budget.SplitMode, len(s.Modes))
	for rawCat, rawMode := range s.Modes {
		cat, err := core.ParseCategory(rawCat)
		if err != nil {
			return nil, 0, err
		}
		mode, err := budget.ParseSplitMode(rawMode)
		if err != nil {
			return nil, 0, err
		}
		modes[cat] = mode
	}
	return modes, ratio, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
