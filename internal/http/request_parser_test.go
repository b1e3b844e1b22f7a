package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"wedplan/internal/budget"
	"wedplan/internal/core"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"plain", "couple-1", "couple-1", nil},
		{"trimmed", "  couple-1 ", "couple-1", nil},
		{"control characters removed", "cou\x00ple", "couple", nil},
		{"missing", "", "", ErrMissingUserID},
		{"blank", "   ", "", ErrMissingUserID},
		{"too long", strings.Repeat("x", maxUserIDLength+1), "", ErrInvalidUserID},
		{"embedded tab", "a\tb", "", ErrInvalidUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			if tt.header != "" {
				req.Header.Set(HeaderUserID, tt.header)
			}
			got, err := ParseUserID(req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseUserID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"title":"hall"}`, false},
		{"empty", ``, true},
		{"malformed", `{"title":`, true},
		{"two values", `{"title":"a"} {"title":"b"}`, true},
		{"wrong type", `{"title":5}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Title != "hall" {
				t.Errorf("Title = %q", p.Title)
			}
		})
	}
}

func TestDecodeJSONBodyLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"title":"`+strings.Repeat("a", 100)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var p struct {
		Title string `json:"title"`
	}
	err := DecodeJSON(req, &p)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestParseWindowParam(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    int
		wantErr bool
	}{
		{"missing", url.Values{}, 0, false},
		{"empty", url.Values{"window": {""}}, 0, false},
		{"days", url.Values{"window": {"30"}}, 30, false},
		{"zero", url.Values{"window": {"0"}}, 0, false},
		{"negative", url.Values{"window": {"-1"}}, 0, true},
		{"not a number", url.Values{"window": {"soon"}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowParam(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWindowParam() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSplitRequestResolve(t *testing.T) {
	ratio := 70
	modes, r, err := SplitRequest{
		Ratio: &ratio,
		Modes: map[string]string{"Venue": "party_a", "rings": " SHARED "},
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r != 70 {
		t.Errorf("ratio = %d, want 70", r)
	}
	if modes[core.CategoryVenue] != budget.SplitPartyA || modes[core.CategoryRings] != budget.SplitShared {
		t.Errorf("modes = %v", modes)
	}

	if _, r, _ := (SplitRequest{}).Resolve(); r != defaultSplitRatio {
		t.Errorf("default ratio = %d, want %d", r, defaultSplitRatio)
	}

	if _, _, err := (SplitRequest{Modes: map[string]string{"boat": "shared"}}).Resolve(); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("unknown category err = %v", err)
	}
	if _, _, err := (SplitRequest{Modes: map[string]string{"venue": "groom"}}).Resolve(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x01b\x1fc", "abc"},
		{"line\nbreak", "line\nbreak"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
