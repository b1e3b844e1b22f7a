package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"wedplan/internal/log"
	"wedplan/internal/metrics"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})
	m := metrics.New()

	var seen string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})
	h := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger, m).Middleware(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/abc", nil))

	if seen == "" || !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id not propagated: %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q != context id %q", rec.Header().Get(HeaderRequestID), seen)
	}
	if !strings.Contains(buf.String(), `"status_code":404`) || !strings.Contains(buf.String(), `"client_ip":"10.0.0.1"`) {
		t.Fatalf("completion log missing fields: %s", buf.String())
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "wedplan_http_requests_total"); err != nil || n != 1 {
		t.Fatalf("request series = %d, %v", n, err)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	h := NewMiddleware(nil, nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		incoming string
		keep     bool
	}{
		{"abc-123_X", true},
		{"", false},
		{"bad id with spaces", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		got := rec.Header().Get(HeaderRequestID)
		if tt.keep && got != tt.incoming {
			t.Errorf("id %q should be kept, got %q", tt.incoming, got)
		}
		if !tt.keep && got == tt.incoming {
			t.Errorf("id %q should be replaced", tt.incoming)
		}
	}
}
