package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]int{"count": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"count":2}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Header("Location", "/api/items/abc").
		Body(struct{}{}).
		Write(w)

	if got := w.Header().Get("Location"); got != "/api/items/abc" {
		t.Errorf("Location = %q", got)
	}
}

func TestNoContentHasNoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent().Body("ignored").Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want 204", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("204 response has body %q", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		code    int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unauthorized", UnauthorizedError("who"), http.StatusUnauthorized},
		{"unprocessable", UnprocessableEntityError("invalid"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("gone"), http.StatusNotFound},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.code {
				t.Errorf("Status code = %d, want %d", w.Code, tt.code)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestUnencodableBodyIsInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(make(chan int)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}
