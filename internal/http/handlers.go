package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"wedplan/internal/core"
	"wedplan/internal/log"
	"wedplan/internal/middleware/trace"
	"wedplan/internal/services"
)

const readinessTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"status":         "ok",
		},
		"security": map[string]any{
			"suspicious_requests": s.detector.SuspiciousCount(),
		},
	}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not_checked"
	}

	if s.reports != nil {
		checks["exporter"] = "configured"
	} else {
		checks["exporter"] = "not_configured"
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	ref := s.ledger.Reference()
	NewJSONResponse().Body(map[string]any{
		"categories": ref.Categories(),
		"regions":    ref.Regions(),
		"payers":     core.AllPayers(),
	}).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// withUser resolves the ledger owner before calling h.
func (s *Server) withUser(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := ParseUserID(r)
		if err != nil {
			s.writeError(w, r, UnauthorizedError(err.Error()))
			return
		}
		h(w, r, userID)
	}
}

// writeFailure maps a service error onto a status code.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrMissingUser):
		s.writeError(w, r, UnauthorizedError(err.Error()))
	case errors.Is(err, services.ErrRejected):
		s.writeError(w, r, UnprocessableEntityError(err.Error()))
	case errors.Is(err, services.ErrItemNotFound):
		s.writeError(w, r, NotFoundError(err.Error()))
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		s.writeError(w, r, InternalServerError("internal error"))
	}
}

// writeError stamps the request id onto error bodies.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, b *JSONResponseBuilder) {
	if body, ok := b.body.(ErrorBody); ok {
		body.RequestID = trace.GetRequestID(r.Context())
		b.Body(body)
	}
	b.Write(w)
}
