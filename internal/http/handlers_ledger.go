package http

import (
	"net/http"
	"time"

	"wedplan/internal/log"
	"wedplan/internal/metrics"
	"wedplan/internal/services"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID string) {
	st, err := s.ledger.Settings(r.Context(), userID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var in services.SettingsInput
	if err := DecodeJSON(r, &in); err != nil {
		s.writeError(w, r, BadRequestError(err.Error()))
		return
	}
	st, err := s.ledger.SaveSettings(r.Context(), userID, in)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := s.ledger.Items(r.Context(), userID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"items": items,
		"count": len(items),
	}).Write(w)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request, userID string) {
	var in services.ItemInput
	if err := DecodeJSON(r, &in); err != nil {
		s.writeError(w, r, BadRequestError(err.Error()))
		return
	}
	in.Title = sanitizeInput(in.Title)
	in.Memo = sanitizeInput(in.Memo)

	it, err := s.ledger.AddItem(r.Context(), userID, in)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/items/"+it.ID).
		Body(it).
		Write(w)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, userID string) {
	var in services.ItemInput
	if err := DecodeJSON(r, &in); err != nil {
		s.writeError(w, r, BadRequestError(err.Error()))
		return
	}
	in.Title = sanitizeInput(in.Title)
	in.Memo = sanitizeInput(in.Memo)

	it, err := s.ledger.UpdateItem(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(it).Write(w)
}

// handleDeleteItem answers 204 whether or not the item existed.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.ledger.DeleteItem(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, userID string) {
	sum, err := s.ledger.Summary(r.Context(), userID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request, userID string) {
	var req SplitRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, BadRequestError(err.Error()))
		return
	}
	modes, ratio, err := req.Resolve()
	if err != nil {
		s.writeError(w, r, UnprocessableEntityError(err.Error()))
		return
	}
	res, err := s.ledger.Split(r.Context(), userID, modes, ratio)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request, userID string) {
	window, err := ParseWindowParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, BadRequestError(err.Error()))
		return
	}
	due, err := s.ledger.Balances(r.Context(), userID, window)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"window":   window,
		"balances": due,
		"count":    len(due),
	}).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, userID string) {
	rep, err := s.ledger.Report(r.Context(), userID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(rep).Write(w)
}

// handleExportReport writes the user's report to the configured exporter.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request, userID string) {
	if s.reports == nil {
		s.writeError(w, r, ErrorResponse(http.StatusNotImplemented, "report export is not configured"))
		return
	}
	rep, err := s.ledger.Report(r.Context(), userID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.reports.WriteReport(r.Context(), rep); err != nil {
		s.metrics.ReportExport(metrics.OutcomeError)
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Report export failed",
			log.FieldUserID, userID, log.FieldError, err)
		s.writeError(w, r, ErrorResponse(http.StatusBadGateway, "report export failed"))
		return
	}
	s.metrics.ReportExport(metrics.OutcomeSuccess)
	NewJSONResponse().Body(map[string]any{
		"status":       "exported",
		"user_id":      userID,
		"generated_at": rep.GeneratedAt.UTC().Format(time.RFC3339),
	}).Write(w)
}
