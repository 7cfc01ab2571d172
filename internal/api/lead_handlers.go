package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagespeed-leads/internal/lead"
	"github.com/JakeFAU/pagespeed-leads/internal/logging"
	"github.com/JakeFAU/pagespeed-leads/internal/validate"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type analyzeRequest struct {
	Email      string `json:"email"`
	WebsiteURL string `json:"websiteUrl"`
}

func (req analyzeRequest) validate() []string {
	var errs []string
	switch {
	case strings.TrimSpace(req.Email) == "":
		errs = append(errs, "Email is required.")
	case !validate.IsValidEmail(req.Email):
		errs = append(errs, "Invalid email format.")
	}
	if strings.TrimSpace(req.WebsiteURL) == "" {
		errs = append(errs, "Website URL is required.")
	}
	return errs
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), s.logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		writeError(w, http.StatusBadRequest, "Missing request body")
		return
	}
	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if errs := req.validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "Validation failed",
			Errors:  errs,
		})
		return
	}

	strategy := lead.ParseStrategy(r.URL.Query().Get("strategy"))
	logger.Info("analysis requested",
		zap.String("email", req.Email),
		zap.String("url", req.WebsiteURL),
		zap.String("strategy", string(strategy)),
	)

	result, err := s.leads.AnalyzeAndCreateLead(r.Context(), req.Email, req.WebsiteURL, strategy)
	if err != nil {
		logger.Error("analyze request failed", zap.Error(err))
		writeLeadError(w, err, errorMessages{
			external: "Failed to analyze the website due to an external service error.",
			storage:  "Failed to save analysis results due to a database issue.",
		})
		return
	}

	logger.Info("lead created", zap.Int64("lead_id", result.LeadID))
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: result})
}

func (s *Server) continueLead(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), s.logger)

	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	updated, err := s.leads.RequestContinue(r.Context(), id)
	if err != nil {
		logger.Error("continue request failed", zap.Int64("lead_id", id), zap.Error(err))
		writeLeadError(w, err, errorMessages{storage: "Failed to update lead status."})
		return
	}
	if !updated {
		logger.Warn("lead not found for continue request", zap.Int64("lead_id", id))
		writeError(w, http.StatusNotFound, "Lead not found.")
		return
	}

	logger.Info("lead marked for continuation", zap.Int64("lead_id", id))
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Lead marked for continuation."})
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	found, err := s.leads.GetLead(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("get lead failed", zap.Int64("lead_id", id), zap.Error(err))
		writeLeadError(w, err, errorMessages{storage: "Failed to load lead."})
		return
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "Lead not found.")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: found})
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseListFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	leads, err := s.leads.ListLeads(r.Context(), filter)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("list leads failed", zap.Error(err))
		writeLeadError(w, err, errorMessages{storage: "Failed to list leads."})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: leads})
}

// parseListFilter reads ?continue=&limit=&offset= from the query string. A
// non-empty second result is the message for a 400.
func parseListFilter(r *http.Request) (lead.ListFilter, string) {
	q := r.URL.Query()
	filter := lead.ListFilter{Limit: defaultListLimit}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 {
			return lead.ListFilter{}, "Invalid limit. Must be a positive integer."
		}
		filter.Limit = min(val, maxListLimit)
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			return lead.ListFilter{}, "Invalid offset. Must be zero or a positive integer."
		}
		filter.Offset = val
	}
	if raw := strings.TrimSpace(q.Get("continue")); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return lead.ListFilter{}, "Invalid continue filter. Must be true or false."
		}
		filter.ContinueRequested = &val
	}
	return filter, ""
}

// leadIDParam parses the {id} path segment, writing a 400 when it is absent or
// not a positive integer.
func leadIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing lead ID in URL path.")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid lead ID format. Must be a positive integer.")
		return 0, false
	}
	return id, true
}

// errorMessages holds the user-facing message per error kind for one route.
type errorMessages struct {
	external string
	storage  string
}

// writeLeadError maps a tagged lead error onto a status code and body.
func writeLeadError(w http.ResponseWriter, err error, msgs errorMessages) {
	var lerr *lead.Error
	if !errors.As(err, &lerr) {
		writeJSON(w, http.StatusInternalServerError, envelope{
			Message: "An unexpected server error occurred.",
			Details: err.Error(),
		})
		return
	}
	switch lerr.Kind {
	case lead.KindValidation:
		writeError(w, http.StatusBadRequest, lerr.Error())
	case lead.KindExternal:
		writeJSON(w, http.StatusBadGateway, envelope{
			Message: orDefault(msgs.external, "An unexpected server error occurred."),
			Details: lerr.Error(),
		})
	case lead.KindStorage:
		writeJSON(w, http.StatusInternalServerError, envelope{
			Message: orDefault(msgs.storage, "An unexpected server error occurred."),
			Details: lerr.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, envelope{
			Message: "An unexpected server error occurred.",
			Details: lerr.Error(),
		})
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
