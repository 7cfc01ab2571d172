package lead

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagespeed-leads/internal/metrics"
)

// Analyzer runs a page-performance analysis against a URL.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string, strategy Strategy) (Analysis, error)
}

// Store persists and reads leads.
type Store interface {
	CreateLead(ctx context.Context, data LeadData) (Lead, error)
	UpdateContinueRequested(ctx context.Context, id int64) (bool, error)
	FindLeadByID(ctx context.Context, id int64) (*Lead, error)
	ListLeads(ctx context.Context, filter ListFilter) ([]Lead, error)
}

// Service runs the analyze-then-persist pipeline and the continuation flag
// update.
type Service struct {
	analyzer Analyzer
	store    Store
	logger   *zap.Logger
}

// NewService wires the analyzer, store, and logger.
func NewService(analyzer Analyzer, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
	}
}

// AnalyzeAndCreateLead analyzes websiteURL and stores a lead for email. A failed
// analysis does not abort the call: the lead is stored with nil scores and the
// failure recorded in its analysis data. A storage failure is returned as a
// KindStorage error.
func (s *Service) AnalyzeAndCreateLead(
	ctx context.Context,
	email, websiteURL string,
	strategy Strategy,
) (Result, error) {
	email = strings.TrimSpace(email)
	websiteURL = strings.TrimSpace(websiteURL)
	if email == "" || websiteURL == "" {
		return Result{}, ValidationError("analyze_and_create", "Email and Website URL are required.")
	}

	outcome := s.analyze(ctx, websiteURL, strategy)
	return s.persist(ctx, email, websiteURL, outcome)
}

func (s *Service) analyze(ctx context.Context, websiteURL string, strategy Strategy) AnalysisOutcome {
	s.logger.Debug("starting analysis",
		zap.String("url", websiteURL),
		zap.String("strategy", string(strategy)),
	)
	analysis, err := s.analyzer.AnalyzeURL(ctx, websiteURL, strategy)
	if err != nil {
		s.logger.Warn("analysis failed, storing lead without scores",
			zap.String("url", websiteURL),
			zap.Error(err),
		)
		return Failed(err)
	}
	return Succeeded(analysis)
}

func (s *Service) persist(ctx context.Context, email, websiteURL string, outcome AnalysisOutcome) (Result, error) {
	data := LeadData{
		Email:        email,
		WebsiteURL:   websiteURL,
		Scores:       outcome.Scores,
		AnalysisData: outcome.Payload,
	}
	created, err := s.store.CreateLead(ctx, data)
	if err != nil {
		s.logger.Error("failed to save lead",
			zap.String("email", email),
			zap.String("url", websiteURL),
			zap.Error(err),
		)
		return Result{}, StorageError("analyze_and_create", err, "Database error while saving lead")
	}
	metrics.ObserveLeadAnalysis(outcome.OK())
	s.logger.Info("lead created",
		zap.Int64("lead_id", created.ID),
		zap.Bool("analysis_ok", outcome.OK()),
	)
	return Result{LeadID: created.ID, Scores: created.Scores()}, nil
}

// RequestContinue sets the continuation flag on lead id. It returns false when
// no lead has that id.
func (s *Service) RequestContinue(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, ValidationError("request_continue",
			"Invalid Lead ID provided: %d. Must be a positive number.", id)
	}
	updated, err := s.store.UpdateContinueRequested(ctx, id)
	if err != nil {
		s.logger.Error("continue request failed", zap.Int64("lead_id", id), zap.Error(err))
		metrics.ObserveContinueRequest("error")
		return false, StorageError("request_continue", err, "Failed to update lead status for ID %d", id)
	}
	if !updated {
		s.logger.Warn("continue requested for unknown lead", zap.Int64("lead_id", id))
		metrics.ObserveContinueRequest("not_found")
		return false, nil
	}
	metrics.ObserveContinueRequest("updated")
	return true, nil
}

// GetLead loads a lead by id. It returns nil, nil when the lead does not exist.
func (s *Service) GetLead(ctx context.Context, id int64) (*Lead, error) {
	if id <= 0 {
		return nil, ValidationError("get_lead", "Invalid Lead ID provided: %d. Must be a positive number.", id)
	}
	found, err := s.store.FindLeadByID(ctx, id)
	if err != nil {
		return nil, StorageError("get_lead", err, "Failed to load lead %d", id)
	}
	return found, nil
}

// ListLeads returns a page of leads, newest first.
func (s *Service) ListLeads(ctx context.Context, filter ListFilter) ([]Lead, error) {
	if filter.Limit <= 0 || filter.Offset < 0 {
		return nil, ValidationError("list_leads", "Invalid pagination: limit must be positive and offset non-negative.")
	}
	leads, err := s.store.ListLeads(ctx, filter)
	if err != nil {
		return nil, StorageError("list_leads", err, "Failed to list leads")
	}
	return leads, nil
}
