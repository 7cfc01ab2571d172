package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pagespeed-leads/internal/lead"
)

func ptr(f float64) *float64 { return &f }

func TestAnalyze_Created(t *testing.T) {
	t.Parallel()

	svc := new(mockLeadService)
	scores := lead.Scores{
		Performance:   ptr(0.91),
		Accessibility: ptr(0.82),
		BestPractices: ptr(0.73),
		SEO:           ptr(0.94),
	}
	svc.On("AnalyzeAndCreateLead", mock.Anything,
		"integration-test@example.com", "https://example-test.com", lead.StrategyMobile).
		Return(lead.Result{LeadID: 999, Scores: scores}, nil)

	rec, body := serve(t, newTestServer(svc).Handler(), http.MethodPost, "/api/v1/leads/analyze",
		[]byte(`{"email":"integration-test@example.com","websiteUrl":"https://example-test.com"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, body.Success)
	assert.JSONEq(t,
		`{"leadId":999,"scores":{"performance":0.91,"accessibility":0.82,"bestPractices":0.73,"seo":0.94}}`,
		string(body.Data))
	svc.AssertExpectations(t)
}

func TestAnalyze_NullScoresAreExplicit(t *testing.T) {
	t.Parallel()

	svc := new(mockLeadService)
	svc.On("AnalyzeAndCreateLead", mock.Anything, "a@b.co", "example.com", lead.StrategyDesktop).
		Return(lead.Result{LeadID: 7}, nil)

	rec, body := serve(t, newTestServer(svc).Handler(), http.MethodPost,
		"/api/v1/leads/analyze?strategy=desktop",
		[]byte(`{"email":"a@b.co","websiteUrl":"example.com"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t,
		`{"leadId":7,"scores":{"performance":null,"accessibility":null,"bestPractices":null,"seo":null}}`,
		string(body.Data))
}

func TestAnalyze_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		errors []string
	}{
		{
			name:   "missing email",
			body:   `{"websiteUrl":"https://x.io"}`,
			errors: []string{"Email is required."},
		},
		{
			name:   "bad email",
			body:   `{"email":"not-an-email","websiteUrl":"https://x.io"}`,
			errors: []string{"Invalid email format."},
		},
		{
			name:   "everything missing",
			body:   `{}`,
			errors: []string{"Email is required.", "Website URL is required."},
		},
		{
			name:   "bad email and missing url",
			body:   `{"email":"nope","websiteUrl":"  "}`,
			errors: []string{"Invalid email format.", "Website URL is required."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := new(mockLeadService)
			rec, body := serve(t, newTestServer(svc).Handler(), http.MethodPost,
				"/api/v1/leads/analyze", []byte(tt.body))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, body.Success)
			assert.Equal(t, "Validation failed", body.Message)
			assert.Equal(t, tt.errors, body.Errors)
			svc.AssertNotCalled(t, "AnalyzeAndCreateLead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAnalyze_BodyProblems(t *testing.T) {
	t.Parallel()

	h := newTestServer(new(mockLeadService)).Handler()

	rec, body := serve(t, h, http.MethodPost, "/api/v1/leads/analyze", []byte(""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing request body", body.Message)

	rec, body = serve(t, h, http.MethodPost, "/api/v1/leads/analyze", []byte("{invalid"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", body.Message)

	huge := `{"email":"a@b.co","websiteUrl":"` + strings.Repeat("a", maxRequestBytes) + `"}`
	rec, _ = serve(t, h, http.MethodPost, "/api/v1/leads/analyze", []byte(huge))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
		details string
	}{
		{
			name:    "validation",
			err:     lead.ValidationError("analyze_url", "Invalid URL format: ::"),
			status:  http.StatusBadRequest,
			message: "Invalid URL format: ::",
		},
		{
			name:    "external",
			err:     lead.ExternalError("analyze_url", errors.New("status 503"), "Failed to analyze URL 'https://x.io'"),
			status:  http.StatusBadGateway,
			message: "Failed to analyze the website due to an external service error.",
			details: "Failed to analyze URL 'https://x.io': status 503",
		},
		{
			name:    "storage",
			err:     lead.StorageError("analyze_and_create", errors.New("conn refused"), "Database error while saving lead"),
			status:  http.StatusInternalServerError,
			message: "Failed to save analysis results due to a database issue.",
			details: "Database error while saving lead: conn refused",
		},
		{
			name:    "unknown",
			err:     errors.New("mystery"),
			status:  http.StatusInternalServerError,
			message: "An unexpected server error occurred.",
			details: "mystery",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := new(mockLeadService)
			svc.On("AnalyzeAndCreateLead", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(lead.Result{}, tt.err)

			rec, body := serve(t, newTestServer(svc).Handler(), http.MethodPost, "/api/v1/leads/analyze",
				[]byte(`{"email":"a@b.co","websiteUrl":"https://x.io"}`))

			require.Equal(t, tt.status, rec.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.details, body.Details)
		})
	}
}

func TestContinue(t *testing.T) {
	t.Parallel()

	svc := new(mockLeadService)
	svc.On("RequestContinue", mock.Anything, int64(123)).Return(true, nil)
	svc.On("RequestContinue", mock.Anything, int64(404)).Return(false, nil)
	svc.On("RequestContinue", mock.Anything, int64(500)).
		Return(false, lead.StorageError("request_continue", errors.New("boom"), "Failed to update lead status for ID 500"))
	h := newTestServer(svc).Handler()

	for range 2 {
		rec, body := serve(t, h, http.MethodPatch, "/api/v1/leads/123/continue", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, body.Success)
		assert.Equal(t, "Lead marked for continuation.", body.Message)
	}

	rec, body := serve(t, h, http.MethodPatch, "/api/v1/leads/404/continue", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "Lead not found.", body.Message)

	rec, body = serve(t, h, http.MethodPatch, "/api/v1/leads/500/continue", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to update lead status.", body.Message)
	assert.Contains(t, body.Details, "Failed to update lead status for ID 500")

	for _, bad := range []string{"invalid-id", "0", "-4", "1.5"} {
		rec, body = serve(t, h, http.MethodPatch, "/api/v1/leads/"+bad+"/continue", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Contains(t, body.Message, "Invalid")
	}
	svc.AssertNumberOfCalls(t, "RequestContinue", 4)
}

func TestGetLead(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := new(mockLeadService)
	svc.On("GetLead", mock.Anything, int64(1)).Return(&lead.Lead{
		ID:                1,
		Email:             "a@b.co",
		WebsiteURL:        "https://x.io",
		PerformanceScore:  ptr(0.5),
		ContinueRequested: true,
		SubmittedAt:       submitted,
	}, nil)
	svc.On("GetLead", mock.Anything, int64(2)).Return(nil, nil)
	h := newTestServer(svc).Handler()

	rec, body := serve(t, h, http.MethodGet, "/api/v1/leads/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got lead.Lead
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Equal(t, "a@b.co", got.Email)
	assert.True(t, got.ContinueRequested)
	assert.Nil(t, got.SEOScore)
	assert.True(t, submitted.Equal(got.SubmittedAt))

	rec, body = serve(t, h, http.MethodGet, "/api/v1/leads/2", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Lead not found.", body.Message)
}

func TestListLeads(t *testing.T) {
	t.Parallel()

	pending := true
	svc := new(mockLeadService)
	svc.On("ListLeads", mock.Anything, lead.ListFilter{Limit: defaultListLimit}).
		Return([]lead.Lead{{ID: 2}, {ID: 1}}, nil)
	svc.On("ListLeads", mock.Anything, lead.ListFilter{ContinueRequested: &pending, Limit: maxListLimit, Offset: 10}).
		Return([]lead.Lead{}, nil)
	h := newTestServer(svc).Handler()

	rec, body := serve(t, h, http.MethodGet, "/api/v1/leads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []lead.Lead
	require.NoError(t, json.Unmarshal(body.Data, &got))
	require.Len(t, got, 2)

	rec, _ = serve(t, h, http.MethodGet, "/api/v1/leads?continue=true&limit=9999&offset=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, q := range []string{"limit=0", "limit=x", "offset=-1", "continue=maybe"} {
		rec, body = serve(t, h, http.MethodGet, "/api/v1/leads?"+q, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, body.Message, "Invalid")
	}
	svc.AssertExpectations(t)
}
