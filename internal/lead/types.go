package lead

import (
	"encoding/json"
	"strings"
	"time"
)

// Strategy selects the device profile PageSpeed emulates.
type Strategy string

// Supported analysis strategies.
const (
	StrategyMobile  Strategy = "MOBILE"
	StrategyDesktop Strategy = "DESKTOP"
)

// ParseStrategy maps a case-insensitive query value onto a Strategy. Anything
// other than "desktop" falls back to mobile.
func ParseStrategy(raw string) Strategy {
	if strings.EqualFold(strings.TrimSpace(raw), string(StrategyDesktop)) {
		return StrategyDesktop
	}
	return StrategyMobile
}

// Scores is the four-category result vector. Each value is in [0,1]; nil means
// the category was unavailable.
type Scores struct {
	Performance   *float64 `json:"performance"`
	Accessibility *float64 `json:"accessibility"`
	BestPractices *float64 `json:"bestPractices"`
	SEO           *float64 `json:"seo"`
}

// LeadData is everything needed to insert a lead row.
type LeadData struct {
	Email        string
	WebsiteURL   string
	Scores       Scores
	AnalysisData json.RawMessage
}

// Lead is a persisted submission together with its analysis outcome.
type Lead struct {
	ID                 int64           `json:"id"`
	Email              string          `json:"email"`
	WebsiteURL         string          `json:"websiteUrl"`
	PerformanceScore   *float64        `json:"performanceScore"`
	AccessibilityScore *float64        `json:"accessibilityScore"`
	BestPracticesScore *float64        `json:"bestPracticesScore"`
	SEOScore           *float64        `json:"seoScore"`
	AnalysisData       json.RawMessage `json:"analysisData"`
	ContinueRequested  bool            `json:"continueRequested"`
	SubmittedAt        time.Time       `json:"submittedAt"`
}

// Scores returns the lead's score columns as a Scores vector.
func (l Lead) Scores() Scores {
	return Scores{
		Performance:   l.PerformanceScore,
		Accessibility: l.AccessibilityScore,
		BestPractices: l.BestPracticesScore,
		SEO:           l.SEOScore,
	}
}

// Analysis is a successful response from the analysis client.
type Analysis struct {
	Scores  Scores
	Payload json.RawMessage
}

// Result is returned to callers after a lead has been created.
type Result struct {
	LeadID int64  `json:"leadId"`
	Scores Scores `json:"scores"`
}

// ListFilter narrows and pages a lead listing. Newest leads come first.
type ListFilter struct {
	ContinueRequested *bool
	Limit             int
	Offset            int
}
