// Package pagespeed calls the Google PageSpeed Insights v5 API and maps its
// Lighthouse categories onto lead.Scores.
package pagespeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagespeed-leads/internal/lead"
	"github.com/JakeFAU/pagespeed-leads/internal/metrics"
	"github.com/JakeFAU/pagespeed-leads/internal/validate"
)

// DefaultBaseURL is the public runPagespeed endpoint.
const DefaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Categories requested on every call.
var categories = []string{"PERFORMANCE", "ACCESSIBILITY", "BEST_PRACTICES", "SEO"}

// Config configures the API client.
type Config struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single call. Zero leaves the transport default in place.
	Timeout time.Duration
}

// Client runs PageSpeed analyses.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a Client. A nil httpClient is replaced by one honoring
// cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		logger.Warn("PageSpeed API key is not set; analysis will be skipped")
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
	}
}

type apiResponse struct {
	LighthouseResult *struct {
		Categories map[string]category `json:"categories"`
	} `json:"lighthouseResult"`
	Error *apiError `json:"error"`
}

type category struct {
	Score *float64 `json:"score"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NormalizeURL trims raw and prefixes https:// when it carries no http(s) scheme.
func NormalizeURL(raw string) string {
	target := strings.TrimSpace(raw)
	lower := strings.ToLower(target)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		target = "https://" + target
	}
	return target
}

// AnalyzeURL analyzes rawURL with the given strategy. Without an API key it
// returns nil scores and an error payload instead of calling the API. Every
// API failure is returned as a KindExternal *lead.Error naming the target URL.
func (c *Client) AnalyzeURL(ctx context.Context, rawURL string, strategy lead.Strategy) (lead.Analysis, error) {
	if strings.TrimSpace(rawURL) == "" {
		return lead.Analysis{}, lead.ValidationError("analyze_url", "URL is required for PageSpeed analysis.")
	}
	target := NormalizeURL(rawURL)
	if !validate.IsValidURL(target) {
		return lead.Analysis{}, lead.ValidationError("analyze_url", "Invalid URL format: %s", rawURL)
	}
	if strategy == "" {
		strategy = lead.StrategyMobile
	}

	if c.apiKey == "" {
		metrics.ObservePageSpeedRequest(string(strategy), "skipped", 0)
		return lead.Analysis{Payload: lead.ErrorPayload(0, "API Key not configured")}, nil
	}

	start := time.Now()
	analysis, err := c.run(ctx, target, strategy)
	outcome := "success"
	if err != nil {
		outcome = "error"
		c.logger.Error("pagespeed analysis failed",
			zap.String("url", target),
			zap.String("strategy", string(strategy)),
			zap.Error(err),
		)
		err = lead.ExternalError("analyze_url", err, "Failed to analyze URL '%s'", target)
	}
	metrics.ObservePageSpeedRequest(string(strategy), outcome, time.Since(start))
	return analysis, err
}

func (c *Client) run(ctx context.Context, target string, strategy lead.Strategy) (lead.Analysis, error) {
	params := url.Values{}
	params.Set("url", target)
	params.Set("key", c.apiKey)
	params.Set("strategy", string(strategy))
	for _, cat := range categories {
		params.Add("category", cat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return lead.Analysis{}, fmt.Errorf("build request: %w", err)
	}
	c.logger.Info("requesting pagespeed analysis",
		zap.String("url", target),
		zap.String("strategy", string(strategy)),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return lead.Analysis{}, fmt.Errorf("PageSpeed API request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	// The body is read before the status check so error responses keep their detail.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return lead.Analysis{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("pagespeed API returned non-2xx",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 512)),
		)
		return lead.Analysis{}, fmt.Errorf("PageSpeed API request failed with status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return lead.Analysis{}, fmt.Errorf("decode PageSpeed API response: %w", err)
	}
	if parsed.Error != nil {
		return lead.Analysis{}, fmt.Errorf("PageSpeed analysis error: %s", parsed.Error.Message)
	}
	if parsed.LighthouseResult == nil || parsed.LighthouseResult.Categories == nil {
		return lead.Analysis{}, errors.New("invalid PageSpeed API response structure: missing lighthouseResult.categories")
	}

	cats := parsed.LighthouseResult.Categories
	scores := lead.Scores{
		Performance:   cats["performance"].Score,
		Accessibility: cats["accessibility"].Score,
		BestPractices: cats["best-practices"].Score,
		SEO:           cats["seo"].Score,
	}
	c.logger.Info("pagespeed analysis complete", zap.String("url", target))
	return lead.Analysis{Scores: scores, Payload: json.RawMessage(body)}, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
