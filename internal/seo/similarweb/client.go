// Package similarweb implements the SimilarWeb REST API client used for
// traffic, engagement, and site category lookups.
package similarweb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/seo"
)

const (
	defaultBaseURL = "https://api.similarweb.com"
	providerName   = "similarweb"

	// SimilarWeb quotas are monthly hit counts; 5 rps is well under the
	// burst ceiling they document for REST keys.
	defaultRPS   = 5.0
	defaultBurst = 5
)

// Config controls client construction.
type Config struct {
	APIKey  string
	BaseURL string  // override for tests; defaults to the public API
	RPS     float64 // requests per second against the provider
	Burst   int
	Timeout time.Duration
}

// Client calls the SimilarWeb website endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *seo.Limiter
	retry      *seo.ExponentialRetryPolicy
	logger     *zap.Logger
}

// New builds a Client from config.
func New(cfg Config, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rps := cfg.RPS
	if rps == 0 {
		rps = defaultRPS
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = defaultBurst
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    seo.NewLimiter(providerName, rps, burst),
		retry:      seo.NewExponentialRetryPolicy(),
		logger:     logger,
	}
}

type visitsResponse struct {
	Visits []struct {
		Date   string  `json:"date"`
		Visits float64 `json:"visits"`
	} `json:"visits"`
}

type engagementResponse struct {
	BounceRate       float64 `json:"bounce_rate"`
	PagesPerVisit    float64 `json:"pages_per_visit"`
	AvgVisitDuration float64 `json:"average_visit_duration"`
}

type categoryResponse struct {
	Category string `json:"category"`
}

// Traffic fetches the SimilarWeb view of a domain: latest monthly visits,
// engagement figures, and the site category.
func (c *Client) Traffic(ctx context.Context, domain string) (seo.TrafficMetrics, error) {
	var visits visitsResponse
	path := fmt.Sprintf("/v1/website/%s/total-traffic-and-engagement/visits", url.PathEscape(domain))
	if err := c.get(ctx, path, &visits); err != nil {
		return seo.TrafficMetrics{}, fmt.Errorf("fetch visits for %q: %w", domain, err)
	}

	var engagement engagementResponse
	path = fmt.Sprintf("/v1/website/%s/total-traffic-and-engagement/engagement", url.PathEscape(domain))
	if err := c.get(ctx, path, &engagement); err != nil {
		return seo.TrafficMetrics{}, fmt.Errorf("fetch engagement for %q: %w", domain, err)
	}

	category, err := c.Category(ctx, domain)
	if err != nil {
		return seo.TrafficMetrics{}, err
	}

	m := seo.TrafficMetrics{
		BounceRate:       engagement.BounceRate,
		PagesPerVisit:    engagement.PagesPerVisit,
		AvgVisitDuration: engagement.AvgVisitDuration,
		Category:         category,
	}
	// The visits series is months in ascending order; the last entry is the
	// most recent complete month.
	if n := len(visits.Visits); n > 0 {
		m.MonthlyVisits = visits.Visits[n-1].Visits
	}
	return m, nil
}

// Category fetches the SimilarWeb category for a single domain. Batch
// analysis calls this directly, one domain at a time.
func (c *Client) Category(ctx context.Context, domain string) (string, error) {
	var resp categoryResponse
	path := fmt.Sprintf("/v1/website/%s/category/category", url.PathEscape(domain))
	if err := c.get(ctx, path, &resp); err != nil {
		return "", fmt.Errorf("fetch category for %q: %w", domain, err)
	}
	return resp.Category, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("granularity", "monthly")
	q.Set("main_domain_only", "false")

	endpoint := c.baseURL + path + "?" + q.Encode()
	return seo.GetJSON(ctx, c.httpClient, c.limiter, c.retry, providerName, endpoint, nil, out)
}
