// Package ahrefs implements the Ahrefs v3 API client used for domain rating,
// site metrics, and backlink retrieval.
package ahrefs

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
	defaultBaseURL = "https://api.ahrefs.com"
	providerName   = "ahrefs"

	// Ahrefs meters API units aggressively; one request per second keeps a
	// standard subscription out of 429 territory.
	defaultRPS   = 1.0
	defaultBurst = 2
)

// Config controls client construction.
type Config struct {
	Token   string
	BaseURL string  // override for tests; defaults to the public API
	RPS     float64 // requests per second against the provider
	Burst   int
	Timeout time.Duration
}

// Client calls the Ahrefs v3 site-explorer endpoints.
type Client struct {
	baseURL    string
	token      string
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
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    seo.NewLimiter(providerName, rps, burst),
		retry:      seo.NewExponentialRetryPolicy(),
		logger:     logger,
	}
}

type domainRatingResponse struct {
	DomainRating struct {
		DomainRating float64 `json:"domain_rating"`
		AhrefsRank   int64   `json:"ahrefs_rank"`
	} `json:"domain_rating"`
}

type siteMetricsResponse struct {
	Metrics struct {
		OrganicTraffic  int64 `json:"organic_traffic"`
		OrganicKeywords int64 `json:"organic_keywords"`
		Backlinks       int64 `json:"backlinks"`
		RefDomains      int64 `json:"refdomains"`
	} `json:"metrics"`
}

type backlinksResponse struct {
	Backlinks []struct {
		URLFrom    string `json:"url_from"`
		URLTo      string `json:"url_to"`
		DomainFrom string `json:"domain_from"`
		FirstSeen  string `json:"first_seen"`
	} `json:"backlinks"`
}

// SiteMetrics fetches the full Ahrefs view of a target: domain rating plus
// organic and backlink counts. Two endpoint calls behind one method.
func (c *Client) SiteMetrics(ctx context.Context, target string) (seo.TargetMetrics, error) {
	var rating domainRatingResponse
	if err := c.get(ctx, "/v3/site-explorer/domain-rating", target, nil, &rating); err != nil {
		return seo.TargetMetrics{}, fmt.Errorf("fetch domain rating for %q: %w", target, err)
	}

	var m siteMetricsResponse
	if err := c.get(ctx, "/v3/site-explorer/metrics", target, nil, &m); err != nil {
		return seo.TargetMetrics{}, fmt.Errorf("fetch site metrics for %q: %w", target, err)
	}

	return seo.TargetMetrics{
		DomainRating:    rating.DomainRating.DomainRating,
		AhrefsRank:      rating.DomainRating.AhrefsRank,
		OrganicTraffic:  m.Metrics.OrganicTraffic,
		OrganicKeywords: m.Metrics.OrganicKeywords,
		Backlinks:       m.Metrics.Backlinks,
		RefDomains:      m.Metrics.RefDomains,
	}, nil
}

// Backlinks fetches up to limit inbound backlinks for the target.
func (c *Client) Backlinks(ctx context.Context, target string, limit int) ([]seo.Backlink, error) {
	if limit <= 0 {
		limit = 100
	}
	extra := url.Values{}
	extra.Set("limit", fmt.Sprintf("%d", limit))

	var resp backlinksResponse
	if err := c.get(ctx, "/v3/site-explorer/all-backlinks", target, extra, &resp); err != nil {
		return nil, fmt.Errorf("fetch backlinks for %q: %w", target, err)
	}

	links := make([]seo.Backlink, 0, len(resp.Backlinks))
	for _, b := range resp.Backlinks {
		firstSeen, err := time.Parse(time.RFC3339, b.FirstSeen)
		if err != nil {
			// Ahrefs occasionally returns date-only values for old links.
			firstSeen, err = time.Parse("2006-01-02", b.FirstSeen)
			if err != nil {
				c.logger.Warn("skipping backlink with unparseable first_seen",
					zap.String("first_seen", b.FirstSeen),
					zap.String("url_from", b.URLFrom),
				)
				continue
			}
		}
		links = append(links, seo.Backlink{
			SourceURL:    b.URLFrom,
			TargetURL:    b.URLTo,
			SourceDomain: b.DomainFrom,
			Direction:    seo.LinkDirectionIn,
			FirstSeen:    firstSeen.UTC(),
		})
	}
	return links, nil
}

func (c *Client) get(ctx context.Context, path, target string, extra url.Values, out any) error {
	q := url.Values{}
	q.Set("target", target)
	q.Set("mode", "domain")
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	endpoint := c.baseURL + path + "?" + q.Encode()
	return seo.GetJSON(ctx, c.httpClient, c.limiter, c.retry, providerName, endpoint, header, out)
}
