package ahrefs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/seo"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(Config{
		Token:   "test-token",
		BaseURL: srv.URL,
		RPS:     -1, // negative disables throttling; zero would take the default
	}, zap.NewNop())
	return client, srv
}

func TestSiteMetricsMergesEndpoints(t *testing.T) {
	var sawAuth atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer test-token" {
			sawAuth.Store(true)
		}
		require.Equal(t, "example.com", r.URL.Query().Get("target"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v3/site-explorer/domain-rating":
			_, _ = w.Write([]byte(`{"domain_rating":{"domain_rating":71.5,"ahrefs_rank":1420}}`))
		case "/v3/site-explorer/metrics":
			_, _ = w.Write([]byte(`{"metrics":{"organic_traffic":52000,"organic_keywords":3100,"backlinks":88000,"refdomains":950}}`))
		default:
			http.NotFound(w, r)
		}
	})

	client, _ := newTestClient(t, handler)

	got, err := client.SiteMetrics(context.Background(), "example.com")
	require.NoError(t, err)

	assert.True(t, sawAuth.Load(), "expected bearer token on requests")
	assert.Equal(t, seo.TargetMetrics{
		DomainRating:    71.5,
		AhrefsRank:      1420,
		OrganicTraffic:  52000,
		OrganicKeywords: 3100,
		Backlinks:       88000,
		RefDomains:      950,
	}, got)
}

func TestSiteMetricsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v3/site-explorer/domain-rating" && calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v3/site-explorer/domain-rating":
			_, _ = w.Write([]byte(`{"domain_rating":{"domain_rating":10,"ahrefs_rank":99}}`))
		case "/v3/site-explorer/metrics":
			_, _ = w.Write([]byte(`{"metrics":{}}`))
		}
	})

	client, _ := newTestClient(t, handler)

	got, err := client.SiteMetrics(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, float64(10), got.DomainRating)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestSiteMetricsSurfacesClientErrors(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, handler)

	_, err := client.SiteMetrics(context.Background(), "example.com")
	require.Error(t, err)

	var apiErr *seo.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "ahrefs", apiErr.Provider)
}

func TestBacklinksParsesAndTagsDirection(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/site-explorer/all-backlinks", r.URL.Path)
		require.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"backlinks":[
			{"url_from":"https://blog.example.org/post","url_to":"https://example.com/","domain_from":"blog.example.org","first_seen":"2024-05-01T12:00:00Z"},
			{"url_from":"https://old.example.net/","url_to":"https://example.com/","domain_from":"old.example.net","first_seen":"2019-03-11"},
			{"url_from":"https://bad.example/","url_to":"https://example.com/","domain_from":"bad.example","first_seen":"not-a-date"}
		]}`))
	})

	client, _ := newTestClient(t, handler)

	links, err := client.Backlinks(context.Background(), "example.com", 25)
	require.NoError(t, err)
	require.Len(t, links, 2, "unparseable first_seen rows are skipped")

	assert.Equal(t, "blog.example.org", links[0].SourceDomain)
	assert.Equal(t, seo.LinkDirectionIn, links[0].Direction)
	assert.Equal(t, time.Date(2019, 3, 11, 0, 0, 0, 0, time.UTC), links[1].FirstSeen)
}

func TestSiteMetricsHonorsContextCancellation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		http.Error(w, "too slow", http.StatusServiceUnavailable)
	})

	client, _ := newTestClient(t, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SiteMetrics(ctx, "example.com")
	require.Error(t, err)
	assert.True(t,
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
		"expected a context error, got %v", err)
}
