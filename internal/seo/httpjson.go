package seo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rankwatch/seo-checker/internal/metrics"
)

// maxErrorBodyBytes caps how much of an error response lands in the error
// message and logs.
const maxErrorBodyBytes = 2048

// GetJSON performs a rate-limited, retried GET against a provider endpoint
// and decodes the 2xx response body into out.
//
// The provider name labels metrics and error messages. Non-2xx responses are
// surfaced as *APIError; the retry policy decides which of those (and which
// transport errors) are worth another attempt.
func GetJSON(
	ctx context.Context,
	client *http.Client,
	limiter *Limiter,
	retry *ExponentialRetryPolicy,
	provider string,
	url string,
	header http.Header,
	out any,
) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(retry.Backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s request canceled: %w", provider, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = getJSONOnce(ctx, client, limiter, provider, url, header, out)
		if lastErr == nil {
			metrics.ObserveProviderRequest(provider, "success")
			return nil
		}
		if !retry.ShouldRetry(lastErr, attempt+1) {
			metrics.ObserveProviderRequest(provider, "failure")
			return lastErr
		}
		metrics.ObserveProviderRequest(provider, "retry")
	}
}

func getJSONOnce(
	ctx context.Context,
	client *http.Client,
	limiter *Limiter,
	provider string,
	url string,
	header http.Header,
	out any,
) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", provider, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &APIError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}
