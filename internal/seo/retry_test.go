package seo

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRetryNilError(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()
	assert.False(t, p.ShouldRetry(nil, 1))
}

func TestShouldRetryExhaustedAttempts(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()
	assert.False(t, p.ShouldRetry(errors.New("boom"), 3))
}

func TestShouldRetryContextErrors(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()
	assert.False(t, p.ShouldRetry(context.Canceled, 1))
	assert.False(t, p.ShouldRetry(context.DeadlineExceeded, 1))
}

func TestShouldRetryAPIErrors(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()

	assert.True(t, p.ShouldRetry(&APIError{Provider: "ahrefs", StatusCode: http.StatusTooManyRequests}, 1))
	assert.True(t, p.ShouldRetry(&APIError{Provider: "ahrefs", StatusCode: http.StatusBadGateway}, 1))
	assert.False(t, p.ShouldRetry(&APIError{Provider: "ahrefs", StatusCode: http.StatusNotFound}, 1))
	assert.False(t, p.ShouldRetry(&APIError{Provider: "ahrefs", StatusCode: http.StatusUnauthorized}, 1))
}

func TestShouldRetryGenericError(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()
	assert.True(t, p.ShouldRetry(errors.New("connection reset"), 1))
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()

	for attempt := 0; attempt < 8; attempt++ {
		d := p.Backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 5*time.Second)
	}
}
