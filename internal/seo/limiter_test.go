package seo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewLimiterNonPositiveRPSIsUnlimited(t *testing.T) {
	t.Parallel()

	for _, rps := range []float64{0, -1} {
		l := NewLimiter("ahrefs", rps, 1)
		assert.Equal(t, rate.Inf, l.limiter.Limit(), "rps %v", rps)
	}
}

func TestUnlimitedLimiterDoesNotBlock(t *testing.T) {
	t.Parallel()

	l := NewLimiter("ahrefs", -1, 1)
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiterDefaultsBurst(t *testing.T) {
	t.Parallel()

	l := NewLimiter("similarweb", 5, 0)
	assert.Equal(t, 1, l.limiter.Burst())
}
