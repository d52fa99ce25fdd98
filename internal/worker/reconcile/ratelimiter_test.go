package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEnforcesDelay(t *testing.T) {
	t.Parallel()

	limiter := newMemberRateLimiter(50*time.Millisecond, 0)

	limiter.wait(t.Context())

	start := time.Now()
	limiter.wait(t.Context())
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestRateLimiterJitterBounds(t *testing.T) {
	t.Parallel()

	limiter := newMemberRateLimiter(50*time.Millisecond, 10*time.Millisecond)

	limiter.wait(t.Context())

	for range 5 {
		start := time.Now()
		limiter.wait(t.Context())
		elapsed := time.Since(start)

		// Delay stays within base interval plus or minus jitter, allowing
		// for scheduler slack on the upper bound.
		assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
		assert.Less(t, elapsed, 200*time.Millisecond)
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	t.Parallel()

	limiter := newMemberRateLimiter(time.Hour, 0)
	limiter.wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	limiter.wait(ctx)

	assert.Less(t, time.Since(start), time.Second)
}
