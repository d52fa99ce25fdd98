package reconcile

import (
	"context"
	"math/rand"
	"time"
)

// memberRateLimiter enforces delays between per-member platform requests
// with random jitter so ticks do not hammer the API in lockstep.
type memberRateLimiter struct {
	lastRequest time.Time
	minInterval time.Duration
	maxJitter   time.Duration
	rng         *rand.Rand
}

// newMemberRateLimiter creates a rate limiter with base interval and jitter.
// For example, baseInterval=250ms and jitter=50ms results in delays between
// 200ms and 300ms.
func newMemberRateLimiter(baseInterval, jitter time.Duration) *memberRateLimiter {
	return &memberRateLimiter{
		lastRequest: time.Now().Add(-baseInterval),
		minInterval: baseInterval,
		maxJitter:   jitter,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// wait blocks until enough time has passed since the last request, or the
// context is cancelled.
func (r *memberRateLimiter) wait(ctx context.Context) {
	elapsed := time.Since(r.lastRequest)

	jitterOffset := time.Duration(0)
	if r.maxJitter > 0 {
		jitterOffset = time.Duration(r.rng.Int63n(int64(r.maxJitter*2))) - r.maxJitter
	}

	targetDelay := r.minInterval + jitterOffset

	if elapsed < targetDelay {
		timer := time.NewTimer(targetDelay - elapsed)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}

	r.lastRequest = time.Now()
}
