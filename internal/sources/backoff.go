package sources

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff returns base*2^attempt capped at capDelay, plus up to 10% jitter.
// attempt=0 => base, attempt=1 => 2*base, ...
func ExponentialBackoff(attempt int, base, capDelay time.Duration) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if capDelay < base {
		capDelay = base
	}

	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	// small jitter to avoid every source retrying in lockstep
	if j := int64(delay / 10); j > 0 {
		delay += time.Duration(rand.Int63n(j))
	}
	return delay
}
