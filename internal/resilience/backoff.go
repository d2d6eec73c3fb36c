package resilience

import (
	"math"
	"math/rand"
	"time"
)

// Backoff is the delay schedule between tries of a tier.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration // zero means no cap
	Factor  float64       // values <= 0 mean 1 (fixed delay)
	Jitter  float64       // fraction of the delay, 0 to 1
}

// FixedDelay waits d between every try.
func FixedDelay(d time.Duration) Backoff {
	return Backoff{Initial: d, Max: d, Factor: 1}
}

// Delay returns the wait after the n-th failed try (0-based).
func (b Backoff) Delay(n int) time.Duration {
	factor := b.Factor
	if factor <= 0 {
		factor = 1
	}

	d := float64(b.Initial) * math.Pow(factor, float64(n))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		spread := d * b.Jitter
		d += spread * (2*rand.Float64() - 1)
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
