package mongo

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds the connection retry loop. It is computed once from
// configuration and reused across all acquisition attempts in a process.
type RetryPolicy struct {
	// MaxAttempts is the total number of connection attempts, including the
	// first one.
	MaxAttempts int
	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// JitterRatio randomizes each delay by ±ratio to spread retries from
	// concurrent cold starts.
	JitterRatio float64
}

// DefaultRetryPolicy returns conservative defaults: four attempts starting
// at 200ms, capped at 5s, with 20% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		JitterRatio: 0.2,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.JitterRatio < 0 || p.JitterRatio > 1 {
		p.JitterRatio = def.JitterRatio
	}
	return p
}

// NextDelay returns the backoff delay before attempt+1, where attempt starts
// at 1 for the first failed attempt. The delay grows as
// min(BaseDelay * 2^(attempt-1), MaxDelay); jitter is applied before the
// cap, so once delays saturate at MaxDelay they stay there.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	p = p.withDefaults()

	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.JitterRatio > 0 {
		factor := 1 + (rand.Float64()*2-1)*p.JitterRatio
		delay *= factor
	}
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}
