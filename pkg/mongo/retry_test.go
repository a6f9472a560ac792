package mongo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/subtrackapp/subtrack/pkg/mongo"
)

func TestNextDelayExponentialGrowth(t *testing.T) {
	t.Parallel()

	policy := mongo.RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		JitterRatio: 0,
	}

	assert.Equal(t, 100*time.Millisecond, policy.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, policy.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, policy.NextDelay(3))
	assert.Equal(t, 800*time.Millisecond, policy.NextDelay(4))
}

func TestNextDelayCapped(t *testing.T) {
	t.Parallel()

	policy := mongo.RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    300 * time.Millisecond,
		JitterRatio: 0,
	}

	for attempt := 3; attempt <= 10; attempt++ {
		assert.Equal(t, 300*time.Millisecond, policy.NextDelay(attempt), "attempt %d", attempt)
	}
}

func TestNextDelayZeroForNonPositiveAttempt(t *testing.T) {
	t.Parallel()

	policy := mongo.DefaultRetryPolicy()
	assert.Equal(t, time.Duration(0), policy.NextDelay(0))
	assert.Equal(t, time.Duration(0), policy.NextDelay(-3))
}

func TestNextDelayJitterBounds(t *testing.T) {
	t.Parallel()

	policy := mongo.RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		JitterRatio: 0.2,
	}

	for range 200 {
		d := policy.NextDelay(2)
		assert.GreaterOrEqual(t, d, 160*time.Millisecond)
		assert.LessOrEqual(t, d, 240*time.Millisecond)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	t.Parallel()

	policy := mongo.DefaultRetryPolicy()
	assert.Equal(t, 4, policy.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 5*time.Second, policy.MaxDelay)
	assert.Equal(t, 0.2, policy.JitterRatio)
}
