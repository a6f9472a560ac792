package mongo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/subtrackapp/subtrack/pkg/environment"
	"github.com/subtrackapp/subtrack/pkg/mongo"
)

func TestPoolTierDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     environment.Environment
		maxPool uint64
		minPool uint64
		tls     bool
	}{
		{name: "production", env: environment.Production, maxPool: 50, minPool: 5, tls: true},
		{name: "staging", env: environment.Staging, maxPool: 25, minPool: 2, tls: true},
		{name: "development", env: environment.Development, maxPool: 10, minPool: 1, tls: false},
		{name: "test", env: environment.Test, maxPool: 5, minPool: 1, tls: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool := mongo.Config{}.Pool(tt.env)
			assert.Equal(t, tt.maxPool, pool.MaxPoolSize)
			assert.Equal(t, tt.minPool, pool.MinPoolSize)
			assert.Equal(t, tt.tls, pool.TLSEnabled)
			assert.True(t, pool.RetryWrites)
			assert.Equal(t, "majority", pool.WriteConcern)
			assert.LessOrEqual(t, pool.MinPoolSize, pool.MaxPoolSize)
		})
	}
}

func TestPoolTestTierFailsFast(t *testing.T) {
	t.Parallel()

	pool := mongo.Config{}.Pool(environment.Test)
	assert.Equal(t, 2*time.Second, pool.ConnectTimeout)
	assert.Equal(t, 2*time.Second, pool.ServerSelectionTimeout)
}

func TestPoolOverrides(t *testing.T) {
	t.Parallel()

	cfg := mongo.Config{
		MaxPoolSize:    100,
		MinPoolSize:    20,
		ConnectTimeout: 3 * time.Second,
	}
	pool := cfg.Pool(environment.Development)

	assert.Equal(t, uint64(100), pool.MaxPoolSize)
	assert.Equal(t, uint64(20), pool.MinPoolSize)
	assert.Equal(t, 3*time.Second, pool.ConnectTimeout)
}

func TestPoolClampsMinToMax(t *testing.T) {
	t.Parallel()

	pool := mongo.Config{MinPoolSize: 40, MaxPoolSize: 10}.Pool(environment.Development)
	assert.Equal(t, uint64(10), pool.MaxPoolSize)
	assert.Equal(t, uint64(10), pool.MinPoolSize)
}

func TestPoolProductionKeepsTLSAndMajority(t *testing.T) {
	t.Parallel()

	pool := mongo.Config{MaxPoolSize: 1}.Pool(environment.Production)
	assert.True(t, pool.TLSEnabled)
	assert.Equal(t, "majority", pool.WriteConcern)
}

func TestRetryPolicyFromConfig(t *testing.T) {
	t.Parallel()

	cfg := mongo.Config{
		RetryAttempts:  6,
		RetryBaseDelay: 50 * time.Millisecond,
		RetryMaxDelay:  2 * time.Second,
		RetryJitter:    0.1,
	}
	policy := cfg.RetryPolicy()

	assert.Equal(t, 6, policy.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 2*time.Second, policy.MaxDelay)
	assert.Equal(t, 0.1, policy.JitterRatio)
}

func TestRetryPolicyDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, mongo.DefaultRetryPolicy(), mongo.Config{}.RetryPolicy())
}
