package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstPerUser(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per user")

	rl.Forget("a")
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("a"))
	}
}
