package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowSpacing(t *testing.T) {
	l := New(time.Hour)

	assert.True(t, l.Allow("api"))
	assert.False(t, l.Allow("api"))
	assert.True(t, l.Allow("other"), "keys are independent")
}

func TestLimiter_ZeroIntervalUnlimited(t *testing.T) {
	l := New(0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("api"))
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New(time.Hour)
	require.NoError(t, l.Wait(context.Background(), "api"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "api"))
}
