package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_BurstThenRefuse(t *testing.T) {
	t.Parallel()

	th := NewThrottle(0.001, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, th.Allow("u1"), "request %d", i+1)
	}
	assert.False(t, th.Allow("u1"))

	// Keys are independent.
	assert.True(t, th.Allow("u2"))
	assert.Equal(t, 2, th.Len())
}

func TestThrottle_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	th := NewThrottle(0.001, 1)
	require.True(t, th.Allow("u1"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, th.Wait(ctx, "u1"))
}

func TestThrottle_Prune(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	th := DefaultThrottle()
	th.now = func() time.Time { return now }

	th.Allow("old")
	now = now.Add(time.Hour)
	th.Allow("new")

	assert.Equal(t, 1, th.Prune(30*time.Minute))
	assert.Equal(t, 1, th.Len())
}
