package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/algointent/walletcore/internal/audit"
	"github.com/algointent/walletcore/internal/session"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T) (*Guard, *clock, *observer.ObservedLogs) {
	t.Helper()

	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)

	c := &clock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Save(context.Background(), &session.WalletSession{
		UserID:          "u1",
		Address:         "ADDR",
		EncryptedSecret: []byte{1},
		CreatedAt:       c.Now(),
		LastActivity:    c.Now(),
	}))

	core, logs := observer.New(zapcore.InfoLevel)
	g := New(store, DefaultConfig(), WithClock(c.Now), WithAudit(audit.FromLogger(zap.New(core))))
	return g, c, logs
}

func countEvents(logs *observer.ObservedLogs, typ audit.EventType) int {
	n := 0
	for _, e := range logs.All() {
		if e.Message == string(typ) {
			n++
		}
	}
	return n
}

func TestGuard_EleventhOperationRefused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, c, logs := setup(t)

	for i := 0; i < DefaultMaxOperations; i++ {
		d, err := g.CheckAndRecordOperation(ctx, "u1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "operation %d", i+1)
		assert.Equal(t, DefaultMaxOperations-i-1, d.Remaining)
		c.Advance(time.Minute)
	}

	d, err := g.CheckAndRecordOperation(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	// The first operation was 10 minutes ago; it leaves the window in 50.
	assert.Equal(t, 50*time.Minute, d.RetryAfter)
	assert.Equal(t, 1, countEvents(logs, audit.RateLimitExceeded))

	// Refused operations are not recorded.
	c.Advance(50*time.Minute + time.Second)
	d, err = g.CheckAndRecordOperation(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestGuard_WindowElapseReallows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, c, _ := setup(t)

	for i := 0; i < DefaultMaxOperations; i++ {
		d, err := g.CheckAndRecordOperation(ctx, "u1")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := g.CheckAndRecordOperation(ctx, "u1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	c.Advance(time.Hour + time.Second)
	d, err = g.CheckAndRecordOperation(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, DefaultMaxOperations-1, d.Remaining)

	s, err := g.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, s.RecentOperations, 1, "stale timestamps are pruned")
}

func TestGuard_UnknownUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, _, _ := setup(t)

	_, err := g.CheckAndRecordOperation(ctx, "nobody")
	require.ErrorIs(t, err, walleterr.ErrNotConnected)

	_, err = g.CheckAttempt(ctx, "nobody")
	require.ErrorIs(t, err, walleterr.ErrNotConnected)

	_, err = g.RecordFailedAttempt(ctx, "nobody")
	require.ErrorIs(t, err, walleterr.ErrNotConnected)

	require.ErrorIs(t, g.ResetAttempts(ctx, "nobody"), walleterr.ErrNotConnected)
}

func TestGuard_LockoutAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, c, logs := setup(t)

	for want := DefaultMaxAttempts - 1; want >= 0; want-- {
		ok, err := g.CheckAttempt(ctx, "u1")
		require.NoError(t, err)
		require.True(t, ok)

		remaining, err := g.RecordFailedAttempt(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, want, remaining)
	}

	ok, err := g.CheckAttempt(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, DefaultMaxAttempts, countEvents(logs, audit.PasswordError))
	assert.Equal(t, 1, countEvents(logs, audit.MaxAttemptsExceeded))

	// Time alone never lifts the lockout.
	c.Advance(30 * 24 * time.Hour)
	ok, err = g.CheckAttempt(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.ResetAttempts(ctx, "u1"))
	ok, err = g.CheckAttempt(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuard_RemainingNeverNegative(t *testing.T) {
	t.Parallel()
	g := New(nil, Config{MaxAttempts: 3})

	assert.Equal(t, 0, g.RemainingAttempts(&session.WalletSession{FailedAttempts: 7}))
	assert.True(t, g.LockedOut(&session.WalletSession{FailedAttempts: 3}))
	assert.False(t, g.LockedOut(&session.WalletSession{FailedAttempts: 2}))
}

func TestNew_DefaultsForZeroConfig(t *testing.T) {
	t.Parallel()

	g := New(nil, Config{})
	assert.Equal(t, DefaultConfig(), g.Config())
}

func TestGuard_ConcurrentOperationsRespectLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, _, _ := setup(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 3*DefaultMaxOperations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := g.CheckAndRecordOperation(ctx, "u1")
			assert.NoError(t, err)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, DefaultMaxOperations, allowed)
}

func TestGuard_RemainingOperations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, c, _ := setup(t)

	for i := 0; i < 4; i++ {
		_, err := g.CheckAndRecordOperation(ctx, "u1")
		require.NoError(t, err)
		c.Advance(10 * time.Minute)
	}

	s, err := g.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, g.RemainingOperations(s))

	// The first operation is now 60 minutes old and outside the window.
	c.Advance(20 * time.Minute)
	assert.Equal(t, 7, g.RemainingOperations(s))
}
