// Package guard enforces the per-user operation window and the
// consecutive failed password lockout. All state lives in the session
// record, so limits survive restarts.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/audit"
	"github.com/algointent/walletcore/internal/session"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Defaults.
const (
	DefaultMaxOperations = 10
	DefaultWindow        = time.Hour
	DefaultMaxAttempts   = 3
)

// Config holds the guard limits.
type Config struct {
	MaxOperations int           // operations allowed inside Window
	Window        time.Duration // trailing window length
	MaxAttempts   int           // consecutive failed passwords before lockout
}

// DefaultConfig returns 10 operations per hour and 3 attempts.
func DefaultConfig() Config {
	return Config{
		MaxOperations: DefaultMaxOperations,
		Window:        DefaultWindow,
		MaxAttempts:   DefaultMaxAttempts,
	}
}

// Decision is the outcome of CheckAndRecordOperation.
type Decision struct {
	Allowed bool
	// Remaining is how many more operations fit in the window after this one.
	Remaining int
	// RetryAfter is how long until the oldest operation leaves the window.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// Guard applies Config to session records.
type Guard struct {
	store  session.Store
	cfg    Config
	now    func() time.Time
	audit  audit.Recorder
	logger *zap.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithAudit sets the security event recorder.
func WithAudit(rec audit.Recorder) Option {
	return func(g *Guard) { g.audit = rec }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New creates a Guard. Zero fields in cfg fall back to the defaults.
func New(store session.Store, cfg Config, opts ...Option) *Guard {
	def := DefaultConfig()
	if cfg.MaxOperations <= 0 {
		cfg.MaxOperations = def.MaxOperations
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	g := &Guard{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		audit:  audit.Nop{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the active limits.
func (g *Guard) Config() Config {
	return g.cfg
}

// CheckAndRecordOperation admits an operation if fewer than MaxOperations
// were recorded in the trailing window, and records it. Refused operations
// are not queued.
func (g *Guard) CheckAndRecordOperation(ctx context.Context, userID string) (Decision, error) {
	now := g.now()
	var d Decision
	_, err := g.store.Update(ctx, userID, func(s *session.WalletSession) error {
		s.RecentOperations = g.prune(s.RecentOperations, now)
		if len(s.RecentOperations) >= g.cfg.MaxOperations {
			d = Decision{RetryAfter: s.RecentOperations[0].Add(g.cfg.Window).Sub(now)}
			return nil
		}
		s.RecentOperations = append(s.RecentOperations, now)
		d = Decision{Allowed: true, Remaining: g.cfg.MaxOperations - len(s.RecentOperations)}
		return nil
	})
	if err != nil {
		return Decision{}, mapStoreErr(err)
	}
	if !d.Allowed {
		g.logger.Info("operation rate limited",
			zap.String("user_id", userID), zap.Duration("retry_after", d.RetryAfter))
		g.audit.Record(ctx, userID, audit.RateLimitExceeded,
			fmt.Sprintf("%d operations in %s, retry after %s", g.cfg.MaxOperations, g.cfg.Window, d.RetryAfter.Round(time.Second)))
	}
	return d, nil
}

// prune drops timestamps outside the window and caps the slice length.
func (g *Guard) prune(ops []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-g.cfg.Window)
	kept := ops[:0]
	for _, ts := range ops {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) > g.cfg.MaxOperations {
		kept = kept[len(kept)-g.cfg.MaxOperations:]
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// RemainingOperations returns how many operations s may still start inside
// the current window. It does not modify s.
func (g *Guard) RemainingOperations(s *session.WalletSession) int {
	cutoff := g.now().Add(-g.cfg.Window)
	used := 0
	for _, ts := range s.RecentOperations {
		if ts.After(cutoff) {
			used++
		}
	}
	return max(g.cfg.MaxOperations-used, 0)
}

// CheckAttempt reports whether the user may still attempt a password.
func (g *Guard) CheckAttempt(ctx context.Context, userID string) (bool, error) {
	s, err := g.store.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, walleterr.ErrNotConnected
	}
	return !g.LockedOut(s), nil
}

// LockedOut reports whether s has reached the attempt limit.
func (g *Guard) LockedOut(s *session.WalletSession) bool {
	return s.FailedAttempts >= g.cfg.MaxAttempts
}

// RemainingAttempts returns how many password attempts s has left.
func (g *Guard) RemainingAttempts(s *session.WalletSession) int {
	return max(g.cfg.MaxAttempts-s.FailedAttempts, 0)
}

// RecordFailedAttempt increments the failure counter and returns the attempts
// left. Zero means the user is now locked out.
func (g *Guard) RecordFailedAttempt(ctx context.Context, userID string) (int, error) {
	updated, err := g.store.Update(ctx, userID, func(s *session.WalletSession) error {
		s.FailedAttempts++
		return nil
	})
	if err != nil {
		return 0, mapStoreErr(err)
	}
	remaining := g.RemainingAttempts(updated)
	g.audit.Record(ctx, userID, audit.PasswordError,
		fmt.Sprintf("failed attempt %d of %d", updated.FailedAttempts, g.cfg.MaxAttempts))
	if remaining == 0 {
		g.logger.Warn("password attempts exhausted", zap.String("user_id", userID))
		g.audit.Record(ctx, userID, audit.MaxAttemptsExceeded,
			fmt.Sprintf("locked after %d failed attempts", updated.FailedAttempts))
	}
	return remaining, nil
}

// ResetAttempts clears the failure counter.
func (g *Guard) ResetAttempts(ctx context.Context, userID string) error {
	_, err := g.store.Update(ctx, userID, func(s *session.WalletSession) error {
		s.FailedAttempts = 0
		return nil
	})
	return mapStoreErr(err)
}

func mapStoreErr(err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return walleterr.ErrNotConnected
	}
	return err
}
