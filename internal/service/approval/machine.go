// Package approval stages wallet operations, collects the password, signs
// and submits them, and reconciles the ledger's answer.
//
// A user has at most one pending operation. Staging a new request discards
// the previous one. An operation is consumed exactly once: after the
// password is verified it is removed before anything is signed, so no path
// can replay it.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/audit"
	"github.com/algointent/walletcore/internal/guard"
	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/metrics"
	"github.com/algointent/walletcore/internal/retry"
	"github.com/algointent/walletcore/internal/session"
	"github.com/algointent/walletcore/internal/vault"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// DefaultMaxRounds is how many rounds to wait for confirmation.
const DefaultMaxRounds = 10

// Machine runs the approval flow.
type Machine struct {
	sessions *session.Manager
	guard    *guard.Guard
	vault    *vault.Vault
	ledger   ledger.Client
	locks    *session.Locker
	pending  *pendingStore

	pendingTTL  time.Duration
	maxRounds   uint64
	optOutRetry retry.Config

	audit   audit.Recorder
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithLocker shares the per-user flow lock with other services.
func WithLocker(l *session.Locker) Option {
	return func(m *Machine) { m.locks = l }
}

// WithPendingTTL bounds how long an operation waits for its password.
func WithPendingTTL(d time.Duration) Option {
	return func(m *Machine) { m.pendingTTL = d }
}

// WithMaxRounds sets the confirmation wait.
func WithMaxRounds(n uint64) Option {
	return func(m *Machine) { m.maxRounds = n }
}

// WithOptOutRetry sets the bounded retry for the opt-out balance recheck.
func WithOptOutRetry(cfg retry.Config) Option {
	return func(m *Machine) { m.optOutRetry = cfg }
}

// WithAudit sets the security event recorder.
func WithAudit(rec audit.Recorder) Option {
	return func(m *Machine) { m.audit = rec }
}

// WithMetrics sets the counters.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// New creates a Machine.
func New(sessions *session.Manager, g *guard.Guard, v *vault.Vault, client ledger.Client, opts ...Option) *Machine {
	m := &Machine{
		sessions:    sessions,
		guard:       g,
		vault:       v,
		ledger:      client,
		locks:       session.NewLocker(),
		pending:     newPendingStore(),
		pendingTTL:  DefaultPendingTTL,
		maxRounds:   DefaultMaxRounds,
		optOutRetry: retry.DefaultConfig(),
		audit:       audit.Nop{},
		metrics:     metrics.New(),
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Stage validates and builds req for userID, then asks pw for the password.
// Precondition failures are returned as Rejected; infrastructure and
// validation failures as errors.
func (m *Machine) Stage(ctx context.Context, userID string, req Request, pw PasswordProvider) (Result, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	if stale := m.pending.take(userID); stale != nil {
		m.discarded(ctx, stale, "superseded by a new request")
	}

	s, err := m.sessions.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m.guard.LockedOut(s) {
		return m.rejected(reject(ReasonLockedOut)), nil
	}

	v, err := validate(req)
	if err != nil {
		return nil, err
	}

	op, rej, err := m.prepare(ctx, s.Address, v)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		m.logger.Info("operation refused before approval",
			zap.String("user_id", userID), zap.String("kind", string(req.Kind)), zap.String("reason", string(rej.Reason)))
		return m.rejected(*rej), nil
	}

	if req.DryRun {
		return Staged{Summary: op.Summary}, nil
	}

	d, err := m.guard.CheckAndRecordOperation(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		m.metrics.RecordRateLimited()
		return nil, walleterr.WithDetails(walleterr.ErrRateLimited, map[string]string{
			"retry_after": d.RetryAfter.Round(time.Second).String(),
		})
	}

	now := m.now()
	op.ID = uuid.NewString()
	op.UserID = userID
	op.CreatedAt = now
	op.ExpiresAt = now.Add(m.pendingTTL)
	m.pending.put(op)
	m.metrics.RecordStaged()
	m.audit.Record(ctx, userID, audit.TransactionPending,
		fmt.Sprintf("%s %s, %d txn(s), fee %s", op.ID, op.Kind, len(op.Txns), op.Summary.FeeDisplay()))

	password, err := pw.Password(ctx, op.Summary)
	if errors.Is(err, ErrPasswordDeferred) {
		m.metrics.RecordAwaitingPassword()
		return AwaitingPassword{OperationID: op.ID, Summary: op.Summary, ExpiresAt: op.ExpiresAt}, nil
	}
	if err != nil {
		m.pending.take(userID)
		m.discarded(ctx, op, "password entry abandoned")
		return nil, err
	}
	return m.resume(ctx, userID, password)
}

// ResumeWithPassword continues the user's pending operation.
func (m *Machine) ResumeWithPassword(ctx context.Context, userID, password string) (Result, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	return m.resume(ctx, userID, password)
}

// Pending returns the user's pending operation summary, if any.
func (m *Machine) Pending(userID string) (AwaitingPassword, bool) {
	op := m.pending.get(userID)
	if op == nil {
		return AwaitingPassword{}, false
	}
	return AwaitingPassword{OperationID: op.ID, Summary: op.Summary, ExpiresAt: op.ExpiresAt}, true
}

// Cancel discards the user's pending operation and reports whether one existed.
func (m *Machine) Cancel(ctx context.Context, userID string) bool {
	unlock := m.locks.Lock(userID)
	defer unlock()

	return m.CancelLocked(ctx, userID)
}

// CancelLocked is Cancel for callers already holding the user's flow lock.
func (m *Machine) CancelLocked(ctx context.Context, userID string) bool {
	op := m.pending.take(userID)
	if op == nil {
		return false
	}
	m.discarded(ctx, op, "cancelled")
	return true
}

// Sweep drops every expired pending operation and returns how many.
func (m *Machine) Sweep(ctx context.Context) int {
	ops := m.pending.expired(m.now())
	for _, op := range ops {
		m.discarded(ctx, op, "expired")
	}
	return len(ops)
}

// Locker returns the per-user flow lock.
func (m *Machine) Locker() *session.Locker {
	return m.locks
}

// resume runs with the user's flow lock held.
func (m *Machine) resume(ctx context.Context, userID, password string) (Result, error) {
	op := m.pending.get(userID)
	if op == nil {
		return nil, walleterr.ErrNoPendingOperation
	}
	if op.expired(m.now()) {
		m.pending.take(userID)
		m.discarded(ctx, op, "expired")
		return m.rejected(reject(ReasonExpired)), nil
	}

	s, err := m.sessions.Active(ctx, userID)
	if err != nil {
		m.pending.take(userID)
		m.discarded(ctx, op, "session ended")
		return nil, err
	}
	if s.Address != op.From {
		m.pending.take(userID)
		m.discarded(ctx, op, "wallet changed")
		return m.rejected(reject(ReasonAddressMismatch)), nil
	}
	if m.guard.LockedOut(s) {
		m.pending.take(userID)
		m.discarded(ctx, op, "locked out")
		return m.rejected(reject(ReasonLockedOut)), nil
	}

	secret, err := m.vault.Decrypt(s.EncryptedSecret, password)
	if err != nil {
		m.logger.Debug("password verification failed",
			zap.String("user_id", userID), zap.String("reason", vault.FailureReason(err)))
		m.metrics.RecordPasswordFailure()
		remaining, gerr := m.guard.RecordFailedAttempt(ctx, userID)
		if gerr != nil {
			return nil, gerr
		}
		if remaining == 0 {
			m.metrics.RecordLockout()
			m.pending.take(userID)
			m.discarded(ctx, op, "locked out")
			return m.rejected(reject(ReasonLockedOut)), nil
		}
		rej := reject(ReasonIncorrectPassword)
		rej.RemainingAttempts = remaining
		rej.Message = fmt.Sprintf("incorrect password, %d attempt(s) remaining", remaining)
		return m.rejected(rej), nil
	}
	defer secret.Destroy()

	// The password is good: consume the operation before anything else.
	m.pending.take(userID)
	if err := m.guard.ResetAttempts(ctx, userID); err != nil {
		return nil, err
	}
	m.upgradeSecret(ctx, s, secret, password)

	res, err := m.execute(ctx, op, s.Address, secret)
	if err != nil {
		m.audit.Record(ctx, userID, audit.TransactionFailed, fmt.Sprintf("%s %s: %s", op.ID, op.Kind, walleterr.Code(err)))
		return nil, err
	}
	if rej, ok := res.(Rejected); ok {
		m.audit.Record(ctx, userID, audit.TransactionFailed, fmt.Sprintf("%s %s: %s", op.ID, op.Kind, rej.Reason))
		return m.rejected(rej), nil
	}
	return res, nil
}

// upgradeSecret re-encrypts a secret stored under an older scheme. Failure
// only costs the upgrade.
func (m *Machine) upgradeSecret(ctx context.Context, s *session.WalletSession, secret *vault.SecureBytes, password string) {
	if !m.vault.NeedsUpgrade(s.EncryptedSecret) {
		return
	}
	blob, err := m.vault.Encrypt(secret.Bytes(), password)
	if err != nil {
		m.logger.Warn("re-encrypting secret failed", zap.String("user_id", s.UserID), zap.Error(err))
		return
	}
	_, err = m.sessions.Store().Update(ctx, s.UserID, func(cur *session.WalletSession) error {
		if cur.Address != s.Address {
			return walleterr.ErrCorruptedState
		}
		cur.EncryptedSecret = blob
		return nil
	})
	if err != nil {
		m.logger.Warn("storing re-encrypted secret failed", zap.String("user_id", s.UserID), zap.Error(err))
		return
	}
	m.logger.Info("secret re-encrypted under current scheme",
		zap.String("user_id", s.UserID), zap.Stringer("scheme", m.vault.Scheme()))
}

// rejected counts a rejection and passes it through.
func (m *Machine) rejected(r Rejected) Rejected {
	m.metrics.RecordRejected(string(r.Reason))
	return r
}

// discarded records that op left the flow without being signed.
func (m *Machine) discarded(ctx context.Context, op *PendingOperation, why string) {
	m.logger.Info("pending operation discarded",
		zap.String("user_id", op.UserID), zap.String("operation_id", op.ID), zap.String("reason", why))
	m.audit.Record(ctx, op.UserID, audit.TransactionCancelled, fmt.Sprintf("%s %s: %s", op.ID, op.Kind, why))
}
