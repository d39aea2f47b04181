// Package wallet creates, connects and disconnects wallets and answers
// read-only queries about them. Operations that sign go through the
// approval package.
package wallet

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/audit"
	"github.com/algointent/walletcore/internal/guard"
	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/metrics"
	"github.com/algointent/walletcore/internal/service/approval"
	"github.com/algointent/walletcore/internal/session"
	"github.com/algointent/walletcore/internal/vault"
)

// Service provides wallet lifecycle operations without CLI dependencies.
type Service struct {
	sessions  *session.Manager
	guard     *guard.Guard
	vault     *vault.Vault
	ledger    ledger.Client
	approvals *approval.Machine
	locks     *session.Locker
	audit     audit.Recorder
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Config contains dependencies for creating a wallet service. Sessions,
// Guard, Vault, Ledger and Approvals are required.
type Config struct {
	Sessions  *session.Manager
	Guard     *guard.Guard
	Vault     *vault.Vault
	Ledger    ledger.Client
	Approvals *approval.Machine
	Audit     audit.Recorder
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewService creates a new wallet service instance. It shares the approval
// machine's per-user lock so lifecycle changes never interleave with an
// approval in flight.
func NewService(cfg *Config) *Service {
	s := &Service{
		sessions:  cfg.Sessions,
		guard:     cfg.Guard,
		vault:     cfg.Vault,
		ledger:    cfg.Ledger,
		approvals: cfg.Approvals,
		locks:     cfg.Approvals.Locker(),
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Clock,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Approvals returns the approval machine for staging operations.
func (s *Service) Approvals() *approval.Machine {
	return s.approvals
}

// Status reports the user's session state.
func (s *Service) Status(ctx context.Context, userID string) (st *Status, err error) {
	defer func() { s.metrics.RecordWalletOp(err) }()

	ws, err := s.sessions.Peek(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return &Status{}, nil
	}

	st = &Status{
		Connected:           true,
		Address:             ws.Address,
		CreatedAt:           ws.CreatedAt,
		LastActivity:        ws.LastActivity,
		ExpiresAt:           ws.LastActivity.Add(s.sessions.Timeout()),
		LockedOut:           s.guard.LockedOut(ws),
		RemainingAttempts:   s.guard.RemainingAttempts(ws),
		RemainingOperations: s.guard.RemainingOperations(ws),
	}
	if p, ok := s.approvals.Pending(userID); ok {
		st.Pending = &p
	}
	return st, nil
}
