// Package metrics provides in-process counters for the wallet core.
// This is a lightweight foundation using atomic counters; a snapshot is
// served by the HTTP frontend and the status command.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds counters. The zero value is ready to use.
type Metrics struct {
	// Ledger node calls
	ledgerCallsTotal   atomic.Int64
	ledgerErrorsTotal  atomic.Int64
	ledgerLatencyNanos atomic.Int64

	// Wallet lifecycle
	walletOpsTotal  atomic.Int64
	walletOpsErrors atomic.Int64

	// Approval flow
	staged           atomic.Int64
	awaitingPassword atomic.Int64
	signed           atomic.Int64
	passwordFailures atomic.Int64
	lockouts         atomic.Int64
	rateLimited      atomic.Int64

	mu       sync.Mutex
	rejected map[string]int64
	byKind   map[string]int64
}

// New creates an empty Metrics.
func New() *Metrics {
	return &Metrics{}
}

// RecordLedgerCall records a node call with its duration and outcome.
func (m *Metrics) RecordLedgerCall(duration time.Duration, err error) {
	m.ledgerCallsTotal.Add(1)
	m.ledgerLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.ledgerErrorsTotal.Add(1)
	}
}

// RecordWalletOp records a create, connect or disconnect.
func (m *Metrics) RecordWalletOp(err error) {
	m.walletOpsTotal.Add(1)
	if err != nil {
		m.walletOpsErrors.Add(1)
	}
}

// RecordStaged records a staged operation.
func (m *Metrics) RecordStaged() { m.staged.Add(1) }

// RecordAwaitingPassword records an operation parked for a password.
func (m *Metrics) RecordAwaitingPassword() { m.awaitingPassword.Add(1) }

// RecordPasswordFailure records a wrong password.
func (m *Metrics) RecordPasswordFailure() { m.passwordFailures.Add(1) }

// RecordLockout records a user reaching the attempt limit.
func (m *Metrics) RecordLockout() { m.lockouts.Add(1) }

// RecordRateLimited records a refused operation.
func (m *Metrics) RecordRateLimited() { m.rateLimited.Add(1) }

// RecordSigned records a signed and submitted operation of kind.
func (m *Metrics) RecordSigned(kind string) {
	m.signed.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byKind == nil {
		m.byKind = make(map[string]int64)
	}
	m.byKind[kind]++
}

// RecordRejected records a rejected operation by reason.
func (m *Metrics) RecordRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected == nil {
		m.rejected = make(map[string]int64)
	}
	m.rejected[reason]++
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	LedgerCallsTotal   int64            `json:"ledger_calls_total"`
	LedgerErrorsTotal  int64            `json:"ledger_errors_total"`
	LedgerLatencyAvgMs float64          `json:"ledger_latency_avg_ms"`
	WalletOpsTotal     int64            `json:"wallet_ops_total"`
	WalletOpsErrors    int64            `json:"wallet_ops_errors"`
	Staged             int64            `json:"staged"`
	AwaitingPassword   int64            `json:"awaiting_password"`
	Signed             int64            `json:"signed"`
	SignedByKind       map[string]int64 `json:"signed_by_kind,omitempty"`
	Rejected           map[string]int64 `json:"rejected,omitempty"`
	PasswordFailures   int64            `json:"password_failures"`
	Lockouts           int64            `json:"lockouts"`
	RateLimited        int64            `json:"rate_limited"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		LedgerCallsTotal:   m.ledgerCallsTotal.Load(),
		LedgerErrorsTotal:  m.ledgerErrorsTotal.Load(),
		LedgerLatencyAvgMs: m.LedgerLatencyAvgMs(),
		WalletOpsTotal:     m.walletOpsTotal.Load(),
		WalletOpsErrors:    m.walletOpsErrors.Load(),
		Staged:             m.staged.Load(),
		AwaitingPassword:   m.awaitingPassword.Load(),
		Signed:             m.signed.Load(),
		PasswordFailures:   m.passwordFailures.Load(),
		Lockouts:           m.lockouts.Load(),
		RateLimited:        m.rateLimited.Load(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.SignedByKind = copyMap(m.byKind)
	s.Rejected = copyMap(m.rejected)
	return s
}

// RejectedTotal sums rejections across reasons.
func (s Snapshot) RejectedTotal() int64 {
	var n int64
	for _, v := range s.Rejected {
		n += v
	}
	return n
}

// RejectReasons returns the rejection reasons seen, sorted.
func (s Snapshot) RejectReasons() []string {
	out := make([]string, 0, len(s.Rejected))
	for k := range s.Rejected {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LedgerLatencyAvgMs returns the average node latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) LedgerLatencyAvgMs() float64 {
	calls := m.ledgerCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.ledgerLatencyNanos.Load()) / float64(calls) / 1e6
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.ledgerCallsTotal.Store(0)
	m.ledgerErrorsTotal.Store(0)
	m.ledgerLatencyNanos.Store(0)
	m.walletOpsTotal.Store(0)
	m.walletOpsErrors.Store(0)
	m.staged.Store(0)
	m.awaitingPassword.Store(0)
	m.signed.Store(0)
	m.passwordFailures.Store(0)
	m.lockouts.Store(0)
	m.rateLimited.Store(0)
	m.mu.Lock()
	m.byKind = nil
	m.rejected = nil
	m.mu.Unlock()
}

func copyMap(in map[string]int64) map[string]int64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
