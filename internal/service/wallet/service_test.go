package wallet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/algointent/walletcore/internal/account"
	"github.com/algointent/walletcore/internal/audit"
	"github.com/algointent/walletcore/internal/guard"
	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/ledger/ledgertest"
	"github.com/algointent/walletcore/internal/metrics"
	"github.com/algointent/walletcore/internal/service/approval"
	"github.com/algointent/walletcore/internal/session"
	"github.com/algointent/walletcore/internal/vault"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

const (
	user     = "chat-1001"
	password = "s3cret-pass"
)

func TestMain(m *testing.M) {
	vault.SetScryptWorkFactor(10)
	os.Exit(m.Run())
}

type fixture struct {
	svc      *Service
	sessions *session.Manager
	ledger   *ledgertest.Fake
	logs     *observer.ObservedLogs
	metrics  *metrics.Metrics
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := session.NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	rec := audit.FromLogger(zap.New(core))
	f := &fixture{
		ledger:  ledgertest.New(),
		logs:    logs,
		metrics: metrics.New(),
		now:     time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.sessions = session.NewManager(store, 24*time.Hour, session.WithManagerClock(clock), session.WithAudit(rec))
	g := guard.New(store, guard.DefaultConfig(), guard.WithClock(clock), guard.WithAudit(rec))
	v := vault.New()
	m := approval.New(f.sessions, g, v, f.ledger, approval.WithClock(clock), approval.WithAudit(rec))

	f.svc = NewService(&Config{
		Sessions:  f.sessions,
		Guard:     g,
		Vault:     v,
		Ledger:    f.ledger,
		Approvals: m,
		Audit:     rec,
		Metrics:   f.metrics,
		Clock:     clock,
	})
	return f
}

func (f *fixture) events(typ audit.EventType) int {
	return f.logs.FilterMessage(string(typ)).Len()
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)
	assert.NotEmpty(t, created.Address)
	normalized, err := account.ValidateMnemonic(created.Mnemonic)
	require.NoError(t, err)

	addr, err := account.AddressFromMnemonic(normalized)
	require.NoError(t, err)
	assert.Equal(t, created.Address, addr)

	ws, err := f.sessions.Store().Load(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, ws)
	assert.Equal(t, created.Address, ws.Address)
	assert.NotContains(t, string(ws.EncryptedSecret), created.Mnemonic)

	secret, err := vault.New().Decrypt(ws.EncryptedSecret, password)
	require.NoError(t, err)
	defer secret.Destroy()
	assert.Equal(t, created.Mnemonic, secret.String())

	assert.Equal(t, 1, f.events(audit.WalletCreationInitiated))
	assert.Equal(t, 1, f.events(audit.WalletCreated))
	for _, e := range f.logs.All() {
		assert.NotContains(t, fmt.Sprint(e.ContextMap()), created.Mnemonic)
	}
}

func TestCreate_Refusals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, user, "short1")
	require.ErrorIs(t, err, walleterr.ErrWeakPassword)

	_, err = f.svc.Create(ctx, user, password)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, user, password)
	require.ErrorIs(t, err, walleterr.ErrAlreadyConnected)
	assert.Equal(t, int64(2), f.metrics.Snapshot().WalletOpsErrors)
}

func TestConnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	gen, err := account.Generate()
	require.NoError(t, err)

	// Extra whitespace and capitals are normalized away.
	connected, err := f.svc.Connect(ctx, user, "  "+gen.Mnemonic+"\n", password)
	require.NoError(t, err)
	assert.Equal(t, gen.Address, connected.Address)
	assert.False(t, connected.Reconnected)
	assert.Equal(t, 1, f.events(audit.WalletConnected))
}

func TestConnect_InvalidMnemonic(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Connect(context.Background(), user, "abandon ability", password)
	require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)
	assert.Equal(t, 1, f.events(audit.WalletConnectionFailed))

	s, err := f.sessions.Peek(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestConnect_DifferentWalletNeverOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)
	before, err := f.sessions.Store().Load(ctx, user)
	require.NoError(t, err)

	other, err := account.Generate()
	require.NoError(t, err)
	require.NotEqual(t, created.Address, other.Address)

	_, err = f.svc.Connect(ctx, user, other.Mnemonic, password)
	require.ErrorIs(t, err, walleterr.ErrAlreadyConnected)

	after, err := f.sessions.Store().Load(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, created.Address, after.Address)
	assert.Equal(t, before.EncryptedSecret, after.EncryptedSecret)
	assert.Equal(t, 1, f.events(audit.WalletConnectionFailed))
}

func TestConnect_SameWalletClearsLockout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)
	_, err = f.sessions.Store().Update(ctx, user, func(s *session.WalletSession) error {
		s.FailedAttempts = 3
		return nil
	})
	require.NoError(t, err)

	st, err := f.svc.Status(ctx, user)
	require.NoError(t, err)
	require.True(t, st.LockedOut)

	connected, err := f.svc.Connect(ctx, user, created.Mnemonic, "another-pass-2")
	require.NoError(t, err)
	assert.True(t, connected.Reconnected)

	st, err = f.svc.Status(ctx, user)
	require.NoError(t, err)
	assert.False(t, st.LockedOut)
	assert.Equal(t, 3, st.RemainingAttempts)

	// The new password now protects the secret.
	ws, err := f.sessions.Store().Load(ctx, user)
	require.NoError(t, err)
	_, err = vault.New().Decrypt(ws.EncryptedSecret, password)
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
}

func TestDisconnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.svc.Disconnect(ctx, user), walleterr.ErrNotConnected)

	created, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)
	f.ledger.SetBalance(created.Address, 10_000_000)
	to, err := account.Generate()
	require.NoError(t, err)

	res, err := f.svc.Approvals().Stage(ctx, user,
		approval.Request{Kind: approval.KindSendAlgo, Recipient: to.Address, Amount: "1"}, approval.Deferred{})
	require.NoError(t, err)
	require.Equal(t, approval.StateAwaitingPassword, res.State())

	require.NoError(t, f.svc.Disconnect(ctx, user))
	assert.Equal(t, 1, f.events(audit.WalletDisconnected))
	assert.Equal(t, 1, f.events(audit.TransactionCancelled))

	_, ok := f.svc.Approvals().Pending(user)
	assert.False(t, ok, "a pending operation never survives a disconnect")

	_, err = f.svc.Approvals().ResumeWithPassword(ctx, user, password)
	require.ErrorIs(t, err, walleterr.ErrNoPendingOperation)
}

func TestResetLockout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.svc.ResetLockout(ctx, user), walleterr.ErrNotConnected)

	_, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)
	_, err = f.sessions.Store().Update(ctx, user, func(s *session.WalletSession) error {
		s.FailedAttempts = 3
		return nil
	})
	require.NoError(t, err)

	// Time alone never lifts a lockout.
	f.now = f.now.Add(23 * time.Hour)
	st, err := f.svc.Status(ctx, user)
	require.NoError(t, err)
	assert.True(t, st.LockedOut)

	require.NoError(t, f.svc.ResetLockout(ctx, user))
	st, err = f.svc.Status(ctx, user)
	require.NoError(t, err)
	assert.False(t, st.LockedOut)
	assert.Equal(t, 1, f.events(audit.LockoutReset))
}

func TestBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Balance(ctx, user)
	require.ErrorIs(t, err, walleterr.ErrNotConnected)

	created, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)
	f.ledger.SetBalance(created.Address, 2_500_000)
	f.ledger.SetHoldings(created.Address, ledger.Holding{AssetID: 7, Amount: 3})

	bal, err := f.svc.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000), bal.MicroAlgos)
	assert.Equal(t, "2.5", bal.Algo)
	assert.Equal(t, []ledger.Holding{{AssetID: 7, Amount: 3}}, bal.Holdings)
	assert.Equal(t, 1, f.events(audit.BalanceChecked))
}

func TestBalance_NetworkError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)
	f.ledger.BalanceErr = walleterr.ErrNetwork

	_, err = f.svc.Balance(ctx, user)
	require.ErrorIs(t, err, walleterr.ErrNetwork)
	assert.Equal(t, 0, f.events(audit.BalanceChecked))
}

func TestStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	st, err := f.svc.Status(ctx, user)
	require.NoError(t, err)
	assert.False(t, st.Connected)

	created, err := f.svc.Create(ctx, user, password)
	require.NoError(t, err)

	st, err = f.svc.Status(ctx, user)
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, created.Address, st.Address)
	assert.Equal(t, f.now.Add(24*time.Hour), st.ExpiresAt)
	assert.Equal(t, 3, st.RemainingAttempts)
	assert.Equal(t, guard.DefaultMaxOperations, st.RemainingOperations)
	assert.Nil(t, st.Pending)

	// Status does not keep the session alive.
	f.now = f.now.Add(25 * time.Hour)
	st, err = f.svc.Status(ctx, user)
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Equal(t, 1, f.events(audit.SessionExpired))
}
