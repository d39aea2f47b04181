package cli

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/api"
	"github.com/algointent/walletcore/internal/audit"
	"github.com/algointent/walletcore/internal/cache"
	"github.com/algointent/walletcore/internal/config"
	"github.com/algointent/walletcore/internal/guard"
	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/ledger/algod"
	"github.com/algointent/walletcore/internal/metrics"
	"github.com/algointent/walletcore/internal/retry"
	"github.com/algointent/walletcore/internal/service/approval"
	"github.com/algointent/walletcore/internal/service/wallet"
	"github.com/algointent/walletcore/internal/session"
	"github.com/algointent/walletcore/internal/vault"
	"github.com/algointent/walletcore/internal/version"
)

// app is the wired service graph for one command invocation.
type app struct {
	wallets  *wallet.Service
	sessions *session.Manager
	machine  *approval.Machine
	metrics  *metrics.Metrics
	store    session.Store
	audit    *audit.Log
	assets   *cache.AssetCache
}

// newLedgerFn builds the node client. Tests replace it with an in-memory ledger.
//
//nolint:gochecknoglobals // Test seam
var newLedgerFn = func(c *config.Config, m *metrics.Metrics, l *zap.Logger) (ledger.Client, error) {
	return algod.New(algod.Config{
		URL:               c.Ledger.AlgodURL,
		Token:             c.Ledger.AlgodToken,
		UserAgent:         version.UserAgent(),
		RequestsPerSecond: c.Ledger.RequestsPerSecond,
		Timeout:           c.LedgerTimeout(),
		Retry: retry.Config{
			MaxAttempts: c.Ledger.RetryAttempts,
			BaseDelay:   time.Second,
			MaxDelay:    4 * time.Second,
		},
	}, algod.WithLogger(l), algod.WithMetrics(m))
}

// openApp wires storage, audit, vault, ledger and services from cfg.
func openApp(c *config.Config, l *zap.Logger) (*app, error) {
	rec, err := audit.Open(audit.Config{
		Dir:          c.AuditDir(),
		MaxAge:       time.Duration(c.Audit.MaxAgeDays) * 24 * time.Hour,
		RotationTime: time.Duration(c.Audit.RotationHours) * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	store, err := session.Open(c.Storage.Backend, c.SessionPath(),
		session.WithLogger(l), session.WithCorruptionHandler(session.AuditCorruption(rec)))
	if err != nil {
		_ = rec.Close()
		return nil, err
	}

	m := metrics.New()
	node, err := newLedgerFn(c, m, l)
	if err != nil {
		_ = store.Close()
		_ = rec.Close()
		return nil, err
	}
	assets := cache.NewAssetCache(cache.DefaultMaxAge)
	client := cache.WrapLedger(node, assets)

	scheme, err := vault.ParseScheme(c.Encryption.Scheme)
	if err != nil {
		_ = store.Close()
		_ = rec.Close()
		return nil, err
	}
	v := vault.New(vault.WithScheme(scheme), vault.WithArgonParams(vault.ArgonParams{
		Time:    c.Encryption.ArgonTime,
		Memory:  c.Encryption.ArgonMemoryKiB,
		Threads: c.Encryption.ArgonThreads,
	}), vault.WithMemoryLock(c.Security.MemoryLock))

	sessions := session.NewManager(store, c.SessionTimeout(),
		session.WithAudit(rec), session.WithManagerLogger(l))
	g := guard.New(store, guard.Config{
		MaxOperations: c.Security.MaxOperations,
		Window:        c.RateWindow(),
		MaxAttempts:   c.Security.MaxAttempts,
	}, guard.WithAudit(rec), guard.WithLogger(l))
	machine := approval.New(sessions, g, v, client,
		approval.WithPendingTTL(c.PendingTTL()),
		approval.WithMaxRounds(uint64(c.Ledger.MaxRounds)), //nolint:gosec // validated range 1..1000
		approval.WithAudit(rec),
		approval.WithMetrics(m),
		approval.WithLogger(l))

	return &app{
		wallets: wallet.NewService(&wallet.Config{
			Sessions:  sessions,
			Guard:     g,
			Vault:     v,
			Ledger:    client,
			Approvals: machine,
			Audit:     rec,
			Metrics:   m,
			Logger:    l,
		}),
		sessions: sessions,
		machine:  machine,
		metrics:  m,
		store:    store,
		audit:    rec,
		assets:   assets,
	}, nil
}

// server builds the HTTP frontend over a.
func (a *app) server(c *config.Config, l *zap.Logger) *api.Server {
	return api.NewServer(api.Config{
		Addr:         c.Server.Addr,
		ReadTimeout:  time.Duration(c.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(c.Server.WriteTimeoutSeconds) * time.Second,
	}, a.wallets,
		api.WithLogger(l),
		api.WithMetrics(a.metrics),
		api.WithThrottle(guard.NewThrottle(c.Server.ThrottleRPS, c.Server.ThrottleBurst)))
}

// sweep drops expired pending operations, idle sessions and stale asset
// entries.
func (a *app) sweep(ctx context.Context) (pending, sessions int, err error) {
	a.assets.Prune()
	pending = a.machine.Sweep(ctx)
	sessions, err = a.sessions.Sweep(ctx)
	return pending, sessions, err
}

func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.audit.Close())
}

// withApp opens the app for one command and closes it afterwards.
func withApp(fn func(a *app) error) error {
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

// commandContext bounds a command by the ledger timeout plus the
// confirmation wait.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	d := cfg.LedgerTimeout()*time.Duration(cfg.Ledger.RetryAttempts+1) + time.Duration(cfg.Ledger.MaxRounds)*5*time.Second
	return context.WithTimeout(parent, d)
}
