package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/audit"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Store backends.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown session backend")

// errExpired aborts an Update without writing.
var errExpired = errors.New("session expired")

// errSessionExpired is what callers see for an expired session.
//
//nolint:gochecknoglobals // Immutable error value
var errSessionExpired = walleterr.WithDetails(walleterr.ErrNotConnected, map[string]string{"reason": "session expired"})

// Open creates the Store for backend at path.
func Open(backend, path string, opts ...StoreOption) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(path, opts...)
	case BackendLevelDB:
		return OpenLevelStore(path, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// AuditCorruption returns a CorruptionHandler that records SESSION_CORRUPTED.
func AuditCorruption(rec audit.Recorder) CorruptionHandler {
	return func(userID, backup string, _ error) {
		rec.Record(context.Background(), userID, audit.SessionCorrupted, "record quarantined as "+backup)
	}
}

// Manager applies the session lifecycle on top of a Store: expiry on
// validation, activity refresh, creation and removal.
type Manager struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	audit   audit.Recorder
	logger  *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerClock sets the clock.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithAudit sets the security event recorder.
func WithAudit(rec audit.Recorder) ManagerOption {
	return func(m *Manager) { m.audit = rec }
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. Sessions idle longer than timeout expire.
func NewManager(store Store, timeout time.Duration, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		timeout: timeout,
		now:     time.Now,
		audit:   audit.Nop{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Timeout returns the idle timeout.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Active validates the user's session and refreshes its activity timestamp.
// An expired session is removed and reported as not connected.
func (m *Manager) Active(ctx context.Context, userID string) (*WalletSession, error) {
	now := m.now()
	s, err := m.store.Update(ctx, userID, func(s *WalletSession) error {
		if s.IsExpired(now, m.timeout) {
			return errExpired
		}
		s.LastActivity = now
		return nil
	})
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, ErrSessionNotFound):
		return nil, walleterr.ErrNotConnected
	case errors.Is(err, errExpired):
		if _, err := m.expire(ctx, userID, now); err != nil {
			return nil, err
		}
		return nil, errSessionExpired
	default:
		return nil, err
	}
}

// Peek returns the user's session without refreshing activity. Expired
// sessions are removed exactly as in Active. Returns (nil, nil) if absent.
func (m *Manager) Peek(ctx context.Context, userID string) (*WalletSession, error) {
	s, err := m.store.Load(ctx, userID)
	if err != nil || s == nil {
		return nil, err
	}
	if now := m.now(); s.IsExpired(now, m.timeout) {
		if _, err := m.expire(ctx, userID, now); err != nil {
			return nil, err
		}
		return nil, nil //nolint:nilnil // expired is absent
	}
	return s, nil
}

// Create stores a fresh session for userID, replacing any existing record.
func (m *Manager) Create(ctx context.Context, userID, address string, encryptedSecret []byte) (*WalletSession, error) {
	now := m.now()
	s := &WalletSession{
		UserID:          userID,
		Address:         address,
		EncryptedSecret: encryptedSecret,
		CreatedAt:       now,
		LastActivity:    now,
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Remove deletes the user's session and reports whether one existed.
func (m *Manager) Remove(ctx context.Context, userID string) (bool, error) {
	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	if err := m.store.Delete(ctx, userID); err != nil {
		return false, err
	}
	return s != nil, nil
}

// Sweep removes every expired session and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	all, err := m.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	now := m.now()
	removed := 0
	for id, s := range all {
		if !s.IsExpired(now, m.timeout) {
			continue
		}
		ok, err := m.expire(ctx, id, now)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// expire removes the session if it is still expired at now. A session
// refreshed concurrently survives; either way the caller sees it as gone
// for this request.
func (m *Manager) expire(ctx context.Context, userID string, now time.Time) (bool, error) {
	removed, err := m.store.DeleteIf(ctx, userID, func(s *WalletSession) bool {
		return s.IsExpired(now, m.timeout)
	})
	if err != nil || !removed {
		return false, err
	}
	m.logger.Info("session expired", zap.String("user_id", userID))
	m.audit.Record(ctx, userID, audit.SessionExpired, fmt.Sprintf("idle longer than %s", m.timeout))
	return true, nil
}
