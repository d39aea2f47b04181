// Package session persists wallet sessions: one record per user binding the
// user to a wallet address and its password-encrypted secret phrase, plus the
// activity, rate-limit and failed-attempt state that the guard maintains.
//
// Two Store backends exist. FileStore keeps one JSON file per user and
// writes through fileutil.WriteAtomic. LevelStore keeps one key per user in
// a LevelDB database. Both quarantine unreadable records and report them as
// absent instead of failing.
package session

import (
	"context"
	"errors"
	"time"
)

// RecordFormat is the current on-disk record version.
const RecordFormat = 1

// Session errors.
var (
	// ErrInvalidUserID indicates an empty user identifier.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrSessionNotFound is returned by Update when no record exists.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRecord indicates a record that cannot be stored.
	ErrInvalidRecord = errors.New("invalid session record")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("session store closed")
)

// WalletSession is the durable record for one user.
type WalletSession struct {
	UserID          string    `json:"user_id"`
	Address         string    `json:"address"`
	EncryptedSecret []byte    `json:"encrypted_secret"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivity    time.Time `json:"last_activity"`

	// RecentOperations holds operation timestamps inside the trailing
	// rate-limit window, oldest first.
	RecentOperations []time.Time `json:"recent_operations,omitempty"`
	FailedAttempts   int         `json:"failed_attempts"`

	Format int `json:"format"`
}

// IsExpired reports whether the session has been idle longer than timeout.
// A non-positive timeout never expires.
func (s *WalletSession) IsExpired(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > timeout
}

// Clone returns a deep copy.
func (s *WalletSession) Clone() *WalletSession {
	if s == nil {
		return nil
	}
	c := *s
	c.EncryptedSecret = append([]byte(nil), s.EncryptedSecret...)
	if s.RecentOperations != nil {
		c.RecentOperations = append([]time.Time(nil), s.RecentOperations...)
	}
	return &c
}

// validate checks the fields every stored record must carry.
func (s *WalletSession) validate() error {
	switch {
	case s == nil:
		return ErrInvalidRecord
	case s.UserID == "":
		return ErrInvalidUserID
	case s.Address == "", len(s.EncryptedSecret) == 0:
		return ErrInvalidRecord
	}
	return nil
}

// Store is the durable mapping from user identity to WalletSession.
//
// Load returns (nil, nil) when no readable record exists. Update runs fn on
// the current record under the user's lock and persists the result; if fn
// returns an error nothing is written. DeleteIf removes the record only when
// pred holds for it, under the same lock.
type Store interface {
	Load(ctx context.Context, userID string) (*WalletSession, error)
	Save(ctx context.Context, s *WalletSession) error
	Delete(ctx context.Context, userID string) error
	LoadAll(ctx context.Context) (map[string]*WalletSession, error)
	Update(ctx context.Context, userID string, fn func(*WalletSession) error) (*WalletSession, error)
	DeleteIf(ctx context.Context, userID string, pred func(*WalletSession) bool) (bool, error)
	Close() error
}

// CorruptionHandler is told about every quarantined record.
type CorruptionHandler func(userID, backup string, cause error)
