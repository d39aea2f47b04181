package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/fileutil"
)

const (
	recordFileExtension = ".json"
	recordPermissions   = 0o600
	dirPermissions      = 0o700
	encodedPrefix       = "x-"
)

// plainUserID matches identifiers usable as file names without encoding.
var plainUserID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// FileStore keeps one JSON record per user in a directory.
type FileStore struct {
	dir       string
	locks     *Locker
	logger    *zap.Logger
	now       func() time.Time
	onCorrupt CorruptionHandler
	closed    atomic.Bool
}

// StoreOption configures a store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger    *zap.Logger
	now       func() time.Time
	onCorrupt CorruptionHandler
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = l }
}

// WithClock sets the clock used for quarantine names.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) { o.now = now }
}

// WithCorruptionHandler registers a callback for quarantined records.
func WithCorruptionHandler(h CorruptionHandler) StoreOption {
	return func(o *storeOptions) { o.onCorrupt = h }
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string, opts ...StoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	o := applyStoreOptions(opts)
	return &FileStore{
		dir:       dir,
		locks:     NewLocker(),
		logger:    o.logger.Named("session.file"),
		now:       o.now,
		onCorrupt: o.onCorrupt,
	}, nil
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, userID string) (*WalletSession, error) {
	path, err := f.recordPath(userID)
	if err != nil {
		return nil, err
	}
	unlock := f.locks.Lock(userID)
	defer unlock()

	return f.readLocked(userID, path)
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, s *WalletSession) error {
	if err := s.validate(); err != nil {
		return err
	}
	path, err := f.recordPath(s.UserID)
	if err != nil {
		return err
	}
	unlock := f.locks.Lock(s.UserID)
	defer unlock()

	return f.writeLocked(path, s)
}

// Delete implements Store. Deleting an absent record is not an error.
func (f *FileStore) Delete(_ context.Context, userID string) error {
	path, err := f.recordPath(userID)
	if err != nil {
		return err
	}
	unlock := f.locks.Lock(userID)
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session record: %w", err)
	}
	return nil
}

// Update implements Store.
func (f *FileStore) Update(_ context.Context, userID string, fn func(*WalletSession) error) (*WalletSession, error) {
	path, err := f.recordPath(userID)
	if err != nil {
		return nil, err
	}
	unlock := f.locks.Lock(userID)
	defer unlock()

	current, err := f.readLocked(userID, path)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrSessionNotFound
	}

	if err := fn(current); err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, fmt.Errorf("%w: user id changed during update", ErrInvalidRecord)
	}
	if err := current.validate(); err != nil {
		return nil, err
	}
	if err := f.writeLocked(path, current); err != nil {
		return nil, err
	}
	return current.Clone(), nil
}

// DeleteIf implements Store.
func (f *FileStore) DeleteIf(_ context.Context, userID string, pred func(*WalletSession) bool) (bool, error) {
	path, err := f.recordPath(userID)
	if err != nil {
		return false, err
	}
	unlock := f.locks.Lock(userID)
	defer unlock()

	current, err := f.readLocked(userID, path)
	if err != nil || current == nil || !pred(current) {
		return false, err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("removing session record: %w", err)
	}
	return true, nil
}

// LoadAll implements Store. Unreadable records are quarantined and skipped.
func (f *FileStore) LoadAll(ctx context.Context) (map[string]*WalletSession, error) {
	if f.closed.Load() {
		return nil, ErrStoreClosed
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	all := make(map[string]*WalletSession, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || fileutil.IsAuxiliary(name) || !strings.HasSuffix(name, recordFileExtension) {
			continue
		}
		userID, ok := decodeFileName(strings.TrimSuffix(name, recordFileExtension))
		if !ok {
			continue
		}
		s, err := f.Load(ctx, userID)
		if err != nil {
			return nil, err
		}
		if s != nil {
			all[s.UserID] = s
		}
	}
	return all, nil
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.closed.Store(true)
	return nil
}

// Dir returns the directory holding the records.
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) readLocked(userID, path string) (*WalletSession, error) {
	if f.closed.Load() {
		return nil, ErrStoreClosed
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path built by recordPath from a validated id
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil //nolint:nilnil // absent record is not an error
		}
		return nil, fmt.Errorf("reading session record: %w", err)
	}

	var s WalletSession
	decodeErr := json.Unmarshal(data, &s)
	if decodeErr == nil {
		decodeErr = s.validate()
	}
	if decodeErr == nil && s.UserID != userID {
		decodeErr = fmt.Errorf("%w: record belongs to another user", ErrInvalidRecord)
	}
	if decodeErr != nil {
		f.quarantine(userID, path, decodeErr)
		return nil, nil //nolint:nilnil // corrupted record is treated as absent
	}
	return &s, nil
}

func (f *FileStore) writeLocked(path string, s *WalletSession) error {
	if f.closed.Load() {
		return ErrStoreClosed
	}
	s.Format = RecordFormat
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, recordPermissions); err != nil {
		return fmt.Errorf("writing session record: %w", err)
	}
	return nil
}

func (f *FileStore) quarantine(userID, path string, cause error) {
	backup, err := fileutil.Quarantine(path, f.now())
	if err != nil {
		f.logger.Error("quarantining corrupted session failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	f.logger.Warn("corrupted session record quarantined",
		zap.String("user_id", userID),
		zap.String("backup", filepath.Base(backup)),
		zap.Error(cause))
	if f.onCorrupt != nil {
		f.onCorrupt(userID, backup, cause)
	}
}

// recordPath maps a user id to its file. Ids that are not plain file names
// are hex encoded, so no id can escape the directory.
func (f *FileStore) recordPath(userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidUserID
	}
	return filepath.Join(f.dir, encodeFileName(userID)+recordFileExtension), nil
}

func encodeFileName(userID string) string {
	if plainUserID.MatchString(userID) && !strings.HasPrefix(userID, encodedPrefix) {
		return userID
	}
	return encodedPrefix + hex.EncodeToString([]byte(userID))
}

func decodeFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, encodedPrefix) {
		return name, plainUserID.MatchString(name)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(name, encodedPrefix))
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}
