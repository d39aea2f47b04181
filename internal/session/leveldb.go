package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix = "session/"
	backupKeyPrefix  = "backup/"
)

// LevelStore keeps one record per user in a LevelDB database. Every write is
// synced, and quarantine moves the raw bytes to a backup key in one batch.
type LevelStore struct {
	db        *leveldb.DB
	locks     *Locker
	logger    *zap.Logger
	now       func() time.Time
	onCorrupt CorruptionHandler
	sync      *opt.WriteOptions
}

// OpenLevelStore opens (or creates) the database at path.
func OpenLevelStore(path string, opts ...StoreOption) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	o := applyStoreOptions(opts)
	return &LevelStore{
		db:        db,
		locks:     NewLocker(),
		logger:    o.logger.Named("session.leveldb"),
		now:       o.now,
		onCorrupt: o.onCorrupt,
		sync:      &opt.WriteOptions{Sync: true},
	}, nil
}

func sessionKey(userID string) []byte {
	return []byte(sessionKeyPrefix + userID)
}

// Load implements Store.
func (l *LevelStore) Load(_ context.Context, userID string) (*WalletSession, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	unlock := l.locks.Lock(userID)
	defer unlock()

	return l.readLocked(userID)
}

// Save implements Store.
func (l *LevelStore) Save(_ context.Context, s *WalletSession) error {
	if err := s.validate(); err != nil {
		return err
	}
	unlock := l.locks.Lock(s.UserID)
	defer unlock()

	return l.writeLocked(s)
}

// Delete implements Store.
func (l *LevelStore) Delete(_ context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	unlock := l.locks.Lock(userID)
	defer unlock()

	if err := l.db.Delete(sessionKey(userID), l.sync); err != nil {
		return mapLevelErr("deleting session record", err)
	}
	return nil
}

// Update implements Store.
func (l *LevelStore) Update(_ context.Context, userID string, fn func(*WalletSession) error) (*WalletSession, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	unlock := l.locks.Lock(userID)
	defer unlock()

	current, err := l.readLocked(userID)
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
	if err := l.writeLocked(current); err != nil {
		return nil, err
	}
	return current.Clone(), nil
}

// DeleteIf implements Store.
func (l *LevelStore) DeleteIf(_ context.Context, userID string, pred func(*WalletSession) bool) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUserID
	}
	unlock := l.locks.Lock(userID)
	defer unlock()

	current, err := l.readLocked(userID)
	if err != nil || current == nil || !pred(current) {
		return false, err
	}
	if err := l.db.Delete(sessionKey(userID), l.sync); err != nil {
		return false, mapLevelErr("deleting session record", err)
	}
	return true, nil
}

// LoadAll implements Store.
func (l *LevelStore) LoadAll(ctx context.Context) (map[string]*WalletSession, error) {
	var ids []string
	iter := l.db.NewIterator(util.BytesPrefix([]byte(sessionKeyPrefix)), nil)
	for iter.Next() {
		ids = append(ids, strings.TrimPrefix(string(iter.Key()), sessionKeyPrefix))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, mapLevelErr("iterating session records", err)
	}

	all := make(map[string]*WalletSession, len(ids))
	for _, id := range ids {
		s, err := l.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			all[id] = s
		}
	}
	return all, nil
}

// Close implements Store.
func (l *LevelStore) Close() error {
	return l.db.Close()
}

// Backups returns the quarantined raw records for a user, keyed by unix time.
func (l *LevelStore) Backups(userID string) (map[string][]byte, error) {
	prefix := backupKeyPrefix + userID + "/"
	out := make(map[string][]byte)
	iter := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	for iter.Next() {
		out[strings.TrimPrefix(string(iter.Key()), prefix)] = append([]byte(nil), iter.Value()...)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, mapLevelErr("iterating backups", err)
	}
	return out, nil
}

// PutRaw stores raw bytes under a user's record key. Used by recovery tooling
// and tests to inject records that bypass validation.
func (l *LevelStore) PutRaw(userID string, data []byte) error {
	return mapLevelErr("writing raw record", l.db.Put(sessionKey(userID), data, l.sync))
}

func (l *LevelStore) readLocked(userID string) (*WalletSession, error) {
	data, err := l.db.Get(sessionKey(userID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil //nolint:nilnil // absent record is not an error
	}
	if err != nil {
		return nil, mapLevelErr("reading session record", err)
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
		l.quarantine(userID, data, decodeErr)
		return nil, nil //nolint:nilnil // corrupted record is treated as absent
	}
	return &s, nil
}

func (l *LevelStore) writeLocked(s *WalletSession) error {
	s.Format = RecordFormat
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}
	return mapLevelErr("writing session record", l.db.Put(sessionKey(s.UserID), data, l.sync))
}

func (l *LevelStore) quarantine(userID string, raw []byte, cause error) {
	backup := backupKeyPrefix + userID + "/" + strconv.FormatInt(l.now().Unix(), 10)

	batch := new(leveldb.Batch)
	batch.Put([]byte(backup), raw)
	batch.Delete(sessionKey(userID))
	if err := l.db.Write(batch, l.sync); err != nil {
		l.logger.Error("quarantining corrupted session failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	l.logger.Warn("corrupted session record quarantined",
		zap.String("user_id", userID),
		zap.String("backup", backup),
		zap.Error(cause))
	if l.onCorrupt != nil {
		l.onCorrupt(userID, backup, cause)
	}
}

func mapLevelErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrStoreClosed
	}
	return fmt.Errorf("%s: %w", op, err)
}
