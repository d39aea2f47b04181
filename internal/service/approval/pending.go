package approval

import (
	"sync"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// DefaultPendingTTL bounds how long an operation waits for its password.
const DefaultPendingTTL = 10 * time.Minute

// PendingOperation is a staged operation awaiting its password. It lives
// only in memory and is consumed at most once.
type PendingOperation struct {
	ID        string
	UserID    string
	Kind      Kind
	From      string
	Txns      []types.Transaction
	Summary   Summary
	AssetID   uint64
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (p *PendingOperation) expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// pendingStore holds at most one PendingOperation per user.
type pendingStore struct {
	mu  sync.Mutex
	ops map[string]*PendingOperation
}

func newPendingStore() *pendingStore {
	return &pendingStore{ops: make(map[string]*PendingOperation)}
}

func (s *pendingStore) get(userID string) *PendingOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops[userID]
}

func (s *pendingStore) put(op *PendingOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[op.UserID] = op
}

// take removes and returns the user's operation.
func (s *pendingStore) take(userID string) *PendingOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := s.ops[userID]
	delete(s.ops, userID)
	return op
}

// expired removes and returns every operation expired at now.
func (s *pendingStore) expired(now time.Time) []*PendingOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*PendingOperation
	for id, op := range s.ops {
		if op.expired(now) {
			out = append(out, op)
			delete(s.ops, id)
		}
	}
	return out
}

func (s *pendingStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops)
}
