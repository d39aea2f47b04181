package vault

import (
	"runtime"
	"sync"
)

// SecureBytes holds a decrypted secret in mlocked memory that is zeroed on
// Destroy. Plaintext secret phrases only ever live in one of these.
type SecureBytes struct {
	data   []byte
	locked bool
	mu     sync.Mutex
}

// NewSecureBytes creates a new SecureBytes with the given size.
// The memory is locked if the system supports it.
func NewSecureBytes(size int) (*SecureBytes, error) {
	return newSecureBytes(size, true)
}

func newSecureBytes(size int, lock bool) (*SecureBytes, error) {
	sb := &SecureBytes{data: make([]byte, size)}

	// Try to lock memory - don't fail if not possible
	if lock {
		sb.locked = mlock(sb.data)
	}

	runtime.SetFinalizer(sb, func(s *SecureBytes) {
		s.Destroy()
	})

	return sb, nil
}

// SecureBytesFromSlice copies data into a new SecureBytes.
func SecureBytesFromSlice(data []byte) (*SecureBytes, error) {
	return secureCopy(data, true)
}

func secureCopy(data []byte, lock bool) (*SecureBytes, error) {
	sb, err := newSecureBytes(len(data), lock)
	if err != nil {
		return nil, err
	}
	copy(sb.data, data)
	return sb, nil
}

// Bytes returns the underlying byte slice, or nil after Destroy.
func (s *SecureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// String copies the secret into a Go string. Strings cannot be zeroed, so
// callers keep the result short-lived.
func (s *SecureBytes) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data)
}

// IsLocked returns whether the memory is mlocked.
func (s *SecureBytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Destroy zeros the memory and unlocks it. Safe to call multiple times.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}

	zero(s.data)
	if s.locked {
		munlock(s.data)
		s.locked = false
	}
	s.data = nil

	runtime.SetFinalizer(s, nil)
}

// Len returns the length of the data.
func (s *SecureBytes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
