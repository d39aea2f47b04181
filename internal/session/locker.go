package session

import "sync"

// Locker hands out one mutex per key. Entries are dropped once no goroutine
// holds or waits for them, so the map does not grow with every user seen.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

type keyedMutex struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyedMutex)}
}

// Lock blocks until key is free and returns its unlock function.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	km, ok := l.locks[key]
	if !ok {
		km = &keyedMutex{}
		l.locks[key] = km
	}
	km.refs++
	l.mu.Unlock()

	km.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			km.mu.Unlock()

			l.mu.Lock()
			km.refs--
			if km.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
