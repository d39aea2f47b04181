// Package cache keeps asset parameters fetched from the node. Creator,
// decimals and unit name are fixed at creation, so entries are only dropped
// once they are older than the configured age.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/algointent/walletcore/internal/ledger"
)

// DefaultMaxAge is how long an asset entry is served before it is fetched again.
const DefaultMaxAge = time.Hour

// AssetCache stores asset parameters by id.
type AssetCache struct {
	mu      sync.RWMutex
	entries map[uint64]entry
	maxAge  time.Duration
	now     func() time.Time
}

type entry struct {
	asset     ledger.Asset
	updatedAt time.Time
}

// Option configures an AssetCache.
type Option func(*AssetCache)

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(c *AssetCache) { c.now = now }
}

// NewAssetCache creates an empty cache. A non-positive maxAge uses DefaultMaxAge.
func NewAssetCache(maxAge time.Duration, opts ...Option) *AssetCache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	c := &AssetCache{
		entries: make(map[uint64]entry),
		maxAge:  maxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached asset. Stale entries are misses.
func (c *AssetCache) Get(id uint64) (*ledger.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok || c.now().Sub(e.updatedAt) > c.maxAge {
		return nil, false
	}
	a := e.asset
	return &a, true
}

// Set stores a.
func (c *AssetCache) Set(a ledger.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[a.ID] = entry{asset: a, updatedAt: c.now()}
}

// Delete removes an entry.
func (c *AssetCache) Delete(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Size returns the number of entries, stale ones included.
func (c *AssetCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prune removes stale entries and returns how many were removed.
func (c *AssetCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := c.now().Add(-c.maxAge)
	for id, e := range c.entries {
		if e.updatedAt.Before(cutoff) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Ledger serves AssetInfo from an AssetCache and passes every other call
// through to the wrapped client.
type Ledger struct {
	ledger.Client
	assets *AssetCache
}

var _ ledger.Client = (*Ledger)(nil)

// WrapLedger returns client with cached asset lookups.
func WrapLedger(client ledger.Client, assets *AssetCache) *Ledger {
	return &Ledger{Client: client, assets: assets}
}

// AssetInfo returns the cached asset or fetches and caches it. Errors are
// not cached.
func (l *Ledger) AssetInfo(ctx context.Context, assetID uint64) (*ledger.Asset, error) {
	if a, ok := l.assets.Get(assetID); ok {
		return a, nil
	}
	a, err := l.Client.AssetInfo(ctx, assetID)
	if err != nil {
		return nil, err
	}
	l.assets.Set(*a)
	return a, nil
}

// Assets returns the underlying cache.
func (l *Ledger) Assets() *AssetCache {
	return l.assets
}
