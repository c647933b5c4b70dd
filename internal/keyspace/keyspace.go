// Package keyspace implements the two-tier key-value store: a live map
// mutated by SET, and a read-only snapshot map populated once at startup
// from a decoded RDB file. Both tiers apply lazy expiration on access.
//
// Grounded on the teacher's internal/state/state.go Store (a single
// sync.Mutex wrapping every load/write section); adapted here from a
// JSON-persisted-to-disk snapshot to an in-memory live/snapshot pair with
// no persistence at all.
package keyspace

import (
	"sync"
	"time"
)

// Entry is a stored value plus its optional absolute expiry instant.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time // zero value means no expiry
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Engine is the shared mutable keyspace. All operations are serialized by
// a single mutex, matching the simplest acceptable concurrency model: no
// get observes a half-installed set, no two sets interleave.
type Engine struct {
	mu       sync.Mutex
	live     map[string]Entry
	snapshot map[string]Entry
}

// New returns an Engine with an empty live store and the given snapshot
// entries (may be nil). The caller owns snapshot only via this call; the
// engine takes ownership of the map from here on.
func New(snapshot map[string]Entry) *Engine {
	if snapshot == nil {
		snapshot = make(map[string]Entry)
	}
	return &Engine{
		live:     make(map[string]Entry),
		snapshot: snapshot,
	}
}

// Set unconditionally installs a live entry, replacing any prior live
// entry for key. A zero ttl means the entry never expires.
func (e *Engine) Set(key string, value []byte, ttl time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := Entry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	e.live[key] = entry
}

// Get resolves key against the live store first, then the snapshot
// store, lazily evicting whichever entry it finds expired.
func (e *Engine) Get(key string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()

	if entry, ok := e.live[key]; ok {
		if entry.expired(now) {
			delete(e.live, key)
			return nil, false
		}
		return entry.Value, true
	}

	if entry, ok := e.snapshot[key]; ok {
		if entry.expired(now) {
			delete(e.snapshot, key)
			return nil, false
		}
		return entry.Value, true
	}

	return nil, false
}

// Delete removes a live entry. It is not currently reachable from any
// command; Get performs its own lazy-expiry eviction inline under the lock
// and does not call Delete.
func (e *Engine) Delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.live, key)
}

// Counts reports the raw entry count of each tier, for diagnostics only
// (it does not filter expired entries, matching KeysStar's "may filter
// without evicting" allowance but without even that filtering pass).
func (e *Engine) Counts() (live, snapshot int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live), len(e.snapshot)
}

// KeysStar returns the union of non-expired keys from both stores, live
// shadowing snapshot. Order is unspecified. Expired entries are filtered
// without being evicted here.
func (e *Engine) KeysStar() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	seen := make(map[string]struct{}, len(e.live)+len(e.snapshot))
	keys := make([]string, 0, len(e.live)+len(e.snapshot))

	for k, entry := range e.live {
		if entry.expired(now) {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k, entry := range e.snapshot {
		if _, ok := seen[k]; ok {
			continue
		}
		if entry.expired(now) {
			continue
		}
		keys = append(keys, k)
	}

	return keys
}
