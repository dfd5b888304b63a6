package cache

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold is the entry count at which Set first drops expired entries.
const sweepThreshold = 1024

// MemoryStore keeps entries for the life of the process. Expired entries are
// removed when read, or in bulk once the map grows past the sweep mark.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	now       func() time.Time
	sweepMark int
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore returns an empty store; now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: now, sweepMark: sweepThreshold}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Set stores a copy of value. A non-positive ttl never expires.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.sweepMark {
		m.sweep(m.now())
	}
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// sweep drops expired entries and moves the mark so a map of live entries
// is not rescanned on every insert. Callers hold m.mu.
func (m *MemoryStore) sweep(now time.Time) {
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
	m.sweepMark = max(sweepThreshold, 2*len(m.entries))
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ Store = (*MemoryStore)(nil)
