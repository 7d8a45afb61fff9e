// Package history keeps a log of the previews the service has served.
//
// The log is for operators and clients who want to see what was sampled
// and how it went. It is never read back to answer a preview request.
package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Entry describes one served preview.
type Entry struct {
	ID          string    `json:"id" db:"id"`
	Source      string    `json:"source" db:"source"`
	Type        string    `json:"type" db:"type"`
	Compression string    `json:"compression,omitempty" db:"compression"`
	Status      string    `json:"status" db:"status"`
	FieldCount  int       `json:"fieldCount" db:"field_count"`
	RecordCount int       `json:"recordCount" db:"record_count"`
	DurationMs  int64     `json:"durationMs" db:"duration_ms"`
	ClientIP    string    `json:"clientIp,omitempty" db:"client_ip"`
	UserAgent   string    `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Recorder stores entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Store is a Recorder that can also be queried and pruned.
type Store interface {
	Recorder
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// DefaultMemoryCapacity is the number of entries a MemoryStore keeps when
// no capacity is given.
const DefaultMemoryCapacity = 500

// MemoryStore keeps the most recent entries in memory. It is used when no
// database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

// NewMemoryStore returns a store holding at most capacity entries; older
// entries are overwritten.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Record implements Recorder.
func (m *MemoryStore) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// snapshot returns the stored entries, newest first. Caller holds the lock.
func (m *MemoryStore) snapshot() []Entry {
	n := m.next
	if m.full {
		n = len(m.entries)
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out
}

// Recent returns up to limit entries, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.snapshot()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns the entry with the given ID.
func (m *MemoryStore) Get(_ context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.snapshot() {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// PurgeOlderThan drops entries created more than age ago.
func (m *MemoryStore) PurgeOlderThan(_ context.Context, age time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-age)
	kept := m.snapshot()
	var purged int64
	survivors := kept[:0]
	for _, e := range kept {
		if e.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		survivors = append(survivors, e)
	}
	if purged == 0 {
		return 0, nil
	}

	// Rebuild the ring oldest first.
	capacity := len(m.entries)
	m.entries = make([]Entry, capacity)
	m.next = 0
	m.full = false
	for i := len(survivors) - 1; i >= 0; i-- {
		m.entries[m.next] = survivors[i]
		m.next = (m.next + 1) % capacity
		if m.next == 0 {
			m.full = true
		}
	}
	return purged, nil
}
