package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// memoryEntry stores a decision with TTL and the generation it was computed in
type memoryEntry struct {
	entry     Entry
	gen       uint64
	expiresAt time.Time
}

// Memory is a process-local TTL cache over sync.Map
type Memory struct {
	entries sync.Map // key -> memoryEntry
	gen     atomic.Uint64
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	v, ok := m.entries.Load(key)
	if !ok {
		return Entry{}, false, nil
	}
	cached := v.(memoryEntry)
	if cached.gen != m.gen.Load() || !m.now().Before(cached.expiresAt) {
		m.entries.Delete(key)
		return Entry{}, false, nil
	}
	return cached.entry, true, nil
}

func (m *Memory) Generation(context.Context) (uint64, error) {
	return m.gen.Load(), nil
}

// Set stores the entry under the generation it was computed in. Writes for
// an older generation are discarded; one racing an Invalidate keeps its
// stale gen and is ignored by Get.
func (m *Memory) Set(_ context.Context, key string, gen uint64, e Entry) error {
	if gen != m.gen.Load() {
		return nil
	}
	m.entries.Store(key, memoryEntry{
		entry:     e,
		gen:       gen,
		expiresAt: m.now().Add(m.ttl),
	})
	return nil
}

// Invalidate bumps the generation so entries stored before the call are
// ignored, then clears them
func (m *Memory) Invalidate(_ context.Context) error {
	m.gen.Add(1)
	m.entries.Range(func(key, _ interface{}) bool {
		m.entries.Delete(key)
		return true
	})
	return nil
}
