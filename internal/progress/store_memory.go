package progress

import (
	"context"
	"sync"
	"sync/atomic"
)

type counters struct {
	total   atomic.Int64
	current atomic.Int64
	success atomic.Int64
	failed  atomic.Int64
}

// MemoryTracker is the in-process twin of RedisTracker for tests and
// single-node development. Increments use sync/atomic, not a lock held
// across the update, mirroring the atomicity contract.
type MemoryTracker struct {
	mu   sync.RWMutex
	keys map[string]*counters
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{keys: make(map[string]*counters)}
}

func (t *MemoryTracker) SetTotal(_ context.Context, key string, total int64) error {
	c := &counters{}
	c.total.Store(total)
	t.mu.Lock()
	t.keys[key] = c
	t.mu.Unlock()
	return nil
}

func (t *MemoryTracker) Increment(_ context.Context, key string, fields ...Field) error {
	c := t.get(key)
	if c == nil {
		// Unknown key: counters appear on first increment, same as a Redis
		// HINCRBY against a missing hash.
		t.mu.Lock()
		if t.keys[key] == nil {
			t.keys[key] = &counters{}
		}
		c = t.keys[key]
		t.mu.Unlock()
	}
	for _, f := range fields {
		switch f {
		case FieldCurrent:
			c.current.Add(1)
		case FieldSuccess:
			c.success.Add(1)
		case FieldFailed:
			c.failed.Add(1)
		}
	}
	return nil
}

func (t *MemoryTracker) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	delete(t.keys, key)
	t.mu.Unlock()
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, key string) (Progress, error) {
	c := t.get(key)
	if c == nil {
		return Progress{}, nil
	}
	p := Progress{
		Total:   c.total.Load(),
		Current: c.current.Load(),
		Success: c.success.Load(),
		Failed:  c.failed.Load(),
	}
	p.Percent = percent(p.Current, p.Total)
	return p, nil
}

func (t *MemoryTracker) get(key string) *counters {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.keys[key]
}
