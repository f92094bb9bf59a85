package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const DefaultMaxKeys = 100_000

type window struct {
	key     string
	count   int
	started time.Time
}

// Memory is a process-local limiter. Keys are evicted least recently attempted
// first once MaxKeys is reached.
type Memory struct {
	mu      sync.Mutex
	maxKeys int
	now     func() time.Time
	order   *list.List
	entries map[string]*list.Element
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func WithMaxKeys(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxKeys = n
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		maxKeys: DefaultMaxKeys,
		now:     time.Now,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

var _ Limiter = (*Memory)(nil)

func (m *Memory) IsLimited(_ context.Context, key string, limit int, win time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	el, ok := m.entries[key]
	if !ok {
		m.insert(key, now)
		observe("memory", false)
		return false, nil
	}

	m.order.MoveToFront(el)
	w := el.Value.(*window)
	if now.Sub(w.started) >= win {
		w.count = 1
		w.started = now
		observe("memory", false)
		return false, nil
	}
	if w.count >= limit {
		observe("memory", true)
		return true, nil
	}
	w.count++
	observe("memory", false)
	return false, nil
}

func (m *Memory) insert(key string, now time.Time) {
	for m.order.Len() >= m.maxKeys {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*window).key)
	}
	m.entries[key] = m.order.PushFront(&window{key: key, count: 1, started: now})
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
