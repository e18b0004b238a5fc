package ratestore

import (
	"context"
	"sync"
	"time"
)

// Memory is a Store for single-process deployments.
type Memory struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewMemory() *Memory {
	return &Memory{last: map[string]int64{}}
}

func (m *Memory) Allow(_ context.Context, key string, now time.Time, window time.Duration) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.last[key]
	d := decide(ts, ok, now, window)
	if d.Allowed {
		m.last[key] = now.Unix()
	}
	return d, nil
}

func (m *Memory) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pruneTable(m.last, before), nil
}

func (m *Memory) Close() error { return nil }

// Len is the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.last)
}

func pruneTable(table map[string]int64, before time.Time) int {
	cutoff := before.Unix()
	n := 0
	for k, ts := range table {
		if ts < cutoff {
			delete(table, k)
			n++
		}
	}
	return n
}
