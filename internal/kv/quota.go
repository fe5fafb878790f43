package kv

import (
	"fmt"
	"sync"
)

// Quota bounds the total size of keys and values held by a Store
type Quota struct {
	mu    sync.Mutex
	store Store
	max   int64
	used  int64
}

// WithQuota wraps store with a byte budget, measuring what it already holds
func WithQuota(store Store, maxBytes int64) (*Quota, error) {
	keys, err := store.Keys("")
	if err != nil {
		return nil, fmt.Errorf("measure store usage: %w", err)
	}

	var used int64
	for _, k := range keys {
		v, ok, err := store.Get(k)
		if err != nil {
			return nil, fmt.Errorf("measure store usage: %w", err)
		}
		if ok {
			used += entrySize(k, v)
		}
	}

	return &Quota{store: store, max: maxBytes, used: used}, nil
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

// Get reads through to the wrapped store
func (q *Quota) Get(key string) ([]byte, bool, error) {
	return q.store.Get(key)
}

// Set writes value unless the new total would exceed the budget
func (q *Quota) Set(key string, value []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	old, ok, err := q.store.Get(key)
	if err != nil {
		return err
	}
	var previous int64
	if ok {
		previous = entrySize(key, old)
	}

	next := q.used - previous + entrySize(key, value)
	if next > q.max {
		return fmt.Errorf("set %s (%d bytes, budget %d): %w", key, len(value), q.max, ErrQuotaExceeded)
	}

	if err := q.store.Set(key, value); err != nil {
		return err
	}
	q.used = next
	return nil
}

// Delete removes key and releases its share of the budget
func (q *Quota) Delete(key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	old, ok, err := q.store.Get(key)
	if err != nil {
		return err
	}
	if err := q.store.Delete(key); err != nil {
		return err
	}
	if ok {
		q.used -= entrySize(key, old)
	}
	return nil
}

// Keys lists keys of the wrapped store
func (q *Quota) Keys(prefix string) ([]string, error) {
	return q.store.Keys(prefix)
}

// Used returns the bytes currently accounted for
func (q *Quota) Used() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

// Close closes the wrapped store
func (q *Quota) Close() error {
	return q.store.Close()
}
