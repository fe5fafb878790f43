package kv

import (
	"errors"
	"fmt"
	"time"
)

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// DefaultQuotaBytes is the default byte budget of a quota-limited store
const DefaultQuotaBytes = 5 << 20

// ErrQuotaExceeded is returned by a quota-bound store when a write would
// push the total size of keys and values past the budget
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store is a small synchronous string-keyed byte store
type Store interface {
	// Get returns the value and whether the key exists
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error
	// Keys lists the keys starting with prefix in lexical order
	Keys(prefix string) ([]string, error)
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Backend    string
	BoltPath   string
	RedisURL   string
	OpTimeout  time.Duration
	QuotaBytes int64
}

// Open creates the configured backend, wrapped with a quota when QuotaBytes > 0
func Open(cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case "", BackendMemory:
		store = NewMemory()
	case BackendBolt:
		store, err = NewBolt(cfg.BoltPath)
	case BackendRedis:
		store, err = NewRedis(cfg.RedisURL, cfg.OpTimeout)
	default:
		return nil, fmt.Errorf("unknown key/value backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.QuotaBytes <= 0 {
		return store, nil
	}

	quota, err := WithQuota(store, cfg.QuotaBytes)
	if err != nil {
		store.Close()
		return nil, err
	}
	return quota, nil
}
