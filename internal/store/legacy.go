package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/kv"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/models"
)

// LegacyKey is the key holding the whole playlist collection as one JSON array
const LegacyKey = "iptv-playlists"

// LegacyStore is the small synchronous tier: the full collection serialized
// under a single key. Read-modify-write cycles go through Modify, which holds
// a lock for the whole cycle.
type LegacyStore struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *logger.Logger
}

// NewLegacyStore creates a legacy store over a key/value backend
func NewLegacyStore(store kv.Store, log *logger.Logger) *LegacyStore {
	if log == nil {
		log = logger.AppLogger()
	}
	return &LegacyStore{kv: store, logger: log}
}

// LoadAll returns the stored collection; missing or corrupt data yields an empty list
func (s *LegacyStore) LoadAll() []models.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// SaveAll replaces the stored collection
func (s *LegacyStore) SaveAll(playlists []models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(playlists)
}

// Modify runs a read-modify-write cycle under the store lock. The collection
// is written back only when fn reports a change.
func (s *LegacyStore) Modify(fn func([]models.Playlist) ([]models.Playlist, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := fn(s.load())
	if !changed {
		return nil
	}
	return s.save(next)
}

// HasData reports whether anything is stored under the legacy key
func (s *LegacyStore) HasData() bool {
	_, ok, err := s.kv.Get(LegacyKey)
	return err == nil && ok
}

// Clear removes the legacy key
func (s *LegacyStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(LegacyKey); err != nil {
		return apperrors.StorageError("failed to clear legacy playlists", err)
	}
	return nil
}

func (s *LegacyStore) load() []models.Playlist {
	data, ok, err := s.kv.Get(LegacyKey)
	if err != nil {
		s.logger.Error("failed to read legacy playlists", err)
		return []models.Playlist{}
	}
	if !ok {
		return []models.Playlist{}
	}

	var playlists []models.Playlist
	if err := json.Unmarshal(data, &playlists); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"bytes": len(data),
		}).Error("legacy playlists are corrupt, ignoring them", err)
		return []models.Playlist{}
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	return playlists
}

func (s *LegacyStore) save(playlists []models.Playlist) error {
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	data, err := json.Marshal(playlists)
	if err != nil {
		return fmt.Errorf("encode legacy playlists: %w", err)
	}
	if err := s.kv.Set(LegacyKey, data); err != nil {
		code := apperrors.CodeStorage
		if errors.Is(err, kv.ErrQuotaExceeded) {
			code = apperrors.CodeQuotaExceeded
		}
		return apperrors.Wrap(err, code, "failed to write legacy playlists").WithContext("count", len(playlists))
	}
	return nil
}
