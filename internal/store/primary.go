package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 100

// ErrUnsupported is returned by writes when no database handle is configured
var ErrUnsupported = errors.New("durable storage is not available")

// ErrReadFailed marks a read that failed on a configured database, as
// opposed to a store that is merely empty
var ErrReadFailed = errors.New("durable storage read failed")

// PrimaryStore is the durable, asynchronous tier: one row per playlist
type PrimaryStore struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewPrimaryStore creates a durable store; a nil db yields an unsupported store
func NewPrimaryStore(db *gorm.DB, log *logger.Logger) *PrimaryStore {
	if log == nil {
		log = logger.AppLogger()
	}
	return &PrimaryStore{db: db, logger: log}
}

// IsSupported reports whether the database is configured and reachable
func (s *PrimaryStore) IsSupported(ctx context.Context) bool {
	if s.db == nil {
		return false
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

// GetAll returns every stored playlist in creation order.
// Read failures are logged and returned wrapping ErrReadFailed; an empty
// result with a nil error always means the table is empty.
func (s *PrimaryStore) GetAll(ctx context.Context) ([]models.Playlist, error) {
	if s.db == nil {
		return nil, ErrUnsupported
	}

	var records []models.PlaylistRecord
	err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&records).Error
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("failed to read playlists from durable storage", err)
		return nil, apperrors.StorageError("failed to read playlists", fmt.Errorf("%w: %w", ErrReadFailed, err))
	}

	playlists := make([]models.Playlist, len(records))
	for i, rec := range records {
		playlists[i] = rec.Playlist()
	}
	return playlists, nil
}

// Get returns the playlist with the given id, or nil when it does not exist.
// Read failures are logged and returned wrapping ErrReadFailed.
func (s *PrimaryStore) Get(ctx context.Context, id string) (*models.Playlist, error) {
	if s.db == nil {
		return nil, ErrUnsupported
	}

	var rec models.PlaylistRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.WithFields(map[string]interface{}{
			"playlist_id": id,
		}).Error("failed to read playlist from durable storage", err)
		return nil, apperrors.StorageError("failed to read playlist", fmt.Errorf("%w: %w", ErrReadFailed, err)).
			WithContext("playlist_id", id)
	}

	p := rec.Playlist()
	return &p, nil
}

// Put inserts or replaces one playlist by id
func (s *PrimaryStore) Put(ctx context.Context, p models.Playlist) error {
	if s.db == nil {
		return ErrUnsupported
	}

	rec := models.NewPlaylistRecord(p)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return apperrors.StorageError("failed to save playlist", err).WithContext("playlist_id", p.ID)
	}
	return nil
}

// PutAll replaces the whole collection atomically
func (s *PrimaryStore) PutAll(ctx context.Context, playlists []models.Playlist) error {
	if s.db == nil {
		return ErrUnsupported
	}

	records := make([]models.PlaylistRecord, len(playlists))
	for i, p := range playlists {
		records[i] = models.NewPlaylistRecord(p)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PlaylistRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(&records, insertBatchSize).Error
	})
	if err != nil {
		return apperrors.StorageError("failed to save playlists", err).WithContext("count", len(playlists))
	}
	return nil
}

// Delete removes one playlist and reports whether it existed
func (s *PrimaryStore) Delete(ctx context.Context, id string) (bool, error) {
	if s.db == nil {
		return false, ErrUnsupported
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PlaylistRecord{})
	if result.Error != nil {
		return false, apperrors.StorageError("failed to delete playlist", result.Error).WithContext("playlist_id", id)
	}
	return result.RowsAffected > 0, nil
}

// Clear removes every playlist
func (s *PrimaryStore) Clear(ctx context.Context) error {
	if s.db == nil {
		return ErrUnsupported
	}

	err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PlaylistRecord{}).Error
	if err != nil {
		return apperrors.StorageError("failed to clear playlists", err)
	}
	return nil
}
