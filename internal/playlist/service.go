// Package playlist orchestrates parsing, persistence and refresh of playlists.
package playlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/glefebvre/iptvcore/internal/idgen"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/metrics"
	"github.com/glefebvre/iptvcore/internal/models"
	"github.com/glefebvre/iptvcore/internal/parser"
)

// ErrNoFetcher is returned by RefreshPlaylist when the service cannot download
var ErrNoFetcher = errors.New("no fetcher configured")

// Repository persists whole playlists
type Repository interface {
	Load(ctx context.Context) ([]models.Playlist, error)
	Add(ctx context.Context, p models.Playlist) error
	Update(ctx context.Context, id string, mutate func(*models.Playlist)) (*models.Playlist, error)
	Delete(ctx context.Context, id string) (bool, error)
	Find(ctx context.Context, id string) (*models.Playlist, error)
}

// Fetcher downloads playlist text
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Update is a partial change to a playlist; nil fields are left as they are
type Update struct {
	Name *string
	URL  *string
}

// Service is the entry point for playlist operations
type Service struct {
	repo    Repository
	fetcher Fetcher
	parser  *parser.Parser
	logger  *logger.Logger
	now     func() time.Time
}

// NewService creates a playlist service
func NewService(repo Repository, fetcher Fetcher, p *parser.Parser, log *logger.Logger) *Service {
	if log == nil {
		log = logger.AppLogger()
	}
	if p == nil {
		p = parser.NewParser(log)
	}
	return &Service{
		repo:    repo,
		fetcher: fetcher,
		parser:  p,
		logger:  log,
		now:     time.Now,
	}
}

// Parse parses content and records its warnings
func (s *Service) Parse(content string) parser.Result {
	result := s.parser.Parse(content)
	if n := len(result.Errors); n > 0 {
		metrics.ParseWarnings.Add(float64(n))
		s.logger.WithFields(map[string]interface{}{
			"warnings": n,
			"first":    result.Errors[0],
		}).Warn("skipped malformed EXTINF lines")
	}
	return result
}

// LoadPlaylists returns every playlist with channel ids unique across the collection
func (s *Service) LoadPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return s.repo.Load(ctx)
}

// AddPlaylist parses content into a new playlist and persists it
func (s *Service) AddPlaylist(ctx context.Context, name, content, url string) (*models.Playlist, error) {
	result := s.Parse(content)
	now := s.now()

	p := models.Playlist{
		ID:        idgen.PlaylistID(),
		Name:      name,
		URL:       url,
		Channels:  result.Channels,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Channels == nil {
		p.Channels = []models.Channel{}
	}

	if err := s.repo.Add(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"playlist_id": p.ID,
		"channels":    len(p.Channels),
	}).Info("playlist added")
	return &p, nil
}

// UpdatePlaylist applies a partial update; it returns nil when the playlist does not exist
func (s *Service) UpdatePlaylist(ctx context.Context, id string, update Update) (*models.Playlist, error) {
	return s.repo.Update(ctx, id, func(p *models.Playlist) {
		if update.Name != nil {
			p.Name = *update.Name
		}
		if update.URL != nil {
			p.URL = *update.URL
		}
		p.UpdatedAt = s.now()
	})
}

// DeletePlaylist removes a playlist and reports whether it existed
func (s *Service) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.WithFields(map[string]interface{}{"playlist_id": id}).Info("playlist deleted")
	}
	return deleted, nil
}

// RefreshPlaylist re-downloads a playlist from its URL and replaces its channels.
// It returns nil when the playlist does not exist or has no URL; download
// errors are returned to the caller.
func (s *Service) RefreshPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.HasURL() {
		return nil, nil
	}
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}

	content, err := s.fetcher.Fetch(ctx, p.URL)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"playlist_id": id,
			"url":         p.URL,
		}).Error("failed to refresh playlist", err)
		return nil, err
	}

	result := s.Parse(content)
	channels := result.Channels
	if channels == nil {
		channels = []models.Channel{}
	}

	updated, err := s.repo.Update(ctx, id, func(p *models.Playlist) {
		p.Channels = channels
		p.UpdatedAt = s.now()
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		s.logger.WithFields(map[string]interface{}{
			"playlist_id": id,
			"channels":    len(updated.Channels),
		}).Info("playlist refreshed")
	}
	return updated, nil
}

// SearchChannels returns channels of all playlists whose name or group
// contains query, ignoring case
func (s *Service) SearchChannels(ctx context.Context, query string) ([]models.Channel, error) {
	channels, err := s.AllChannels(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	matches := []models.Channel{}
	for _, ch := range channels {
		if strings.Contains(strings.ToLower(ch.Name), q) || strings.Contains(strings.ToLower(ch.Group), q) {
			matches = append(matches, ch)
		}
	}
	return matches, nil
}

// GetPlaylist returns one playlist, or nil when it does not exist
func (s *Service) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	return s.repo.Find(ctx, id)
}

// AllChannels returns the channels of every playlist in collection order
func (s *Service) AllChannels(ctx context.Context) ([]models.Channel, error) {
	playlists, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	channels := []models.Channel{}
	for _, p := range playlists {
		channels = append(channels, p.Channels...)
	}
	return channels, nil
}
