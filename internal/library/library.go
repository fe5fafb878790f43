// Package library is the storage-aware entry point used by the CLI and the
// HTTP API: it validates input, saves through the playlist service and keeps
// the per-group split records in step with the saved playlists.
package library

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/glefebvre/iptvcore/internal/config"
	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/fetcher"
	"github.com/glefebvre/iptvcore/internal/filter"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/models"
	"github.com/glefebvre/iptvcore/internal/parser"
	"github.com/glefebvre/iptvcore/internal/playlist"
	"github.com/glefebvre/iptvcore/internal/splitter"
)

// ErrNoChannels is returned by ValidateContent when nothing could be parsed
var ErrNoChannels = apperrors.New(apperrors.CodeNoChannels, "no valid channels found")

// Library combines the playlist service with the group splitter
type Library struct {
	service  *playlist.Service
	splitter *splitter.Splitter
	fetcher  playlist.Fetcher
	logger   *logger.Logger

	exportFilters config.FilterConfig
}

// ExportOptions narrows an export to matching channels. A non-empty pattern
// set replaces the configured default for its attribute.
type ExportOptions struct {
	Group config.PatternConfig
	Name  config.PatternConfig
}

// New creates a library; f may be nil when remote playlists are not used
func New(service *playlist.Service, sp *splitter.Splitter, f playlist.Fetcher, log *logger.Logger) *Library {
	if log == nil {
		log = logger.AppLogger()
	}
	return &Library{
		service:  service,
		splitter: sp,
		fetcher:  f,
		logger:   log,
	}
}

// SetExportFilters sets the default filters applied by Export
func (l *Library) SetExportFilters(cfg config.FilterConfig) error {
	if err := filter.NewManager().LoadFromConfig(cfg); err != nil {
		return err
	}
	l.exportFilters = cfg
	return nil
}

// Service returns the underlying playlist service
func (l *Library) Service() *playlist.Service {
	return l.service
}

// SavePlaylist validates, parses and persists a playlist, then splits it by
// group when it is large. A failed split is logged and leaves the saved
// playlist in place.
func (l *Library) SavePlaylist(ctx context.Context, name, content, rawURL string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ValidationError("Playlist name is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.ValidationError("Playlist content is required")
	}

	p, err := l.service.AddPlaylist(ctx, name, content, rawURL)
	if err != nil {
		return nil, wrap(err, apperrors.CodeStorage, "failed to save playlist")
	}

	// A failed split is already logged and leaves the saved record in place
	_, _ = l.splitIfLarge(p)

	l.logger.WithFields(map[string]interface{}{
		"playlist_id": p.ID,
		"name":        p.Name,
		"channels":    len(p.Channels),
	}).Info("Playlist saved")
	return p, nil
}

// LoadPlaylistFromURL downloads a playlist and saves it under name. A non-2xx
// response surfaces as *fetcher.HTTPStatusError in the error chain.
func (l *Library) LoadPlaylistFromURL(ctx context.Context, name, rawURL string) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.ValidationError("Playlist name is required")
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, apperrors.ValidationError("Playlist URL is required")
	}
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if l.fetcher == nil {
		return nil, wrap(playlist.ErrNoFetcher, apperrors.CodeConfig, "failed to load playlist")
	}

	content, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, wrap(err, apperrors.CodeNetwork, "failed to load playlist")
	}

	p, err := l.SavePlaylist(ctx, name, content, rawURL)
	if err != nil {
		return nil, wrap(err, apperrors.CodeStorage, "failed to load playlist")
	}
	return p, nil
}

// RefreshPlaylist re-downloads a playlist and rebuilds its split records.
// It returns nil when the playlist does not exist or has no URL.
func (l *Library) RefreshPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := l.service.RefreshPlaylist(ctx, id)
	if err != nil {
		return nil, wrap(err, apperrors.CodeNetwork, "failed to refresh playlist")
	}
	if p == nil {
		return nil, nil
	}

	// The previous split survives a failed re-split; it is only dropped
	// once the playlist no longer qualifies
	split, err := l.splitIfLarge(p)
	if !split && err == nil && l.splitter.Index(p.ID) != nil {
		l.splitter.Delete(p.ID)
	}
	return p, nil
}

// UpdatePlaylist renames or re-points a playlist and keeps its split index in
// step. It returns nil when the playlist does not exist.
func (l *Library) UpdatePlaylist(ctx context.Context, id string, update playlist.Update) (*models.Playlist, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.ValidationError("Playlist name is required")
		}
		update.Name = &name
	}
	if update.URL != nil {
		trimmed := strings.TrimSpace(*update.URL)
		if trimmed != "" {
			if err := ValidateURL(trimmed); err != nil {
				return nil, err
			}
		}
		update.URL = &trimmed
	}

	p, err := l.service.UpdatePlaylist(ctx, id, update)
	if err != nil {
		return nil, wrap(err, apperrors.CodeStorage, "failed to update playlist")
	}
	if p == nil {
		return nil, nil
	}

	if _, err := l.splitter.UpdateIndex(p.ID, p.Name, p.URL); err != nil {
		// The index only mirrors the record; the update itself succeeded
		l.logger.WithFields(map[string]interface{}{"playlist_id": p.ID}).Error("Failed to update playlist index", err)
	}
	return p, nil
}

// DeletePlaylist removes the split records and the playlist itself. It
// reports whether anything was removed.
func (l *Library) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	splitDeleted := l.splitter.Delete(id)

	deleted, err := l.service.DeletePlaylist(ctx, id)
	if err != nil {
		l.logger.WithFields(map[string]interface{}{"playlist_id": id}).Error("Failed to delete playlist", err)
		return splitDeleted, wrap(err, apperrors.CodeStorage, "failed to delete playlist")
	}
	return splitDeleted || deleted, nil
}

// IsPlaylistSplit reports whether id has an index with at least one group
func (l *Library) IsPlaylistSplit(id string) bool {
	idx := l.splitter.Index(id)
	return idx != nil && len(idx.Groups) > 0
}

// PlaylistIndex returns the split index of a playlist, or nil
func (l *Library) PlaylistIndex(id string) *models.PlaylistIndex {
	return l.splitter.Index(id)
}

// PlaylistIndexes returns every split index
func (l *Library) PlaylistIndexes() []models.PlaylistIndex {
	return l.splitter.Indexes()
}

// GroupChannels returns the channels of one group of a split playlist
func (l *Library) GroupChannels(playlistID, groupID string) []models.Channel {
	return l.splitter.GroupChannels(playlistID, groupID)
}

// StorageStats reports the size of the split records
func (l *Library) StorageStats() (models.StorageStats, error) {
	return l.splitter.Stats()
}

// Export renders the filtered channels of a stored playlist as M3U text;
// ok is false when the playlist does not exist
func (l *Library) Export(ctx context.Context, id string, opts ExportOptions) (string, bool, error) {
	filters := filter.NewManager()
	if err := filters.LoadFromConfig(l.exportFilters); err != nil {
		return "", false, err
	}
	if err := filters.AddRuntime(filter.AttrGroup, opts.Group.IncludePatterns, opts.Group.ExcludePatterns); err != nil {
		return "", false, err
	}
	if err := filters.AddRuntime(filter.AttrName, opts.Name.IncludePatterns, opts.Name.ExcludePatterns); err != nil {
		return "", false, err
	}

	p, err := l.service.GetPlaylist(ctx, id)
	if err != nil {
		return "", false, err
	}
	if p == nil {
		return "", false, nil
	}

	channels := filters.Apply(p.Channels)
	if len(channels) != len(p.Channels) {
		l.logger.WithFields(map[string]interface{}{
			"playlist_id": id,
			"kept":        len(channels),
			"total":       len(p.Channels),
		}).Debug("filtered playlist export")
	}
	return parser.Encode(channels), true, nil
}

// ValidateContent parses content and fails when it holds no channels
func (l *Library) ValidateContent(content string) (parser.Result, error) {
	result := l.service.Parse(content)
	if len(result.Channels) == 0 {
		return result, ErrNoChannels
	}
	return result, nil
}

// ValidateURL accepts absolute http and https URLs
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.ValidationError("Please enter a valid URL").WithContext("url", raw)
	}
	return nil
}

// splitIfLarge splits p when it qualifies. split is false with a nil error
// when p does not qualify.
func (l *Library) splitIfLarge(p *models.Playlist) (split bool, err error) {
	if !l.splitter.ShouldSplit(p.Channels) {
		return false, nil
	}

	idx, err := l.splitter.Split(p.ID, p.Name, p.Channels, p.URL)
	if err != nil {
		l.logger.WithFields(map[string]interface{}{
			"playlist_id": p.ID,
			"channels":    len(p.Channels),
		}).Error("Failed to split playlist, keeping whole record only", err)
		return false, err
	}

	l.logger.WithFields(map[string]interface{}{
		"playlist_id": p.ID,
		"groups":      len(idx.Groups),
	}).Info("Playlist split by group")
	return true, nil
}

// wrap prefixes err with message, keeping the innermost meaningful code so
// callers can still map it to a status
func wrap(err error, fallback apperrors.ErrorCode, message string) error {
	code := fallback
	var statusErr *fetcher.HTTPStatusError
	switch {
	case errors.As(err, &statusErr):
		code = apperrors.CodeHTTPStatus
	case apperrors.GetErrorCode(err) != apperrors.CodeUnknown:
		code = apperrors.GetErrorCode(err)
	}
	return apperrors.Wrap(err, code, message)
}
