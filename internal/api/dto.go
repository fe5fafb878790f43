package api

import (
	"time"

	"github.com/glefebvre/iptvcore/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreatePlaylistRequest uploads M3U text
type CreatePlaylistRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// ImportPlaylistRequest loads a playlist from a remote URL
type ImportPlaylistRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UpdatePlaylistRequest renames a playlist or changes its source URL
type UpdatePlaylistRequest struct {
	Name *string `json:"name,omitempty"`
	URL  *string `json:"url,omitempty"`
}

// PlaylistSummary is a playlist without its channels
type PlaylistSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url,omitempty"`
	ChannelCount int    `json:"channel_count"`
	Split        bool   `json:"split"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// PlaylistResponse is a playlist with its channels
type PlaylistResponse struct {
	PlaylistSummary
	Channels []models.Channel `json:"channels"`
}

// GroupResponse describes one group of a split playlist
type GroupResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ChannelCount int    `json:"channel_count"`
}

// ChannelsResponse wraps a channel list
type ChannelsResponse struct {
	Channels []models.Channel `json:"channels"`
	Total    int              `json:"total"`
}

func toSummary(p models.Playlist, split bool) PlaylistSummary {
	return PlaylistSummary{
		ID:           p.ID,
		Name:         p.Name,
		URL:          p.URL,
		ChannelCount: len(p.Channels),
		Split:        split,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toPlaylistResponse(p models.Playlist, split bool) PlaylistResponse {
	channels := p.Channels
	if channels == nil {
		channels = []models.Channel{}
	}
	return PlaylistResponse{
		PlaylistSummary: toSummary(p, split),
		Channels:        channels,
	}
}

func toGroups(idx *models.PlaylistIndex) []GroupResponse {
	groups := make([]GroupResponse, 0, len(idx.Groups))
	for _, g := range idx.Groups {
		groups = append(groups, GroupResponse{
			ID:           g.ID,
			Name:         g.Name,
			ChannelCount: g.ChannelCount,
		})
	}
	return groups
}

func toChannels(channels []models.Channel) ChannelsResponse {
	if channels == nil {
		channels = []models.Channel{}
	}
	return ChannelsResponse{Channels: channels, Total: len(channels)}
}
