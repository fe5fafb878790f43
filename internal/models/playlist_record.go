package models

import "time"

// PlaylistRecord is the durable-tier row for a whole playlist.
// Timestamps are copied from the playlist and never managed by gorm.
type PlaylistRecord struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null;index:idx_playlists_name" json:"name"`
	URL          *string   `gorm:"type:text" json:"url,omitempty"`
	ChannelCount int       `gorm:"not null;default:0" json:"channel_count"`
	Channels     []Channel `gorm:"type:text;serializer:json" json:"channels"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false;index:idx_playlists_created" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

// TableName specifies the table name for PlaylistRecord
func (PlaylistRecord) TableName() string {
	return "playlists"
}

// NewPlaylistRecord converts a playlist into its durable-tier row
func NewPlaylistRecord(p Playlist) PlaylistRecord {
	rec := PlaylistRecord{
		ID:           p.ID,
		Name:         p.Name,
		ChannelCount: len(p.Channels),
		Channels:     p.Channels,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if rec.Channels == nil {
		rec.Channels = []Channel{}
	}
	if p.URL != "" {
		url := p.URL
		rec.URL = &url
	}
	return rec
}

// Playlist converts the row back into a playlist
func (r PlaylistRecord) Playlist() Playlist {
	p := Playlist{
		ID:        r.ID,
		Name:      r.Name,
		Channels:  r.Channels,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if p.Channels == nil {
		p.Channels = []Channel{}
	}
	if r.URL != nil {
		p.URL = *r.URL
	}
	return p
}
