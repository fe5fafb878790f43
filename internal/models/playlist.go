package models

import "time"

// Playlist is a named, ordered collection of channels
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Channels  []Channel `json:"channels"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the playlist, so callers never share the
// channel slice with the store that produced it
func (p Playlist) Clone() Playlist {
	out := p
	out.Channels = make([]Channel, len(p.Channels))
	copy(out.Channels, p.Channels)
	return out
}

// HasURL reports whether the playlist can be refreshed from a remote source
func (p Playlist) HasURL() bool {
	return p.URL != ""
}

// ClonePlaylists deep-copies a slice of playlists
func ClonePlaylists(playlists []Playlist) []Playlist {
	out := make([]Playlist, len(playlists))
	for i, p := range playlists {
		out[i] = p.Clone()
	}
	return out
}
