// Package dedup keeps channel ids unique across a whole playlist collection.
package dedup

import (
	"github.com/glefebvre/iptvcore/internal/idgen"
	"github.com/glefebvre/iptvcore/internal/models"
)

// ChannelIDs walks every channel of every playlist in order and regenerates
// the id of any channel whose id was already seen earlier in the walk.
// The input is left untouched; changed reports whether any id was replaced.
func ChannelIDs(playlists []models.Playlist) ([]models.Playlist, bool) {
	seen := make(map[string]struct{})
	out := models.ClonePlaylists(playlists)
	regenerated := 0

	for i := range out {
		for j := range out[i].Channels {
			ch := &out[i].Channels[j]
			if _, dup := seen[ch.ID]; dup {
				ch.ID = fresh(ch.Name, ch.URL, seen)
				regenerated++
			}
			seen[ch.ID] = struct{}{}
		}
	}

	return out, regenerated > 0
}

// fresh generates an id for name/url that is not in seen
func fresh(name, url string, seen map[string]struct{}) string {
	for {
		id := idgen.ChannelID(name, url)
		if _, taken := seen[id]; !taken {
			return id
		}
	}
}
