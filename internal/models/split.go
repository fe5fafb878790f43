package models

import "time"

// PlaylistGroupReference points from an index to the sub-playlist holding one group
type PlaylistGroupReference struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ChannelCount  int    `json:"channelCount"`
	SubPlaylistID string `json:"subPlaylistId"`
}

// PlaylistIndex is the lightweight summary stored for a split playlist
type PlaylistIndex struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	URL           string                   `json:"url,omitempty"`
	Groups        []PlaylistGroupReference `json:"groups"`
	TotalChannels int                      `json:"totalChannels"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

// Group returns the group reference with the given id, or nil
func (idx *PlaylistIndex) Group(groupID string) *PlaylistGroupReference {
	for i := range idx.Groups {
		if idx.Groups[i].ID == groupID {
			return &idx.Groups[i]
		}
	}
	return nil
}

// SubPlaylist holds the channels of a single group of a split playlist
type SubPlaylist struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId"`
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	Channels  []Channel `json:"channels"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StorageStats reports the size of the split key space
type StorageStats struct {
	Indexes      int    `json:"indexes"`
	SubPlaylists int    `json:"subPlaylists"`
	TotalBytes   int64  `json:"totalBytes"`
	TotalSize    string `json:"totalSize"`
}
