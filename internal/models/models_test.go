package models

import (
	"testing"
	"time"
)

func TestPlaylistRecord_TableName(t *testing.T) {
	rec := PlaylistRecord{}
	expected := "playlists"
	if rec.TableName() != expected {
		t.Errorf("expected table name %s, got %s", expected, rec.TableName())
	}
}

func TestChannel_GroupName(t *testing.T) {
	tests := []struct {
		group    string
		expected string
	}{
		{"News", "News"},
		{"", UncategorizedGroup},
	}

	for _, tc := range tests {
		ch := Channel{Group: tc.group}
		if ch.GroupName() != tc.expected {
			t.Errorf("expected group %s, got %s", tc.expected, ch.GroupName())
		}
	}
}

func TestPlaylist_Clone(t *testing.T) {
	original := Playlist{
		ID:       "playlist-1",
		Name:     "Test",
		Channels: []Channel{{ID: "a", Name: "A", URL: "http://a"}},
	}

	clone := original.Clone()
	clone.Channels[0].ID = "changed"

	if original.Channels[0].ID != "a" {
		t.Errorf("clone shares channel storage with original: got %s", original.Channels[0].ID)
	}
}

func TestPlaylistRecord_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	p := Playlist{
		ID:        "playlist-1",
		Name:      "Remote",
		URL:       "http://example.com/list.m3u",
		Channels:  []Channel{{ID: "a", Name: "A", URL: "http://a", Group: "News"}},
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}

	rec := NewPlaylistRecord(p)
	if rec.ChannelCount != 1 {
		t.Errorf("expected channel count 1, got %d", rec.ChannelCount)
	}
	if rec.URL == nil || *rec.URL != p.URL {
		t.Errorf("expected url %s, got %v", p.URL, rec.URL)
	}

	back := rec.Playlist()
	if back.URL != p.URL || back.Name != p.Name || !back.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestPlaylistRecord_EmptyURL(t *testing.T) {
	rec := NewPlaylistRecord(Playlist{ID: "p"})
	if rec.URL != nil {
		t.Errorf("expected nil url, got %v", *rec.URL)
	}
	if rec.Channels == nil {
		t.Error("expected non-nil channels slice")
	}
}

func TestPlaylistIndex_Group(t *testing.T) {
	idx := &PlaylistIndex{
		Groups: []PlaylistGroupReference{
			{ID: "news", Name: "News", ChannelCount: 2, SubPlaylistID: "p-news"},
		},
	}

	if ref := idx.Group("news"); ref == nil || ref.SubPlaylistID != "p-news" {
		t.Errorf("expected news group reference, got %+v", ref)
	}
	if ref := idx.Group("sports"); ref != nil {
		t.Errorf("expected nil for unknown group, got %+v", ref)
	}
}
