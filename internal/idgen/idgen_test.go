package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash("BBC News", "http://stream.example/bbc")
	b := ContentHash("BBC News", "http://stream.example/bbc")

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
	assert.LessOrEqual(t, len(a), hashLength)
}

func TestContentHash_DiffersByInput(t *testing.T) {
	a := ContentHash("BBC News", "http://stream.example/bbc")
	b := ContentHash("BBC World", "http://stream.example/bbc")

	assert.NotEqual(t, a, b)
}

func TestContentHash_KnownValue(t *testing.T) {
	// "a-b" hashes to 97*31^2 + 45*31 + 98 = 94710
	assert.Equal(t, "212u", ContentHash("a", "b"))
}

func TestChannelID_Format(t *testing.T) {
	id := ChannelID("Random Channel", "http://stream.example/random")

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, ContentHash("Random Channel", "http://stream.example/random"), parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], channelEntropy)
}

func TestChannelID_UniqueForSameInput(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		id := ChannelID("Same", "http://same")
		require.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}

func TestPlaylistID_Format(t *testing.T) {
	id := PlaylistID()

	require.True(t, strings.HasPrefix(id, PlaylistPrefix))
	parts := strings.Split(strings.TrimPrefix(id, PlaylistPrefix), "-")
	require.Len(t, parts, 2)
	assert.Len(t, parts[1], playlistEntropy)
	assert.NotEqual(t, id, PlaylistID())
}

func TestPad(t *testing.T) {
	assert.Equal(t, "007", pad("7", 3))
	assert.Equal(t, "abc", pad("abc", 2))
}
