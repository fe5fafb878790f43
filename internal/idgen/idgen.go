// Package idgen generates channel and playlist identifiers.
//
// Channel ids combine a short deterministic content hash with a timestamp
// and an entropy suffix: the hash makes ids recognisable for the same
// name/url pair, the suffix keeps repeated pairs from colliding.
package idgen

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf16"
)

const (
	// PlaylistPrefix prefixes every generated playlist id
	PlaylistPrefix = "playlist-"

	hashLength      = 8
	channelEntropy  = 6
	playlistEntropy = 7
	base            = 36
)

// sequence is mixed into the entropy suffix so ids generated within the
// same millisecond differ in their leading entropy characters.
var sequence atomic.Uint64

// now is replaced in tests
var now = time.Now

// ChannelID returns a new id for a channel with the given name and url
func ChannelID(name, url string) string {
	var b strings.Builder
	b.Grow(hashLength + 2 + 9 + channelEntropy)
	b.WriteString(ContentHash(name, url))
	b.WriteByte('-')
	b.WriteString(timestamp())
	b.WriteByte('-')
	b.WriteString(entropy(channelEntropy))
	return b.String()
}

// PlaylistID returns a new playlist id of the form playlist-<ts>-<rand>
func PlaylistID() string {
	return PlaylistPrefix + timestamp() + "-" + entropy(playlistEntropy)
}

// ContentHash returns the truncated base36 32-bit rolling hash of name + "-" + url.
// The hash runs over UTF-16 code units so ids match those produced by the
// browser player for the same channel.
func ContentHash(name, url string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(name + "-" + url)) {
		h = (h << 5) - h + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	s := strconv.FormatInt(abs, base)
	if len(s) > hashLength {
		s = s[:hashLength]
	}
	return s
}

func timestamp() string {
	return strconv.FormatInt(now().UnixMilli(), base)
}

// entropy returns n base36 characters: two from the process sequence,
// the rest random
func entropy(n int) string {
	const seqSpace = base * base
	seq := sequence.Add(1) % seqSpace

	randSpace := uint64(1)
	for i := 2; i < n; i++ {
		randSpace *= base
	}

	return pad(strconv.FormatUint(seq, base), 2) + pad(strconv.FormatUint(rand.Uint64N(randSpace), base), n-2)
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
