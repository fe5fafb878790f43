// Package splitter partitions large playlists into one sub-playlist per group.
package splitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/kv"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/metrics"
	"github.com/glefebvre/iptvcore/internal/models"
)

const (
	// IndexKey holds the JSON array of every playlist index
	IndexKey = "iptv-playlist-indexes"
	// SubPlaylistKeyPrefix prefixes the key of each sub-playlist
	SubPlaylistKeyPrefix = "iptv-sub-playlist-"

	// DefaultMaxChannels is the channel count above which a playlist is split
	DefaultMaxChannels = 1000

	maxGroupIDLength = 50
	fallbackGroupID  = "uncategorized"
)

// Splitter writes split playlists into a key/value store
type Splitter struct {
	mu          sync.Mutex
	kv          kv.Store
	maxChannels int
	logger      *logger.Logger
	now         func() time.Time
}

// New creates a splitter; maxChannels <= 0 selects DefaultMaxChannels
func New(store kv.Store, maxChannels int, log *logger.Logger) *Splitter {
	if maxChannels <= 0 {
		maxChannels = DefaultMaxChannels
	}
	if log == nil {
		log = logger.AppLogger()
	}
	return &Splitter{
		kv:          store,
		maxChannels: maxChannels,
		logger:      log,
		now:         time.Now,
	}
}

// group is one group of channels in first-seen order
type group struct {
	name     string
	channels []models.Channel
}

// groupChannels buckets channels by group name preserving first-seen group order
func groupChannels(channels []models.Channel) []group {
	var groups []group
	pos := make(map[string]int)
	for _, ch := range channels {
		name := ch.GroupName()
		i, ok := pos[name]
		if !ok {
			i = len(groups)
			pos[name] = i
			groups = append(groups, group{name: name})
		}
		groups[i].channels = append(groups[i].channels, ch)
	}
	return groups
}

// ShouldSplit reports whether channels exceed the channel threshold or span
// more than one group
func (s *Splitter) ShouldSplit(channels []models.Channel) bool {
	if len(channels) > s.maxChannels {
		return true
	}
	if len(channels) == 0 {
		return false
	}
	first := channels[0].GroupName()
	for _, ch := range channels[1:] {
		if ch.GroupName() != first {
			return true
		}
	}
	return false
}

// GroupID derives a URL-safe id from a group name
func GroupID(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	id := strings.Trim(b.String(), "-")
	if len(id) > maxGroupIDLength {
		id = id[:maxGroupIDLength]
	}
	if id == "" {
		return fallbackGroupID
	}
	return id
}

// SubPlaylistID is the id of the sub-playlist holding one group of a playlist
func SubPlaylistID(playlistID, groupID string) string {
	return playlistID + "-" + groupID
}

func subPlaylistKey(id string) string {
	return SubPlaylistKeyPrefix + id
}

// Split writes one sub-playlist per group and upserts the playlist index.
// Splitting an already split playlist replaces its previous sub-playlists.
// A failed split leaves the store as it was before the call.
func (s *Splitter) Split(playlistID, name string, channels []models.Channel, url string) (*models.PlaylistIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	groups := groupChannels(channels)
	refs := make([]models.PlaylistGroupReference, 0, len(groups))
	used := make(map[string]int, len(groups))
	var journal []writtenKey

	for _, g := range groups {
		gid := uniqueGroupID(GroupID(g.name), used)
		sub := models.SubPlaylist{
			ID:        SubPlaylistID(playlistID, gid),
			ParentID:  playlistID,
			GroupID:   gid,
			GroupName: g.name,
			Channels:  g.channels,
			CreatedAt: now,
			UpdatedAt: now,
		}
		entry, err := s.writeTracked(subPlaylistKey(sub.ID), sub)
		if err != nil {
			s.rollback(journal)
			return nil, apperrors.Wrap(err, storageCode(err), "failed to save sub-playlist").
				WithContext("sub_playlist_id", sub.ID)
		}
		journal = append(journal, entry)

		refs = append(refs, models.PlaylistGroupReference{
			ID:            gid,
			Name:          g.name,
			ChannelCount:  len(g.channels),
			SubPlaylistID: sub.ID,
		})
	}

	index := models.PlaylistIndex{
		ID:            playlistID,
		Name:          name,
		URL:           url,
		Groups:        refs,
		TotalChannels: len(channels),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	indexes := s.loadIndexes()
	var previous *models.PlaylistIndex
	for i := range indexes {
		if indexes[i].ID == playlistID {
			old := indexes[i]
			previous = &old
			indexes[i] = index
			break
		}
	}
	if previous == nil {
		indexes = append(indexes, index)
	}

	if err := s.writeJSON(IndexKey, indexes); err != nil {
		s.rollback(journal)
		return nil, apperrors.Wrap(err, storageCode(err), "failed to save playlist index").
			WithContext("playlist_id", playlistID)
	}
	if previous != nil {
		s.removeStaleSubPlaylists(*previous, refs)
	}

	metrics.Splits.Inc()
	metrics.SplitGroups.Observe(float64(len(refs)))
	s.logger.WithFields(map[string]interface{}{
		"playlist_id": playlistID,
		"groups":      len(refs),
		"channels":    len(channels),
	}).Info("split playlist into groups")

	return &index, nil
}

// writtenKey records what a key held before Split overwrote it
type writtenKey struct {
	key     string
	prev    []byte
	existed bool
}

func (s *Splitter) writeTracked(key string, v interface{}) (writtenKey, error) {
	prev, existed, err := s.kv.Get(key)
	if err != nil {
		return writtenKey{}, err
	}
	if err := s.writeJSON(key, v); err != nil {
		return writtenKey{}, err
	}
	return writtenKey{key: key, prev: prev, existed: existed}, nil
}

// rollback undoes the writes of a failed split. New keys are deleted before
// overwritten ones are restored so the restores fit in the same budget.
func (s *Splitter) rollback(journal []writtenKey) {
	for _, w := range journal {
		if w.existed {
			continue
		}
		if err := s.kv.Delete(w.key); err != nil {
			s.logger.WithFields(map[string]interface{}{"key": w.key}).Error("failed to remove partial sub-playlist", err)
		}
	}
	for _, w := range journal {
		if !w.existed {
			continue
		}
		if err := s.kv.Set(w.key, w.prev); err != nil {
			s.logger.WithFields(map[string]interface{}{"key": w.key}).Error("failed to restore sub-playlist", err)
		}
	}
}

// uniqueGroupID suffixes gid when another group of the same playlist already maps to it
func uniqueGroupID(gid string, used map[string]int) string {
	used[gid]++
	if used[gid] == 1 {
		return gid
	}
	for n := used[gid]; ; n++ {
		candidate := gid + "-" + strconv.Itoa(n)
		if _, taken := used[candidate]; !taken {
			used[candidate] = 1
			return candidate
		}
	}
}

func (s *Splitter) removeStaleSubPlaylists(old models.PlaylistIndex, current []models.PlaylistGroupReference) {
	keep := make(map[string]struct{}, len(current))
	for _, ref := range current {
		keep[ref.SubPlaylistID] = struct{}{}
	}
	for _, ref := range old.Groups {
		if _, ok := keep[ref.SubPlaylistID]; ok {
			continue
		}
		if err := s.kv.Delete(subPlaylistKey(ref.SubPlaylistID)); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"sub_playlist_id": ref.SubPlaylistID,
			}).Error("failed to remove stale sub-playlist", err)
		}
	}
}

// Indexes returns every stored playlist index
func (s *Splitter) Indexes() []models.PlaylistIndex {
	return s.loadIndexes()
}

// Index returns the index of a split playlist, or nil
func (s *Splitter) Index(id string) *models.PlaylistIndex {
	for _, idx := range s.loadIndexes() {
		if idx.ID == id {
			found := idx
			return &found
		}
	}
	return nil
}

// SubPlaylist returns one sub-playlist, or nil when missing or unreadable
func (s *Splitter) SubPlaylist(id string) *models.SubPlaylist {
	var sub models.SubPlaylist
	ok, err := s.readJSON(subPlaylistKey(id), &sub)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"sub_playlist_id": id,
		}).Error("failed to read sub-playlist", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &sub
}

// GroupChannels returns the channels of one group of a split playlist.
// Any missing link yields an empty list.
func (s *Splitter) GroupChannels(playlistID, groupID string) []models.Channel {
	index := s.Index(playlistID)
	if index == nil {
		return []models.Channel{}
	}
	ref := index.Group(groupID)
	if ref == nil {
		return []models.Channel{}
	}
	sub := s.SubPlaylist(ref.SubPlaylistID)
	if sub == nil || sub.Channels == nil {
		return []models.Channel{}
	}
	return sub.Channels
}

// UpdateIndex copies a renamed or re-pointed playlist's name and url into
// its index. It reports false when the playlist is not split.
func (s *Splitter) UpdateIndex(id, name, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexes := s.loadIndexes()
	for i := range indexes {
		if indexes[i].ID != id {
			continue
		}
		if indexes[i].Name == name && indexes[i].URL == url {
			return true, nil
		}
		indexes[i].Name = name
		indexes[i].URL = url
		indexes[i].UpdatedAt = s.now()
		if err := s.writeJSON(IndexKey, indexes); err != nil {
			return false, apperrors.Wrap(err, storageCode(err), "failed to save playlist index").
				WithContext("playlist_id", id)
		}
		return true, nil
	}
	return false, nil
}

// Delete removes the index of a split playlist and all its sub-playlists.
// It returns false when the playlist was never split or the removal failed.
func (s *Splitter) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexes := s.loadIndexes()
	pos := -1
	for i := range indexes {
		if indexes[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	index := indexes[pos]

	for _, ref := range index.Groups {
		if err := s.kv.Delete(subPlaylistKey(ref.SubPlaylistID)); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"sub_playlist_id": ref.SubPlaylistID,
			}).Error("failed to delete sub-playlist", err)
			return false
		}
	}

	indexes = append(indexes[:pos], indexes[pos+1:]...)
	if err := s.writeJSON(IndexKey, indexes); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"playlist_id": id,
		}).Error("failed to update playlist indexes", err)
		return false
	}

	s.logger.WithFields(map[string]interface{}{
		"playlist_id":   id,
		"sub_playlists": len(index.Groups),
	}).Info("deleted split playlist")
	return true
}

// Stats reports how much of the key space split playlists use
func (s *Splitter) Stats() (models.StorageStats, error) {
	var total int64

	data, ok, err := s.kv.Get(IndexKey)
	if err != nil {
		return models.StorageStats{TotalSize: FormatBytes(0)}, apperrors.StorageError("failed to read playlist indexes", err)
	}
	if ok {
		total += int64(len(data))
	}

	keys, err := s.kv.Keys(SubPlaylistKeyPrefix)
	if err != nil {
		return models.StorageStats{TotalSize: FormatBytes(0)}, apperrors.StorageError("failed to list sub-playlists", err)
	}
	subs := 0
	for _, k := range keys {
		v, ok, err := s.kv.Get(k)
		if err != nil {
			return models.StorageStats{TotalSize: FormatBytes(0)}, apperrors.StorageError("failed to read sub-playlist", err)
		}
		if ok {
			total += int64(len(v))
			subs++
		}
	}

	return models.StorageStats{
		Indexes:      len(s.loadIndexes()),
		SubPlaylists: subs,
		TotalBytes:   total,
		TotalSize:    FormatBytes(total),
	}, nil
}

// FormatBytes renders a byte count with two decimals at most, e.g. "1.5 KB"
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := math.Round(float64(n)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}

func (s *Splitter) loadIndexes() []models.PlaylistIndex {
	var indexes []models.PlaylistIndex
	ok, err := s.readJSON(IndexKey, &indexes)
	if err != nil {
		s.logger.Error("failed to read playlist indexes", err)
		return []models.PlaylistIndex{}
	}
	if !ok || indexes == nil {
		return []models.PlaylistIndex{}
	}
	return indexes
}

func (s *Splitter) readJSON(key string, v interface{}) (bool, error) {
	data, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Splitter) writeJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Set(key, data)
}

func storageCode(err error) apperrors.ErrorCode {
	if errors.Is(err, kv.ErrQuotaExceeded) {
		return apperrors.CodeQuotaExceeded
	}
	return apperrors.CodeStorage
}
