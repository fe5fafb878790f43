package testing

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glefebvre/iptvcore/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BaseTime is the timestamp fixtures start from; each fixture is one minute later
var BaseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

var fixtureSeq atomic.Int64

// TestDB creates an in-memory SQLite database for testing
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.PlaylistRecord{}); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// CloseDB closes the underlying connection so later queries fail
func CloseDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.Close()
}

// CleanupDB removes all records from test database tables
func CleanupDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	db.Exec("DELETE FROM playlists")
}

// NewChannel builds a channel fixture
func NewChannel(overrides ...func(*models.Channel)) models.Channel {
	n := fixtureSeq.Add(1)
	ch := models.Channel{
		ID:    fmt.Sprintf("channel-%d", n),
		Name:  fmt.Sprintf("Channel %d", n),
		URL:   fmt.Sprintf("http://stream.example/%d", n),
		Group: "News",
	}

	for _, override := range overrides {
		override(&ch)
	}
	return ch
}

// NewPlaylist builds a playlist fixture with two channels
func NewPlaylist(overrides ...func(*models.Playlist)) models.Playlist {
	n := fixtureSeq.Add(1)
	created := BaseTime.Add(time.Duration(n) * time.Minute)
	p := models.Playlist{
		ID:        fmt.Sprintf("playlist-%d", n),
		Name:      fmt.Sprintf("Playlist %d", n),
		Channels:  []models.Channel{NewChannel(), NewChannel(WithGroup("Sports"))},
		CreatedAt: created,
		UpdatedAt: created,
	}

	for _, override := range overrides {
		override(&p)
	}
	return p
}

// CreatePlaylist persists a playlist fixture in the durable table
func CreatePlaylist(t *testing.T, db *gorm.DB, overrides ...func(*models.Playlist)) models.Playlist {
	t.Helper()

	p := NewPlaylist(overrides...)
	rec := models.NewPlaylistRecord(p)
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("failed to create playlist fixture: %v", err)
	}
	return p
}

// AssertCount verifies the count of records in a table
func AssertCount(t *testing.T, db *gorm.DB, model interface{}, expected int64, message string) {
	t.Helper()
	var count int64
	db.Model(model).Count(&count)
	if count != expected {
		t.Fatalf("%s: expected count %d, got %d", message, expected, count)
	}
}

// WithGroup sets the group of a channel
func WithGroup(group string) func(*models.Channel) {
	return func(ch *models.Channel) {
		ch.Group = group
	}
}

// WithChannelID sets the id of a channel
func WithChannelID(id string) func(*models.Channel) {
	return func(ch *models.Channel) {
		ch.ID = id
	}
}

// WithName sets the name of a channel
func WithName(name string) func(*models.Channel) {
	return func(ch *models.Channel) {
		ch.Name = name
	}
}

// WithPlaylistID sets the id of a playlist
func WithPlaylistID(id string) func(*models.Playlist) {
	return func(p *models.Playlist) {
		p.ID = id
	}
}

// WithPlaylistName sets the name of a playlist
func WithPlaylistName(name string) func(*models.Playlist) {
	return func(p *models.Playlist) {
		p.Name = name
	}
}

// WithURL sets the source URL of a playlist
func WithURL(url string) func(*models.Playlist) {
	return func(p *models.Playlist) {
		p.URL = url
	}
}

// WithChannels replaces the channels of a playlist
func WithChannels(channels ...models.Channel) func(*models.Playlist) {
	return func(p *models.Playlist) {
		p.Channels = channels
	}
}
