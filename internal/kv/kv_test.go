package kv

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBolt(t *testing.T) *Bolt {
	t.Helper()
	b, err := NewBolt(filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// exerciseStore runs the behaviour every backend must share
func exerciseStore(t *testing.T, s Store) {
	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("iptv-playlists", []byte(`[]`)))
	require.NoError(t, s.Set("iptv-sub-playlist-b", []byte("b")))
	require.NoError(t, s.Set("iptv-sub-playlist-a", []byte("a")))

	v, ok, err := s.Get("iptv-playlists")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[]`), v)

	keys, err := s.Keys("iptv-sub-playlist-")
	require.NoError(t, err)
	assert.Equal(t, []string{"iptv-sub-playlist-a", "iptv-sub-playlist-b"}, keys)

	all, err := s.Keys("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Set("iptv-playlists", []byte(`[1]`)))
	v, _, _ = s.Get("iptv-playlists")
	assert.Equal(t, []byte(`[1]`), v)

	require.NoError(t, s.Delete("iptv-playlists"))
	require.NoError(t, s.Delete("iptv-playlists"))
	_, ok, err = s.Get("iptv-playlists")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	value := []byte("abc")
	require.NoError(t, m.Set("k", value))

	value[0] = 'z'
	got, _, _ := m.Get("k")
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'z'
	again, _, _ := m.Get("k")
	assert.Equal(t, []byte("abc"), again)
}

func TestBolt(t *testing.T) {
	exerciseStore(t, newBolt(t))
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	b, err := NewBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.Set("iptv-playlists", []byte(`[{"id":"p1"}]`)))
	require.NoError(t, b.Close())

	reopened, err := NewBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get("iptv-playlists")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"p1"}]`, string(v))
}

func TestNewBolt_EmptyPath(t *testing.T) {
	_, err := NewBolt("")
	assert.Error(t, err)
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis("not a url", time.Second)
	assert.Error(t, err)
}

func TestRedis_UnreachableServer(t *testing.T) {
	r, err := NewRedis("redis://127.0.0.1:1/0", 200*time.Millisecond)
	require.NoError(t, err)
	defer r.Close()

	_, _, err = r.Get("iptv-playlists")
	assert.Error(t, err)
	assert.Error(t, r.Set("iptv-playlists", []byte("[]")))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `iptv-sub-playlist-`, escapeGlob("iptv-sub-playlist-"))
	assert.Equal(t, `a\*b\?\[c\]`, escapeGlob("a*b?[c]"))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, compact([]string{"a", "a", "b", "c", "c"}))
	assert.Empty(t, compact(nil))
}

func TestQuota(t *testing.T) {
	q, err := WithQuota(NewMemory(), 20)
	require.NoError(t, err)

	// 1 byte key + 9 byte value
	require.NoError(t, q.Set("a", []byte(strings.Repeat("x", 9))))
	assert.Equal(t, int64(10), q.Used())

	err = q.Set("b", []byte(strings.Repeat("x", 10)))
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	_, ok, _ := q.Get("b")
	assert.False(t, ok, "rejected write must not be stored")

	// Overwriting only counts the difference
	require.NoError(t, q.Set("a", []byte(strings.Repeat("x", 19))))
	assert.Equal(t, int64(20), q.Used())

	require.NoError(t, q.Delete("a"))
	assert.Equal(t, int64(0), q.Used())
	require.NoError(t, q.Set("b", []byte(strings.Repeat("x", 10))))
}

func TestQuota_MeasuresExistingData(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("key", []byte("value")))

	q, err := WithQuota(m, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(8), q.Used())
	exerciseStore(t, q)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default memory", cfg: Config{}},
		{name: "memory with quota", cfg: Config{Backend: BackendMemory, QuotaBytes: DefaultQuotaBytes}},
		{name: "bolt", cfg: Config{Backend: BackendBolt, BoltPath: filepath.Join(t.TempDir(), "kv.db")}},
		{name: "bolt without path", cfg: Config{Backend: BackendBolt}, wantErr: true},
		{name: "redis bad url", cfg: Config{Backend: BackendRedis, RedisURL: "://"}, wantErr: true},
		{name: "unknown", cfg: Config{Backend: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			exerciseStore(t, s)
		})
	}
}
