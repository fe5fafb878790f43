package playlist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glefebvre/iptvcore/internal/kv"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/parser"
	"github.com/glefebvre/iptvcore/internal/store"
	testhelpers "github.com/glefebvre/iptvcore/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleM3U = `#EXTM3U
#EXTINF:-1 tvg-logo="http://x/logo.png" group-title="News",BBC News
http://stream.example/bbc
#EXTINF:-1,Random Channel
http://stream.example/random`

// stubFetcher returns canned content and records requested URLs
type stubFetcher struct {
	content string
	err     error
	urls    []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.content, f.err
}

func newTestService(t *testing.T, fetcher Fetcher) *Service {
	t.Helper()
	log := logger.Discard()
	primary := store.NewPrimaryStore(testhelpers.TestDB(t), log)
	legacy := store.NewLegacyStore(kv.NewMemory(), log)
	return NewService(store.NewFallback(primary, legacy, log), fetcher, parser.NewParser(log), log)
}

func TestAddPlaylist(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.AddPlaylist(ctx, "My List", sampleM3U, "http://provider/list.m3u")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.True(t, strings.HasPrefix(p.ID, "playlist-"))
	assert.Equal(t, "My List", p.Name)
	assert.Equal(t, "http://provider/list.m3u", p.URL)
	require.Len(t, p.Channels, 2)
	assert.Equal(t, "News", p.Channels[0].Group)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	all, err := svc.LoadPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, p.ID, all[0].ID)
	assert.Len(t, all[0].Channels, 2)
}

func TestAddPlaylist_EmptyContent(t *testing.T) {
	svc := newTestService(t, nil)

	p, err := svc.AddPlaylist(context.Background(), "Empty", "", "")
	require.NoError(t, err)
	assert.NotNil(t, p.Channels)
	assert.Empty(t, p.Channels)
}

func TestLoadPlaylists_UniqueIDsAcrossPlaylists(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AddPlaylist(ctx, "Same", sampleM3U, "")
		require.NoError(t, err)
	}

	all, err := svc.LoadPlaylists(ctx)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range all {
		for _, ch := range p.Channels {
			assert.False(t, seen[ch.ID], "duplicate id %s", ch.ID)
			seen[ch.ID] = true
		}
	}
	assert.Len(t, seen, 6)
}

func TestUpdatePlaylist(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.AddPlaylist(ctx, "Before", sampleM3U, "")
	require.NoError(t, err)

	later := p.UpdatedAt.Add(time.Hour)
	svc.now = func() time.Time { return later }

	name := "After"
	url := "http://provider/new.m3u"
	updated, err := svc.UpdatePlaylist(ctx, p.ID, Update{Name: &name, URL: &url})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, url, updated.URL)
	assert.True(t, later.Equal(updated.UpdatedAt))
	assert.Len(t, updated.Channels, 2)

	// Only the given fields change
	other := "Again"
	updated, err = svc.UpdatePlaylist(ctx, p.ID, Update{Name: &other})
	require.NoError(t, err)
	assert.Equal(t, url, updated.URL)

	missing, err := svc.UpdatePlaylist(ctx, "nope", Update{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeletePlaylist(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.AddPlaylist(ctx, "Doomed", sampleM3U, "")
	require.NoError(t, err)

	deleted, err := svc.DeletePlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeletePlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := svc.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRefreshPlaylist(t *testing.T) {
	fetcher := &stubFetcher{content: "#EXTM3U\n#EXTINF:-1 group-title=\"Sports\",Sky Sports\nhttp://stream.example/sky\n"}
	svc := newTestService(t, fetcher)
	ctx := context.Background()

	p, err := svc.AddPlaylist(ctx, "Remote", sampleM3U, "http://provider/list.m3u")
	require.NoError(t, err)

	later := p.UpdatedAt.Add(time.Minute)
	svc.now = func() time.Time { return later }

	refreshed, err := svc.RefreshPlaylist(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.Equal(t, []string{"http://provider/list.m3u"}, fetcher.urls)
	require.Len(t, refreshed.Channels, 1)
	assert.Equal(t, "Sky Sports", refreshed.Channels[0].Name)
	assert.True(t, later.Equal(refreshed.UpdatedAt))

	stored, err := svc.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Channels, 1)
}

func TestRefreshPlaylist_NothingToRefresh(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := newTestService(t, fetcher)
	ctx := context.Background()

	local, err := svc.AddPlaylist(ctx, "Local", sampleM3U, "")
	require.NoError(t, err)

	got, err := svc.RefreshPlaylist(ctx, local.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "playlist without url")

	got, err = svc.RefreshPlaylist(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown playlist")

	assert.Empty(t, fetcher.urls)
}

func TestRefreshPlaylist_FetchErrorPropagates(t *testing.T) {
	fetchErr := errors.New("HTTP 404: Not Found")
	svc := newTestService(t, &stubFetcher{err: fetchErr})
	ctx := context.Background()

	p, err := svc.AddPlaylist(ctx, "Remote", sampleM3U, "http://provider/gone.m3u")
	require.NoError(t, err)

	_, err = svc.RefreshPlaylist(ctx, p.ID)
	assert.ErrorIs(t, err, fetchErr)

	stored, err := svc.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Channels, 2, "failed refresh leaves channels untouched")
}

func TestRefreshPlaylist_NoFetcher(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.AddPlaylist(ctx, "Remote", sampleM3U, "http://provider/list.m3u")
	require.NoError(t, err)

	_, err = svc.RefreshPlaylist(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestSearchChannels(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddPlaylist(ctx, "One", sampleM3U, "")
	require.NoError(t, err)
	_, err = svc.AddPlaylist(ctx, "Two", "#EXTINF:-1 group-title=\"Kids\",Cartoon Net\nhttp://c\n", "")
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "bbc", want: []string{"BBC News"}},
		{query: "NEWS", want: []string{"BBC News"}},
		{query: "kids", want: []string{"Cartoon Net"}},
		{query: "channel", want: []string{"Random Channel"}},
		{query: "", want: []string{"BBC News", "Random Channel", "Cartoon Net"}},
		{query: "zzz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			channels, err := svc.SearchChannels(ctx, tt.query)
			require.NoError(t, err)

			names := []string{}
			for _, ch := range channels {
				names = append(names, ch.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestAllChannels(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	channels, err := svc.AllChannels(ctx)
	require.NoError(t, err)
	assert.Empty(t, channels)

	_, err = svc.AddPlaylist(ctx, "One", sampleM3U, "")
	require.NoError(t, err)

	channels, err = svc.AllChannels(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 2)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(nil, nil, nil, nil)
	assert.NotNil(t, svc.parser)
	assert.NotNil(t, svc.logger)
	assert.Empty(t, svc.Parse("").Channels)
}
