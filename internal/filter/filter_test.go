package filter

import (
	"testing"

	"github.com/glefebvre/iptvcore/internal/config"
	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"simple pattern", "^News", false},
		{"alternation", "^(News|Sports).*HD$", false},
		{"unclosed group", "^(News", true},
		{"bad escape", "\\k", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePattern(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePattern() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				assert.True(t, apperrors.IsValidationError(err))
			}
		})
	}
}

func TestManager_Matches(t *testing.T) {
	tests := []struct {
		name            string
		includePatterns []string
		excludePatterns []string
		value           string
		want            bool
	}{
		{"no filters allow all", nil, nil, "News HD", true},
		{"include matches", []string{"^News"}, nil, "News HD", true},
		{"include does not match", []string{"^Sports"}, nil, "News HD", false},
		{"exclude matches", nil, []string{"XXX"}, "Movies XXX", false},
		{"exclude does not match", nil, []string{"XXX"}, "Movies HD", true},
		{"exclude wins over include", []string{"^Movies"}, []string{"XXX"}, "Movies XXX", false},
		{"one of several includes", []string{"^Sports", "^News"}, nil, "News HD", true},
		{"one of several excludes", nil, []string{"XXX", "Adult"}, "Movies Adult", false},
		{"case sensitive", []string{"^news"}, nil, "News HD", false},
		{"case insensitive flag", []string{"(?i)^news"}, nil, "News HD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			require.NoError(t, m.loadFilterSet(AttrGroup, tt.includePatterns, tt.excludePatterns, false))

			assert.Equal(t, tt.want, m.Matches(AttrGroup, tt.value))
			assert.True(t, m.Matches(AttrName, tt.value), "other attributes are unfiltered")
		})
	}
}

func TestManager_MatchesChannel(t *testing.T) {
	tests := []struct {
		name         string
		groupInclude []string
		nameExclude  []string
		channel      models.Channel
		want         bool
	}{
		{"no filters", nil, nil, models.Channel{Group: "News", Name: "BBC"}, true},
		{"group matches", []string{"^News"}, nil, models.Channel{Group: "News", Name: "BBC"}, true},
		{"group does not match", []string{"^Sports"}, nil, models.Channel{Group: "News", Name: "BBC"}, false},
		{"name excluded", []string{"^News"}, []string{"(?i)test"}, models.Channel{Group: "News", Name: "BBC Test"}, false},
		{"empty group fails include", []string{"^News"}, nil, models.Channel{Name: "Loose"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			require.NoError(t, m.LoadFromConfig(config.FilterConfig{
				Group: config.PatternConfig{IncludePatterns: tt.groupInclude},
				Name:  config.PatternConfig{ExcludePatterns: tt.nameExclude},
			}))

			assert.Equal(t, tt.want, m.MatchesChannel(tt.channel))
		})
	}
}

func TestManager_RuntimeFilterPrecedence(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.LoadFromConfig(config.FilterConfig{
		Group: config.PatternConfig{IncludePatterns: []string{"^News"}},
		Name:  config.PatternConfig{ExcludePatterns: []string{"Backup"}},
	}))
	require.NoError(t, m.AddRuntime(AttrGroup, []string{"^Sports"}, nil))

	assert.False(t, m.Matches(AttrGroup, "News"))
	assert.True(t, m.Matches(AttrGroup, "Sports"))
	assert.False(t, m.Matches(AttrGroup, "Movies"))

	// Name defaults still apply since no runtime name filter was given
	assert.False(t, m.Matches(AttrName, "Sky Backup"))
}

func TestManager_AddRuntimeErrors(t *testing.T) {
	m := NewManager()

	err := m.AddRuntime("tvg_id", []string{"x"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))

	err = m.AddRuntime(AttrName, nil, []string{"(broken"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, 0, m.FilterCount())
}

func TestManager_Apply(t *testing.T) {
	channels := []models.Channel{
		{ID: "1", Name: "BBC News", Group: "News"},
		{ID: "2", Name: "Sky Sports", Group: "Sports"},
		{ID: "3", Name: "CNN", Group: "News"},
		{ID: "4", Name: "Adult Swim", Group: "Adult"},
	}

	m := NewManager()
	require.NoError(t, m.AddRuntime(AttrGroup, nil, []string{"^Adult$", "^Sports$"}))

	kept := m.Apply(channels)
	require.Len(t, kept, 2)
	assert.Equal(t, "1", kept[0].ID)
	assert.Equal(t, "3", kept[1].ID)
	assert.Len(t, channels, 4, "input is left untouched")

	assert.Equal(t, channels, NewManager().Apply(channels))

	var nilManager *Manager
	assert.Equal(t, channels, nilManager.Apply(channels))
}

func TestManager_FilterCount(t *testing.T) {
	m := NewManager()
	assert.Equal(t, 0, m.FilterCount())

	require.NoError(t, m.loadFilterSet(AttrGroup, []string{"^News"}, nil, false))
	assert.Equal(t, 1, m.FilterCount())

	require.NoError(t, m.loadFilterSet(AttrName, nil, nil, false))
	assert.Equal(t, 1, m.FilterCount(), "empty sets are not kept")

	require.NoError(t, m.loadFilterSet(AttrName, []string{"BBC"}, nil, true))
	assert.Equal(t, 2, m.FilterCount())
}

func BenchmarkMatchesChannel(b *testing.B) {
	m := NewManager()
	m.loadFilterSet(AttrGroup, []string{"^Movies.*HD$"}, []string{"XXX", "Adult"}, false)
	m.loadFilterSet(AttrName, []string{".*"}, []string{"Trailer"}, false)

	ch := models.Channel{Group: "Movies Action HD", Name: "The Matrix (1999)"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MatchesChannel(ch)
	}
}
