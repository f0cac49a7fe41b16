package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL_SECONDS", "")
	t.Setenv("VIEWS_FILE", "")
	t.Setenv("DEFAULT_VIEW", "")
	t.Setenv("PROFESSIONAL_SERVICES_GROUP_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Refresh.Interval())
	assert.Equal(t, "helpdesk", cfg.Views.Default)
	views := cfg.Views.Domain()
	require.Len(t, views, 2)
	assert.True(t, views[0].ExcludeGroups)
	assert.Equal(t, []int64{19000234009}, views[1].GroupIDs)
	assert.Equal(t, 10, cfg.Display.TotalWarning)
	assert.Equal(t, 20, cfg.Display.TotalCritical)
}

func TestLoadZeroIntervalDisablesTimer(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL_SECONDS", "0")
	t.Setenv("VIEWS_FILE", "")
	t.Setenv("DEFAULT_VIEW", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Refresh.Interval())
}

func TestLoadViewsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
views:
  - slug: network
    display: Network
    group_ids: [1, 2]
  - slug: everything
`), 0o600))

	items, err := LoadViewsFile(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []int64{1, 2}, items[0].GroupIDs)

	views := ViewsConfig{Default: "network", Items: items}
	require.NoError(t, views.Validate())
	assert.Equal(t, "everything", views.Domain()[1].Display)
}

func TestViewsValidate(t *testing.T) {
	cases := []struct {
		name  string
		views ViewsConfig
	}{
		{"empty", ViewsConfig{Default: "x"}},
		{"duplicate", ViewsConfig{Default: "a", Items: []ViewConfig{{Slug: "a"}, {Slug: "a"}}}},
		{"missing default", ViewsConfig{Default: "b", Items: []ViewConfig{{Slug: "a"}}}},
		{"blank slug", ViewsConfig{Default: "a", Items: []ViewConfig{{Slug: "a"}, {}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.views.Validate())
		})
	}
}
