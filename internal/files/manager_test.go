package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/config"
	"idoosync/internal/shared/testutil"
)

func newTestPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	paths := &config.Paths{
		BaseDir:     base,
		DownloadDir: filepath.Join(base, "download_files"),
		LogsDir:     filepath.Join(base, "logs"),
		DataDir:     filepath.Join(base, "data"),
	}
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func TestResolve(t *testing.T) {
	paths := &config.Paths{
		BaseDir:     "/srv/idoo",
		DownloadDir: "/srv/idoo/download_files",
		LogsDir:     "/var/log/idoo",
		DataDir:     "/srv/idoo/data",
	}
	m := NewManager(paths, nil)

	tests := []struct {
		in   string
		want string
	}{
		{"/tmp/x.xlsx", "/tmp/x.xlsx"},
		{"downloads/report.xlsx", "/srv/idoo/download_files/report.xlsx"},
		{"logs/idoo-sync.log", "/var/log/idoo/idoo-sync.log"},
		{"data/history.db", "/srv/idoo/data/history.db"},
		{"error_screenshot_a.png", "/srv/idoo/error_screenshot_a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Resolve(tt.in))
		})
	}
}

func TestStatAndDelete(t *testing.T) {
	paths := newTestPaths(t)
	logger, _ := testutil.NewTestLogger(t)
	m := NewManager(paths, logger)

	full := filepath.Join(paths.DownloadDir, "r.xlsx")
	require.NoError(t, os.WriteFile(full, []byte("xyz"), 0644))
	info, ok := m.Stat("downloads/r.xlsx")
	require.True(t, ok)
	assert.Equal(t, full, info.Path)
	assert.Equal(t, "r.xlsx", info.Name)
	assert.EqualValues(t, 3, info.Size)

	_, ok = m.Stat("downloads")
	assert.False(t, ok, "directories are not files")

	require.NoError(t, m.DeleteFile("downloads/r.xlsx"))
	_, ok = m.Stat("downloads/r.xlsx")
	assert.False(t, ok)

	err := m.DeleteFile("downloads/r.xlsx")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRename(t *testing.T) {
	paths := newTestPaths(t)
	logger, logs := testutil.NewTestLogger(t)
	m := NewManager(paths, logger)

	require.NoError(t, os.WriteFile(filepath.Join(paths.DownloadDir, "a.xlsx"), []byte("x"), 0644))
	require.NoError(t, m.Rename("downloads/a.xlsx", "downloads/b.xlsx"))
	assert.FileExists(t, filepath.Join(paths.DownloadDir, "b.xlsx"))
	assert.True(t, logs.ContainsMessage("Renamed file"))

	assert.Error(t, m.Rename("downloads/a.xlsx", "downloads/c.xlsx"))
}
