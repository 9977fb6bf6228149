package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/config"
	"idoosync/internal/shared/testutil"
)

func newTestWatcher(t *testing.T) (*Watcher, *config.Paths, *testutil.FakeSleeper) {
	t.Helper()
	paths := newTestPaths(t)
	sleeper := &testutil.FakeSleeper{}
	logger, _ := testutil.NewTestLogger(t)
	return NewWatcher(paths, config.Default().Report, sleeper, logger), paths, sleeper
}

func TestWaitReturnsExistingTarget(t *testing.T) {
	w, paths, sleeper := newTestWatcher(t)
	writeFile(t, paths.DownloadDir, config.DownloadTargetName, time.Time{})

	path, err := w.Wait(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.DownloadDir, config.DownloadTargetName), path)
	assert.Zero(t, sleeper.Count())
}

func TestWaitRenamesAfterPartialDisappears(t *testing.T) {
	w, paths, sleeper := newTestWatcher(t)
	partial := writeFile(t, paths.DownloadDir, "8f1c.crdownload", time.Time{})

	sleeper.OnSleep = func(time.Duration) {
		if sleeper.Count() == 2 {
			require.NoError(t, os.Remove(partial))
			writeFile(t, paths.DownloadDir, "ReOrder Custom Report (1).xlsx", time.Time{})
		}
	}

	path, err := w.Wait(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, w.Target(), path)
	assert.FileExists(t, w.Target())
	assert.NoFileExists(t, filepath.Join(paths.DownloadDir, "ReOrder Custom Report (1).xlsx"))
	assert.Equal(t, 2, sleeper.Count())
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeper.Sleeps)
}

func TestWaitPicksNewestWorkbookSince(t *testing.T) {
	w, paths, _ := newTestWatcher(t)
	started := time.Now().Add(-time.Minute)
	writeFile(t, paths.DownloadDir, "stale.xlsx", started.Add(-time.Hour))
	writeFile(t, paths.DownloadDir, "first.xlsx", started.Add(10*time.Second))
	writeFile(t, paths.DownloadDir, "second.xlsx", started.Add(20*time.Second))

	_, err := w.Wait(context.Background(), started)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(paths.DownloadDir, "stale.xlsx"))
	assert.FileExists(t, filepath.Join(paths.DownloadDir, "first.xlsx"))
	assert.NoFileExists(t, filepath.Join(paths.DownloadDir, "second.xlsx"))
}

func TestWaitReplacesTargetOlderThanSince(t *testing.T) {
	w, paths, sleeper := newTestWatcher(t)
	started := time.Now().Add(-time.Minute)
	writeWorkbook(t, w.Target(), "previous account", started.Add(-time.Hour))
	fresh := writeWorkbook(t, filepath.Join(paths.DownloadDir, "ReOrder Custom Report (1).xlsx"),
		"current account", started.Add(10*time.Second))

	path, err := w.Wait(context.Background(), started)
	require.NoError(t, err)

	assert.Equal(t, w.Target(), path)
	assert.NoFileExists(t, fresh)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "current account", string(data))
	assert.Zero(t, sleeper.Count())
}

func TestWaitNeverReturnsTargetOlderThanSince(t *testing.T) {
	w, _, sleeper := newTestWatcher(t)
	started := time.Now().Add(-time.Minute)
	writeWorkbook(t, w.Target(), "previous account", started.Add(-time.Hour))

	_, err := w.Wait(context.Background(), started)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
	assert.Equal(t, 180, sleeper.Count())
	assert.FileExists(t, w.Target())
}

func TestWaitAcceptsTargetWrittenSince(t *testing.T) {
	w, _, sleeper := newTestWatcher(t)
	started := time.Now().Add(-time.Minute)
	writeWorkbook(t, w.Target(), "current account", started.Add(5*time.Second))

	path, err := w.Wait(context.Background(), started)
	require.NoError(t, err)
	assert.Equal(t, w.Target(), path)
	assert.Zero(t, sleeper.Count())
}

func TestClearStale(t *testing.T) {
	started := time.Now().Add(-time.Minute)

	t.Run("removes target older than since", func(t *testing.T) {
		w, _, _ := newTestWatcher(t)
		writeWorkbook(t, w.Target(), "previous account", started.Add(-time.Hour))

		require.NoError(t, w.ClearStale(context.Background(), started))
		assert.NoFileExists(t, w.Target())
	})

	t.Run("keeps target written since", func(t *testing.T) {
		w, _, _ := newTestWatcher(t)
		writeWorkbook(t, w.Target(), "current account", started.Add(time.Second))

		require.NoError(t, w.ClearStale(context.Background(), started))
		assert.FileExists(t, w.Target())
	})

	t.Run("missing target is fine", func(t *testing.T) {
		w, _, _ := newTestWatcher(t)
		assert.NoError(t, w.ClearStale(context.Background(), started))
	})
}

func writeWorkbook(t *testing.T, path, content string, mod time.Time) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestWaitTimesOut(t *testing.T) {
	w, paths, sleeper := newTestWatcher(t)
	writeFile(t, paths.DownloadDir, "stuck.crdownload", time.Time{})
	writeFile(t, paths.DownloadDir, "old.xlsx", time.Time{})

	_, err := w.Wait(context.Background(), time.Time{})
	assert.ErrorIs(t, err, ErrDownloadTimeout)
	assert.Equal(t, 180, sleeper.Count())
	assert.Equal(t, 180*time.Second, sleeper.Total())
}

func TestWaitIgnoresWorkbooksOlderThanSince(t *testing.T) {
	w, paths, sleeper := newTestWatcher(t)
	writeFile(t, paths.DownloadDir, "yesterday.xlsx", time.Now().Add(-24*time.Hour))

	_, err := w.Wait(context.Background(), time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, ErrDownloadTimeout)
	assert.Equal(t, 180, sleeper.Count())
}

func TestWaitHonoursCancellation(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Wait(ctx, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}
