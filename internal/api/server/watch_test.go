package server

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proxy")
	other := filepath.Join(dir, "other")

	var changes atomic.Int32
	w, err := WatchFile(path, func() { changes.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, changes.Load(), "changes to other files are ignored")

	require.NoError(t, os.WriteFile(path, []byte(`PROXY_ENABLED="no"`), 0o644))
	assert.Eventually(t, func() bool { return changes.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchFile_InvalidatesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy")
	src := &countingSource{}
	c := NewConfigCache(src, time.Hour, nil)

	w, err := WatchFile(path, c.Invalidate)
	require.NoError(t, err)
	defer w.Close()

	_, _ = c.Resolve()
	require.NoError(t, os.WriteFile(path, []byte(`PROXY_ENABLED="yes"`), 0o644))

	assert.Eventually(t, func() bool {
		_, _ = c.Resolve()
		return src.count() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchFile_MissingDirectory(t *testing.T) {
	_, err := WatchFile(filepath.Join(t.TempDir(), "missing", "proxy"), func() {})
	assert.Error(t, err)
}

func TestFileWatcher_Close(t *testing.T) {
	w, err := WatchFile(filepath.Join(t.TempDir(), "proxy"), func() {})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
