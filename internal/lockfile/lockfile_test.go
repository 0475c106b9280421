package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireThenContendedThenReleaseSucceeds(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	l1, err := Acquire(src, time.Minute)
	require.NoError(t, err)

	_, err = Acquire(src, time.Minute)
	assert.ErrorIs(t, err, ErrContended)

	require.NoError(t, l1.Release())

	l2, err := Acquire(src, time.Minute)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	stalePath := lockPath(src)
	stale := info{pid: 999999, created: time.Now().Unix(), source: src}
	require.NoError(t, writeInfo(stalePath, stale))

	l, err := Acquire(src, time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestWitnessVerifyDetectsChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	w, err := Capture(src)
	require.NoError(t, err)
	require.NoError(t, w.Verify())

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(src, []byte("data-changed-longer"), 0o644))

	assert.ErrorIs(t, w.Verify(), ErrIntegrityLost)
}

func TestWitnessVerifyToleratesTouchWithoutContentChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	w, err := Capture(src)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, later, later))

	assert.NoError(t, w.Verify())
}

func TestWitnessVerifyDetectsSameSizeRewrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(src, []byte("aaaa"), 0o644))

	w, err := Capture(src)
	require.NoError(t, err)

	later := w.MTime.Add(time.Hour)
	require.NoError(t, os.WriteFile(src, []byte("bbbb"), 0o644))
	require.NoError(t, os.Chtimes(src, later, later))

	assert.ErrorIs(t, w.Verify(), ErrIntegrityLost)
}
