package guard

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestHideAndRestore(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "chrome.dll.pdb")
	b := filepath.Join(dir, "content.dll.pdb")
	touch(t, a, "a")
	touch(t, b, "b")

	g := New(discard())
	require.NoError(t, g.Hide(a, b))
	assert.False(t, g.Failed())
	assert.NoFileExists(t, a)
	assert.FileExists(t, a+Suffix)
	assert.Len(t, g.Hidden(), 2)

	require.NoError(t, g.Restore())
	for _, p := range []string{a, b} {
		assert.FileExists(t, p)
		assert.NoFileExists(t, p+Suffix)
	}
	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	// idempotent
	require.NoError(t, g.Restore())
	assert.FileExists(t, a)
	assert.Empty(t, g.Hidden())
}

func TestHideReplacesStaleTempFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "chrome.dll.pdb")
	touch(t, a, "fresh")
	touch(t, a+Suffix, "stale")

	g := New(discard())
	require.NoError(t, g.Hide(a))
	data, err := os.ReadFile(a + Suffix)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
	require.NoError(t, g.Restore())
}

func TestHideFailureDoesNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pdb")
	ok := filepath.Join(dir, "chrome.dll.pdb")
	touch(t, ok, "ok")

	g := New(discard())
	err := g.Hide(missing, ok)
	require.Error(t, err)
	var rerr *RenameError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, missing, rerr.Path)
	assert.True(t, g.Failed())

	// the successful rename is still recorded and restored
	require.Len(t, g.Hidden(), 1)
	assert.Equal(t, ok, g.Hidden()[0].OriginalPath)
	require.NoError(t, g.Restore())
	assert.FileExists(t, ok)
}

func TestRestoreContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdb")
	b := filepath.Join(dir, "b.pdb")
	touch(t, a, "a")
	touch(t, b, "b")

	g := New(discard())
	require.NoError(t, g.Hide(a, b))
	// someone else removed the first hidden file
	require.NoError(t, os.Remove(a+Suffix))

	err := g.Restore()
	require.Error(t, err)
	assert.FileExists(t, b)
	assert.NoFileExists(t, b+Suffix)
}

func TestHideSamePathTwice(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "chrome.dll.pdb")
	touch(t, a, "private")

	g := New(discard())
	require.NoError(t, g.Hide(a))
	require.NoError(t, g.Hide(a, a))
	assert.False(t, g.Failed())
	assert.Len(t, g.Hidden(), 1)
	assert.FileExists(t, a+Suffix)

	require.NoError(t, g.Restore())
	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "private", string(data))
	assert.NoFileExists(t, a+Suffix)
}
