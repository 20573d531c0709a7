package symcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

var testGUID = uuid.MustParse("0e7712be-af06-4421-884b-496f833c8ec1")

func record(cacheName string, age uint32) trace.SymbolRecord {
	return trace.SymbolRecord{
		GUID:    testGUID,
		Age:     age,
		PDBPath: `D:\src\out\chrome.dll.pdb`,
		Module:  trace.Module{FileName: cacheName, CacheName: cacheName},
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		age  uint32
		want string
	}{
		{33, "chrome.dll-0e7712beaf064421884b496f833c8ec121v2.symcache"},
		{51, "chrome.dll-0e7712beaf064421884b496f833c8ec133v2.symcache"},
		{1, "chrome.dll-0e7712beaf064421884b496f833c8ec11v2.symcache"},
		{255, "chrome.dll-0e7712beaf064421884b496f833c8ec1ffv2.symcache"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName("chrome.dll", testGUID, tt.age))
	}
}

func TestPathIsDeterministic(t *testing.T) {
	rec := record("chrome.dll", 51)
	assert.Equal(t, Path("/cache", rec), Path("/cache", rec))
	assert.Equal(t, filepath.Join("/cache", "chrome.dll-0e7712beaf064421884b496f833c8ec133v2.symcache"), Path("/cache", rec))
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	rec := record("content.dll", 10)

	e := Resolve(root, rec)
	assert.False(t, e.Exists)
	assert.Equal(t, filepath.Join(root, "content.dll-0e7712beaf064421884b496f833c8ec1av2.symcache"), e.TargetPath)

	require.NoError(t, os.WriteFile(e.TargetPath, []byte("x"), 0o644))
	assert.True(t, Resolve(root, rec).Exists)
}

func TestResolveIgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	rec := record("content.dll", 10)
	require.NoError(t, os.Mkdir(Path(root, rec), 0o755))
	assert.False(t, Resolve(root, rec).Exists)
}

func TestParseFileName(t *testing.T) {
	name, guid, age, ok := ParseFileName("chrome.dll-0e7712beaf064421884b496f833c8ec133v2.symcache")
	require.True(t, ok)
	assert.Equal(t, "chrome.dll", name)
	assert.Equal(t, testGUID, guid)
	assert.Equal(t, uint32(0x33), age)

	_, _, _, ok = ParseFileName("chrome.dll.pdb")
	assert.False(t, ok)
}
