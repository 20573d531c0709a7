package tools

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/pdbwarm/internal/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(filepath.Base(p)), 0o755))
}

func TestCheckSymbolPath(t *testing.T) {
	cfg := &config.Config{SymbolServerMark: "chromium-browser-symsrv"}
	assert.ErrorIs(t, CheckSymbolPath(cfg), ErrMissing)

	cfg.SymbolPath = `srv*c:\symbols*https://msdl.microsoft.com/download/symbols;srv*c:\symbols*https://chromium-browser-symsrv.commondatastorage.googleapis.com`
	assert.NoError(t, CheckSymbolPath(cfg))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	toolDir := filepath.Join(root, "bin")
	thirdParty := filepath.Join(root, "third_party")
	touch(t, filepath.Join(toolDir, "RetrieveSymbols.exe"))
	for _, f := range SupportFiles {
		touch(t, filepath.Join(thirdParty, f))
	}

	cfg := &config.Config{
		ToolDir:         toolDir,
		ThirdPartyDir:   thirdParty,
		Xperf:           "xperf",
		RetrieveSymbols: filepath.Join(toolDir, "RetrieveSymbols.exe"),
		PDBCopy:         filepath.Join(toolDir, "pdbcopy.exe"),
		FastlinkTool:    filepath.Join(root, "missing", "mspdbcmf.exe"),
	}
	set, err := Discover(cfg, discard())
	require.NoError(t, err)

	for _, f := range SupportFiles {
		assert.FileExists(t, filepath.Join(toolDir, f))
	}
	assert.Equal(t, cfg.PDBCopy, set.PDBCopy)
	assert.Empty(t, set.FastlinkTool)

	sdk := filepath.Join(root, "sdk", "pdbcopy.exe")
	touch(t, sdk)
	cfg.SDKPDBCopy = sdk
	touch(t, filepath.Join(root, "vc", "mspdbcmf.exe"))
	cfg.FastlinkTool = filepath.Join(root, "vc", "mspdbcmf.exe")

	set, err = Discover(cfg, discard())
	require.NoError(t, err)
	assert.Equal(t, sdk, set.PDBCopy)
	assert.Equal(t, cfg.FastlinkTool, set.FastlinkTool)
}

func TestDiscoverMissingTools(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		ToolDir:         root,
		RetrieveSymbols: filepath.Join(root, "RetrieveSymbols.exe"),
		PDBCopy:         filepath.Join(root, "pdbcopy.exe"),
	}
	_, err := Discover(cfg, discard())
	require.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "pdbcopy")

	touch(t, cfg.PDBCopy)
	_, err = Discover(cfg, discard())
	require.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "RetrieveSymbols")
}

func TestCopySupportFilesKeepsExisting(t *testing.T) {
	root := t.TempDir()
	toolDir := filepath.Join(root, "bin")
	thirdParty := filepath.Join(root, "third_party")
	touch(t, filepath.Join(thirdParty, "dbghelp.dll"))
	require.NoError(t, os.MkdirAll(toolDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(toolDir, "dbghelp.dll"), []byte("mine"), 0o644))

	CopySupportFiles(thirdParty, toolDir, discard())

	data, err := os.ReadFile(filepath.Join(toolDir, "dbghelp.dll"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
	assert.NoFileExists(t, filepath.Join(toolDir, "symsrv.dll"))
}
