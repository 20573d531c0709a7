package retrieve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/pdbwarm/internal/toolexec"
	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord(pdbPath string) trace.SymbolRecord {
	return trace.SymbolRecord{
		GUID:    uuid.MustParse("0e7712be-af06-4421-884b-496f833c8ec1"),
		Age:     33,
		PDBPath: pdbPath,
		Module:  trace.Module{FileName: "chrome.dll", CacheName: "chrome.dll"},
	}
}

func TestCachedPath(t *testing.T) {
	lines := []string{
		"Looking for chrome.dll.pdb",
		`  Found pdb file - placed it in c:\symbols\chrome.dll.pdb\0E77\chrome.dll.pdb.`,
	}
	assert.Equal(t, `c:\symbols\chrome.dll.pdb\0E77\chrome.dll.pdb`, CachedPath(lines))
	assert.Empty(t, CachedPath([]string{"Error: could not find symbols"}))
	assert.Equal(t, `b`, CachedPath([]string{"Found file - placed it in a.", "Found pdb file - placed it in b"}))
}

func TestResolveDownloaded(t *testing.T) {
	var got toolexec.Command
	r := &Retriever{
		Tool: "RetrieveSymbols.exe",
		Runner: toolexec.RunnerFunc(func(_ context.Context, cmd toolexec.Command) toolexec.Result {
			got = cmd
			return toolexec.Result{Output: []byte("Found pdb file - placed it in c:\\sym\\chrome.dll.pdb.\r\n")}
		}),
		Logger:     discard(),
		AllowLocal: true,
	}

	res, err := r.Resolve(context.Background(), testRecord(`D:\src\out\chrome.dll.pdb`))
	require.NoError(t, err)
	assert.Equal(t, Resolved{Path: `c:\sym\chrome.dll.pdb`, Source: SourceDownloaded}, res)
	assert.Equal(t, []string{"0e7712beaf064421884b496f833c8ec1", "33", "chrome.dll.pdb"}, got.Args)
}

func TestResolveLocalFallback(t *testing.T) {
	local := filepath.Join(t.TempDir(), "chrome.dll.pdb")
	require.NoError(t, os.WriteFile(local, []byte("pdb"), 0o644))

	r := &Retriever{
		Tool: "RetrieveSymbols.exe",
		Runner: toolexec.RunnerFunc(func(context.Context, toolexec.Command) toolexec.Result {
			return toolexec.Result{Output: []byte("Couldn't find the symbols\n"), ExitCode: 1}
		}),
		Logger:     discard(),
		AllowLocal: true,
	}

	res, err := r.Resolve(context.Background(), testRecord(local))
	require.NoError(t, err)
	assert.Equal(t, Resolved{Path: local, Source: SourceLocal}, res)

	r.AllowLocal = false
	_, err = r.Resolve(context.Background(), testRecord(local))
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
}

func TestResolveFailure(t *testing.T) {
	r := &Retriever{
		Tool: "RetrieveSymbols.exe",
		Runner: toolexec.RunnerFunc(func(context.Context, toolexec.Command) toolexec.Result {
			return toolexec.Result{Err: errors.New("exec: not found")}
		}),
		Logger:     discard(),
		AllowLocal: true,
	}

	_, err := r.Resolve(context.Background(), testRecord(filepath.Join(t.TempDir(), "missing.pdb")))
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, err.Error(), "chrome.dll.pdb")
}

func TestResolveInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Retriever{
		Tool: "RetrieveSymbols.exe",
		Runner: toolexec.RunnerFunc(func(context.Context, toolexec.Command) toolexec.Result {
			cancel()
			return toolexec.Result{Err: context.Canceled}
		}),
		Logger: discard(),
	}
	_, err := r.Resolve(ctx, testRecord(""))
	assert.ErrorIs(t, err, context.Canceled)
}
