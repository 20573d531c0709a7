package trace

import (
	"strings"

	"github.com/google/uuid"
)

// Module is a recognised binary module referenced by a trace.
type Module struct {
	FileName  string
	CacheName string // name used in the .symcache file name
}

// knownModules is the complete list of Chrome executables and binaries,
// some of which only exist in internal builds. Case matters for downloads.
var knownModules = []Module{
	{FileName: "chrome_child.dll", CacheName: "chrome.dll"},
	{FileName: "chrome.exe", CacheName: "chrome.exe"},
	{FileName: "chrome.dll", CacheName: "chrome.dll"},
	{FileName: "blink_web.dll", CacheName: "blink_web.dll"},
	{FileName: "content.dll", CacheName: "content.dll"},
	{FileName: "chrome_elf.dll", CacheName: "chrome_elf.dll"},
	{FileName: "chrome_watcher.dll", CacheName: "chrome_watcher.dll"},
	{FileName: "libEGL.dll", CacheName: "libEGL.dll"},
	{FileName: "libGLESv2.dll", CacheName: "libGLESv2.dll"},
}

// KnownModules returns a copy of the recognised module table.
func KnownModules() []Module {
	return append([]Module(nil), knownModules...)
}

// MatchModule returns the module referenced by line as a path component
// (`\name`), if any. When several match, the last one in the table wins.
func MatchModule(line string) (Module, bool) {
	var match Module
	found := false
	for _, m := range knownModules {
		if strings.Contains(line, `\`+m.FileName) {
			match, found = m, true
		}
	}
	return match, found
}

// SymbolRecord is one debug signature referenced by a trace.
type SymbolRecord struct {
	GUID    uuid.UUID
	Age     uint32
	PDBPath string
	Module  Module
}

// GUIDNoHyphens is the GUID as used by symbol servers and symcache names.
func (r SymbolRecord) GUIDNoHyphens() string {
	return strings.ReplaceAll(r.GUID.String(), "-", "")
}

// PDBBaseName is the file name part of PDBPath. Trace paths are Windows
// paths regardless of the host OS.
func (r SymbolRecord) PDBBaseName() string {
	return BaseName(r.PDBPath)
}

// BaseName returns the last element of a path separated by either slash.
func BaseName(p string) string {
	if i := strings.LastIndexAny(p, `\/`); i >= 0 {
		return p[i+1:]
	}
	return p
}
