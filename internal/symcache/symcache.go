// Package symcache maps debug signatures to .symcache file names in the
// symbol cache store.
package symcache

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Zuo-Peng/pdbwarm/internal/trace"
)

const Ext = ".symcache"

type Entry struct {
	TargetPath string
	Exists     bool
}

// FileName returns `<cacheName>-<guid without hyphens><age in hex>v2.symcache`.
// xperf reports the age in decimal but symcache names use lowercase hex.
func FileName(cacheName string, guid uuid.UUID, age uint32) string {
	return fmt.Sprintf("%s-%s%xv2%s", cacheName, strings.ReplaceAll(guid.String(), "-", ""), age, Ext)
}

// Path returns the cache file path of rec under root.
func Path(root string, rec trace.SymbolRecord) string {
	return filepath.Join(root, FileName(rec.Module.CacheName, rec.GUID, rec.Age))
}

// Resolve computes the cache entry for rec and checks whether it exists.
func Resolve(root string, rec trace.SymbolRecord) Entry {
	p := Path(root, rec)
	return Entry{TargetPath: p, Exists: fileExists(p)}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

var nameRe = regexp.MustCompile(`^(.+)-([0-9a-fA-F]{32})([0-9a-fA-F]+)v2\.symcache$`)

// ParseFileName reverses FileName. The age is everything between the 32
// GUID digits and the "v2" suffix.
func ParseFileName(name string) (cacheName string, guid uuid.UUID, age uint32, ok bool) {
	m := nameRe.FindStringSubmatch(name)
	if m == nil {
		return "", uuid.UUID{}, 0, false
	}
	g, err := uuid.Parse(m[2])
	if err != nil {
		return "", uuid.UUID{}, 0, false
	}
	a, err := strconv.ParseUint(m[3], 16, 32)
	if err != nil {
		return "", uuid.UUID{}, 0, false
	}
	return m[1], g, uint32(a), true
}
