package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Zuo-Peng/pdbwarm/internal/symcache"
)

type FileInfo struct {
	Path  string
	Mtime int64
	Size  int64
	// Parsed from the file name; Module is empty when the name does not
	// follow the symcache convention.
	Module string
	GUID   string
	Age    uint32
}

// ScanSymcache lists the .symcache files under root, newest first. A
// missing root yields no files.
func ScanSymcache(root string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), symcache.Ext) {
			return nil
		}
		fi := FileInfo{
			Path:  path,
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		}
		if name, guid, age, ok := symcache.ParseFileName(filepath.Base(path)); ok {
			fi.Module = name
			fi.GUID = guid.String()
			fi.Age = age
		}
		files = append(files, fi)
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Mtime > files[j].Mtime
	})
	return files, nil
}

// Totals sums file sizes per module.
func Totals(files []FileInfo) map[string]int64 {
	totals := make(map[string]int64)
	for _, f := range files {
		name := f.Module
		if name == "" {
			name = "other"
		}
		totals[name] += f.Size
	}
	return totals
}
