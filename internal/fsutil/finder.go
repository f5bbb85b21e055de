// Package fsutil provides file system helpers for locating route files.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FindRouteFiles walks root and returns every file whose name ends with ext,
// compared case-insensitively, in lexical order. Hidden files and
// directories (names starting with a dot) are skipped, which keeps editor
// swap and lock files out of a reload.
func FindRouteFiles(root string, ext string) ([]string, error) {
	if ext == "" {
		panic("extension must not be empty")
	}
	ext = strings.ToLower(ext)

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && IsHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// IsHidden reports whether a base name denotes a hidden entry.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
