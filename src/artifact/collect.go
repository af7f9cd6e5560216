// Package artifact manages the component artifact tree: collecting files,
// hashing them, pinning hashes in a lock file and mirroring the tree into
// an object store.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one regular file of the artifact tree.
type File struct {
	// Path is relative to the tree root, slash separated.
	Path    string
	AbsPath string
	Size    int64
}

// Collect walks root and returns its regular files sorted by path.
// Hidden directories are skipped, as are files matching exclude.
func Collect(root string, exclude []string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("artifact tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact tree %s is not a directory", root)
	}

	var files []File
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = toSlash(rel)

		if d.IsDir() {
			if rel != "." && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || Excluded(exclude, rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Path: rel, AbsPath: p, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func toSlash(p string) string {
	return filepath.ToSlash(p)
}
