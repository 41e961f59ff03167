package analysis

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Directories never worth analyzing.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// DefaultMaxFileBytes caps how much of a single file is loaded.
const DefaultMaxFileBytes = 512 * 1024

// ReadTarget loads a target from disk, walking root and collecting source
// files. Binary-looking and oversized files are skipped, not errors.
func ReadTarget(root string) (Target, error) {
	target := Target{Root: root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > DefaultMaxFileBytes {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if isBinary(data) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		target.Files = append(target.Files, SourceFile{
			Path:     rel,
			Language: LanguageOf(rel),
			Content:  string(data),
		})
		return nil
	})
	if err != nil {
		return Target{}, fmt.Errorf("read target %s: %w", root, err)
	}
	return target, nil
}

// isBinary reports whether data looks like a binary file. A NUL byte in
// the first kilobyte is the usual tell.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	return strings.ContainsRune(string(probe), '\x00')
}
