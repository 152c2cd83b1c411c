// Package scanner collects the files of a directory tree that a backend can read.
package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

type Scanner struct {
	includeExt map[string]bool
}

func New(extensions []string) *Scanner {
	extMap := make(map[string]bool)
	for _, ext := range extensions {
		extMap[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Scanner{includeExt: extMap}
}

// Scan walks root and returns a handle per matching file, in lexical order. Reference is
// the slash-separated path relative to root.
func (s *Scanner) Scan(root string) ([]types.FileHandle, error) {
	var handles []types.FileHandle

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if !s.includeExt[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}

		handles = append(handles, types.FileHandle{
			Reference: filepath.ToSlash(rel),
			Path:      abs,
			Name:      d.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Extension: ext,
		})

		return nil
	})

	return handles, err
}
