package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// LocalDriver serves files below BasePath.
type LocalDriver struct {
	BasePath  string
	PublicURL string
}

func (d *LocalDriver) Open(ctx context.Context, path string) (types.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return types.FileHandle{}, err
	}

	rel, err := cleanRelative(path)
	if err != nil {
		return types.FileHandle{}, err
	}

	base, err := filepath.Abs(d.BasePath)
	if err != nil {
		return types.FileHandle{}, fmt.Errorf("invalid storage root: %w", err)
	}
	abs := filepath.Join(base, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		return types.FileHandle{}, err
	}
	if !info.Mode().IsRegular() {
		return types.FileHandle{}, fmt.Errorf("not a regular file: %s", rel)
	}
	if err := withinRoot(base, abs); err != nil {
		return types.FileHandle{}, err
	}

	return types.FileHandle{
		Path:      abs,
		Name:      info.Name(),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Extension: Extension(info.Name()),
		PublicURL: publicURL(d.PublicURL, rel),
	}, nil
}

// withinRoot rejects files whose real location, after following symlinks, is outside base.
func withinRoot(base, abs string) error {
	realBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return fmt.Errorf("invalid storage root: %w", err)
	}
	target, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(realBase, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes storage root: %s", abs)
	}
	return nil
}
