// Package resolver turns file references into local files the backends can read.
//
// Two reference shapes are understood:
//
//	EXT:<package>/Resources/Public/<path>   a static asset below Config.PublicDir; only
//	                                        Config.PublicPackage is served
//	storage:<id>:<path>                     a file in a configured storage (also file:<id>:<path>)
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/internal/metadata"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

var (
	extReference     = regexp.MustCompile(`^EXT:([A-Za-z0-9_]+)/Resources/Public/(.+)$`)
	storageReference = regexp.MustCompile(`^(?:storage|file):([A-Za-z0-9_.-]+):(.+)$`)
)

// Driver opens files of one storage.
type Driver interface {
	Open(ctx context.Context, path string) (types.FileHandle, error)
}

// Resolver resolves references against the configured storages.
type Resolver struct {
	cfg *config.Config

	// NewS3Downloader builds the object downloader for an s3 storage. Tests replace it.
	NewS3Downloader func(ctx context.Context, storage config.Storage) (Downloader, error)
}

func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg, NewS3Downloader: newS3Downloader}
}

// Resolve returns a handle for reference. Every failure is a *metadata.FileNotFoundError.
// The caller must Release the handle.
func (r *Resolver) Resolve(ctx context.Context, reference string) (types.FileHandle, error) {
	handle, err := r.resolve(ctx, strings.TrimSpace(reference))
	if err != nil {
		return types.FileHandle{}, &metadata.FileNotFoundError{Reference: reference, Err: err}
	}
	handle.Reference = reference
	return handle, nil
}

func (r *Resolver) resolve(ctx context.Context, reference string) (types.FileHandle, error) {
	if reference == "" {
		return types.FileHandle{}, fmt.Errorf("empty reference")
	}
	if err := validatePath(reference); err != nil {
		return types.FileHandle{}, err
	}

	if m := extReference.FindStringSubmatch(reference); m != nil {
		if m[1] != r.publicPackage() {
			return types.FileHandle{}, fmt.Errorf("unknown package %q", m[1])
		}
		driver := &LocalDriver{BasePath: r.cfg.PublicDir, PublicURL: r.cfg.PublicURLPrefix}
		return driver.Open(ctx, m[2])
	}

	if m := storageReference.FindStringSubmatch(reference); m != nil {
		storage, ok := r.cfg.Storage(m[1])
		if !ok {
			return types.FileHandle{}, fmt.Errorf("unknown storage %q", m[1])
		}
		driver, err := r.driver(ctx, storage)
		if err != nil {
			return types.FileHandle{}, err
		}
		return driver.Open(ctx, m[2])
	}

	return types.FileHandle{}, fmt.Errorf("unsupported reference format")
}

func (r *Resolver) driver(ctx context.Context, storage config.Storage) (Driver, error) {
	switch storage.Driver {
	case config.StorageDriverS3:
		dl, err := r.NewS3Downloader(ctx, storage)
		if err != nil {
			return nil, fmt.Errorf("storage %s: %w", storage.ID, err)
		}
		return &S3Driver{Downloader: dl, Bucket: storage.Bucket, Region: storage.Region, PublicURL: storage.PublicURL}, nil
	case config.StorageDriverLocal, "":
		return &LocalDriver{BasePath: storage.BasePath, PublicURL: storage.PublicURL}, nil
	default:
		return nil, fmt.Errorf("storage %s: unknown driver %q", storage.ID, storage.Driver)
	}
}

func (r *Resolver) publicPackage() string {
	if r.cfg.PublicPackage == "" {
		return config.DefaultPublicPackage
	}
	return r.cfg.PublicPackage
}

// Extension returns the lowercase extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// cleanRelative normalizes a storage-relative path and rejects paths that leave the root.
func cleanRelative(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", fmt.Errorf("path escapes storage root: %s", p)
		}
	}

	cleaned := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+p)), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty path")
	}
	return cleaned, nil
}

func publicURL(prefix, rel string) string {
	if prefix == "" {
		return ""
	}
	u, err := url.JoinPath(prefix, strings.Split(rel, "/")...)
	if err != nil {
		return ""
	}
	return u
}
