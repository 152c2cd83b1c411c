// Package metadata implements the extraction backends and the registry that selects them.
package metadata

import (
	"context"
	"strings"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// Service is one extraction backend.
type Service interface {
	// Name returns the backend identifier.
	Name() types.BackendName
	// SupportedFileTypes returns the lowercase extensions this backend can handle.
	SupportedFileTypes() []string
	// ExtractMetadata reads the file and returns its metadata. On failure the error is an
	// *ExtractionError and the returned tree holds whatever was parsed before the failure.
	ExtractMetadata(ctx context.Context, file types.FileHandle) (*types.Tree, error)
}

// Supports reports whether s declares support for the extension.
func Supports(s Service, extension string) bool {
	extension = strings.ToLower(strings.TrimPrefix(extension, "."))
	for _, ext := range s.SupportedFileTypes() {
		if ext == extension {
			return true
		}
	}
	return false
}
