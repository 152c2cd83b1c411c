// Package types defines core data structures used across MetaProbe modules.
package types

import (
	"time"
)

// FileHandle represents a resolved, readable local file.
type FileHandle struct {
	// Reference is the logical reference the file was resolved from.
	Reference string
	// Path is the absolute path to the local file.
	Path string
	// Name is the base filename.
	Name string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the file modification time.
	ModTime time.Time
	// Extension is the lowercase file extension without dot (e.g., "jpg", "pdf").
	Extension string
	// PublicURL is the public-facing URL of the file, if any.
	PublicURL string
	// Cleanup releases request-scoped resources (e.g., a downloaded temp copy).
	Cleanup func() error `json:"-"`
}

// Release frees resources held by the handle. Safe to call on handles without cleanup.
func (f FileHandle) Release() error {
	if f.Cleanup == nil {
		return nil
	}
	return f.Cleanup()
}

// BackendName identifies one extraction strategy.
type BackendName string

const (
	BackendExifTool BackendName = "exiftool"
	BackendPdfinfo  BackendName = "pdfinfo"
	BackendPHP      BackendName = "php"
	BackendTika     BackendName = "tika"
	BackendDocconv  BackendName = "docconv"
)

// ExtractionResult is the outcome of one extraction request.
type ExtractionResult struct {
	Success   bool          `json:"success"`
	Preview   string        `json:"preview"`
	HTML      string        `json:"html"`
	Message   string        `json:"message,omitempty"`
	Service   BackendName   `json:"service,omitempty"`
	Reference string        `json:"file,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Metadata  *Tree         `json:"metadata,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// ServiceStatus describes whether a backend can be constructed with the current config.
type ServiceStatus struct {
	Name           BackendName `json:"name"`
	Available      bool        `json:"available"`
	Message        string      `json:"message,omitempty"`
	SupportedTypes []string    `json:"supported_types,omitempty"`
}
