package metadata

import (
	"fmt"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// ConfigurationError reports a backend that cannot be constructed from the current
// configuration (missing tool, bad endpoint, unreachable service).
type ConfigurationError struct {
	Backend types.BackendName
	Setting string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UnsupportedBackendError reports an unknown backend name.
type UnsupportedBackendError struct {
	Name       string
	Suggestion types.BackendName
}

func (e *UnsupportedBackendError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unsupported service %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unsupported service %q", e.Name)
}

// ExtractionError reports a failed extraction call: tool failure, unparsable output,
// unreachable service, unsupported format or timeout.
type ExtractionError struct {
	Backend types.BackendName
	Path    string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: failed to extract metadata from %s: %v", e.Backend, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// FileNotFoundError reports a file reference that could not be resolved.
type FileNotFoundError struct {
	Reference string
	Err       error
}

func (e *FileNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file not found: %s: %v", e.Reference, e.Err)
	}
	return "file not found: " + e.Reference
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// UnauthorizedError reports a caller that is not allowed to run extractions.
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string {
	return "not authorized"
}
