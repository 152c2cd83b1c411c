package resolver

import (
	"fmt"
	"strings"
)

const maxReferenceLength = 4096

var htmlTagPatterns = []string{
	"<script",
	"</script",
	"<iframe",
	"<object",
	"<embed",
	"<img",
}

var dangerousPatterns = []string{
	"javascript:",
	"onerror=",
	"onload=",
	"onclick=",
	"onmouseover=",
}

// validatePath rejects references carrying markup or script fragments. A reference ends
// up in the preview markup, so it must never carry HTML of its own.
func validatePath(path string) error {
	lowerPath := strings.ToLower(path)

	for _, pattern := range htmlTagPatterns {
		if strings.Contains(lowerPath, pattern) {
			return fmt.Errorf("path contains HTML tag pattern: %s", pattern)
		}
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerPath, pattern) {
			return fmt.Errorf("path contains potentially malicious pattern: %s", pattern)
		}
	}

	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains NUL byte")
	}

	if len(path) > maxReferenceLength {
		return fmt.Errorf("path too long (max %d characters)", maxReferenceLength)
	}

	return nil
}
