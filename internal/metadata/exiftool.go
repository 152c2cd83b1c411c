package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

var exifToolFileTypes = []string{
	"jpg", "jpeg", "tif", "tiff", "png", "gif", "bmp", "webp", "heic", "heif",
	"raw", "arw", "cr2", "cr3", "nef", "dng", "orf", "raf", "rw2",
	"mp4", "mov", "avi", "mkv", "mxf", "m4v", "mp3", "m4a", "wav", "flac",
	"pdf", "psd", "ai", "eps", "svg", "xmp",
	"doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "ods", "odp",
}

// ExifToolService reads metadata with Phil Harvey's exiftool, grouped by tag family 1.
type ExifToolService struct {
	tool    string
	timeout time.Duration
}

func NewExifTool(cfg *config.Config) (*ExifToolService, error) {
	tool, err := requireExecutable(types.BackendExifTool, "tools_exiftool", cfg.ToolsExifTool)
	if err != nil {
		return nil, err
	}
	return &ExifToolService{tool: tool, timeout: cfg.Timeout}, nil
}

func (s *ExifToolService) Name() types.BackendName {
	return types.BackendExifTool
}

func (s *ExifToolService) SupportedFileTypes() []string {
	return exifToolFileTypes
}

// Command returns the exiftool invocation for path.
func (s *ExifToolService) Command(path string) Command {
	return Command{Path: s.tool, Args: []string{"-json", "-g1", path}}
}

func (s *ExifToolService) ExtractMetadata(ctx context.Context, file types.FileHandle) (*types.Tree, error) {
	return runTool(ctx, s.timeout, s.Name(), file.Path, s.Command(file.Path), parseExifToolJSON)
}

// parseExifToolJSON decodes "exiftool -json" output: an array holding one object per file.
func parseExifToolJSON(data []byte) (*types.Tree, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		if len(data) == 0 {
			return types.NewTree(), nil
		}
		return types.NewTree(), fmt.Errorf("decode exiftool output: %w", err)
	}
	if len(docs) == 0 {
		return types.NewTree(), nil
	}

	tree, err := decodeJSONObject(docs[0])
	tree.Delete("SourceFile")
	return tree, err
}
