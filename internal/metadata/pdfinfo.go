package metadata

import (
	"context"
	"time"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// PdfinfoService reads PDF document properties with poppler's pdfinfo.
type PdfinfoService struct {
	tool    string
	timeout time.Duration
}

func NewPdfinfo(cfg *config.Config) (*PdfinfoService, error) {
	tool, err := requireExecutable(types.BackendPdfinfo, "tools_pdfinfo", cfg.ToolsPdfinfo)
	if err != nil {
		return nil, err
	}
	return &PdfinfoService{tool: tool, timeout: cfg.Timeout}, nil
}

func (s *PdfinfoService) Name() types.BackendName {
	return types.BackendPdfinfo
}

func (s *PdfinfoService) SupportedFileTypes() []string {
	return []string{"pdf"}
}

// Command returns the pdfinfo invocation for path.
func (s *PdfinfoService) Command(path string) Command {
	return Command{Path: s.tool, Args: []string{path}}
}

func (s *PdfinfoService) ExtractMetadata(ctx context.Context, file types.FileHandle) (*types.Tree, error) {
	return runTool(ctx, s.timeout, s.Name(), file.Path, s.Command(file.Path), parseColonOutput)
}
