package pipeline

import "github.com/On-Jun9/MetaProbe/pkg/types"

type ProgressCallback func(update ProgressUpdate)

type ProgressUpdate struct {
	Type     string                  `json:"type"`
	Message  string                  `json:"message,omitempty"`
	Current  int                     `json:"current,omitempty"`
	Total    int                     `json:"total,omitempty"`
	Filename string                  `json:"filename,omitempty"`
	Result   *types.ExtractionResult `json:"result,omitempty"`
	Summary  *BatchSummary           `json:"summary,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

const (
	UpdateExtraction = "extraction"
	UpdateProgress   = "progress"
	UpdateComplete   = "complete"
)
