package metadata

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// DocconvService reads document properties with docconv. Office formats are handled in
// process; a few formats (pdf, doc, rtf) rely on the converters docconv shells out to.
// Images are left out: docconv only reads them when built with the ocr tag.
type DocconvService struct {
	timeout time.Duration
}

func NewDocconv(cfg *config.Config) (*DocconvService, error) {
	return &DocconvService{timeout: cfg.Timeout}, nil
}

func (s *DocconvService) Name() types.BackendName {
	return types.BackendDocconv
}

func (s *DocconvService) SupportedFileTypes() []string {
	return []string{"pdf", "doc", "docx", "odt", "rtf", "pages", "xml", "html", "htm", "txt"}
}

type docconvResult struct {
	res *docconv.Response
	err error
}

func (s *DocconvService) ExtractMetadata(ctx context.Context, file types.FileHandle) (*types.Tree, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	mimeType := docconv.MimeTypeByExtension(file.Path)
	if mimeType == "application/octet-stream" || mimeType == "" {
		return types.NewTree(), &ExtractionError{
			Backend: s.Name(),
			Path:    file.Path,
			Err:     fmt.Errorf("unsupported file type %q", file.Extension),
		}
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return types.NewTree(), &ExtractionError{Backend: s.Name(), Path: file.Path, Err: err}
	}

	done := make(chan docconvResult, 1)
	go func() {
		defer f.Close()
		res, err := docconv.Convert(f, mimeType, false)
		done <- docconvResult{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return types.NewTree(), &ExtractionError{
			Backend: s.Name(),
			Path:    file.Path,
			Err:     fmt.Errorf("conversion did not finish within %s: %w", s.timeout, ctx.Err()),
		}
	case out := <-done:
		if out.err != nil {
			return types.NewTree(), &ExtractionError{Backend: s.Name(), Path: file.Path, Err: out.err}
		}
		return docconvTree(mimeType, out.res), nil
	}
}

// docconvTree puts the document properties, sorted by name, ahead of a "Content" group
// describing the extracted text.
func docconvTree(mimeType string, res *docconv.Response) *types.Tree {
	tree := types.NewTree()
	if res == nil {
		return tree
	}

	keys := make([]string, 0, len(res.Meta))
	for k := range res.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tree.Set(k, strings.TrimSpace(res.Meta[k]))
	}

	content := tree.Group("Content")
	content.Set("MimeType", mimeType)
	content.Set("Characters", strconv.Itoa(utf8.RuneCountInString(res.Body)))
	content.Set("Words", strconv.Itoa(len(strings.Fields(res.Body))))
	content.Set("ConversionTime", strconv.FormatUint(uint64(res.MSecs), 10)+"ms")

	return tree
}
