package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/internal/log"
	"github.com/On-Jun9/MetaProbe/internal/metadata"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

type fakeService struct {
	tree  *types.Tree
	err   error
	panic string
}

func (f *fakeService) Name() types.BackendName      { return "fake" }
func (f *fakeService) SupportedFileTypes() []string { return []string{"jpg", "pdf"} }
func (f *fakeService) ExtractMetadata(_ context.Context, file types.FileHandle) (*types.Tree, error) {
	if f.panic != "" {
		panic(f.panic)
	}
	if f.err != nil {
		return f.tree, &metadata.ExtractionError{Backend: "fake", Path: file.Path, Err: f.err}
	}
	return f.tree, nil
}

type fakeResolver struct {
	mu       sync.Mutex
	files    map[string]types.FileHandle
	released int
}

func (r *fakeResolver) Resolve(_ context.Context, reference string) (types.FileHandle, error) {
	h, ok := r.files[reference]
	if !ok {
		return types.FileHandle{}, &metadata.FileNotFoundError{Reference: reference}
	}
	h.Reference = reference
	h.Cleanup = func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.released++
		return nil
	}
	return h, nil
}

// newTestPipeline는 테스트 코드 동작을 검증하거나 보조합니다.
func newTestPipeline(t *testing.T, svc *fakeService) (*Pipeline, *fakeResolver, *bytes.Buffer) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ToolsPdfinfo = filepath.Join(t.TempDir(), "missing-pdfinfo")

	registry := metadata.NewRegistry()
	registry.Register("fake", func(context.Context, *config.Config) (metadata.Service, error) {
		return svc, nil
	})

	resolver := &fakeResolver{files: map[string]types.FileHandle{
		"EXT:extractor/Resources/Public/photo.jpg": {Path: "/srv/photo.jpg", Name: "photo.jpg", Extension: "jpg", PublicURL: "/_assets/extractor/photo.jpg?v=1&s=2"},
		"storage:1:report.pdf":                     {Path: "/srv/report.pdf", Name: "report.pdf", Extension: "pdf", PublicURL: "/fileadmin/report.pdf"},
	}}

	var buf bytes.Buffer
	return New(cfg, registry, resolver, log.NewWriter(&buf, true)), resolver, &buf
}

func sampleTree() *types.Tree {
	tree := types.NewTree()
	tree.Group("EXIF").Set("Make", "Canon")
	return tree
}

// TestExtract_SucceedsWithPreviewForImages는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_SucceedsWithPreviewForImages(t *testing.T) {
	p, resolver, _ := newTestPipeline(t, &fakeService{tree: sampleTree()})

	result := p.Extract(context.Background(), Request{
		Reference:  "EXT:extractor/Resources/Public/photo.jpg",
		Service:    "fake",
		Authorized: true,
	})

	if !result.Success {
		t.Fatalf("expected success, got message %q", result.Message)
	}
	if !strings.Contains(result.HTML, `data-property="EXIF|Make"`) {
		t.Errorf("unexpected html: %s", result.HTML)
	}
	wantPreview := `<img src="/_assets/extractor/photo.jpg?v=1&amp;s=2" alt="" width="300" />`
	if result.Preview != wantPreview {
		t.Errorf("unexpected preview: %s", result.Preview)
	}
	if result.RequestID == "" {
		t.Error("expected request id")
	}
	if resolver.released != 1 {
		t.Errorf("expected handle release, got %d", resolver.released)
	}
}

// TestExtract_NoPreviewForDocuments는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_NoPreviewForDocuments(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeService{tree: sampleTree()})

	result := p.Extract(context.Background(), Request{Reference: "storage:1:report.pdf", Service: "fake", Authorized: true})

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if result.Preview != "" {
		t.Errorf("expected empty preview, got %s", result.Preview)
	}
}

// TestExtract_RefusesUnauthorizedCaller는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_RefusesUnauthorizedCaller(t *testing.T) {
	p, resolver, _ := newTestPipeline(t, &fakeService{tree: sampleTree()})

	result := p.Extract(context.Background(), Request{Reference: "storage:1:report.pdf", Service: "fake"})

	if result.Success || result.Message != "not authorized" || result.HTML != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if resolver.released != 0 {
		t.Error("resolver must not be reached")
	}
}

// TestExtract_UnresolvableReference는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_UnresolvableReference(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeService{tree: sampleTree()})

	result := p.Extract(context.Background(), Request{Reference: "storage:9:nope.pdf", Service: "fake", Authorized: true})

	if result.Success || !strings.Contains(result.Message, "file not found") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

// TestExtract_UnknownBackend는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_UnknownBackend(t *testing.T) {
	// 알 수 없는 서비스는 빈 HTML과 메시지로 끝나야 한다.
	p, resolver, _ := newTestPipeline(t, &fakeService{tree: sampleTree()})

	result := p.Extract(context.Background(), Request{Reference: "storage:1:report.pdf", Service: "imagemagick", Authorized: true})

	if result.Success || result.HTML != "" || result.Preview != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(result.Message, "unsupported service") {
		t.Errorf("unexpected message: %s", result.Message)
	}
	if resolver.released != 1 {
		t.Error("expected handle release")
	}
}

// TestExtract_ConstructionErrorBecomesHTML는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_ConstructionErrorBecomesHTML(t *testing.T) {
	// 실행 파일이 없으면 설정 에러 메시지가 HTML 자리에 들어가야 한다.
	p, _, _ := newTestPipeline(t, &fakeService{tree: sampleTree()})

	result := p.Extract(context.Background(), Request{Reference: "storage:1:report.pdf", Service: "pdfinfo", Authorized: true})

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Message, "Invalid path or filename for pdfinfo") {
		t.Errorf("unexpected message: %s", result.Message)
	}
	if result.HTML != result.Message {
		t.Errorf("expected message as html, got %q", result.HTML)
	}
}

// TestExtract_KeepsPartialTreeOnExtractionError는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_KeepsPartialTreeOnExtractionError(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeService{tree: sampleTree(), err: errors.New("tool crashed")})

	result := p.Extract(context.Background(), Request{Reference: "EXT:extractor/Resources/Public/photo.jpg", Service: "fake", Authorized: true})

	if result.Success || result.Preview != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(result.Message, "tool crashed") {
		t.Errorf("unexpected message: %s", result.Message)
	}
	if !strings.Contains(result.HTML, "Canon") {
		t.Errorf("partial tree not rendered: %s", result.HTML)
	}
}

// TestExtract_RecoversBackendPanic는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_RecoversBackendPanic(t *testing.T) {
	p, resolver, _ := newTestPipeline(t, &fakeService{panic: "boom"})

	result := p.Extract(context.Background(), Request{Reference: "storage:1:report.pdf", Service: "fake", Authorized: true})

	if result.Success || !strings.Contains(result.Message, "boom") {
		t.Fatalf("unexpected result: %+v", result)
	}
	if resolver.released != 1 {
		t.Error("expected handle release after panic")
	}
}

// TestExtract_LogsOneEntryPerRequest는 테스트 코드 동작을 검증하거나 보조합니다.
func TestExtract_LogsOneEntryPerRequest(t *testing.T) {
	p, _, buf := newTestPipeline(t, &fakeService{tree: sampleTree()})

	var updates []ProgressUpdate
	p.SetProgressCallback(func(u ProgressUpdate) {
		updates = append(updates, u)
	})

	result := p.Extract(context.Background(), Request{Reference: "storage:1:report.pdf", Service: "fake", Authorized: true})

	var entry log.LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON log line: %v (%s)", err, buf.String())
	}
	if entry.RequestID != result.RequestID || entry.Service != "fake" {
		t.Errorf("unexpected log entry: %+v", entry)
	}

	if len(updates) != 1 || updates[0].Type != UpdateExtraction || updates[0].Result.RequestID != result.RequestID {
		t.Errorf("unexpected progress updates: %+v", updates)
	}
}

// TestDecode는 테스트 코드 동작을 검증하거나 보조합니다.
func TestDecode(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeService{})

	got, err := p.Decode("Gps::toDecimal", "51/1, 30/1, 2640/100")
	if err != nil || got != "51.507333" {
		t.Fatalf("unexpected decode: %q %v", got, err)
	}
	if _, err := p.Decode("Nope::nothing", "x"); err == nil {
		t.Fatal("expected error for unknown processor")
	}
}
