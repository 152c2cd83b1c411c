package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanner_Scan(t *testing.T) {
	tmpDir := t.TempDir()

	testFiles := []struct {
		name    string
		content string
	}{
		{"photo1.jpg", "fake jpg"},
		{"photo2.JPEG", "fake jpeg"},
		{"report.pdf", "fake pdf"},
		{"notes.txt", "should be ignored"},
		{"subdir/photo3.tiff", "nested photo"},
		{".cache/thumb.jpg", "hidden dir"},
	}

	for _, tf := range testFiles {
		path := filepath.Join(tmpDir, tf.name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(tf.content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s := New([]string{"jpg", ".jpeg", "TIFF", "pdf"})
	handles, err := s.Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(handles) != 4 {
		t.Fatalf("expected 4 files, got %d", len(handles))
	}

	refs := map[string]string{}
	for _, h := range handles {
		refs[h.Reference] = h.Extension
		if !filepath.IsAbs(h.Path) {
			t.Errorf("expected absolute path, got %s", h.Path)
		}
	}

	want := map[string]string{
		"photo1.jpg":         "jpg",
		"photo2.JPEG":        "jpeg",
		"report.pdf":         "pdf",
		"subdir/photo3.tiff": "tiff",
	}
	for ref, ext := range want {
		if refs[ref] != ext {
			t.Errorf("expected %s with extension %s, got %q", ref, ext, refs[ref])
		}
	}
}

func TestScanner_Scan_MissingRoot(t *testing.T) {
	s := New([]string{"jpg"})
	if _, err := s.Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}
