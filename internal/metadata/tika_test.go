package metadata

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// newTikaStub는 테스트 코드 동작을 검증하거나 보조합니다.
func newTikaStub(t *testing.T, meta http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Apache Tika 2.9.2\n")
	})
	mux.HandleFunc("/meta", meta)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// writeDoc는 테스트 코드 동작을 검증하거나 보조합니다.
func writeDoc(t *testing.T, name, content string) types.FileHandle {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return types.FileHandle{Path: path, Name: name, Extension: strings.TrimPrefix(filepath.Ext(name), ".")}
}

// TestTikaServerService_ExtractMetadataJSON는 테스트 코드 동작을 검증하거나 보조합니다.
func TestTikaServerService_ExtractMetadataJSON(t *testing.T) {
	var gotBody, gotDisposition string
	server := newTikaStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotDisposition = r.Header.Get("Content-Disposition")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"dc:title":"Quarterly Report","Content-Type":"application/pdf","xmpTPg:NPages":"12","dc:creator":["Ann","Bo"]}`)
	})

	cfg := config.DefaultConfig()
	cfg.ServiceTikaURL = server.URL + "/"

	s, err := NewTikaServer(context.Background(), cfg, server.Client())
	require.NoError(t, err)

	version, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Apache Tika 2.9.2", version)

	file := writeDoc(t, "report.pdf", "%PDF-1.7")
	tree, err := s.ExtractMetadata(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, "%PDF-1.7", gotBody)
	assert.Contains(t, gotDisposition, `filename=report.pdf`)
	assert.Equal(t, []string{"dc:title", "Content-Type", "xmpTPg:NPages", "dc:creator"}, tree.Keys())
	assert.Equal(t, "Quarterly Report", leaf(t, tree, "dc:title"))
	assert.Equal(t, "Ann, Bo", leaf(t, tree, "dc:creator"))
}

// TestTikaServerService_ExtractMetadataRDF는 테스트 코드 동작을 검증하거나 보조합니다.
func TestTikaServerService_ExtractMetadataRDF(t *testing.T) {
	server := newTikaStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdf+xml")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:meta="urn:meta" meta:page-count="4">
    <dc:title>Slides</dc:title>
    <dc:subject>
      <rdf:Bag>
        <rdf:li>go</rdf:li>
        <rdf:li>metadata</rdf:li>
      </rdf:Bag>
    </dc:subject>
  </rdf:Description>
</rdf:RDF>`)
	})

	cfg := config.DefaultConfig()
	cfg.ServiceTikaURL = server.URL

	s, err := NewTikaServer(context.Background(), cfg, server.Client())
	require.NoError(t, err)

	tree, err := s.ExtractMetadata(context.Background(), writeDoc(t, "slides.odp", "odp"))
	require.NoError(t, err)

	assert.Equal(t, "4", leaf(t, tree, "meta:page-count"))
	assert.Equal(t, "Slides", leaf(t, tree, "dc:title"))
	assert.Equal(t, "go, metadata", leaf(t, tree, "dc:subject"))
}

// TestTikaServerService_ServerErrorIsExtractionError는 테스트 코드 동작을 검증하거나 보조합니다.
func TestTikaServerService_ServerErrorIsExtractionError(t *testing.T) {
	server := newTikaStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unprocessable", http.StatusUnprocessableEntity)
	})

	cfg := config.DefaultConfig()
	cfg.ServiceTikaURL = server.URL

	s, err := NewTikaServer(context.Background(), cfg, server.Client())
	require.NoError(t, err)

	_, err = s.ExtractMetadata(context.Background(), writeDoc(t, "broken.pdf", "x"))
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Contains(t, err.Error(), "status 422")
}

// TestTikaServerService_Timeout는 테스트 코드 동작을 검증하거나 보조합니다.
func TestTikaServerService_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := newTikaStub(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	cfg := config.DefaultConfig()
	cfg.ServiceTikaURL = server.URL
	cfg.Timeout = 100 * time.Millisecond

	s, err := NewTikaServer(context.Background(), cfg, server.Client())
	require.NoError(t, err)

	_, err = s.ExtractMetadata(context.Background(), writeDoc(t, "slow.pdf", "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// TestNewTikaServer_RejectsBadConfiguration는 테스트 코드 동작을 검증하거나 보조합니다.
func TestNewTikaServer_RejectsBadConfiguration(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.ServiceTikaURL = "localhost:9998"
	_, err := NewTikaServer(context.Background(), cfg, nil)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "service_tika_url", cfgErr.Setting)

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	cfg.ServiceTikaURL = down.URL
	_, err = NewTikaServer(context.Background(), cfg, nil)
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "not reachable")
}

// TestNewTika_SelectsMode는 테스트 코드 동작을 검증하거나 보조합니다.
func TestNewTika_SelectsMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TikaMode = config.TikaModeJar
	cfg.ToolsJava = writeScript(t, `printf 'Content-Type: application/pdf\ndc:title: Jar Title\n'`)
	cfg.TikaJarPath = filepath.Join(t.TempDir(), "tika-app.jar")
	require.NoError(t, os.WriteFile(cfg.TikaJarPath, []byte("jar"), 0644))

	s, err := NewTika(context.Background(), cfg)
	require.NoError(t, err)
	app, ok := s.(*TikaAppService)
	require.True(t, ok)
	assert.Equal(t, []string{"-jar", cfg.TikaJarPath, "-m", "/tmp/a.pdf"}, app.Command("/tmp/a.pdf").Args)

	tree, err := s.ExtractMetadata(context.Background(), types.FileHandle{Path: "/tmp/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Jar Title", leaf(t, tree, "dc:title"))

	cfg.TikaMode = "grpc"
	_, err = NewTika(context.Background(), cfg)
	assert.Error(t, err)
}

// TestParseTikaAppOutput는 테스트 코드 동작을 검증하거나 보조합니다.
func TestParseTikaAppOutput(t *testing.T) {
	// 네임스페이스 콜론이 아니라 첫 ": "에서 키와 값을 나눠야 한다.
	tests := []struct {
		name  string
		input string
		keys  []string
		want  map[string]string
	}{
		{
			name:  "namespaced key",
			input: "dc:title: Report\n",
			keys:  []string{"dc:title"},
			want:  map[string]string{"dc:title": "Report"},
		},
		{
			name:  "trailing colon means empty value",
			input: "meta:keyword:\n",
			keys:  []string{"meta:keyword"},
			want:  map[string]string{"meta:keyword": ""},
		},
		{
			name:  "value containing separator",
			input: "dc:description: Note: see page 2\n",
			keys:  []string{"dc:description"},
			want:  map[string]string{"dc:description": "Note: see page 2"},
		},
		{
			name:  "line without separator is skipped",
			input: "WARN something happened\nContent-Type: application/pdf\n",
			keys:  []string{"Content-Type"},
			want:  map[string]string{"Content-Type": "application/pdf"},
		},
		{
			name:  "later duplicate wins in place",
			input: "dc:title: First\nxmpTPg:NPages: 2\ndc:title: Second\n",
			keys:  []string{"dc:title", "xmpTPg:NPages"},
			want:  map[string]string{"dc:title": "Second", "xmpTPg:NPages": "2"},
		},
		{
			name:  "blank and colon-only lines",
			input: "\n   \n:\n",
			keys:  []string{},
			want:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := parseTikaAppOutput([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.keys, tree.Keys())
			for k, v := range tt.want {
				assert.Equal(t, v, leaf(t, tree, k))
			}
		})
	}
}

// TestTikaAppService_ExtractMetadata는 테스트 코드 동작을 검증하거나 보조합니다.
func TestTikaAppService_ExtractMetadata(t *testing.T) {
	// 가짜 java 스크립트가 -jar <jar> -m <file> 인자를 받아 메타데이터를 출력해야 한다.
	cfg := config.DefaultConfig()
	cfg.TikaMode = config.TikaModeJar
	cfg.TikaJarPath = filepath.Join(t.TempDir(), "tika-app.jar")
	require.NoError(t, os.WriteFile(cfg.TikaJarPath, []byte("jar"), 0644))
	cfg.ToolsJava = writeScript(t, `[ "$1" = "-jar" ] && [ "$3" = "-m" ] || { echo "bad args: $*" >&2; exit 2; }
printf 'resourceName: %s\ndc:title: Quarterly: Q3\nmeta:keyword:\n' "$(basename "$4")"`)

	s, err := NewTikaApp(cfg)
	require.NoError(t, err)

	tree, err := s.ExtractMetadata(context.Background(), types.FileHandle{Path: "/tmp/q3 report.pdf", Extension: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"resourceName", "dc:title", "meta:keyword"}, tree.Keys())
	assert.Equal(t, "q3 report.pdf", leaf(t, tree, "resourceName"))
	assert.Equal(t, "Quarterly: Q3", leaf(t, tree, "dc:title"))
	assert.Equal(t, "", leaf(t, tree, "meta:keyword"))
}

// TestTikaAppService_FailsWithoutOutput는 테스트 코드 동작을 검증하거나 보조합니다.
func TestTikaAppService_FailsWithoutOutput(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TikaJarPath = filepath.Join(t.TempDir(), "tika-app.jar")
	require.NoError(t, os.WriteFile(cfg.TikaJarPath, []byte("jar"), 0644))
	cfg.ToolsJava = writeScript(t, `echo 'Error: Unable to access jarfile' >&2; exit 1`)

	s, err := NewTikaApp(cfg)
	require.NoError(t, err)

	_, err = s.ExtractMetadata(context.Background(), types.FileHandle{Path: "/tmp/a.pdf", Extension: "pdf"})
	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Contains(t, err.Error(), "Unable to access jarfile")
}
