package metadata

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

var tikaFileTypes = []string{
	"pdf", "doc", "docx", "dot", "dotx", "xls", "xlsx", "ppt", "pptx", "odt", "ods", "odp",
	"rtf", "txt", "html", "htm", "xml", "epub", "pages", "numbers", "key",
	"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp", "psd", "svg",
	"mp3", "m4a", "wav", "flac", "ogg", "mp4", "mov", "avi", "mkv",
	"zip", "eml", "msg",
}

// maxTikaResponse bounds the metadata document read from the server.
const maxTikaResponse = 8 << 20

// NewTika returns the tika backend matching cfg.TikaMode: a running Tika server, or the
// tika-app jar run as a subprocess.
func NewTika(ctx context.Context, cfg *config.Config) (Service, error) {
	switch strings.ToLower(cfg.TikaMode) {
	case config.TikaModeJar:
		return NewTikaApp(cfg)
	case "", config.TikaModeServer:
		return NewTikaServer(ctx, cfg, nil)
	default:
		return nil, &ConfigurationError{
			Backend: types.BackendTika,
			Setting: "tika_mode",
			Message: fmt.Sprintf("Unknown tika mode: %s", cfg.TikaMode),
		}
	}
}

// TikaServerService talks to a Tika server over HTTP.
type TikaServerService struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewTikaServer validates the configured endpoint and checks that the server answers
// before returning the backend. A nil client means http.DefaultClient.
func NewTikaServer(ctx context.Context, cfg *config.Config, client *http.Client) (*TikaServerService, error) {
	if client == nil {
		client = http.DefaultClient
	}

	raw := strings.TrimSpace(cfg.ServiceTikaURL)
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &ConfigurationError{
			Backend: types.BackendTika,
			Setting: "service_tika_url",
			Message: fmt.Sprintf("Invalid Tika server URL: %q", cfg.ServiceTikaURL),
		}
	}

	s := &TikaServerService{
		baseURL: strings.TrimRight(raw, "/"),
		client:  client,
		timeout: cfg.Timeout,
	}

	if _, err := s.Version(ctx); err != nil {
		return nil, &ConfigurationError{
			Backend: types.BackendTika,
			Setting: "service_tika_url",
			Message: fmt.Sprintf("Tika server is not reachable at %s", s.baseURL),
			Err:     err,
		}
	}

	return s, nil
}

func (s *TikaServerService) Name() types.BackendName {
	return types.BackendTika
}

func (s *TikaServerService) SupportedFileTypes() []string {
	return tikaFileTypes
}

// Version returns the server's version banner.
func (s *TikaServerService) Version(ctx context.Context) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/version", nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}

func (s *TikaServerService) ExtractMetadata(ctx context.Context, file types.FileHandle) (*types.Tree, error) {
	tree, err := s.extract(ctx, file)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("tika server did not answer within %s: %w", s.timeout, err)
		}
		return tree, &ExtractionError{Backend: s.Name(), Path: file.Path, Err: err}
	}
	return tree, nil
}

func (s *TikaServerService) extract(ctx context.Context, file types.FileHandle) (*types.Tree, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f, err := os.Open(file.Path)
	if err != nil {
		return types.NewTree(), err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/meta", f)
	if err != nil {
		return types.NewTree(), err
	}
	if info, err := f.Stat(); err == nil {
		req.ContentLength = info.Size()
	}
	req.Header.Set("Accept", "application/json")
	if file.Name != "" {
		req.Header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return types.NewTree(), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTikaResponse))
	if err != nil {
		return types.NewTree(), err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.NewTree(), fmt.Errorf("tika server returned status %d%s", resp.StatusCode, stderrSuffix(body))
	}

	return parseTikaResponse(resp.Header.Get("Content-Type"), body)
}

// parseTikaResponse decodes a /meta response body: a JSON object, or XMP/RDF when the
// server answers with XML.
func parseTikaResponse(contentType string, body []byte) (*types.Tree, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	trimmed := bytes.TrimSpace(body)

	switch {
	case strings.Contains(mediaType, "json"), mediaType == "" && len(trimmed) > 0 && trimmed[0] == '{':
		return decodeJSONObject(trimmed)
	case strings.Contains(mediaType, "xml"), mediaType == "" && len(trimmed) > 0 && trimmed[0] == '<':
		return parseRDF(bytes.NewReader(trimmed))
	default:
		return types.NewTree(), fmt.Errorf("unexpected tika response type %q", contentType)
	}
}

const rdfNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// parseRDF flattens the properties of every rdf:Description into "prefix:name" keys.
// Container values (rdf:Bag, rdf:Seq, rdf:Alt) are joined with ", ".
func parseRDF(r io.Reader) (*types.Tree, error) {
	tree := types.NewTree()
	prefixes := map[string]string{}

	dec := xml.NewDecoder(r)
	var (
		inDescription bool
		property      string
		depth         int
		values        []string
		text          strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tree, fmt.Errorf("decode RDF: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" {
					prefixes[attr.Value] = attr.Name.Local
				}
			}
			switch {
			case !inDescription:
				if t.Name.Space == rdfNamespace && t.Name.Local == "Description" {
					inDescription = true
					for _, attr := range t.Attr {
						if attr.Name.Space == "xmlns" || attr.Name.Space == "" || attr.Name.Space == rdfNamespace {
							continue
						}
						tree.Set(qualifiedName(prefixes, attr.Name), strings.TrimSpace(attr.Value))
					}
				}
			case property == "":
				property = qualifiedName(prefixes, t.Name)
				depth = 1
				values = values[:0]
				text.Reset()
			default:
				depth++
				text.Reset()
			}
		case xml.CharData:
			if property != "" {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case property != "" && depth > 1:
				if t.Name.Space == rdfNamespace && t.Name.Local == "li" {
					if v := strings.TrimSpace(text.String()); v != "" {
						values = append(values, v)
					}
				}
				text.Reset()
				depth--
			case property != "":
				if v := strings.TrimSpace(text.String()); v != "" {
					values = append(values, v)
				}
				tree.Set(property, strings.Join(values, ", "))
				property = ""
				depth = 0
			case inDescription && t.Name.Space == rdfNamespace && t.Name.Local == "Description":
				inDescription = false
			}
		}
	}

	return tree, nil
}

func qualifiedName(prefixes map[string]string, name xml.Name) string {
	if prefix, ok := prefixes[name.Space]; ok && prefix != "" {
		return prefix + ":" + name.Local
	}
	return name.Local
}

// TikaAppService runs the tika-app jar: java -jar tika-app.jar -m <file>.
type TikaAppService struct {
	java    string
	jar     string
	timeout time.Duration
}

func NewTikaApp(cfg *config.Config) (*TikaAppService, error) {
	java, err := requireExecutable(types.BackendTika, "tools_java", cfg.ToolsJava)
	if err != nil {
		return nil, err
	}
	jar, err := requireExecutable(types.BackendTika, "tika_jar_path", cfg.TikaJarPath)
	if err != nil {
		return nil, err
	}
	return &TikaAppService{java: java, jar: jar, timeout: cfg.Timeout}, nil
}

func (s *TikaAppService) Name() types.BackendName {
	return types.BackendTika
}

func (s *TikaAppService) SupportedFileTypes() []string {
	return tikaFileTypes
}

// Command returns the tika-app invocation for path.
func (s *TikaAppService) Command(path string) Command {
	return Command{Path: s.java, Args: []string{"-jar", s.jar, "-m", path}}
}

func (s *TikaAppService) ExtractMetadata(ctx context.Context, file types.FileHandle) (*types.Tree, error) {
	return runTool(ctx, s.timeout, s.Name(), file.Path, s.Command(file.Path), parseTikaAppOutput)
}

// parseTikaAppOutput reads "tika-app -m" lines. Property names carry their namespace
// prefix ("dc:title: Report"), so the separator is the first ": " rather than the first colon.
func parseTikaAppOutput(data []byte) (*types.Tree, error) {
	tree := types.NewTree()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			if !strings.HasSuffix(line, ":") {
				continue
			}
			key = strings.TrimSuffix(line, ":")
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		tree.Set(key, strings.TrimSpace(value))
	}

	return tree, scanner.Err()
}
