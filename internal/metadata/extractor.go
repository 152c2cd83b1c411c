package metadata

import (
	"context"
	"fmt"
	"image"
	"mime"
	"os"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// fileDateLayout matches the EXIF date form with a zone offset, as exiftool prints it.
const fileDateLayout = "2006:01:02 15:04:05-07:00"

var (
	nativeEXIFTypes  = map[string]bool{"jpg": true, "jpeg": true, "tif": true, "tiff": true}
	nativeImageTypes = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true}
	nativeVideoTypes = map[string]bool{"mp4": true, "mov": true, "mxf": true}
)

// Extractor is the in-process backend. It reads embedded metadata straight from the file
// without any external tool: EXIF for images, the document tree for XML files and the
// camera XML sidecar for video clips.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// NewNative is the registry constructor for the in-process backend. It never fails.
func NewNative(_ *config.Config) (*Extractor, error) {
	return New(), nil
}

func (e *Extractor) Name() types.BackendName {
	return types.BackendPHP
}

func (e *Extractor) SupportedFileTypes() []string {
	return []string{"jpg", "jpeg", "tif", "tiff", "png", "gif", "xml", "mp4", "mov", "mxf"}
}

func (e *Extractor) ExtractMetadata(ctx context.Context, file types.FileHandle) (*types.Tree, error) {
	if err := ctx.Err(); err != nil {
		return types.NewTree(), &ExtractionError{Backend: e.Name(), Path: file.Path, Err: err}
	}
	if !Supports(e, file.Extension) {
		return types.NewTree(), &ExtractionError{
			Backend: e.Name(),
			Path:    file.Path,
			Err:     fmt.Errorf("unsupported file type %q", file.Extension),
		}
	}

	info, err := os.Stat(file.Path)
	if err != nil {
		return types.NewTree(), &ExtractionError{Backend: e.Name(), Path: file.Path, Err: err}
	}

	tree := types.NewTree()
	fileGroup := tree.Group("FILE")
	name := file.Name
	if name == "" {
		name = info.Name()
	}
	fileGroup.Set("FileName", name)
	fileGroup.Set("FileSize", strconv.FormatInt(info.Size(), 10))
	fileGroup.Set("FileModifyDate", info.ModTime().Format(fileDateLayout))
	fileGroup.Set("FileType", strings.ToUpper(file.Extension))
	if mimeType := mime.TypeByExtension("." + file.Extension); mimeType != "" {
		fileGroup.Set("MimeType", mimeType)
	}

	switch {
	case file.Extension == "xml":
		xmlTree, err := readXMLFile(file.Path)
		if xmlTree != nil && xmlTree.Len() > 0 {
			tree.SetTree("XML", xmlTree)
		}
		if err != nil {
			return tree, &ExtractionError{Backend: e.Name(), Path: file.Path, Err: err}
		}
	case nativeVideoTypes[file.Extension]:
		if sidecar := findXMLSidecar(file.Path); sidecar != "" {
			xmlTree, err := readXMLFile(sidecar)
			if err != nil {
				return tree, &ExtractionError{Backend: e.Name(), Path: sidecar, Err: err}
			}
			fileGroup.Set("Sidecar", sidecar)
			tree.SetTree("XML", xmlTree)
		}
	default:
		e.readImage(file, tree)
	}

	return tree, nil
}

// readImage adds EXIF tags and image geometry. Images without EXIF or with an unknown
// encoding keep only what could be read.
func (e *Extractor) readImage(file types.FileHandle, tree *types.Tree) {
	if nativeEXIFTypes[file.Extension] {
		if f, err := os.Open(file.Path); err == nil {
			present := hasEXIFBlock(f)
			// no EXIF block is fine, a damaged one is reported
			if err := readEXIF(f, tree); err != nil && present {
				tree.Group("COMPUTED").Set("EXIFError", err.Error())
			}
			f.Close()
		}
	}

	if !nativeImageTypes[file.Extension] {
		return
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return
	}
	computed := tree.Group("COMPUTED")
	computed.Set("Width", strconv.Itoa(cfg.Width))
	computed.Set("Height", strconv.Itoa(cfg.Height))
	computed.Set("Format", format)
}
