package metadata

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// exifTimeLayout is the EXIF DateTime layout.
const exifTimeLayout = "2006:01:02 15:04:05"

type exifWalker struct {
	tree *types.Tree
}

func (w exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w.tree.Set(string(name), exifTagString(tag))
	return nil
}

// readEXIF decodes the EXIF block of r into an "EXIF" group. A derivable capture time goes
// into "COMPUTED" and the decimal position into "GPS".
func readEXIF(r io.Reader, tree *types.Tree) error {
	x, err := exif.Decode(r)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return fmt.Errorf("decode EXIF: %w", err)
	}

	tags := types.NewTree()
	if err := x.Walk(exifWalker{tree: tags}); err != nil {
		return err
	}
	tree.SetTree("EXIF", tags)

	if t, source, ok := captureTime(x); ok {
		computed := tree.Group("COMPUTED")
		computed.Set("CaptureTime", t.Format(time.RFC3339))
		computed.Set("CaptureTimeSource", source)
	}
	if lat, long, err := x.LatLong(); err == nil {
		gps := tree.Group("GPS")
		gps.Set("GPSLatitude", strconv.FormatFloat(lat, 'f', 6, 64))
		gps.Set("GPSLongitude", strconv.FormatFloat(long, 'f', 6, 64))
	}

	if err != nil {
		return fmt.Errorf("partial EXIF data: %w", err)
	}
	return nil
}

// exifSearchWindow bounds the scan for a JPEG APP1 "Exif" header.
const exifSearchWindow = 64 * 1024

// hasEXIFBlock reports whether f starts with a TIFF header or carries a JPEG EXIF header
// near its start. f is rewound afterwards.
func hasEXIFBlock(f io.ReadSeeker) bool {
	head := make([]byte, exifSearchWindow)
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}

	return bytes.HasPrefix(head, []byte("II*\x00")) ||
		bytes.HasPrefix(head, []byte("MM\x00*")) ||
		bytes.Contains(head, []byte("Exif\x00\x00"))
}

func captureTime(x *exif.Exif) (time.Time, string, bool) {
	if t, err := x.DateTime(); err == nil {
		return t, "EXIF:DateTimeOriginal", true
	}

	if tag, err := x.Get(exif.DateTimeDigitized); err == nil {
		if strVal, err := tag.StringVal(); err == nil {
			if t, err := time.Parse(exifTimeLayout, strings.TrimRight(strVal, "\x00")); err == nil {
				return t, "EXIF:DateTimeDigitized", true
			}
		}
	}

	return time.Time{}, "", false
}

// exifTagString renders a tag value as text: strings as is, rationals as "num/den",
// multi-valued tags joined with ", ".
func exifTagString(tag *tiff.Tag) string {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	case tiff.IntVal:
		parts := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			v, err := tag.Int(i)
			if err != nil {
				break
			}
			parts = append(parts, strconv.Itoa(v))
		}
		return strings.Join(parts, ", ")
	case tiff.RatVal:
		parts := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				break
			}
			parts = append(parts, strconv.FormatInt(num, 10)+"/"+strconv.FormatInt(den, 10))
		}
		return strings.Join(parts, ", ")
	case tiff.FloatVal:
		parts := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			v, err := tag.Float(i)
			if err != nil {
				break
			}
			parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
		}
		return strings.Join(parts, ", ")
	default:
		return undefinedString(tag.Val)
	}
}

// undefinedString shows printable UNDEFINED payloads (e.g. ExifVersion "0230") as text and
// summarizes binary ones.
func undefinedString(val []byte) string {
	trimmed := strings.TrimRight(string(val), "\x00 ")
	for _, r := range trimmed {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return fmt.Sprintf("(binary data, %d bytes)", len(val))
		}
	}
	return trimmed
}
