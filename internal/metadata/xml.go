package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// readXMLFile converts an XML document into a tree rooted at its document element.
func readXMLFile(path string) (*types.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read XML: %w", err)
	}

	tree, err := xmlToTree(bytes.NewReader(data))
	if err != nil {
		return tree, fmt.Errorf("failed to parse XML: %w", err)
	}
	return tree, nil
}

type xmlFrame struct {
	tree   *types.Tree
	counts map[string]int
	text   strings.Builder
}

// xmlToTree maps every element to a nested group keyed by its local name. Attributes
// become leaves, and non-blank text content is stored under "value". Repeated sibling
// elements are keyed "Name", "Name(2)", "Name(3)", ...
func xmlToTree(r io.Reader) (*types.Tree, error) {
	root := types.NewTree()
	stack := []*xmlFrame{{tree: root, counts: map[string]int{}}}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return root, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := stack[len(stack)-1]
			parent.counts[t.Name.Local]++
			key := t.Name.Local
			if n := parent.counts[key]; n > 1 {
				key += "(" + strconv.Itoa(n) + ")"
			}

			child := types.NewTree()
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				child.Set(attr.Name.Local, attr.Value)
			}
			parent.tree.SetTree(key, child)
			stack = append(stack, &xmlFrame{tree: child, counts: map[string]int{}})
		case xml.CharData:
			stack[len(stack)-1].text.Write(t)
		case xml.EndElement:
			frame := stack[len(stack)-1]
			if text := strings.TrimSpace(frame.text.String()); text != "" {
				frame.tree.Set("value", text)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 1 {
		return root, io.ErrUnexpectedEOF
	}
	if root.Len() == 0 {
		return root, fmt.Errorf("no XML elements found")
	}
	return root, nil
}

// findXMLSidecar looks for the "<base>M01.XML" metadata file cameras write next to clips.
func findXMLSidecar(videoPath string) string {
	dir := filepath.Dir(videoPath)
	basename := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	xmlName := basename + "M01.XML"
	xmlPath := filepath.Join(dir, xmlName)

	if _, err := os.Stat(xmlPath); err == nil {
		return xmlPath
	}

	xmlNameLower := basename + "M01.xml"
	xmlPathLower := filepath.Join(dir, xmlNameLower)
	if _, err := os.Stat(xmlPathLower); err == nil {
		return xmlPathLower
	}

	return ""
}
