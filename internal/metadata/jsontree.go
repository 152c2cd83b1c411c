package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// decodeJSONObject converts a JSON object into a tree, keeping the source key order.
// Nested objects become nested trees; arrays are joined with ", ".
func decodeJSONObject(raw []byte) (*types.Tree, error) {
	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, om); err != nil {
		return types.NewTree(), fmt.Errorf("decode JSON object: %w", err)
	}

	tree := types.NewTree()
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		v := bytes.TrimSpace(pair.Value)
		if len(v) > 0 && v[0] == '{' {
			child, err := decodeJSONObject(v)
			if err != nil {
				return tree, err
			}
			tree.SetTree(pair.Key, child)
			continue
		}
		tree.Set(pair.Key, jsonScalar(v))
	}

	return tree, nil
}

func jsonScalar(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return ""
	}

	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, jsonScalar(item))
			}
			return strings.Join(parts, ", ")
		}
	case 'n':
		if string(v) == "null" {
			return ""
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err == nil {
		return buf.String()
	}
	return string(v)
}
