package metadata

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// ParseColonLines reads "key: value" lines. Each line is split on its first colon only and
// both sides are trimmed. Lines without a colon or with an empty key are dropped; a later
// duplicate key overwrites the earlier value.
func ParseColonLines(r io.Reader) (*types.Tree, error) {
	tree := types.NewTree()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		tree.Set(key, strings.TrimSpace(value))
	}

	return tree, scanner.Err()
}

func parseColonOutput(data []byte) (*types.Tree, error) {
	return ParseColonLines(bytes.NewReader(data))
}
