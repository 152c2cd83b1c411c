// Package postproc maps metadata keys to the value decoders a client can apply to them.
package postproc

import (
	"fmt"
	"sort"
	"strings"
)

const (
	Timestamp  = "DateTime::timestamp"
	GPSDecimal = "Gps::toDecimal"
)

// qualifiedPrefix is the namespace older mapping files put in front of processor names.
const qualifiedPrefix = `Causal\Extractor\Utility\`

// Rule suggests Processor for any key containing one of Patterns.
type Rule struct {
	Patterns  []string
	Processor string
}

// Rules are matched in order; the first match wins.
var Rules = []Rule{
	{Patterns: []string{"date", "modified", "created"}, Processor: Timestamp},
	{Patterns: []string{"gps"}, Processor: GPSDecimal},
}

var processors = map[string]func(string) (string, error){
	Timestamp:  toTimestamp,
	GPSDecimal: toDecimal,
}

// Suggest returns the processor for a leaf key, or "" when no rule matches. Matching is a
// case-insensitive substring test.
func Suggest(key string) string {
	key = strings.ToLower(key)
	for _, rule := range Rules {
		for _, pattern := range rule.Patterns {
			if strings.Contains(key, pattern) {
				return rule.Processor
			}
		}
	}
	return ""
}

// Canonical strips the namespace and a trailing "()" so that
// `Causal\Extractor\Utility\Gps::toDecimal()` names the same processor as Gps::toDecimal.
func Canonical(processor string) string {
	name := strings.TrimSpace(processor)
	name = strings.TrimPrefix(name, `\`)
	name = strings.TrimPrefix(name, qualifiedPrefix)
	return strings.TrimSuffix(name, "()")
}

// Apply decodes value with the named processor. Qualified names are accepted, see Canonical.
func Apply(processor, value string) (string, error) {
	fn, ok := processors[Canonical(processor)]
	if !ok {
		return "", fmt.Errorf("unknown processor %q", processor)
	}
	return fn(strings.TrimSpace(value))
}

// Names lists the available processors.
func Names() []string {
	names := make([]string, 0, len(processors))
	for name := range processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
