// Package render prints a metadata tree as a nested array literal, either annotated for
// the browser (HTML) or plain for the terminal (Text).
package render

import (
	"strings"

	"github.com/On-Jun9/MetaProbe/internal/postproc"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// htmlEscaper escapes the characters PHP's htmlspecialchars handles by default. Single
// quotes are left alone so the escaped value still fits the quoting below.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
)

var quoteEscaper = strings.NewReplacer(`'`, `\'`)

// HTML renders tree with every key wrapped in a property link. The link carries the key
// path ("EXIF|Make") and, when one applies, the suggested processor ("...->Gps::toDecimal").
func HTML(tree *types.Tree) string {
	return render(tree, htmlKey, htmlValue)
}

// Text renders tree with bare quoted keys.
func Text(tree *types.Tree) string {
	return render(tree, textKey, textValue)
}

type keyFunc func(path, key string) string

type valueFunc func(value string) string

func render(tree *types.Tree, key keyFunc, value valueFunc) string {
	var lines []string
	lines = appendTree(lines, tree, 0, "", key, value)
	return strings.Join(lines, "\n")
}

func appendTree(lines []string, tree *types.Tree, indent int, parent string, key keyFunc, value valueFunc) []string {
	lines = append(lines, "array(")
	prefix := strings.Repeat("  ", indent+1)

	tree.Each(func(k string, v types.Value) {
		path := k
		if parent != "" {
			path = parent + "|" + k
		}

		property := key(path, k)
		if v.IsTree() {
			nested := appendTree(nil, v.Tree, indent+1, path, key, value)
			lines = append(lines, prefix+property+" => "+nested[0])
			lines = append(lines, nested[1:len(nested)-1]...)
			lines = append(lines, nested[len(nested)-1]+",")
			return
		}
		lines = append(lines, prefix+property+" => "+value(v.Str)+",")
	})

	return append(lines, strings.Repeat("  ", indent)+")")
}

func htmlKey(path, key string) string {
	if processor := postproc.Suggest(key); processor != "" {
		path += "->" + processor
	}
	return `'<a class="tx-extractor-property" href="#" data-property="` + htmlEscaper.Replace(path) + `">` +
		htmlEscaper.Replace(key) + `</a>'`
}

func htmlValue(value string) string {
	return "'" + htmlEscaper.Replace(quoteEscaper.Replace(value)) + "'"
}

func textKey(_, key string) string {
	return "'" + quoteEscaper.Replace(key) + "'"
}

func textValue(value string) string {
	return "'" + quoteEscaper.Replace(value) + "'"
}

// Escape applies the HTML escaping used for keys and values.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}
