// Package render turns records into HTML previews.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/dartgest/internal/doctree"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown lays a record out as one markdown document: the document name as
// the top heading and one second-level heading per section.
func Markdown(rec *doctree.Record) string {
	var b strings.Builder
	name := rec.DocumentName
	if name == "" {
		name = rec.DocumentID
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if rec.IssuerName != "" {
		fmt.Fprintf(&b, "%s · %s\n\n", rec.IssuerName, rec.DocumentID)
	}
	for _, s := range rec.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		if s.Content != "" {
			b.WriteString(SeparateTables(s.Content))
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// HTML renders the record preview.
func HTML(rec *doctree.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(rec)), &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", rec.DocumentID, err)
	}
	return buf.Bytes(), nil
}

// SeparateTables puts a blank line between table lines and adjacent text
// lines. Section content joins them with a single newline, which a markdown
// renderer would read as extra table rows.
func SeparateTables(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+4)
	for i, l := range lines {
		if i > 0 {
			prev := lines[i-1]
			if prev != "" && l != "" && isTableLine(prev) != isTableLine(l) {
				out = append(out, "")
			}
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func isTableLine(l string) bool {
	return strings.HasPrefix(l, "|")
}

// TableCount reports how many tables a markdown renderer finds in content.
func TableCount(content string) int {
	src := []byte(SeparateTables(content))
	doc := md.Parser().Parse(text.NewReader(src))
	n := 0
	ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && node.Kind() == extast.KindTable {
			n++
		}
		return ast.WalkContinue, nil
	})
	return n
}
