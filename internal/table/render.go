package table

import (
	"strings"

	"github.com/dgallion1/dartgest/internal/markup"
)

// Markdown renders notes as plain lines followed by a pipe table: header row,
// separator row, then body rows. Lines are joined with "\n" and there is no
// trailing newline. Cell text is escaped so it cannot break the table.
func Markdown(notes []string, header []string, body [][]string) string {
	var b strings.Builder
	for _, n := range notes {
		b.WriteString(markup.EscapeText(n))
		b.WriteByte('\n')
	}

	writeRow(&b, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for _, row := range body {
		writeRow(&b, row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// writeRow writes one row. An empty cell renders as "| |" so the row survives
// whitespace collapsing unchanged.
func writeRow(b *strings.Builder, cells []string) {
	b.WriteByte('|')
	for _, c := range cells {
		if c != "" {
			b.WriteByte(' ')
			b.WriteString(escapeCell(c))
		}
		b.WriteString(" |")
	}
	b.WriteByte('\n')
}

func escapeCell(s string) string {
	return strings.ReplaceAll(markup.EscapeText(s), "|", `\|`)
}
