// Package table rebuilds disclosure tables with merged cells into pipe
// tables.
package table

import (
	"errors"
	"strings"

	"github.com/dgallion1/dartgest/internal/markup"
)

// ErrAmbiguous is returned when a table has no row that qualifies as data.
var ErrAmbiguous = errors.New("table has no data rows")

// Options controls cell recognition and row classification.
type Options struct {
	CellTags       []string // element names treated as cells
	MinDataColumns int      // distinct non-empty values a data row needs
	MaxSpan        int      // upper bound applied to ROWSPAN and COLSPAN
}

// DefaultOptions returns the options used for DART filings.
func DefaultOptions() Options {
	return Options{
		CellTags:       []string{"TD", "TH", "TE", "TU"},
		MinDataColumns: 2,
		MaxSpan:        1000,
	}
}

// Result is a reconstructed table.
type Result struct {
	Grid     Grid
	Notes    []string   // descriptive rows, in source order
	Header   []string   // first data row
	Body     [][]string // remaining data rows
	Markdown string
}

// Reconstruct expands tbl into a grid, splits descriptive rows from data rows
// and renders the result. When no row qualifies as data it returns the
// partial result with an empty Markdown and ErrAmbiguous.
func Reconstruct(tbl *markup.Node, opts Options) (Result, error) {
	if opts.MinDataColumns < 1 {
		opts.MinDataColumns = DefaultOptions().MinDataColumns
	}
	if len(opts.CellTags) == 0 {
		opts.CellTags = DefaultOptions().CellTags
	}

	res := Result{Grid: Expand(ExtractRows(tbl, opts))}
	var data [][]string
	for _, row := range res.Grid {
		values := distinct(row)
		switch {
		case len(values) == 0:
		case len(values) < opts.MinDataColumns:
			res.Notes = append(res.Notes, strings.Join(values, " "))
		default:
			data = append(data, row)
		}
	}
	if len(data) == 0 {
		return res, ErrAmbiguous
	}

	res.Header, res.Body = data[0], data[1:]
	res.Markdown = Markdown(res.Notes, res.Header, res.Body)
	return res, nil
}

// distinct returns the non-empty values of row in order of first appearance.
func distinct(row []string) []string {
	seen := make(map[string]bool, len(row))
	var out []string
	for _, v := range row {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
