package table

import (
	"strconv"
	"strings"

	"github.com/dgallion1/dartgest/internal/markup"
)

// Cell is one source cell with its merge attributes. Spans are always >= 1.
type Cell struct {
	Text    string
	ColSpan int
	RowSpan int
}

// Grid is a dense rectangular cell-text matrix.
type Grid [][]string

// Width returns the column count.
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// ExtractRows collects the cells of every row of tbl in document order.
// Rows of nested tables are left to those tables.
func ExtractRows(tbl *markup.Node, opts Options) [][]Cell {
	cellTags := make(map[string]bool, len(opts.CellTags))
	for _, t := range opts.CellTags {
		cellTags[strings.ToUpper(t)] = true
	}

	var rows [][]Cell
	var walk func(*markup.Node)
	walk = func(n *markup.Node) {
		for _, c := range n.Children {
			if c.Type != markup.ElementNode {
				continue
			}
			switch {
			case c.Is("TR"):
				rows = append(rows, rowCells(c, cellTags, opts.MaxSpan))
			case c.Is("TABLE"):
			default:
				walk(c)
			}
		}
	}
	walk(tbl)
	return rows
}

func rowCells(tr *markup.Node, cellTags map[string]bool, maxSpan int) []Cell {
	var cells []Cell
	for _, c := range tr.Children {
		if c.Type != markup.ElementNode || !cellTags[c.Tag] {
			continue
		}
		cells = append(cells, Cell{
			Text:    markup.CollapseSpace(c.TextContent()),
			ColSpan: span(c.Attr("COLSPAN"), maxSpan),
			RowSpan: span(c.Attr("ROWSPAN"), maxSpan),
		})
	}
	return cells
}

// span parses a merge attribute. Missing, malformed and non-positive values
// mean 1; values above maxSpan are clamped.
func span(v string, maxSpan int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	if maxSpan > 0 && n > maxSpan {
		return maxSpan
	}
	return n
}

type slot struct {
	text   string
	filled bool
}

// Expand lays rows out on a grid honoring row and column spans. Positions
// already filled by an earlier row span are skipped when placing a row's
// cells, and on overlap the first committed value wins. Row spans never
// extend past the last source row. Rows with nothing filled are dropped and
// every row is padded with "" to the widest row.
func Expand(rows [][]Cell) Grid {
	grid := make([][]slot, len(rows))
	put := func(r, c int, text string) {
		for len(grid[r]) <= c {
			grid[r] = append(grid[r], slot{})
		}
		if !grid[r][c].filled {
			grid[r][c] = slot{text: text, filled: true}
		}
	}

	for r, cells := range rows {
		col := 0
		for _, cell := range cells {
			for col < len(grid[r]) && grid[r][col].filled {
				col++
			}
			rowSpan := min(max(cell.RowSpan, 1), len(rows)-r)
			colSpan := max(cell.ColSpan, 1)
			for dr := range rowSpan {
				for dc := range colSpan {
					put(r+dr, col+dc, cell.Text)
				}
			}
			col += colSpan
		}
	}

	width := 0
	for _, row := range grid {
		width = max(width, len(row))
	}

	out := make(Grid, 0, len(grid))
	for _, row := range grid {
		if !anyFilled(row) {
			continue
		}
		line := make([]string, width)
		for c, s := range row {
			line[c] = s.text
		}
		out = append(out, line)
	}
	return out
}

func anyFilled(row []slot) bool {
	for _, s := range row {
		if s.filled {
			return true
		}
	}
	return false
}
