package table

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dgallion1/dartgest/internal/markup"
)

func mustTable(t *testing.T, src string) *markup.Node {
	t.Helper()
	root, err := markup.Parse(src)
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}
	return root
}

func TestReconstruct_SpanOneCells(t *testing.T) {
	tbl := mustTable(t, `<TABLE BORDER="1">
<TR><TD>a</TD><TD>b</TD></TR>
<TR><TD>c</TD><TD>d</TD></TR>
<TR><TD>e</TD><TD>f</TD></TR>
</TABLE>`)

	res, err := Reconstruct(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Grid) != 3 || res.Grid.Width() != 2 {
		t.Fatalf("expected 3x2 grid, got %dx%d", len(res.Grid), res.Grid.Width())
	}
	want := "| a | b |\n| --- | --- |\n| c | d |\n| e | f |"
	if res.Markdown != want {
		t.Errorf("expected %q, got %q", want, res.Markdown)
	}
}

func TestReconstruct_RowSpanCopiesDown(t *testing.T) {
	tbl := mustTable(t, `<TABLE><TR><TD ROWSPAN="2">A</TD><TD>x</TD></TR><TR><TD>y</TD></TR></TABLE>`)

	res, err := Reconstruct(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Grid{{"A", "x"}, {"A", "y"}}
	if !reflect.DeepEqual(res.Grid, want) {
		t.Errorf("expected grid %v, got %v", want, res.Grid)
	}
}

func TestReconstruct_ColSpanPaddingAndNotes(t *testing.T) {
	tbl := mustTable(t, `<TABLE>
<TR><TD COLSPAN="2">(단위 : 백만원)</TD></TR>
<TR><TH>구분</TH><TH>2023</TH><TH>2024</TH></TR>
<TR><TD>매출</TD><TD>100</TD></TR>
</TABLE>`)

	res, err := Reconstruct(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Grid.Width() != 3 {
		t.Fatalf("expected width 3, got %d", res.Grid.Width())
	}
	for i, row := range res.Grid {
		if len(row) != 3 {
			t.Errorf("row %d: expected 3 cells, got %d", i, len(row))
		}
	}
	want := "(단위 : 백만원)\n| 구분 | 2023 | 2024 |\n| --- | --- | --- |\n| 매출 | 100 | |"
	if res.Markdown != want {
		t.Errorf("expected %q, got %q", want, res.Markdown)
	}
}

func TestReconstruct_SingleDataRow(t *testing.T) {
	tbl := mustTable(t, `<TABLE><TR><TD>a</TD><TD>b</TD></TR></TABLE>`)

	res, err := Reconstruct(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "| a | b |\n| --- | --- |"
	if res.Markdown != want {
		t.Errorf("expected %q, got %q", want, res.Markdown)
	}
}

func TestReconstruct_Ambiguous(t *testing.T) {
	tbl := mustTable(t, `<TABLE><TR><TD>only</TD></TR><TR><TD COLSPAN="3">note</TD></TR><TR><TD></TD></TR></TABLE>`)

	res, err := Reconstruct(tbl, DefaultOptions())
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
	if res.Markdown != "" {
		t.Errorf("expected empty markdown, got %q", res.Markdown)
	}
	if !reflect.DeepEqual(res.Notes, []string{"only", "note"}) {
		t.Errorf("expected notes [only note], got %v", res.Notes)
	}
}

func TestReconstruct_MinDataColumns(t *testing.T) {
	tbl := mustTable(t, `<TABLE><TR><TD>a</TD><TD>b</TD></TR><TR><TD>c</TD><TD>d</TD><TD>e</TD></TR></TABLE>`)

	opts := DefaultOptions()
	opts.MinDataColumns = 3
	res, err := Reconstruct(tbl, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a b\n| c | d | e |\n| --- | --- | --- |"
	if res.Markdown != want {
		t.Errorf("expected %q, got %q", want, res.Markdown)
	}
}

func TestReconstruct_EscapesCells(t *testing.T) {
	tbl := mustTable(t, `<TABLE><TR><TD>a|b</TD><TD>S&amp;T&nbsp; 주식</TD></TR></TABLE>`)

	res, err := Reconstruct(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "| a\\|b | S&amp;T 주식 |\n| --- | --- |"
	if res.Markdown != want {
		t.Errorf("expected %q, got %q", want, res.Markdown)
	}
}

func TestExtractRows_SkipsNestedTables(t *testing.T) {
	tbl := mustTable(t, `<TABLE><TBODY><TR><TD>a</TD><TD><TABLE><TR><TD>n1</TD><TD>n2</TD></TR></TABLE></TD></TR></TBODY></TABLE>`)

	rows := ExtractRows(tbl, DefaultOptions())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if len(rows[0]) != 2 {
		t.Errorf("expected 2 cells, got %d", len(rows[0]))
	}
}

func TestExpand_FirstCommittedValueWins(t *testing.T) {
	rows := [][]Cell{
		{{Text: "X", ColSpan: 1, RowSpan: 1}, {Text: "Y", ColSpan: 1, RowSpan: 2}},
		{{Text: "P", ColSpan: 3, RowSpan: 1}},
	}
	want := Grid{{"X", "Y", ""}, {"P", "Y", "P"}}
	if got := Expand(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestExpand_SkipsPrefilledSlots(t *testing.T) {
	rows := [][]Cell{
		{{Text: "A", ColSpan: 1, RowSpan: 2}, {Text: "B", ColSpan: 1, RowSpan: 1}},
		{{Text: "C", ColSpan: 2, RowSpan: 1}},
	}
	want := Grid{{"A", "B", ""}, {"A", "C", "C"}}
	if got := Expand(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestExpand_RowSpanClampedToTable(t *testing.T) {
	rows := [][]Cell{
		{{Text: "A", ColSpan: 1, RowSpan: 5}, {Text: "b", ColSpan: 1, RowSpan: 1}},
	}
	got := Expand(rows)
	if len(got) != 1 {
		t.Errorf("expected 1 row, got %d", len(got))
	}
}

func TestExpand_DropsEmptyRows(t *testing.T) {
	rows := [][]Cell{
		{{Text: "a", ColSpan: 1, RowSpan: 1}},
		{},
		{{Text: "b", ColSpan: 1, RowSpan: 1}},
	}
	got := Expand(rows)
	if len(got) != 2 {
		t.Errorf("expected 2 rows, got %d", len(got))
	}
}

func TestSpan(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 1},
		{"0", 1},
		{"-2", 1},
		{"abc", 1},
		{" 3 ", 3},
		{"99999", 1000},
	}
	for _, tt := range tests {
		if got := span(tt.in, 1000); got != tt.want {
			t.Errorf("span(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
