package markup

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/korean"
)

func TestDecode_UTF8WithBOM(t *testing.T) {
	got, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, []byte("<P>회사</P>")...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<P>회사</P>" {
		t.Errorf("expected %q, got %q", "<P>회사</P>", got)
	}
}

func TestDecode_EUCKRFallback(t *testing.T) {
	raw, err := korean.EUCKR.NewEncoder().String("<P>사업보고서</P>")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<P>사업보고서</P>" {
		t.Errorf("expected %q, got %q", "<P>사업보고서</P>", got)
	}
}

func TestDecode_DeclaredEncoding(t *testing.T) {
	raw := []byte("<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><P>caf\xe9</P>")
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "café") {
		t.Errorf("expected decoded text to contain %q, got %q", "café", got)
	}
}

func TestSanitize(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "declaration preserved",
			input: "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n\n  <DOCUMENT>x</DOCUMENT>  ",
			want:  "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<DOCUMENT>x</DOCUMENT>",
		},
		{
			name:  "bare ampersands escaped",
			input: "<P>A & B &amp; C &#123; &#x1F; &nbsp; &bogus</P>",
			want:  "<P>A &amp; B &amp; C &#123; &#x1F; &nbsp; &amp;bogus</P>",
		},
		{
			name:  "native script in brackets is prose",
			input: "<P><회사이름>은 다음과 같다</P>",
			want:  "<P>&lt;회사이름&gt;은 다음과 같다</P>",
		},
		{
			name:  "noise attributes removed",
			input: `<TD USERMARK="F-14" WIDTH=100 COLSPAN="2" ACODE="11011">x</TD>`,
			want:  `<TD COLSPAN="2" ACODE="11011">x</TD>`,
		},
		{
			name:  "unknown tags escaped",
			input: "<P>see <FOO bar> and <XREF></P>",
			want:  "<P>see &lt;FOO bar&gt; and &lt;XREF&gt;</P>",
		},
		{
			name:  "line breaks kept",
			input: "<P>a<BR>b<br/>c</P>",
			want:  "<P>a<BR>b<br/>c</P>",
		},
		{
			name:  "stray open bracket escaped",
			input: "<P>a < b</P>",
			want:  "<P>a &lt; b</P>",
		},
		{
			name:  "doubled brackets collapsed",
			input: "<<P>>x</P>",
			want:  "<P>x</P>",
		},
		{
			name:  "control characters stripped",
			input: "<P>a\x01b\x0bc\x7f</P>",
			want:  "<P>abc</P>",
		},
		{
			name:  "comments pass through",
			input: "<P><!-- note -->x</P>",
			want:  "<P><!-- note -->x</P>",
		},
		{
			name:  "whitelist is case-insensitive",
			input: "<table border=\"1\"><tr><td>1</td></tr></table>",
			want:  "<table border=\"1\"><tr><td>1</td></tr></table>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())
	input := "<DOCUMENT><P>A & B <회사> <X y></P></DOCUMENT>"
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("expected sanitize to be stable, got %q then %q", once, twice)
	}
}

func TestParse_RecoversUnclosedAndStrayTags(t *testing.T) {
	root, err := Parse("<DOCUMENT><P>one<P>two</SPAN></DOCUMENT>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !root.Is("DOCUMENT") {
		t.Fatalf("expected DOCUMENT root, got %q", root.Tag)
	}
	if got := root.TextContent(); got != "onetwo" {
		t.Errorf("expected text %q, got %q", "onetwo", got)
	}
	p := root.FirstChild("P")
	if p == nil || p.FirstChild("P") == nil {
		t.Fatal("expected unclosed P to contain the following P")
	}
}

func TestParse_CaseInsensitiveNamesAndAttrs(t *testing.T) {
	root, err := Parse(`<document><document-name Acode="11011">사업보고서</document-name></document>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name := root.Find("DOCUMENT-NAME")
	if name == nil {
		t.Fatal("expected DOCUMENT-NAME element")
	}
	if got := name.Attr("acode"); got != "11011" {
		t.Errorf("expected ACODE %q, got %q", "11011", got)
	}
}

func TestParse_VoidTags(t *testing.T) {
	root, err := Parse("<DOCUMENT><PGBRK><P>x</P></DOCUMENT>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected PGBRK and P as siblings, got %d children", len(root.Children))
	}
	if !root.Children[1].Is("P") {
		t.Errorf("expected second child P, got %q", root.Children[1].Tag)
	}
}

func TestParse_Entities(t *testing.T) {
	root, err := Parse("<P>a&nbsp;&lt;b&gt;</P>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := root.TextContent(); got != "a\u00a0<b>" {
		t.Errorf("expected %q, got %q", "a\u00a0<b>", got)
	}
}

func TestParse_NoRoot(t *testing.T) {
	_, err := Parse("just text")
	if !errors.Is(err, ErrRecoveryParseFailed) {
		t.Fatalf("expected ErrRecoveryParseFailed, got %v", err)
	}
}

func TestParse_ErrorDiagnostic(t *testing.T) {
	input := "<DOCUMENT>\n<P>ok</P>\n<TD =\"x\">bad</TD>\n</DOCUMENT>"
	_, err := Parse(input)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Errorf("expected line 3, got %d", pe.Line)
	}
	if len(pe.Context) != 4 {
		t.Errorf("expected 4 context lines, got %d", len(pe.Context))
	}
	diag := pe.Diagnostic()
	if !strings.Contains(diag, ">>>     3: <TD =\"x\">bad</TD>") {
		t.Errorf("expected failing line marker in diagnostic, got:\n%s", diag)
	}
	if !strings.Contains(diag, "^") {
		t.Errorf("expected caret in diagnostic, got:\n%s", diag)
	}
}

func TestSanitizeThenParse_ProseBrackets(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())
	root, err := Parse(s.Sanitize("<DOCUMENT><P><회사이름> & 주주</P></DOCUMENT>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := root.TextContent(); got != "<회사이름> & 주주" {
		t.Errorf("expected %q, got %q", "<회사이름> & 주주", got)
	}
}

func TestCollapseSpace(t *testing.T) {
	got := CollapseSpace("  a  b\u3000c\n\td ")
	if got != "a b c d" {
		t.Errorf("expected %q, got %q", "a b c d", got)
	}
}
