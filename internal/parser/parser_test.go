package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/korean"

	"github.com/dgallion1/dartgest/internal/doctree"
	"github.com/dgallion1/dartgest/internal/markup"
)

const businessReport = `<?xml version="1.0" encoding="utf-8"?>
<DOCUMENT xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<DOCUMENT-NAME ACODE="11011">사업보고서</DOCUMENT-NAME>
<FORMULA-VERSION ADATE="20231101">5.4</FORMULA-VERSION>
<COMPANY-NAME AREGCIK="00126380">테스트기업</COMPANY-NAME>
<BODY>
<SECTION-1 ACLASS="MANDATORY" APARTSOURCE="SOURCE">
<TITLE ATOC="Y" AASSOCNOTE="D-0-1-0-0">I. 회사의 개요</TITLE>
<P USERMARK="F-BT14">당사는   1969년에 설립되었습니다.</P>
<TABLE BORDER="1" WIDTH="600" AFIXTABLE="N">
<TBODY>
<TR><TD WIDTH="100">구분</TD><TD>내용</TD></TR>
<TR><TD>설립일</TD><TD>1969.01.13</TD></TR>
</TBODY>
</TABLE>
</SECTION-1>
</BODY>
</DOCUMENT>`

func parseString(t *testing.T, src, filename string) *doctree.Record {
	t.Helper()
	rec, err := NewDisclosureParser(DefaultOptions()).Parse(strings.NewReader(src), filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestDisclosureParser_EndToEnd(t *testing.T) {
	rec := parseString(t, businessReport, "20240430000817.xml")

	if rec.DocumentID != "20240430000817" {
		t.Errorf("expected documentId %q, got %q", "20240430000817", rec.DocumentID)
	}
	if rec.PublicationDate != "20240430" {
		t.Errorf("expected publicationDate %q, got %q", "20240430", rec.PublicationDate)
	}
	if rec.DocumentName != "사업보고서" {
		t.Errorf("expected documentName %q, got %q", "사업보고서", rec.DocumentName)
	}
	if rec.DocumentTypeCode != "11011" {
		t.Errorf("expected documentTypeCode %q, got %q", "11011", rec.DocumentTypeCode)
	}
	if rec.IssuerName != "테스트기업" || rec.IssuerCode != "00126380" {
		t.Errorf("expected issuer 테스트기업/00126380, got %s/%s", rec.IssuerName, rec.IssuerCode)
	}
	if len(rec.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(rec.Sections))
	}

	sec := rec.Sections[0]
	if sec.SectionID != 1 {
		t.Errorf("expected sectionId 1, got %d", sec.SectionID)
	}
	if sec.Title != "I. 회사의 개요" {
		t.Errorf("expected title %q, got %q", "I. 회사의 개요", sec.Title)
	}
	want := "당사는 1969년에 설립되었습니다.\n| 구분 | 내용 |\n| --- | --- |\n| 설립일 | 1969.01.13 |"
	if sec.Content != want {
		t.Errorf("expected content %q, got %q", want, sec.Content)
	}
}

func TestDisclosureParser_Deterministic(t *testing.T) {
	a := parseString(t, businessReport, "20240430000817.xml")
	b := parseString(t, businessReport, "20240430000817.xml")
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical records for identical input")
	}
}

func TestDisclosureParser_EUCKRInput(t *testing.T) {
	src := strings.Replace(businessReport, `encoding="utf-8"`, `encoding="euc-kr"`, 1)
	raw, err := korean.EUCKR.NewEncoder().String(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rec, err := NewDisclosureParser(DefaultOptions()).Parse(bytes.NewReader([]byte(raw)), "20240430000817.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DocumentName != "사업보고서" {
		t.Errorf("expected documentName %q, got %q", "사업보고서", rec.DocumentName)
	}
}

func TestDisclosureParser_ProseBracketsEscaped(t *testing.T) {
	src := `<DOCUMENT><SECTION-1><TITLE>개요</TITLE><P><회사이름>은 코스피 상장법인입니다.</P></SECTION-1></DOCUMENT>`
	rec := parseString(t, src, "20240101000001.xml")
	want := "&lt;회사이름&gt;은 코스피 상장법인입니다."
	if rec.Sections[0].Content != want {
		t.Errorf("expected %q, got %q", want, rec.Sections[0].Content)
	}
}

func TestDisclosureParser_UntitledAndDenseIDs(t *testing.T) {
	src := `<DOCUMENT><BODY>
<SECTION-1><P>first</P></SECTION-1>
<PART><SECTION-1><TITLE>둘째</TITLE><P>second</P>
<SECTION-1><TITLE>nested</TITLE><P>inner</P></SECTION-1>
</SECTION-1></PART>
</BODY></DOCUMENT>`
	rec := parseString(t, src, "20240101000001.xml")

	if len(rec.Sections) != 2 {
		t.Fatalf("expected 2 top-most sections, got %d", len(rec.Sections))
	}
	for i, s := range rec.Sections {
		if s.SectionID != i+1 {
			t.Errorf("section %d: expected id %d, got %d", i, i+1, s.SectionID)
		}
	}
	if rec.Sections[0].Title != "제목 없음" {
		t.Errorf("expected untitled sentinel, got %q", rec.Sections[0].Title)
	}
	if rec.Sections[1].Content != "second nested inner" {
		t.Errorf("expected nested section folded into parent, got %q", rec.Sections[1].Content)
	}
}

func TestDisclosureParser_TableTransitions(t *testing.T) {
	src := `<DOCUMENT><SECTION-1><TITLE>T</TITLE>
<P>before</P>
<TABLE BORDER="1"><TR><TD>a</TD><TD>b</TD></TR></TABLE>
<TABLE BORDER="1"><TR><TD>c</TD><TD>d</TD></TR></TABLE>
<P>after</P>
<TABLE><TR><TD>plain</TD><TD>layout</TD></TR></TABLE>
<TABLE BORDER="1"><TR><TD COLSPAN="2">note only</TD></TR></TABLE>
</SECTION-1></DOCUMENT>`
	rec := parseString(t, src, "20240101000001.xml")

	want := "before\n| a | b |\n| --- | --- |\n\n| c | d |\n| --- | --- |\nafter plain layout"
	if rec.Sections[0].Content != want {
		t.Errorf("expected %q, got %q", want, rec.Sections[0].Content)
	}
}

func TestDisclosureParser_MixedMarkup(t *testing.T) {
	src := `<DOCUMENT><SECTION-1><TITLE>개요</TITLE>
<P><회사이름>&nbsp;입니다 끝</P>
<TABLE BORDER="1">
<TR><TE ROWSPAN="2">A</TE><TU COLSPAN="x">B</TU></TR>
<TR><TU>C</TU></TR>
<TR><TE>(단위:원)</TE></TR>
</TABLE>
<P>tail x <FOO></P>
</SECTION-1></DOCUMENT>`
	rec := parseString(t, src, "20240430000817.xml")

	want := "&lt;회사이름&gt; 입니다 끝\n(단위:원)\n| A | B |\n| --- | --- |\n| A | C |\ntail x &lt;FOO&gt;"
	if got := rec.Sections[0].Content; got != want {
		t.Errorf("expected content %q, got %q", want, got)
	}
}

func TestDisclosureParser_Warnings(t *testing.T) {
	src := `<DOCUMENT>
<SECTION-1><TITLE>개요</TITLE><P>본문</P></SECTION-1>
<SECTION-1><TITLE>재무</TITLE>
<TABLE BORDER="1"><TR><TD>(단위 : 원)</TD></TR></TABLE>
<P>끝</P>
</SECTION-1>
</DOCUMENT>`
	rec := parseString(t, src, "report.xml")

	want := []doctree.Warning{
		{Kind: doctree.WarnTableOmitted, SectionID: 2, Detail: "no data rows (1 descriptive)"},
		{Kind: doctree.WarnInvalidPublicationDate, Detail: "report"},
	}
	if !reflect.DeepEqual(rec.Warnings, want) {
		t.Errorf("expected warnings %+v, got %+v", want, rec.Warnings)
	}
	if rec.Sections[1].Content != "끝" {
		t.Errorf("expected omitted table to leave only text, got %q", rec.Sections[1].Content)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("table omitted")) || bytes.Contains(data, []byte("Warnings")) {
		t.Errorf("expected warnings to stay out of the indexed document, got %s", data)
	}
}

func TestDisclosureParser_NoWarnings(t *testing.T) {
	if rec := parseString(t, businessReport, "20240430000817.xml"); len(rec.Warnings) != 0 {
		t.Errorf("expected no warnings, got %+v", rec.Warnings)
	}
}

func TestDisclosureParser_LineBreaks(t *testing.T) {
	src := `<DOCUMENT><SECTION-1><TITLE>개요</TITLE><P>첫째 줄<BR>둘째 줄<BR/>셋째 줄</P></SECTION-1></DOCUMENT>`
	rec := parseString(t, src, "20240430000817.xml")
	if got := rec.Sections[0].Content; got != "첫째 줄 둘째 줄 셋째 줄" {
		t.Errorf("expected line breaks to separate text, got %q", got)
	}
}

func TestDisclosureParser_MissingMetadata(t *testing.T) {
	rec := parseString(t, `<DOCUMENT><BODY/></DOCUMENT>`, "abc.xml")
	if rec.DocumentName != "" || rec.DocumentTypeCode != "" || rec.IssuerName != "" || rec.IssuerCode != "" {
		t.Errorf("expected empty metadata, got %+v", rec)
	}
	if rec.PublicationDate != "" {
		t.Errorf("expected empty publicationDate, got %q", rec.PublicationDate)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"sections":[]`) {
		t.Errorf("expected empty sections array, got %s", out)
	}
}

func TestDisclosureParser_MissingDocumentID(t *testing.T) {
	_, err := NewDisclosureParser(DefaultOptions()).Parse(strings.NewReader(businessReport), ".xml")
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("expected ErrMissingRequiredField, got %v", err)
	}
}

func TestDisclosureParser_RecoveryParseFailure(t *testing.T) {
	_, err := NewDisclosureParser(DefaultOptions()).Parse(strings.NewReader(`<DOCUMENT><TD ="x">1</TD></DOCUMENT>`), "20240101000001.xml")
	if !errors.Is(err, markup.ErrRecoveryParseFailed) {
		t.Fatalf("expected ErrRecoveryParseFailed, got %v", err)
	}
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"20240430000817.xml", "20240430000817"},
		{"/data/dart/20240430000817.xml", "20240430000817"},
		{"report.v2.xml", "report"},
		{".xml", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DocumentID(tt.in); got != tt.want {
			t.Errorf("DocumentID(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestPublicationDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"20240430000817", "20240430"},
		{"20241340000817", ""},
		{"2024", ""},
		{"report", ""},
	}
	for _, tt := range tests {
		if got := PublicationDate(tt.in); got != tt.want {
			t.Errorf("PublicationDate(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestRenderContent(t *testing.T) {
	items := []doctree.Item{
		{Type: doctree.ItemText, Value: "a"},
		{Type: doctree.ItemText, Value: "b"},
		{Type: doctree.ItemTable, Value: "| x |\n| --- |"},
		{Type: doctree.ItemText, Value: "c"},
	}
	want := "a b\n| x |\n| --- |\nc"
	if got := RenderContent(items); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalizeContent(t *testing.T) {
	got := NormalizeContent("  a   b \n\n\n\nc\t d  ")
	if got != "a b\n\nc d" {
		t.Errorf("expected %q, got %q", "a b\n\nc d", got)
	}
}

func TestForFile(t *testing.T) {
	if _, err := ForFile("20240430000817.XML", DefaultOptions()); err != nil {
		t.Errorf("expected xml parser, got error %v", err)
	}
	if _, err := ForFile("report.pdf", DefaultOptions()); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
