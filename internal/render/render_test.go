package render

import (
	"strings"
	"testing"

	"github.com/dgallion1/dartgest/internal/doctree"
)

const sectionContent = "당사는 1969년에 설립되었습니다.\n| 구분 | 내용 |\n| --- | --- |\n| 설립일 | 1969.01.13 |\n비고 &lt;회사&gt;"

func TestSeparateTables(t *testing.T) {
	got := SeparateTables(sectionContent)
	want := "당사는 1969년에 설립되었습니다.\n\n| 구분 | 내용 |\n| --- | --- |\n| 설립일 | 1969.01.13 |\n\n비고 &lt;회사&gt;"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTableCount(t *testing.T) {
	content := sectionContent + "\n| a | b |\n| --- | --- |\n\n| c | d |\n| --- | --- |"
	if got := TableCount(content); got != 3 {
		t.Errorf("expected 3 tables, got %d", got)
	}
	if got := TableCount("plain text only"); got != 0 {
		t.Errorf("expected 0 tables, got %d", got)
	}
}

func TestHTML(t *testing.T) {
	rec := &doctree.Record{
		DocumentID:   "20240430000817",
		DocumentName: "사업보고서",
		IssuerName:   "테스트기업",
		Sections:     []doctree.Section{{SectionID: 1, Title: "I. 회사의 개요", Content: sectionContent}},
	}
	out, err := HTML(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(out)
	for _, want := range []string{"<h1>사업보고서</h1>", "<h2>I. 회사의 개요</h2>", "<table>", "<th>구분</th>", "<td>1969.01.13</td>", "&lt;회사&gt;"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected HTML to contain %q, got:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<td>비고") {
		t.Error("expected trailing text outside the table")
	}
}
