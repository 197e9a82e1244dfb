// Package rules parses disclosure-rule documents (the filing standard) into
// chapter/section/article records.
package rules

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/dartgest/internal/doctree"
)

// Parser extracts articles from a rule document.
type Parser interface {
	Parse(r io.Reader, filename string) ([]doctree.Article, error)
}

// SupportedExtensions lists rule-document extensions.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, fallbackPdftotext bool) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{FallbackPdftotext: fallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

var (
	chapterRe = regexp.MustCompile(`^제\s*(\d+)\s*장\s*(.*)$`)
	sectionRe = regexp.MustCompile(`^제\s*(\d+)\s*절\s*(.*)$`)
	articleRe = regexp.MustCompile(`^제\s*(\d+)-(\d+)-(\d+)\s*조\s*\((.*?)\).*$`)
	stopRe    = regexp.MustCompile(`^(◈\s*별지\s*:\s*공시서식|부\s*칙)`)
)

type state struct {
	chapterID, chapterName string
	sectionID, sectionName string
	articleID, articleName string
	content                []string
	open                   bool
}

func (s *state) flush(out []doctree.Article) []doctree.Article {
	if !s.open {
		return out
	}
	out = append(out, doctree.Article{
		ChapterID:   s.chapterID,
		ChapterName: s.chapterName,
		SectionID:   s.sectionID,
		SectionName: s.sectionName,
		ArticleID:   s.articleID,
		ArticleName: s.articleName,
		Content:     strings.Join(s.content, " "),
	})
	s.open, s.articleID, s.articleName, s.content = false, "", "", nil
	return out
}

// Extract runs the chapter/section/article state machine over text lines.
//
// A chapter line resets the section to "1" named after the chapter. Lines
// that match no marker belong to the open article; lines before the first
// article are dropped. An appendix or supplementary-provision marker ends
// parsing once at least one article has been emitted, so the table of
// contents does not stop it.
func Extract(lines []string) []doctree.Article {
	var out []doctree.Article
	var s state

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if stopRe.MatchString(line) && len(out) > 0 {
			break
		}

		if m := articleRe.FindStringSubmatch(line); m != nil {
			out = s.flush(out)
			s.articleID = m[1] + "-" + m[2] + "-" + m[3]
			s.articleName = strings.TrimSpace(m[4])
			s.open = true
			continue
		}
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			out = s.flush(out)
			s.sectionID, s.sectionName = m[1], strings.TrimSpace(m[2])
			continue
		}
		if m := chapterRe.FindStringSubmatch(line); m != nil {
			out = s.flush(out)
			s.chapterID, s.chapterName = m[1], strings.TrimSpace(m[2])
			s.sectionID, s.sectionName = "1", s.chapterName
			continue
		}
		if s.open {
			s.content = append(s.content, line)
		}
	}
	return s.flush(out)
}

// ExtractText splits text into lines and runs Extract.
func ExtractText(text string) []doctree.Article {
	text = strings.ReplaceAll(text, "\f", "\n")
	return Extract(strings.Split(text, "\n"))
}
