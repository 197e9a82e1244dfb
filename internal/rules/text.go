package rules

import (
	"fmt"
	"io"

	"github.com/dgallion1/dartgest/internal/doctree"
	"github.com/dgallion1/dartgest/internal/markup"
)

// TextParser handles rule documents already converted to text, in UTF-8 or
// EUC-KR.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]doctree.Article, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	text, err := markup.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return ExtractText(text), nil
}
