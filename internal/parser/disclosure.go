package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/dartgest/internal/doctree"
	"github.com/dgallion1/dartgest/internal/markup"
)

// DisclosureParser turns one DART disclosure XML file into a Record:
// sanitize, recovery-parse, segment, assemble.
type DisclosureParser struct {
	opts      Options
	sanitizer *markup.Sanitizer
	markup    *markup.Parser
}

// NewDisclosureParser compiles opts into a parser. It is safe for concurrent
// use.
func NewDisclosureParser(opts Options) *DisclosureParser {
	return &DisclosureParser{
		opts:      opts,
		sanitizer: markup.NewSanitizer(opts.Sanitize),
		markup:    markup.NewParser(opts.VoidTags),
	}
}

func (p *DisclosureParser) Parse(r io.Reader, filename string) (*doctree.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	text, err := markup.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", markup.ErrSanitizationImpossible, err)
	}
	return p.ParseText(text, filename)
}

// ParseText runs the pipeline on already-decoded text.
func (p *DisclosureParser) ParseText(text, filename string) (*doctree.Record, error) {
	root, err := p.markup.Parse(p.sanitizer.Sanitize(text))
	if err != nil {
		return nil, err
	}
	return p.Assemble(root, filename)
}

// Sanitize exposes the sanitizer pass for diagnostics.
func (p *DisclosureParser) Sanitize(text string) string {
	return p.sanitizer.Sanitize(text)
}

// Assemble builds the Record from a parsed tree and the source filename.
func (p *DisclosureParser) Assemble(root *markup.Node, filename string) (*doctree.Record, error) {
	id := DocumentID(filename)
	if id == "" {
		return nil, fmt.Errorf("%w: documentId (filename %q)", ErrMissingRequiredField, filename)
	}

	rec := &doctree.Record{
		DocumentID:      id,
		PublicationDate: PublicationDate(id),
	}
	rec.Sections, rec.Warnings = p.segment(root)
	if rec.PublicationDate == "" {
		rec.Warnings = append(rec.Warnings, doctree.Warning{Kind: doctree.WarnInvalidPublicationDate, Detail: id})
	}
	if n := root.Find("DOCUMENT-NAME"); n != nil {
		rec.DocumentName = markup.CollapseSpace(n.TextContent())
		rec.DocumentTypeCode = strings.TrimSpace(n.Attr("ACODE"))
	}
	if n := root.Find("COMPANY-NAME"); n != nil {
		rec.IssuerName = markup.CollapseSpace(n.TextContent())
		rec.IssuerCode = strings.TrimSpace(n.Attr("AREGCIK"))
	}
	return rec, nil
}

// DocumentID is the filename's base name cut at its first '.'.
func DocumentID(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSpace(base)
}

// PublicationDate returns the first eight characters of id when they form a
// valid yyyyMMdd date, and "" otherwise.
func PublicationDate(id string) string {
	if len(id) < 8 {
		return ""
	}
	d := id[:8]
	if _, err := time.Parse("20060102", d); err != nil {
		return ""
	}
	return d
}
