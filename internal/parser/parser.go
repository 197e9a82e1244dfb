package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/dartgest/internal/doctree"
	"github.com/dgallion1/dartgest/internal/markup"
	"github.com/dgallion1/dartgest/internal/table"
)

// ErrMissingRequiredField is returned when an assembled record lacks a field
// the index cannot do without.
var ErrMissingRequiredField = errors.New("missing required field")

// Parser converts raw document bytes into a Record.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Record, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".xml": true,
}

// Options configures the disclosure parser. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	Sanitize    markup.SanitizeConfig
	VoidTags    []string
	Table       table.Options
	SectionTag  string
	TitleTag    string
	TableTag    string
	BorderAttr  string
	BorderValue string
	// Untitled is the title given to sections without a TITLE child.
	Untitled string
}

// DefaultOptions returns the options for DART disclosure XML.
func DefaultOptions() Options {
	return Options{
		Sanitize:    markup.DefaultSanitizeConfig(),
		VoidTags:    markup.DefaultVoidTags,
		Table:       table.DefaultOptions(),
		SectionTag:  "SECTION-1",
		TitleTag:    "TITLE",
		TableTag:    "TABLE",
		BorderAttr:  "BORDER",
		BorderValue: "1",
		Untitled:    "제목 없음",
	}
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xml":
		return NewDisclosureParser(opts), nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
