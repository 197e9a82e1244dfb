package markup

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

var (
	// ErrRecoveryParseFailed matches every *ParseError.
	ErrRecoveryParseFailed = errors.New("recovery parse failed")
	// ErrSanitizationImpossible is returned when input cannot be read as text.
	ErrSanitizationImpossible = errors.New("sanitization impossible")
)

// DefaultVoidTags never take children; their end tags are optional.
var DefaultVoidTags = []string{"PGBRK", "COL", "BR"}

// Parser builds a Node tree from sanitized markup, tolerating unclosed
// elements and stray end tags.
type Parser struct {
	void map[string]bool
}

// NewParser returns a Parser treating voidTags as childless.
func NewParser(voidTags []string) *Parser {
	p := &Parser{void: make(map[string]bool, len(voidTags))}
	for _, t := range voidTags {
		p.void[strings.ToUpper(t)] = true
	}
	return p
}

// Parse parses text with the default void tags.
func Parse(text string) (*Node, error) {
	return NewParser(DefaultVoidTags).Parse(text)
}

// Parse builds the document tree. An end tag closes the nearest open element
// with the same name and everything opened after it; an end tag with no open
// match is dropped.
func (p *Parser) Parse(text string) (*Node, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	// input is already UTF-8 regardless of what the declaration says
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	doc := &Node{Type: ElementNode}
	stack := []*Node{doc}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, col := d.InputPos()
			var se *xml.SyntaxError
			msg := err.Error()
			if errors.As(err, &se) {
				msg = se.Msg
				if se.Line != line {
					line, col = se.Line, 1
				}
			}
			return nil, newParseError(text, d.InputOffset(), line, col, msg)
		}

		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Type: ElementNode, Tag: elementName(t.Name)}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[elementName(a.Name)] = a.Value
				}
			}
			top.Children = append(top.Children, n)
			if !p.void[n.Tag] {
				stack = append(stack, n)
			}
		case xml.EndElement:
			name := elementName(t.Name)
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Tag == name {
					stack = stack[:i]
					break
				}
			}
		case xml.CharData:
			appendText(top, string(t))
		}
	}

	var roots []*Node
	for _, c := range doc.Children {
		if c.Type == ElementNode {
			roots = append(roots, c)
		}
	}
	switch len(roots) {
	case 0:
		line := strings.Count(text, "\n") + 1
		return nil, newParseError(text, int64(len(text)), line, 1, "no root element")
	case 1:
		return roots[0], nil
	}
	return doc, nil
}

func elementName(n xml.Name) string {
	if n.Space != "" {
		return strings.ToUpper(n.Space + ":" + n.Local)
	}
	return strings.ToUpper(n.Local)
}

func appendText(parent *Node, s string) {
	if k := len(parent.Children); k > 0 && parent.Children[k-1].Type == TextNode {
		parent.Children[k-1].Text += s
		return
	}
	parent.Children = append(parent.Children, &Node{Type: TextNode, Text: s})
}
