package markup

import "strings"

// NodeType distinguishes elements from character data.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Node is one node of the recovered document tree. Tag names and attribute
// keys are stored upper-cased.
type Node struct {
	Type     NodeType
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Is reports whether n is an element named tag (case-insensitive).
func (n *Node) Is(tag string) bool {
	return n != nil && n.Type == ElementNode && strings.EqualFold(n.Tag, tag)
}

// Attr returns the value of the named attribute, or "".
func (n *Node) Attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[strings.ToUpper(name)]
}

// FirstChild returns the first direct child element named tag.
func (n *Node) FirstChild(tag string) *Node {
	for _, c := range n.Children {
		if c.Is(tag) {
			return c
		}
	}
	return nil
}

// Find returns the first descendant element named tag in document order.
func (n *Node) Find(tag string) *Node {
	for _, c := range n.Children {
		if c.Type != ElementNode {
			continue
		}
		if c.Is(tag) {
			return c
		}
		if found := c.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns the top-most descendant elements named tag in document
// order. It does not descend into a match.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.Children {
			if c.Type != ElementNode {
				continue
			}
			if c.Is(tag) {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// TextContent concatenates all descendant character data.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.Type == TextNode {
		return n.Text
	}
	var b strings.Builder
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.Children {
			if c.Type == TextNode {
				b.WriteString(c.Text)
			} else {
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// CollapseSpace replaces every run of Unicode white space, including NBSP and
// the ideographic space, with one ASCII space and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeText re-escapes markup-significant characters in extracted text.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}
