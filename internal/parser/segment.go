package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/dartgest/internal/doctree"
	"github.com/dgallion1/dartgest/internal/markup"
	"github.com/dgallion1/dartgest/internal/table"
)

// Segment splits the tree into one Section per top-most section element, in
// document order.
func (p *DisclosureParser) Segment(root *markup.Node) []doctree.Section {
	sections, _ := p.segment(root)
	return sections
}

// segment is Segment that also reports the tables left out of each section.
func (p *DisclosureParser) segment(root *markup.Node) ([]doctree.Section, []doctree.Warning) {
	nodes := root.FindAll(p.opts.SectionTag)
	sections := make([]doctree.Section, 0, len(nodes))
	var warnings []doctree.Warning
	for i, n := range nodes {
		id := i + 1
		c := p.collect(n)
		sections = append(sections, doctree.Section{
			SectionID: id,
			Title:     c.title,
			Content:   RenderContent(c.items),
		})
		for _, reason := range c.omitted {
			warnings = append(warnings, doctree.Warning{Kind: doctree.WarnTableOmitted, SectionID: id, Detail: reason})
		}
	}
	return sections, warnings
}

type collection struct {
	title   string
	items   []doctree.Item
	omitted []string // why each dropped table was dropped
}

// collect gathers the section title and its content items. The first direct
// title child names the section and is excluded from the content.
func (p *DisclosureParser) collect(section *markup.Node) *collection {
	c := &collection{title: p.opts.Untitled}
	titleNode := section.FirstChild(p.opts.TitleTag)
	if titleNode != nil {
		if t := markup.CollapseSpace(titleNode.TextContent()); t != "" {
			c.title = t
		}
	}

	for _, n := range section.Children {
		if n == titleNode {
			continue
		}
		p.walk(n, c)
	}
	return c
}

func (p *DisclosureParser) walk(n *markup.Node, c *collection) {
	if n.Type == markup.TextNode {
		if t := markup.CollapseSpace(n.Text); t != "" {
			c.items = append(c.items, doctree.Item{Type: doctree.ItemText, Value: markup.EscapeText(t)})
		}
		return
	}

	if n.Is(p.opts.TableTag) && p.bordered(n) {
		res, err := table.Reconstruct(n, p.opts.Table)
		switch {
		case errors.Is(err, table.ErrAmbiguous):
			c.omitted = append(c.omitted, fmt.Sprintf("no data rows (%d descriptive)", len(res.Notes)))
		case err != nil:
			c.omitted = append(c.omitted, err.Error())
		case res.Markdown == "":
			c.omitted = append(c.omitted, "empty table")
		default:
			c.items = append(c.items, doctree.Item{Type: doctree.ItemTable, Value: res.Markdown})
		}
		return
	}

	for _, child := range n.Children {
		p.walk(child, c)
	}
}

func (p *DisclosureParser) bordered(n *markup.Node) bool {
	return strings.TrimSpace(n.Attr(p.opts.BorderAttr)) == p.opts.BorderValue
}

// RenderContent joins items: a space between consecutive text items, a
// newline at every text/table transition and a blank line between
// consecutive tables. The result is normalized line by line.
func RenderContent(items []doctree.Item) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			switch prev := items[i-1].Type; {
			case prev != it.Type:
				b.WriteByte('\n')
			case it.Type == doctree.ItemTable:
				b.WriteString("\n\n")
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString(it.Value)
	}
	return NormalizeContent(b.String())
}

// NormalizeContent collapses white space within each line, keeps at most one
// consecutive blank line and trims the result.
func NormalizeContent(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = markup.CollapseSpace(l)
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
