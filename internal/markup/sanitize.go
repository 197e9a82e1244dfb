package markup

import (
	"encoding/xml"
	"regexp"
	"strings"
	"unicode"
)

// DefaultWhitelist lists the structural tags of the DART disclosure format.
var DefaultWhitelist = []string{
	"DOCUMENT", "DOCUMENT-NAME", "FORMULA-VERSION", "COMPANY-NAME", "SUMMARY",
	"LIBRARY", "BODY", "EXTRACTION", "COVER", "COVER-TITLE", "PART",
	"SECTION-1", "SECTION-2", "SECTION-3", "TITLE", "P", "SPAN", "A", "PGBRK", "BR",
	"IMAGE", "IMG", "IMG-CAPTION",
	"TABLE", "TABLE-GROUP", "COLGROUP", "COL", "THEAD", "TBODY",
	"TR", "TD", "TH", "TE", "TU",
}

// DefaultNoiseAttrs lists presentational and editor-bookkeeping attributes.
// ACODE, AREGCIK and BORDER carry meaning downstream and are never listed.
var DefaultNoiseAttrs = []string{
	"USERMARK", "WIDTH", "HEIGHT", "ALIGN", "VALIGN", "STYLE", "CLASS",
	"FRAME", "RULES", "ACLASS", "AFIXTABLE", "ACOPY", "ADELETE", "AUPDATECONT",
	"ACOPYCOL", "AMOVECOL", "ADELETECOL", "AUNIT", "AUNITVALUE", "REFNO",
	"AASSOCNOTE", "ATOC", "ATOCID", "ADELIM",
}

// SanitizeConfig holds the naming tables the sanitizer applies.
type SanitizeConfig struct {
	// Whitelist is the set of tag names (case-insensitive) kept as markup.
	Whitelist []string
	// NoiseAttrs are attribute names removed from every tag.
	NoiseAttrs []string
	// Scripts are Unicode script names, as accepted by unicode.Scripts.
	// A bracketed span containing any of them is prose, not a tag.
	Scripts []string
}

// DefaultSanitizeConfig returns the configuration for Korean DART filings.
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		Whitelist:  DefaultWhitelist,
		NoiseAttrs: DefaultNoiseAttrs,
		Scripts:    []string{"Hangul"},
	}
}

// Sanitizer rewrites malformed disclosure markup into text the recovery
// parser accepts. It never rejects input.
type Sanitizer struct {
	whitelist map[string]bool
	noiseRe   *regexp.Regexp
	proseRe   *regexp.Regexp
}

var (
	xmlDeclRe = regexp.MustCompile(`^\s*(<\?xml[^>]*\?>)`)
	tagSpanRe = regexp.MustCompile(`<[A-Za-z/][^<>]*>`)
	tagRe     = regexp.MustCompile(`^<(/?)([A-Za-z][\w.:\-]*)(\s[^<>]*|/)?>`)
)

// predefined XML entity names; HTML names come from xml.HTMLEntity.
var xmlEntities = map[string]bool{"amp": true, "lt": true, "gt": true, "apos": true, "quot": true}

// maxEntityLen bounds the lookahead when deciding whether '&' starts a reference.
const maxEntityLen = 32

// NewSanitizer compiles cfg into a Sanitizer.
func NewSanitizer(cfg SanitizeConfig) *Sanitizer {
	s := &Sanitizer{whitelist: make(map[string]bool, len(cfg.Whitelist))}
	for _, tag := range cfg.Whitelist {
		s.whitelist[strings.ToUpper(tag)] = true
	}

	if len(cfg.NoiseAttrs) > 0 {
		names := make([]string, 0, len(cfg.NoiseAttrs))
		for _, a := range cfg.NoiseAttrs {
			names = append(names, regexp.QuoteMeta(a))
		}
		s.noiseRe = regexp.MustCompile(`(?i)\s+(?:` + strings.Join(names, "|") + `)\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	}

	var class strings.Builder
	for _, name := range cfg.Scripts {
		if _, ok := unicode.Scripts[name]; ok {
			class.WriteString(`\p{` + name + `}`)
		}
	}
	if class.Len() > 0 {
		s.proseRe = regexp.MustCompile(`<([^"<>]*[` + class.String() + `][^"<>]*)>`)
	}
	return s
}

// Sanitize applies the repair passes in order. The leading XML declaration,
// if present, is preserved verbatim on its own line.
func (s *Sanitizer) Sanitize(raw string) string {
	var decl string
	if m := xmlDeclRe.FindStringSubmatchIndex(raw); m != nil {
		decl = raw[m[2]:m[3]]
		raw = raw[m[1]:]
	}

	body := strings.TrimSpace(raw)
	body = stripControl(body)
	body = escapeAmpersands(body)
	if s.proseRe != nil {
		body = s.proseRe.ReplaceAllString(body, "&lt;${1}&gt;")
	}
	if s.noiseRe != nil {
		body = tagSpanRe.ReplaceAllStringFunc(body, func(tag string) string {
			return s.noiseRe.ReplaceAllString(tag, "")
		})
	}
	body = s.filterTags(body)

	if decl == "" {
		return body
	}
	return decl + "\n" + body
}

// stripControl removes code points XML 1.0 forbids in character data.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20 || r == 0x7f || r == 0xFFFE || r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}

// escapeAmpersands escapes every '&' that does not begin a numeric or named
// character reference.
func escapeAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 64)
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !isReference(s[i+1:]) {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isReference(rest string) bool {
	end := strings.IndexByte(rest, ';')
	if end <= 0 || end > maxEntityLen {
		return false
	}
	name := rest[:end]
	if name[0] == '#' {
		digits := name[1:]
		hex := false
		if len(digits) > 0 && (digits[0] == 'x' || digits[0] == 'X') {
			digits, hex = digits[1:], true
		}
		if digits == "" {
			return false
		}
		for _, c := range digits {
			if !isDigit(c, hex) {
				return false
			}
		}
		return true
	}
	if xmlEntities[name] {
		return true
	}
	_, ok := xml.HTMLEntity[name]
	return ok
}

func isDigit(c rune, hex bool) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case hex && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		return true
	}
	return false
}

// filterTags keeps whitelisted tags, escapes every other tag-like span and
// every stray '<', and collapses doubled brackets around tags.
func (s *Sanitizer) filterTags(in string) string {
	var b strings.Builder
	b.Grow(len(in) + 256)

	i := 0
	for i < len(in) {
		if in[i] != '<' {
			b.WriteByte(in[i])
			i++
			continue
		}

		j := i
		for j+1 < len(in) && in[j+1] == '<' {
			j++
		}
		rest := in[j:]

		if n := passthroughLen(rest); n > 0 {
			b.WriteString(rest[:n])
			i = j + n
			continue
		}

		if m := tagRe.FindStringSubmatchIndex(rest); m != nil {
			span := rest[:m[1]]
			if s.whitelist[strings.ToUpper(rest[m[4]:m[5]])] {
				b.WriteString(span)
			} else {
				b.WriteString("&lt;")
				b.WriteString(span[1 : len(span)-1])
				b.WriteString("&gt;")
			}
			i = j + m[1]
			for i < len(in) && in[i] == '>' {
				i++
			}
			continue
		}

		for k := i; k <= j; k++ {
			b.WriteString("&lt;")
		}
		i = j + 1
	}
	return b.String()
}

// passthroughLen reports the length of a comment, CDATA section, processing
// instruction or declaration at the start of s, or 0.
func passthroughLen(s string) int {
	var open, close string
	switch {
	case strings.HasPrefix(s, "<!--"):
		open, close = "<!--", "-->"
	case strings.HasPrefix(s, "<![CDATA["):
		open, close = "<![CDATA[", "]]>"
	case strings.HasPrefix(s, "<?"):
		open, close = "<?", "?>"
	case strings.HasPrefix(s, "<!"):
		open, close = "<!", ">"
	default:
		return 0
	}
	end := strings.Index(s[len(open):], close)
	if end < 0 {
		return 0
	}
	return len(open) + end + len(close)
}
