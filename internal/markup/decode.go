package markup

import (
	"bytes"
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var declEncodingRe = regexp.MustCompile(`^\s*<\?xml[^>]*\bencoding\s*=\s*["']([A-Za-z0-9._:\-]+)["']`)

// Decode converts raw document bytes into NFC-normalized UTF-8 text.
//
// Valid UTF-8 is used as-is. Anything else is decoded with the encoding named
// in the XML declaration, falling back to EUC-KR for undeclared legacy files.
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return norm.NFC.String(string(data)), nil
	}

	var enc encoding.Encoding = korean.EUCKR
	name := "euc-kr"
	if m := declEncodingRe.FindSubmatch(data); m != nil {
		if e, n := charset.Lookup(string(m[1])); e != nil {
			enc, name = e, n
		}
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s input: %w", name, err)
	}
	return norm.NFC.String(string(out)), nil
}
