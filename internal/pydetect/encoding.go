// Package pydetect inspects raw file bytes for text encoding, line-ending
// convention, and indentation unit, so regenerated files stay byte-compatible
// with everything outside the rewritten spans. All detectors are pure and any
// explicit configuration wins over detection.
package pydetect

import (
	"bytes"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names returned for byte-order-mark detection. Anything else comes
// from the PEP 263 coding declaration.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingUTF16LE = "utf-16-le"
	EncodingUTF16BE = "utf-16-be"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	// PEP 263: the declaration must sit in a comment on line one or two.
	codingRe = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-_.a-zA-Z0-9]+)`)
)

// DetectEncoding recognizes a byte-order mark or a coding declaration comment
// on the first two lines and returns the encoding name plus a decoder for it.
// UTF-8 is the default.
func DetectEncoding(data []byte) (string, encoding.Encoding) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8BOM, unicode.UTF8BOM
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncodingUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncodingUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	}

	lines := bytes.SplitN(data, []byte("\n"), 3)
	for i := 0; i < len(lines) && i < 2; i++ {
		if m := codingRe.FindSubmatch(lines[i]); m != nil {
			name := string(m[1])
			if enc := Lookup(name); enc != nil {
				return name, enc
			}
			return name, nil // declared but unknown; caller decides
		}
	}
	return EncodingUTF8, unicode.UTF8
}

// Lookup resolves an encoding by its declared name. Returns nil when the name
// is unknown (utf-8 and its aliases resolve to the identity UTF8 encoding).
func Lookup(name string) encoding.Encoding {
	normalized := strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	switch normalized {
	case "utf-8", "utf8", "ascii", "us-ascii":
		return unicode.UTF8
	case "utf-8-sig":
		return unicode.UTF8BOM
	case "latin-1", "latin1", "iso8859-1":
		normalized = "iso-8859-1"
	}
	enc, err := ianaindex.IANA.Encoding(normalized)
	if err != nil || enc == nil {
		return nil
	}
	return enc
}

// Line separator values.
const (
	LF   = "\n"
	CRLF = "\r\n"
	CR   = "\r"
)

// DetectLinesep returns the first line terminator sequence found in text,
// defaulting to the platform convention.
func DetectLinesep(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return CRLF
			}
			return CR
		case '\n':
			return LF
		}
	}
	if runtime.GOOS == "windows" {
		return CRLF
	}
	return LF
}

// DetectIndentation records the leading whitespace run of the first indented
// line, defaulting to four spaces.
func DetectIndentation(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || len(trimmed) == len(line) {
			continue // blank or unindented
		}
		return line[:len(line)-len(trimmed)]
	}
	return "    "
}
