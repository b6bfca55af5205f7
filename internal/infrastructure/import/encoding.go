package csvimport

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// namedEncodings are the encodings vendors actually send us.
// Anything else falls back to the WHATWG label index.
var namedEncodings = map[string]encoding.Encoding{
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"koi8-r":       charmap.KOI8R,
	"koi8-u":       charmap.KOI8U,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-5":   charmap.ISO8859_5,
	"cp866":        charmap.CodePage866,
	"ibm866":       charmap.CodePage866,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// NormalizeEncoding lowercases an encoding label and maps the UTF-8 aliases to "utf-8"
func NormalizeEncoding(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	switch n {
	case "", "utf8", "utf-8", "utf-8-sig", "utf8-sig":
		return "utf-8"
	}
	return n
}

// SupportedEncoding reports whether name can be decoded
func SupportedEncoding(name string) bool {
	_, err := lookupEncoding(NormalizeEncoding(name))
	return err == nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "utf-8" {
		return encoding.Nop, nil
	}
	if enc, ok := namedEncodings[name]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
	}
	return enc, nil
}

// decodeText converts content in the declared encoding to UTF-8,
// dropping a leading BOM and rejecting content that is not valid text.
func decodeText(content []byte, declared string) (string, error) {
	name := NormalizeEncoding(declared)
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}

	out := content
	if enc != encoding.Nop {
		out, _, err = transform.Bytes(enc.NewDecoder(), content)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
	}
	out = bytes.TrimPrefix(out, utf8BOM)

	if !utf8.Valid(out) {
		return "", ErrInvalidEncoding
	}
	if bytes.IndexByte(out, 0) >= 0 {
		// NUL bytes mean UTF-16 content declared as UTF-8
		return "", ErrInvalidEncoding
	}
	return string(out), nil
}
