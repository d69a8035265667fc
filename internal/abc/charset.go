package abc

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var charsets = map[string]*charmap.Charmap{
	"iso-8859-1":   charmap.ISO8859_1,
	"iso8859-1":    charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"latin2":       charmap.ISO8859_2,
	"iso-8859-3":   charmap.ISO8859_3,
	"iso-8859-4":   charmap.ISO8859_4,
	"iso-8859-5":   charmap.ISO8859_5,
	"iso-8859-7":   charmap.ISO8859_7,
	"iso-8859-9":   charmap.ISO8859_9,
	"iso-8859-10":  charmap.ISO8859_10,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin9":       charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"macintosh":    charmap.Macintosh,
	"mac-roman":    charmap.Macintosh,
	"macroman":     charmap.Macintosh,
}

// DetectCharset returns the charset named by a %%abc-charset or
// I:abc-charset line, or "" when the file does not name one.
func DetectCharset(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		for _, prefix := range []string{"%%abc-charset", "I:abc-charset"} {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				return lowerASCII(rest)
			}
		}
	}
	return ""
}

// Decode converts raw file bytes to text. An empty charset means "detect":
// the charset declared in the file, else UTF-8 when the bytes are valid
// UTF-8, else ISO-8859-1.
func Decode(data []byte, charset string) (string, error) {
	name := lowerASCII(charset)
	if name == "" {
		name = DetectCharset(data)
	}
	switch name {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		if utf8.Valid(data) {
			return string(data), nil
		}
		name = "iso-8859-1"
	}
	cm, ok := charsets[name]
	if !ok {
		return "", fmt.Errorf("abc: unsupported charset %q", name)
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("abc: decode %s: %w", name, err)
	}
	return string(out), nil
}
