package shapefile

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// codePageNames maps Windows code page numbers, as written in .cpg files,
// to WHATWG encoding labels.
var codePageNames = map[string]string{
	"65001": "utf-8",
	"936":   "gbk",
	"950":   "big5",
	"932":   "shift_jis",
	"949":   "euc-kr",
	"20866": "koi8-r",
	"28591": "iso-8859-1",
}

// cpgEncoding reads the .cpg sidecar next to shpPath. The second result is
// false when there is no usable .cpg.
func cpgEncoding(shpPath string) (encoding.Encoding, string, bool) {
	data, err := os.ReadFile(sidecar(shpPath, ".cpg"))
	if err != nil {
		return nil, "", false
	}
	name := strings.TrimSpace(string(data))
	enc, ok := lookupEncoding(name)
	return enc, name, ok
}

// lookupEncoding resolves an encoding label such as "UTF-8", "1252",
// "ANSI 1252", "cp936" or "GB-18030".
func lookupEncoding(name string) (encoding.Encoding, bool) {
	label := strings.ToLower(strings.TrimSpace(name))
	label = strings.TrimPrefix(label, "ansi ")
	if label == "" {
		return nil, false
	}
	if mapped, ok := codePageNames[label]; ok {
		label = mapped
	}
	if label == "utf-8" || label == "utf8" {
		return unicode.UTF8, true
	}
	if enc, err := htmlindex.Get(label); err == nil {
		return enc, true
	}

	var alt string
	switch {
	case label == "gb-18030":
		alt = "gb18030"
	case isDigits(label):
		alt = "windows-" + label
	case strings.HasPrefix(label, "cp") && isDigits(label[2:]):
		return lookupEncoding(label[2:])
	}
	if alt == "" {
		return nil, false
	}
	enc, err := htmlindex.Get(alt)
	if err != nil {
		return nil, false
	}
	return enc, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// detectEncoding picks an encoding for raw DBF text that is not valid
// UTF-8. It falls back to Windows-1252, which decodes any byte sequence.
func detectEncoding(raw [][]string) (encoding.Encoding, string) {
	var sample bytes.Buffer
	for _, row := range raw {
		for _, v := range row {
			if !utf8.ValidString(v) {
				sample.WriteString(v)
				sample.WriteByte(' ')
			}
		}
	}
	if sample.Len() == 0 {
		return unicode.UTF8, "UTF-8"
	}

	result, err := chardet.NewTextDetector().DetectBest(sample.Bytes())
	if err == nil {
		if enc, ok := lookupEncoding(result.Charset); ok && enc != unicode.UTF8 {
			return enc, result.Charset
		}
	}
	return charmap.Windows1252, "windows-1252"
}

// decodeAll converts values in raw in place. With onlyInvalid set, values
// that are already valid UTF-8 are kept; that is the mode for a guessed
// encoding, where one bad value must not rewrite the others.
func decodeAll(enc encoding.Encoding, raw [][]string, onlyInvalid bool) {
	if enc == nil || enc == unicode.UTF8 {
		return
	}
	dec := enc.NewDecoder()
	for _, row := range raw {
		for i, v := range row {
			if onlyInvalid && utf8.ValidString(v) {
				continue
			}
			if s, err := dec.String(v); err == nil {
				row[i] = s
			}
		}
	}
}

// trimTruncatedRunes drops an incomplete multi-byte sequence left at the
// end of a value by a fixed-width field. It only acts when some other
// value holds valid non-ASCII UTF-8, so single-byte tables are untouched.
// It returns the number of values changed.
func trimTruncatedRunes(raw [][]string) int {
	if !hasMultibyteUTF8(raw) {
		return 0
	}
	n := 0
	for _, row := range raw {
		for i, v := range row {
			if utf8.ValidString(v) {
				continue
			}
			if trimmed, ok := trimPartialRune(v); ok {
				row[i] = trimmed
				n++
			}
		}
	}
	return n
}

func trimPartialRune(v string) (string, bool) {
	v = strings.TrimRight(v, " \x00")
	for k := 1; k < utf8.UTFMax && k <= len(v); k++ {
		head, tail := v[:len(v)-k], v[len(v)-k:]
		if utf8.RuneStart(tail[0]) && !utf8.FullRuneInString(tail) && utf8.ValidString(head) {
			return head, true
		}
	}
	return v, false
}

func hasMultibyteUTF8(raw [][]string) bool {
	for _, row := range raw {
		for _, v := range row {
			if !utf8.ValidString(v) {
				continue
			}
			for j := 0; j < len(v); j++ {
				if v[j] >= utf8.RuneSelf {
					return true
				}
			}
		}
	}
	return false
}

// sidecar returns the path of the file sharing shpPath's base name with
// the given extension.
func sidecar(shpPath, ext string) string {
	return strings.TrimSuffix(shpPath, fileExt(shpPath)) + ext
}

func fileExt(p string) string {
	for i := len(p) - 1; i >= 0 && p[i] != '/' && p[i] != '\\'; i-- {
		if p[i] == '.' {
			return p[i:]
		}
	}
	return ""
}
