// Package share encodes viewer state into a URL fragment and back.
package share

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Encode returns the base64 form of the UTF-8 bytes of s, or "" when s is
// not valid UTF-8.
func Encode(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Decode reverses Encode. ASCII whitespace in the input is ignored and
// missing padding is accepted. Any failure, including a payload that does
// not decode to valid UTF-8, returns "".
func Decode(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, s)
	if len(s)%4 == 0 && strings.HasSuffix(s, "=") {
		s = strings.TrimRight(s, "=")
	}
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil || !utf8.Valid(b) {
		return ""
	}
	return string(b)
}
