package stompparser

import (
	"strings"

	"github.com/maleck13/stompy/stomperr"
	"github.com/maleck13/stompy/stompspec"
)

// EncodeHeaderPart escapes a header name or value for the wire under
// version. 1.0 performs no escaping at all: a value containing a colon or
// newline is rejected outright rather than silently escaped.
func EncodeHeaderPart(version stompspec.Version, s string) (string, error) {
	if !stompspec.EscapingSupported(version) {
		if strings.ContainsAny(s, ":\n") {
			return "", &stomperr.ProtocolError{Message: "header value contains reserved character under STOMP 1.0: " + s}
		}
		return s, nil
	}
	table := stompspec.EscapedCharacters(version)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if letter, ok := table[c]; ok {
			b.WriteByte('\\')
			b.WriteByte(letter)
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// DecodeHeaderPart unescapes a header name or value read off the wire
// under version. Under 1.0 the raw bytes pass through unchanged. Any
// escape sequence other than \n, \c, \\ is an error.
func DecodeHeaderPart(version stompspec.Version, s string) (string, error) {
	if !stompspec.EscapingSupported(version) {
		return s, nil
	}
	table := stompspec.EscapedCharacters(version)
	reverse := make(map[byte]byte, len(table))
	for raw, letter := range table {
		reverse[letter] = raw
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", &stomperr.ProtocolError{Message: "trailing escape character in header"}
		}
		letter := s[i+1]
		raw, ok := reverse[letter]
		if !ok {
			return "", &stomperr.ProtocolError{Message: "invalid escape sequence \\" + string(letter)}
		}
		b.WriteByte(raw)
		i++
	}
	return b.String(), nil
}
