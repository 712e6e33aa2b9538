package stompparser

import (
	"strconv"
	"strings"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stomperr"
	"github.com/maleck13/stompy/stompspec"
)

// Compiler serializes Frame values into wire bytes. It is the inverse of
// Parser and, like it, is version-aware.
type Compiler struct {
	version stompspec.Version
}

// NewCompiler returns a Compiler that encodes frames for version.
func NewCompiler(version stompspec.Version) *Compiler {
	return &Compiler{version: version}
}

// hasNUL reports whether body contains a NUL byte. A body with an
// embedded NUL can't rely on the NUL terminator alone, so it forces
// content-length on emit.
func hasNUL(body []byte) bool {
	for _, b := range body {
		if b == 0 {
			return true
		}
	}
	return false
}

// Compile serializes f into wire bytes. It mutates neither f nor the
// caller's header slice.
func (c *Compiler) Compile(f stompy.Frame) ([]byte, error) {
	if f.Command == "" {
		return nil, &stomperr.ProtocolError{Message: "cannot compile a frame with an empty command"}
	}

	headers := f.RawHeaders
	needsContentLength := len(f.Body) > 0 && (hasNUL(f.Body) || !f.HasHeader(stompspec.HeaderContentLength)) && stompspec.BodyAllowed(f.Command)
	if needsContentLength && !f.HasHeader(stompspec.HeaderContentLength) {
		headers = append(append([]stompy.HeaderEntry(nil), headers...), stompy.HeaderEntry{
			Name:  stompspec.HeaderContentLength,
			Value: strconv.Itoa(len(f.Body)),
		})
	}

	var b strings.Builder
	b.WriteString(f.Command)
	b.WriteByte('\n')
	for _, h := range headers {
		name, err := EncodeHeaderPart(c.version, h.Name)
		if err != nil {
			return nil, err
		}
		value, err := EncodeHeaderPart(c.version, h.Value)
		if err != nil {
			return nil, err
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	out := make([]byte, 0, b.Len()+len(f.Body)+1)
	out = append(out, []byte(b.String())...)
	out = append(out, f.Body...)
	out = append(out, 0)
	return out, nil
}
