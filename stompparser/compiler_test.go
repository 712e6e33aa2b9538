package stompparser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stompspec"
)

func TestCompileMinimalConnect(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_0)
	f := stompy.NewFrame(stompspec.CONNECT, []stompy.HeaderEntry{
		{Name: "login", Value: "admin"},
		{Name: "passcode", Value: "secret"},
	}, nil)
	out, err := c.Compile(f)
	assert.NoError(t, err)
	assert.Equal(t, "CONNECT\nlogin:admin\npasscode:secret\n\n\x00", string(out))
}

func TestCompileSendSetsContentLength(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_1)
	f := stompy.NewFrame(stompspec.SEND, []stompy.HeaderEntry{{Name: "destination", Value: "/q"}}, []byte("hi"))
	out, err := c.Compile(f)
	assert.NoError(t, err)
	assert.Equal(t, "SEND\ndestination:/q\ncontent-length:2\n\nhi\x00", string(out))
}

func TestCompileBinaryBodyForcesContentLength(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_1)
	body := []byte{0x00, 0x01, 0x00}
	f := stompy.NewFrame(stompspec.SEND, []stompy.HeaderEntry{{Name: "destination", Value: "/q"}}, body)
	out, err := c.Compile(f)
	assert.NoError(t, err)
	assert.Contains(t, string(out), "content-length:3\n\n")

	p := New(stompspec.VERSION_1_1)
	assert.NoError(t, p.Add(out))
	parsed, ok := p.Get()
	assert.True(t, ok)
	assert.Equal(t, body, parsed.Body, "parsing the emitted bytes must yield exactly the original body")
}

func TestCompileDoesNotOverrideExplicitContentLength(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_1)
	f := stompy.NewFrame(stompspec.SEND, []stompy.HeaderEntry{
		{Name: "destination", Value: "/q"},
		{Name: "content-length", Value: "2"},
	}, []byte("hi"))
	out, err := c.Compile(f)
	assert.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(out), "content-length"))
}

func TestCompileRejectsEmptyCommand(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_1)
	_, err := c.Compile(stompy.Frame{})
	assert.Error(t, err)
}

func TestCompileEscapesUnder11(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_1)
	f := stompy.NewFrame(stompspec.SEND, []stompy.HeaderEntry{
		{Name: "destination", Value: "/q"},
		{Name: "weird", Value: "a:b\nc\\d"},
	}, nil)
	out, err := c.Compile(f)
	assert.NoError(t, err)
	assert.Contains(t, string(out), "weird:a\\cb\\nc\\\\d")
}

func TestCompileRejectsColonInValueUnder10(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_0)
	f := stompy.NewFrame(stompspec.SEND, []stompy.HeaderEntry{
		{Name: "destination", Value: "/q"},
		{Name: "weird", Value: "a:b"},
	}, nil)
	_, err := c.Compile(f)
	assert.Error(t, err, "STOMP 1.0 must reject a header value containing ':' rather than escape it")
}

func TestCompileParseRoundTripWithEscaping(t *testing.T) {
	c := NewCompiler(stompspec.VERSION_1_1)
	original := stompy.NewFrame(stompspec.SEND, []stompy.HeaderEntry{
		{Name: "destination", Value: "/q"},
		{Name: "weird", Value: "a:b\nc\\d"},
	}, []byte("body"))
	out, err := c.Compile(original)
	assert.NoError(t, err)

	p := New(stompspec.VERSION_1_1)
	assert.NoError(t, p.Add(out))
	parsed, ok := p.Get()
	assert.True(t, ok)
	v, _ := parsed.Header("weird")
	assert.Equal(t, "a:b\nc\\d", v)
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
