// Package stompparser implements the incremental wire-level codec: bytes
// to Frame (Parser) and Frame to bytes (Compiler). A frame split across
// any number of Add calls parses the same as the same bytes delivered in
// one call. Neither type performs I/O.
package stompparser

import (
	"strconv"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stomperr"
	"github.com/maleck13/stompy/stompspec"
)

// inProgress holds the decoded head of a frame while its body is still
// arriving.
type inProgress struct {
	command       string
	rawHeaders    []stompy.HeaderEntry
	contentLength *int
}

// Parser turns a byte stream into a queue of Frame values. Exactly one
// caller owns a given Parser at a time.
type Parser struct {
	version   stompspec.Version
	buf       []byte
	consumed  int64
	queue     []stompy.Frame
	cur       *inProgress
	poisoned  error
}

// New returns a Parser for version. Pass stompspec.DefaultVersion before
// negotiation has happened; the transport normally calls SetVersion once
// the Session has processed CONNECTED.
func New(version stompspec.Version) *Parser {
	return &Parser{version: version}
}

// SetVersion updates the version the parser decodes headers under. It
// does not reset any partially parsed frame.
func (p *Parser) SetVersion(version stompspec.Version) {
	p.version = version
}

// Add feeds a chunk of wire bytes into the parser. Once Add returns a
// non-nil error the parser is poisoned: every subsequent call returns the
// same error without looking at data. Discard it and open a new
// connection.
func (p *Parser) Add(data []byte) error {
	if p.poisoned != nil {
		return p.poisoned
	}
	p.buf = append(p.buf, data...)
	for {
		progressed, err := p.step()
		if err != nil {
			p.poisoned = err
			p.buf = nil
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// Get returns the next complete Frame, if any, and removes it from the
// queue. ok is false when nothing is ready yet.
func (p *Parser) Get() (stompy.Frame, bool) {
	if len(p.queue) == 0 {
		return stompy.Frame{}, false
	}
	f := p.queue[0]
	p.queue = p.queue[1:]
	return f, true
}

// CanRead reports whether a frame is queued.
func (p *Parser) CanRead() bool {
	return len(p.queue) > 0
}

// step attempts to make one unit of progress: consume a heartbeat byte,
// parse a frame head, or parse a frame body. It returns progressed=false
// when more data is needed.
func (p *Parser) step() (bool, error) {
	if len(p.buf) == 0 {
		return false, nil
	}
	if p.cur == nil {
		switch p.buf[0] {
		case '\r':
			p.advance(1)
			return true, nil
		case '\n':
			p.advance(1)
			if p.version != stompspec.VERSION_1_0 {
				p.queue = append(p.queue, stompy.Frame{})
			}
			return true, nil
		}
		return p.parseHead()
	}
	return p.parseBody()
}

func (p *Parser) advance(n int) {
	p.buf = p.buf[n:]
	p.consumed += int64(n)
}

func (p *Parser) fail(message string) error {
	return &stomperr.ParseError{Offset: int(p.consumed), Message: message}
}

// parseHead looks for the blank line terminating the header block. It
// returns progressed=false if the head hasn't fully arrived yet.
func (p *Parser) parseHead() (bool, error) {
	end := indexDoubleLF(p.buf)
	if end == -1 {
		return false, nil
	}
	lines := splitLines(p.buf[:end+1])
	command := lines[0]
	if !isValidCommand(command) {
		return false, p.fail("malformed command token: " + command)
	}
	rawHeaders := make([]stompy.HeaderEntry, 0, len(lines)-1)
	for _, line := range lines[1 : len(lines)-1] {
		idx := indexByte(line, ':')
		if idx == -1 {
			return false, p.fail("header line missing ':' separator: " + line)
		}
		name, err := DecodeHeaderPart(p.version, line[:idx])
		if err != nil {
			return false, p.toParseError(err)
		}
		value, err := DecodeHeaderPart(p.version, line[idx+1:])
		if err != nil {
			return false, p.toParseError(err)
		}
		rawHeaders = append(rawHeaders, stompy.HeaderEntry{Name: name, Value: value})
	}

	cur := &inProgress{command: command, rawHeaders: rawHeaders}
	if cl, ok := firstHeader(rawHeaders, stompspec.HeaderContentLength); ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return false, p.fail("invalid content-length: " + cl)
		}
		cur.contentLength = &n
	}
	p.advance(end + 1)
	p.cur = cur
	return true, nil
}

// parseBody consumes the frame body plus its NUL terminator, once enough
// data has arrived, and queues the completed frame.
func (p *Parser) parseBody() (bool, error) {
	cur := p.cur
	if cur.contentLength != nil {
		n := *cur.contentLength
		if len(p.buf) < n+1 {
			return false, nil
		}
		if p.buf[n] != 0 {
			return false, p.fail("content-length overrun: expected NUL terminator")
		}
		body := append([]byte(nil), p.buf[:n]...)
		p.advance(n + 1)
		return p.finish(cur, body)
	}

	idx := indexByte0(p.buf)
	if idx == -1 {
		return false, nil
	}
	body := append([]byte(nil), p.buf[:idx]...)
	p.advance(idx + 1)
	return p.finish(cur, body)
}

func (p *Parser) finish(cur *inProgress, body []byte) (bool, error) {
	if len(body) > 0 && !stompspec.BodyAllowed(cur.command) {
		return false, p.fail("command " + cur.command + " does not allow a body")
	}
	p.queue = append(p.queue, stompy.Frame{Command: cur.command, RawHeaders: cur.rawHeaders, Body: body})
	p.cur = nil
	return true, nil
}

func (p *Parser) toParseError(err error) error {
	if pe, ok := err.(*stomperr.ProtocolError); ok {
		return p.fail(pe.Message)
	}
	return p.fail(err.Error())
}

func isValidCommand(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func firstHeader(headers []stompy.HeaderEntry, name string) (string, bool) {
	for _, h := range headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func indexByte0(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// indexDoubleLF returns the index of the second '\n' in the first "\n\n"
// pair found in b, or -1 if none is present yet.
func indexDoubleLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\n' && b[i+1] == '\n' {
			return i + 1
		}
	}
	return -1
}

// splitLines splits head (up to and including the trailing blank line)
// into COMMAND, HEADER, ..., "" — the final element is always empty.
func splitLines(head []byte) []string {
	var lines []string
	start := 0
	for i, c := range head {
		if c == '\n' {
			lines = append(lines, string(head[start:i]))
			start = i + 1
		}
	}
	return lines
}
