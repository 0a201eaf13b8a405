// Package lexer implements the byte-level lexical cursor and token
// scanner described by §4.5: a four-byte peek buffer, UTF-8 decoding,
// Unicode line-terminator tracking, and a configurable goal symbol for
// the division/regex-literal ambiguity.
//
// Grounded on boa_parser/src/lexer/cursor.rs (original_source): the
// same peek/next/take_until/take_while_ascii_pred operation set, here
// specialised to an in-memory byte slice rather than an io.Read, since
// the embedder API (§6) hands the engine a complete UTF-8 source
// string rather than a stream.
package lexer

import (
	"unicode/utf8"
)

// GoalSymbol disambiguates a `/` token between division and the start
// of a regular-expression literal; the parser sets this before asking
// the cursor for the next token.
type GoalSymbol uint8

const (
	GoalDiv GoalSymbol = iota
	GoalRegExp
)

// Position is a 1-based line/column pair.
type Position struct {
	Line   uint32
	Column uint32
}

// Cursor is the byte-level scanning position over a source buffer.
type Cursor struct {
	src    []byte
	offset int
	pos    Position
	strict bool
	module bool
	goal   GoalSymbol
}

// NewCursor creates a cursor over src, stripping a leading UTF-8 BOM
// and a first-line hashbang per §6 "Source text format".
func NewCursor(src []byte) *Cursor {
	src = stripBOM(src)
	src = stripHashbang(src)
	return &Cursor{src: src, pos: Position{Line: 1, Column: 1}, goal: GoalDiv}
}

func stripBOM(src []byte) []byte {
	const bom = "\xef\xbb\xbf"
	if len(src) >= 3 && string(src[:3]) == bom {
		return src[3:]
	}
	return src
}

func stripHashbang(src []byte) []byte {
	if len(src) >= 2 && src[0] == '#' && src[1] == '!' {
		i := 0
		for i < len(src) && src[i] != '\n' {
			i++
		}
		return src[i:]
	}
	return src
}

func (c *Cursor) Pos() Position { return c.pos }

func (c *Cursor) Strict() bool     { return c.strict }
func (c *Cursor) SetStrict(b bool) { c.strict = b }
func (c *Cursor) Module() bool     { return c.module }

// SetModule mirrors the teacher semantics of module mode implying
// strict mode from the outset.
func (c *Cursor) SetModule(b bool) {
	c.module = b
	c.strict = b
}

func (c *Cursor) Goal() GoalSymbol     { return c.goal }
func (c *Cursor) SetGoal(g GoalSymbol) { c.goal = g }

func (c *Cursor) AtEnd() bool { return c.offset >= len(c.src) }

// PeekByte returns the next byte without consuming it, or (0, false)
// at end of input.
func (c *Cursor) PeekByte() (byte, bool) {
	if c.offset >= len(c.src) {
		return 0, false
	}
	return c.src[c.offset], true
}

// PeekN returns up to n (n <= 4) raw bytes starting at the current
// offset without consuming them.
func (c *Cursor) PeekN(n int) []byte {
	if n > 4 {
		n = 4
	}
	end := c.offset + n
	if end > len(c.src) {
		end = len(c.src)
	}
	return c.src[c.offset:end]
}

// PeekChar decodes the UTF-8 rune starting at the current offset
// without consuming it.
func (c *Cursor) PeekChar() (rune, bool) {
	if c.offset >= len(c.src) {
		return 0, false
	}
	r, size := utf8.DecodeRune(c.src[c.offset:])
	if size == 0 {
		return 0, false
	}
	return r, true
}

// NextByte consumes and returns the next byte, updating line/column
// tracking for \r, \n, \r\n, U+2028, and U+2029.
func (c *Cursor) NextByte() (byte, bool) {
	if c.offset >= len(c.src) {
		return 0, false
	}
	b := c.src[c.offset]
	c.offset++
	switch b {
	case '\r':
		if p, ok := c.PeekByte(); ok && p == '\n' {
			c.offset++
		}
		c.nextLine()
	case '\n':
		c.nextLine()
	case 0xE2:
		next := c.PeekN(2)
		if len(next) == 2 && ((next[0] == 0x80 && next[1] == 0xA8) || (next[0] == 0x80 && next[1] == 0xA9)) {
			c.nextLine()
		} else {
			c.nextColumn()
		}
	default:
		// Continuation bytes of a multi-byte sequence don't advance the
		// column; only the lead byte does, matching the teacher's
		// column-per-character (not per-byte) semantics.
		if b&0xC0 != 0x80 {
			c.nextColumn()
		}
	}
	return b, true
}

// NextChar consumes and returns the next decoded rune.
func (c *Cursor) NextChar() (rune, bool) {
	r, ok := c.PeekChar()
	if !ok {
		return 0, false
	}
	size := utf8.RuneLen(r)
	for i := 0; i < size; i++ {
		c.NextByte()
	}
	return r, true
}

func (c *Cursor) nextColumn() { c.pos.Column++ }
func (c *Cursor) nextLine()   { c.pos.Line++; c.pos.Column = 1 }

// NextIs consumes and returns true if the next byte equals b.
func (c *Cursor) NextIs(b byte) bool {
	p, ok := c.PeekByte()
	if ok && p == b {
		c.NextByte()
		return true
	}
	return false
}

// NextIsASCIIPred applies pred to the next byte if it is ASCII,
// without consuming it.
func (c *Cursor) NextIsASCIIPred(pred func(byte) bool) bool {
	p, ok := c.PeekByte()
	if !ok || p > 0x7F {
		return false
	}
	return pred(p)
}

// TakeUntil appends bytes to buf until (and not including) stop is
// found, consuming the stop byte; returns false if input ends first.
func (c *Cursor) TakeUntil(stop byte, buf *[]byte) bool {
	for {
		if c.NextIs(stop) {
			return true
		}
		b, ok := c.NextByte()
		if !ok {
			return false
		}
		*buf = append(*buf, b)
	}
}

// TakeWhileASCIIPred appends bytes to buf while pred holds on the next
// ASCII byte.
func (c *Cursor) TakeWhileASCIIPred(buf *[]byte, pred func(byte) bool) {
	for c.NextIsASCIIPred(pred) {
		b, _ := c.NextByte()
		*buf = append(*buf, b)
	}
}

// FillBytes consumes exactly len(buf) bytes into buf, returning false
// if input runs out first.
func (c *Cursor) FillBytes(buf []byte) bool {
	for i := range buf {
		b, ok := c.NextByte()
		if !ok {
			return false
		}
		buf[i] = b
	}
	return true
}
