// Package diag is the engine-wide diagnostics substrate. Every syntax
// error, early error, and runtime diagnostic the engine produces is
// built from a Msg anchored at a Loc/Range, the same shape the teacher
// corpus's bundler used for its build diagnostics, adapted here to feed
// script-visible SyntaxError/Error construction instead of terminal output.
package diag

import (
	"fmt"
	"sort"
	"sync"
)

// Loc is the 0-based index of a position from the start of the source, in bytes.
type Loc struct {
	Start int32
}

// Range is a Loc plus a byte length.
type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 { return r.Loc.Start + r.Len }

type Kind uint8

const (
	Error Kind = iota
	Warning
	Note
)

func (k Kind) String() string {
	switch k {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "note"
	}
}

// Position is the line/column form of a Loc, computed lazily against a Source.
type Position struct {
	Line   int // 1-based
	Column int // 0-based, in bytes from the start of the line
}

type Location struct {
	Line     int
	Column   int
	Length   int
	LineText string
}

type MsgData struct {
	Text     string
	Location *Location
}

type Msg struct {
	Kind  Kind
	Data  MsgData
	Notes []MsgData
}

// Source wraps a source file's text and exposes the byte<->line/column
// conversions every early-error and runtime-error report needs.
type Source struct {
	FileName string
	Contents string

	lineOffsets []int32
	once        sync.Once
}

func NewSource(fileName, contents string) *Source {
	return &Source{FileName: fileName, Contents: contents}
}

func (s *Source) computeLineOffsets() {
	s.once.Do(func() {
		s.lineOffsets = append(s.lineOffsets, 0)
		for i := 0; i < len(s.Contents); i++ {
			c := s.Contents[i]
			if c == '\n' {
				s.lineOffsets = append(s.lineOffsets, int32(i+1))
			}
		}
	})
}

func (s *Source) TextForRange(r Range) string {
	if int(r.Loc.Start) < 0 || int(r.End()) > len(s.Contents) {
		return ""
	}
	return s.Contents[r.Loc.Start:r.End()]
}

// PositionOf converts a byte offset into a 1-based line, 0-based column.
func (s *Source) PositionOf(loc Loc) Position {
	s.computeLineOffsets()
	offsets := s.lineOffsets
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > int32(loc.Start) }) - 1
	if i < 0 {
		i = 0
	}
	lineStart := offsets[i]
	return Position{Line: i + 1, Column: int(loc.Start - lineStart)}
}

func (s *Source) LineText(loc Loc) string {
	s.computeLineOffsets()
	offsets := s.lineOffsets
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > int32(loc.Start) }) - 1
	if i < 0 {
		i = 0
	}
	start := int(offsets[i])
	end := len(s.Contents)
	if i+1 < len(offsets) {
		end = int(offsets[i+1])
	}
	line := s.Contents[start:end]
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func (s *Source) LocationOf(r Range) *Location {
	pos := s.PositionOf(r.Loc)
	return &Location{Line: pos.Line, Column: pos.Column, Length: int(r.Len), LineText: s.LineText(r.Loc)}
}

// Log accumulates Msg values for one compile/run and exposes the
// aggregate state the parser and VM consult to decide whether to abort.
type Log struct {
	mu       sync.Mutex
	msgs     []Msg
	errCount int
}

func NewLog() *Log { return &Log{} }

func (l *Log) AddMsg(m Msg) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, m)
	if m.Kind == Error {
		l.errCount++
	}
}

func (l *Log) AddError(source *Source, r Range, text string) {
	var loc *Location
	if source != nil {
		loc = source.LocationOf(r)
	}
	l.AddMsg(Msg{Kind: Error, Data: MsgData{Text: text, Location: loc}})
}

func (l *Log) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errCount > 0
}

func (l *Log) Msgs() []Msg {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Msg, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// String renders a Msg the way clang/esbuild-style diagnostics do: a
// "file:line:column: kind: text" header followed by the offending line.
func (m Msg) String() string {
	if m.Data.Location == nil {
		return fmt.Sprintf("%s: %s", m.Kind, m.Data.Text)
	}
	loc := m.Data.Location
	return fmt.Sprintf("%d:%d: %s: %s\n  %s", loc.Line, loc.Column, m.Kind, m.Data.Text, loc.LineText)
}
