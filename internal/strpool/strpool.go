// Package strpool implements the interned, reference-counted string
// type every Value::String and PropertyKey in the engine is built on.
//
// Grounded on boa/src/string.rs (original_source): a fixed constant
// table of well-known short strings, reference counting on the backing
// UTF-16 storage, and reference-then-content equality.
package strpool

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// maxConstantLength bounds how long a candidate string may be before we
// stop bothering to probe the constant table for it.
const maxConstantLength = 20

// constants is the process-wide table of well-known property and type
// names. It mirrors the set boa/src/string.rs hard-codes: property
// descriptor field names, typeof tags, and the most common builtin
// identifiers. The table is read-only after package init.
var constants = []string{
	"", ",", ":",
	"name", "length", "arguments", "prototype", "constructor",
	"null", "undefined", "number", "string", "symbol", "bigint", "object", "function", "boolean",
	"value", "get", "set", "writable", "enumerable", "configurable",
	"Object", "Array", "Function", "String", "Number", "Boolean", "Symbol", "BigInt",
	"toString", "valueOf", "hasOwnProperty", "isPrototypeOf", "propertyIsEnumerable",
	"message", "stack", "cause", "next", "done", "return", "throw",
	"Map", "Set", "Promise", "RegExp", "Error", "TypeError", "RangeError", "SyntaxError",
	"ReferenceError", "EvalError", "URIError", "AggregateError",
	"size", "byteLength", "buffer", "then", "resolve", "reject",
	Iterator, AsyncIterator, ToPrimitive, ToStringTag, HasInstance,
}

const (
	Iterator      = "Symbol.iterator"
	AsyncIterator = "Symbol.asyncIterator"
	ToPrimitive   = "Symbol.toPrimitive"
	ToStringTag   = "Symbol.toStringTag"
	HasInstance   = "Symbol.hasInstance"
)

var constantTable map[string]*String

func init() {
	constantTable = make(map[string]*String, len(constants))
	for _, c := range constants {
		constantTable[c] = &String{units: utf16.Encode([]rune(c)), refs: 1, constant: true}
	}
}

// String is an immutable, reference-counted UTF-16 sequence. Equality
// is reference-first (pointer compare) then content, matching the
// InternedString invariant in the data model: any two constructions
// yielding equal content but not both hitting the constant table are
// still content-equal, just not pointer-equal.
type String struct {
	units    []uint16
	refs     int32
	constant bool
	byteLen  int // cached UTF-8 byte length, computed lazily
}

// Empty returns the canonical empty string.
func Empty() *String { return constantTable[""] }

// FromString constructs an interned string from Go UTF-8 text,
// substituting the canonical constant-pool instance on a content hit.
func FromString(s string) *String {
	if len(s) <= maxConstantLength {
		if c, ok := constantTable[s]; ok {
			c.incRef()
			return c
		}
	}
	return &String{units: utf16.Encode([]rune(s)), refs: 1}
}

// FromUTF16 constructs an interned string directly from UTF-16 code units,
// used by the lexer when a string literal contains unpaired surrogates
// that cannot round-trip through Go's native (UTF-8) string type.
func FromUTF16(units []uint16) *String {
	cp := make([]uint16, len(units))
	copy(cp, units)
	s := &String{units: cp, refs: 1}
	if len(units) <= maxConstantLength {
		if c, ok := constantTable[s.GoString()]; ok {
			c.incRef()
			return c
		}
	}
	return s
}

// Concat builds a new string from the content of a and b, probing the
// constant table for the combined content just like a fresh construction.
func Concat(a, b *String) *String {
	units := make([]uint16, 0, len(a.units)+len(b.units))
	units = append(units, a.units...)
	units = append(units, b.units...)
	return internOrNew(units)
}

// ConcatMany is the n-ary form used by template literal evaluation.
func ConcatMany(parts []*String) *String {
	total := 0
	for _, p := range parts {
		total += len(p.units)
	}
	units := make([]uint16, 0, total)
	for _, p := range parts {
		units = append(units, p.units...)
	}
	return internOrNew(units)
}

func internOrNew(units []uint16) *String {
	if len(units) <= maxConstantLength {
		// utf16.Decode handles unpaired surrogates by substituting
		// utf8.RuneError, which is fine here: constant-table entries
		// never contain unpaired surrogates.
		if c, ok := constantTable[string(utf16.Decode(units))]; ok {
			c.incRef()
			return c
		}
	}
	return &String{units: units, refs: 1}
}

func (s *String) incRef() {
	if !s.constant {
		s.refs++
	}
}

// Release decrements the reference count. Callers that embed a *String
// in a GC-traced structure do not need to call this directly; it exists
// for hosts that manage string lifetime outside the tracing collector
// (e.g. compiler constant pools that dedupe strings across CodeBlocks).
func (s *String) Release() {
	if s.constant {
		return
	}
	s.refs--
}

func (s *String) RefCount() int32 {
	if s.constant {
		return -1 // constants are never collected
	}
	return s.refs
}

// Len16 returns the length in UTF-16 code units, i.e. the value the
// ECMAScript `length` property reports.
func (s *String) Len16() int { return len(s.units) }

func (s *String) Units() []uint16 { return s.units }

// GoString returns a lossy UTF-8 view for diagnostics; unpaired
// surrogates are replaced with U+FFFD.
func (s *String) GoString() string {
	return string(utf16.Decode(s.units))
}

func (s *String) ByteLen() int {
	if s.byteLen == 0 && len(s.units) > 0 {
		s.byteLen = len(s.GoString())
	}
	return s.byteLen
}

// Equal implements content equality. Reference equality (s == other)
// should be checked by the caller first since it's the common case for
// interned strings.
func (s *String) Equal(other *String) bool {
	if s == other {
		return true
	}
	if len(s.units) != len(other.units) {
		return false
	}
	for i := range s.units {
		if s.units[i] != other.units[i] {
			return false
		}
	}
	return true
}

func (s *String) Less(other *String) bool {
	return strings.Compare(s.GoString(), other.GoString()) < 0
}

// IsWellFormedUTF8 reports whether the string round-trips through UTF-8
// without any unpaired surrogate, used by APIs that must reject lone
// surrogates (e.g. TextEncoder boundaries outside this engine's scope,
// but also JSON.stringify's well-formed check).
func (s *String) IsWellFormedUTF8() bool {
	for i := 0; i < len(s.units); i++ {
		u := rune(s.units[i])
		if !utf16.IsSurrogate(u) {
			continue
		}
		if i+1 >= len(s.units) || utf16.DecodeRune(u, rune(s.units[i+1])) == utf8.RuneError {
			return false
		}
		i++
	}
	return true
}
