// Package shape implements the hidden-class tree (Shape) and the
// PropertyTable it shares across sibling objects.
//
// Grounded on boa_engine/src/object/shape/shared_shape/mod.rs
// (original_source): a forward-transition cache keyed by
// (PropertyKey, attributes), a separate prototype-transition cache, a
// `previous` back-link, and a transition counter used to detect
// pathological shape explosion (§9, §4.3).
package shape

import (
	"strconv"

	"github.com/quartzjs/quartz/internal/value"
)

type KeyKind uint8

const (
	KeyString KeyKind = iota
	KeySymbol
	KeyIndex
)

// Key is a PropertyKey: a string, a symbol, or a canonical array index.
// It is comparable so it can be used directly as a Go map key, which
// is what backs both the PropertyTable and the shape transition caches.
type Key struct {
	kind  KeyKind
	str   string // plain Go string, stored as given and compared by content
	sym   *value.Symbol
	index uint32
}

func StringKey(s string) Key        { return Key{kind: KeyString, str: s} }
func SymbolKey(s *value.Symbol) Key { return Key{kind: KeySymbol, sym: s} }
func IndexKey(i uint32) Key         { return Key{kind: KeyIndex, index: i} }

func (k Key) Kind() KeyKind { return k.kind }
func (k Key) String() string {
	switch k.kind {
	case KeyString:
		return k.str
	case KeyIndex:
		return strconv.FormatUint(uint64(k.index), 10)
	default:
		return "@@symbol"
	}
}
func (k Key) Symbol() *value.Symbol { return k.sym }
func (k Key) Index() uint32         { return k.index }
func (k Key) IsArrayIndex() bool    { return k.kind == KeyIndex }

// KeyFromValue converts a property-key Value (string or symbol) to a
// Key, canonicalising strings that are array indices (as decided by
// CanonicalArrayIndex) to KeyIndex; every other string, including
// other numeric-looking ones such as "-1" or "1.5", stays a KeyString.
func KeyFromValue(v value.Value) Key {
	if v.IsSymbol() {
		return SymbolKey(v.AsSymbol())
	}
	s := v.AsString().GoString()
	if idx, ok := CanonicalArrayIndex(s); ok {
		return IndexKey(idx)
	}
	return StringKey(s)
}

// CanonicalArrayIndex reports whether s is the canonical decimal
// representation of an integer in [0, 2^32-2], the valid range for an
// ECMAScript array index.
func CanonicalArrayIndex(s string) (uint32, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n >= 0xFFFFFFFF {
		return 0, false
	}
	return uint32(n), true
}
