// Package value implements the tagged-union Value type at the center
// of the data model: Undefined, Null, Boolean, Integer32, Float64,
// String, BigInt, Symbol, Object.
//
// Grounded on boa_engine's JsValue variant set and boa/src/string.rs's
// InternedString (reused via internal/strpool); the float/int split and
// the SameValue/SameValueZero algorithms follow the ECMAScript spec
// operations of the same name, the way boa_engine/src/value implements
// them (not present verbatim in original_source, but referenced by
// core/engine/src/value/display.rs which this package's String method
// is grounded on for the Display/toString formatting rules).
package value

import (
	"math"
	"math/big"
	"strconv"

	"github.com/quartzjs/quartz/internal/strpool"
)

type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindInteger32
	KindFloat64
	KindString
	KindBigInt
	KindSymbol
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger32, KindFloat64:
		return "number"
	case KindString:
		return "string"
	case KindBigInt:
		return "bigint"
	case KindSymbol:
		return "symbol"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Objecter is the minimal handle surface Value needs from a heap
// object. internal/object.Object implements this; Value cannot import
// internal/object directly without an import cycle (objects store
// property values, which are Values).
type Objecter interface {
	// ClassName is used for default toString tag formatting and for
	// diagnostics; it does not participate in equality.
	ClassName() string
	// IsCallable/IsConstructor let generic Value code (ToPrimitive,
	// typeof) answer "function" without depending on internal/object.
	IsCallable() bool
	IsConstructor() bool
}

// Symbol is a unique, possibly-described symbol identity. Two distinct
// *Symbol values are never SameValue-equal even with identical
// descriptions, matching ECMAScript Symbol semantics.
type Symbol struct {
	Description *strpool.String // nil for Symbol() with no description
	id          uint64
}

var symbolCounter uint64

func NewSymbol(desc *strpool.String) *Symbol {
	symbolCounter++
	return &Symbol{Description: desc, id: symbolCounter}
}

func (s *Symbol) ID() uint64 { return s.id }

// Value is the tagged union described by the data model. Only the
// field matching Kind is meaningful.
type Value struct {
	kind Kind
	b    bool
	i32  int32
	f64  float64
	str  *strpool.String
	big  *big.Int
	sym  *Symbol
	obj  Objecter
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBoolean, b: true}
	False     = Value{kind: KindBoolean, b: false}
)

func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

func FromInt32(i int32) Value { return Value{kind: KindInteger32, i32: i} }

func FromFloat64(f float64) Value { return Value{kind: KindFloat64, f64: f} }

// FromNumber canonicalises a float64 to Integer32 when it round-trips
// exactly and is not negative zero, matching the Value invariant that
// -0 must remain Float64(-0.0) so it continues to print as "0" but
// fails Object.is(x, 0).
func FromNumber(f float64) Value {
	if f == 0 && math.Signbit(f) {
		return FromFloat64(f)
	}
	if i := int32(f); float64(i) == f && !math.IsInf(f, 0) {
		return FromInt32(i)
	}
	return FromFloat64(f)
}

func FromString(s *strpool.String) Value { return Value{kind: KindString, str: s} }

func FromGoString(s string) Value { return FromString(strpool.FromString(s)) }

func FromBigInt(b *big.Int) Value { return Value{kind: KindBigInt, big: b} }

func FromSymbol(s *Symbol) Value { return Value{kind: KindSymbol, sym: s} }

func FromObject(o Objecter) Value { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullish() bool   { return v.kind == KindUndefined || v.kind == KindNull }
func (v Value) IsBoolean() bool   { return v.kind == KindBoolean }
func (v Value) IsNumber() bool    { return v.kind == KindInteger32 || v.kind == KindFloat64 }
func (v Value) IsInteger32() bool { return v.kind == KindInteger32 }
func (v Value) IsString() bool    { return v.kind == KindString }
func (v Value) IsBigInt() bool    { return v.kind == KindBigInt }
func (v Value) IsSymbol() bool    { return v.kind == KindSymbol }
func (v Value) IsObject() bool    { return v.kind == KindObject }

func (v Value) AsBool() bool              { return v.b }
func (v Value) AsString() *strpool.String { return v.str }
func (v Value) AsBigInt() *big.Int        { return v.big }
func (v Value) AsSymbol() *Symbol         { return v.sym }
func (v Value) AsObject() Objecter        { return v.obj }

// AsFloat64 returns the Number value as a float64 regardless of which
// of the two Number representations it's stored as.
func (v Value) AsFloat64() float64 {
	if v.kind == KindInteger32 {
		return float64(v.i32)
	}
	return v.f64
}

// TypeOf implements the `typeof` operator.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object"
	case KindBoolean:
		return "boolean"
	case KindInteger32, KindFloat64:
		return "number"
	case KindString:
		return "string"
	case KindBigInt:
		return "bigint"
	case KindSymbol:
		return "symbol"
	case KindObject:
		if v.obj != nil && v.obj.IsCallable() {
			return "function"
		}
		return "object"
	}
	return "undefined"
}

// SameValue implements the ECMAScript SameValue algorithm: like ===
// except NaN is equal to itself and +0/-0 are distinguished.
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		if a.IsNumber() && b.IsNumber() {
			af, bf := a.AsFloat64(), b.AsFloat64()
			if af == 0 && bf == 0 {
				return math.Signbit(af) == math.Signbit(bf)
			}
			return af == bf
		}
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean:
		return a.b == b.b
	case KindInteger32:
		return a.i32 == b.i32
	case KindFloat64:
		if math.IsNaN(a.f64) && math.IsNaN(b.f64) {
			return true
		}
		if a.f64 == 0 && b.f64 == 0 {
			return math.Signbit(a.f64) == math.Signbit(b.f64)
		}
		return a.f64 == b.f64
	case KindString:
		return a.str == b.str || a.str.Equal(b.str)
	case KindBigInt:
		return a.big.Cmp(b.big) == 0
	case KindSymbol:
		return a.sym == b.sym
	case KindObject:
		return a.obj == b.obj
	}
	return false
}

// SameValueZero is SameValue except +0 and -0 compare equal (used by
// Array.prototype.includes, Map/Set key comparison).
func SameValueZero(a, b Value) bool {
	if a.kind == KindFloat64 && b.kind == KindFloat64 && a.f64 == 0 && b.f64 == 0 {
		return true
	}
	if a.kind != b.kind {
		if a.IsNumber() && b.IsNumber() {
			return numbersEqual(a, b)
		}
		return false
	}
	return SameValue(a, b)
}

func numbersEqual(a, b Value) bool {
	af, bf := a.AsFloat64(), b.AsFloat64()
	if math.IsNaN(af) && math.IsNaN(bf) {
		return true
	}
	return af == bf
}

// StrictEquals implements === (SameValue but +0 == -0 and mismatched
// Integer32/Float64 representations of the same number compare equal).
func StrictEquals(a, b Value) bool {
	if a.kind != b.kind {
		if a.IsNumber() && b.IsNumber() {
			return numbersEqual(a, b)
		}
		return false
	}
	switch a.kind {
	case KindFloat64:
		return numbersEqual(a, b)
	default:
		return SameValue(a, b)
	}
}

// ToBoolean implements the ECMAScript ToBoolean abstract operation.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBoolean:
		return v.b
	case KindInteger32:
		return v.i32 != 0
	case KindFloat64:
		return v.f64 != 0 && !math.IsNaN(v.f64)
	case KindString:
		return v.str.Len16() > 0
	case KindBigInt:
		return v.big.Sign() != 0
	default:
		return true
	}
}

// ToNumber implements the primitive-only slice of ToNumber; object
// coercion (calling [Symbol.toPrimitive]/valueOf/toString) is layered
// on top by the object package, which has access to [[Call]].
func (v Value) ToNumber() (float64, bool) {
	switch v.kind {
	case KindUndefined:
		return math.NaN(), true
	case KindNull:
		return 0, true
	case KindBoolean:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindInteger32:
		return float64(v.i32), true
	case KindFloat64:
		return v.f64, true
	case KindString:
		f, err := strconv.ParseFloat(trimJSWhitespace(v.str.GoString()), 64)
		if err != nil {
			if trimJSWhitespace(v.str.GoString()) == "" {
				return 0, true
			}
			return math.NaN(), true
		}
		return f, true
	default:
		return 0, false
	}
}

func trimJSWhitespace(s string) string {
	start, end := 0, len(s)
	isWS := func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
	}
	for start < end && isWS(s[start]) {
		start++
	}
	for end > start && isWS(s[end-1]) {
		end--
	}
	return s[start:end]
}

// NumberToString implements the Number::toString(10) abstract
// operation's common cases; exotic radixes are handled by the Number
// builtin directly against the float64/int32.
func NumberToString(v Value) string {
	switch v.kind {
	case KindInteger32:
		return strconv.FormatInt(int64(v.i32), 10)
	case KindFloat64:
		f := v.f64
		if math.IsNaN(f) {
			return "NaN"
		}
		if math.IsInf(f, 1) {
			return "Infinity"
		}
		if math.IsInf(f, -1) {
			return "-Infinity"
		}
		if f == 0 {
			return "0"
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return ""
}
