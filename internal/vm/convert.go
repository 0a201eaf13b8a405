package vm

import (
	"math"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// ToPrimitive implements the ToPrimitive abstract operation's object
// case (primitives pass through unchanged): try valueOf/toString in the
// order hint dictates, per OrdinaryToPrimitive. hint is "number",
// "string", or "default" (treated the same as "number").
func (vm *VM) ToPrimitive(v value.Value, hint string) (value.Value, *object.Exception) {
	if !v.IsObject() {
		return v, nil
	}
	obj, ok := v.AsObject().(*object.Object)
	if !ok {
		return v, nil
	}
	methods := [2]string{"valueOf", "toString"}
	if hint == "string" {
		methods = [2]string{"toString", "valueOf"}
	}
	for _, name := range methods {
		fnVal, exc := obj.Get(vm, shape.StringKey(name), v)
		if exc != nil {
			return value.Undefined, exc
		}
		fo, ok := fnVal.AsObject().(*object.Object)
		if !fnVal.IsObject() || !ok || !fo.IsCallable() {
			continue
		}
		res, exc := vm.Call(fo, v, nil)
		if exc != nil {
			return value.Undefined, exc
		}
		if !res.IsObject() {
			return res, nil
		}
	}
	return value.Undefined, vm.TypeError("Cannot convert object to primitive value")
}

// ToNumber implements the ToNumber abstract operation, falling back to
// ToPrimitive for objects (internal/value.Value.ToNumber only covers
// primitives, since it cannot call into user code).
func (vm *VM) ToNumber(v value.Value) (float64, *object.Exception) {
	if f, ok := v.ToNumber(); ok {
		return f, nil
	}
	prim, exc := vm.ToPrimitive(v, "number")
	if exc != nil {
		return 0, exc
	}
	if f, ok := prim.ToNumber(); ok {
		return f, nil
	}
	return math.NaN(), nil
}

// ToJSString implements ToString for every Value kind, including the
// object case (ToPrimitive with a "string" hint).
func (vm *VM) ToJSString(v value.Value) (string, *object.Exception) {
	switch v.Kind() {
	case value.KindString:
		return v.AsString().GoString(), nil
	case value.KindUndefined:
		return "undefined", nil
	case value.KindNull:
		return "null", nil
	case value.KindBoolean:
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case value.KindInteger32, value.KindFloat64:
		return value.NumberToString(v), nil
	case value.KindBigInt:
		return v.AsBigInt().String(), nil
	case value.KindSymbol:
		return "", vm.TypeError("Cannot convert a Symbol value to a string")
	case value.KindObject:
		prim, exc := vm.ToPrimitive(v, "string")
		if exc != nil {
			return "", exc
		}
		return vm.ToJSString(prim)
	}
	return "", nil
}

// ToPropertyKey implements the ToPropertyKey abstract operation: symbols
// pass through as symbol keys, everything else goes through ToString and is then
// canonicalised to an array index when it qualifies.
func (vm *VM) ToPropertyKey(v value.Value) (shape.Key, *object.Exception) {
	if v.IsSymbol() {
		return shape.SymbolKey(v.AsSymbol()), nil
	}
	s, exc := vm.ToJSString(v)
	if exc != nil {
		return shape.Key{}, exc
	}
	if idx, ok := shape.CanonicalArrayIndex(s); ok {
		return shape.IndexKey(idx), nil
	}
	return shape.StringKey(s), nil
}

// ToPropertyKeyString degrades a computed class-member key to a plain
// string, the representation internal/vm's fieldInit bookkeeping uses;
// a computed key evaluating to a Symbol loses its identity under this
// simplification (full Symbol-keyed class members would need fieldInit
// to carry a shape.Key instead of a string).
func (vm *VM) ToPropertyKeyString(v value.Value) string {
	if v.IsSymbol() {
		if v.AsSymbol().Description != nil {
			return "@@" + v.AsSymbol().Description.GoString()
		}
		return "@@symbol"
	}
	s, _ := vm.ToJSString(v)
	return s
}

// toInt32/toUint32 implement the bitwise-operator coercions: wrap a
// float64 (already past ToNumber) into the 32-bit modular range the
// ECMAScript ToInt32/ToUint32 operations specify.
func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// add implements the `+` operator's full ToPrimitive-then-branch
// semantics (string concatenation vs numeric addition).
func (vm *VM) add(a, b value.Value) (value.Value, *object.Exception) {
	pa, exc := vm.ToPrimitive(a, "default")
	if exc != nil {
		return value.Undefined, exc
	}
	pb, exc := vm.ToPrimitive(b, "default")
	if exc != nil {
		return value.Undefined, exc
	}
	if pa.IsString() || pb.IsString() {
		sa, exc := vm.ToJSString(pa)
		if exc != nil {
			return value.Undefined, exc
		}
		sb, exc := vm.ToJSString(pb)
		if exc != nil {
			return value.Undefined, exc
		}
		return value.FromGoString(sa + sb), nil
	}
	na, exc := vm.ToNumber(pa)
	if exc != nil {
		return value.Undefined, exc
	}
	nb, exc := vm.ToNumber(pb)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromNumber(na + nb), nil
}

// looseEquals implements the `==`/`!=` abstract equality comparison.
func (vm *VM) looseEquals(a, b value.Value) (bool, *object.Exception) {
	if a.Kind() == b.Kind() || (a.IsNumber() && b.IsNumber()) {
		return value.StrictEquals(a, b), nil
	}
	if a.IsNullish() && b.IsNullish() {
		return true, nil
	}
	if a.IsNullish() || b.IsNullish() {
		return false, nil
	}
	if a.IsNumber() && b.IsString() {
		nb, exc := vm.ToNumber(b)
		if exc != nil {
			return false, exc
		}
		return a.AsFloat64() == nb, nil
	}
	if a.IsString() && b.IsNumber() {
		na, exc := vm.ToNumber(a)
		if exc != nil {
			return false, exc
		}
		return na == b.AsFloat64(), nil
	}
	if a.IsBoolean() {
		na, _ := a.ToNumber()
		return vm.looseEquals(value.FromNumber(na), b)
	}
	if b.IsBoolean() {
		nb, _ := b.ToNumber()
		return vm.looseEquals(a, value.FromNumber(nb))
	}
	if (a.IsNumber() || a.IsString() || a.IsBigInt() || a.IsSymbol()) && b.IsObject() {
		pb, exc := vm.ToPrimitive(b, "default")
		if exc != nil {
			return false, exc
		}
		return vm.looseEquals(a, pb)
	}
	if a.IsObject() && (b.IsNumber() || b.IsString() || b.IsBigInt() || b.IsSymbol()) {
		pa, exc := vm.ToPrimitive(a, "default")
		if exc != nil {
			return false, exc
		}
		return vm.looseEquals(pa, b)
	}
	return false, nil
}

// lessThan implements the `<` direction of the abstract relational
// comparison (spec.IsLessThan); callers derive <=, >, >= by swapping
// operands and/or negating, matching how the spec itself defines them.
func (vm *VM) lessThan(a, b value.Value, leftFirst bool) (result int, exc *object.Exception) {
	var pa, pb value.Value
	if leftFirst {
		pa, exc = vm.ToPrimitive(a, "number")
		if exc != nil {
			return 0, exc
		}
		pb, exc = vm.ToPrimitive(b, "number")
	} else {
		pb, exc = vm.ToPrimitive(b, "number")
		if exc != nil {
			return 0, exc
		}
		pa, exc = vm.ToPrimitive(a, "number")
	}
	if exc != nil {
		return 0, exc
	}
	if pa.IsString() && pb.IsString() {
		sa, sb := pa.AsString().GoString(), pb.AsString().GoString()
		if sa < sb {
			return 1, nil
		}
		return -1, nil
	}
	na, exc := vm.ToNumber(pa)
	if exc != nil {
		return 0, exc
	}
	nb, exc := vm.ToNumber(pb)
	if exc != nil {
		return 0, exc
	}
	if math.IsNaN(na) || math.IsNaN(nb) {
		return 0, nil // undefined result, treated as "not less than"
	}
	if na < nb {
		return 1, nil
	}
	return -1, nil
}
