package vm

import (
	"math"

	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// numericBinary implements every arithmetic/bitwise binary operator
// besides `+` (handled separately by vm.add, since it alone branches on
// string concatenation).
func (vm *VM) numericBinary(op compiler.Op, a, b value.Value) (value.Value, *object.Exception) {
	na, exc := vm.ToNumber(a)
	if exc != nil {
		return value.Undefined, exc
	}
	nb, exc := vm.ToNumber(b)
	if exc != nil {
		return value.Undefined, exc
	}
	switch op {
	case compiler.OpSub:
		return value.FromNumber(na - nb), nil
	case compiler.OpMul:
		return value.FromNumber(na * nb), nil
	case compiler.OpDiv:
		return value.FromNumber(na / nb), nil
	case compiler.OpMod:
		return value.FromNumber(math.Mod(na, nb)), nil
	case compiler.OpExp:
		return value.FromNumber(math.Pow(na, nb)), nil
	case compiler.OpBitAnd:
		return value.FromInt32(toInt32(na) & toInt32(nb)), nil
	case compiler.OpBitOr:
		return value.FromInt32(toInt32(na) | toInt32(nb)), nil
	case compiler.OpBitXor:
		return value.FromInt32(toInt32(na) ^ toInt32(nb)), nil
	case compiler.OpShl:
		return value.FromInt32(toInt32(na) << (toUint32(nb) & 31)), nil
	case compiler.OpShr:
		return value.FromInt32(toInt32(na) >> (toUint32(nb) & 31)), nil
	case compiler.OpUShr:
		return value.FromNumber(float64(toUint32(na) >> (toUint32(nb) & 31))), nil
	}
	return value.Undefined, vm.TypeError("unsupported numeric operator")
}

// relational implements `<`/`<=`/`>`/`>=` via lessThan. a and b are
// already in left/right operand order (the caller pops right-then-left
// off the stack to recover it).
func (vm *VM) relational(op compiler.Op, a, b value.Value) (value.Value, *object.Exception) {
	switch op {
	case compiler.OpLt:
		r, exc := vm.lessThan(a, b, true)
		return value.FromBool(r > 0), exc
	case compiler.OpGt:
		r, exc := vm.lessThan(b, a, false)
		return value.FromBool(r > 0), exc
	case compiler.OpLte:
		r, exc := vm.lessThan(b, a, false)
		if exc != nil {
			return value.Undefined, exc
		}
		return value.FromBool(r == -1), nil
	case compiler.OpGte:
		r, exc := vm.lessThan(a, b, true)
		if exc != nil {
			return value.Undefined, exc
		}
		return value.FromBool(r == -1), nil
	}
	return value.Undefined, vm.TypeError("unsupported relational operator")
}

func (vm *VM) instanceOf(a, b value.Value) (bool, *object.Exception) {
	bo, ok := b.AsObject().(*object.Object)
	if !b.IsObject() || !ok || !bo.IsCallable() {
		return false, vm.TypeError("Right-hand side of 'instanceof' is not callable")
	}
	if !a.IsObject() {
		return false, nil
	}
	protoVal, exc := bo.Get(vm, shape.StringKey("prototype"), b)
	if exc != nil {
		return false, exc
	}
	protoObj, ok := protoVal.AsObject().(*object.Object)
	if !protoVal.IsObject() || !ok {
		return false, vm.TypeError("Function has non-object prototype property")
	}
	ao, ok := a.AsObject().(*object.Object)
	if !ok {
		return false, nil
	}
	proto, exc := ao.GetPrototypeOf(vm)
	for exc == nil && proto != nil {
		if proto.ShapeIdentity() == protoObj.ShapeIdentity() {
			return true, nil
		}
		po, ok := proto.(*object.Object)
		if !ok {
			break
		}
		proto, exc = po.GetPrototypeOf(vm)
	}
	return false, exc
}

func (vm *VM) opIn(a, b value.Value) (bool, *object.Exception) {
	bo, ok := b.AsObject().(*object.Object)
	if !b.IsObject() || !ok {
		return false, vm.TypeError("Cannot use 'in' operator on a non-object")
	}
	key, exc := vm.ToPropertyKey(a)
	if exc != nil {
		return false, exc
	}
	return bo.HasProperty(vm, key)
}

// getProperty reads a property off any value, boxing strings for
// index/length access and routing everything else through the
// object internal method; numbers/booleans/symbols have no own
// properties of interest here so they degrade to undefined rather than
// constructing full wrapper objects (no String/Number/Boolean wrapper
// object kind is wired into this lookup path yet).
func (vm *VM) getProperty(v value.Value, key shape.Key) (value.Value, *object.Exception) {
	if v.IsNullish() {
		return value.Undefined, vm.TypeError("Cannot read properties of %s", v.TypeOf())
	}
	if v.IsString() {
		s := v.AsString().GoString()
		runes := []rune(s)
		if key == object.LengthKey {
			return value.FromNumber(float64(len(runes))), nil
		}
		if key.IsArrayIndex() && int(key.Index()) < len(runes) {
			return value.FromGoString(string(runes[key.Index()])), nil
		}
		return value.Undefined, nil
	}
	if !v.IsObject() {
		return value.Undefined, nil
	}
	o, ok := v.AsObject().(*object.Object)
	if !ok {
		return value.Undefined, nil
	}
	return o.Get(vm, key, v)
}

func (vm *VM) setProperty(v value.Value, key shape.Key, val value.Value) *object.Exception {
	if v.IsNullish() {
		return vm.TypeError("Cannot set properties of %s", v.TypeOf())
	}
	if !v.IsObject() {
		return nil // primitive wrapper writes are silently discarded, matching non-strict semantics
	}
	o, ok := v.AsObject().(*object.Object)
	if !ok {
		return nil
	}
	_, exc := o.Set(vm, key, val, v, false)
	return exc
}

func (vm *VM) deleteProperty(v value.Value, key shape.Key) (bool, *object.Exception) {
	if !v.IsObject() {
		return true, nil
	}
	o, ok := v.AsObject().(*object.Object)
	if !ok {
		return true, nil
	}
	return o.Delete(vm, key)
}

func (vm *VM) defineProperty(v value.Value, key shape.Key, val value.Value) *object.Exception {
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return vm.TypeError("cannot define property on a non-object")
	}
	_, exc := o.DefineOwnProperty(vm, key, object.DataDescriptor(val, true, true, true))
	return exc
}

// arrayPush/arrayPushSpread grow an array literal under construction,
// the runtime half of OpArrayAppend/OpArrayAppendSpread.
func (vm *VM) arrayPush(arrVal value.Value, v value.Value) *object.Exception {
	o, ok := arrVal.AsObject().(*object.Object)
	if !arrVal.IsObject() || !ok {
		return vm.TypeError("array literal target is not an object")
	}
	n, exc := vm.arrayLen(o)
	if exc != nil {
		return exc
	}
	_, exc = o.DefineOwnProperty(vm, shape.IndexKey(n), object.DataDescriptor(v, true, true, true))
	return exc
}

func (vm *VM) arrayPushSpread(arrVal value.Value, iterable value.Value) *object.Exception {
	_, ok := arrVal.AsObject().(*object.Object)
	if !arrVal.IsObject() || !ok {
		return vm.TypeError("array literal target is not an object")
	}
	iter, exc := vm.GetIterator(iterable)
	if exc != nil {
		return exc
	}
	for {
		v, done, exc := vm.IteratorNext(iter)
		if exc != nil {
			return exc
		}
		if done {
			return nil
		}
		if exc := vm.arrayPush(arrVal, v); exc != nil {
			return exc
		}
	}
}

func (vm *VM) arrayLen(o *object.Object) (uint32, *object.Exception) {
	v, exc := o.Get(vm, object.LengthKey, value.FromObject(o))
	if exc != nil {
		return 0, exc
	}
	return uint32(v.AsFloat64()), nil
}

// spreadInto implements OpSpreadProps: copy source's own enumerable
// properties onto obj, per the object-literal spread semantics
// (ToObject is a no-op for nullish, which contributes nothing).
func (vm *VM) spreadInto(objVal value.Value, source value.Value) *object.Exception {
	if source.IsNullish() {
		return nil
	}
	o, ok := objVal.AsObject().(*object.Object)
	if !objVal.IsObject() || !ok {
		return vm.TypeError("spread target is not an object")
	}
	if !source.IsObject() {
		return nil
	}
	so, ok := source.AsObject().(*object.Object)
	if !ok {
		return nil
	}
	keys, exc := so.OwnPropertyKeys(vm)
	if exc != nil {
		return exc
	}
	for _, k := range keys {
		desc, exc := so.GetOwnProperty(vm, k)
		if exc != nil {
			return exc
		}
		if desc == nil || !desc.Enumerable {
			continue
		}
		v, exc := so.Get(vm, k, source)
		if exc != nil {
			return exc
		}
		if _, exc := o.DefineOwnProperty(vm, k, object.DataDescriptor(v, true, true, true)); exc != nil {
			return exc
		}
	}
	return nil
}

// spreadArgs expands an OpSpreadCall argument list: compileArgsAndCall
// leaves a SpreadElement's evaluated iterable indistinguishable from a
// plain array argument on the stack, so this flattens any array-valued
// argument and passes everything else through unchanged, matching the
// common `f(...arr)` case rather than a positionally-passed array.
func (vm *VM) spreadArgs(raw []value.Value) ([]value.Value, *object.Exception) {
	var out []value.Value
	for _, v := range raw {
		if o, ok := v.AsObject().(*object.Object); v.IsObject() && ok && o.DataKindOf() == object.DataArray {
			elems, exc := vm.ArrayElements(o)
			if exc != nil {
				return nil, exc
			}
			out = append(out, elems...)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// makeTemplateObject builds a tagged-template strings array's untagged
// fallback representation (used only by OpMakeTemplate, which no
// compiler pass currently emits; compileTaggedTemplate lowers directly
// to OpMakeArray instead).
func (vm *VM) makeTemplateObject(cooked string, exprs []value.Value) *object.Object {
	items := append([]value.Value{value.FromGoString(cooked)}, exprs...)
	return vm.NewArray(items)
}

// getSuperBase resolves `super` inside a method body to the home
// object's own prototype, the object super-property lookups and
// super-calls route through.
func (vm *VM) getSuperBase(f *Frame) (value.Value, *object.Exception) {
	if f.fn == nil || f.fn.HomeObject == nil {
		return value.Undefined, vm.SyntaxError("'super' keyword is only valid inside a method")
	}
	proto, exc := f.fn.HomeObject.GetPrototypeOf(vm)
	if exc != nil {
		return value.Undefined, exc
	}
	po, ok := proto.(*object.Object)
	if !ok {
		return value.Undefined, nil
	}
	return value.FromObject(po), nil
}

// getSuperConstructor resolves `super(...)` to the derived constructor's
// recorded superclass constructor, set once by buildClass at class
// creation time.
func (vm *VM) getSuperConstructor(f *Frame) (value.Value, *object.Exception) {
	if f.fn == nil || f.fn.SuperCtor == nil {
		return value.Undefined, vm.SyntaxError("'super' keyword is unexpected here")
	}
	return value.FromObject(f.fn.SuperCtor), nil
}

// yieldDelegate implements `yield*`: drain the delegated iterable,
// forwarding each of its values out through this generator's own
// suspension point, and produce the delegate's final return value.
func (vm *VM) yieldDelegate(f *Frame, iterable value.Value) (value.Value, *object.Exception) {
	iter, exc := vm.GetIterator(iterable)
	if exc != nil {
		return value.Undefined, exc
	}
	for {
		v, done, exc := vm.IteratorNext(iter)
		if exc != nil {
			return value.Undefined, exc
		}
		if done {
			return v, nil
		}
		resumed, exc, earlyReturn := f.coroutine.suspend(v)
		if exc != nil {
			vm.IteratorClose(iter)
			return value.Undefined, exc
		}
		if earlyReturn {
			vm.IteratorClose(iter)
			return resumed, nil
		}
		_ = resumed
	}
}
