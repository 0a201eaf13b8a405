package vm

import (
	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/jsenv"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// CallableMethods is the vtable for a function value that can be
// called but not constructed (arrow functions, methods, accessors,
// generator/async functions, native functions with no Construct).
// Both fields just forward to the owning VM, found via the Interpreter
// argument every internal method already carries.
var CallableMethods = object.InternalMethods{Call: dispatchCall}

// ConstructableMethods additionally allows `new`.
var ConstructableMethods = object.InternalMethods{Call: dispatchCall, Construct: dispatchConstruct}

func dispatchCall(o *object.Object, it object.Interpreter, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	vm, ok := it.(*VM)
	if !ok {
		return value.Undefined, it.TypeError("function called outside a VM")
	}
	return vm.Call(o, this, args)
}

func dispatchConstruct(o *object.Object, it object.Interpreter, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	vm, ok := it.(*VM)
	if !ok {
		return value.Undefined, it.TypeError("function constructed outside a VM")
	}
	return vm.Construct(o, args, newTarget)
}

// methodsFor picks the vtable a compiled function needs: every ordinary
// function and class constructor is constructable; arrows, generators,
// async functions, and class accessors/methods are call-only.
func methodsFor(cb *compiler.CodeBlock, isClassMethod bool) object.InternalMethods {
	if cb.Arrow || cb.Generator || cb.Async || isClassMethod {
		return CallableMethods
	}
	return ConstructableMethods
}

// makeFunctionObject builds the callable *object.Object for a compiled
// CodeBlock, closing over the current frame's environment.
func (vm *VM) makeFunctionObject(cb *compiler.CodeBlock, closure *jsenv.DeclarativeEnvironment, isClassMethod bool) *object.Object {
	fd := &FunctionData{CodeBlock: cb, Closure: closure, Realm: vm.Realm}
	fn := object.New(vm.Realm.Intrinsics.FunctionPrototype, object.DataFunction, fd, methodsFor(cb, isClassMethod))
	fn.DefineOwnProperty(vm, shape.StringKey("length"), object.DataDescriptor(value.FromInt32(int32(len(cb.Params))), false, false, true))
	fn.DefineOwnProperty(vm, shape.StringKey("name"), object.DataDescriptor(value.FromGoString(cb.Name), false, false, true))
	if !cb.Arrow && !cb.Generator && !cb.Async && !isClassMethod {
		proto := object.New(vm.Realm.Intrinsics.ObjectPrototype, object.DataOrdinary, nil, object.Ordinary)
		proto.DefineOwnProperty(vm, shape.StringKey("constructor"), object.DataDescriptor(value.FromObject(fn), true, false, true))
		fn.DefineOwnProperty(vm, shape.StringKey("prototype"), object.DataDescriptor(value.FromObject(proto), true, false, false))
	}
	return fn
}

// NewPlainObject allocates an empty ordinary object, OpMakeObject's
// starting point and the shape other object-producing helpers share.
func (vm *VM) NewPlainObject() *object.Object {
	return object.New(vm.Realm.Intrinsics.ObjectPrototype, object.DataOrdinary, nil, object.Ordinary)
}

// NewArray builds an Array exotic object from a Go slice, the shape
// both argument-object construction and OpMakeArray need.
func (vm *VM) NewArray(items []value.Value) *object.Object {
	arr := object.New(vm.Realm.Intrinsics.ArrayPrototype, object.DataArray, &object.ArrayData{}, object.ArrayMethods)
	arr.DefineOwnProperty(vm, object.LengthKey, object.DataDescriptor(value.FromNumber(0), true, false, false))
	for i, v := range items {
		arr.DefineOwnProperty(vm, shape.IndexKey(uint32(i)), object.DataDescriptor(v, true, true, true))
	}
	return arr
}

// ArrayElements reads an Array exotic object's length and indexed
// elements back into a Go slice, used by spread arguments, GetIterator's
// array fast path and several builtins.
func (vm *VM) ArrayElements(arr *object.Object) ([]value.Value, *object.Exception) {
	lenVal, exc := arr.Get(vm, object.LengthKey, value.FromObject(arr))
	if exc != nil {
		return nil, exc
	}
	n := uint32(lenVal.AsFloat64())
	out := make([]value.Value, n)
	for i := uint32(0); i < n; i++ {
		v, exc := arr.Get(vm, shape.IndexKey(i), value.FromObject(arr))
		if exc != nil {
			return nil, exc
		}
		out[i] = v
	}
	return out, nil
}

// iterState backs a native iterator object's `next` callback; next
// returns the next value and whether iteration is exhausted.
type iterState struct {
	next func() (value.Value, bool, *object.Exception)
}

// MakeNativeIterator wraps a Go next function in an object exposing the
// iterator protocol's `next` method, without depending on any
// user-overridable Symbol.iterator installation (used for arrays,
// strings, and other built-in iterables until internal/builtins wires
// the real prototype methods).
func (vm *VM) MakeNativeIterator(next func() (value.Value, bool, *object.Exception)) *object.Object {
	st := &iterState{next: next}
	obj := object.New(vm.Realm.Intrinsics.IteratorPrototype, object.DataIterator, st, object.Ordinary)
	nd := &NativeFunctionData{Name: "next", Length: 0}
	nd.Call = func(vm *VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		v, done, exc := st.next()
		if exc != nil {
			return value.Undefined, exc
		}
		return vm.IterResult(v, done), nil
	}
	nextFn := object.New(vm.Realm.Intrinsics.FunctionPrototype, object.DataFunction, nd, CallableMethods)
	obj.DefineOwnProperty(vm, shape.StringKey("next"), object.DataDescriptor(value.FromObject(nextFn), true, false, true))
	return obj
}

// IterResult builds the {value, done} object the iterator protocol's
// next/return/throw methods all return.
func (vm *VM) IterResult(v value.Value, done bool) value.Value {
	res := vm.NewPlainObject()
	res.DefineOwnProperty(vm, shape.StringKey("value"), object.DataDescriptor(v, true, true, true))
	res.DefineOwnProperty(vm, shape.StringKey("done"), object.DataDescriptor(value.FromBool(done), true, true, true))
	return value.FromObject(res)
}

// GetIterator implements GetIterator: an Array gets a synthetic
// index-based iterator, a String a synthetic code-point iterator, and
// anything else goes through its own Symbol.iterator method, matching
// the teacher-neutral fallback MakeNativeIterator's doc comment
// describes.
func (vm *VM) GetIterator(v value.Value) (*object.Object, *object.Exception) {
	if v.IsObject() {
		if o, ok := v.AsObject().(*object.Object); ok && o.DataKindOf() == object.DataArray {
			elems, exc := vm.ArrayElements(o)
			if exc != nil {
				return nil, exc
			}
			i := 0
			return vm.MakeNativeIterator(func() (value.Value, bool, *object.Exception) {
				if i >= len(elems) {
					return value.Undefined, true, nil
				}
				v := elems[i]
				i++
				return v, false, nil
			}), nil
		}
	}
	if v.IsString() {
		runes := []rune(v.AsString().GoString())
		i := 0
		return vm.MakeNativeIterator(func() (value.Value, bool, *object.Exception) {
			if i >= len(runes) {
				return value.Undefined, true, nil
			}
			r := runes[i]
			i++
			return value.FromGoString(string(r)), false, nil
		}), nil
	}
	if v.IsObject() {
		obj, ok := v.AsObject().(*object.Object)
		if !ok {
			return nil, vm.TypeError("value is not iterable")
		}
		iterFn, exc := obj.Get(vm, shape.SymbolKey(vm.Realm.Symbols.Iterator), v)
		if exc != nil {
			return nil, exc
		}
		fo, ok := iterFn.AsObject().(*object.Object)
		if !iterFn.IsObject() || !ok || !fo.IsCallable() {
			return nil, vm.TypeError("value is not iterable")
		}
		result, exc := vm.Call(fo, v, nil)
		if exc != nil {
			return nil, exc
		}
		ro, ok := result.AsObject().(*object.Object)
		if !result.IsObject() || !ok {
			return nil, vm.TypeError("Symbol.iterator did not return an object")
		}
		return ro, nil
	}
	return nil, vm.TypeError("value is not iterable")
}

// IteratorNext calls an iterator's next() and unpacks {value, done}.
func (vm *VM) IteratorNext(iter *object.Object) (value.Value, bool, *object.Exception) {
	nextFn, exc := iter.Get(vm, shape.StringKey("next"), value.FromObject(iter))
	if exc != nil {
		return value.Undefined, false, exc
	}
	fo, ok := nextFn.AsObject().(*object.Object)
	if !nextFn.IsObject() || !ok || !fo.IsCallable() {
		return value.Undefined, false, vm.TypeError("iterator.next is not a function")
	}
	res, exc := vm.Call(fo, value.FromObject(iter), nil)
	if exc != nil {
		return value.Undefined, false, exc
	}
	ro, ok := res.AsObject().(*object.Object)
	if !res.IsObject() || !ok {
		return value.Undefined, false, vm.TypeError("iterator result is not an object")
	}
	doneVal, exc := ro.Get(vm, shape.StringKey("done"), res)
	if exc != nil {
		return value.Undefined, false, exc
	}
	valVal, exc := ro.Get(vm, shape.StringKey("value"), res)
	if exc != nil {
		return value.Undefined, false, exc
	}
	return valVal, doneVal.ToBoolean(), nil
}

// IteratorClose calls an iterator's return() method, if present,
// ignoring a missing method (abrupt-completion closing that the spec's
// IteratorClose performs best-effort).
func (vm *VM) IteratorClose(iter *object.Object) {
	retFn, exc := iter.Get(vm, shape.StringKey("return"), value.FromObject(iter))
	if exc != nil || !retFn.IsObject() {
		return
	}
	if fo, ok := retFn.AsObject().(*object.Object); ok && fo.IsCallable() {
		vm.Call(fo, value.FromObject(iter), nil)
	}
}
