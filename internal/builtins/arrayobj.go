package builtins

import (
	"sort"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

func bootstrapArray(r *realm.Realm) {
	proto := object.New(r.Intrinsics.ObjectPrototype, object.DataArray, &object.ArrayData{}, object.ArrayMethods)
	proto.DefineOwnProperty(nullInterp{}, object.LengthKey, object.DataDescriptor(value.FromNumber(0), true, false, false))
	r.Intrinsics.ArrayPrototype = proto

	method(r, proto, "push", 1, arrayPush)
	method(r, proto, "pop", 0, arrayPop)
	method(r, proto, "shift", 0, arrayShift)
	method(r, proto, "unshift", 1, arrayUnshift)
	method(r, proto, "slice", 2, arraySlice)
	method(r, proto, "splice", 2, arraySplice)
	method(r, proto, "concat", 1, arrayConcat)
	method(r, proto, "join", 1, arrayJoin)
	method(r, proto, "toString", 0, arrayJoin)
	method(r, proto, "forEach", 1, arrayForEach)
	method(r, proto, "map", 1, arrayMap)
	method(r, proto, "filter", 1, arrayFilter)
	method(r, proto, "reduce", 1, arrayReduce)
	method(r, proto, "reduceRight", 1, arrayReduceRight)
	method(r, proto, "find", 1, arrayFind)
	method(r, proto, "findIndex", 1, arrayFindIndex)
	method(r, proto, "includes", 1, arrayIncludes)
	method(r, proto, "indexOf", 1, arrayIndexOf)
	method(r, proto, "lastIndexOf", 1, arrayLastIndexOf)
	method(r, proto, "some", 1, arraySome)
	method(r, proto, "every", 1, arrayEvery)
	method(r, proto, "reverse", 0, arrayReverse)
	method(r, proto, "sort", 1, arraySort)
	method(r, proto, "fill", 1, arrayFill)
	method(r, proto, "flat", 0, arrayFlat)
	method(r, proto, "flatMap", 1, arrayFlatMap)
	method(r, proto, "values", 0, arrayValues)
	method(r, proto, "keys", 0, arrayKeys)
	method(r, proto, "entries", 0, arrayEntries)
	symbolMethod(r, proto, r.Symbols.Iterator, "[Symbol.iterator]", 0, arrayValues)

	ctor := ctorObject(r, "Array", 1, proto, arrayCall, arrayConstruct)
	r.Intrinsics.ArrayConstructor = ctor
	method(r, ctor, "isArray", 1, arrayIsArray)
	method(r, ctor, "from", 1, arrayFrom)
	method(r, ctor, "of", 0, arrayOf)
}

func thisArrayLike(vmc *vm.VM, this value.Value, what string) (*object.Object, int, *object.Exception) {
	o, exc := thisObject(vmc, this, what)
	if exc != nil {
		return nil, 0, exc
	}
	lenVal, exc := o.Get(vmc, object.LengthKey, this)
	if exc != nil {
		return nil, 0, exc
	}
	n, _ := lenVal.ToNumber()
	return o, int(n), nil
}

func setLength(vmc *vm.VM, o *object.Object, n int) {
	o.Set(vmc, object.LengthKey, value.FromNumber(float64(n)), value.FromObject(o), true)
}

func arrayCall(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return arrayConstruct(vmc, args, nil)
}

func arrayConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	if len(args) == 1 {
		if n, ok := args[0].ToNumber(); ok && args[0].IsNumber() {
			if n < 0 || n != float64(uint32(n)) {
				return value.Undefined, vmc.RangeError("Invalid array length")
			}
			arr := vmc.NewArray(nil)
			setLength(vmc, arr, int(n))
			return value.FromObject(arr), nil
		}
	}
	return value.FromObject(vmc.NewArray(args)), nil
}

func arrayIsArray(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	return value.FromBool(v.IsObject() && ok && o.DataKindOf() == object.DataArray), nil
}

func arrayFrom(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	src := arg(args, 0)
	mapFn, _ := arg(args, 1).AsObject().(*object.Object)
	useMap := arg(args, 1).IsObject() && mapFn != nil && mapFn.IsCallable()

	if has, _ := hasIteratorMethod(vmc, src); has {
		iter, exc := vmc.GetIterator(src)
		if exc != nil {
			return value.Undefined, exc
		}
		var out []value.Value
		idx := 0
		for {
			v, done, exc := vmc.IteratorNext(iter)
			if exc != nil {
				return value.Undefined, exc
			}
			if done {
				break
			}
			if useMap {
				v, exc = vmc.Call(mapFn, value.Undefined, []value.Value{v, value.FromInt32(int32(idx))})
				if exc != nil {
					return value.Undefined, exc
				}
			}
			out = append(out, v)
			idx++
		}
		return value.FromObject(vmc.NewArray(out)), nil
	}
	o, n, exc := thisArrayLike(vmc, src, "Array.from")
	if exc != nil {
		return value.Undefined, exc
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), src)
		if exc != nil {
			return value.Undefined, exc
		}
		if useMap {
			v, exc = vmc.Call(mapFn, value.Undefined, []value.Value{v, value.FromInt32(int32(i))})
			if exc != nil {
				return value.Undefined, exc
			}
		}
		out[i] = v
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func hasIteratorMethod(vmc *vm.VM, v value.Value) (bool, *object.Exception) {
	if !v.IsObject() && !v.IsString() {
		return false, nil
	}
	if v.IsString() {
		return true, nil
	}
	o, ok := v.AsObject().(*object.Object)
	if !ok {
		return false, nil
	}
	m, exc := o.Get(vmc, shape.SymbolKey(vmc.Realm.Symbols.Iterator), v)
	if exc != nil {
		return false, exc
	}
	mo, ok := m.AsObject().(*object.Object)
	return m.IsObject() && ok && mo.IsCallable(), nil
}

func arrayOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return value.FromObject(vmc.NewArray(args)), nil
}

func arrayPush(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.push")
	if exc != nil {
		return value.Undefined, exc
	}
	for i, v := range args {
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(n+i)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
	}
	newLen := n + len(args)
	setLength(vmc, o, newLen)
	return value.FromNumber(float64(newLen)), nil
}

func arrayPop(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.pop")
	if exc != nil {
		return value.Undefined, exc
	}
	if n == 0 {
		return value.Undefined, nil
	}
	v, exc := o.Get(vmc, shape.IndexKey(uint32(n-1)), this)
	if exc != nil {
		return value.Undefined, exc
	}
	o.Delete(vmc, shape.IndexKey(uint32(n-1)))
	setLength(vmc, o, n-1)
	return v, nil
}

func arrayShift(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.shift")
	if exc != nil {
		return value.Undefined, exc
	}
	if n == 0 {
		return value.Undefined, nil
	}
	first, exc := o.Get(vmc, shape.IndexKey(0), this)
	if exc != nil {
		return value.Undefined, exc
	}
	for i := 1; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(i-1)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
	}
	o.Delete(vmc, shape.IndexKey(uint32(n-1)))
	setLength(vmc, o, n-1)
	return first, nil
}

func arrayUnshift(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.unshift")
	if exc != nil {
		return value.Undefined, exc
	}
	k := len(args)
	for i := n - 1; i >= 0; i-- {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(i+k)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
	}
	for i, v := range args {
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(i)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
	}
	newLen := n + k
	setLength(vmc, o, newLen)
	return value.FromNumber(float64(newLen)), nil
}

func relativeIndex(n int, v value.Value, dflt int) int {
	if v.IsUndefined() {
		return dflt
	}
	f, _ := v.ToNumber()
	i := int(f)
	if i < 0 {
		i += n
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}

func arraySlice(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.slice")
	if exc != nil {
		return value.Undefined, exc
	}
	start := relativeIndex(n, arg(args, 0), 0)
	end := relativeIndex(n, arg(args, 1), n)
	var out []value.Value
	for i := start; i < end; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		out = append(out, v)
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func arraySplice(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.splice")
	if exc != nil {
		return value.Undefined, exc
	}
	start := relativeIndex(n, arg(args, 0), 0)
	deleteCount := n - start
	if len(args) >= 2 {
		f, _ := arg(args, 1).ToNumber()
		deleteCount = int(f)
		if deleteCount < 0 {
			deleteCount = 0
		}
		if deleteCount > n-start {
			deleteCount = n - start
		}
	}
	items := callArgs(args, 2)
	var removed []value.Value
	for i := 0; i < deleteCount; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(start+i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		removed = append(removed, v)
	}
	tail := make([]value.Value, 0, n-start-deleteCount)
	for i := start + deleteCount; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		tail = append(tail, v)
	}
	idx := start
	for _, v := range items {
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(idx)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
		idx++
	}
	for _, v := range tail {
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(idx)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
		idx++
	}
	newLen := idx
	for i := newLen; i < n; i++ {
		o.Delete(vmc, shape.IndexKey(uint32(i)))
	}
	setLength(vmc, o, newLen)
	return value.FromObject(vmc.NewArray(removed)), nil
}

func arrayConcat(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	var out []value.Value
	append1 := func(v value.Value) *object.Exception {
		if o, ok := v.AsObject().(*object.Object); v.IsObject() && ok && o.DataKindOf() == object.DataArray {
			items, exc := vmc.ArrayElements(o)
			if exc != nil {
				return exc
			}
			out = append(out, items...)
			return nil
		}
		out = append(out, v)
		return nil
	}
	if exc := append1(this); exc != nil {
		return value.Undefined, exc
	}
	for _, a := range args {
		if exc := append1(a); exc != nil {
			return value.Undefined, exc
		}
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func arrayJoin(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.join")
	if exc != nil {
		return value.Undefined, exc
	}
	sep := ","
	if s := arg(args, 0); !s.IsUndefined() {
		sep, exc = vmc.ToJSString(s)
		if exc != nil {
			return value.Undefined, exc
		}
	}
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += sep
		}
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		if v.IsNullish() {
			continue
		}
		s, exc := vmc.ToJSString(v)
		if exc != nil {
			return value.Undefined, exc
		}
		out += s
	}
	return value.FromGoString(out), nil
}

// iterateCallback runs fn(element, index, this) over every own index of
// o, the shared walk forEach/map/filter/some/every/find all specialize.
func iterateCallback(vmc *vm.VM, o *object.Object, this value.Value, n int, fn *object.Object, thisArg value.Value, visit func(i int, v, result value.Value) (stop bool)) *object.Exception {
	for i := 0; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return exc
		}
		res, exc := vmc.Call(fn, thisArg, []value.Value{v, value.FromInt32(int32(i)), this})
		if exc != nil {
			return exc
		}
		if visit(i, v, res) {
			break
		}
	}
	return nil
}

func callbackFn(vmc *vm.VM, args []value.Value, what string) (*object.Object, *object.Exception) {
	fo, ok := arg(args, 0).AsObject().(*object.Object)
	if !arg(args, 0).IsObject() || !ok || !fo.IsCallable() {
		return nil, vmc.TypeError("%s callback is not a function", what)
	}
	return fo, nil
}

func arrayForEach(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.forEach")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.forEach")
	if exc != nil {
		return value.Undefined, exc
	}
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool { return false })
	return value.Undefined, exc
}

func arrayMap(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.map")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.map")
	if exc != nil {
		return value.Undefined, exc
	}
	out := make([]value.Value, n)
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool {
		out[i] = result
		return false
	})
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func arrayFilter(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.filter")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.filter")
	if exc != nil {
		return value.Undefined, exc
	}
	var out []value.Value
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool {
		if result.ToBoolean() {
			out = append(out, v)
		}
		return false
	})
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func arrayFind(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.find")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.find")
	if exc != nil {
		return value.Undefined, exc
	}
	found := value.Undefined
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool {
		if result.ToBoolean() {
			found = v
			return true
		}
		return false
	})
	return found, exc
}

func arrayFindIndex(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.findIndex")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.findIndex")
	if exc != nil {
		return value.Undefined, exc
	}
	idx := -1
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool {
		if result.ToBoolean() {
			idx = i
			return true
		}
		return false
	})
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(idx)), nil
}

func arraySome(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.some")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.some")
	if exc != nil {
		return value.Undefined, exc
	}
	found := false
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool {
		if result.ToBoolean() {
			found = true
			return true
		}
		return false
	})
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(found), nil
}

func arrayEvery(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.every")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.every")
	if exc != nil {
		return value.Undefined, exc
	}
	all := true
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool {
		if !result.ToBoolean() {
			all = false
			return true
		}
		return false
	})
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(all), nil
}

func arrayReduce(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.reduce")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.reduce")
	if exc != nil {
		return value.Undefined, exc
	}
	i := 0
	var acc value.Value
	if len(args) >= 2 {
		acc = args[1]
	} else {
		if n == 0 {
			return value.Undefined, vmc.TypeError("Reduce of empty array with no initial value")
		}
		acc, exc = o.Get(vmc, shape.IndexKey(0), this)
		if exc != nil {
			return value.Undefined, exc
		}
		i = 1
	}
	for ; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		acc, exc = vmc.Call(fn, value.Undefined, []value.Value{acc, v, value.FromInt32(int32(i)), this})
		if exc != nil {
			return value.Undefined, exc
		}
	}
	return acc, nil
}

func arrayReduceRight(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.reduceRight")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.reduceRight")
	if exc != nil {
		return value.Undefined, exc
	}
	i := n - 1
	var acc value.Value
	if len(args) >= 2 {
		acc = args[1]
	} else {
		if n == 0 {
			return value.Undefined, vmc.TypeError("Reduce of empty array with no initial value")
		}
		acc, exc = o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		i--
	}
	for ; i >= 0; i-- {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		acc, exc = vmc.Call(fn, value.Undefined, []value.Value{acc, v, value.FromInt32(int32(i)), this})
		if exc != nil {
			return value.Undefined, exc
		}
	}
	return acc, nil
}

func arrayIncludes(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.includes")
	if exc != nil {
		return value.Undefined, exc
	}
	target := arg(args, 0)
	for i := 0; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		if value.SameValueZero(v, target) {
			return value.FromBool(true), nil
		}
	}
	return value.FromBool(false), nil
}

func arrayIndexOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.indexOf")
	if exc != nil {
		return value.Undefined, exc
	}
	target := arg(args, 0)
	start := relativeIndex(n, arg(args, 1), 0)
	for i := start; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		if value.StrictEquals(v, target) {
			return value.FromInt32(int32(i)), nil
		}
	}
	return value.FromInt32(-1), nil
}

func arrayLastIndexOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.lastIndexOf")
	if exc != nil {
		return value.Undefined, exc
	}
	target := arg(args, 0)
	for i := n - 1; i >= 0; i-- {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		if value.StrictEquals(v, target) {
			return value.FromInt32(int32(i)), nil
		}
	}
	return value.FromInt32(-1), nil
}

func arrayReverse(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.reverse")
	if exc != nil {
		return value.Undefined, exc
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		vi, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		vj, exc := o.Get(vmc, shape.IndexKey(uint32(j)), this)
		if exc != nil {
			return value.Undefined, exc
		}
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(i)), vj, this, true); exc != nil {
			return value.Undefined, exc
		}
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(j)), vi, this, true); exc != nil {
			return value.Undefined, exc
		}
	}
	return this, nil
}

func arraySort(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.sort")
	if exc != nil {
		return value.Undefined, exc
	}
	cmpFn, _ := arg(args, 0).AsObject().(*object.Object)
	useCmp := arg(args, 0).IsObject() && cmpFn != nil && cmpFn.IsCallable()

	items := make([]value.Value, n)
	for i := 0; i < n; i++ {
		items[i], exc = o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return value.Undefined, exc
		}
	}
	var sortExc *object.Exception
	sort.SliceStable(items, func(i, j int) bool {
		if sortExc != nil {
			return false
		}
		a, b := items[i], items[j]
		if a.IsUndefined() {
			return false
		}
		if b.IsUndefined() {
			return true
		}
		if useCmp {
			res, exc := vmc.Call(cmpFn, value.Undefined, []value.Value{a, b})
			if exc != nil {
				sortExc = exc
				return false
			}
			n, _ := vmc.ToNumber(res)
			return n < 0
		}
		sa, exc := vmc.ToJSString(a)
		if exc != nil {
			sortExc = exc
			return false
		}
		sb, exc := vmc.ToJSString(b)
		if exc != nil {
			sortExc = exc
			return false
		}
		return sa < sb
	})
	if sortExc != nil {
		return value.Undefined, sortExc
	}
	for i, v := range items {
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(i)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
	}
	return this, nil
}

func arrayFill(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.fill")
	if exc != nil {
		return value.Undefined, exc
	}
	v := arg(args, 0)
	start := relativeIndex(n, arg(args, 1), 0)
	end := relativeIndex(n, arg(args, 2), n)
	for i := start; i < end; i++ {
		if _, exc := o.Set(vmc, shape.IndexKey(uint32(i)), v, this, true); exc != nil {
			return value.Undefined, exc
		}
	}
	return this, nil
}

func arrayFlat(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	depth := 1
	if d := arg(args, 0); !d.IsUndefined() {
		f, _ := d.ToNumber()
		depth = int(f)
	}
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.flat")
	if exc != nil {
		return value.Undefined, exc
	}
	out, exc := flattenInto(vmc, o, this, n, depth)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func flattenInto(vmc *vm.VM, o *object.Object, this value.Value, n, depth int) ([]value.Value, *object.Exception) {
	var out []value.Value
	for i := 0; i < n; i++ {
		v, exc := o.Get(vmc, shape.IndexKey(uint32(i)), this)
		if exc != nil {
			return nil, exc
		}
		if depth > 0 {
			if vo, ok := v.AsObject().(*object.Object); v.IsObject() && ok && vo.DataKindOf() == object.DataArray {
				items, exc := vmc.ArrayElements(vo)
				if exc != nil {
					return nil, exc
				}
				sub, exc := flattenInto(vmc, vo, v, len(items), depth-1)
				if exc != nil {
					return nil, exc
				}
				out = append(out, sub...)
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func arrayFlatMap(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.flatMap")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Array.prototype.flatMap")
	if exc != nil {
		return value.Undefined, exc
	}
	var out []value.Value
	exc = iterateCallback(vmc, o, this, n, fn, arg(args, 1), func(i int, v, result value.Value) bool {
		if ro, ok := result.AsObject().(*object.Object); result.IsObject() && ok && ro.DataKindOf() == object.DataArray {
			items, e := vmc.ArrayElements(ro)
			if e != nil {
				exc = e
				return true
			}
			out = append(out, items...)
			return false
		}
		out = append(out, result)
		return false
	})
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func arrayIterValues(vmc *vm.VM, o *object.Object, this value.Value, n int, mode int) *object.Object {
	i := 0
	return vmc.MakeNativeIterator(func() (value.Value, bool, *object.Exception) {
		if i >= n {
			return value.Undefined, true, nil
		}
		idx := i
		i++
		switch mode {
		case 0:
			v, exc := o.Get(vmc, shape.IndexKey(uint32(idx)), this)
			return v, false, exc
		case 1:
			return value.FromInt32(int32(idx)), false, nil
		default:
			v, exc := o.Get(vmc, shape.IndexKey(uint32(idx)), this)
			if exc != nil {
				return value.Undefined, false, exc
			}
			return value.FromObject(vmc.NewArray([]value.Value{value.FromInt32(int32(idx)), v})), false, nil
		}
	})
}

func arrayValues(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.values")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(arrayIterValues(vmc, o, this, n, 0)), nil
}

func arrayKeys(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.keys")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(arrayIterValues(vmc, o, this, n, 1)), nil
}

func arrayEntries(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, n, exc := thisArrayLike(vmc, this, "Array.prototype.entries")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(arrayIterValues(vmc, o, this, n, 2)), nil
}
