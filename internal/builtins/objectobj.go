package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// bootstrapObjectAndFunction builds %Object.prototype% and
// %Function.prototype% together, since every other intrinsic's own
// methods are FunctionPrototype instances and every prototype object
// (including FunctionPrototype itself) chains to ObjectPrototype.
func bootstrapObjectAndFunction(r *realm.Realm) {
	objProto := object.New(nil, object.DataOrdinary, nil, object.Ordinary)
	r.Intrinsics.ObjectPrototype = objProto

	fnProto := object.New(objProto, object.DataFunction, &vm.NativeFunctionData{Name: "", Call: func(vm *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return value.Undefined, nil
	}}, vm.CallableMethods)
	r.Intrinsics.FunctionPrototype = fnProto
	defValue(r, fnProto, "name", value.FromGoString(""), false, false, true)
	defValue(r, fnProto, "length", value.FromInt32(0), false, false, true)

	method(r, objProto, "hasOwnProperty", 1, objectHasOwnProperty)
	method(r, objProto, "isPrototypeOf", 1, objectIsPrototypeOf)
	method(r, objProto, "propertyIsEnumerable", 1, objectPropertyIsEnumerable)
	method(r, objProto, "toString", 0, objectToString)
	method(r, objProto, "toLocaleString", 0, objectToString)
	method(r, objProto, "valueOf", 0, func(vm *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return this, nil
	})

	method(r, fnProto, "call", 1, functionCall)
	method(r, fnProto, "apply", 2, functionApply)
	method(r, fnProto, "bind", 1, functionBind)
	method(r, fnProto, "toString", 0, functionToString)

	ctor := ctorObject(r, "Object", 1, objProto, objectCall, objectConstruct)
	r.Intrinsics.ObjectConstructor = ctor
	method(r, ctor, "keys", 1, objectKeys)
	method(r, ctor, "values", 1, objectValues)
	method(r, ctor, "entries", 1, objectEntries)
	method(r, ctor, "assign", 2, objectAssign)
	method(r, ctor, "freeze", 1, objectFreeze)
	method(r, ctor, "isFrozen", 1, objectIsFrozen)
	method(r, ctor, "seal", 1, objectSeal)
	method(r, ctor, "preventExtensions", 1, objectPreventExtensions)
	method(r, ctor, "isExtensible", 1, objectIsExtensible)
	method(r, ctor, "create", 2, objectCreate)
	method(r, ctor, "getPrototypeOf", 1, objectGetPrototypeOf)
	method(r, ctor, "setPrototypeOf", 2, objectSetPrototypeOf)
	method(r, ctor, "defineProperty", 3, objectDefineProperty)
	method(r, ctor, "defineProperties", 2, objectDefineProperties)
	method(r, ctor, "getOwnPropertyNames", 1, objectGetOwnPropertyNames)
	method(r, ctor, "getOwnPropertyDescriptor", 2, objectGetOwnPropertyDescriptor)
	method(r, ctor, "fromEntries", 1, objectFromEntries)

	ctorFn := ctorObject(r, "Function", 1, fnProto, functionCallCtor, functionConstructCtor)
	r.Intrinsics.FunctionConstructor = ctorFn
}

func objectCall(vm *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if v.IsNullish() {
		return value.FromObject(vm.NewPlainObject()), nil
	}
	return v, nil
}

func objectConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if v.IsObject() {
		return v, nil
	}
	return value.FromObject(vmc.NewPlainObject()), nil
}

func objectHasOwnProperty(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, this, "Object.prototype.hasOwnProperty")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	desc, exc := o.GetOwnProperty(vmc, key)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(desc != nil), nil
}

func objectIsPrototypeOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if !v.IsObject() {
		return value.FromBool(false), nil
	}
	target, ok := v.AsObject().(*object.Object)
	if !ok {
		return value.FromBool(false), nil
	}
	for {
		proto, exc := target.GetPrototypeOf(vmc)
		if exc != nil {
			return value.Undefined, exc
		}
		if proto == nil {
			return value.FromBool(false), nil
		}
		po, ok := proto.(*object.Object)
		if !ok {
			return value.FromBool(false), nil
		}
		if thisO, ok := this.AsObject().(*object.Object); ok && po == thisO {
			return value.FromBool(true), nil
		}
		target = po
	}
}

func objectPropertyIsEnumerable(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, this, "Object.prototype.propertyIsEnumerable")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	desc, exc := o.GetOwnProperty(vmc, key)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(desc != nil && desc.HasEnum && desc.Enumerable), nil
}

func objectToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	if this.IsUndefined() {
		return value.FromGoString("[object Undefined]"), nil
	}
	if this.IsNull() {
		return value.FromGoString("[object Null]"), nil
	}
	tag := "Object"
	if o, ok := this.AsObject().(*object.Object); this.IsObject() && ok {
		tag = o.ClassName()
		tagVal, exc := o.Get(vmc, shape.SymbolKey(vmc.Realm.Symbols.ToStringTag), this)
		if exc == nil && tagVal.IsString() {
			tag = tagVal.AsString().GoString()
		}
	}
	return value.FromGoString("[object " + tag + "]"), nil
}

func objectKeys(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, arg(args, 0), "Object.keys")
	if exc != nil {
		return value.Undefined, exc
	}
	keys, exc := enumerableStringKeys(vmc, o)
	if exc != nil {
		return value.Undefined, exc
	}
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = value.FromGoString(k.String())
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func objectValues(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, arg(args, 0), "Object.values")
	if exc != nil {
		return value.Undefined, exc
	}
	keys, exc := enumerableStringKeys(vmc, o)
	if exc != nil {
		return value.Undefined, exc
	}
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		v, exc := o.Get(vmc, k, value.FromObject(o))
		if exc != nil {
			return value.Undefined, exc
		}
		out[i] = v
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func objectEntries(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, arg(args, 0), "Object.entries")
	if exc != nil {
		return value.Undefined, exc
	}
	keys, exc := enumerableStringKeys(vmc, o)
	if exc != nil {
		return value.Undefined, exc
	}
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		v, exc := o.Get(vmc, k, value.FromObject(o))
		if exc != nil {
			return value.Undefined, exc
		}
		out[i] = value.FromObject(vmc.NewArray([]value.Value{value.FromGoString(k.String()), v}))
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func objectFromEntries(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	iter, exc := vmc.GetIterator(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	out := vmc.NewPlainObject()
	for {
		entry, done, exc := vmc.IteratorNext(iter)
		if exc != nil {
			return value.Undefined, exc
		}
		if done {
			break
		}
		eo, ok := entry.AsObject().(*object.Object)
		if !entry.IsObject() || !ok {
			return value.Undefined, vmc.TypeError("iterator result is not an entry object")
		}
		k, exc := eo.Get(vmc, shape.IndexKey(0), entry)
		if exc != nil {
			return value.Undefined, exc
		}
		v, exc := eo.Get(vmc, shape.IndexKey(1), entry)
		if exc != nil {
			return value.Undefined, exc
		}
		key, exc := vmc.ToPropertyKey(k)
		if exc != nil {
			return value.Undefined, exc
		}
		out.DefineOwnProperty(vmc, key, object.DataDescriptor(v, true, true, true))
	}
	return value.FromObject(out), nil
}

// enumerableStringKeys filters OwnPropertyKeys down to own enumerable
// string keys, the selection Object.keys/values/entries and
// Object.defineProperties share.
func enumerableStringKeys(vmc *vm.VM, o *object.Object) ([]shape.Key, *object.Exception) {
	keys, exc := o.OwnPropertyKeys(vmc)
	if exc != nil {
		return nil, exc
	}
	out := keys[:0]
	for _, k := range keys {
		if k.Kind() == shape.KeySymbol {
			continue
		}
		desc, exc := o.GetOwnProperty(vmc, k)
		if exc != nil {
			return nil, exc
		}
		if desc != nil && desc.HasEnum && desc.Enumerable {
			out = append(out, k)
		}
	}
	return out, nil
}

func objectAssign(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	target, exc := thisObject(vmc, arg(args, 0), "Object.assign")
	if exc != nil {
		return value.Undefined, exc
	}
	for _, src := range args[min(1, len(args)):] {
		if !src.IsObject() {
			continue
		}
		so, ok := src.AsObject().(*object.Object)
		if !ok {
			continue
		}
		keys, exc := so.OwnPropertyKeys(vmc)
		if exc != nil {
			return value.Undefined, exc
		}
		for _, k := range keys {
			desc, exc := so.GetOwnProperty(vmc, k)
			if exc != nil {
				return value.Undefined, exc
			}
			if desc == nil || !desc.HasEnum || !desc.Enumerable {
				continue
			}
			v, exc := so.Get(vmc, k, src)
			if exc != nil {
				return value.Undefined, exc
			}
			if _, exc := target.Set(vmc, k, v, value.FromObject(target), true); exc != nil {
				return value.Undefined, exc
			}
		}
	}
	return value.FromObject(target), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func objectFreeze(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return v, nil
	}
	keys, exc := o.OwnPropertyKeys(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	for _, k := range keys {
		desc, exc := o.GetOwnProperty(vmc, k)
		if exc != nil {
			return value.Undefined, exc
		}
		if desc == nil {
			continue
		}
		upd := object.Descriptor{Configurable: false, HasConfig: true}
		if desc.IsData() {
			upd.Writable, upd.HasWritable = false, true
		}
		if _, exc := o.DefineOwnProperty(vmc, k, upd); exc != nil {
			return value.Undefined, exc
		}
	}
	o.PreventExtensions(vmc)
	return v, nil
}

func objectIsFrozen(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return value.FromBool(true), nil
	}
	ext, exc := o.IsExtensible(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	if ext {
		return value.FromBool(false), nil
	}
	keys, exc := o.OwnPropertyKeys(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	for _, k := range keys {
		desc, exc := o.GetOwnProperty(vmc, k)
		if exc != nil {
			return value.Undefined, exc
		}
		if desc == nil {
			continue
		}
		if desc.Configurable {
			return value.FromBool(false), nil
		}
		if desc.IsData() && desc.Writable {
			return value.FromBool(false), nil
		}
	}
	return value.FromBool(true), nil
}

func objectSeal(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return v, nil
	}
	keys, exc := o.OwnPropertyKeys(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	for _, k := range keys {
		if _, exc := o.DefineOwnProperty(vmc, k, object.Descriptor{Configurable: false, HasConfig: true}); exc != nil {
			return value.Undefined, exc
		}
	}
	o.PreventExtensions(vmc)
	return v, nil
}

func objectPreventExtensions(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if o, ok := v.AsObject().(*object.Object); v.IsObject() && ok {
		o.PreventExtensions(vmc)
	}
	return v, nil
}

func objectIsExtensible(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return value.FromBool(false), nil
	}
	ext, exc := o.IsExtensible(vmc)
	return value.FromBool(ext), exc
}

func objectCreate(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	protoArg := arg(args, 0)
	var proto object.Prototype
	if protoArg.IsObject() {
		if po, ok := protoArg.AsObject().(*object.Object); ok {
			proto = po
		}
	} else if !protoArg.IsNull() {
		return value.Undefined, vmc.TypeError("Object prototype may only be an Object or null")
	}
	o := object.New(proto, object.DataOrdinary, nil, object.Ordinary)
	if props := arg(args, 1); props.IsObject() {
		if _, exc := objectDefineProperties(vmc, value.Undefined, []value.Value{value.FromObject(o), props}); exc != nil {
			return value.Undefined, exc
		}
	}
	return value.FromObject(o), nil
}

func objectGetPrototypeOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, arg(args, 0), "Object.getPrototypeOf")
	if exc != nil {
		return value.Undefined, exc
	}
	proto, exc := o.GetPrototypeOf(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	if proto == nil {
		return value.Null, nil
	}
	if po, ok := proto.(*object.Object); ok {
		return value.FromObject(po), nil
	}
	return value.Null, nil
}

func objectSetPrototypeOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return v, nil
	}
	protoArg := arg(args, 1)
	var proto object.Prototype
	if protoArg.IsObject() {
		if po, ok := protoArg.AsObject().(*object.Object); ok {
			proto = po
		}
	} else if !protoArg.IsNull() {
		return value.Undefined, vmc.TypeError("Object prototype may only be an Object or null")
	}
	if _, exc := o.SetPrototypeOf(vmc, proto); exc != nil {
		return value.Undefined, exc
	}
	return v, nil
}

func objectDefineProperty(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return value.Undefined, vmc.TypeError("Object.defineProperty called on non-object")
	}
	key, exc := vmc.ToPropertyKey(arg(args, 1))
	if exc != nil {
		return value.Undefined, exc
	}
	desc, exc := toPropertyDescriptor(vmc, arg(args, 2))
	if exc != nil {
		return value.Undefined, exc
	}
	ok2, exc := o.DefineOwnProperty(vmc, key, desc)
	if exc != nil {
		return value.Undefined, exc
	}
	if !ok2 {
		return value.Undefined, vmc.TypeError("Cannot define property %s", key.String())
	}
	return v, nil
}

func objectDefineProperties(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return value.Undefined, vmc.TypeError("Object.defineProperties called on non-object")
	}
	propsVal := arg(args, 1)
	props, ok := propsVal.AsObject().(*object.Object)
	if !propsVal.IsObject() || !ok {
		return value.Undefined, vmc.TypeError("Object.defineProperties properties must be an object")
	}
	keys, exc := enumerableStringKeys(vmc, props)
	if exc != nil {
		return value.Undefined, exc
	}
	for _, k := range keys {
		descVal, exc := props.Get(vmc, k, propsVal)
		if exc != nil {
			return value.Undefined, exc
		}
		desc, exc := toPropertyDescriptor(vmc, descVal)
		if exc != nil {
			return value.Undefined, exc
		}
		if _, exc := o.DefineOwnProperty(vmc, k, desc); exc != nil {
			return value.Undefined, exc
		}
	}
	return v, nil
}

// toPropertyDescriptor implements ToPropertyDescriptor: reads the
// value/writable/get/set/enumerable/configurable fields a descriptor
// object may carry, leaving each absent field unset in the result so
// DefineOwnProperty's partial-merge semantics apply correctly.
func toPropertyDescriptor(vmc *vm.VM, v value.Value) (object.Descriptor, *object.Exception) {
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return object.Descriptor{}, vmc.TypeError("Property description must be an object")
	}
	var d object.Descriptor
	if has, _ := o.HasProperty(vmc, shape.StringKey("value")); has {
		val, exc := o.Get(vmc, shape.StringKey("value"), v)
		if exc != nil {
			return d, exc
		}
		d.Value, d.HasValue = val, true
	}
	if has, _ := o.HasProperty(vmc, shape.StringKey("writable")); has {
		val, exc := o.Get(vmc, shape.StringKey("writable"), v)
		if exc != nil {
			return d, exc
		}
		d.Writable, d.HasWritable = val.ToBoolean(), true
	}
	if has, _ := o.HasProperty(vmc, shape.StringKey("enumerable")); has {
		val, exc := o.Get(vmc, shape.StringKey("enumerable"), v)
		if exc != nil {
			return d, exc
		}
		d.Enumerable, d.HasEnum = val.ToBoolean(), true
	}
	if has, _ := o.HasProperty(vmc, shape.StringKey("configurable")); has {
		val, exc := o.Get(vmc, shape.StringKey("configurable"), v)
		if exc != nil {
			return d, exc
		}
		d.Configurable, d.HasConfig = val.ToBoolean(), true
	}
	if has, _ := o.HasProperty(vmc, shape.StringKey("get")); has {
		val, exc := o.Get(vmc, shape.StringKey("get"), v)
		if exc != nil {
			return d, exc
		}
		if fo, ok := val.AsObject().(*object.Object); val.IsObject() && ok {
			d.Get, d.HasGet = fo, true
		} else if !val.IsUndefined() {
			return d, vmc.TypeError("Getter must be a function")
		} else {
			d.HasGet = true
		}
	}
	if has, _ := o.HasProperty(vmc, shape.StringKey("set")); has {
		val, exc := o.Get(vmc, shape.StringKey("set"), v)
		if exc != nil {
			return d, exc
		}
		if fo, ok := val.AsObject().(*object.Object); val.IsObject() && ok {
			d.Set, d.HasSet = fo, true
		} else if !val.IsUndefined() {
			return d, vmc.TypeError("Setter must be a function")
		} else {
			d.HasSet = true
		}
	}
	if (d.HasGet || d.HasSet) && d.HasValue {
		return d, vmc.TypeError("Invalid property descriptor: both accessor and data descriptors")
	}
	return d, nil
}

func objectGetOwnPropertyNames(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, arg(args, 0), "Object.getOwnPropertyNames")
	if exc != nil {
		return value.Undefined, exc
	}
	keys, exc := o.OwnPropertyKeys(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	var out []value.Value
	for _, k := range keys {
		if k.Kind() != shape.KeySymbol {
			out = append(out, value.FromGoString(k.String()))
		}
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func objectGetOwnPropertyDescriptor(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, arg(args, 0), "Object.getOwnPropertyDescriptor")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 1))
	if exc != nil {
		return value.Undefined, exc
	}
	desc, exc := o.GetOwnProperty(vmc, key)
	if exc != nil {
		return value.Undefined, exc
	}
	if desc == nil {
		return value.Undefined, nil
	}
	return value.FromObject(descriptorToObject(vmc, *desc)), nil
}

// descriptorToObject implements FromPropertyDescriptor: the inverse of
// toPropertyDescriptor, used both by Object.getOwnPropertyDescriptor and
// by the Proxy defineProperty trap wrapper, which hands the handler the
// same plain-object shape as the ordinary reflection API does.
func descriptorToObject(vmc *vm.VM, desc object.Descriptor) *object.Object {
	out := vmc.NewPlainObject()
	if desc.IsAccessor() {
		var getV, setV value.Value = value.Undefined, value.Undefined
		if desc.Get != nil {
			getV = value.FromObject(desc.Get)
		}
		if desc.Set != nil {
			setV = value.FromObject(desc.Set)
		}
		out.DefineOwnProperty(vmc, shape.StringKey("get"), object.DataDescriptor(getV, true, true, true))
		out.DefineOwnProperty(vmc, shape.StringKey("set"), object.DataDescriptor(setV, true, true, true))
	} else {
		out.DefineOwnProperty(vmc, shape.StringKey("value"), object.DataDescriptor(desc.Value, true, true, true))
		out.DefineOwnProperty(vmc, shape.StringKey("writable"), object.DataDescriptor(value.FromBool(desc.Writable), true, true, true))
	}
	out.DefineOwnProperty(vmc, shape.StringKey("enumerable"), object.DataDescriptor(value.FromBool(desc.Enumerable), true, true, true))
	out.DefineOwnProperty(vmc, shape.StringKey("configurable"), object.DataDescriptor(value.FromBool(desc.Configurable), true, true, true))
	return out
}
