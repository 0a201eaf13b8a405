package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// mapEntry is one Map/Set slot. Map/Set both use SameValueZero equality
// over a flat slice rather than a Go map, since Go map keys can't carry
// arbitrary Value equality (objects compare by identity, NaN by
// SameValueZero) without a wrapper type; a flat slice keeps that
// comparison centralized in value.SameValueZero and is adequate for the
// collection sizes an embedded script realistically builds.
type mapEntry struct {
	key, val value.Value
}

// MapData is the DataMap payload.
type MapData struct {
	entries []mapEntry
}

// SetData is the DataSet payload.
type SetData struct {
	entries []value.Value
}

func bootstrapMapSet(r *realm.Realm) {
	mapProto := object.New(r.Intrinsics.ObjectPrototype, object.DataMap, nil, object.Ordinary)
	r.Intrinsics.MapPrototype = mapProto
	method(r, mapProto, "get", 1, mapGet)
	method(r, mapProto, "set", 2, mapSet)
	method(r, mapProto, "has", 1, mapHas)
	method(r, mapProto, "delete", 1, mapDelete)
	method(r, mapProto, "clear", 0, mapClear)
	method(r, mapProto, "forEach", 1, mapForEach)
	accessor(r, mapProto, "size", mapSizeGetter, nil)

	mapCtor := ctorObject(r, "Map", 0, mapProto, nil, mapConstruct)
	r.Intrinsics.MapConstructor = mapCtor

	setProto := object.New(r.Intrinsics.ObjectPrototype, object.DataSet, nil, object.Ordinary)
	r.Intrinsics.SetPrototype = setProto
	method(r, setProto, "add", 1, setAdd)
	method(r, setProto, "has", 1, setHas)
	method(r, setProto, "delete", 1, setDelete)
	method(r, setProto, "clear", 0, setClear)
	method(r, setProto, "forEach", 1, setForEach)
	accessor(r, setProto, "size", setSizeGetter, nil)

	setCtor := ctorObject(r, "Set", 0, setProto, nil, setConstruct)
	r.Intrinsics.SetConstructor = setCtor

	weakMapProto := object.New(r.Intrinsics.ObjectPrototype, object.DataWeakMap, nil, object.Ordinary)
	r.Intrinsics.WeakMapPrototype = weakMapProto
	method(r, weakMapProto, "get", 1, mapGet)
	method(r, weakMapProto, "set", 2, mapSet)
	method(r, weakMapProto, "has", 1, mapHas)
	method(r, weakMapProto, "delete", 1, mapDelete)
	r.Intrinsics.WeakMapConstructor = ctorObject(r, "WeakMap", 0, weakMapProto, nil, weakMapConstruct)

	weakSetProto := object.New(r.Intrinsics.ObjectPrototype, object.DataWeakSet, nil, object.Ordinary)
	r.Intrinsics.WeakSetPrototype = weakSetProto
	method(r, weakSetProto, "add", 1, setAdd)
	method(r, weakSetProto, "has", 1, setHas)
	method(r, weakSetProto, "delete", 1, setDelete)
	r.Intrinsics.WeakSetConstructor = ctorObject(r, "WeakSet", 0, weakSetProto, nil, weakSetConstruct)
}

func thisMapData(vmc *vm.VM, this value.Value, what string) (*object.Object, *MapData, *object.Exception) {
	o, ok := this.AsObject().(*object.Object)
	if !this.IsObject() || !ok {
		return nil, nil, vmc.TypeError("%s called on non-object", what)
	}
	md, ok := o.Data().(*MapData)
	if !ok {
		return nil, nil, vmc.TypeError("%s called on non-Map", what)
	}
	return o, md, nil
}

func thisSetData(vmc *vm.VM, this value.Value, what string) (*object.Object, *SetData, *object.Exception) {
	o, ok := this.AsObject().(*object.Object)
	if !this.IsObject() || !ok {
		return nil, nil, vmc.TypeError("%s called on non-object", what)
	}
	sd, ok := o.Data().(*SetData)
	if !ok {
		return nil, nil, vmc.TypeError("%s called on non-Set", what)
	}
	return o, sd, nil
}

func populateMap(vmc *vm.VM, md *MapData, iterable value.Value) *object.Exception {
	if iterable.IsNullish() {
		return nil
	}
	iter, exc := vmc.GetIterator(iterable)
	if exc != nil {
		return exc
	}
	for {
		entry, done, exc := vmc.IteratorNext(iter)
		if exc != nil {
			return exc
		}
		if done {
			return nil
		}
		eo, ok := entry.AsObject().(*object.Object)
		if !entry.IsObject() || !ok {
			return vmc.TypeError("iterator result is not an entry object")
		}
		items, exc := vmc.ArrayElements(eo)
		if exc != nil {
			return exc
		}
		k := arg(items, 0)
		v := arg(items, 1)
		md.entries = mapSetEntry(md.entries, k, v)
	}
}

func mapSetEntry(entries []mapEntry, k, v value.Value) []mapEntry {
	for i, e := range entries {
		if value.SameValueZero(e.key, k) {
			entries[i].val = v
			return entries
		}
	}
	return append(entries, mapEntry{k, v})
}

func mapConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	md := &MapData{}
	obj := object.New(vmc.Realm.Intrinsics.MapPrototype, object.DataMap, md, object.Ordinary)
	if exc := populateMap(vmc, md, arg(args, 0)); exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(obj), nil
}

func weakMapConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	md := &MapData{}
	obj := object.New(vmc.Realm.Intrinsics.WeakMapPrototype, object.DataWeakMap, md, object.Ordinary)
	if exc := populateMap(vmc, md, arg(args, 0)); exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(obj), nil
}

func mapGet(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, md, exc := thisMapData(vmc, this, "Map.prototype.get")
	if exc != nil {
		return value.Undefined, exc
	}
	k := arg(args, 0)
	for _, e := range md.entries {
		if value.SameValueZero(e.key, k) {
			return e.val, nil
		}
	}
	return value.Undefined, nil
}

func mapSet(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, md, exc := thisMapData(vmc, this, "Map.prototype.set")
	if exc != nil {
		return value.Undefined, exc
	}
	md.entries = mapSetEntry(md.entries, arg(args, 0), arg(args, 1))
	return this, nil
}

func mapHas(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, md, exc := thisMapData(vmc, this, "Map.prototype.has")
	if exc != nil {
		return value.Undefined, exc
	}
	k := arg(args, 0)
	for _, e := range md.entries {
		if value.SameValueZero(e.key, k) {
			return value.FromBool(true), nil
		}
	}
	return value.FromBool(false), nil
}

func mapDelete(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, md, exc := thisMapData(vmc, this, "Map.prototype.delete")
	if exc != nil {
		return value.Undefined, exc
	}
	k := arg(args, 0)
	for i, e := range md.entries {
		if value.SameValueZero(e.key, k) {
			md.entries = append(md.entries[:i], md.entries[i+1:]...)
			return value.FromBool(true), nil
		}
	}
	return value.FromBool(false), nil
}

func mapClear(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, md, exc := thisMapData(vmc, this, "Map.prototype.clear")
	if exc != nil {
		return value.Undefined, exc
	}
	md.entries = nil
	return value.Undefined, nil
}

func mapForEach(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, md, exc := thisMapData(vmc, this, "Map.prototype.forEach")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Map.prototype.forEach")
	if exc != nil {
		return value.Undefined, exc
	}
	for _, e := range md.entries {
		if _, exc := vmc.Call(fn, arg(args, 1), []value.Value{e.val, e.key, this}); exc != nil {
			return value.Undefined, exc
		}
	}
	return value.Undefined, nil
}

func mapSizeGetter(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, md, exc := thisMapData(vmc, this, "Map.prototype.size")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(len(md.entries))), nil
}

func setConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	sd := &SetData{}
	obj := object.New(vmc.Realm.Intrinsics.SetPrototype, object.DataSet, sd, object.Ordinary)
	if exc := populateSet(vmc, sd, arg(args, 0)); exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(obj), nil
}

func weakSetConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	sd := &SetData{}
	obj := object.New(vmc.Realm.Intrinsics.WeakSetPrototype, object.DataWeakSet, sd, object.Ordinary)
	if exc := populateSet(vmc, sd, arg(args, 0)); exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(obj), nil
}

func populateSet(vmc *vm.VM, sd *SetData, iterable value.Value) *object.Exception {
	if iterable.IsNullish() {
		return nil
	}
	iter, exc := vmc.GetIterator(iterable)
	if exc != nil {
		return exc
	}
	for {
		v, done, exc := vmc.IteratorNext(iter)
		if exc != nil {
			return exc
		}
		if done {
			return nil
		}
		sd.entries = setAddEntry(sd.entries, v)
	}
}

func setAddEntry(entries []value.Value, v value.Value) []value.Value {
	for _, e := range entries {
		if value.SameValueZero(e, v) {
			return entries
		}
	}
	return append(entries, v)
}

func setAdd(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, sd, exc := thisSetData(vmc, this, "Set.prototype.add")
	if exc != nil {
		return value.Undefined, exc
	}
	sd.entries = setAddEntry(sd.entries, arg(args, 0))
	return this, nil
}

func setHas(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, sd, exc := thisSetData(vmc, this, "Set.prototype.has")
	if exc != nil {
		return value.Undefined, exc
	}
	v := arg(args, 0)
	for _, e := range sd.entries {
		if value.SameValueZero(e, v) {
			return value.FromBool(true), nil
		}
	}
	return value.FromBool(false), nil
}

func setDelete(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, sd, exc := thisSetData(vmc, this, "Set.prototype.delete")
	if exc != nil {
		return value.Undefined, exc
	}
	v := arg(args, 0)
	for i, e := range sd.entries {
		if value.SameValueZero(e, v) {
			sd.entries = append(sd.entries[:i], sd.entries[i+1:]...)
			return value.FromBool(true), nil
		}
	}
	return value.FromBool(false), nil
}

func setClear(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, sd, exc := thisSetData(vmc, this, "Set.prototype.clear")
	if exc != nil {
		return value.Undefined, exc
	}
	sd.entries = nil
	return value.Undefined, nil
}

func setForEach(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, sd, exc := thisSetData(vmc, this, "Set.prototype.forEach")
	if exc != nil {
		return value.Undefined, exc
	}
	fn, exc := callbackFn(vmc, args, "Set.prototype.forEach")
	if exc != nil {
		return value.Undefined, exc
	}
	for _, e := range sd.entries {
		if _, exc := vmc.Call(fn, arg(args, 1), []value.Value{e, e, this}); exc != nil {
			return value.Undefined, exc
		}
	}
	return value.Undefined, nil
}

func setSizeGetter(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, sd, exc := thisSetData(vmc, this, "Set.prototype.size")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(len(sd.entries))), nil
}
