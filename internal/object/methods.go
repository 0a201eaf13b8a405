package object

import (
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// InternalMethods is the object's vtable: the eleven essential internal
// methods plus [[Call]]/[[Construct]], populated at construction time
// from one of a small closed set of tables (§4.4). A nil function
// falls back to the ordinary algorithm operating directly on the
// object's shape/property-table, so an exotic object only needs to
// supply the handful of methods it actually overrides — the Go analog
// of the deep-inheritance-vs-vtable tradeoff called out in §9.
type InternalMethods struct {
	GetPrototypeOf    func(o *Object, it Interpreter) (Prototype, *Exception)
	SetPrototypeOf    func(o *Object, it Interpreter, proto Prototype) (bool, *Exception)
	IsExtensible      func(o *Object, it Interpreter) (bool, *Exception)
	PreventExtensions func(o *Object, it Interpreter) (bool, *Exception)
	GetOwnProperty    func(o *Object, it Interpreter, key shape.Key) (*Descriptor, *Exception)
	DefineOwnProperty func(o *Object, it Interpreter, key shape.Key, desc Descriptor) (bool, *Exception)
	HasProperty       func(o *Object, it Interpreter, key shape.Key) (bool, *Exception)
	Get               func(o *Object, it Interpreter, key shape.Key, receiver value.Value) (value.Value, *Exception)
	Set               func(o *Object, it Interpreter, key shape.Key, v value.Value, receiver value.Value, throw bool) (bool, *Exception)
	Delete            func(o *Object, it Interpreter, key shape.Key) (bool, *Exception)
	OwnPropertyKeys   func(o *Object, it Interpreter) ([]shape.Key, *Exception)

	Call      func(o *Object, it Interpreter, this value.Value, args []value.Value) (value.Value, *Exception)
	Construct func(o *Object, it Interpreter, args []value.Value, newTarget value.Objecter) (value.Value, *Exception)
}

// Ordinary is the default vtable: every field nil, so every essential
// method dispatches to the Ordinary* functions below.
var Ordinary = InternalMethods{}

func (o *Object) GetPrototypeOf(it Interpreter) (Prototype, *Exception) {
	if o.methods.GetPrototypeOf != nil {
		return o.methods.GetPrototypeOf(o, it)
	}
	return OrdinaryGetPrototypeOf(o)
}

func OrdinaryGetPrototypeOf(o *Object) (Prototype, *Exception) {
	return o.Shape().Prototype(), nil
}

func (o *Object) SetPrototypeOf(it Interpreter, proto Prototype) (bool, *Exception) {
	if o.methods.SetPrototypeOf != nil {
		return o.methods.SetPrototypeOf(o, it, proto)
	}
	return OrdinarySetPrototypeOf(o, proto)
}

func OrdinarySetPrototypeOf(o *Object, proto Prototype) (bool, *Exception) {
	current := o.Shape().Prototype()
	if samePrototype(current, proto) {
		return true, nil
	}
	if !o.IsExtensibleFlag() {
		return false, nil
	}
	// Cycle check: walk proto's chain looking for o itself.
	p := proto
	for p != nil {
		if obj, ok := p.(*Object); ok {
			if obj == o {
				return false, nil
			}
			if obj.methods.GetPrototypeOf != nil {
				break // exotic prototype chain, stop the ordinary cycle walk
			}
			p = obj.Shape().Prototype()
			continue
		}
		break
	}
	w, _ := o.cell.BorrowMut()
	w.Get().shape = w.Get().shape.ChangePrototype(proto)
	w.Release()
	return true, nil
}

func samePrototype(a, b Prototype) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ao, aok := a.(*Object)
	bo, bok := b.(*Object)
	if aok && bok {
		return ao == bo
	}
	return a == b
}

func (o *Object) IsExtensible(it Interpreter) (bool, *Exception) {
	if o.methods.IsExtensible != nil {
		return o.methods.IsExtensible(o, it)
	}
	return o.IsExtensibleFlag(), nil
}

func (o *Object) PreventExtensions(it Interpreter) (bool, *Exception) {
	if o.methods.PreventExtensions != nil {
		return o.methods.PreventExtensions(o, it)
	}
	o.SetExtensibleFlag(false)
	return true, nil
}

func (o *Object) GetOwnProperty(it Interpreter, key shape.Key) (*Descriptor, *Exception) {
	if o.methods.GetOwnProperty != nil {
		return o.methods.GetOwnProperty(o, it, key)
	}
	return OrdinaryGetOwnProperty(o, key), nil
}

func OrdinaryGetOwnProperty(o *Object, key shape.Key) *Descriptor {
	slot, ok := o.Shape().Lookup(key)
	if !ok {
		return nil
	}
	if slot.Attrs.IsAccessor() {
		get, set := o.accessorPair(key)
		d := currentDescriptorFrom(slot.Attrs, value.Undefined, [2]value.Objecter{get, set})
		return &d
	}
	d := currentDescriptorFrom(slot.Attrs, o.slotValue(key), [2]value.Objecter{})
	return &d
}

func (o *Object) DefineOwnProperty(it Interpreter, key shape.Key, desc Descriptor) (bool, *Exception) {
	if o.methods.DefineOwnProperty != nil {
		return o.methods.DefineOwnProperty(o, it, key, desc)
	}
	return OrdinaryDefineOwnProperty(o, it, key, desc)
}

// OrdinaryDefineOwnProperty is ValidateAndApplyPropertyDescriptor
// wired to a concrete object's shape + storage.
func OrdinaryDefineOwnProperty(o *Object, it Interpreter, key shape.Key, desc Descriptor) (bool, *Exception) {
	current := OrdinaryGetOwnProperty(o, key)
	merged, ok := ValidateAndApplyPropertyDescriptor(current, o.IsExtensibleFlag(), desc)
	if !ok {
		return false, nil
	}
	attrs := descriptorToAttrs(merged)
	if current == nil {
		o.transitionShape(func(s *shape.Shape) shape.ChangeTransition {
			return shape.ChangeTransition{Shape: s.Insert(key, attrs), Action: shape.ActionInsertSlot}
		}, key, func(st *state) {
			if merged.IsAccessor() {
				st.accessors[key] = [2]value.Objecter{merged.Get, merged.Set}
			} else {
				st.slots[key] = merged.Value
			}
		})
		return true, nil
	}
	if current.IsAccessor() == merged.IsAccessor() {
		// Same kind: attribute changes (if any) apply in place; update
		// the stored value/getter-setter directly without a shape walk
		// unless attributes actually changed.
		curAttrs := descriptorToAttrs(*current)
		if curAttrs != attrs {
			o.transitionShape(func(s *shape.Shape) shape.ChangeTransition {
				return s.ChangeAttributes(key, attrs)
			}, key, nil)
		}
		if merged.IsAccessor() {
			o.setAccessorPair(key, merged.Get, merged.Set)
		} else {
			o.setSlotValue(key, merged.Value)
		}
		return true, nil
	}
	// Kind flip: shape rollback, then install the new storage.
	o.transitionShape(func(s *shape.Shape) shape.ChangeTransition {
		return s.ChangeAttributes(key, attrs)
	}, key, func(st *state) {
		if merged.IsAccessor() {
			st.accessors[key] = [2]value.Objecter{merged.Get, merged.Set}
		} else {
			st.slots[key] = merged.Value
		}
	})
	if merged.IsAccessor() {
		o.setAccessorPair(key, merged.Get, merged.Set)
	} else {
		o.setSlotValue(key, merged.Value)
	}
	return true, nil
}

func (o *Object) HasProperty(it Interpreter, key shape.Key) (bool, *Exception) {
	if o.methods.HasProperty != nil {
		return o.methods.HasProperty(o, it, key)
	}
	return OrdinaryHasProperty(o, it, key)
}

func OrdinaryHasProperty(o *Object, it Interpreter, key shape.Key) (bool, *Exception) {
	if _, ok := o.Shape().Lookup(key); ok {
		return true, nil
	}
	proto, exc := o.GetPrototypeOf(it)
	if exc != nil {
		return false, exc
	}
	if proto == nil {
		return false, nil
	}
	if pobj, ok := proto.(*Object); ok {
		return pobj.HasProperty(it, key)
	}
	return false, nil
}

func (o *Object) Get(it Interpreter, key shape.Key, receiver value.Value) (value.Value, *Exception) {
	if o.methods.Get != nil {
		return o.methods.Get(o, it, key, receiver)
	}
	return OrdinaryGet(o, it, key, receiver)
}

func OrdinaryGet(o *Object, it Interpreter, key shape.Key, receiver value.Value) (value.Value, *Exception) {
	slot, ok := o.Shape().Lookup(key)
	if !ok {
		proto, exc := o.GetPrototypeOf(it)
		if exc != nil {
			return value.Undefined, exc
		}
		if proto == nil {
			return value.Undefined, nil
		}
		if pobj, ok := proto.(*Object); ok {
			return pobj.Get(it, key, receiver)
		}
		return value.Undefined, nil
	}
	if slot.Attrs.IsAccessor() {
		get, _ := o.accessorPair(key)
		if get == nil {
			return value.Undefined, nil
		}
		return it.Call(get, receiver, nil)
	}
	return o.slotValue(key), nil
}

func (o *Object) Set(it Interpreter, key shape.Key, v value.Value, receiver value.Value, throw bool) (bool, *Exception) {
	if o.methods.Set != nil {
		return o.methods.Set(o, it, key, v, receiver, throw)
	}
	return OrdinarySet(o, it, key, v, receiver, throw)
}

func OrdinarySet(o *Object, it Interpreter, key shape.Key, v value.Value, receiver value.Value, throw bool) (bool, *Exception) {
	slot, ok := o.Shape().Lookup(key)
	if !ok {
		proto, exc := o.GetPrototypeOf(it)
		if exc != nil {
			return false, exc
		}
		if proto != nil {
			if pobj, ok := proto.(*Object); ok {
				return pobj.Set(it, key, v, receiver, throw)
			}
		}
		return createDataProperty(it, receiver, key, v, throw)
	}
	if slot.Attrs.IsAccessor() {
		_, set := o.accessorPair(key)
		if set == nil {
			return failSet(it, throw, "Cannot set property %s of object with no setter", key.String())
		}
		_, exc := it.Call(set, receiver, []value.Value{v})
		return exc == nil, exc
	}
	if !slot.Attrs.Writable() {
		return failSet(it, throw, "Cannot assign to read only property %s", key.String())
	}
	if recv, ok := receiver.AsObject().(*Object); ok && recv == o {
		o.setSlotValue(key, v)
		return true, nil
	}
	if _, ok := receiver.AsObject().(*Object); ok {
		return createDataProperty(it, receiver, key, v, throw)
	}
	return false, nil
}

func createDataProperty(it Interpreter, receiver value.Value, key shape.Key, v value.Value, throw bool) (bool, *Exception) {
	robj, ok := receiver.AsObject().(*Object)
	if !ok {
		return failSet(it, throw, "Cannot create property on non-object receiver")
	}
	ok2, exc := robj.DefineOwnProperty(it, key, DataDescriptor(v, true, true, true))
	if exc != nil {
		return false, exc
	}
	if !ok2 {
		return failSet(it, throw, "Cannot define property %s", key.String())
	}
	return true, nil
}

func failSet(it Interpreter, throw bool, format string, args ...interface{}) (bool, *Exception) {
	if throw {
		return false, it.TypeError(format, args...)
	}
	return false, nil
}

func (o *Object) Delete(it Interpreter, key shape.Key) (bool, *Exception) {
	if o.methods.Delete != nil {
		return o.methods.Delete(o, it, key)
	}
	return OrdinaryDelete(o, key)
}

func OrdinaryDelete(o *Object, key shape.Key) (bool, *Exception) {
	slot, ok := o.Shape().Lookup(key)
	if !ok {
		return true, nil
	}
	if !slot.Attrs.Configurable() {
		return false, nil
	}
	o.transitionShape(func(s *shape.Shape) shape.ChangeTransition {
		return s.Remove(key)
	}, key, nil)
	return true, nil
}

func (o *Object) OwnPropertyKeys(it Interpreter) ([]shape.Key, *Exception) {
	if o.methods.OwnPropertyKeys != nil {
		return o.methods.OwnPropertyKeys(o, it)
	}
	return sortedOwnKeys(o.Shape().Keys()), nil
}

func (o *Object) Call(it Interpreter, this value.Value, args []value.Value) (value.Value, *Exception) {
	if o.methods.Call == nil {
		return value.Undefined, it.TypeError("value is not a function")
	}
	return o.methods.Call(o, it, this, args)
}

func (o *Object) Construct(it Interpreter, args []value.Value, newTarget value.Objecter) (value.Value, *Exception) {
	if o.methods.Construct == nil {
		return value.Undefined, it.TypeError("value is not a constructor")
	}
	return o.methods.Construct(o, it, args, newTarget)
}
