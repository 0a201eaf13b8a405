package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// BooleanData is the DataBoolean payload for a boxed `new Boolean(...)`.
type BooleanData struct {
	Value bool
}

func bootstrapBoolean(r *realm.Realm) {
	proto := object.New(r.Intrinsics.ObjectPrototype, object.DataBoolean, &BooleanData{}, object.Ordinary)
	r.Intrinsics.BooleanPrototype = proto

	method(r, proto, "toString", 0, booleanToString)
	method(r, proto, "valueOf", 0, booleanValueOf)

	ctor := ctorObject(r, "Boolean", 1, proto, booleanCall, booleanConstruct)
	r.Intrinsics.BooleanConstructor = ctor
}

func thisBooleanValue(vmc *vm.VM, this value.Value) (bool, *object.Exception) {
	if this.IsBoolean() {
		return this.AsBool(), nil
	}
	if o, ok := this.AsObject().(*object.Object); this.IsObject() && ok {
		if bd, ok := o.Data().(*BooleanData); ok {
			return bd.Value, nil
		}
	}
	return false, vmc.TypeError("Boolean.prototype method called on incompatible receiver")
}

func booleanCall(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return value.FromBool(arg(args, 0).ToBoolean()), nil
}

func booleanConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	obj := object.New(vmc.Realm.Intrinsics.BooleanPrototype, object.DataBoolean, &BooleanData{Value: arg(args, 0).ToBoolean()}, object.Ordinary)
	return value.FromObject(obj), nil
}

func booleanToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	b, exc := thisBooleanValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	if b {
		return value.FromGoString("true"), nil
	}
	return value.FromGoString("false"), nil
}

func booleanValueOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	b, exc := thisBooleanValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(b), nil
}
