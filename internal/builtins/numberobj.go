package builtins

import (
	"math"
	"strconv"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// NumberData is the DataNumber payload for a boxed `new Number(...)`.
type NumberData struct {
	Value float64
}

func bootstrapNumber(r *realm.Realm) {
	proto := object.New(r.Intrinsics.ObjectPrototype, object.DataNumber, &NumberData{}, object.Ordinary)
	r.Intrinsics.NumberPrototype = proto

	method(r, proto, "toString", 1, numberToString)
	method(r, proto, "valueOf", 0, numberValueOf)
	method(r, proto, "toFixed", 1, numberToFixed)
	method(r, proto, "toPrecision", 1, numberToPrecision)

	ctor := ctorObject(r, "Number", 1, proto, numberCall, numberConstruct)
	r.Intrinsics.NumberConstructor = ctor
	defValue(r, ctor, "MAX_SAFE_INTEGER", value.FromNumber(9007199254740991), false, false, false)
	defValue(r, ctor, "MIN_SAFE_INTEGER", value.FromNumber(-9007199254740991), false, false, false)
	defValue(r, ctor, "MAX_VALUE", value.FromNumber(math.MaxFloat64), false, false, false)
	defValue(r, ctor, "MIN_VALUE", value.FromNumber(5e-324), false, false, false)
	defValue(r, ctor, "EPSILON", value.FromNumber(2.220446049250313e-16), false, false, false)
	defValue(r, ctor, "POSITIVE_INFINITY", value.FromNumber(math.Inf(1)), false, false, false)
	defValue(r, ctor, "NEGATIVE_INFINITY", value.FromNumber(math.Inf(-1)), false, false, false)
	defValue(r, ctor, "NaN", value.FromNumber(math.NaN()), false, false, false)
	method(r, ctor, "isInteger", 1, numberIsInteger)
	method(r, ctor, "isFinite", 1, numberIsFinite)
	method(r, ctor, "isNaN", 1, numberIsNaN)
	method(r, ctor, "isSafeInteger", 1, numberIsSafeInteger)
	method(r, ctor, "parseFloat", 1, globalParseFloat)
	method(r, ctor, "parseInt", 2, globalParseInt)
}

func thisNumberValue(vmc *vm.VM, this value.Value) (float64, *object.Exception) {
	if this.IsNumber() {
		f, _ := this.ToNumber()
		return f, nil
	}
	if o, ok := this.AsObject().(*object.Object); this.IsObject() && ok {
		if nd, ok := o.Data().(*NumberData); ok {
			return nd.Value, nil
		}
	}
	return 0, vmc.TypeError("Number.prototype method called on incompatible receiver")
}

func numberCall(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	if len(args) == 0 {
		return value.FromNumber(0), nil
	}
	f, exc := vmc.ToNumber(args[0])
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromNumber(f), nil
}

func numberConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	f := 0.0
	if len(args) > 0 {
		var exc *object.Exception
		f, exc = vmc.ToNumber(args[0])
		if exc != nil {
			return value.Undefined, exc
		}
	}
	obj := object.New(vmc.Realm.Intrinsics.NumberPrototype, object.DataNumber, &NumberData{Value: f}, object.Ordinary)
	return value.FromObject(obj), nil
}

func numberValueOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	f, exc := thisNumberValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromNumber(f), nil
}

func numberToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	f, exc := thisNumberValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	radix := 10
	if r := arg(args, 0); !r.IsUndefined() {
		n, _ := r.ToNumber()
		radix = int(n)
	}
	if radix == 10 {
		return value.FromGoString(value.NumberToString(value.FromNumber(f))), nil
	}
	return value.FromGoString(strconv.FormatInt(int64(f), radix)), nil
}

func numberToFixed(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	f, exc := thisNumberValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	digits := 0
	if d := arg(args, 0); !d.IsUndefined() {
		n, _ := d.ToNumber()
		digits = int(n)
	}
	return value.FromGoString(strconv.FormatFloat(f, 'f', digits, 64)), nil
}

func numberToPrecision(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	f, exc := thisNumberValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	if arg(args, 0).IsUndefined() {
		return value.FromGoString(value.NumberToString(value.FromNumber(f))), nil
	}
	n, _ := arg(args, 0).ToNumber()
	return value.FromGoString(strconv.FormatFloat(f, 'g', int(n), 64)), nil
}

func numberIsInteger(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if !v.IsNumber() {
		return value.FromBool(false), nil
	}
	f, _ := v.ToNumber()
	return value.FromBool(!math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)), nil
}

func numberIsFinite(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if !v.IsNumber() {
		return value.FromBool(false), nil
	}
	f, _ := v.ToNumber()
	return value.FromBool(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
}

func numberIsNaN(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if !v.IsNumber() {
		return value.FromBool(false), nil
	}
	f, _ := v.ToNumber()
	return value.FromBool(math.IsNaN(f)), nil
}

func numberIsSafeInteger(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if !v.IsNumber() {
		return value.FromBool(false), nil
	}
	f, _ := v.ToNumber()
	return value.FromBool(!math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) <= 9007199254740991), nil
}
