package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

func functionCallable(vmc *vm.VM, this value.Value, what string) (*object.Object, *object.Exception) {
	o, ok := this.AsObject().(*object.Object)
	if !this.IsObject() || !ok || !o.IsCallable() {
		return nil, vmc.TypeError("%s called on non-function", what)
	}
	return o, nil
}

func functionCall(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	fn, exc := functionCallable(vmc, this, "Function.prototype.call")
	if exc != nil {
		return value.Undefined, exc
	}
	return vmc.Call(fn, arg(args, 0), callArgs(args, 1))
}

func functionApply(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	fn, exc := functionCallable(vmc, this, "Function.prototype.apply")
	if exc != nil {
		return value.Undefined, exc
	}
	argArray := arg(args, 1)
	if argArray.IsNullish() {
		return vmc.Call(fn, arg(args, 0), nil)
	}
	arrObj, ok := argArray.AsObject().(*object.Object)
	if !argArray.IsObject() || !ok {
		return value.Undefined, vmc.TypeError("CreateListFromArrayLike called on non-object")
	}
	list, exc := vmc.ArrayElements(arrObj)
	if exc != nil {
		return value.Undefined, exc
	}
	return vmc.Call(fn, arg(args, 0), list)
}

func functionBind(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	fn, exc := functionCallable(vmc, this, "Function.prototype.bind")
	if exc != nil {
		return value.Undefined, exc
	}
	bd := &vm.BoundFunctionData{Target: fn, BoundThis: arg(args, 0), BoundArgs: callArgs(args, 1)}
	methods := vm.CallableMethods
	if fn.IsConstructor() {
		methods = vm.ConstructableMethods
	}
	bound := object.New(vmc.Realm.Intrinsics.FunctionPrototype, object.DataBoundFunction, bd, methods)
	name, _ := fn.Get(vmc, nameKey, value.FromObject(fn))
	nameStr := "bound"
	if name.IsString() {
		nameStr = "bound " + name.AsString().GoString()
	}
	defValue(vmc.Realm, bound, "name", value.FromGoString(nameStr), false, false, true)
	length := 0
	if lv, exc := fn.Get(vmc, lengthKey, value.FromObject(fn)); exc == nil {
		if l, ok := lv.ToNumber(); ok {
			length = int(l) - len(bd.BoundArgs)
			if length < 0 {
				length = 0
			}
		}
	}
	defValue(vmc.Realm, bound, "length", value.FromInt32(int32(length)), false, false, true)
	return value.FromObject(bound), nil
}

func functionToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	fn, exc := functionCallable(vmc, this, "Function.prototype.toString")
	if exc != nil {
		return value.Undefined, exc
	}
	name, _ := fn.Get(vmc, nameKey, value.FromObject(fn))
	nameStr := ""
	if name.IsString() {
		nameStr = name.AsString().GoString()
	}
	switch fn.Data().(type) {
	case *vm.NativeFunctionData:
		return value.FromGoString("function " + nameStr + "() { [native code] }"), nil
	default:
		return value.FromGoString("function " + nameStr + "() { [bytecode] }"), nil
	}
}

func functionCallCtor(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return value.Undefined, vmc.TypeError("Function constructor is not supported")
}

func functionConstructCtor(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	return value.Undefined, vmc.TypeError("Function constructor is not supported")
}

func callArgs(args []value.Value, from int) []value.Value {
	if from >= len(args) {
		return nil
	}
	return args[from:]
}
