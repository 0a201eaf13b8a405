package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// errorKinds lists every error subtype this engine ships, in the order
// bootstrapErrors builds them; NativeError (the base %Error%) must
// exist before any subclass prototype chains to it.
var errorKinds = []string{
	"TypeError", "RangeError", "ReferenceError", "SyntaxError", "EvalError", "URIError", "AggregateError",
}

// bootstrapErrors builds %Error.prototype% and its constructor, then
// the six ordinary NativeError subtypes plus AggregateError, each
// chaining its own prototype to %Error.prototype% per the Error
// subclassing hierarchy.
func bootstrapErrors(r *realm.Realm) {
	errProto := object.New(r.Intrinsics.ObjectPrototype, object.DataError, nil, object.Ordinary)
	r.Intrinsics.ErrorPrototype = errProto
	defValue(r, errProto, "name", value.FromGoString("Error"), true, false, true)
	defValue(r, errProto, "message", value.FromGoString(""), true, false, true)
	method(r, errProto, "toString", 0, errorToString)

	errCtor := ctorObject(r, "Error", 1, errProto, errorCall(errProto), errorConstruct(errProto))
	r.Intrinsics.ErrorConstructor = errCtor

	for _, name := range errorKinds {
		proto := object.New(errProto, object.DataError, nil, object.Ordinary)
		defValue(r, proto, "name", value.FromGoString(name), true, false, true)
		defValue(r, proto, "message", value.FromGoString(""), true, false, true)
		ctor := ctorObject(r, name, 1, proto, errorCall(proto), errorConstruct(proto))
		ctor.SetPrototypeOf(nullInterp{}, errCtor)
		switch name {
		case "TypeError":
			r.Intrinsics.TypeErrorPrototype = proto
		case "RangeError":
			r.Intrinsics.RangeErrorPrototype = proto
		case "ReferenceError":
			r.Intrinsics.ReferenceErrorPrototype = proto
		case "SyntaxError":
			r.Intrinsics.SyntaxErrorPrototype = proto
		case "EvalError":
			r.Intrinsics.EvalErrorPrototype = proto
		case "URIError":
			r.Intrinsics.URIErrorPrototype = proto
		case "AggregateError":
			r.Intrinsics.AggregateErrorPrototype = proto
		}
	}
}

func errorCall(proto *object.Object) func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return errorConstruct(proto)(vmc, args, nil)
	}
}

func errorConstruct(proto *object.Object) func(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	return func(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
		target := proto
		if nt, ok := newTarget.(*object.Object); ok {
			if p, exc := nt.Get(vmc, shape.StringKey("prototype"), value.FromObject(nt)); exc == nil {
				if po, ok := p.AsObject().(*object.Object); p.IsObject() && ok {
					target = po
				}
			}
		}
		obj := object.New(target, object.DataError, nil, object.Ordinary)
		if msg := arg(args, 0); !msg.IsUndefined() {
			s, exc := vmc.ToJSString(msg)
			if exc != nil {
				return value.Undefined, exc
			}
			obj.DefineOwnProperty(vmc, shape.StringKey("message"), object.DataDescriptor(value.FromGoString(s), true, false, true))
		}
		if opts := arg(args, 1); opts.IsObject() {
			if oo, ok := opts.AsObject().(*object.Object); ok {
				if has, _ := oo.HasProperty(vmc, shape.StringKey("cause")); has {
					cause, exc := oo.Get(vmc, shape.StringKey("cause"), opts)
					if exc != nil {
						return value.Undefined, exc
					}
					obj.DefineOwnProperty(vmc, shape.StringKey("cause"), object.DataDescriptor(cause, true, false, true))
				}
			}
		}
		name := "Error"
		if nv, exc := obj.Get(vmc, nameKey, value.FromObject(obj)); exc == nil && nv.IsString() {
			name = nv.AsString().GoString()
		}
		msgStr := ""
		if mv, exc := obj.Get(vmc, shape.StringKey("message"), value.FromObject(obj)); exc == nil && mv.IsString() {
			msgStr = mv.AsString().GoString()
		}
		header := name
		if msgStr != "" {
			header = name + ": " + msgStr
		}
		obj.DefineOwnProperty(vmc, shape.StringKey("stack"), object.DataDescriptor(value.FromGoString(vmc.StackTrace(header)), true, false, true))
		return value.FromObject(obj), nil
	}
}

func errorToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := thisObject(vmc, this, "Error.prototype.toString")
	if exc != nil {
		return value.Undefined, exc
	}
	name := "Error"
	if nv, exc := o.Get(vmc, nameKey, this); exc == nil && !nv.IsUndefined() {
		s, exc := vmc.ToJSString(nv)
		if exc != nil {
			return value.Undefined, exc
		}
		name = s
	}
	msg := ""
	if mv, exc := o.Get(vmc, shape.StringKey("message"), this); exc == nil && !mv.IsUndefined() {
		s, exc := vmc.ToJSString(mv)
		if exc != nil {
			return value.Undefined, exc
		}
		msg = s
	}
	if name == "" {
		return value.FromGoString(msg), nil
	}
	if msg == "" {
		return value.FromGoString(name), nil
	}
	return value.FromGoString(name + ": " + msg), nil
}
