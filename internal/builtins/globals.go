package builtins

import (
	"math"
	"strconv"
	"strings"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// bootstrapGlobals installs every intrinsic constructor/prototype as a
// named global binding, plus the free functions and value properties
// (globalThis, NaN, Infinity, undefined, parseInt/parseFloat,
// isNaN/isFinite, the URI encode/decode family) that live directly on
// the global object rather than off a constructor.
func bootstrapGlobals(r *realm.Realm) {
	g := r.GlobalObject

	bind := func(name string, v value.Value) {
		defValue(r, g, name, v, true, false, true)
	}
	ctorBind := func(name string, o *object.Object) {
		if o != nil {
			bind(name, value.FromObject(o))
		}
	}

	defValue(r, g, "globalThis", value.FromObject(g), true, false, true)
	defValue(r, g, "undefined", value.Undefined, false, false, false)
	defValue(r, g, "NaN", value.FromNumber(math.NaN()), false, false, false)
	defValue(r, g, "Infinity", value.FromNumber(math.Inf(1)), false, false, false)

	ctorBind("Object", r.Intrinsics.ObjectConstructor)
	ctorBind("Function", r.Intrinsics.FunctionConstructor)
	ctorBind("Array", r.Intrinsics.ArrayConstructor)
	ctorBind("String", r.Intrinsics.StringConstructor)
	ctorBind("Number", r.Intrinsics.NumberConstructor)
	ctorBind("Boolean", r.Intrinsics.BooleanConstructor)
	ctorBind("Symbol", r.Intrinsics.SymbolConstructor)
	ctorBind("Error", r.Intrinsics.ErrorConstructor)
	ctorBind("TypeError", errorCtorFromProto(r.Intrinsics.TypeErrorPrototype))
	ctorBind("RangeError", errorCtorFromProto(r.Intrinsics.RangeErrorPrototype))
	ctorBind("ReferenceError", errorCtorFromProto(r.Intrinsics.ReferenceErrorPrototype))
	ctorBind("SyntaxError", errorCtorFromProto(r.Intrinsics.SyntaxErrorPrototype))
	ctorBind("EvalError", errorCtorFromProto(r.Intrinsics.EvalErrorPrototype))
	ctorBind("URIError", errorCtorFromProto(r.Intrinsics.URIErrorPrototype))
	ctorBind("AggregateError", errorCtorFromProto(r.Intrinsics.AggregateErrorPrototype))
	ctorBind("RegExp", r.Intrinsics.RegExpConstructor)
	ctorBind("Map", r.Intrinsics.MapConstructor)
	ctorBind("Set", r.Intrinsics.SetConstructor)
	ctorBind("WeakMap", r.Intrinsics.WeakMapConstructor)
	ctorBind("WeakSet", r.Intrinsics.WeakSetConstructor)
	ctorBind("Promise", r.Intrinsics.PromiseConstructor)
	ctorBind("ArrayBuffer", r.Intrinsics.ArrayBufferConstructor)
	ctorBind("SharedArrayBuffer", r.Intrinsics.SharedArrayBufferConstructor)
	ctorBind("DataView", r.Intrinsics.DataViewConstructor)
	ctorBind("Proxy", r.Intrinsics.ProxyConstructor)

	bootstrapReflect(r, g)

	method(r, g, "parseInt", 2, globalParseInt)
	method(r, g, "parseFloat", 1, globalParseFloat)
	method(r, g, "isNaN", 1, globalIsNaN)
	method(r, g, "isFinite", 1, globalIsFinite)
	method(r, g, "encodeURIComponent", 1, globalEncodeURIComponent)
	method(r, g, "decodeURIComponent", 1, globalDecodeURIComponent)
	method(r, g, "encodeURI", 1, globalEncodeURI)
	method(r, g, "decodeURI", 1, globalDecodeURI)
}

// errorCtorFromProto recovers a NativeError subtype's constructor from
// its prototype's own constructor property; ctorObject wires that link
// at build time but realm.Intrinsics only keeps the prototype fields
// for each subtype, not a separate Constructor field per subtype.
func errorCtorFromProto(proto *object.Object) *object.Object {
	if proto == nil {
		return nil
	}
	v, exc := proto.Get(nullInterp{}, shape.StringKey("constructor"), value.FromObject(proto))
	if exc != nil {
		return nil
	}
	o, ok := v.AsObject().(*object.Object)
	if !v.IsObject() || !ok {
		return nil
	}
	return o
}

func globalParseInt(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	s = strings.TrimSpace(s)
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	radix := 0
	if r := arg(args, 1); !r.IsUndefined() {
		f, _ := r.ToNumber()
		radix = int(f)
	}
	if radix == 0 {
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			radix = 16
			s = s[2:]
		} else {
			radix = 10
		}
	} else if radix == 16 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
	}
	if radix < 2 || radix > 36 {
		return value.FromNumber(math.NaN()), nil
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < radix {
		end++
	}
	if end == 0 {
		return value.FromNumber(math.NaN()), nil
	}
	n, err := strconv.ParseInt(s[:end], radix, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s[:end], 64)
		if ferr != nil {
			return value.FromNumber(math.NaN()), nil
		}
		if neg {
			f = -f
		}
		return value.FromNumber(f), nil
	}
	f := float64(n)
	if neg {
		f = -f
	}
	return value.FromNumber(f), nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 99
	}
}

func globalParseFloat(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "Infinity") || strings.HasPrefix(s, "+Infinity") {
		return value.FromNumber(math.Inf(1)), nil
	}
	if strings.HasPrefix(s, "-Infinity") {
		return value.FromNumber(math.Inf(-1)), nil
	}
	end := 0
	sawDigit, sawDot, sawExp := false, false, false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			sawDigit = true
		case c == '.' && !sawDot && !sawExp:
			sawDot = true
		case (c == '+' || c == '-') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case (c == 'e' || c == 'E') && sawDigit && !sawExp:
			sawExp = true
		default:
			goto done
		}
		end++
	}
done:
	for end > 0 && !sawDigit {
		break
	}
	if end == 0 {
		return value.FromNumber(math.NaN()), nil
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return value.FromNumber(math.NaN()), nil
	}
	return value.FromNumber(f), nil
}

func globalIsNaN(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	f, exc := vmc.ToNumber(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(math.IsNaN(f)), nil
}

func globalIsFinite(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	f, exc := vmc.ToNumber(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
}

// uriUnreserved holds the ASCII set encodeURIComponent never escapes;
// the wider encodeURI set additionally spares the URI reserved
// characters (;/?:@&=+$,#).
const uriUnreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.!~*'()"
const uriReserved = ";/?:@&=+$,#"

func percentEncode(s string, spare string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(spare, c) >= 0 {
			b.WriteByte(c)
		} else {
			b.WriteString("%")
			if c < 16 {
				b.WriteByte('0')
			}
			b.WriteString(strings.ToUpper(strconv.FormatInt(int64(c), 16)))
		}
	}
	return b.String()
}

func percentDecode(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			if i+2 >= len(s) {
				return "", false
			}
			n, err := strconv.ParseInt(s[i+1:i+3], 16, 16)
			if err != nil {
				return "", false
			}
			b.WriteByte(byte(n))
			i += 2
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String(), true
}

func globalEncodeURIComponent(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(percentEncode(s, uriUnreserved)), nil
}

func globalEncodeURI(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(percentEncode(s, uriUnreserved+uriReserved)), nil
}

func globalDecodeURIComponent(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	out, ok := percentDecode(s)
	if !ok {
		return value.Undefined, vmc.TypeError("URI malformed")
	}
	return value.FromGoString(out), nil
}

func globalDecodeURI(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return globalDecodeURIComponent(vmc, this, args)
}

// bootstrapReflect installs the Reflect namespace object, the natural
// companion to Proxy: each method is the direct [[...]] internal
// method Reflect.x exposes as an ordinary function, reusing the same
// Object-layer marshalling (toPropertyDescriptor/descriptorToObject)
// the Proxy traps and Object static methods already share.
func bootstrapReflect(r *realm.Realm, g *object.Object) {
	reflect := object.New(r.Intrinsics.ObjectPrototype, object.DataOrdinary, nil, object.Ordinary)
	method(r, reflect, "get", 2, reflectGet)
	method(r, reflect, "set", 3, reflectSet)
	method(r, reflect, "has", 2, reflectHas)
	method(r, reflect, "deleteProperty", 2, reflectDeleteProperty)
	method(r, reflect, "ownKeys", 1, reflectOwnKeys)
	method(r, reflect, "getPrototypeOf", 1, reflectGetPrototypeOf)
	method(r, reflect, "setPrototypeOf", 2, reflectSetPrototypeOf)
	method(r, reflect, "isExtensible", 1, reflectIsExtensible)
	method(r, reflect, "preventExtensions", 1, reflectPreventExtensions)
	method(r, reflect, "defineProperty", 3, reflectDefineProperty)
	method(r, reflect, "getOwnPropertyDescriptor", 2, objectGetOwnPropertyDescriptor)
	method(r, reflect, "apply", 3, reflectApply)
	method(r, reflect, "construct", 2, reflectConstruct)
	defValue(r, g, "Reflect", value.FromObject(reflect), true, false, true)
}

func reflectTarget(vmc *vm.VM, args []value.Value, what string) (*object.Object, *object.Exception) {
	return thisObject(vmc, arg(args, 0), what)
}

func reflectGet(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.get")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 1))
	if exc != nil {
		return value.Undefined, exc
	}
	receiver := value.FromObject(o)
	if len(args) > 2 {
		receiver = args[2]
	}
	return o.Get(vmc, key, receiver)
}

func reflectSet(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.set")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 1))
	if exc != nil {
		return value.Undefined, exc
	}
	receiver := value.FromObject(o)
	if len(args) > 3 {
		receiver = args[3]
	}
	ok, exc := o.Set(vmc, key, arg(args, 2), receiver, false)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(ok), nil
}

func reflectHas(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.has")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 1))
	if exc != nil {
		return value.Undefined, exc
	}
	ok, exc := o.HasProperty(vmc, key)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(ok), nil
}

func reflectDeleteProperty(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.deleteProperty")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 1))
	if exc != nil {
		return value.Undefined, exc
	}
	ok, exc := o.Delete(vmc, key)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(ok), nil
}

func reflectOwnKeys(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.ownKeys")
	if exc != nil {
		return value.Undefined, exc
	}
	keys, exc := o.OwnPropertyKeys(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = keyValue(k)
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func reflectGetPrototypeOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.getPrototypeOf")
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
	return value.FromObject(proto), nil
}

func reflectSetPrototypeOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.setPrototypeOf")
	if exc != nil {
		return value.Undefined, exc
	}
	p := arg(args, 1)
	var proto object.Prototype
	if po, ok := p.AsObject().(*object.Object); p.IsObject() && ok {
		proto = po
	} else if !p.IsNull() {
		return value.Undefined, vmc.TypeError("Reflect.setPrototypeOf: proto must be an object or null")
	}
	ok, exc := o.SetPrototypeOf(vmc, proto)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(ok), nil
}

func reflectIsExtensible(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.isExtensible")
	if exc != nil {
		return value.Undefined, exc
	}
	ok, exc := o.IsExtensible(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(ok), nil
}

func reflectPreventExtensions(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.preventExtensions")
	if exc != nil {
		return value.Undefined, exc
	}
	ok, exc := o.PreventExtensions(vmc)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(ok), nil
}

func reflectDefineProperty(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, exc := reflectTarget(vmc, args, "Reflect.defineProperty")
	if exc != nil {
		return value.Undefined, exc
	}
	key, exc := vmc.ToPropertyKey(arg(args, 1))
	if exc != nil {
		return value.Undefined, exc
	}
	desc, exc := toPropertyDescriptor(vmc, arg(args, 2))
	if exc != nil {
		return value.Undefined, exc
	}
	ok, exc := o.DefineOwnProperty(vmc, key, desc)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(ok), nil
}

func reflectApply(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	fnVal := arg(args, 0)
	fn, ok := fnVal.AsObject().(*object.Object)
	if !fnVal.IsObject() || !ok || !fn.IsCallable() {
		return value.Undefined, vmc.TypeError("Reflect.apply target is not a function")
	}
	argArrayVal := arg(args, 2)
	argArr, ok := argArrayVal.AsObject().(*object.Object)
	if !argArrayVal.IsObject() || !ok {
		return value.Undefined, vmc.TypeError("Reflect.apply arguments list is not an object")
	}
	items, exc := vmc.ArrayElements(argArr)
	if exc != nil {
		return value.Undefined, exc
	}
	return vmc.Call(fn, arg(args, 1), items)
}

func reflectConstruct(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	fnVal := arg(args, 0)
	fn, ok := fnVal.AsObject().(*object.Object)
	if !fnVal.IsObject() || !ok || !fn.IsConstructor() {
		return value.Undefined, vmc.TypeError("Reflect.construct target is not a constructor")
	}
	argArrayVal := arg(args, 1)
	argArr, ok := argArrayVal.AsObject().(*object.Object)
	if !argArrayVal.IsObject() || !ok {
		return value.Undefined, vmc.TypeError("Reflect.construct arguments list is not an object")
	}
	items, exc := vmc.ArrayElements(argArr)
	if exc != nil {
		return value.Undefined, exc
	}
	newTarget := value.Objecter(fn)
	if nt := arg(args, 2); !nt.IsUndefined() {
		ntObj, ok := nt.AsObject().(*object.Object)
		if !nt.IsObject() || !ok || !ntObj.IsConstructor() {
			return value.Undefined, vmc.TypeError("Reflect.construct newTarget is not a constructor")
		}
		newTarget = ntObj
	}
	return vmc.Construct(fn, items, newTarget)
}
