package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/strpool"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// SymbolData boxes a Symbol primitive for Object(sym); a bare Symbol
// value never allocates an Object.
type SymbolData struct {
	Symbol *value.Symbol
}

func bootstrapSymbol(r *realm.Realm) {
	proto := object.New(r.Intrinsics.ObjectPrototype, object.DataSymbol, &SymbolData{}, object.Ordinary)
	r.Intrinsics.SymbolPrototype = proto

	method(r, proto, "toString", 0, symbolToString)
	method(r, proto, "valueOf", 0, symbolValueOf)
	accessor(r, proto, "description", func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		sym, exc := thisSymbolValue(vmc, this)
		if exc != nil {
			return value.Undefined, exc
		}
		if sym.Description == nil {
			return value.Undefined, nil
		}
		return value.FromString(sym.Description), nil
	}, nil)

	ctor := ctorObject(r, "Symbol", 0, proto, symbolCall, nil)
	r.Intrinsics.SymbolConstructor = ctor
	method(r, ctor, "for", 1, symbolForStatic)
	method(r, ctor, "keyFor", 1, symbolKeyForStatic)
	defValue(r, ctor, "iterator", value.FromSymbol(r.Symbols.Iterator), false, false, false)
	defValue(r, ctor, "asyncIterator", value.FromSymbol(r.Symbols.AsyncIterator), false, false, false)
	defValue(r, ctor, "toPrimitive", value.FromSymbol(r.Symbols.ToPrimitive), false, false, false)
	defValue(r, ctor, "toStringTag", value.FromSymbol(r.Symbols.ToStringTag), false, false, false)
	defValue(r, ctor, "hasInstance", value.FromSymbol(r.Symbols.HasInstance), false, false, false)
	defValue(r, ctor, "isConcatSpreadable", value.FromSymbol(r.Symbols.IsConcatSpreadable), false, false, false)
	defValue(r, ctor, "species", value.FromSymbol(r.Symbols.Species), false, false, false)
	defValue(r, ctor, "match", value.FromSymbol(r.Symbols.Match), false, false, false)
	defValue(r, ctor, "matchAll", value.FromSymbol(r.Symbols.MatchAll), false, false, false)
	defValue(r, ctor, "replace", value.FromSymbol(r.Symbols.Replace), false, false, false)
	defValue(r, ctor, "search", value.FromSymbol(r.Symbols.Search), false, false, false)
	defValue(r, ctor, "split", value.FromSymbol(r.Symbols.Split), false, false, false)
	defValue(r, ctor, "unscopables", value.FromSymbol(r.Symbols.Unscopables), false, false, false)
}

func thisSymbolValue(vmc *vm.VM, this value.Value) (*value.Symbol, *object.Exception) {
	if this.IsSymbol() {
		return this.AsSymbol(), nil
	}
	if o, ok := this.AsObject().(*object.Object); this.IsObject() && ok {
		if sd, ok := o.Data().(*SymbolData); ok {
			return sd.Symbol, nil
		}
	}
	return nil, vmc.TypeError("Symbol.prototype method called on incompatible receiver")
}

func symbolCall(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	var desc *strpool.String
	if d := arg(args, 0); !d.IsUndefined() {
		s, exc := vmc.ToJSString(d)
		if exc != nil {
			return value.Undefined, exc
		}
		desc = strpool.FromString(s)
	}
	return value.FromSymbol(value.NewSymbol(desc)), nil
}

func symbolToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	sym, exc := thisSymbolValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	desc := ""
	if sym.Description != nil {
		desc = sym.Description.GoString()
	}
	return value.FromGoString("Symbol(" + desc + ")"), nil
}

func symbolValueOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	sym, exc := thisSymbolValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromSymbol(sym), nil
}

func symbolForStatic(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	key, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromSymbol(vmc.Realm.SymbolFor(key)), nil
}

func symbolKeyForStatic(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if !v.IsSymbol() {
		return value.Undefined, vmc.TypeError("Symbol.keyFor called on non-symbol")
	}
	key, ok := vmc.Realm.KeyFor(v.AsSymbol())
	if !ok {
		return value.Undefined, nil
	}
	return value.FromGoString(key), nil
}
