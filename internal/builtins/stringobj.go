package builtins

import (
	"strings"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// StringData is the DataString payload: a boxed `new String(...)`
// object carries its primitive value here, while a bare string Value
// never allocates an Object at all.
type StringData struct {
	Value string
}

func bootstrapString(r *realm.Realm) {
	proto := object.New(r.Intrinsics.ObjectPrototype, object.DataString, &StringData{}, object.Ordinary)
	r.Intrinsics.StringPrototype = proto

	method(r, proto, "toString", 0, stringToString)
	method(r, proto, "valueOf", 0, stringToString)
	method(r, proto, "charAt", 1, stringCharAt)
	method(r, proto, "charCodeAt", 1, stringCharCodeAt)
	method(r, proto, "codePointAt", 1, stringCodePointAt)
	method(r, proto, "at", 1, stringAt)
	method(r, proto, "indexOf", 1, stringIndexOf)
	method(r, proto, "lastIndexOf", 1, stringLastIndexOf)
	method(r, proto, "includes", 1, stringIncludes)
	method(r, proto, "startsWith", 1, stringStartsWith)
	method(r, proto, "endsWith", 1, stringEndsWith)
	method(r, proto, "slice", 2, stringSlice)
	method(r, proto, "substring", 2, stringSubstring)
	method(r, proto, "substr", 2, stringSubstr)
	method(r, proto, "toUpperCase", 0, stringToUpperCase)
	method(r, proto, "toLowerCase", 0, stringToLowerCase)
	method(r, proto, "trim", 0, stringTrim)
	method(r, proto, "trimStart", 0, stringTrimStart)
	method(r, proto, "trimEnd", 0, stringTrimEnd)
	method(r, proto, "split", 2, stringSplit)
	method(r, proto, "concat", 1, stringConcat)
	method(r, proto, "repeat", 1, stringRepeat)
	method(r, proto, "padStart", 2, stringPadStart)
	method(r, proto, "padEnd", 2, stringPadEnd)
	method(r, proto, "replace", 2, stringReplace)
	method(r, proto, "replaceAll", 2, stringReplaceAll)
	method(r, proto, "match", 1, stringMatch)
	symbolMethod(r, proto, r.Symbols.Iterator, "[Symbol.iterator]", 0, stringIterator)

	ctor := ctorObject(r, "String", 1, proto, stringCall, stringConstruct)
	r.Intrinsics.StringConstructor = ctor
	method(r, ctor, "fromCharCode", 1, stringFromCharCode)

	accessor(r, proto, "length", func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		s, exc := thisStringValue(vmc, this)
		if exc != nil {
			return value.Undefined, exc
		}
		return value.FromInt32(int32(len([]rune(s)))), nil
	}, nil)
}

func thisStringValue(vmc *vm.VM, this value.Value) (string, *object.Exception) {
	if this.IsString() {
		return this.AsString().GoString(), nil
	}
	if o, ok := this.AsObject().(*object.Object); this.IsObject() && ok {
		if sd, ok := o.Data().(*StringData); ok {
			return sd.Value, nil
		}
	}
	return "", vmc.TypeError("String.prototype method called on incompatible receiver")
}

func stringCall(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	if len(args) == 0 {
		return value.FromGoString(""), nil
	}
	if args[0].IsSymbol() {
		return value.FromGoString(vmc.ToPropertyKeyString(args[0])), nil
	}
	s, exc := vmc.ToJSString(args[0])
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(s), nil
}

func stringConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	s := ""
	if len(args) > 0 {
		var exc *object.Exception
		s, exc = vmc.ToJSString(args[0])
		if exc != nil {
			return value.Undefined, exc
		}
	}
	obj := object.New(vmc.Realm.Intrinsics.StringPrototype, object.DataString, &StringData{Value: s}, object.Ordinary)
	obj.DefineOwnProperty(vmc, object.LengthKey, object.DataDescriptor(value.FromInt32(int32(len([]rune(s)))), false, false, false))
	for i, ch := range []rune(s) {
		obj.DefineOwnProperty(vmc, shape.IndexKey(uint32(i)), object.DataDescriptor(value.FromGoString(string(ch)), false, true, false))
	}
	return value.FromObject(obj), nil
}

func stringToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(s), nil
}

func runesAndIndex(vmc *vm.VM, this value.Value, args []value.Value, argIdx int) ([]rune, int, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return nil, 0, exc
	}
	runes := []rune(s)
	n, _ := arg(args, argIdx).ToNumber()
	return runes, int(n), nil
}

func stringCharAt(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	runes, idx, exc := runesAndIndex(vmc, this, args, 0)
	if exc != nil {
		return value.Undefined, exc
	}
	if idx < 0 || idx >= len(runes) {
		return value.FromGoString(""), nil
	}
	return value.FromGoString(string(runes[idx])), nil
}

func stringCharCodeAt(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	runes, idx, exc := runesAndIndex(vmc, this, args, 0)
	if exc != nil {
		return value.Undefined, exc
	}
	if idx < 0 || idx >= len(runes) {
		return value.FromNumber(nanValue()), nil
	}
	return value.FromInt32(int32(runes[idx])), nil
}

func stringCodePointAt(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	runes, idx, exc := runesAndIndex(vmc, this, args, 0)
	if exc != nil {
		return value.Undefined, exc
	}
	if idx < 0 || idx >= len(runes) {
		return value.Undefined, nil
	}
	return value.FromInt32(int32(runes[idx])), nil
}

func stringAt(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	runes, idx, exc := runesAndIndex(vmc, this, args, 0)
	if exc != nil {
		return value.Undefined, exc
	}
	if idx < 0 {
		idx += len(runes)
	}
	if idx < 0 || idx >= len(runes) {
		return value.Undefined, nil
	}
	return value.FromGoString(string(runes[idx])), nil
}

func nanValue() float64 {
	var z float64
	return z / z
}

func stringIndexOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	search, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(runeIndex(s, strings.Index(s, search)))), nil
}

func runeIndex(s string, byteIdx int) int {
	if byteIdx < 0 {
		return -1
	}
	return len([]rune(s[:byteIdx]))
}

func stringLastIndexOf(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	search, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromInt32(int32(runeIndex(s, strings.LastIndex(s, search)))), nil
}

func stringIncludes(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	search, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(strings.Contains(s, search)), nil
}

func stringStartsWith(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	search, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(strings.HasPrefix(s, search)), nil
}

func stringEndsWith(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	search, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(strings.HasSuffix(s, search)), nil
}

func stringSlice(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	runes := []rune(s)
	n := len(runes)
	start := relativeIndex(n, arg(args, 0), 0)
	end := relativeIndex(n, arg(args, 1), n)
	if start >= end {
		return value.FromGoString(""), nil
	}
	return value.FromGoString(string(runes[start:end])), nil
}

func stringSubstring(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	runes := []rune(s)
	n := len(runes)
	clamp := func(v value.Value, dflt int) int {
		if v.IsUndefined() {
			return dflt
		}
		f, _ := v.ToNumber()
		i := int(f)
		if i < 0 {
			i = 0
		}
		if i > n {
			i = n
		}
		return i
	}
	start := clamp(arg(args, 0), 0)
	end := clamp(arg(args, 1), n)
	if start > end {
		start, end = end, start
	}
	return value.FromGoString(string(runes[start:end])), nil
}

func stringSubstr(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	runes := []rune(s)
	n := len(runes)
	start := relativeIndex(n, arg(args, 0), 0)
	length := n - start
	if lv := arg(args, 1); !lv.IsUndefined() {
		f, _ := lv.ToNumber()
		length = int(f)
	}
	if length < 0 {
		length = 0
	}
	end := start + length
	if end > n {
		end = n
	}
	if start >= end {
		return value.FromGoString(""), nil
	}
	return value.FromGoString(string(runes[start:end])), nil
}

func stringToUpperCase(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(strings.ToUpper(s)), nil
}

func stringToLowerCase(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(strings.ToLower(s)), nil
}

func stringTrim(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(strings.TrimSpace(s)), nil
}

func stringTrimStart(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(strings.TrimLeft(s, " \t\n\r\v\f")), nil
}

func stringTrimEnd(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(strings.TrimRight(s, " \t\n\r\v\f")), nil
}

func stringSplit(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	sepArg := arg(args, 0)
	if sepArg.IsUndefined() {
		return value.FromObject(vmc.NewArray([]value.Value{value.FromGoString(s)})), nil
	}
	if ro, ok := sepArg.AsObject().(*object.Object); sepArg.IsObject() && ok && ro.DataKindOf() == object.DataRegExp {
		return stringSplitRegExp(vmc, s, ro)
	}
	sep, exc := vmc.ToJSString(sepArg)
	if exc != nil {
		return value.Undefined, exc
	}
	var parts []string
	if sep == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, sep)
	}
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.FromGoString(p)
	}
	return value.FromObject(vmc.NewArray(out)), nil
}

func stringConcat(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	var b strings.Builder
	b.WriteString(s)
	for _, a := range args {
		p, exc := vmc.ToJSString(a)
		if exc != nil {
			return value.Undefined, exc
		}
		b.WriteString(p)
	}
	return value.FromGoString(b.String()), nil
}

func stringRepeat(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	n, _ := arg(args, 0).ToNumber()
	if n < 0 {
		return value.Undefined, vmc.RangeError("Invalid count value")
	}
	return value.FromGoString(strings.Repeat(s, int(n))), nil
}

func stringPadStart(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return stringPad(vmc, this, args, true)
}

func stringPadEnd(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return stringPad(vmc, this, args, false)
}

func stringPad(vmc *vm.VM, this value.Value, args []value.Value, start bool) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	targetLen, _ := arg(args, 0).ToNumber()
	pad := " "
	if p := arg(args, 1); !p.IsUndefined() {
		pad, exc = vmc.ToJSString(p)
		if exc != nil {
			return value.Undefined, exc
		}
	}
	runes := []rune(s)
	need := int(targetLen) - len(runes)
	if need <= 0 || pad == "" {
		return value.FromGoString(s), nil
	}
	padRunes := []rune(strings.Repeat(pad, need/len([]rune(pad))+1))[:need]
	if start {
		return value.FromGoString(string(padRunes) + s), nil
	}
	return value.FromGoString(s + string(padRunes)), nil
}

func stringReplace(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return stringReplaceImpl(vmc, this, args, false)
}

func stringReplaceAll(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return stringReplaceImpl(vmc, this, args, true)
}

func stringReplaceImpl(vmc *vm.VM, this value.Value, args []value.Value, all bool) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	patArg := arg(args, 0)
	replArg := arg(args, 1)
	if ro, ok := patArg.AsObject().(*object.Object); patArg.IsObject() && ok && ro.DataKindOf() == object.DataRegExp {
		return regexpReplace(vmc, ro, s, replArg, all)
	}
	pat, exc := vmc.ToJSString(patArg)
	if exc != nil {
		return value.Undefined, exc
	}
	replacer := func(match string) (string, *object.Exception) {
		if fo, ok := replArg.AsObject().(*object.Object); replArg.IsObject() && ok && fo.IsCallable() {
			idx := strings.Index(s, match)
			res, exc := vmc.Call(fo, value.Undefined, []value.Value{value.FromGoString(match), value.FromInt32(int32(runeIndex(s, idx))), value.FromGoString(s)})
			if exc != nil {
				return "", exc
			}
			return vmc.ToJSString(res)
		}
		repl, exc := vmc.ToJSString(replArg)
		if exc != nil {
			return "", exc
		}
		return strings.ReplaceAll(repl, "$&", match), nil
	}
	if all {
		var b strings.Builder
		rest := s
		for {
			idx := strings.Index(rest, pat)
			if idx < 0 || pat == "" {
				b.WriteString(rest)
				break
			}
			b.WriteString(rest[:idx])
			rep, exc := replacer(pat)
			if exc != nil {
				return value.Undefined, exc
			}
			b.WriteString(rep)
			rest = rest[idx+len(pat):]
		}
		return value.FromGoString(b.String()), nil
	}
	idx := strings.Index(s, pat)
	if idx < 0 {
		return value.FromGoString(s), nil
	}
	rep, exc := replacer(pat)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString(s[:idx] + rep + s[idx+len(pat):]), nil
}

func stringFromCharCode(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	runes := make([]rune, len(args))
	for i, a := range args {
		n, exc := vmc.ToNumber(a)
		if exc != nil {
			return value.Undefined, exc
		}
		runes[i] = rune(int32(n))
	}
	return value.FromGoString(string(runes)), nil
}

func stringMatch(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	patArg := arg(args, 0)
	var ro *object.Object
	if o, ok := patArg.AsObject().(*object.Object); patArg.IsObject() && ok && o.DataKindOf() == object.DataRegExp {
		ro = o
	} else {
		pat, exc := vmc.ToJSString(patArg)
		if exc != nil {
			return value.Undefined, exc
		}
		ro, exc = vmc.MakeRegExp(pat, "")
		if exc != nil {
			return value.Undefined, exc
		}
	}
	return regexpMatch(vmc, ro, s)
}

func stringIterator(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	s, exc := thisStringValue(vmc, this)
	if exc != nil {
		return value.Undefined, exc
	}
	runes := []rune(s)
	i := 0
	return value.FromObject(vmc.MakeNativeIterator(func() (value.Value, bool, *object.Exception) {
		if i >= len(runes) {
			return value.Undefined, true, nil
		}
		ch := runes[i]
		i++
		return value.FromGoString(string(ch)), false, nil
	})), nil
}
