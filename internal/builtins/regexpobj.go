package builtins

import (
	"strconv"
	"strings"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

func bootstrapRegExp(r *realm.Realm) {
	proto := object.New(r.Intrinsics.ObjectPrototype, object.DataRegExp, nil, object.Ordinary)
	r.Intrinsics.RegExpPrototype = proto

	method(r, proto, "exec", 1, regexpExecMethod)
	method(r, proto, "test", 1, regexpTest)
	method(r, proto, "toString", 0, regexpToString)

	ctor := ctorObject(r, "RegExp", 2, proto, regexpCall, regexpConstruct)
	r.Intrinsics.RegExpConstructor = ctor
}

func thisRegExp(vmc *vm.VM, this value.Value, what string) (*object.Object, *vm.RegExpData, *object.Exception) {
	o, ok := this.AsObject().(*object.Object)
	if !this.IsObject() || !ok {
		return nil, nil, vmc.TypeError("%s called on non-object", what)
	}
	rd, ok := o.Data().(*vm.RegExpData)
	if !ok {
		return nil, nil, vmc.TypeError("%s called on non-RegExp", what)
	}
	return o, rd, nil
}

func regexpCall(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return regexpConstruct(vmc, args, nil)
}

func regexpConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	patArg := arg(args, 0)
	if ro, ok := patArg.AsObject().(*object.Object); patArg.IsObject() && ok && ro.DataKindOf() == object.DataRegExp {
		rd := ro.Data().(*vm.RegExpData)
		flags := rd.Flags
		if f := arg(args, 1); !f.IsUndefined() {
			var exc *object.Exception
			flags, exc = vmc.ToJSString(f)
			if exc != nil {
				return value.Undefined, exc
			}
		}
		obj, exc := vmc.MakeRegExp(rd.Source, flags)
		if exc != nil {
			return value.Undefined, exc
		}
		return value.FromObject(obj), nil
	}
	pattern := ""
	if !patArg.IsUndefined() {
		var exc *object.Exception
		pattern, exc = vmc.ToJSString(patArg)
		if exc != nil {
			return value.Undefined, exc
		}
	}
	flags := ""
	if f := arg(args, 1); !f.IsUndefined() {
		var exc *object.Exception
		flags, exc = vmc.ToJSString(f)
		if exc != nil {
			return value.Undefined, exc
		}
	}
	obj, exc := vmc.MakeRegExp(pattern, flags)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromObject(obj), nil
}

func regexpExecMethod(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	o, _, exc := thisRegExp(vmc, this, "RegExp.prototype.exec")
	if exc != nil {
		return value.Undefined, exc
	}
	s, exc := vmc.ToJSString(arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	return regexpMatch(vmc, o, s)
}

func regexpTest(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	res, exc := regexpExecMethod(vmc, this, args)
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromBool(!res.IsNull()), nil
}

func regexpToString(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	_, rd, exc := thisRegExp(vmc, this, "RegExp.prototype.toString")
	if exc != nil {
		return value.Undefined, exc
	}
	return value.FromGoString("/" + rd.Source + "/" + rd.Flags), nil
}

// regexpMatch runs RegExp.prototype.exec's core algorithm: honor
// lastIndex for global/sticky regexes, build the match-result array
// (index/input/groups alongside the numbered captures), and advance or
// reset lastIndex per the spec.
func regexpMatch(vmc *vm.VM, o *object.Object, s string) (value.Value, *object.Exception) {
	rd := o.Data().(*vm.RegExpData)
	global := hasFlagChar(rd.Flags, 'g') || hasFlagChar(rd.Flags, 'y')
	start := 0
	if global {
		lv, exc := o.Get(vmc, shape.StringKey("lastIndex"), value.FromObject(o))
		if exc != nil {
			return value.Undefined, exc
		}
		f, _ := lv.ToNumber()
		start = int(f)
	}
	m, ok, exc := vmc.RegexpExec(rd, s, start)
	if exc != nil {
		return value.Undefined, exc
	}
	if !ok {
		if global {
			o.Set(vmc, shape.StringKey("lastIndex"), value.FromNumber(0), value.FromObject(o), true)
		}
		return value.Null, nil
	}
	if global {
		newIdx := m.Index + m.Length
		if m.Length == 0 {
			newIdx++
		}
		o.Set(vmc, shape.StringKey("lastIndex"), value.FromNumber(float64(newIdx)), value.FromObject(o), true)
	}
	groups := m.Groups()
	out := make([]value.Value, 0, len(groups))
	for _, g := range groups {
		if g.Length == 0 && len(g.Captures) == 0 {
			out = append(out, value.Undefined)
			continue
		}
		out = append(out, value.FromGoString(g.String()))
	}
	arr := vmc.NewArray(out)
	arr.DefineOwnProperty(vmc, shape.StringKey("index"), object.DataDescriptor(value.FromInt32(int32(m.Index)), true, true, true))
	arr.DefineOwnProperty(vmc, shape.StringKey("input"), object.DataDescriptor(value.FromGoString(s), true, true, true))
	arr.DefineOwnProperty(vmc, shape.StringKey("groups"), object.DataDescriptor(value.Undefined, true, true, true))
	return value.FromObject(arr), nil
}

func hasFlagChar(flags string, c byte) bool {
	for i := 0; i < len(flags); i++ {
		if flags[i] == c {
			return true
		}
	}
	return false
}

// regexpReplace implements String.prototype.replace/replaceAll's
// regexp-pattern branch: re-use regexpMatch so lastIndex bookkeeping
// (and the global-flag repeat loop) stays in one place.
func regexpReplace(vmc *vm.VM, ro *object.Object, s string, replArg value.Value, forceAll bool) (value.Value, *object.Exception) {
	rd := ro.Data().(*vm.RegExpData)
	global := forceAll || hasFlagChar(rd.Flags, 'g')
	if global {
		ro.Set(vmc, shape.StringKey("lastIndex"), value.FromNumber(0), value.FromObject(ro), true)
	}
	var b strings.Builder
	last := 0
	for {
		res, exc := regexpMatch(vmc, ro, s)
		if exc != nil {
			return value.Undefined, exc
		}
		if res.IsNull() {
			break
		}
		mo := res.AsObject().(*object.Object)
		idxVal, _ := mo.Get(vmc, shape.StringKey("index"), res)
		idx, _ := idxVal.ToNumber()
		matchVal, _ := mo.Get(vmc, shape.IndexKey(0), res)
		matchStr := matchVal.AsString().GoString()
		runes := []rune(s)
		byteIdx := len(string(runes[:int(idx)]))
		b.WriteString(s[last:byteIdx])
		rep, exc := replacementFor(vmc, replArg, mo, res, matchStr, int(idx), s)
		if exc != nil {
			return value.Undefined, exc
		}
		b.WriteString(rep)
		last = byteIdx + len(matchStr)
		if !global {
			break
		}
		if matchStr == "" {
			break
		}
	}
	b.WriteString(s[last:])
	return value.FromGoString(b.String()), nil
}

func replacementFor(vmc *vm.VM, replArg value.Value, mo *object.Object, res value.Value, matchStr string, idx int, s string) (string, *object.Exception) {
	if fo, ok := replArg.AsObject().(*object.Object); replArg.IsObject() && ok && fo.IsCallable() {
		elems, exc := vmc.ArrayElements(mo)
		if exc != nil {
			return "", exc
		}
		callArgs := append(append([]value.Value{}, elems...), value.FromInt32(int32(idx)), value.FromGoString(s))
		out, exc := vmc.Call(fo, value.Undefined, callArgs)
		if exc != nil {
			return "", exc
		}
		return vmc.ToJSString(out)
	}
	repl, exc := vmc.ToJSString(replArg)
	if exc != nil {
		return "", exc
	}
	repl = strings.ReplaceAll(repl, "$&", matchStr)
	elems, _ := vmc.ArrayElements(mo)
	for i := 1; i < len(elems); i++ {
		g := ""
		if elems[i].IsString() {
			g = elems[i].AsString().GoString()
		}
		repl = strings.ReplaceAll(repl, "$"+strconv.Itoa(i), g)
	}
	return repl, nil
}

// stringSplitRegExp implements String.prototype.split's RegExp-pattern
// branch.
func stringSplitRegExp(vmc *vm.VM, s string, ro *object.Object) (value.Value, *object.Exception) {
	rd := ro.Data().(*vm.RegExpData)
	runes := []rune(s)
	var out []value.Value
	pos := 0
	for pos <= len(runes) {
		m, ok, exc := vmc.RegexpExec(rd, s, pos)
		if exc != nil {
			return value.Undefined, exc
		}
		if !ok {
			break
		}
		if m.Length == 0 && m.Index == pos {
			if pos >= len(runes) {
				break
			}
			pos++
			continue
		}
		out = append(out, value.FromGoString(string(runes[pos:m.Index])))
		pos = m.Index + m.Length
	}
	out = append(out, value.FromGoString(string(runes[pos:])))
	return value.FromObject(vmc.NewArray(out)), nil
}
