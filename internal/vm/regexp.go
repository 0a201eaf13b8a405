package vm

import (
	"github.com/dlclark/regexp2"

	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// RegExpData is the DataRegExp payload: the source text plus the
// compiled dlclark/regexp2 matcher (chosen over stdlib regexp for its
// backtracking-engine support of lookaround/backreferences, which
// ECMAScript regular expressions allow and RE2-style engines reject).
type RegExpData struct {
	Source    string
	Flags     string
	Re        *regexp2.Regexp
	LastIndex int
}

// regexp2Options maps the ECMAScript regex flag letters this engine
// understands onto dlclark/regexp2's option bitmask; `g`/`y` have no
// regexp2 counterpart and are tracked only via Flags/exec's own
// lastIndex bookkeeping.
func regexp2Options(flags string) regexp2.RegexOptions {
	opts := regexp2.None
	for _, c := range flags {
		switch c {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 's':
			opts |= regexp2.Singleline
		case 'm':
			opts |= regexp2.Multiline
		}
	}
	return opts
}

// MakeRegExp builds a RegExp instance from a literal's pattern/flags,
// the runtime half of OpMakeRegExp and of the RegExp constructor in
// internal/builtins/regexpobj.go.
func (vm *VM) MakeRegExp(pattern, flags string) (*object.Object, *object.Exception) {
	re, err := regexp2.Compile(pattern, regexp2Options(flags))
	if err != nil {
		return nil, vm.SyntaxError("Invalid regular expression: %s", err.Error())
	}
	rd := &RegExpData{Source: pattern, Flags: flags, Re: re}
	obj := object.New(vm.Realm.Intrinsics.RegExpPrototype, object.DataRegExp, rd, object.Ordinary)
	obj.DefineOwnProperty(vm, shape.StringKey("source"), object.DataDescriptor(value.FromGoString(pattern), false, false, false))
	obj.DefineOwnProperty(vm, shape.StringKey("flags"), object.DataDescriptor(value.FromGoString(flags), false, false, false))
	obj.DefineOwnProperty(vm, shape.StringKey("global"), object.DataDescriptor(value.FromBool(hasFlag(flags, 'g')), false, false, false))
	obj.DefineOwnProperty(vm, shape.StringKey("ignoreCase"), object.DataDescriptor(value.FromBool(hasFlag(flags, 'i')), false, false, false))
	obj.DefineOwnProperty(vm, shape.StringKey("multiline"), object.DataDescriptor(value.FromBool(hasFlag(flags, 'm')), false, false, false))
	obj.DefineOwnProperty(vm, shape.StringKey("sticky"), object.DataDescriptor(value.FromBool(hasFlag(flags, 'y')), false, false, false))
	obj.DefineOwnProperty(vm, shape.StringKey("unicode"), object.DataDescriptor(value.FromBool(hasFlag(flags, 'u')), false, false, false))
	obj.DefineOwnProperty(vm, shape.StringKey("lastIndex"), object.DataDescriptor(value.FromNumber(0), true, false, false))
	return obj, nil
}

func hasFlag(flags string, c byte) bool {
	for i := 0; i < len(flags); i++ {
		if flags[i] == c {
			return true
		}
	}
	return false
}

// RegexpExec implements RegExp.prototype.exec's core matching step
// (used by internal/builtins/regexpobj.go): match src starting no earlier than
// fromIndex, returning the match and its capture groups, or ok=false.
func (vm *VM) RegexpExec(rd *RegExpData, src string, fromIndex int) (match *regexp2.Match, ok bool, exc *object.Exception) {
	if fromIndex < 0 {
		fromIndex = 0
	}
	runes := []rune(src)
	if fromIndex > len(runes) {
		return nil, false, nil
	}
	m, err := rd.Re.FindRunesMatchStartingAt(runes, fromIndex)
	if err != nil {
		return nil, false, vm.TypeError("regular expression match failed: %s", err.Error())
	}
	if m == nil {
		return nil, false, nil
	}
	return m, true, nil
}
