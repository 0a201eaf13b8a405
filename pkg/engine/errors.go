package engine

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// ScriptError wraps a thrown script value as a Go error, the host-side
// half of §7's two error channels: engine errors surface as plain Go
// errors (see the fmt.Errorf wraps throughout engine.go), script
// errors - anything a `throw` statement raised - surface as this type
// so a caller can still recover the original Value with Thrown.
type ScriptError struct {
	// Thrown is the exact value the script threw; not every throw is
	// an Error instance (`throw "oops"` and `throw 42` are both legal).
	Thrown  value.Value
	name    string
	message string
	stack   string
}

// Error renders "<Name>: <message>" when the thrown value looks like
// an Error instance (has a name and/or message property). Otherwise it
// falls back to the thrown string itself, or to "<typeof> exception"
// (e.g. "number exception") for any other thrown value.
func (e *ScriptError) Error() string {
	if e.name == "" && e.message == "" {
		return e.fallbackString()
	}
	if e.message == "" {
		return e.name
	}
	if e.name == "" {
		return e.message
	}
	return e.name + ": " + e.message
}

// Stack returns the non-standard "stack" property string an Error
// object carries, or "" if the thrown value isn't one (§7 "a
// non-standard stack property").
func (e *ScriptError) Stack() string { return e.stack }

func (e *ScriptError) fallbackString() string {
	switch e.Thrown.Kind() {
	case value.KindString:
		return e.Thrown.AsString().GoString()
	default:
		return e.Thrown.TypeOf() + " exception"
	}
}

// wrapException converts a VM-level Exception into a ScriptError,
// reading name and message through [[Get]] (so a name inherited from
// the error's prototype counts) and converting them with ToJSString,
// the same way internal/builtins/errorobj.go's errorToString does; stack
// is kept only when it is a string.
func (c *Context) wrapException(exc *object.Exception) error {
	se := &ScriptError{Thrown: exc.Value}
	obj, ok := exc.Value.AsObject().(*object.Object)
	if !exc.Value.IsObject() || !ok {
		return se
	}
	if nv, e := obj.Get(c.VM, shape.StringKey("name"), exc.Value); e == nil && !nv.IsUndefined() {
		if s, e := c.VM.ToJSString(nv); e == nil {
			se.name = s
		}
	}
	if mv, e := obj.Get(c.VM, shape.StringKey("message"), exc.Value); e == nil && !mv.IsUndefined() {
		if s, e := c.VM.ToJSString(mv); e == nil {
			se.message = s
		}
	}
	if sv, e := obj.Get(c.VM, shape.StringKey("stack"), exc.Value); e == nil && sv.IsString() {
		se.stack = sv.AsString().GoString()
	}
	return se
}
