package object

import "github.com/quartzjs/quartz/internal/value"

// Exception carries a thrown script value up through Go's error
// channel, keeping §7's two error kinds ("engine errors" vs "script
// errors") distinct at the type level: callers that only want to
// propagate a native Go error use a plain error; anything that must
// eventually become a catch-able ECMAScript throw is an *Exception.
type Exception struct {
	Value value.Value
}

func (e *Exception) Error() string {
	if e.Value.IsString() {
		return e.Value.AsString().GoString()
	}
	return e.Value.TypeOf() + " exception"
}

func Throw(v value.Value) *Exception { return &Exception{Value: v} }

// Interpreter is the minimal callback surface internal/object needs
// back from the VM: invoking accessor getters/setters, proxy traps,
// and [[Call]]/[[Construct]] targets all re-enter user code. Defining
// this interface here (rather than importing internal/vm) avoids an
// object<->vm import cycle, since the VM's frames hold *Object values.
type Interpreter interface {
	Call(fn value.Objecter, this value.Value, args []value.Value) (value.Value, *Exception)
	Construct(fn value.Objecter, args []value.Value, newTarget value.Objecter) (value.Value, *Exception)
	TypeError(format string, args ...interface{}) *Exception
}
