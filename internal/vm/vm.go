package vm

import (
	"fmt"

	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/jsenv"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// Microtask is one job the VM's owner (internal/jobqueue) drains after
// the synchronous portion of a script/module evaluation completes.
type Microtask func() *object.Exception

// VM executes compiled CodeBlocks against one Realm. It implements
// object.Interpreter so every internal-method call that re-enters
// script code (getters, setters, proxy traps, iterator protocol calls)
// routes back through here.
type VM struct {
	Realm *realm.Realm

	// EnqueueJob, when set, lets builtins (Promise reactions) hand a
	// microtask to the embedder's job queue without internal/vm
	// importing internal/jobqueue (which would cycle back through the
	// Interpreter this package already supplies it).
	EnqueueJob func(Microtask)

	frame *Frame
	depth int
}

// New creates a VM bound to a bootstrapped realm.
func New(r *realm.Realm) *VM { return &VM{Realm: r} }

const maxCallDepth = 4096

// RunScript executes a compiled script CodeBlock against the VM's
// realm top-level environment and returns its completion value.
func (vm *VM) RunScript(cb *compiler.CodeBlock) (value.Value, *object.Exception) {
	f := newFrame(cb, nil, value.FromObject(vm.Realm.GlobalObject), true, nil, nil, nil)
	return vm.runFrame(f)
}

// RunModule executes a compiled module CodeBlock against env, the
// module's own pre-built top-level environment (internal/module
// constructs this during Link, chained to an outer environment holding
// its linked import bindings, so a namespace object can read exports
// out of the same environment instance execution actually populates).
func (vm *VM) RunModule(cb *compiler.CodeBlock, env *jsenv.DeclarativeEnvironment) (value.Value, *object.Exception) {
	f := newFrameWithEnv(cb, env, value.Undefined, true)
	return vm.runFrame(f)
}

// RunModuleAsync executes a module CodeBlock known to contain a
// top-level await the same way an async function body runs (§4.8
// "module body runs as if wrapped in an async function"): its frame
// drains on its own coroutine so OpAwait can suspend instead of
// requiring the no-coroutine pass-through RunModule's plain frame
// would give it. It has the same limitation documented on runAsync: an
// await drains immediately and never yields to other script.
func (vm *VM) RunModuleAsync(cb *compiler.CodeBlock, env *jsenv.DeclarativeEnvironment) (value.Value, *object.Exception) {
	f := newFrameWithEnv(cb, env, value.Undefined, true)
	if vm.depth >= maxCallDepth {
		return value.Undefined, vm.RangeError("Maximum call stack size exceeded")
	}
	prev := vm.frame
	vm.depth++
	defer func() { vm.frame = prev; vm.depth-- }()
	return vm.runAsync(f)
}

func (vm *VM) runFrame(f *Frame) (value.Value, *object.Exception) {
	if vm.depth >= maxCallDepth {
		return value.Undefined, vm.RangeError("Maximum call stack size exceeded")
	}
	prev := vm.frame
	vm.frame = f
	vm.depth++
	defer func() { vm.frame = prev; vm.depth-- }()
	return vm.exec(f)
}

// Call implements object.Interpreter: invoke a callable value.Objecter.
func (vm *VM) Call(fn value.Objecter, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	obj, ok := fn.(*object.Object)
	if !ok || !obj.IsCallable() {
		return value.Undefined, vm.TypeError("value is not a function")
	}
	switch d := obj.Data().(type) {
	case *FunctionData:
		if d.IsClassConstructor {
			return value.Undefined, vm.TypeError("class constructors cannot be invoked without 'new'")
		}
		actualThis := vm.resolveThis(d, this)
		if d.CodeBlock.Generator {
			f := newFrame(d.CodeBlock, d.Closure, actualThis, true, nil, nil, d)
			vm.bindParams(f, d.CodeBlock, args)
			return value.FromObject(vm.makeGeneratorObject(f)), nil
		}
		f := newFrame(d.CodeBlock, d.Closure, actualThis, true, nil, vm.frame, d)
		if d.CodeBlock.Async {
			vm.bindParams(f, d.CodeBlock, args)
			return vm.runAsync(f)
		}
		return vm.callWithParams(f, d.CodeBlock, args)
	case *NativeFunctionData:
		if d.Call == nil {
			return value.Undefined, vm.TypeError("%s is not callable", d.Name)
		}
		return d.Call(vm, this, args)
	case *BoundFunctionData:
		return vm.Call(d.Target, d.BoundThis, append(append([]value.Value(nil), d.BoundArgs...), args...))
	}
	return value.Undefined, vm.TypeError("value is not a function")
}

// Construct implements object.Interpreter.
func (vm *VM) Construct(fn value.Objecter, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	obj, ok := fn.(*object.Object)
	if !ok || !obj.IsConstructor() {
		return value.Undefined, vm.TypeError("value is not a constructor")
	}
	switch d := obj.Data().(type) {
	case *FunctionData:
		proto := vm.prototypeFromConstructor(newTarget)
		inst := object.New(proto, object.DataOrdinary, nil, object.Ordinary)
		if err := vm.runFieldInitializers(d, inst); err != nil {
			return value.Undefined, err
		}
		if d.CodeBlock == nil {
			// Synthesized default constructor: `super(...args)` for a
			// derived class, or an empty body for a base class.
			if d.SuperCtor != nil {
				if _, exc := vm.Construct(d.SuperCtor, args, newTarget); exc != nil {
					return value.Undefined, exc
				}
			}
			return value.FromObject(inst), nil
		}
		f := newFrame(d.CodeBlock, d.Closure, value.FromObject(inst), true, newTarget, vm.frame, d)
		result, exc := vm.callWithParams(f, d.CodeBlock, args)
		if exc != nil {
			return value.Undefined, exc
		}
		if result.IsObject() {
			return result, nil
		}
		return value.FromObject(inst), nil
	case *NativeFunctionData:
		if d.Construct == nil {
			return value.Undefined, vm.TypeError("%s is not a constructor", d.Name)
		}
		return d.Construct(vm, args, newTarget)
	case *BoundFunctionData:
		return vm.Construct(d.Target, append(append([]value.Value(nil), d.BoundArgs...), args...), newTarget)
	}
	return value.Undefined, vm.TypeError("value is not a constructor")
}

func (vm *VM) prototypeFromConstructor(newTarget value.Objecter) object.Prototype {
	if newTarget == nil {
		return vm.Realm.Intrinsics.ObjectPrototype
	}
	ctor, ok := newTarget.(*object.Object)
	if !ok {
		return vm.Realm.Intrinsics.ObjectPrototype
	}
	protoVal, exc := ctor.Get(vm, shape.StringKey("prototype"), value.FromObject(ctor))
	if exc != nil || !protoVal.IsObject() {
		return vm.Realm.Intrinsics.ObjectPrototype
	}
	if p, ok := protoVal.AsObject().(*object.Object); ok {
		return p
	}
	return vm.Realm.Intrinsics.ObjectPrototype
}

func (vm *VM) runFieldInitializers(d *FunctionData, inst *object.Object) *object.Exception {
	for _, fi := range d.Fields {
		key := fi.key
		if fi.computed && fi.keyFn != nil {
			kf := &FunctionData{CodeBlock: fi.keyFn, Closure: d.Closure, Realm: d.Realm}
			kv, exc := vm.callThunk(kf, value.FromObject(inst))
			if exc != nil {
				return exc
			}
			key = vm.ToPropertyKeyString(kv)
		}
		var v value.Value
		if fi.init != nil {
			initData := &FunctionData{CodeBlock: fi.init, Closure: d.Closure, Realm: d.Realm}
			var exc *object.Exception
			v, exc = vm.callThunk(initData, value.FromObject(inst))
			if exc != nil {
				return exc
			}
		} else {
			v = value.Undefined
		}
		if _, exc := inst.DefineOwnProperty(vm, shape.StringKey(key), object.DataDescriptor(v, true, true, true)); exc != nil {
			return exc
		}
	}
	return nil
}

// callThunk runs a zero-argument CodeBlock (used for computed class
// keys and field initializers) with this bound to instance.
func (vm *VM) callThunk(fn *FunctionData, this value.Value) (value.Value, *object.Exception) {
	f := newFrame(fn.CodeBlock, fn.Closure, this, true, nil, vm.frame, fn)
	return vm.runFrame(f)
}

// resolveThis applies non-strict this-substitution (undefined/null this
// becomes the global object) for ordinary function calls; arrow
// functions carry no `this` binding of their own so they ignore it.
func (vm *VM) resolveThis(d *FunctionData, this value.Value) value.Value {
	if d.CodeBlock.Arrow {
		return value.Undefined // arrow frames read `this` from their closure chain instead
	}
	if !d.CodeBlock.Strict && this.IsNullish() {
		return value.FromObject(vm.Realm.GlobalObject)
	}
	return this
}

// callWithParams binds args into the callee's parameter slots before
// handing the frame to the dispatch loop.
func (vm *VM) callWithParams(f *Frame, cb *compiler.CodeBlock, args []value.Value) (value.Value, *object.Exception) {
	vm.bindParams(f, cb, args)
	return vm.runFrame(f)
}

// bindParams initializes a fresh frame's parameter slots (and its
// `arguments` binding, for non-arrow functions) from args, without
// starting execution; generator/async calls need the binding step
// separated from execution since the body doesn't run until the first
// resume.
func (vm *VM) bindParams(f *Frame, cb *compiler.CodeBlock, args []value.Value) {
	for i, p := range cb.Params {
		var v value.Value
		if i < len(args) {
			v = args[i]
		} else {
			v = value.Undefined
		}
		f.env.InitializeBinding(p.Index, v)
	}
	// Bind the arguments object for non-arrow functions; indexable and
	// iterable enough for common use without claiming exact exotic
	// Arguments behavior (no linked-mapped indices to parameters).
	if !cb.Arrow {
		if idx, _, _, ok := lookupArguments(cb); ok {
			f.env.InitializeBinding(idx, vm.makeArgumentsObject(args))
		}
	}
}

func lookupArguments(cb *compiler.CodeBlock) (uint32, uint32, bool, bool) {
	for i, n := range cb.LocalNames {
		if n == "arguments" {
			return uint32(i), 0, false, true
		}
	}
	return 0, 0, false, false
}

func (vm *VM) makeArgumentsObject(args []value.Value) value.Value {
	arr := vm.NewArray(args)
	return value.FromObject(arr)
}

// TypeError implements object.Interpreter.
func (vm *VM) TypeError(format string, args ...interface{}) *object.Exception {
	return vm.makeError(vm.Realm.Intrinsics.TypeErrorPrototype, format, args...)
}

func (vm *VM) RangeError(format string, args ...interface{}) *object.Exception {
	return vm.makeError(vm.Realm.Intrinsics.RangeErrorPrototype, format, args...)
}

func (vm *VM) ReferenceError(format string, args ...interface{}) *object.Exception {
	return vm.makeError(vm.Realm.Intrinsics.ReferenceErrorPrototype, format, args...)
}

func (vm *VM) SyntaxError(format string, args ...interface{}) *object.Exception {
	return vm.makeError(vm.Realm.Intrinsics.SyntaxErrorPrototype, format, args...)
}

func (vm *VM) makeError(proto *object.Object, format string, args ...interface{}) *object.Exception {
	msg := fmt.Sprintf(format, args...)
	errObj := object.New(proto, object.DataError, nil, object.Ordinary)
	errObj.DefineOwnProperty(vm, shape.StringKey("message"), object.DataDescriptor(value.FromGoString(msg), true, false, true))
	errObj.DefineOwnProperty(vm, shape.StringKey("stack"), object.DataDescriptor(value.FromGoString(vm.StackTrace(msg)), true, false, true))
	return object.Throw(value.FromObject(errObj))
}

func (vm *VM) StackTrace(msg string) string {
	trace := msg
	for f := vm.frame; f != nil; f = f.caller {
		name := "<anonymous>"
		if f.cb != nil {
			name = f.cb.Name
		}
		trace += "\n    at " + name
	}
	return trace
}
