package vm

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// generatorState tracks a Generator object's position in its state
// machine (§4.9), driven entirely by generatorResume.
type generatorState uint8

const (
	genSuspendedStart generatorState = iota
	genSuspendedYield
	genExecuting
	genCompleted
)

// GeneratorData is the DataGenerator payload: the suspended frame plus
// the coroutine multiplexing resume/suspend across it. Built lazily on
// the first resume so a generator created but never iterated never
// spawns a goroutine.
type GeneratorData struct {
	frame *Frame
	co    *coroutine
	state generatorState
}

// makeGeneratorObject wraps an already-param-bound frame (body not yet
// started) in a Generator instance exposing next/throw/return as own
// properties, the same self-contained pattern MakeNativeIterator uses
// rather than depending on a shared GeneratorPrototype method lookup.
func (vm *VM) makeGeneratorObject(f *Frame) *object.Object {
	gd := &GeneratorData{frame: f, state: genSuspendedStart}
	obj := object.New(vm.Realm.Intrinsics.GeneratorPrototype, object.DataGenerator, gd, object.Ordinary)
	define := func(name string, call func(vm *VM, this value.Value, args []value.Value) (value.Value, *object.Exception)) {
		nd := &NativeFunctionData{Name: name, Length: 1, Call: call}
		fo := object.New(vm.Realm.Intrinsics.FunctionPrototype, object.DataFunction, nd, CallableMethods)
		obj.DefineOwnProperty(vm, shape.StringKey(name), object.DataDescriptor(value.FromObject(fo), true, false, true))
	}
	define("next", func(vm *VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return vm.generatorResume(gd, resumeNext, argOrUndefined(args, 0))
	})
	define("throw", func(vm *VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return vm.generatorResume(gd, resumeThrow, argOrUndefined(args, 0))
	})
	define("return", func(vm *VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return vm.generatorResume(gd, resumeReturn, argOrUndefined(args, 0))
	})
	return obj
}

func argOrUndefined(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}

// generatorResume drives gd's coroutine one step, implementing the
// three entry points (next/throw/return) over the same state machine.
func (vm *VM) generatorResume(gd *GeneratorData, kind resumeKind, v value.Value) (value.Value, *object.Exception) {
	if gd.state == genExecuting {
		return value.Undefined, vm.TypeError("generator is already executing")
	}
	if gd.state == genCompleted {
		if kind == resumeThrow {
			return value.Undefined, object.Throw(v)
		}
		if kind == resumeReturn {
			return vm.IterResult(v, true), nil
		}
		return vm.IterResult(value.Undefined, true), nil
	}
	starting := gd.state == genSuspendedStart
	if starting && kind != resumeNext {
		gd.state = genCompleted
		if kind == resumeThrow {
			return value.Undefined, object.Throw(v)
		}
		return vm.IterResult(v, true), nil
	}
	if gd.co == nil {
		gd.co = newCoroutine(func(c *coroutine) {
			gd.frame.coroutine = c
			result, exc := vm.exec(gd.frame)
			c.finish(result, exc)
		})
	}
	gd.state = genExecuting
	prevFrame := vm.frame
	vm.frame = gd.frame
	var msg yieldMsg
	if starting {
		msg = gd.co.resume(resumeNext, value.Undefined)
	} else {
		msg = gd.co.resume(kind, v)
	}
	vm.frame = prevFrame
	switch msg.kind {
	case yieldSuspend:
		gd.state = genSuspendedYield
		return vm.IterResult(msg.value, false), nil
	case yieldThrown:
		gd.state = genCompleted
		return value.Undefined, msg.exc
	default:
		gd.state = genCompleted
		return vm.IterResult(msg.value, true), nil
	}
}

// runAsync drives an async (non-generator) function's frame to
// completion on its own coroutine, resuming each OpAwait immediately
// with the awaited value itself rather than suspending across a
// microtask boundary: an await never yields to other script or to the
// job queue, so an async function behaves like a generator that drains
// itself synchronously. The result is the settled value or exception
// directly, not wrapped in a Promise.
func (vm *VM) runAsync(f *Frame) (value.Value, *object.Exception) {
	co := newCoroutine(func(c *coroutine) {
		f.coroutine = c
		result, exc := vm.exec(f)
		c.finish(result, exc)
	})
	prevFrame := vm.frame
	vm.frame = f
	msg := co.resume(resumeNext, value.Undefined)
	for msg.kind == yieldSuspend {
		msg = co.resume(resumeNext, msg.value)
	}
	vm.frame = prevFrame
	if msg.kind == yieldThrown {
		return value.Undefined, msg.exc
	}
	return msg.value, nil
}
