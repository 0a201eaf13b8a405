package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

// bootstrapIterators builds %IteratorPrototype%/%AsyncIteratorPrototype%
// (each exposing only the Symbol.iterator/Symbol.asyncIterator identity
// method, per the ECMAScript iterator prototype chain) and the
// %GeneratorPrototype%/%AsyncGeneratorPrototype% pair generator objects
// chain to. Array/String/Map/Set's own iterator objects are built later
// by their respective bootstrap functions and chain to IteratorPrototype
// too.
func bootstrapIterators(r *realm.Realm) {
	iterProto := object.New(r.Intrinsics.ObjectPrototype, object.DataIterator, nil, object.Ordinary)
	r.Intrinsics.IteratorPrototype = iterProto
	symbolMethod(r, iterProto, r.Symbols.Iterator, "[Symbol.iterator]", 0, func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return this, nil
	})

	asyncIterProto := object.New(r.Intrinsics.ObjectPrototype, object.DataIterator, nil, object.Ordinary)
	r.Intrinsics.AsyncIteratorPrototype = asyncIterProto
	symbolMethod(r, asyncIterProto, r.Symbols.AsyncIterator, "[Symbol.asyncIterator]", 0, func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return this, nil
	})

	genProto := object.New(iterProto, object.DataGenerator, nil, object.Ordinary)
	r.Intrinsics.GeneratorPrototype = genProto
	symbolMethod(r, genProto, r.Symbols.Iterator, "[Symbol.iterator]", 0, func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return this, nil
	})
	defValue(r, genProto, "name", value.FromGoString("Generator"), false, false, true)

	asyncGenProto := object.New(asyncIterProto, object.DataAsyncGenerator, nil, object.Ordinary)
	r.Intrinsics.AsyncGeneratorPrototype = asyncGenProto
	symbolMethod(r, asyncGenProto, r.Symbols.AsyncIterator, "[Symbol.asyncIterator]", 0, func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		return this, nil
	})
	defValue(r, asyncGenProto, "name", value.FromGoString("AsyncGenerator"), false, false, true)
}

// AsyncFromSyncIteratorData wraps a plain (synchronous) iterator object
// so for-await-of can drive it through the async iterator protocol: each
// `next`/`return`/`throw` call forwards to the sync iterator and wraps
// the iterator-result's value in a resolved (or, on a throw, rejected)
// Promise, per the CreateAsyncFromSyncIterator abstract operation.
type AsyncFromSyncIteratorData struct {
	Sync *object.Object
}

// MakeAsyncFromSyncIterator implements CreateAsyncFromSyncIterator: it
// is the fallback internal/vm's for-await-of desugaring would reach for
// when the iterated value exposes Symbol.iterator but not
// Symbol.asyncIterator. internal/vm's own OpGetAsyncIterator currently
// takes the simpler route of treating any sync iterator as already
// async-shaped (no await boundary to cross without a job queue driving
// it), so nothing in the engine calls this constructor; it is available
// to Go callers that need the wrapper object.
func MakeAsyncFromSyncIterator(vmc *vm.VM, sync *object.Object) *object.Object {
	ad := &AsyncFromSyncIteratorData{Sync: sync}
	obj := object.New(vmc.Realm.Intrinsics.AsyncIteratorPrototype, object.DataAsyncFromSyncIterator, ad, object.Ordinary)
	wrap := func(name string) {
		nd := &vm.NativeFunctionData{Name: name, Length: 1, Call: func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
			method, exc := sync.Get(vmc, shape.StringKey(name), value.FromObject(sync))
			if exc != nil {
				return rejectedOrThrow(vmc, exc)
			}
			mo, ok := method.AsObject().(*object.Object)
			if !method.IsObject() || !ok || !mo.IsCallable() {
				if name == "next" {
					return value.Undefined, vmc.TypeError("iterator has no next method")
				}
				if name == "throw" {
					return rejectedOrThrow(vmc, object.Throw(arg(args, 0)))
				}
				return value.FromObject(resolvedIterResult(vmc, arg(args, 0), true)), nil
			}
			res, exc := vmc.Call(mo, value.FromObject(sync), args)
			if exc != nil {
				return rejectedOrThrow(vmc, exc)
			}
			ro, ok := res.AsObject().(*object.Object)
			if !res.IsObject() || !ok {
				return rejectedOrThrow(vmc, vmc.TypeError("iterator result is not an object"))
			}
			v, exc := ro.Get(vmc, shape.StringKey("value"), res)
			if exc != nil {
				return rejectedOrThrow(vmc, exc)
			}
			doneVal, exc := ro.Get(vmc, shape.StringKey("done"), res)
			if exc != nil {
				return rejectedOrThrow(vmc, exc)
			}
			return value.FromObject(resolvedIterResult(vmc, v, doneVal.ToBoolean())), nil
		}}
		fo := object.New(vmc.Realm.Intrinsics.FunctionPrototype, object.DataFunction, nd, vm.CallableMethods)
		obj.DefineOwnProperty(vmc, shape.StringKey(name), object.DataDescriptor(value.FromObject(fo), true, false, true))
	}
	wrap("next")
	wrap("return")
	wrap("throw")
	return obj
}

// resolvedIterResult builds a plain {value, done} object wrapped in an
// already-resolved Promise; bootstrapPromise runs after bootstrapIterators
// so this looks up PromiseConstructor lazily through vmc rather than
// capturing it at bootstrap time.
func resolvedIterResult(vmc *vm.VM, v value.Value, done bool) *object.Object {
	result := vmc.IterResult(v, done)
	return promiseResolveValue(vmc, result)
}

func rejectedOrThrow(vmc *vm.VM, exc *object.Exception) (value.Value, *object.Exception) {
	return value.FromObject(promiseRejectValue(vmc, exc.Value)), nil
}
