package builtins

import (
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/realm"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
	"github.com/quartzjs/quartz/internal/vm"
)

type promiseState uint8

const (
	promisePending promiseState = iota
	promiseFulfilled
	promiseRejected
)

type promiseReaction struct {
	onFulfilled *object.Object
	onRejected  *object.Object
	// resolve/reject are the capability of the promise `.then`
	// returned; the reaction's handler result settles it.
	resolve *object.Object
	reject  *object.Object
}

// PromiseData is the DataPromise payload. Reactions queued before
// settlement accumulate here and drain through vmc.EnqueueJob once
// Resolve/Reject runs, mirroring the PromiseReactionJob abstract
// operation's split between synchronous bookkeeping and queued jobs.
type PromiseData struct {
	State     promiseState
	Result    value.Value
	Handled   bool
	Reactions []promiseReaction
}

func bootstrapPromise(r *realm.Realm) {
	proto := object.New(r.Intrinsics.ObjectPrototype, object.DataPromise, nil, object.Ordinary)
	r.Intrinsics.PromisePrototype = proto
	method(r, proto, "then", 2, promiseThen)
	method(r, proto, "catch", 1, promiseCatch)
	method(r, proto, "finally", 1, promiseFinally)

	ctor := ctorObject(r, "Promise", 1, proto, nil, promiseConstruct)
	r.Intrinsics.PromiseConstructor = ctor
	method(r, ctor, "resolve", 1, promiseResolveStatic)
	method(r, ctor, "reject", 1, promiseRejectStatic)
	method(r, ctor, "all", 1, promiseAll)
	method(r, ctor, "allSettled", 1, promiseAllSettled)
	method(r, ctor, "race", 1, promiseRace)
	method(r, ctor, "any", 1, promiseAny)
}

func newPendingPromise(vmc *vm.VM) *object.Object {
	return object.New(vmc.Realm.Intrinsics.PromisePrototype, object.DataPromise, &PromiseData{State: promisePending}, object.Ordinary)
}

func thisPromise(vmc *vm.VM, this value.Value, what string) (*object.Object, *PromiseData, *object.Exception) {
	o, ok := this.AsObject().(*object.Object)
	if !this.IsObject() || !ok {
		return nil, nil, vmc.TypeError("%s called on non-object", what)
	}
	pd, ok := o.Data().(*PromiseData)
	if !ok {
		return nil, nil, vmc.TypeError("%s called on a non-Promise", what)
	}
	return o, pd, nil
}

// settlePromise implements FulfillPromise/RejectPromise: it records the
// result, flips the state once (promises only ever settle once), and
// enqueues a microtask per pending reaction.
func settlePromise(vmc *vm.VM, p *object.Object, pd *PromiseData, state promiseState, result value.Value) {
	if pd.State != promisePending {
		return
	}
	pd.State = state
	pd.Result = result
	reactions := pd.Reactions
	pd.Reactions = nil
	for _, reaction := range reactions {
		triggerReaction(vmc, reaction, state, result)
	}
}

func triggerReaction(vmc *vm.VM, reaction promiseReaction, state promiseState, result value.Value) {
	handler := reaction.onRejected
	if state == promiseFulfilled {
		handler = reaction.onFulfilled
	}
	vmc.EnqueueJob(func() *object.Exception {
		if handler == nil {
			if state == promiseFulfilled {
				resolveCapability(vmc, reaction.resolve, result)
			} else {
				callCapability(vmc, reaction.reject, result)
			}
			return nil
		}
		out, exc := vmc.Call(handler, value.Undefined, []value.Value{result})
		if exc != nil {
			callCapability(vmc, reaction.reject, exc.Value)
			return nil
		}
		resolveCapability(vmc, reaction.resolve, out)
		return nil
	})
}

func callCapability(vmc *vm.VM, fn *object.Object, v value.Value) {
	if fn == nil {
		return
	}
	vmc.Call(fn, value.Undefined, []value.Value{v})
}

// resolveCapability implements the Promise Resolve Functions abstract
// closure: if v is itself a thenable, chain onto it instead of settling
// immediately, so `resolve(anotherPromise)` adopts that promise's state.
func resolveCapability(vmc *vm.VM, resolveFn *object.Object, v value.Value) {
	if resolveFn == nil {
		return
	}
	vmc.Call(resolveFn, value.Undefined, []value.Value{v})
}

func promiseConstruct(vmc *vm.VM, args []value.Value, newTarget value.Objecter) (value.Value, *object.Exception) {
	executorVal := arg(args, 0)
	executor, ok := executorVal.AsObject().(*object.Object)
	if !executorVal.IsObject() || !ok || !executor.IsCallable() {
		return value.Undefined, vmc.TypeError("Promise resolver is not a function")
	}
	p := newPendingPromise(vmc)
	pd := p.Data().(*PromiseData)
	resolveFn, rejectFn := makeResolvingFunctions(vmc, p, pd)
	_, exc := vmc.Call(executor, value.Undefined, []value.Value{value.FromObject(resolveFn), value.FromObject(rejectFn)})
	if exc != nil {
		callCapability(vmc, rejectFn, exc.Value)
	}
	return value.FromObject(p), nil
}

// makeResolvingFunctions builds the resolve/reject pair passed to a
// Promise executor. resolve follows a thenable it is handed exactly
// once (the `resolved` flag the pair shares, together with pd.State,
// guards re-entrancy) before settling with a plain value.
func makeResolvingFunctions(vmc *vm.VM, p *object.Object, pd *PromiseData) (*object.Object, *object.Object) {
	resolved := false
	resolve := nativeFn(vmc, "", 1, func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		if resolved || pd.State != promisePending {
			return value.Undefined, nil
		}
		v := arg(args, 0)
		if vo, ok := v.AsObject().(*object.Object); v.IsObject() && ok && vo == p {
			resolved = true
			settlePromise(vmc, p, pd, promiseRejected, typeErrorValue(vmc, "Chaining cycle detected for promise"))
			return value.Undefined, nil
		}
		if vo, ok := v.AsObject().(*object.Object); v.IsObject() && ok {
			thenVal, exc := vo.Get(vmc, shape.StringKey("then"), v)
			if exc != nil {
				resolved = true
				settlePromise(vmc, p, pd, promiseRejected, exc.Value)
				return value.Undefined, nil
			}
			if tfn, ok := thenVal.AsObject().(*object.Object); thenVal.IsObject() && ok && tfn.IsCallable() {
				resolved = true
				innerResolve, innerReject := makeResolvingFunctions(vmc, p, pd)
				vmc.EnqueueJob(func() *object.Exception {
					_, exc := vmc.Call(tfn, v, []value.Value{value.FromObject(innerResolve), value.FromObject(innerReject)})
					if exc != nil {
						callCapability(vmc, innerReject, exc.Value)
					}
					return nil
				})
				return value.Undefined, nil
			}
		}
		resolved = true
		settlePromise(vmc, p, pd, promiseFulfilled, v)
		return value.Undefined, nil
	})
	reject := nativeFn(vmc, "", 1, func(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
		if resolved || pd.State != promisePending {
			return value.Undefined, nil
		}
		resolved = true
		settlePromise(vmc, p, pd, promiseRejected, arg(args, 0))
		return value.Undefined, nil
	})
	return resolve, reject
}

func typeErrorValue(vmc *vm.VM, format string) value.Value {
	exc := vmc.TypeError(format)
	return exc.Value
}

func nativeFn(vmc *vm.VM, name string, length int, call func(*vm.VM, value.Value, []value.Value) (value.Value, *object.Exception)) *object.Object {
	nd := &vm.NativeFunctionData{Name: name, Length: length, Call: call}
	return object.New(vmc.Realm.Intrinsics.FunctionPrototype, object.DataFunction, nd, vm.CallableMethods)
}

func promiseThen(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	p, pd, exc := thisPromise(vmc, this, "Promise.prototype.then")
	if exc != nil {
		return value.Undefined, exc
	}
	var onFulfilled, onRejected *object.Object
	if f, ok := arg(args, 0).AsObject().(*object.Object); arg(args, 0).IsObject() && ok && f.IsCallable() {
		onFulfilled = f
	}
	if f, ok := arg(args, 1).AsObject().(*object.Object); arg(args, 1).IsObject() && ok && f.IsCallable() {
		onRejected = f
	}
	pd.Handled = true
	result := newPendingPromise(vmc)
	resultData := result.Data().(*PromiseData)
	resolveFn, rejectFn := makeResolvingFunctions(vmc, result, resultData)
	reaction := promiseReaction{onFulfilled: onFulfilled, onRejected: onRejected, resolve: resolveFn, reject: rejectFn}
	switch pd.State {
	case promisePending:
		pd.Reactions = append(pd.Reactions, reaction)
	default:
		triggerReaction(vmc, reaction, pd.State, pd.Result)
	}
	_ = p
	return value.FromObject(result), nil
}

func promiseCatch(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return promiseThen(vmc, this, []value.Value{value.Undefined, arg(args, 0)})
}

func promiseFinally(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	onFinally := arg(args, 0)
	fn, ok := onFinally.AsObject().(*object.Object)
	if !onFinally.IsObject() || !ok || !fn.IsCallable() {
		return promiseThen(vmc, this, []value.Value{onFinally, onFinally})
	}
	wrapFulfilled := nativeFn(vmc, "", 1, func(vmc *vm.VM, _ value.Value, args []value.Value) (value.Value, *object.Exception) {
		_, exc := vmc.Call(fn, value.Undefined, nil)
		if exc != nil {
			return value.Undefined, exc
		}
		return arg(args, 0), nil
	})
	wrapRejected := nativeFn(vmc, "", 1, func(vmc *vm.VM, _ value.Value, args []value.Value) (value.Value, *object.Exception) {
		_, exc := vmc.Call(fn, value.Undefined, nil)
		if exc != nil {
			return value.Undefined, exc
		}
		return value.Undefined, &object.Exception{Value: arg(args, 0)}
	})
	return promiseThen(vmc, this, []value.Value{value.FromObject(wrapFulfilled), value.FromObject(wrapRejected)})
}

func promiseResolveStatic(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	v := arg(args, 0)
	if vo, ok := v.AsObject().(*object.Object); v.IsObject() && ok {
		if _, ok := vo.Data().(*PromiseData); ok {
			return v, nil
		}
	}
	return value.FromObject(promiseResolveValue(vmc, v)), nil
}

func promiseRejectStatic(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	return value.FromObject(promiseRejectValue(vmc, arg(args, 0))), nil
}

// promiseResolveValue wraps v in an already-fulfilled promise, adopting
// v's own state first if v is a thenable. Exposed for other builtin
// files (e.g. iterobj.go's AsyncFromSyncIterator) that need to hand
// back a resolved promise without going through Promise.resolve's
// argument plumbing.
func promiseResolveValue(vmc *vm.VM, v value.Value) *object.Object {
	p := newPendingPromise(vmc)
	pd := p.Data().(*PromiseData)
	resolveFn, _ := makeResolvingFunctions(vmc, p, pd)
	vmc.Call(resolveFn, value.Undefined, []value.Value{v})
	return p
}

func promiseRejectValue(vmc *vm.VM, v value.Value) *object.Object {
	p := newPendingPromise(vmc)
	pd := p.Data().(*PromiseData)
	settlePromise(vmc, p, pd, promiseRejected, v)
	return p
}

// promiseAll, promiseAllSettled, promiseRace, promiseAny all consume an
// iterable eagerly (GetIterator/IteratorNext), matching PerformPromiseAll
// et al.'s synchronous iteration followed by async settlement.
func promiseAll(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	items, exc := collectIterable(vmc, arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	result := newPendingPromise(vmc)
	pd := result.Data().(*PromiseData)
	resolveFn, rejectFn := makeResolvingFunctions(vmc, result, pd)
	n := len(items)
	if n == 0 {
		callCapability(vmc, resolveFn, value.FromObject(vmc.NewArray(nil)))
		return value.FromObject(result), nil
	}
	values := make([]value.Value, n)
	remaining := n
	for i, item := range items {
		i := i
		onFulfilled := nativeFn(vmc, "", 1, func(vmc *vm.VM, _ value.Value, args []value.Value) (value.Value, *object.Exception) {
			values[i] = arg(args, 0)
			remaining--
			if remaining == 0 {
				callCapability(vmc, resolveFn, value.FromObject(vmc.NewArray(values)))
			}
			return value.Undefined, nil
		})
		chainSettlement(vmc, item, onFulfilled, rejectFn)
	}
	return value.FromObject(result), nil
}

func promiseAllSettled(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	items, exc := collectIterable(vmc, arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	result := newPendingPromise(vmc)
	pd := result.Data().(*PromiseData)
	resolveFn, _ := makeResolvingFunctions(vmc, result, pd)
	n := len(items)
	if n == 0 {
		callCapability(vmc, resolveFn, value.FromObject(vmc.NewArray(nil)))
		return value.FromObject(result), nil
	}
	values := make([]value.Value, n)
	remaining := n
	settle := func(i int, v value.Value) {
		values[i] = v
		remaining--
		if remaining == 0 {
			callCapability(vmc, resolveFn, value.FromObject(vmc.NewArray(values)))
		}
	}
	for i, item := range items {
		i := i
		onFulfilled := nativeFn(vmc, "", 1, func(vmc *vm.VM, _ value.Value, args []value.Value) (value.Value, *object.Exception) {
			o := vmc.NewPlainObject()
			o.Set(vmc, shape.StringKey("status"), value.FromGoString("fulfilled"), value.FromObject(o))
			o.Set(vmc, shape.StringKey("value"), arg(args, 0), value.FromObject(o))
			settle(i, value.FromObject(o))
			return value.Undefined, nil
		})
		onRejected := nativeFn(vmc, "", 1, func(vmc *vm.VM, _ value.Value, args []value.Value) (value.Value, *object.Exception) {
			o := vmc.NewPlainObject()
			o.Set(vmc, shape.StringKey("status"), value.FromGoString("rejected"), value.FromObject(o))
			o.Set(vmc, shape.StringKey("reason"), arg(args, 0), value.FromObject(o))
			settle(i, value.FromObject(o))
			return value.Undefined, nil
		})
		chainSettlement(vmc, item, onFulfilled, onRejected)
	}
	return value.FromObject(result), nil
}

func promiseRace(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	items, exc := collectIterable(vmc, arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	result := newPendingPromise(vmc)
	pd := result.Data().(*PromiseData)
	resolveFn, rejectFn := makeResolvingFunctions(vmc, result, pd)
	for _, item := range items {
		chainSettlement(vmc, item, resolveFn, rejectFn)
	}
	return value.FromObject(result), nil
}

func promiseAny(vmc *vm.VM, this value.Value, args []value.Value) (value.Value, *object.Exception) {
	items, exc := collectIterable(vmc, arg(args, 0))
	if exc != nil {
		return value.Undefined, exc
	}
	result := newPendingPromise(vmc)
	pd := result.Data().(*PromiseData)
	resolveFn, rejectFn := makeResolvingFunctions(vmc, result, pd)
	n := len(items)
	if n == 0 {
		callCapability(vmc, rejectFn, typeErrorValue(vmc, "All promises were rejected"))
		return value.FromObject(result), nil
	}
	errors := make([]value.Value, n)
	remaining := n
	for i, item := range items {
		i := i
		onRejected := nativeFn(vmc, "", 1, func(vmc *vm.VM, _ value.Value, args []value.Value) (value.Value, *object.Exception) {
			errors[i] = arg(args, 0)
			remaining--
			if remaining == 0 {
				agg := makeAggregateError(vmc, errors)
				callCapability(vmc, rejectFn, agg)
			}
			return value.Undefined, nil
		})
		chainSettlement(vmc, item, resolveFn, onRejected)
	}
	return value.FromObject(result), nil
}

func makeAggregateError(vmc *vm.VM, errors []value.Value) value.Value {
	proto := vmc.Realm.Intrinsics.AggregateErrorPrototype
	o := object.New(proto, object.DataError, nil, object.Ordinary)
	o.Set(vmc, shape.StringKey("message"), value.FromGoString("All promises were rejected"), value.FromObject(o))
	o.Set(vmc, shape.StringKey("errors"), value.FromObject(vmc.NewArray(errors)), value.FromObject(o))
	return value.FromObject(o)
}

// chainSettlement adopts v's state (resolving it through
// Promise.resolve first if it is not already a promise) and attaches
// onFulfilled/onRejected the same way `.then` would.
func chainSettlement(vmc *vm.VM, v value.Value, onFulfilled, onRejected *object.Object) {
	p := promiseResolveValue(vmc, v)
	pd := p.Data().(*PromiseData)
	reaction := promiseReaction{onFulfilled: onFulfilled, onRejected: onRejected}
	switch pd.State {
	case promisePending:
		pd.Reactions = append(pd.Reactions, reaction)
	default:
		triggerReaction(vmc, reaction, pd.State, pd.Result)
	}
}

func collectIterable(vmc *vm.VM, v value.Value) ([]value.Value, *object.Exception) {
	it, exc := vmc.GetIterator(v)
	if exc != nil {
		return nil, exc
	}
	var out []value.Value
	for {
		val, done, exc := vmc.IteratorNext(it)
		if exc != nil {
			return nil, exc
		}
		if done {
			break
		}
		out = append(out, val)
	}
	return out, nil
}
