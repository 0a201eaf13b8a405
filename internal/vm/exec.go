package vm

import (
	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// exec is the dispatch loop (§4.8): a flat switch over compiler.Op run
// against one Frame until it returns, throws past every installed
// handler, or suspends into its coroutine. No original_source bytecode
// VM survived the retrieval filter, so this loop's shape is grounded
// directly on spec.md's stack-machine description, written in the
// teacher's dense-switch dispatch style (internal/js_parser's
// statement visitor switches over AST node kinds the same way this
// switches over opcodes).
func (vm *VM) exec(f *Frame) (value.Value, *object.Exception) {
	// raise searches f's handler stack for a catcher, truncating the
	// operand stack and transferring control to its handler pc; it
	// returns false when no handler remains and exc must propagate to
	// the caller.
	raise := func(exc *object.Exception) bool {
		if len(f.handlers) == 0 {
			return false
		}
		h := f.handlers[len(f.handlers)-1]
		f.handlers = f.handlers[:len(f.handlers)-1]
		if int(h.stackDepth) <= len(f.stack) {
			f.stack = f.stack[:h.stackDepth]
		}
		f.env = h.env
		f.pc = h.handler.HandlerPC
		f.push(exc.Value)
		return true
	}

	for {
		op := compiler.Op(f.cb.Code[f.pc])
		f.pc++

		switch op {
		case compiler.OpNop:

		case compiler.OpPushConst:
			f.push(f.constAt(f.readU32()))
		case compiler.OpPushUndefined:
			f.push(value.Undefined)
		case compiler.OpPushNull:
			f.push(value.Null)
		case compiler.OpPushTrue:
			f.push(value.FromBool(true))
		case compiler.OpPushFalse:
			f.push(value.FromBool(false))
		case compiler.OpPop:
			f.pop()
		case compiler.OpDup:
			f.push(f.top())
		case compiler.OpSwap:
			n := len(f.stack)
			f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]

		case compiler.OpAdd:
			b, a := f.pop(), f.pop()
			v, exc := vm.add(a, b)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod, compiler.OpExp,
			compiler.OpBitAnd, compiler.OpBitOr, compiler.OpBitXor, compiler.OpShl, compiler.OpShr, compiler.OpUShr:
			b, a := f.pop(), f.pop()
			v, exc := vm.numericBinary(op, a, b)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpNeg:
			n, exc := vm.ToNumber(f.pop())
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromNumber(-n))
		case compiler.OpPlus:
			n, exc := vm.ToNumber(f.pop())
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromNumber(n))
		case compiler.OpNot:
			f.push(value.FromBool(!f.pop().ToBoolean()))
		case compiler.OpBitNot:
			n, exc := vm.ToNumber(f.pop())
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromInt32(^toInt32(n)))

		case compiler.OpEq, compiler.OpNotEq:
			b, a := f.pop(), f.pop()
			eq, exc := vm.looseEquals(a, b)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			if op == compiler.OpNotEq {
				eq = !eq
			}
			f.push(value.FromBool(eq))
		case compiler.OpStrictEq:
			b, a := f.pop(), f.pop()
			f.push(value.FromBool(value.StrictEquals(a, b)))
		case compiler.OpStrictNotEq:
			b, a := f.pop(), f.pop()
			f.push(value.FromBool(!value.StrictEquals(a, b)))
		case compiler.OpLt, compiler.OpLte, compiler.OpGt, compiler.OpGte:
			b, a := f.pop(), f.pop()
			v, exc := vm.relational(op, a, b)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpInstanceOf:
			b, a := f.pop(), f.pop()
			v, exc := vm.instanceOf(a, b)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromBool(v))
		case compiler.OpIn:
			b, a := f.pop(), f.pop()
			v, exc := vm.opIn(a, b)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromBool(v))
		case compiler.OpTypeOf:
			f.push(value.FromGoString(f.pop().TypeOf()))
		case compiler.OpTypeOfGlobal:
			name := f.constAt(f.readU32()).AsString().GoString()
			v, found, exc := vm.Realm.GetGlobal(vm, name)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			if !found {
				f.push(value.FromGoString("undefined"))
			} else {
				f.push(value.FromGoString(v.TypeOf()))
			}

		case compiler.OpGetProp:
			name := f.constAt(f.readU32()).AsString().GoString()
			obj := f.pop()
			v, exc := vm.getProperty(obj, shape.StringKey(name))
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpGetPrivate:
			name := f.constAt(f.readU32()).AsString().GoString()
			obj := f.pop()
			v, exc := vm.getProperty(obj, shape.StringKey(name))
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpSetProp:
			name := f.constAt(f.readU32()).AsString().GoString()
			obj, v := f.pop(), f.pop()
			exc := vm.setProperty(obj, shape.StringKey(name), v)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpSetPrivate:
			name := f.constAt(f.readU32()).AsString().GoString()
			obj, v := f.pop(), f.pop()
			exc := vm.setProperty(obj, shape.StringKey(name), v)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpGetPropComputed:
			key, obj := f.pop(), f.pop()
			k, exc := vm.ToPropertyKey(key)
			if exc == nil {
				var v value.Value
				v, exc = vm.getProperty(obj, k)
				if exc == nil {
					f.push(v)
				}
			}
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
		case compiler.OpSetPropComputed:
			key, obj, v := f.pop(), f.pop(), f.pop()
			k, exc := vm.ToPropertyKey(key)
			if exc == nil {
				exc = vm.setProperty(obj, k, v)
			}
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpDeleteProp:
			name := f.constAt(f.readU32()).AsString().GoString()
			obj := f.pop()
			ok, exc := vm.deleteProperty(obj, shape.StringKey(name))
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromBool(ok))
		case compiler.OpDeletePropComputed:
			key, obj := f.pop(), f.pop()
			k, exc := vm.ToPropertyKey(key)
			if exc == nil {
				var ok bool
				ok, exc = vm.deleteProperty(obj, k)
				if exc == nil {
					f.push(value.FromBool(ok))
				}
			}
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}

		case compiler.OpGetLocal:
			depth, idx := f.readU32(), f.readU32()
			env := f.envAtDepth(depth)
			v, err := env.GetBindingValue(idx)
			if err != nil {
				exc := vm.ReferenceError("%s", err.Error())
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpSetLocal:
			depth, idx := f.readU32(), f.readU32()
			v := f.pop()
			env := f.envAtDepth(depth)
			if err := env.SetMutableBinding(idx, v); err != nil {
				exc := vm.typeOrReferenceError(err)
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpInitLocal:
			depth, idx := f.readU32(), f.readU32()
			v := f.pop()
			f.envAtDepth(depth).InitializeBinding(idx, v)
		case compiler.OpGetGlobal:
			name := f.constAt(f.readU32()).AsString().GoString()
			v, found, exc := vm.Realm.GetGlobal(vm, name)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			if !found {
				exc = vm.ReferenceError("%s is not defined", name)
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpSetGlobal:
			name := f.constAt(f.readU32()).AsString().GoString()
			v := f.pop()
			if exc := vm.Realm.DefineGlobal(vm, name, v, true); exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)

		case compiler.OpJump:
			f.pc = f.readU32()
		case compiler.OpJumpIfFalse:
			target := f.readU32()
			if !f.pop().ToBoolean() {
				f.pc = target
			}
		case compiler.OpJumpIfTrue:
			target := f.readU32()
			if f.pop().ToBoolean() {
				f.pc = target
			}
		case compiler.OpJumpIfNullish:
			target := f.readU32()
			if f.pop().IsNullish() {
				f.pc = target
			}
		case compiler.OpJumpIfUndefined:
			target := f.readU32()
			if f.pop().IsUndefined() {
				f.pc = target
			}
		case compiler.OpCaseEq:
			target := f.readU32()
			test := f.pop()
			disc := f.top()
			if value.StrictEquals(disc, test) {
				f.pc = target
			}
		case compiler.OpDefault:
			f.pc = f.readU32()

		case compiler.OpCall, compiler.OpCallOpt:
			argc := int(f.readU8())
			args := f.popN(argc)
			this := f.pop()
			callee := f.pop()
			if op == compiler.OpCallOpt && callee.IsNullish() {
				f.push(value.Undefined)
				continue
			}
			co, ok := callee.AsObject().(*object.Object)
			if !callee.IsObject() || !ok || !co.IsCallable() {
				exc := vm.TypeError("value is not a function")
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			v, exc := vm.Call(co, this, args)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpTailCall:
			argc := int(f.readU8())
			args := f.popN(argc)
			this := f.pop()
			callee := f.pop()
			co, ok := callee.AsObject().(*object.Object)
			if !callee.IsObject() || !ok || !co.IsCallable() {
				exc := vm.TypeError("value is not a function")
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			v, exc := vm.Call(co, this, args)
			if exc != nil {
				return value.Undefined, exc
			}
			return v, nil
		case compiler.OpSpreadCall:
			argc := int(f.readU8())
			rawArgs := f.popN(argc)
			this := f.pop()
			callee := f.pop()
			args, exc := vm.spreadArgs(rawArgs)
			if exc == nil {
				var co *object.Object
				var ok bool
				co, ok = callee.AsObject().(*object.Object)
				if !callee.IsObject() || !ok || !co.IsCallable() {
					exc = vm.TypeError("value is not a function")
				} else {
					var v value.Value
					v, exc = vm.Call(co, this, args)
					if exc == nil {
						f.push(v)
					}
				}
			}
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
		case compiler.OpConstruct:
			argc := int(f.readU8())
			args := f.popN(argc)
			callee := f.pop()
			co, ok := callee.AsObject().(*object.Object)
			if !callee.IsObject() || !ok || !co.IsConstructor() {
				exc := vm.TypeError("value is not a constructor")
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			v, exc := vm.Construct(co, args, co)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)

		case compiler.OpMakeFunction, compiler.OpMakeArrow:
			idx := f.readU32()
			cb := f.cb.Funcs[idx]
			fn := vm.makeFunctionObject(cb, f.env, false)
			f.push(value.FromObject(fn))
		case compiler.OpMakeClass:
			idx := f.readU32()
			info := f.cb.Classes[idx]
			var superclass value.Value
			if info.HasSuper {
				superclass = f.pop()
			}
			ctor, exc := vm.buildClass(f, info, superclass)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromObject(ctor))
		case compiler.OpMakeArray:
			n := int(f.readU32())
			items := f.popN(n)
			f.push(value.FromObject(vm.NewArray(items)))
		case compiler.OpArrayAppend:
			v := f.pop()
			arr := f.top()
			if exc := vm.arrayPush(arr, v); exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
		case compiler.OpArrayAppendSpread:
			v := f.pop()
			arr := f.top()
			if exc := vm.arrayPushSpread(arr, v); exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
		case compiler.OpMakeObject:
			f.readU32() // capacity hint, unused
			f.push(value.FromObject(vm.NewPlainObject()))
		case compiler.OpDefineProp:
			key, v := f.pop(), f.pop()
			obj := f.top()
			k, exc := vm.ToPropertyKey(key)
			if exc == nil {
				exc = vm.defineProperty(obj, k, v)
			}
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
		case compiler.OpSpreadProps:
			src := f.pop()
			obj := f.top()
			if exc := vm.spreadInto(obj, src); exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
		case compiler.OpMakeRegExp:
			raw := f.constAt(f.readU32()).AsString().GoString()
			pattern, flags := splitRegExpConst(raw)
			re, exc := vm.MakeRegExp(pattern, flags)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromObject(re))
		case compiler.OpMakeTemplate:
			quasiIdx, exprCount := f.readU32(), f.readU32()
			exprs := f.popN(int(exprCount))
			cooked := f.constAt(quasiIdx).AsString().GoString()
			f.push(value.FromObject(vm.makeTemplateObject(cooked, exprs)))

		case compiler.OpGetIterator:
			v := f.pop()
			iter, exc := vm.GetIterator(v)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromObject(iter))
		case compiler.OpGetAsyncIterator:
			v := f.pop()
			iter, exc := vm.GetIterator(v)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromObject(iter))
		case compiler.OpIteratorNext:
			iterVal := f.top()
			io, ok := iterVal.AsObject().(*object.Object)
			if !iterVal.IsObject() || !ok {
				exc := vm.TypeError("not an iterator")
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			v, done, exc := vm.IteratorNext(io)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
			f.push(value.FromBool(done))
		case compiler.OpIteratorClose:
			iterVal := f.pop()
			if io, ok := iterVal.AsObject().(*object.Object); iterVal.IsObject() && ok {
				vm.IteratorClose(io)
			}
		case compiler.OpIteratorRest:
			iterVal := f.pop()
			io, ok := iterVal.AsObject().(*object.Object)
			if !iterVal.IsObject() || !ok {
				exc := vm.TypeError("not an iterator")
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			var rest []value.Value
			var exc *object.Exception
			for {
				var v value.Value
				var done bool
				v, done, exc = vm.IteratorNext(io)
				if exc != nil || done {
					break
				}
				rest = append(rest, v)
			}
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(value.FromObject(vm.NewArray(rest)))

		case compiler.OpYield:
			delegate := f.readU8()
			v := f.pop()
			if f.coroutine == nil {
				exc := vm.SyntaxError("yield used outside a generator")
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			if delegate != 0 {
				v2, exc := vm.yieldDelegate(f, v)
				if exc != nil {
					if raise(exc) {
						continue
					}
					return value.Undefined, exc
				}
				f.push(v2)
				continue
			}
			resumed, exc, earlyReturn := f.coroutine.suspend(v)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			if earlyReturn {
				return resumed, nil
			}
			f.push(resumed)
		case compiler.OpAwait:
			v := f.pop()
			if f.coroutine == nil {
				// No coroutine context (async driver not yet wired for
				// this call path): treat the awaited value as already
				// resolved.
				f.push(v)
				continue
			}
			resumed, exc, earlyReturn := f.coroutine.suspend(v)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			if earlyReturn {
				return resumed, nil
			}
			f.push(resumed)

		case compiler.OpThrow:
			v := f.pop()
			exc := object.Throw(v)
			if raise(exc) {
				continue
			}
			return value.Undefined, exc
		case compiler.OpReThrow:
			v := f.pop()
			exc := object.Throw(v)
			if raise(exc) {
				continue
			}
			return value.Undefined, exc
		case compiler.OpPushHandler:
			idx := f.readU32()
			f.handlers = append(f.handlers, activeHandler{
				handler:    f.cb.Handlers[idx],
				stackDepth: len(f.stack),
				env:        f.env,
			})
		case compiler.OpPopHandler:
			if len(f.handlers) > 0 {
				f.handlers = f.handlers[:len(f.handlers)-1]
			}
		case compiler.OpReturnFromHandler:
			// Reserved for a future unwind-through-finally path; no
			// compiler pass currently emits it.

		case compiler.OpTemplateLookup:
			f.readU32()
			f.readU32()
			f.push(value.Undefined)
		case compiler.OpReturn:
			return f.pop(), nil
		case compiler.OpGetThis:
			if !f.hasThis {
				exc := vm.ReferenceError("'this' is not available")
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(f.this)
		case compiler.OpGetNewTarget:
			if f.newTarget == nil {
				f.push(value.Undefined)
			} else {
				f.push(value.FromObject(f.newTarget.(*object.Object)))
			}
		case compiler.OpGetSuperBase:
			v, exc := vm.getSuperBase(f)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)
		case compiler.OpGetSuperConstructor:
			v, exc := vm.getSuperConstructor(f)
			if exc != nil {
				if raise(exc) {
					continue
				}
				return value.Undefined, exc
			}
			f.push(v)

		default:
			exc := vm.TypeError("unimplemented opcode %d", op)
			if raise(exc) {
				continue
			}
			return value.Undefined, exc
		}
	}
}

func splitRegExpConst(raw string) (string, string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == 0 {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}

func (vm *VM) typeOrReferenceError(err error) *object.Exception {
	return vm.ReferenceError("%s", err.Error())
}
