package vm

import (
	"github.com/quartzjs/quartz/internal/compiler"
	"github.com/quartzjs/quartz/internal/object"
	"github.com/quartzjs/quartz/internal/shape"
	"github.com/quartzjs/quartz/internal/value"
)

// buildClass implements OpMakeClass: derive the prototype chain from
// superclass (present on the stack only when info.HasSuper), build the
// constructor function, and attach every instance/static member off
// info's member table. No original_source class-evaluation routine
// survived retrieval, so this follows spec.md's class-fields-and-super
// description directly, using the same DefineOwnProperty-per-member
// shape compileClass's own member table already mirrors.
func (vm *VM) buildClass(f *Frame, info *compiler.ClassInfo, superclass value.Value) (*object.Object, *object.Exception) {
	var superProto object.Prototype = vm.Realm.Intrinsics.ObjectPrototype
	var superCtorObj *object.Object
	var ctorParentProto object.Prototype = vm.Realm.Intrinsics.FunctionPrototype
	if info.HasSuper {
		if superclass.IsNull() {
			superProto = nil
		} else {
			sco, ok := superclass.AsObject().(*object.Object)
			if !superclass.IsObject() || !ok || !sco.IsConstructor() {
				return nil, vm.TypeError("Class extends value is not a constructor")
			}
			superCtorObj = sco
			ctorParentProto = sco
			protoVal, exc := sco.Get(vm, shape.StringKey("prototype"), value.FromObject(sco))
			if exc != nil {
				return nil, exc
			}
			if protoVal.IsNull() {
				superProto = nil
			} else if po, ok := protoVal.AsObject().(*object.Object); protoVal.IsObject() && ok {
				superProto = po
			} else {
				return nil, vm.TypeError("Class extends value does not have a valid prototype property")
			}
		}
	}

	classProto := object.New(superProto, object.DataOrdinary, nil, object.Ordinary)

	var ctorMember *compiler.ClassMemberInfo
	for i := range info.Members {
		m := &info.Members[i]
		if m.Kind == compiler.ClassMethod && !m.Static && !m.Computed && m.StaticKey == "constructor" {
			ctorMember = m
			break
		}
	}

	fd := &FunctionData{Closure: f.env, Realm: vm.Realm, HomeObject: classProto, SuperCtor: superCtorObj, IsClassConstructor: true}
	if ctorMember != nil {
		fd.CodeBlock = f.cb.Funcs[ctorMember.FuncIndex]
	}

	ctor := object.New(ctorParentProto, object.DataFunction, fd, ConstructableMethods)
	ctor.DefineOwnProperty(vm, shape.StringKey("prototype"), object.DataDescriptor(value.FromObject(classProto), false, false, false))
	classProto.DefineOwnProperty(vm, shape.StringKey("constructor"), object.DataDescriptor(value.FromObject(ctor), true, false, true))
	ctor.DefineOwnProperty(vm, shape.StringKey("name"), object.DataDescriptor(value.FromGoString(info.Name), false, false, true))
	length := 0
	if fd.CodeBlock != nil {
		length = len(fd.CodeBlock.Params)
	}
	ctor.DefineOwnProperty(vm, shape.StringKey("length"), object.DataDescriptor(value.FromInt32(int32(length)), false, false, true))

	for i := range info.Members {
		m := &info.Members[i]
		if m == ctorMember {
			continue
		}
		target := classProto
		if m.Static {
			target = ctor
		}
		key, exc := vm.classMemberKey(f, m)
		if exc != nil {
			return nil, exc
		}
		switch m.Kind {
		case compiler.ClassMethod:
			mfn := vm.makeFunctionObject(f.cb.Funcs[m.FuncIndex], f.env, true)
			if mfd, ok := mfn.Data().(*FunctionData); ok {
				mfd.HomeObject = target
			}
			if _, exc := target.DefineOwnProperty(vm, key, object.DataDescriptor(value.FromObject(mfn), true, false, true)); exc != nil {
				return nil, exc
			}
		case compiler.ClassGetter:
			gfn := vm.makeFunctionObject(f.cb.Funcs[m.FuncIndex], f.env, true)
			if gfd, ok := gfn.Data().(*FunctionData); ok {
				gfd.HomeObject = target
			}
			if _, exc := target.DefineOwnProperty(vm, key, object.AccessorDescriptor(gfn, nil, false, true)); exc != nil {
				return nil, exc
			}
		case compiler.ClassSetter:
			sfn := vm.makeFunctionObject(f.cb.Funcs[m.FuncIndex], f.env, true)
			if sfd, ok := sfn.Data().(*FunctionData); ok {
				sfd.HomeObject = target
			}
			if _, exc := target.DefineOwnProperty(vm, key, object.AccessorDescriptor(nil, sfn, false, true)); exc != nil {
				return nil, exc
			}
		case compiler.ClassField:
			if m.Static {
				v := value.Undefined
				if m.HasFunc {
					initData := &FunctionData{CodeBlock: f.cb.Funcs[m.FuncIndex], Closure: f.env, Realm: vm.Realm}
					var fexc *object.Exception
					v, fexc = vm.callThunk(initData, value.FromObject(ctor))
					if fexc != nil {
						return nil, fexc
					}
				}
				if _, exc := ctor.DefineOwnProperty(vm, key, object.DataDescriptor(v, true, true, true)); exc != nil {
					return nil, exc
				}
			} else {
				fi := fieldInit{computed: m.Computed}
				if m.Computed {
					fi.keyFn = f.cb.Funcs[m.KeyFuncIndex]
				} else {
					fi.key = m.StaticKey
				}
				if m.HasFunc {
					fi.init = f.cb.Funcs[m.FuncIndex]
				}
				fd.Fields = append(fd.Fields, fi)
			}
		}
	}

	return ctor, nil
}

// classMemberKey resolves a class member's property key, running its
// computed-key thunk (with no `this` binding, matching a computed key's
// position outside the class body) when the source key was computed.
func (vm *VM) classMemberKey(f *Frame, m *compiler.ClassMemberInfo) (shape.Key, *object.Exception) {
	if !m.Computed {
		return shape.StringKey(m.StaticKey), nil
	}
	keyData := &FunctionData{CodeBlock: f.cb.Funcs[m.KeyFuncIndex], Closure: f.env, Realm: vm.Realm}
	kv, exc := vm.callThunk(keyData, value.Undefined)
	if exc != nil {
		return shape.Key{}, exc
	}
	return shape.StringKey(vm.ToPropertyKeyString(kv)), nil
}
