package compiler

import "github.com/quartzjs/quartz/internal/ast"

// compileClass lowers a class expression to OpMakeClass: the
// superclass expression (if any) is compiled onto the stack first, so
// the VM can validate it and derive the constructor's prototype chain
// before building the method table from ClassInfo.
func (fc *funcCompiler) compileClass(c *ast.ClassExpression) error {
	info := &ClassInfo{HasSuper: c.SuperClass != nil}
	if c.Name != nil {
		info.Name = c.Name.Name
	}
	if c.SuperClass != nil {
		if err := fc.compileExpression(c.SuperClass); err != nil {
			return err
		}
	}
	for _, m := range c.Members {
		member := ClassMemberInfo{Static: m.Static, Computed: m.Computed}
		if m.Computed {
			thunk, err := fc.compileKeyThunk(m.Key)
			if err != nil {
				return err
			}
			member.KeyFuncIndex = fc.cb.AddFunc(thunk)
		} else {
			member.StaticKey = staticKeyName(m.Key)
		}
		switch m.Kind {
		case ast.PropertyGet:
			member.Kind = ClassGetter
		case ast.PropertySet:
			member.Kind = ClassSetter
		case ast.PropertyMethod:
			member.Kind = ClassMethod
		default:
			member.Kind = ClassField
		}
		if m.Value != nil {
			fn, err := compileFunctionExpression(m.Value, fc.env)
			if err != nil {
				return err
			}
			member.FuncIndex = fc.cb.AddFunc(fn)
			member.HasFunc = true
		} else if m.FieldInit != nil {
			thunk, err := fc.compileKeyThunk(m.FieldInit)
			if err != nil {
				return err
			}
			member.FuncIndex = fc.cb.AddFunc(thunk)
			member.HasFunc = true
		}
		info.Members = append(info.Members, member)
	}
	idx := fc.cb.AddClass(info)
	fc.emitOp(OpMakeClass)
	fc.emitU32(idx)
	return nil
}

// compileKeyThunk compiles a single expression (a computed property
// key, or a field initializer run with the instance as `this`) as its
// own zero-argument CodeBlock, invoked by the VM on demand.
func (fc *funcCompiler) compileKeyThunk(expr ast.Expression) (*CodeBlock, error) {
	cb := &CodeBlock{Name: "<computed>", Strict: fc.cb.Strict}
	child := &funcCompiler{cb: cb, env: fc.env}
	if err := child.compileExpression(expr); err != nil {
		return nil, err
	}
	child.emitOp(OpReturn)
	cb.NumLocals = child.env.SlotCount()
	return cb, nil
}

// staticKeyName extracts a non-computed class member key's literal
// name from an Identifier, StringLiteral, PrivateIdentifier ("#name")
// or NumericLiteral key node; any other node yields "".
func staticKeyName(key ast.Expression) string {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name
	case *ast.StringLiteral:
		return k.Value
	case *ast.PrivateIdentifier:
		return "#" + k.Name
	case *ast.NumericLiteral:
		return formatNumericKey(k.Value)
	}
	return ""
}
