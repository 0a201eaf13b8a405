package compiler

import (
	"strconv"

	"github.com/quartzjs/quartz/internal/ast"
	"github.com/quartzjs/quartz/internal/value"
)

func formatNumericKey(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func (fc *funcCompiler) compileExpression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.Identifier:
		return fc.compileIdentifierRead(e.Name)
	case *ast.NumericLiteral:
		idx := fc.cb.AddConstant(value.FromNumber(e.Value))
		fc.emitOp(OpPushConst)
		fc.emitU32(idx)
		return nil
	case *ast.BigIntLiteral:
		idx := fc.constString(e.Digits)
		fc.emitOp(OpPushConst)
		fc.emitU32(idx)
		return nil
	case *ast.StringLiteral:
		idx := fc.constString(e.Value)
		fc.emitOp(OpPushConst)
		fc.emitU32(idx)
		return nil
	case *ast.BooleanLiteral:
		if e.Value {
			fc.emitOp(OpPushTrue)
		} else {
			fc.emitOp(OpPushFalse)
		}
		return nil
	case *ast.NullLiteral:
		fc.emitOp(OpPushNull)
		return nil
	case *ast.RegExpLiteral:
		idx := fc.constString(e.Pattern + "\x00" + e.Flags)
		fc.emitOp(OpMakeRegExp)
		fc.emitU32(idx)
		return nil
	case *ast.ThisExpression:
		fc.emitOp(OpGetThis)
		return nil
	case *ast.SuperExpression:
		fc.emitOp(OpGetSuperBase)
		return nil
	case *ast.NewTargetExpression:
		fc.emitOp(OpGetNewTarget)
		return nil
	case *ast.ArrayLiteral:
		return fc.compileArrayLiteral(e)
	case *ast.ObjectLiteral:
		return fc.compileObjectLiteral(e)
	case *ast.FunctionExpression:
		child, err := compileFunctionExpression(e, fc.env)
		if err != nil {
			return err
		}
		idx := fc.cb.AddFunc(child)
		if e.Kind == ast.FunctionArrow {
			fc.emitOp(OpMakeArrow)
		} else {
			fc.emitOp(OpMakeFunction)
		}
		fc.emitU32(idx)
		return nil
	case *ast.ClassExpression:
		return fc.compileClass(e)
	case *ast.UnaryExpression:
		return fc.compileUnary(e)
	case *ast.UpdateExpression:
		return fc.compileUpdate(e)
	case *ast.BinaryExpression:
		return fc.compileBinary(e)
	case *ast.LogicalExpression:
		return fc.compileLogical(e)
	case *ast.AssignmentExpression:
		return fc.compileAssignment(e)
	case *ast.ConditionalExpression:
		return fc.compileConditional(e)
	case *ast.CallExpression:
		return fc.compileCall(e)
	case *ast.NewExpression:
		return fc.compileNew(e)
	case *ast.MemberExpression:
		return fc.compileMemberRead(e)
	case *ast.SequenceExpression:
		for i, sub := range e.Expressions {
			if i > 0 {
				fc.emitOp(OpPop)
			}
			if err := fc.compileExpression(sub); err != nil {
				return err
			}
		}
		return nil
	case *ast.SpreadElement:
		return fc.compileExpression(e.Argument)
	case *ast.TemplateLiteral:
		return fc.compileTemplate(e)
	case *ast.TaggedTemplateExpression:
		return fc.compileTaggedTemplate(e)
	case *ast.YieldExpression:
		if e.Argument != nil {
			if err := fc.compileExpression(e.Argument); err != nil {
				return err
			}
		} else {
			fc.emitOp(OpPushUndefined)
		}
		fc.emitOp(OpYield)
		if e.Delegate {
			fc.emitU8(1)
		} else {
			fc.emitU8(0)
		}
		return nil
	case *ast.AwaitExpression:
		if err := fc.compileExpression(e.Argument); err != nil {
			return err
		}
		fc.emitOp(OpAwait)
		return nil
	default:
		return errCompile("compiler: unsupported expression %T", expr)
	}
}

func (fc *funcCompiler) compileIdentifierRead(name string) error {
	if idx, depth, _, ok := fc.env.Resolve(name); ok {
		fc.emitOp(OpGetLocal)
		fc.emitU32(depth)
		fc.emitU32(idx)
		return nil
	}
	idx := fc.constString(name)
	fc.emitOp(OpGetGlobal)
	fc.emitU32(idx)
	return nil
}

func (fc *funcCompiler) compileArrayLiteral(e *ast.ArrayLiteral) error {
	hasSpread := false
	for _, el := range e.Elements {
		if _, ok := el.(*ast.SpreadElement); ok {
			hasSpread = true
			break
		}
	}
	if !hasSpread {
		for _, el := range e.Elements {
			if el == nil {
				fc.emitOp(OpPushUndefined)
				continue
			}
			if err := fc.compileExpression(el); err != nil {
				return err
			}
		}
		fc.emitOp(OpMakeArray)
		fc.emitU32(uint32(len(e.Elements)))
		return nil
	}
	fc.emitOp(OpMakeArray)
	fc.emitU32(0)
	for _, el := range e.Elements {
		if spread, ok := el.(*ast.SpreadElement); ok {
			if err := fc.compileExpression(spread.Argument); err != nil {
				return err
			}
			fc.emitOp(OpArrayAppendSpread)
			continue
		}
		if el == nil {
			fc.emitOp(OpPushUndefined)
		} else if err := fc.compileExpression(el); err != nil {
			return err
		}
		fc.emitOp(OpArrayAppend)
	}
	return nil
}

func (fc *funcCompiler) compileObjectLiteral(e *ast.ObjectLiteral) error {
	fc.emitOp(OpMakeObject)
	fc.emitU32(uint32(len(e.Properties)))
	for _, p := range e.Properties {
		if p.Kind == PropertySpreadMarker() {
			if err := fc.compileExpression(p.Value); err != nil {
				return err
			}
			fc.emitOp(OpSpreadProps)
			continue
		}
		if p.Computed {
			if err := fc.compileExpression(p.Key); err != nil {
				return err
			}
		} else {
			idx := fc.constString(staticKeyName(p.Key))
			fc.emitOp(OpPushConst)
			fc.emitU32(idx)
		}
		if err := fc.compileExpression(p.Value); err != nil {
			return err
		}
		fc.emitOp(OpDefineProp)
	}
	return nil
}

// PropertySpreadMarker isolates the ast.PropertySpread constant so this
// file doesn't need an unused import alias juggling act at every call site.
func PropertySpreadMarker() ast.PropertyKind { return ast.PropertySpread }

func (fc *funcCompiler) compileUnary(e *ast.UnaryExpression) error {
	if e.Operator == "delete" {
		switch target := e.Argument.(type) {
		case *ast.MemberExpression:
			if err := fc.compileExpression(target.Object); err != nil {
				return err
			}
			if target.Computed {
				if err := fc.compileExpression(target.Property); err != nil {
					return err
				}
				fc.emitOp(OpDeletePropComputed)
			} else {
				idx := fc.constString(staticKeyName(target.Property))
				fc.emitOp(OpDeleteProp)
				fc.emitU32(idx)
			}
			return nil
		default:
			fc.emitOp(OpPushTrue) // deleting a non-reference is a no-op that evaluates to true
			return nil
		}
	}
	if e.Operator == "typeof" {
		if id, ok := e.Argument.(*ast.Identifier); ok {
			if _, _, _, ok := fc.env.Resolve(id.Name); !ok {
				idx := fc.constString(id.Name)
				fc.emitOp(OpTypeOfGlobal)
				fc.emitU32(idx)
				return nil
			}
		}
		if err := fc.compileExpression(e.Argument); err != nil {
			return err
		}
		fc.emitOp(OpTypeOf)
		return nil
	}
	if err := fc.compileExpression(e.Argument); err != nil {
		return err
	}
	switch e.Operator {
	case "-":
		fc.emitOp(OpNeg)
	case "+":
		fc.emitOp(OpPlus)
	case "!":
		fc.emitOp(OpNot)
	case "~":
		fc.emitOp(OpBitNot)
	case "void":
		fc.emitOp(OpPop)
		fc.emitOp(OpPushUndefined)
	default:
		return errCompile("compiler: unsupported unary operator %q", e.Operator)
	}
	return nil
}

// compileUpdate leaves [old, new] on the stack after storing, then
// keeps whichever one is this expression's value: postfix drops the
// top (new) to expose old; prefix swaps first so old ends up on top
// to drop instead.
func (fc *funcCompiler) compileUpdate(e *ast.UpdateExpression) error {
	if err := fc.compileExpression(e.Argument); err != nil {
		return err
	}
	fc.emitOp(OpDup)
	oneIdx := fc.cb.AddConstant(value.FromInt32(1))
	fc.emitOp(OpPushConst)
	fc.emitU32(oneIdx)
	if e.Operator == "--" {
		fc.emitOp(OpSub)
	} else {
		fc.emitOp(OpAdd)
	}
	if err := fc.compileStoreTarget(e.Argument); err != nil {
		return err
	}
	if e.Prefix {
		fc.emitOp(OpSwap)
	}
	fc.emitOp(OpPop)
	return nil
}

func (fc *funcCompiler) compileBinary(e *ast.BinaryExpression) error {
	if err := fc.compileExpression(e.Left); err != nil {
		return err
	}
	if err := fc.compileExpression(e.Right); err != nil {
		return err
	}
	op, ok := binaryOps[e.Operator]
	if !ok {
		return errCompile("compiler: unsupported binary operator %q", e.Operator)
	}
	fc.emitOp(op)
	return nil
}

var binaryOps = map[string]Op{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod, "**": OpExp,
	"&": OpBitAnd, "|": OpBitOr, "^": OpBitXor, "<<": OpShl, ">>": OpShr, ">>>": OpUShr,
	"==": OpEq, "!=": OpNotEq, "===": OpStrictEq, "!==": OpStrictNotEq,
	"<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte,
	"instanceof": OpInstanceOf, "in": OpIn,
}

func (fc *funcCompiler) compileLogical(e *ast.LogicalExpression) error {
	if err := fc.compileExpression(e.Left); err != nil {
		return err
	}
	fc.emitOp(OpDup)
	var skip int
	switch e.Operator {
	case "&&":
		skip = fc.emitJump(OpJumpIfFalse)
	case "||":
		skip = fc.emitJump(OpJumpIfTrue)
	case "??":
		skip = fc.emitJump(OpJumpIfNullish)
	default:
		return errCompile("compiler: unsupported logical operator %q", e.Operator)
	}
	fc.emitOp(OpPop)
	if err := fc.compileExpression(e.Right); err != nil {
		return err
	}
	fc.patchJumpHere(skip)
	return nil
}

func (fc *funcCompiler) compileConditional(e *ast.ConditionalExpression) error {
	if err := fc.compileExpression(e.Test); err != nil {
		return err
	}
	elseJump := fc.emitJump(OpJumpIfFalse)
	if err := fc.compileExpression(e.Consequent); err != nil {
		return err
	}
	endJump := fc.emitJump(OpJump)
	fc.patchJumpHere(elseJump)
	if err := fc.compileExpression(e.Alternate); err != nil {
		return err
	}
	fc.patchJumpHere(endJump)
	return nil
}

func (fc *funcCompiler) compileAssignment(e *ast.AssignmentExpression) error {
	if e.Operator == "=" {
		if err := fc.compileExpression(e.Value); err != nil {
			return err
		}
		if pat, ok := asPattern(e.Target); ok {
			fc.emitOp(OpDup)
			return fc.bindPattern(pat)
		}
		return fc.compileStoreTarget(e.Target)
	}
	// Compound assignment: evaluate target once, combine, store back.
	// Set* pushes the stored value back, which is also this
	// expression's value.
	if err := fc.compileExpression(e.Target); err != nil {
		return err
	}
	if err := fc.compileExpression(e.Value); err != nil {
		return err
	}
	op, ok := binaryOps[compoundBaseOp(e.Operator)]
	if !ok {
		return errCompile("compiler: unsupported assignment operator %q", e.Operator)
	}
	fc.emitOp(op)
	return fc.compileStoreTarget(e.Target)
}

func compoundBaseOp(op string) string {
	if len(op) > 0 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}

func asPattern(e ast.Expression) (ast.Pattern, bool) {
	switch e.(type) {
	case *ast.ArrayLiteral, *ast.ObjectLiteral:
		return nil, false // full expression-to-pattern reinterpretation is not implemented; treated as simple targets
	}
	return nil, false
}

// compileStoreTarget pops the value on top of the stack and stores it
// through target, used by simple assignment, compound assignment,
// update expressions, and for-in/of loops over non-declaration targets.
func (fc *funcCompiler) compileStoreTarget(target ast.Expression) error {
	switch t := target.(type) {
	case *ast.Identifier:
		if idx, depth, _, ok := fc.env.Resolve(t.Name); ok {
			fc.emitOp(OpSetLocal)
			fc.emitU32(depth)
			fc.emitU32(idx)
			return nil
		}
		idx := fc.constString(t.Name)
		fc.emitOp(OpSetGlobal)
		fc.emitU32(idx)
		return nil
	case *ast.MemberExpression:
		if err := fc.compileExpression(t.Object); err != nil {
			return err
		}
		if t.Computed {
			if err := fc.compileExpression(t.Property); err != nil {
				return err
			}
			fc.emitOp(OpSetPropComputed)
			return nil
		}
		idx := fc.constString(staticKeyName(t.Property))
		fc.emitOp(OpSetProp)
		fc.emitU32(idx)
		return nil
	}
	return errCompile("compiler: unsupported assignment target %T", target)
}

func (fc *funcCompiler) compileCall(e *ast.CallExpression) error {
	if sup, ok := e.Callee.(*ast.SuperExpression); ok {
		_ = sup
		fc.emitOp(OpGetSuperConstructor)
		for _, a := range e.Args {
			if err := fc.compileExpression(a); err != nil {
				return err
			}
		}
		fc.emitOp(OpConstruct)
		fc.emitU8(byte(len(e.Args)))
		return nil
	}
	if mem, ok := e.Callee.(*ast.MemberExpression); ok {
		if err := fc.compileExpression(mem.Object); err != nil {
			return err
		}
		fc.emitOp(OpDup)
		if mem.Computed {
			if err := fc.compileExpression(mem.Property); err != nil {
				return err
			}
			fc.emitOp(OpGetPropComputed)
		} else {
			idx := fc.constString(staticKeyName(mem.Property))
			fc.emitOp(OpGetProp)
			fc.emitU32(idx)
		}
		fc.emitOp(OpSwap)
		return fc.compileArgsAndCall(e)
	}
	fc.emitOp(OpPushUndefined) // this-value for a non-member callee
	if err := fc.compileExpression(e.Callee); err != nil {
		return err
	}
	fc.emitOp(OpSwap)
	return fc.compileArgsAndCall(e)
}

func (fc *funcCompiler) compileArgsAndCall(e *ast.CallExpression) error {
	hasSpread := false
	for _, a := range e.Args {
		if _, ok := a.(*ast.SpreadElement); ok {
			hasSpread = true
		}
		if err := fc.compileExpression(a); err != nil {
			return err
		}
	}
	if hasSpread {
		fc.emitOp(OpSpreadCall)
		fc.emitU8(byte(len(e.Args)))
		return nil
	}
	if e.Optional {
		fc.emitOp(OpCallOpt)
	} else {
		fc.emitOp(OpCall)
	}
	fc.emitU8(byte(len(e.Args)))
	return nil
}

func (fc *funcCompiler) compileNew(e *ast.NewExpression) error {
	if err := fc.compileExpression(e.Callee); err != nil {
		return err
	}
	for _, a := range e.Args {
		if err := fc.compileExpression(a); err != nil {
			return err
		}
	}
	fc.emitOp(OpConstruct)
	fc.emitU8(byte(len(e.Args)))
	return nil
}

func (fc *funcCompiler) compileMemberRead(e *ast.MemberExpression) error {
	if err := fc.compileExpression(e.Object); err != nil {
		return err
	}
	if e.Optional {
		skip := fc.emitJump(OpJumpIfNullish)
		if e.Computed {
			if err := fc.compileExpression(e.Property); err != nil {
				return err
			}
			fc.emitOp(OpGetPropComputed)
		} else {
			idx := fc.constString(staticKeyName(e.Property))
			fc.emitOp(OpGetProp)
			fc.emitU32(idx)
		}
		end := fc.emitJump(OpJump)
		fc.patchJumpHere(skip)
		fc.emitOp(OpPushUndefined)
		fc.patchJumpHere(end)
		return nil
	}
	if e.Computed {
		if err := fc.compileExpression(e.Property); err != nil {
			return err
		}
		fc.emitOp(OpGetPropComputed)
		return nil
	}
	idx := fc.constString(staticKeyName(e.Property))
	fc.emitOp(OpGetProp)
	fc.emitU32(idx)
	return nil
}

// compileTemplate lowers a template literal to a left-fold of string
// concatenations: quasis[0] + expr[0] + quasis[1] + expr[1] + ... +
// quasis[n].
func (fc *funcCompiler) compileTemplate(e *ast.TemplateLiteral) error {
	idx := fc.constString(e.Quasis[0])
	fc.emitOp(OpPushConst)
	fc.emitU32(idx)
	for i, expr := range e.Expressions {
		if err := fc.compileExpression(expr); err != nil {
			return err
		}
		fc.emitOp(OpAdd)
		qIdx := fc.constString(e.Quasis[i+1])
		fc.emitOp(OpPushConst)
		fc.emitU32(qIdx)
		fc.emitOp(OpAdd)
	}
	return nil
}

// compileTaggedTemplate builds the strings array the tag function
// receives as its first argument directly from the literal's raw
// quasis, skipping the exotic per-call-site template-object identity
// caching real engines use for tag functions that rely on reference
// equality across repeated evaluations of the same tagged template.
func (fc *funcCompiler) compileTaggedTemplate(e *ast.TaggedTemplateExpression) error {
	fc.emitOp(OpPushUndefined)
	if err := fc.compileExpression(e.Tag); err != nil {
		return err
	}
	fc.emitOp(OpSwap)
	for _, raw := range e.Template.RawQuasis {
		idx := fc.constString(raw)
		fc.emitOp(OpPushConst)
		fc.emitU32(idx)
	}
	fc.emitOp(OpMakeArray)
	fc.emitU32(uint32(len(e.Template.RawQuasis)))
	for _, expr := range e.Template.Expressions {
		if err := fc.compileExpression(expr); err != nil {
			return err
		}
	}
	fc.emitOp(OpCall)
	fc.emitU8(byte(len(e.Template.Expressions) + 1))
	return nil
}
