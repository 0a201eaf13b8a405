package compiler

import (
	"github.com/quartzjs/quartz/internal/ast"
	"github.com/quartzjs/quartz/internal/jsenv"
)

func (fc *funcCompiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		if s.Directive != "" {
			return nil
		}
		if err := fc.compileExpression(s.Expression); err != nil {
			return err
		}
		fc.emitOp(OpPop)
		return nil
	case *ast.VariableDeclaration:
		return fc.compileVariableDeclaration(s)
	case *ast.BlockStatement:
		return fc.compileBlock(s.Body)
	case *ast.EmptyStatement:
		return nil
	case *ast.IfStatement:
		return fc.compileIf(s)
	case *ast.WhileStatement:
		return fc.compileWhile(s)
	case *ast.DoWhileStatement:
		return fc.compileDoWhile(s)
	case *ast.ForStatement:
		return fc.compileFor(s)
	case *ast.ForInOfStatement:
		return fc.compileForInOf(s)
	case *ast.ReturnStatement:
		if s.Argument != nil {
			if err := fc.compileExpression(s.Argument); err != nil {
				return err
			}
		} else {
			fc.emitOp(OpPushUndefined)
		}
		fc.emitOp(OpReturn)
		return nil
	case *ast.BreakStatement:
		return fc.compileBreak(s.Label)
	case *ast.ContinueStatement:
		return fc.compileContinue(s.Label)
	case *ast.ThrowStatement:
		if err := fc.compileExpression(s.Argument); err != nil {
			return err
		}
		fc.emitOp(OpThrow)
		return nil
	case *ast.TryStatement:
		return fc.compileTry(s)
	case *ast.SwitchStatement:
		return fc.compileSwitch(s)
	case *ast.LabeledStatement:
		return fc.compileLabeled(s)
	case *ast.FunctionDeclaration:
		return fc.compileFunctionDeclaration(s)
	case *ast.ClassDeclaration:
		return fc.compileClassDeclaration(s)
	case *ast.DebuggerStatement:
		return nil
	case *ast.WithStatement:
		// `with` is forbidden under strict mode by the parser; the
		// non-strict case is out of scope for this engine's compiler
		// (no exotic object-environment lowering is implemented), so a
		// `with` that reaches the compiler compiles its body against
		// the enclosing scope directly, silently dropping the dynamic
		// scope augmentation.
		return fc.compileStatement(s.Body)
	case *ast.ImportDeclaration, *ast.ExportNamedDeclaration, *ast.ExportDefaultDeclaration, *ast.ExportAllDeclaration:
		return fc.compileModuleDeclaration(stmt)
	default:
		return errCompile("compiler: unsupported statement %T", stmt)
	}
}

func (fc *funcCompiler) compileBlock(body []ast.Statement) error {
	outer := fc.env
	fc.env = jsenv.NewCompileTimeEnvironment(outer, false)
	if err := fc.hoistBlockLexicals(body); err != nil {
		return err
	}
	for _, stmt := range body {
		if err := fc.compileStatement(stmt); err != nil {
			fc.env = outer
			return err
		}
	}
	fc.env = outer
	return nil
}

// hoistBlockLexicals declares a block's own let/const/class names (and
// nested function declarations, which in non-strict sloppy mode are
// block-scoped with a var-scoped alias the parser's early-error pass
// already validated) before compiling its statements, matching
// jsenv.CompileTimeEnvironment's one-scope-per-block model.
func (fc *funcCompiler) hoistBlockLexicals(body []ast.Statement) error {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.VariableDeclaration:
			if s.Kind != ast.VarVar {
				kind := jsenv.BindingLet
				if s.Kind == ast.VarConst {
					kind = jsenv.BindingConst
				}
				for _, d := range s.Declarations {
					fc.declareLexicalPattern(d.Target, kind)
				}
			}
		case *ast.ClassDeclaration:
			if s.Name != nil {
				fc.env.Declare(s.Name.Name, jsenv.BindingLet, fc.cb.Strict)
			}
		case *ast.FunctionDeclaration:
			if s.Name != nil {
				fc.env.Declare(s.Name.Name, jsenv.BindingFunction, fc.cb.Strict)
			}
		}
	}
	return nil
}

func (fc *funcCompiler) declareLexicalPattern(p ast.Pattern, kind jsenv.BindingKind) {
	switch pt := p.(type) {
	case *ast.IdentifierPattern:
		fc.env.Declare(pt.Name, kind, fc.cb.Strict)
	case *ast.ArrayPattern:
		for _, el := range pt.Elements {
			if el != nil {
				fc.declareLexicalPattern(el, kind)
			}
		}
		if pt.Rest != nil {
			fc.declareLexicalPattern(pt.Rest, kind)
		}
	case *ast.ObjectPattern:
		for _, prop := range pt.Properties {
			fc.declareLexicalPattern(prop.Value, kind)
		}
		if pt.Rest != nil {
			fc.declareLexicalPattern(pt.Rest, kind)
		}
	}
}

func (fc *funcCompiler) compileVariableDeclaration(s *ast.VariableDeclaration) error {
	for _, d := range s.Declarations {
		if d.Init != nil {
			if err := fc.compileExpression(d.Init); err != nil {
				return err
			}
		} else {
			fc.emitOp(OpPushUndefined)
		}
		if err := fc.bindPattern(d.Target); err != nil {
			return err
		}
	}
	return nil
}

// bindPattern pops the value on top of the operand stack and stores it
// through the given binding target, recursing through destructuring
// patterns via GetProp/GetPropComputed and OpGetIterator as needed.
func (fc *funcCompiler) bindPattern(p ast.Pattern) error {
	switch pt := p.(type) {
	case *ast.IdentifierPattern:
		if pt.Default != nil {
			fc.emitOp(OpDup)
			useDefault := fc.emitJump(OpJumpIfUndefined)
			skipDefault := fc.emitJump(OpJump)
			fc.patchJumpHere(useDefault)
			fc.emitOp(OpPop)
			if err := fc.compileExpression(pt.Default); err != nil {
				return err
			}
			fc.patchJumpHere(skipDefault)
		}
		idx, depth, _, ok := fc.env.Resolve(pt.Name)
		if !ok {
			idx = fc.env.Declare(pt.Name, jsenv.BindingVar, fc.cb.Strict)
			depth = 0
		}
		fc.emitOp(OpInitLocal)
		fc.emitU32(depth)
		fc.emitU32(idx)
		return nil
	case *ast.ArrayPattern:
		fc.emitOp(OpGetIterator)
		for _, el := range pt.Elements {
			fc.emitOp(OpIteratorNext)
			if el == nil {
				fc.emitOp(OpPop)
				fc.emitOp(OpPop)
				continue
			}
			fc.emitOp(OpPop) // done flag; array-pattern iteration doesn't short-circuit on spec-exact completion here
			if err := fc.bindPattern(el); err != nil {
				return err
			}
		}
		if pt.Rest != nil {
			fc.emitOp(OpIteratorRest)
			if err := fc.bindPattern(pt.Rest); err != nil {
				return err
			}
		} else {
			fc.emitOp(OpIteratorClose)
		}
		return nil
	case *ast.ObjectPattern:
		for _, prop := range pt.Properties {
			fc.emitOp(OpDup)
			if err := fc.compileExpression(prop.Key); err != nil {
				return err
			}
			fc.emitOp(OpGetPropComputed)
			if err := fc.bindPattern(prop.Value); err != nil {
				return err
			}
		}
		if pt.Rest != nil {
			if err := fc.bindPattern(pt.Rest); err != nil {
				return err
			}
		} else {
			fc.emitOp(OpPop)
		}
		return nil
	}
	return errCompile("compiler: unsupported binding pattern %T", p)
}

func (fc *funcCompiler) compileIf(s *ast.IfStatement) error {
	if err := fc.compileExpression(s.Test); err != nil {
		return err
	}
	elseJump := fc.emitJump(OpJumpIfFalse)
	if err := fc.compileStatement(s.Consequent); err != nil {
		return err
	}
	if s.Alternate == nil {
		fc.patchJumpHere(elseJump)
		return nil
	}
	endJump := fc.emitJump(OpJump)
	fc.patchJumpHere(elseJump)
	if err := fc.compileStatement(s.Alternate); err != nil {
		return err
	}
	fc.patchJumpHere(endJump)
	return nil
}

func (fc *funcCompiler) pushLoop(label string) *loopLabels {
	l := &loopLabels{label: label, continuePC: -1}
	fc.loops = append(fc.loops, l)
	return l
}

func (fc *funcCompiler) popLoop() *loopLabels {
	l := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]
	return l
}

func (fc *funcCompiler) compileWhile(s *ast.WhileStatement) error {
	l := fc.pushLoop("")
	start := fc.pc()
	if err := fc.compileExpression(s.Test); err != nil {
		return err
	}
	exit := fc.emitJump(OpJumpIfFalse)
	if err := fc.compileStatement(s.Body); err != nil {
		return err
	}
	fc.emitOp(OpJump)
	fc.emitU32(start)
	fc.patchJumpHere(exit)
	l = fc.popLoop()
	for _, p := range l.breakPatches {
		fc.patchJumpHere(p)
	}
	for _, p := range l.continuePatches {
		fc.patchU32(p, start)
	}
	return nil
}

func (fc *funcCompiler) compileDoWhile(s *ast.DoWhileStatement) error {
	fc.pushLoop("")
	start := fc.pc()
	if err := fc.compileStatement(s.Body); err != nil {
		return err
	}
	testPC := fc.pc()
	if err := fc.compileExpression(s.Test); err != nil {
		return err
	}
	fc.emitOp(OpJumpIfTrue)
	fc.emitU32(start)
	l := fc.popLoop()
	for _, p := range l.breakPatches {
		fc.patchJumpHere(p)
	}
	for _, p := range l.continuePatches {
		fc.patchU32(p, testPC)
	}
	return nil
}

func (fc *funcCompiler) compileFor(s *ast.ForStatement) error {
	outer := fc.env
	fc.env = jsenv.NewCompileTimeEnvironment(outer, false)
	defer func() { fc.env = outer }()

	switch init := s.Init.(type) {
	case *ast.VariableDeclaration:
		if init.Kind != ast.VarVar {
			for _, d := range init.Declarations {
				fc.declareLexicalPattern(d.Target, jsenv.BindingLet)
			}
		}
		if err := fc.compileVariableDeclaration(init); err != nil {
			return err
		}
	case ast.Expression:
		if err := fc.compileExpression(init); err != nil {
			return err
		}
		fc.emitOp(OpPop)
	}

	fc.pushLoop("")
	testPC := fc.pc()
	var exit int
	hasTest := s.Test != nil
	if hasTest {
		if err := fc.compileExpression(s.Test); err != nil {
			return err
		}
		exit = fc.emitJump(OpJumpIfFalse)
	}
	if err := fc.compileStatement(s.Body); err != nil {
		return err
	}
	updatePC := fc.pc()
	if s.Update != nil {
		if err := fc.compileExpression(s.Update); err != nil {
			return err
		}
		fc.emitOp(OpPop)
	}
	fc.emitOp(OpJump)
	fc.emitU32(testPC)
	if hasTest {
		fc.patchJumpHere(exit)
	}
	l := fc.popLoop()
	for _, p := range l.breakPatches {
		fc.patchJumpHere(p)
	}
	for _, p := range l.continuePatches {
		fc.patchU32(p, updatePC)
	}
	return nil
}

func (fc *funcCompiler) compileForInOf(s *ast.ForInOfStatement) error {
	outer := fc.env
	fc.env = jsenv.NewCompileTimeEnvironment(outer, false)
	defer func() { fc.env = outer }()

	if err := fc.compileExpression(s.Right); err != nil {
		return err
	}
	if s.Kind == ast.ForOf {
		if s.Await {
			fc.emitOp(OpGetAsyncIterator)
		} else {
			fc.emitOp(OpGetIterator)
		}
	} else {
		fc.emitOp(OpGetIterator) // for-in enumeration modeled as an iterator over own+inherited enumerable keys
	}

	fc.pushLoop("")
	start := fc.pc()
	fc.emitOp(OpIteratorNext)
	exit := fc.emitJump(OpJumpIfTrue) // pops done flag; true => finished
	if s.Await {
		fc.emitOp(OpAwait)
	}

	if decl, ok := s.Left.(*ast.VariableDeclaration); ok {
		if decl.Kind != ast.VarVar {
			fc.declareLexicalPattern(decl.Declarations[0].Target, jsenv.BindingLet)
		}
		if err := fc.bindPattern(decl.Declarations[0].Target); err != nil {
			return err
		}
	} else if pat, ok := s.Left.(ast.Pattern); ok {
		if err := fc.bindPattern(pat); err != nil {
			return err
		}
	} else if target, ok := s.Left.(ast.Expression); ok {
		if err := fc.compileStoreTarget(target); err != nil {
			return err
		}
	}

	if err := fc.compileStatement(s.Body); err != nil {
		return err
	}
	fc.emitOp(OpJump)
	fc.emitU32(start)
	fc.patchJumpHere(exit)
	fc.emitOp(OpIteratorClose)
	l := fc.popLoop()
	for _, p := range l.breakPatches {
		fc.patchJumpHere(p)
	}
	for _, p := range l.continuePatches {
		fc.patchU32(p, start)
	}
	return nil
}

func (fc *funcCompiler) compileBreak(label string) error {
	if len(fc.loops) == 0 {
		return errCompile("compiler: break outside loop/switch")
	}
	for i := len(fc.loops) - 1; i >= 0; i-- {
		if label == "" || fc.loops[i].label == label {
			off := fc.emitJump(OpJump)
			fc.loops[i].breakPatches = append(fc.loops[i].breakPatches, off)
			return nil
		}
	}
	return errCompile("compiler: break to unknown label %q", label)
}

func (fc *funcCompiler) compileContinue(label string) error {
	if len(fc.loops) == 0 {
		return errCompile("compiler: continue outside loop")
	}
	for i := len(fc.loops) - 1; i >= 0; i-- {
		if label == "" || fc.loops[i].label == label {
			off := fc.emitJump(OpJump)
			fc.loops[i].continuePatches = append(fc.loops[i].continuePatches, off)
			return nil
		}
	}
	return errCompile("compiler: continue to unknown label %q", label)
}

func (fc *funcCompiler) compileLabeled(s *ast.LabeledStatement) error {
	switch body := s.Body.(type) {
	case *ast.WhileStatement, *ast.DoWhileStatement, *ast.ForStatement, *ast.ForInOfStatement:
		// Label applies to the loop the label directly wraps: push a
		// marker loop frame carrying the label before compiling the
		// loop, which itself pushes its own unlabeled frame; break/continue
		// search from the innermost frame outward so both resolve.
		fc.loops = append(fc.loops, &loopLabels{label: s.Label, continuePC: -1})
		idx := len(fc.loops) - 1
		err := fc.compileStatement(body)
		if err != nil {
			return err
		}
		labelFrame := fc.loops[idx]
		fc.loops = append(fc.loops[:idx], fc.loops[idx+1:]...)
		for _, p := range labelFrame.breakPatches {
			fc.patchJumpHere(p)
		}
		return nil
	default:
		fc.loops = append(fc.loops, &loopLabels{label: s.Label, continuePC: -1})
		idx := len(fc.loops) - 1
		err := fc.compileStatement(body)
		if err != nil {
			return err
		}
		labelFrame := fc.loops[idx]
		fc.loops = append(fc.loops[:idx], fc.loops[idx+1:]...)
		for _, p := range labelFrame.breakPatches {
			fc.patchJumpHere(p)
		}
		return nil
	}
}

// compileTry implements §4.8's handler-chaining model: the try region
// installs a handler; if a catch clause is present its body runs at
// the handler pc and, on completion, falls into the finally (if any);
// if only a finally is present the handler re-throws after running it.
func (fc *funcCompiler) compileTry(s *ast.TryStatement) error {
	handlerIdx := len(fc.cb.Handlers)
	fc.cb.Handlers = append(fc.cb.Handlers, Handler{})
	pushOff := fc.pc()
	fc.emitOp(OpPushHandler)
	fc.emitU32(uint32(handlerIdx))

	tryStart := fc.pc()
	if err := fc.compileBlock(s.Block.Body); err != nil {
		return err
	}
	fc.emitOp(OpPopHandler)
	tryEnd := fc.pc()
	endJump := fc.emitJump(OpJump)

	handlerPC := fc.pc()
	if s.Handler != nil {
		outer := fc.env
		fc.env = jsenv.NewCompileTimeEnvironment(outer, false)
		if s.Handler.Param != nil {
			fc.declareLexicalPattern(s.Handler.Param, jsenv.BindingLet)
			if err := fc.bindPattern(s.Handler.Param); err != nil {
				fc.env = outer
				return err
			}
		} else {
			fc.emitOp(OpPop) // discard the thrown value when catch has no binding
		}
		if err := fc.compileBlock(s.Handler.Body.Body); err != nil {
			fc.env = outer
			return err
		}
		fc.env = outer
	} else {
		// No catch: re-raise after finally runs.
		if s.Finally != nil {
			if err := fc.compileBlock(s.Finally.Body); err != nil {
				return err
			}
		}
		fc.emitOp(OpReThrow)
	}
	fc.patchJumpHere(endJump)

	if s.Finally != nil {
		if err := fc.compileBlock(s.Finally.Body); err != nil {
			return err
		}
	}

	fc.cb.Handlers[handlerIdx] = Handler{
		TryStart:   tryStart,
		TryEnd:     tryEnd,
		HandlerPC:  handlerPC,
		EnvDepth:   0,
		StackDepth: 0,
		IsFinally:  s.Handler == nil && s.Finally != nil,
	}
	_ = pushOff
	return nil
}

func (fc *funcCompiler) compileSwitch(s *ast.SwitchStatement) error {
	if err := fc.compileExpression(s.Discriminant); err != nil {
		return err
	}
	fc.pushLoop("")
	var caseJumps []int
	defaultIdx := -1
	for i, c := range s.Cases {
		if c.Test == nil {
			defaultIdx = i
			caseJumps = append(caseJumps, -1)
			continue
		}
		fc.emitOp(OpDup)
		if err := fc.compileExpression(c.Test); err != nil {
			return err
		}
		fc.emitOp(OpCaseEq)
		caseJumps = append(caseJumps, fc.emitU32Placeholder())
	}
	endOfTests := fc.emitJump(OpJump)

	bodyStarts := make([]uint32, len(s.Cases))
	for i, c := range s.Cases {
		bodyStarts[i] = fc.pc()
		for _, stmt := range c.Body {
			if err := fc.compileStatement(stmt); err != nil {
				return err
			}
		}
	}
	endPC := fc.pc()
	for i, off := range caseJumps {
		if off == -1 {
			continue
		}
		fc.patchU32(off, bodyStarts[i])
	}
	if defaultIdx >= 0 {
		fc.patchU32(endOfTests, bodyStarts[defaultIdx])
	} else {
		fc.patchU32(endOfTests, endPC)
	}
	fc.emitOp(OpPop) // discard the discriminant OpCaseEq left on the stack
	l := fc.popLoop()
	for _, p := range l.breakPatches {
		fc.patchJumpHere(p)
	}
	return nil
}

func (fc *funcCompiler) compileFunctionDeclaration(s *ast.FunctionDeclaration) error {
	child, err := compileFunctionExpression(s.Fn, fc.env)
	if err != nil {
		return err
	}
	idx := fc.cb.AddFunc(child)
	fc.emitOp(OpMakeFunction)
	fc.emitU32(idx)
	if s.Name != nil {
		slotIdx, depth, _, ok := fc.env.Resolve(s.Name.Name)
		if !ok {
			slotIdx = fc.env.Declare(s.Name.Name, jsenv.BindingFunction, fc.cb.Strict)
			depth = 0
		}
		fc.emitOp(OpInitLocal)
		fc.emitU32(depth)
		fc.emitU32(slotIdx)
	} else {
		fc.emitOp(OpPop)
	}
	return nil
}

func (fc *funcCompiler) compileClassDeclaration(s *ast.ClassDeclaration) error {
	if err := fc.compileClass(s.Class); err != nil {
		return err
	}
	if s.Name != nil {
		idx, depth, _, ok := fc.env.Resolve(s.Name.Name)
		if !ok {
			idx = fc.env.Declare(s.Name.Name, jsenv.BindingLet, fc.cb.Strict)
			depth = 0
		}
		fc.emitOp(OpInitLocal)
		fc.emitU32(depth)
		fc.emitU32(idx)
	} else {
		fc.emitOp(OpPop)
	}
	return nil
}

func (fc *funcCompiler) compileModuleDeclaration(stmt ast.Statement) error {
	switch d := stmt.(type) {
	case *ast.ImportDeclaration:
		return nil // bindings are installed by internal/module at link time
	case *ast.ExportNamedDeclaration:
		if d.Declaration != nil {
			return fc.compileStatement(d.Declaration)
		}
		return nil
	case *ast.ExportDefaultDeclaration:
		switch decl := d.Declaration.(type) {
		case *ast.FunctionDeclaration:
			return fc.compileFunctionDeclaration(decl)
		case *ast.ClassDeclaration:
			return fc.compileClassDeclaration(decl)
		case ast.Expression:
			if err := fc.compileExpression(decl); err != nil {
				return err
			}
			idx := fc.env.Declare("*default*", jsenv.BindingConst, true)
			fc.emitOp(OpInitLocal)
			fc.emitU32(0)
			fc.emitU32(idx)
			return nil
		}
		return nil
	case *ast.ExportAllDeclaration:
		return nil
	}
	return nil
}
