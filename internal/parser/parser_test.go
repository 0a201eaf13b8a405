package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartzjs/quartz/internal/ast"
	"github.com/quartzjs/quartz/internal/diag"
)

func parseScript(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New([]byte(src), diag.NewLog())
	prog, err := p.ParseScript()
	require.NoError(t, err)
	return prog
}

func parseScriptErr(t *testing.T, src string) error {
	t.Helper()
	p := New([]byte(src), diag.NewLog())
	_, err := p.ParseScript()
	return err
}

func TestParseVariableDeclarations(t *testing.T) {
	prog := parseScript(t, "var a = 1; let b = 2; const c = 3;")
	require.Len(t, prog.Body, 3)
	for i, kind := range []ast.VariableKind{ast.VarVar, ast.VarLet, ast.VarConst} {
		decl, ok := prog.Body[i].(*ast.VariableDeclaration)
		require.True(t, ok)
		require.Equal(t, kind, decl.Kind)
		require.Len(t, decl.Declarations, 1)
	}
}

func TestParseConstRequiresInitializer(t *testing.T) {
	err := parseScriptErr(t, "const a;")
	require.Error(t, err)
}

func TestParseIfElseStatement(t *testing.T) {
	prog := parseScript(t, "if (a) { b(); } else { c(); }")
	stmt, ok := prog.Body[0].(*ast.IfStatement)
	require.True(t, ok)
	require.NotNil(t, stmt.Consequent)
	require.NotNil(t, stmt.Alternate)
}

func TestParseForLoopVariants(t *testing.T) {
	prog := parseScript(t, "for (let i = 0; i < 10; i++) {}")
	_, ok := prog.Body[0].(*ast.ForStatement)
	require.True(t, ok)

	prog = parseScript(t, "for (const x of xs) {}")
	forOf, ok := prog.Body[0].(*ast.ForInOfStatement)
	require.True(t, ok)
	require.Equal(t, ast.ForOf, forOf.Kind)

	prog = parseScript(t, "for (const x in xs) {}")
	forIn, ok := prog.Body[0].(*ast.ForInOfStatement)
	require.True(t, ok)
	require.Equal(t, ast.ForIn, forIn.Kind)
}

func TestParseForLoopRejectsLetAsBindingName(t *testing.T) {
	err := parseScriptErr(t, "for (let let of xs) {}")
	require.Error(t, err)
}

func TestParseFunctionDeclaration(t *testing.T) {
	prog := parseScript(t, "function f(a, b = 1, ...rest) { return a; }")
	decl, ok := prog.Body[0].(*ast.FunctionDeclaration)
	require.True(t, ok)
	require.Equal(t, "f", decl.Name.Name)
	require.Len(t, decl.Fn.Params, 3)
}

func TestParseArrowFunctionSingleIdentifierParam(t *testing.T) {
	prog := parseScript(t, "var f = x => x + 1;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	fn, ok := decl.Declarations[0].Init.(*ast.FunctionExpression)
	require.True(t, ok)
	require.Equal(t, ast.FunctionArrow, fn.Kind)
	require.NotNil(t, fn.ExprBody)
}

func TestParseArrowFunctionParenthesizedParams(t *testing.T) {
	prog := parseScript(t, "var f = (a, b) => { return a + b; };")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	fn, ok := decl.Declarations[0].Init.(*ast.FunctionExpression)
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	require.Nil(t, fn.ExprBody)
	require.Len(t, fn.Body, 1)
}

func TestParseClassDeclarationWithMethodsAndFields(t *testing.T) {
	prog := parseScript(t, `
		class C extends Base {
			x = 1;
			constructor() { super(); }
			get y() { return this.x; }
			static z() {}
		}
	`)
	decl, ok := prog.Body[0].(*ast.ClassDeclaration)
	require.True(t, ok)
	require.Equal(t, "C", decl.Name.Name)
	require.NotNil(t, decl.Class.SuperClass)
	require.Len(t, decl.Class.Members, 4)
}

func TestParseTemplateLiteralWithSubstitution(t *testing.T) {
	prog := parseScript(t, "var s = `a${1 + 2}b`;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	tmpl, ok := decl.Declarations[0].Init.(*ast.TemplateLiteral)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, tmpl.Quasis)
	require.Len(t, tmpl.Expressions, 1)
}

func TestParseDestructuringBindingPatterns(t *testing.T) {
	prog := parseScript(t, "var { a, b: [c, ...d] } = obj;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	pat, ok := decl.Declarations[0].Target.(*ast.ObjectPattern)
	require.True(t, ok)
	require.Len(t, pat.Properties, 2)
}

func TestParseTryCatchFinally(t *testing.T) {
	prog := parseScript(t, "try { f(); } catch (e) { g(e); } finally { h(); }")
	stmt, ok := prog.Body[0].(*ast.TryStatement)
	require.True(t, ok)
	require.NotNil(t, stmt.Handler)
	require.NotNil(t, stmt.Finally)
}

func TestParseSwitchRejectsDuplicateDefault(t *testing.T) {
	err := parseScriptErr(t, "switch (a) { default: break; default: break; }")
	require.Error(t, err)
}

func TestParseBreakRejectsUnknownLabel(t *testing.T) {
	err := parseScriptErr(t, "loop: while (true) { break other; }")
	require.Error(t, err)
}

func TestParseWithStatementForbiddenInStrictMode(t *testing.T) {
	err := parseScriptErr(t, `"use strict"; with (obj) { f(); }`)
	require.Error(t, err)
}

func TestParseDirectivePrologueEnablesStrictMode(t *testing.T) {
	prog := parseScript(t, `"use strict"; var x = 1;`)
	require.True(t, prog.Strict)
}

func TestParseStrictModeRejectsEvalAsBindingName(t *testing.T) {
	err := parseScriptErr(t, `"use strict"; var eval = 1;`)
	require.Error(t, err)
}

func TestParseModuleImportExport(t *testing.T) {
	p := New([]byte(`
		import { a, b as c } from "mod";
		export { a };
		export default function f() {}
	`), diag.NewLog())
	prog, err := p.ParseModule()
	require.NoError(t, err)
	require.True(t, prog.IsModule)
	require.Len(t, prog.Body, 3)
	imp, ok := prog.Body[0].(*ast.ImportDeclaration)
	require.True(t, ok)
	require.Equal(t, "mod", imp.Source)
	require.Len(t, imp.Specifiers, 2)
}

func TestParseSequenceExpression(t *testing.T) {
	prog := parseScript(t, "a, b, c;")
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	seq, ok := stmt.Expression.(*ast.SequenceExpression)
	require.True(t, ok)
	require.Len(t, seq.Expressions, 3)
}

func TestParseOptionalChainingAndNullishCoalescing(t *testing.T) {
	prog := parseScript(t, "a?.b?.(); a ?? b;")
	require.Len(t, prog.Body, 2)
	stmt2 := prog.Body[1].(*ast.ExpressionStatement)
	_, ok := stmt2.Expression.(*ast.LogicalExpression)
	require.True(t, ok)
}
