package module

import "github.com/quartzjs/quartz/internal/ast"

// hasTopLevelAwait reports whether body contains an AwaitExpression
// reachable without crossing into a nested function or class body (an
// `await` inside a non-async callback doesn't make the enclosing
// module asynchronous). The walk covers every statement and expression
// kind internal/ast defines; it does not need to distinguish `for
// await` from `await` itself since both lower through AwaitExpression
// or an async ForInOfStatement already recorded on the loop node.
func hasTopLevelAwait(body []ast.Statement) bool {
	for _, s := range body {
		if stmtHasAwait(s) {
			return true
		}
	}
	return false
}

func stmtHasAwait(s ast.Statement) bool {
	switch t := s.(type) {
	case *ast.ExpressionStatement:
		return exprHasAwait(t.Expression)
	case *ast.BlockStatement:
		return hasTopLevelAwait(t.Body)
	case *ast.VariableDeclaration:
		for _, d := range t.Declarations {
			if d.Init != nil && exprHasAwait(d.Init) {
				return true
			}
		}
		return false
	case *ast.IfStatement:
		return exprHasAwait(t.Test) || stmtHasAwait(t.Consequent) || (t.Alternate != nil && stmtHasAwait(t.Alternate))
	case *ast.ForStatement:
		if init, ok := t.Init.(ast.Expression); ok && init != nil && exprHasAwait(init) {
			return true
		}
		if vd, ok := t.Init.(*ast.VariableDeclaration); ok && vd != nil && stmtHasAwait(vd) {
			return true
		}
		return (t.Test != nil && exprHasAwait(t.Test)) || (t.Update != nil && exprHasAwait(t.Update)) || stmtHasAwait(t.Body)
	case *ast.ForInOfStatement:
		return t.Await || exprHasAwait(t.Right) || stmtHasAwait(t.Body)
	case *ast.WhileStatement:
		return exprHasAwait(t.Test) || stmtHasAwait(t.Body)
	case *ast.DoWhileStatement:
		return exprHasAwait(t.Test) || stmtHasAwait(t.Body)
	case *ast.ReturnStatement:
		return t.Argument != nil && exprHasAwait(t.Argument)
	case *ast.ThrowStatement:
		return exprHasAwait(t.Argument)
	case *ast.TryStatement:
		if hasTopLevelAwait(t.Block.Body) {
			return true
		}
		if t.Handler != nil && hasTopLevelAwait(t.Handler.Body.Body) {
			return true
		}
		return t.Finally != nil && hasTopLevelAwait(t.Finally.Body)
	case *ast.SwitchStatement:
		if exprHasAwait(t.Discriminant) {
			return true
		}
		for _, c := range t.Cases {
			if hasTopLevelAwait(c.Body) {
				return true
			}
		}
		return false
	case *ast.LabeledStatement:
		return stmtHasAwait(t.Body)
	default:
		// FunctionDeclaration, ClassDeclaration, and every module
		// declaration form establish their own scope (or carry no
		// directly-executable expression at the module's top level) and
		// are intentionally not descended into here.
		return false
	}
}

func exprHasAwait(e ast.Expression) bool {
	switch t := e.(type) {
	case *ast.AwaitExpression:
		return true
	case *ast.BinaryExpression:
		return exprHasAwait(t.Left) || exprHasAwait(t.Right)
	case *ast.LogicalExpression:
		return exprHasAwait(t.Left) || exprHasAwait(t.Right)
	case *ast.AssignmentExpression:
		return exprHasAwait(t.Value)
	case *ast.ConditionalExpression:
		return exprHasAwait(t.Test) || exprHasAwait(t.Consequent) || exprHasAwait(t.Alternate)
	case *ast.UnaryExpression:
		return exprHasAwait(t.Argument)
	case *ast.UpdateExpression:
		return exprHasAwait(t.Argument)
	case *ast.CallExpression:
		if exprHasAwait(t.Callee) {
			return true
		}
		for _, a := range t.Args {
			if exprHasAwait(a) {
				return true
			}
		}
		return false
	case *ast.NewExpression:
		if exprHasAwait(t.Callee) {
			return true
		}
		for _, a := range t.Args {
			if exprHasAwait(a) {
				return true
			}
		}
		return false
	case *ast.MemberExpression:
		return exprHasAwait(t.Object) || (t.Computed && exprHasAwait(t.Property))
	case *ast.SequenceExpression:
		for _, x := range t.Expressions {
			if exprHasAwait(x) {
				return true
			}
		}
		return false
	case *ast.SpreadElement:
		return exprHasAwait(t.Argument)
	case *ast.ArrayLiteral:
		for _, el := range t.Elements {
			if el != nil && exprHasAwait(el) {
				return true
			}
		}
		return false
	case *ast.ObjectLiteral:
		for _, p := range t.Properties {
			if p.Value != nil && exprHasAwait(p.Value) {
				return true
			}
		}
		return false
	case *ast.TemplateLiteral:
		for _, x := range t.Expressions {
			if exprHasAwait(x) {
				return true
			}
		}
		return false
	case *ast.TaggedTemplateExpression:
		return exprHasAwait(t.Tag) || exprHasAwait(t.Template)
	default:
		// Identifier/literals/FunctionExpression/ClassExpression/
		// ThisExpression and friends carry no top-level-reachable await.
		return false
	}
}
