package parser

import (
	"github.com/quartzjs/quartz/internal/ast"
	"github.com/quartzjs/quartz/internal/lexer"
)

func (p *Parser) parseStatementOrDeclaration(sc *scope) (ast.Statement, error) {
	switch {
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("const"):
		return p.parseVariableStatement(sc)
	case p.isKeyword("function"):
		return p.parseFunctionDeclaration(sc)
	case p.isKeyword("async") && p.peekIsFunction():
		return p.parseFunctionDeclaration(sc)
	case p.isKeyword("class"):
		return p.parseClassDeclaration(sc)
	case p.isPunct("{"):
		return p.parseBlockStatement(sc)
	case p.isPunct(";"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.EmptyStatement{}, nil
	case p.isKeyword("if"):
		return p.parseIfStatement(sc)
	case p.isKeyword("for"):
		return p.parseForStatement(sc)
	case p.isKeyword("while"):
		return p.parseWhileStatement(sc)
	case p.isKeyword("do"):
		return p.parseDoWhileStatement(sc)
	case p.isKeyword("return"):
		return p.parseReturnStatement(sc)
	case p.isKeyword("break"):
		return p.parseBreakStatement(sc)
	case p.isKeyword("continue"):
		return p.parseContinueStatement(sc)
	case p.isKeyword("throw"):
		return p.parseThrowStatement(sc)
	case p.isKeyword("try"):
		return p.parseTryStatement(sc)
	case p.isKeyword("switch"):
		return p.parseSwitchStatement(sc)
	case p.isKeyword("debugger"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.consumeSemicolon()
		return &ast.DebuggerStatement{}, nil
	case p.isKeyword("with"):
		if sc.strict {
			return nil, p.fail("'with' statements are not allowed in strict mode")
		}
		return p.parseWithStatement(sc)
	case p.isKeyword("import") && p.module:
		return p.parseImportDeclaration(sc)
	case p.isKeyword("export") && p.module:
		return p.parseExportDeclaration(sc)
	case p.cur.Kind == lexer.KindIdentifier && p.peekIsColon():
		return p.parseLabeledStatement(sc)
	default:
		return p.parseExpressionStatement(sc)
	}
}

func (p *Parser) peekIsFunction() bool {
	tok, err := p.peekAt(0)
	if err != nil {
		return false
	}
	return tok.Kind == lexer.KindIdentifier && tok.Raw == "function"
}

func (p *Parser) peekIsColon() bool {
	tok, err := p.peekAt(0)
	if err != nil {
		return false
	}
	return tok.Kind == lexer.KindPunctuator && tok.Raw == ":"
}

func (p *Parser) parseVariableStatement(sc *scope) (ast.Statement, error) {
	kindTok := p.cur.Raw
	var kind ast.VariableKind
	switch kindTok {
	case "var":
		kind = ast.VarVar
	case "let":
		kind = ast.VarLet
	case "const":
		kind = ast.VarConst
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var decls []*ast.VariableDeclarator
	for {
		target, err := p.parseBindingTarget(sc)
		if err != nil {
			return nil, err
		}
		if err := p.registerBinding(sc, kind, target); err != nil {
			return nil, err
		}
		var init ast.Expression
		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			init, err = p.parseAssignmentExpression(sc)
			if err != nil {
				return nil, err
			}
		} else if kind == ast.VarConst {
			return nil, p.fail("missing initializer in const declaration")
		}
		decls = append(decls, &ast.VariableDeclarator{Target: target, Init: init})
		if !p.isPunct(",") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	p.consumeSemicolon()
	return &ast.VariableDeclaration{Kind: kind, Declarations: decls}, nil
}

func (p *Parser) registerBinding(sc *scope, kind ast.VariableKind, target ast.Pattern) error {
	names := bindingNames(target)
	for _, name := range names {
		if err := p.checkBindingIdentifierName(sc, name); err != nil {
			return err
		}
		if kind == ast.VarVar {
			p.declareVar(sc, name)
		} else {
			if err := p.declareLexical(sc, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func bindingNames(p ast.Pattern) []string {
	switch t := p.(type) {
	case *ast.IdentifierPattern:
		return []string{t.Name}
	case *ast.ArrayPattern:
		var out []string
		for _, e := range t.Elements {
			if e != nil {
				out = append(out, bindingNames(e)...)
			}
		}
		if t.Rest != nil {
			out = append(out, bindingNames(t.Rest)...)
		}
		return out
	case *ast.ObjectPattern:
		var out []string
		for _, prop := range t.Properties {
			out = append(out, bindingNames(prop.Value)...)
		}
		if t.Rest != nil {
			out = append(out, bindingNames(t.Rest)...)
		}
		return out
	}
	return nil
}

// checkBindingIdentifierName enforces §4.6's strict-mode reserved
// binding-identifier list.
func (p *Parser) checkBindingIdentifierName(sc *scope, name string) error {
	if sc.strict && strictModeReservedWords[name] {
		return p.fail("%q is a reserved identifier in strict mode", name)
	}
	return nil
}

var strictModeReservedWords = map[string]bool{
	"implements": true, "interface": true, "package": true, "private": true,
	"protected": true, "public": true, "static": true, "let": true,
	"yield": true, "eval": true, "arguments": true,
}

func (p *Parser) parseBindingTarget(sc *scope) (ast.Pattern, error) {
	switch {
	case p.isPunct("["):
		return p.parseArrayBindingPattern(sc)
	case p.isPunct("{"):
		return p.parseObjectBindingPattern(sc)
	default:
		if p.cur.Kind != lexer.KindIdentifier && p.cur.Kind != lexer.KindKeyword {
			return nil, p.fail("expected binding identifier, got %q", p.cur.Raw)
		}
		name := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.IdentifierPattern{Name: name}, nil
	}
}

func (p *Parser) parseArrayBindingPattern(sc *scope) (ast.Pattern, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	pat := &ast.ArrayPattern{}
	for !p.isPunct("]") {
		if p.isPunct(",") {
			pat.Elements = append(pat.Elements, nil)
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.isPunct("...") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			rest, err := p.parseBindingTarget(sc)
			if err != nil {
				return nil, err
			}
			pat.Rest = rest
			break
		}
		el, err := p.parseBindingTargetWithDefault(sc)
		if err != nil {
			return nil, err
		}
		pat.Elements = append(pat.Elements, el)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *Parser) parseBindingTargetWithDefault(sc *scope) (ast.Pattern, error) {
	target, err := p.parseBindingTarget(sc)
	if err != nil {
		return nil, err
	}
	if p.isPunct("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		def, err := p.parseAssignmentExpression(sc)
		if err != nil {
			return nil, err
		}
		if idp, ok := target.(*ast.IdentifierPattern); ok {
			idp.Default = def
			return idp, nil
		}
	}
	return target, nil
}

func (p *Parser) parseObjectBindingPattern(sc *scope) (ast.Pattern, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	pat := &ast.ObjectPattern{}
	for !p.isPunct("}") {
		if p.isPunct("...") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			rest, err := p.parseBindingTarget(sc)
			if err != nil {
				return nil, err
			}
			pat.Rest = rest
			break
		}
		keyName := p.cur.Raw
		key := ast.Expression(&ast.StringLiteral{Value: keyName})
		if err := p.advance(); err != nil {
			return nil, err
		}
		var value ast.Pattern
		if p.isPunct(":") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			v, err := p.parseBindingTargetWithDefault(sc)
			if err != nil {
				return nil, err
			}
			value = v
		} else {
			value = &ast.IdentifierPattern{Name: keyName}
			if p.isPunct("=") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				def, err := p.parseAssignmentExpression(sc)
				if err != nil {
					return nil, err
				}
				value.(*ast.IdentifierPattern).Default = def
			}
		}
		pat.Properties = append(pat.Properties, &ast.ObjectPatternProperty{Key: key, Value: value})
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *Parser) parseBlockStatement(sc *scope) (*ast.BlockStatement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	inner := sc.clone()
	var body []ast.Statement
	for !p.isPunct("}") {
		if p.cur.Kind == lexer.KindEOF {
			return nil, p.fail("unexpected end of input, expected '}'")
		}
		stmt, err := p.parseStatementOrDeclaration(inner)
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.BlockStatement{Body: body}, nil
}

func (p *Parser) parseIfStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(sc)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	cons, err := p.parseStatementOrDeclaration(sc)
	if err != nil {
		return nil, err
	}
	var alt ast.Statement
	if p.isKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		alt, err = p.parseStatementOrDeclaration(sc)
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStatement{Test: test, Consequent: cons, Alternate: alt}, nil
}

func (p *Parser) parseWithStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	obj, err := p.parseExpression(sc)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatementOrDeclaration(sc)
	if err != nil {
		return nil, err
	}
	return &ast.WithStatement{Object: obj, Body: body}, nil
}

func (p *Parser) parseWhileStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(sc)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	inner := sc.clone()
	inner.inLoop = true
	body, err := p.parseStatementOrDeclaration(inner)
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Test: test, Body: body}, nil
}

func (p *Parser) parseDoWhileStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	inner := sc.clone()
	inner.inLoop = true
	body, err := p.parseStatementOrDeclaration(inner)
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("while") {
		return nil, p.fail("expected 'while' after do-statement body")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(sc)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.DoWhileStatement{Body: body, Test: test}, nil
}

// parseForStatement covers classic for(;;), for-in, and for-of,
// enforcing §4.6's for-in/for-of left-hand-side restrictions: the
// binding must not be `let` itself; for-of heads may not carry an
// initializer.
func (p *Parser) parseForStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	await := false
	if p.isKeyword("await") {
		await = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	inner := sc.clone()
	inner.inLoop = true

	var initNode ast.Node
	var declKind ast.VariableKind
	isDecl := false
	if p.isKeyword("var") || p.isKeyword("let") || p.isKeyword("const") {
		isDecl = true
		kindTok := p.cur.Raw
		switch kindTok {
		case "var":
			declKind = ast.VarVar
		case "let":
			declKind = ast.VarLet
		case "const":
			declKind = ast.VarConst
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.parseBindingTarget(inner)
		if err != nil {
			return nil, err
		}
		if p.isKeyword("in") || p.isContextual("of") {
			isOf := p.isContextual("of")
			if name, ok := target.(*ast.IdentifierPattern); ok && name.Name == "let" && declKind == ast.VarLet {
				return nil, p.fail("'let' is disallowed as a for-loop binding name")
			}
			if err := p.registerBinding(inner, declKind, target); err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAssignmentExpression(inner)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			body, err := p.parseStatementOrDeclaration(inner)
			if err != nil {
				return nil, err
			}
			kind := ast.ForIn
			if isOf {
				kind = ast.ForOf
			}
			decl := &ast.VariableDeclaration{Kind: declKind, Declarations: []*ast.VariableDeclarator{{Target: target}}}
			return &ast.ForInOfStatement{Kind: kind, Left: decl, Right: right, Body: body, Await: await}, nil
		}
		var init ast.Expression
		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			init, err = p.parseAssignmentExpression(inner)
			if err != nil {
				return nil, err
			}
		} else if declKind == ast.VarConst {
			return nil, p.fail("missing initializer in const declaration")
		}
		if err := p.registerBinding(inner, declKind, target); err != nil {
			return nil, err
		}
		decls := []*ast.VariableDeclarator{{Target: target, Init: init}}
		for p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			t, err := p.parseBindingTarget(inner)
			if err != nil {
				return nil, err
			}
			var di ast.Expression
			if p.isPunct("=") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				di, err = p.parseAssignmentExpression(inner)
				if err != nil {
					return nil, err
				}
			}
			if err := p.registerBinding(inner, declKind, t); err != nil {
				return nil, err
			}
			decls = append(decls, &ast.VariableDeclarator{Target: t, Init: di})
		}
		initNode = &ast.VariableDeclaration{Kind: declKind, Declarations: decls}
	} else if !p.isPunct(";") {
		expr, err := p.parseExpressionNoIn(inner)
		if err != nil {
			return nil, err
		}
		if p.isKeyword("in") || p.isContextual("of") {
			isOf := p.isContextual("of")
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAssignmentExpression(inner)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			body, err := p.parseStatementOrDeclaration(inner)
			if err != nil {
				return nil, err
			}
			kind := ast.ForIn
			if isOf {
				kind = ast.ForOf
			}
			var left ast.Node = expr
			if pat := toPattern(expr); pat != nil {
				left = pat
			}
			return &ast.ForInOfStatement{Kind: kind, Left: left, Right: right, Body: body, Await: await}, nil
		}
		initNode = expr
	}
	_ = isDecl
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var test ast.Expression
	if !p.isPunct(";") {
		t, err := p.parseExpression(inner)
		if err != nil {
			return nil, err
		}
		test = t
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var update ast.Expression
	if !p.isPunct(")") {
		u, err := p.parseExpression(inner)
		if err != nil {
			return nil, err
		}
		update = u
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatementOrDeclaration(inner)
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Init: initNode, Test: test, Update: update, Body: body}, nil
}

// toPattern degrades a for-in/of left-hand expression (already parsed
// as an Expression) into an assignment target Pattern. Only an
// Identifier is converted; any other expression, a member expression
// included, yields nil, and the caller then keeps the expression itself
// as the statement's Left.
func toPattern(e ast.Expression) ast.Pattern {
	if id, ok := e.(*ast.Identifier); ok {
		return &ast.IdentifierPattern{Name: id.Name}
	}
	return nil
}

func (p *Parser) parseReturnStatement(sc *scope) (ast.Statement, error) {
	if !sc.allowReturn {
		return nil, p.fail("'return' outside of function")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var arg ast.Expression
	if !p.isPunct(";") && !p.isPunct("}") && p.cur.Kind != lexer.KindEOF && !p.cur.PrecededByLineTerminator {
		a, err := p.parseExpression(sc)
		if err != nil {
			return nil, err
		}
		arg = a
	}
	p.consumeSemicolon()
	return &ast.ReturnStatement{Argument: arg}, nil
}

func (p *Parser) parseBreakStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	label := ""
	if p.cur.Kind == lexer.KindIdentifier && !p.cur.PrecededByLineTerminator {
		label = p.cur.Raw
		if !sc.labels[label] {
			return nil, p.fail("undefined label %q", label)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if !sc.inLoop && !sc.inSwitch {
		return nil, p.fail("illegal break statement")
	}
	p.consumeSemicolon()
	return &ast.BreakStatement{Label: label}, nil
}

func (p *Parser) parseContinueStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	label := ""
	if p.cur.Kind == lexer.KindIdentifier && !p.cur.PrecededByLineTerminator {
		label = p.cur.Raw
		if !sc.labels[label] {
			return nil, p.fail("undefined label %q", label)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if !sc.inLoop {
		return nil, p.fail("illegal continue statement")
	}
	p.consumeSemicolon()
	return &ast.ContinueStatement{Label: label}, nil
}

func (p *Parser) parseThrowStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.PrecededByLineTerminator {
		return nil, p.fail("illegal newline after 'throw'")
	}
	arg, err := p.parseExpression(sc)
	if err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.ThrowStatement{Argument: arg}, nil
}

func (p *Parser) parseTryStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	block, err := p.parseBlockStatement(sc)
	if err != nil {
		return nil, err
	}
	var handler *ast.CatchClause
	if p.isKeyword("catch") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var param ast.Pattern
		catchScope := sc.clone()
		if p.isPunct("(") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			param, err = p.parseBindingTarget(catchScope)
			if err != nil {
				return nil, err
			}
			if err := p.registerBinding(catchScope, ast.VarLet, param); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		body, err := p.parseBlockStatement(catchScope)
		if err != nil {
			return nil, err
		}
		handler = &ast.CatchClause{Param: param, Body: body}
	}
	var finallyBlock *ast.BlockStatement
	if p.isKeyword("finally") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		finallyBlock, err = p.parseBlockStatement(sc)
		if err != nil {
			return nil, err
		}
	}
	if handler == nil && finallyBlock == nil {
		return nil, p.fail("missing catch or finally after try")
	}
	return &ast.TryStatement{Block: block, Handler: handler, Finally: finallyBlock}, nil
}

func (p *Parser) parseSwitchStatement(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	disc, err := p.parseExpression(sc)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	inner := sc.clone()
	inner.inSwitch = true
	seenDefault := false
	var cases []*ast.SwitchCase
	for !p.isPunct("}") {
		var test ast.Expression
		if p.isKeyword("case") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			test, err = p.parseExpression(inner)
			if err != nil {
				return nil, err
			}
		} else if p.isKeyword("default") {
			if seenDefault {
				return nil, p.fail("more than one default clause in switch statement")
			}
			seenDefault = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			return nil, p.fail("expected 'case' or 'default'")
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		var body []ast.Statement
		for !p.isKeyword("case") && !p.isKeyword("default") && !p.isPunct("}") {
			stmt, err := p.parseStatementOrDeclaration(inner)
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
		}
		cases = append(cases, &ast.SwitchCase{Test: test, Body: body})
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.SwitchStatement{Discriminant: disc, Cases: cases}, nil
}

func (p *Parser) parseLabeledStatement(sc *scope) (ast.Statement, error) {
	label := p.cur.Raw
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil { // consume ':'
		return nil, err
	}
	inner := sc.clone()
	inner.labels[label] = true
	if p.isKeyword("function") {
		return nil, p.fail("labelled function declarations are not allowed")
	}
	body, err := p.parseStatementOrDeclaration(inner)
	if err != nil {
		return nil, err
	}
	return &ast.LabeledStatement{Label: label, Body: body}, nil
}

func (p *Parser) parseExpressionStatement(sc *scope) (ast.Statement, error) {
	if p.cur.Kind == lexer.KindStringLiteral {
		directiveTok := p.cur
		val := directiveTok.StringValue
		expr, err := p.parseExpression(sc)
		if err != nil {
			return nil, err
		}
		p.consumeSemicolon()
		directive := ""
		if _, ok := expr.(*ast.StringLiteral); ok {
			directive = val
		}
		return &ast.ExpressionStatement{Expression: expr, Directive: directive}, nil
	}
	expr, err := p.parseExpression(sc)
	if err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return &ast.ExpressionStatement{Expression: expr}, nil
}

// consumeSemicolon consumes an explicit ';' if one is next. Otherwise it
// consumes nothing and reports no error, whatever token follows: it
// does not check for a '}', a line terminator or EOF, so a missing
// semicolon is accepted even where automatic semicolon insertion would
// not apply.
func (p *Parser) consumeSemicolon() {
	if p.isPunct(";") {
		p.advance()
		return
	}
}

func (p *Parser) parseFunctionDeclaration(sc *scope) (ast.Statement, error) {
	fn, name, err := p.parseFunctionLike(sc, true)
	if err != nil {
		return nil, err
	}
	if name != nil {
		p.declareVar(sc, name.Name)
	}
	return &ast.FunctionDeclaration{Name: name, Fn: fn}, nil
}

func (p *Parser) parseClassDeclaration(sc *scope) (ast.Statement, error) {
	cls, name, err := p.parseClassLike(sc)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if err := p.declareLexical(sc, name.Name); err != nil {
			return nil, err
		}
	}
	return &ast.ClassDeclaration{Name: name, Class: cls}, nil
}
