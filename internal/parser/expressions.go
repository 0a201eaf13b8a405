package parser

import (
	"github.com/quartzjs/quartz/internal/ast"
	"github.com/quartzjs/quartz/internal/lexer"
)

// parseExpression parses a (possibly comma-joined) Expression,
// allowing `in` in relational position per the ambient scope.allowIn.
func (p *Parser) parseExpression(sc *scope) (ast.Expression, error) {
	first, err := p.parseAssignmentExpression(sc)
	if err != nil {
		return nil, err
	}
	if !p.isPunct(",") {
		return first, nil
	}
	exprs := []ast.Expression{first}
	for p.isPunct(",") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseAssignmentExpression(sc)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	return &ast.SequenceExpression{Expressions: exprs}, nil
}

// parseExpressionNoIn parses an Expression with allowIn suppressed, for
// the head of a classic for(;;) loop where `in` would otherwise be
// ambiguous with for-in.
func (p *Parser) parseExpressionNoIn(sc *scope) (ast.Expression, error) {
	inner := sc.clone()
	inner.allowIn = false
	return p.parseExpression(inner)
}

var assignmentOperators = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "<<=": true, ">>=": true, ">>>=": true, "&=": true, "|=": true,
	"^=": true, "&&=": true, "||=": true, "??=": true,
}

func (p *Parser) parseAssignmentExpression(sc *scope) (ast.Expression, error) {
	if sc.allowYield && p.isKeyword("yield") {
		return p.parseYieldExpression(sc)
	}
	if arrow, ok, err := p.tryParseArrowFunction(sc); err != nil {
		return nil, err
	} else if ok {
		return arrow, nil
	}

	left, err := p.parseConditionalExpression(sc)
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == lexer.KindPunctuator && assignmentOperators[p.cur.Raw] {
		op := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAssignmentExpression(sc)
		if err != nil {
			return nil, err
		}
		return &ast.AssignmentExpression{Operator: op, Target: left, Value: right}, nil
	}
	return left, nil
}

func (p *Parser) parseYieldExpression(sc *scope) (ast.Expression, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	delegate := false
	if p.isPunct("*") {
		delegate = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	var arg ast.Expression
	if !p.cur.PrecededByLineTerminator && !p.isPunct(")") && !p.isPunct(";") && !p.isPunct("]") &&
		!p.isPunct("}") && !p.isPunct(",") && !p.isPunct(":") && p.cur.Kind != lexer.KindEOF {
		a, err := p.parseAssignmentExpression(sc)
		if err != nil {
			return nil, err
		}
		arg = a
	}
	return &ast.YieldExpression{Argument: arg, Delegate: delegate}, nil
}

// tryParseArrowFunction speculatively scans ahead for `(params) =>` or
// `ident =>`; on mismatch it leaves the parser position untouched by
// never having consumed tokens destructively (peekAt is pure look-ahead)
// except for the single-identifier case, which is cheap to unwind by
// simply dispatching before any consumption happens.
func (p *Parser) tryParseArrowFunction(sc *scope) (ast.Expression, bool, error) {
	isAsync := false
	startIdx := 0
	if p.isKeyword("async") {
		tok, err := p.peekAt(0)
		if err == nil && !tok.PrecededByLineTerminator && (tok.Kind == lexer.KindIdentifier || (tok.Kind == lexer.KindPunctuator && tok.Raw == "(")) {
			isAsync = true
			startIdx = 1
		}
	}
	if p.cur.Kind == lexer.KindIdentifier && !isAsync {
		tok, err := p.peekAt(0)
		if err == nil && tok.Kind == lexer.KindPunctuator && tok.Raw == "=>" {
			name := p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, false, err
			}
			return p.finishArrowFunction(sc, []ast.Pattern{&ast.IdentifierPattern{Name: name}}, false)
		}
		return nil, false, nil
	}
	openParen := p.cur
	if isAsync {
		t, err := p.peekAt(0)
		if err != nil || t.Raw != "(" {
			return nil, false, nil
		}
	}
	if !(openParen.Kind == lexer.KindPunctuator && openParen.Raw == "(") && !isAsync {
		return nil, false, nil
	}
	if isAsync && !(openParen.Kind == lexer.KindKeyword && openParen.Raw == "async") {
		return nil, false, nil
	}
	if !p.scanAheadLooksLikeArrowParams(startIdx) {
		return nil, false, nil
	}
	if isAsync {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
	}
	params, err := p.parseFormalParameters(sc)
	if err != nil {
		return nil, false, err
	}
	if !p.isPunct("=>") {
		return nil, false, nil
	}
	return p.finishArrowFunction(sc, params, isAsync)
}

// scanAheadLooksLikeArrowParams walks the peek ring from the opening
// '(' (at relative peek position startIdx, or p.cur itself when
// startIdx is 0) to its matching ')' and checks the following token is
// '=>', without consuming anything.
func (p *Parser) scanAheadLooksLikeArrowParams(startIdx int) bool {
	tokenAt := func(i int) (lexer.Token, bool) {
		if i == 0 {
			return p.cur, true
		}
		tok, err := p.peekAt(i - 1)
		return tok, err == nil
	}

	depth := 0
	for i := startIdx; i < startIdx+2000; i++ {
		tok, ok := tokenAt(i)
		if !ok || tok.Kind == lexer.KindEOF {
			return false
		}
		if tok.Kind == lexer.KindPunctuator {
			switch tok.Raw {
			case "(":
				depth++
			case ")":
				depth--
				if depth == 0 {
					next, ok := tokenAt(i + 1)
					return ok && next.Kind == lexer.KindPunctuator && next.Raw == "=>"
				}
			}
		}
	}
	return false
}

func (p *Parser) finishArrowFunction(sc *scope, params []ast.Pattern, isAsync bool) (ast.Expression, bool, error) {
	inner := newScope()
	inner.strict = sc.strict
	inner.allowAwait = isAsync
	inner.allowReturn = true
	inner.allowIn = true
	if err := p.expectPunct("=>"); err != nil {
		return nil, false, err
	}
	fn := &ast.FunctionExpression{Params: params, Kind: ast.FunctionArrow, Strict: sc.strict}
	if isAsync {
		fn.Kind = ast.FunctionAsync
	}
	if p.isPunct("{") {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		body, strict, err := p.parseStatementListAndDirectives(inner, func() bool { return p.isPunct("}") })
		if err != nil {
			return nil, false, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, false, err
		}
		fn.Body = body
		fn.Strict = strict
	} else {
		expr, err := p.parseAssignmentExpression(inner)
		if err != nil {
			return nil, false, err
		}
		fn.ExprBody = expr
	}
	return fn, true, nil
}

func (p *Parser) parseFormalParameters(sc *scope) ([]ast.Pattern, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var params []ast.Pattern
	for !p.isPunct(")") {
		if p.isPunct("...") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			rest, err := p.parseBindingTarget(sc)
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.ArrayPattern{Rest: rest})
			break
		}
		param, err := p.parseBindingTargetWithDefault(sc)
		if err != nil {
			return nil, err
		}
		for _, n := range bindingNames(param) {
			if seen[n] {
				return nil, p.fail("duplicate parameter name %q", n)
			}
			seen[n] = true
		}
		params = append(params, param)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseConditionalExpression(sc *scope) (ast.Expression, error) {
	test, err := p.parseNullishExpression(sc)
	if err != nil {
		return nil, err
	}
	if !p.isPunct("?") {
		return test, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	inner := sc.clone()
	inner.allowIn = true
	cons, err := p.parseAssignmentExpression(inner)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	alt, err := p.parseAssignmentExpression(sc)
	if err != nil {
		return nil, err
	}
	return &ast.ConditionalExpression{Test: test, Consequent: cons, Alternate: alt}, nil
}

func (p *Parser) parseNullishExpression(sc *scope) (ast.Expression, error) {
	left, err := p.parseLogicalOr(sc)
	if err != nil {
		return nil, err
	}
	for p.isPunct("??") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseLogicalOr(sc)
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpression{Operator: "??", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalOr(sc *scope) (ast.Expression, error) {
	left, err := p.parseLogicalAnd(sc)
	if err != nil {
		return nil, err
	}
	for p.isPunct("||") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseLogicalAnd(sc)
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpression{Operator: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd(sc *scope) (ast.Expression, error) {
	left, err := p.parseBitwiseOr(sc)
	if err != nil {
		return nil, err
	}
	for p.isPunct("&&") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBitwiseOr(sc)
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpression{Operator: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) binaryLevel(sc *scope, ops []string, next func(*scope) (ast.Expression, error)) (ast.Expression, error) {
	left, err := next(sc)
	if err != nil {
		return nil, err
	}
	for {
		matched := ""
		if p.cur.Kind == lexer.KindPunctuator {
			for _, op := range ops {
				if p.cur.Raw == op {
					matched = op
					break
				}
			}
		} else if p.cur.Kind == lexer.KindKeyword {
			for _, op := range ops {
				if p.cur.Raw == op {
					if op == "in" && !sc.allowIn {
						continue
					}
					matched = op
					break
				}
			}
		}
		if matched == "" {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next(sc)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Operator: matched, Left: left, Right: right}
	}
}

func (p *Parser) parseBitwiseOr(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"|"}, p.parseBitwiseXor)
}
func (p *Parser) parseBitwiseXor(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"^"}, p.parseBitwiseAnd)
}
func (p *Parser) parseBitwiseAnd(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"&"}, p.parseEquality)
}
func (p *Parser) parseEquality(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"==", "!=", "===", "!=="}, p.parseRelational)
}
func (p *Parser) parseRelational(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"<", ">", "<=", ">=", "instanceof", "in"}, p.parseShift)
}
func (p *Parser) parseShift(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"<<", ">>", ">>>"}, p.parseAdditive)
}
func (p *Parser) parseAdditive(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"+", "-"}, p.parseMultiplicative)
}
func (p *Parser) parseMultiplicative(sc *scope) (ast.Expression, error) {
	return p.binaryLevel(sc, []string{"*", "/", "%"}, p.parseExponentiation)
}

// parseExponentiation is right-associative, per §4.6's `**` grammar.
func (p *Parser) parseExponentiation(sc *scope) (ast.Expression, error) {
	left, err := p.parseUnaryExpression(sc)
	if err != nil {
		return nil, err
	}
	if p.isPunct("**") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExponentiation(sc)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpression{Operator: "**", Left: left, Right: right}, nil
	}
	return left, nil
}

var unaryOperators = map[string]bool{
	"+": true, "-": true, "~": true, "!": true,
}

func (p *Parser) parseUnaryExpression(sc *scope) (ast.Expression, error) {
	if sc.allowAwait && p.isKeyword("await") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnaryExpression(sc)
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Argument: arg}, nil
	}
	if p.isKeyword("delete") || p.isKeyword("void") || p.isKeyword("typeof") {
		op := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnaryExpression(sc)
		if err != nil {
			return nil, err
		}
		if op == "delete" && sc.strict {
			if _, ok := arg.(*ast.Identifier); ok {
				return nil, p.fail("'delete' of an unqualified identifier is forbidden in strict mode")
			}
		}
		return &ast.UnaryExpression{Operator: op, Argument: arg, Prefix: true}, nil
	}
	if p.cur.Kind == lexer.KindPunctuator && unaryOperators[p.cur.Raw] {
		op := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnaryExpression(sc)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Operator: op, Argument: arg, Prefix: true}, nil
	}
	if p.isPunct("++") || p.isPunct("--") {
		op := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnaryExpression(sc)
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Operator: op, Argument: arg, Prefix: true}, nil
	}
	return p.parsePostfixExpression(sc)
}

func (p *Parser) parsePostfixExpression(sc *scope) (ast.Expression, error) {
	expr, err := p.parseLeftHandSideExpression(sc)
	if err != nil {
		return nil, err
	}
	if (p.isPunct("++") || p.isPunct("--")) && !p.cur.PrecededByLineTerminator {
		op := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Operator: op, Argument: expr, Prefix: false}, nil
	}
	return expr, nil
}

func (p *Parser) parseLeftHandSideExpression(sc *scope) (ast.Expression, error) {
	var expr ast.Expression
	var err error
	if p.isKeyword("new") {
		expr, err = p.parseNewExpression(sc)
	} else {
		expr, err = p.parsePrimaryExpression(sc)
	}
	if err != nil {
		return nil, err
	}
	return p.parseCallTail(sc, expr)
}

func (p *Parser) parseNewExpression(sc *scope) (ast.Expression, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.isPunct(".") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Raw != "target" {
			return nil, p.fail("expected 'target' after 'new.'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NewTargetExpression{}, nil
	}
	var callee ast.Expression
	var err error
	if p.isKeyword("new") {
		callee, err = p.parseNewExpression(sc)
	} else {
		callee, err = p.parsePrimaryExpression(sc)
	}
	if err != nil {
		return nil, err
	}
	callee, err = p.parseMemberTail(sc, callee)
	if err != nil {
		return nil, err
	}
	var args []ast.Expression
	if p.isPunct("(") {
		args, err = p.parseArguments(sc)
		if err != nil {
			return nil, err
		}
	}
	return &ast.NewExpression{Callee: callee, Args: args}, nil
}

func (p *Parser) parseMemberTail(sc *scope, expr ast.Expression) (ast.Expression, error) {
	for {
		switch {
		case p.isPunct("."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			name := p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: name}}
		case p.isPunct("["):
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop, err := p.parseExpression(sc)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: prop, Computed: true}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallTail(sc *scope, expr ast.Expression) (ast.Expression, error) {
	for {
		switch {
		case p.isPunct("."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			name := p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: name}}
		case p.isPunct("?."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.isPunct("(") {
				args, err := p.parseArguments(sc)
				if err != nil {
					return nil, err
				}
				expr = &ast.CallExpression{Callee: expr, Args: args, Optional: true}
				continue
			}
			computed := false
			if p.isPunct("[") {
				computed = true
				if err := p.advance(); err != nil {
					return nil, err
				}
				prop, err := p.parseExpression(sc)
				if err != nil {
					return nil, err
				}
				if err := p.expectPunct("]"); err != nil {
					return nil, err
				}
				expr = &ast.MemberExpression{Object: expr, Property: prop, Computed: computed, Optional: true}
				continue
			}
			name := p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: name}, Optional: true}
		case p.isPunct("["):
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop, err := p.parseExpression(sc)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: prop, Computed: true}
		case p.isPunct("("):
			args, err := p.parseArguments(sc)
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpression{Callee: expr, Args: args}
		case p.cur.Kind == lexer.KindNoSubstitutionTemplate || p.cur.Kind == lexer.KindTemplateStart:
			tmpl, err := p.parseTemplateLiteral(sc)
			if err != nil {
				return nil, err
			}
			tmpl.Tagged = true
			expr = &ast.TaggedTemplateExpression{Tag: expr, Template: tmpl}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArguments(sc *scope) ([]ast.Expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.isPunct(")") {
		if p.isPunct("...") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseAssignmentExpression(sc)
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.SpreadElement{Argument: arg})
		} else {
			arg, err := p.parseAssignmentExpression(sc)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimaryExpression(sc *scope) (ast.Expression, error) {
	switch {
	case p.isKeyword("this"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ThisExpression{}, nil
	case p.isKeyword("super"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.SuperExpression{}, nil
	case p.isKeyword("null"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullLiteral{}, nil
	case p.isKeyword("true"), p.isKeyword("false"):
		v := p.cur.Raw == "true"
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BooleanLiteral{Value: v}, nil
	case p.isKeyword("function"):
		fn, _, err := p.parseFunctionLike(sc, false)
		return fn, err
	case p.isKeyword("class"):
		cls, _, err := p.parseClassLike(sc)
		return cls, err
	case p.isKeyword("async") && p.peekIsFunction():
		fn, _, err := p.parseFunctionLike(sc, false)
		return fn, err
	case p.cur.Kind == lexer.KindNumericLiteral:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if tok.IsBigInt {
			return &ast.BigIntLiteral{Digits: tok.StringValue}, nil
		}
		return &ast.NumericLiteral{Value: tok.NumericValue}, nil
	case p.cur.Kind == lexer.KindStringLiteral:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLiteral{Value: tok.StringValue}, nil
	case p.cur.Kind == lexer.KindNoSubstitutionTemplate || p.cur.Kind == lexer.KindTemplateStart:
		return p.parseTemplateLiteral(sc)
	case p.cur.Kind == lexer.KindRegExpLiteral:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.RegExpLiteral{Pattern: tok.Raw, Flags: tok.StringValue}, nil
	case p.cur.Kind == lexer.KindPrivateIdentifier:
		name := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.PrivateIdentifier{Name: name}, nil
	case p.isPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner := sc.clone()
		inner.allowIn = true
		expr, err := p.parseExpression(inner)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return expr, nil
	case p.isPunct("["):
		return p.parseArrayLiteral(sc)
	case p.isPunct("{"):
		return p.parseObjectLiteral(sc)
	case p.cur.Kind == lexer.KindIdentifier, p.cur.Kind == lexer.KindKeyword:
		name := p.cur.Raw
		if sc.strict && strictModeReservedWords[name] && p.cur.Kind == lexer.KindIdentifier {
			return nil, p.fail("%q is a reserved identifier in strict mode", name)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Identifier{Name: name}, nil
	default:
		return nil, p.fail("unexpected token %q", p.cur.Raw)
	}
}

func (p *Parser) parseArrayLiteral(sc *scope) (ast.Expression, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	lit := &ast.ArrayLiteral{}
	for !p.isPunct("]") {
		if p.isPunct(",") {
			lit.Elements = append(lit.Elements, nil)
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.isPunct("...") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseAssignmentExpression(sc)
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, &ast.SpreadElement{Argument: arg})
		} else {
			el, err := p.parseAssignmentExpression(sc)
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, el)
		}
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
	return lit, nil
}

func (p *Parser) parseObjectLiteral(sc *scope) (ast.Expression, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	lit := &ast.ObjectLiteral{}
	for !p.isPunct("}") {
		prop, err := p.parseObjectProperty(sc)
		if err != nil {
			return nil, err
		}
		lit.Properties = append(lit.Properties, prop)
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
	return lit, nil
}

func (p *Parser) parseObjectProperty(sc *scope) (*ast.Property, error) {
	if p.isPunct("...") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseAssignmentExpression(sc)
		if err != nil {
			return nil, err
		}
		return &ast.Property{Kind: ast.PropertySpread, Value: arg}, nil
	}
	isGetter := p.isContextual("get") && !p.peekIsPropertyDelimiter()
	isSetter := p.isContextual("set") && !p.peekIsPropertyDelimiter()
	isAsync := p.isKeyword("async") && !p.peekIsPropertyDelimiter()
	isGenerator := false
	if isGetter || isSetter || isAsync {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.isPunct("*") {
		isGenerator = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	key, computed, err := p.parsePropertyKey(sc)
	if err != nil {
		return nil, err
	}
	switch {
	case isGetter:
		fn, err := p.parseMethodBody(sc, false, false)
		if err != nil {
			return nil, err
		}
		return &ast.Property{Kind: ast.PropertyGet, Key: key, Computed: computed, Value: fn}, nil
	case isSetter:
		fn, err := p.parseMethodBody(sc, false, false)
		if err != nil {
			return nil, err
		}
		return &ast.Property{Kind: ast.PropertySet, Key: key, Computed: computed, Value: fn}, nil
	case p.isPunct("("):
		fn, err := p.parseMethodBody(sc, isGenerator, isAsync)
		if err != nil {
			return nil, err
		}
		return &ast.Property{Kind: ast.PropertyMethod, Key: key, Computed: computed, Value: fn}, nil
	case p.isPunct(":"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.parseAssignmentExpression(sc)
		if err != nil {
			return nil, err
		}
		return &ast.Property{Kind: ast.PropertyInit, Key: key, Computed: computed, Value: val}, nil
	default:
		ident, ok := key.(*ast.Identifier)
		if !ok {
			return nil, p.fail("invalid shorthand property")
		}
		var val ast.Expression = ident
		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			def, err := p.parseAssignmentExpression(sc)
			if err != nil {
				return nil, err
			}
			val = &ast.AssignmentExpression{Operator: "=", Target: ident, Value: def}
		}
		return &ast.Property{Kind: ast.PropertyInit, Key: key, Value: val, Shorthand: true}, nil
	}
}

func (p *Parser) peekIsPropertyDelimiter() bool {
	tok, err := p.peekAt(0)
	if err != nil {
		return false
	}
	return tok.Kind == lexer.KindPunctuator && (tok.Raw == ":" || tok.Raw == "," || tok.Raw == "}" || tok.Raw == "(" || tok.Raw == "=")
}

func (p *Parser) parsePropertyKey(sc *scope) (ast.Expression, bool, error) {
	if p.isPunct("[") {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		expr, err := p.parseAssignmentExpression(sc)
		if err != nil {
			return nil, false, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, false, err
		}
		return expr, true, nil
	}
	switch {
	case p.cur.Kind == lexer.KindStringLiteral:
		v := p.cur.StringValue
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		return &ast.StringLiteral{Value: v}, false, nil
	case p.cur.Kind == lexer.KindNumericLiteral:
		v := p.cur.NumericValue
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		return &ast.NumericLiteral{Value: v}, false, nil
	default:
		name := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		return &ast.Identifier{Name: name}, false, nil
	}
}

func (p *Parser) parseMethodBody(sc *scope, generator, async bool) (*ast.FunctionExpression, error) {
	inner := newScope()
	inner.strict = sc.strict
	inner.allowYield = generator
	inner.allowAwait = async
	inner.allowReturn = true
	inner.allowIn = true
	params, err := p.parseFormalParameters(inner)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	body, strict, err := p.parseStatementListAndDirectives(inner, func() bool { return p.isPunct("}") })
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	kind := ast.FunctionNormal
	switch {
	case generator && async:
		kind = ast.FunctionAsyncGenerator
	case generator:
		kind = ast.FunctionGenerator
	case async:
		kind = ast.FunctionAsync
	}
	return &ast.FunctionExpression{Params: params, Body: body, Kind: kind, Strict: strict}, nil
}

func (p *Parser) parseTemplateLiteral(sc *scope) (*ast.TemplateLiteral, error) {
	lit := &ast.TemplateLiteral{}
	tok := p.cur
	lit.Quasis = append(lit.Quasis, tok.StringValue)
	if tok.Kind == lexer.KindNoSubstitutionTemplate {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lit, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for {
		expr, err := p.parseExpression(sc)
		if err != nil {
			return nil, err
		}
		lit.Expressions = append(lit.Expressions, expr)
		if p.cur.Kind != lexer.KindTemplateMiddle && p.cur.Kind != lexer.KindTemplateTail {
			return nil, p.fail("expected template continuation")
		}
		lit.Quasis = append(lit.Quasis, p.cur.StringValue)
		isTail := p.cur.Kind == lexer.KindTemplateTail
		if err := p.advance(); err != nil {
			return nil, err
		}
		if isTail {
			break
		}
	}
	return lit, nil
}

// parseFunctionLike parses a FunctionDeclaration or FunctionExpression
// body (the `function` keyword has not yet been consumed).
func (p *Parser) parseFunctionLike(sc *scope, isDeclaration bool) (*ast.FunctionExpression, *ast.Identifier, error) {
	isAsync := false
	if p.isKeyword("async") {
		isAsync = true
		if err := p.advance(); err != nil {
			return nil, nil, err
		}
	}
	if err := p.advance(); err != nil { // consume 'function'
		return nil, nil, err
	}
	isGenerator := false
	if p.isPunct("*") {
		isGenerator = true
		if err := p.advance(); err != nil {
			return nil, nil, err
		}
	}
	var name *ast.Identifier
	if p.cur.Kind == lexer.KindIdentifier || (p.cur.Kind == lexer.KindKeyword && !p.isPunct("(")) {
		if !p.isPunct("(") {
			n := p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			name = &ast.Identifier{Name: n}
		}
	}
	if name == nil && isDeclaration && !p.allowDefaultHere(sc) {
		return nil, nil, p.fail("function declaration requires a name")
	}
	fn, err := p.parseMethodBody(sc, isGenerator, isAsync)
	if err != nil {
		return nil, nil, err
	}
	fn.Name = name
	return fn, name, nil
}

func (p *Parser) allowDefaultHere(sc *scope) bool { return sc.allowDefault }

func (p *Parser) parseClassLike(sc *scope) (*ast.ClassExpression, *ast.Identifier, error) {
	if err := p.advance(); err != nil { // consume 'class'
		return nil, nil, err
	}
	var name *ast.Identifier
	if p.cur.Kind == lexer.KindIdentifier {
		n := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, nil, err
		}
		name = &ast.Identifier{Name: n}
	}
	cls := &ast.ClassExpression{Name: name}
	classScope := sc.clone()
	classScope.strict = true
	if p.isKeyword("extends") {
		if err := p.advance(); err != nil {
			return nil, nil, err
		}
		super, err := p.parseLeftHandSideExpression(classScope)
		if err != nil {
			return nil, nil, err
		}
		cls.SuperClass = super
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, nil, err
	}
	for !p.isPunct("}") {
		if p.isPunct(";") {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			continue
		}
		member, err := p.parseClassMember(classScope)
		if err != nil {
			return nil, nil, err
		}
		cls.Members = append(cls.Members, member)
	}
	if err := p.advance(); err != nil {
		return nil, nil, err
	}
	return cls, name, nil
}

func (p *Parser) parseClassMember(sc *scope) (*ast.ClassMember, error) {
	static := false
	if p.isKeyword("static") && !p.peekIsPropertyDelimiter() {
		static = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	isGetter := p.isContextual("get") && !p.peekIsPropertyDelimiter()
	isSetter := p.isContextual("set") && !p.peekIsPropertyDelimiter()
	isAsync := p.isKeyword("async") && !p.peekIsPropertyDelimiter()
	isGenerator := false
	if isGetter || isSetter || isAsync {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.isPunct("*") {
		isGenerator = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	key, computed, err := p.parsePropertyKey(sc)
	if err != nil {
		return nil, err
	}
	member := &ast.ClassMember{Key: key, Computed: computed, Static: static}
	switch {
	case isGetter:
		fn, err := p.parseMethodBody(sc, false, false)
		if err != nil {
			return nil, err
		}
		member.Kind = ast.PropertyGet
		member.Value = fn
	case isSetter:
		fn, err := p.parseMethodBody(sc, false, false)
		if err != nil {
			return nil, err
		}
		member.Kind = ast.PropertySet
		member.Value = fn
	case p.isPunct("("):
		fn, err := p.parseMethodBody(sc, isGenerator, isAsync)
		if err != nil {
			return nil, err
		}
		member.Kind = ast.PropertyMethod
		member.Value = fn
	default:
		member.Kind = ast.PropertyInit
		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			init, err := p.parseAssignmentExpression(sc)
			if err != nil {
				return nil, err
			}
			member.FieldInit = init
		}
		p.consumeSemicolon()
	}
	return member, nil
}

// --- module declarations ---

func (p *Parser) parseImportDeclaration(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	decl := &ast.ImportDeclaration{}
	if p.cur.Kind == lexer.KindStringLiteral {
		decl.Source = p.cur.StringValue
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.consumeSemicolon()
		return decl, nil
	}
	if p.cur.Kind == lexer.KindIdentifier {
		local := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{Local: local, Default: true})
		if err := p.declareLexical(sc, local); err != nil {
			return nil, err
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if p.isPunct("*") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Raw != "as" {
			return nil, p.fail("expected 'as' after 'import *'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		local := p.cur.Raw
		if err := p.advance(); err != nil {
			return nil, err
		}
		decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{Local: local, Namespace: true})
		if err := p.declareLexical(sc, local); err != nil {
			return nil, err
		}
	} else if p.isPunct("{") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for !p.isPunct("}") {
			imported := p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, err
			}
			local := imported
			if p.cur.Raw == "as" {
				if err := p.advance(); err != nil {
					return nil, err
				}
				local = p.cur.Raw
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{Imported: imported, Local: local})
			if err := p.declareLexical(sc, local); err != nil {
				return nil, err
			}
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
	}
	if p.cur.Raw != "from" {
		return nil, p.fail("expected 'from' in import declaration")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	decl.Source = p.cur.StringValue
	if err := p.advance(); err != nil {
		return nil, err
	}
	p.consumeSemicolon()
	return decl, nil
}

func (p *Parser) parseExportDeclaration(sc *scope) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.isKeyword("default") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var decl ast.Node
		var err error
		switch {
		case p.isKeyword("function"), p.isKeyword("async"):
			fn, name, ferr := p.parseFunctionLike(sc, true)
			err = ferr
			if name != nil {
				p.declareVar(sc, name.Name)
			}
			decl = &ast.FunctionDeclaration{Name: name, Fn: fn}
		case p.isKeyword("class"):
			cls, name, cerr := p.parseClassLike(sc)
			err = cerr
			if name != nil {
				p.declareLexical(sc, name.Name)
			}
			decl = &ast.ClassDeclaration{Name: name, Class: cls}
		default:
			expr, eerr := p.parseAssignmentExpression(sc)
			err = eerr
			p.consumeSemicolon()
			decl = expr
		}
		if err != nil {
			return nil, err
		}
		return &ast.ExportDefaultDeclaration{Declaration: decl}, nil
	}
	if p.isPunct("*") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		exported := ""
		if p.cur.Raw == "as" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			exported = p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.Raw != "from" {
			return nil, p.fail("expected 'from' in re-export")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		source := p.cur.StringValue
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.consumeSemicolon()
		return &ast.ExportAllDeclaration{Exported: exported, Source: source}, nil
	}
	if p.isPunct("{") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var specs []*ast.ExportSpecifier
		for !p.isPunct("}") {
			local := p.cur.Raw
			if err := p.advance(); err != nil {
				return nil, err
			}
			exported := local
			if p.cur.Raw == "as" {
				if err := p.advance(); err != nil {
					return nil, err
				}
				exported = p.cur.Raw
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			specs = append(specs, &ast.ExportSpecifier{Local: local, Exported: exported})
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
		source := ""
		if p.cur.Raw == "from" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			source = p.cur.StringValue
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		p.consumeSemicolon()
		return &ast.ExportNamedDeclaration{Specifiers: specs, Source: source}, nil
	}
	decl, err := p.parseStatementOrDeclaration(sc)
	if err != nil {
		return nil, err
	}
	return &ast.ExportNamedDeclaration{Declaration: decl}, nil
}
