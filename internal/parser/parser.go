// Package parser implements the recursive-descent parser described by
// §4.6: unbounded look-ahead via a peek ring, per-production
// allow_yield/allow_await/allow_in/allow_return/allow_default flags,
// and the early-error checks the specification calls out by name.
//
// No parser source file is present in original_source (boa_parser's
// own recursive-descent modules were filtered out of the retrieval
// pack), so this package is grounded on spec.md §4.6 directly and on
// the flag-threading discipline described there; statement/expression
// dispatch otherwise follows the standard recursive-descent shape any
// ECMAScript-grammar parser takes.
package parser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/quartzjs/quartz/internal/ast"
	"github.com/quartzjs/quartz/internal/diag"
	"github.com/quartzjs/quartz/internal/lexer"
)

// SyntaxError is a parser error carrying source position, per §7
// "Parser errors are always surfaced synchronously; they carry source
// position (line, column)."
type SyntaxError struct {
	Message string
	Pos     lexer.Position
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (%d:%d)", e.Message, e.Pos.Line, e.Pos.Column)
}

// scope threads the per-production parse flags described by §4.6
// ("each production is a struct carrying allow_yield, allow_await,
// allow_in, allow_return, allow_default flags").
type scope struct {
	allowYield   bool
	allowAwait   bool
	allowIn      bool
	allowReturn  bool
	allowDefault bool
	strict       bool
	inFunction   bool
	inLoop       bool
	inSwitch     bool
	labels       map[string]bool
	varNames     map[string]bool
	lexNames     map[string]bool
}

func newScope() *scope {
	return &scope{allowIn: true, labels: map[string]bool{}, varNames: map[string]bool{}, lexNames: map[string]bool{}}
}

func (s *scope) clone() *scope {
	c := *s
	c.labels = map[string]bool{}
	for k, v := range s.labels {
		c.labels[k] = v
	}
	c.varNames = map[string]bool{}
	c.lexNames = map[string]bool{}
	return &c
}

// Parser is the recursive-descent driver over a lexer.Lexer, with a
// peek ring of scanned tokens supporting unbounded look-ahead.
type Parser struct {
	lex    *lexer.Lexer
	log    *diag.Log
	peeked []lexer.Token
	cur    lexer.Token
	module bool
}

func New(src []byte, log *diag.Log) *Parser {
	l := lexer.New(src, log)
	p := &Parser{lex: l, log: log}
	return p
}

func (p *Parser) fail(format string, args ...interface{}) error {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), Pos: p.cur.Start}
}

func (p *Parser) advance() error {
	if len(p.peeked) > 0 {
		p.cur = p.peeked[0]
		p.peeked = p.peeked[1:]
		return nil
	}
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) peekAt(n int) (lexer.Token, error) {
	for len(p.peeked) <= n {
		tok, err := p.lex.Next()
		if err != nil {
			return lexer.Token{}, err
		}
		p.peeked = append(p.peeked, tok)
	}
	return p.peeked[n], nil
}

func (p *Parser) isPunct(s string) bool {
	return p.cur.Kind == lexer.KindPunctuator && p.cur.Raw == s
}

func (p *Parser) isKeyword(s string) bool {
	return p.cur.Kind == lexer.KindKeyword && p.cur.Raw == s
}

// isContextual matches a contextual keyword such as "of", "get", "set",
// "as", or "from" - identifiers that only carry special meaning in
// specific grammar positions and are not reserved words, so the lexer
// always scans them as KindIdentifier rather than KindKeyword.
func (p *Parser) isContextual(s string) bool {
	return p.cur.Kind == lexer.KindIdentifier && p.cur.Raw == s
}

func (p *Parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.fail("expected %q, got %q", s, p.cur.Raw)
	}
	return p.advance()
}

// ParseScript parses a complete Script per §4.6's parse_script entry
// point, enforcing script-level early errors (no duplicate lexical
// names, no overlap between lexical and var names).
func (p *Parser) ParseScript() (*ast.Program, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	prog := &ast.Program{}
	sc := newScope()
	sc.allowReturn = false
	body, strict, err := p.parseStatementListAndDirectives(sc, func() bool { return p.cur.Kind == lexer.KindEOF })
	if err != nil {
		return nil, err
	}
	prog.Body = body
	prog.Strict = strict
	return prog, nil
}

// ParseModule parses a complete Module (§4.6 parse_module), implicitly
// strict, additionally recognising import/export declarations.
func (p *Parser) ParseModule() (*ast.Program, error) {
	p.module = true
	p.lex.Cursor().SetModule(true)
	if err := p.advance(); err != nil {
		return nil, err
	}
	prog := &ast.Program{IsModule: true, Strict: true}
	sc := newScope()
	sc.strict = true
	body, _, err := p.parseStatementListAndDirectives(sc, func() bool { return p.cur.Kind == lexer.KindEOF })
	if err != nil {
		return nil, err
	}
	if err := p.checkModuleExportUniqueness(body); err != nil {
		return nil, err
	}
	prog.Body = body
	return prog, nil
}

// ParseFunctionBody parses the statement list inside a function's
// braces (§6 parse_function_body). Nothing in the engine calls it: the
// compiler compiles every function from the AST the full parse built.
func (p *Parser) ParseFunctionBody(sc *scope) ([]ast.Statement, bool, error) {
	return p.parseStatementListAndDirectives(sc, func() bool { return p.isPunct("}") })
}

func (p *Parser) parseStatementListAndDirectives(sc *scope, stop func() bool) ([]ast.Statement, bool, error) {
	var body []ast.Statement
	inPrologue := true
	for !stop() {
		stmt, err := p.parseStatementOrDeclaration(sc)
		if err != nil {
			return nil, false, err
		}
		if inPrologue {
			if es, ok := stmt.(*ast.ExpressionStatement); ok && es.Directive != "" {
				if es.Directive == "use strict" {
					sc.strict = true
				}
			} else {
				inPrologue = false
			}
		}
		body = append(body, stmt)
	}
	if err := p.checkLexicalVarOverlap(sc); err != nil {
		return nil, false, err
	}
	return body, sc.strict, nil
}

func (p *Parser) checkLexicalVarOverlap(sc *scope) error {
	for name := range sc.lexNames {
		if sc.varNames[name] {
			return p.fail("identifier %q has already been declared", name)
		}
	}
	return nil
}

func (p *Parser) checkModuleExportUniqueness(body []ast.Statement) error {
	seen := map[string]bool{}
	for _, stmt := range body {
		switch d := stmt.(type) {
		case *ast.ExportNamedDeclaration:
			for _, spec := range d.Specifiers {
				name := spec.Exported
				if name == "" {
					name = spec.Local
				}
				if seen[name] {
					return p.fail("duplicate export %q", name)
				}
				seen[name] = true
			}
		case *ast.ExportDefaultDeclaration:
			if seen["default"] {
				return p.fail("duplicate export default")
			}
			seen["default"] = true
		}
	}
	return nil
}

// declareLexical/declareVar record a binding name for the script/module
// top-level overlap check (§4.6's "no overlap between lexical names and
// var-declared names").
func (p *Parser) declareLexical(sc *scope, name string) error {
	if sc.lexNames[name] {
		return p.fail("identifier %q has already been declared", name)
	}
	sc.lexNames[name] = true
	return nil
}

func (p *Parser) declareVar(sc *scope, name string) {
	sc.varNames[name] = true
}

var errUnsupported = errors.New("parser: construct not supported by this grammar subset")
