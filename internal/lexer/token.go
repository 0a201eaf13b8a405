package lexer

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/quartzjs/quartz/internal/diag"
)

// Kind tags a scanned Token, per §4.5's token-kind list.
type Kind uint8

const (
	KindEOF Kind = iota
	KindLineTerminator
	KindNumericLiteral
	KindStringLiteral
	KindTemplateStart
	KindTemplateMiddle
	KindTemplateTail
	KindNoSubstitutionTemplate
	KindRegExpLiteral
	KindIdentifier
	KindKeyword
	KindPunctuator
	KindPrivateIdentifier
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "EOF"
	case KindLineTerminator:
		return "LineTerminator"
	case KindNumericLiteral:
		return "NumericLiteral"
	case KindStringLiteral:
		return "StringLiteral"
	case KindTemplateStart:
		return "TemplateStart"
	case KindTemplateMiddle:
		return "TemplateMiddle"
	case KindTemplateTail:
		return "TemplateTail"
	case KindNoSubstitutionTemplate:
		return "NoSubstitutionTemplate"
	case KindRegExpLiteral:
		return "RegExpLiteral"
	case KindIdentifier:
		return "Identifier"
	case KindKeyword:
		return "Keyword"
	case KindPunctuator:
		return "Punctuator"
	case KindPrivateIdentifier:
		return "PrivateIdentifier"
	}
	return "Unknown"
}

// Token is one lexical unit, with its literal payload decoded eagerly
// (numeric value, cooked string contents) since the parser consults
// those values immediately in most productions.
type Token struct {
	Kind  Kind
	Raw   string
	Start Position
	End   Position

	// NumericValue holds the decoded Number for KindNumericLiteral.
	NumericValue float64
	// IsBigInt marks a numeric literal with a trailing `n` BigInt suffix.
	IsBigInt bool
	// StringValue holds the cooked value for string/template literals.
	StringValue string
	// HasEscape marks a keyword/identifier token that contained a
	// Unicode escape sequence; per §4.5 an escape-containing keyword is
	// not a keyword for reserved-word purposes.
	HasEscape bool
	// PrecededByLineTerminator supports automatic semicolon insertion.
	PrecededByLineTerminator bool
}

// keywords is the full ECMAScript reserved-word set; the parser
// additionally treats a subset as reserved only in strict mode.
var keywords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true, "instanceof": true,
	"new": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "null": true, "true": true, "false": true,
	"let": true, "static": true, "yield": true, "await": true, "async": true,
	"enum": true,
}

// StrictModeReservedWords lists identifiers that only the parser's
// strict-mode early-error pass forbids as BindingIdentifiers (§4.6).
var StrictModeReservedWords = map[string]bool{
	"implements": true, "interface": true, "package": true, "private": true,
	"protected": true, "public": true, "static": true, "let": true,
	"yield": true, "eval": true, "arguments": true,
}

// Lexer scans Tokens from a Cursor, per §4.5.
type Lexer struct {
	cursor *Cursor
	log    *diag.Log
}

func New(src []byte, log *diag.Log) *Lexer {
	return &Lexer{cursor: NewCursor(src), log: log}
}

func (l *Lexer) Cursor() *Cursor { return l.cursor }

func (l *Lexer) SetGoal(g GoalSymbol) { l.cursor.SetGoal(g) }

// Next scans and returns the next token, skipping whitespace but
// recording whether a line terminator was crossed (needed by the
// parser's automatic-semicolon-insertion rules).
func (l *Lexer) Next() (Token, error) {
	sawLineTerminator := false
	for {
		b, ok := l.cursor.PeekByte()
		if !ok {
			return Token{Kind: KindEOF, Start: l.cursor.Pos(), End: l.cursor.Pos(), PrecededByLineTerminator: sawLineTerminator}, nil
		}
		switch {
		case b == ' ' || b == '\t' || b == '\v' || b == '\f':
			l.cursor.NextByte()
			continue
		case b == '\r' || b == '\n':
			l.cursor.NextByte()
			sawLineTerminator = true
			continue
		case b == 0xE2:
			n := l.cursor.PeekN(3)
			if len(n) == 3 && n[0] == 0xE2 && n[1] == 0x80 && (n[2] == 0xA8 || n[2] == 0xA9) {
				l.cursor.NextByte()
				sawLineTerminator = true
				continue
			}
		case b == '/' && l.peekIsLineComment():
			l.skipLineComment()
			continue
		case b == '/' && l.peekIsBlockComment():
			crossed, err := l.skipBlockComment()
			if err != nil {
				return Token{}, err
			}
			sawLineTerminator = sawLineTerminator || crossed
			continue
		}
		break
	}

	start := l.cursor.Pos()
	b, _ := l.cursor.PeekByte()

	var tok Token
	var err error
	switch {
	case isDigit(b) || (b == '.' && l.peekDigitAfterDot()):
		tok, err = l.scanNumber()
	case b == '"' || b == '\'':
		tok, err = l.scanString(b)
	case b == '`':
		tok, err = l.scanTemplate(true)
	case b == '/' && l.cursor.Goal() == GoalRegExp:
		tok, err = l.scanRegExp()
	case b == '#':
		tok, err = l.scanPrivateIdentifier()
	case isIdentifierStart(b):
		tok, err = l.scanIdentifierOrKeyword()
	default:
		tok, err = l.scanPunctuator()
	}
	if err != nil {
		return Token{}, err
	}
	tok.Start = start
	tok.End = l.cursor.Pos()
	tok.PrecededByLineTerminator = sawLineTerminator
	return tok, nil
}

func (l *Lexer) peekIsLineComment() bool {
	n := l.cursor.PeekN(2)
	return len(n) == 2 && n[0] == '/' && n[1] == '/'
}

func (l *Lexer) peekIsBlockComment() bool {
	n := l.cursor.PeekN(2)
	return len(n) == 2 && n[0] == '/' && n[1] == '*'
}

func (l *Lexer) skipLineComment() {
	for {
		b, ok := l.cursor.PeekByte()
		if !ok || b == '\r' || b == '\n' {
			return
		}
		if b == 0xE2 {
			n := l.cursor.PeekN(3)
			if len(n) == 3 && n[1] == 0x80 && (n[2] == 0xA8 || n[2] == 0xA9) {
				return
			}
		}
		l.cursor.NextByte()
	}
}

func (l *Lexer) skipBlockComment() (crossedLine bool, err error) {
	l.cursor.NextByte()
	l.cursor.NextByte()
	for {
		b, ok := l.cursor.NextByte()
		if !ok {
			return crossedLine, errors.New("lexer: unterminated block comment")
		}
		if b == '\r' || b == '\n' {
			crossedLine = true
		}
		if b == '*' {
			if n, ok := l.cursor.PeekByte(); ok && n == '/' {
				l.cursor.NextByte()
				return crossedLine, nil
			}
		}
	}
}

func (l *Lexer) peekDigitAfterDot() bool {
	n := l.cursor.PeekN(2)
	return len(n) == 2 && isDigit(n[1])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentifierStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentifierPart(b byte) bool {
	return isIdentifierStart(b) || isDigit(b)
}

func (l *Lexer) scanNumber() (Token, error) {
	var buf []byte
	isBigInt := false
	isOctalLegacy := false

	if b, _ := l.cursor.PeekByte(); b == '0' {
		n := l.cursor.PeekN(2)
		if len(n) == 2 && (n[1] == 'x' || n[1] == 'X') {
			buf = append(buf, mustByte(l.cursor.NextByte()), mustByte(l.cursor.NextByte()))
			l.cursor.TakeWhileASCIIPred((*[]byte)(&buf), isHexDigit)
			return l.finishNumber(buf, 16, isBigInt)
		}
		if len(n) == 2 && (n[1] == 'o' || n[1] == 'O') {
			buf = append(buf, mustByte(l.cursor.NextByte()), mustByte(l.cursor.NextByte()))
			l.cursor.TakeWhileASCIIPred((*[]byte)(&buf), isOctalDigit)
			return l.finishNumber(buf, 8, isBigInt)
		}
		if len(n) == 2 && (n[1] == 'b' || n[1] == 'B') {
			buf = append(buf, mustByte(l.cursor.NextByte()), mustByte(l.cursor.NextByte()))
			l.cursor.TakeWhileASCIIPred((*[]byte)(&buf), isBinaryDigit)
			return l.finishNumber(buf, 2, isBigInt)
		}
		if len(n) == 2 && isDigit(n[1]) {
			isOctalLegacy = true
		}
	}

	l.cursor.TakeWhileASCIIPred((*[]byte)(&buf), isDigit)
	if b, ok := l.cursor.PeekByte(); ok && b == '.' {
		buf = append(buf, mustByte(l.cursor.NextByte()))
		l.cursor.TakeWhileASCIIPred((*[]byte)(&buf), isDigit)
	}
	if b, ok := l.cursor.PeekByte(); ok && (b == 'e' || b == 'E') {
		buf = append(buf, mustByte(l.cursor.NextByte()))
		if b, ok := l.cursor.PeekByte(); ok && (b == '+' || b == '-') {
			buf = append(buf, mustByte(l.cursor.NextByte()))
		}
		l.cursor.TakeWhileASCIIPred((*[]byte)(&buf), isDigit)
	}
	if b, ok := l.cursor.PeekByte(); ok && b == 'n' {
		l.cursor.NextByte()
		isBigInt = true
	}
	if isOctalLegacy {
		if l.cursor.Strict() {
			return Token{}, errors.New("lexer: octal literals are forbidden in strict mode")
		}
		return l.finishNumber(buf, 8, isBigInt)
	}
	return l.finishNumber(buf, 10, isBigInt)
}

func mustByte(b byte, ok bool) byte { return b }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') || b == '_'
}
func isOctalDigit(b byte) bool  { return b >= '0' && b <= '7' || b == '_' }
func isBinaryDigit(b byte) bool { return b == '0' || b == '1' || b == '_' }

func (l *Lexer) finishNumber(buf []byte, base int, isBigInt bool) (Token, error) {
	raw := string(buf)
	clean := strings.ReplaceAll(raw, "_", "")
	if isBigInt {
		return Token{Kind: KindNumericLiteral, Raw: raw, IsBigInt: true, StringValue: clean}, nil
	}
	var f float64
	switch base {
	case 10:
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return Token{}, errors.Wrapf(err, "lexer: invalid numeric literal %q", raw)
		}
		f = v
	default:
		prefixLen := 0
		if len(clean) >= 2 && clean[0] == '0' {
			prefixLen = 2
		}
		v, err := strconv.ParseUint(clean[prefixLen:], base, 64)
		if err != nil {
			return Token{}, errors.Wrapf(err, "lexer: invalid numeric literal %q", raw)
		}
		f = float64(v)
	}
	return Token{Kind: KindNumericLiteral, Raw: raw, NumericValue: f}, nil
}

func (l *Lexer) scanString(quote byte) (Token, error) {
	l.cursor.NextByte()
	var cooked []byte
	for {
		b, ok := l.cursor.PeekByte()
		if !ok {
			return Token{}, errors.New("lexer: unterminated string literal")
		}
		if b == quote {
			l.cursor.NextByte()
			break
		}
		if b == '\\' {
			l.cursor.NextByte()
			if err := l.scanEscapeSequence(&cooked); err != nil {
				return Token{}, err
			}
			continue
		}
		if b == '\r' || b == '\n' {
			return Token{}, errors.New("lexer: unterminated string literal")
		}
		l.cursor.NextByte()
		cooked = append(cooked, b)
	}
	return Token{Kind: KindStringLiteral, StringValue: string(cooked)}, nil
}

func (l *Lexer) scanEscapeSequence(out *[]byte) error {
	b, ok := l.cursor.NextByte()
	if !ok {
		return errors.New("lexer: unterminated escape sequence")
	}
	switch b {
	case 'n':
		*out = append(*out, '\n')
	case 't':
		*out = append(*out, '\t')
	case 'r':
		*out = append(*out, '\r')
	case 'b':
		*out = append(*out, '\b')
	case 'f':
		*out = append(*out, '\f')
	case 'v':
		*out = append(*out, '\v')
	case '0':
		*out = append(*out, 0)
	case '\r':
		if p, ok := l.cursor.PeekByte(); ok && p == '\n' {
			l.cursor.NextByte()
		}
	case '\n':
	case 'x':
		var buf []byte
		if !l.cursor.FillBytes(appendN(&buf, 2)) {
			return errors.New("lexer: invalid hex escape")
		}
		n, err := strconv.ParseUint(string(buf), 16, 32)
		if err != nil {
			return errors.Wrap(err, "lexer: invalid hex escape")
		}
		*out = append(*out, []byte(string(rune(n)))...)
	case 'u':
		r, err := l.scanUnicodeEscape()
		if err != nil {
			return err
		}
		*out = append(*out, []byte(string(r))...)
	default:
		*out = append(*out, b)
	}
	return nil
}

func appendN(buf *[]byte, n int) []byte {
	*buf = make([]byte, n)
	return *buf
}

func (l *Lexer) scanUnicodeEscape() (rune, error) {
	if b, ok := l.cursor.PeekByte(); ok && b == '{' {
		l.cursor.NextByte()
		var digits []byte
		l.cursor.TakeWhileASCIIPred((*[]byte)(&digits), isHexDigit)
		if !l.cursor.NextIs('}') {
			return 0, errors.New("lexer: unterminated unicode escape")
		}
		n, err := strconv.ParseUint(string(digits), 16, 32)
		if err != nil {
			return 0, errors.Wrap(err, "lexer: invalid unicode escape")
		}
		return rune(n), nil
	}
	buf := make([]byte, 4)
	if !l.cursor.FillBytes(buf) {
		return 0, errors.New("lexer: invalid unicode escape")
	}
	n, err := strconv.ParseUint(string(buf), 16, 32)
	if err != nil {
		return 0, errors.Wrap(err, "lexer: invalid unicode escape")
	}
	return rune(n), nil
}

func (l *Lexer) scanTemplate(start bool) (Token, error) {
	l.cursor.NextByte() // consume ` or }
	var cooked []byte
	for {
		b, ok := l.cursor.PeekByte()
		if !ok {
			return Token{}, errors.New("lexer: unterminated template literal")
		}
		if b == '`' {
			l.cursor.NextByte()
			kind := KindNoSubstitutionTemplate
			if !start {
				kind = KindTemplateTail
			}
			return Token{Kind: kind, StringValue: string(cooked)}, nil
		}
		n := l.cursor.PeekN(2)
		if len(n) == 2 && n[0] == '$' && n[1] == '{' {
			l.cursor.NextByte()
			l.cursor.NextByte()
			kind := KindTemplateStart
			if !start {
				kind = KindTemplateMiddle
			}
			return Token{Kind: kind, StringValue: string(cooked)}, nil
		}
		if b == '\\' {
			l.cursor.NextByte()
			if err := l.scanEscapeSequence(&cooked); err != nil {
				return Token{}, err
			}
			continue
		}
		l.cursor.NextByte()
		cooked = append(cooked, b)
	}
}

func (l *Lexer) scanRegExp() (Token, error) {
	var buf []byte
	l.cursor.NextByte() // consume leading /
	inClass := false
	for {
		b, ok := l.cursor.PeekByte()
		if !ok {
			return Token{}, errors.New("lexer: unterminated regular expression literal")
		}
		if b == '\\' {
			buf = append(buf, mustByte(l.cursor.NextByte()))
			nb, ok := l.cursor.NextByte()
			if !ok {
				return Token{}, errors.New("lexer: unterminated regular expression literal")
			}
			buf = append(buf, nb)
			continue
		}
		if b == '[' {
			inClass = true
		}
		if b == ']' {
			inClass = false
		}
		if b == '/' && !inClass {
			l.cursor.NextByte()
			break
		}
		if b == '\r' || b == '\n' {
			return Token{}, errors.New("lexer: unterminated regular expression literal")
		}
		l.cursor.NextByte()
		buf = append(buf, b)
	}
	var flags []byte
	l.cursor.TakeWhileASCIIPred((*[]byte)(&flags), func(b byte) bool { return isIdentifierPart(b) })
	return Token{Kind: KindRegExpLiteral, Raw: string(buf), StringValue: string(flags)}, nil
}

func (l *Lexer) scanPrivateIdentifier() (Token, error) {
	l.cursor.NextByte() // consume #
	var buf []byte
	l.cursor.TakeWhileASCIIPred((*[]byte)(&buf), isIdentifierPart)
	return Token{Kind: KindPrivateIdentifier, Raw: string(buf)}, nil
}

func (l *Lexer) scanIdentifierOrKeyword() (Token, error) {
	var buf []byte
	hasEscape := false
	for {
		b, ok := l.cursor.PeekByte()
		if !ok {
			break
		}
		if b == '\\' {
			hasEscape = true
			l.cursor.NextByte()
			if !l.cursor.NextIs('u') {
				return Token{}, errors.New("lexer: invalid identifier escape")
			}
			r, err := l.scanUnicodeEscape()
			if err != nil {
				return Token{}, err
			}
			buf = append(buf, []byte(string(r))...)
			continue
		}
		if !isIdentifierPart(b) {
			break
		}
		l.cursor.NextByte()
		buf = append(buf, b)
	}
	name := string(buf)
	if !hasEscape && keywords[name] {
		return Token{Kind: KindKeyword, Raw: name}, nil
	}
	return Token{Kind: KindIdentifier, Raw: name, HasEscape: hasEscape}, nil
}

// punctuators is ordered longest-first so the greedy scan below always
// matches the maximal punctuator at the current position.
var punctuators = []string{
	">>>=", "...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--", "**",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ".", ";", ",", "<", ">", "+", "-", "*", "%",
	"&", "|", "^", "!", "~", "?", ":", "=", "/",
}

func (l *Lexer) scanPunctuator() (Token, error) {
	remaining := l.cursor.PeekN(4)
	for _, p := range punctuators {
		if len(remaining) >= len(p) && string(remaining[:len(p)]) == p {
			for range p {
				l.cursor.NextByte()
			}
			return Token{Kind: KindPunctuator, Raw: p}, nil
		}
	}
	b, ok := l.cursor.NextByte()
	if !ok {
		return Token{}, errors.New("lexer: unexpected end of input")
	}
	return Token{}, errors.Errorf("lexer: unexpected character %q", rune(b))
}
