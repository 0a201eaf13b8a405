package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartzjs/quartz/internal/diag"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New([]byte(src), diag.NewLog())
	var toks []Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == KindEOF {
			return toks
		}
	}
}

func TestLexerPunctuatorsLongestMatchFirst(t *testing.T) {
	toks := scanAll(t, ">>>= >>> >> > ===")
	kinds := make([]string, 0, len(toks)-1)
	for _, tok := range toks {
		if tok.Kind == KindEOF {
			break
		}
		kinds = append(kinds, tok.Raw)
	}
	require.Equal(t, []string{">>>=", ">>>", ">>", ">", "==="}, kinds)
}

func TestLexerNumericLiterals(t *testing.T) {
	cases := []struct {
		src    string
		want   float64
		bigint bool
	}{
		{"123", 123, false},
		{"0x1F", 31, false},
		{"0o17", 15, false},
		{"0b101", 5, false},
		{"3.14", 3.14, false},
		{"1e3", 1000, false},
		{"10n", 0, true},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		require.Equal(t, KindNumericLiteral, toks[0].Kind, c.src)
		if c.bigint {
			require.True(t, toks[0].IsBigInt, c.src)
		} else {
			require.Equal(t, c.want, toks[0].NumericValue, c.src)
		}
	}
}

func TestLexerLegacyOctalRejectedInStrictMode(t *testing.T) {
	l := New([]byte("010"), diag.NewLog())
	l.Cursor().SetStrict(true)
	_, err := l.Next()
	require.Error(t, err)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := scanAll(t, `"a\nb\tc"`)
	require.Equal(t, KindStringLiteral, toks[0].Kind)
	require.Equal(t, "a\nb\tc", toks[0].StringValue)
}

func TestLexerTemplateLiteralSubstitution(t *testing.T) {
	toks := scanAll(t, "`a${1}b`")
	require.Equal(t, KindTemplateStart, toks[0].Kind)
	require.Equal(t, "a", toks[0].StringValue)
	require.Equal(t, KindNumericLiteral, toks[1].Kind)
	require.Equal(t, KindTemplateTail, toks[2].Kind)
	require.Equal(t, "b", toks[2].StringValue)
}

func TestLexerRegExpLiteralRequiresGoalSymbol(t *testing.T) {
	l := New([]byte("/ab+c/gi"), diag.NewLog())
	l.SetGoal(GoalRegExp)
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, KindRegExpLiteral, tok.Kind)
	require.Equal(t, "ab+c", tok.Raw)
	require.Equal(t, "gi", tok.StringValue)
}

func TestLexerKeywordWithEscapeIsNotReserved(t *testing.T) {
	toks := scanAll(t, `i\u0066`) // "if" spelled with a unicode escape
	require.Equal(t, KindIdentifier, toks[0].Kind)
	require.True(t, toks[0].HasEscape)
	require.Equal(t, "if", toks[0].Raw)
}

func TestLexerLineTerminatorTracking(t *testing.T) {
	toks := scanAll(t, "a\nb")
	require.False(t, toks[0].PrecededByLineTerminator)
	require.True(t, toks[1].PrecededByLineTerminator)
}

func TestLexerHashbangAndBOMStripped(t *testing.T) {
	src := "\xEF\xBB\xBF#!/usr/bin/env quartz\nlet x"
	toks := scanAll(t, src)
	require.Equal(t, KindKeyword, toks[0].Kind)
	require.Equal(t, "let", toks[0].Raw)
}
