package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/gscript/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := New(src).Tokenize()
	require.NoError(t, err)
	return toks
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestTokenizePunctuationAndOperators(t *testing.T) {
	toks := tokenize(t, `( ) { } [ ] . , : ; != == = <= < >= > + - * /`)
	assert.Equal(t, []token.Type{
		token.LParen, token.RParen, token.LBrace, token.RBrace,
		token.LBracket, token.RBracket, token.Dot, token.Comma,
		token.Colon, token.Semicolon, token.NotEqual, token.Equal,
		token.Assign, token.LessEqual, token.Less, token.GreaterEqual,
		token.Greater, token.Plus, token.Minus, token.Star, token.Slash,
		token.End,
	}, types(toks))
}

func TestTokenizeKeywordsVsIdentifiers(t *testing.T) {
	toks := tokenize(t, `fn class extends let for in if elif else while break continue str return spawn await sleep yield foo`)
	want := []token.Type{
		token.Fn, token.Class, token.Extends, token.Let, token.For, token.In,
		token.If, token.Elif, token.Else, token.While, token.Break,
		token.Continue, token.Str, token.Return, token.Spawn, token.Await,
		token.Sleep, token.Yield, token.Ident, token.End,
	}
	assert.Equal(t, want, types(toks))
}

func TestTokenizeIntegerLiteral(t *testing.T) {
	toks := tokenize(t, `42`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.Int, toks[0].Type)
	assert.Equal(t, "42", toks[0].Text)
}

// A fractional literal's digits after the dot are consumed but truncated
// from the token's text (readNumber's documented behavior).
func TestTokenizeNumberTruncatesFraction(t *testing.T) {
	toks := tokenize(t, `3.14`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.Int, toks[0].Type)
	assert.Equal(t, "3", toks[0].Text)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks := tokenize(t, `"a\nb\tc\\d\"e"`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.String, toks[0].Type)
	assert.Equal(t, "a\nb\tc\\d\"e", toks[0].Text)
}

func TestTokenizeUnterminatedStringIsLexError(t *testing.T) {
	_, err := New(`"abc`).Tokenize()
	assert.Error(t, err)
}

func TestTokenizeInvalidEscapeIsLexError(t *testing.T) {
	_, err := New(`"a\q"`).Tokenize()
	assert.Error(t, err)
}

func TestTokenizeUnterminatedBlockCommentIsLexError(t *testing.T) {
	_, err := New(`/* never closed`).Tokenize()
	assert.Error(t, err)
}

func TestTokenizeSkipsLineAndBlockComments(t *testing.T) {
	toks := tokenize(t, "let a = 1; # trailing comment\n// another\n/* block */ let b = 2;")
	assert.Equal(t, []token.Type{
		token.Let, token.Ident, token.Assign, token.Int, token.Semicolon,
		token.Let, token.Ident, token.Assign, token.Int, token.Semicolon,
		token.End,
	}, types(toks))
}

func TestTokenizeUnexpectedCharacterIsLexError(t *testing.T) {
	_, err := New(`@`).Tokenize()
	assert.Error(t, err)
}

func TestTokenPositionsTrackLineAndColumn(t *testing.T) {
	toks := tokenize(t, "let a = 1;\nlet b = 2;")
	// the second `let` starts the second line.
	var secondLet token.Token
	count := 0
	for _, tok := range toks {
		if tok.Type == token.Let {
			count++
			if count == 2 {
				secondLet = tok
			}
		}
	}
	require.Equal(t, 2, count)
	assert.Equal(t, 2, secondLet.Line)
}
