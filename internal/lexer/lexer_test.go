package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/lexer"
	"github.com/c5lang/c5c/internal/token"
)

func TestTokenizeFuncSkeleton(t *testing.T) {
	src := `func int add(int a, int b) {
	return a + b;
}
`
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	require.NotEmpty(t, toks)

	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, token.Ident)
	require.Contains(t, kinds, token.Return)
	require.Contains(t, kinds, token.Plus)
	require.Equal(t, token.EOF, kinds[len(kinds)-1])
}

func TestTokenizeLiterals(t *testing.T) {
	toks, err := lexer.Tokenize(`let x = 42; let s = "hi\n"; let c = 'a';`)
	require.NoError(t, err)

	var gotNumber, gotString, gotChar bool
	for _, tok := range toks {
		switch tok.Kind {
		case token.Number:
			gotNumber = true
			require.Equal(t, "42", tok.Lexeme)
		case token.String:
			gotString = true
		case token.Char:
			gotChar = true
			require.EqualValues(t, 'a', tok.IntValue)
		}
	}
	require.True(t, gotNumber)
	require.True(t, gotString)
	require.True(t, gotChar)
}

func TestTokenizeUnexpectedCharacter(t *testing.T) {
	_, err := lexer.Tokenize("let x = 1 @ 2;")
	require.Error(t, err)
}
