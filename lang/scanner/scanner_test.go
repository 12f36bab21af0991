package scanner_test

import (
	"testing"

	"github.com/loxlang/loxvm/lang/scanner"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	s := scanner.New(src)
	var toks []token.Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestBasicTokens(t *testing.T) {
	toks := scanAll(t, "var x = 1 + 2.5;")
	require.Len(t, toks, 8)
	kinds := make([]token.Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		token.VAR, token.IDENT, token.EQUAL, token.NUMBER,
		token.PLUS, token.NUMBER, token.SEMICOLON, token.EOF,
	}, kinds)
	assert.Equal(t, "2.5", toks[5].Lexeme)
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll(t, "classroom class")
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, token.CLASS, toks[1].Kind)
}

func TestLineTracking(t *testing.T) {
	toks := scanAll(t, "var a = 1;\nvar b = 2;\n")
	// find the second "var"
	var second token.Token
	count := 0
	for _, tok := range toks {
		if tok.Kind == token.VAR {
			count++
			if count == 2 {
				second = tok
			}
		}
	}
	assert.Equal(t, 2, second.Line)
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "// a comment\nvar x; // trailing\n")
	assert.Equal(t, token.VAR, toks[0].Kind)
}

func TestStringNoEscapes(t *testing.T) {
	toks := scanAll(t, `"hello \n world"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `"hello \n world"`, toks[0].Lexeme)
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"unterminated`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	assert.Contains(t, toks[0].Lexeme, "Unterminated string")
}

func TestStrayCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	assert.Contains(t, toks[0].Lexeme, "Unexpected character")
}

func TestQuestionAndColonTokens(t *testing.T) {
	toks := scanAll(t, "a ? b : c")
	kinds := make([]token.Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		token.IDENT, token.QUESTION, token.IDENT, token.COLON, token.IDENT, token.EOF,
	}, kinds)
}
