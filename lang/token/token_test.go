package token_test

import (
	"testing"

	"github.com/loxlang/loxvm/lang/token"
	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		lexeme string
		want   token.Kind
	}{
		{"and", token.AND},
		{"class", token.CLASS},
		{"const", token.CONST},
		{"switch", token.SWITCH},
		{"default", token.DEFAULT},
		{"orchard", token.IDENT},
		{"fun", token.FUN},
		{"", token.IDENT},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, token.Lookup(c.lexeme), c.lexeme)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "while", token.WHILE.String())
	assert.Equal(t, "end of file", token.EOF.String())
	assert.Equal(t, "unknown token", token.Kind(255).String())
}
