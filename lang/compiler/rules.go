package compiler

import "github.com/loxlang/loxvm/lang/token"

// precedence orders Lox's expression grammar from loosest to tightest
// binding (spec §4.3.1: assignment, ternary, or, and, equality,
// comparison, term, factor, unary, call, primary).
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precTernary
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules = map[token.Kind]parseRule{
	token.LPAREN:        {prefix: grouping, infix: call, prec: precCall},
	token.MINUS:         {prefix: unary, infix: binary, prec: precTerm},
	token.PLUS:          {infix: binary, prec: precTerm},
	token.SLASH:         {infix: binary, prec: precFactor},
	token.STAR:          {infix: binary, prec: precFactor},
	token.QUESTION:      {infix: ternary, prec: precTernary},
	token.BANG:          {prefix: unary},
	token.BANG_EQUAL:    {infix: binary, prec: precEquality},
	token.EQUAL_EQUAL:   {infix: binary, prec: precEquality},
	token.GREATER:       {infix: binary, prec: precComparison},
	token.GREATER_EQUAL: {infix: binary, prec: precComparison},
	token.LESS:          {infix: binary, prec: precComparison},
	token.LESS_EQUAL:    {infix: binary, prec: precComparison},
	token.IDENT:         {prefix: variable},
	token.STRING:        {prefix: stringLiteral},
	token.NUMBER:        {prefix: number},
	token.AND:           {infix: and_, prec: precAnd},
	token.OR:            {infix: or_, prec: precOr},
	token.FALSE:         {prefix: literal},
	token.TRUE:          {prefix: literal},
	token.NIL:           {prefix: literal},
}

// ruleLookup is rules, assigned in init: the parse functions in rules
// reach getRule, so reading rules from getRule directly would make rules'
// initializer depend on itself.
var ruleLookup map[token.Kind]parseRule

func init() { ruleLookup = rules }

func getRule(k token.Kind) parseRule { return ruleLookup[k] }
