package compiler

import (
	"strconv"

	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/loxlang/loxvm/lang/value"
)

func (p *Parser) expression() { p.parsePrecedence(precAssignment) }

// parsePrecedence is the Pratt driver (spec §4.3.2): consume a token,
// dispatch its prefix rule, then keep folding in infix operators whose
// precedence is at least prec. can-assign is threaded through so only an
// expression parsed at assignment-or-looser precedence may consume a
// trailing `=`.
func (p *Parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := getRule(p.previous.Kind).prefix
	if prefix == nil {
		p.errorAtPrevious("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Kind).prec {
		p.advance()
		infix := getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQUAL) {
		p.errorAtPrevious("Invalid assignment target.")
	}
}

func number(p *Parser, _ bool) {
	n, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(value.Number(n))
}

func stringLiteral(p *Parser, _ bool) {
	raw := p.previous.Lexeme
	content := raw[1 : len(raw)-1] // strip surrounding quotes
	obj := p.heap.InternString(content)
	p.emitConstant(value.FromObj(obj))
}

func literal(p *Parser, _ bool) {
	switch p.previous.Kind {
	case token.NIL:
		p.emitOp(chunk.OpNil)
	case token.TRUE:
		p.emitOp(chunk.OpTrue)
	case token.FALSE:
		p.emitOp(chunk.OpFalse)
	}
}

func grouping(p *Parser, _ bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func unary(p *Parser, _ bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.MINUS:
		p.emitOp(chunk.OpNegate)
	case token.BANG:
		p.emitOp(chunk.OpNot)
	}
}

// binary compiles a left-associative binary operator: its right operand
// is parsed one precedence level tighter than the operator itself. The
// three derived comparisons (!=, <=, >=) are lowered to a primitive plus
// NOT, saving three opcodes (spec §4.3.3).
func binary(p *Parser, _ bool) {
	opKind := p.previous.Kind
	rule := getRule(opKind)
	p.parsePrecedence(rule.prec + 1)

	switch opKind {
	case token.PLUS:
		p.emitOp(chunk.OpAdd)
	case token.MINUS:
		p.emitOp(chunk.OpSubtract)
	case token.STAR:
		p.emitOp(chunk.OpMultiply)
	case token.SLASH:
		p.emitOp(chunk.OpDivide)
	case token.EQUAL_EQUAL:
		p.emitOp(chunk.OpEqual)
	case token.BANG_EQUAL:
		p.emitOps(chunk.OpEqual, chunk.OpNot)
	case token.GREATER:
		p.emitOp(chunk.OpGreater)
	case token.GREATER_EQUAL:
		p.emitOps(chunk.OpLess, chunk.OpNot)
	case token.LESS:
		p.emitOp(chunk.OpLess)
	case token.LESS_EQUAL:
		p.emitOps(chunk.OpGreater, chunk.OpNot)
	}
}

// and_ short-circuits: if the left operand is falsey it is left on the
// stack as the result (without evaluating rhs), else it's discarded and
// rhs becomes the result.
func and_(p *Parser, _ bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

// or_ is and_'s mirror image, using OP_JUMP_IF_TRUE (spec §4.3.3).
func or_(p *Parser, _ bool) {
	endJump := p.emitJump(chunk.OpJumpIfTrue)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

// ternary compiles `cond ? then : else`. then parses at TERNARY and else
// at ASSIGNMENT, which is what makes the operator right-associative
// (spec §4.3.2/4.3.3).
func ternary(p *Parser, _ bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precTernary)
	p.consume(token.COLON, "Expect ':' after then branch of ternary expression.")
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(elseJump)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precAssignment)
	p.patchJump(endJump)
}

func call(p *Parser, _ bool) {
	argCount := p.argumentList()
	p.emitOp(chunk.OpCall)
	p.emitByte(byte(argCount))
}

func (p *Parser) argumentList() int {
	count := 0
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if count == maxParamsOrArgs {
				p.errorAtPrevious("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments.")
	return count
}

func variable(p *Parser, canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

// namedVariable resolves name through the three binding kinds in order
// (locals, upvalues, globals — spec §4.3.3) and emits the matching
// GET/SET opcode, honoring const-ness for all three.
func (p *Parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp chunk.Op
	var idx uint32
	var isConst bool

	if localIdx, lc, ok := resolveLocal(p, p.cur, name); ok {
		idx, isConst = uint32(localIdx), lc
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else if upIdx, uc, ok := resolveUpvalue(p, p.cur, name); ok {
		idx, isConst = upIdx, uc
		getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
	} else {
		idx = p.identifierConstant(name)
		isConst = p.constGlobals[name]
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && p.match(token.EQUAL) {
		if isConst {
			p.errorAtPrevious("Can't assign to const variable '" + name + "'.")
		}
		p.expression()
		p.emitSetOp(setOp, idx)
		return
	}
	p.emitGetOp(getOp, idx)
}

func (p *Parser) emitGetOp(op chunk.Op, idx uint32) {
	switch op {
	case chunk.OpGetLocal:
		p.emitIndexOp(chunk.OpGetLocal, chunk.OpGetLocalLong, idx)
	case chunk.OpGetUpvalue:
		p.emitIndexOp(chunk.OpGetUpvalue, chunk.OpGetUpvalueLong, idx)
	case chunk.OpGetGlobal:
		p.emitIndexOp(chunk.OpGetGlobal, chunk.OpGetGlobalLong, idx)
	}
}

func (p *Parser) emitSetOp(op chunk.Op, idx uint32) {
	switch op {
	case chunk.OpSetLocal:
		p.emitIndexOp(chunk.OpSetLocal, chunk.OpSetLocalLong, idx)
	case chunk.OpSetUpvalue:
		p.emitIndexOp(chunk.OpSetUpvalue, chunk.OpSetUpvalueLong, idx)
	case chunk.OpSetGlobal:
		p.emitIndexOp(chunk.OpSetGlobal, chunk.OpSetGlobalLong, idx)
	}
}
