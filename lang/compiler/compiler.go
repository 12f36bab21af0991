// Package compiler implements the single-pass compiler that lowers Lox
// source text directly to bytecode: a recursive-descent statement parser
// wrapping a Pratt expression parser, with no intermediate AST. Lexical
// scope, upvalue capture and jump patching are all resolved as tokens are
// consumed; emission order is evaluation order.
package compiler

import (
	"go/scanner"
	gotoken "go/token"

	"github.com/loxlang/loxvm/lang/chunk"
	loxscanner "github.com/loxlang/loxvm/lang/scanner"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/loxlang/loxvm/lang/value"
)

// Error and ErrorList are the standard library's own error-accumulation
// type, reused exactly as the teacher's scanner package reuses it: compile
// diagnostics need positions, sorting and a combined error value, and
// go/scanner already provides all three.
type Error = scanner.Error
type ErrorList = scanner.ErrorList

// Parser holds all state for compiling one source string: the token
// stream, the chain of in-progress function compilations, the object heap
// (for string interning) and accumulated diagnostics.
type Parser struct {
	scan *loxscanner.Scanner

	previous token.Token
	current  token.Token

	heap *value.Heap

	cur *funcState

	constGlobals map[string]bool

	hadError  bool
	panicMode bool
	errors    ErrorList
}

// Compile compiles source into a top-level script Function. On any
// compile error it returns a nil Function and a non-nil error that is
// always an ErrorList.
func Compile(source string, heap *value.Heap) (*chunk.Function, error) {
	p := &Parser{scan: loxscanner.New(source), heap: heap}
	p.cur = &funcState{function: chunk.NewFunction(""), isScript: true}

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn := p.endFuncState()

	if p.hadError {
		p.errors.Sort()
		return nil, p.errors.Err()
	}
	return fn, nil
}

func (p *Parser) currentChunk() *chunk.Chunk { return p.cur.function.Chunk }

func (p *Parser) line() int {
	if p.previous.IsEOF() {
		return p.current.Line
	}
	return p.previous.Line
}

// --- token stream -------------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current
	for {
		t := p.scan.Next()
		p.current = t
		if t.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(t.Lexeme)
	}
}

func (p *Parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// --- error reporting -----------------------------------------------------

func (p *Parser) errorAtCurrent(msg string)  { p.errorAt(p.current, msg) }
func (p *Parser) errorAtPrevious(msg string) { p.errorAt(p.previous, msg) }

// errorAt records a diagnostic for tok, unless the parser is already in
// panic mode recovering from an earlier one (spec §4.3.4: only the first
// error in a run of bad tokens is reported).
func (p *Parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	where := "at end"
	if !tok.IsEOF() {
		where = "at '" + tok.Lexeme + "'"
	}
	p.errors.Add(gotoken.Position{Line: tok.Line}, "Error "+where+": "+msg)
}

// synchronize discards tokens until it reaches a likely statement
// boundary, so a single syntax error doesn't cascade into spurious
// follow-on errors (spec §4.3.4).
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.current.IsEOF() {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.CONST, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN, token.SWITCH:
			return
		}
		p.advance()
	}
}

// --- bytecode emission ---------------------------------------------------

func (p *Parser) emitByte(b byte) { p.currentChunk().Write(b, p.line()) }

func (p *Parser) emitOp(op chunk.Op) { p.currentChunk().WriteOp(op, p.line()) }

func (p *Parser) emitOps(a, b chunk.Op) {
	p.emitOp(a)
	p.emitOp(b)
}

func (p *Parser) emitUint32(v uint32) { p.currentChunk().WriteUint32(v, p.line()) }

// emitIndexOp emits the short-form opcode with a 1-byte operand when idx
// fits, else the long-form opcode with a 4-byte operand (spec §4.3.6).
func (p *Parser) emitIndexOp(short, long chunk.Op, idx uint32) {
	if idx < 256 {
		p.emitOp(short)
		p.emitByte(byte(idx))
		return
	}
	p.emitOp(long)
	p.emitUint32(idx)
}

// makeConstant adds v to the current function's constant pool.
func (p *Parser) makeConstant(v value.Value) uint32 {
	return p.currentChunk().AddConstant(v)
}

func (p *Parser) emitConstant(v value.Value) {
	p.emitIndexOp(chunk.OpConstant, chunk.OpConstantLong, p.makeConstant(v))
}

// identifierConstant interns name and adds it to the constant pool,
// returning the pool index used to address it from OP_*_GLOBAL opcodes.
func (p *Parser) identifierConstant(name string) uint32 {
	return p.makeConstant(value.FromObj(p.heap.InternString(name)))
}

func (p *Parser) emitJump(op chunk.Op) int {
	return p.currentChunk().EmitJump(op, p.line())
}

func (p *Parser) patchJump(offset int) {
	if err := p.currentChunk().PatchJump(offset); err != nil {
		p.errorAtPrevious(err.Error())
	}
}

// emitLoop emits a backward jump to a target offset already known (used
// by while/for to loop back, and by continue to jump to a loop's
// recorded continue target).
func (p *Parser) emitLoop(op chunk.Op, target int) {
	if err := p.currentChunk().EmitLoop(op, target, p.line()); err != nil {
		p.errorAtPrevious(err.Error())
	}
}

func (p *Parser) emitReturn() { p.emitOps(chunk.OpNil, chunk.OpReturn) }

// endFuncState closes out the current function compilation: emits the
// implicit `nil; return` epilogue, finalizes its upvalue list, links the
// function into the heap's object list, and restores the enclosing
// function as current.
func (p *Parser) endFuncState() *chunk.Function {
	p.emitReturn()
	fs := p.cur
	fn := fs.function
	p.heap.Track(fn)
	fn.Upvalues = make([]chunk.UpvalueDesc, len(fs.upvalues))
	for i, u := range fs.upvalues {
		fn.Upvalues[i] = chunk.UpvalueDesc{IsLocal: u.isLocal, Index: u.index}
	}
	p.cur = fs.enclosing
	return fn
}
