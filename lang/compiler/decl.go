package compiler

import (
	"fmt"
	"strconv"

	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/token"
	"github.com/loxlang/loxvm/lang/value"
)

func (p *Parser) declaration() {
	switch {
	case p.match(token.VAR):
		p.varDeclaration(false)
	case p.match(token.CONST):
		p.varDeclaration(true)
	case p.match(token.FUN):
		p.funDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

// parseVariableName consumes an identifier and declares it in the
// current scope, returning the constant-pool index to use for
// OP_DEFINE_GLOBAL when the declaration is global. A local declaration
// adds no constant and returns 0, which defineVariable ignores.
func (p *Parser) parseVariableName(errMsg string, isConst bool) uint32 {
	p.consume(token.IDENT, errMsg)
	name := p.previous.Lexeme
	if p.cur.scopeDepth > 0 {
		p.declareVariable(name, isConst)
		return 0
	}
	if isConst {
		if p.constGlobals == nil {
			p.constGlobals = make(map[string]bool)
		}
		p.constGlobals[name] = true
	}
	return p.identifierConstant(name)
}

func (p *Parser) defineVariable(globalIdx uint32) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitIndexOp(chunk.OpDefineGlobal, chunk.OpDefineGlobalLong, globalIdx)
}

// varDeclaration compiles both `var` and `const` declarations (spec
// §4.3.3): declare the name, compile the initializer (or push nil), then
// either mark the local initialized or emit OP_DEFINE_GLOBAL.
func (p *Parser) varDeclaration(isConst bool) {
	globalIdx := p.parseVariableName("Expect variable name.", isConst)

	if p.match(token.EQUAL) {
		p.expression()
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	p.defineVariable(globalIdx)
}

// funDeclaration compiles `fun name(params){body}`. The binding is
// declared and marked initialized before the body is compiled so the
// function can call itself recursively by name (spec §4.3.3).
func (p *Parser) funDeclaration() {
	globalIdx := p.parseVariableName("Expect function name.", false)
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
	}
	p.function(p.previous.Lexeme)
	p.defineVariable(globalIdx)
}

// function compiles the parameter list and body of a function literal
// into a brand-new funcState, then emits OP_CLOSURE (plus its trailing
// upvalue descriptor pairs) into the enclosing function's chunk.
func (p *Parser) function(name string) {
	fn := chunk.NewFunction(name)
	p.cur = &funcState{enclosing: p.cur, function: fn}
	p.beginScope()

	p.consume(token.LPAREN, "Expect '(' after function name.")
	if !p.check(token.RPAREN) {
		for {
			fn.Arity++
			if fn.Arity > maxParamsOrArgs {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			p.consume(token.IDENT, "Expect parameter name.")
			p.declareVariable(p.previous.Lexeme, true)
			p.markInitialized()
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before function body.")
	p.block()

	compiled := p.endFuncState()
	idx := p.makeConstant(value.FromObj(compiled))
	if idx > 255 {
		p.errorAtPrevious("Too many constants in one chunk.")
	}
	p.emitOp(chunk.OpClosure)
	p.emitByte(byte(idx))
	for _, uv := range compiled.Upvalues {
		p.emitByte(boolByte(uv.IsLocal))
		p.emitByte(byte(uv.Index))
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (p *Parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.SWITCH):
		p.switchStatement()
	case p.match(token.BREAK):
		p.breakStatement()
	case p.match(token.CONTINUE):
		p.continueStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after value.")
	p.emitOp(chunk.OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(chunk.OpPop)
}

func (p *Parser) returnStatement() {
	if p.cur.isScript {
		p.errorAtPrevious("Can't return from top-level code.")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(chunk.OpReturn)
}

func (p *Parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitOp(chunk.OpPop)
	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) pushLoop(continueTarget int) {
	p.cur.loops = append(p.cur.loops, loopCtx{continueTarget: continueTarget, entryDepth: p.cur.scopeDepth})
}

// popLoopAndPatchBreaks patches every break-jump recorded against the
// innermost loop and pops it off the loop stack.
func (p *Parser) popLoopAndPatchBreaks() {
	fs := p.cur
	top := fs.loops[len(fs.loops)-1]
	for _, j := range top.breakJumps {
		p.patchJump(j)
	}
	fs.loops = fs.loops[:len(fs.loops)-1]
}

func (p *Parser) whileStatement() {
	loopStart := p.currentChunk().Len()
	p.pushLoop(loopStart)

	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()
	p.emitLoop(chunk.OpJump, loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.OpPop)
	p.popLoopAndPatchBreaks()
}

// forStatement desugars `for (init; cond; incr) body` in place, per
// spec §4.3.3: the increment, when present, runs after the body and
// before the next condition test, and is also where `continue` jumps to.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration(false)
	default:
		p.expressionStatement()
	}

	conditionStart := p.currentChunk().Len()
	p.pushLoop(conditionStart)

	exitJump := -1
	if !p.check(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitOp(chunk.OpPop)
	} else {
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
	}

	loopStart := conditionStart
	if !p.check(token.RPAREN) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrementStart := p.currentChunk().Len()
		p.expression()
		p.emitOp(chunk.OpPop)
		p.consume(token.RPAREN, "Expect ')' after for clauses.")

		p.emitLoop(chunk.OpJump, conditionStart)
		p.patchJump(bodyJump)
		loopStart = incrementStart
		p.cur.loops[len(p.cur.loops)-1].continueTarget = incrementStart
	} else {
		p.consume(token.RPAREN, "Expect ')' after for clauses.")
	}

	p.statement()
	p.emitLoop(chunk.OpJump, loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.OpPop)
	}
	p.popLoopAndPatchBreaks()
	p.endScope()
}

const maxSwitchCases = 128

// switchStatement compiles the discriminant into a hidden local so every
// case can re-read it without re-evaluating side effects, then chains
// each case's equality test to the next (spec §4.3.3).
func (p *Parser) switchStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'switch'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after switch discriminant.")
	p.consume(token.LBRACE, "Expect '{' before switch body.")

	p.beginScope()
	p.addLocal("", false)
	p.markInitialized()
	discriminant := len(p.cur.locals) - 1

	var endJumps []int
	pendingNextCase := -1
	caseCount := 0
	hadDefault := false

	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		switch {
		case p.match(token.CASE):
			if hadDefault {
				p.errorAtPrevious("Can't have a case after the default case.")
			}
			caseCount++
			if caseCount > maxSwitchCases {
				p.errorAtPrevious("Too many cases in switch statement.")
			}
			if pendingNextCase != -1 {
				p.patchJump(pendingNextCase)
				p.emitOp(chunk.OpPop)
				pendingNextCase = -1
			}
			p.emitIndexOp(chunk.OpGetLocal, chunk.OpGetLocalLong, uint32(discriminant))
			p.parseCaseLiteral()
			p.emitOp(chunk.OpEqual)
			p.consume(token.COLON, "Expect ':' after case value.")

			pendingNextCase = p.emitJump(chunk.OpJumpIfFalse)
			p.emitOp(chunk.OpPop)
			for !p.check(token.CASE) && !p.check(token.DEFAULT) && !p.check(token.RBRACE) && !p.check(token.EOF) {
				p.statement()
			}
			endJumps = append(endJumps, p.emitJump(chunk.OpJump))
		case p.match(token.DEFAULT):
			if hadDefault {
				p.errorAtPrevious("Switch statement can only have one default case.")
			}
			hadDefault = true
			p.consume(token.COLON, "Expect ':' after 'default'.")
			if pendingNextCase != -1 {
				p.patchJump(pendingNextCase)
				p.emitOp(chunk.OpPop)
				pendingNextCase = -1
			}
			for !p.check(token.CASE) && !p.check(token.DEFAULT) && !p.check(token.RBRACE) && !p.check(token.EOF) {
				p.statement()
			}
		default:
			p.errorAtCurrent("Expect 'case' or 'default'.")
			p.advance()
		}
	}
	p.consume(token.RBRACE, "Expect '}' after switch body.")

	if pendingNextCase != -1 {
		p.patchJump(pendingNextCase)
		p.emitOp(chunk.OpPop)
	}
	for _, j := range endJumps {
		p.patchJump(j)
	}
	p.endScope()
}

// parseCaseLiteral compiles a `case` value, which per the grammar is
// restricted to a literal (spec §4.3.1's Case production).
func (p *Parser) parseCaseLiteral() {
	switch {
	case p.match(token.NUMBER):
		number(p, false)
	case p.match(token.STRING):
		stringLiteral(p, false)
	case p.match(token.TRUE), p.match(token.FALSE), p.match(token.NIL):
		literal(p, false)
	default:
		p.errorAtCurrent("Expect literal case value.")
		p.advance()
	}
}

func (p *Parser) breakStatement() {
	n := p.loopLabel()
	p.consume(token.SEMICOLON, "Expect ';' after 'break'.")
	idx, ok := p.resolveLoopLabel(n, "break")
	if !ok {
		return
	}
	p.emitLoopExitPops(idx)
	jump := p.emitJump(chunk.OpJump)
	p.cur.loops[idx].breakJumps = append(p.cur.loops[idx].breakJumps, jump)
}

func (p *Parser) continueStatement() {
	n := p.loopLabel()
	p.consume(token.SEMICOLON, "Expect ';' after 'continue'.")
	idx, ok := p.resolveLoopLabel(n, "continue")
	if !ok {
		return
	}
	p.emitLoopExitPops(idx)
	p.emitLoop(chunk.OpJump, p.cur.loops[idx].continueTarget)
}

// loopLabel parses the optional integer label on break/continue,
// defaulting to 1 (the innermost loop).
func (p *Parser) loopLabel() int {
	if !p.match(token.NUMBER) {
		return 1
	}
	n, err := strconv.Atoi(p.previous.Lexeme)
	if err != nil {
		p.errorAtPrevious("Loop label must be a positive integer.")
		return 1
	}
	return n
}

// resolveLoopLabel maps a 1-based, innermost-first loop label to an
// index into the current function's loop stack.
func (p *Parser) resolveLoopLabel(n int, kind string) (int, bool) {
	fs := p.cur
	if len(fs.loops) == 0 {
		p.errorAtPrevious(fmt.Sprintf("Can't %s outside of a loop.", kind))
		return 0, false
	}
	if n < 1 || n > len(fs.loops) {
		p.errorAtPrevious(fmt.Sprintf("Can't %s %d levels; only %d enclosing loop(s).", kind, n, len(fs.loops)))
		return 0, false
	}
	return len(fs.loops) - n, true
}
