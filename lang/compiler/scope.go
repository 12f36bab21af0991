package compiler

import (
	"github.com/loxlang/loxvm/lang/chunk"
)

// local tracks one slot of a function's stack frame during compilation.
type local struct {
	name       string
	depth      int // -1 while its initializer is still being compiled
	isConst    bool
	isCaptured bool
}

// compUpvalue is the compile-time twin of chunk.UpvalueDesc, with the
// extra const-ness bit the runtime doesn't need to know about.
type compUpvalue struct {
	isLocal bool
	index   uint32
	isConst bool
}

// loopCtx is the per-loop bookkeeping needed to compile break/continue:
// where `continue` should jump to, the scope depth a `break`/`continue`
// must unwind back to, and the still-unpatched `break` jump offsets.
type loopCtx struct {
	continueTarget int
	entryDepth     int
	breakJumps     []int
}

// funcState holds everything the compiler tracks while compiling one
// function body: its locals, its upvalues, its loop stack, and a link to
// the function lexically enclosing it (nil for the top-level script).
type funcState struct {
	enclosing *funcState
	function  *chunk.Function
	isScript  bool

	locals     []local
	scopeDepth int
	upvalues   []compUpvalue
	loops      []loopCtx
}

func (p *Parser) beginScope() { p.cur.scopeDepth++ }

// endScope pops every local declared in the scope just closed, emitting
// OP_POP for an ordinary local or OP_CLOSE_UPVALUE for one captured by a
// nested closure, so the runtime stack always ends up at the depth the
// compiler expects (spec's block code-gen rule).
func (p *Parser) endScope() {
	fs := p.cur
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		last := fs.locals[len(fs.locals)-1]
		if last.isCaptured {
			p.emitOp(chunk.OpCloseUpvalue)
		} else {
			p.emitOp(chunk.OpPop)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

const maxLocals = 256
const maxUpvalues = 256
const maxParamsOrArgs = 255

// declareVariable registers name as a new local slot in the current
// scope. At depth 0 it does nothing: globals are defined by the caller's
// OP_DEFINE_GLOBAL instead. Redeclaring a name already present in the same
// scope is a compile error.
func (p *Parser) declareVariable(name string, isConst bool) {
	fs := p.cur
	if fs.scopeDepth == 0 {
		return
	}
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth != -1 && l.depth < fs.scopeDepth {
			break
		}
		if l.name == name {
			p.errorAtPrevious("Already a variable with this name in this scope.")
			return
		}
	}
	p.addLocal(name, isConst)
}

func (p *Parser) addLocal(name string, isConst bool) {
	fs := p.cur
	if len(fs.locals) >= maxLocals {
		p.errorAtPrevious("Too many local variables in function.")
		return
	}
	fs.locals = append(fs.locals, local{name: name, depth: -1, isConst: isConst})
}

// markInitialized marks the most recently declared local as usable,
// transitioning it out of the "depth -1" sentinel that flags a variable
// whose own initializer is still compiling. A no-op at global scope.
func (p *Parser) markInitialized() {
	fs := p.cur
	if fs.scopeDepth == 0 {
		return
	}
	fs.locals[len(fs.locals)-1].depth = fs.scopeDepth
}

// resolveLocal searches fs's locals back-to-front for name, matching the
// spec's "most recently declared wins" shadowing rule.
func resolveLocal(p *Parser, fs *funcState, name string) (idx int, isConst, found bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				p.errorAtPrevious("Can't read local variable in its own initializer.")
			}
			return i, fs.locals[i].isConst, true
		}
	}
	return 0, false, false
}

// resolveUpvalue implements the critical upvalue-resolution algorithm of
// spec §4.3.5: look for name as a local of the immediately enclosing
// function (capturing it), else recurse outward so transitive captures
// thread an upvalue through every intermediate function.
func resolveUpvalue(p *Parser, fs *funcState, name string) (idx uint32, isConst, found bool) {
	if fs.enclosing == nil {
		return 0, false, false
	}
	if localIdx, isConst, ok := resolveLocal(p, fs.enclosing, name); ok {
		fs.enclosing.locals[localIdx].isCaptured = true
		return p.addUpvalue(fs, true, uint32(localIdx), isConst), isConst, true
	}
	if up, isConst, ok := resolveUpvalue(p, fs.enclosing, name); ok {
		return p.addUpvalue(fs, false, up, isConst), isConst, true
	}
	return 0, false, false
}

// addUpvalue reuses an existing upvalue slot with the same (isLocal,
// index) pair if one exists, otherwise appends a new one.
func (p *Parser) addUpvalue(fs *funcState, isLocal bool, index uint32, isConst bool) uint32 {
	for i, u := range fs.upvalues {
		if u.isLocal == isLocal && u.index == index {
			return uint32(i)
		}
	}
	if len(fs.upvalues) >= maxUpvalues {
		p.errorAtPrevious("Too many closure variables in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, compUpvalue{isLocal: isLocal, index: index, isConst: isConst})
	return uint32(len(fs.upvalues) - 1)
}

// emitLoopExitPops emits the scope-exit instructions a break or continue
// targeting current.loops[idx] must execute, WITHOUT popping them from
// the compiler's own locals bookkeeping — control resumes compiling
// whatever statement follows the break/continue in source order, and that
// code still needs the normal (unsimulated) view of the active locals.
func (p *Parser) emitLoopExitPops(idx int) {
	fs := p.cur
	target := fs.loops[idx]
	for i := len(fs.locals) - 1; i >= 0 && fs.locals[i].depth > target.entryDepth; i-- {
		if fs.locals[i].isCaptured {
			p.emitOp(chunk.OpCloseUpvalue)
		} else {
			p.emitOp(chunk.OpPop)
		}
	}
}
