package chunk

import (
	"fmt"

	"github.com/loxlang/loxvm/lang/value"
)

// UpvalueDesc describes, for one upvalue slot of a Function, where the
// closure that wraps it should capture from: either a local slot of the
// immediately enclosing function's frame (IsLocal true), or one of the
// enclosing function's own upvalues (IsLocal false). The compiler builds
// this list during upvalue resolution (§4.3.5); OP_CLOSURE consumes it at
// runtime to populate a new Closure's upvalue array.
type UpvalueDesc struct {
	IsLocal bool
	Index   uint32
}

// A Function is the compiled, callable unit produced by the compiler for
// a top-level script or a `fun` body: a name (empty for the implicit
// top-level script function), its declared arity, the chunk holding its
// bytecode, and the list of upvalues it closes over. Function objects are
// allocated once at compile time and shared by every Closure built around
// them.
type Function struct {
	value.ObjHeader
	Name     string
	Arity    int
	Upvalues []UpvalueDesc
	Chunk    *Chunk
}

var _ value.Obj = (*Function)(nil)

// NewFunction returns an empty function ready to be compiled into.
func NewFunction(name string) *Function {
	return &Function{Name: name, Chunk: New()}
}

func (f *Function) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

func (f *Function) Type() string { return "function" }

// An Upvalue is a shared, possibly-relocatable reference to a variable
// captured by a closure. While open, Target points at a live stack slot
// owned by the frame that declared the variable; Close copies that slot's
// current value into the inline Closed field and switches Target to point
// at it, so the value survives the frame's return.
type Upvalue struct {
	value.ObjHeader
	Target *value.Value
	Closed value.Value
	// Slot is the absolute stack index Target addresses while open; it is
	// what the VM's open-upvalue list is kept sorted by, and what
	// close-upvalue compares against to decide which upvalues to close.
	Slot int
	open bool
}

var _ value.Obj = (*Upvalue)(nil)

// NewOpenUpvalue returns an upvalue referencing the live stack slot at
// absolute index slot.
func NewOpenUpvalue(slot int, target *value.Value) *Upvalue {
	return &Upvalue{Target: target, Slot: slot, open: true}
}

// IsOpen reports whether the upvalue still borrows into the stack.
func (u *Upvalue) IsOpen() bool { return u.open }

// Close copies the current value out of the stack slot the upvalue
// borrows and switches it to own that value inline, detaching it from the
// stack. Idempotent: closing an already-closed upvalue is a no-op.
func (u *Upvalue) Close() {
	if !u.open {
		return
	}
	u.Closed = *u.Target
	u.Target = &u.Closed
	u.open = false
}

// Get returns the upvalue's current value, whether open or closed.
func (u *Upvalue) Get() value.Value { return *u.Target }

// Set writes through the upvalue, whether open or closed.
func (u *Upvalue) Set(v value.Value) { *u.Target = v }

func (u *Upvalue) String() string { return "<upvalue>" }
func (u *Upvalue) Type() string   { return "upvalue" }

// A Closure pairs a Function with the concrete upvalues it captured when
// it was created by OP_CLOSURE. Every call target in the VM is a Closure,
// including the implicit one wrapping the top-level script (§4.4.1).
type Closure struct {
	value.ObjHeader
	Function *Function
	Upvalues []*Upvalue
}

var _ value.Obj = (*Closure)(nil)

// NewClosure returns a closure over fn with a freshly-allocated, empty
// upvalue array sized to fn's upvalue count. Callers populate Upvalues
// entry by entry as OP_CLOSURE's trailing descriptor pairs are processed.
func NewClosure(fn *Function) *Closure {
	return &Closure{Function: fn, Upvalues: make([]*Upvalue, len(fn.Upvalues))}
}

func (c *Closure) String() string { return c.Function.String() }
func (c *Closure) Type() string   { return "function" }
