package value

import (
	"fmt"
	"hash/fnv"
	"io"

	"github.com/loxlang/loxvm/lang/table"
)

// Obj is implemented by every heap-allocated Lox value: strings,
// functions, closures, upvalues and natives. Concrete object types live in
// this package (ObjString, ObjNative) or in lang/chunk (Function, Closure,
// Upvalue), which can implement Obj without this package importing it
// back.
type Obj interface {
	// String returns the value's display representation.
	String() string
	// Type returns a short type name, used in error messages.
	Type() string
}

// ObjHeader is embedded by every concrete Obj so the Heap can thread them
// into a single intrusive list, mirroring the spec's object-graph model.
// Go's garbage collector is what actually reclaims memory; this list
// exists so the heap can enumerate its own object graph (used by tests),
// not for manual deallocation. It is
// exported so object kinds defined in other packages (lang/chunk's
// Function, Closure, Upvalue) can embed it too.
type ObjHeader struct {
	next Obj
}

func (h *ObjHeader) setNext(o Obj) { h.next = o }
func (h *ObjHeader) getNext() Obj  { return h.next }

// linkable is implemented by any type embedding ObjHeader.
type linkable interface {
	setNext(Obj)
	getNext() Obj
}

// An ObjString is an immutable, interned run of bytes. Equal content
// always yields the same *ObjString, so string equality is reference
// equality.
type ObjString struct {
	ObjHeader
	chars string
	hash  uint32
}

var _ Obj = (*ObjString)(nil)
var _ = table.New[*ObjString, *ObjString] // *ObjString satisfies table.Key

func (s *ObjString) String() string   { return s.chars }
func (s *ObjString) Type() string     { return "string" }
func (s *ObjString) Len() int         { return len(s.chars) }
func (s *ObjString) KeyHash() uint32  { return s.hash }
func (s *ObjString) KeyBytes() []byte { return []byte(s.chars) }

func fnv1a(b []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(b)
	return h.Sum32()
}

// NativeContext is the minimal surface a native function needs from the
// VM: where to write output. Kept as a tiny interface here, rather than
// depending on the vm package, so value stays a leaf package; *vm.VM
// implements it structurally.
type NativeContext interface {
	Stdout() io.Writer
}

// NativeFunc is the signature of a builtin. It returns the resulting
// value and whether the call succeeded; on failure (false) the VM raises
// the runtime error "Call to native 'NAME' failed." (spec §4.4.3).
type NativeFunc func(ctx NativeContext, args []Value) (Value, bool)

// Variadic is the arity sentinel for natives that accept any number of
// arguments (printf, dump).
const Variadic = -1

// An ObjNative wraps a builtin Go function so it can be called like any
// other Lox callable.
type ObjNative struct {
	ObjHeader
	Name  string
	Arity int // Variadic for any argument count
	Fn    NativeFunc
}

var _ Obj = (*ObjNative)(nil)

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *ObjNative) Type() string   { return "native" }

// Heap owns every object allocated while running a program: the
// intrusive object list (for introspection) and the string-intern table.
type Heap struct {
	head    Obj
	strings *table.Table[*ObjString, *ObjString]
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{strings: table.New[*ObjString, *ObjString]()}
}

// Track links obj into the heap's object list. Every heap-allocated
// object must be tracked exactly once, right after allocation.
func (h *Heap) Track(obj Obj) {
	if l, ok := obj.(linkable); ok {
		l.setNext(h.head)
	}
	h.head = obj
}

// Objects returns every object currently tracked by the heap, in
// reverse insertion order (most recently tracked first), for diagnostics.
func (h *Heap) Objects() []Obj {
	var all []Obj
	for o := h.head; o != nil; {
		all = append(all, o)
		l, ok := o.(linkable)
		if !ok {
			break
		}
		o = l.getNext()
	}
	return all
}

// InternString returns the canonical *ObjString for the given content,
// allocating and tracking a new one only if content hasn't been seen
// before. This is the only way ObjStrings should be constructed, so that
// the invariant "equal content implies same reference" holds everywhere.
func (h *Heap) InternString(content string) *ObjString {
	hash := fnv1a([]byte(content))
	if existing, ok := h.strings.FindString(hash, []byte(content)); ok {
		return existing
	}
	s := &ObjString{chars: content, hash: hash}
	h.Track(s)
	h.strings.Set(s, s)
	return s
}
