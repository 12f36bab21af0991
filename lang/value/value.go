// Package value implements the Lox runtime value model: a small tagged
// union of nil, bool, number and heap-object references, plus the Obj
// interface every heap object implements, the string and native object
// kinds, and the heap with its intern table that gives equal-content
// strings a single shared identity. The Function, Closure and Upvalue
// object kinds are defined in lang/chunk.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which alternative of the tagged union a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// A Value is a small, copyable tagged union: nil, bool, number (an
// IEEE-754 double) or a reference to a heap Obj. Values are compared by
// kind then content; heap objects (strings included, because they are
// interned) compare by reference identity.
type Value struct {
	kind Kind
	num  float64 // holds the number, or 0/1 for bool
	obj  Obj
}

// Nil is the value of the `nil` literal.
var Nil = Value{kind: KindNil}

// True and False are the two bool values.
var (
	True  = Value{kind: KindBool, num: 1}
	False = Value{kind: KindBool, num: 0}
)

// Bool returns the Value for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number returns the Value wrapping the number n.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// FromObj returns the Value referencing the heap object o.
func FromObj(o Obj) Value { return Value{kind: KindObj, obj: o} }

// Kind returns which alternative v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsBool reports whether v holds a bool.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsObj reports whether v holds a heap object reference.
func (v Value) IsObj() bool { return v.kind == KindObj }

// AsBool returns the bool held by v. The caller must check IsBool first.
func (v Value) AsBool() bool { return v.num != 0 }

// AsNumber returns the number held by v. The caller must check IsNumber
// first.
func (v Value) AsNumber() float64 { return v.num }

// AsObj returns the heap object referenced by v. The caller must check
// IsObj first.
func (v Value) AsObj() Obj { return v.obj }

// Is reports whether v's heap object is of concrete type T, returning it.
func Is[T Obj](v Value) (T, bool) {
	var zero T
	if !v.IsObj() {
		return zero, false
	}
	t, ok := v.obj.(T)
	return t, ok
}

// Truthy implements Lox's truthiness rule: nil and false are falsey,
// everything else (including 0 and the empty string) is truthy.
func Truthy(v Value) bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// Equal compares two values by kind then content. Numbers compare by
// IEEE-754 equality, bools and nil by kind, and heap objects (including
// strings, which are interned) by reference identity.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool, KindNumber:
		return a.num == b.num
	case KindObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders v the way `print` and string conversion do.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return FormatNumber(v.num)
	case KindObj:
		return v.obj.String()
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.kind)
	}
}

// TypeName returns a short name for v's kind, used in runtime error
// messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObj:
		return v.obj.Type()
	default:
		return "invalid"
	}
}

// FormatNumber renders n using the shortest round-trip decimal
// representation, the idiomatic Go convention (spec's number-formatting
// open question, resolved in SPEC_FULL.md §13): integral values print
// without a trailing ".0" suffix (so `print 2;` prints "2", not "2.0"),
// matching Lox's usual `1 + 1` => `2` expectation.
func FormatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
