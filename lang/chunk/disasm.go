package chunk

import (
	"fmt"
	"io"

	"github.com/loxlang/loxvm/lang/value"
)

// Disassemble writes a human-readable listing of every instruction in c to
// w, labeled with name. The chunks of nested functions referenced by
// OP_CLOSURE are not listed. Used by tests that assert on compiler output
// shape.
func (c *Chunk) Disassemble(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = c.disassembleInstruction(w, offset)
	}
}

// disassembleInstruction prints the instruction at offset and returns the
// offset of the next instruction.
func (c *Chunk) disassembleInstruction(w io.Writer, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	line := c.LineAt(offset)
	if offset > 0 && line == c.LineAt(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := Op(c.ReadByte(offset))
	switch {
	case op.IsJump():
		return c.jumpInstruction(w, op, offset)
	case op.IsLong():
		return c.longInstruction(w, op, offset)
	case op == OpConstant, op == OpGetLocal, op == OpSetLocal, op == OpGetGlobal,
		op == OpDefineGlobal, op == OpSetGlobal, op == OpGetUpvalue, op == OpSetUpvalue:
		return c.byteInstruction(w, op, offset)
	case op == OpCall:
		return c.byteInstruction(w, op, offset)
	case op == OpClosure:
		return c.closureInstruction(w, offset)
	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

func (c *Chunk) byteInstruction(w io.Writer, op Op, offset int) int {
	idx := c.ReadByte(offset + 1)
	extra := ""
	if op == OpConstant {
		extra = fmt.Sprintf(" ; %s", c.ConstantAt(uint32(idx)))
	}
	fmt.Fprintf(w, "%-20s %4d%s\n", op, idx, extra)
	return offset + 2
}

func (c *Chunk) longInstruction(w io.Writer, op Op, offset int) int {
	idx := c.ReadUint32(offset + 1)
	extra := ""
	if op == OpConstantLong {
		extra = fmt.Sprintf(" ; %s", c.ConstantAt(idx))
	}
	fmt.Fprintf(w, "%-20s %4d%s\n", op, idx, extra)
	return offset + 5
}

// closureInstruction prints OP_CLOSURE along with its trailing
// (is-local, index) descriptor pairs, one per upvalue the function
// captures; its length in the code stream depends on that count, which is
// only known by inspecting the function constant it refers to.
func (c *Chunk) closureInstruction(w io.Writer, offset int) int {
	idx := c.ReadByte(offset + 1)
	fn, ok := value.Is[*Function](c.ConstantAt(uint32(idx)))
	fmt.Fprintf(w, "%-20s %4d ; %s\n", OpClosure, idx, c.ConstantAt(uint32(idx)))
	next := offset + 2
	if !ok {
		return next
	}
	for range fn.Upvalues {
		isLocal := c.ReadByte(next)
		index := c.ReadByte(next + 1)
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", next, kind, index)
		next += 2
	}
	return next
}

func (c *Chunk) jumpInstruction(w io.Writer, op Op, offset int) int {
	rel := int16(c.ReadUint16(offset + 1))
	target := offset + 3 + int(rel)
	fmt.Fprintf(w, "%-20s %4d -> %d\n", op, offset, target)
	return offset + 3
}
