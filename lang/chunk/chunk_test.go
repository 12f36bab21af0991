package chunk_test

import (
	"bytes"
	"testing"

	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadBack(t *testing.T) {
	c := chunk.New()
	c.WriteOp(chunk.OpNil, 1)
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(0, 1)
	c.WriteOp(chunk.OpReturn, 2)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, byte(chunk.OpNil), c.ReadByte(0))
	assert.Equal(t, 1, c.LineAt(0))
	assert.Equal(t, 1, c.LineAt(2))
	assert.Equal(t, 2, c.LineAt(3))
}

func TestAddConstantDeduplicatesLinearly(t *testing.T) {
	c := chunk.New()
	i1 := c.AddConstant(value.Number(1))
	i2 := c.AddConstant(value.Number(2))
	i3 := c.AddConstant(value.Number(1))
	assert.Equal(t, i1, i3)
	assert.NotEqual(t, i1, i2)
	assert.Len(t, c.Constants, 2)
}

func TestUint32RoundTrip(t *testing.T) {
	c := chunk.New()
	c.WriteUint32(0x01020304, 1)
	assert.Equal(t, uint32(0x01020304), c.ReadUint32(0))
}

func TestJumpPatchingComputesRelativeOffset(t *testing.T) {
	c := chunk.New()
	c.WriteOp(chunk.OpNil, 1)
	at := c.EmitJump(chunk.OpJump, 1)
	c.WriteOp(chunk.OpPop, 2) // filler so target != patch site
	c.WriteOp(chunk.OpPop, 2)
	require.NoError(t, c.PatchJump(at))

	rel := int16(c.ReadUint16(at))
	target := at + 2 + int(rel)
	assert.Equal(t, c.Len(), target)
}

func TestJumpOutOfRangeIsRejected(t *testing.T) {
	c := chunk.New()
	at := c.EmitJump(chunk.OpJump, 1)
	for i := 0; i < 40000; i++ {
		c.WriteOp(chunk.OpPop, 1)
	}
	err := c.PatchJump(at)
	require.Error(t, err)
	assert.Equal(t, "Can't jump this far.", err.Error())
}

func TestEmitLoopBackwardOffset(t *testing.T) {
	c := chunk.New()
	loopStart := c.Len()
	c.WriteOp(chunk.OpNil, 1)
	require.NoError(t, c.EmitLoop(chunk.OpJump, loopStart, 1))
}

func TestDisassembleProducesReadableListing(t *testing.T) {
	c := chunk.New()
	idx := c.AddConstant(value.Number(42))
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(chunk.OpReturn, 1)

	var buf bytes.Buffer
	c.Disassemble(&buf, "test")
	out := buf.String()
	assert.Contains(t, out, "== test ==")
	assert.Contains(t, out, "OP_CONSTANT")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "OP_RETURN")
}

func TestClosureObjectsWrapFunctions(t *testing.T) {
	fn := chunk.NewFunction("add")
	fn.Arity = 2
	fn.Upvalues = []chunk.UpvalueDesc{{IsLocal: true, Index: 0}}

	cl := chunk.NewClosure(fn)
	require.Len(t, cl.Upvalues, 1)
	assert.Equal(t, "<fn add>", fn.String())
	assert.Equal(t, "function", cl.Type())

	var slot value.Value = value.Number(7)
	up := chunk.NewOpenUpvalue(3, &slot)
	assert.True(t, up.IsOpen())
	assert.Equal(t, value.Number(7), up.Get())

	slot = value.Number(9)
	assert.Equal(t, value.Number(9), up.Get())

	up.Close()
	assert.False(t, up.IsOpen())
	slot = value.Number(100)
	assert.Equal(t, value.Number(9), up.Get())
}

func TestTopLevelScriptFunctionHasEmptyName(t *testing.T) {
	fn := chunk.NewFunction("")
	assert.Equal(t, "<script>", fn.String())
}
