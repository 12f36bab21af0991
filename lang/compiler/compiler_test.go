package compiler_test

import (
	"bytes"
	"testing"

	"github.com/loxlang/loxvm/lang/chunk"
	"github.com/loxlang/loxvm/lang/compiler"
	"github.com/loxlang/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disasm(t *testing.T, src string) string {
	t.Helper()
	heap := value.NewHeap()
	fn, err := compiler.Compile(src, heap)
	require.NoError(t, err)
	var buf bytes.Buffer
	fn.Chunk.Disassemble(&buf, "test")
	return buf.String()
}

func TestArithmeticPrecedence(t *testing.T) {
	out := disasm(t, "print 1 + 2 * 3;")
	assert.Contains(t, out, "OP_MULTIPLY")
	assert.Contains(t, out, "OP_ADD")
	assert.Contains(t, out, "OP_PRINT")
}

func TestComparisonLoweredToPrimitivePlusNot(t *testing.T) {
	out := disasm(t, "print 1 != 2;")
	assert.Contains(t, out, "OP_EQUAL")
	assert.Contains(t, out, "OP_NOT")
}

func TestVarDeclarationEmitsGlobalDefine(t *testing.T) {
	out := disasm(t, "var x = 1;")
	assert.Contains(t, out, "OP_DEFINE_GLOBAL")
}

func TestConstAssignmentIsCompileError(t *testing.T) {
	_, err := compiler.Compile("{ const x = 1; x = 2; }", value.NewHeap())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "const")
}

func TestRedeclarationInSameScopeIsError(t *testing.T) {
	_, err := compiler.Compile("{ var x = 1; var x = 2; }", value.NewHeap())
	require.Error(t, err)
}

func TestReadingOwnInitializerIsError(t *testing.T) {
	_, err := compiler.Compile("{ var x = x; }", value.NewHeap())
	require.Error(t, err)
}

func TestReturnAtTopLevelIsError(t *testing.T) {
	_, err := compiler.Compile("return 1;", value.NewHeap())
	require.Error(t, err)
}

func TestBreakOutsideLoopIsError(t *testing.T) {
	_, err := compiler.Compile("break;", value.NewHeap())
	require.Error(t, err)
}

func TestBreakLabelOutOfRangeIsError(t *testing.T) {
	_, err := compiler.Compile("while (true) { break 2; }", value.NewHeap())
	require.Error(t, err)
}

func TestClosureEmitsOpClosureWithUpvaluePairs(t *testing.T) {
	src := `
fun makeCounter() {
  var i = 0;
  fun count() { i = i + 1; return i; }
  return count;
}`
	fn, err := compiler.Compile(src, value.NewHeap())
	require.NoError(t, err)
	// count's OP_CLOSURE and its upvalue pair live in makeCounter's chunk.
	var makeCounter *chunk.Function
	for _, c := range fn.Chunk.Constants {
		if f, ok := value.Is[*chunk.Function](c); ok {
			makeCounter = f
		}
	}
	require.NotNil(t, makeCounter)
	var buf bytes.Buffer
	makeCounter.Chunk.Disassemble(&buf, "makeCounter")
	out := buf.String()
	assert.Contains(t, out, "OP_CLOSURE")
	assert.Contains(t, out, "local")
}

func TestForLoopDesugaring(t *testing.T) {
	out := disasm(t, "for (var i = 0; i < 5; i = i + 1) { print i; }")
	assert.Contains(t, out, "OP_GET_LOCAL")
	assert.Contains(t, out, "OP_JUMP_IF_FALSE")
	assert.Contains(t, out, "OP_JUMP")
}

func TestSwitchCompilesCasesAndDefault(t *testing.T) {
	src := `
switch (1) {
  case 1: print "one";
  case 2: print "two";
  default: print "other";
}`
	out := disasm(t, src)
	assert.Contains(t, out, "OP_EQUAL")
	assert.Contains(t, out, "OP_GET_LOCAL")
}

func TestDuplicateDefaultIsError(t *testing.T) {
	src := `switch (1) { default: print 1; default: print 2; }`
	_, err := compiler.Compile(src, value.NewHeap())
	require.Error(t, err)
}

func TestInvalidAssignmentTargetIsError(t *testing.T) {
	_, err := compiler.Compile("1 + 2 = 3;", value.NewHeap())
	require.Error(t, err)
}

func TestTernaryRightAssociative(t *testing.T) {
	out := disasm(t, "print true ? 1 : false ? 2 : 3;")
	assert.Contains(t, out, "OP_JUMP_IF_FALSE")
}

func TestStringLiteralStripsQuotesAndInterns(t *testing.T) {
	heap := value.NewHeap()
	fn, err := compiler.Compile(`print "hi";`, heap)
	require.NoError(t, err)
	found := false
	for _, c := range fn.Chunk.Constants {
		if s, ok := value.Is[*value.ObjString](c); ok && s.String() == "hi" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMultipleErrorsAreAccumulatedViaPanicModeRecovery(t *testing.T) {
	src := "var ; var ;"
	_, err := compiler.Compile(src, value.NewHeap())
	require.Error(t, err)
	errs, ok := err.(compiler.ErrorList)
	require.True(t, ok)
	assert.Len(t, errs, 2)
}
