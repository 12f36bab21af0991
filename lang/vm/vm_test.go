package vm_test

import (
	"bytes"
	"testing"

	"github.com/loxlang/loxvm/lang/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	m := vm.New(&outBuf, &errBuf)
	err = m.Interpret(src)
	return outBuf.String(), errBuf.String(), err
}

func TestArithmeticPrecedence(t *testing.T) {
	out, _, err := run(t, "print 1 + 2 * 3;")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	out, _, err = run(t, "print (1 + 2) * 3;")
	require.NoError(t, err)
	assert.Equal(t, "9\n", out)
}

func TestClosuresCaptureByReference(t *testing.T) {
	src := `
fun makeCounter() {
  var i = 0;
  fun count() { i = i + 1; return i; }
  return count;
}
var c = makeCounter();
print c(); print c(); print c();`
	out, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestBreakToOuterLoop(t *testing.T) {
	src := `
var i = 0;
while (i < 10) {
  var j = 0;
  while (j < 10) {
    if (j == 3) break 2;
    j = j + 1;
  }
  i = i + 1;
}
print i; print j;`
	out, stderr, err := run(t, src)
	assert.Equal(t, "0\n", out)
	require.Error(t, err)
	assert.Contains(t, stderr, "RuntimeError")
	assert.Contains(t, stderr, "Undefined variable 'j'")
}

func TestForLoopContinueStillRunsIncrement(t *testing.T) {
	src := `
for (var i = 0; i < 5; i = i + 1) {
  if (i == 2) continue;
  print i;
}`
	out, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n3\n4\n", out)
}

func TestStringInterningAndConcatenation(t *testing.T) {
	out, _, err := run(t, `print "foo" + "bar" == "foobar";`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, stderr, err := run(t, "print zzz;")
	require.Error(t, err)
	assert.Contains(t, stderr, "RuntimeError: Undefined variable 'zzz'.")
	assert.Contains(t, stderr, "[line 1] in script")
}

func TestVMReusableAcrossInterpretCallsAfterRuntimeError(t *testing.T) {
	m := vm.New(&bytes.Buffer{}, &bytes.Buffer{})
	err := m.Interpret("print zzz;")
	require.Error(t, err)

	var out bytes.Buffer
	m2 := vm.New(&out, &bytes.Buffer{})
	err = m2.Interpret("print zzz;")
	require.Error(t, err)
	err = m2.Interpret("print 1 + 1;")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out.String())
}

func TestSubtractingStringOperandIsTypeError(t *testing.T) {
	_, stderr, err := run(t, `print "a" - 1;`)
	require.Error(t, err)
	assert.Contains(t, stderr, "Operands must be numbers.")
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	_, stderr, err := run(t, `var x = 1; x();`)
	require.Error(t, err)
	assert.Contains(t, stderr, "Can only call functions and classes.")
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, stderr, err := run(t, `fun f(a, b) { return a + b; } f(1);`)
	require.Error(t, err)
	assert.Contains(t, stderr, "Expected 2 arguments but got 1.")
}

func TestNativeAssertAndTostring(t *testing.T) {
	out, _, err := run(t, `print tostring(1 + 1); assert(true); print "ok";`)
	require.NoError(t, err)
	assert.Equal(t, "2\nok\n", out)

	_, stderr, err := run(t, `assert(false);`)
	require.Error(t, err)
	assert.Contains(t, stderr, "Call to native 'assert' failed.")
}

func TestRecursiveFunctionCallsItself(t *testing.T) {
	src := `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);`
	out, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "55\n", out)
}

func TestSwitchFirstMatchingCaseWins(t *testing.T) {
	src := `
switch (2) {
  case 1: print "one";
  case 2: print "two";
  default: print "other";
}`
	out, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "two\n", out)
}

func TestConstAssignmentIsCompileErrorNotRuntime(t *testing.T) {
	_, _, err := run(t, "const x = 1; x = 2;")
	require.Error(t, err)
}

func TestConstGlobalReassignmentInsideFunctionIsCompileError(t *testing.T) {
	_, _, err := run(t, "const x = 1; fun f() { x = 2; } f();")
	require.Error(t, err)
}

func TestFailedSwitchCaseLeavesNoStackResidue(t *testing.T) {
	src := `
fun f() {
  switch (0) { case 9: print "x"; }
  var y = 42;
  print y;
}
f();`
	out, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestFailedSwitchCaseInLoopDoesNotLeakStackSlots(t *testing.T) {
	src := `
for (var i = 0; i < 2000; i = i + 1) {
  switch (i) { case 2000: print "never"; }
}
print "done";`
	out, _, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
}
