package value_test

import (
	"testing"

	"github.com/loxlang/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	assert.False(t, value.Truthy(value.Nil))
	assert.False(t, value.Truthy(value.False))
	assert.True(t, value.Truthy(value.True))
	assert.True(t, value.Truthy(value.Number(0)))
	assert.True(t, value.Truthy(value.Number(-1)))
}

func TestEqualByKindThenContent(t *testing.T) {
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	assert.False(t, value.Equal(value.Nil, value.False))
	assert.True(t, value.Equal(value.Nil, value.Nil))
	assert.True(t, value.Equal(value.True, value.True))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2", value.FormatNumber(2))
	assert.Equal(t, "2.5", value.FormatNumber(2.5))
	assert.Equal(t, "-3", value.FormatNumber(-3))
}

func TestInterningSharesIdentity(t *testing.T) {
	h := value.NewHeap()
	a := h.InternString("hello")
	b := h.InternString("hello")
	assert.Same(t, a, b)

	av := value.FromObj(a)
	bv := value.FromObj(b)
	assert.True(t, value.Equal(av, bv))

	c := h.InternString("different")
	assert.NotSame(t, a, c)
}

func TestObjStringRoundTrip(t *testing.T) {
	h := value.NewHeap()
	s := h.InternString("abc")
	v := value.FromObj(s)
	require.True(t, v.IsObj())
	str, ok := value.Is[*value.ObjString](v)
	require.True(t, ok)
	assert.Equal(t, "abc", str.String())
	assert.Equal(t, "string", v.TypeName())
}

func TestHeapObjectsDiagnostic(t *testing.T) {
	h := value.NewHeap()
	h.InternString("a")
	h.InternString("b")
	h.InternString("a") // no new object
	assert.Len(t, h.Objects(), 2)
}
