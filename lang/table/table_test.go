package table_test

import (
	"hash/fnv"
	"testing"

	"github.com/loxlang/loxvm/lang/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// strKey is a minimal table.Key used to exercise the table in isolation
// from the value package.
type strKey struct {
	s string
	h uint32
}

func newStrKey(s string) strKey {
	f := fnv.New32a()
	_, _ = f.Write([]byte(s))
	return strKey{s: s, h: f.Sum32()}
}

func (k strKey) KeyHash() uint32  { return k.h }
func (k strKey) KeyBytes() []byte { return []byte(k.s) }

func TestSetGetDelete(t *testing.T) {
	tbl := table.New[strKey, int]()

	isNew := tbl.Set(newStrKey("a"), 1)
	assert.True(t, isNew)
	isNew = tbl.Set(newStrKey("b"), 2)
	assert.True(t, isNew)

	v, ok := tbl.Get(newStrKey("a"))
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// overwrite is not a new key
	isNew = tbl.Set(newStrKey("a"), 10)
	assert.False(t, isNew)
	v, ok = tbl.Get(newStrKey("a"))
	require.True(t, ok)
	assert.Equal(t, 10, v)

	assert.Equal(t, 2, tbl.Len())

	removed := tbl.Delete(newStrKey("a"))
	assert.True(t, removed)
	assert.Equal(t, 1, tbl.Len())

	_, ok = tbl.Get(newStrKey("a"))
	assert.False(t, ok)

	// deleting again is a no-op
	assert.False(t, tbl.Delete(newStrKey("a")))
}

func TestGrowthPreservesEntries(t *testing.T) {
	tbl := table.New[strKey, int]()
	const n = 500
	for i := 0; i < n; i++ {
		tbl.Set(newStrKey(keyName(i)), i)
	}
	require.Equal(t, n, tbl.Len())
	for i := 0; i < n; i++ {
		v, ok := tbl.Get(newStrKey(keyName(i)))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestTombstoneProbingDoesNotBreakChain(t *testing.T) {
	tbl := table.New[strKey, int]()
	// force several keys into the table then delete one in the middle of a
	// probe chain to make sure lookups for later entries still succeed.
	keys := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for i, k := range keys {
		tbl.Set(newStrKey(k), i)
	}
	tbl.Delete(newStrKey("beta"))
	for i, k := range keys {
		if k == "beta" {
			continue
		}
		v, ok := tbl.Get(newStrKey(k))
		require.True(t, ok, k)
		assert.Equal(t, i, v)
	}
}

func TestFindStringByRawBytes(t *testing.T) {
	tbl := table.New[strKey, strKey]()
	k := newStrKey("shared")
	tbl.Set(k, k)

	found, ok := tbl.FindString(k.KeyHash(), []byte("shared"))
	require.True(t, ok)
	assert.Equal(t, k, found)

	_, ok = tbl.FindString(newStrKey("missing").KeyHash(), []byte("missing"))
	assert.False(t, ok)
}

func keyName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return string([]byte{letters[i%26], letters[(i/26)%26], letters[(i/676)%26]})
}
