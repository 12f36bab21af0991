// Package table implements the open-addressing hash table used for the
// VM's global variables and for the string-interning set. It is hand
// written against the exact algorithm in the design (linear probing,
// tombstones, FNV-1a hashing) because neither a generic Go map nor the
// swiss-table map used elsewhere in this module can answer "does a string
// with this content already exist?" without first allocating a key of the
// map's key type — and avoiding that allocation during interning is the
// entire point of this table (see DESIGN.md).
package table

import "bytes"

// Key is implemented by table keys. Keys are compared for table-slot
// purposes by Go's built-in identity/equality (the comparable constraint),
// and by content via KeyHash/KeyBytes when probing by raw bytes (used by
// FindString).
type Key interface {
	comparable

	// KeyHash returns the precomputed hash of the key's content.
	KeyHash() uint32
	// KeyBytes returns the byte content the key was hashed from.
	KeyBytes() []byte
}

type state uint8

const (
	stateEmpty state = iota
	stateTombstone
	stateOccupied
)

type entry[K Key, V any] struct {
	key   K
	value V
	state state
}

const maxLoad = 0.75

// A Table is an open-addressing hash map from K to V with tombstone-based
// deletion, matching the algorithm used by globals and string interning.
type Table[K Key, V any] struct {
	entries []entry[K, V]
	live    int // occupied slots (what Len reports)
	used    int // occupied + tombstone slots (what drives growth)
}

// New returns an empty table.
func New[K Key, V any]() *Table[K, V] {
	return &Table[K, V]{}
}

// Len returns the number of live (non-tombstone) entries.
func (t *Table[K, V]) Len() int { return t.live }

// Get returns the value associated with key, and whether it was found.
func (t *Table[K, V]) Get(key K) (V, bool) {
	var zero V
	if len(t.entries) == 0 {
		return zero, false
	}
	idx := t.findSlot(t.entries, key.KeyHash(), key)
	e := &t.entries[idx]
	if e.state != stateOccupied {
		return zero, false
	}
	return e.value, true
}

// Set associates value with key, growing the table first if needed. It
// returns true if key was not already present.
func (t *Table[K, V]) Set(key K, value V) bool {
	t.ensureCapacity()
	idx := t.findSlot(t.entries, key.KeyHash(), key)
	e := &t.entries[idx]
	isNewKey := e.state != stateOccupied
	if isNewKey {
		t.live++
		if e.state == stateEmpty {
			t.used++
		}
	}
	e.key = key
	e.value = value
	e.state = stateOccupied
	return isNewKey
}

// Delete removes key from the table, leaving a tombstone so existing probe
// chains through this slot stay intact. It returns true if key was present.
func (t *Table[K, V]) Delete(key K) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.findSlot(t.entries, key.KeyHash(), key)
	e := &t.entries[idx]
	if e.state != stateOccupied {
		return false
	}
	var zeroK K
	var zeroV V
	e.key, e.value = zeroK, zeroV
	e.state = stateTombstone
	t.live--
	return true
}

// FindString probes the table for a key whose content equals bytes, given
// its precomputed hash, without requiring the caller to construct a K
// first. This is the operation string interning relies on: look before you
// allocate.
func (t *Table[K, V]) FindString(hash uint32, b []byte) (K, bool) {
	var zero K
	if len(t.entries) == 0 {
		return zero, false
	}
	idx := int(hash % uint32(len(t.entries)))
	for {
		e := &t.entries[idx]
		switch e.state {
		case stateEmpty:
			return zero, false
		case stateOccupied:
			if e.key.KeyHash() == hash && bytes.Equal(e.key.KeyBytes(), b) {
				return e.key, true
			}
		}
		idx = (idx + 1) % len(t.entries)
	}
}

// findSlot returns the index of the slot that key occupies, or the first
// empty/tombstone slot on its probe chain if key is absent (so Set can
// reuse the earliest available slot).
func (t *Table[K, V]) findSlot(entries []entry[K, V], hash uint32, key K) int {
	idx := int(hash % uint32(len(entries)))
	tombstone := -1
	for {
		e := &entries[idx]
		switch e.state {
		case stateEmpty:
			if tombstone != -1 {
				return tombstone
			}
			return idx
		case stateTombstone:
			if tombstone == -1 {
				tombstone = idx
			}
		case stateOccupied:
			if e.key == key {
				return idx
			}
		}
		idx = (idx + 1) % len(entries)
	}
}

func (t *Table[K, V]) ensureCapacity() {
	if float64(t.used+1) <= float64(len(t.entries))*maxLoad {
		return
	}
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	t.grow(newCap)
}

// grow reallocates the backing array and rehashes every live entry into it.
// Tombstones are dropped in the process, so used resets to live.
func (t *Table[K, V]) grow(newCap int) {
	fresh := make([]entry[K, V], newCap)
	for i := range t.entries {
		e := &t.entries[i]
		if e.state != stateOccupied {
			continue
		}
		idx := t.findSlot(fresh, e.key.KeyHash(), e.key)
		fresh[idx] = entry[K, V]{key: e.key, value: e.value, state: stateOccupied}
	}
	t.entries = fresh
	t.used = t.live
}
