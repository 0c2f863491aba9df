package vm

import (
	"fmt"
	"math"
)

// TableObj is an open-addressed hash map from hashable Values to
// Values, the user-visible dictionary type: an entries slice with
// tombstones and linear probing.
type TableObj struct {
	objHeader
	entries []tableEntry
	count   int // occupied, including tombstones
	live    int // occupied, excluding tombstones
}

type tableEntry struct {
	key   Value
	value Value
	state entryState
}

type entryState uint8

const (
	entryEmpty entryState = iota
	entryLive
	entryTombstone
)

func (t *TableObj) Kind() ObjKind          { return KindTable }
func (t *TableObj) Class(vm *VM) *ClassObj { return vm.tableClass }
func (t *TableObj) Inspect() string        { return fmt.Sprintf("<table (%d entries)>", t.live) }

// NewTable returns an empty Table; backing storage is allocated lazily
// on first insert.
func NewTable() *TableObj {
	return &TableObj{}
}

func (t *TableObj) Len() int { return t.live }

const tableMinCapacity = 8
const tableMaxLoad = 0.75

// hashValue computes a table hash for v. Strings hash their interned
// content hash; scalars hash their bit pattern; other objects hash by
// identity, so no object kind needs to define __hash__.
func hashValue(v Value) uint64 {
	switch v.typ {
	case TypeNull:
		return 0x9e3779b97f4a7c15
	case TypeBool:
		if v.AsBool() {
			return 0xff51afd7ed558ccd
		}
		return 0xc4ceb9fe1a85ec53
	case TypeNumber:
		f := v.AsNumber()
		if f == 0 {
			f = 0 // fold -0 onto +0 so equal keys hash equally
		}
		return math.Float64bits(f) * 0x2545F4914F6CDD1D
	case TypeHandle:
		return v.payload * 0x2545F4914F6CDD1D
	case TypeObj:
		if s, ok := v.obj.(*StringObj); ok {
			return s.hash
		}
		return objIdentityHash(v.obj)
	default:
		return 0
	}
}

// objIdentityHash derives a stable hash from an object's pointer
// identity by hashing its %p representation, avoiding unsafe.Pointer
// arithmetic. The collector is non-moving, so the address is stable for
// the object's lifetime.
func objIdentityHash(o Obj) uint64 {
	s := fmt.Sprintf("%p", o)
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func keysEqual(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	if a.typ == TypeObj {
		if as, ok := a.obj.(*StringObj); ok {
			if bs, ok := b.obj.(*StringObj); ok {
				return as == bs // interned: pointer equality is content equality
			}
			return false
		}
		return a.obj == b.obj
	}
	return a.primitiveEquals(b)
}

func (t *TableObj) grow() {
	newCap := tableMinCapacity
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]tableEntry, newCap)
	t.live, t.count = 0, 0
	for _, e := range old {
		if e.state == entryLive {
			t.Set(e.key, e.value)
		}
	}
}

func (t *TableObj) findSlot(key Value) int {
	cap := len(t.entries)
	idx := int(hashValue(key) % uint64(cap))
	firstTombstone := -1
	for i := 0; i < cap; i++ {
		slot := (idx + i) % cap
		e := &t.entries[slot]
		switch e.state {
		case entryEmpty:
			if firstTombstone != -1 {
				return firstTombstone
			}
			return slot
		case entryTombstone:
			if firstTombstone == -1 {
				firstTombstone = slot
			}
		case entryLive:
			if keysEqual(e.key, key) {
				return slot
			}
		}
	}
	if firstTombstone != -1 {
		return firstTombstone
	}
	return -1
}

// Get returns the value stored for key, if present.
func (t *TableObj) Get(key Value) (Value, bool) {
	if len(t.entries) == 0 {
		return Null, false
	}
	slot := t.findSlot(key)
	if slot == -1 || t.entries[slot].state != entryLive {
		return Null, false
	}
	return t.entries[slot].value, true
}

// Set inserts or overwrites key -> value, growing the table if needed.
func (t *TableObj) Set(key, value Value) {
	if len(t.entries) == 0 || float64(t.count+1) > tableMaxLoad*float64(len(t.entries)) {
		t.grow()
	}
	slot := t.findSlot(key)
	e := &t.entries[slot]
	wasNew := e.state != entryLive
	if e.state == entryEmpty {
		t.count++
	}
	e.key, e.value, e.state = key, value, entryLive
	if wasNew {
		t.live++
	}
}

// Delete removes key, returning whether it was present (inserts a
// tombstone so later probes don't break on the hole it leaves).
func (t *TableObj) Delete(key Value) bool {
	if len(t.entries) == 0 {
		return false
	}
	slot := t.findSlot(key)
	if slot == -1 || t.entries[slot].state != entryLive {
		return false
	}
	t.entries[slot].state = entryTombstone
	t.entries[slot].key = Null
	t.entries[slot].value = Null
	t.live--
	return true
}

// Each calls fn for every live entry, in arbitrary (slot) order.
func (t *TableObj) Each(fn func(key, value Value)) {
	for _, e := range t.entries {
		if e.state == entryLive {
			fn(e.key, e.value)
		}
	}
}
