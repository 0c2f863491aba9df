package vm

// StringInterner deduplicates immutable string objects so that, for any
// byte sequence s, at most one live String exists whose contents equal
// s; pointer equality of interned strings is content equality.
//
// The interner holds weak references: during GC sweep (gc.go), any entry
// whose String was not marked is removed rather than kept alive, which
// is why this is a plain map the collector walks directly instead of a
// second root set.
type StringInterner struct {
	table map[string]*StringObj
}

func newStringInterner() *StringInterner {
	return &StringInterner{table: make(map[string]*StringObj)}
}

// intern returns the canonical StringObj for s, allocating a new one via
// vm's allocator (so it is linked into the GC object list and may trigger
// collection) the first time s is seen.
func (vm *VM) intern(s string) *StringObj {
	if existing, ok := vm.interner.table[s]; ok {
		return existing
	}
	obj := &StringObj{Value: s, hash: fnv1a(s)}
	vm.registerObject(obj)
	vm.interner.table[s] = obj
	return obj
}

// internedString is a convenience that wraps intern in a Value.
func (vm *VM) internedString(s string) Value {
	return ObjValue(vm.intern(s))
}

func fnv1a(s string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// sweepInterner drops every interned string not marked by the current
// GC cycle.
func (vm *VM) sweepInterner() {
	for s, obj := range vm.interner.table {
		if !obj.marked {
			delete(vm.interner.table, s)
		}
	}
}
