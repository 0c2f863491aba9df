package vm

// captureUpvalue returns the open UpvalueObj for the operand-stack slot
// at absolute index, creating and inserting one if none exists yet. The
// open list is kept sorted by descending stackSlot, found via a linear
// scan from the front since the list is typically tiny (one per
// currently-live captured local).
func (vm *VM) captureUpvalue(slot int) *UpvalueObj {
	insertAt := 0
	for insertAt < len(vm.openUpvalues) {
		existing := vm.openUpvalues[insertAt]
		if existing.stackSlot == slot {
			return existing
		}
		if existing.stackSlot < slot {
			break
		}
		insertAt++
	}

	uv := &UpvalueObj{Addr: &vm.stack[slot], stackSlot: slot}
	vm.registerObject(uv)

	vm.openUpvalues = append(vm.openUpvalues, nil)
	copy(vm.openUpvalues[insertAt+1:], vm.openUpvalues[insertAt:])
	vm.openUpvalues[insertAt] = uv
	return uv
}

// closeUpvalues closes every open upvalue whose stackSlot is at or
// above threshold, copying the live value into the upvalue's own storage
// and dropping it from the open list. The stack above threshold is
// safely reusable afterwards.
func (vm *VM) closeUpvalues(threshold int) {
	i := 0
	for i < len(vm.openUpvalues) && vm.openUpvalues[i].stackSlot >= threshold {
		vm.openUpvalues[i].close()
		i++
	}
	vm.openUpvalues = vm.openUpvalues[i:]
}
