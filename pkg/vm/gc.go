package vm

// Tri-color mark-sweep collection: non-moving, stop-the-world,
// triggered by an allocation threshold. Cycles between instances,
// closures and upvalues are routine, which is why this is a tracing
// collector and not reference counting.

// objSize is a rough per-kind allocation charge used to drive the
// allocation-threshold trigger. Exact byte accounting is not
// load-bearing for correctness, only for collection frequency, so this
// is intentionally approximate.
func objSize(o Obj) uint64 {
	valueSize := uint64(sizeOfValue())
	switch v := o.(type) {
	case *StringObj:
		return uint64(32 + len(v.Value))
	case *ListObj:
		return uint64(32) + uint64(len(v.Elements))*valueSize
	case *TupleObj:
		return uint64(24) + uint64(len(v.Elements))*valueSize
	case *TableObj:
		return uint64(32) + uint64(len(v.entries))*(2*valueSize+1)
	case *FunctionObj:
		return 128
	case *ClosureObj:
		return uint64(32 + len(v.Upvalues)*8)
	case *NativeObj:
		return 64
	case *ClassObj:
		return uint64(64 + len(v.Methods)*48)
	case *InstanceObj:
		return uint64(32 + len(v.Fields)*48)
	case *BoundMethodObj:
		return 48
	case *ModuleObj:
		return uint64(64 + len(v.Globals)*48)
	case *UpvalueObj:
		return 40
	case *StackTraceObj:
		return uint64(24 + len(v.Frames)*32)
	default:
		return 32
	}
}

// registerObject links a freshly allocated object into the global
// object list and charges its size against the allocation counter,
// collecting first if the threshold set by the previous cycle has been
// reached. Because registration may collect, callers must keep every
// value the new object references reachable (typically on the operand
// stack) until the object itself is rooted.
func (vm *VM) registerObject(o Obj) {
	if vm.allocated >= vm.nextGC {
		vm.collectGarbage()
	}
	h := o.header()
	h.next = vm.objects
	h.marked = false
	vm.objects = o
	vm.objectCount++
	vm.allocated += objSize(o)
}

// collectGarbage runs one full cycle: mark roots, trace the grey
// worklist to black, sweep the interner, sweep the object list.
func (vm *VM) collectGarbage() {
	vm.greyStack = vm.greyStack[:0]

	vm.markRoots()
	vm.traceGreyStack()
	vm.sweepInterner()
	vm.sweepObjects()

	vm.nextGC = vm.allocated * uint64(vm.heapGrowRate)
	if vm.nextGC == 0 {
		vm.nextGC = vm.cfg.InitialGCThreshold
	}
}

// markRoots marks the operand stack, every frame's callable, the open
// upvalues, the module registry, the built-in class slots, the cached
// method-name strings, the pending exception and the compiling unit.
func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markValue(vm.frames[i].Callable)
	}
	for _, uv := range vm.openUpvalues {
		vm.markObj(uv)
		if uv.isOpen() {
			vm.markValue(*uv.Addr)
		} else {
			vm.markValue(uv.Closed)
		}
	}
	for _, m := range vm.modules {
		vm.markObj(m)
	}
	if vm.module != nil {
		vm.markObj(vm.module)
	}
	if vm.core != nil {
		vm.markObj(vm.core)
	}
	for _, c := range []*ClassObj{
		vm.clsClass, vm.objClass, vm.strClass, vm.boolClass, vm.lstClass, vm.numClass,
		vm.funClass, vm.modClass, vm.nullClass, vm.stClass, vm.tupClass, vm.excClass,
		vm.tableClass, vm.handleClass,
	} {
		if c != nil {
			vm.markObj(c)
		}
	}
	for _, c := range vm.builtinExceptions {
		vm.markObj(c)
	}
	for _, s := range vm.overloadNames {
		if s != nil {
			vm.markObj(s)
		}
	}
	vm.markValue(vm.currentException)
	vm.markValue(vm.compilingRoot)
}

func (vm *VM) markValue(v Value) {
	if v.typ == TypeObj && v.obj != nil {
		vm.markObj(v.obj)
	}
}

func (vm *VM) markObj(o Obj) {
	if o == nil {
		return
	}
	h := o.header()
	if h.marked {
		return
	}
	h.marked = true
	vm.greyStack = append(vm.greyStack, o)
}

// traceGreyStack pops objects from the grey worklist and marks their
// children until the worklist is empty.
func (vm *VM) traceGreyStack() {
	for len(vm.greyStack) > 0 {
		n := len(vm.greyStack) - 1
		o := vm.greyStack[n]
		vm.greyStack = vm.greyStack[:n]
		vm.traceChildren(o)
	}
}

func (vm *VM) traceChildren(o Obj) {
	switch v := o.(type) {
	case *StringObj:
		// leaf
	case *ListObj:
		for _, e := range v.Elements {
			vm.markValue(e)
		}
	case *TupleObj:
		for _, e := range v.Elements {
			vm.markValue(e)
		}
	case *TableObj:
		for _, e := range v.entries {
			if e.state == entryLive {
				vm.markValue(e.key)
				vm.markValue(e.value)
			}
		}
	case *FunctionObj:
		for _, c := range v.Chunk.Constants {
			vm.markValue(c)
		}
		for _, d := range v.Defaults {
			vm.markValue(d)
		}
		if v.Module != nil {
			vm.markObj(v.Module)
		}
	case *ClosureObj:
		vm.markObj(v.Fn)
		for _, uv := range v.Upvalues {
			vm.markObj(uv)
		}
	case *NativeObj:
		// leaf
	case *ClassObj:
		if v.Super != nil {
			vm.markObj(v.Super)
		}
		for _, m := range v.Methods {
			vm.markValue(m)
		}
	case *InstanceObj:
		vm.markObj(v.Cls)
		for _, f := range v.Fields {
			vm.markValue(f)
		}
	case *BoundMethodObj:
		vm.markValue(v.Receiver)
		vm.markValue(v.Callable)
	case *ModuleObj:
		for _, g := range v.Globals {
			vm.markValue(g)
		}
	case *UpvalueObj:
		if v.isOpen() {
			vm.markValue(*v.Addr)
		} else {
			vm.markValue(v.Closed)
		}
	case *StackTraceObj:
		// leaf: frame records hold plain strings, not Values
	}
}

// sweepObjects frees every unmarked object and clears mark bits on
// survivors, rebuilding the intrusive linked list.
func (vm *VM) sweepObjects() {
	var head Obj
	var tail Obj
	var survivors uint64
	var live uint64
	cur := vm.objects
	for cur != nil {
		next := cur.header().next
		if cur.header().marked {
			cur.header().marked = false
			cur.header().next = nil
			if head == nil {
				head = cur
			} else {
				tail.header().next = cur
			}
			tail = cur
			survivors++
			live += objSize(cur)
		}
		cur = next
	}
	vm.objects = head
	vm.objectCount = int(survivors)
	vm.allocated = live
}

// CollectGarbage forces an immediate collection; exposed for the
// embedding API and for tests that assert reachability.
func (vm *VM) CollectGarbage() { vm.collectGarbage() }
