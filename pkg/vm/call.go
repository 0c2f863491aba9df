package vm

// Name lookup and dispatch: bare calls, invoke-by-name, bound methods,
// class instantiation and binary operator overload fallback.

// callClosure pushes a new Frame for a script call, running argument
// adjustment first. The frame's base is the callee slot, so the receiver
// sits at local slot 0.
func (vm *VM) callClosure(c *ClosureObj, argc int) bool {
	if vm.frameCount >= RecursionLimit {
		return vm.ThrowStackOverflow()
	}
	calleeSlot := vm.sp - argc - 1
	if _, ok := vm.adjustArguments(c.Fn, argc); !ok {
		return false
	}
	if vm.frameCount == len(vm.frames) {
		vm.growFrames()
	}
	vm.frames[vm.frameCount] = Frame{Callable: ObjValue(c), base: calleeSlot}
	vm.frameCount++
	vm.module = c.Fn.Module
	traceCall(c, vm.frameCount)
	return true
}

// callNative pushes a frame (for stack-trace and frame-depth parity
// with script calls), invokes the host function immediately, and either
// collapses the frame and pushes the single return value, or, on
// failure, leaves the frame in place so unwindStack can record and pop
// it like any other.
func (vm *VM) callNative(n *NativeObj, argc int) bool {
	if vm.frameCount >= RecursionLimit {
		return vm.ThrowStackOverflow()
	}
	calleeSlot := vm.sp - argc - 1
	if vm.frameCount == len(vm.frames) {
		vm.growFrames()
	}
	vm.frames[vm.frameCount] = Frame{Callable: ObjValue(n), base: calleeSlot}
	vm.frameCount++

	// args[0] is the receiver slot: the callee itself for a bare call,
	// the bound receiver for a method.
	args := append([]Value(nil), vm.stack[calleeSlot:vm.sp]...)
	result, ok := n.Fn(vm, args)
	if !ok {
		return false
	}
	vm.frameCount--
	vm.sp = calleeSlot
	vm.push(result)
	return true
}

// invokeCallable dispatches to callClosure/callNative once the callable
// Value has already been resolved (method lookup, overload fallback,
// bound-method unwrap) rather than read off the stack directly.
func (vm *VM) invokeCallable(callable Value, argc int) bool {
	if !callable.IsObj() {
		return vm.ThrowTypeException("%s is not callable.", callable.Inspect())
	}
	switch callable.obj.Kind() {
	case KindClosure:
		return vm.callClosure(callable.AsClosure(), argc)
	case KindNative:
		return vm.callNative(callable.AsNative(), argc)
	default:
		return vm.ThrowTypeException("%s is not callable.", callable.Inspect())
	}
}

// callRun invokes callable and, when it is a script closure, drives the
// new frame to completion with a nested dispatch before returning, so
// operations that need the call's result mid-opcode (equality overloads)
// can use it synchronously. Natives and frame-less calls complete
// inline, so their result is popped off the stack directly.
func (vm *VM) callRun(callable Value, argc int) (Value, bool) {
	depth := vm.frameCount
	if !vm.invokeCallable(callable, argc) {
		return Null, false
	}
	if vm.frameCount > depth {
		return vm.run(depth)
	}
	return vm.pop(), true
}

// callValue reinterprets the callee slot (vm.sp-argc-1) by object kind:
// Closure/Native call through directly, BoundMethod substitutes its
// receiver into that slot and re-dispatches on the bound callable, and
// Class performs instantiation.
func (vm *VM) callValue(argc int) bool {
	calleeSlot := vm.sp - argc - 1
	callee := vm.stack[calleeSlot]

	if !callee.IsObj() {
		return vm.ThrowTypeException("%s is not callable.", callee.Inspect())
	}

	switch callee.obj.Kind() {
	case KindClosure:
		return vm.callClosure(callee.AsClosure(), argc)
	case KindNative:
		return vm.callNative(callee.AsNative(), argc)
	case KindBoundMethod:
		bound := callee.AsBoundMethod()
		vm.stack[calleeSlot] = bound.Receiver
		return vm.invokeCallable(bound.Callable, argc)
	case KindClass:
		return vm.instantiateClass(callee.AsClass(), argc, calleeSlot)
	default:
		return vm.ThrowTypeException("%s object is not callable.", vm.classOf(callee).Name)
	}
}

// instantiateClass: non-instantiable built-ins (null, function, module,
// table, stack-trace, class, user-data) refuse construction outright;
// instantiable built-ins (number, bool, string, list, tuple) substitute
// a null receiver and let their native `new` build and return the real
// value; user classes get a fresh Instance as the receiver, and a
// constructor that wants the instance to be the call's result returns it
// explicitly.
func (vm *VM) instantiateClass(cls *ClassObj, argc, calleeSlot int) bool {
	if cls.Builtin && !cls.Instantiable {
		return vm.ThrowTypeException("%s is not instantiable.", cls.Name)
	}

	var receiver Value
	if cls.Builtin {
		receiver = Null
	} else {
		inst := &InstanceObj{Cls: cls, Fields: make(map[string]Value)}
		vm.registerObject(inst)
		receiver = ObjValue(inst)
	}
	vm.stack[calleeSlot] = receiver

	ctor, hasCtor := cls.Methods[vm.overloadName(symCtor).Value]
	if !hasCtor {
		if argc > 0 {
			return vm.ThrowTypeException("%s.new() takes no arguments.", cls.Name)
		}
		vm.sp = calleeSlot + 1
		return true
	}
	return vm.invokeCallable(ctor, argc)
}

// invokeMethod looks up name directly on cls's (already superclass-
// flattened) method table and invokes it: one hashed lookup, no chain
// walk.
func (vm *VM) invokeMethod(cls *ClassObj, name string, argc int) bool {
	m, ok := cls.Methods[name]
	if !ok {
		return vm.ThrowMethodException("'%s' has no method '%s'.", cls.Name, name)
	}
	return vm.invokeCallable(m, argc)
}

// invokeValue resolves an invoke-by-name: Instances check fields first
// (a field may shadow a method of the same name); Modules check globals
// first, falling back to a module-class method; everything else invokes
// directly on the receiver's class.
func (vm *VM) invokeValue(name string, argc int) bool {
	calleeSlot := vm.sp - argc - 1
	receiver := vm.stack[calleeSlot]

	if receiver.IsObjKind(KindInstance) {
		inst := receiver.AsInstance()
		if f, ok := inst.Fields[name]; ok {
			vm.stack[calleeSlot] = f
			return vm.callValue(argc)
		}
		return vm.invokeMethod(inst.Cls, name, argc)
	}

	if receiver.IsObjKind(KindModule) {
		mod := receiver.AsModule()
		if g, ok := mod.Globals[name]; ok {
			vm.stack[calleeSlot] = g
			return vm.callValue(argc)
		}
		if m, ok := vm.modClass.Methods[name]; ok {
			return vm.invokeCallable(m, argc)
		}
		return vm.ThrowNameException("Name `%s` is not defined in module `%s`.", name, mod.Name)
	}

	return vm.invokeMethod(vm.classOf(receiver), name, argc)
}

// bindMethod builds a BoundMethod over cls's entry for name; the pair
// is immutable after creation.
func (vm *VM) bindMethod(receiver Value, cls *ClassObj, name string) (Value, bool) {
	m, ok := cls.Methods[name]
	if !ok {
		return Null, false
	}
	bm := &BoundMethodObj{Receiver: receiver, Callable: m}
	vm.registerObject(bm)
	return ObjValue(bm), true
}

// callBinaryOverload tries the left operand's class for the forward
// method; if absent and a reverse form exists, swaps the two operands
// and tries the right operand's class for the reverse method; otherwise
// raises TypeException naming both classes and the operator glyph. Pass
// rev=symEnd for operators with no reverse form (comparisons).
func (vm *VM) callBinaryOverload(glyph string, fwd, rev overloadSymbol) bool {
	clsA := vm.classOf(vm.peek2())
	clsB := vm.classOf(vm.peek())

	if m, ok := clsA.Methods[vm.overloadName(fwd).Value]; ok {
		return vm.invokeCallable(m, 1)
	}
	if rev != symEnd {
		if m, ok := clsB.Methods[vm.overloadName(rev).Value]; ok {
			vm.stack[vm.sp-1], vm.stack[vm.sp-2] = vm.stack[vm.sp-2], vm.stack[vm.sp-1]
			return vm.invokeCallable(m, 1)
		}
	}
	return vm.ThrowTypeException("Operator %s not defined for types %s, %s.", glyph, clsA.Name, clsB.Name)
}
