package vm

// Host-facing embedding surface: push/pop typed values, read values by
// stack slot, call a value or invoke a method by name, define globals in
// a named module, evaluate source within a named module, raise errors.

// Eval runs fn as the top-level function of its own call, starting a
// fresh dispatch at the VM's current frame depth. EvalSource builds on
// it; Call and Invoke share its enterAndRun tail.
func (vm *VM) Eval(fn *FunctionObj) (Value, bool) {
	depth, origSP := vm.frameCount, vm.sp
	cl := &ClosureObj{Fn: fn}
	vm.push(ObjValue(cl)) // root it before registering, which may collect
	vm.registerObject(cl)
	return vm.enterAndRun(depth, origSP, vm.callClosure(cl, 0))
}

// EvalSource compiles source within a module named moduleName (creating
// it if it doesn't already exist) using the configured Frontend, then
// evaluates the resulting function. Returns ok=false with no VM-level
// panic if no Frontend is configured.
func (vm *VM) EvalSource(moduleName, source string) (Value, bool) {
	if vm.cfg.Frontend == nil {
		vm.runtimeError("no compiler frontend configured")
		return Null, false
	}
	mod, exists := vm.modules[moduleName]
	if !exists {
		mod = vm.DefineModule(moduleName, nil)
		mod.executed = false
	}
	fn, err := vm.cfg.Frontend.Compile(vm, moduleName, source)
	if err != nil {
		vm.runtimeError("%s", err.Error())
		return Null, false
	}
	fn.Module = mod
	mod.executed = true
	vm.module = mod
	return vm.Eval(fn)
}

// Call invokes callable with args, for host code that already holds a
// Value (as opposed to the bytecode-level CALL_n family in run.go, which
// reads operands off the live dispatch stack instead).
func (vm *VM) Call(callable Value, args []Value) (Value, bool) {
	depth, origSP := vm.frameCount, vm.sp
	vm.push(callable)
	for _, a := range args {
		vm.push(a)
	}
	return vm.enterAndRun(depth, origSP, vm.callValue(len(args)))
}

// Invoke looks up name on receiver (fields-before-methods on instances,
// globals-before-methods on modules, direct class lookup otherwise) and
// calls it with args.
func (vm *VM) Invoke(receiver Value, name string, args []Value) (Value, bool) {
	depth, origSP := vm.frameCount, vm.sp
	vm.push(receiver)
	for _, a := range args {
		vm.push(a)
	}
	return vm.enterAndRun(depth, origSP, vm.invokeValue(name, len(args)))
}

// enterAndRun is the shared tail of every public entry point: if the
// initial call/invoke attempt itself failed (callOK false: a bad callee,
// a failed argument adjustment, a blown recursion limit), the exception
// it raised still needs a trip through unwindStack before it can be
// reported, exactly as if it had failed one opcode into the callee.
// If the call succeeded, dispatch proceeds normally from depth. origSP
// is restored only on the escape path, since a successful run already
// leaves exactly one result value above origSP by construction.
func (vm *VM) enterAndRun(depth, origSP int, callOK bool) (Value, bool) {
	if !callOK {
		if !vm.unwindStack(depth) {
			vm.handleUncaughtException()
			vm.sp = origSP
			return Null, false
		}
	}
	if vm.frameCount == depth {
		// The call completed without leaving a frame to run (a native, or
		// a no-constructor instantiation); its result is already on the
		// stack.
		return vm.pop(), true
	}
	result, ok := vm.run(depth)
	if !ok {
		vm.handleUncaughtException()
		vm.sp = origSP
	}
	return result, ok
}

// --- stack access ---

// PushNull/PushBool/PushNumber/PushHandle/PushValue let a native or host
// build up an argument list without constructing Values by hand.
func (vm *VM) PushNull()             { vm.push(Null) }
func (vm *VM) PushBool(b bool)       { vm.push(BoolValue(b)) }
func (vm *VM) PushNumber(f float64)  { vm.push(NumberValue(f)) }
func (vm *VM) PushHandle(id uint64)  { vm.push(HandleValue(id)) }
func (vm *VM) PushString(s string)   { vm.push(vm.internedString(s)) }
func (vm *VM) PushValue(v Value)     { vm.push(v) }

// Pop removes and returns the top operand-stack value.
func (vm *VM) Pop() Value { return vm.pop() }

// GetSlot reads a value by stack slot without removing it. A
// non-negative slot counts from the bottom of the live stack (0 is the
// oldest live value); a negative slot counts from the top (-1 is the
// value Pop() would return).
func (vm *VM) GetSlot(slot int) (Value, bool) {
	idx := slot
	if slot < 0 {
		idx = vm.sp + slot
	}
	if idx < 0 || idx >= vm.sp {
		return Null, false
	}
	return vm.stack[idx], true
}

// --- globals ---

// DefineGlobal sets name to value in module's global table, creating the
// binding if it didn't already exist (unlike bytecode SET_GLOBAL, which
// requires a prior DEFINE_GLOBAL — this is a host-side capability with
// no such restriction, matching embedding APIs like jsrSetGlobal that
// don't go through the compiler's binding discipline at all).
func (vm *VM) DefineGlobal(module *ModuleObj, name string, value Value) {
	if module.Globals == nil {
		module.Globals = make(map[string]Value)
	}
	module.Globals[name] = value
}

// GetGlobal reads name from module's global table.
func (vm *VM) GetGlobal(module *ModuleObj, name string) (Value, bool) {
	v, ok := module.Globals[name]
	return v, ok
}

// MainModule returns the module a freshly-created VM starts executing
// in, for hosts that want to DefineGlobal/RegisterNative against it
// directly instead of importing a separate named module.
func (vm *VM) MainModule() *ModuleObj { return vm.core }

// InternString exposes the string interner to out-of-package producers
// of constant pools (pkg/bytecode's decoder builds FunctionObj/Chunk
// values directly rather than through the dispatch loop, so it needs a
// way to intern its string constants the same way the VM would).
func (vm *VM) InternString(s string) Value { return vm.internedString(s) }

// RegisterObject links an externally-constructed heap object (built by
// pkg/bytecode's decoder, which assembles FunctionObj/Chunk values
// directly rather than through CLOSURE/NEW_CLASS opcodes) into this VM's
// GC-tracked object list, exactly as registerObject does for objects the
// dispatch loop allocates itself.
func (vm *VM) RegisterObject(o Obj) { vm.registerObject(o) }

// --- diagnostics ---

// StackTrace renders the current exception's stack trace, if any, for
// hosts that want to report failures themselves instead of relying on
// Config.ErrorCallback.
func (vm *VM) StackTrace() string {
	if vm.currentException.IsNull() {
		return ""
	}
	inst, ok := vm.currentException.obj.(*InstanceObj)
	if !ok {
		return ""
	}
	st, ok := inst.Fields["stacktrace"]
	if !ok || !st.IsObjKind(KindStackTrace) {
		return ""
	}
	return st.AsStackTrace().String()
}
