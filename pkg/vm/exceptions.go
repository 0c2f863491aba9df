package vm

import (
	"fmt"

	jstarerrors "github.com/Michael0500/jstar/pkg/errors"
)

// raise marks value as the pending exception and enters unwinding mode.
// It always returns false so call sites can write `return vm.raise(exc)`
// from a bool-returning helper. It does not itself walk frames;
// unwinding is driven explicitly by the dispatch loop calling
// unwindStack after a failed operation.
func (vm *VM) raise(value Value) bool {
	vm.currentException = value
	vm.unwinding = true
	return false
}

// newExceptionValue constructs an Instance of the named built-in
// exception class (or the base Exception class if className is
// unrecognized) with its `message` field set from the format string.
func (vm *VM) newExceptionValue(className, format string, args ...any) Value {
	cls, ok := vm.builtinExceptions[className]
	if !ok {
		if vm.module != nil {
			if g, ok := vm.module.Globals[className]; ok && g.IsObjKind(KindClass) {
				cls = g.AsClass()
			}
		}
		if cls == nil {
			cls = vm.excClass
		}
	}
	// Intern the message before registering the instance: registerObject
	// may collect, and the instance has no root until the caller stores it.
	msg := vm.internedString(fmt.Sprintf(format, args...))
	inst := &InstanceObj{Cls: cls, Fields: map[string]Value{"message": msg}}
	vm.registerObject(inst)
	return ObjValue(inst)
}

// Raise raises an exception by class name and format string, for
// natives and embedders.
func (vm *VM) Raise(className, format string, args ...any) bool {
	return vm.raise(vm.newExceptionValue(className, format, args...))
}

func (vm *VM) ThrowTypeException(format string, args ...any) bool {
	return vm.raise(vm.newExceptionValue("TypeException", format, args...))
}
func (vm *VM) ThrowNameException(format string, args ...any) bool {
	return vm.raise(vm.newExceptionValue("NameException", format, args...))
}
func (vm *VM) ThrowFieldException(format string, args ...any) bool {
	return vm.raise(vm.newExceptionValue("FieldException", format, args...))
}
func (vm *VM) ThrowMethodException(format string, args ...any) bool {
	return vm.raise(vm.newExceptionValue("MethodException", format, args...))
}
func (vm *VM) ThrowImportException(format string, args ...any) bool {
	return vm.raise(vm.newExceptionValue("ImportException", format, args...))
}
func (vm *VM) ThrowStackOverflow() bool {
	return vm.raise(vm.newExceptionValue("StackOverflowException", "Stack overflow."))
}

// beginRaise is the RAISE opcode body: verify the value on top of the
// operand stack is an Exception instance, attach a fresh StackTrace, and
// enter unwinding.
func (vm *VM) beginRaise() bool {
	exc := vm.peek()
	if !vm.isInstance(exc, vm.excClass) {
		return vm.ThrowTypeException("Can only raise Exception instances.")
	}
	vm.pop()
	st := &StackTraceObj{}
	vm.registerObject(st)
	exc.AsInstance().Fields["stacktrace"] = ObjValue(st)
	return vm.raise(exc)
}

// recordStackFrame appends one frame to the current exception's
// StackTrace, if it has one.
func (vm *VM) recordStackFrame(f *Frame) {
	if !vm.currentException.IsObjKind(KindInstance) {
		return
	}
	inst := vm.currentException.AsInstance()
	stv, ok := inst.Fields["stacktrace"]
	if !ok || !stv.IsObjKind(KindStackTrace) {
		return
	}
	st := stv.AsStackTrace()

	name := "<native>"
	line := -1
	moduleName := ""
	if vm.module != nil {
		moduleName = vm.module.Name
	}
	switch {
	case f.Callable.IsObjKind(KindClosure):
		fn := f.Callable.AsClosure().Fn
		name = fn.displayName()
		line = fn.Chunk.GetLine(f.ip)
	case f.Callable.IsObjKind(KindNative):
		name = f.Callable.AsNative().Name
	}
	st.Frames = append(st.Frames, StackFrameRecord{FunctionName: name, Module: moduleName, Line: line})
}

// updateCurrentModule switches vm.module to the module owning frame's
// callable; closures carry their owning module, natives leave it
// unchanged.
func (vm *VM) updateCurrentModule(f *Frame) {
	if f.Callable.IsObjKind(KindClosure) {
		if m := f.Callable.AsClosure().Fn.Module; m != nil {
			vm.module = m
		}
	}
}

// unwindStack walks frames from the top down to depth, resuming at the
// innermost handler it finds, or popping the frame (closing its
// upvalues) if it has none. Returns true if a handler was found and
// dispatch should resume there; false if the exception escapes depth
// (left in vm.currentException for the caller).
func (vm *VM) unwindStack(depth int) bool {
	for vm.frameCount > depth {
		frame := &vm.frames[vm.frameCount-1]
		vm.updateCurrentModule(frame)
		vm.recordStackFrame(frame)

		if frame.handlerCount > 0 {
			h := frame.popHandler()
			vm.sp = h.SavedSP
			vm.closeUpvalues(h.SavedSP)
			vm.push(vm.currentException)
			vm.push(NumberValue(float64(CauseException)))
			frame.ip = h.Target
			vm.unwinding = false
			return true
		}

		vm.closeUpvalues(frame.base)
		vm.frameCount--
	}
	return false
}

// handleUncaughtException is the terminal path when an exception
// escapes the outermost frame of an Eval call. It reports through the
// host error callback with class name, message and stack-trace lines,
// and never runs arbitrary language code.
func (vm *VM) handleUncaughtException() {
	exc := vm.currentException
	className := "Exception"
	message := ""
	var lines []string
	var pos jstarerrors.Position
	if exc.IsObjKind(KindInstance) {
		inst := exc.AsInstance()
		className = inst.Cls.Name
		if m, ok := inst.Fields["message"]; ok && m.IsObjKind(KindString) {
			message = m.AsString().Value
		}
		if stv, ok := inst.Fields["stacktrace"]; ok && stv.IsObjKind(KindStackTrace) {
			st := stv.AsStackTrace()
			for i := len(st.Frames) - 1; i >= 0; i-- {
				f := st.Frames[i]
				lines = append(lines, fmt.Sprintf("[%s:%d] in %s", f.Module, f.Line, f.FunctionName))
				if i == len(st.Frames)-1 {
					pos = jstarerrors.Position{Module: f.Module, Line: f.Line}
				}
			}
		}
	}
	if vm.cfg.ErrorCallback != nil {
		err := &jstarerrors.RuntimeError{Position: pos, Class: className, Msg: message, StackTrace: lines}
		vm.cfg.ErrorCallback(err.Kind(), err.Error(), err.StackTrace)
	}
	vm.unwinding = false
}
