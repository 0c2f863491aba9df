package vm

import (
	"fmt"
	"strings"
)

// ObjKind discriminates the heap object kinds. Keeping it a small closed
// enum lets the dispatch loop switch flatly on object kind instead of
// going through open polymorphism.
type ObjKind uint8

const (
	KindString ObjKind = iota
	KindList
	KindTuple
	KindTable
	KindFunction
	KindClosure
	KindNative
	KindClass
	KindInstance
	KindBoundMethod
	KindModule
	KindUpvalue
	KindStackTrace
)

// Obj is implemented by every heap object kind: a type discriminant, a
// class accessor, and the shared header carrying the GC mark bit and the
// next-object link of the allocator's global list.
type Obj interface {
	Kind() ObjKind
	Class(vm *VM) *ClassObj
	Inspect() string

	header() *objHeader
}

// objHeader is embedded first in every concrete object type so &obj.header
// aliases the object's own address region for the intrusive linked list.
type objHeader struct {
	marked bool
	next   Obj
}

func (h *objHeader) header() *objHeader { return h }

// --- String ---

// StringObj is an immutable, interned byte sequence. All instances are
// created through the VM's interner (interner.go), so equality of two
// StringObj pointers is equality of their contents.
type StringObj struct {
	objHeader
	Value string
	hash  uint64
}

func (s *StringObj) Kind() ObjKind        { return KindString }
func (s *StringObj) Class(vm *VM) *ClassObj { return vm.strClass }
func (s *StringObj) Inspect() string      { return fmt.Sprintf("%q", s.Value) }

// --- List ---

// ListObj is a growable ordered sequence of Values.
type ListObj struct {
	objHeader
	Elements []Value
}

func (l *ListObj) Kind() ObjKind          { return KindList }
func (l *ListObj) Class(vm *VM) *ClassObj { return vm.lstClass }
func (l *ListObj) Inspect() string {
	parts := make([]string, len(l.Elements))
	for i, v := range l.Elements {
		parts[i] = v.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// --- Tuple ---

// TupleObj is a fixed-size ordered sequence of Values, allocated once at
// construction.
type TupleObj struct {
	objHeader
	Elements []Value
}

func (t *TupleObj) Kind() ObjKind          { return KindTuple }
func (t *TupleObj) Class(vm *VM) *ClassObj { return vm.tupClass }
func (t *TupleObj) Inspect() string {
	parts := make([]string, len(t.Elements))
	for i, v := range t.Elements {
		parts[i] = v.Inspect()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// --- Function ---

// FunctionObj is compiled bytecode plus everything the call machinery
// needs to adjust arguments and build a Closure over it: constant pool
// (via Chunk), parameter arity, default values, varargs flag, owning
// module, and the upvalue descriptors the CLOSURE opcode reads. A
// compiler front-end produces these; the chunk-builder API (chunk.go)
// lets tests construct them directly instead.
type FunctionObj struct {
	objHeader
	Name         string
	Arity        int
	Defaults     []Value // len == number of optional parameters
	Variadic     bool
	Chunk        *Chunk
	Module       *ModuleObj
	UpvalueCount int
	// UpvalueIsLocal[i]/UpvalueIndex[i] describe how CLOSURE should fill
	// upvalue slot i: capture frame-local slot UpvalueIndex[i] directly if
	// UpvalueIsLocal[i], else copy the enclosing closure's upvalue pointer
	// at UpvalueIndex[i].
	UpvalueIsLocal []bool
	UpvalueIndex   []int
}

func (f *FunctionObj) Kind() ObjKind          { return KindFunction }
func (f *FunctionObj) Class(vm *VM) *ClassObj { return vm.funClass }
func (f *FunctionObj) Inspect() string        { return fmt.Sprintf("<fn %s>", f.displayName()) }

func (f *FunctionObj) displayName() string {
	if f.Name == "" {
		return "anonymous"
	}
	return f.Name
}

// --- Closure ---

// ClosureObj pairs a FunctionObj with the concrete Upvalue pointers
// captured at creation time.
type ClosureObj struct {
	objHeader
	Fn       *FunctionObj
	Upvalues []*UpvalueObj
}

func (c *ClosureObj) Kind() ObjKind          { return KindClosure }
func (c *ClosureObj) Class(vm *VM) *ClassObj { return vm.funClass }
func (c *ClosureObj) Inspect() string        { return fmt.Sprintf("<fn %s>", c.Fn.displayName()) }

// --- Native ---

// NativeFn is a host-implemented function with the same calling contract
// as Function: on success it returns the
// single result value and ok=true; on failure it leaves an exception
// raised on the VM (via vm.Raise*) and returns ok=false, which callers
// treat identically to a bytecode-level raise. args[0] is the receiver slot: the
// bound receiver when the native was invoked as a method, or the callee
// Value itself for a bare call; declared arguments start at args[1].
type NativeFn func(vm *VM, args []Value) (result Value, ok bool)

// NativeObj wraps a NativeFn with a name for stack traces.
type NativeObj struct {
	objHeader
	Name     string
	Arity    int // -1 means variadic/any arity; natives adjust their own args
	Fn       NativeFn
}

func (n *NativeObj) Kind() ObjKind          { return KindNative }
func (n *NativeObj) Class(vm *VM) *ClassObj { return vm.funClass }
func (n *NativeObj) Inspect() string        { return fmt.Sprintf("<native %s>", n.Name) }

// --- Class ---

// ClassObj is a name, an optional superclass and a flattened method
// table: superclass entries are eagerly copied at creation, so method
// lookup is a single-table hit, never a chain walk.
type ClassObj struct {
	objHeader
	Name       string
	Super      *ClassObj
	Methods    map[string]Value // Closure or Native
	Builtin    bool             // true for the VM's own built-in classes
	Instantiable bool           // number/bool/string/list/tuple: accept construction
}

func (c *ClassObj) Kind() ObjKind          { return KindClass }
func (c *ClassObj) Class(vm *VM) *ClassObj { return vm.clsClass }
func (c *ClassObj) Inspect() string        { return fmt.Sprintf("<class %s>", c.Name) }

// isSubclassOf walks the Super chain. The chain exists only for `is`
// and exception-class checks; method lookup never walks it.
func (c *ClassObj) isSubclassOf(other *ClassObj) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur == other {
			return true
		}
	}
	return false
}

// --- Instance ---

// InstanceObj is a class pointer plus a field table.
type InstanceObj struct {
	objHeader
	Cls    *ClassObj
	Fields map[string]Value
}

func (i *InstanceObj) Kind() ObjKind          { return KindInstance }
func (i *InstanceObj) Class(vm *VM) *ClassObj { return i.Cls }
func (i *InstanceObj) Inspect() string        { return fmt.Sprintf("<instance %s>", i.Cls.Name) }

// --- BoundMethod ---

// BoundMethodObj pairs a receiver with a callable (Closure or Native).
// Once created it is never re-bound.
type BoundMethodObj struct {
	objHeader
	Receiver Value
	Callable Value // Closure or Native
}

func (b *BoundMethodObj) Kind() ObjKind          { return KindBoundMethod }
func (b *BoundMethodObj) Class(vm *VM) *ClassObj { return vm.funClass }
func (b *BoundMethodObj) Inspect() string        { return "<bound method>" }

// --- Module ---

// ModuleObj is a name, a globals table and a native-registration table.
// NativeRegistry maps "Class.method" or a bare function name to the host
// NativeFn to bind when the module is imported.
type ModuleObj struct {
	objHeader
	Name            string
	Globals         map[string]Value
	NativeRegistry  map[string]NativeFn
	executed        bool
}

func (m *ModuleObj) Kind() ObjKind          { return KindModule }
func (m *ModuleObj) Class(vm *VM) *ClassObj { return vm.modClass }
func (m *ModuleObj) Inspect() string        { return fmt.Sprintf("<module %s>", m.Name) }

// --- Upvalue ---

// UpvalueObj is either open (Addr points into a live operand-stack slot)
// or closed (owns Closed, a copy taken at close time).
type UpvalueObj struct {
	objHeader
	Addr   *Value // non-nil while open
	Closed Value
	// stackSlot records the absolute operand-stack index Addr pointed at
	// while open, so the open list can stay sorted by descending slot
	// without doing pointer arithmetic on a slice that may be reallocated
	// out from under it.
	stackSlot int
}

func (u *UpvalueObj) Kind() ObjKind          { return KindUpvalue }
func (u *UpvalueObj) Class(vm *VM) *ClassObj { return vm.objClass }
func (u *UpvalueObj) Inspect() string        { return "<upvalue>" }

// Resolve returns the live address of the captured variable: Addr while
// open, or &Closed once closed.
func (u *UpvalueObj) Resolve() *Value {
	if u.Addr != nil {
		return u.Addr
	}
	return &u.Closed
}

func (u *UpvalueObj) isOpen() bool { return u.Addr != nil }

// close copies the live value into the upvalue's own storage and clears
// Addr; no stack-slot reference remains afterwards.
func (u *UpvalueObj) close() {
	u.Closed = *u.Addr
	u.Addr = nil
}

// --- StackTrace ---

// StackFrameRecord is one entry of a StackTrace.
type StackFrameRecord struct {
	FunctionName string
	Module       string
	Line         int
}

// StackTraceObj is an ordered list of frame records attached to raised
// exceptions.
type StackTraceObj struct {
	objHeader
	Frames []StackFrameRecord
}

func (s *StackTraceObj) Kind() ObjKind          { return KindStackTrace }
func (s *StackTraceObj) Class(vm *VM) *ClassObj { return vm.stClass }
func (s *StackTraceObj) Inspect() string        { return fmt.Sprintf("<stack trace (%d frames)>", len(s.Frames)) }

func (s *StackTraceObj) String() string {
	var b strings.Builder
	b.WriteString("Traceback (most recent call last):\n")
	for i := len(s.Frames) - 1; i >= 0; i-- {
		f := s.Frames[i]
		fmt.Fprintf(&b, "  [%s:%d] in %s\n", f.Module, f.Line, f.FunctionName)
	}
	return b.String()
}
