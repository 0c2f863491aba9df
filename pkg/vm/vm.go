// Package vm implements the J* runtime core: value representation, heap
// objects, a tracing garbage collector, the frame/call machinery,
// upvalues, the stack-based dispatch loop, exception unwinding, operator
// overloading, the import subsystem, and the embedding API described by
// the runtime specification. The lexer/parser/compiler front-end, REPL,
// and standard-library method bodies are host/out-of-scope concerns; this
// package treats compilation as "source -> *FunctionObj" and the standard
// library as native-function registrations bound at module load time.
package vm

import (
	"fmt"

	jstarerrors "github.com/Michael0500/jstar/pkg/errors"
)

const (
	// RecursionLimit bounds frame depth; exceeding it raises
	// StackOverflowException.
	RecursionLimit = 2000

	// HandlerMax bounds the number of nested try handlers per frame.
	HandlerMax = 16

	initialStackSize = 1024
)

// Config carries the knobs a host sets when creating a VM.
type Config struct {
	StackSize          int
	InitialGCThreshold uint64
	HeapGrowRate       int
	ErrorCallback      func(kind string, message string, stackTrace []string)

	// Frontend compiles import sources into bytecode. Nil disables
	// source-based IMPORT entirely; hosts that only ever DefineModule
	// pre-built modules need not set it.
	Frontend Frontend
}

// DefaultConfig returns the configuration NewDefault uses.
func DefaultConfig() Config {
	return Config{
		StackSize:          initialStackSize,
		InitialGCThreshold: 1 << 20, // 1 MiB
		HeapGrowRate:       2,
		ErrorCallback:      nil,
	}
}

// VM holds all state needed to execute J* code. A single VM owns all of
// its mutable state; two VM instances share nothing, and a VM must not
// be touched from another goroutine while evaluation is in progress.
type VM struct {
	cfg Config

	// --- operand stack ---
	stack []Value
	sp    int // index of the next free slot; stack[:sp] is live

	// --- frame stack ---
	frames     []Frame
	frameCount int

	// --- upvalues ---
	openUpvalues []*UpvalueObj // kept sorted by descending stackSlot

	// --- modules ---
	modules     map[string]*ModuleObj
	module      *ModuleObj // currently executing module
	core        *ModuleObj
	importPaths []string

	// --- built-in classes ---
	clsClass, objClass, strClass, boolClass, lstClass, numClass *ClassObj
	funClass, modClass, nullClass, stClass, tupClass            *ClassObj
	excClass, tableClass, handleClass                           *ClassObj
	builtinExceptions map[string]*ClassObj

	// --- interning ---
	interner *StringInterner

	// --- cached method-name strings, interned once (a GC root) ---
	overloadNames [symEnd]*StringObj

	// --- GC bookkeeping ---
	objects      Obj // head of intrusive linked list of all live objects
	objectCount  int
	allocated    uint64
	nextGC       uint64
	heapGrowRate int
	greyStack    []Obj

	// --- exception state threaded through unwind (exceptions.go) ---
	currentException Value
	unwinding        bool

	// --- cancellation ---
	evalBreak bool

	// --- embedding ---
	customData any
	argv       []string

	// scratch root for a host compiler's in-progress unit, so values it
	// builds survive collections triggered by its own interning.
	compilingRoot Value
}

// New creates a VM with the given configuration, registers the built-in
// classes, and wires the core module.
func New(cfg Config) *VM {
	if cfg.StackSize <= 0 {
		cfg.StackSize = initialStackSize
	}
	if cfg.HeapGrowRate < 2 {
		cfg.HeapGrowRate = 2
	}
	if cfg.InitialGCThreshold == 0 {
		cfg.InitialGCThreshold = 1 << 20
	}

	vm := &VM{
		cfg:               cfg,
		stack:             make([]Value, cfg.StackSize),
		frames:            make([]Frame, 64),
		modules:           make(map[string]*ModuleObj),
		interner:          newStringInterner(),
		heapGrowRate:      cfg.HeapGrowRate,
		nextGC:            cfg.InitialGCThreshold,
		builtinExceptions: make(map[string]*ClassObj),
	}

	vm.initBuiltinClasses()
	vm.initOverloadNames()
	vm.initCoreModule()

	return vm
}

// NewDefault is a convenience wrapper over New(DefaultConfig()).
func NewDefault() *VM {
	return New(DefaultConfig())
}

// Free releases everything the VM owns: the object list, the interner,
// the module registry and the stacks. The VM must not be used afterwards.
// Go reclaims the memory itself; this exists so the embedding API's
// create/destroy pairing holds and so long-lived hosts can drop a VM's
// entire heap in one call instead of waiting out the collector.
func (vm *VM) Free() {
	vm.objects = nil
	vm.objectCount = 0
	vm.allocated = 0
	vm.interner = newStringInterner()
	vm.modules = nil
	vm.module = nil
	vm.core = nil
	vm.stack = nil
	vm.sp = 0
	vm.frames = nil
	vm.frameCount = 0
	vm.openUpvalues = nil
	vm.greyStack = nil
	vm.currentException = Null
}

// --- operand stack primitives ---

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		vm.growStack()
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek() Value { return vm.stack[vm.sp-1] }

func (vm *VM) peek2() Value { return vm.stack[vm.sp-2] }

func (vm *VM) peekN(n int) Value { return vm.stack[vm.sp-1-n] }

// growStack doubles the operand stack and fixes up every open upvalue
// that pointed into it. Because UpvalueObj tracks stackSlot (an index)
// rather than a raw *Value pointer, a grow only needs to re-point Addr
// at the reallocated backing array; Frame.base is itself an index and
// needs no fixup at all.
func (vm *VM) growStack() {
	newStack := make([]Value, len(vm.stack)*2)
	copy(newStack, vm.stack)
	vm.stack = newStack
	for _, uv := range vm.openUpvalues {
		if uv.isOpen() {
			uv.Addr = &vm.stack[uv.stackSlot]
		}
	}
}

func (vm *VM) reserveStack(extra int) {
	for vm.sp+extra > len(vm.stack) {
		vm.growStack()
	}
}

// runtimeError reports a failure that never entered bytecode execution
// (a missing frontend, a bad compile) through the host error callback.
// It is built as a jstarerrors.RuntimeError rather than a bare string,
// so hosts that type-switch on err.Kind()/err.Message() see the same
// shape a compile-time JStarError would have.
func (vm *VM) runtimeError(format string, args ...any) {
	if vm.cfg.ErrorCallback == nil {
		return
	}
	var pos jstarerrors.Position
	if vm.module != nil {
		pos.Module = vm.module.Name
	}
	err := &jstarerrors.RuntimeError{Position: pos, Msg: fmt.Sprintf(format, args...)}
	vm.cfg.ErrorCallback(err.Kind(), err.Message(), nil)
}

// AddImportPath appends a directory to the list searched by IMPORT.
func (vm *VM) AddImportPath(path string) {
	vm.importPaths = append(vm.importPaths, path)
}

// SetCustomData stores host-defined data retrievable via CustomData,
// matching the embedding API's userdata convention.
func (vm *VM) SetCustomData(data any) { vm.customData = data }
func (vm *VM) CustomData() any        { return vm.customData }

// RequestInterrupt flags the dispatch loop to stop; it observes the
// flag at safe points (every backward jump and every call) and raises a
// synthetic exception that unwinds normally. Safe to call from a signal
// handler or another goroutine.
func (vm *VM) RequestInterrupt() { vm.evalBreak = true }
