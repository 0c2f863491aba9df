package vm

import (
	"os"
	"path/filepath"
	"strings"
)

// Frontend is the seam a host compiler plugs into: compile source into
// a FunctionObj owned by the named module. The runtime core never
// implements one itself; tests and embedders supply a stub or a real
// compiler respectively.
type Frontend interface {
	Compile(vm *VM, moduleName, source string) (*FunctionObj, error)
}

// initCoreModule wires the always-present "core" module top-level
// scripts execute in. The runtime ships no standard library of its own;
// this is just the empty module and globals table a host's native
// registrations attach to.
func (vm *VM) initCoreModule() {
	name := vm.intern("core")
	core := &ModuleObj{
		Name:           name.Value,
		Globals:        make(map[string]Value),
		NativeRegistry: make(map[string]NativeFn),
		executed:       true,
	}
	vm.registerObject(core)
	vm.modules[name.Value] = core
	vm.core = core
	vm.module = core
}

// resolveModuleFile searches each import-path prefix for a source file
// named <name> with a ".jstar" extension (dotted module names map to
// nested directories, "a.b" -> "a/b.jstar"). Returns the file's
// contents, or ok=false if no import path prefix has a matching file.
func (vm *VM) resolveModuleFile(name string) (path string, source []byte, ok bool) {
	candidate := filepath.FromSlash(strings.ReplaceAll(name, ".", "/")) + ".jstar"

	for _, prefix := range vm.importPaths {
		full := filepath.Join(prefix, candidate)
		if data, err := os.ReadFile(full); err == nil {
			return full, data, true
		}
	}
	return "", nil, false
}

// DefineModule registers a pre-built module (e.g. a host "native
// module" assembled entirely from Go code, with no .jstar source at all)
// under name, for IMPORT to find without touching the filesystem.
func (vm *VM) DefineModule(name string, globals map[string]Value) *ModuleObj {
	interned := vm.intern(name)
	m := &ModuleObj{
		Name:           interned.Value,
		Globals:        globals,
		NativeRegistry: make(map[string]NativeFn),
		executed:       true,
	}
	if m.Globals == nil {
		m.Globals = make(map[string]Value)
	}
	vm.registerObject(m)
	vm.modules[interned.Value] = m
	return m
}

// importModule resolves, registers and compiles a module, stopping
// short of running its top level: the dispatch loop's IMPORT handlers
// call the produced Function themselves (or skip straight to binding
// when the module was already registered). Returns ok=false on
// resolve/compile failure, and the caller raises ImportException.
func (vm *VM) importModule(name string) (fn *FunctionObj, alreadyLoaded bool, ok bool) {
	if _, exists := vm.modules[name]; exists {
		return nil, true, true
	}

	if vm.cfg.Frontend == nil {
		return nil, false, false
	}

	path, source, found := vm.resolveModuleFile(name)
	if !found {
		return nil, false, false
	}

	// Register the module before compiling: registration may collect, and
	// compilation must not race a sweep against the constants it interns.
	m := &ModuleObj{
		Name:           name,
		Globals:        make(map[string]Value),
		NativeRegistry: make(map[string]NativeFn),
	}
	vm.registerObject(m)
	vm.modules[name] = m

	compiled, err := vm.cfg.Frontend.Compile(vm, name, string(source))
	if err != nil {
		delete(vm.modules, name)
		return nil, false, false
	}
	_ = path

	compiled.Module = m
	return compiled, false, true
}

// bindModuleNatives copies every registered NativeFn for module m into
// its globals as NativeObj values, keyed by bare function name, and
// binds "Class.method" entries onto the matching class's method table
// instead.
func (vm *VM) bindModuleNatives(m *ModuleObj) {
	for key, fn := range m.NativeRegistry {
		cls, method, isMethod := splitMethodKey(key)
		native := &NativeObj{Name: key, Arity: -1, Fn: fn}
		vm.registerObject(native)
		if isMethod {
			if c, ok := m.Globals[cls]; ok && c.IsObjKind(KindClass) {
				c.AsClass().Methods[method] = ObjValue(native)
			}
			continue
		}
		m.Globals[key] = ObjValue(native)
	}
}

func splitMethodKey(key string) (class, method string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// RegisterNative adds fn to module's native-registration table under
// key (a bare function name, or "Class.method" for an instance method),
// to be bound the next time that module is imported, or immediately if
// it's already loaded.
func (vm *VM) RegisterNative(module *ModuleObj, key string, arity int, fn NativeFn) {
	if module.NativeRegistry == nil {
		module.NativeRegistry = make(map[string]NativeFn)
	}
	module.NativeRegistry[key] = fn
	if module.executed {
		vm.bindModuleNatives(module)
	}
}
