package vm

import "testing"

func messageOf(vmm *VM) string {
	if vmm.currentException.IsNull() {
		return ""
	}
	inst, ok := vmm.currentException.obj.(*InstanceObj)
	if !ok {
		return ""
	}
	return inst.Fields["message"].AsString().Value
}

func TestAdjustArgumentsExactArity(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{Name: "f", Arity: 2}

	vmm.push(NumberValue(1))
	vmm.push(NumberValue(2))
	argc, ok := vmm.adjustArguments(fn, 2)
	if !ok || argc != 2 {
		t.Fatalf("adjustArguments(exact) = %d, %v; want 2, true", argc, ok)
	}
}

func TestAdjustArgumentsTooFewNoDefaultsRaises(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{Name: "f", Arity: 2}

	vmm.push(NumberValue(1))
	_, ok := vmm.adjustArguments(fn, 1)
	if ok {
		t.Fatalf("expected adjustArguments to fail for too few arguments")
	}
	want := "Function `f` expected exactly 2 arguments, got 1."
	if got := messageOf(vmm); got != want {
		t.Errorf("error message = %q, want %q", got, want)
	}
}

func TestAdjustArgumentsTooManyRaises(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{Name: "f", Arity: 1}

	vmm.push(NumberValue(1))
	vmm.push(NumberValue(2))
	_, ok := vmm.adjustArguments(fn, 2)
	if ok {
		t.Fatalf("expected adjustArguments to fail for too many arguments")
	}
	want := "Function `f` expected exactly 1 argument, got 2."
	if got := messageOf(vmm); got != want {
		t.Errorf("error message = %q, want %q", got, want)
	}
}

func TestAdjustArgumentsFillsDefaults(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{
		Name:     "f",
		Arity:    3,
		Defaults: []Value{NumberValue(20), NumberValue(30)}, // params 2 and 3 optional
	}

	vmm.push(NumberValue(1)) // only the one required argument supplied
	argc, ok := vmm.adjustArguments(fn, 1)
	if !ok {
		t.Fatalf("adjustArguments with fillable defaults should not raise")
	}
	if argc != 3 {
		t.Fatalf("argc after filling defaults = %d, want 3", argc)
	}
	if vmm.stack[1].AsNumber() != 20 || vmm.stack[2].AsNumber() != 30 {
		t.Errorf("defaults pushed = %v, %v; want 20, 30", vmm.stack[1], vmm.stack[2])
	}
}

func TestAdjustArgumentsBelowMinimumWithDefaultsRaises(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{
		Name:     "f",
		Arity:    3,
		Defaults: []Value{NumberValue(20), NumberValue(30)}, // min required = 1
	}

	// Supplying zero arguments is below the floor (arity - len(defaults) = 1).
	_, ok := vmm.adjustArguments(fn, 0)
	if ok {
		t.Fatalf("expected adjustArguments to fail below the minimum required count")
	}
}

func TestAdjustArgumentsVariadicPacksTuple(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{Name: "f", Arity: 1, Variadic: true}

	vmm.push(NumberValue(1))
	vmm.push(NumberValue(2))
	vmm.push(NumberValue(3))
	argc, ok := vmm.adjustArguments(fn, 3)
	if !ok {
		t.Fatalf("variadic adjustArguments should not raise")
	}
	if argc != 2 {
		t.Fatalf("argc after packing varargs = %d, want 2 (1 fixed + 1 tuple)", argc)
	}
	tup := vmm.stack[vmm.sp-1]
	if !tup.IsObjKind(KindTuple) {
		t.Fatalf("last stack slot after variadic call must be a Tuple, got %v", tup)
	}
	elems := tup.AsTuple().Elements
	if len(elems) != 2 || elems[0].AsNumber() != 2 || elems[1].AsNumber() != 3 {
		t.Errorf("packed varargs = %v, want [2, 3]", elems)
	}
	// The fixed parameter must be untouched underneath the packed tuple.
	if vmm.stack[0].AsNumber() != 1 {
		t.Errorf("fixed parameter slot = %v, want 1", vmm.stack[0])
	}
}

func TestAdjustArgumentsVariadicNoExtrasPacksEmptyTuple(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{Name: "f", Arity: 1, Variadic: true}

	vmm.push(NumberValue(1))
	argc, ok := vmm.adjustArguments(fn, 1)
	if !ok || argc != 2 {
		t.Fatalf("adjustArguments(variadic, no extras) = %d, %v; want 2, true", argc, ok)
	}
	tup := vmm.stack[vmm.sp-1]
	if len(tup.AsTuple().Elements) != 0 {
		t.Errorf("expected an empty packed tuple, got %v", tup.AsTuple().Elements)
	}
}

func TestAdjustArgumentsVariadicBelowMinimumRaises(t *testing.T) {
	vmm := NewDefault()
	fn := &FunctionObj{Name: "f", Arity: 2, Variadic: true}

	vmm.push(NumberValue(1))
	_, ok := vmm.adjustArguments(fn, 1)
	if ok {
		t.Fatalf("expected adjustArguments to fail below the variadic minimum")
	}
	want := "Function `f` expected at least 2 arguments, got 1."
	if got := messageOf(vmm); got != want {
		t.Errorf("error message = %q, want %q", got, want)
	}
}
