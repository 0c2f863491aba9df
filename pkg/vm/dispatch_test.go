package vm

import "testing"

// buildFn assembles a minimal top-level script FunctionObj: no parameters,
// wired to the VM's main module so DEFINE_GLOBAL/GET_GLOBAL/SET_GLOBAL have
// somewhere to write (callClosure sets vm.module = fn.Module, and the
// global opcodes index through vm.module directly).
func buildFn(vmm *VM, chunk *Chunk) *FunctionObj {
	return &FunctionObj{Name: "script", Chunk: chunk, Module: vmm.MainModule()}
}

func TestDispatchArithmeticAndReturn(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	// push 2, push 3, ADD, RETURN -> 5
	idx2 := c.AddConstant(NumberValue(2))
	idx3 := c.AddConstant(NumberValue(3))
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(idx2, 1)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(idx3, 1)
	c.WriteOpCode(OpAdd, 1)
	c.WriteOpCode(OpReturn, 1)

	fn := buildFn(vmm, c)
	result, ok := vmm.Eval(fn)
	if !ok {
		t.Fatalf("Eval failed: %s", messageOf(vmm))
	}
	if result.AsNumber() != 5 {
		t.Errorf("result = %v, want 5", result.Inspect())
	}
}

func TestDispatchStringConcat(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	a := c.AddConstant(vmm.internedString("foo"))
	b := c.AddConstant(vmm.internedString("bar"))
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(a, 1)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(b, 1)
	c.WriteOpCode(OpAdd, 1)
	c.WriteOpCode(OpReturn, 1)

	fn := buildFn(vmm, c)
	result, ok := vmm.Eval(fn)
	if !ok {
		t.Fatalf("Eval failed: %s", messageOf(vmm))
	}
	if result.AsString().Value != "foobar" {
		t.Errorf("result = %q, want %q", result.AsString().Value, "foobar")
	}
}

func TestDispatchAddTypeMismatchRaises(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	n := c.AddConstant(NumberValue(1))
	s := c.AddConstant(vmm.internedString("x"))
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(n, 1)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(s, 1)
	c.WriteOpCode(OpAdd, 1)
	c.WriteOpCode(OpReturn, 1)

	fn := buildFn(vmm, c)
	_, ok := vmm.Eval(fn)
	if ok {
		t.Fatalf("expected Eval to fail adding a number and a string with no overload")
	}
}

func TestDispatchGlobalDefineGetSet(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	name := c.AddConstant(vmm.internedString("x"))
	one := c.AddConstant(NumberValue(1))
	two := c.AddConstant(NumberValue(2))

	// x = 1 (DEFINE_GLOBAL)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(one, 1)
	c.WriteOpCode(OpDefineGlobal, 1)
	c.WriteUint16(name, 1)

	// x = 2 (SET_GLOBAL leaves the value on the stack, so POP it)
	c.WriteOpCode(OpConst, 2)
	c.WriteUint16(two, 2)
	c.WriteOpCode(OpSetGlobal, 2)
	c.WriteUint16(name, 2)
	c.WriteOpCode(OpPop, 2)

	// return x (GET_GLOBAL)
	c.WriteOpCode(OpGetGlobal, 3)
	c.WriteUint16(name, 3)
	c.WriteOpCode(OpReturn, 3)

	fn := buildFn(vmm, c)
	result, ok := vmm.Eval(fn)
	if !ok {
		t.Fatalf("Eval failed: %s", messageOf(vmm))
	}
	if result.AsNumber() != 2 {
		t.Errorf("result = %v, want 2", result.Inspect())
	}
}

func TestDispatchGetUndefinedGlobalRaisesNameException(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	name := c.AddConstant(vmm.internedString("missing"))
	c.WriteOpCode(OpGetGlobal, 1)
	c.WriteUint16(name, 1)
	c.WriteOpCode(OpReturn, 1)

	fn := buildFn(vmm, c)
	_, ok := vmm.Eval(fn)
	if ok {
		t.Fatalf("expected Eval to fail reading an undefined global")
	}
	want := "Name `missing` is not defined."
	if got := messageOf(vmm); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

// TestDispatchExceptCatchesRaise builds:
//   SETUP_EXCEPT -> handler
//   CONST <exception>; RAISE
// handler:                  (entered with [exception, cause-tag] on the stack)
//   POP (discard the tag), POP (discard the exception value)
//   CONST 99; RETURN
// A catching except clause consumes the (value, tag) pair itself; END_TRY
// with the CAUSE_EXCEPT tag still on the stack would mean "not handled,
// keep unwinding".
func TestDispatchExceptCatchesRaise(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()

	exc := c.AddConstant(newExceptionInstance(vmm, "boom"))
	ninetynine := c.AddConstant(NumberValue(99))

	setupOperand := c.WriteOpCode(OpSetupExcept, 1)
	c.WriteUint16(0, 1) // placeholder, patched below
	setupOperand++       // readInt16 operand starts right after the opcode byte

	c.WriteOpCode(OpConst, 2)
	c.WriteUint16(exc, 2)
	c.WriteOpCode(OpRaise, 2)

	handlerTarget := len(c.Code)
	c.WriteOpCode(OpPop, 3) // cause tag
	c.WriteOpCode(OpPop, 3) // exception value
	c.WriteOpCode(OpConst, 3)
	c.WriteUint16(ninetynine, 3)
	c.WriteOpCode(OpReturn, 3)

	// ip at SETUP_EXCEPT's pushHandler call is already past the 2-byte
	// offset operand (operandPos+2); patch so ip+offset == handlerTarget.
	c.PatchUint16(setupOperand, uint16(handlerTarget-(setupOperand+2)))

	fn := buildFn(vmm, c)
	result, ok := vmm.Eval(fn)
	if !ok {
		t.Fatalf("Eval failed, exception escaped: %s", messageOf(vmm))
	}
	if result.AsNumber() != 99 {
		t.Errorf("result = %v, want 99", result.Inspect())
	}
}

func TestDispatchRaiseWithNoHandlerEscapes(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	exc := c.AddConstant(vmm.internedString("boom"))
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(exc, 1)
	c.WriteOpCode(OpRaise, 1)
	c.WriteOpCode(OpReturn, 1) // unreachable

	fn := buildFn(vmm, c)
	_, ok := vmm.Eval(fn)
	if ok {
		t.Fatalf("expected an uncaught raise to fail Eval")
	}
}

func TestDispatchUnpackTuple(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	one := c.AddConstant(NumberValue(1))
	two := c.AddConstant(NumberValue(2))
	three := c.AddConstant(NumberValue(3))

	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(one, 1)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(two, 1)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(three, 1)
	c.WriteOpCode(OpNewTuple, 1)
	c.WriteByte(3, 1)
	c.WriteOpCode(OpUnpack, 1)
	c.WriteByte(2, 1) // a, b = (1, 2, 3): only the first 2 are kept
	c.WriteOpCode(OpPop, 1)
	c.WriteOpCode(OpReturn, 1) // returns the first unpacked element

	fn := buildFn(vmm, c)
	result, ok := vmm.Eval(fn)
	if !ok {
		t.Fatalf("Eval failed: %s", messageOf(vmm))
	}
	if result.AsNumber() != 1 {
		t.Errorf("result = %v, want 1", result.Inspect())
	}
}

func TestDispatchUnpackTooFewValuesRaises(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	one := c.AddConstant(NumberValue(1))

	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(one, 1)
	c.WriteOpCode(OpNewTuple, 1)
	c.WriteByte(1, 1)
	c.WriteOpCode(OpUnpack, 1)
	c.WriteByte(3, 1) // a, b, c = (1,): too few values
	c.WriteOpCode(OpReturn, 1)

	fn := buildFn(vmm, c)
	_, ok := vmm.Eval(fn)
	if ok {
		t.Fatalf("expected unpacking a 1-tuple into 3 targets to raise")
	}
	want := "Too little values to unpack."
	if got := messageOf(vmm); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestDispatchUnpackNonSequenceRaises(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	one := c.AddConstant(NumberValue(1))

	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(one, 1)
	c.WriteOpCode(OpUnpack, 1)
	c.WriteByte(1, 1)
	c.WriteOpCode(OpReturn, 1)

	fn := buildFn(vmm, c)
	_, ok := vmm.Eval(fn)
	if ok {
		t.Fatalf("expected unpacking a number to raise")
	}
}

func TestDispatchListLiteralAndAppend(t *testing.T) {
	vmm := NewDefault()
	c := NewChunk()
	one := c.AddConstant(NumberValue(1))
	two := c.AddConstant(NumberValue(2))

	c.WriteOpCode(OpNewList, 1)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(one, 1)
	c.WriteOpCode(OpAppendList, 1)
	c.WriteOpCode(OpConst, 1)
	c.WriteUint16(two, 1)
	c.WriteOpCode(OpAppendList, 1)
	c.WriteOpCode(OpReturn, 1)

	fn := buildFn(vmm, c)
	result, ok := vmm.Eval(fn)
	if !ok {
		t.Fatalf("Eval failed: %s", messageOf(vmm))
	}
	lst := result.AsList()
	if len(lst.Elements) != 2 || lst.Elements[0].AsNumber() != 1 || lst.Elements[1].AsNumber() != 2 {
		t.Errorf("list = %v, want [1, 2]", lst.Inspect())
	}
}
