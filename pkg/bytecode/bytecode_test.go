package bytecode

import (
	"testing"

	"github.com/Michael0500/jstar/pkg/vm"
)

func buildSample(vmm *vm.VM) *vm.FunctionObj {
	c := vm.NewChunk()
	greet := c.AddConstant(vmm.InternString("hello"))
	nested := &vm.FunctionObj{
		Name:  "inner",
		Arity: 1,
		Chunk: vm.NewChunk(),
	}
	nestedIdx := c.AddConstant(vm.ObjValue(nested))
	c.WriteOpCode(vm.OpConst, 1)
	c.WriteUint16(greet, 1)
	c.WriteOpCode(vm.OpConst, 1)
	c.WriteUint16(nestedIdx, 1)
	c.WriteOpCode(vm.OpReturn, 1)

	return &vm.FunctionObj{
		Name:     "top",
		Arity:    1,
		Defaults: []vm.Value{vm.NumberValue(7)},
		Variadic: true,
		Chunk:    c,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vmm := vm.NewDefault()
	fn := buildSample(vmm)

	data := Encode(fn)

	dvmm := vm.NewDefault()
	got, err := Decode(dvmm, data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if got.Name != fn.Name {
		t.Errorf("Name = %q, want %q", got.Name, fn.Name)
	}
	if got.Arity != fn.Arity {
		t.Errorf("Arity = %d, want %d", got.Arity, fn.Arity)
	}
	if !got.Variadic {
		t.Errorf("Variadic = false, want true")
	}
	if len(got.Defaults) != 1 || got.Defaults[0].AsNumber() != 7 {
		t.Errorf("Defaults = %v, want [7]", got.Defaults)
	}
	if len(got.Chunk.Code) != len(fn.Chunk.Code) {
		t.Fatalf("Chunk.Code length = %d, want %d", len(got.Chunk.Code), len(fn.Chunk.Code))
	}
	if len(got.Chunk.Constants) != 2 {
		t.Fatalf("Chunk.Constants length = %d, want 2", len(got.Chunk.Constants))
	}
	if got.Chunk.Constants[0].AsString().Value != "hello" {
		t.Errorf("constant 0 = %q, want %q", got.Chunk.Constants[0].AsString().Value, "hello")
	}
	nestedGot := got.Chunk.Constants[1]
	if !nestedGot.IsObjKind(vm.KindFunction) {
		t.Fatalf("constant 1 is not a Function")
	}
	if nestedGot.AsFunction().Name != "inner" {
		t.Errorf("nested function name = %q, want %q", nestedGot.AsFunction().Name, "inner")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	vmm := vm.NewDefault()
	_, err := Decode(vmm, []byte("NOPE\x01"))
	if err == nil {
		t.Fatalf("expected an error decoding a bad magic header")
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	vmm := vm.NewDefault()
	fn := &vm.FunctionObj{Name: "x", Chunk: vm.NewChunk()}
	data := Encode(fn)
	data[len(magic)] = 99 // corrupt the version byte
	_, err := Decode(vmm, data)
	if err == nil {
		t.Fatalf("expected an error decoding an unsupported version")
	}
}
