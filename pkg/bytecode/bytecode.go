// Package bytecode implements the binary serialization of a compiled
// pkg/vm.FunctionObj. It depends one-way on pkg/vm; nothing in pkg/vm
// imports this package, which keeps the wire format separate from the
// mutually-referential Value/Chunk graph it serializes. The package is
// intentionally narrow: encode/decode of the file format only.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Michael0500/jstar/pkg/vm"
)

// magic identifies a jstar compiled-bytecode file; version allows the
// format to evolve without silently misreading an old file.
const (
	magic   = "JSTB"
	version = 1
)

const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagNumber
	tagString
	tagFunction
)

// Encode serializes fn (and, recursively, every nested Function in its
// constant pool) into the versioned little-endian binary format: magic
// header, then the top-level Function with its tagged constant pool,
// bytecode, line table and parameter metadata.
func Encode(fn *vm.FunctionObj) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.WriteByte(version)
	writeFunction(&buf, fn)
	return buf.Bytes()
}

// Decode parses data produced by Encode and reconstructs a FunctionObj
// (and every object it transitively references) registered against vmm
// so the result participates in vmm's garbage collector exactly like any
// other live object. Running a decoded function must match running the
// function it was encoded from.
func Decode(vmm *vm.VM, data []byte) (*vm.FunctionObj, error) {
	r := bytes.NewReader(data)
	hdr := make([]byte, len(magic))
	if _, err := r.Read(hdr); err != nil || string(hdr) != magic {
		return nil, fmt.Errorf("bytecode: bad magic header")
	}
	ver, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("bytecode: truncated header")
	}
	if ver != version {
		return nil, fmt.Errorf("bytecode: unsupported version %d (want %d)", ver, version)
	}
	return readFunction(vmm, r)
}

func writeFunction(buf *bytes.Buffer, fn *vm.FunctionObj) {
	writeString(buf, fn.Name)
	writeU8(buf, uint8(fn.Arity))
	writeBool(buf, fn.Variadic)

	writeU8(buf, uint8(len(fn.Defaults)))
	for _, d := range fn.Defaults {
		writeValue(buf, d)
	}

	writeU8(buf, uint8(fn.UpvalueCount))
	for i := 0; i < fn.UpvalueCount; i++ {
		writeBool(buf, fn.UpvalueIsLocal[i])
		writeU8(buf, uint8(fn.UpvalueIndex[i]))
	}

	code := fn.Chunk.Code
	writeU32(buf, uint32(len(code)))
	buf.Write(code)
	for _, line := range fn.Chunk.Lines {
		writeU32(buf, uint32(line))
	}

	writeU16(buf, uint16(len(fn.Chunk.Constants)))
	for _, c := range fn.Chunk.Constants {
		writeValue(buf, c)
	}
}

func readFunction(vmm *vm.VM, r *bytes.Reader) (*vm.FunctionObj, error) {
	name, err := readRawString(r)
	if err != nil {
		return nil, err
	}
	arity, err := readU8(r)
	if err != nil {
		return nil, err
	}
	variadic, err := readBool(r)
	if err != nil {
		return nil, err
	}

	numDefaults, err := readU8(r)
	if err != nil {
		return nil, err
	}
	defaults := make([]vm.Value, numDefaults)
	for i := range defaults {
		defaults[i], err = readValue(vmm, r)
		if err != nil {
			return nil, err
		}
	}

	upvalc, err := readU8(r)
	if err != nil {
		return nil, err
	}
	isLocal := make([]bool, upvalc)
	index := make([]int, upvalc)
	for i := 0; i < int(upvalc); i++ {
		isLocal[i], err = readBool(r)
		if err != nil {
			return nil, err
		}
		idx, err := readU8(r)
		if err != nil {
			return nil, err
		}
		index[i] = int(idx)
	}

	codeLen, err := readU32(r)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := r.Read(code); err != nil {
		return nil, fmt.Errorf("bytecode: truncated code: %w", err)
	}
	lines := make([]int, codeLen)
	for i := range lines {
		line, err := readU32(r)
		if err != nil {
			return nil, err
		}
		lines[i] = int(line)
	}

	numConsts, err := readU16(r)
	if err != nil {
		return nil, err
	}
	consts := make([]vm.Value, numConsts)
	for i := range consts {
		consts[i], err = readValue(vmm, r)
		if err != nil {
			return nil, err
		}
	}

	chunk := &vm.Chunk{Code: code, Constants: consts, Lines: lines}
	fn := &vm.FunctionObj{
		Name:           name,
		Arity:          int(arity),
		Defaults:       defaults,
		Variadic:       variadic,
		Chunk:          chunk,
		UpvalueCount:   int(upvalc),
		UpvalueIsLocal: isLocal,
		UpvalueIndex:   index,
	}
	vmm.RegisterObject(fn)
	return fn, nil
}

func writeValue(buf *bytes.Buffer, v vm.Value) {
	switch {
	case v.IsNull():
		buf.WriteByte(tagNull)
	case v.IsBool():
		if v.AsBool() {
			buf.WriteByte(tagTrue)
		} else {
			buf.WriteByte(tagFalse)
		}
	case v.IsNumber():
		buf.WriteByte(tagNumber)
		writeF64(buf, v.AsNumber())
	case v.IsObjKind(vm.KindString):
		buf.WriteByte(tagString)
		writeString(buf, v.AsString().Value)
	case v.IsObjKind(vm.KindFunction):
		buf.WriteByte(tagFunction)
		writeFunction(buf, v.AsFunction())
	default:
		panic(fmt.Sprintf("bytecode: constant of kind %v is not serializable", v.AsObj().Kind()))
	}
}

func readValue(vmm *vm.VM, r *bytes.Reader) (vm.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return vm.Null, fmt.Errorf("bytecode: truncated constant tag: %w", err)
	}
	switch tag {
	case tagNull:
		return vm.Null, nil
	case tagFalse:
		return vm.BoolValue(false), nil
	case tagTrue:
		return vm.BoolValue(true), nil
	case tagNumber:
		f, err := readF64(r)
		if err != nil {
			return vm.Null, err
		}
		return vm.NumberValue(f), nil
	case tagString:
		s, err := readRawString(r)
		if err != nil {
			return vm.Null, err
		}
		return vmm.InternString(s), nil
	case tagFunction:
		fn, err := readFunction(vmm, r)
		if err != nil {
			return vm.Null, err
		}
		return vm.ObjValue(fn), nil
	default:
		return vm.Null, fmt.Errorf("bytecode: unknown constant tag %d", tag)
	}
}

// --- primitive encode/decode helpers ---

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func writeU8(buf *bytes.Buffer, v uint8) { buf.WriteByte(v) }

func readU8(r *bytes.Reader) (uint8, error) { return r.ReadByte() }

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, fmt.Errorf("bytecode: truncated u16: %w", err)
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, fmt.Errorf("bytecode: truncated u32: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeF64(buf *bytes.Buffer, f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	buf.Write(b[:])
}

func readF64(r *bytes.Reader) (float64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, fmt.Errorf("bytecode: truncated f64: %w", err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
}

func readRawString(r *bytes.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return "", fmt.Errorf("bytecode: truncated string: %w", err)
		}
	}
	return string(b), nil
}
