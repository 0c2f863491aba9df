package vm

import (
	"fmt"
	"math"
	"unsafe"
)

// ValueType discriminates the scalar kinds a Value can hold directly,
// plus a single tag for heap objects; the specific object kind lives on
// the object header, not in the Value.
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeBool
	TypeNumber
	TypeHandle // opaque host handle owned by the embedder
	TypeObj    // heap object; see Value.obj.Kind() for the specific ObjKind
)

func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeHandle:
		return "handle"
	case TypeObj:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a uniformly-sized, copy-by-value cell holding exactly one of
// null, a boolean, a number, an opaque host handle, or a heap object.
// Numbers are stored in payload via math.Float64bits rather than
// NaN-tagged into a pointer word, trading one word of padding for an
// encoding that never has to reason about NaN payload collisions.
type Value struct {
	typ     ValueType
	payload uint64 // bool (0/1) or float64 bits or host-handle id
	obj     Obj    // non-nil iff typ == TypeObj
}

var (
	Null  = Value{typ: TypeNull}
	True  = Value{typ: TypeBool, payload: 1}
	False = Value{typ: TypeBool, payload: 0}
)

func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func NumberValue(f float64) Value {
	return Value{typ: TypeNumber, payload: math.Float64bits(f)}
}

func HandleValue(id uint64) Value {
	return Value{typ: TypeHandle, payload: id}
}

func ObjValue(o Obj) Value {
	if o == nil {
		return Null
	}
	return Value{typ: TypeObj, obj: o}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsNull() bool   { return v.typ == TypeNull }
func (v Value) IsBool() bool   { return v.typ == TypeBool }
func (v Value) IsNumber() bool { return v.typ == TypeNumber }
func (v Value) IsHandle() bool { return v.typ == TypeHandle }
func (v Value) IsObj() bool    { return v.typ == TypeObj }

// IsObjKind reports whether v is a heap object of the given kind.
func (v Value) IsObjKind(k ObjKind) bool {
	return v.typ == TypeObj && v.obj.Kind() == k
}

func (v Value) AsBool() bool       { return v.payload != 0 }
func (v Value) AsNumber() float64  { return math.Float64frombits(v.payload) }
func (v Value) AsHandle() uint64   { return v.payload }
func (v Value) AsObj() Obj         { return v.obj }

func (v Value) AsString() *StringObj     { return v.obj.(*StringObj) }
func (v Value) AsList() *ListObj         { return v.obj.(*ListObj) }
func (v Value) AsTuple() *TupleObj       { return v.obj.(*TupleObj) }
func (v Value) AsTable() *TableObj       { return v.obj.(*TableObj) }
func (v Value) AsFunction() *FunctionObj { return v.obj.(*FunctionObj) }
func (v Value) AsClosure() *ClosureObj   { return v.obj.(*ClosureObj) }
func (v Value) AsNative() *NativeObj     { return v.obj.(*NativeObj) }
func (v Value) AsClass() *ClassObj       { return v.obj.(*ClassObj) }
func (v Value) AsInstance() *InstanceObj { return v.obj.(*InstanceObj) }
func (v Value) AsBoundMethod() *BoundMethodObj {
	return v.obj.(*BoundMethodObj)
}
func (v Value) AsModule() *ModuleObj       { return v.obj.(*ModuleObj) }
func (v Value) AsStackTrace() *StackTraceObj { return v.obj.(*StackTraceObj) }

// truthy is false only for null and the boolean false. Numbers and
// objects are always truthy, including 0 and empty collections; this is
// a language-level rule, not an oversight.
func (v Value) truthy() bool {
	switch v.typ {
	case TypeNull:
		return false
	case TypeBool:
		return v.AsBool()
	default:
		return true
	}
}

// Is implements identity-equality used for constant-pool deduplication and
// interning: bitwise for scalars, pointer identity for objects.
func (v Value) Is(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBool, TypeNumber, TypeHandle:
		return v.payload == other.payload
	case TypeObj:
		return v.obj == other.obj
	default:
		return false
	}
}

// primitiveEquals is the non-overridable part of the equality rule:
// bitwise for bool/null, IEEE-754 == for numbers, identity for objects.
// __eq__ overload dispatch for objects happens in the dispatch loop
// (OpEq), not here; this is the fallback case.
func (v Value) primitiveEquals(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBool:
		return v.AsBool() == other.AsBool()
	case TypeNumber:
		return v.AsNumber() == other.AsNumber()
	case TypeHandle:
		return v.payload == other.payload
	case TypeObj:
		return v.obj == other.obj
	default:
		return false
	}
}

// Inspect renders v for disassembly, stack traces and the REPL.
func (v Value) Inspect() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case TypeNumber:
		return formatNumber(v.AsNumber())
	case TypeHandle:
		return fmt.Sprintf("<handle %d>", v.payload)
	case TypeObj:
		return v.obj.Inspect()
	default:
		return "<?>"
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}

// classOf returns the built-in class for scalars, or the object's own
// class for heap values.
func (vm *VM) classOf(v Value) *ClassObj {
	switch v.typ {
	case TypeNumber:
		return vm.numClass
	case TypeBool:
		return vm.boolClass
	case TypeNull:
		return vm.nullClass
	case TypeObj:
		return v.obj.Class(vm)
	default:
		return vm.objClass
	}
}

// sizeOfValue is used by the allocator to charge GC pressure; unsafe import
// is kept narrow and local to this accounting helper.
func sizeOfValue() uintptr { return unsafe.Sizeof(Value{}) }
