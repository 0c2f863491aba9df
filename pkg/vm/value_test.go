package vm

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null, false},
		{"false", False, false},
		{"true", True, true},
		{"zero", NumberValue(0), true},
		{"negative", NumberValue(-1), true},
		{"handle", HandleValue(0), true},
	}
	for _, tt := range tests {
		if got := tt.v.truthy(); got != tt.want {
			t.Errorf("%s: truthy() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTruthyEmptyCollectionsAreTrue(t *testing.T) {
	vm := NewDefault()
	l := &ListObj{}
	vm.registerObject(l)
	if !ObjValue(l).truthy() {
		t.Errorf("empty collections are truthy in this language, got falsey")
	}
}

func TestPrimitiveEquals(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null==null", Null, Null, true},
		{"true==true", True, True, true},
		{"true!=false", True, False, false},
		{"1==1", NumberValue(1), NumberValue(1), true},
		{"1!=2", NumberValue(1), NumberValue(2), false},
		{"nan!=nan", NumberValue(nan()), NumberValue(nan()), false},
		{"bool!=number", True, NumberValue(1), false},
	}
	for _, tt := range tests {
		if got := tt.a.primitiveEquals(tt.b); got != tt.want {
			t.Errorf("%s: primitiveEquals() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestValueIsIdentity(t *testing.T) {
	vm := NewDefault()
	a := vm.intern("hello")
	b := vm.intern("hello")
	if !ObjValue(a).Is(ObjValue(b)) {
		t.Errorf("two interns of the same content must be the identical pointer")
	}

	l1 := &ListObj{}
	vm.registerObject(l1)
	l2 := &ListObj{}
	vm.registerObject(l2)
	if ObjValue(l1).Is(ObjValue(l2)) {
		t.Errorf("distinct List objects must not be Is-equal even with identical (empty) contents")
	}
}

func TestClassOf(t *testing.T) {
	vm := NewDefault()
	tests := []struct {
		name string
		v    Value
		want *ClassObj
	}{
		{"number", NumberValue(1), vm.numClass},
		{"bool", True, vm.boolClass},
		{"null", Null, vm.nullClass},
	}
	for _, tt := range tests {
		if got := vm.classOf(tt.v); got != tt.want {
			t.Errorf("%s: classOf() = %v, want %v", tt.name, got.Name, tt.want.Name)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{3, "3"},
		{-3, "-3"},
		{0, "0"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		if got := NumberValue(tt.f).Inspect(); got != tt.want {
			t.Errorf("Inspect(%v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}
