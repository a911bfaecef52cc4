package vm

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"
)

func newTestVM() (*VM, *bytes.Buffer) {
	var out bytes.Buffer
	v := NewVMWithConfig(Config{Context: ContextTest, Stdout: &out, Stderr: &out})
	return v, &out
}

// expectError runs body under the trap and reports the kind raised.
func expectError(t *testing.T, v *VM, kind ErrorKind, body func() Value) *RuntimeError {
	t.Helper()
	_, err := v.protect(body)
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want %s", err, kind)
	}
	if rerr.Kind != kind {
		t.Errorf("error kind = %s, want %s (%s)", rerr.Kind, kind, rerr.Message)
	}
	return rerr
}

func TestRunAssembled(t *testing.T) {
	v, _ := newTestVM()

	b := NewFunctionBuilder("", "<test>", nil)
	b.EmitUint16(OpPushConstant, uint16(b.AddConstant(FromInt32(40))))
	b.EmitUint16(OpPushConstant, uint16(b.AddConstant(FromInt32(2))))
	b.Emit(OpAdd)
	b.EmitDefineGlobal(uint16(b.AddConstant(FromString("answer"))), true)
	b.EmitUint16(OpGetGlobal, uint16(b.AddConstant(FromString("answer"))))
	b.Emit(OpReturn)

	result, err := v.Run(b.Build())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind() != KindInt32 || result.Int32() != 42 {
		t.Errorf("result = %v, want 42", result)
	}
	if !v.Globals.IsImmutable("answer") {
		t.Error("answer should be immutable")
	}
	if v.StackDepth() != 0 || v.FrameDepth() != 0 {
		t.Errorf("stack %d frames %d after run, want 0 0", v.StackDepth(), v.FrameDepth())
	}
}

func TestRunUndefinedGlobal(t *testing.T) {
	v, _ := newTestVM()

	b := NewFunctionBuilder("", "<test>", nil)
	b.SetLocation(&DebugLocation{Line: 3, Column: 5, SourceLine: "missing"})
	b.EmitUint16(OpGetGlobal, uint16(b.AddConstant(FromString("missing"))))
	b.Emit(OpReturn)

	_, err := v.Run(b.Build())
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want RuntimeError", err)
	}
	if rerr.Kind != ErrReference {
		t.Errorf("kind = %s, want ReferenceError", rerr.Kind)
	}
	if rerr.Line != 3 || rerr.Column != 5 {
		t.Errorf("location = %d:%d, want 3:5", rerr.Line, rerr.Column)
	}
	if v.StackDepth() != 0 {
		t.Errorf("stack depth = %d after error, want 0", v.StackDepth())
	}
}

func TestConstantsShared(t *testing.T) {
	b := NewFunctionBuilder("", "<test>", nil)
	a := b.AddConstant(FromString("x"))
	c := b.AddConstant(FromString("x"))
	d := b.AddConstant(FromInt32(1))
	e := b.AddConstant(FromFloat64(1))
	if a != c {
		t.Errorf("string constants %d and %d should be shared", a, c)
	}
	if d == e {
		t.Error("int32 1 and float64 1 should be distinct constants")
	}
}

func TestParseContext(t *testing.T) {
	tests := []struct {
		in      string
		want    Context
		wantErr bool
	}{
		{"", ContextScript, false},
		{"script", ContextScript, false},
		{"REPL", ContextREPL, false},
		{"test", ContextTest, false},
		{"daemon", ContextScript, true},
	}
	for _, tt := range tests {
		got, err := ParseContext(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseContext(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseContext(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScriptContextExits(t *testing.T) {
	var out bytes.Buffer
	v := NewVMWithConfig(Config{Context: ContextScript, Stdout: &out, Stderr: &out})
	status := 0
	v.Exit = func(code int) { status = code }

	v.protect(func() Value {
		v.Throw(ErrType, "boom")
		return Null
	})
	if status != 1 {
		t.Errorf("exit status = %d, want 1", status)
	}
	if !strings.Contains(out.String(), "TypeError: boom") {
		t.Errorf("stderr = %q, want TypeError: boom", out.String())
	}
}

// ---------------------------------------------------------------------------
// Numerics
// ---------------------------------------------------------------------------

func TestInt32Arithmetic(t *testing.T) {
	v, _ := newTestVM()

	tests := []struct {
		op       Opcode
		a, b     int32
		wantKind Kind
		want     string
	}{
		{OpAdd, 1, 2, KindInt32, "3"},
		{OpAdd, 2147483647, 1, KindBigInt, "2147483648"},
		{OpSubtract, -2147483648, 1, KindBigInt, "-2147483649"},
		{OpMultiply, 65536, 65536, KindBigInt, "4294967296"},
		{OpMultiply, -3, 4, KindInt32, "-12"},
		{OpMod, 7, 3, KindInt32, "1"},
		{OpFloorDiv, 7, 2, KindInt32, "3"},
	}
	for _, tt := range tests {
		got, err := v.protect(func() Value { return v.Arith(tt.op, FromInt32(tt.a), FromInt32(tt.b)) })
		if err != nil {
			t.Errorf("%s(%d, %d) error: %v", tt.op, tt.a, tt.b, err)
			continue
		}
		if got.Kind() != tt.wantKind {
			t.Errorf("%s(%d, %d) kind = %s, want %s", tt.op, tt.a, tt.b, got.Kind(), tt.wantKind)
		}
		if s := v.ToString(got); s != tt.want {
			t.Errorf("%s(%d, %d) = %s, want %s", tt.op, tt.a, tt.b, s, tt.want)
		}
	}
}

func TestNegateInt32Min(t *testing.T) {
	v, _ := newTestVM()
	got, err := v.protect(func() Value { return v.negate(FromInt32(-2147483648)) })
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind() != KindBigInt || v.ToString(got) != "2147483648" {
		t.Errorf("-int32 min = %s %s, want bigint 2147483648", got.Kind(), v.ToString(got))
	}
}

func TestBigIntNormalizes(t *testing.T) {
	v, _ := newTestVM()
	got := v.Integer(big.NewInt(12))
	if got.Kind() != KindInt32 || got.Int32() != 12 {
		t.Errorf("Integer(12) = %v, want int32 12", got)
	}
	n, _ := new(big.Int).SetString("99999999999999999999", 10)
	if got := v.Integer(n); got.Kind() != KindBigInt {
		t.Errorf("Integer(%s) kind = %s, want bigint", n, got.Kind())
	}
	if got := FromBigInt(big.NewInt(-5)); got.Kind() != KindInt32 {
		t.Errorf("FromBigInt(-5) kind = %s, want int32", got.Kind())
	}
}

func TestDivisionByZero(t *testing.T) {
	v, _ := newTestVM()
	for _, op := range []Opcode{OpDivide, OpMod, OpFloorDiv} {
		expectError(t, v, ErrArithmetic, func() Value {
			return v.Arith(op, FromInt32(1), FromInt32(0))
		})
	}
	expectError(t, v, ErrArithmetic, func() Value {
		return v.Arith(OpDivide, FromFloat64(1), FromFloat64(0))
	})
}

func TestZeroToNegativePower(t *testing.T) {
	v, _ := newTestVM()
	tests := []struct {
		a, b Value
	}{
		{FromFloat64(0), FromInt32(-1)},
		{FromFloat64(0), FromFloat64(-0.5)},
		{FromFloat32(0), FromInt32(-2)},
	}
	for _, tt := range tests {
		expectError(t, v, ErrArithmetic, func() Value { return v.Arith(OpPower, tt.a, tt.b) })
	}
	got, err := v.protect(func() Value { return v.Arith(OpPower, FromFloat64(0), FromInt32(0)) })
	if err != nil {
		t.Fatalf("0.0 ** 0 error: %v", err)
	}
	if s := v.ToString(got); s != "1.0" {
		t.Errorf("0.0 ** 0 = %s, want 1.0", s)
	}
}

func TestFloatPromotion(t *testing.T) {
	v, _ := newTestVM()
	tests := []struct {
		a, b Value
		want Kind
	}{
		{FromInt32(1), FromFloat32(1.5), KindFloat32},
		{FromFloat32(1), FromFloat64(1.5), KindFloat64},
		{FromInt32(1), FromFloat64(0.5), KindFloat64},
	}
	for _, tt := range tests {
		got, err := v.protect(func() Value { return v.Arith(OpAdd, tt.a, tt.b) })
		if err != nil {
			t.Fatal(err)
		}
		if got.Kind() != tt.want {
			t.Errorf("%s + %s = %s, want %s", tt.a.Kind(), tt.b.Kind(), got.Kind(), tt.want)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{1, "1.0"},
		{1.5, "1.5"},
		{-0.25, "-0.25"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.f, 64); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestCompareMixedNumbers(t *testing.T) {
	n, _ := new(big.Int).SetString("10000000000", 10)
	tests := []struct {
		a, b Value
		want int
	}{
		{FromInt32(1), FromFloat64(1.5), -1},
		{FromBigInt(n), FromInt32(5), 1},
		{FromFloat32(2), FromInt32(2), 0},
	}
	for _, tt := range tests {
		got, ok := compareNumbers(tt.a, tt.b)
		if !ok || got != tt.want {
			t.Errorf("compareNumbers(%s, %s) = %d, %v, want %d", tt.a.Kind(), tt.b.Kind(), got, ok, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Protocols
// ---------------------------------------------------------------------------

func TestEqualsAndHash(t *testing.T) {
	v, _ := newTestVM()

	obj := func(pairs ...any) Value {
		o := v.NewObject()
		for i := 0; i < len(pairs); i += 2 {
			v.Invoke(o, "set", v.NewString(pairs[i].(string)), FromInt32(int32(pairs[i+1].(int))))
		}
		return o
	}

	_, err := v.protect(func() Value {
		a, b := obj("a", 1, "b", 2), obj("b", 2, "a", 1)
		if !v.Equals(a, b) || v.Hash(a) != v.Hash(b) {
			t.Error("objects with the same entries should be equal with equal hashes")
		}

		x := v.NewArray(FromInt32(1), FromInt32(2))
		y := v.NewArray(FromInt32(2), FromInt32(1))
		if v.Equals(x, y) {
			t.Error("arrays in different order should differ")
		}
		if v.Hash(x) == v.Hash(y) {
			t.Error("array hash should depend on order")
		}

		if !v.Equals(FromInt32(1), FromFloat64(1)) || v.Hash(FromInt32(1)) != v.Hash(FromFloat64(1)) {
			t.Error("1 and 1.0 should be equal with equal hashes")
		}
		if !v.Equals(v.NewString("hi"), v.NewString("hi")) {
			t.Error("equal strings should compare equal")
		}
		return Null
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRepr(t *testing.T) {
	v, _ := newTestVM()
	tests := []struct {
		value Value
		want  string
	}{
		{Null, "null"},
		{Undefined, "undefined"},
		{FromBool(true), "true"},
		{FromInt32(-7), "-7"},
		{FromFloat64(2), "2.0"},
		{v.NewString("a\"b"), `"a\"b"`},
		{v.NewArray(FromInt32(1), v.NewString("x")), `[1, "x"]`},
	}
	for _, tt := range tests {
		got, err := v.Display(tt.value)
		if err != nil {
			t.Errorf("Display(%s) error: %v", tt.value.Kind(), err)
			continue
		}
		if got != tt.want {
			t.Errorf("Display(%s) = %s, want %s", tt.value.Kind(), got, tt.want)
		}
	}
}

func TestStoreUndefined(t *testing.T) {
	v, _ := newTestVM()
	o := v.NewObject()
	expectError(t, v, ErrType, func() Value {
		return v.Invoke(o, "set", v.NewString("k"), Undefined)
	})
}

func TestArrayIndexRange(t *testing.T) {
	v, _ := newTestVM()
	a := v.NewArray(FromInt32(1))
	expectError(t, v, ErrRange, func() Value { return v.Invoke(a, "get", FromInt32(1)) })
	expectError(t, v, ErrRange, func() Value { return v.Invoke(a, "get", FromInt32(-1)) })
}

func TestUnknownMethod(t *testing.T) {
	v, _ := newTestVM()
	rerr := expectError(t, v, ErrType, func() Value { return v.Invoke(FromInt32(1), "frobnicate") })
	if !strings.Contains(rerr.Message, "frobnicate") {
		t.Errorf("message = %q, want the method name", rerr.Message)
	}
}

// ---------------------------------------------------------------------------
// Heap
// ---------------------------------------------------------------------------

func TestCollectFreesUnowned(t *testing.T) {
	v, _ := newTestVM()
	v.Collect()
	_, before := v.Heap().Stats()

	arr := v.NewArray(v.NewString("child"))
	if arr.RefCount() != 0 {
		t.Fatalf("new array refcount = %d, want 0", arr.RefCount())
	}
	v.Collect()

	_, after := v.Heap().Stats()
	if after-before < 2 {
		t.Errorf("freed %d objects, want the array and its element", after-before)
	}
}

func TestCollectKeepsOwned(t *testing.T) {
	v, _ := newTestVM()
	v.Collect()
	_, before := v.Heap().Stats()

	s := v.NewString("kept")
	v.Globals.Define("kept", s, false)
	v.Collect()

	_, after := v.Heap().Stats()
	if after != before {
		t.Errorf("freed %d objects, want 0", after-before)
	}
	if got, _ := v.Globals.Get("kept"); got.AsString() == nil {
		t.Error("global string was lost")
	}
}
