package vm

import (
	"bytes"
	"math/big"
	"reflect"
	"testing"
)

func buildEncodable() *Function {
	inner := NewFunctionBuilder("inner", "/src/main.slate", []string{"y"})
	inner.SetLocation(&DebugLocation{Line: 2, Column: 3, SourceLine: "  x + y"})
	inner.EmitByte(OpGetUpvalue, 0)
	inner.EmitByte(OpGetLocal, 0)
	inner.Emit(OpAdd)
	inner.Emit(OpReturn)
	inner.AddUpvalue(UpvalueDescriptor{IsLocal: true, Index: 0, Name: "x"})

	n, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	outer := NewFunctionBuilder("", "/src/main.slate", []string{"x"})
	outer.SetLocation(&DebugLocation{Line: 1, Column: 1, SourceLine: "val x = 1"})
	outer.AddConstant(Null)
	outer.AddConstant(FromBool(true))
	outer.AddConstant(FromInt32(-17))
	outer.AddConstant(FromBigInt(n))
	outer.AddConstant(FromFloat32(1.5))
	outer.AddConstant(FromFloat64(0.1))
	outer.AddConstant(FromString("héllo"))
	outer.EmitUint16(OpClosure, uint16(outer.AddConstant(FromFunction(inner.Build()))))
	outer.Emit(OpReturn)
	return outer.Build()
}

func TestFunctionRoundTrip(t *testing.T) {
	fn := buildEncodable()
	data, err := MarshalFunction(fn)
	if err != nil {
		t.Fatalf("MarshalFunction: %v", err)
	}
	got, err := UnmarshalFunction(data)
	if err != nil {
		t.Fatalf("UnmarshalFunction: %v", err)
	}

	if !bytes.Equal(got.Code, fn.Code) {
		t.Errorf("code = %x, want %x", got.Code, fn.Code)
	}
	if !reflect.DeepEqual(got.Params, fn.Params) || got.LocalCount != fn.LocalCount {
		t.Errorf("params %v/%d, want %v/%d", got.Params, got.LocalCount, fn.Params, fn.LocalCount)
	}
	if len(got.Constants) != len(fn.Constants) {
		t.Fatalf("constants = %d, want %d", len(got.Constants), len(fn.Constants))
	}
	for i, c := range fn.Constants {
		g := got.Constants[i]
		if g.Kind() != c.Kind() {
			t.Errorf("constant %d kind = %s, want %s", i, g.Kind(), c.Kind())
			continue
		}
		switch c.Kind() {
		case KindString:
			if g.AsString().s != c.AsString().s {
				t.Errorf("constant %d = %q, want %q", i, g.AsString().s, c.AsString().s)
			}
		case KindBigInt:
			if g.AsBigInt().n.Cmp(c.AsBigInt().n) != 0 {
				t.Errorf("constant %d = %s, want %s", i, g.AsBigInt().n, c.AsBigInt().n)
			}
		case KindFunction:
			gi, ci := g.AsFunction(), c.AsFunction()
			if gi.Name != ci.Name || !reflect.DeepEqual(gi.Upvalues, ci.Upvalues) {
				t.Errorf("inner function = %s %v, want %s %v", gi.Name, gi.Upvalues, ci.Name, ci.Upvalues)
			}
			if loc := gi.LocationAt(0); loc == nil || loc.Line != 2 || loc.SourceLine != "  x + y" {
				t.Errorf("inner location = %v, want 2:3", loc)
			} else if loc.File != "/src/main.slate" {
				t.Errorf("inner location file = %q, want /src/main.slate", loc.File)
			}
		default:
			if g.bits != c.bits {
				t.Errorf("constant %d bits = %x, want %x", i, g.bits, c.bits)
			}
		}
	}
}

func TestUnmarshalRejects(t *testing.T) {
	if _, err := UnmarshalFunction([]byte("not cbor at all")); err == nil {
		t.Error("garbage should be rejected")
	}
	data, err := cborEncMode.Marshal(&wireFile{Magic: compiledMagic, Version: compiledVersion + 1, Function: &wireFunction{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalFunction(data); err == nil {
		t.Error("a future version should be rejected")
	}
	data, _ = cborEncMode.Marshal(&wireFile{Magic: "other", Version: compiledVersion, Function: &wireFunction{}})
	if _, err := UnmarshalFunction(data); err == nil {
		t.Error("a foreign magic should be rejected")
	}
}

func TestMarshalRejectsRuntimeConstants(t *testing.T) {
	v, _ := newTestVM()
	b := NewFunctionBuilder("", "<test>", nil)
	b.AddConstant(v.NewArray())
	b.Emit(OpReturn)
	if _, err := MarshalFunction(b.Build()); err == nil {
		t.Error("an array constant should not encode")
	}
}

func TestRunDecoded(t *testing.T) {
	b := NewFunctionBuilder("", "<test>", nil)
	b.EmitUint16(OpPushConstant, uint16(b.AddConstant(FromInt32(6))))
	b.EmitUint16(OpPushConstant, uint16(b.AddConstant(FromInt32(7))))
	b.Emit(OpMultiply)
	b.Emit(OpReturn)

	data, err := MarshalFunction(b.Build())
	if err != nil {
		t.Fatal(err)
	}
	fn, err := UnmarshalFunction(data)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := newTestVM()
	result, err := v.Run(fn)
	if err != nil {
		t.Fatal(err)
	}
	if result.Int32() != 42 {
		t.Errorf("result = %v, want 42", result)
	}
}
