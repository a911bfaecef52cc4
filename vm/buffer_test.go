package vm

import (
	"testing"
)

func builtin(t *testing.T, v *VM, name string) Value {
	t.Helper()
	c, ok := v.Builtins.Get(name)
	if !ok {
		t.Fatalf("no builtin %s", name)
	}
	return c
}

func TestBufferBuilderReaderRoundTrip(t *testing.T) {
	v, _ := newTestVM()

	_, err := v.protect(func() Value {
		b := v.Call(builtin(t, v, "BufferBuilder"))
		v.Invoke(b, "writeUint8", FromInt32(255))
		v.Invoke(b, "writeInt16LE", FromInt32(-2))
		v.Invoke(b, "writeUint32BE", FromInt32(0x01020304))
		v.Invoke(b, "writeFloat64LE", FromFloat64(2.5))
		v.Invoke(b, "writeString", v.NewString("ok"))
		buf := v.Invoke(b, "toBuffer")

		if n := v.Invoke(buf, "length").Int32(); n != 1+2+4+8+2 {
			t.Errorf("length = %d, want 17", n)
		}
		hex := v.ToString(v.Invoke(buf, "toHex"))
		if hex[:14] != "fffeff01020304" {
			t.Errorf("hex prefix = %s, want fffeff01020304", hex[:14])
		}

		r := v.Invoke(buf, "reader")
		checks := []struct {
			method string
			want   string
		}{
			{"readUint8", "255"},
			{"readInt16LE", "-2"},
			{"readUint32BE", "16909060"},
			{"readFloat64LE", "2.5"},
		}
		for _, c := range checks {
			if got := v.ToString(v.Invoke(r, c.method)); got != c.want {
				t.Errorf("%s = %s, want %s", c.method, got, c.want)
			}
		}
		if got := v.ToString(v.Invoke(r, "readString", FromInt32(2))); got != "ok" {
			t.Errorf("readString = %q, want ok", got)
		}
		if !v.Invoke(r, "isEmpty").Bool() {
			t.Error("reader should be exhausted")
		}
		return Null
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBufferUnderflow(t *testing.T) {
	v, _ := newTestVM()
	buf := v.newBuffer([]byte{1})
	r := v.newBufferReader(buf)
	expectError(t, v, ErrRange, func() Value { return v.Invoke(r, "readUint32LE") })
}

func TestBufferFromHex(t *testing.T) {
	v, _ := newTestVM()
	cls := builtin(t, v, "Buffer")

	got, err := v.protect(func() Value {
		return v.Invoke(cls, "fromHex", v.NewString("DEADbeef"))
	})
	if err != nil {
		t.Fatal(err)
	}
	if s := v.ToString(v.Invoke(got, "toHex")); s != "deadbeef" {
		t.Errorf("toHex = %s, want deadbeef", s)
	}
	expectError(t, v, ErrRange, func() Value {
		return v.Invoke(cls, "fromHex", v.NewString("abc"))
	})
}
