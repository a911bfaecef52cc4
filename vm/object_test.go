package vm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStackOps(t *testing.T) {
	tests := []struct {
		name string
		push []int32
		emit func(b *FunctionBuilder)
		left int
		want string
	}{
		{"dup", []int32{1}, func(b *FunctionBuilder) { b.Emit(OpDup) }, 2, "[1, 1]"},
		{"swap", []int32{1, 2}, func(b *FunctionBuilder) { b.Emit(OpSwap) }, 2, "[2, 1]"},
		{"over", []int32{1, 2}, func(b *FunctionBuilder) { b.Emit(OpOver) }, 3, "[1, 2, 1]"},
		{"nip", []int32{1, 2}, func(b *FunctionBuilder) { b.Emit(OpNip) }, 1, "[2]"},
		{"rot", []int32{1, 2, 3}, func(b *FunctionBuilder) { b.Emit(OpRot) }, 3, "[2, 3, 1]"},
		{"pop", []int32{1, 2}, func(b *FunctionBuilder) { b.Emit(OpPop) }, 1, "[1]"},
		{"pop n", []int32{1, 2, 3}, func(b *FunctionBuilder) { b.EmitByte(OpPopN, 2) }, 1, "[1]"},
		{"pop n preserve top", []int32{1, 2, 3}, func(b *FunctionBuilder) { b.EmitUint16(OpPopNPreserveTop, 2) }, 1, "[3]"},
		{"pop n preserve top zero", []int32{1, 2}, func(b *FunctionBuilder) { b.EmitUint16(OpPopNPreserveTop, 0) }, 2, "[1, 2]"},
	}

	for _, tt := range tests {
		v, _ := newTestVM()
		b := NewFunctionBuilder("", "<test>", nil)
		for _, n := range tt.push {
			b.EmitUint16(OpPushConstant, uint16(b.AddConstant(FromInt32(n))))
		}
		tt.emit(b)
		b.EmitUint16(OpBuildArray, uint16(tt.left))
		b.Emit(OpReturn)

		result, err := v.Run(b.Build())
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		got, err := v.Display(result)
		if err != nil {
			t.Errorf("%s: display: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, got, tt.want)
		}
		if v.StackDepth() != 0 {
			t.Errorf("%s: stack depth = %d after run, want 0", tt.name, v.StackDepth())
		}
	}
}

func TestGetExport(t *testing.T) {
	v, _ := newTestVM()
	mod := v.NewObject()
	mod.AsObject().Props.Set(v.Intern("answer"), FromInt32(42))
	v.Globals.Define("mod", mod, true)

	b := NewFunctionBuilder("", "<test>", nil)
	b.EmitUint16(OpGetGlobal, uint16(b.AddConstant(FromString("mod"))))
	b.EmitUint16(OpPushConstant, uint16(b.AddConstant(FromString("answer"))))
	b.Emit(OpGetExport)
	b.Emit(OpReturn)

	result, err := v.Run(b.Build())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind() != KindInt32 || result.Int32() != 42 {
		t.Errorf("export = %v, want 42", result)
	}

	missing, err := v.protect(func() Value { return v.getExport(mod, v.NewString("nope")) })
	if err != nil {
		t.Fatalf("missing export error: %v", err)
	}
	if !missing.IsUndefined() {
		t.Errorf("missing export = %s, want undefined", missing.Kind())
	}
	expectError(t, v, ErrType, func() Value { return v.getExport(FromInt32(1), v.NewString("answer")) })
}

func TestContainerRefCounts(t *testing.T) {
	v, _ := newTestVM()

	s := v.NewString("elem")
	arr := v.NewArray().AsArray()
	steps := []struct {
		name string
		do   func()
		want int
	}{
		{"fresh", func() {}, 0},
		{"push", func() { arr.Push(s) }, 1},
		{"push again", func() { arr.Push(s) }, 2},
		{"pop", func() { arr.Pop() }, 1},
		{"pop last", func() { arr.Pop() }, 0},
	}
	for _, st := range steps {
		st.do()
		if got := s.RefCount(); got != st.want {
			t.Errorf("array %s: refcount = %d, want %d", st.name, got, st.want)
		}
	}

	o := v.NewString("prop")
	props := NewPropertyMap()
	key := v.Intern("k")
	steps = []struct {
		name string
		do   func()
		want int
	}{
		{"fresh", func() {}, 0},
		{"set", func() { props.Set(key, o) }, 1},
		{"replace with self", func() { props.Set(key, o) }, 1},
		{"delete", func() { props.Delete(key) }, 0},
	}
	for _, st := range steps {
		st.do()
		if got := o.RefCount(); got != st.want {
			t.Errorf("property %s: refcount = %d, want %d", st.name, got, st.want)
		}
	}
}

func TestPropertyMapHashedDelete(t *testing.T) {
	v, _ := newTestVM()
	m := NewPropertyMap()
	var keys []*String
	for i := 0; i < 10; i++ {
		k := v.Intern(fmt.Sprintf("k%d", i))
		keys = append(keys, k)
		m.Set(k, FromInt32(int32(i)))
	}
	if m.index == nil {
		t.Fatalf("index = nil with %d keys, want a hash index", m.Len())
	}

	if !m.Delete(keys[3]) {
		t.Fatal("Delete(k3) = false, want true")
	}
	if m.Delete(keys[3]) {
		t.Error("second Delete(k3) = true, want false")
	}
	if m.index == nil {
		t.Error("index dropped with 9 keys, want it kept")
	}
	if got, ok := m.Get(keys[9]); !ok || got.Int32() != 9 {
		t.Errorf("Get(k9) = %v, %v, want 9, true", got, ok)
	}

	order := func() string {
		var names []string
		for _, k := range m.Keys() {
			names = append(names, k.s)
		}
		return strings.Join(names, " ")
	}
	if got, want := order(), "k0 k1 k2 k4 k5 k6 k7 k8 k9"; got != want {
		t.Errorf("keys = %s, want %s", got, want)
	}

	m.Delete(keys[0])
	if m.index != nil {
		t.Errorf("index kept with %d keys, want linear lookup", m.Len())
	}
	if got, want := order(), "k1 k2 k4 k5 k6 k7 k8 k9"; got != want {
		t.Errorf("keys = %s, want %s", got, want)
	}
	for i, k := range keys {
		_, ok := m.Get(k)
		if want := i != 0 && i != 3; ok != want {
			t.Errorf("Has(%s) = %v, want %v", k.s, ok, want)
		}
	}
}

func TestCyclicContainers(t *testing.T) {
	v, _ := newTestVM()

	a := v.NewArray()
	a.AsArray().Push(a)
	b := v.NewArray()
	b.AsArray().Push(b)
	o := v.NewObject()
	o.AsObject().Props.Set(v.Intern("self"), o)

	strTests := []struct {
		value Value
		want  string
	}{
		{a, "[[...]]"},
		{o, "{self: {...}}"},
	}
	for _, tt := range strTests {
		got, err := v.protect(func() Value { return v.NewString(v.ToString(tt.value)) })
		if err != nil {
			t.Errorf("ToString(%s) error: %v", tt.value.Kind(), err)
			continue
		}
		if s := v.ToString(got); s != tt.want {
			t.Errorf("ToString(%s) = %s, want %s", tt.value.Kind(), s, tt.want)
		}
	}

	if !v.Equals(a, b) {
		t.Error("Equals(a, b) = false for two self-containing arrays, want true")
	}
	if v.Hash(a) != v.Hash(b) {
		t.Errorf("Hash(a) = %d, Hash(b) = %d, want equal", v.Hash(a), v.Hash(b))
	}
	if v.Hash(o) != v.Hash(o) {
		t.Error("Hash(o) is not stable")
	}
	if len(v.visiting) != 0 {
		t.Errorf("%d traversals left in progress, want 0", len(v.visiting))
	}
}

func TestDeepNesting(t *testing.T) {
	v, _ := newTestVM()
	d := v.NewArray()
	for i := 0; i < 1000; i++ {
		d = v.NewArray(d)
	}
	rerr := expectError(t, v, ErrRange, func() Value { return v.NewString(v.ToString(d)) })
	if !strings.Contains(rerr.Message, "too deep") {
		t.Errorf("message = %q, want it to mention depth", rerr.Message)
	}
	if len(v.visiting) != 0 {
		t.Errorf("%d traversals left in progress after error, want 0", len(v.visiting))
	}
}

func TestUndefinedArguments(t *testing.T) {
	v, _ := newTestVM()

	typeFn, ok := v.Globals.Get("type")
	if !ok {
		t.Fatal("no global type")
	}
	got, err := v.protect(func() Value { return v.Call(typeFn, Undefined) })
	if err != nil {
		t.Fatalf("type(undefined) error: %v", err)
	}
	if s := v.ToString(got); s != "undefined" {
		t.Errorf("type(undefined) = %s, want undefined", s)
	}

	got, err = v.protect(func() Value { return v.Invoke(Undefined, "equals", Undefined) })
	if err != nil {
		t.Fatalf("undefined.equals(undefined) error: %v", err)
	}
	if got.Kind() != KindBoolean || !got.Bool() {
		t.Errorf("undefined.equals(undefined) = %s, want true", v.ToString(got))
	}

	arr := v.NewArray()
	expectError(t, v, ErrType, func() Value { return v.Invoke(arr, "push", Undefined) })

	inner := NewFunctionBuilder("id", "<test>", []string{"x"})
	inner.EmitByte(OpGetLocal, 0)
	inner.Emit(OpReturn)
	b := NewFunctionBuilder("", "<test>", nil)
	b.EmitUint16(OpClosure, uint16(b.AddConstant(FromFunction(inner.Build()))))
	b.EmitUint16(OpPushConstant, uint16(b.AddConstant(Undefined)))
	b.EmitByte(OpCall, 1)
	b.Emit(OpReturn)

	_, err = v.Run(b.Build())
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Kind != ErrType {
		t.Fatalf("id(undefined) error = %v, want TypeError", err)
	}
	if !strings.Contains(rerr.Message, "'x'") {
		t.Errorf("message = %q, want the parameter name", rerr.Message)
	}
}
