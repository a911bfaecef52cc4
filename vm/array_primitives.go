package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

// callEach calls fn with an element, and with its index as well when fn is
// a compiled function taking two parameters.
func (vm *VM) callEach(fn, v Value, i int) Value {
	if f := calleeFunction(fn); f != nil && f.Arity() == 2 {
		return vm.Call(fn, v, FromInt32(int32(i)))
	}
	return vm.Call(fn, v)
}

func (vm *VM) arrayString(a *Array) string {
	if !vm.enterContainer(visitString, a) {
		return "[...]"
	}
	defer vm.leaveContainer(visitString, a)
	return "[" + vm.joinRepr(a.items, ", ") + "]"
}

// arrayHash combines element hashes with FNV-1a, then mixes in the length.
func (vm *VM) arrayHash(a *Array) int32 {
	h := fnvOffset
	// A cycle contributes only the length.
	if !vm.enterContainer(visitHash, a) {
		return int32(fnvMix(h, uint32(len(a.items))))
	}
	defer vm.leaveContainer(visitHash, a)
	for _, v := range a.items {
		h = fnvMix(h, uint32(vm.Hash(v)))
	}
	return int32(fnvMix(h, uint32(len(a.items))))
}

func (vm *VM) arrayEquals(a *Array, other Value) bool {
	b := other.AsArray()
	if b == nil || a.Len() != b.Len() {
		return false
	}
	if a == b {
		return true
	}
	// Meeting a again closes a cycle; the pair is equal unless some other
	// element differs.
	if !vm.enterContainer(visitEquals, a) {
		return true
	}
	defer vm.leaveContainer(visitEquals, a)
	for i, v := range a.items {
		if !vm.Equals(v, b.items[i]) {
			return false
		}
	}
	return true
}

// sortValues sorts items in place with an optional comparator returning a
// number whose sign orders the pair.
func (vm *VM) sortValues(items []Value, cmp Value) {
	less := func(i, j int) bool {
		c, _ := vm.Compare(items[i], items[j])
		return c < 0
	}
	if !cmp.IsNullish() {
		vm.callableArg(cmp)
		less = func(i, j int) bool {
			r := vm.Call(cmp, items[i], items[j])
			if !r.IsNumber() {
				vm.ThrowAt(ErrType, r.debug, "comparator must return a number, got %s", vm.typeName(r))
			}
			return sign(r) < 0
		}
	}
	sort.SliceStable(items, less)
}

func (vm *VM) registerArrayPrimitives() {
	c := vm.builtins.array

	c.Factory = func(vm *VM, args []Value) Value {
		for _, v := range args[1:] {
			vm.checkStorable(v)
		}
		return vm.NewArray(args[1:]...)
	}

	vm.AddStatic(c, "of", -1, func(vm *VM, args []Value) Value {
		return vm.NewArray(args[1:]...)
	})

	vm.static2(c, "filled", func(vm *VM, n, v Value) Value {
		count := vm.intArg(n)
		if count < 0 {
			vm.ThrowAt(ErrRange, n.debug, "array length %d is negative", count)
		}
		vm.checkStorable(v)
		items := make([]Value, count)
		for i := range items {
			items[i] = v
		}
		return vm.NewArray(items...)
	})

	vm.method1(c, "equals", func(vm *VM, recv, other Value) Value {
		return FromBool(vm.arrayEquals(recv.AsArray(), other))
	})

	vm.method0(c, "hash", func(vm *VM, recv Value) Value {
		return FromInt32(vm.arrayHash(recv.AsArray()))
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(vm.arrayString(recv.AsArray()))
	})

	vm.method0(c, "length", func(_ *VM, recv Value) Value {
		return FromInt32(int32(recv.AsArray().Len()))
	})

	vm.method0(c, "isEmpty", func(_ *VM, recv Value) Value {
		return FromBool(recv.AsArray().Len() == 0)
	})

	vm.method1(c, "get", func(vm *VM, recv, idx Value) Value {
		return vm.GetIndex(recv, idx)
	})

	vm.method2(c, "set", func(vm *VM, recv, idx, v Value) Value {
		vm.SetIndex(recv, idx, v)
		return v
	})

	// push appends every argument and returns the new length.
	vm.AddMethod(c, "push", -1, func(vm *VM, args []Value) Value {
		a := args[0].AsArray()
		for _, v := range args[1:] {
			vm.checkStorable(v)
			a.Push(v)
		}
		return FromInt32(int32(a.Len()))
	})

	vm.method0(c, "pop", func(vm *VM, recv Value) Value {
		a := recv.AsArray()
		if a.Len() == 0 {
			vm.ThrowAt(ErrRange, recv.debug, "pop from empty array")
		}
		return a.Pop()
	})

	vm.method0(c, "shift", func(vm *VM, recv Value) Value {
		a := recv.AsArray()
		if a.Len() == 0 {
			vm.ThrowAt(ErrRange, recv.debug, "shift from empty array")
		}
		return a.RemoveAt(0)
	})

	vm.method1(c, "unshift", func(vm *VM, recv, v Value) Value {
		a := recv.AsArray()
		vm.checkStorable(v)
		a.Insert(0, v)
		return FromInt32(int32(a.Len()))
	})

	vm.method2(c, "insert", func(vm *VM, recv, idx, v Value) Value {
		a := recv.AsArray()
		i := vm.indexArg(idx)
		vm.checkIndex(i, a.Len()+1, idx)
		vm.checkStorable(v)
		a.Insert(i, v)
		return recv
	})

	vm.method1(c, "removeAt", func(vm *VM, recv, idx Value) Value {
		a := recv.AsArray()
		i := vm.indexArg(idx)
		vm.checkIndex(i, a.Len(), idx)
		return a.RemoveAt(i)
	})

	vm.method1(c, "remove", func(vm *VM, recv, v Value) Value {
		a := recv.AsArray()
		for i, e := range a.items {
			if vm.Equals(e, v) {
				a.RemoveAt(i)
				return True
			}
		}
		return False
	})

	vm.method0(c, "clear", func(_ *VM, recv Value) Value {
		recv.AsArray().Clear()
		return recv
	})

	vm.method0(c, "first", func(vm *VM, recv Value) Value {
		a := recv.AsArray()
		if a.Len() == 0 {
			vm.ThrowAt(ErrRange, recv.debug, "first of empty array")
		}
		return a.Get(0)
	})

	vm.method0(c, "last", func(vm *VM, recv Value) Value {
		a := recv.AsArray()
		if a.Len() == 0 {
			vm.ThrowAt(ErrRange, recv.debug, "last of empty array")
		}
		return a.Get(a.Len() - 1)
	})

	vm.method1(c, "indexOf", func(vm *VM, recv, v Value) Value {
		for i, e := range recv.AsArray().items {
			if vm.Equals(e, v) {
				return FromInt32(int32(i))
			}
		}
		return FromInt32(-1)
	})

	vm.method1(c, "contains", func(vm *VM, recv, v Value) Value {
		for _, e := range recv.AsArray().items {
			if vm.Equals(e, v) {
				return True
			}
		}
		return False
	})

	vm.AddMethod(c, "slice", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Array.slice", args, 0, 2)
		a := args[0].AsArray()
		start, end := vm.sliceBounds(args, a.Len())
		return vm.NewArray(a.items[start:end]...)
	})

	vm.method1(c, "concat", func(vm *VM, recv, other Value) Value {
		a := recv.AsArray()
		b := vm.expect(other, KindArray).AsArray()
		items := make([]Value, 0, a.Len()+b.Len())
		items = append(items, a.items...)
		items = append(items, b.items...)
		return vm.NewArray(items...)
	})

	vm.method0(c, "copy", func(vm *VM, recv Value) Value {
		return vm.NewArray(recv.AsArray().items...)
	})

	vm.method0(c, "reverse", func(_ *VM, recv Value) Value {
		recv.AsArray().Reverse()
		return recv
	})

	// sort orders the array in place and returns it.
	vm.AddMethod(c, "sort", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Array.sort", args, 0, 1)
		cmp, _ := optArg(args, 1)
		a := args[0].AsArray()
		items := append([]Value(nil), a.items...)
		vm.sortValues(items, cmp)
		copy(a.items, items)
		return args[0]
	})

	vm.method1(c, "map", func(vm *VM, recv, fn Value) Value {
		vm.callableArg(fn)
		src := recv.AsArray().items
		out := make([]Value, 0, len(src))
		for i := 0; i < len(recv.AsArray().items); i++ {
			r := vm.callEach(fn, recv.AsArray().items[i], i)
			vm.checkStorable(r)
			out = append(out, r)
		}
		return vm.NewArray(out...)
	})

	vm.method1(c, "filter", func(vm *VM, recv, fn Value) Value {
		vm.callableArg(fn)
		var out []Value
		for i := 0; i < len(recv.AsArray().items); i++ {
			v := recv.AsArray().items[i]
			if vm.callEach(fn, v, i).Truthy() {
				out = append(out, v)
			}
		}
		return vm.NewArray(out...)
	})

	vm.method1(c, "forEach", func(vm *VM, recv, fn Value) Value {
		vm.callableArg(fn)
		for i := 0; i < len(recv.AsArray().items); i++ {
			vm.callEach(fn, recv.AsArray().items[i], i)
		}
		return Null
	})

	vm.method1(c, "find", func(vm *VM, recv, fn Value) Value {
		vm.callableArg(fn)
		for i := 0; i < len(recv.AsArray().items); i++ {
			v := recv.AsArray().items[i]
			if vm.callEach(fn, v, i).Truthy() {
				return v
			}
		}
		return Null
	})

	vm.method1(c, "any", func(vm *VM, recv, fn Value) Value {
		vm.callableArg(fn)
		for i := 0; i < len(recv.AsArray().items); i++ {
			if vm.callEach(fn, recv.AsArray().items[i], i).Truthy() {
				return True
			}
		}
		return False
	})

	vm.method1(c, "all", func(vm *VM, recv, fn Value) Value {
		vm.callableArg(fn)
		for i := 0; i < len(recv.AsArray().items); i++ {
			if !vm.callEach(fn, recv.AsArray().items[i], i).Truthy() {
				return False
			}
		}
		return True
	})

	vm.AddMethod(c, "reduce", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Array.reduce", args, 1, 2)
		a := args[0].AsArray()
		fn := vm.callableArg(args[1])
		start := 0
		acc, ok := optArg(args, 2)
		if !ok {
			if a.Len() == 0 {
				vm.ThrowAt(ErrRange, args[0].debug, "reduce of empty array with no initial value")
			}
			acc, start = a.Get(0), 1
		}
		for i := start; i < a.Len(); i++ {
			acc = vm.Call(fn, acc, a.Get(i))
		}
		return acc
	})

	vm.AddMethod(c, "join", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Array.join", args, 0, 1)
		sep := ","
		if s, ok := optArg(args, 1); ok {
			sep = vm.stringArg(s)
		}
		items := args[0].AsArray().items
		parts := make([]string, len(items))
		for i, v := range items {
			parts[i] = vm.ToString(v)
		}
		return vm.NewString(strings.Join(parts, sep))
	})

	vm.method0(c, "iterator", func(vm *VM, recv Value) Value {
		return vm.newArrayIterator(recv)
	})

	vm.method0(c, "toArray", func(_ *VM, recv Value) Value {
		return recv
	})
}
