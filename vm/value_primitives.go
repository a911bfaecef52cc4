package vm

import (
	"reflect"
)

// ---------------------------------------------------------------------------
// Value Primitives (root of every class), Null, Undefined
// ---------------------------------------------------------------------------

// identityHash hashes immediates by payload and heap values by address.
func identityHash(v Value) int32 {
	h := fnvMix(fnvOffset, uint32(v.kind))
	if v.obj != nil {
		p := uint64(reflect.ValueOf(v.obj).Pointer())
		h = fnvMix(fnvMix(h, uint32(p)), uint32(p>>32))
		return int32(h)
	}
	return int32(fnvMix(fnvMix(h, uint32(v.bits)), uint32(v.bits>>32)))
}

func (vm *VM) defaultString(v Value) string {
	switch v.kind {
	case KindClass:
		return "<class " + v.AsClass().Name + ">"
	case KindObject:
		return vm.objectString(v)
	}
	if v.class != nil {
		return "<" + v.class.Name + " instance>"
	}
	return "<" + v.kind.String() + ">"
}

func (vm *VM) registerValuePrimitives() {
	c := vm.builtins.value

	vm.method1(c, "equals", func(_ *VM, recv, other Value) Value {
		return FromBool(recv.Same(other))
	})

	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		return FromInt32(identityHash(recv))
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(vm.defaultString(recv))
	})

	vm.method0(c, "type", func(vm *VM, recv Value) Value {
		return vm.NewString(recv.kind.String())
	})

	vm.method0(c, "class", func(vm *VM, recv Value) Value {
		return ClassValue(vm.ClassOf(recv))
	})

	vm.method1(c, "isA", func(vm *VM, recv, cls Value) Value {
		return FromBool(vm.instanceOf(recv, cls))
	})

	vm.method0(c, "isNull", func(_ *VM, recv Value) Value {
		return FromBool(recv.IsNull())
	})

	// Null
	n := vm.builtins.null
	vm.method1(n, "equals", func(_ *VM, _, other Value) Value {
		return FromBool(other.IsNull())
	})
	vm.method0(n, "hash", func(_ *VM, _ Value) Value {
		return FromInt32(0)
	})
	vm.method0(n, "toString", func(vm *VM, _ Value) Value {
		return vm.NewString("null")
	})

	// Undefined
	u := vm.builtins.undefined
	vm.method1(u, "equals", func(_ *VM, _, other Value) Value {
		return FromBool(other.IsUndefined())
	})
	vm.method0(u, "hash", func(_ *VM, _ Value) Value {
		return FromInt32(-1)
	})
	vm.method0(u, "toString", func(vm *VM, _ Value) Value {
		return vm.NewString("undefined")
	})
}
