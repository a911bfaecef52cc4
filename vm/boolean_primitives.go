package vm

import "strconv"

// ---------------------------------------------------------------------------
// Boolean Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerBooleanPrimitives() {
	c := vm.builtins.boolean

	c.Factory = func(_ *VM, args []Value) Value {
		if len(args) < 2 {
			return False
		}
		return FromBool(args[1].Truthy())
	}

	vm.method1(c, "equals", func(_ *VM, recv, other Value) Value {
		return FromBool(other.kind == KindBoolean && other.Bool() == recv.Bool())
	})

	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		if recv.Bool() {
			return FromInt32(1231)
		}
		return FromInt32(1237)
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(strconv.FormatBool(recv.Bool()))
	})

	vm.method0(c, "not", func(_ *VM, recv Value) Value {
		return FromBool(!recv.Bool())
	})

	vm.method1(c, "and", func(_ *VM, recv, other Value) Value {
		return FromBool(recv.Bool() && other.Truthy())
	})

	vm.method1(c, "or", func(_ *VM, recv, other Value) Value {
		return FromBool(recv.Bool() || other.Truthy())
	})

	vm.method1(c, "xor", func(_ *VM, recv, other Value) Value {
		return FromBool(recv.Bool() != other.Truthy())
	})

	vm.method1(c, "compareTo", func(vm *VM, recv, other Value) Value {
		vm.expect(other, KindBoolean)
		a, b := recv.Bool(), other.Bool()
		switch {
		case a == b:
			return FromInt32(0)
		case !a:
			return FromInt32(-1)
		}
		return FromInt32(1)
	})
}
