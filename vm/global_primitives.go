package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Global natives
// ---------------------------------------------------------------------------

func (vm *VM) defineGlobalNative(name string, fn NativeFunc) {
	native := vm.NewNative(name, fn)
	vm.Builtins.Define(name, native, true)
}

func (vm *VM) printArgs(args []Value) string {
	parts := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		parts = append(parts, vm.ToString(a))
	}
	return strings.Join(parts, " ")
}

// registerGlobalPrimitives installs the free functions. Natives called
// without a receiver get Null in args[0].
func (vm *VM) registerGlobalPrimitives() {
	vm.defineGlobalNative("print", func(vm *VM, args []Value) Value {
		fmt.Fprint(vm.Stdout, vm.printArgs(args))
		return Null
	})

	vm.defineGlobalNative("println", func(vm *VM, args []Value) Value {
		fmt.Fprintln(vm.Stdout, vm.printArgs(args))
		return Null
	})

	vm.defineGlobalNative("type", func(vm *VM, args []Value) Value {
		vm.argRange("type", args, 1, 1)
		return vm.NewString(args[1].kind.String())
	})

	vm.defineGlobalNative("assert", func(vm *VM, args []Value) Value {
		vm.argRange("assert", args, 1, 2)
		if args[1].Truthy() {
			return True
		}
		msg := "assertion failed"
		if m, ok := optArg(args, 2); ok {
			msg = vm.ToString(m)
		}
		vm.ThrowAt(ErrAssert, args[1].debug, "%s", msg)
		return Undefined
	})

	vm.defineGlobalNative("len", func(vm *VM, args []Value) Value {
		vm.argRange("len", args, 1, 1)
		return vm.Invoke(args[1], "length")
	})

	vm.defineGlobalNative("str", func(vm *VM, args []Value) Value {
		vm.argRange("str", args, 1, 1)
		return vm.NewString(vm.ToString(args[1]))
	})
}
