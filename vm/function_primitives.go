package vm

// ---------------------------------------------------------------------------
// Function Primitives (functions, closures, natives, bound methods)
// ---------------------------------------------------------------------------

// calleeFunction returns the compiled function behind a callable, or nil
// for natives.
func calleeFunction(v Value) *Function {
	switch v.kind {
	case KindFunction:
		return v.AsFunction()
	case KindClosure:
		return v.AsClosure().Function
	case KindBoundMethod:
		return calleeFunction(v.AsBoundMethod().Method)
	}
	return nil
}

func (vm *VM) callableName(v Value) string {
	switch v.kind {
	case KindNative:
		return v.AsNative().Name
	case KindBoundMethod:
		return vm.callableName(v.AsBoundMethod().Method)
	}
	if fn := calleeFunction(v); fn != nil {
		return fn.DisplayName()
	}
	return ""
}

func (vm *VM) registerFunctionPrimitives() {
	c := vm.builtins.function

	vm.method0(c, "name", func(vm *VM, recv Value) Value {
		return vm.NewString(vm.callableName(recv))
	})

	// arity is -1 for natives, which check their own arguments.
	vm.method0(c, "arity", func(_ *VM, recv Value) Value {
		if fn := calleeFunction(recv); fn != nil {
			return FromInt32(int32(fn.Arity()))
		}
		return FromInt32(-1)
	})

	vm.method0(c, "params", func(vm *VM, recv Value) Value {
		fn := calleeFunction(recv)
		if fn == nil {
			return vm.NewArray()
		}
		items := make([]Value, len(fn.Params))
		for i, p := range fn.Params {
			items[i] = vm.NewString(p)
		}
		return vm.NewArray(items...)
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		if recv.kind == KindNative {
			return vm.NewString("<native " + vm.callableName(recv) + ">")
		}
		return vm.NewString("<function " + vm.callableName(recv) + ">")
	})

	vm.AddMethod(c, "call", -1, func(vm *VM, args []Value) Value {
		return vm.Call(args[0], args[1:]...)
	})

	vm.method1(c, "apply", func(vm *VM, recv, list Value) Value {
		a := vm.expect(list, KindArray).AsArray()
		return vm.Call(recv, append([]Value(nil), a.items...)...)
	})

	vm.method0(c, "disassemble", func(vm *VM, recv Value) Value {
		fn := calleeFunction(recv)
		if fn == nil {
			vm.ThrowAt(ErrType, recv.debug, "cannot disassemble %s", vm.callableName(recv))
		}
		return vm.NewString(fn.Disassemble())
	})
}
