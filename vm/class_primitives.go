package vm

// ---------------------------------------------------------------------------
// Class Primitives
// ---------------------------------------------------------------------------

// instantiate creates an object of class cls, copying the properties of
// an optional initializer object.
func (vm *VM) instantiate(cls *Class, args []Value) Value {
	obj := vm.NewObject().WithClass(cls)
	if len(args) > 1 && !args[1].IsNullish() {
		src := vm.expect(args[1], KindObject).AsObject()
		src.Props.Each(func(k *String, v Value) bool {
			obj.AsObject().Props.Set(k, v)
			return true
		})
	}
	return obj
}

func instanceFactory(vm *VM, args []Value) Value {
	return vm.instantiate(args[0].AsClass(), args)
}

func (vm *VM) registerClassPrimitives() {
	c := vm.builtins.class

	// Class(name, parent?) creates a class whose instances are objects.
	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Class", args, 1, 2)
		name := vm.stringArg(args[1])
		parent := vm.builtins.object
		if p, ok := optArg(args, 2); ok {
			parent = vm.expect(p, KindClass).AsClass()
		}
		cls := vm.NewClass(name, parent)
		cls.Factory = instanceFactory
		return ClassValue(cls)
	}

	vm.method0(c, "name", func(vm *VM, recv Value) Value {
		return vm.NewString(recv.AsClass().Name)
	})

	vm.method0(c, "parent", func(_ *VM, recv Value) Value {
		if p := recv.AsClass().Parent; p != nil {
			return ClassValue(p)
		}
		return Null
	})

	vm.method2(c, "define", func(vm *VM, recv, name, v Value) Value {
		vm.checkStorable(v)
		recv.AsClass().Instance.Set(vm.propertyKey(name), v)
		return recv
	})

	vm.method2(c, "defineStatic", func(vm *VM, recv, name, v Value) Value {
		vm.checkStorable(v)
		recv.AsClass().Static.Set(vm.propertyKey(name), v)
		return recv
	})

	vm.AddMethod(c, "new", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Class.new", args, 0, 1)
		cls := args[0].AsClass()
		if !cls.IsSubclassOf(vm.builtins.object) {
			vm.ThrowAt(ErrType, args[0].debug, "class %s instances are not objects", cls.Name)
		}
		return vm.instantiate(cls, args)
	})

	vm.method1(c, "isSubclassOf", func(vm *VM, recv, other Value) Value {
		return FromBool(recv.AsClass().IsSubclassOf(vm.expect(other, KindClass).AsClass()))
	})

	vm.method0(c, "methods", func(vm *VM, recv Value) Value {
		cls := recv.AsClass()
		items := make([]Value, 0, cls.Instance.Len())
		for _, k := range cls.Instance.Keys() {
			items = append(items, fromObject(KindString, k))
		}
		return vm.NewArray(items...)
	})

	vm.method0(c, "isConstructible", func(_ *VM, recv Value) Value {
		return FromBool(recv.AsClass().Factory != nil)
	})
}
