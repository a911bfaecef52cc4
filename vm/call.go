package vm

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// invoke calls the callee sitting beneath argc arguments. It reports true
// when a closure frame was entered; otherwise the result has already
// replaced the callee and its arguments on the stack.
func (vm *VM) invoke(argc int) bool {
	calleeSlot := vm.sp - argc - 1
	callee := vm.stack[calleeSlot]

	switch callee.kind {
	case KindClosure:
		vm.callClosure(callee.AsClosure(), argc)
		return true

	case KindFunction:
		c := vm.newClosure(callee.AsFunction(), nil, vm.currentModule())
		vm.stack[calleeSlot] = c
		vm.callClosure(c.AsClosure(), argc)
		return true

	case KindNative:
		// An unbound native sees Null as its receiver.
		vm.stack[calleeSlot] = Null
		args := vm.stack[calleeSlot:vm.sp:vm.sp]
		vm.finishNative(calleeSlot, vm.callNative(callee.AsNative(), args))
		return false

	case KindBoundMethod:
		bm := callee.AsBoundMethod()
		if c := bm.Method.AsClosure(); c != nil {
			vm.stack[calleeSlot] = bm.Method
			vm.callClosure(c, argc)
			return true
		}
		vm.stack[calleeSlot] = bm.Receiver
		args := vm.stack[calleeSlot:vm.sp:vm.sp]
		vm.finishNative(calleeSlot, vm.callNative(bm.Method.AsNative(), args))
		return false

	case KindClass:
		cls := callee.AsClass()
		if cls.Factory == nil {
			vm.ThrowAt(ErrType, callee.debug, "class %s is not constructible", cls.Name)
		}
		args := vm.stack[calleeSlot:vm.sp:vm.sp]
		vm.pinned++
		result := cls.Factory(vm, args)
		vm.pinned--
		vm.finishNative(calleeSlot, result)
		return false

	case KindArray:
		if argc != 1 {
			vm.ThrowAt(ErrType, callee.debug, "array call expects 1 index, got %d", argc)
		}
		result := vm.GetIndex(callee, vm.stack[calleeSlot+1])
		vm.finishNative(calleeSlot, result)
		return false
	}

	vm.ThrowAt(ErrType, callee.debug, "%s is not callable", vm.typeName(callee))
	return false
}

func (vm *VM) callNative(n *Native, args []Value) Value {
	vm.pinned++
	result := n.Fn(vm, args)
	vm.pinned--
	return result
}

func (vm *VM) finishNative(calleeSlot int, result Value) {
	vm.truncate(calleeSlot)
	vm.push(result)
}

// opClosure builds a closure, copying each captured value from the
// enclosing frame's locals or upvalues.
func (vm *VM) opClosure(frame *CallFrame, idx uint16) {
	fn := vm.constant(frame, idx).AsFunction()
	if fn == nil {
		panic(NewError(ErrAssert, vm.here(frame), "constant %d is not a function", idx))
	}
	var upvalues []Value
	if len(fn.Upvalues) > 0 {
		upvalues = make([]Value, len(fn.Upvalues))
		for i, desc := range fn.Upvalues {
			var v Value
			if desc.IsLocal {
				v = vm.stack[frame.base+int(desc.Index)]
			} else {
				v = frame.closure.Upvalues[desc.Index]
			}
			v.Retain()
			upvalues[i] = v
		}
	}
	vm.push(vm.newClosure(fn, upvalues, frame.module))
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

func (vm *VM) defineGlobal(name string, v Value, immutable bool) {
	vm.checkStorable(v)
	ns := vm.currentNamespace()
	if ns.Has(name) && vm.Context != ContextREPL {
		vm.ThrowAt(ErrReference, v.debug, "'%s' is already defined", name)
	}
	ns.Define(name, v, immutable)
}

func (vm *VM) getGlobal(name string) Value {
	if v, ok := vm.currentNamespace().Get(name); ok {
		return v
	}
	if v, ok := vm.Builtins.Get(name); ok {
		return v
	}
	vm.Throw(ErrReference, "'%s' is not defined", name)
	return Undefined
}

func (vm *VM) setGlobal(name string, v Value) {
	vm.checkStorable(v)
	ns := vm.currentNamespace()
	if !ns.Has(name) {
		if vm.Builtins.Has(name) {
			vm.ThrowAt(ErrType, v.debug, "cannot assign to built-in '%s'", name)
		}
		vm.Throw(ErrReference, "'%s' is not defined", name)
	}
	if ns.IsImmutable(name) {
		vm.ThrowAt(ErrType, v.debug, "cannot assign to immutable '%s'", name)
	}
	ns.Set(name, v)
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func (vm *VM) opBuildArray(n int) {
	start := vm.sp - n
	for _, v := range vm.stack[start:vm.sp] {
		vm.checkStorable(v)
	}
	arr := vm.NewArray(vm.stack[start:vm.sp]...)
	vm.truncate(start)
	vm.push(arr)
}

func (vm *VM) opBuildObject(n int) {
	start := vm.sp - 2*n
	objValue := vm.NewObject()
	obj := objValue.AsObject()
	for i := start; i < vm.sp; i += 2 {
		key := vm.stack[i]
		v := vm.stack[i+1]
		vm.checkStorable(v)
		obj.Props.Set(vm.propertyKey(key), v)
	}
	vm.truncate(start)
	vm.push(objValue)
}

// ---------------------------------------------------------------------------
// Membership and class tests
// ---------------------------------------------------------------------------

// contains implements `v in container` through the container's contains
// method.
func (vm *VM) contains(container, v Value) bool {
	if container.kind == KindObject {
		if s := v.AsString(); s != nil {
			_, ok := container.AsObject().Props.Get(vm.Intern(s.s))
			return ok
		}
	}
	m, ok := vm.lookupMethod(container, vm.keys.contains)
	if !ok {
		vm.throwOperands(ErrType, v, container, "%s does not support 'in'", vm.typeName(container))
	}
	return vm.callMethod(container, m, v).Truthy()
}

func (vm *VM) instanceOf(v, c Value) bool {
	cls := c.AsClass()
	if cls == nil {
		vm.throwOperands(ErrType, v, c, "right side of instanceof must be a class, got %s", vm.typeName(c))
	}
	return vm.ClassOf(v).IsSubclassOf(cls)
}
