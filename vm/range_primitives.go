package vm

// ---------------------------------------------------------------------------
// Range and Iterator Primitives
// ---------------------------------------------------------------------------

func (vm *VM) rangeString(r *Range) string {
	op := ".."
	if r.Exclusive {
		op = "..<"
	}
	s := vm.numberString(r.Start) + op + vm.numberString(r.End)
	def := 1
	if cmp, ok := compareNumbers(r.Start, r.End); ok && cmp > 0 {
		def = -1
	}
	if !numberEquals(r.Step, FromInt32(int32(def))) {
		s += " step " + vm.numberString(r.Step)
	}
	return s
}

func (vm *VM) rangeToArray(r *Range) Value {
	n := vm.rangeLength(r)
	items := make([]Value, 0, n)
	v := r.Start
	for i := 0; i < n; i++ {
		items = append(items, v)
		v = vm.Arith(OpAdd, v, r.Step)
	}
	return vm.NewArray(items...)
}

func (vm *VM) registerRangePrimitives() {
	c := vm.builtins.rangeC

	// Range(start, end, step?, exclusive?) steps by +1 unless told
	// otherwise; a start past the end then yields an empty range.
	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Range", args, 2, 4)
		start, end := args[1], args[2]
		if !start.IsNumber() || !end.IsNumber() {
			vm.throwOperands(ErrType, start, end, "range bounds must be numbers, got %s and %s",
				vm.typeName(start), vm.typeName(end))
		}
		exclusive := false
		if x, ok := optArg(args, 4); ok {
			exclusive = vm.expect(x, KindBoolean).Bool()
		}
		step, ok := optArg(args, 3)
		if !ok {
			return vm.newRange(start, end, FromInt32(1), exclusive)
		}
		vm.checkStep(start, end, step)
		return vm.newRange(start, end, step, exclusive)
	}

	vm.method1(c, "equals", func(_ *VM, recv, other Value) Value {
		a, b := recv.AsRange(), other.AsRange()
		return FromBool(b != nil && a.Exclusive == b.Exclusive &&
			numberEquals(a.Start, b.Start) && numberEquals(a.End, b.End) && numberEquals(a.Step, b.Step))
	})

	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		r := recv.AsRange()
		h := fnvMix(fnvOffset, uint32(numberHash(r.Start)))
		h = fnvMix(h, uint32(numberHash(r.End)))
		h = fnvMix(h, uint32(numberHash(r.Step)))
		if r.Exclusive {
			h = fnvMix(h, 1)
		}
		return FromInt32(int32(h))
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(vm.rangeString(recv.AsRange()))
	})

	vm.method0(c, "start", func(_ *VM, recv Value) Value { return recv.AsRange().Start })
	vm.method0(c, "end", func(_ *VM, recv Value) Value { return recv.AsRange().End })
	vm.method0(c, "step", func(_ *VM, recv Value) Value { return recv.AsRange().Step })

	vm.method0(c, "isExclusive", func(_ *VM, recv Value) Value {
		return FromBool(recv.AsRange().Exclusive)
	})

	vm.method0(c, "length", func(vm *VM, recv Value) Value {
		return FromInt32(int32(vm.rangeLength(recv.AsRange())))
	})

	vm.method0(c, "isEmpty", func(_ *VM, recv Value) Value {
		r := recv.AsRange()
		return FromBool(!r.inRange(r.Start))
	})

	vm.method1(c, "contains", func(vm *VM, recv, v Value) Value {
		return FromBool(vm.rangeContains(recv.AsRange(), v))
	})

	vm.method0(c, "toArray", func(vm *VM, recv Value) Value {
		return vm.rangeToArray(recv.AsRange())
	})

	vm.method0(c, "iterator", func(vm *VM, recv Value) Value {
		return vm.newRangeIterator(recv)
	})
}

func (vm *VM) registerIteratorPrimitives() {
	c := vm.builtins.iterator

	vm.method0(c, "hasNext", func(_ *VM, recv Value) Value {
		return FromBool(recv.AsIterator().HasNext())
	})

	vm.method0(c, "next", func(vm *VM, recv Value) Value {
		return vm.iteratorNext(recv.AsIterator())
	})

	vm.method0(c, "isEmpty", func(_ *VM, recv Value) Value {
		return FromBool(!recv.AsIterator().HasNext())
	})

	// toArray drains the remaining elements.
	vm.method0(c, "toArray", func(vm *VM, recv Value) Value {
		it := recv.AsIterator()
		var items []Value
		for it.HasNext() {
			items = append(items, vm.iteratorNext(it))
		}
		return vm.NewArray(items...)
	})

	vm.method0(c, "iterator", func(_ *VM, recv Value) Value {
		return recv
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		if recv.AsIterator().source == iterateRange {
			return vm.NewString("<range iterator>")
		}
		return vm.NewString("<array iterator>")
	})
}
