package vm

import (
	"strconv"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Object Primitives
// ---------------------------------------------------------------------------

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func (vm *VM) objectString(v Value) string {
	o := v.AsObject()
	if o.Props.Len() == 0 {
		return "{}"
	}
	if !vm.enterContainer(visitString, o) {
		return "{...}"
	}
	defer vm.leaveContainer(visitString, o)
	var sb strings.Builder
	sb.WriteByte('{')
	o.Props.Each(func(k *String, val Value) bool {
		if sb.Len() > 1 {
			sb.WriteString(", ")
		}
		if isIdentifier(k.s) {
			sb.WriteString(k.s)
		} else {
			sb.WriteString(strconv.Quote(k.s))
		}
		sb.WriteString(": ")
		sb.WriteString(vm.Repr(val))
		return true
	})
	sb.WriteByte('}')
	return sb.String()
}

// objectHash sorts keys first so that insertion order does not matter.
func (vm *VM) objectHash(o *Object) int32 {
	h := fnvOffset
	if !vm.enterContainer(visitHash, o) {
		return int32(fnvMix(h, uint32(o.Props.Len())))
	}
	defer vm.leaveContainer(visitHash, o)
	for _, k := range vm.sortedKeys(&o.Props) {
		v, _ := o.Props.Get(k)
		h = fnvMix(h, k.Hash())
		h = fnvMix(h, uint32(vm.Hash(v)))
	}
	return int32(fnvMix(h, uint32(o.Props.Len())))
}

func (vm *VM) objectEquals(a *Object, other Value) bool {
	b := other.AsObject()
	if b == nil || a.Props.Len() != b.Props.Len() {
		return false
	}
	if a == b {
		return true
	}
	if !vm.enterContainer(visitEquals, a) {
		return true
	}
	defer vm.leaveContainer(visitEquals, a)
	equal := true
	a.Props.Each(func(k *String, v Value) bool {
		w, ok := b.Props.Get(k)
		equal = ok && vm.Equals(v, w)
		return equal
	})
	return equal
}

func (vm *VM) keysArray(o *Object) Value {
	items := make([]Value, o.Props.Len())
	for i, k := range o.Props.Keys() {
		items[i] = fromObject(KindString, k)
	}
	return vm.NewArray(items...)
}

func (vm *VM) registerObjectPrimitives() {
	c := vm.builtins.object

	// Object(src?) copies the properties of src into a fresh object.
	c.Factory = func(vm *VM, args []Value) Value {
		obj := vm.NewObject()
		if len(args) > 1 {
			src := vm.expect(args[1], KindObject).AsObject()
			src.Props.Each(func(k *String, v Value) bool {
				obj.AsObject().Props.Set(k, v)
				return true
			})
		}
		return obj
	}

	vm.method1(c, "equals", func(vm *VM, recv, other Value) Value {
		return FromBool(vm.objectEquals(recv.AsObject(), other))
	})

	vm.method0(c, "hash", func(vm *VM, recv Value) Value {
		return FromInt32(vm.objectHash(recv.AsObject()))
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(vm.objectString(recv))
	})

	vm.method0(c, "length", func(_ *VM, recv Value) Value {
		return FromInt32(int32(recv.AsObject().Props.Len()))
	})

	vm.method0(c, "isEmpty", func(_ *VM, recv Value) Value {
		return FromBool(recv.AsObject().Props.Len() == 0)
	})

	vm.method0(c, "keys", func(vm *VM, recv Value) Value {
		return vm.keysArray(recv.AsObject())
	})

	vm.method0(c, "values", func(vm *VM, recv Value) Value {
		return vm.NewArray(recv.AsObject().Props.Values()...)
	})

	vm.method0(c, "entries", func(vm *VM, recv Value) Value {
		o := recv.AsObject()
		items := make([]Value, 0, o.Props.Len())
		o.Props.Each(func(k *String, v Value) bool {
			items = append(items, vm.NewArray(fromObject(KindString, k), v))
			return true
		})
		return vm.NewArray(items...)
	})

	vm.method1(c, "has", func(vm *VM, recv, key Value) Value {
		return FromBool(recv.AsObject().Props.Has(vm.propertyKey(key)))
	})

	vm.method1(c, "get", func(vm *VM, recv, key Value) Value {
		return vm.GetIndex(recv, key)
	})

	vm.method2(c, "set", func(vm *VM, recv, key, v Value) Value {
		vm.SetProperty(recv, key, v)
		return v
	})

	vm.method1(c, "remove", func(vm *VM, recv, key Value) Value {
		return FromBool(recv.AsObject().Props.Delete(vm.propertyKey(key)))
	})

	vm.method1(c, "merge", func(vm *VM, recv, other Value) Value {
		dst := recv.AsObject()
		vm.expect(other, KindObject).AsObject().Props.Each(func(k *String, v Value) bool {
			dst.Props.Set(k, v)
			return true
		})
		return recv
	})

	vm.method0(c, "iterator", func(vm *VM, recv Value) Value {
		return vm.newArrayIterator(vm.keysArray(recv.AsObject()))
	})
}
