package vm

import (
	"sort"
	"strconv"
	"strings"
)

// wellKnownKeys caches interned names the interpreter looks up itself.
type wellKnownKeys struct {
	equals   *String
	hash     *String
	toString *String
	iterator *String
	hasNext  *String
	next     *String
	contains *String
	compare  *String
}

func (vm *VM) internKeys() wellKnownKeys {
	return wellKnownKeys{
		equals:   vm.Intern("equals"),
		hash:     vm.Intern("hash"),
		toString: vm.Intern("toString"),
		iterator: vm.Intern("iterator"),
		hasNext:  vm.Intern("hasNext"),
		next:     vm.Intern("next"),
		contains: vm.Intern("contains"),
		compare:  vm.Intern("compareTo"),
	}
}

// ---------------------------------------------------------------------------
// Property access
// ---------------------------------------------------------------------------

// propertyKey interns a string operand used as a property name.
func (vm *VM) propertyKey(name Value) *String {
	s := name.AsString()
	if s == nil {
		vm.ThrowAt(ErrType, name.debug, "property name must be a string, got %s", vm.typeName(name))
	}
	if s.interned {
		return s
	}
	return vm.Intern(s.s)
}

// lookupMethod resolves key on v the way GET_PROPERTY does, without
// binding natives.
func (vm *VM) lookupMethod(v Value, key *String) (Value, bool) {
	switch v.kind {
	case KindClass:
		if val, ok := v.AsClass().LookupStatic(key); ok {
			return val, true
		}
		// A class never falls back to its own instance properties; after
		// its statics it dispatches as a value of class Class.
		return vm.builtins.class.Lookup(key)
	case KindObject:
		if val, ok := v.AsObject().Props.Get(key); ok {
			return val, true
		}
	}
	if cls := vm.ClassOf(v); cls != nil {
		return cls.Lookup(key)
	}
	return Undefined, false
}

// GetProperty implements GET_PROPERTY: class statics, own properties, then
// the class chain. Natives are bound to the receiver.
func (vm *VM) GetProperty(obj, name Value) Value {
	key := vm.propertyKey(name)
	v, ok := vm.lookupMethod(obj, key)
	if !ok {
		return Undefined
	}
	if v.kind == KindNative {
		return vm.newBoundMethod(obj, v)
	}
	return v
}

// SetProperty implements SET_PROPERTY on objects.
func (vm *VM) SetProperty(obj, name, v Value) {
	o := obj.AsObject()
	if o == nil {
		vm.throwOperands(ErrType, obj, name, "cannot set property on %s", vm.typeName(obj))
	}
	key := vm.propertyKey(name)
	vm.checkStorable(v)
	o.Props.Set(key, v)
}

// callMethod invokes a method found by lookupMethod with receiver bound.
func (vm *VM) callMethod(receiver, method Value, args ...Value) Value {
	if n := method.AsNative(); n != nil {
		full := make([]Value, 0, len(args)+1)
		full = append(full, receiver)
		full = append(full, args...)
		return vm.callNative(n, full)
	}
	return vm.Call(method, args...)
}

// Invoke calls the method name on receiver. A missing method is a TYPE
// error located at the receiver.
func (vm *VM) Invoke(receiver Value, name string, args ...Value) Value {
	m, ok := vm.lookupMethod(receiver, vm.Intern(name))
	if !ok {
		vm.ThrowAt(ErrType, receiver.debug, "%s has no method '%s'", vm.typeName(receiver), name)
	}
	return vm.callMethod(receiver, m, args...)
}

// ---------------------------------------------------------------------------
// Index access
// ---------------------------------------------------------------------------

// indexArg converts an index operand to an int, raising TYPE for
// non-integers.
func (vm *VM) indexArg(idx Value) int {
	switch idx.kind {
	case KindInt32:
		return int(idx.Int32())
	case KindBigInt:
		vm.ThrowAt(ErrRange, idx.debug, "index %s out of range", idx.AsBigInt().n)
	}
	vm.ThrowAt(ErrType, idx.debug, "index must be an integer, got %s", vm.typeName(idx))
	return 0
}

func (vm *VM) checkIndex(i, n int, at Value) {
	if i < 0 || i >= n {
		vm.ThrowAt(ErrRange, at.debug, "index %d out of range for length %d", i, n)
	}
}

// GetIndex implements GET_INDEX for arrays, objects, strings and buffers.
func (vm *VM) GetIndex(obj, idx Value) Value {
	switch obj.kind {
	case KindArray:
		a := obj.AsArray()
		i := vm.indexArg(idx)
		vm.checkIndex(i, a.Len(), idx)
		return a.Get(i)
	case KindObject:
		v, ok := obj.AsObject().Props.Get(vm.propertyKey(idx))
		if !ok {
			return Undefined
		}
		return v
	case KindString:
		s := obj.AsString()
		i := vm.indexArg(idx)
		r, ok := s.Rune(i)
		if !ok {
			vm.ThrowAt(ErrRange, idx.debug, "index %d out of range for length %d", i, s.Len())
		}
		return vm.NewString(string(r))
	case KindBuffer:
		b := obj.AsBuffer()
		i := vm.indexArg(idx)
		vm.checkIndex(i, len(b.data), idx)
		return FromInt32(int32(b.data[i]))
	}
	vm.throwOperands(ErrType, obj, idx, "%s is not indexable", vm.typeName(obj))
	return Undefined
}

// SetIndex implements SET_INDEX for arrays, objects and buffers.
func (vm *VM) SetIndex(obj, idx, v Value) {
	vm.checkStorable(v)
	switch obj.kind {
	case KindArray:
		a := obj.AsArray()
		i := vm.indexArg(idx)
		vm.checkIndex(i, a.Len(), idx)
		a.Set(i, v)
		return
	case KindObject:
		obj.AsObject().Props.Set(vm.propertyKey(idx), v)
		return
	case KindBuffer:
		b := obj.AsBuffer()
		i := vm.indexArg(idx)
		vm.checkIndex(i, len(b.data), idx)
		b.data[i] = vm.byteArg(v)
		return
	}
	vm.throwOperands(ErrType, obj, idx, "%s does not support index assignment", vm.typeName(obj))
}

func (vm *VM) getExport(mod, name Value) Value {
	o := mod.AsObject()
	if o == nil {
		vm.throwOperands(ErrType, mod, name, "%s is not a module namespace", vm.typeName(mod))
	}
	v, ok := o.Props.Get(vm.propertyKey(name))
	if !ok {
		return Undefined
	}
	return v
}

// ---------------------------------------------------------------------------
// Protocol dispatch: equals, hash, toString
// ---------------------------------------------------------------------------

// Containers may hold themselves. Traversals that recurse through elements
// mark each container while it is in progress; meeting a marked container
// again means a cycle.
type visitKey struct {
	op byte
	o  heapObject
}

const (
	visitString byte = iota
	visitHash
	visitEquals
)

// maxNesting bounds the containers a single traversal may have in progress.
const maxNesting = 512

// enterContainer marks o as in progress for op. It reports false when o is
// already in progress.
func (vm *VM) enterContainer(op byte, o heapObject) bool {
	key := visitKey{op, o}
	if _, ok := vm.visiting[key]; ok {
		return false
	}
	if len(vm.visiting) >= maxNesting {
		vm.Throw(ErrRange, "structure too deep")
	}
	vm.visiting[key] = struct{}{}
	return true
}

func (vm *VM) leaveContainer(op byte, o heapObject) {
	delete(vm.visiting, visitKey{op, o})
}

// Equals compares a and b through a's equals method.
func (vm *VM) Equals(a, b Value) bool {
	m, ok := vm.lookupMethod(a, vm.keys.equals)
	if !ok {
		panic(NewError(ErrAssert, vm.currentLocation(), "%s has no equals method", vm.typeName(a)))
	}
	return vm.callMethod(a, m, b).Truthy()
}

// Hash returns the 32-bit hash of v through its hash method.
func (vm *VM) Hash(v Value) int32 {
	m, ok := vm.lookupMethod(v, vm.keys.hash)
	if !ok {
		panic(NewError(ErrAssert, vm.currentLocation(), "%s has no hash method", vm.typeName(v)))
	}
	h := vm.callMethod(v, m)
	if h.kind != KindInt32 {
		vm.ThrowAt(ErrType, v.debug, "hash must return an int32, got %s", vm.typeName(h))
	}
	return h.Int32()
}

// ToString renders v through its toString method.
func (vm *VM) ToString(v Value) string {
	if v.kind == KindString {
		return v.AsString().s
	}
	m, ok := vm.lookupMethod(v, vm.keys.toString)
	if !ok {
		return "<" + vm.typeName(v) + ">"
	}
	s := vm.callMethod(v, m)
	if str := s.AsString(); str != nil {
		return str.s
	}
	vm.ThrowAt(ErrType, v.debug, "toString must return a string, got %s", vm.typeName(s))
	return ""
}

// Repr renders v as it appears inside a container: strings are quoted.
func (vm *VM) Repr(v Value) string {
	if s := v.AsString(); s != nil {
		return strconv.Quote(s.s)
	}
	return vm.ToString(v)
}

// typeName returns the name used in error messages: the class name for
// instances, else the kind.
func (vm *VM) typeName(v Value) string {
	if v.class != nil {
		return v.class.Name
	}
	return v.kind.String()
}

func (vm *VM) sortedKeys(m *PropertyMap) []*String {
	keys := append([]*String(nil), m.Keys()...)
	sort.Slice(keys, func(i, j int) bool { return keys[i].s < keys[j].s })
	return keys
}

func (vm *VM) joinRepr(values []Value, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = vm.Repr(v)
	}
	return strings.Join(parts, sep)
}
