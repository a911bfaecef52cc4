package vm

import (
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		vm.Throw(ErrRange, "stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	if vm.sp <= 0 {
		panic(NewError(ErrAssert, vm.currentLocation(), "stack underflow"))
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = Value{}
	return v
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// truncate drops every slot at or above sp.
func (vm *VM) truncate(sp int) {
	if sp >= vm.sp {
		return
	}
	clear(vm.stack[sp:vm.sp])
	vm.sp = sp
}

func (vm *VM) currentModule() *Module {
	if vm.fp > 0 {
		return vm.frames[vm.fp-1].module
	}
	return vm.main
}

func (vm *VM) currentNamespace() *Namespace {
	return vm.currentModule().Namespace
}

// ---------------------------------------------------------------------------
// Frame management
// ---------------------------------------------------------------------------

// callClosure enters c with argc arguments already on the stack above the
// callee slot.
func (vm *VM) callClosure(c *Closure, argc int) {
	fn := c.Function
	if argc != len(fn.Params) {
		vm.Throw(ErrType, "%s expects %d arguments, got %d", fn.DisplayName(), len(fn.Params), argc)
	}
	if vm.fp >= len(vm.frames) {
		vm.Throw(ErrRange, "stack overflow")
	}
	base := vm.sp - argc
	// Arguments become parameters and must be storable.
	for i, a := range vm.stack[base:vm.sp] {
		if a.IsUndefined() {
			vm.ThrowAt(ErrType, a.debug, "cannot pass undefined as parameter '%s' of %s", fn.Params[i], fn.DisplayName())
		}
	}
	for i := argc; i < fn.LocalCount; i++ {
		vm.push(Null)
	}

	module := c.Module
	if module == nil {
		module = vm.currentModule()
	}
	vm.frames[vm.fp] = CallFrame{closure: c, fn: fn, module: module, base: base}
	vm.fp++
}

// returnFrom pops the current frame. It reports true when the frame was
// the one the active run loop was started for.
func (vm *VM) returnFrom(result Value, exitDepth int) bool {
	frame := &vm.frames[vm.fp-1]
	vm.truncate(frame.base - 1)
	*frame = CallFrame{}
	vm.fp--
	if vm.fp <= exitDepth {
		return true
	}
	vm.push(result)
	return false
}

// ---------------------------------------------------------------------------
// Operand decoding
// ---------------------------------------------------------------------------

func readByte(f *CallFrame) byte {
	b := f.fn.Code[f.ip]
	f.ip++
	return b
}

func readUint16(f *CallFrame) uint16 {
	v := binary.LittleEndian.Uint16(f.fn.Code[f.ip:])
	f.ip += 2
	return v
}

func readInt16(f *CallFrame) int {
	return int(int16(readUint16(f)))
}

func (vm *VM) constant(f *CallFrame, idx uint16) Value {
	if int(idx) >= len(f.fn.Constants) {
		panic(NewError(ErrAssert, vm.currentLocation(), "constant index %d out of bounds (len=%d)", idx, len(f.fn.Constants)))
	}
	return f.fn.Constants[idx]
}

func (vm *VM) constantName(f *CallFrame, idx uint16) string {
	c := vm.constant(f, idx)
	s := c.AsString()
	if s == nil {
		panic(NewError(ErrAssert, vm.currentLocation(), "constant %d is not a name", idx))
	}
	return s.s
}

// here returns the source location of the instruction being executed.
func (vm *VM) here(f *CallFrame) *DebugLocation {
	return f.fn.LocationAt(f.opIP)
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

// run executes instructions until the frame count drops to exitDepth and
// returns the value of the last frame returned from.
func (vm *VM) run(exitDepth int) Value {
	for {
		frame := &vm.frames[vm.fp-1]
		if frame.ip >= len(frame.fn.Code) {
			if vm.returnFrom(Null, exitDepth) {
				return Null
			}
			continue
		}

		frame.opIP = frame.ip
		op := Opcode(frame.fn.Code[frame.ip])
		frame.ip++

		switch op {
		// --- Stack operations ---
		case OpNop:

		case OpPushConstant:
			v := vm.constant(frame, readUint16(frame))
			loc := vm.here(frame)
			if loc != nil {
				vm.currentDebug = loc
			}
			vm.push(v.WithDebug(loc))

		case OpPop:
			vm.pop()

		case OpPopN:
			n := int(readByte(frame))
			vm.truncate(vm.sp - n)

		case OpPopNPreserveTop:
			n := int(readUint16(frame))
			top := vm.pop()
			vm.truncate(vm.sp - n)
			vm.push(top)

		case OpDup:
			vm.push(vm.peek(0))

		case OpSwap:
			a, b := vm.sp-2, vm.sp-1
			vm.stack[a], vm.stack[b] = vm.stack[b], vm.stack[a]

		case OpOver:
			vm.push(vm.peek(1))

		case OpNip:
			top := vm.pop()
			vm.stack[vm.sp-1] = top

		case OpRot:
			a := vm.stack[vm.sp-3]
			copy(vm.stack[vm.sp-3:], vm.stack[vm.sp-2:vm.sp])
			vm.stack[vm.sp-1] = a

		// --- Arithmetic ---
		case OpAdd:
			b, a := vm.pop(), vm.pop()
			vm.push(vm.add(a, b))

		case OpSubtract, OpMultiply, OpDivide, OpMod, OpPower, OpFloorDiv:
			b, a := vm.pop(), vm.pop()
			vm.push(vm.Arith(op, a, b))

		case OpNegate:
			vm.push(vm.negate(vm.pop()))

		case OpIncrement:
			a := vm.pop()
			vm.push(vm.Arith(OpAdd, a, FromInt32(1).WithDebug(a.debug)))

		case OpDecrement:
			a := vm.pop()
			vm.push(vm.Arith(OpSubtract, a, FromInt32(1).WithDebug(a.debug)))

		// --- Logic and comparison ---
		case OpNot:
			vm.push(FromBool(!vm.pop().Truthy()))

		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(FromBool(vm.Equals(a, b)))

		case OpNotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(FromBool(!vm.Equals(a, b)))

		case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(FromBool(vm.compareOp(op, a, b)))

		case OpNullCoalesce:
			b, a := vm.pop(), vm.pop()
			if a.IsNullish() {
				vm.push(b)
			} else {
				vm.push(a)
			}

		case OpIn:
			container, v := vm.pop(), vm.pop()
			vm.push(FromBool(vm.contains(container, v)))

		case OpInstanceof:
			c, v := vm.pop(), vm.pop()
			vm.push(FromBool(vm.instanceOf(v, c)))

		// --- Bitwise ---
		case OpBitwiseAnd, OpBitwiseOr, OpBitwiseXor, OpLeftShift, OpRightShift, OpLogicalRightShift:
			b, a := vm.pop(), vm.pop()
			vm.push(vm.Bitwise(op, a, b))

		case OpBitwiseNot:
			vm.push(vm.bitwiseNot(vm.pop()))

		// --- Control flow ---
		case OpJump:
			offset := readInt16(frame)
			frame.ip += offset
			if offset < 0 {
				vm.safePoint()
			}

		case OpJumpIfFalse:
			offset := readInt16(frame)
			if !vm.pop().Truthy() {
				frame.ip += offset
			}

		case OpJumpIfTrue:
			offset := readInt16(frame)
			if vm.pop().Truthy() {
				frame.ip += offset
			}

		case OpCall:
			argc := int(readByte(frame))
			vm.safePoint()
			vm.invoke(argc)

		case OpReturn:
			result := vm.pop()
			if vm.returnFrom(result, exitDepth) {
				return result
			}

		case OpClosure:
			vm.opClosure(frame, readUint16(frame))

		// --- Variables ---
		case OpDefineGlobal:
			name := vm.constantName(frame, readUint16(frame))
			immutable := readByte(frame) != 0
			vm.defineGlobal(name, vm.pop(), immutable)

		case OpGetGlobal:
			name := vm.constantName(frame, readUint16(frame))
			vm.push(vm.getGlobal(name).WithDebug(vm.here(frame)))

		case OpSetGlobal:
			name := vm.constantName(frame, readUint16(frame))
			vm.setGlobal(name, vm.pop())

		case OpGetLocal:
			slot := int(readByte(frame))
			vm.push(vm.stack[frame.base+slot].WithDebug(vm.here(frame)))

		case OpSetLocal:
			slot := int(readByte(frame))
			v := vm.pop()
			vm.checkStorable(v)
			vm.stack[frame.base+slot] = v

		case OpGetCallee:
			vm.push(vm.stack[frame.base-1])

		case OpGetUpvalue:
			idx := int(readByte(frame))
			vm.push(frame.closure.Upvalues[idx].WithDebug(vm.here(frame)))

		case OpSetUpvalue:
			idx := int(readByte(frame))
			v := vm.pop()
			vm.checkStorable(v)
			v.Retain()
			old := frame.closure.Upvalues[idx]
			frame.closure.Upvalues[idx] = v
			old.Release()

		// --- Properties and indexing ---
		case OpGetProperty:
			name, obj := vm.pop(), vm.pop()
			vm.push(vm.GetProperty(obj, name))

		case OpSetProperty:
			v, name, obj := vm.pop(), vm.pop(), vm.pop()
			vm.SetProperty(obj, name, v)
			vm.push(v)

		case OpGetIndex:
			idx, obj := vm.pop(), vm.pop()
			vm.push(vm.GetIndex(obj, idx))

		case OpSetIndex:
			v, idx, obj := vm.pop(), vm.pop(), vm.pop()
			vm.SetIndex(obj, idx, v)
			vm.push(v)

		// --- Construction ---
		case OpBuildArray:
			n := int(readUint16(frame))
			vm.opBuildArray(n)

		case OpBuildObject:
			n := int(readUint16(frame))
			vm.opBuildObject(n)

		case OpBuildRange:
			exclusive := readUint16(frame)&1 != 0
			step, end, start := vm.pop(), vm.pop(), vm.pop()
			vm.push(vm.buildRange(start, end, step, exclusive))

		// --- Modules ---
		case OpImportModule:
			vm.opImport(frame)

		case OpGetExport:
			name, mod := vm.pop(), vm.pop()
			vm.push(vm.getExport(mod, name))

		default:
			panic(NewError(ErrAssert, vm.here(frame), "unknown opcode 0x%02X", byte(op)))
		}
	}
}

// safePoint runs at calls and backward jumps, where no handler holds
// values outside the operand stack.
func (vm *VM) safePoint() {
	if vm.interrupted.Load() {
		vm.interrupted.Store(false)
		vm.Throw(ErrAssert, "interrupted")
	}
	vm.maybeCollect()
}

// checkStorable rejects undefined at every point a value would be stored.
func (vm *VM) checkStorable(v Value) {
	if v.IsUndefined() {
		vm.ThrowAt(ErrType, v.debug, "cannot store undefined")
	}
}
