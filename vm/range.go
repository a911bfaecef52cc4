package vm

import (
	"math"
	"math/big"
)

// ---------------------------------------------------------------------------
// Range: numeric interval with a step
// ---------------------------------------------------------------------------

// Range is an immutable arithmetic progression from Start toward End.
type Range struct {
	refHeader
	Start     Value
	End       Value
	Step      Value
	Exclusive bool
}

func (r *Range) releaseChildren() {
	r.Start.Release()
	r.End.Release()
	r.Step.Release()
}

func (vm *VM) newRange(start, end, step Value, exclusive bool) Value {
	start.Retain()
	end.Retain()
	step.Retain()
	return vm.alloc(KindRange, &Range{Start: start, End: end, Step: step, Exclusive: exclusive})
}

func sign(v Value) int {
	switch v.kind {
	case KindInt32:
		switch n := v.Int32(); {
		case n > 0:
			return 1
		case n < 0:
			return -1
		}
		return 0
	case KindBigInt:
		return v.AsBigInt().n.Sign()
	}
	f := v.Float64()
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}

// buildRange implements BUILD_RANGE. A null step is the default +1, which
// becomes -1 when start is greater than end.
func (vm *VM) buildRange(start, end, step Value, exclusive bool) Value {
	if !start.IsNumber() || !end.IsNumber() {
		vm.throwOperands(ErrType, start, end, "range bounds must be numbers, got %s and %s",
			vm.typeName(start), vm.typeName(end))
	}
	descending := false
	if cmp, ok := compareNumbers(start, end); ok && cmp > 0 {
		descending = true
	}
	if step.IsNullish() {
		if descending {
			return vm.newRange(start, end, FromInt32(-1), exclusive)
		}
		return vm.newRange(start, end, FromInt32(1), exclusive)
	}
	vm.checkStep(start, end, step)
	return vm.newRange(start, end, step, exclusive)
}

// checkStep rejects a non-numeric or zero step and one whose sign disagrees
// with the direction from start to end.
func (vm *VM) checkStep(start, end, step Value) {
	if !step.IsNumber() {
		vm.ThrowAt(ErrType, step.debug, "range step must be a number, got %s", vm.typeName(step))
	}
	s := sign(step)
	if s == 0 || step.IsFloat() && math.IsNaN(step.Float64()) {
		vm.ThrowAt(ErrRange, step.debug, "range step cannot be zero")
	}
	cmp, _ := compareNumbers(start, end)
	if cmp > 0 && s > 0 || cmp < 0 && s < 0 {
		vm.ThrowAt(ErrRange, step.debug, "range step %s does not move from %s toward %s", step, start, end)
	}
}

// inRange reports whether v has not yet passed the end of r.
func (r *Range) inRange(v Value) bool {
	cmp, ok := compareNumbers(v, r.End)
	if !ok {
		return false
	}
	if sign(r.Step) < 0 {
		if r.Exclusive {
			return cmp > 0
		}
		return cmp >= 0
	}
	if r.Exclusive {
		return cmp < 0
	}
	return cmp <= 0
}

// rangeLength returns the number of elements the range yields.
func (vm *VM) rangeLength(r *Range) int {
	if !r.inRange(r.Start) {
		return 0
	}
	if r.Start.IsInteger() && r.End.IsInteger() && r.Step.IsInteger() {
		span := toBig(r.End)
		span.Sub(span, toBig(r.Start))
		step := toBig(r.Step)
		q, m := new(big.Int).QuoRem(span, step, new(big.Int))
		if r.Exclusive && m.Sign() == 0 {
			q.Sub(q, big.NewInt(1))
		}
		if !q.IsInt64() || q.Int64() >= math.MaxInt32 {
			vm.Throw(ErrRange, "range too large")
		}
		return int(q.Int64()) + 1
	}
	n := 0
	for v := r.Start; r.inRange(v); v = vm.Arith(OpAdd, v, r.Step) {
		n++
		if n >= math.MaxInt32 {
			vm.Throw(ErrRange, "range too large")
		}
	}
	return n
}

// rangeContains reports whether v is one of the values the range yields.
func (vm *VM) rangeContains(r *Range, v Value) bool {
	if !v.IsNumber() || !r.inRange(v) {
		return false
	}
	cmp, _ := compareNumbers(v, r.Start)
	if cmp != 0 && (cmp > 0) != (sign(r.Step) > 0) {
		return false
	}
	offset := vm.Arith(OpSubtract, v, r.Start)
	rem := vm.Arith(OpMod, offset, r.Step)
	return sign(rem) == 0
}

// ---------------------------------------------------------------------------
// Iterator: cursor over an array or a range
// ---------------------------------------------------------------------------

type iteratorSource uint8

const (
	iterateArray iteratorSource = iota
	iterateRange
)

// Iterator walks an array by index or a range by repeated addition.
type Iterator struct {
	refHeader
	source  iteratorSource
	array   Value
	index   int
	rng     *Range
	current Value
}

func (it *Iterator) releaseChildren() {
	it.array.Release()
	it.current.Release()
	if it.rng != nil {
		fromObject(KindRange, it.rng).Release()
	}
}

func (vm *VM) newArrayIterator(array Value) Value {
	array.Retain()
	return vm.alloc(KindIterator, &Iterator{source: iterateArray, array: array})
}

func (vm *VM) newRangeIterator(rv Value) Value {
	rv.Retain()
	r := rv.AsRange()
	r.Start.Retain()
	return vm.alloc(KindIterator, &Iterator{source: iterateRange, rng: r, current: r.Start})
}

// HasNext reports whether Next would yield a value.
func (it *Iterator) HasNext() bool {
	if it.source == iterateArray {
		a := it.array.AsArray()
		return a != nil && it.index < a.Len()
	}
	return it.rng.inRange(it.current)
}

// iteratorNext advances the iterator, raising RANGE when it is exhausted.
func (vm *VM) iteratorNext(it *Iterator) Value {
	if !it.HasNext() {
		vm.Throw(ErrRange, "iterator exhausted")
	}
	if it.source == iterateArray {
		v := it.array.AsArray().Get(it.index)
		it.index++
		return v
	}
	v := it.current
	next := vm.Arith(OpAdd, v, it.rng.Step)
	next.Retain()
	it.current = next
	// v lands on the operand stack, which is a sweep root.
	v.Release()
	return v
}
