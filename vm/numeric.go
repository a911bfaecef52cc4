package vm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// BigInt: arbitrary-precision integers
// ---------------------------------------------------------------------------

// BigInt holds an integer outside the int32 range. Arithmetic results that
// fit in int32 are always demoted, so a BigInt never holds an int32 value.
type BigInt struct {
	refHeader
	n *big.Int
}

func (b *BigInt) releaseChildren() {}

// Int returns the underlying integer. It must not be mutated.
func (b *BigInt) Int() *big.Int { return b.n }

// ParseBigInt parses a decimal literal into an untracked integer value.
func ParseBigInt(s string) (Value, bool) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Undefined, false
	}
	return FromBigInt(n), true
}

// toBig returns an integer operand as a big.Int that callers may mutate.
func toBig(v Value) *big.Int {
	if v.kind == KindInt32 {
		return big.NewInt(int64(v.Int32()))
	}
	return new(big.Int).Set(v.AsBigInt().n)
}

// ---------------------------------------------------------------------------
// Float formatting
// ---------------------------------------------------------------------------

// formatFloat renders f so that integral values keep a ".0" suffix.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	var s string
	if abs := math.Abs(f); abs != 0 && (abs >= 1e21 || abs < 1e-7) {
		s = strconv.FormatFloat(f, 'e', -1, bits)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, bits)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

// add implements ADD: numeric addition, or concatenation when either side
// is a string.
func (vm *VM) add(a, b Value) Value {
	if a.kind == KindString || b.kind == KindString {
		return vm.NewString(vm.ToString(a) + vm.ToString(b))
	}
	return vm.Arith(OpAdd, a, b)
}

// floatKind returns the float kind an operation on a and b produces: the
// widest float present.
func floatKind(a, b Value) Kind {
	if a.kind == KindFloat64 || b.kind == KindFloat64 {
		return KindFloat64
	}
	return KindFloat32
}

// toFloat converts any numeric value to float64.
func toFloat(v Value) float64 {
	switch v.kind {
	case KindInt32:
		return float64(v.Int32())
	case KindBigInt:
		f, _ := new(big.Float).SetInt(v.AsBigInt().n).Float64()
		return f
	}
	return v.Float64()
}

func makeFloat(k Kind, f float64) Value {
	if k == KindFloat32 {
		return FromFloat32(float32(f))
	}
	return FromFloat64(f)
}

var opSymbols = map[Opcode]string{
	OpAdd: "+", OpSubtract: "-", OpMultiply: "*", OpDivide: "/",
	OpMod: "%", OpPower: "**", OpFloorDiv: "//",
	OpBitwiseAnd: "&", OpBitwiseOr: "|", OpBitwiseXor: "^",
	OpLeftShift: "<<", OpRightShift: ">>", OpLogicalRightShift: ">>>",
	OpLess: "<", OpLessEqual: "<=", OpGreater: ">", OpGreaterEqual: ">=",
}

// Arith applies a binary arithmetic opcode. Integer results overflow into
// bigint; any float operand produces a float of the widest float kind.
func (vm *VM) Arith(op Opcode, a, b Value) Value {
	if !a.IsNumber() || !b.IsNumber() {
		vm.throwOperands(ErrType, a, b, "unsupported operand types for %s: %s and %s",
			opSymbols[op], vm.typeName(a), vm.typeName(b))
	}
	if a.IsFloat() || b.IsFloat() {
		return vm.floatArith(op, a, b)
	}
	if op == OpDivide {
		if b.kind == KindInt32 && b.Int32() == 0 || b.kind == KindBigInt && b.AsBigInt().n.Sign() == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "division by zero")
		}
		return FromFloat64(toFloat(a) / toFloat(b))
	}
	if a.kind == KindInt32 && b.kind == KindInt32 {
		return vm.int32Arith(op, a, b)
	}
	return vm.bigArith(op, a, b)
}

func (vm *VM) int32Arith(op Opcode, a, b Value) Value {
	x, y := int64(a.Int32()), int64(b.Int32())
	switch op {
	case OpAdd:
		return vm.Int64(x + y)
	case OpSubtract:
		return vm.Int64(x - y)
	case OpMultiply:
		return vm.Int64(x * y)
	case OpMod:
		if y == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "modulo by zero")
		}
		r := x % y
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return vm.Int64(r)
	case OpFloorDiv:
		if y == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "division by zero")
		}
		q := x / y
		if x%y != 0 && (x < 0) != (y < 0) {
			q--
		}
		return vm.Int64(q)
	}
	return vm.bigArith(op, a, b)
}

func (vm *VM) bigArith(op Opcode, a, b Value) Value {
	x, y := toBig(a), toBig(b)
	switch op {
	case OpAdd:
		return vm.Integer(x.Add(x, y))
	case OpSubtract:
		return vm.Integer(x.Sub(x, y))
	case OpMultiply:
		return vm.Integer(x.Mul(x, y))
	case OpMod:
		if y.Sign() == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "modulo by zero")
		}
		r := new(big.Int).Rem(x, y)
		if r.Sign() != 0 && r.Sign() != y.Sign() {
			r.Add(r, y)
		}
		return vm.Integer(r)
	case OpFloorDiv:
		if y.Sign() == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "division by zero")
		}
		q, r := new(big.Int).QuoRem(x, y, new(big.Int))
		if r.Sign() != 0 && r.Sign() != y.Sign() {
			q.Sub(q, big.NewInt(1))
		}
		return vm.Integer(q)
	case OpPower:
		if y.Sign() < 0 {
			vm.throwOperands(ErrArithmetic, a, b, "negative integer exponent")
		}
		if !y.IsInt64() || y.Int64() > 1<<20 {
			if x.CmpAbs(big.NewInt(1)) > 0 {
				vm.throwOperands(ErrRange, a, b, "exponent too large")
			}
		}
		return vm.Integer(new(big.Int).Exp(x, y, nil))
	}
	panic(NewError(ErrAssert, vm.currentLocation(), "unexpected arithmetic opcode %s", op))
}

func (vm *VM) floatArith(op Opcode, a, b Value) Value {
	k := floatKind(a, b)
	x, y := toFloat(a), toFloat(b)
	if k == KindFloat32 {
		x, y = float64(float32(x)), float64(float32(y))
	}
	switch op {
	case OpAdd:
		return makeFloat(k, x+y)
	case OpSubtract:
		return makeFloat(k, x-y)
	case OpMultiply:
		return makeFloat(k, x*y)
	case OpDivide:
		if y == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "division by zero")
		}
		return makeFloat(k, x/y)
	case OpFloorDiv:
		if y == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "division by zero")
		}
		return makeFloat(k, math.Floor(x/y))
	case OpMod:
		if y == 0 {
			vm.throwOperands(ErrArithmetic, a, b, "modulo by zero")
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return makeFloat(k, r)
	case OpPower:
		if x == 0 && y < 0 {
			vm.throwOperands(ErrArithmetic, a, b, "zero raised to a negative power")
		}
		return makeFloat(k, math.Pow(x, y))
	}
	panic(NewError(ErrAssert, vm.currentLocation(), "unexpected arithmetic opcode %s", op))
}

func (vm *VM) negate(a Value) Value {
	switch a.kind {
	case KindInt32:
		return vm.Int64(-int64(a.Int32()))
	case KindBigInt:
		return vm.Integer(new(big.Int).Neg(a.AsBigInt().n))
	case KindFloat32:
		return FromFloat32(-a.Float32())
	case KindFloat64:
		return FromFloat64(-a.Float64())
	}
	vm.ThrowAt(ErrType, a.debug, "cannot negate %s", vm.typeName(a))
	return Undefined
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// compareNumbers orders two numeric values exactly across representations.
// ok is false when either side is NaN.
func compareNumbers(a, b Value) (cmp int, ok bool) {
	if a.kind == KindInt32 && b.kind == KindInt32 {
		x, y := a.Int32(), b.Int32()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if a.IsInteger() && b.IsInteger() {
		return toBig(a).Cmp(toBig(b)), true
	}
	x, y := a, b
	if a.IsFloat() && math.IsNaN(a.Float64()) || b.IsFloat() && math.IsNaN(b.Float64()) {
		return 0, false
	}
	if a.IsFloat() && b.IsFloat() {
		fx, fy := a.Float64(), b.Float64()
		switch {
		case fx < fy:
			return -1, true
		case fx > fy:
			return 1, true
		}
		return 0, true
	}
	return toBigFloat(x).Cmp(toBigFloat(y)), true
}

func toBigFloat(v Value) *big.Float {
	switch v.kind {
	case KindInt32:
		return new(big.Float).SetInt64(int64(v.Int32()))
	case KindBigInt:
		return new(big.Float).SetInt(v.AsBigInt().n)
	}
	f := v.Float64()
	if math.IsInf(f, 0) {
		return new(big.Float).SetInf(f < 0)
	}
	return new(big.Float).SetFloat64(f)
}

// Compare orders numbers and strings, raising TYPE for anything else.
func (vm *VM) Compare(a, b Value) (int, bool) {
	if a.IsNumber() && b.IsNumber() {
		return compareNumbers(a, b)
	}
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.AsString().s, b.AsString().s), true
	}
	if m, ok := vm.lookupMethod(a, vm.keys.compare); ok && a.kind == b.kind {
		r := vm.callMethod(a, m, b)
		if r.kind == KindInt32 {
			return int(r.Int32()), true
		}
	}
	vm.throwOperands(ErrType, a, b, "cannot compare %s with %s", vm.typeName(a), vm.typeName(b))
	return 0, false
}

func (vm *VM) compareOp(op Opcode, a, b Value) bool {
	cmp, ok := vm.Compare(a, b)
	if !ok {
		return false
	}
	switch op {
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	}
	return cmp >= 0
}

// numberEquals is Number.equals: numeric equality across int32, bigint and
// float representations. NaN is unequal to everything.
func numberEquals(a, b Value) bool {
	if !a.IsNumber() || !b.IsNumber() {
		return false
	}
	cmp, ok := compareNumbers(a, b)
	return ok && cmp == 0
}

// numberHash hashes numbers so that values comparing equal hash equally:
// integral floats hash as the integer they represent.
func numberHash(v Value) int32 {
	switch v.kind {
	case KindInt32:
		return int32(fnvMix(fnvOffset, uint32(v.Int32())))
	case KindBigInt:
		return int32(fnv1a(fnvOffset, v.AsBigInt().n.Bytes()) ^ uint32(v.AsBigInt().n.Sign()+1))
	}
	f := v.Float64()
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		if f >= math.MinInt32 && f <= math.MaxInt32 {
			return numberHash(FromInt32(int32(f)))
		}
		n, _ := new(big.Float).SetFloat64(f).Int(nil)
		return numberHash(FromBigInt(n))
	}
	bits := math.Float64bits(f)
	return int32(fnvMix(fnvMix(fnvOffset, uint32(bits)), uint32(bits>>32)))
}

// ---------------------------------------------------------------------------
// Bitwise operations
// ---------------------------------------------------------------------------

// Bitwise applies an integer-only binary opcode.
func (vm *VM) Bitwise(op Opcode, a, b Value) Value {
	if !a.IsInteger() || !b.IsInteger() {
		vm.throwOperands(ErrType, a, b, "unsupported operand types for %s: %s and %s",
			opSymbols[op], vm.typeName(a), vm.typeName(b))
	}
	switch op {
	case OpLeftShift, OpRightShift, OpLogicalRightShift:
		return vm.shift(op, a, b)
	}
	if a.kind == KindInt32 && b.kind == KindInt32 {
		x, y := a.Int32(), b.Int32()
		switch op {
		case OpBitwiseAnd:
			return FromInt32(x & y)
		case OpBitwiseOr:
			return FromInt32(x | y)
		}
		return FromInt32(x ^ y)
	}
	x, y := toBig(a), toBig(b)
	switch op {
	case OpBitwiseAnd:
		return vm.Integer(x.And(x, y))
	case OpBitwiseOr:
		return vm.Integer(x.Or(x, y))
	}
	return vm.Integer(x.Xor(x, y))
}

const maxShift = 1 << 16

func (vm *VM) shift(op Opcode, a, b Value) Value {
	if b.kind != KindInt32 || b.Int32() < 0 {
		vm.throwOperands(ErrRange, a, b, "invalid shift count %s", b)
	}
	n := uint(b.Int32())
	switch op {
	case OpLeftShift:
		if n > maxShift {
			vm.throwOperands(ErrRange, a, b, "shift count %d too large", n)
		}
		if a.kind == KindInt32 && n < 32 {
			return vm.Int64(int64(a.Int32()) << n)
		}
		x := toBig(a)
		return vm.Integer(x.Lsh(x, n))
	case OpRightShift:
		if a.kind == KindInt32 {
			if n > 31 {
				n = 31
			}
			return FromInt32(a.Int32() >> n)
		}
		x := toBig(a)
		return vm.Integer(x.Rsh(x, n))
	}
	if a.kind != KindInt32 {
		vm.throwOperands(ErrType, a, b, ">>> requires an int32 operand, got %s", vm.typeName(a))
	}
	if n > 31 {
		return FromInt32(0)
	}
	return vm.Int64(int64(uint32(a.Int32()) >> n))
}

func (vm *VM) bitwiseNot(a Value) Value {
	switch a.kind {
	case KindInt32:
		return FromInt32(^a.Int32())
	case KindBigInt:
		return vm.Integer(new(big.Int).Not(a.AsBigInt().n))
	}
	vm.ThrowAt(ErrType, a.debug, "cannot apply ~ to %s", vm.typeName(a))
	return Undefined
}
