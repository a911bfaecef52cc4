package vm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Number, Int and Float Primitives
// ---------------------------------------------------------------------------

// mathKind is the float kind a unary math function on v returns.
func mathKind(v Value) Kind {
	if v.kind == KindFloat32 {
		return KindFloat32
	}
	return KindFloat64
}

// floatToInteger truncates f to an integer value.
func (vm *VM) floatToInteger(f float64, at Value) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		vm.ThrowAt(ErrArithmetic, at.debug, "cannot convert %s to an integer", formatFloat(f, 64))
	}
	f = math.Trunc(f)
	if f >= math.MinInt32 && f <= math.MaxInt32 {
		return FromInt32(int32(f))
	}
	n, _ := new(big.Float).SetFloat64(f).Int(nil)
	return vm.Integer(n)
}

// parseNumber parses an integer or float literal, reporting false when s
// is neither.
func (vm *VM) parseNumber(s string) (Value, bool) {
	s = strings.TrimSpace(s)
	if n, ok := new(big.Int).SetString(s, 0); ok {
		return vm.Integer(n), true
	}
	if strings.HasSuffix(s, "f") {
		if f, err := strconv.ParseFloat(s[:len(s)-1], 32); err == nil {
			return FromFloat32(float32(f)), true
		}
		return Undefined, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return Undefined, false
	}
	return FromFloat64(f), true
}

func (vm *VM) numberString(v Value) string {
	switch v.kind {
	case KindInt32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case KindBigInt:
		return v.AsBigInt().n.String()
	case KindFloat32:
		return formatFloat(v.Float64(), 32)
	}
	return formatFloat(v.Float64(), 64)
}

// unaryMath installs a float function of the receiver. domain, when not
// nil, rejects arguments outside the function's domain.
func (vm *VM) unaryMath(c *Class, name string, fn func(float64) float64, domain func(float64) bool) {
	vm.method0(c, name, func(vm *VM, recv Value) Value {
		x := toFloat(recv)
		if domain != nil && !domain(x) {
			vm.ThrowAt(ErrArithmetic, recv.debug, "math domain error: %s(%s)", name, vm.numberString(recv))
		}
		return makeFloat(mathKind(recv), fn(x))
	})
}

func (vm *VM) registerNumberPrimitives() {
	c := vm.builtins.number

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Number", args, 1, 1)
		return vm.toNumber(args[1])
	}

	vm.method1(c, "equals", func(_ *VM, recv, other Value) Value {
		return FromBool(numberEquals(recv, other))
	})

	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		return FromInt32(numberHash(recv))
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(vm.numberString(recv))
	})

	vm.method1(c, "compareTo", func(vm *VM, recv, other Value) Value {
		if !other.IsNumber() {
			vm.ThrowAt(ErrType, other.debug, "cannot compare %s with %s", vm.typeName(recv), vm.typeName(other))
		}
		cmp, ok := compareNumbers(recv, other)
		if !ok {
			vm.throwOperands(ErrArithmetic, recv, other, "NaN is unordered")
		}
		return FromInt32(int32(cmp))
	})

	vm.method0(c, "abs", func(vm *VM, recv Value) Value {
		if sign(recv) < 0 {
			return vm.negate(recv)
		}
		return recv
	})

	vm.method0(c, "sign", func(_ *VM, recv Value) Value {
		return FromInt32(int32(sign(recv)))
	})

	vm.method0(c, "floor", func(vm *VM, recv Value) Value {
		if recv.IsInteger() {
			return recv
		}
		return vm.floatToInteger(math.Floor(recv.Float64()), recv)
	})

	vm.method0(c, "ceil", func(vm *VM, recv Value) Value {
		if recv.IsInteger() {
			return recv
		}
		return vm.floatToInteger(math.Ceil(recv.Float64()), recv)
	})

	vm.method0(c, "round", func(vm *VM, recv Value) Value {
		if recv.IsInteger() {
			return recv
		}
		return vm.floatToInteger(math.Round(recv.Float64()), recv)
	})

	vm.method0(c, "trunc", func(vm *VM, recv Value) Value {
		if recv.IsInteger() {
			return recv
		}
		return vm.floatToInteger(recv.Float64(), recv)
	})

	positive := func(x float64) bool { return x > 0 }
	unit := func(x float64) bool { return x >= -1 && x <= 1 }
	vm.unaryMath(c, "sqrt", math.Sqrt, func(x float64) bool { return x >= 0 })
	vm.unaryMath(c, "ln", math.Log, positive)
	vm.unaryMath(c, "log10", math.Log10, positive)
	vm.unaryMath(c, "log2", math.Log2, positive)
	vm.unaryMath(c, "asin", math.Asin, unit)
	vm.unaryMath(c, "acos", math.Acos, unit)
	vm.unaryMath(c, "atan", math.Atan, nil)
	vm.unaryMath(c, "sin", math.Sin, nil)
	vm.unaryMath(c, "cos", math.Cos, nil)
	vm.unaryMath(c, "tan", math.Tan, nil)
	vm.unaryMath(c, "exp", math.Exp, nil)
	vm.unaryMath(c, "cbrt", math.Cbrt, nil)

	vm.method1(c, "pow", func(vm *VM, recv, exp Value) Value {
		return vm.Arith(OpPower, recv, exp)
	})

	vm.method1(c, "atan2", func(vm *VM, recv, x Value) Value {
		return FromFloat64(math.Atan2(toFloat(recv), vm.floatArg(x)))
	})

	vm.method1(c, "min", func(vm *VM, recv, other Value) Value {
		vm.floatArg(other)
		if cmp, ok := compareNumbers(other, recv); ok && cmp < 0 {
			return other
		}
		return recv
	})

	vm.method1(c, "max", func(vm *VM, recv, other Value) Value {
		vm.floatArg(other)
		if cmp, ok := compareNumbers(other, recv); ok && cmp > 0 {
			return other
		}
		return recv
	})

	vm.method2(c, "clamp", func(vm *VM, recv, lo, hi Value) Value {
		vm.floatArg(lo)
		vm.floatArg(hi)
		if cmp, ok := compareNumbers(recv, lo); ok && cmp < 0 {
			return lo
		}
		if cmp, ok := compareNumbers(recv, hi); ok && cmp > 0 {
			return hi
		}
		return recv
	})

	vm.method0(c, "isNaN", func(_ *VM, recv Value) Value {
		return FromBool(recv.IsFloat() && math.IsNaN(recv.Float64()))
	})

	vm.method0(c, "isFinite", func(_ *VM, recv Value) Value {
		if recv.IsInteger() {
			return True
		}
		f := recv.Float64()
		return FromBool(!math.IsNaN(f) && !math.IsInf(f, 0))
	})

	vm.method0(c, "isInteger", func(_ *VM, recv Value) Value {
		if recv.IsInteger() {
			return True
		}
		f := recv.Float64()
		return FromBool(f == math.Trunc(f) && !math.IsInf(f, 0))
	})

	vm.method0(c, "toInt", func(vm *VM, recv Value) Value {
		if recv.IsInteger() {
			return recv
		}
		return vm.floatToInteger(recv.Float64(), recv)
	})

	vm.method0(c, "toFloat", func(_ *VM, recv Value) Value {
		return FromFloat64(toFloat(recv))
	})

	vm.method0(c, "toFloat32", func(_ *VM, recv Value) Value {
		return FromFloat32(float32(toFloat(recv)))
	})

	vm.method1(c, "toFixed", func(vm *VM, recv, digits Value) Value {
		n := vm.intArg(digits)
		if n < 0 || n > 100 {
			vm.ThrowAt(ErrRange, digits.debug, "toFixed digits %d out of range 0..100", n)
		}
		return vm.NewString(strconv.FormatFloat(toFloat(recv), 'f', n, 64))
	})

	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		v, ok := vm.parseNumber(vm.stringArg(s))
		if !ok {
			vm.ThrowAt(ErrType, s.debug, "invalid number %q", s.AsString().s)
		}
		return v
	})

	vm.registerIntPrimitives()
	vm.registerFloatPrimitives()
}

// toNumber converts strings and booleans to numbers.
func (vm *VM) toNumber(v Value) Value {
	switch {
	case v.IsNumber():
		return v
	case v.kind == KindBoolean:
		if v.Bool() {
			return FromInt32(1)
		}
		return FromInt32(0)
	case v.kind == KindString:
		if n, ok := vm.parseNumber(v.AsString().s); ok {
			return n
		}
		vm.ThrowAt(ErrType, v.debug, "invalid number %q", v.AsString().s)
	}
	vm.ThrowAt(ErrType, v.debug, "cannot convert %s to a number", vm.typeName(v))
	return Undefined
}

func (vm *VM) registerIntPrimitives() {
	c := vm.builtins.int

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Int", args, 1, 1)
		n := vm.toNumber(args[1])
		if n.IsInteger() {
			return n
		}
		return vm.floatToInteger(n.Float64(), args[1])
	}

	vm.SetStatic(c, "MAX", FromInt32(math.MaxInt32))
	vm.SetStatic(c, "MIN", FromInt32(math.MinInt32))

	vm.AddStatic(c, "parse", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Int.parse", args, 1, 2)
		s := strings.TrimSpace(vm.stringArg(args[1]))
		base := 10
		if r, ok := optArg(args, 2); ok {
			base = vm.intArg(r)
			if base < 2 || base > 36 {
				vm.ThrowAt(ErrRange, r.debug, "radix %d out of range 2..36", base)
			}
		}
		n, ok := new(big.Int).SetString(s, base)
		if !ok {
			vm.ThrowAt(ErrType, args[1].debug, "invalid integer %q", s)
		}
		return vm.Integer(n)
	})

	vm.AddMethod(c, "toString", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Int.toString", args, 0, 1)
		recv := args[0]
		base := 10
		if r, ok := optArg(args, 1); ok {
			base = vm.intArg(r)
			if base < 2 || base > 36 {
				vm.ThrowAt(ErrRange, r.debug, "radix %d out of range 2..36", base)
			}
		}
		return vm.NewString(toBig(recv).Text(base))
	})

	vm.method0(c, "isEven", func(_ *VM, recv Value) Value {
		return FromBool(toBig(recv).Bit(0) == 0)
	})

	vm.method0(c, "isOdd", func(_ *VM, recv Value) Value {
		return FromBool(toBig(recv).Bit(0) == 1)
	})

	vm.method0(c, "bitLength", func(_ *VM, recv Value) Value {
		return FromInt32(int32(toBig(recv).BitLen()))
	})

	vm.method1(c, "gcd", func(vm *VM, recv, other Value) Value {
		if !other.IsInteger() {
			vm.ThrowAt(ErrType, other.debug, "gcd expects an integer, got %s", vm.typeName(other))
		}
		x, y := toBig(recv), toBig(other)
		return vm.Integer(new(big.Int).GCD(nil, nil, x.Abs(x), y.Abs(y)))
	})

	vm.method1(c, "times", func(vm *VM, recv, fn Value) Value {
		vm.callableArg(fn)
		n := vm.intArg(recv)
		for i := 0; i < n; i++ {
			vm.Call(fn, FromInt32(int32(i)))
		}
		return Null
	})

	vm.method0(c, "toChar", func(vm *VM, recv Value) Value {
		return vm.NewString(string(vm.codePoint(recv)))
	})
}

func (vm *VM) registerFloatPrimitives() {
	c := vm.builtins.float

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Float", args, 1, 1)
		return FromFloat64(toFloat(vm.toNumber(args[1])))
	}

	vm.SetStatic(c, "PI", FromFloat64(math.Pi))
	vm.SetStatic(c, "E", FromFloat64(math.E))
	vm.SetStatic(c, "EPSILON", FromFloat64(math.Nextafter(1, 2)-1))
	vm.SetStatic(c, "MAX", FromFloat64(math.MaxFloat64))

	vm.static1(c, "parse", func(vm *VM, s Value) Value {
		str := strings.TrimSpace(vm.stringArg(s))
		f, err := strconv.ParseFloat(str, 64)
		if err != nil || math.IsInf(f, 0) {
			vm.ThrowAt(ErrType, s.debug, "invalid float %q", str)
		}
		return FromFloat64(f)
	})

	vm.method0(c, "isFloat32", func(_ *VM, recv Value) Value {
		return FromBool(recv.kind == KindFloat32)
	})
}
