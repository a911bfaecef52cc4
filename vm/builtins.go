package vm

// ---------------------------------------------------------------------------
// Built-in class registry
// ---------------------------------------------------------------------------

// builtinClasses holds the classes installed at startup. Every class
// descends from Value, which supplies identity equals and hash.
type builtinClasses struct {
	value     *Class
	number    *Class
	int       *Class
	float     *Class
	boolean   *Class
	null      *Class
	undefined *Class

	string        *Class
	stringBuilder *Class
	array         *Class
	object        *Class
	class         *Class
	rangeC        *Class
	iterator      *Class
	buffer        *Class
	bufferBuilder *Class
	bufferReader  *Class
	function      *Class

	localDate     *Class
	localTime     *Class
	localDateTime *Class
	zone          *Class
	date          *Class
	instant       *Class
	duration      *Class
	period        *Class
}

// bootstrap creates the built-in classes, maps every kind to its class and
// installs the classes and global natives into Builtins.
func (vm *VM) bootstrap() {
	b := &vm.builtins
	b.value = vm.defineClass("Value", nil)
	b.number = vm.defineClass("Number", b.value)
	b.int = vm.defineClass("Int", b.number)
	b.float = vm.defineClass("Float", b.number)
	b.boolean = vm.defineClass("Boolean", b.value)
	b.null = vm.defineClass("Null", b.value)
	b.undefined = vm.defineClass("Undefined", b.value)

	b.string = vm.defineClass("String", b.value)
	b.stringBuilder = vm.defineClass("StringBuilder", b.value)
	b.array = vm.defineClass("Array", b.value)
	b.object = vm.defineClass("Object", b.value)
	b.class = vm.defineClass("Class", b.value)
	b.rangeC = vm.defineClass("Range", b.value)
	b.iterator = vm.defineClass("Iterator", b.value)
	b.buffer = vm.defineClass("Buffer", b.value)
	b.bufferBuilder = vm.defineClass("BufferBuilder", b.value)
	b.bufferReader = vm.defineClass("BufferReader", b.value)
	b.function = vm.defineClass("Function", b.value)

	b.localDate = vm.defineClass("LocalDate", b.value)
	b.localTime = vm.defineClass("LocalTime", b.value)
	b.localDateTime = vm.defineClass("LocalDateTime", b.value)
	b.zone = vm.defineClass("Zone", b.value)
	b.date = vm.defineClass("Date", b.value)
	b.instant = vm.defineClass("Instant", b.value)
	b.duration = vm.defineClass("Duration", b.value)
	b.period = vm.defineClass("Period", b.value)

	vm.classes = [kindCount]*Class{
		KindNull:          b.null,
		KindUndefined:     b.undefined,
		KindBoolean:       b.boolean,
		KindInt32:         b.int,
		KindBigInt:        b.int,
		KindFloat32:       b.float,
		KindFloat64:       b.float,
		KindString:        b.string,
		KindStringBuilder: b.stringBuilder,
		KindArray:         b.array,
		KindObject:        b.object,
		KindClass:         b.class,
		KindRange:         b.rangeC,
		KindIterator:      b.iterator,
		KindBuffer:        b.buffer,
		KindBufferBuilder: b.bufferBuilder,
		KindBufferReader:  b.bufferReader,
		KindFunction:      b.function,
		KindClosure:       b.function,
		KindNative:        b.function,
		KindBoundMethod:   b.function,
		KindLocalDate:     b.localDate,
		KindLocalTime:     b.localTime,
		KindLocalDateTime: b.localDateTime,
		KindZone:          b.zone,
		KindDate:          b.date,
		KindInstant:       b.instant,
		KindDuration:      b.duration,
		KindPeriod:        b.period,
	}

	vm.registerValuePrimitives()
	vm.registerNumberPrimitives()
	vm.registerBooleanPrimitives()
	vm.registerStringPrimitives()
	vm.registerStringBuilderPrimitives()
	vm.registerArrayPrimitives()
	vm.registerObjectPrimitives()
	vm.registerClassPrimitives()
	vm.registerRangePrimitives()
	vm.registerIteratorPrimitives()
	vm.registerBufferPrimitives()
	vm.registerFunctionPrimitives()
	vm.registerDateTimePrimitives()
	vm.registerGlobalPrimitives()
}

// defineClass creates a class and binds it immutably in Builtins.
func (vm *VM) defineClass(name string, parent *Class) *Class {
	c := vm.NewClass(name, parent)
	vm.Builtins.Define(name, ClassValue(c), true)
	return c
}

// ClassValue wraps c as a script value.
func ClassValue(c *Class) Value {
	return fromObject(KindClass, c)
}

// BuiltinClass returns the built-in class a kind dispatches through.
func (vm *VM) BuiltinClass(k Kind) *Class {
	if k < kindCount {
		return vm.classes[k]
	}
	return nil
}

// ---------------------------------------------------------------------------
// Method registration
// ---------------------------------------------------------------------------

func (vm *VM) native(c *Class, name string, arity int, fn NativeFunc) Value {
	full := c.Name + "." + name
	if arity >= 0 {
		inner := fn
		fn = func(vm *VM, args []Value) Value {
			if got := len(args) - 1; got != arity {
				vm.Throw(ErrType, "%s expects %d arguments, got %d", full, arity, got)
			}
			return inner(vm, args)
		}
	}
	return vm.NewNative(full, fn)
}

// AddMethod installs an instance method. arity counts arguments after the
// receiver; a negative arity accepts any number.
func (vm *VM) AddMethod(c *Class, name string, arity int, fn NativeFunc) {
	c.Instance.Set(vm.Intern(name), vm.native(c, name, arity, fn))
}

// AddStatic installs a method called on the class itself. The class value
// arrives as args[0].
func (vm *VM) AddStatic(c *Class, name string, arity int, fn NativeFunc) {
	c.Static.Set(vm.Intern(name), vm.native(c, name, arity, fn))
}

// SetStatic binds a static constant.
func (vm *VM) SetStatic(c *Class, name string, v Value) {
	c.Static.Set(vm.Intern(name), v)
}

func (vm *VM) method0(c *Class, name string, fn func(vm *VM, recv Value) Value) {
	vm.AddMethod(c, name, 0, func(vm *VM, args []Value) Value { return fn(vm, args[0]) })
}

func (vm *VM) method1(c *Class, name string, fn func(vm *VM, recv, a Value) Value) {
	vm.AddMethod(c, name, 1, func(vm *VM, args []Value) Value { return fn(vm, args[0], args[1]) })
}

func (vm *VM) method2(c *Class, name string, fn func(vm *VM, recv, a, b Value) Value) {
	vm.AddMethod(c, name, 2, func(vm *VM, args []Value) Value { return fn(vm, args[0], args[1], args[2]) })
}

func (vm *VM) static0(c *Class, name string, fn func(vm *VM) Value) {
	vm.AddStatic(c, name, 0, func(vm *VM, _ []Value) Value { return fn(vm) })
}

func (vm *VM) static1(c *Class, name string, fn func(vm *VM, a Value) Value) {
	vm.AddStatic(c, name, 1, func(vm *VM, args []Value) Value { return fn(vm, args[1]) })
}

func (vm *VM) static2(c *Class, name string, fn func(vm *VM, a, b Value) Value) {
	vm.AddStatic(c, name, 2, func(vm *VM, args []Value) Value { return fn(vm, args[1], args[2]) })
}

// ---------------------------------------------------------------------------
// Argument checks
// ---------------------------------------------------------------------------

// expect raises TYPE unless v has kind k.
func (vm *VM) expect(v Value, k Kind) Value {
	if v.kind != k {
		vm.ThrowAt(ErrType, v.debug, "expected %s, got %s", k, vm.typeName(v))
	}
	return v
}

func (vm *VM) intArg(v Value) int {
	if v.kind != KindInt32 {
		if v.kind == KindBigInt {
			vm.ThrowAt(ErrRange, v.debug, "integer %s out of range", v.AsBigInt().n)
		}
		vm.ThrowAt(ErrType, v.debug, "expected an integer, got %s", vm.typeName(v))
	}
	return int(v.Int32())
}

func (vm *VM) floatArg(v Value) float64 {
	if !v.IsNumber() {
		vm.ThrowAt(ErrType, v.debug, "expected a number, got %s", vm.typeName(v))
	}
	return toFloat(v)
}

func (vm *VM) stringArg(v Value) string {
	s := v.AsString()
	if s == nil {
		vm.ThrowAt(ErrType, v.debug, "expected a string, got %s", vm.typeName(v))
	}
	return s.s
}

func (vm *VM) callableArg(v Value) Value {
	if !v.IsCallable() && v.kind != KindClass {
		vm.ThrowAt(ErrType, v.debug, "expected a function, got %s", vm.typeName(v))
	}
	return v
}

// optArg returns args[i] when present.
func optArg(args []Value, i int) (Value, bool) {
	if i < len(args) && !args[i].IsNullish() {
		return args[i], true
	}
	return Undefined, false
}

// argRange raises TYPE unless the number of arguments after the receiver
// lies in [lo, hi].
func (vm *VM) argRange(name string, args []Value, lo, hi int) {
	if n := len(args) - 1; n < lo || n > hi {
		if lo == hi {
			vm.Throw(ErrType, "%s expects %d arguments, got %d", name, lo, n)
		}
		vm.Throw(ErrType, "%s expects %d to %d arguments, got %d", name, lo, hi, n)
	}
}
