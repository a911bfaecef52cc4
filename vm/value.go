package vm

import (
	"math"
	"math/big"
	"strconv"
)

// ---------------------------------------------------------------------------
// Value kinds
// ---------------------------------------------------------------------------

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindUndefined
	KindBoolean
	KindInt32
	KindBigInt
	KindFloat32
	KindFloat64
	KindString
	KindStringBuilder
	KindArray
	KindObject
	KindClass
	KindRange
	KindIterator
	KindBuffer
	KindBufferBuilder
	KindBufferReader
	KindFunction
	KindClosure
	KindNative
	KindBoundMethod
	KindLocalDate
	KindLocalTime
	KindLocalDateTime
	KindZone
	KindDate
	KindInstant
	KindDuration
	KindPeriod

	kindCount
)

var kindNames = [kindCount]string{
	KindNull:          "null",
	KindUndefined:     "undefined",
	KindBoolean:       "boolean",
	KindInt32:         "int32",
	KindBigInt:        "bigint",
	KindFloat32:       "float32",
	KindFloat64:       "float64",
	KindString:        "string",
	KindStringBuilder: "string_builder",
	KindArray:         "array",
	KindObject:        "object",
	KindClass:         "class",
	KindRange:         "range",
	KindIterator:      "iterator",
	KindBuffer:        "buffer",
	KindBufferBuilder: "buffer_builder",
	KindBufferReader:  "buffer_reader",
	KindFunction:      "function",
	KindClosure:       "closure",
	KindNative:        "native",
	KindBoundMethod:   "bound_method",
	KindLocalDate:     "local_date",
	KindLocalTime:     "local_time",
	KindLocalDateTime: "local_datetime",
	KindZone:          "zone",
	KindDate:          "date",
	KindInstant:       "instant",
	KindDuration:      "duration",
	KindPeriod:        "period",
}

// String returns the kind name reported by type().
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// Value: the tagged sum every operand-stack slot holds
// ---------------------------------------------------------------------------

// Value is a dynamically typed Slate value. Immediate variants keep their
// payload in bits; heap variants point at a ref-counted object. Every value
// may carry a class used for method dispatch and the source location of the
// expression that produced it.
type Value struct {
	kind  Kind
	bits  uint64
	obj   heapObject
	class *Class
	debug *DebugLocation
}

// Special values.
var (
	Null      = Value{kind: KindNull}
	Undefined = Value{kind: KindUndefined}
	True      = Value{kind: KindBoolean, bits: 1}
	False     = Value{kind: KindBoolean}
)

// FromBool returns True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromInt32 creates an int32 value.
func FromInt32(n int32) Value {
	return Value{kind: KindInt32, bits: uint64(uint32(n))}
}

// FromFloat64 creates a float64 value.
func FromFloat64(f float64) Value {
	return Value{kind: KindFloat64, bits: math.Float64bits(f)}
}

// FromFloat32 creates a float32 value.
func FromFloat32(f float32) Value {
	return Value{kind: KindFloat32, bits: uint64(math.Float32bits(f))}
}

// FromBigInt wraps n in an untracked bigint. Values that fit in int32 are
// returned as int32 so that integers have a single canonical form.
func FromBigInt(n *big.Int) Value {
	if n.IsInt64() {
		if i := n.Int64(); i >= math.MinInt32 && i <= math.MaxInt32 {
			return FromInt32(int32(i))
		}
	}
	return fromObject(KindBigInt, &BigInt{n: n})
}

// FromInt64 creates an integer value, promoting to an untracked bigint when
// n does not fit in int32.
func FromInt64(n int64) Value {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return FromInt32(int32(n))
	}
	return fromObject(KindBigInt, &BigInt{n: big.NewInt(n)})
}

func fromObject(k Kind, o heapObject) Value {
	return Value{kind: k, obj: o}
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Class returns the class attached to the value, or nil when dispatch
// should fall back to the built-in class for its kind.
func (v Value) Class() *Class { return v.class }

// WithClass returns a copy of v dispatching through c.
func (v Value) WithClass(c *Class) Value {
	v.class = c
	return v
}

// Debug returns the source location attached to v, if any.
func (v Value) Debug() *DebugLocation { return v.debug }

// WithDebug returns a copy of v carrying loc.
func (v Value) WithDebug(loc *DebugLocation) Value {
	v.debug = loc
	return v
}

func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsBool() bool      { return v.kind == KindBoolean }
func (v Value) IsString() bool    { return v.kind == KindString }

// IsNullish reports whether v is null or undefined.
func (v Value) IsNullish() bool {
	return v.kind == KindNull || v.kind == KindUndefined
}

// IsInteger reports whether v is an int32 or bigint.
func (v Value) IsInteger() bool {
	return v.kind == KindInt32 || v.kind == KindBigInt
}

// IsFloat reports whether v is a float32 or float64.
func (v Value) IsFloat() bool {
	return v.kind == KindFloat32 || v.kind == KindFloat64
}

// IsNumber reports whether v belongs to the numeric tower.
func (v Value) IsNumber() bool {
	return v.IsInteger() || v.IsFloat()
}

// IsCallable reports whether CALL can invoke v without consulting a class.
func (v Value) IsCallable() bool {
	switch v.kind {
	case KindClosure, KindNative, KindBoundMethod, KindFunction:
		return true
	}
	return false
}

// Truthy implements the language's truthiness: false, null, undefined,
// numeric zero, NaN and the empty string are falsy; everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull, KindUndefined:
		return false
	case KindBoolean:
		return v.bits != 0
	case KindInt32:
		return v.Int32() != 0
	case KindBigInt:
		return v.AsBigInt().n.Sign() != 0
	case KindFloat32, KindFloat64:
		f := v.Float64()
		return f != 0 && !math.IsNaN(f)
	case KindString:
		return v.AsString().s != ""
	}
	return true
}

// Same reports identity: equal immediates or the same heap object.
func (v Value) Same(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.obj != nil || o.obj != nil {
		return v.obj == o.obj
	}
	return v.bits == o.bits
}

// ---------------------------------------------------------------------------
// Immediate accessors
// ---------------------------------------------------------------------------

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.bits != 0 }

// Int32 returns the int32 payload.
func (v Value) Int32() int32 { return int32(uint32(v.bits)) }

// Float32 returns the float32 payload.
func (v Value) Float32() float32 { return math.Float32frombits(uint32(v.bits)) }

// Float64 returns any floating payload widened to float64.
func (v Value) Float64() float64 {
	if v.kind == KindFloat32 {
		return float64(v.Float32())
	}
	return math.Float64frombits(v.bits)
}

// ---------------------------------------------------------------------------
// Heap accessors
// ---------------------------------------------------------------------------

func (v Value) AsBigInt() *BigInt               { o, _ := v.obj.(*BigInt); return o }
func (v Value) AsString() *String               { o, _ := v.obj.(*String); return o }
func (v Value) AsStringBuilder() *StringBuilder { o, _ := v.obj.(*StringBuilder); return o }
func (v Value) AsArray() *Array                 { o, _ := v.obj.(*Array); return o }
func (v Value) AsObject() *Object               { o, _ := v.obj.(*Object); return o }
func (v Value) AsClass() *Class                 { o, _ := v.obj.(*Class); return o }
func (v Value) AsRange() *Range                 { o, _ := v.obj.(*Range); return o }
func (v Value) AsIterator() *Iterator           { o, _ := v.obj.(*Iterator); return o }
func (v Value) AsBuffer() *Buffer               { o, _ := v.obj.(*Buffer); return o }
func (v Value) AsBufferBuilder() *BufferBuilder { o, _ := v.obj.(*BufferBuilder); return o }
func (v Value) AsBufferReader() *BufferReader   { o, _ := v.obj.(*BufferReader); return o }
func (v Value) AsFunction() *Function           { o, _ := v.obj.(*Function); return o }
func (v Value) AsClosure() *Closure             { o, _ := v.obj.(*Closure); return o }
func (v Value) AsNative() *Native               { o, _ := v.obj.(*Native); return o }
func (v Value) AsBoundMethod() *BoundMethod     { o, _ := v.obj.(*BoundMethod); return o }
func (v Value) AsLocalDate() *LocalDate         { o, _ := v.obj.(*LocalDate); return o }
func (v Value) AsLocalTime() *LocalTime         { o, _ := v.obj.(*LocalTime); return o }
func (v Value) AsLocalDateTime() *LocalDateTime { o, _ := v.obj.(*LocalDateTime); return o }
func (v Value) AsZone() *Zone                   { o, _ := v.obj.(*Zone); return o }
func (v Value) AsDate() *ZonedDate              { o, _ := v.obj.(*ZonedDate); return o }
func (v Value) AsInstant() *Instant             { o, _ := v.obj.(*Instant); return o }
func (v Value) AsDuration() *Duration           { o, _ := v.obj.(*Duration); return o }
func (v Value) AsPeriod() *Period               { o, _ := v.obj.(*Period); return o }

// String renders v without consulting a VM. It is used for constants in
// disassembly and in Go-side diagnostics; scripts go through toString.
func (v Value) String() string {
	switch v.kind {
	case KindNull, KindUndefined:
		return v.kind.String()
	case KindBoolean:
		return strconv.FormatBool(v.Bool())
	case KindInt32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case KindBigInt:
		return v.AsBigInt().n.String()
	case KindFloat32:
		return formatFloat(v.Float64(), 32) + "f"
	case KindFloat64:
		return formatFloat(v.Float64(), 64)
	case KindString:
		return strconv.Quote(v.AsString().s)
	case KindFunction:
		return "<function " + v.AsFunction().DisplayName() + ">"
	}
	return "<" + v.kind.String() + ">"
}
