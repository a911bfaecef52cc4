package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Debug locations
// ---------------------------------------------------------------------------

// DebugLocation identifies the source position an instruction or value came
// from. Line and Column are 1-based.
type DebugLocation struct {
	File       string
	Line       int
	Column     int
	SourceLine string
}

// String formats the location as line:column.
func (d *DebugLocation) String() string {
	if d == nil {
		return "?"
	}
	return fmt.Sprintf("%d:%d", d.Line, d.Column)
}

// DebugEntry maps a bytecode offset to a source location.
type DebugEntry struct {
	Offset   int
	Location *DebugLocation
}

// DebugTable is a sidecar of entries sorted by offset. An instruction uses
// the entry with the greatest offset not after it.
type DebugTable []DebugEntry

// Lookup returns the location covering offset, or nil.
func (t DebugTable) Lookup(offset int) *DebugLocation {
	i := sort.Search(len(t), func(i int) bool { return t[i].Offset > offset })
	if i == 0 {
		return nil
	}
	return t[i-1].Location
}

// ---------------------------------------------------------------------------
// Function: compiled code unit
// ---------------------------------------------------------------------------

// UpvalueDescriptor says where CLOSURE copies a captured value from: a local
// slot of the enclosing frame, or an upvalue of the enclosing closure.
type UpvalueDescriptor struct {
	IsLocal bool
	Index   uint8
	Name    string
}

// Function is an immutable compiled function: bytecode, its constant pool,
// parameter names, frame size and capture layout.
type Function struct {
	refHeader
	Name       string
	Path       string
	Code       []byte
	Constants  []Value
	Params     []string
	LocalCount int
	Upvalues   []UpvalueDescriptor
	Debug      DebugTable
}

func (f *Function) releaseChildren() {
	releaseAll(f.Constants)
	f.Constants = nil
}

// DisplayName returns the name used in diagnostics.
func (f *Function) DisplayName() string {
	if f.Name == "" {
		return "<anonymous>"
	}
	return f.Name
}

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.Params) }

// LocationAt returns the source location of the instruction at offset.
func (f *Function) LocationAt(offset int) *DebugLocation {
	return f.Debug.Lookup(offset)
}

// ---------------------------------------------------------------------------
// FunctionBuilder: constructs a Function for the compiler
// ---------------------------------------------------------------------------

// FunctionBuilder accumulates bytecode, constants and debug entries.
type FunctionBuilder struct {
	*BytecodeBuilder
	fn        *Function
	constants map[constantKey]int
	current   *DebugLocation
}

type constantKey struct {
	kind Kind
	bits uint64
	text string
}

// NewFunctionBuilder starts a function with the given name and parameters.
func NewFunctionBuilder(name, path string, params []string) *FunctionBuilder {
	return &FunctionBuilder{
		BytecodeBuilder: NewBytecodeBuilder(),
		fn: &Function{
			Name:       name,
			Path:       path,
			Params:     params,
			LocalCount: len(params),
		},
		constants: make(map[constantKey]int),
	}
}

// SetLocation sets the source location recorded for subsequent instructions.
func (b *FunctionBuilder) SetLocation(loc *DebugLocation) {
	if loc == nil {
		return
	}
	if b.current != nil && *b.current == *loc {
		return
	}
	b.current = loc
	offset := b.Len()
	t := b.fn.Debug
	if n := len(t); n > 0 && t[n-1].Offset == offset {
		t[n-1].Location = loc
		return
	}
	b.fn.Debug = append(t, DebugEntry{Offset: offset, Location: loc})
}

// Location returns the location currently being recorded.
func (b *FunctionBuilder) Location() *DebugLocation { return b.current }

// AddConstant interns v in the constant pool and returns its index.
// Strings, numbers and booleans are shared; functions never are.
func (b *FunctionBuilder) AddConstant(v Value) int {
	var key constantKey
	shareable := true
	switch v.kind {
	case KindNull, KindUndefined, KindBoolean, KindInt32, KindFloat32, KindFloat64:
		key = constantKey{kind: v.kind, bits: v.bits}
	case KindString:
		key = constantKey{kind: v.kind, text: v.AsString().s}
	case KindBigInt:
		key = constantKey{kind: v.kind, text: v.AsBigInt().n.String()}
	default:
		shareable = false
	}
	if shareable {
		if idx, ok := b.constants[key]; ok {
			return idx
		}
	}
	v.Retain()
	b.fn.Constants = append(b.fn.Constants, v)
	idx := len(b.fn.Constants) - 1
	if shareable {
		b.constants[key] = idx
	}
	return idx
}

// ReserveLocal records that slot index is used by the function.
func (b *FunctionBuilder) ReserveLocal(index int) {
	if index+1 > b.fn.LocalCount {
		b.fn.LocalCount = index + 1
	}
}

// AddUpvalue appends a capture descriptor and returns its index.
func (b *FunctionBuilder) AddUpvalue(desc UpvalueDescriptor) int {
	b.fn.Upvalues = append(b.fn.Upvalues, desc)
	return len(b.fn.Upvalues) - 1
}

// Upvalues returns the capture descriptors added so far.
func (b *FunctionBuilder) Upvalues() []UpvalueDescriptor { return b.fn.Upvalues }

// Build finalizes the function.
func (b *FunctionBuilder) Build() *Function {
	b.fn.Code = b.Bytes()
	return b.fn
}

// ---------------------------------------------------------------------------
// Closure: function plus captured values
// ---------------------------------------------------------------------------

// Closure binds a function to copies of the values it captured and to the
// module whose globals it resolves against.
type Closure struct {
	refHeader
	Function *Function
	Upvalues []Value
	Module   *Module
}

func (c *Closure) releaseChildren() {
	releaseAll(c.Upvalues)
	c.Upvalues = nil
	fnValue(c.Function).Release()
}

func fnValue(f *Function) Value { return fromObject(KindFunction, f) }

// FromFunction wraps f as a value for a constant pool.
func FromFunction(f *Function) Value { return fnValue(f) }
