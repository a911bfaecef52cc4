package vm

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction. Multi-byte operands are
// little-endian; jump offsets are signed and relative to the instruction
// pointer after the operand.
type Opcode byte

// Stack Operations
const (
	OpNop               Opcode = 0x00 // no operation
	OpPushConstant      Opcode = 0x01 // push constant (16-bit index)
	OpPop               Opcode = 0x02 // discard top of stack
	OpPopN              Opcode = 0x03 // discard N values (8-bit count)
	OpPopNPreserveTop   Opcode = 0x04 // discard N values beneath the top (16-bit count)
	OpDup               Opcode = 0x05 // a -> a a
	OpSwap              Opcode = 0x06 // a b -> b a
	OpOver              Opcode = 0x07 // a b -> a b a
	OpNip               Opcode = 0x08 // a b -> b
	OpRot               Opcode = 0x09 // a b c -> b c a
)

// Arithmetic
const (
	OpAdd       Opcode = 0x10
	OpSubtract  Opcode = 0x11
	OpMultiply  Opcode = 0x12
	OpDivide    Opcode = 0x13
	OpMod       Opcode = 0x14
	OpPower     Opcode = 0x15
	OpFloorDiv  Opcode = 0x16
	OpNegate    Opcode = 0x17
	OpIncrement Opcode = 0x18
	OpDecrement Opcode = 0x19
)

// Logic and comparison
const (
	OpNot          Opcode = 0x20
	OpEqual        Opcode = 0x21
	OpNotEqual     Opcode = 0x22
	OpLess         Opcode = 0x23
	OpLessEqual    Opcode = 0x24
	OpGreater      Opcode = 0x25
	OpGreaterEqual Opcode = 0x26
	OpNullCoalesce Opcode = 0x27 // a b -> (a unless null/undefined, else b)
	OpIn           Opcode = 0x28 // v container -> bool
	OpInstanceof   Opcode = 0x29 // v class -> bool
)

// Bitwise
const (
	OpBitwiseAnd        Opcode = 0x30
	OpBitwiseOr         Opcode = 0x31
	OpBitwiseXor        Opcode = 0x32
	OpBitwiseNot        Opcode = 0x33
	OpLeftShift         Opcode = 0x34
	OpRightShift        Opcode = 0x35
	OpLogicalRightShift Opcode = 0x36
)

// Control Flow
const (
	OpJump        Opcode = 0x40 // unconditional jump (16-bit signed offset)
	OpJumpIfFalse Opcode = 0x41 // pop, jump if falsy (16-bit signed offset)
	OpJumpIfTrue  Opcode = 0x42 // pop, jump if truthy (16-bit signed offset)
	OpCall        Opcode = 0x43 // call callee beneath N args (8-bit count)
	OpReturn      Opcode = 0x44 // return top of stack to the caller
	OpClosure     Opcode = 0x45 // build closure from function constant (16-bit index)
)

// Variables
const (
	OpDefineGlobal Opcode = 0x50 // pop, bind name (16-bit name, 8-bit immutable flag)
	OpGetGlobal    Opcode = 0x51 // push global (16-bit name)
	OpSetGlobal    Opcode = 0x52 // pop, store into global (16-bit name)
	OpGetLocal     Opcode = 0x53 // push frame slot (8-bit slot)
	OpSetLocal     Opcode = 0x54 // pop, store into frame slot (8-bit slot)
	OpGetUpvalue   Opcode = 0x55 // push captured value (8-bit index)
	OpSetUpvalue   Opcode = 0x56 // pop, store into captured value (8-bit index)
	OpGetCallee    Opcode = 0x57 // push the closure of the running frame
)

// Properties and indexing
const (
	OpGetProperty Opcode = 0x60 // obj name -> value
	OpSetProperty Opcode = 0x61 // obj name value -> value
	OpGetIndex    Opcode = 0x62 // obj index -> value
	OpSetIndex    Opcode = 0x63 // obj index value -> value
)

// Construction
const (
	OpBuildArray  Opcode = 0x70 // pop N elements (16-bit count)
	OpBuildObject Opcode = 0x71 // pop N key/value pairs (16-bit count)
	OpBuildRange  Opcode = 0x72 // start end step -> range (16-bit exclusive flag)
)

// Modules
const (
	OpImportModule Opcode = 0x80 // variable-length, see ImportFlag
	OpGetExport    Opcode = 0x81 // module name -> value
)

// ImportFlag values select the import form. Any other flag value is the
// number of (name, alias) pairs that follow.
const (
	ImportWildcard  byte = 0xFF
	ImportNamespace byte = 0xFE
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes (-1 = variable)
	StackEffect  int    // net effect on stack (-99 = variable)
}

const variableEffect = -99

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop:             {"NOP", 0, 0},
	OpPushConstant:    {"PUSH_CONSTANT", 2, 1},
	OpPop:             {"POP", 0, -1},
	OpPopN:            {"POP_N", 1, variableEffect},
	OpPopNPreserveTop: {"POP_N_PRESERVE_TOP", 2, variableEffect},
	OpDup:             {"DUP", 0, 1},
	OpSwap:            {"SWAP", 0, 0},
	OpOver:            {"OVER", 0, 1},
	OpNip:             {"NIP", 0, -1},
	OpRot:             {"ROT", 0, 0},

	OpAdd:       {"ADD", 0, -1},
	OpSubtract:  {"SUBTRACT", 0, -1},
	OpMultiply:  {"MULTIPLY", 0, -1},
	OpDivide:    {"DIVIDE", 0, -1},
	OpMod:       {"MOD", 0, -1},
	OpPower:     {"POWER", 0, -1},
	OpFloorDiv:  {"FLOOR_DIV", 0, -1},
	OpNegate:    {"NEGATE", 0, 0},
	OpIncrement: {"INCREMENT", 0, 0},
	OpDecrement: {"DECREMENT", 0, 0},

	OpNot:          {"NOT", 0, 0},
	OpEqual:        {"EQUAL", 0, -1},
	OpNotEqual:     {"NOT_EQUAL", 0, -1},
	OpLess:         {"LESS", 0, -1},
	OpLessEqual:    {"LESS_EQUAL", 0, -1},
	OpGreater:      {"GREATER", 0, -1},
	OpGreaterEqual: {"GREATER_EQUAL", 0, -1},
	OpNullCoalesce: {"NULL_COALESCE", 0, -1},
	OpIn:           {"IN", 0, -1},
	OpInstanceof:   {"INSTANCEOF", 0, -1},

	OpBitwiseAnd:        {"BITWISE_AND", 0, -1},
	OpBitwiseOr:         {"BITWISE_OR", 0, -1},
	OpBitwiseXor:        {"BITWISE_XOR", 0, -1},
	OpBitwiseNot:        {"BITWISE_NOT", 0, 0},
	OpLeftShift:         {"LEFT_SHIFT", 0, -1},
	OpRightShift:        {"RIGHT_SHIFT", 0, -1},
	OpLogicalRightShift: {"LOGICAL_RIGHT_SHIFT", 0, -1},

	OpJump:        {"JUMP", 2, 0},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2, -1},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", 2, -1},
	OpCall:        {"CALL", 1, variableEffect},
	OpReturn:      {"RETURN", 0, variableEffect},
	OpClosure:     {"CLOSURE", 2, 1},

	OpDefineGlobal: {"DEFINE_GLOBAL", 3, -1},
	OpGetGlobal:    {"GET_GLOBAL", 2, 1},
	OpSetGlobal:    {"SET_GLOBAL", 2, -1},
	OpGetLocal:     {"GET_LOCAL", 1, 1},
	OpSetLocal:     {"SET_LOCAL", 1, -1},
	OpGetUpvalue:   {"GET_UPVALUE", 1, 1},
	OpSetUpvalue:   {"SET_UPVALUE", 1, -1},
	OpGetCallee:    {"GET_CALLEE", 0, 1},

	OpGetProperty: {"GET_PROPERTY", 0, -1},
	OpSetProperty: {"SET_PROPERTY", 0, -2},
	OpGetIndex:    {"GET_INDEX", 0, -1},
	OpSetIndex:    {"SET_INDEX", 0, -2},

	OpBuildArray:  {"BUILD_ARRAY", 2, variableEffect},
	OpBuildObject: {"BUILD_OBJECT", 2, variableEffect},
	OpBuildRange:  {"BUILD_RANGE", 2, -2},

	OpImportModule: {"IMPORT_MODULE", -1, 0},
	OpGetExport:    {"GET_EXPORT", 0, -1},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), OperandBytes: 0, StackEffect: 0}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandBytes returns the number of operand bytes for an opcode.
func (op Opcode) OperandBytes() int {
	return op.Info().OperandBytes
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// BytecodeBuilder: Helper for constructing bytecode
// ---------------------------------------------------------------------------

// BytecodeBuilder helps construct bytecode sequences.
type BytecodeBuilder struct {
	bytes []byte
}

// NewBytecodeBuilder creates a new bytecode builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{
		bytes: make([]byte, 0, 64),
	}
}

// Bytes returns the constructed bytecode.
func (b *BytecodeBuilder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length.
func (b *BytecodeBuilder) Len() int {
	return len(b.bytes)
}

// Emit appends an opcode with no operands.
func (b *BytecodeBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitRaw appends a raw byte to the bytecode.
func (b *BytecodeBuilder) EmitRaw(data byte) {
	b.bytes = append(b.bytes, data)
}

// EmitRawUint16 appends a raw little-endian 16-bit operand.
func (b *BytecodeBuilder) EmitRawUint16(v uint16) {
	b.bytes = append(b.bytes, byte(v), byte(v>>8))
}

// EmitByte appends an opcode with a single byte operand.
func (b *BytecodeBuilder) EmitByte(op Opcode, operand byte) {
	b.bytes = append(b.bytes, byte(op), operand)
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (b *BytecodeBuilder) EmitUint16(op Opcode, operand uint16) {
	b.bytes = append(b.bytes, byte(op), byte(operand), byte(operand>>8))
}

// EmitDefineGlobal appends a DEFINE_GLOBAL instruction.
func (b *BytecodeBuilder) EmitDefineGlobal(name uint16, immutable bool) {
	var flag byte
	if immutable {
		flag = 1
	}
	b.bytes = append(b.bytes, byte(OpDefineGlobal), byte(name), byte(name>>8), flag)
}

// ---------------------------------------------------------------------------
// Jumps
// ---------------------------------------------------------------------------

// EmitJump emits a forward jump with a placeholder offset and returns the
// operand position to hand to PatchJump.
func (b *BytecodeBuilder) EmitJump(op Opcode) int {
	b.bytes = append(b.bytes, byte(op), 0, 0)
	return len(b.bytes) - 2
}

// PatchJump points the jump whose operand sits at pos at the current end
// of the bytecode.
func (b *BytecodeBuilder) PatchJump(pos int) error {
	offset := len(b.bytes) - (pos + 2)
	if offset > 32767 {
		return fmt.Errorf("jump offset %d too large", offset)
	}
	binary.LittleEndian.PutUint16(b.bytes[pos:], uint16(int16(offset)))
	return nil
}

// EmitLoop emits a backward jump to target.
func (b *BytecodeBuilder) EmitLoop(target int) error {
	b.bytes = append(b.bytes, byte(OpJump))
	offset := target - (len(b.bytes) + 2)
	if offset < -32768 {
		return fmt.Errorf("loop body of %d bytes too large", -offset)
	}
	b.bytes = append(b.bytes, byte(offset), byte(offset>>8))
	return nil
}

// ---------------------------------------------------------------------------
// Bytecode reader for disassembly
// ---------------------------------------------------------------------------

// BytecodeReader reads bytecode for disassembly.
type BytecodeReader struct {
	bytes []byte
	pos   int
}

// NewBytecodeReader creates a reader positioned at the start of bc.
func NewBytecodeReader(bc []byte) *BytecodeReader {
	return &BytecodeReader{bytes: bc}
}

// Position returns the current read offset.
func (r *BytecodeReader) Position() int { return r.pos }

// HasMore reports whether bytes remain.
func (r *BytecodeReader) HasMore() bool { return r.pos < len(r.bytes) }

// ReadOpcode reads one opcode.
func (r *BytecodeReader) ReadOpcode() Opcode {
	return Opcode(r.ReadByte())
}

// ReadByte reads one byte, returning zero past the end.
func (r *BytecodeReader) ReadByte() byte {
	if r.pos >= len(r.bytes) {
		r.pos++
		return 0
	}
	b := r.bytes[r.pos]
	r.pos++
	return b
}

// ReadUint16 reads a little-endian 16-bit operand.
func (r *BytecodeReader) ReadUint16() uint16 {
	lo := r.ReadByte()
	hi := r.ReadByte()
	return uint16(lo) | uint16(hi)<<8
}

// ReadInt16 reads a signed little-endian 16-bit operand.
func (r *BytecodeReader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}
