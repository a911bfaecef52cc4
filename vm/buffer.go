package vm

import (
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Buffer, BufferBuilder, BufferReader
// ---------------------------------------------------------------------------

// Buffer is a contiguous byte store.
type Buffer struct {
	refHeader
	data []byte
}

func (b *Buffer) releaseChildren() { b.data = nil }

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

// BufferBuilder accumulates bytes and produces buffers.
type BufferBuilder struct {
	refHeader
	data []byte
}

func (b *BufferBuilder) releaseChildren() { b.data = nil }

// BufferReader is a cursor over a buffer.
type BufferReader struct {
	refHeader
	buffer Value
	pos    int
}

func (r *BufferReader) releaseChildren() { r.buffer.Release() }

func (vm *VM) newBuffer(data []byte) Value {
	return vm.alloc(KindBuffer, &Buffer{data: data})
}

func (vm *VM) newBufferReader(buf Value) Value {
	buf.Retain()
	return vm.alloc(KindBufferReader, &BufferReader{buffer: buf})
}

// readerTake returns the next n bytes, raising RANGE on underflow.
func (vm *VM) readerTake(r *BufferReader, n int) []byte {
	data := r.buffer.AsBuffer().data
	if n < 0 || r.pos+n > len(data) {
		vm.Throw(ErrRange, "buffer underflow: need %d bytes, %d remaining", n, len(data)-r.pos)
	}
	b := data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// byteOrders maps method-name suffixes to encodings.
var byteOrders = map[string]binary.ByteOrder{
	"LE": binary.LittleEndian,
	"BE": binary.BigEndian,
}

// byteArg converts a value to a byte, raising RANGE outside 0..255.
func (vm *VM) byteArg(v Value) byte {
	if v.kind != KindInt32 {
		vm.ThrowAt(ErrType, v.debug, "byte must be an int32, got %s", vm.typeName(v))
	}
	n := v.Int32()
	if n < 0 || n > 255 {
		vm.ThrowAt(ErrRange, v.debug, "byte value %d out of range 0..255", n)
	}
	return byte(n)
}
