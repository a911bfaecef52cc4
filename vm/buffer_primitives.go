package vm

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Buffer, BufferBuilder and BufferReader Primitives
// ---------------------------------------------------------------------------

// intWidths lists the fixed-width integer encodings the builder and reader
// support, by method-name stem.
var intWidths = []struct {
	stem   string
	bytes  int
	signed bool
}{
	{"Int16", 2, true}, {"Uint16", 2, false},
	{"Int32", 4, true}, {"Uint32", 4, false},
	{"Int64", 8, true}, {"Uint64", 8, false},
}

// fixedInt converts v to the bit pattern of a width-byte integer, raising
// RANGE when v does not fit.
func (vm *VM) fixedInt(v Value, width int, signed bool) uint64 {
	if !v.IsInteger() {
		vm.ThrowAt(ErrType, v.debug, "expected an integer, got %s", vm.typeName(v))
	}
	n := toBig(v)
	bits := uint(width * 8)
	var lo, hi *big.Int
	if signed {
		lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), bits-1))
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits-1), big.NewInt(1))
	} else {
		lo = new(big.Int)
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
	}
	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		vm.ThrowAt(ErrRange, v.debug, "%s does not fit in %d bits", n, bits)
	}
	if n.Sign() < 0 {
		return uint64(n.Int64())
	}
	return n.Uint64()
}

// fromFixedInt turns a decoded bit pattern back into an integer value.
func (vm *VM) fromFixedInt(u uint64, width int, signed bool) Value {
	if signed {
		shift := uint(64 - width*8)
		return vm.Int64(int64(u<<shift) >> shift)
	}
	if u <= math.MaxInt64 {
		return vm.Int64(int64(u))
	}
	return vm.Integer(new(big.Int).SetUint64(u))
}

func putUint(order binary.ByteOrder, width int, u uint64) []byte {
	b := make([]byte, width)
	switch width {
	case 2:
		order.PutUint16(b, uint16(u))
	case 4:
		order.PutUint32(b, uint32(u))
	default:
		order.PutUint64(b, u)
	}
	return b
}

func getUint(order binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	}
	return order.Uint64(b)
}

func (vm *VM) bufferString(b *Buffer) string {
	const preview = 32
	if len(b.data) > preview {
		return "<buffer " + hex.EncodeToString(b.data[:preview]) + "... " + strconv.Itoa(len(b.data)) + " bytes>"
	}
	return "<buffer " + hex.EncodeToString(b.data) + ">"
}

// bytesOf converts a buffer, array of bytes or string to raw bytes.
func (vm *VM) bytesOf(v Value) []byte {
	switch v.kind {
	case KindBuffer:
		return v.AsBuffer().data
	case KindString:
		return []byte(v.AsString().s)
	case KindArray:
		items := v.AsArray().items
		b := make([]byte, len(items))
		for i, e := range items {
			b[i] = vm.byteArg(e)
		}
		return b
	}
	vm.ThrowAt(ErrType, v.debug, "expected a buffer, array or string, got %s", vm.typeName(v))
	return nil
}

func (vm *VM) registerBufferPrimitives() {
	c := vm.builtins.buffer

	// Buffer(n) is n zero bytes; Buffer(array) and Buffer(string) copy.
	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("Buffer", args, 1, 1)
		if args[1].kind == KindInt32 {
			n := vm.intArg(args[1])
			if n < 0 {
				vm.ThrowAt(ErrRange, args[1].debug, "buffer length %d is negative", n)
			}
			return vm.newBuffer(make([]byte, n))
		}
		return vm.newBuffer(bytes.Clone(vm.bytesOf(args[1])))
	}

	vm.static1(c, "fromHex", func(vm *VM, s Value) Value {
		data, err := hex.DecodeString(vm.stringArg(s))
		if err != nil {
			vm.ThrowAt(ErrRange, s.debug, "invalid hex string: %v", err)
		}
		return vm.newBuffer(data)
	})

	vm.static1(c, "fromString", func(vm *VM, s Value) Value {
		return vm.newBuffer([]byte(vm.stringArg(s)))
	})

	vm.method1(c, "equals", func(_ *VM, recv, other Value) Value {
		b := other.AsBuffer()
		return FromBool(b != nil && bytes.Equal(recv.AsBuffer().data, b.data))
	})

	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		data := recv.AsBuffer().data
		return FromInt32(int32(fnvMix(fnv1a(fnvOffset, data), uint32(len(data)))))
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString(vm.bufferString(recv.AsBuffer()))
	})

	vm.method0(c, "length", func(_ *VM, recv Value) Value {
		return FromInt32(int32(len(recv.AsBuffer().data)))
	})

	vm.method0(c, "toHex", func(vm *VM, recv Value) Value {
		return vm.NewString(hex.EncodeToString(recv.AsBuffer().data))
	})

	vm.method1(c, "get", func(vm *VM, recv, idx Value) Value {
		return vm.GetIndex(recv, idx)
	})

	vm.method2(c, "set", func(vm *VM, recv, idx, v Value) Value {
		vm.SetIndex(recv, idx, v)
		return v
	})

	vm.AddMethod(c, "slice", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Buffer.slice", args, 0, 2)
		data := args[0].AsBuffer().data
		start, end := vm.sliceBounds(args, len(data))
		return vm.newBuffer(bytes.Clone(data[start:end]))
	})

	vm.method1(c, "concat", func(vm *VM, recv, other Value) Value {
		a := recv.AsBuffer().data
		b := vm.expect(other, KindBuffer).AsBuffer().data
		return vm.newBuffer(append(bytes.Clone(a), b...))
	})

	vm.method0(c, "toArray", func(vm *VM, recv Value) Value {
		data := recv.AsBuffer().data
		items := make([]Value, len(data))
		for i, b := range data {
			items[i] = FromInt32(int32(b))
		}
		return vm.NewArray(items...)
	})

	vm.method0(c, "reader", func(vm *VM, recv Value) Value {
		return vm.newBufferReader(recv)
	})

	vm.AddMethod(c, "decode", -1, func(vm *VM, args []Value) Value {
		vm.argRange("Buffer.decode", args, 0, 1)
		data := args[0].AsBuffer().data
		if name, ok := optArg(args, 1); ok {
			if enc := vm.textEncoding(name); enc != nil {
				s, err := enc.NewDecoder().Bytes(data)
				if err != nil {
					vm.ThrowAt(ErrRange, name.debug, "cannot decode as %s: %v", name.AsString().s, err)
				}
				return vm.NewString(string(s))
			}
		}
		if !utf8.Valid(data) {
			vm.ThrowAt(ErrRange, args[0].debug, "buffer is not valid UTF-8")
		}
		return vm.NewString(string(data))
	})

	vm.registerBufferBuilderPrimitives()
	vm.registerBufferReaderPrimitives()
}

func (vm *VM) registerBufferBuilderPrimitives() {
	c := vm.builtins.bufferBuilder

	c.Factory = func(vm *VM, _ []Value) Value {
		return vm.alloc(KindBufferBuilder, &BufferBuilder{})
	}

	write := func(name string, fn func(vm *VM, b *BufferBuilder, v Value)) {
		vm.method1(c, name, func(vm *VM, recv, v Value) Value {
			fn(vm, recv.AsBufferBuilder(), v)
			return recv
		})
	}

	write("writeByte", func(vm *VM, b *BufferBuilder, v Value) {
		b.data = append(b.data, vm.byteArg(v))
	})
	write("writeUint8", func(vm *VM, b *BufferBuilder, v Value) {
		b.data = append(b.data, byte(vm.fixedInt(v, 1, false)))
	})
	write("writeInt8", func(vm *VM, b *BufferBuilder, v Value) {
		b.data = append(b.data, byte(vm.fixedInt(v, 1, true)))
	})
	write("writeBytes", func(vm *VM, b *BufferBuilder, v Value) {
		b.data = append(b.data, vm.bytesOf(v)...)
	})
	write("writeString", func(vm *VM, b *BufferBuilder, v Value) {
		b.data = append(b.data, vm.stringArg(v)...)
	})

	for suffix, order := range byteOrders {
		for _, w := range intWidths {
			w, order := w, order
			write("write"+w.stem+suffix, func(vm *VM, b *BufferBuilder, v Value) {
				b.data = append(b.data, putUint(order, w.bytes, vm.fixedInt(v, w.bytes, w.signed))...)
			})
		}
		order := order
		write("writeFloat32"+suffix, func(vm *VM, b *BufferBuilder, v Value) {
			b.data = append(b.data, putUint(order, 4, uint64(math.Float32bits(float32(vm.floatArg(v)))))...)
		})
		write("writeFloat64"+suffix, func(vm *VM, b *BufferBuilder, v Value) {
			b.data = append(b.data, putUint(order, 8, math.Float64bits(vm.floatArg(v)))...)
		})
	}

	vm.method0(c, "length", func(_ *VM, recv Value) Value {
		return FromInt32(int32(len(recv.AsBufferBuilder().data)))
	})

	// toBuffer copies, so the builder can keep accumulating.
	vm.method0(c, "toBuffer", func(vm *VM, recv Value) Value {
		return vm.newBuffer(bytes.Clone(recv.AsBufferBuilder().data))
	})

	vm.method0(c, "clear", func(_ *VM, recv Value) Value {
		b := recv.AsBufferBuilder()
		b.data = b.data[:0]
		return recv
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		return vm.NewString("<buffer builder " + strconv.Itoa(len(recv.AsBufferBuilder().data)) + " bytes>")
	})
}

func (vm *VM) registerBufferReaderPrimitives() {
	c := vm.builtins.bufferReader

	c.Factory = func(vm *VM, args []Value) Value {
		vm.argRange("BufferReader", args, 1, 1)
		return vm.newBufferReader(vm.expect(args[1], KindBuffer))
	}

	read := func(name string, fn func(vm *VM, r *BufferReader) Value) {
		vm.method0(c, name, func(vm *VM, recv Value) Value {
			return fn(vm, recv.AsBufferReader())
		})
	}

	read("readByte", func(vm *VM, r *BufferReader) Value {
		return FromInt32(int32(vm.readerTake(r, 1)[0]))
	})
	read("readUint8", func(vm *VM, r *BufferReader) Value {
		return FromInt32(int32(vm.readerTake(r, 1)[0]))
	})
	read("readInt8", func(vm *VM, r *BufferReader) Value {
		return FromInt32(int32(int8(vm.readerTake(r, 1)[0])))
	})

	for suffix, order := range byteOrders {
		for _, w := range intWidths {
			w, order := w, order
			read("read"+w.stem+suffix, func(vm *VM, r *BufferReader) Value {
				return vm.fromFixedInt(getUint(order, vm.readerTake(r, w.bytes)), w.bytes, w.signed)
			})
		}
		order := order
		read("readFloat32"+suffix, func(vm *VM, r *BufferReader) Value {
			return FromFloat32(math.Float32frombits(uint32(getUint(order, vm.readerTake(r, 4)))))
		})
		read("readFloat64"+suffix, func(vm *VM, r *BufferReader) Value {
			return FromFloat64(math.Float64frombits(getUint(order, vm.readerTake(r, 8))))
		})
	}

	vm.method1(c, "readBytes", func(vm *VM, recv, n Value) Value {
		return vm.newBuffer(bytes.Clone(vm.readerTake(recv.AsBufferReader(), vm.intArg(n))))
	})

	vm.method1(c, "readString", func(vm *VM, recv, n Value) Value {
		b := vm.readerTake(recv.AsBufferReader(), vm.intArg(n))
		if !utf8.Valid(b) {
			vm.ThrowAt(ErrRange, n.debug, "bytes are not valid UTF-8")
		}
		return vm.NewString(string(b))
	})

	vm.method0(c, "position", func(_ *VM, recv Value) Value {
		return FromInt32(int32(recv.AsBufferReader().pos))
	})

	vm.method0(c, "remaining", func(_ *VM, recv Value) Value {
		r := recv.AsBufferReader()
		return FromInt32(int32(len(r.buffer.AsBuffer().data) - r.pos))
	})

	vm.method0(c, "isEmpty", func(_ *VM, recv Value) Value {
		r := recv.AsBufferReader()
		return FromBool(r.pos >= len(r.buffer.AsBuffer().data))
	})

	vm.method1(c, "seek", func(vm *VM, recv, pos Value) Value {
		r := recv.AsBufferReader()
		p := vm.intArg(pos)
		if p < 0 || p > len(r.buffer.AsBuffer().data) {
			vm.ThrowAt(ErrRange, pos.debug, "seek position %d out of range", p)
		}
		r.pos = p
		return recv
	})

	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		r := recv.AsBufferReader()
		return vm.NewString("<buffer reader " + strconv.Itoa(r.pos) + "/" + strconv.Itoa(len(r.buffer.AsBuffer().data)) + ">")
	})
}
