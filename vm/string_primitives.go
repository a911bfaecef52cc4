package vm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

// textEncodings are the encodings accepted by String.encode and
// Buffer.decode. UTF-8 is handled directly.
var textEncodings = map[string]encoding.Encoding{
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"utf-16le":     xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM),
	"utf-16be":     xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM),
}

var normForms = map[string]norm.Form{
	"NFC":  norm.NFC,
	"NFD":  norm.NFD,
	"NFKC": norm.NFKC,
	"NFKD": norm.NFKD,
}

func (vm *VM) textEncoding(name Value) encoding.Encoding {
	n := strings.ToLower(vm.stringArg(name))
	if n == "utf-8" || n == "utf8" {
		return nil
	}
	enc, ok := textEncodings[n]
	if !ok {
		vm.ThrowAt(ErrRange, name.debug, "unknown encoding %q", n)
	}
	return enc
}

// codePoint validates v as a Unicode scalar value.
func (vm *VM) codePoint(v Value) rune {
	n := vm.intArg(v)
	if n < 0 || n > unicode.MaxRune || n >= 0xD800 && n <= 0xDFFF {
		vm.ThrowAt(ErrRange, v.debug, "invalid code point %d", n)
	}
	return rune(n)
}

// sliceBounds resolves slice arguments, counting negative indexes from the
// end. Bounds outside the sequence are RANGE errors.
func (vm *VM) sliceBounds(args []Value, n int) (int, int) {
	start, end := 0, n
	if v, ok := optArg(args, 1); ok {
		start = vm.intArg(v)
		if start < 0 {
			start += n
		}
		if start < 0 || start > n {
			vm.ThrowAt(ErrRange, v.debug, "slice start %d out of range for length %d", vm.intArg(v), n)
		}
	}
	if v, ok := optArg(args, 2); ok {
		end = vm.intArg(v)
		if end < 0 {
			end += n
		}
		if end < start || end > n {
			vm.ThrowAt(ErrRange, v.debug, "slice end %d out of range for length %d", vm.intArg(v), n)
		}
	}
	return start, end
}

// runeIndex converts a byte offset in s to a code-point index.
func runeIndex(s string, byteOffset int) int {
	if byteOffset < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:byteOffset])
}

func (vm *VM) stringMethod(c *Class, name string, fn func(string) string) {
	vm.method0(c, name, func(vm *VM, recv Value) Value {
		return vm.NewString(fn(recv.AsString().s))
	})
}

func (vm *VM) registerStringPrimitives() {
	c := vm.builtins.string

	c.Factory = func(vm *VM, args []Value) Value {
		if len(args) < 2 {
			return vm.NewString("")
		}
		return vm.NewString(vm.ToString(args[1]))
	}

	vm.method1(c, "equals", func(_ *VM, recv, other Value) Value {
		o := other.AsString()
		return FromBool(o != nil && o.s == recv.AsString().s)
	})

	vm.method0(c, "hash", func(_ *VM, recv Value) Value {
		return FromInt32(int32(recv.AsString().Hash()))
	})

	vm.method0(c, "toString", func(_ *VM, recv Value) Value {
		return recv
	})

	vm.method1(c, "compareTo", func(vm *VM, recv, other Value) Value {
		return FromInt32(int32(strings.Compare(recv.AsString().s, vm.stringArg(other))))
	})

	vm.method0(c, "length", func(_ *VM, recv Value) Value {
		return FromInt32(int32(recv.AsString().Len()))
	})

	vm.method0(c, "byteLength", func(_ *VM, recv Value) Value {
		return FromInt32(int32(len(recv.AsString().s)))
	})

	vm.method0(c, "isEmpty", func(_ *VM, recv Value) Value {
		return FromBool(recv.AsString().s == "")
	})

	vm.method1(c, "charAt", func(vm *VM, recv, idx Value) Value {
		s := recv.AsString()
		i := vm.intArg(idx)
		r, ok := s.Rune(i)
		if !ok {
			vm.ThrowAt(ErrRange, idx.debug, "index %d out of range for length %d", i, s.Len())
		}
		return vm.NewString(string(r))
	})

	vm.method1(c, "codePointAt", func(vm *VM, recv, idx Value) Value {
		s := recv.AsString()
		i := vm.intArg(idx)
		r, ok := s.Rune(i)
		if !ok {
			vm.ThrowAt(ErrRange, idx.debug, "index %d out of range for length %d", i, s.Len())
		}
		return FromInt32(r)
	})

	vm.method1(c, "indexOf", func(vm *VM, recv, sub Value) Value {
		s := recv.AsString().s
		return FromInt32(int32(runeIndex(s, strings.Index(s, vm.stringArg(sub)))))
	})

	vm.method1(c, "lastIndexOf", func(vm *VM, recv, sub Value) Value {
		s := recv.AsString().s
		return FromInt32(int32(runeIndex(s, strings.LastIndex(s, vm.stringArg(sub)))))
	})

	vm.method1(c, "contains", func(vm *VM, recv, sub Value) Value {
		return FromBool(strings.Contains(recv.AsString().s, vm.stringArg(sub)))
	})

	vm.method1(c, "startsWith", func(vm *VM, recv, prefix Value) Value {
		return FromBool(strings.HasPrefix(recv.AsString().s, vm.stringArg(prefix)))
	})

	vm.method1(c, "endsWith", func(vm *VM, recv, suffix Value) Value {
		return FromBool(strings.HasSuffix(recv.AsString().s, vm.stringArg(suffix)))
	})

	vm.AddMethod(c, "slice", -1, func(vm *VM, args []Value) Value {
		vm.argRange("String.slice", args, 0, 2)
		s := args[0].AsString()
		start, end := vm.sliceBounds(args, s.Len())
		return vm.NewString(s.Slice(start, end))
	})

	// substring takes non-negative bounds only.
	vm.AddMethod(c, "substring", -1, func(vm *VM, args []Value) Value {
		vm.argRange("String.substring", args, 1, 2)
		s := args[0].AsString()
		for _, a := range args[1:] {
			if !a.IsNullish() && vm.intArg(a) < 0 {
				vm.ThrowAt(ErrRange, a.debug, "substring index %d is negative", vm.intArg(a))
			}
		}
		start, end := vm.sliceBounds(args, s.Len())
		return vm.NewString(s.Slice(start, end))
	})

	vm.AddMethod(c, "split", -1, func(vm *VM, args []Value) Value {
		vm.argRange("String.split", args, 0, 1)
		s := args[0].AsString().s
		var parts []string
		if sep, ok := optArg(args, 1); ok {
			parts = strings.Split(s, vm.stringArg(sep))
		} else {
			parts = strings.Fields(s)
		}
		items := make([]Value, len(parts))
		for i, p := range parts {
			items[i] = vm.NewString(p)
		}
		return vm.NewArray(items...)
	})

	vm.method0(c, "chars", func(vm *VM, recv Value) Value {
		s := recv.AsString().s
		items := make([]Value, 0, len(s))
		for _, r := range s {
			items = append(items, vm.NewString(string(r)))
		}
		return vm.NewArray(items...)
	})

	vm.method0(c, "iterator", func(vm *VM, recv Value) Value {
		s := recv.AsString().s
		items := make([]Value, 0, len(s))
		for _, r := range s {
			items = append(items, vm.NewString(string(r)))
		}
		return vm.newArrayIterator(vm.NewArray(items...))
	})

	vm.method0(c, "codePoints", func(vm *VM, recv Value) Value {
		s := recv.AsString().s
		items := make([]Value, 0, len(s))
		for _, r := range s {
			items = append(items, FromInt32(r))
		}
		return vm.NewArray(items...)
	})

	vm.stringMethod(c, "trim", strings.TrimSpace)
	vm.stringMethod(c, "trimStart", func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) })
	vm.stringMethod(c, "trimEnd", func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) })
	vm.stringMethod(c, "toUpper", cases.Upper(language.Und).String)
	vm.stringMethod(c, "toLower", cases.Lower(language.Und).String)
	vm.stringMethod(c, "toTitle", cases.Title(language.Und).String)
	vm.stringMethod(c, "fold", cases.Fold().String)
	vm.stringMethod(c, "reverse", func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})

	vm.AddMethod(c, "normalize", -1, func(vm *VM, args []Value) Value {
		vm.argRange("String.normalize", args, 0, 1)
		form := norm.NFC
		if f, ok := optArg(args, 1); ok {
			nf, known := normForms[strings.ToUpper(vm.stringArg(f))]
			if !known {
				vm.ThrowAt(ErrRange, f.debug, "unknown normalization form %q", f.AsString().s)
			}
			form = nf
		}
		return vm.NewString(form.String(args[0].AsString().s))
	})

	vm.method2(c, "replace", func(vm *VM, recv, old, repl Value) Value {
		return vm.NewString(strings.Replace(recv.AsString().s, vm.stringArg(old), vm.stringArg(repl), 1))
	})

	vm.method2(c, "replaceAll", func(vm *VM, recv, old, repl Value) Value {
		return vm.NewString(strings.ReplaceAll(recv.AsString().s, vm.stringArg(old), vm.stringArg(repl)))
	})

	vm.method1(c, "repeat", func(vm *VM, recv, count Value) Value {
		n := vm.intArg(count)
		s := recv.AsString().s
		if n < 0 || len(s) > 0 && n > (1<<28)/len(s) {
			vm.ThrowAt(ErrRange, count.debug, "repeat count %d out of range", n)
		}
		return vm.NewString(strings.Repeat(s, n))
	})

	pad := func(name string, left bool) {
		vm.AddMethod(c, name, -1, func(vm *VM, args []Value) Value {
			vm.argRange("String."+name, args, 1, 2)
			s := args[0].AsString()
			width := vm.intArg(args[1])
			fill := " "
			if f, ok := optArg(args, 2); ok {
				fill = vm.stringArg(f)
			}
			missing := width - s.Len()
			if missing <= 0 || fill == "" {
				return args[0]
			}
			padding := []rune(strings.Repeat(fill, missing))[:missing]
			if left {
				return vm.NewString(string(padding) + s.s)
			}
			return vm.NewString(s.s + string(padding))
		})
	}
	pad("padStart", true)
	pad("padEnd", false)

	vm.method0(c, "toNumber", func(vm *VM, recv Value) Value {
		return vm.toNumber(recv)
	})

	vm.AddMethod(c, "encode", -1, func(vm *VM, args []Value) Value {
		vm.argRange("String.encode", args, 0, 1)
		s := args[0].AsString().s
		if name, ok := optArg(args, 1); ok {
			if enc := vm.textEncoding(name); enc != nil {
				b, err := enc.NewEncoder().Bytes([]byte(s))
				if err != nil {
					vm.ThrowAt(ErrRange, name.debug, "cannot encode as %s: %v", name.AsString().s, err)
				}
				return vm.newBuffer(b)
			}
		}
		return vm.newBuffer([]byte(s))
	})

	vm.static1(c, "fromCodePoint", func(vm *VM, n Value) Value {
		return vm.NewString(string(vm.codePoint(n)))
	})

	vm.AddStatic(c, "join", 2, func(vm *VM, args []Value) Value {
		a := vm.expect(args[1], KindArray).AsArray()
		parts := make([]string, a.Len())
		for i, v := range a.items {
			parts[i] = vm.ToString(v)
		}
		return vm.NewString(strings.Join(parts, vm.stringArg(args[2])))
	})
}

// ---------------------------------------------------------------------------
// StringBuilder Primitives
// ---------------------------------------------------------------------------

func (vm *VM) builder(recv Value) *StringBuilder {
	b := vm.expect(recv, KindStringBuilder).AsStringBuilder()
	if b.converted {
		vm.ThrowAt(ErrType, recv.debug, "string builder has already been converted")
	}
	return b
}

func (vm *VM) registerStringBuilderPrimitives() {
	c := vm.builtins.stringBuilder

	c.Factory = func(vm *VM, args []Value) Value {
		b := &StringBuilder{}
		for _, v := range args[1:] {
			b.sb.WriteString(vm.ToString(v))
		}
		return vm.alloc(KindStringBuilder, b)
	}

	vm.AddMethod(c, "append", -1, func(vm *VM, args []Value) Value {
		b := vm.builder(args[0])
		for _, v := range args[1:] {
			b.sb.WriteString(vm.ToString(v))
		}
		return args[0]
	})

	vm.method1(c, "appendCodePoint", func(vm *VM, recv, n Value) Value {
		vm.builder(recv).sb.WriteRune(vm.codePoint(n))
		return recv
	})

	vm.method0(c, "length", func(vm *VM, recv Value) Value {
		return FromInt32(int32(utf8.RuneCountInString(vm.builder(recv).sb.String())))
	})

	vm.method0(c, "isConverted", func(_ *VM, recv Value) Value {
		return FromBool(recv.AsStringBuilder().converted)
	})

	// toString consumes the builder.
	vm.method0(c, "toString", func(vm *VM, recv Value) Value {
		b := vm.builder(recv)
		s := b.sb.String()
		b.sb.Reset()
		b.converted = true
		return vm.NewString(s)
	})
}
