package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction disassembles a single instruction at the reader's
// position. Constant operands are resolved against fn when it is non-nil.
func DisassembleInstruction(r *BytecodeReader, fn *Function) string {
	pos := r.Position()
	op := r.ReadOpcode()
	info := op.Info()

	constant := func(idx uint16) string {
		if fn == nil || int(idx) >= len(fn.Constants) {
			return fmt.Sprintf("#%d", idx)
		}
		return fmt.Sprintf("#%d %s", idx, fn.Constants[idx])
	}

	switch op {
	case OpPushConstant, OpGetGlobal, OpSetGlobal, OpClosure:
		idx := r.ReadUint16()
		return fmt.Sprintf("%04d  %-20s %s", pos, info.Name, constant(idx))

	case OpDefineGlobal:
		idx := r.ReadUint16()
		immut := r.ReadByte()
		return fmt.Sprintf("%04d  %-20s %s immutable=%t", pos, info.Name, constant(idx), immut != 0)

	case OpPopN, OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		n := r.ReadByte()
		return fmt.Sprintf("%04d  %-20s %d", pos, info.Name, n)

	case OpPopNPreserveTop, OpBuildArray, OpBuildObject, OpBuildRange:
		n := r.ReadUint16()
		return fmt.Sprintf("%04d  %-20s %d", pos, info.Name, n)

	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		offset := r.ReadInt16()
		target := r.Position() + int(offset)
		return fmt.Sprintf("%04d  %-20s %d (-> %04d)", pos, info.Name, offset, target)

	case OpImportModule:
		path := r.ReadUint16()
		flags := r.ReadByte()
		var sb strings.Builder
		fmt.Fprintf(&sb, "%04d  %-20s %s", pos, info.Name, constant(path))
		switch flags {
		case ImportWildcard:
			sb.WriteString(" .*")
		case ImportNamespace:
			fmt.Fprintf(&sb, " as %s", constant(r.ReadUint16()))
		default:
			for i := 0; i < int(flags); i++ {
				name := r.ReadUint16()
				alias := r.ReadUint16()
				fmt.Fprintf(&sb, " {%s as %s}", constant(name), constant(alias))
			}
		}
		return sb.String()

	default:
		for i := 0; i < max(info.OperandBytes, 0); i++ {
			r.ReadByte()
		}
		return fmt.Sprintf("%04d  %s", pos, info.Name)
	}
}

// Disassemble returns a full disassembly of bytecode.
func Disassemble(bc []byte) string {
	return disassembleCode(bc, nil)
}

func disassembleCode(bc []byte, fn *Function) string {
	r := NewBytecodeReader(bc)
	var lines []string
	for r.HasMore() {
		lines = append(lines, DisassembleInstruction(r, fn))
	}
	return strings.Join(lines, "\n")
}

// Disassemble renders the function, its constant pool, capture layout and
// line table, followed by every nested function constant.
func (f *Function) Disassemble() string {
	var sb strings.Builder
	f.disassembleInto(&sb)
	return sb.String()
}

func (f *Function) disassembleInto(sb *strings.Builder) {
	fmt.Fprintf(sb, "== %s (%d params, %d locals) ==\n", f.DisplayName(), len(f.Params), f.LocalCount)
	sb.WriteString(disassembleCode(f.Code, f))
	sb.WriteString("\n")

	if len(f.Constants) > 0 {
		sb.WriteString("-- constants --\n")
		for i, c := range f.Constants {
			fmt.Fprintf(sb, "%4d  %s\n", i, c)
		}
	}
	if len(f.Upvalues) > 0 {
		sb.WriteString("-- upvalues --\n")
		for i, u := range f.Upvalues {
			where := "upvalue"
			if u.IsLocal {
				where = "local"
			}
			fmt.Fprintf(sb, "%4d  %s %d %s\n", i, where, u.Index, u.Name)
		}
	}
	if len(f.Debug) > 0 {
		sb.WriteString("-- lines --\n")
		for _, e := range f.Debug {
			fmt.Fprintf(sb, "%04d  %s\n", e.Offset, e.Location)
		}
	}
	for _, c := range f.Constants {
		if nested := c.AsFunction(); nested != nil {
			sb.WriteString("\n")
			nested.disassembleInto(sb)
		}
	}
}
