package vm

import (
	"fmt"
	"runtime"
	"strings"
)

// ---------------------------------------------------------------------------
// Error kinds
// ---------------------------------------------------------------------------

// ErrorKind classifies runtime failures.
type ErrorKind uint8

const (
	ErrOOM ErrorKind = iota
	ErrSyntax
	ErrType
	ErrReference
	ErrRange
	ErrIO
	ErrAssert
	ErrArithmetic
)

var errorKindNames = [...]string{
	ErrOOM:        "OutOfMemoryError",
	ErrSyntax:     "SyntaxError",
	ErrType:       "TypeError",
	ErrReference:  "ReferenceError",
	ErrRange:      "RangeError",
	ErrIO:         "IOError",
	ErrAssert:     "AssertionError",
	ErrArithmetic: "ArithmeticError",
}

// String returns the name printed in front of error messages.
func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "Error"
}

// ---------------------------------------------------------------------------
// RuntimeError
// ---------------------------------------------------------------------------

// RuntimeError is the record carried by every error that unwinds to the
// trap. Line and Column are zero when no location was available.
type RuntimeError struct {
	Kind       ErrorKind
	Message    string
	File       string
	SourceLine string
	Line       int
	Column     int
}

// NewError creates an error record at loc, which may be nil.
func NewError(kind ErrorKind, loc *DebugLocation, format string, args ...any) *RuntimeError {
	e := &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if loc != nil {
		e.File = loc.File
		e.Line = loc.Line
		e.Column = loc.Column
		e.SourceLine = loc.SourceLine
	}
	return e
}

// Error implements the error interface with a single-line summary.
func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d, column %d%s)", e.Kind, e.Message, e.Line, e.Column, e.inFile())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuntimeError) inFile() string {
	if e.File == "" {
		return ""
	}
	return " in " + e.File
}

// Format renders the error with its source line and a caret under the
// failing column.
func (e *RuntimeError) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&sb, "\n    at line %d, column %d%s:", e.Line, e.Column, e.inFile())
		if e.SourceLine != "" {
			fmt.Fprintf(&sb, "\n    %s\n    %s^", e.SourceLine, strings.Repeat(" ", max(e.Column-1, 0)))
		}
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Raising errors
// ---------------------------------------------------------------------------

// Throw raises an error located at the current instruction.
func (vm *VM) Throw(kind ErrorKind, format string, args ...any) {
	panic(NewError(kind, vm.currentLocation(), format, args...))
}

// ThrowAt raises an error at an explicit location, falling back to the
// current instruction when loc is nil.
func (vm *VM) ThrowAt(kind ErrorKind, loc *DebugLocation, format string, args ...any) {
	if loc == nil {
		loc = vm.currentLocation()
	}
	panic(NewError(kind, loc, format, args...))
}

// throwOperands raises an error located at the right operand, else the
// left, else the current instruction.
func (vm *VM) throwOperands(kind ErrorKind, left, right Value, format string, args ...any) {
	loc := right.debug
	if loc == nil {
		loc = left.debug
	}
	vm.ThrowAt(kind, loc, format, args...)
}

// currentLocation returns the location of the instruction being executed,
// falling back to the last constant pushed.
func (vm *VM) currentLocation() *DebugLocation {
	if vm.fp > 0 {
		f := &vm.frames[vm.fp-1]
		if loc := f.fn.LocationAt(f.opIP); loc != nil {
			return loc
		}
	}
	return vm.currentDebug
}

// asRuntimeError converts a recovered panic value into an error record.
// Go runtime faults inside handlers are internal invariant violations.
func (vm *VM) asRuntimeError(r any) *RuntimeError {
	switch e := r.(type) {
	case *RuntimeError:
		return e
	case runtime.Error:
		return NewError(ErrAssert, vm.currentLocation(), "internal error: %v", e)
	case error:
		return NewError(ErrAssert, vm.currentLocation(), "%v", e)
	default:
		return NewError(ErrAssert, vm.currentLocation(), "%v", e)
	}
}
