package vm

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Execution contexts
// ---------------------------------------------------------------------------

// Context selects how uncaught errors are reported.
type Context uint8

const (
	// ContextScript prints the error and exits with a non-zero status.
	ContextScript Context = iota
	// ContextREPL prints the error and returns it; redeclaring globals
	// replaces them.
	ContextREPL
	// ContextTest returns the error without printing.
	ContextTest
)

// String returns the configuration name of the context.
func (c Context) String() string {
	switch c {
	case ContextREPL:
		return "repl"
	case ContextTest:
		return "test"
	}
	return "script"
}

// ParseContext parses "script", "repl" or "test".
func ParseContext(s string) (Context, error) {
	switch strings.ToLower(s) {
	case "", "script":
		return ContextScript, nil
	case "repl":
		return ContextREPL, nil
	case "test":
		return ContextTest, nil
	}
	return ContextScript, fmt.Errorf("unknown execution context %q", s)
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

const (
	DefaultStackSize  = 16384
	DefaultFrameDepth = 1024
)

// Config holds the limits and search paths a VM is created with.
type Config struct {
	StackSize   int
	FrameDepth  int
	Context     Context
	SearchPaths []string // extra module roots searched after the working directory
	LibraryRoot string   // searched last
	Stdout      io.Writer
	Stderr      io.Writer
}

// DefaultConfig returns the configuration used by NewVM.
func DefaultConfig() Config {
	return Config{
		StackSize:  DefaultStackSize,
		FrameDepth: DefaultFrameDepth,
		Context:    ContextScript,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// CompileFunc turns source text into a top-level function. path names the
// file the source came from and anchors relative imports.
type CompileFunc func(source, path string) (*Function, error)

// ---------------------------------------------------------------------------
// VM
// ---------------------------------------------------------------------------

// VM is a single-threaded Slate interpreter instance.
type VM struct {
	Context     Context
	Stdout      io.Writer
	Stderr      io.Writer
	SearchPaths []string
	LibraryRoot string

	// Exit is called with status 1 after an uncaught error in script
	// context. It defaults to os.Exit.
	Exit func(code int)

	// Builtins holds the classes and global natives visible from every
	// namespace. Globals is the namespace of the main script.
	Builtins *Namespace
	Globals  *Namespace

	heap     *Heap
	strings  *InternTable
	keys     wellKnownKeys
	compile  CompileFunc
	main     *Module
	modules  map[string]*Module
	classes  [kindCount]*Class
	builtins builtinClasses

	stack  []Value
	sp     int
	frames []CallFrame
	fp     int

	currentDebug *DebugLocation
	pinned       int
	interrupted  atomic.Bool
	lastResult   Value
	lastError    *RuntimeError
	visiting     map[visitKey]struct{}

	log commonlog.Logger
}

// CallFrame is the execution state of one closure invocation. Arguments
// occupy the first slots from base, followed by the remaining locals; the
// callee sits at base-1.
type CallFrame struct {
	closure *Closure
	fn      *Function
	module  *Module
	ip      int // next instruction; the caller's ip is the return address
	opIP    int // offset of the instruction being executed
	base    int
}

// NewVM creates a VM with the default configuration.
func NewVM() *VM {
	return NewVMWithConfig(DefaultConfig())
}

// NewVMWithConfig creates a VM with cfg, substituting defaults for zero
// fields.
func NewVMWithConfig(cfg Config) *VM {
	def := DefaultConfig()
	if cfg.StackSize <= 0 {
		cfg.StackSize = def.StackSize
	}
	if cfg.FrameDepth <= 0 {
		cfg.FrameDepth = def.FrameDepth
	}
	if cfg.Stdout == nil {
		cfg.Stdout = def.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = def.Stderr
	}

	vm := &VM{
		Context:     cfg.Context,
		Stdout:      cfg.Stdout,
		Stderr:      cfg.Stderr,
		SearchPaths: cfg.SearchPaths,
		LibraryRoot: cfg.LibraryRoot,
		Exit:        os.Exit,
		Builtins:    NewNamespace(),
		Globals:     NewNamespace(),
		heap:        NewHeap(),
		strings:     NewInternTable(),
		modules:     make(map[string]*Module),
		visiting:    make(map[visitKey]struct{}),
		stack:       make([]Value, cfg.StackSize),
		frames:      make([]CallFrame, cfg.FrameDepth),
		log:         commonlog.GetLogger("slate.vm"),
	}
	vm.main = &Module{Name: "<main>", Namespace: vm.Globals, State: ModuleLoaded}
	vm.keys = vm.internKeys()
	vm.bootstrap()
	return vm
}

// UseCompiler installs the front-end used by Eval and module loading.
func (vm *VM) UseCompiler(c CompileFunc) {
	vm.compile = c
}

// Heap returns the VM's heap accounting.
func (vm *VM) Heap() *Heap { return vm.heap }

// Intern returns the canonical string for s.
func (vm *VM) Intern(s string) *String { return vm.strings.Intern(s) }

// Interrupt asks the running program to stop at its next call or backward
// jump. It is safe to call from another goroutine.
func (vm *VM) Interrupt() { vm.interrupted.Store(true) }

// LastError returns the most recent uncaught error, or nil.
func (vm *VM) LastError() *RuntimeError { return vm.lastError }

// StackDepth returns the number of occupied operand-stack slots.
func (vm *VM) StackDepth() int { return vm.sp }

// FrameDepth returns the number of active call frames.
func (vm *VM) FrameDepth() int { return vm.fp }

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

func (vm *VM) alloc(k Kind, o heapObject) Value {
	vm.heap.track(o)
	return fromObject(k, o)
}

// NewString allocates a string value.
func (vm *VM) NewString(s string) Value {
	return vm.alloc(KindString, newString(s))
}

// NewArray allocates an array holding items.
func (vm *VM) NewArray(items ...Value) Value {
	return vm.alloc(KindArray, NewArray(items))
}

// NewObject allocates an empty object.
func (vm *VM) NewObject() Value {
	return vm.alloc(KindObject, NewObject())
}

// NewNative wraps fn as a callable value.
func (vm *VM) NewNative(name string, fn NativeFunc) Value {
	return vm.alloc(KindNative, &Native{Name: name, Fn: fn})
}

// NewClass allocates a class value.
func (vm *VM) NewClass(name string, parent *Class) *Class {
	c := NewClass(name, parent)
	vm.heap.track(c)
	return c
}

// Integer returns n as an int32 when it fits, else as a tracked bigint.
func (vm *VM) Integer(n *big.Int) Value {
	if n.IsInt64() {
		return vm.Int64(n.Int64())
	}
	return vm.alloc(KindBigInt, &BigInt{n: n})
}

// Int64 returns n as an int32 when it fits, else as a tracked bigint.
func (vm *VM) Int64(n int64) Value {
	if n >= -1<<31 && n <= 1<<31-1 {
		return FromInt32(int32(n))
	}
	return vm.alloc(KindBigInt, &BigInt{n: big.NewInt(n)})
}

func (vm *VM) newClosure(fn *Function, upvalues []Value, module *Module) Value {
	fnValue(fn).Retain()
	return vm.alloc(KindClosure, &Closure{Function: fn, Upvalues: upvalues, Module: module})
}

func (vm *VM) newBoundMethod(receiver, method Value) Value {
	receiver.Retain()
	method.Retain()
	return vm.alloc(KindBoundMethod, &BoundMethod{Receiver: receiver, Method: method})
}

// ClassOf returns the class that dispatches property lookups on v.
func (vm *VM) ClassOf(v Value) *Class {
	if v.class != nil {
		return v.class
	}
	return vm.classes[v.kind]
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Run executes fn as a top-level program of the main script and returns
// the value it returns. Uncaught errors are reported according to the
// VM's context and returned as *RuntimeError.
func (vm *VM) Run(fn *Function) (Value, error) {
	return vm.protect(func() Value {
		depth := vm.fp
		vm.push(vm.newClosure(fn, nil, vm.main))
		vm.callClosure(vm.stack[vm.sp-1].AsClosure(), 0)
		return vm.run(depth)
	})
}

// Compile runs the installed compiler on source.
func (vm *VM) Compile(source, path string) (*Function, error) {
	if vm.compile == nil {
		return nil, NewError(ErrAssert, nil, "no compiler installed")
	}
	return vm.compile(source, path)
}

// Eval compiles and runs source in the main script namespace.
func (vm *VM) Eval(source, path string) (Value, error) {
	fn, err := vm.Compile(source, path)
	if err != nil {
		var rerr *RuntimeError
		if !errors.As(err, &rerr) {
			rerr = NewError(ErrSyntax, nil, "%v", err)
		}
		vm.lastError = rerr
		return Undefined, vm.report(rerr)
	}
	return vm.Run(fn)
}

// CallFunction invokes a callable value from Go under the trap.
func (vm *VM) CallFunction(callee Value, args ...Value) (Value, error) {
	return vm.protect(func() Value {
		return vm.Call(callee, args...)
	})
}

// Display renders v as Repr does, under the trap.
func (vm *VM) Display(v Value) (string, error) {
	var s string
	_, err := vm.protect(func() Value {
		s = vm.Repr(v)
		return v
	})
	return s, err
}

// Call invokes callee from inside a native. Errors propagate to the
// enclosing trap.
func (vm *VM) Call(callee Value, args ...Value) Value {
	vm.pinned++
	defer func() { vm.pinned-- }()

	depth := vm.fp
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if vm.invoke(len(args)) {
		return vm.run(depth)
	}
	return vm.pop()
}

// protect runs body under the trap. On error the operand and frame stacks
// are truncated to their depths at entry.
func (vm *VM) protect(body func() Value) (result Value, err error) {
	sp, fp, pinned := vm.sp, vm.fp, vm.pinned
	defer func() {
		if r := recover(); r != nil {
			rerr := vm.asRuntimeError(r)
			vm.truncate(sp)
			clear(vm.frames[fp:])
			vm.fp = fp
			vm.pinned = pinned
			clear(vm.visiting)
			vm.lastError = rerr
			result = Undefined
			err = vm.report(rerr)
		}
	}()
	result = body()
	vm.lastResult = result
	return result, nil
}

// report prints rerr as the context requires and returns it.
func (vm *VM) report(rerr *RuntimeError) error {
	switch vm.Context {
	case ContextREPL:
		fmt.Fprintln(vm.Stderr, rerr.Format())
	case ContextScript:
		vm.log.Errorf("uncaught %s", rerr.Error())
		fmt.Fprintln(vm.Stderr, rerr.Format())
		vm.Exit(1)
	}
	return rerr
}

// ---------------------------------------------------------------------------
// Garbage collection at safe points
// ---------------------------------------------------------------------------

// Collect sweeps the zero-count table using the operand stack and the last
// result as roots. It does nothing while a native is active.
func (vm *VM) Collect() int {
	if vm.pinned > 0 {
		return 0
	}
	roots := make([]Value, 0, vm.sp+1)
	roots = append(roots, vm.stack[:vm.sp]...)
	roots = append(roots, vm.lastResult)
	return vm.heap.Sweep(roots)
}

func (vm *VM) maybeCollect() {
	if vm.pinned == 0 && vm.heap.Pending() >= sweepThreshold {
		vm.Collect()
	}
}
