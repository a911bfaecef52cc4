package compiler

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/slate/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

const (
	maxSlots     = 256
	maxConstants = math.MaxUint16 + 1
	maxArgs      = math.MaxUint8
	maxSpecific  = int(vm.ImportNamespace) - 1
)

// local is a frame slot bound to a name.
type local struct {
	name      string
	slot      int
	depth     int
	immutable bool
}

type loop struct {
	start  int   // continue target
	breaks []int // jump operands patched to the loop exit
}

// funcState is the compilation state of one function.
type funcState struct {
	parent    *funcState
	b         *vm.FunctionBuilder
	locals    []local
	depth     int
	nextSlot  int
	scopes    []int  // nextSlot at each open scope
	immutable []bool // per upvalue
	loops     []*loop
	script    bool // top level of a source file
}

// Compiler compiles a parsed program to a vm.Function.
type Compiler struct {
	path  string
	lines []string
	fs    *funcState
	locs  map[[2]int]*vm.DebugLocation
}

// NewCompiler creates a compiler for source read from path.
func NewCompiler(source, path string) *Compiler {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return &Compiler{path: path, lines: lines, locs: make(map[[2]int]*vm.DebugLocation)}
}

// failAt aborts compilation with an error at pos.
func (c *Compiler) failAt(pos Position, format string, args ...any) {
	panic(&Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// location returns the shared debug location for pos.
func (c *Compiler) location(pos Position) *vm.DebugLocation {
	if pos.Line == 0 {
		return nil
	}
	key := [2]int{pos.Line, pos.Column}
	if loc, ok := c.locs[key]; ok {
		return loc
	}
	loc := &vm.DebugLocation{File: c.path, Line: pos.Line, Column: pos.Column}
	if pos.Line <= len(c.lines) {
		loc.SourceLine = c.lines[pos.Line-1]
	}
	c.locs[key] = loc
	return loc
}

func (c *Compiler) at(pos Position) {
	c.fs.b.SetLocation(c.location(pos))
}

// CompileProgram compiles prog as a top-level function. When the last
// statement is an expression its value is returned.
func (c *Compiler) CompileProgram(prog *Program) (fn *vm.Function, err error) {
	defer func() {
		if r := recover(); r != nil {
			cerr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			fn, err = nil, cerr
		}
	}()
	c.fs = &funcState{b: vm.NewFunctionBuilder("<script>", c.path, nil), script: true}
	stmts := prog.Stmts
	var result Expr
	if n := len(stmts); n > 0 {
		if es, ok := stmts[n-1].(*ExprStmt); ok {
			result = es.Expr
			stmts = stmts[:n-1]
		}
	}
	for _, s := range stmts {
		c.compileStmt(s)
	}
	if result != nil {
		c.compileExpr(result)
		c.fs.b.Emit(vm.OpReturn)
	} else {
		c.emitNullReturn()
	}
	return c.fs.b.Build(), nil
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (c *Compiler) constant(v vm.Value, pos Position) uint16 {
	idx := c.fs.b.AddConstant(v)
	if idx >= maxConstants {
		c.failAt(pos, "too many constants in one function")
	}
	return uint16(idx)
}

func (c *Compiler) emitConstant(v vm.Value, pos Position) {
	c.fs.b.EmitUint16(vm.OpPushConstant, c.constant(v, pos))
}

func (c *Compiler) nameConstant(name string, pos Position) uint16 {
	return c.constant(vm.FromString(name), pos)
}

func (c *Compiler) emitNullReturn() {
	c.fs.b.EmitUint16(vm.OpPushConstant, c.constant(vm.Null, Position{}))
	c.fs.b.Emit(vm.OpReturn)
}

func (c *Compiler) emitJump(op vm.Opcode) int {
	return c.fs.b.EmitJump(op)
}

func (c *Compiler) patchJump(pos int, at Position) {
	if err := c.fs.b.PatchJump(pos); err != nil {
		c.failAt(at, "%v", err)
	}
}

func (c *Compiler) emitLoop(target int, at Position) {
	if err := c.fs.b.EmitLoop(target); err != nil {
		c.failAt(at, "%v", err)
	}
}

// ---------------------------------------------------------------------------
// Scopes and variables
// ---------------------------------------------------------------------------

func (c *Compiler) globalScope() bool {
	return c.fs.script && c.fs.depth == 0
}

func (c *Compiler) beginScope() {
	c.fs.depth++
	c.fs.scopes = append(c.fs.scopes, c.fs.nextSlot)
}

func (c *Compiler) endScope() {
	fs := c.fs
	fs.depth--
	n := len(fs.locals)
	for n > 0 && fs.locals[n-1].depth > fs.depth {
		n--
	}
	fs.locals = fs.locals[:n]
	fs.nextSlot = fs.scopes[len(fs.scopes)-1]
	fs.scopes = fs.scopes[:len(fs.scopes)-1]
}

// allocSlot reserves a frame slot that stays taken until the scope ends.
func (c *Compiler) allocSlot(pos Position) int {
	fs := c.fs
	if fs.nextSlot >= maxSlots {
		c.failAt(pos, "too many local variables in one function")
	}
	slot := fs.nextSlot
	fs.nextSlot++
	fs.b.ReserveLocal(slot)
	return slot
}

// scratchSlot returns a slot free for use within a single expression.
func (c *Compiler) scratchSlot(pos Position) int {
	fs := c.fs
	if fs.nextSlot >= maxSlots {
		c.failAt(pos, "too many local variables in one function")
	}
	fs.b.ReserveLocal(fs.nextSlot)
	return fs.nextSlot
}

func (c *Compiler) declareLocal(name string, immutable bool, pos Position) int {
	fs := c.fs
	for i := len(fs.locals) - 1; i >= 0 && fs.locals[i].depth == fs.depth; i-- {
		if fs.locals[i].name == name {
			c.failAt(pos, "'%s' is already declared in this scope", name)
		}
	}
	slot := c.allocSlot(pos)
	fs.locals = append(fs.locals, local{name: name, slot: slot, depth: fs.depth, immutable: immutable})
	return slot
}

func (fs *funcState) resolveLocal(name string) (local, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return fs.locals[i], true
		}
	}
	return local{}, false
}

// resolveUpvalue finds name in an enclosing function and threads a
// capture through every function in between.
func (c *Compiler) resolveUpvalue(fs *funcState, name string, pos Position) (int, bool) {
	if fs.parent == nil {
		return 0, false
	}
	if l, ok := fs.parent.resolveLocal(name); ok {
		return c.addUpvalue(fs, true, l.slot, name, l.immutable, pos), true
	}
	if idx, ok := c.resolveUpvalue(fs.parent, name, pos); ok {
		return c.addUpvalue(fs, false, idx, name, fs.parent.immutable[idx], pos), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(fs *funcState, isLocal bool, index int, name string, immutable bool, pos Position) int {
	for i, u := range fs.b.Upvalues() {
		if u.IsLocal == isLocal && int(u.Index) == index {
			return i
		}
	}
	if len(fs.b.Upvalues()) >= maxSlots {
		c.failAt(pos, "too many captured variables in one function")
	}
	fs.immutable = append(fs.immutable, immutable)
	return fs.b.AddUpvalue(vm.UpvalueDescriptor{IsLocal: isLocal, Index: uint8(index), Name: name})
}

func (c *Compiler) loadVariable(name string, pos Position) {
	c.at(pos)
	if l, ok := c.fs.resolveLocal(name); ok {
		c.fs.b.EmitByte(vm.OpGetLocal, byte(l.slot))
		return
	}
	if idx, ok := c.resolveUpvalue(c.fs, name, pos); ok {
		c.fs.b.EmitByte(vm.OpGetUpvalue, byte(idx))
		return
	}
	c.fs.b.EmitUint16(vm.OpGetGlobal, c.nameConstant(name, pos))
}

// storeVariable pops the top of the stack into name.
func (c *Compiler) storeVariable(name string, pos Position) {
	c.at(pos)
	if l, ok := c.fs.resolveLocal(name); ok {
		if l.immutable {
			c.failAt(pos, "cannot assign to immutable '%s'", name)
		}
		c.fs.b.EmitByte(vm.OpSetLocal, byte(l.slot))
		return
	}
	if idx, ok := c.resolveUpvalue(c.fs, name, pos); ok {
		if c.fs.immutable[idx] {
			c.failAt(pos, "cannot assign to immutable '%s'", name)
		}
		c.fs.b.EmitByte(vm.OpSetUpvalue, byte(idx))
		return
	}
	c.fs.b.EmitUint16(vm.OpSetGlobal, c.nameConstant(name, pos))
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Compiler) compileStmts(stmts []Stmt) {
	for _, s := range stmts {
		c.compileStmt(s)
	}
}

func (c *Compiler) compileStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *ExprStmt:
		c.compileExpr(s.Expr)
		c.fs.b.Emit(vm.OpPop)

	case *VarDecl:
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.at(s.At)
			c.emitConstant(vm.Null, s.At)
		}
		c.define(s.Name, s.Immutable, s.At)

	case *FunctionDecl:
		c.compileFunction(s.Function, !c.globalScope())
		c.define(s.Function.Name, false, s.At)

	case *Block:
		c.beginScope()
		c.compileStmts(s.Stmts)
		c.endScope()

	case *If:
		c.compileIf(s)

	case *While:
		c.compileWhile(s)

	case *ForIn:
		c.compileForIn(s)

	case *Break:
		lp := c.innermostLoop(s.At, "break")
		lp.breaks = append(lp.breaks, c.emitJump(vm.OpJump))

	case *Continue:
		lp := c.innermostLoop(s.At, "continue")
		c.emitLoop(lp.start, s.At)

	case *Return:
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.at(s.At)
			c.emitConstant(vm.Null, s.At)
		}
		c.fs.b.Emit(vm.OpReturn)

	case *Import:
		c.compileImport(s)

	default:
		c.failAt(stmt.Pos(), "unsupported statement %T", stmt)
	}
}

// define binds the value on top of the stack: a global at the top level
// of a script, else a frame local.
func (c *Compiler) define(name string, immutable bool, pos Position) {
	c.at(pos)
	if c.globalScope() {
		c.fs.b.EmitDefineGlobal(c.nameConstant(name, pos), immutable)
		return
	}
	slot := c.declareLocal(name, immutable, pos)
	c.fs.b.EmitByte(vm.OpSetLocal, byte(slot))
}

func (c *Compiler) innermostLoop(pos Position, what string) *loop {
	if len(c.fs.loops) == 0 {
		c.failAt(pos, "'%s' outside of a loop", what)
	}
	return c.fs.loops[len(c.fs.loops)-1]
}

func (c *Compiler) compileIf(s *If) {
	c.compileExpr(s.Cond)
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	c.compileBody(s.Then)
	if s.Else == nil {
		c.patchJump(elseJump, s.At)
		return
	}
	endJump := c.emitJump(vm.OpJump)
	c.patchJump(elseJump, s.At)
	c.compileBody(s.Else)
	c.patchJump(endJump, s.At)
}

// compileBody compiles a statement that forms its own scope.
func (c *Compiler) compileBody(s Stmt) {
	c.beginScope()
	if b, ok := s.(*Block); ok {
		c.compileStmts(b.Stmts)
	} else {
		c.compileStmt(s)
	}
	c.endScope()
}

func (c *Compiler) compileWhile(s *While) {
	lp := &loop{start: c.fs.b.Len()}
	c.compileExpr(s.Cond)
	exit := c.emitJump(vm.OpJumpIfFalse)
	c.fs.loops = append(c.fs.loops, lp)
	c.compileBody(s.Body)
	c.fs.loops = c.fs.loops[:len(c.fs.loops)-1]
	c.emitLoop(lp.start, s.At)
	c.patchJump(exit, s.At)
	for _, b := range lp.breaks {
		c.patchJump(b, s.At)
	}
}

// compileForIn lowers the loop to the iterator protocol:
//
//	it = iterable.iterator()
//	while (it.hasNext()) { name = it.next(); body }
func (c *Compiler) compileForIn(s *ForIn) {
	c.beginScope()
	c.compileExpr(s.Iterable)
	c.emitCallMethod("iterator", s.At)
	it := c.allocSlot(s.At)
	c.fs.b.EmitByte(vm.OpSetLocal, byte(it))

	lp := &loop{start: c.fs.b.Len()}
	c.fs.b.EmitByte(vm.OpGetLocal, byte(it))
	c.emitCallMethod("hasNext", s.At)
	exit := c.emitJump(vm.OpJumpIfFalse)
	c.fs.b.EmitByte(vm.OpGetLocal, byte(it))
	c.emitCallMethod("next", s.At)
	slot := c.declareLocal(s.Name, false, s.At)
	c.fs.b.EmitByte(vm.OpSetLocal, byte(slot))

	c.fs.loops = append(c.fs.loops, lp)
	c.compileBody(s.Body)
	c.fs.loops = c.fs.loops[:len(c.fs.loops)-1]
	c.emitLoop(lp.start, s.At)
	c.patchJump(exit, s.At)
	for _, b := range lp.breaks {
		c.patchJump(b, s.At)
	}
	c.endScope()
}

// emitCallMethod calls the zero-argument method name on the value on top
// of the stack.
func (c *Compiler) emitCallMethod(name string, pos Position) {
	c.at(pos)
	c.fs.b.EmitUint16(vm.OpPushConstant, c.nameConstant(name, pos))
	c.fs.b.Emit(vm.OpGetProperty)
	c.fs.b.EmitByte(vm.OpCall, 0)
}

func (c *Compiler) compileImport(s *Import) {
	c.at(s.At)
	b := c.fs.b
	b.EmitUint16(vm.OpImportModule, c.nameConstant(s.Path, s.At))
	switch {
	case s.Wildcard:
		b.EmitRaw(vm.ImportWildcard)
	case s.Names != nil:
		if len(s.Names) > maxSpecific {
			c.failAt(s.At, "too many names in one import")
		}
		b.EmitRaw(byte(len(s.Names)))
		for _, n := range s.Names {
			b.EmitRawUint16(c.nameConstant(n.Name, s.At))
			b.EmitRawUint16(c.nameConstant(n.Alias, s.At))
		}
	default:
		b.EmitRaw(vm.ImportNamespace)
		b.EmitRawUint16(c.nameConstant(s.Alias, s.At))
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var binaryOps = map[TokenType]vm.Opcode{
	TokenPlus:         vm.OpAdd,
	TokenMinus:        vm.OpSubtract,
	TokenStar:         vm.OpMultiply,
	TokenSlash:        vm.OpDivide,
	TokenSlashSlash:   vm.OpFloorDiv,
	TokenPercent:      vm.OpMod,
	TokenStarStar:     vm.OpPower,
	TokenEqual:        vm.OpEqual,
	TokenNotEqual:     vm.OpNotEqual,
	TokenLess:         vm.OpLess,
	TokenLessEqual:    vm.OpLessEqual,
	TokenGreater:      vm.OpGreater,
	TokenGreaterEqual: vm.OpGreaterEqual,
	TokenAmp:          vm.OpBitwiseAnd,
	TokenPipe:         vm.OpBitwiseOr,
	TokenCaret:        vm.OpBitwiseXor,
	TokenShiftLeft:    vm.OpLeftShift,
	TokenShiftRight:   vm.OpRightShift,
	TokenShiftRightU:  vm.OpLogicalRightShift,
	TokenQuestionQ:    vm.OpNullCoalesce,
	TokenIn:           vm.OpIn,
	TokenInstanceof:   vm.OpInstanceof,
}

var compoundOps = map[TokenType]vm.Opcode{
	TokenPlusAssign:  vm.OpAdd,
	TokenMinusAssign: vm.OpSubtract,
	TokenStarAssign:  vm.OpMultiply,
	TokenSlashAssign: vm.OpDivide,
}

func (c *Compiler) compileExpr(expr Expr) {
	c.at(expr.Pos())
	b := c.fs.b
	switch e := expr.(type) {
	case *IntLiteral:
		c.emitConstant(vm.FromBigInt(e.Value), e.At)
	case *FloatLiteral:
		if e.Float32 {
			c.emitConstant(vm.FromFloat32(float32(e.Value)), e.At)
		} else {
			c.emitConstant(vm.FromFloat64(e.Value), e.At)
		}
	case *StringLiteral:
		c.emitConstant(vm.FromString(e.Value), e.At)
	case *BoolLiteral:
		c.emitConstant(vm.FromBool(e.Value), e.At)
	case *NullLiteral:
		c.emitConstant(vm.Null, e.At)
	case *UndefinedLiteral:
		c.emitConstant(vm.Undefined, e.At)

	case *Identifier:
		c.loadVariable(e.Name, e.At)

	case *ArrayLiteral:
		if len(e.Elements) > math.MaxUint16 {
			c.failAt(e.At, "array literal too long")
		}
		for _, el := range e.Elements {
			c.compileExpr(el)
		}
		c.at(e.At)
		b.EmitUint16(vm.OpBuildArray, uint16(len(e.Elements)))

	case *ObjectLiteral:
		if len(e.Keys) > math.MaxUint16 {
			c.failAt(e.At, "object literal too long")
		}
		for i, k := range e.Keys {
			b.EmitUint16(vm.OpPushConstant, c.nameConstant(k, e.At))
			c.compileExpr(e.Values[i])
		}
		c.at(e.At)
		b.EmitUint16(vm.OpBuildObject, uint16(len(e.Keys)))

	case *FunctionLiteral:
		c.compileFunction(e, false)

	case *Unary:
		c.compileExpr(e.Operand)
		c.at(e.At)
		switch e.Op {
		case TokenMinus:
			b.Emit(vm.OpNegate)
		case TokenBang:
			b.Emit(vm.OpNot)
		case TokenTilde:
			b.Emit(vm.OpBitwiseNot)
		}

	case *Binary:
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.at(e.At)
		b.Emit(binaryOps[e.Op])

	case *Logical:
		c.compileLogical(e)

	case *Ternary:
		c.compileExpr(e.Cond)
		elseJump := c.emitJump(vm.OpJumpIfFalse)
		c.compileExpr(e.Then)
		endJump := c.emitJump(vm.OpJump)
		c.patchJump(elseJump, e.At)
		c.compileExpr(e.Else)
		c.patchJump(endJump, e.At)

	case *Assign:
		c.compileAssign(e)

	case *Update:
		c.compileUpdate(e)

	case *Call:
		if len(e.Args) > maxArgs {
			c.failAt(e.At, "too many arguments in call")
		}
		c.compileExpr(e.Callee)
		for _, a := range e.Args {
			c.compileExpr(a)
		}
		c.at(e.At)
		b.EmitByte(vm.OpCall, byte(len(e.Args)))

	case *Member:
		c.compileExpr(e.Object)
		c.at(e.At)
		b.EmitUint16(vm.OpPushConstant, c.nameConstant(e.Name, e.At))
		b.Emit(vm.OpGetProperty)

	case *Index:
		c.compileExpr(e.Object)
		c.compileExpr(e.Index)
		c.at(e.At)
		b.Emit(vm.OpGetIndex)

	case *RangeExpr:
		c.compileExpr(e.Start)
		c.compileExpr(e.End)
		if e.Step != nil {
			c.compileExpr(e.Step)
		} else {
			c.emitConstant(vm.Null, e.At)
		}
		c.at(e.At)
		var flag uint16
		if e.Exclusive {
			flag = 1
		}
		b.EmitUint16(vm.OpBuildRange, flag)

	default:
		c.failAt(expr.Pos(), "unsupported expression %T", expr)
	}
}

// compileLogical leaves the deciding operand as the result:
//
//	left; DUP; JUMP_IF_FALSE/TRUE end; POP; right; end:
func (c *Compiler) compileLogical(e *Logical) {
	c.compileExpr(e.Left)
	c.at(e.At)
	c.fs.b.Emit(vm.OpDup)
	op := vm.OpJumpIfFalse
	if e.Op == TokenOrOr {
		op = vm.OpJumpIfTrue
	}
	end := c.emitJump(op)
	c.fs.b.Emit(vm.OpPop)
	c.compileExpr(e.Right)
	c.patchJump(end, e.At)
}

// compileAssign leaves the assigned value on the stack.
func (c *Compiler) compileAssign(e *Assign) {
	b := c.fs.b
	op, compound := compoundOps[e.Op]
	switch t := e.Target.(type) {
	case *Identifier:
		if compound {
			c.loadVariable(t.Name, t.At)
			c.compileExpr(e.Value)
			c.at(e.At)
			b.Emit(op)
		} else {
			c.compileExpr(e.Value)
		}
		b.Emit(vm.OpDup)
		c.storeVariable(t.Name, t.At)

	case *Member, *Index:
		get, set := c.compileReference(e.Target)
		if compound {
			b.Emit(vm.OpOver)
			b.Emit(vm.OpOver)
			b.Emit(get)
			c.compileExpr(e.Value)
			c.at(e.At)
			b.Emit(op)
		} else {
			c.compileExpr(e.Value)
		}
		c.at(e.At)
		b.Emit(set)

	default:
		c.failAt(e.At, "invalid assignment target")
	}
}

// compileReference pushes the container and key of a member or index
// target and returns the matching get and set opcodes.
func (c *Compiler) compileReference(target Expr) (get, set vm.Opcode) {
	switch t := target.(type) {
	case *Member:
		c.compileExpr(t.Object)
		c.fs.b.EmitUint16(vm.OpPushConstant, c.nameConstant(t.Name, t.At))
		return vm.OpGetProperty, vm.OpSetProperty
	case *Index:
		c.compileExpr(t.Object)
		c.compileExpr(t.Index)
		return vm.OpGetIndex, vm.OpSetIndex
	}
	c.failAt(target.Pos(), "invalid assignment target")
	return 0, 0
}

// compileUpdate implements ++ and --. Prefix forms yield the new value,
// postfix forms the old one.
func (c *Compiler) compileUpdate(e *Update) {
	b := c.fs.b
	step := vm.OpIncrement
	if e.Op == TokenMinusMinus {
		step = vm.OpDecrement
	}
	if id, ok := e.Target.(*Identifier); ok {
		c.loadVariable(id.Name, id.At)
		c.at(e.At)
		if e.Prefix {
			b.Emit(step)
			b.Emit(vm.OpDup)
		} else {
			b.Emit(vm.OpDup)
			b.Emit(step)
		}
		c.storeVariable(id.Name, id.At)
		return
	}

	get, set := c.compileReference(e.Target)
	b.Emit(vm.OpOver)
	b.Emit(vm.OpOver)
	b.Emit(get)
	c.at(e.At)
	if e.Prefix {
		b.Emit(step)
		b.Emit(set)
		return
	}
	// Keep the old value in a scratch slot while the new one is stored.
	tmp := c.scratchSlot(e.At)
	b.Emit(vm.OpDup)
	b.EmitByte(vm.OpSetLocal, byte(tmp))
	b.Emit(step)
	b.Emit(set)
	b.Emit(vm.OpPop)
	b.EmitByte(vm.OpGetLocal, byte(tmp))
}

// compileFunction compiles fn as a nested function and emits CLOSURE. With
// self set, fn's name is bound inside its body to the running closure, so a
// function declared in a local scope can call itself.
func (c *Compiler) compileFunction(fn *FunctionLiteral, self bool) {
	if len(fn.Params) > maxArgs {
		c.failAt(fn.At, "too many parameters")
	}
	fs := &funcState{
		parent:   c.fs,
		b:        vm.NewFunctionBuilder(fn.Name, c.path, fn.Params),
		nextSlot: len(fn.Params),
	}
	for i, p := range fn.Params {
		fs.locals = append(fs.locals, local{name: p, slot: i})
	}

	c.fs = fs
	c.at(fn.At)
	if self && fn.Name != "" {
		if _, shadowed := fs.resolveLocal(fn.Name); !shadowed {
			// Outside the body scope so the body may redeclare the name.
			slot := c.allocSlot(fn.At)
			fs.locals = append(fs.locals, local{name: fn.Name, slot: slot, depth: -1, immutable: true})
			fs.b.Emit(vm.OpGetCallee)
			fs.b.EmitByte(vm.OpSetLocal, byte(slot))
		}
	}
	if fn.Result != nil {
		c.compileExpr(fn.Result)
		fs.b.Emit(vm.OpReturn)
	} else {
		c.compileStmts(fn.Body)
		c.emitNullReturn()
	}
	c.fs = fs.parent

	compiled := fs.b.Build()
	c.at(fn.At)
	c.fs.b.EmitUint16(vm.OpClosure, c.constant(vm.FromFunction(compiled), fn.At))
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Compile parses and compiles source read from path. Errors are
// *vm.RuntimeError records of kind SYNTAX.
func Compile(source, path string) (*vm.Function, error) {
	c := NewCompiler(source, path)
	prog, err := NewParser(source).ParseProgram()
	if err != nil {
		return nil, c.syntaxError(err)
	}
	fn, err := c.CompileProgram(prog)
	if err != nil {
		return nil, c.syntaxError(err)
	}
	return fn, nil
}

func (c *Compiler) syntaxError(err error) error {
	var perr *Error
	if errors.As(err, &perr) {
		return vm.NewError(vm.ErrSyntax, c.location(perr.Pos), "%s", perr.Message)
	}
	return vm.NewError(vm.ErrSyntax, nil, "%v", err)
}
