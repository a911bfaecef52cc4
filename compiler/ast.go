package compiler

import "math/big"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Slate
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// IntLiteral represents an integer literal of any size.
type IntLiteral struct {
	At    Position
	Value *big.Int
}

// FloatLiteral represents a floating-point literal. Float32 is set for
// literals with an 'f' suffix.
type FloatLiteral struct {
	At      Position
	Value   float64
	Float32 bool
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	At    Position
	Value string
}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	At    Position
	Value bool
}

// NullLiteral represents null.
type NullLiteral struct {
	At Position
}

// UndefinedLiteral represents undefined.
type UndefinedLiteral struct {
	At Position
}

// Identifier references a variable.
type Identifier struct {
	At   Position
	Name string
}

// ArrayLiteral represents [a, b, ...].
type ArrayLiteral struct {
	At       Position
	Elements []Expr
}

// ObjectLiteral represents {k: v, ...}. Keys keep source order.
type ObjectLiteral struct {
	At     Position
	Keys   []string
	Values []Expr
}

// FunctionLiteral is a named or anonymous function, or an arrow function.
// Arrow functions with an expression body set Result instead of Body.
type FunctionLiteral struct {
	At     Position
	Name   string
	Params []string
	Body   []Stmt
	Result Expr
}

// Unary represents a prefix operator: - ! ~.
type Unary struct {
	At      Position
	Op      TokenType
	Operand Expr
}

// Binary represents an arithmetic, comparison or bitwise operator.
type Binary struct {
	At    Position // operator position
	Op    TokenType
	Left  Expr
	Right Expr
}

// Logical represents && and ||, which short-circuit to an operand value.
type Logical struct {
	At    Position
	Op    TokenType
	Left  Expr
	Right Expr
}

// Ternary represents cond ? then : else.
type Ternary struct {
	At   Position
	Cond Expr
	Then Expr
	Else Expr
}

// Assign represents target = value and the compound forms. Op is
// TokenAssign for plain assignment.
type Assign struct {
	At     Position
	Op     TokenType
	Target Expr
	Value  Expr
}

// Update represents ++ and -- in prefix or postfix position.
type Update struct {
	At     Position
	Op     TokenType
	Prefix bool
	Target Expr
}

// Call represents callee(args...).
type Call struct {
	At     Position // position of '('
	Callee Expr
	Args   []Expr
}

// Member represents object.name.
type Member struct {
	At     Position // position of the name
	Object Expr
	Name   string
}

// Index represents object[index].
type Index struct {
	At     Position
	Object Expr
	Index  Expr
}

// RangeExpr represents start..end, start..<end and an optional step.
type RangeExpr struct {
	At        Position
	Start     Expr
	End       Expr
	Step      Expr // nil for the default step
	Exclusive bool
}

func (n *IntLiteral) Pos() Position       { return n.At }
func (n *FloatLiteral) Pos() Position     { return n.At }
func (n *StringLiteral) Pos() Position    { return n.At }
func (n *BoolLiteral) Pos() Position      { return n.At }
func (n *NullLiteral) Pos() Position      { return n.At }
func (n *UndefinedLiteral) Pos() Position { return n.At }
func (n *Identifier) Pos() Position       { return n.At }
func (n *ArrayLiteral) Pos() Position     { return n.At }
func (n *ObjectLiteral) Pos() Position    { return n.At }
func (n *FunctionLiteral) Pos() Position  { return n.At }
func (n *Unary) Pos() Position            { return n.At }
func (n *Binary) Pos() Position           { return n.At }
func (n *Logical) Pos() Position          { return n.At }
func (n *Ternary) Pos() Position          { return n.At }
func (n *Assign) Pos() Position           { return n.At }
func (n *Update) Pos() Position           { return n.At }
func (n *Call) Pos() Position             { return n.At }
func (n *Member) Pos() Position           { return n.At }
func (n *Index) Pos() Position            { return n.At }
func (n *RangeExpr) Pos() Position        { return n.At }

func (*IntLiteral) node()       {}
func (*FloatLiteral) node()     {}
func (*StringLiteral) node()    {}
func (*BoolLiteral) node()      {}
func (*NullLiteral) node()      {}
func (*UndefinedLiteral) node() {}
func (*Identifier) node()       {}
func (*ArrayLiteral) node()     {}
func (*ObjectLiteral) node()    {}
func (*FunctionLiteral) node()  {}
func (*Unary) node()            {}
func (*Binary) node()           {}
func (*Logical) node()          {}
func (*Ternary) node()          {}
func (*Assign) node()           {}
func (*Update) node()           {}
func (*Call) node()             {}
func (*Member) node()           {}
func (*Index) node()            {}
func (*RangeExpr) node()        {}

func (*IntLiteral) expr()       {}
func (*FloatLiteral) expr()     {}
func (*StringLiteral) expr()    {}
func (*BoolLiteral) expr()      {}
func (*NullLiteral) expr()      {}
func (*UndefinedLiteral) expr() {}
func (*Identifier) expr()       {}
func (*ArrayLiteral) expr()     {}
func (*ObjectLiteral) expr()    {}
func (*FunctionLiteral) expr()  {}
func (*Unary) expr()            {}
func (*Binary) expr()           {}
func (*Logical) expr()          {}
func (*Ternary) expr()          {}
func (*Assign) expr()           {}
func (*Update) expr()           {}
func (*Call) expr()             {}
func (*Member) expr()           {}
func (*Index) expr()            {}
func (*RangeExpr) expr()        {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// VarDecl declares a variable with var (mutable) or val (immutable).
type VarDecl struct {
	At        Position
	Name      string
	Immutable bool
	Value     Expr // nil declares null
}

// FunctionDecl declares a named function.
type FunctionDecl struct {
	At       Position
	Function *FunctionLiteral
}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	At   Position
	Expr Expr
}

// Block groups statements in a nested scope.
type Block struct {
	At    Position
	Stmts []Stmt
}

// If represents if (cond) then [else otherwise].
type If struct {
	At   Position
	Cond Expr
	Then Stmt
	Else Stmt // may be nil
}

// While represents while (cond) body.
type While struct {
	At   Position
	Cond Expr
	Body Stmt
}

// ForIn represents for (name in iterable) body.
type ForIn struct {
	At       Position
	Name     string
	Iterable Expr
	Body     Stmt
}

// Break exits the innermost loop.
type Break struct {
	At Position
}

// Continue jumps to the next iteration of the innermost loop.
type Continue struct {
	At Position
}

// Return exits the current function.
type Return struct {
	At    Position
	Value Expr // may be nil
}

// ImportName is one entry of a specific import.
type ImportName struct {
	Name  string
	Alias string
}

// Import represents the three import forms. Exactly one of Wildcard,
// Names or Alias describes the form; Alias is set for namespace imports.
type Import struct {
	At       Position
	Path     string
	Wildcard bool
	Names    []ImportName
	Alias    string
}

func (n *VarDecl) Pos() Position      { return n.At }
func (n *FunctionDecl) Pos() Position { return n.At }
func (n *ExprStmt) Pos() Position     { return n.At }
func (n *Block) Pos() Position        { return n.At }
func (n *If) Pos() Position           { return n.At }
func (n *While) Pos() Position        { return n.At }
func (n *ForIn) Pos() Position        { return n.At }
func (n *Break) Pos() Position        { return n.At }
func (n *Continue) Pos() Position     { return n.At }
func (n *Return) Pos() Position       { return n.At }
func (n *Import) Pos() Position       { return n.At }

func (*VarDecl) node()      {}
func (*FunctionDecl) node() {}
func (*ExprStmt) node()     {}
func (*Block) node()        {}
func (*If) node()           {}
func (*While) node()        {}
func (*ForIn) node()        {}
func (*Break) node()        {}
func (*Continue) node()     {}
func (*Return) node()       {}
func (*Import) node()       {}

func (*VarDecl) stmt()      {}
func (*FunctionDecl) stmt() {}
func (*ExprStmt) stmt()     {}
func (*Block) stmt()        {}
func (*If) stmt()           {}
func (*While) stmt()        {}
func (*ForIn) stmt()        {}
func (*Break) stmt()        {}
func (*Continue) stmt()     {}
func (*Return) stmt()       {}
func (*Import) stmt()       {}

// Program is a parsed source file.
type Program struct {
	Stmts []Stmt
}
