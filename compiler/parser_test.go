package compiler

import (
	"strings"
	"testing"
)

func parseProgram(t *testing.T, input string) *Program {
	t.Helper()
	prog, err := NewParser(input).ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return prog
}

func parseExpr(t *testing.T, input string) Expr {
	t.Helper()
	expr, err := NewParser(input).ParseExpression()
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return expr
}

// shape renders an expression with explicit grouping for precedence tests.
func shape(e Expr) string {
	switch n := e.(type) {
	case *IntLiteral:
		return n.Value.String()
	case *Identifier:
		return n.Name
	case *StringLiteral:
		return "'" + n.Value + "'"
	case *Unary:
		return "(" + n.Op.String() + shape(n.Operand) + ")"
	case *Binary:
		return "(" + shape(n.Left) + " " + n.Op.String() + " " + shape(n.Right) + ")"
	case *Logical:
		return "(" + shape(n.Left) + " " + n.Op.String() + " " + shape(n.Right) + ")"
	case *Ternary:
		return "(" + shape(n.Cond) + " ? " + shape(n.Then) + " : " + shape(n.Else) + ")"
	case *Assign:
		return "(" + shape(n.Target) + " " + n.Op.String() + " " + shape(n.Value) + ")"
	case *Update:
		if n.Prefix {
			return "(" + n.Op.String() + shape(n.Target) + ")"
		}
		return "(" + shape(n.Target) + n.Op.String() + ")"
	case *Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = shape(a)
		}
		return shape(n.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *Member:
		return shape(n.Object) + "." + n.Name
	case *Index:
		return shape(n.Object) + "[" + shape(n.Index) + "]"
	case *RangeExpr:
		op := ".."
		if n.Exclusive {
			op = "..<"
		}
		s := "(" + shape(n.Start) + op + shape(n.End)
		if n.Step != nil {
			s += " step " + shape(n.Step)
		}
		return s + ")"
	case *FunctionLiteral:
		if n.Result != nil {
			return "(" + strings.Join(n.Params, ", ") + ") => " + shape(n.Result)
		}
		return "function(" + strings.Join(n.Params, ", ") + ")"
	case *ArrayLiteral:
		elems := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = shape(el)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	}
	return "?"
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"-2 ** 2", "(-(2 ** 2))"},
		{"2 ** -1", "(2 ** (-1))"},
		{"a || b && c", "(a || (b && c))"},
		{"a ?? b || c", "(a ?? (b || c))"},
		{"a == b < c", "(a == (b < c))"},
		{"a & b | c ^ d", "((a & b) | (c ^ d))"},
		{"1 << 2 + 3", "(1 << (2 + 3))"},
		{"x in xs", "(x in xs)"},
		{"a = b = c", "(a = (b = c))"},
		{"a += 1", "(a += 1)"},
		{"c ? a : b", "(c ? a : b)"},
		{"!a.b(c)[d]", "(!a.b(c)[d])"},
		{"x++ + --y", "((x++) + (--y))"},
		{"1..10 step 2", "(1..10 step 2)"},
		{"0..<n + 1", "(0..<(n + 1))"},
		{"a.b.c = 3", "(a.b.c = 3)"},
		{"f(1, 2)(3)", "f(1, 2)(3)"},
		{"(x) => x * 2", "(x) => (x * 2)"},
		{"x => y => x + y", "(x) => (y) => (x + y)"},
		{"() => 0", "() => 0"},
		{"[1, [2, 3]]", "[1, [2, 3]]"},
	}

	for _, tt := range tests {
		got := shape(parseExpr(t, tt.input))
		if got != tt.want {
			t.Errorf("parse(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseStatements(t *testing.T) {
	prog := parseProgram(t, `
var x = 1
val y = 2; x = y
function add(a, b) { return a + b }
if (x > 1) x = 0 else { x = 1 }
while (x < 10) x++
for (i in 1..3) { continue }
{ var scoped = true }
`)
	want := []string{"*compiler.VarDecl", "*compiler.VarDecl", "*compiler.ExprStmt",
		"*compiler.FunctionDecl", "*compiler.If", "*compiler.While", "*compiler.ForIn", "*compiler.Block"}
	if len(prog.Stmts) != len(want) {
		t.Fatalf("got %d statements, want %d", len(prog.Stmts), len(want))
	}
	for i, s := range prog.Stmts {
		if got := typeName(s); got != want[i] {
			t.Errorf("stmt[%d] = %s, want %s", i, got, want[i])
		}
	}

	val := prog.Stmts[1].(*VarDecl)
	if !val.Immutable || val.Name != "y" {
		t.Errorf("val decl = %+v, want immutable y", val)
	}
	fn := prog.Stmts[3].(*FunctionDecl).Function
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Errorf("function = %s%v, want add[a b]", fn.Name, fn.Params)
	}
	if s := prog.Stmts[4].(*If); s.Else == nil {
		t.Error("if statement lost its else branch")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *VarDecl:
		return "*compiler.VarDecl"
	case *ExprStmt:
		return "*compiler.ExprStmt"
	case *FunctionDecl:
		return "*compiler.FunctionDecl"
	case *If:
		return "*compiler.If"
	case *While:
		return "*compiler.While"
	case *ForIn:
		return "*compiler.ForIn"
	case *Block:
		return "*compiler.Block"
	case *Import:
		return "*compiler.Import"
	}
	return "?"
}

func TestParseImports(t *testing.T) {
	tests := []struct {
		input    string
		path     string
		alias    string
		wildcard bool
		names    []ImportName
	}{
		{input: "import math", path: "math", alias: "math"},
		{input: "import math.constants", path: "math.constants", alias: "constants"},
		{input: "import math.constants as m", path: "math.constants", alias: "m"},
		{input: "import math.constants.*", path: "math.constants", wildcard: true},
		{input: "import math.constants.{PI, E as e}", path: "math.constants",
			names: []ImportName{{Name: "PI", Alias: "PI"}, {Name: "E", Alias: "e"}}},
	}

	for _, tt := range tests {
		prog := parseProgram(t, tt.input)
		imp, ok := prog.Stmts[0].(*Import)
		if !ok {
			t.Errorf("parse(%q) = %s, want import", tt.input, typeName(prog.Stmts[0]))
			continue
		}
		if imp.Path != tt.path || imp.Alias != tt.alias || imp.Wildcard != tt.wildcard {
			t.Errorf("parse(%q) = path %q alias %q wildcard %v, want %q %q %v",
				tt.input, imp.Path, imp.Alias, imp.Wildcard, tt.path, tt.alias, tt.wildcard)
		}
		if len(imp.Names) != len(tt.names) {
			t.Errorf("parse(%q) names = %v, want %v", tt.input, imp.Names, tt.names)
			continue
		}
		for i := range tt.names {
			if imp.Names[i] != tt.names[i] {
				t.Errorf("parse(%q) names[%d] = %v, want %v", tt.input, i, imp.Names[i], tt.names[i])
			}
		}
	}
}

func TestParseObjectLiteral(t *testing.T) {
	expr := parseExpr(t, `{a: 1, "b c": 2, if: 3}`)
	obj, ok := expr.(*ObjectLiteral)
	if !ok {
		t.Fatalf("parse = %T, want *ObjectLiteral", expr)
	}
	want := []string{"a", "b c", "if"}
	if strings.Join(obj.Keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", obj.Keys, want)
	}
}

func TestParseNewlineEndsPostfix(t *testing.T) {
	prog := parseProgram(t, "var a = b\n(c)")
	if len(prog.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Stmts))
	}
	if _, ok := prog.Stmts[0].(*VarDecl).Value.(*Identifier); !ok {
		t.Error("a line break before ( should not continue a call")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
		line  int
		col   int
	}{
		{"var = 1", "expected a name after var", 1, 5},
		{"val x", "needs an initializer", 1, 6},
		{"1 + ", "end of input", 1, 5},
		{"var x = 1 var y = 2", "expected end of statement", 1, 11},
		{"var o = {a: 1, a: 2}", "duplicate key 'a'", 1, 16},
		{"function f(a, a) {}", "duplicate parameter 'a'", 1, 15},
		{"1 = 2", "invalid assignment target", 1, 3},
		{"x\n  @", "unexpected character", 2, 3},
		{"if (x {", "expected ')'", 1, 7},
		{"import a.{}", "empty import list", 1, 12},
		{"f() {\n", "end of statement", 1, 5},
		{"while (true) {\n  x = 1\n", "end of input in block opened at line 1", 3, 1},
	}

	for _, tt := range tests {
		_, err := NewParser(tt.input).ParseProgram()
		if err == nil {
			t.Errorf("parse(%q) succeeded, want error containing %q", tt.input, tt.want)
			continue
		}
		perr, ok := err.(*Error)
		if !ok {
			t.Errorf("parse(%q) error type = %T, want *Error", tt.input, err)
			continue
		}
		if !strings.Contains(perr.Message, tt.want) {
			t.Errorf("parse(%q) error = %q, want it to contain %q", tt.input, perr.Message, tt.want)
		}
		if perr.Pos.Line != tt.line || perr.Pos.Column != tt.col {
			t.Errorf("parse(%q) error at %d:%d, want %d:%d", tt.input, perr.Pos.Line, perr.Pos.Column, tt.line, tt.col)
		}
	}
}
