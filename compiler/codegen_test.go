package compiler

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/slate/vm"
)

func newTestVM(t *testing.T) (*vm.VM, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := vm.DefaultConfig()
	cfg.Context = vm.ContextTest
	cfg.Stdout = &out
	cfg.Stderr = &out
	v := vm.NewVMWithConfig(cfg)
	v.UseCompiler(Compile)
	return v, &out
}

// evalRepr evaluates source in a fresh VM and renders the result.
func evalRepr(t *testing.T, source string) string {
	t.Helper()
	v, _ := newTestVM(t)
	result, err := v.Eval(source, "<test>")
	if err != nil {
		t.Fatalf("eval %q: %v", source, err)
	}
	s, err := v.Display(result)
	if err != nil {
		t.Fatalf("display %q: %v", source, err)
	}
	return s
}

func TestCompileExpressions(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{`"a" + "b"`, `"ab"`},
		{"3 > 2 ? \"y\" : \"n\"", `"y"`},
		{"null ?? 5", "5"},
		{"1 && 2", "2"},
		{"false && missing", "false"},
		{"null || \"d\"", `"d"`},
		{"true || missing", "true"},
		{"!true", "false"},
		{"[1, 2, 3].length()", "3"},
		{"({a: 1, b: 2}).b", "2"},
		{"[10, 20][1]", "20"},
		{"(x => x * 2)(21)", "42"},
		{"((a, b) => a - b)(10, 4)", "6"},
	}

	for _, tt := range tests {
		if got := evalRepr(t, tt.source); got != tt.want {
			t.Errorf("eval(%q) = %s, want %s", tt.source, got, tt.want)
		}
	}
}

func TestCompileStatements(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"while with continue", `
var s = 0
var i = 0
while (i < 5) {
  i++
  if (i == 3) continue
  s += i
}
s`, "12"},
		{"while with break", `
var n = 0
while (true) { n++; if (n >= 4) break }
n`, "4"},
		{"for over array", `
var sum = 0
for (x in [1, 2, 3]) sum += x
sum`, "6"},
		{"for with step", `
var out = []
for (i in 10..0 step -5) out.push(i)
out`, "[10, 5, 0]"},
		{"descending default step", `
var out = []
for (i in 3..1) out.push(i)
out`, "[3, 2, 1]"},
		{"nested loops break inner only", `
var pairs = 0
for (i in 1..3) {
  for (j in 1..3) {
    if (j > i) break
    pairs++
  }
}
pairs`, "6"},
		{"recursion through globals", `
function fib(n) { return n < 2 ? n : fib(n - 1) + fib(n - 2) }
fib(10)`, "55"},
		{"recursion in a local function", `
function outer(n) {
  function fact(k) { return k <= 1 ? 1 : k * fact(k - 1) }
  return fact(n)
}
outer(6)`, "720"},
		{"local recursion through a nested closure", `
function outer() {
  function count(n) {
    val step = () => count(n - 1)
    return n == 0 ? "done" : step()
  }
  return count(3)
}
outer()`, `"done"`},
		{"local function in a block", `
var r = -1
{
  function down(n) { return n == 0 ? "bottom" : down(n - 1) }
  r = down(4)
}
r`, `"bottom"`},
		{"body may shadow its own name", `
function outer() {
  function f() { var f = 7; return f }
  return f()
}
outer()`, "7"},
		{"block scope", `
var x = 1
{ var x = 2 }
x`, "1"},
		{"locals in functions", `
function f(a) {
  var b = a * 2
  if (b > 5) { var c = b + 1; return c }
  return b
}
[f(1), f(3)]`, "[2, 7]"},
		{"implicit null return", `
function f() { var a = 1 }
f()`, "null"},
		{"declaration result is null", "var z = 3", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalRepr(t, tt.source); got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompileAssignments(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"var a = 1; a = a + 1; a", "2"},
		{"var a = 1; var b = a = 5; [a, b]", "[5, 5]"},
		{"var a = 10; a -= 3; a *= 2; a", "14"},
		{"var o = {a: 1}; o.a += 2; o.a", "3"},
		{"var o = {}; o.k = \"v\"", `"v"`},
		{"var xs = [1, 2]; xs[1]++; xs[1]", "3"},
		{"var xs = [5]; var old = xs[0]++; [old, xs[0]]", "[5, 6]"},
		{"var o = {n: 1}; [++o.n, o.n]", "[2, 2]"},
		{"var o = {n: 1}; [o.n--, o.n]", "[1, 0]"},
		{"var i = 0; [i++, i, ++i]", "[0, 1, 2]"},
		{"function f() { var i = 5; var j = i--; return [i, j] }; f()", "[4, 5]"},
	}

	for _, tt := range tests {
		if got := evalRepr(t, tt.source); got != tt.want {
			t.Errorf("eval(%q) = %s, want %s", tt.source, got, tt.want)
		}
	}
}

func TestCompileClosures(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"capture parameter", "val add = (x) => (y) => x + y; add(10)(5)", "15"},
		{"capture two levels up", `
function a() { var x = 7; return () => () => x }
a()()()`, "7"},
		{"capture copies the value", `
function make() {
  var x = 1
  val f = () => x
  x = 2
  return [f(), x]
}
make()`, "[1, 2]"},
		{"captured value is private to the closure", `
function counter() {
  var n = 0
  return () => { n = n + 1; return n }
}
val c = counter()
c()
c()`, "2"},
		{"globals are not captured", `
var g = 1
val f = () => g
g = 2
f()`, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalRepr(t, tt.source); got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"immutable local", "function f() { val x = 1; x = 2 }", "cannot assign to immutable 'x'"},
		{"immutable capture", "function f() { val x = 1; return () => { x = 2 } }", "cannot assign to immutable 'x'"},
		{"redeclared local", "function f() { var a = 1; var a = 2 }", "'a' is already declared"},
		{"break outside loop", "break", "'break' outside of a loop"},
		{"continue in function in loop", "while (true) { val f = () => { continue } }", "'continue' outside of a loop"},
		{"syntax", "var x = )", "unexpected ')'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.source, "<test>")
			if err == nil {
				t.Fatalf("Compile(%q) succeeded, want error", tt.source)
			}
			var rerr *vm.RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("error type = %T, want *vm.RuntimeError", err)
			}
			if rerr.Kind != vm.ErrSyntax {
				t.Errorf("kind = %v, want %v", rerr.Kind, vm.ErrSyntax)
			}
			if !strings.Contains(rerr.Message, tt.want) {
				t.Errorf("message = %q, want it to contain %q", rerr.Message, tt.want)
			}
		})
	}
}

func TestCompileErrorLocation(t *testing.T) {
	_, err := Compile("var x = 1\nvar y = )", "<test>")
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *vm.RuntimeError", err)
	}
	if rerr.Line != 2 || rerr.Column != 9 {
		t.Errorf("location = %d:%d, want 2:9", rerr.Line, rerr.Column)
	}
	if rerr.SourceLine != "var y = )" {
		t.Errorf("source line = %q, want %q", rerr.SourceLine, "var y = )")
	}
	if !strings.Contains(rerr.Format(), "        ^") {
		t.Errorf("Format() missing caret under column 9:\n%s", rerr.Format())
	}
}

func TestRuntimeErrorLocation(t *testing.T) {
	v, _ := newTestVM(t)
	_, err := v.Eval("var a = 1\nvar b = a + nope", "<test>")
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *vm.RuntimeError", err)
	}
	if rerr.Kind != vm.ErrReference {
		t.Errorf("kind = %v, want %v", rerr.Kind, vm.ErrReference)
	}
	if rerr.Line != 2 {
		t.Errorf("line = %d, want 2", rerr.Line)
	}
	if rerr.File != "<test>" {
		t.Errorf("file = %q, want <test>", rerr.File)
	}
}

func TestModuleErrorNamesFile(t *testing.T) {
	tests := []struct {
		name   string
		module string
		kind   vm.ErrorKind
		line   int
	}{
		{"runtime", "val ok = 1\nval bad = 1 / 0\n", vm.ErrArithmetic, 2},
		{"syntax", "val broken = )\n", vm.ErrSyntax, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			lib := filepath.Join(dir, "lib")
			if err := os.MkdirAll(lib, 0755); err != nil {
				t.Fatal(err)
			}
			file := filepath.Join(lib, "bad.slate")
			if err := os.WriteFile(file, []byte(tt.module), 0644); err != nil {
				t.Fatal(err)
			}

			v, _ := newTestVM(t)
			_, err := v.Eval("import lib.bad as b", filepath.Join(dir, "main.slate"))
			var rerr *vm.RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("error = %v, want *vm.RuntimeError", err)
			}
			if rerr.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", rerr.Kind, tt.kind)
			}
			if filepath.Base(rerr.File) != "bad.slate" || rerr.Line != tt.line {
				t.Errorf("location = %s:%d, want bad.slate:%d", rerr.File, rerr.Line, tt.line)
			}
			if !strings.Contains(rerr.Format(), "bad.slate") {
				t.Errorf("Format() does not name the module file:\n%s", rerr.Format())
			}
		})
	}
}

func TestImmutableGlobalAssignment(t *testing.T) {
	v, _ := newTestVM(t)
	_, err := v.Eval("val x = 1\nx = 2", "<test>")
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) || rerr.Kind != vm.ErrType {
		t.Errorf("error = %v, want a TYPE error", err)
	}
}

func TestCompileBytecodeShape(t *testing.T) {
	tests := []struct {
		name   string
		source string
		ops    []string
	}{
		{"short circuit and", "a && b", []string{"DUP", "JUMP_IF_FALSE", "POP"}},
		{"short circuit or", "a || b", []string{"DUP", "JUMP_IF_TRUE", "POP"}},
		{"coalesce", "a ?? b", []string{"NULL_COALESCE"}},
		{"method call", "a.b(1)", []string{"GET_PROPERTY", "CALL"}},
		{"global definition", "val k = 1", []string{"DEFINE_GLOBAL"}},
		{"for in", "for (x in xs) x", []string{"GET_PROPERTY", "CALL", "SET_LOCAL", "JUMP_IF_FALSE", "JUMP"}},
		{"closure", "val f = () => 1", []string{"CLOSURE"}},
		{"range", "1..<3", []string{"BUILD_RANGE"}},
		{"import", "import a.b as m", []string{"IMPORT_MODULE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := Compile(tt.source, "<test>")
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.source, err)
			}
			dis := fn.Disassemble()
			for _, op := range tt.ops {
				if !strings.Contains(dis, op) {
					t.Errorf("disassembly of %q missing %s:\n%s", tt.source, op, dis)
				}
			}
		})
	}
}

func TestCompileLocalSlots(t *testing.T) {
	fn, err := Compile("function f(a, b) { var c = a; { var d = b } var e = 1 }", "<test>")
	if err != nil {
		t.Fatal(err)
	}
	var inner *vm.Function
	for _, c := range fn.Constants {
		if f := c.AsFunction(); f != nil {
			inner = f
		}
	}
	if inner == nil {
		t.Fatal("nested function constant not found")
	}
	// d's slot is reused by e once its block closes.
	if inner.LocalCount != 4 {
		t.Errorf("LocalCount = %d, want 4", inner.LocalCount)
	}
	if inner.Name != "f" || len(inner.Params) != 2 {
		t.Errorf("function = %s%v, want f[a b]", inner.Name, inner.Params)
	}
}
