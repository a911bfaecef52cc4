package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeScript(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEval(t *testing.T) {
	code, out, _ := runCLI(t, "", "-e", "1 + 2")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	if out != "3\n" {
		t.Errorf("stdout = %q, want %q", out, "3\n")
	}
}

func TestRunScript(t *testing.T) {
	path := writeScript(t, "main.slate", `
var total = 0
for (i in 1..4) { total += i }
println("total", total)
`)
	code, out, errOut := runCLI(t, "", path)
	if code != exitOK {
		t.Fatalf("exit = %d, want %d (stderr %q)", code, exitOK, errOut)
	}
	if out != "total 10\n" {
		t.Errorf("stdout = %q, want %q", out, "total 10\n")
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want int
	}{
		{"runtime error", func(t *testing.T) []string {
			return []string{writeScript(t, "bad.slate", "println(undefinedName)")}
		}, exitError},
		{"syntax error", func(t *testing.T) []string {
			return []string{writeScript(t, "bad.slate", "var = 1")}
		}, exitError},
		{"missing file", func(t *testing.T) []string {
			return []string{filepath.Join(t.TempDir(), "missing.slate")}
		}, exitUsage},
		{"unknown flag", func(t *testing.T) []string {
			return []string{"-nope"}
		}, exitUsage},
		{"too many files", func(t *testing.T) []string {
			return []string{"a.slate", "b.slate"}
		}, exitUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, _ := runCLI(t, "", tc.args(t)...)
			if code != tc.want {
				t.Errorf("exit = %d, want %d", code, tc.want)
			}
		})
	}
}

func TestSyntaxErrorShowsCaret(t *testing.T) {
	path := writeScript(t, "bad.slate", "var x = (1 + \n")
	_, _, errOut := runCLI(t, "", path)
	if !strings.Contains(errOut, "SyntaxError") {
		t.Errorf("stderr = %q, want a SyntaxError", errOut)
	}
}

func TestCompileAndRunCompiled(t *testing.T) {
	src := writeScript(t, "main.slate", `println("cached", 6 * 7)`)
	out := filepath.Join(filepath.Dir(src), "main.slatec")

	if code, _, errOut := runCLI(t, "", "-o", out, src); code != exitOK {
		t.Fatalf("compile exit = %d (stderr %q)", code, errOut)
	}
	code, stdout, errOut := runCLI(t, "", out)
	if code != exitOK {
		t.Fatalf("run exit = %d (stderr %q)", code, errOut)
	}
	if stdout != "cached 42\n" {
		t.Errorf("stdout = %q, want %q", stdout, "cached 42\n")
	}
}

func TestDisassemble(t *testing.T) {
	code, out, _ := runCLI(t, "", "-d", "-e", "1 + 2")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	for _, want := range []string{"ADD", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %s:\n%s", want, out)
		}
	}
}

func TestREPL(t *testing.T) {
	input := strings.Join([]string{
		"var x = 40",
		"function add(a, b) {",
		"  return a + b",
		"}",
		"add(x, 2)",
		"var x = 1",
		"x",
		"nope()",
		"exit",
	}, "\n")
	code, out, errOut := runCLI(t, input, "-i")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	// Redeclaration replaces the binding in the REPL.
	if out != "42\n1\n" {
		t.Errorf("stdout = %q, want %q", out, "42\n1\n")
	}
	if !strings.Contains(errOut, "ReferenceError") {
		t.Errorf("stderr = %q, want a ReferenceError", errOut)
	}
}
