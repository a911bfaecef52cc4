package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/chazu/slate/vm"
)

// runREPL reads entries from in and evaluates them in the main namespace.
// An entry that ends before its closing bracket or comment continues on
// the next line. Prompts are shown only when in is a terminal.
func runREPL(vmInst *vm.VM, in io.Reader, out io.Writer) {
	prompt := isTerminal(in)
	if prompt {
		fmt.Fprintln(out, "Slate REPL (type 'exit' to quit, ':help' for commands)")
	}

	scanner := bufio.NewScanner(in)
	var entry strings.Builder
	for {
		if prompt {
			if entry.Len() == 0 {
				fmt.Fprint(out, ">> ")
			} else {
				fmt.Fprint(out, ".. ")
			}
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if entry.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				handleREPLCommand(vmInst, trimmed, out)
				continue
			}
		}

		if entry.Len() > 0 {
			entry.WriteString("\n")
		}
		entry.WriteString(line)
		source := entry.String()
		if strings.TrimSpace(source) == "" {
			entry.Reset()
			continue
		}

		fn, err := vmInst.Compile(source, "<repl>")
		if err != nil && incomplete(err) {
			continue
		}
		entry.Reset()
		if err != nil {
			fmt.Fprintln(out, describeError(err))
			continue
		}
		result, err := vmInst.Run(fn)
		if err != nil || result.IsNullish() {
			continue
		}
		if s, err := vmInst.Display(result); err == nil {
			fmt.Fprintln(out, s)
		}
	}
}

// incomplete reports whether a compile error was caused by input ending
// early.
func incomplete(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "end of input") || strings.Contains(msg, "unterminated block comment")
}

func handleREPLCommand(vmInst *vm.VM, cmd string, out io.Writer) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case ":help", ":h":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  :help           Show this help")
		fmt.Fprintln(out, "  :dis <code>     Disassemble code without running it")
		fmt.Fprintln(out, "  :globals        List names defined in the session")
		fmt.Fprintln(out, "  :modules        List loaded modules")
		fmt.Fprintln(out, "  :heap           Show heap statistics")
		fmt.Fprintln(out, "  exit, quit      Leave the REPL")

	case ":dis":
		fn, err := vmInst.Compile(arg, "<repl>")
		if err != nil {
			fmt.Fprintln(out, describeError(err))
			return
		}
		fmt.Fprint(out, fn.Disassemble())

	case ":globals":
		for _, n := range vmInst.Globals.Names() {
			fmt.Fprintln(out, n)
		}

	case ":modules":
		for file, mod := range vmInst.Modules() {
			fmt.Fprintf(out, "%s\t%s\t%s\n", mod.Name, mod.State, file)
		}

	case ":heap":
		swept := vmInst.Collect()
		allocated, freed := vmInst.Heap().Stats()
		fmt.Fprintf(out, "allocated: %d  freed: %d  swept now: %d\n", allocated, freed, swept)

	default:
		fmt.Fprintf(out, "Unknown command: %s (try :help)\n", name)
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
