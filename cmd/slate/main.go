// Slate CLI - the main entry point for running Slate programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/slate/compiler"
	"github.com/chazu/slate/manifest"
	"github.com/chazu/slate/vm"
)

// Exit statuses.
const (
	exitOK    = 0
	exitError = 1 // uncaught error in the program
	exitUsage = 2 // bad invocation, configuration or I/O
)

var log = commonlog.GetLogger("slate.cli")

type options struct {
	eval        string
	interactive bool
	disassemble bool
	output      string
	verbose     bool
	file        string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("slate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.eval, "e", "", "Evaluate code and print its result")
	fs.BoolVar(&opts.interactive, "i", false, "Start interactive REPL")
	fs.BoolVar(&opts.disassemble, "d", false, "Print the disassembled bytecode instead of running")
	fs.StringVar(&opts.output, "o", "", "Compile to a .slatec file instead of running")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: slate [options] [file]\n\n")
		fmt.Fprintf(stderr, "Runs a Slate script, or starts the REPL when no file is given.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  slate main.slate             # Run a script\n")
		fmt.Fprintf(stderr, "  slate -e '1 + 2'             # Evaluate an expression\n")
		fmt.Fprintf(stderr, "  slate -d main.slate          # Show bytecode\n")
		fmt.Fprintf(stderr, "  slate -o main.slatec main.slate  # Compile once, run later\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	switch fs.NArg() {
	case 0:
	case 1:
		opts.file = fs.Arg(0)
	default:
		fs.Usage()
		return exitUsage
	}
	if opts.eval != "" && opts.file != "" {
		fmt.Fprintln(stderr, "Error: -e and a file are mutually exclusive")
		return exitUsage
	}

	m, err := loadManifest(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	configureLogging(m, opts.verbose)

	deps, err := manifest.NewResolver(m, false).Resolve()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cfg, err := m.Config(deps)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cfg.Stdout, cfg.Stderr = stdout, stderr
	if opts.interactive || (opts.eval == "" && opts.file == "") {
		cfg.Context = vm.ContextREPL
	}

	vmInst := vm.NewVMWithConfig(cfg)
	vmInst.UseCompiler(compiler.Compile)
	status := exitOK
	vmInst.Exit = func(code int) { status = code }

	if opts.eval != "" || opts.file != "" {
		fn, err := load(vmInst, opts)
		if err != nil {
			fmt.Fprintln(stderr, describeError(err))
			return exitStatus(err)
		}
		if opts.disassemble {
			fmt.Fprint(stdout, fn.Disassemble())
			return exitOK
		}
		if opts.output != "" {
			if err := writeCompiled(fn, opts.output); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitUsage
			}
			log.Infof("wrote %s", opts.output)
			return exitOK
		}
		result, err := vmInst.Run(fn)
		switch {
		case err != nil && cfg.Context == vm.ContextScript:
			return status
		case err != nil && !opts.interactive:
			if cfg.Context == vm.ContextTest {
				fmt.Fprintln(stderr, describeError(err))
			}
			return exitError
		case err == nil && opts.eval != "" && !result.IsNullish():
			if s, err := vmInst.Display(result); err == nil {
				fmt.Fprintln(stdout, s)
			}
		}
		if !opts.interactive {
			return exitOK
		}
	}

	runREPL(vmInst, stdin, stdout)
	return exitOK
}

func loadManifest(opts options) (*manifest.Manifest, error) {
	dir := "."
	if opts.file != "" {
		dir = filepath.Dir(opts.file)
	}
	return manifest.FindAndLoad(dir)
}

// configureLogging applies the [log] settings; -v raises verbosity to
// debug.
func configureLogging(m *manifest.Manifest, verbose bool) {
	verbosity := m.Log.Verbosity
	if verbose && verbosity < 2 {
		verbosity = 2
	}
	var path *string
	if m.Log.File != "" {
		file := m.Log.File
		if !filepath.IsAbs(file) && m.Dir != "" {
			file = filepath.Join(m.Dir, file)
		}
		path = &file
	}
	commonlog.Configure(verbosity, path)
}

// load compiles the -e code or the script file. Compiled .slatec files are
// decoded directly.
func load(vmInst *vm.VM, opts options) (*vm.Function, error) {
	if opts.eval != "" {
		return vmInst.Compile(opts.eval, "<eval>")
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", opts.file, err)
	}
	if strings.HasSuffix(opts.file, vm.CompiledExtension) {
		fn, err := vm.UnmarshalFunction(data)
		if err != nil {
			return nil, fmt.Errorf("cannot decode %s: %w", opts.file, err)
		}
		return fn, nil
	}
	path, err := filepath.Abs(opts.file)
	if err != nil {
		path = opts.file
	}
	log.Debugf("compiling %s", path)
	return vmInst.Compile(string(data), path)
}

func writeCompiled(fn *vm.Function, path string) error {
	data, err := vm.MarshalFunction(fn)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// describeError renders err with the source caret for language errors.
func describeError(err error) string {
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		return rerr.Format()
	}
	return fmt.Sprintf("Error: %v", err)
}

// exitStatus maps a load failure to an exit status: syntax errors are
// program errors, everything else is I/O.
func exitStatus(err error) int {
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		return exitError
	}
	return exitUsage
}
