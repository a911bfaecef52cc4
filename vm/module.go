package vm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

// Module file extensions.
const (
	SourceExtension   = ".slate"
	CompiledExtension = ".slatec"
)

// ModuleState tracks a module through loading.
type ModuleState uint8

const (
	ModuleUnloaded ModuleState = iota
	ModuleLoading
	ModuleLoaded
)

// String returns the state name.
func (s ModuleState) String() string {
	switch s {
	case ModuleLoading:
		return "loading"
	case ModuleLoaded:
		return "loaded"
	}
	return "unloaded"
}

// Module is a loaded source file. Its top-level code runs once in a private
// namespace whose bindings become the exports.
type Module struct {
	Name      string
	Path      string
	State     ModuleState
	Namespace *Namespace
	Exports   *Namespace

	init   Value
	object Value
}

var moduleLog = commonlog.GetLogger("slate.module")

// Modules returns the loaded modules keyed by resolved file path.
func (vm *VM) Modules() map[string]*Module { return vm.modules }

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// searchRoots lists the directories a module path is resolved against, in
// order: the importing file's directory, the working directory, the
// configured search paths and the library root.
func (vm *VM) searchRoots(importerDir string) []string {
	var roots []string
	if importerDir != "" {
		roots = append(roots, importerDir)
	}
	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd)
	}
	roots = append(roots, vm.SearchPaths...)
	if vm.LibraryRoot != "" {
		roots = append(roots, vm.LibraryRoot)
	}
	return roots
}

// ResolveModule maps a dotted module path to a file. The first root holding
// a source or compiled file wins.
func (vm *VM) ResolveModule(path, importerDir string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(path, ".", "/"))
	for _, root := range vm.searchRoots(importerDir) {
		for _, ext := range []string{SourceExtension, CompiledExtension} {
			candidate := filepath.Join(root, rel+ext)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				abs, err := filepath.Abs(candidate)
				if err != nil {
					abs = candidate
				}
				return abs, true
			}
		}
	}
	return "", false
}

func importerDir(path string) string {
	if path == "" || strings.HasPrefix(path, "<") {
		return ""
	}
	return filepath.Dir(path)
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadModule loads the module at a dotted path, returning the cached module
// on subsequent requests. Errors propagate to the enclosing trap.
func (vm *VM) LoadModule(path, importerDir string) *Module {
	file, ok := vm.ResolveModule(path, importerDir)
	if !ok {
		vm.Throw(ErrIO, "module '%s' not found", path)
	}
	return vm.loadModuleFile(path, file)
}

func (vm *VM) loadModuleFile(name, file string) *Module {
	if mod, ok := vm.modules[file]; ok {
		if mod.State == ModuleLoading {
			vm.Throw(ErrReference, "circular import of module '%s'", name)
		}
		return mod
	}

	fn := vm.readModule(name, file)
	mod := &Module{
		Name:      name,
		Path:      file,
		State:     ModuleLoading,
		Namespace: NewNamespace(),
		Exports:   NewNamespace(),
	}
	vm.modules[file] = mod
	moduleLog.Debugf("loading module %s from %s", name, file)

	loaded := false
	defer func() {
		if !loaded {
			mod.State = ModuleUnloaded
			delete(vm.modules, file)
			moduleLog.Debugf("module %s failed to load", name)
		}
	}()

	mod.init = vm.newClosure(fn, nil, mod)
	mod.init.Retain()
	depth := vm.fp
	vm.push(mod.init)
	vm.callClosure(mod.init.AsClosure(), 0)
	vm.run(depth)

	mod.Namespace.Each(func(name string, v Value, _ bool) {
		mod.Exports.Define(name, v, true)
	})
	mod.State = ModuleLoaded
	loaded = true
	moduleLog.Debugf("loaded module %s with %d exports", name, mod.Exports.Len())
	return mod
}

// readModule reads and compiles a module file, decoding compiled files
// directly.
func (vm *VM) readModule(name, file string) *Function {
	data, err := os.ReadFile(file)
	if err != nil {
		vm.Throw(ErrIO, "cannot read module '%s': %v", name, err)
	}
	if strings.HasSuffix(file, CompiledExtension) {
		fn, err := UnmarshalFunction(data)
		if err != nil {
			vm.Throw(ErrIO, "cannot decode module '%s': %v", name, err)
		}
		return fn
	}
	fn, err := vm.Compile(string(data), file)
	if err != nil {
		var rerr *RuntimeError
		if errors.As(err, &rerr) {
			panic(rerr)
		}
		vm.Throw(ErrSyntax, "in module '%s': %v", name, err)
	}
	return fn
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

// importTarget is what an import path resolved to: a module, or a member
// of a parent module when the full path names no file.
type importTarget struct {
	module *Module
	member Value
}

func (vm *VM) resolveImport(path, dir string) importTarget {
	if file, ok := vm.ResolveModule(path, dir); ok {
		return importTarget{module: vm.loadModuleFile(path, file)}
	}
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		parent, member := path[:i], path[i+1:]
		if file, ok := vm.ResolveModule(parent, dir); ok {
			mod := vm.loadModuleFile(parent, file)
			v, ok := mod.Exports.Get(member)
			if !ok {
				vm.Throw(ErrReference, "module '%s' has no export '%s'", parent, member)
			}
			return importTarget{member: v}
		}
	}
	vm.Throw(ErrIO, "module '%s' not found", path)
	return importTarget{}
}

// exportNames lists what a wildcard import binds.
func (vm *VM) exportNames(t importTarget) []string {
	if t.module != nil {
		return t.module.Exports.Names()
	}
	o := t.member.AsObject()
	if o == nil {
		vm.Throw(ErrType, "cannot import members of %s", vm.typeName(t.member))
	}
	names := make([]string, 0, o.Props.Len())
	for _, k := range o.Props.Keys() {
		names = append(names, k.s)
	}
	return names
}

func (vm *VM) exportOf(t importTarget, name string) (Value, bool) {
	if t.module != nil {
		return t.module.Exports.Get(name)
	}
	o := t.member.AsObject()
	if o == nil {
		vm.Throw(ErrType, "cannot import '%s' from %s", name, vm.typeName(t.member))
	}
	return o.Props.Get(vm.Intern(name))
}

// namespaceValue is what `import a.b as m` binds: an object of every
// export, or the member itself.
func (vm *VM) namespaceValue(t importTarget) Value {
	if t.module == nil {
		return t.member
	}
	mod := t.module
	if mod.object.IsNull() || mod.object.obj == nil {
		obj := vm.NewObject()
		mod.Exports.Each(func(name string, v Value, _ bool) {
			obj.AsObject().Props.Set(vm.Intern(name), v)
		})
		obj.Retain()
		mod.object = obj
	}
	return mod.object
}

// bindImport defines an imported name immutably. Re-importing the same
// value is allowed.
func (vm *VM) bindImport(ns *Namespace, name string, v Value) {
	if old, ok := ns.Get(name); ok && vm.Context != ContextREPL {
		if old.Same(v) {
			return
		}
		vm.Throw(ErrReference, "'%s' is already defined", name)
	}
	ns.Define(name, v, true)
}

// opImport implements IMPORT_MODULE.
func (vm *VM) opImport(frame *CallFrame) {
	path := vm.constantName(frame, readUint16(frame))
	flags := readByte(frame)
	target := vm.resolveImport(path, importerDir(frame.fn.Path))
	ns := frame.module.Namespace

	switch flags {
	case ImportWildcard:
		for _, name := range vm.exportNames(target) {
			v, _ := vm.exportOf(target, name)
			vm.bindImport(ns, name, v)
		}
	case ImportNamespace:
		alias := vm.constantName(frame, readUint16(frame))
		vm.bindImport(ns, alias, vm.namespaceValue(target))
	default:
		for i := 0; i < int(flags); i++ {
			name := vm.constantName(frame, readUint16(frame))
			alias := vm.constantName(frame, readUint16(frame))
			v, ok := vm.exportOf(target, name)
			if !ok {
				vm.Throw(ErrReference, "module '%s' has no export '%s'", path, name)
			}
			vm.bindImport(ns, alias, v)
		}
	}
}
