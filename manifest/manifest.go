// Package manifest handles slate.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/slate/vm"
)

// FileName is the name of the project configuration file.
const FileName = "slate.toml"

// LibraryEnv overrides the configured library root when set.
const LibraryEnv = "SLATE_LIB"

// Manifest represents a slate.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Modules      Modules               `toml:"modules"`
	VM           VMConfig              `toml:"vm"`
	Log          LogConfig             `toml:"log"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the slate.toml file (set at load time).
	// It is empty for the default manifest.
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// Modules configures where imports are resolved.
type Modules struct {
	Paths       []string `toml:"paths"`
	LibraryRoot string   `toml:"library-root"`
}

// VMConfig configures interpreter limits.
type VMConfig struct {
	StackSize  int    `toml:"stack-size"`
	FrameDepth int    `toml:"frame-depth"`
	Context    string `toml:"context"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Dependency is a module tree the project imports from: a local path or a
// git repository cloned under .slate/deps.
type Dependency struct {
	Git  string `toml:"git"`
	Tag  string `toml:"tag"`
	Path string `toml:"path"`
}

// Default returns the manifest used when no slate.toml is found.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.VM.StackSize <= 0 {
		m.VM.StackSize = vm.DefaultStackSize
	}
	if m.VM.FrameDepth <= 0 {
		m.VM.FrameDepth = vm.DefaultFrameDepth
	}
	if m.VM.Context == "" {
		m.VM.Context = vm.ContextScript.String()
	}
}

// Load parses a slate.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if _, err := vm.ParseContext(m.VM.Context); err != nil {
		return nil, fmt.Errorf("in %s: %w", path, err)
	}
	if m.VM.StackSize < 0 || m.VM.FrameDepth < 0 {
		return nil, fmt.Errorf("in %s: negative vm limit", path)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a slate.toml file, then loads
// and returns the manifest. The default manifest is returned if none is
// found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// SearchPaths returns absolute paths for the configured module roots.
func (m *Manifest) SearchPaths() []string {
	var paths []string
	for _, d := range m.Modules.Paths {
		if !filepath.IsAbs(d) {
			d = filepath.Join(m.Dir, d)
		}
		paths = append(paths, d)
	}
	return paths
}

// LibraryRoot returns the library root, preferring $SLATE_LIB.
func (m *Manifest) LibraryRoot() string {
	if env := os.Getenv(LibraryEnv); env != "" {
		return env
	}
	root := m.Modules.LibraryRoot
	if root != "" && !filepath.IsAbs(root) && m.Dir != "" {
		root = filepath.Join(m.Dir, root)
	}
	return root
}

// DepsDir returns the path to the .slate/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".slate", "deps")
}

// Config returns the VM configuration described by the manifest. The
// roots of resolved dependencies follow the project's own search paths.
func (m *Manifest) Config(deps []ResolvedDep) (vm.Config, error) {
	ctx, err := vm.ParseContext(m.VM.Context)
	if err != nil {
		return vm.Config{}, err
	}
	cfg := vm.DefaultConfig()
	cfg.StackSize = m.VM.StackSize
	cfg.FrameDepth = m.VM.FrameDepth
	cfg.Context = ctx
	cfg.SearchPaths = m.SearchPaths()
	for _, d := range deps {
		cfg.SearchPaths = append(cfg.SearchPaths, d.Roots...)
	}
	cfg.LibraryRoot = m.LibraryRoot()
	return cfg, nil
}
