package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/slate/vm"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.1.0"
entry = "main.slate"

[modules]
paths = ["src", "lib"]
library-root = "/usr/share/slate/lib"

[vm]
stack-size = 4096
frame-depth = 64
context = "test"

[log]
verbosity = 2
file = "slate.log"

[dependencies]
helper = { path = "../helper" }
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.Project.Entry != "main.slate" {
		t.Errorf("project entry = %q, want main.slate", m.Project.Entry)
	}
	if len(m.Modules.Paths) != 2 {
		t.Errorf("module paths count = %d, want 2", len(m.Modules.Paths))
	}
	if m.Modules.LibraryRoot != "/usr/share/slate/lib" {
		t.Errorf("library root = %q, want /usr/share/slate/lib", m.Modules.LibraryRoot)
	}
	if m.VM.StackSize != 4096 || m.VM.FrameDepth != 64 {
		t.Errorf("vm limits = %d/%d, want 4096/64", m.VM.StackSize, m.VM.FrameDepth)
	}
	if m.VM.Context != "test" {
		t.Errorf("vm context = %q, want test", m.VM.Context)
	}
	if m.Log.Verbosity != 2 || m.Log.File != "slate.log" {
		t.Errorf("log = %+v, want verbosity 2, file slate.log", m.Log)
	}
	if dep, ok := m.Dependencies["helper"]; !ok || dep.Path != "../helper" {
		t.Errorf("helper dep = %v, want path ../helper", m.Dependencies["helper"])
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.VM.StackSize != vm.DefaultStackSize {
		t.Errorf("stack size = %d, want %d", m.VM.StackSize, vm.DefaultStackSize)
	}
	if m.VM.FrameDepth != vm.DefaultFrameDepth {
		t.Errorf("frame depth = %d, want %d", m.VM.FrameDepth, vm.DefaultFrameDepth)
	}
	if m.VM.Context != "script" {
		t.Errorf("context = %q, want script", m.VM.Context)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[project\nname = 1"},
		{"bad context", "[vm]\ncontext = \"daemon\""},
		{"negative limit", "[vm]\nstack-size = -1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			if _, err := Load(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
	abs, _ := filepath.Abs(dir)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m.Dir != "" {
		t.Errorf("default manifest dir = %q, want empty", m.Dir)
	}
	if m.VM.StackSize != vm.DefaultStackSize {
		t.Errorf("default stack size = %d, want %d", m.VM.StackSize, vm.DefaultStackSize)
	}
}

func TestSearchPaths(t *testing.T) {
	m := &Manifest{
		Dir:     "/app",
		Modules: Modules{Paths: []string{"src", "/opt/lib"}},
	}

	paths := m.SearchPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != "/app/src" {
		t.Errorf("paths[0] = %q, want /app/src", paths[0])
	}
	if paths[1] != "/opt/lib" {
		t.Errorf("paths[1] = %q, want /opt/lib", paths[1])
	}
}

func TestLibraryRootEnvOverride(t *testing.T) {
	m := &Manifest{Dir: "/app", Modules: Modules{LibraryRoot: "lib"}}

	t.Setenv(LibraryEnv, "")
	if got := m.LibraryRoot(); got != "/app/lib" {
		t.Errorf("LibraryRoot() = %q, want /app/lib", got)
	}

	t.Setenv(LibraryEnv, "/env/lib")
	if got := m.LibraryRoot(); got != "/env/lib" {
		t.Errorf("LibraryRoot() with %s = %q, want /env/lib", LibraryEnv, got)
	}
}

func TestConfig(t *testing.T) {
	t.Setenv(LibraryEnv, "")
	m := &Manifest{
		Dir:     "/app",
		Modules: Modules{Paths: []string{"src"}, LibraryRoot: "/lib"},
		VM:      VMConfig{StackSize: 100, FrameDepth: 10, Context: "repl"},
	}
	deps := []ResolvedDep{{Name: "helper", Roots: []string{"/deps/helper"}}}

	cfg, err := m.Config(deps)
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg.StackSize != 100 || cfg.FrameDepth != 10 {
		t.Errorf("limits = %d/%d, want 100/10", cfg.StackSize, cfg.FrameDepth)
	}
	if cfg.Context != vm.ContextREPL {
		t.Errorf("context = %v, want repl", cfg.Context)
	}
	want := []string{"/app/src", "/deps/helper"}
	if len(cfg.SearchPaths) != len(want) {
		t.Fatalf("search paths = %v, want %v", cfg.SearchPaths, want)
	}
	for i := range want {
		if cfg.SearchPaths[i] != want[i] {
			t.Errorf("search paths[%d] = %q, want %q", i, cfg.SearchPaths[i], want[i])
		}
	}
	if cfg.LibraryRoot != "/lib" {
		t.Errorf("library root = %q, want /lib", cfg.LibraryRoot)
	}
}
