package manifest

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestResolvePathDependencies(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	helper := filepath.Join(root, "helper")
	util := filepath.Join(root, "util")
	for _, d := range []string{app, filepath.Join(helper, "src"), util} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeManifest(t, app, `
[dependencies]
helper = { path = "../helper" }
`)
	// helper declares its own module root and a transitive dependency.
	writeManifest(t, helper, `
[modules]
paths = ["src"]

[dependencies]
util = { path = "../util" }
`)

	m, err := Load(app)
	if err != nil {
		t.Fatal(err)
	}
	deps, err := NewResolver(m, false).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("resolved %d deps, want 2", len(deps))
	}
	// Dependencies come before dependents.
	if deps[0].Name != "util" || deps[1].Name != "helper" {
		t.Errorf("order = %s, %s; want util, helper", deps[0].Name, deps[1].Name)
	}
	if len(deps[0].Roots) != 1 || deps[0].Roots[0] != util {
		t.Errorf("util roots = %v, want [%s]", deps[0].Roots, util)
	}
	if len(deps[1].Roots) != 1 || deps[1].Roots[0] != filepath.Join(helper, "src") {
		t.Errorf("helper roots = %v, want [%s]", deps[1].Roots, filepath.Join(helper, "src"))
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		dep  Dependency
	}{
		{"missing path", Dependency{Path: "does-not-exist"}},
		{"no source", Dependency{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &Manifest{Dir: t.TempDir(), Dependencies: map[string]Dependency{"x": tc.dep}}
			if _, err := NewResolver(m, false).Resolve(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestResolveNoDependencies(t *testing.T) {
	deps, err := NewResolver(Default(), false).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("resolved %d deps, want 0", len(deps))
	}
}

func TestResolveGitDependency(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	repo := filepath.Join(root, "geometry")
	if err := os.MkdirAll(repo, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, "shapes.slate"), []byte("val SIDES = 4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{
		{"init", "--quiet"},
		{"add", "."},
		{"-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "--quiet", "-m", "shapes"},
		{"tag", "v1"},
	} {
		if _, err := git(repo, args...); err != nil {
			t.Fatal(err)
		}
	}

	app := filepath.Join(root, "app")
	if err := os.MkdirAll(app, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, app, `
[dependencies]
geometry = { git = "`+filepath.ToSlash(repo)+`", tag = "v1" }
`)
	m, err := Load(app)
	if err != nil {
		t.Fatal(err)
	}
	deps, err := NewResolver(m, false).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(deps) != 1 {
		t.Fatalf("got %d deps, want 1", len(deps))
	}
	want := filepath.Join(m.DepsDir(), "geometry")
	if deps[0].LocalPath != want {
		t.Errorf("LocalPath = %s, want %s", deps[0].LocalPath, want)
	}
	if _, err := os.Stat(filepath.Join(want, "shapes.slate")); err != nil {
		t.Errorf("clone is missing shapes.slate: %v", err)
	}

	// A second resolve reuses the checkout.
	if _, err := NewResolver(m, true).Resolve(); err != nil {
		t.Errorf("re-resolve failed: %v", err)
	}
}
