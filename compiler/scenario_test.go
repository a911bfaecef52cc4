package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/chazu/slate/vm"
)

// scenario is one entry of testdata/scenarios.yaml.
type scenario struct {
	Name   string            `yaml:"name"`
	Files  map[string]string `yaml:"files"`
	Source string            `yaml:"source"`
	Want   *string           `yaml:"want"`
	Error  string            `yaml:"error"`
	Stdout *string           `yaml:"stdout"`
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "scenarios.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var scenarios []scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		t.Fatalf("decoding scenarios: %v", err)
	}
	return scenarios
}

func TestScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range sc.Files {
				path := filepath.Join(dir, filepath.FromSlash(name))
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(path, []byte(content), 0644); err != nil {
					t.Fatal(err)
				}
			}

			v, out := newTestVM(t)
			result, err := v.Eval(sc.Source, filepath.Join(dir, "main.slate"))

			if sc.Error != "" {
				var rerr *vm.RuntimeError
				if !errors.As(err, &rerr) {
					t.Fatalf("error = %v, want %s", err, sc.Error)
				}
				if rerr.Kind.String() != sc.Error {
					t.Errorf("error kind = %s, want %s (%s)", rerr.Kind, sc.Error, rerr.Message)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sc.Want != nil {
				got, err := v.Display(result)
				if err != nil {
					t.Fatalf("display: %v", err)
				}
				if got != *sc.Want {
					t.Errorf("result = %s, want %s", got, *sc.Want)
				}
			}
			if sc.Stdout != nil && out.String() != *sc.Stdout {
				t.Errorf("stdout = %q, want %q", out.String(), *sc.Stdout)
			}
		})
	}
}
