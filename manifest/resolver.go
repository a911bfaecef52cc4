package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("slate.manifest")

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // local filesystem path
	Roots     []string  // module roots contributed to the search path
	Manifest  *Manifest // the dependency's own manifest (may be nil)
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
	fetch    bool
}

// NewResolver creates a new dependency resolver. With fetch set, git
// dependencies that are already cloned are updated from their remote.
func NewResolver(m *Manifest, fetch bool) *Resolver {
	return &Resolver{manifest: m, fetch: fetch}
}

// Resolve resolves all dependencies and returns them in load order
// (dependencies before dependents).
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}
	resolved := make(map[string]*ResolvedDep)
	return r.resolveAll(r.manifest, r.manifest.Dependencies, resolved)
}

// resolveAll resolves a set of dependencies recursively. Path dependencies
// are relative to the manifest that names them.
func (r *Resolver) resolveAll(owner *Manifest, deps map[string]Dependency, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	var order []ResolvedDep

	for _, name := range sortedNames(deps) {
		if _, ok := resolved[name]; ok {
			continue // already resolved
		}

		rd, err := r.resolveOne(owner, name, deps[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved[name] = rd

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(rd.Manifest, rd.Manifest.Dependencies, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}

		order = append(order, *rd)
	}

	return order, nil
}

// resolveOne resolves a single dependency.
func (r *Resolver) resolveOne(owner *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	var localPath string
	switch {
	case dep.Path != "":
		localPath = dep.Path
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(owner.Dir, localPath)
		}
		abs, err := filepath.Abs(localPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}
		localPath = abs
		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}

	case dep.Git != "":
		if err := os.MkdirAll(r.manifest.DepsDir(), 0755); err != nil {
			return nil, fmt.Errorf("creating deps dir: %w", err)
		}
		localPath = filepath.Join(r.manifest.DepsDir(), name)
		if _, err := os.Stat(localPath); os.IsNotExist(err) {
			log.Infof("cloning %s from %s", name, dep.Git)
			if err := gitClone(dep.Git, localPath); err != nil {
				return nil, err
			}
		} else if r.fetch {
			log.Infof("fetching %s", name)
			if err := gitFetch(localPath); err != nil {
				return nil, err
			}
		}
		if dep.Tag != "" {
			if err := gitCheckout(localPath, dep.Tag); err != nil {
				return nil, err
			}
		}
		if head, err := gitHead(localPath); err == nil {
			log.Infof("%s at %s", name, head)
		}

	default:
		return nil, fmt.Errorf("dependency %q has no git or path specified", name)
	}

	rd := &ResolvedDep{Name: name, LocalPath: localPath}
	if _, err := os.Stat(filepath.Join(localPath, FileName)); err == nil {
		depManifest, err := Load(localPath)
		if err != nil {
			return nil, err
		}
		rd.Manifest = depManifest
		rd.Roots = depManifest.SearchPaths()
	}
	if len(rd.Roots) == 0 {
		rd.Roots = []string{localPath}
	}
	log.Debugf("dependency %s resolved to %s", name, localPath)
	return rd, nil
}

// sortedNames returns the dependency names in a stable order.
func sortedNames(deps map[string]Dependency) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
