// Package stdmanifest declares the ordered list of bundled standard
// library modules. Std modules load from their own queue before any user
// module, with `root` always first, because every other std module
// depends on it. The list is data, not code, so reordering or extending
// the bundle never touches the loader.
package stdmanifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed form of stdlib.manifest.yaml.
type Manifest struct {
	Schema  string   `yaml:"schema"`
	Root    string   `yaml:"root"`
	Modules []string `yaml:"modules"`
}

// defaultManifestYAML is the bundled manifest, kept as an embedded
// literal rather than a file read off disk at an uncertain working
// directory. Only the ordering contract the loader depends on lives
// here.
const defaultManifestYAML = `
schema: ln.stdmanifest/v1
root: root
modules:
  - app
`

// Load parses the bundled manifest and validates it has a root entry.
func Load() (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal([]byte(defaultManifestYAML), &m); err != nil {
		return nil, fmt.Errorf("stdmanifest: %w", err)
	}
	if m.Root == "" {
		return nil, fmt.Errorf("stdmanifest: manifest has no root module declared")
	}
	return &m, nil
}

// Order returns the load order: root always first, then the remaining
// modules in declared order.
func (m *Manifest) Order() []string {
	out := make([]string, 0, len(m.Modules)+1)
	out = append(out, m.Root)
	for _, mod := range m.Modules {
		if mod != m.Root {
			out = append(out, mod)
		}
	}
	return out
}
