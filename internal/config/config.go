// Package config collects the compiler-wide options the loader and CLI
// share: extra module search directories and the standard library
// location.
package config

import (
	"os"
	"path/filepath"
)

// Config holds resolved compiler options. A zero Config is valid: no
// extra search paths and the built-in standard modules only.
type Config struct {
	// SearchPaths are extra directories consulted when a relative import
	// does not resolve against the importing file's own directory.
	SearchPaths []string

	// StdlibPath, when non-empty, points at a directory of .ln sources
	// that override the built-in standard modules: "@std/X" is read from
	// <StdlibPath>/X.ln before falling back to the bundled module.
	StdlibPath string
}

// FromEnv builds a Config from the LN_PATH and LN_STDLIB environment
// variables. When LN_STDLIB is unset, a std directory next to the
// compiler binary is used if one exists.
func FromEnv() *Config {
	cfg := &Config{}
	if v := os.Getenv("LN_PATH"); v != "" {
		cfg.SearchPaths = filepath.SplitList(v)
	}
	if v := os.Getenv("LN_STDLIB"); v != "" {
		cfg.StdlibPath = v
		return cfg
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "std")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			cfg.StdlibPath = candidate
		}
	}
	return cfg
}
