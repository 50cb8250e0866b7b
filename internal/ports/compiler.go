// Package ports declares the interfaces depscout uses to talk to its
// external collaborators: the compiler abstraction, the process layer
// and the per-machine binary override tables.
package ports

import "depscout/internal/types"

// CompilerPort is the capability interface of the compiler abstraction.
// The engine only drives it for discovery checks; flag generation and
// compilation belong to the caller.
type CompilerPort interface {
	// FindLibrary searches the given directories (then the linker
	// defaults) for a library and returns the link arguments to use, or
	// nil when the library cannot be found.
	FindLibrary(name string, searchPaths []string, libType types.LibType) []string
	// HasHeader reports whether a header is usable with the given
	// prelude and extra compiler args. The second result reports a
	// compiler-side cache hit.
	HasHeader(name string, prefix string, extraArgs []string) (bool, bool)
	// GetDefine expands a preprocessor macro. The second result reports
	// a compiler-side cache hit.
	GetDefine(macro string, prefix string, extraArgs []string) (string, bool)
	// DefaultIncludeDirs returns the compiler's builtin include search
	// directories.
	DefaultIncludeDirs() []string
	// FindFramework locates a framework bundle and returns the link
	// arguments, or nil. Only meaningful on Darwin.
	FindFramework(name string, paths []string, allowSystem bool) []string
	// Language names the language this compiler drives ("c", "cpp",
	// "fortran", ...).
	Language() string
}
