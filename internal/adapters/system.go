package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"depscout/internal/core"
	"depscout/internal/ports"
	"depscout/internal/types"
)

// SystemSpec drives a raw compiler-probe lookup for one dependency:
// which header proves the package is present, which library names to
// link and which environment variable may point at an install root.
type SystemSpec struct {
	Header    string
	Libraries []string
	// RootEnvVar names an environment variable holding the install
	// prefix, for example ZLIB_ROOT.
	RootEnvVar string
	// Version extracts a version once the probe succeeded. Optional.
	Version func(compiler ports.CompilerPort, extraArgs []string) string
}

// SystemAdapter resolves dependencies that ship no metadata at all by
// probing the compiler directly.
type SystemAdapter struct {
	Compiler ports.CompilerPort
}

func NewSystemAdapter(compiler ports.CompilerPort) *SystemAdapter {
	return &SystemAdapter{Compiler: compiler}
}

func (a *SystemAdapter) Resolve(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions, spec SystemSpec) (types.ResolvedDependency, error) {
	if a.Compiler == nil {
		return types.ResolvedDependency{}, core.NotFound(name, "no compiler available for a system probe")
	}

	var compileArgs []string
	var searchPaths []string
	if spec.RootEnvVar != "" {
		if root := os.Getenv(spec.RootEnvVar); root != "" {
			compileArgs = append(compileArgs, "-I"+filepath.Join(root, "include"))
			searchPaths = append(searchPaths, filepath.Join(root, "lib"))
		}
	}

	if spec.Header != "" {
		found, cached := a.Compiler.HasHeader(spec.Header, "", compileArgs)
		if !found {
			return types.ResolvedDependency{}, core.NotFound(name, "header %s not usable", spec.Header)
		}
		log.Ctx(ctx).Debug().
			Str("dependency", name).
			Str("header", spec.Header).
			Bool("cached", cached).
			Msg("system probe header found")
	}

	var linkArgs []string
	for _, lib := range spec.Libraries {
		args := a.Compiler.FindLibrary(lib, searchPaths, opts.LibType())
		if args == nil {
			return types.ResolvedDependency{}, core.NotFound(name, "library %s not found", lib)
		}
		linkArgs = append(linkArgs, args...)
	}

	dep := types.ResolvedDependency{
		Found:       true,
		Name:        name,
		Version:     types.VersionUnknown,
		CompileArgs: compileArgs,
		LinkArgs:    linkArgs,
	}
	if spec.Version != nil {
		if v := strings.TrimSpace(spec.Version(a.Compiler, compileArgs)); v != "" {
			dep.Version = v
		}
	}
	return dep, nil
}
