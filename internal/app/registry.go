package app

import (
	"context"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"depscout/internal/adapters"
	"depscout/internal/core"
	"depscout/internal/ports"
	"depscout/internal/types"
)

// registerBuiltins installs the dependency-specific handlers. Names
// without an entry go through the default strategy ordering.
func (s *Service) registerBuiltins() error {
	if err := s.Registry.Register("python", core.Handler{Factory: s.pythonFactory}); err != nil {
		return err
	}
	s.Registry.AllowLanguage("python")

	if err := s.Registry.Register("python3", core.Handler{Factory: s.pythonFactory}); err != nil {
		return err
	}
	s.Registry.AllowLanguage("python3")

	if err := s.Registry.Register("zlib", core.Handler{
		Methods: []types.Method{types.MethodPkgConfig, types.MethodSystem},
	}); err != nil {
		return err
	}
	s.registerSystemSpecs()

	return s.Registry.Register("threads", core.Handler{Method: types.MethodSystem})
}

// pythonFactory resolves the interpreter through its config tool and
// validates the reported version as PEP 440 before any constraint
// check, since distributions ship suffixed versions the generic
// comparison would misread.
func (s *Service) pythonFactory(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions) ([]core.Candidate, error) {
	spec := adapters.ConfigToolSpec{
		Tools:       []string{"python3-config", "python-config"},
		CompileArgs: []string{"--includes"},
		LinkArgs:    []string{"--ldflags"},
	}
	return []core.Candidate{{
		Method: types.MethodConfigTool,
		Try: func(ctx context.Context) (types.ResolvedDependency, error) {
			dep, err := s.configTool.Resolve(ctx, name, machine, opts, spec)
			if err != nil {
				return types.ResolvedDependency{}, err
			}
			if dep.Version != types.VersionUnknown {
				parsed, err := pep440.Parse(dep.Version)
				if err != nil {
					return types.ResolvedDependency{}, core.MalformedOutput("python-config",
						"reported version %q is not a valid python version", dep.Version)
				}
				dep.Version = parsed.String()
			}
			return dep, nil
		},
	}}, nil
}

// registerSystemSpecs records the system-probe shapes for the names
// that carry one. The zlib probe reads the version straight out of the
// header macro.
func (s *Service) registerSystemSpecs() {
	s.systemSpecs = map[string]adapters.SystemSpec{
		"zlib": {
			Header:     "zlib.h",
			Libraries:  []string{"z"},
			RootEnvVar: "ZLIB_ROOT",
			Version: func(compiler ports.CompilerPort, extraArgs []string) string {
				value, _ := compiler.GetDefine("ZLIB_VERSION", "#include <zlib.h>", extraArgs)
				return trimQuotes(value)
			},
		},
		"threads": {
			Header:    "pthread.h",
			Libraries: []string{"pthread"},
		},
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
