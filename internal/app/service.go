// Package app wires the resolution engine to its adapters and owns the
// per-run caches. A Service is built once per invocation; the engine
// itself runs single-threaded, so none of the caches carry locks.
package app

import (
	"context"
	"runtime"
	"strings"

	"depscout/internal/adapters"
	"depscout/internal/core"
	"depscout/internal/ports"
	"depscout/internal/types"
)

// Config selects the run environment for a Service.
type Config struct {
	// MachineFile optionally points at a per-machine binary override
	// table.
	MachineFile string
	// Compiler is the compiler abstraction for probe-based lookups.
	// Resolution still works without one; library references then stay
	// as bare flags.
	Compiler ports.CompilerPort
	// Cross marks the host machine as a cross target, which disables
	// PATH fallback for host tools.
	Cross bool
	// PreferDebug selects debug artifacts from traced lookups.
	PreferDebug bool
}

type Service struct {
	Machines types.MachinePair
	Runner   ports.RunnerPort
	Finder   *adapters.ProgramFinder
	Tools    *adapters.ToolCache
	Registry *core.Registry

	pkgConfig  *adapters.PkgConfigAdapter
	configTool *adapters.ConfigToolAdapter
	cmake      *adapters.CMakeAdapter
	framework  *adapters.FrameworkAdapter
	system     *adapters.SystemAdapter

	// systemSpecs shapes the system probe per dependency name.
	systemSpecs map[string]adapters.SystemSpec

	orchestrator *core.Orchestrator
}

func NewService(cfg Config) (*Service, error) {
	binaries := adapters.NewMachineFileAdapter()
	if cfg.MachineFile != "" {
		loaded, err := adapters.LoadMachineFile(cfg.MachineFile)
		if err != nil {
			return nil, err
		}
		binaries = loaded
	}

	machines := types.NativePair()
	if cfg.Cross {
		machines.Host.IsCross = true
	}

	runner := adapters.NewCachedRunner(adapters.NewExecRunner())
	finder := adapters.NewProgramFinder(binaries)
	finder.CrossFallback = !cfg.Cross
	tools := adapters.NewToolCache()

	s := &Service{
		Machines:   machines,
		Runner:     runner,
		Finder:     finder,
		Tools:      tools,
		Registry:   core.NewRegistry(),
		pkgConfig:  adapters.NewPkgConfigAdapter(runner, cfg.Compiler, finder, tools),
		configTool: adapters.NewConfigToolAdapter(runner, finder, tools),
		cmake:      adapters.NewCMakeAdapter(adapters.NewCMakeExecutor(runner, finder, tools), runtime.GOOS),
		framework:  adapters.NewFrameworkAdapter(cfg.Compiler, nil),
		system:     adapters.NewSystemAdapter(cfg.Compiler),
	}
	s.cmake.PreferDebug = cfg.PreferDebug
	if err := s.registerBuiltins(); err != nil {
		return nil, err
	}
	s.orchestrator = core.NewOrchestrator(s.Registry, s.strategies(), machines)
	return s, nil
}

// strategies binds each discovery method to its adapter. The engine
// receives plain closures so it never imports the adapters package.
func (s *Service) strategies() core.Strategies {
	return core.Strategies{
		PkgConfig:      s.pkgConfigCandidate,
		ConfigTool:     s.configToolCandidate,
		CMake:          s.cmakeCandidate,
		ExtraFramework: s.frameworkCandidate,
		System:         s.systemCandidate,
	}
}

func (s *Service) pkgConfigCandidate(name string, machine types.MachineInfo, opts types.ResolveOptions) core.Candidate {
	return core.Candidate{
		Method: types.MethodPkgConfig,
		Try: func(ctx context.Context) (types.ResolvedDependency, error) {
			return s.pkgConfig.Resolve(ctx, name, machine, opts)
		},
	}
}

func (s *Service) configToolCandidate(name string, machine types.MachineInfo, opts types.ResolveOptions) core.Candidate {
	return core.Candidate{
		Method: types.MethodConfigTool,
		Try: func(ctx context.Context) (types.ResolvedDependency, error) {
			return s.configTool.Resolve(ctx, name, machine, opts, adapters.ConfigToolSpec{
				CompileArgs: []string{"--cflags"},
				LinkArgs:    []string{"--libs"},
			})
		},
	}
}

func (s *Service) cmakeCandidate(name string, machine types.MachineInfo, opts types.ResolveOptions) core.Candidate {
	return core.Candidate{
		Method: types.MethodCMake,
		Try: func(ctx context.Context) (types.ResolvedDependency, error) {
			return s.cmake.Resolve(ctx, name, machine, opts)
		},
	}
}

func (s *Service) frameworkCandidate(name string, machine types.MachineInfo, opts types.ResolveOptions) core.Candidate {
	return core.Candidate{
		Method: types.MethodExtraFramework,
		Try: func(ctx context.Context) (types.ResolvedDependency, error) {
			return s.framework.Resolve(ctx, name, machine, opts)
		},
	}
}

// systemCandidate runs the raw compiler probe. Names with a recorded
// probe shape use it; anything else defaults to linking a library of
// the same name.
func (s *Service) systemCandidate(name string, machine types.MachineInfo, opts types.ResolveOptions) core.Candidate {
	spec, ok := s.systemSpecs[strings.ToLower(name)]
	if !ok {
		spec = adapters.SystemSpec{Libraries: []string{name}}
	}
	return core.Candidate{
		Method: types.MethodSystem,
		Try: func(ctx context.Context) (types.ResolvedDependency, error) {
			return s.system.Resolve(ctx, name, machine, opts, spec)
		},
	}
}
