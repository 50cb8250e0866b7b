package adapters

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"depscout/internal/core"
	"depscout/internal/ports"
	"depscout/internal/types"
)

// ConfigToolSpec configures a config-tool lookup for one dependency.
// Tools is the ordered list of candidate basenames; the first one that
// satisfies the version constraints wins, with a best-version fallback
// across all candidates.
type ConfigToolSpec struct {
	Tools []string
	// VersionArg asks the tool for its version. Defaults to --version.
	VersionArg string
	// SkipVersionArg, when set, is probed after a failed version query.
	// A zero exit means the tool exists but simply cannot report a
	// version, which is accepted when no constraint was requested.
	SkipVersionArg string
	// CompileArgs and LinkArgs are the fixed argument lists used to
	// fetch flags, typically --cflags and --libs.
	CompileArgs []string
	LinkArgs    []string
}

func (s ConfigToolSpec) versionArg() string {
	if s.VersionArg == "" {
		return "--version"
	}
	return s.VersionArg
}

// ConfigToolAdapter resolves dependencies that ship their own
// foo-config style helper binary.
type ConfigToolAdapter struct {
	Runner ports.RunnerPort
	Finder *ProgramFinder
	Tools  *ToolCache
}

func NewConfigToolAdapter(runner ports.RunnerPort, finder *ProgramFinder, tools *ToolCache) *ConfigToolAdapter {
	return &ConfigToolAdapter{Runner: runner, Finder: finder, Tools: tools}
}

// versionPrefix matches the leading numeric part of a version report.
// Tools love decorating their versions ("openssl 3.0.2 15 Mar 2022"),
// so only the leading digits and dots are kept.
var versionPrefix = regexp.MustCompile(`^[0-9.]*`)

func sanitizeVersion(raw string) string {
	v := versionPrefix.FindString(strings.TrimSpace(raw))
	return strings.TrimRight(v, ".")
}

type toolCandidate struct {
	program Program
	version string
}

// toolNames resolves the candidate basenames for one request: a
// caller-supplied list wins over the spec's, and the bare name gets a
// -config suffix when neither names any.
func (s ConfigToolSpec) toolNames(name string, opts types.ResolveOptions) []string {
	if len(opts.Tools) > 0 {
		return opts.Tools
	}
	if len(s.Tools) > 0 {
		return s.Tools
	}
	return []string{name + "-config"}
}

// Resolve locates the best candidate tool and builds a dependency from
// its reported flags.
func (a *ConfigToolAdapter) Resolve(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions, spec ConfigToolSpec) (types.ResolvedDependency, error) {
	best, err := a.findTool(ctx, name, machine, opts, spec, spec.toolNames(name, opts))
	if err != nil {
		return types.ResolvedDependency{}, err
	}

	dep := types.ResolvedDependency{
		Found:   true,
		Name:    name,
		Version: best.version,
	}
	if dep.Version == "" {
		dep.Version = types.VersionUnknown
	}
	if len(spec.CompileArgs) > 0 {
		args, err := a.configValue(ctx, name, best.program, spec.CompileArgs)
		if err != nil {
			return types.ResolvedDependency{}, err
		}
		dep.CompileArgs = args
	}
	if len(spec.LinkArgs) > 0 {
		args, err := a.configValue(ctx, name, best.program, spec.LinkArgs)
		if err != nil {
			return types.ResolvedDependency{}, err
		}
		dep.LinkArgs = args
	}
	log.Ctx(ctx).Debug().
		Str("dependency", name).
		Str("tool", best.program.Path()).
		Str("version", dep.Version).
		Msg("config tool accepted")
	return dep, nil
}

// findTool probes every candidate basename and keeps the highest
// version among those that satisfy the requested constraints; when the
// constraints rule everything out, the highest version seen is reported
// in the failure. Version comparison here is plain string ordering,
// kept for compatibility with existing tool ecosystems that rely on it.
func (a *ConfigToolAdapter) findTool(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions, spec ConfigToolSpec, tools []string) (toolCandidate, error) {
	var best toolCandidate
	var rejected toolCandidate
	satisfied := false
	seenAny := false
	for _, basename := range tools {
		program := a.Tools.Locate(basename, machine.Choice, func() Program {
			return a.Finder.FindFirst(basename, machine, nil, nil)
		})
		if !program.Found() {
			continue
		}
		version, ok := a.probeVersion(ctx, program, spec)
		if !ok {
			continue
		}
		seenAny = true
		if len(opts.Version) > 0 {
			if version == "" {
				// A versionless tool cannot satisfy an explicit constraint.
				continue
			}
			check, err := core.CheckVersion(version, opts.Version)
			if err != nil {
				return toolCandidate{}, err
			}
			if !check.Satisfied {
				if !rejected.program.Found() || version > rejected.version {
					rejected = toolCandidate{program: program, version: version}
				}
				continue
			}
		}
		if !satisfied || version > best.version {
			best = toolCandidate{program: program, version: version}
			satisfied = true
		}
	}
	if satisfied {
		return best, nil
	}
	if rejected.program.Found() {
		return toolCandidate{}, core.VersionMismatch(name, rejected.version, opts.Version)
	}
	if seenAny {
		return toolCandidate{}, core.VersionMismatch(name, types.VersionUnknown, opts.Version)
	}
	return toolCandidate{}, core.NotFound(name, "no config tool found (tried %s)", strings.Join(tools, ", "))
}

// probeVersion reports the sanitized tool version. The second return
// is false when the binary cannot be executed at all.
func (a *ConfigToolAdapter) probeVersion(ctx context.Context, program Program, spec ConfigToolSpec) (string, bool) {
	result, err := a.Runner.Run(ctx, append(program.Command, spec.versionArg()), nil)
	if err != nil {
		return "", false
	}
	if result.ExitCode != 0 {
		if spec.SkipVersionArg == "" {
			return "", false
		}
		skip, err := a.Runner.Run(ctx, append(program.Command, spec.SkipVersionArg), nil)
		if err != nil || skip.ExitCode != 0 {
			return "", false
		}
		return "", true
	}
	return sanitizeVersion(result.Stdout), true
}

// configValue runs the tool with a fixed argument list and splits the
// output into flags.
func (a *ConfigToolAdapter) configValue(ctx context.Context, name string, program Program, args []string) ([]string, error) {
	result, err := a.Runner.Run(ctx, append(program.Command, args...), nil)
	if err != nil {
		return nil, core.ToolFailure(program.Name, err)
	}
	if result.ExitCode != 0 {
		return nil, core.MalformedOutput(program.Name,
			"could not generate %s for %s: %s", strings.Join(args, " "), name, strings.TrimSpace(result.Stderr))
	}
	flags, err := splitFlags(result.Stdout)
	if err != nil {
		return nil, core.MalformedOutput(program.Name, "unparseable output for %s", name)
	}
	return flags, nil
}

// GetVariable asks the tool for a single value through a --{variable}
// style flag.
func (a *ConfigToolAdapter) GetVariable(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions, spec ConfigToolSpec, variable string, def string) (string, error) {
	best, err := a.findTool(ctx, name, machine, opts, spec, spec.toolNames(name, opts))
	if err != nil {
		return "", err
	}
	result, err := a.Runner.Run(ctx, append(best.program.Command, "--"+variable), nil)
	if err != nil {
		return "", core.ToolFailure(best.program.Name, err)
	}
	if result.ExitCode != 0 {
		if def != "" {
			return def, nil
		}
		return "", core.NotFound(name, "config tool variable %q not available", variable)
	}
	return strings.TrimSpace(result.Stdout), nil
}
